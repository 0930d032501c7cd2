package directory

import (
	"context"
	"testing"
	"time"

	"github.com/mosaicnetworks/murmur/src/common"
	"github.com/mosaicnetworks/murmur/src/peers"
	"github.com/sirupsen/logrus"
)

func TestInmemDirectory(t *testing.T) {
	registry := NewRegistry()

	addrs := []peers.PeerAddress{
		peers.NewPeerAddress("127.0.0.1", 1001),
		peers.NewPeerAddress("127.0.0.1", 1002),
		peers.NewPeerAddress("127.0.0.1", 1003),
	}

	dirs := make([]*InmemDirectory, len(addrs))
	for i, a := range addrs {
		dirs[i] = NewInmemDirectory(registry, a)
	}

	ctx := context.Background()

	dirs[0].Announce(ctx, "alice")
	dirs[2].Announce(ctx, "alice")
	dirs[2].Announce(ctx, "alice")
	dirs[1].Announce(ctx, "bob")

	c := NewCorrelator(dirs[1], time.Second, common.NewTestEntry(t, logrus.DebugLevel))

	found, err := c.Discover(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if len(found) != 2 || found[0] != addrs[0] || found[1] != addrs[2] {
		t.Fatalf("unexpected peers for alice: %v", found)
	}

	found, err = c.Discover(ctx, "nobody")
	if err != nil {
		t.Fatal(err)
	}
	if len(found) != 0 {
		t.Fatalf("nobody should have no peers, got %v", found)
	}

	if registry.Len() != 2 {
		t.Fatalf("registry should contain 2 keys, not %d", registry.Len())
	}
}

func TestInmemDirectoryLookupID(t *testing.T) {
	registry := NewRegistry()
	addr := peers.NewPeerAddress("127.0.0.1", 1001)
	dir := NewInmemDirectory(registry, addr)
	dir.Announce(context.Background(), "alice")

	ids := make(chan string, 1)
	dir.OnPeerFound(func(a peers.PeerAddress, key LookupKey, id string) {
		ids <- id
	})

	done := make(chan error, 1)
	dir.Lookup(context.Background(), "alice", "lookup-1", func(err error, count int) {
		done <- err
	})

	if err := <-done; err != nil {
		t.Fatal(err)
	}
	if id := <-ids; id != "lookup-1" {
		t.Fatalf("notification should carry the lookup id, got %q", id)
	}
}
