package directory

import (
	"context"
	"encoding/pem"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gammazero/nexus/v3/client"
	"github.com/gammazero/nexus/v3/wamp"
	"github.com/mosaicnetworks/murmur/src/common"
	"github.com/mosaicnetworks/murmur/src/peers"
	"github.com/sirupsen/logrus"
)

const testRealm = "murmur-test"

func newTestServer(t *testing.T) *Server {
	server, err := NewServer("127.0.0.1:0", testRealm, "", "", common.NewTestEntry(t, logrus.InfoLevel))
	if err != nil {
		t.Fatal(err)
	}
	return server
}

func localDirectory(t *testing.T, server *Server, self peers.PeerAddress) *WAMPDirectory {
	logger := common.NewTestEntry(t, logrus.DebugLevel)

	cli, err := client.ConnectLocal(server.Router(), client.Config{
		Realm:  testRealm,
		Logger: logger,
	})
	if err != nil {
		t.Fatal(err)
	}

	return newWAMPDirectory(cli, self, time.Second, logger)
}

func TestWAMPDirectoryLocal(t *testing.T) {
	server := newTestServer(t)
	defer server.Shutdown()

	alice := localDirectory(t, server, peers.NewPeerAddress("10.0.0.1", 1337))
	defer alice.Close()
	carol := localDirectory(t, server, peers.NewPeerAddress("10.0.0.3", 1337))
	defer carol.Close()
	bob := localDirectory(t, server, peers.NewPeerAddress("10.0.0.2", 1337))
	defer bob.Close()

	ctx := context.Background()

	if err := alice.Announce(ctx, "alice"); err != nil {
		t.Fatal(err)
	}
	if err := carol.Announce(ctx, "alice"); err != nil {
		t.Fatal(err)
	}

	c := NewCorrelator(bob, time.Second, common.NewTestEntry(t, logrus.DebugLevel))

	found, err := c.Discover(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if len(found) != 2 || found[0].String() != "10.0.0.1:1337" || found[1].String() != "10.0.0.3:1337" {
		t.Fatalf("unexpected peers: %v", found)
	}

	found, err = c.Discover(ctx, "nobody")
	if err != nil {
		t.Fatal(err)
	}
	if len(found) != 0 {
		t.Fatalf("expected no peers, got %v", found)
	}
}

func TestWAMPServerInvalidArguments(t *testing.T) {
	server := newTestServer(t)
	defer server.Shutdown()

	cli, err := client.ConnectLocal(server.Router(), client.Config{Realm: testRealm})
	if err != nil {
		t.Fatal(err)
	}
	defer cli.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err = cli.Call(ctx, AnnounceProcedure, nil, wamp.List{"key", "not-an-address"}, nil, nil)
	if err == nil || !strings.Contains(err.Error(), string(ErrInvalidArgument)) {
		t.Fatalf("expected %s, got %v", ErrInvalidArgument, err)
	}

	if server.Registry().Len() != 0 {
		t.Fatalf("an invalid announce should not reach the registry")
	}
}

func TestWAMPDirectoryWebsocket(t *testing.T) {
	server := newTestServer(t)
	defer server.Shutdown()

	ts := httptest.NewServer(server.Handler())
	defer ts.Close()

	addr := strings.TrimPrefix(ts.URL, "http://")
	logger := common.NewTestEntry(t, logrus.DebugLevel)

	dir, err := NewWAMPDirectory(addr, testRealm, peers.NewPeerAddress("10.0.0.7", 80), time.Second, logger)
	if err != nil {
		t.Fatal(err)
	}
	defer dir.Close()

	if err := dir.Announce(context.Background(), "zoe"); err != nil {
		t.Fatal(err)
	}

	found := server.Registry().Lookup(Hash("zoe"))
	if len(found) != 1 || found[0].String() != "10.0.0.7:80" {
		t.Fatalf("announce did not reach the server: %v", found)
	}
}

func TestSecureWAMPDirectory(t *testing.T) {
	server := newTestServer(t)
	defer server.Shutdown()

	ts := httptest.NewTLSServer(server.Handler())
	defer ts.Close()

	addr := strings.TrimPrefix(ts.URL, "https://")
	logger := common.NewTestEntry(t, logrus.DebugLevel)

	caFile := filepath.Join(t.TempDir(), "cert.pem")
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: ts.Certificate().Raw})
	if err := os.WriteFile(caFile, certPEM, 0600); err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		name       string
		caFile     string
		skipVerify bool
		ok         bool
	}{
		{"trusted certificate", caFile, false, true},
		{"skip verify", "", true, true},
		{"unknown authority", filepath.Join(t.TempDir(), "missing.pem"), false, false},
	}

	for i, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			self := peers.NewPeerAddress("10.0.0.8", 80+i)

			dir, err := NewSecureWAMPDirectory(addr, testRealm, self, c.caFile, c.skipVerify, time.Second, logger)
			if !c.ok {
				if err == nil {
					dir.Close()
					t.Fatal("connection should have failed")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			defer dir.Close()

			if err := dir.Announce(context.Background(), "yan"); err != nil {
				t.Fatal(err)
			}
		})
	}

	if n := len(server.Registry().Lookup(Hash("yan"))); n != 2 {
		t.Fatalf("expected 2 announces, got %d", n)
	}
}
