package node

import (
	"context"
	"fmt"
	"testing"

	"github.com/mosaicnetworks/murmur/src/crypto/keys"
	"github.com/mosaicnetworks/murmur/src/directory"
	"github.com/mosaicnetworks/murmur/src/net"
	"github.com/mosaicnetworks/murmur/src/peers"
	"github.com/mosaicnetworks/murmur/src/signer"
	"github.com/mosaicnetworks/murmur/src/timeline"
)

// testNetwork is a set of nodes connected through in-memory transports and
// sharing one directory registry.
type testNetwork struct {
	registry   *directory.Registry
	transports []*net.InmemTransport
	nodes      map[string]*Node
}

func newTestNetwork(t *testing.T, users ...string) *testNetwork {
	return newTestNetworkWithConfig(t, nil, users...)
}

// newTestNetworkWithConfig creates one node per user. configure, if not nil,
// can modify each node's Config before the node is created.
func newTestNetworkWithConfig(t *testing.T, configure func(*Config), users ...string) *testNetwork {
	network := &testNetwork{
		registry: directory.NewRegistry(),
		nodes:    make(map[string]*Node),
	}

	for i, user := range users {
		key, err := keys.GenerateECDSAKey()
		if err != nil {
			t.Fatal(err)
		}
		sig := signer.NewSigner(key)

		addr := peers.NewPeerAddress("127.0.0.1", 1000+i)
		_, trans := net.NewInmemTransport(addr.String())

		conf := TestConfig(t)
		if configure != nil {
			configure(conf)
		}

		node := NewNode(conf,
			user,
			sig,
			timeline.NewInmemStore(user, sig.PublicKeyHex()),
			trans,
			directory.NewInmemDirectory(network.registry, addr),
		)

		network.transports = append(network.transports, trans)
		network.nodes[user] = node
	}

	for _, t1 := range network.transports {
		for _, t2 := range network.transports {
			if t1 != t2 {
				t1.Connect(t2.LocalAddr(), t2)
			}
		}
	}

	for _, node := range network.nodes {
		if err := node.Init(context.Background()); err != nil {
			t.Fatal(err)
		}
	}

	t.Cleanup(func() {
		for _, node := range network.nodes {
			node.Shutdown()
		}
	})

	return network
}

func (tn *testNetwork) node(user string) *Node {
	return tn.nodes[user]
}

// announceDead registers an address that no transport answers on as a server
// of user.
func (tn *testNetwork) announceDead(user string, port int) {
	tn.registry.Announce(directory.Hash(user), peers.NewPeerAddress("127.0.0.1", port))
}

func post(t *testing.T, n *Node, content string, ts int64) timeline.Message {
	msg, _, err := n.PostNewMessage(context.Background(), timeline.Message{Content: content, Timestamp: ts})
	if err != nil {
		t.Fatal(err)
	}
	return msg
}

func follow(t *testing.T, n *Node, user string) {
	res, err := n.FollowUser(context.Background(), user)
	if err != nil || res != FoundPeer {
		t.Fatalf("%s could not follow %s: %v %v", n.Self(), user, res, err)
	}
}

// signedPayload signs tl as a timeline of n's user.
func signedPayload(t *testing.T, n *Node, tl timeline.Timeline) []byte {
	snap, err := n.signer.Sign(n.Self(), tl)
	if err != nil {
		t.Fatal(err)
	}
	raw, err := snap.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	return raw
}

func stamps(tl timeline.Timeline) string {
	res := ""
	for _, m := range tl {
		res += fmt.Sprintf("%d,", m.Timestamp)
	}
	return res
}
