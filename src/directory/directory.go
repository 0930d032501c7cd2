package directory

import (
	"context"
	"fmt"

	"github.com/mosaicnetworks/murmur/src/crypto"
	"github.com/mosaicnetworks/murmur/src/peers"
)

// LookupKey identifies a user name in the directory. It is the upper-case hex
// encoding of the SHA256 hash of the name.
type LookupKey string

// Hash computes the LookupKey of a user name.
func Hash(name string) LookupKey {
	return LookupKey(fmt.Sprintf("%X", crypto.SHA256([]byte(name))))
}

// PeerFoundHandler receives the found-peer notifications of a Directory. id is
// the identifier of the lookup that produced the notification.
type PeerFoundHandler func(addr peers.PeerAddress, key LookupKey, id string)

// LookupDone is called once when a lookup completes, after all its found-peer
// notifications have been delivered.
type LookupDone func(err error, count int)

// Directory is the interface of the peer directory.
type Directory interface {
	// Hash returns the LookupKey of a user name.
	Hash(name string) LookupKey

	// Lookup starts looking for the nodes that serve name. Results are
	// reported through the PeerFoundHandler, tagged with id, and done is
	// called at the end.
	Lookup(ctx context.Context, name string, id string, done LookupDone)

	// Announce registers the local node as a server of name.
	Announce(ctx context.Context, name string) error

	// OnPeerFound sets the handler of found-peer notifications.
	OnPeerFound(handler PeerFoundHandler)

	// Close releases the directory's resources.
	Close() error
}
