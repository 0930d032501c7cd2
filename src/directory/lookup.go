package directory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mosaicnetworks/murmur/src/peers"
)

// Lookup is an outstanding or completed directory lookup for one user. It
// collects the addresses reported for its key until it is released, and is
// then resolved with the error it completed with.
type Lookup struct {
	ID      string
	Key     LookupKey
	User    string
	Started time.Time

	peers *peers.AddressList

	done chan struct{}
	once sync.Once
	err  error
}

func newLookup(key LookupKey, user string) *Lookup {
	return &Lookup{
		ID:      uuid.New().String(),
		Key:     key,
		User:    user,
		Started: time.Now(),
		peers:   peers.NewAddressList(),
		done:    make(chan struct{}),
	}
}

// Done is closed when the lookup is resolved.
func (l *Lookup) Done() <-chan struct{} {
	return l.done
}

// Wait blocks until the lookup is resolved or ctx expires, and returns the
// addresses found in discovery order.
func (l *Lookup) Wait(ctx context.Context) ([]peers.PeerAddress, error) {
	select {
	case <-l.done:
		return l.Peers(), l.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Peers returns the addresses collected so far.
func (l *Lookup) Peers() []peers.PeerAddress {
	return l.peers.Slice()
}

// Err returns the error the lookup was resolved with. It is nil while the
// lookup is outstanding.
func (l *Lookup) Err() error {
	select {
	case <-l.done:
		return l.err
	default:
		return nil
	}
}

func (l *Lookup) resolve(err error) {
	l.once.Do(func() {
		l.err = err
		close(l.done)
	})
}
