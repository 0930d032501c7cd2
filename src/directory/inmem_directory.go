package directory

import (
	"context"
	"sync"

	"github.com/mosaicnetworks/murmur/src/peers"
)

// InmemDirectory implements the Directory interface on top of a Registry
// shared by all the nodes of a process. Lookups are answered asynchronously,
// like a network directory would.
type InmemDirectory struct {
	registry *Registry
	self     peers.PeerAddress

	handlerLock sync.RWMutex
	handler     PeerFoundHandler
}

// NewInmemDirectory returns a directory announcing self in registry.
func NewInmemDirectory(registry *Registry, self peers.PeerAddress) *InmemDirectory {
	return &InmemDirectory{
		registry: registry,
		self:     self,
	}
}

// Hash implements the Directory interface.
func (d *InmemDirectory) Hash(name string) LookupKey {
	return Hash(name)
}

// Lookup implements the Directory interface.
func (d *InmemDirectory) Lookup(ctx context.Context, name string, id string, done LookupDone) {
	key := d.Hash(name)

	go func() {
		if err := ctx.Err(); err != nil {
			done(err, 0)
			return
		}

		found := d.registry.Lookup(key)

		d.handlerLock.RLock()
		handler := d.handler
		d.handlerLock.RUnlock()

		if handler != nil {
			for _, addr := range found {
				handler(addr, key, id)
			}
		}

		done(nil, len(found))
	}()
}

// Announce implements the Directory interface.
func (d *InmemDirectory) Announce(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.registry.Announce(d.Hash(name), d.self)
	return nil
}

// OnPeerFound implements the Directory interface.
func (d *InmemDirectory) OnPeerFound(handler PeerFoundHandler) {
	d.handlerLock.Lock()
	defer d.handlerLock.Unlock()

	d.handler = handler
}

// Close implements the Directory interface.
func (d *InmemDirectory) Close() error {
	return nil
}
