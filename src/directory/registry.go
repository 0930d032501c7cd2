package directory

import (
	"sync"

	"github.com/mosaicnetworks/murmur/src/peers"
)

// Registry maps LookupKeys to the addresses that announced them. It backs the
// InmemDirectory and the WAMP directory Server.
type Registry struct {
	sync.RWMutex
	entries map[LookupKey]*peers.AddressList
}

// NewRegistry ...
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[LookupKey]*peers.AddressList),
	}
}

// Announce records addr as a server of key. It reports whether the address
// was new for that key.
func (r *Registry) Announce(key LookupKey, addr peers.PeerAddress) bool {
	r.Lock()
	list, ok := r.entries[key]
	if !ok {
		list = peers.NewAddressList()
		r.entries[key] = list
	}
	r.Unlock()

	return list.Add(addr)
}

// Lookup returns the addresses announced for key, in announcement order.
func (r *Registry) Lookup(key LookupKey) []peers.PeerAddress {
	r.RLock()
	list, ok := r.entries[key]
	r.RUnlock()

	if !ok {
		return []peers.PeerAddress{}
	}

	return list.Slice()
}

// Len returns the number of keys in the registry.
func (r *Registry) Len() int {
	r.RLock()
	defer r.RUnlock()

	return len(r.entries)
}
