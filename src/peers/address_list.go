package peers

import "sync"

// AddressList is a concurrency-safe list of addresses that keeps insertion
// order and drops duplicates.
type AddressList struct {
	sync.RWMutex
	sorted []PeerAddress
	byAddr map[string]struct{}
}

// NewAddressList ...
func NewAddressList() *AddressList {
	return &AddressList{
		byAddr: make(map[string]struct{}),
	}
}

// Add appends addr unless it is already present, and reports whether it was
// added.
func (l *AddressList) Add(addr PeerAddress) bool {
	l.Lock()
	defer l.Unlock()

	key := addr.String()
	if _, ok := l.byAddr[key]; ok {
		return false
	}

	l.byAddr[key] = struct{}{}
	l.sorted = append(l.sorted, addr)

	return true
}

// Len ...
func (l *AddressList) Len() int {
	l.RLock()
	defer l.RUnlock()

	return len(l.sorted)
}

// Slice returns a copy of the addresses in insertion order.
func (l *AddressList) Slice() []PeerAddress {
	l.RLock()
	defer l.RUnlock()

	res := make([]PeerAddress, len(l.sorted))
	copy(res, l.sorted)

	return res
}
