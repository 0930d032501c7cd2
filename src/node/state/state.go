// Package state defines the states of a murmur node and a manager that tracks
// the current state and the goroutines launched by the node.
package state

import (
	"sync"
	"sync/atomic"
)

// State captures the state of a murmur node: Starting, Running or Shutdown
type State uint32

const (
	// Starting is the state of a node that was created but whose run loop has
	// not started yet. It already answers requests from the transport.
	Starting State = iota

	// Running is the state in which a node serves requests, and periodically
	// pulls the timelines it follows.
	Running

	// Shutdown is the state in which a node stops responding to external events
	// and closes its transport.
	Shutdown
)

// WGLIMIT is the maximum number of goroutines that can be launched through
// Manager.GoFunc
const WGLIMIT = 20

// String returns the string representation of a State
func (s State) String() string {
	switch s {
	case Starting:
		return "Starting"
	case Running:
		return "Running"
	case Shutdown:
		return "Shutdown"
	default:
		return "Unknown"
	}
}

// Manager wraps a State with get and set methods. It is also used to limit the
// number of goroutines launched by the node, and to wait for all of them to
// complete.
type Manager struct {
	state   State
	wg      sync.WaitGroup
	wgCount int32
}

// GetState returns the current state.
func (b *Manager) GetState() State {
	stateAddr := (*uint32)(&b.state)
	return State(atomic.LoadUint32(stateAddr))
}

// SetState sets the state.
func (b *Manager) SetState(s State) {
	stateAddr := (*uint32)(&b.state)
	atomic.StoreUint32(stateAddr, uint32(s))
}

// GoFunc launches a goroutine for a given function, if there are currently
// less than WGLIMIT running. It increments the waitgroup. It returns false,
// without calling f, when the limit is reached.
func (b *Manager) GoFunc(f func()) bool {
	if atomic.AddInt32(&b.wgCount, 1) > WGLIMIT {
		atomic.AddInt32(&b.wgCount, -1)
		return false
	}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer atomic.AddInt32(&b.wgCount, -1)
		f()
	}()

	return true
}

// Routines returns the number of goroutines currently running.
func (b *Manager) Routines() int {
	return int(atomic.LoadInt32(&b.wgCount))
}

// WaitRoutines waits for all the goroutines in the waitgroup.
func (b *Manager) WaitRoutines() {
	b.wg.Wait()
}
