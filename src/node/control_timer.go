package node

import (
	"math/rand"
	"time"
)

type timerFactory func(time.Duration) <-chan time.Time

// ControlTimer ticks the periodic anti-entropy. A zero duration disables it.
type ControlTimer struct {
	timerFactory timerFactory
	tickCh       chan struct{}      //sends a signal to listening process
	resetCh      chan time.Duration //receives instruction to reset the timer
	stopCh       chan struct{}      //receives instruction to stop the timer
	shutdownCh   chan struct{}      //receives instruction to exit Run loop
}

// NewControlTimer ...
func NewControlTimer(timerFactory timerFactory) *ControlTimer {
	return &ControlTimer{
		timerFactory: timerFactory,
		tickCh:       make(chan struct{}),
		resetCh:      make(chan time.Duration),
		stopCh:       make(chan struct{}),
		shutdownCh:   make(chan struct{}),
	}
}

// NewJitterControlTimer returns a ControlTimer whose timeouts are extended by
// up to a tenth, so that nodes started together do not pull in lockstep.
func NewJitterControlTimer() *ControlTimer {
	jitterTimeout := func(min time.Duration) <-chan time.Time {
		if min <= 0 {
			return nil
		}
		extra := time.Duration(0)
		if tenth := int64(min / 10); tenth > 0 {
			extra = time.Duration(rand.Int63n(tenth))
		}
		return time.After(min + extra)
	}
	return NewControlTimer(jitterTimeout)
}

// Run ticks after init, and after every duration received on resetCh.
func (c *ControlTimer) Run(init time.Duration) {
	timer := c.timerFactory(init)
	for {
		select {
		case <-timer:
			timer = nil
			select {
			case c.tickCh <- struct{}{}:
			case <-c.shutdownCh:
				return
			}
		case t := <-c.resetCh:
			timer = c.timerFactory(t)
		case <-c.stopCh:
			timer = nil
		case <-c.shutdownCh:
			return
		}
	}
}

// Reset arms the timer to tick after t.
func (c *ControlTimer) Reset(t time.Duration) {
	select {
	case c.resetCh <- t:
	case <-c.shutdownCh:
	}
}

// Stop disarms the timer.
func (c *ControlTimer) Stop() {
	select {
	case c.stopCh <- struct{}{}:
	case <-c.shutdownCh:
	}
}

// Shutdown exits the Run loop.
func (c *ControlTimer) Shutdown() {
	close(c.shutdownCh)
}
