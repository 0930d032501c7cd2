package directory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/mosaicnetworks/murmur/src/peers"
	"github.com/sirupsen/logrus"
)

// ErrLookupTimeout is returned when a lookup reaches its deadline without
// finding any peer.
var ErrLookupTimeout = errors.New("directory lookup timed out")

// Correlator matches the found-peer notifications of a Directory, which only
// carry a LookupKey, with the lookups that are waiting for them. There is at
// most one outstanding Lookup per key: a second lookup for the same key waits
// for the first one to be released.
type Correlator struct {
	directory Directory
	timeout   time.Duration

	l       sync.Mutex
	pending map[LookupKey]*Lookup

	logger *logrus.Entry
}

// NewCorrelator creates a Correlator and installs it as the directory's
// found-peer handler. A lookup that is not completed by the directory within
// timeout is released by the Correlator.
func NewCorrelator(directory Directory, timeout time.Duration, logger *logrus.Entry) *Correlator {
	if logger == nil {
		log := logrus.New()
		log.Level = logrus.DebugLevel
		logger = logrus.NewEntry(log)
	}

	c := &Correlator{
		directory: directory,
		timeout:   timeout,
		pending:   make(map[LookupKey]*Lookup),
		logger:    logger.WithField("prefix", "correlator"),
	}

	directory.OnPeerFound(c.PeerFound)

	return c
}

// Discover looks up the peers serving user and waits for the result.
func (c *Correlator) Discover(ctx context.Context, user string) ([]peers.PeerAddress, error) {
	lookup, err := c.Lookup(ctx, user)
	if err != nil {
		return nil, err
	}

	return lookup.Wait(ctx)
}

// Lookup starts a directory lookup for user and returns without waiting for
// its result. It blocks only while another lookup for the same key is
// outstanding.
func (c *Correlator) Lookup(ctx context.Context, user string) (*Lookup, error) {
	lookup, err := c.announceLookup(ctx, user)
	if err != nil {
		return nil, err
	}

	c.logger.WithFields(logrus.Fields{
		"user": user,
		"id":   lookup.ID,
	}).Debug("Lookup")

	go c.watch(ctx, lookup)

	c.directory.Lookup(ctx, user, lookup.ID, func(err error, count int) {
		c.logger.WithFields(logrus.Fields{
			"user":  user,
			"id":    lookup.ID,
			"count": count,
			"found": lookup.peers.Len(),
		}).Debug("Lookup done")

		c.release(lookup, err)
	})

	return lookup, nil
}

// announceLookup reserves the slot of user's key for a new Lookup.
func (c *Correlator) announceLookup(ctx context.Context, user string) (*Lookup, error) {
	key := c.directory.Hash(user)

	for {
		c.l.Lock()
		current, ok := c.pending[key]
		if !ok {
			lookup := newLookup(key, user)
			c.pending[key] = lookup
			c.l.Unlock()
			return lookup, nil
		}
		c.l.Unlock()

		select {
		case <-current.Done():
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// watch releases the lookup when its deadline passes or its context expires,
// whichever comes first, unless the directory completed it before.
func (c *Correlator) watch(ctx context.Context, lookup *Lookup) {
	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	select {
	case <-lookup.Done():
	case <-timer.C:
		if lookup.peers.Len() > 0 {
			c.release(lookup, nil)
		} else {
			c.release(lookup, ErrLookupTimeout)
		}
	case <-ctx.Done():
		c.release(lookup, ctx.Err())
	}
}

// release removes the lookup from the pending table and resolves it.
// Notifications arriving afterwards are dropped.
func (c *Correlator) release(lookup *Lookup, err error) {
	c.l.Lock()
	if c.pending[lookup.Key] == lookup {
		delete(c.pending, lookup.Key)
	}
	c.l.Unlock()

	lookup.resolve(err)
}

// PeerFound is the directory's found-peer handler. The address is added to the
// pending lookup for key if that lookup is the one identified by id. Anything
// else, including late results of a lookup that already timed out, is logged
// and discarded.
func (c *Correlator) PeerFound(addr peers.PeerAddress, key LookupKey, id string) {
	c.l.Lock()
	defer c.l.Unlock()

	lookup, ok := c.pending[key]
	if !ok || lookup.ID != id {
		c.logger.WithFields(logrus.Fields{
			"addr": addr.String(),
			"key":  key,
			"id":   id,
		}).Debug("Dropping peer notification for unknown lookup")
		return
	}

	lookup.peers.Add(addr)
}

// Pending returns the number of outstanding lookups.
func (c *Correlator) Pending() int {
	c.l.Lock()
	defer c.l.Unlock()

	return len(c.pending)
}
