package node

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"

	cm "github.com/mosaicnetworks/murmur/src/common"
	"github.com/mosaicnetworks/murmur/src/signer"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// SyncReport is the outcome of SyncTimeline. Every followed user appears in
// exactly one of Updated, Unchanged and Failed.
type SyncReport struct {
	Updated   []string         `json:"updated"`
	Unchanged []string         `json:"unchanged"`
	Failed    map[string]error `json:"-"`
	Push      PushReport       `json:"push"`
}

// UpdateTimeline pulls user's timeline from the peer holding the newest copy,
// if any peer has a copy newer than the local one. It asks every peer for its
// last update first and fetches the whole timeline from one peer only. On a
// tie the peer discovered first wins. It returns whether the local copy was
// replaced.
func (n *Node) UpdateTimeline(ctx context.Context, user string) (bool, error) {
	atomic.AddInt64(&n.stats.pulls, 1)

	updated, err := n.updateTimeline(ctx, user)
	if err != nil {
		atomic.AddInt64(&n.stats.pullFailures, 1)
	}

	return updated, err
}

func (n *Node) updateTimeline(ctx context.Context, user string) (bool, error) {
	logger := n.logger.WithField("pull", user)

	candidates, err := n.discover(ctx, user)
	if err != nil {
		return false, cm.NewSyncErr(cm.DiscoveryFailure, user, err)
	}
	if len(candidates) == 0 {
		return false, cm.NewSyncErr(cm.DiscoveryFailure, user, nil)
	}

	// Ask every candidate concurrently. The first failure cancels the others
	// and aborts the update.
	lastUpdates := make([]int64, len(candidates))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(n.concurrency())

	for i, p := range candidates {
		target := p.String()
		g.Go(func() error {
			lu, err := n.requestLastUpdate(gctx, target, user)
			if err != nil {
				logger.WithError(err).WithField("target", target).Debug("Requesting last update")
				return err
			}
			lastUpdates[i] = lu
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return false, cm.NewSyncErr(cm.CommunicationFailure, user, err)
	}

	best := selectBest(n.store.LastUpdated(user), lastUpdates)
	if best < 0 {
		logger.Debug("Up to date")
		return false, nil
	}

	target := candidates[best].String()

	snap, err := n.requestTimeline(ctx, target, user)
	if err != nil {
		return false, cm.NewSyncErr(cm.CommunicationFailure, user, err)
	}

	key, err := n.store.Key(user)
	if err != nil {
		return false, cm.NewSyncErr(cm.AuthenticityFailure, user, err)
	}

	if err := signer.Verify(user, snap, key); err != nil {
		return false, err
	}

	replaced, err := n.store.ReplaceIfNewer(snap)
	if err != nil {
		return false, err
	}
	if !replaced {
		// a push got there first
		logger.Debug("Fetched timeline is not newer")
		return false, nil
	}

	n.announce(ctx, user)

	logger.WithFields(logrus.Fields{
		"target":      target,
		"last_update": snap.LastTimestamp(),
	}).Debug("Updated timeline")

	return true, nil
}

// selectBest returns the index of the first highest value of lastUpdates that
// is strictly greater than local, -1 if there is none.
func selectBest(local int64, lastUpdates []int64) int {
	best := -1
	max := local

	for i, lu := range lastUpdates {
		if lu > max {
			best = i
			max = lu
		}
	}

	return best
}

// SyncTimeline updates every followed timeline, concurrently and
// independently, then propagates the local timeline once.
func (n *Node) SyncTimeline(ctx context.Context) SyncReport {
	report := SyncReport{
		Updated:   []string{},
		Unchanged: []string{},
		Failed:    make(map[string]error),
	}

	var l sync.Mutex
	var g errgroup.Group
	g.SetLimit(n.concurrency())

	for _, user := range n.store.Followed() {
		g.Go(func() error {
			updated, err := n.UpdateTimeline(ctx, user)

			l.Lock()
			defer l.Unlock()

			switch {
			case err != nil:
				n.logger.WithError(err).WithField("pull", user).Warn("Updating timeline")
				report.Failed[user] = err
			case updated:
				report.Updated = append(report.Updated, user)
			default:
				report.Unchanged = append(report.Unchanged, user)
			}

			return nil
		})
	}

	g.Wait()

	sort.Strings(report.Updated)
	sort.Strings(report.Unchanged)

	report.Push = n.PropagateTimeline(ctx, n.self)

	return report
}
