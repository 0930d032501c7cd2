package node

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/mosaicnetworks/murmur/src/net"
	"github.com/mosaicnetworks/murmur/src/timeline"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// PushReport is the outcome of a propagation. Peers is the number of
// discovered peers, other than this node, that were pushed to. Rejected counts
// the peers that declined the snapshot, which is expected when they already
// have it. Failed maps the address of every other failing peer to its error.
type PushReport struct {
	User     string           `json:"user"`
	Peers    int              `json:"peers"`
	Pushed   int              `json:"pushed"`
	Rejected int              `json:"rejected"`
	Failed   map[string]error `json:"-"`
	Err      error            `json:"-"`
}

// PostNewMessage appends msg to the local timeline, then propagates the local
// timeline whether or not the append succeeded. It returns the message as
// stored.
func (n *Node) PostNewMessage(ctx context.Context, msg timeline.Message) (timeline.Message, PushReport, error) {
	stored, err := n.store.Append(msg)
	if err != nil {
		n.logger.WithError(err).Error("Appending message")
	} else {
		n.logger.WithField("timestamp", stored.Timestamp).Debug("Appended message")
	}

	report := n.PropagateTimeline(ctx, n.self)

	return stored, report, err
}

// PropagateTimeline pushes the snapshot of user's timeline to every peer the
// directory knows for user. Pushes run concurrently, at most PushConcurrency at
// a time. A failing peer never stops the others; failures are reported, not
// returned.
func (n *Node) PropagateTimeline(ctx context.Context, user string) PushReport {
	atomic.AddInt64(&n.stats.propagations, 1)

	report := PushReport{
		User:   user,
		Failed: make(map[string]error),
	}

	logger := n.logger.WithField("propagate", user)

	snap, err := n.snapshot(user)
	if err != nil {
		logger.WithError(err).Error("Getting snapshot")
		report.Err = err
		return report
	}

	payload, err := snap.Marshal()
	if err != nil {
		logger.WithError(err).Error("Encoding snapshot")
		report.Err = err
		return report
	}

	targets, err := n.discover(ctx, user)
	if err != nil {
		logger.WithError(err).Debug("No peers to push to")
		report.Err = err
		return report
	}

	report.Peers = len(targets)

	var l sync.Mutex
	var g errgroup.Group
	g.SetLimit(n.concurrency())

	for _, p := range targets {
		target := p.String()
		g.Go(func() error {
			atomic.AddInt64(&n.stats.pushes, 1)

			_, err := n.requestPush(ctx, target, user, payload)

			l.Lock()
			defer l.Unlock()

			switch {
			case err == nil:
				report.Pushed++
			case errors.Is(err, net.ErrRejected):
				report.Rejected++
			default:
				atomic.AddInt64(&n.stats.pushFailures, 1)
				report.Failed[target] = err
				logger.WithError(err).WithField("target", target).Error("Pushing timeline")
			}

			return nil
		})
	}

	g.Wait()

	logger.WithFields(logrus.Fields{
		"peers":    report.Peers,
		"pushed":   report.Pushed,
		"rejected": report.Rejected,
		"failed":   len(report.Failed),
	}).Debug("Propagated")

	return report
}

// concurrency returns the errgroup limit for fan-outs. A non-positive
// PushConcurrency means no limit.
func (n *Node) concurrency() int {
	if n.conf.PushConcurrency <= 0 {
		return -1
	}
	return n.conf.PushConcurrency
}
