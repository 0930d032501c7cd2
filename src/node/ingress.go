package node

import (
	"sync/atomic"

	"github.com/mosaicnetworks/murmur/src/signer"
	"github.com/sirupsen/logrus"
)

const (
	reasonSelf  = "own timeline"
	reasonStale = "stale"
)

// ReplaceTimeline handles a timeline pushed by another node. The payload must
// verify against the key pinned for user. The followed copy is replaced only
// if the pushed timeline is strictly newer, and a node never replaces its own
// timeline. It returns whether the copy was replaced; stale and self updates
// are not errors.
func (n *Node) ReplaceTimeline(user string, payload []byte) (bool, error) {
	accepted, _, err := n.replaceTimeline(user, payload)
	return accepted, err
}

// replaceTimeline also returns the reason of a refusal.
func (n *Node) replaceTimeline(user string, payload []byte) (bool, string, error) {
	logger := n.logger.WithField("ingress", user)

	if user == n.self {
		atomic.AddInt64(&n.stats.ingressRejected, 1)
		logger.Debug("Refusing update of own timeline")
		return false, reasonSelf, nil
	}

	snap, err := signer.VerifyAndExtract(user, n.store, payload)
	if err != nil {
		atomic.AddInt64(&n.stats.ingressRejected, 1)
		logger.WithError(err).Warn("Refusing timeline")
		return false, "", err
	}

	current := n.store.LastUpdated(user)
	if snap.LastTimestamp() <= current {
		atomic.AddInt64(&n.stats.ingressRejected, 1)
		logger.WithFields(logrus.Fields{
			"pushed":  snap.LastTimestamp(),
			"current": current,
		}).Debug("Refusing stale timeline")
		return false, reasonStale, nil
	}

	replaced, err := n.store.ReplaceIfNewer(snap)
	if err != nil {
		atomic.AddInt64(&n.stats.ingressRejected, 1)
		logger.WithError(err).Error("Replacing timeline")
		return false, "", err
	}
	if !replaced {
		// lost a race against a newer update
		atomic.AddInt64(&n.stats.ingressRejected, 1)
		return false, reasonStale, nil
	}

	atomic.AddInt64(&n.stats.ingressAccepted, 1)
	logger.WithField("last_update", snap.LastTimestamp()).Debug("Accepted timeline")

	return true, "", nil
}
