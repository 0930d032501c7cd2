package node

import (
	"context"
	"errors"
	"fmt"

	cm "github.com/mosaicnetworks/murmur/src/common"
	"github.com/mosaicnetworks/murmur/src/signer"
	"github.com/sirupsen/logrus"
)

// FollowResult is the outcome of FollowUser.
type FollowResult uint32

const (
	// FoundPeer means a timeline was fetched and the user is now followed.
	FoundPeer FollowResult = iota
	// NoUserFound means discovery failed or returned no peer.
	NoUserFound
	// NoAvailablePeerFound means every discovered peer failed.
	NoAvailablePeerFound
)

// String ...
func (r FollowResult) String() string {
	switch r {
	case FoundPeer:
		return "FOUND_PEER"
	case NoUserFound:
		return "NO_USER_FOUND"
	case NoAvailablePeerFound:
		return "NO_AVAILABLE_PEER_FOUND"
	default:
		return "UNKNOWN"
	}
}

// ErrFollowSelf is returned when a node is asked to follow its own user.
var ErrFollowSelf = errors.New("cannot follow self")

// FollowUser starts following user. It tries the peers serving user in
// discovery order, imports the first timeline it can fetch, and announces
// itself as a server of user. Following a user that is already followed is a
// no-op that reports FoundPeer.
func (n *Node) FollowUser(ctx context.Context, user string) (FollowResult, error) {
	logger := n.logger.WithField("follow", user)

	if user == n.self {
		return NoUserFound, ErrFollowSelf
	}

	if _, err := n.store.Key(user); err == nil {
		logger.Debug("Already following")
		return FoundPeer, nil
	}

	candidates, err := n.discover(ctx, user)
	if err != nil {
		logger.WithError(err).Debug("Discovery failed")
		return NoUserFound, cm.NewSyncErr(cm.DiscoveryFailure, user, err)
	}
	if len(candidates) == 0 {
		logger.Debug("No peer found")
		return NoUserFound, cm.NewSyncErr(cm.DiscoveryFailure, user, nil)
	}

	var lastErr error
	for _, p := range candidates {
		target := p.String()

		snap, err := n.requestTimeline(ctx, target, user)
		if err != nil {
			logger.WithError(err).WithField("target", target).Debug("Fetching timeline")
			lastErr = err
			continue
		}

		if n.conf.VerifyOnFollow {
			if err := signer.Verify(user, snap, snap.Key); err != nil {
				logger.WithError(err).WithField("target", target).Error("Fetched timeline does not verify")
				lastErr = err
				continue
			}
		} else if snap.Owner != user {
			lastErr = fmt.Errorf("%s served a timeline of %q", target, snap.Owner)
			continue
		}

		if err := n.store.Follow(snap); err != nil {
			logger.WithError(err).Error("Importing timeline")
			return NoAvailablePeerFound, err
		}

		n.announce(ctx, user)

		logger.WithFields(logrus.Fields{
			"target":      target,
			"messages":    len(snap.Content),
			"last_update": snap.LastTimestamp(),
		}).Debug("Following")

		return FoundPeer, nil
	}

	return NoAvailablePeerFound, cm.NewSyncErr(cm.CommunicationFailure, user, lastErr)
}
