package node

import (
	"context"
	"errors"
	"fmt"

	cm "github.com/mosaicnetworks/murmur/src/common"
	"github.com/mosaicnetworks/murmur/src/net"
	"github.com/mosaicnetworks/murmur/src/signer"
	"github.com/mosaicnetworks/murmur/src/timeline"
	"github.com/sirupsen/logrus"
)

func (n *Node) requestPush(ctx context.Context, target string, user string, payload []byte) (net.PushResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, n.conf.RequestTimeout)
	defer cancel()

	args := net.PushRequest{
		User:    user,
		Payload: payload,
	}

	var out net.PushResponse

	err := n.trans.PushTimeline(ctx, target, &args, &out)

	return out, err
}

func (n *Node) requestTimeline(ctx context.Context, target string, user string) (*timeline.Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, n.conf.RequestTimeout)
	defer cancel()

	args := net.TimelineRequest{
		User: user,
	}

	var out net.TimelineResponse

	if err := n.trans.GetTimeline(ctx, target, &args, &out); err != nil {
		return nil, err
	}
	if out.Snapshot == nil {
		return nil, fmt.Errorf("empty timeline response from %s", target)
	}

	return out.Snapshot, nil
}

func (n *Node) requestLastUpdate(ctx context.Context, target string, user string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, n.conf.RequestTimeout)
	defer cancel()

	args := net.LastUpdateRequest{
		User: user,
	}

	var out net.LastUpdateResponse

	err := n.trans.GetLastUpdate(ctx, target, &args, &out)

	return out.LastUpdated, err
}

func (n *Node) processRPC(rpc net.RPC) {
	switch cmd := rpc.Command.(type) {
	case *net.PushRequest:
		n.processPushRequest(rpc, cmd)
	case *net.TimelineRequest:
		n.processTimelineRequest(rpc, cmd)
	case *net.LastUpdateRequest:
		n.processLastUpdateRequest(rpc, cmd)
	default:
		n.logger.WithField("cmd", rpc.Command).Error("Unexpected RPC command")
		rpc.Respond(nil, fmt.Errorf("unexpected command"))
	}
}

func (n *Node) processPushRequest(rpc net.RPC, cmd *net.PushRequest) {
	n.logger.WithFields(logrus.Fields{
		"from_user": cmd.User,
		"size":      len(cmd.Payload),
	}).Debug("process PushRequest")

	accepted, reason, err := n.replaceTimeline(cmd.User, cmd.Payload)

	switch {
	case err == nil:
	case errors.Is(err, signer.ErrMalformed):
		err = fmt.Errorf("%w: %v", net.ErrBadRequest, err)
	case cm.IsSync(err, cm.AuthenticityFailure):
		err = fmt.Errorf("%w: %v", net.ErrRejected, err)
	}

	if err != nil {
		rpc.Respond(nil, err)
		return
	}

	rpc.Respond(&net.PushResponse{Accepted: accepted, Reason: reason}, nil)
}

func (n *Node) processTimelineRequest(rpc net.RPC, cmd *net.TimelineRequest) {
	n.logger.WithField("user", cmd.User).Debug("process TimelineRequest")

	snap, err := n.snapshot(cmd.User)
	if err != nil {
		rpc.Respond(nil, err)
		return
	}

	rpc.Respond(&net.TimelineResponse{Snapshot: snap}, nil)
}

func (n *Node) processLastUpdateRequest(rpc net.RPC, cmd *net.LastUpdateRequest) {
	n.logger.WithField("user", cmd.User).Debug("process LastUpdateRequest")

	if cmd.User != n.self {
		if _, err := n.store.Key(cmd.User); err != nil {
			rpc.Respond(nil, fmt.Errorf("%w: %s", net.ErrNotFound, cmd.User))
			return
		}
	}

	rpc.Respond(&net.LastUpdateResponse{LastUpdated: n.store.LastUpdated(cmd.User)}, nil)
}

// snapshot returns the signed snapshot of user's timeline served by this node:
// a freshly signed one for self, the stored one, signed by its owner, for the
// users it follows.
func (n *Node) snapshot(user string) (*timeline.Snapshot, error) {
	if user == n.self {
		local, err := n.store.Timeline(n.self)
		if err != nil {
			return nil, err
		}
		return n.signer.Sign(n.self, local)
	}

	snap, err := n.store.Snapshot(user)
	if err != nil {
		if cm.IsStore(err, cm.KeyNotFound) {
			return nil, fmt.Errorf("%w: %s", net.ErrNotFound, user)
		}
		return nil, err
	}

	return snap, nil
}
