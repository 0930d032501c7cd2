package net

import "context"

// Transport provides an interface for network transports
// to allow a node to communicate with other nodes.
type Transport interface {

	// Starts the transport listening
	Listen()

	// Consumer returns a channel that can be used to
	// consume and respond to RPC requests.
	Consumer() <-chan RPC

	// LocalAddr is used to return our local address
	LocalAddr() string

	// AdvertiseAddr is used to return our advertise address where other peers
	// can reach us
	AdvertiseAddr() string

	// PushTimeline, GetTimeline and GetLastUpdate send the appropriate RPC to
	// the target node. A push declined by the target returns an error
	// wrapping ErrRejected.

	PushTimeline(ctx context.Context, target string, args *PushRequest, resp *PushResponse) error

	GetTimeline(ctx context.Context, target string, args *TimelineRequest, resp *TimelineResponse) error

	GetLastUpdate(ctx context.Context, target string, args *LastUpdateRequest, resp *LastUpdateResponse) error

	// Close permanently closes a transport, stopping
	// any associated goroutines and freeing other resources.
	Close() error
}
