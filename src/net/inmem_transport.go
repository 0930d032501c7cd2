package net

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// NewInmemAddr returns a new in-memory address, shaped like a host:port so
// that it can travel through the directory like any other address.
func NewInmemAddr() string {
	return fmt.Sprintf("inmem-%s:1337", uuid.New().String()[:8])
}

// InmemTransport Implements the Transport interface, to allow murmur to be
// tested in-memory without going over a network.
type InmemTransport struct {
	sync.RWMutex
	consumerCh chan RPC
	localAddr  string
	peers      map[string]*InmemTransport
	timeout    time.Duration
}

// NewInmemTransport is used to initialize a new transport
// and generates a random local address if none is specified
func NewInmemTransport(addr string) (string, *InmemTransport) {
	if addr == "" {
		addr = NewInmemAddr()
	}
	trans := &InmemTransport{
		consumerCh: make(chan RPC, 16),
		localAddr:  addr,
		peers:      make(map[string]*InmemTransport),
		timeout:    time.Second,
	}
	return addr, trans
}

// Consumer implements the Transport interface.
func (i *InmemTransport) Consumer() <-chan RPC {
	return i.consumerCh
}

// LocalAddr implements the Transport interface.
func (i *InmemTransport) LocalAddr() string {
	return i.localAddr
}

// AdvertiseAddr implements the Transport interface.
func (i *InmemTransport) AdvertiseAddr() string {
	return i.localAddr
}

// PushTimeline implements the Transport interface.
func (i *InmemTransport) PushTimeline(ctx context.Context, target string, args *PushRequest, resp *PushResponse) error {
	payload := make([]byte, len(args.Payload))
	copy(payload, args.Payload)

	rpcResp, err := i.makeRPC(ctx, target, &PushRequest{User: args.User, Payload: payload})
	if err != nil {
		return err
	}

	// Copy the result back
	out := rpcResp.Response.(*PushResponse)
	*resp = *out

	if !resp.Accepted {
		return fmt.Errorf("%w: %s", ErrRejected, resp.Reason)
	}
	return nil
}

// GetTimeline implements the Transport interface.
func (i *InmemTransport) GetTimeline(ctx context.Context, target string, args *TimelineRequest, resp *TimelineResponse) error {
	rpcResp, err := i.makeRPC(ctx, target, args)
	if err != nil {
		return err
	}

	// Copy the result back
	out := rpcResp.Response.(*TimelineResponse)
	if out.Snapshot == nil {
		return fmt.Errorf("empty response from %s", target)
	}
	resp.Snapshot = out.Snapshot.Copy()
	return nil
}

// GetLastUpdate implements the Transport interface.
func (i *InmemTransport) GetLastUpdate(ctx context.Context, target string, args *LastUpdateRequest, resp *LastUpdateResponse) error {
	rpcResp, err := i.makeRPC(ctx, target, args)
	if err != nil {
		return err
	}

	// Copy the result back
	out := rpcResp.Response.(*LastUpdateResponse)
	*resp = *out
	return nil
}

func (i *InmemTransport) makeRPC(ctx context.Context, target string, args interface{}) (rpcResp RPCResponse, err error) {
	i.RLock()
	peer, ok := i.peers[target]
	i.RUnlock()

	if !ok {
		err = fmt.Errorf("failed to connect to peer: %v", target)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()

	// Send the RPC over
	respCh := make(chan RPCResponse, 1)
	select {
	case peer.consumerCh <- RPC{Command: args, RespChan: respCh}:
	case <-ctx.Done():
		err = fmt.Errorf("command timed out: %w", ctx.Err())
		return
	}

	// Wait for a response
	select {
	case rpcResp = <-respCh:
		if rpcResp.Error != nil {
			err = rpcResp.Error
		}
	case <-ctx.Done():
		err = fmt.Errorf("command timed out: %w", ctx.Err())
	}
	return
}

// Connect is used to connect this transport to another transport for
// a given peer name. This allows for local routing.
func (i *InmemTransport) Connect(peer string, t Transport) {
	trans := t.(*InmemTransport)
	i.Lock()
	defer i.Unlock()
	i.peers[peer] = trans
}

// Disconnect is used to remove the ability to route to a given peer.
func (i *InmemTransport) Disconnect(peer string) {
	i.Lock()
	defer i.Unlock()
	delete(i.peers, peer)
}

// DisconnectAll is used to remove all routes to peers.
func (i *InmemTransport) DisconnectAll() {
	i.Lock()
	defer i.Unlock()
	i.peers = make(map[string]*InmemTransport)
}

// Close is used to permanently disable the transport
func (i *InmemTransport) Close() error {
	i.DisconnectAll()
	return nil
}

// Listen is an empty function as there is no need to defer
// initialisation of the InMem service
func (i *InmemTransport) Listen() {
}
