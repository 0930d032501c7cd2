package node

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mosaicnetworks/murmur/src/directory"
	"github.com/mosaicnetworks/murmur/src/net"
	"github.com/mosaicnetworks/murmur/src/node/state"
	"github.com/mosaicnetworks/murmur/src/peers"
	"github.com/mosaicnetworks/murmur/src/signer"
	"github.com/mosaicnetworks/murmur/src/timeline"
	"github.com/sirupsen/logrus"
)

// Node owns the timeline of one user. It serves that timeline and the
// timelines it follows to other nodes, pushes its own timeline to its
// followers, and pulls the timelines it follows from whoever has the newest
// copy.
type Node struct {
	// The node is implemented as a state-machine. The embedded state Manager
	// object is used to manage the node's state.
	state.Manager

	conf   *Config
	logger *logrus.Entry

	self   string
	signer *signer.Signer
	store  timeline.Store

	directory  directory.Directory
	correlator *directory.Correlator

	trans net.Transport
	netCh <-chan net.RPC

	shutdownCh   chan struct{}
	shutdownOnce sync.Once

	// loops tracks doBackgroundWork so that Shutdown does not wait on the
	// routines while it can still launch new ones.
	loops sync.WaitGroup

	controlTimer *ControlTimer

	start time.Time
	stats nodeStats
}

// nodeStats counts the operations of a node. It is updated atomically.
type nodeStats struct {
	propagations    int64
	pushes          int64
	pushFailures    int64
	pulls           int64
	pullFailures    int64
	ingressAccepted int64
	ingressRejected int64
	rpcs            int64
}

// NewNode is a factory method that returns a Node instance. The node answers
// the directory's found-peer notifications through its own Correlator.
func NewNode(conf *Config,
	self string,
	sig *signer.Signer,
	store timeline.Store,
	trans net.Transport,
	dir directory.Directory,
) *Node {

	logger := conf.Logger.WithFields(logrus.Fields{
		"prefix": "node",
		"user":   self,
	})

	node := Node{
		conf:         conf,
		logger:       logger,
		self:         self,
		signer:       sig,
		store:        store,
		directory:    dir,
		correlator:   directory.NewCorrelator(dir, conf.LookupTimeout, logger),
		trans:        trans,
		netCh:        trans.Consumer(),
		shutdownCh:   make(chan struct{}),
		controlTimer: NewJitterControlTimer(),
	}

	return &node
}

// Init announces the node as a server of its own timeline and of every
// timeline it follows, and starts answering requests from the transport.
func (n *Node) Init(ctx context.Context) error {
	n.start = time.Now()

	n.loops.Add(1)
	go n.doBackgroundWork()

	if err := n.directory.Announce(ctx, n.self); err != nil {
		n.logger.WithError(err).Error("Announcing self")
		return err
	}

	for _, user := range n.store.Followed() {
		n.announce(ctx, user)
	}

	n.logger.WithField("addr", n.trans.AdvertiseAddr()).Debug("Init")

	return nil
}

// RunAsync calls Run as a separate thread
func (n *Node) RunAsync() {
	n.logger.Debug("runasync")
	go n.Run()
}

// Run invokes the main loop of the node. It pulls the followed timelines every
// SyncInterval until the node is shut down.
func (n *Node) Run() {
	if n.GetState() == state.Shutdown {
		return
	}
	n.SetState(state.Running)

	go n.controlTimer.Run(n.conf.SyncInterval)

	for {
		select {
		case <-n.controlTimer.tickCh:
			if n.GetState() == state.Shutdown {
				return
			}
			n.logger.Debug("Time to sync!")
			ok := n.GoFunc(func() {
				ctx, cancel := n.backgroundContext()
				defer cancel()

				n.SyncTimeline(ctx)
				n.logStats()
				n.controlTimer.Reset(n.conf.SyncInterval)
			})
			if !ok {
				n.controlTimer.Reset(n.conf.SyncInterval)
			}
		case <-n.shutdownCh:
			return
		}
	}
}

// doBackgroundWork answers the RPCs of the transport.
func (n *Node) doBackgroundWork() {
	defer n.loops.Done()

	for {
		select {
		case rpc := <-n.netCh:
			atomic.AddInt64(&n.stats.rpcs, 1)
			n.dispatchRPC(rpc)
		case <-n.shutdownCh:
			return
		}
	}
}

// dispatchRPC hands rpc to a worker routine. select does not favour
// shutdownCh, so an RPC received during Shutdown is refused here.
func (n *Node) dispatchRPC(rpc net.RPC) {
	if n.GetState() == state.Shutdown {
		rpc.Respond(nil, net.ErrTransportShutdown)
		return
	}

	if !n.GoFunc(func() { n.processRPC(rpc) }) {
		// all workers are busy, push back on the transport
		n.processRPC(rpc)
	}
}

// backgroundContext returns a context that is also cancelled when the node
// shuts down.
func (n *Node) backgroundContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		select {
		case <-n.shutdownCh:
		case <-ctx.Done():
		}
		cancel()
	}()
	return ctx, cancel
}

// announce registers the node as a server of user. Failures are logged.
func (n *Node) announce(ctx context.Context, user string) {
	if err := n.directory.Announce(ctx, user); err != nil {
		n.logger.WithError(err).WithField("followed", user).Error("Announcing")
	}
}

// discover returns the peers serving user, without this node.
func (n *Node) discover(ctx context.Context, user string) ([]peers.PeerAddress, error) {
	found, err := n.correlator.Discover(ctx, user)
	if err != nil {
		return nil, err
	}

	_, others := peers.ExcludePeer(found, n.trans.AdvertiseAddr())

	return others, nil
}

// Self returns the name of the user owning this node.
func (n *Node) Self() string {
	return n.self
}

// Store returns the timeline store of the node.
func (n *Node) Store() timeline.Store {
	return n.store
}

// Shutdown stops the node's loops, waits for the operations in progress, and
// closes the transport, the directory and the store.
func (n *Node) Shutdown() {
	n.shutdownOnce.Do(func() {
		n.logger.Debug("Shutdown")

		//Exit any non-shutdown state immediately
		n.SetState(state.Shutdown)

		//Stop and wait for concurrent operations
		close(n.shutdownCh)

		n.loops.Wait()
		n.WaitRoutines()

		n.controlTimer.Shutdown()

		//transport and store should only be closed once all concurrent
		//operations are finished
		if err := n.trans.Close(); err != nil {
			n.logger.WithError(err).Error("Closing transport")
		}

		if err := n.directory.Close(); err != nil {
			n.logger.WithError(err).Error("Closing directory")
		}

		if err := n.store.Close(); err != nil {
			n.logger.WithError(err).Error("Closing store")
		}
	})
}

// GetStats returns stats
func (n *Node) GetStats() map[string]string {
	load := func(v *int64) string {
		return strconv.FormatInt(atomic.LoadInt64(v), 10)
	}

	local, err := n.store.Timeline(n.self)
	if err != nil {
		n.logger.WithError(err).Error("Reading local timeline for stats")
	}

	s := map[string]string{
		"user":             n.self,
		"addr":             n.trans.AdvertiseAddr(),
		"state":            n.GetState().String(),
		"uptime":           time.Since(n.start).Truncate(time.Second).String(),
		"local_messages":   strconv.Itoa(len(local)),
		"last_update":      strconv.FormatInt(n.store.LastUpdated(n.self), 10),
		"followed":         strconv.Itoa(len(n.store.Followed())),
		"pending_lookups":  strconv.Itoa(n.correlator.Pending()),
		"propagations":     load(&n.stats.propagations),
		"pushes":           load(&n.stats.pushes),
		"push_failures":    load(&n.stats.pushFailures),
		"pulls":            load(&n.stats.pulls),
		"pull_failures":    load(&n.stats.pullFailures),
		"ingress_accepted": load(&n.stats.ingressAccepted),
		"ingress_rejected": load(&n.stats.ingressRejected),
		"rpcs":             load(&n.stats.rpcs),
	}
	return s
}

func (n *Node) logStats() {
	stats := n.GetStats()

	fields := logrus.Fields{}
	for k, v := range stats {
		fields[k] = v
	}

	n.logger.WithFields(fields).Debug("Stats")
}
