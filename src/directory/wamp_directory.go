package directory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gammazero/nexus/v3/client"
	"github.com/gammazero/nexus/v3/wamp"
	"github.com/mosaicnetworks/murmur/src/peers"
	"github.com/sirupsen/logrus"
)

// WAMPDirectory implements the Directory interface as a client of a directory
// Server.
type WAMPDirectory struct {
	self            peers.PeerAddress
	client          *client.Client
	responseTimeout time.Duration
	logger          *logrus.Entry

	handlerLock sync.RWMutex
	handler     PeerFoundHandler
}

// NewWAMPDirectory opens a WebSocket connection to the directory server and
// joins realm. self is the address announced for this node.
func NewWAMPDirectory(
	server string,
	realm string,
	self peers.PeerAddress,
	responseTimeout time.Duration,
	logger *logrus.Entry,
) (*WAMPDirectory, error) {

	cfg := client.Config{
		Realm:           realm,
		ResponseTimeout: responseTimeout,
		Logger:          logger,
	}

	return connectWAMPDirectory(fmt.Sprintf("ws://%s", server), cfg, self, responseTimeout, logger)
}

// NewSecureWAMPDirectory is NewWAMPDirectory over secure WebSockets. The server
// certificate is checked against caFile if it exists, and against the
// platform's trusted certificates otherwise. insecureSkipVerify accepts any
// certificate and should only be used for testing.
func NewSecureWAMPDirectory(
	server string,
	realm string,
	self peers.PeerAddress,
	caFile string,
	insecureSkipVerify bool,
	responseTimeout time.Duration,
	logger *logrus.Entry,
) (*WAMPDirectory, error) {

	tlscfg, err := clientTLSConfig(caFile, insecureSkipVerify, logger)
	if err != nil {
		return nil, err
	}

	cfg := client.Config{
		Realm:           realm,
		ResponseTimeout: responseTimeout,
		Logger:          logger,
		TlsCfg:          tlscfg,
	}

	return connectWAMPDirectory(fmt.Sprintf("wss://%s", server), cfg, self, responseTimeout, logger)
}

func connectWAMPDirectory(routerURL string,
	cfg client.Config,
	self peers.PeerAddress,
	responseTimeout time.Duration,
	logger *logrus.Entry) (*WAMPDirectory, error) {

	cli, err := client.ConnectNet(context.Background(), routerURL, cfg)
	if err != nil {
		return nil, err
	}

	return newWAMPDirectory(cli, self, responseTimeout, logger), nil
}

func newWAMPDirectory(cli *client.Client,
	self peers.PeerAddress,
	responseTimeout time.Duration,
	logger *logrus.Entry) *WAMPDirectory {

	return &WAMPDirectory{
		self:            self,
		client:          cli,
		responseTimeout: responseTimeout,
		logger:          logger,
	}
}

// Hash implements the Directory interface.
func (d *WAMPDirectory) Hash(name string) LookupKey {
	return Hash(name)
}

// Lookup implements the Directory interface. The remote call runs in its own
// goroutine.
func (d *WAMPDirectory) Lookup(ctx context.Context, name string, id string, done LookupDone) {
	key := d.Hash(name)

	go func() {
		ctx, cancel := context.WithTimeout(ctx, d.responseTimeout)
		defer cancel()

		result, err := d.client.Call(ctx, LookupProcedure, nil, wamp.List{string(key)}, nil, nil)
		if err != nil {
			d.logger.WithError(err).WithField("user", name).Debug("Lookup call")
			done(err, 0)
			return
		}

		d.handlerLock.RLock()
		handler := d.handler
		d.handlerLock.RUnlock()

		count := 0
		for _, arg := range result.Arguments {
			raw, ok := wamp.AsString(arg)
			if !ok {
				continue
			}

			addr, err := peers.ParseAddress(raw)
			if err != nil {
				d.logger.WithError(err).WithField("addr", raw).Debug("Skipping invalid address")
				continue
			}

			count++
			if handler != nil {
				handler(addr, key, id)
			}
		}

		done(nil, count)
	}()
}

// Announce implements the Directory interface.
func (d *WAMPDirectory) Announce(ctx context.Context, name string) error {
	ctx, cancel := context.WithTimeout(ctx, d.responseTimeout)
	defer cancel()

	args := wamp.List{
		string(d.Hash(name)),
		d.self.String(),
	}

	if _, err := d.client.Call(ctx, AnnounceProcedure, nil, args, nil, nil); err != nil {
		return err
	}

	return nil
}

// OnPeerFound implements the Directory interface.
func (d *WAMPDirectory) OnPeerFound(handler PeerFoundHandler) {
	d.handlerLock.Lock()
	defer d.handlerLock.Unlock()

	d.handler = handler
}

// Close closes the connection to the WAMP server
func (d *WAMPDirectory) Close() error {
	return d.client.Close()
}
