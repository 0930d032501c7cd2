package directory

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"

	"github.com/gammazero/nexus/v3/client"
	"github.com/gammazero/nexus/v3/router"
	"github.com/gammazero/nexus/v3/wamp"
	"github.com/mosaicnetworks/murmur/src/peers"
	"github.com/sirupsen/logrus"
)

// Server is the directory server. It runs a WAMP router over WebSockets and
// registers the announce and lookup procedures on it, backed by a Registry.
type Server struct {
	address    string
	realm      string
	router     router.Router
	callee     *client.Client
	registry   *Registry
	httpServer *http.Server
	tls        bool
	logger     *logrus.Entry
}

// NewServer instantiates a new Server which can be run at a specified address.
// TLS is used when both certFile and keyFile are given.
func NewServer(address string,
	realm string,
	certFile string,
	keyFile string,
	logger *logrus.Entry) (*Server, error) {

	routerConfig := &router.Config{
		RealmConfigs: []*router.RealmConfig{
			{
				URI:           wamp.URI(realm),
				AnonymousAuth: true,
			},
		},
	}

	nxr, err := router.NewRouter(routerConfig, logger)
	if err != nil {
		return nil, err
	}

	httpServer := &http.Server{
		Handler: router.NewWebsocketServer(nxr),
		Addr:    address,
	}

	useTLS := certFile != "" && keyFile != ""
	if useTLS {
		cert, err := tls.LoadX509KeyPair(certFile, keyFile)
		if err != nil {
			nxr.Close()
			return nil, fmt.Errorf("error loading X509 key pair: %s", err)
		}
		httpServer.TLSConfig = &tls.Config{Certificates: []tls.Certificate{cert}}
	}

	res := &Server{
		address:    address,
		realm:      realm,
		router:     nxr,
		registry:   NewRegistry(),
		httpServer: httpServer,
		tls:        useTLS,
		logger:     logger,
	}

	if err := res.register(); err != nil {
		nxr.Close()
		return nil, err
	}

	return res, nil
}

// register joins the realm with an in-process client and registers the
// directory procedures.
func (s *Server) register() error {
	callee, err := client.ConnectLocal(s.router, client.Config{
		Realm:  s.realm,
		Logger: s.logger,
	})
	if err != nil {
		return err
	}

	if err := callee.Register(AnnounceProcedure, s.announceHandler, nil); err != nil {
		callee.Close()
		return err
	}

	if err := callee.Register(LookupProcedure, s.lookupHandler, nil); err != nil {
		callee.Close()
		return err
	}

	s.callee = callee

	s.logger.Debug("Registered directory procedures with router")

	return nil
}

// Run starts the WAMP websocket server
func (s *Server) Run() error {
	var err error
	if s.tls {
		// certificates are already in the TLSConfig
		err = s.httpServer.ListenAndServeTLS("", "")
	} else {
		err = s.httpServer.ListenAndServe()
	}
	if err != nil && err != http.ErrServerClosed {
		s.logger.WithError(err).Error("Run")
		return err
	}
	return nil
}

// Shutdown stops the websocket server, and the wamp router
func (s *Server) Shutdown() {
	defer s.router.Close()

	if s.callee != nil {
		s.callee.Close()
	}

	if err := s.httpServer.Shutdown(context.Background()); err != nil {
		s.logger.WithError(err).Error("Shutting down http server")
	}
}

// Addr returns the address of the server
func (s *Server) Addr() string {
	return s.address
}

// Router returns the WAMP router, for in-process clients.
func (s *Server) Router() router.Router {
	return s.router
}

// Handler returns the WebSocket handler serving the router.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Registry returns the registry backing the procedures.
func (s *Server) Registry() *Registry {
	return s.registry
}

func (s *Server) announceHandler(ctx context.Context, inv *wamp.Invocation) client.InvokeResult {
	if len(inv.Arguments) != 2 {
		return errResult(
			fmt.Sprintf("Invocation should contain 2 arguments, not %d", len(inv.Arguments)))
	}

	key, ok := wamp.AsString(inv.Arguments[0])
	if !ok || key == "" {
		return errResult("Error reading invocation first argument")
	}

	rawAddr, ok := wamp.AsString(inv.Arguments[1])
	if !ok {
		return errResult("Error reading invocation second argument")
	}

	addr, err := peers.ParseAddress(rawAddr)
	if err != nil {
		return errResult(fmt.Sprintf("Error parsing address: %v", err))
	}

	added := s.registry.Announce(LookupKey(key), addr)

	s.logger.WithFields(logrus.Fields{
		"key":   key,
		"addr":  addr.String(),
		"added": added,
	}).Debug("Announce")

	return client.InvokeResult{
		Args: wamp.List{added},
	}
}

func (s *Server) lookupHandler(ctx context.Context, inv *wamp.Invocation) client.InvokeResult {
	if len(inv.Arguments) != 1 {
		return errResult(
			fmt.Sprintf("Invocation should contain 1 argument, not %d", len(inv.Arguments)))
	}

	key, ok := wamp.AsString(inv.Arguments[0])
	if !ok || key == "" {
		return errResult("Error reading invocation argument")
	}

	found := s.registry.Lookup(LookupKey(key))

	args := make(wamp.List, 0, len(found))
	for _, addr := range found {
		args = append(args, addr.String())
	}

	s.logger.WithFields(logrus.Fields{
		"key":   key,
		"found": len(found),
	}).Debug("Lookup")

	return client.InvokeResult{
		Args: args,
	}
}

func errResult(msg string) client.InvokeResult {
	return client.InvokeResult{
		Err:  ErrInvalidArgument,
		Args: wamp.List{msg},
	}
}
