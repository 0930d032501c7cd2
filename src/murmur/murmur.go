package murmur

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"path/filepath"
	"time"

	"github.com/mosaicnetworks/murmur/src/config"
	"github.com/mosaicnetworks/murmur/src/crypto/keys"
	"github.com/mosaicnetworks/murmur/src/directory"
	"github.com/mosaicnetworks/murmur/src/net"
	"github.com/mosaicnetworks/murmur/src/node"
	"github.com/mosaicnetworks/murmur/src/peers"
	"github.com/mosaicnetworks/murmur/src/service"
	"github.com/mosaicnetworks/murmur/src/signer"
	"github.com/mosaicnetworks/murmur/src/timeline"
	"github.com/sirupsen/logrus"
)

// Murmur is a struct containing the key parts of a murmur node.
type Murmur struct {
	Config    *config.Config
	Node      *node.Node
	Transport *net.HTTPTransport
	Directory directory.Directory
	Store     timeline.Store
	Signer    *signer.Signer
	Service   *service.Service
	logger    *logrus.Entry
}

// NewMurmur is a factory method to produce a Murmur instance.
func NewMurmur(c *config.Config) *Murmur {
	engine := &Murmur{
		Config: c,
		logger: c.Logger(),
	}

	return engine
}

// Init initialises the engine from its configuration.
func (m *Murmur) Init() error {
	m.logger.Debug("validateConfig")
	if m.Config.User == "" {
		return fmt.Errorf("no user configured")
	}

	m.logger.Debug("initKey")
	if err := m.initKey(); err != nil {
		m.logger.WithError(err).Error("murmur.go:Init() initKey")
		return err
	}

	m.logger.Debug("initStore")
	if err := m.initStore(); err != nil {
		m.logger.WithError(err).Error("murmur.go:Init() initStore")
		return err
	}

	m.logger.Debug("initTransport")
	if err := m.initTransport(); err != nil {
		m.logger.WithError(err).Error("murmur.go:Init() initTransport")
		return err
	}

	m.logger.Debug("initDirectory")
	if err := m.initDirectory(); err != nil {
		m.logger.WithError(err).Error("murmur.go:Init() initDirectory")
		return err
	}

	m.logger.Debug("initNode")
	if err := m.initNode(); err != nil {
		m.logger.WithError(err).Error("murmur.go:Init() initNode")
		return err
	}

	m.logger.Debug("initService")
	if err := m.initService(); err != nil {
		m.logger.WithError(err).Error("murmur.go:Init() initService")
		return err
	}

	return nil
}

// Run starts the transport, the service and the node's main loop. It blocks
// until the node is shut down.
func (m *Murmur) Run() {
	go m.Transport.Listen()

	if m.Service != nil {
		go m.Service.Serve()
	}

	m.Node.Run()
}

// Shutdown stops the service and the node. The node closes the transport, the
// directory client and the store. If Init failed before the node was created,
// the components that were opened are closed here.
func (m *Murmur) Shutdown() {
	if m.Service != nil {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		if err := m.Service.Shutdown(ctx); err != nil {
			m.logger.WithError(err).Error("Shutting down service")
		}
	}

	if m.Node != nil {
		m.Node.Shutdown()
		return
	}

	if m.Transport != nil {
		m.Transport.Close()
	}
	if m.Directory != nil {
		m.Directory.Close()
	}
	if m.Store != nil {
		m.Store.Close()
	}
}

func (m *Murmur) initKey() error {
	if m.Config.Key == nil {
		simpleKeyfile := keys.NewSimpleKeyfile(m.Config.Keyfile())

		privKey, err := simpleKeyfile.ReadKey()
		if err != nil {
			m.logger.WithError(err).Warn("Cannot read private key from file")

			privKey, err = Keygen(m.Config.Keyfile())
			if err != nil {
				m.logger.WithError(err).Error("Cannot generate a new private key")
				return err
			}

			m.logger.WithField("pub", keys.PublicKeyHex(&privKey.PublicKey)).Info("Created a new key")
		}

		m.Config.Key = privKey
	}

	m.Signer = signer.NewSigner(m.Config.Key)

	return nil
}

func (m *Murmur) initStore() error {
	if !m.Config.Store {
		m.Store = timeline.NewInmemStore(m.Config.User, m.Signer.PublicKeyHex())

		m.logger.Debug("created new in-mem store")

		return nil
	}

	m.logger.WithField("path", m.Config.DatabaseDir).Debug("Attempting to load or create database")

	store, err := timeline.NewBadgerStore(
		m.Config.User,
		m.Signer.PublicKeyHex(),
		m.Config.DatabaseDir,
		m.logger,
	)
	if err != nil {
		return err
	}

	m.Store = store

	m.logger.WithField("followed", len(store.Followed())).Debug("loaded badger store")

	return nil
}

func (m *Murmur) initTransport() error {
	trans, err := net.NewHTTPTransport(
		m.Config.BindAddr,
		m.Config.AdvertiseAddr,
		m.Config.RequestTimeout,
		m.logger,
	)
	if err != nil {
		return err
	}

	m.Transport = trans

	return nil
}

func (m *Murmur) initDirectory() error {
	if m.Directory != nil {
		return nil
	}

	self, err := peers.ParseAddress(m.Transport.AdvertiseAddr())
	if err != nil {
		return fmt.Errorf("advertised address: %w", err)
	}

	logger := m.logger.WithField("prefix", "directory")

	var dir *directory.WAMPDirectory
	if m.Config.DirectoryTLS {
		dir, err = directory.NewSecureWAMPDirectory(
			m.Config.DirectoryAddr,
			m.Config.DirectoryRealm,
			self,
			m.Config.CertFile(),
			m.Config.DirectorySkipVerify,
			m.Config.LookupTimeout,
			logger,
		)
	} else {
		dir, err = directory.NewWAMPDirectory(
			m.Config.DirectoryAddr,
			m.Config.DirectoryRealm,
			self,
			m.Config.LookupTimeout,
			logger,
		)
	}
	if err != nil {
		return fmt.Errorf("connecting to directory %s: %w", m.Config.DirectoryAddr, err)
	}

	m.Directory = dir

	return nil
}

func (m *Murmur) initNode() error {
	m.logger.WithFields(logrus.Fields{
		"user": m.Config.User,
		"pub":  m.Signer.PublicKeyHex(),
		"addr": m.Transport.AdvertiseAddr(),
	}).Debug("USER")

	m.Node = node.NewNode(
		m.Config.NodeConfig(),
		m.Config.User,
		m.Signer,
		m.Store,
		m.Transport,
		m.Directory,
	)

	if err := m.Node.Init(context.Background()); err != nil {
		return fmt.Errorf("failed to initialize node: %w", err)
	}

	return nil
}

func (m *Murmur) initService() error {
	if !m.Config.NoService {
		m.Service = service.NewService(m.Config.ServiceAddr, m.Node, m.logger)
	}
	return nil
}

// Keygen generates a new key and writes it to keyfile. It fails if a key
// already lives there.
func Keygen(keyfile string) (*ecdsa.PrivateKey, error) {
	simpleKeyfile := keys.NewSimpleKeyfile(keyfile)

	if _, err := simpleKeyfile.ReadKey(); err == nil {
		return nil, fmt.Errorf("another key already lives under %s", filepath.Dir(keyfile))
	}

	privKey, err := keys.GenerateECDSAKey()
	if err != nil {
		return nil, err
	}

	if err := simpleKeyfile.WriteKey(privKey); err != nil {
		return nil, err
	}

	return privKey, nil
}
