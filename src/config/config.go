package config

import (
	"crypto/ecdsa"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mosaicnetworks/murmur/src/common"
	"github.com/mosaicnetworks/murmur/src/node"
	"github.com/rifflock/lfshook"
	"github.com/sirupsen/logrus"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
)

// Default filenames.
const (
	// DefaultKeyfile is the default name of the file containing the user's
	// private key
	DefaultKeyfile = "priv_key"

	// DefaultBadgerFile is the default name of the folder containing the Badger
	// database
	DefaultBadgerFile = "badger_db"

	// DefaultCertFile is the default name of the file containing the TLS
	// certificate of the directory server.
	DefaultCertFile = "cert.pem"

	// DefaultCertKeyFile is the default name of the file containing the TLS
	// private key of the directory server.
	DefaultCertKeyFile = "key.pem"
)

// Default configuration values.
const (
	DefaultLogLevel        = "debug"
	DefaultBindAddr        = "127.0.0.1:1337"
	DefaultServiceAddr     = "127.0.0.1:8000"
	DefaultDirectoryAddr   = "127.0.0.1:2443"
	DefaultDirectoryRealm  = "murmur"
	DefaultSyncInterval    = 30 * time.Second
	DefaultRequestTimeout  = 1 * time.Second
	DefaultLookupTimeout   = 5 * time.Second
	DefaultPushConcurrency = 16
	DefaultVerifyOnFollow  = true
	DefaultStore           = false
	DefaultNoService       = false
)

// Config contains all the configuration properties of a murmur node.
type Config struct {
	// DataDir is the top-level directory containing murmur configuration and
	// data
	DataDir string `mapstructure:"datadir" validate:"required"`

	// LogLevel determines the chattiness of the log output.
	LogLevel string `mapstructure:"log" validate:"oneof=debug info warn error fatal panic"`

	// LogFile, if set, receives a copy of every log entry.
	LogFile string `mapstructure:"log-file"`

	// User is the name of the user owning this node. It is also the name under
	// which the node announces itself in the directory.
	User string `mapstructure:"user" validate:"required"`

	// BindAddr is the local address:port where this node serves timelines to
	// other nodes.
	BindAddr string `mapstructure:"listen" validate:"required,hostname_port"`

	// AdvertiseAddr is used to change the address that we advertise to other
	// nodes through the directory. It defaults to BindAddr.
	AdvertiseAddr string `mapstructure:"advertise" validate:"omitempty,hostname_port"`

	// NoService disables the local HTTP API service.
	NoService bool `mapstructure:"no-service"`

	// ServiceAddr is the address:port of the local HTTP API service.
	ServiceAddr string `mapstructure:"service-listen" validate:"omitempty,hostname_port"`

	// DirectoryAddr is the address:port of the WAMP directory server.
	DirectoryAddr string `mapstructure:"directory-addr" validate:"required,hostname_port"`

	// DirectoryRealm is the WAMP realm in which directory procedures are
	// registered.
	DirectoryRealm string `mapstructure:"directory-realm" validate:"required"`

	// DirectoryTLS connects to the directory server over secure WebSockets.
	// The server certificate is checked against CertFile if it exists in the
	// data directory, and against the platform's trusted certificates
	// otherwise.
	DirectoryTLS bool `mapstructure:"directory-tls"`

	// DirectorySkipVerify accepts any certificate presented by the directory
	// server. This should be used only for testing.
	DirectorySkipVerify bool `mapstructure:"directory-skip-verify"`

	// SyncInterval is the period of anti-entropy rounds.
	SyncInterval time.Duration `mapstructure:"sync-interval" validate:"gte=0"`

	// RequestTimeout bounds every request to another node.
	RequestTimeout time.Duration `mapstructure:"timeout" validate:"gt=0"`

	// LookupTimeout bounds every directory lookup.
	LookupTimeout time.Duration `mapstructure:"lookup-timeout" validate:"gt=0"`

	// PushConcurrency is the maximum number of concurrent pushes when
	// propagating a timeline.
	PushConcurrency int `mapstructure:"push-concurrency" validate:"gte=0"`

	// VerifyOnFollow verifies timelines fetched when following a new user.
	VerifyOnFollow bool `mapstructure:"verify-on-follow"`

	// Store activates persistant storage.
	Store bool `mapstructure:"store"`

	// DatabaseDir is the directory containing database files.
	DatabaseDir string `mapstructure:"db" validate:"required_if=Store true"`

	// Key is the private key of the user.
	Key *ecdsa.PrivateKey `mapstructure:"-"`

	logger *logrus.Logger
}

// NewDefaultConfig returns a config object with default values.
func NewDefaultConfig() *Config {
	config := &Config{
		DataDir:         DefaultDataDir(),
		LogLevel:        DefaultLogLevel,
		BindAddr:        DefaultBindAddr,
		ServiceAddr:     DefaultServiceAddr,
		NoService:       DefaultNoService,
		DirectoryAddr:   DefaultDirectoryAddr,
		DirectoryRealm:  DefaultDirectoryRealm,
		SyncInterval:    DefaultSyncInterval,
		RequestTimeout:  DefaultRequestTimeout,
		LookupTimeout:   DefaultLookupTimeout,
		PushConcurrency: DefaultPushConcurrency,
		VerifyOnFollow:  DefaultVerifyOnFollow,
		Store:           DefaultStore,
		DatabaseDir:     DefaultDatabaseDir(),
	}

	return config
}

// NewTestConfig returns a config object with default values and a special
// logger for debugging tests.
func NewTestConfig(t testing.TB, level logrus.Level) *Config {
	config := NewDefaultConfig()
	config.logger = common.NewTestLogger(t, level)
	return config
}

// Validate checks the configuration against the constraints declared in the
// struct tags.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if !c.NoService && c.ServiceAddr == "" {
		return fmt.Errorf("invalid configuration: service-listen is required unless no-service is set")
	}
	return nil
}

// SetDataDir sets the top-level murmur directory, and updates the database
// directory if it is currently set to the default value. If the database
// directory is not currently the default, it means the user has explicitely set
// it to something else, so avoid changing it again here.
func (c *Config) SetDataDir(dataDir string) {
	c.DataDir = dataDir
	if c.DatabaseDir == DefaultDatabaseDir() {
		c.DatabaseDir = filepath.Join(dataDir, DefaultBadgerFile)
	}
}

// Keyfile returns the full path of the file containing the private key.
func (c *Config) Keyfile() string {
	return filepath.Join(c.DataDir, DefaultKeyfile)
}

// CertFile returns the full path of the file containing the directory-server
// TLS certificate.
func (c *Config) CertFile() string {
	return filepath.Join(c.DataDir, DefaultCertFile)
}

// CertKeyFile returns the full path of the file containing the
// directory-server TLS private key.
func (c *Config) CertKeyFile() string {
	return filepath.Join(c.DataDir, DefaultCertKeyFile)
}

// Advertise returns the address announced in the directory.
func (c *Config) Advertise() string {
	if c.AdvertiseAddr != "" {
		return c.AdvertiseAddr
	}
	return c.BindAddr
}

// NodeConfig extracts the node's own configuration.
func (c *Config) NodeConfig() *node.Config {
	return node.NewConfig(
		c.SyncInterval,
		c.RequestTimeout,
		c.LookupTimeout,
		c.PushConcurrency,
		c.VerifyOnFollow,
		c.Logger().Logger,
	)
}

// Logger returns a formatted logrus Entry, with prefix set to "murmur". When
// LogFile is set, entries are also written to that file.
func (c *Config) Logger() *logrus.Entry {
	if c.logger == nil {
		c.logger = logrus.New()
		c.logger.Level = LogLevel(c.LogLevel)
		c.logger.Formatter = new(prefixed.TextFormatter)

		if c.LogFile != "" {
			c.logger.Hooks.Add(lfshook.NewHook(
				c.LogFile,
				&logrus.JSONFormatter{},
			))
		}
	}
	return c.logger.WithField("prefix", "murmur")
}

// DefaultDatabaseDir returns the default path for the badger database files.
func DefaultDatabaseDir() string {
	return filepath.Join(DefaultDataDir(), DefaultBadgerFile)
}

// DefaultDataDir return the default directory name for top-level murmur config
// based on the underlying OS, attempting to respect conventions.
func DefaultDataDir() string {
	// Try to place the data folder in the user's home dir
	home := HomeDir()
	if home != "" {
		if runtime.GOOS == "darwin" {
			return filepath.Join(home, ".Murmur")
		} else if runtime.GOOS == "windows" {
			return filepath.Join(home, "AppData", "Roaming", "Murmur")
		} else {
			return filepath.Join(home, ".murmur")
		}
	}
	// As we cannot guess a stable location, return empty and handle later
	return ""
}

// HomeDir returns the user's home directory.
func HomeDir() string {
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	if usr, err := user.Current(); err == nil {
		return usr.HomeDir
	}
	return ""
}

// LogLevel parses a string into a Logrus log level.
func LogLevel(l string) logrus.Level {
	switch l {
	case "debug":
		return logrus.DebugLevel
	case "info":
		return logrus.InfoLevel
	case "warn":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	case "fatal":
		return logrus.FatalLevel
	case "panic":
		return logrus.PanicLevel
	default:
		return logrus.DebugLevel
	}
}
