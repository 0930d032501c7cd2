package node

import (
	"testing"
	"time"

	"github.com/mosaicnetworks/murmur/src/common"
	"github.com/sirupsen/logrus"
)

// Config contains the parameters of a Node.
type Config struct {
	// SyncInterval is the period of the anti-entropy loop. Zero disables it.
	SyncInterval time.Duration `mapstructure:"sync-interval"`

	// RequestTimeout bounds every request sent to another node.
	RequestTimeout time.Duration `mapstructure:"timeout"`

	// LookupTimeout bounds directory lookups.
	LookupTimeout time.Duration `mapstructure:"lookup-timeout"`

	// PushConcurrency is the maximum number of pushes, or pulls, in flight
	// at once.
	PushConcurrency int `mapstructure:"push-concurrency"`

	// VerifyOnFollow makes FollowUser check the signature of the fetched
	// timeline against the key delivered with it.
	VerifyOnFollow bool `mapstructure:"verify-on-follow"`

	Logger *logrus.Logger
}

// NewConfig ...
func NewConfig(syncInterval time.Duration,
	requestTimeout time.Duration,
	lookupTimeout time.Duration,
	pushConcurrency int,
	verifyOnFollow bool,
	logger *logrus.Logger) *Config {

	return &Config{
		SyncInterval:    syncInterval,
		RequestTimeout:  requestTimeout,
		LookupTimeout:   lookupTimeout,
		PushConcurrency: pushConcurrency,
		VerifyOnFollow:  verifyOnFollow,
		Logger:          logger,
	}
}

// DefaultConfig ...
func DefaultConfig() *Config {
	logger := logrus.New()
	logger.Level = logrus.DebugLevel

	return &Config{
		SyncInterval:    30 * time.Second,
		RequestTimeout:  1000 * time.Millisecond,
		LookupTimeout:   5000 * time.Millisecond,
		PushConcurrency: 16,
		VerifyOnFollow:  true,
		Logger:          logger,
	}
}

// TestConfig returns a Config suited to tests: the periodic sync is disabled
// and logs go through t.
func TestConfig(t testing.TB) *Config {
	config := DefaultConfig()
	config.SyncInterval = 0
	config.LookupTimeout = 500 * time.Millisecond
	config.Logger = common.NewTestLogger(t, logrus.DebugLevel)
	return config
}
