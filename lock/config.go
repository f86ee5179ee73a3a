package lock

import (
	"time"

	"github.com/erdlab/collab/logger"
)

// Option applies a configuration setting to a Manager during initialization.
type Option func(*Config)

// Config holds configuration parameters for a lock Manager instance.
type Config struct {
	// HeartbeatTTL is the expiry applied to an element's liveness marker on
	// acquire and on every heartbeat refresh.
	HeartbeatTTL time.Duration

	// SweepInterval is how often the background sweeper scans for locks
	// whose heartbeat has lapsed. The sweeper reclaims locks left behind by
	// clients that crashed without a disconnect event.
	SweepInterval time.Duration

	// EnableSweeper controls whether the background sweeper runs at all.
	// Disabling it accepts the liveness gap: a silently partitioned client
	// holds its locks until an administrator clears them.
	EnableSweeper bool

	// StoreTimeout bounds each individual store round-trip.
	StoreTimeout time.Duration

	// OnSweep, if set, is called for every lock the sweeper reclaims, so
	// the owning layer can broadcast the unlock to viewers.
	OnSweep SweepNotify

	Logger  logger.Logger
	Metrics Metrics
}

// DefaultConfig returns a Config with the predefined defaults and the
// sweeper enabled.
func DefaultConfig() Config {
	return Config{
		HeartbeatTTL:  DefaultHeartbeatTTL,
		SweepInterval: DefaultSweepInterval,
		EnableSweeper: true,
		StoreTimeout:  DefaultStoreTimeout,
	}
}

// WithHeartbeatTTL sets the liveness marker expiry.
func WithHeartbeatTTL(ttl time.Duration) Option {
	return func(cfg *Config) {
		if ttl > 0 {
			cfg.HeartbeatTTL = ttl
		}
	}
}

// WithSweepInterval sets how often the stale-lock sweeper runs.
func WithSweepInterval(interval time.Duration) Option {
	return func(cfg *Config) {
		if interval > 0 {
			cfg.SweepInterval = interval
		}
	}
}

// WithSweeper enables or disables the background stale-lock sweeper.
func WithSweeper(enable bool) Option {
	return func(cfg *Config) {
		cfg.EnableSweeper = enable
	}
}

// WithStoreTimeout bounds each store round-trip.
func WithStoreTimeout(timeout time.Duration) Option {
	return func(cfg *Config) {
		if timeout > 0 {
			cfg.StoreTimeout = timeout
		}
	}
}

// WithSweepNotify registers a callback invoked per reclaimed lock.
func WithSweepNotify(notify SweepNotify) Option {
	return func(cfg *Config) {
		cfg.OnSweep = notify
	}
}

// WithLogger sets the logger used by the Manager.
func WithLogger(l logger.Logger) Option {
	return func(cfg *Config) {
		if l != nil {
			cfg.Logger = l
		}
	}
}

// WithMetrics sets the metrics sink used by the Manager.
func WithMetrics(m Metrics) Option {
	return func(cfg *Config) {
		if m != nil {
			cfg.Metrics = m
		}
	}
}
