package store

import (
	"log/slog"
	"time"

	"github.com/lwm2m-go/lwm2m-client/pkg/model"
)

// Default timing.
const (
	DefaultRetryInterval = 500 * time.Millisecond
	DefaultBackupTTL     = 60 * time.Second
)

// Config configures a Store.
type Config struct {
	// HideSensitive omits sensitive resources from remote reads.
	HideSensitive bool

	// RetryInterval is the delay between readiness checks.
	RetryInterval time.Duration

	// MaxRetries bounds readiness checks. Zero waits until the context ends.
	MaxRetries int

	// BackupTTL is how long an unrestored backup is kept.
	BackupTTL time.Duration

	// Coercer renders plain values for Values.
	Coercer model.Coercer

	Logger *slog.Logger
}

// DefaultConfig returns the default store configuration.
func DefaultConfig() Config {
	return Config{
		RetryInterval: DefaultRetryInterval,
		BackupTTL:     DefaultBackupTTL,
	}
}

func (c *Config) applyDefaults() {
	if c.RetryInterval <= 0 {
		c.RetryInterval = DefaultRetryInterval
	}
	if c.BackupTTL <= 0 {
		c.BackupTTL = DefaultBackupTTL
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}
