package repository

import (
	"errors"
	"fmt"
	"log/slog"
)

// FormatVersion tags serialized repository snapshots.
const FormatVersion = "1.0.0"

// Server connection defaults.
const (
	DefaultPort       = 5683
	DefaultSecurePort = 5684
	DefaultLifetime   = 300

	// MinimumLifetime is the lowest registration lifetime in seconds the
	// Server object accepts.
	MinimumLifetime int64 = 15
)

// Build configuration errors. They are fatal: a client must not start with
// a repository it cannot connect with.
var (
	ErrMissingPSK      = errors.New("DTLS requires a PSK identity and key")
	ErrMissingServerID = errors.New("server id must be non-zero")
	ErrMissingHost     = errors.New("server host is required")
)

// CredentialLoader provides a previously stored credential layer.
// Load reports false when no usable credentials exist.
type CredentialLoader interface {
	Load() (map[string]any, bool)
}

// Options configures Build.
type Options struct {
	ServerHost  string
	ServerPort  int
	ServerID    uint16
	EnableDTLS  bool
	PSKIdentity string
	// PSKKey is the pre-shared key; "hex:" and "base64:" prefixes are decoded.
	PSKKey      string
	Bootstrap   bool
	LifetimeSec int64
	HoldOffSec  int64

	// Sources are definition layers in precedence order.
	Sources []map[string]any

	// IncludeDefaults appends the built-in Security, Server, Access Control
	// and Device objects as the lowest precedence layer.
	IncludeDefaults bool

	// Credentials, when set, is loaded and prepended as the highest
	// precedence layer.
	Credentials CredentialLoader

	Logger *slog.Logger
}

func (o Options) validate() error {
	if o.ServerID == 0 {
		return ErrMissingServerID
	}
	if o.ServerHost == "" {
		return ErrMissingHost
	}
	if o.EnableDTLS && (o.PSKIdentity == "" || o.PSKKey == "") {
		return ErrMissingPSK
	}
	return nil
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

// ServerURI returns the server URI with the scheme chosen by EnableDTLS.
func (o Options) ServerURI() string {
	scheme, port := "coap", o.ServerPort
	if o.EnableDTLS {
		scheme = "coaps"
		if port == 0 {
			port = DefaultSecurePort
		}
	}
	if port == 0 {
		port = DefaultPort
	}
	return fmt.Sprintf("%s://%s:%d", scheme, o.ServerHost, port)
}

// Lifetime returns the configured lifetime with the default and floor applied.
func (o Options) Lifetime() int64 {
	if o.LifetimeSec == 0 {
		return DefaultLifetime
	}
	return ClampLifetime(o.LifetimeSec)
}

// ClampLifetime raises a lifetime below MinimumLifetime to the minimum.
func ClampLifetime(sec int64) int64 {
	if sec < MinimumLifetime {
		return MinimumLifetime
	}
	return sec
}
