// Package config loads the client configuration from a YAML file, an
// optional .env file and LWM2M_* environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/lwm2m-go/lwm2m-client/pkg/model"
	"github.com/lwm2m-go/lwm2m-client/pkg/repository"
	"github.com/lwm2m-go/lwm2m-client/pkg/store"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "LWM2M_"

// Validation errors.
var (
	ErrMissingClientName = errors.New("client name is required")
	ErrInvalidPort       = errors.New("server port out of range")
	ErrCredentialKey     = errors.New("credential path requires a key")
	ErrInvalidLogLevel   = errors.New("unknown log level")
	ErrInvalidLogFormat  = errors.New("unknown log format")
)

// Config is the client configuration document.
type Config struct {
	// ClientName is the endpoint name the transport registers with.
	ClientName string `yaml:"client_name" env:"CLIENT_NAME"`

	Server ServerConfig `yaml:"server" envPrefix:"SERVER_"`

	// Objects lists object definition files (JSON with comments or YAML),
	// in precedence order.
	Objects []string `yaml:"objects" env:"OBJECTS" envSeparator:","`

	// DisableDefaults leaves out the built-in Security, Server, Access
	// Control and Device objects.
	DisableDefaults bool `yaml:"disable_defaults" env:"DISABLE_DEFAULTS"`

	Credentials CredentialConfig `yaml:"credentials" envPrefix:"CREDENTIALS_"`

	// StateFile persists a repository snapshot across restarts.
	StateFile string `yaml:"state_file" env:"STATE_FILE"`

	Store StoreConfig `yaml:"store" envPrefix:"STORE_"`

	Log LogConfig `yaml:"log" envPrefix:"LOG_"`

	// MetricsAddr enables the Prometheus endpoint, e.g. ":9090".
	MetricsAddr string `yaml:"metrics_addr" env:"METRICS_ADDR"`
}

// ServerConfig describes the LWM2M server the client connects to.
type ServerConfig struct {
	Host        string `yaml:"host" env:"HOST"`
	Port        int    `yaml:"port" env:"PORT"`
	ID          uint16 `yaml:"id" env:"ID"`
	DTLS        bool   `yaml:"dtls" env:"DTLS"`
	PSKIdentity string `yaml:"psk_identity" env:"PSK_IDENTITY"`
	PSKKey      string `yaml:"psk_key" env:"PSK_KEY"`
	Lifetime    int64  `yaml:"lifetime" env:"LIFETIME"`
	HoldOff     int64  `yaml:"hold_off" env:"HOLD_OFF"`
	Bootstrap   bool   `yaml:"bootstrap" env:"BOOTSTRAP"`
}

// CredentialConfig locates the encrypted credential file.
type CredentialConfig struct {
	Path string `yaml:"path" env:"PATH"`
	Key  string `yaml:"key" env:"KEY"`
}

// StoreConfig tunes the object store.
type StoreConfig struct {
	HideSensitive bool          `yaml:"hide_sensitive" env:"HIDE_SENSITIVE"`
	EmptyValue    string        `yaml:"empty_value" env:"EMPTY_VALUE"`
	RetryInterval time.Duration `yaml:"retry_interval" env:"RETRY_INTERVAL"`
	MaxRetries    int           `yaml:"max_retries" env:"MAX_RETRIES"`
	BackupTTL     time.Duration `yaml:"backup_ttl" env:"BACKUP_TTL"`
}

// LogConfig configures operational and protocol logging.
type LogConfig struct {
	Level  string `yaml:"level" env:"LEVEL"`
	Format string `yaml:"format" env:"FORMAT"`

	// ProtocolFile enables CBOR protocol capture to this path.
	ProtocolFile string `yaml:"protocol_file" env:"PROTOCOL_FILE"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		ClientName: "lwm2m-client",
		Server: ServerConfig{
			Host:     "localhost",
			ID:       1,
			Lifetime: repository.DefaultLifetime,
		},
		Store: StoreConfig{
			HideSensitive: true,
			RetryInterval: store.DefaultRetryInterval,
			BackupTTL:     store.DefaultBackupTTL,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads path (when non-empty) over the defaults, then applies .env and
// environment overrides. A missing .env file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	_ = godotenv.Load()

	if err := ApplyEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from LWM2M_* environment variables.
func ApplyEnv(cfg *Config) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse environment: %w", err)
	}
	return nil
}

// Validate checks the fields the client cannot start without. Repository
// level checks (server id, host, PSK) run again in repository.Build.
func (c Config) Validate() error {
	var errs []error
	if c.ClientName == "" {
		errs = append(errs, ErrMissingClientName)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("%w: %d", ErrInvalidPort, c.Server.Port))
	}
	if c.Server.ID == 0 {
		errs = append(errs, repository.ErrMissingServerID)
	}
	if c.Server.Host == "" {
		errs = append(errs, repository.ErrMissingHost)
	}
	if c.Server.DTLS && (c.Server.PSKIdentity == "" || c.Server.PSKKey == "") {
		errs = append(errs, repository.ErrMissingPSK)
	}
	if c.Credentials.Path != "" && c.Credentials.Key == "" {
		errs = append(errs, ErrCredentialKey)
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidLogFormat, c.Log.Format))
	}
	return errors.Join(errs...)
}

// BuildOptions converts the configuration to repository build options.
func (c Config) BuildOptions(sources []map[string]any, creds repository.CredentialLoader, logger *slog.Logger) repository.Options {
	return repository.Options{
		ServerHost:      c.Server.Host,
		ServerPort:      c.Server.Port,
		ServerID:        c.Server.ID,
		EnableDTLS:      c.Server.DTLS,
		PSKIdentity:     c.Server.PSKIdentity,
		PSKKey:          c.Server.PSKKey,
		Bootstrap:       c.Server.Bootstrap,
		LifetimeSec:     c.Server.Lifetime,
		HoldOffSec:      c.Server.HoldOff,
		Sources:         sources,
		IncludeDefaults: !c.DisableDefaults,
		Credentials:     creds,
		Logger:          logger,
	}
}

// StoreConfig converts the configuration to store settings.
func (c Config) StoreConfig(logger *slog.Logger) store.Config {
	cfg := store.Config{
		HideSensitive: c.Store.HideSensitive,
		RetryInterval: c.Store.RetryInterval,
		MaxRetries:    c.Store.MaxRetries,
		BackupTTL:     c.Store.BackupTTL,
		Logger:        logger,
	}
	if c.Store.EmptyValue != "" {
		cfg.Coercer = model.Coercer{EmptyValue: c.Store.EmptyValue}
	}
	return cfg
}

// ParseLevel maps a level name to an slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("%w: %q", ErrInvalidLogLevel, s)
}
