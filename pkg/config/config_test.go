package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lwm2m-go/lwm2m-client/pkg/repository"
)

const sampleYAML = `
client_name: urn:dev:os:0001
server:
  host: leshan.example.org
  port: 5684
  id: 123
  dtls: true
  psk_identity: node-1
  psk_key: hex:00112233
  lifetime: 600
objects:
  - objects/temperature.yaml
credentials:
  path: /var/lib/lwm2m/creds.age
  key: secret
store:
  hide_sensitive: false
  empty_value: "-"
  retry_interval: 250ms
  max_retries: 8
  backup_ttl: 2m
log:
  level: debug
  format: json
metrics_addr: ":9090"
`

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "client.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFile(t *testing.T) {
	cfg, err := Load(writeFile(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "urn:dev:os:0001", cfg.ClientName)
	assert.Equal(t, "leshan.example.org", cfg.Server.Host)
	assert.Equal(t, 5684, cfg.Server.Port)
	assert.Equal(t, uint16(123), cfg.Server.ID)
	assert.True(t, cfg.Server.DTLS)
	assert.Equal(t, int64(600), cfg.Server.Lifetime)
	assert.Equal(t, []string{"objects/temperature.yaml"}, cfg.Objects)
	assert.Equal(t, 250*time.Millisecond, cfg.Store.RetryInterval)
	assert.Equal(t, 8, cfg.Store.MaxRetries)
	assert.Equal(t, 2*time.Minute, cfg.Store.BackupTTL)
	assert.False(t, cfg.Store.HideSensitive)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, ":9090", cfg.MetricsAddr)
	assert.NoError(t, cfg.Validate())
}

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, Default(), cfg)
	assert.NoError(t, cfg.Validate())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadInvalidYAML(t *testing.T) {
	_, err := Load(writeFile(t, "server: [unterminated"))
	assert.Error(t, err)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	t.Setenv("LWM2M_SERVER_HOST", "10.0.0.5")
	t.Setenv("LWM2M_SERVER_ID", "77")
	t.Setenv("LWM2M_OBJECTS", "a.yaml,b.json")
	t.Setenv("LWM2M_STORE_MAX_RETRIES", "3")
	t.Setenv("LWM2M_CREDENTIALS_KEY", "from-env")

	cfg, err := Load(writeFile(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "10.0.0.5", cfg.Server.Host)
	assert.Equal(t, uint16(77), cfg.Server.ID)
	assert.Equal(t, []string{"a.yaml", "b.json"}, cfg.Objects)
	assert.Equal(t, 3, cfg.Store.MaxRetries)
	assert.Equal(t, "from-env", cfg.Credentials.Key)
	// untouched by the environment
	assert.Equal(t, 5684, cfg.Server.Port)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"missing client name", func(c *Config) { c.ClientName = "" }, ErrMissingClientName},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, ErrInvalidPort},
		{"zero server id", func(c *Config) { c.Server.ID = 0 }, repository.ErrMissingServerID},
		{"missing host", func(c *Config) { c.Server.Host = "" }, repository.ErrMissingHost},
		{"dtls without psk", func(c *Config) { c.Server.DTLS = true }, repository.ErrMissingPSK},
		{"credentials without key", func(c *Config) { c.Credentials.Path = "/tmp/c" }, ErrCredentialKey},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, ErrInvalidLogLevel},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }, ErrInvalidLogFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), tt.want)
		})
	}
}

func TestValidateJoinsErrors(t *testing.T) {
	cfg := Default()
	cfg.ClientName = ""
	cfg.Server.ID = 0

	err := cfg.Validate()
	assert.ErrorIs(t, err, ErrMissingClientName)
	assert.ErrorIs(t, err, repository.ErrMissingServerID)
}

func TestBuildOptions(t *testing.T) {
	cfg, err := Load(writeFile(t, sampleYAML))
	require.NoError(t, err)

	sources := []map[string]any{{"3303": map[string]any{}}}
	opts := cfg.BuildOptions(sources, nil, slog.Default())

	assert.Equal(t, "coaps://leshan.example.org:5684", opts.ServerURI())
	assert.Equal(t, uint16(123), opts.ServerID)
	assert.Equal(t, "node-1", opts.PSKIdentity)
	assert.Equal(t, int64(600), opts.Lifetime())
	assert.True(t, opts.IncludeDefaults)
	assert.Len(t, opts.Sources, 1)
}

func TestStoreConfig(t *testing.T) {
	cfg, err := Load(writeFile(t, sampleYAML))
	require.NoError(t, err)

	sc := cfg.StoreConfig(nil)
	assert.False(t, sc.HideSensitive)
	assert.Equal(t, 8, sc.MaxRetries)
	assert.Equal(t, "-", sc.Coercer.EmptyValue)

	assert.Nil(t, Default().StoreConfig(nil).Coercer.EmptyValue)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, tt.in)
	}
}
