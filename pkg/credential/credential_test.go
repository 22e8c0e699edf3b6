package credential

import (
	"os"
	"path/filepath"
	"testing"

	"filippo.io/age"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleCreds() map[string]any {
	return map[string]any{
		"0": map[string]any{"0": map[string]any{
			"0":  map[string]any{"kind": "STRING", "acl": "RW", "value": "coaps://leshan.example.org:5684"},
			"10": map[string]any{"kind": "INTEGER", "acl": "RW", "value": float64(123)},
		}},
	}
}

func newStore(t *testing.T, key string) *Store {
	t.Helper()
	return &Store{
		Path:       filepath.Join(t.TempDir(), "creds.age"),
		Key:        key,
		WorkFactor: 10,
	}
}

func TestPassphraseRoundTrip(t *testing.T) {
	s := newStore(t, "correct horse battery staple")

	require.True(t, s.Save(sampleCreds()))

	raw, err := os.ReadFile(s.Path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "leshan", "credentials must not be stored in clear")

	got, ok := s.Load()
	require.True(t, ok)
	assert.Equal(t, sampleCreds(), got)
}

func TestIdentityRoundTrip(t *testing.T) {
	id, err := age.GenerateX25519Identity()
	require.NoError(t, err)
	s := newStore(t, id.String())

	require.True(t, s.Save(sampleCreds()))
	got, ok := s.Load()
	require.True(t, ok)
	assert.Equal(t, sampleCreds(), got)
}

func TestSaveEncodedSnapshotDropsVersion(t *testing.T) {
	s := newStore(t, "pw")

	require.True(t, s.Save([]byte(`{"version":"1.0.0","1":{"0":{}}}`)))
	got, ok := s.Load()
	require.True(t, ok)
	assert.NotContains(t, got, "version")
	assert.Contains(t, got, "1")
}

func TestLoadDegradesToNoCredentials(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, ok := newStore(t, "pw").Load()
		assert.False(t, ok)
	})

	t.Run("wrong key", func(t *testing.T) {
		s := newStore(t, "pw")
		require.True(t, s.Save(sampleCreds()))

		s.Key = "other"
		_, ok := s.Load()
		assert.False(t, ok)
	})

	t.Run("garbage", func(t *testing.T) {
		s := newStore(t, "pw")
		require.NoError(t, os.WriteFile(s.Path, []byte("not age"), 0o600))
		_, ok := s.Load()
		assert.False(t, ok)
	})

	t.Run("empty key", func(t *testing.T) {
		s := newStore(t, "")
		_, ok := s.Load()
		assert.False(t, ok)
		assert.False(t, s.Save(sampleCreds()))
	})

	t.Run("nil store", func(t *testing.T) {
		var s *Store
		_, ok := s.Load()
		assert.False(t, ok)
	})
}

func TestSaveRejectsInvalidJSON(t *testing.T) {
	s := newStore(t, "pw")
	assert.False(t, s.Save([]byte("{")))
	assert.False(t, s.Save(nil))

	_, err := os.Stat(s.Path)
	assert.True(t, os.IsNotExist(err))
}

func TestDelete(t *testing.T) {
	s := newStore(t, "pw")
	require.True(t, s.Save(sampleCreds()))

	assert.True(t, s.Delete())
	assert.True(t, s.Delete(), "deleting a missing file succeeds")
	_, ok := s.Load()
	assert.False(t, ok)
}

func TestPackageFunctions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "creds.age")

	require.True(t, Save(path, "pw", sampleCreds()))
	got, ok := Load(path, "pw")
	require.True(t, ok)
	assert.Equal(t, sampleCreds(), got)
	assert.True(t, Delete(path))
}
