package repository

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lwm2m-go/lwm2m-client/pkg/model"
)

func uri(o, i, r uint16) model.URI {
	return model.URI{ObjectID: o, InstanceID: i, ResourceID: r}
}

func baseOptions() Options {
	return Options{
		ServerHost:      "localhost",
		ServerPort:      5683,
		ServerID:        123,
		LifetimeSec:     500,
		IncludeDefaults: true,
	}
}

type stubCredentials struct {
	layer map[string]any
	ok    bool
}

func (s stubCredentials) Load() (map[string]any, bool) { return s.layer, s.ok }

func TestMergeFirstWriterWins(t *testing.T) {
	a := map[string]any{"3": map[string]any{"0": map[string]any{"0": "from-a"}}}
	b := map[string]any{
		"3": map[string]any{"0": map[string]any{"0": "from-b", "1": "b-only"}},
		"x": map[string]any{"0": map[string]any{"0": "ignored"}},
	}
	c := map[string]any{
		"3":  map[string]any{"0": map[string]any{"1": "from-c", "2": "c-only", "name": "ignored"}},
		"10": map[string]any{"1": map[string]any{"0": 7}},
	}

	tree := Merge(a, b, c)

	assert.Equal(t, "from-a", tree[3][0][0])
	assert.Equal(t, "b-only", tree[3][0][1])
	assert.Equal(t, "c-only", tree[3][0][2])
	assert.Equal(t, 7, tree[10][1][0])
	assert.Len(t, tree[3][0], 3)
	assert.Len(t, tree, 2)
	assert.Equal(t, 4, tree.Len())
}

func TestMergeAcceptsYAMLKeyTypes(t *testing.T) {
	layer := map[string]any{
		"5": map[any]any{1: map[int]any{2: "v"}},
	}
	tree := Merge(layer)
	assert.Equal(t, "v", tree[5][1][2])
}

func TestMergeSameIDKeys(t *testing.T) {
	layer := map[string]any{
		"3": map[string]any{"0": map[string]any{"01": "padded", "1": "canonical", "+2": "signed"}},
		"4": map[any]any{0: map[any]any{1: "int", "1": "string"}},
	}
	for range 20 {
		tree := Merge(layer)
		assert.Equal(t, "canonical", tree[3][0][1])
		assert.Len(t, tree[3][0], 1)
		assert.Equal(t, "int", tree[4][0][1])
	}
}

func TestBuildEndToEnd(t *testing.T) {
	ctx := context.Background()
	repo, err := Build(ctx, baseOptions())
	require.NoError(t, err)
	assert.False(t, repo.CredentialsLoaded)

	serverURI, err := repo.Resources[uri(0, 0, 0)].ToString(ctx)
	require.NoError(t, err)
	assert.Equal(t, "coap://localhost:5683", serverURI)

	mode, err := repo.Resources[uri(0, 0, 2)].ToInteger(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.SecurityModeNone, mode)

	ssid, _ := repo.Resources[uri(0, 0, 10)].ToInteger(ctx)
	assert.Equal(t, int64(123), ssid)

	serverID, err := repo.Resources[uri(1, 0, 0)].ToInteger(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(123), serverID)

	lifetime, err := repo.Resources[uri(1, 0, 1)].ToInteger(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(500), lifetime)
}

func TestBuildACLRemap(t *testing.T) {
	ctx := context.Background()
	repo, err := Build(ctx, baseOptions())
	require.NoError(t, err)

	owner, err := repo.Resources[uri(2, 0, 3)].ToInteger(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(123), owner)

	v, err := repo.Resources[uri(2, 0, 2)].ToValue(ctx, true)
	require.NoError(t, err)
	entries, ok := v.(model.Instances)
	require.True(t, ok)
	assert.NotContains(t, entries, uint16(0))
	require.Contains(t, entries, uint16(123))

	perm, err := entries[123].ToInteger(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(model.ACLAll), perm)
	assert.Equal(t, uint16(123), entries[123].ID)
}

func TestBuildACLRemapWithoutEntry(t *testing.T) {
	ctx := context.Background()
	opts := baseOptions()
	opts.IncludeDefaults = false
	opts.Sources = []map[string]any{{
		"2": map[string]any{"4": map[string]any{
			"0": 3,
			"1": 0,
			"3": 0,
		}},
	}}

	repo, err := Build(ctx, opts)
	require.NoError(t, err)

	v, err := repo.Resources[uri(2, 4, 2)].ToValue(ctx, true)
	require.NoError(t, err)
	entries := v.(model.Instances)
	require.Contains(t, entries, uint16(123))
	perm, _ := entries[123].ToInteger(ctx)
	assert.Equal(t, int64(31), perm)
}

func TestBuildDTLS(t *testing.T) {
	ctx := context.Background()
	opts := baseOptions()
	opts.EnableDTLS = true
	opts.ServerPort = 0
	opts.PSKIdentity = "device-1"
	opts.PSKKey = "hex:0a0b"

	repo, err := Build(ctx, opts)
	require.NoError(t, err)

	serverURI, _ := repo.Resources[uri(0, 0, 0)].ToString(ctx)
	assert.Equal(t, "coaps://localhost:5684", serverURI)

	mode, _ := repo.Resources[uri(0, 0, 2)].ToInteger(ctx)
	assert.Equal(t, model.SecurityModePSK, mode)

	identity, _ := repo.Resources[uri(0, 0, 3)].ToBytes(ctx)
	assert.Equal(t, []byte("device-1"), identity)

	key, _ := repo.Resources[uri(0, 0, 5)].ToBytes(ctx)
	assert.Equal(t, []byte{0x0a, 0x0b}, key)
}

func TestBuildConfigurationErrors(t *testing.T) {
	ctx := context.Background()

	opts := baseOptions()
	opts.EnableDTLS = true
	_, err := Build(ctx, opts)
	assert.ErrorIs(t, err, ErrMissingPSK)

	opts = baseOptions()
	opts.ServerID = 0
	_, err = Build(ctx, opts)
	assert.ErrorIs(t, err, ErrMissingServerID)

	opts = baseOptions()
	opts.ServerHost = ""
	_, err = Build(ctx, opts)
	assert.ErrorIs(t, err, ErrMissingHost)
}

func TestBuildLifetimeFloor(t *testing.T) {
	ctx := context.Background()
	opts := baseOptions()
	opts.LifetimeSec = 5

	repo, err := Build(ctx, opts)
	require.NoError(t, err)

	lifetime, _ := repo.Resources[uri(1, 0, 1)].ToInteger(ctx)
	assert.Equal(t, MinimumLifetime, lifetime)
}

func TestBuildStoredCredentialsSkipOverlay(t *testing.T) {
	ctx := context.Background()
	opts := baseOptions()
	opts.Credentials = stubCredentials{ok: true, layer: map[string]any{
		"0": map[string]any{"0": map[string]any{
			"0":  "coaps://stored.example:5684",
			"10": 0,
		}},
	}}

	repo, err := Build(ctx, opts)
	require.NoError(t, err)
	assert.True(t, repo.CredentialsLoaded)

	serverURI, _ := repo.Resources[uri(0, 0, 0)].ToString(ctx)
	assert.Equal(t, "coaps://stored.example:5684", serverURI)

	owner, _ := repo.Resources[uri(2, 0, 3)].ToInteger(ctx)
	assert.Equal(t, int64(0), owner)
}

func TestBuildMissingCredentialsFallsBack(t *testing.T) {
	ctx := context.Background()
	opts := baseOptions()
	opts.Credentials = stubCredentials{ok: false}

	repo, err := Build(ctx, opts)
	require.NoError(t, err)
	assert.False(t, repo.CredentialsLoaded)

	serverURI, _ := repo.Resources[uri(0, 0, 0)].ToString(ctx)
	assert.Equal(t, "coap://localhost:5683", serverURI)
}

func TestBuildSourceOverridesDefaults(t *testing.T) {
	ctx := context.Background()
	opts := baseOptions()
	opts.Sources = []map[string]any{{
		"3": map[string]any{"0": map[string]any{
			"0": map[string]any{"kind": "STRING", "acl": "R", "value": "Acme"},
		}},
		"3303": map[string]any{"0": map[string]any{
			"5700": map[string]any{"kind": "FLOAT", "acl": "R", "value": 21.5},
		}},
	}}

	repo, err := Build(ctx, opts)
	require.NoError(t, err)

	manufacturer, _ := repo.Resources[uri(3, 0, 0)].ToString(ctx)
	assert.Equal(t, "Acme", manufacturer)

	temp, _ := repo.Resources[uri(3303, 0, 5700)].ToFloat(ctx)
	assert.Equal(t, 21.5, temp)
	assert.Equal(t, []uint16{0, 1, 2, 3, 3303}, repo.ObjectIDs())
}

func TestBuildInvalidLeafFails(t *testing.T) {
	opts := baseOptions()
	opts.Sources = []map[string]any{{
		"5": map[string]any{"0": map[string]any{"0": map[string]any{"kind": "BLOB"}}},
	}}
	_, err := Build(context.Background(), opts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "/5/0/0")
}

func TestTemplated(t *testing.T) {
	ctx := context.Background()
	repo, err := Build(ctx, baseOptions())
	require.NoError(t, err)

	r, err := repo.Templated(ctx, uri(1, 1, 1), "42")
	require.NoError(t, err)
	assert.Equal(t, model.KindInteger, r.Kind)
	assert.Equal(t, uint16(1), r.ID)
	n, _ := r.ToInteger(ctx)
	assert.Equal(t, int64(42), n)

	r, err = repo.Templated(ctx, uri(9, 0, 0), "free")
	require.NoError(t, err)
	assert.Equal(t, model.KindString, r.Kind)
	assert.Equal(t, model.ACLDefault, r.ACL)
}

func TestTemplatedCopiesGivenResource(t *testing.T) {
	ctx := context.Background()
	repo, err := Build(ctx, baseOptions())
	require.NoError(t, err)

	given, err := model.Build(7, model.KindInteger, model.ACLRead, int64(5), false)
	require.NoError(t, err)

	r, err := repo.Templated(ctx, uri(1, 0, 1), given)
	require.NoError(t, err)
	assert.NotSame(t, given, r)
	assert.Equal(t, uint16(1), r.ID)
	assert.Equal(t, repo.Definition(1, 1).ACL, r.ACL)

	assert.Equal(t, uint16(7), given.ID)
	assert.Equal(t, model.ACLRead, given.ACL)
	n, _ := r.ToInteger(ctx)
	assert.Equal(t, int64(5), n)
}

func TestDecodeKeepsLargeIntegers(t *testing.T) {
	ctx := context.Background()
	data := []byte(`{"version":"1.0.0","3":{"0":{"13":{"kind":"INTEGER","acl":"RW","value":9007199254740993}}}}`)

	layer, err := Decode(data)
	require.NoError(t, err)
	repo, err := Resolve(ctx, Merge(layer))
	require.NoError(t, err)

	n, err := repo.Resources[uri(3, 0, 13)].ToInteger(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(9007199254740993), n)
}

func TestToJSONStringRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo, err := Build(ctx, baseOptions())
	require.NoError(t, err)

	s, err := repo.ToJSONString()
	require.NoError(t, err)
	assert.Contains(t, s, `"version":"1.0.0"`)

	layer, err := Decode([]byte(s))
	require.NoError(t, err)

	restored, err := Resolve(ctx, Merge(layer))
	require.NoError(t, err)
	require.Len(t, restored.Resources, len(repo.Resources))

	for u, r := range repo.Resources {
		got := restored.Resources[u]
		require.NotNil(t, got, u.String())
		assert.Equal(t, r.Kind, got.Kind, u.String())
		assert.Equal(t, r.ACL, got.ACL, u.String())
		assert.Equal(t, r.Sensitive, got.Sensitive, u.String())
	}

	serverURI, _ := restored.Resources[uri(0, 0, 0)].ToString(ctx)
	assert.Equal(t, "coap://localhost:5683", serverURI)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "objects.jsonc")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{
		// temperature sensor
		"3303": {"0": {"5700": {"kind": "FLOAT", "value": 20.5,},},},
	}`), 0o600))

	yamlPath := filepath.Join(dir, "objects.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("\"3303\":\n  \"0\":\n    \"5701\": {kind: STRING, value: Cel}\n"), 0o600))

	layers, err := LoadFiles(jsonPath, yamlPath)
	require.NoError(t, err)
	require.Len(t, layers, 2)

	tree := Merge(layers...)
	assert.Contains(t, tree[3303][0], uint16(5700))
	assert.Contains(t, tree[3303][0], uint16(5701))

	_, err = LoadFile(filepath.Join(dir, "missing.json"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestDestroyToleratesFailures(t *testing.T) {
	ctx := context.Background()
	finis := 0
	failing := &model.Source{Fini: func(context.Context) error { finis++; return errors.New("boom") }}
	ok := &model.Source{Fini: func(context.Context) error { finis++; return nil }}

	repo, err := Resolve(ctx, Tree{9: {0: {0: failing, 1: ok}}})
	require.NoError(t, err)

	Destroy(ctx, repo)
	assert.Equal(t, 2, finis)
	Destroy(ctx, nil)
}
