package interactive

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lwm2m-go/lwm2m-client/pkg/client"
	"github.com/lwm2m-go/lwm2m-client/pkg/config"
	"github.com/lwm2m-go/lwm2m-client/pkg/wire"
)

func testShell(t *testing.T) (*Shell, *bytes.Buffer) {
	t.Helper()
	cfg := config.Default()
	cfg.StateFile = filepath.Join(t.TempDir(), "state.json")

	c := client.New(cfg, client.Options{})
	require.NoError(t, c.Start(context.Background()))

	var out bytes.Buffer
	return newShell(c, &out), &out
}

func TestShellGetAndWrite(t *testing.T) {
	sh, out := testShell(t)
	ctx := context.Background()

	assert.True(t, sh.Exec(ctx, "get /3/0/0"))
	assert.Contains(t, out.String(), "lwm2m-go")

	out.Reset()
	sh.Exec(ctx, "write /3/0/13 42")
	assert.Contains(t, out.String(), "/3/0/13 = 42")

	out.Reset()
	sh.Exec(ctx, "observe")
	assert.Contains(t, out.String(), "/3/0/13")

	out.Reset()
	sh.Exec(ctx, "observe")
	assert.Contains(t, out.String(), "No changes")
}

func TestShellBackupRestore(t *testing.T) {
	sh, out := testShell(t)
	ctx := context.Background()

	sh.Exec(ctx, "backup 3")
	sh.Exec(ctx, "write /3/0/15 Europe/Berlin")
	sh.Exec(ctx, "restore 3")
	assert.Contains(t, out.String(), "Restored object 3")

	out.Reset()
	sh.Exec(ctx, "get /3/0/15")
	assert.NotContains(t, out.String(), "Europe/Berlin")
}

func TestShellSend(t *testing.T) {
	sh, out := testShell(t)
	ctx := context.Background()

	req := &wire.Request{MessageID: 9, ObjectID: 3}
	sh.Exec(ctx, "send "+wire.FormatLine("discover", req.Encode()))
	assert.Contains(t, out.String(), wire.ResponsePrefix+"discover:")

	out.Reset()
	sh.Exec(ctx, "send /stateChanged:"+"U1RBVEVfUkVBRFk=")
	assert.Contains(t, out.String(), "(no response)")

	out.Reset()
	sh.Exec(ctx, "state")
	assert.Contains(t, out.String(), "STATE_READY")
}

func TestShellPersistence(t *testing.T) {
	sh, out := testShell(t)
	ctx := context.Background()

	sh.Exec(ctx, "dump 3")
	assert.Contains(t, out.String(), `"version"`)

	out.Reset()
	sh.Exec(ctx, "snapshot")
	assert.Contains(t, out.String(), "Snapshot saved")

	out.Reset()
	sh.Exec(ctx, "creds save")
	assert.Contains(t, out.String(), "Credentials save: failed")
}

func TestShellErrors(t *testing.T) {
	sh, out := testShell(t)
	ctx := context.Background()

	tests := []struct {
		line string
		want string
	}{
		{"frobnicate", "Unknown command: frobnicate"},
		{"get", "Usage: get <pattern>"},
		{"write /3/0", "Usage: write <uri> <value>"},
		{"write /x/0/0 1", "Invalid URI"},
		{"write /3/0/4 1", "Error:"},
		{"backup abc", "Invalid object id: abc"},
		{"get /99/0/0", "Error:"},
		{"creds", "Usage: creds save|clear"},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			out.Reset()
			assert.True(t, sh.Exec(ctx, tt.line))
			assert.Contains(t, out.String(), tt.want)
		})
	}

	assert.False(t, sh.Exec(ctx, "quit"))
}

func TestParseValue(t *testing.T) {
	assert.Equal(t, int64(42), parseValue("42"))
	assert.Equal(t, 2.5, parseValue("2.5"))
	assert.Equal(t, true, parseValue("true"))
	assert.Equal(t, "hello world", parseValue("hello world"))
}
