package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.klb.dev/handoff/internal/content"
	"go.klb.dev/handoff/internal/grpcservice"
	"go.klb.dev/handoff/internal/hub"
)

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := run(t, "", "version")
	require.NoError(t, err)
	assert.Equal(t, "handoff dev\n", out)
}

func TestDemo(t *testing.T) {
	out, err := run(t, "", "demo", "--log-level", "error")
	require.NoError(t, err)
	assert.Equal(t, "pasted text/plain \"Copied Text\" (12 bytes)\n", out)
}

func TestDemoVerbose(t *testing.T) {
	out, err := run(t, "", "demo", "--verbose", "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "Expose")
	assert.Contains(t, out, "Data offer   channel=general types=[text/plain]")
	assert.Contains(t, out, "Data         channel=general type=text/plain len=12")
	assert.Contains(t, out, "Close")
}

func TestCopyPasteStatus(t *testing.T) {
	h := hub.New()
	srv, err := startServer(h, serverConfig{Addr: "127.0.0.1:0"})
	require.NoError(t, err)
	t.Cleanup(srv.Close)
	addr := srv.Addr().String()
	common := []string{"--addr", addr, "--source", "tester", "--log-level", "error"}

	_, err = run(t, "hello from stdin", append([]string{"copy"}, common...)...)
	require.NoError(t, err)

	owner, ok := h.Owner(content.General)
	require.True(t, ok)
	assert.Equal(t, grpcservice.RemotePrefix+"tester", owner.ID())

	out, err := run(t, "", append([]string{"paste"}, common...)...)
	require.NoError(t, err)
	assert.Equal(t, "hello from stdin", out)

	out, err = run(t, "", append([]string{"paste", "--list"}, common...)...)
	require.NoError(t, err)
	assert.Equal(t, "text/plain\n", out)

	out, err = run(t, "", append([]string{"paste", "--mime", "image/png"}, common...)...)
	require.NoError(t, err)
	assert.Empty(t, out)

	_, err = run(t, "", append([]string{"paste", "--channel", "dnd"}, common...)...)
	assert.ErrorIs(t, err, hub.ErrNoOwner)

	_, err = run(t, "", append([]string{"paste", "--action", "move"}, common...)...)
	assert.Error(t, err, "the general channel only allows copy")

	out, err = run(t, "", append([]string{"status", "--json"}, common...)...)
	require.NoError(t, err)
	var rows []channelStatus
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	assert.Equal(t, []channelStatus{{
		Channel: content.General,
		Owner:   grpcservice.RemotePrefix + "tester",
		Types:   []string{content.TextPlain},
	}}, rows)

	out, err = run(t, "", append([]string{"status"}, common...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "*  general  remote:tester  text/plain")
}

func TestIsContainerID(t *testing.T) {
	assert.True(t, isContainerID("0123456789abcdef"))
	assert.False(t, isContainerID("laptop"))
	assert.False(t, isContainerID("0123456789ABCDEF"))
}
