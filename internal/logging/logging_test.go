package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormat(t *testing.T) {
	assert.Equal(t, FormatText, ParseFormat("tint"))
	assert.Equal(t, FormatText, ParseFormat("TEXT"))
	assert.Equal(t, FormatJSON, ParseFormat("json"))
	assert.Equal(t, FormatAuto, ParseFormat(""))
	assert.Equal(t, FormatAuto, ParseFormat("yaml"))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("WARN"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("chatty"))
}

func TestNewAutoIsJSONOffTerminal(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, FormatAuto, slog.LevelInfo)
	log.Debug("hidden")
	log.Info("exchange delivered", "channel", "general", "len", 12)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "exchange delivered", rec["msg"])
	assert.Equal(t, "general", rec["channel"])
	assert.EqualValues(t, 12, rec["len"])
}

func TestNewText(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, FormatText, slog.LevelDebug).Debug("offer received", "types", 2)
	assert.Contains(t, buf.String(), "offer received")
	assert.False(t, IsTTY(&buf))
}
