package app

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLogLevel(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want slog.Level
	}{
		{in: "debug", want: slog.LevelDebug},
		{in: "INFO", want: slog.LevelInfo},
		{in: "warn", want: slog.LevelWarn},
		{in: "warning", want: slog.LevelWarn},
		{in: "error", want: slog.LevelError},
		{in: "unknown", want: slog.LevelInfo},
		{in: "", want: slog.LevelInfo},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, parseLogLevel(tc.in), "parseLogLevel(%q)", tc.in)
	}
}

func TestNewLogHandler_Formats(t *testing.T) {
	t.Parallel()

	var jb bytes.Buffer
	slog.New(newLogHandler(&jb, "info", "json")).Info("server.start", "addr", ":4000")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(jb.Bytes(), &rec))
	assert.Equal(t, "server.start", rec["msg"])
	assert.Equal(t, ":4000", rec["addr"])

	var tb bytes.Buffer
	slog.New(newLogHandler(&tb, "info", "text")).Info("server.start", "addr", ":4000")
	assert.Contains(t, tb.String(), "msg=server.start")
	assert.Contains(t, tb.String(), "addr=:4000")
	assert.NotContains(t, tb.String(), "\x1b[")

	var db bytes.Buffer
	slog.New(newLogHandler(&db, "warn", "json")).Info("dropped")
	assert.Empty(t, db.String())
}
