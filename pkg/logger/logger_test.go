package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()

	var out []map[string]interface{}

	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}

		var m map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &m))

		out = append(out, m)
	}

	return out
}

func TestLoggerLevelFiltering(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	l := NewWithWriter("warn", &buf)

	l.Debug("hidden")
	l.Info("hidden too")
	l.Warn("device %s slow", "bmc0")
	l.Error("boom")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "warn", lines[0]["level"])
	assert.Equal(t, "device bmc0 slow", lines[0]["message"])
	assert.Equal(t, "error", lines[1]["level"])
}

func TestLoggerErrorWithContext(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	l := NewWithWriter("debug", &buf)
	l.Error(errors.New("link down"), "http - v1 - postCommand")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "link down", lines[0]["error"])
	assert.Equal(t, "http - v1 - postCommand", lines[0]["message"])
}

func TestLineWriterTrimsNewlines(t *testing.T) {
	t.Parallel()

	var got []string

	w := lineWriter{emit: func(s string) { got = append(got, s) }}

	n, err := w.Write([]byte("[GIN] 200 GET /\r\n"))
	require.NoError(t, err)
	assert.Equal(t, len("[GIN] 200 GET /\r\n"), n)

	_, _ = w.Write([]byte("\n"))

	assert.Equal(t, []string{"[GIN] 200 GET /"}, got)
}

func TestNewWithFileWritesRotatingFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bmcserver.log")

	l, closer := NewWithFile("info", FileOptions{Path: path, MaxSize: 1, MaxBackups: 1})
	l.Info("device link %s ready", "simulated")
	require.NoError(t, closer.Close())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "device link simulated ready")
}
