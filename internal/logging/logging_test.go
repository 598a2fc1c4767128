package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name    string
		want    slog.Level
		wantErr bool
	}{
		{name: "debug", want: slog.LevelDebug},
		{name: "INFO", want: slog.LevelInfo},
		{name: "", want: slog.LevelInfo},
		{name: "warning", want: slog.LevelWarn},
		{name: "warn", want: slog.LevelWarn},
		{name: "error", want: slog.LevelError},
		{name: "verbose", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLevel(tt.name)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewWriterJSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewWriter(Config{Level: "debug", Format: "json"}, &buf)
	require.NoError(t, err)

	logger.Debug("evaluated", "script", "main", "actions", "keep")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "evaluated", entry["msg"])
	assert.Equal(t, "main", entry["script"])
	assert.Equal(t, "DEBUG", entry["level"])
	assert.Contains(t, entry, "time")
}

func TestNewWriterLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewWriter(Config{Level: "warn", Format: "text"}, &buf)
	require.NoError(t, err)

	logger.Info("hidden")
	assert.Zero(t, buf.Len())
	logger.Warn("shown")
	assert.Contains(t, buf.String(), "msg=shown")
}

func TestNewWriterBadConfig(t *testing.T) {
	_, err := NewWriter(Config{Format: "xml"}, &bytes.Buffer{})
	require.Error(t, err)
	_, err = NewWriter(Config{Level: "loud"}, &bytes.Buffer{})
	require.Error(t, err)
}

func TestNewFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sieve.log")
	logger, f, err := New(Config{Level: "info", Format: "text", Output: path})
	require.NoError(t, err)
	require.NotNil(t, f)

	logger.Info("to file")
	require.NoError(t, f.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "to file")
}

func TestNewOutputs(t *testing.T) {
	for _, out := range []string{"stdout", "stderr", "", "discard"} {
		logger, f, err := New(Config{Output: out})
		require.NoError(t, err, out)
		assert.NotNil(t, logger, out)
		assert.Nil(t, f, out)
	}

	_, _, err := New(Config{Output: filepath.Join(t.TempDir(), "missing", "log.txt")})
	require.Error(t, err)
}
