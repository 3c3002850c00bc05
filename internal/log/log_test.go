package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/mmcdole/perch/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{" info ", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"WARNING", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestNew_WritesJSONAtLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "warn")

	logger.Info("hidden")
	logger.Warn("shown", "entry", "abc")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &rec))
	assert.Equal(t, "shown", rec["msg"])
	assert.Equal(t, "abc", rec["entry"])
}

func TestSetupLogger_CreatesDirectoryAndFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "perch.log")

	logger, closer, err := SetupLogger(&config.LoggingConfig{File: path, Level: "debug"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = closer.Close() })

	logger.Debug("hello")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hello"`)
}

func TestSetupLogger_ExpandsHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	_, closer, err := SetupLogger(&config.LoggingConfig{File: "~/logs/perch.log"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = closer.Close() })

	_, err = os.Stat(filepath.Join(home, "logs", "perch.log"))
	assert.NoError(t, err)
}

func TestSetupLogger_EmptyPathFails(t *testing.T) {
	_, _, err := SetupLogger(&config.LoggingConfig{})
	assert.Error(t, err)
}

func TestNullLogger(t *testing.T) {
	logger := NullLogger()
	require.NotNil(t, logger)
	logger.Error("discarded")
}
