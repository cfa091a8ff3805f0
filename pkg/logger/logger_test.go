package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/amoylab/snipcollab/internal/common/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

// readLines decodes every JSON line written to path
func readLines(t *testing.T, path string) []map[string]any {
	t.Helper()
	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(string(raw)), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry), line)
		out = append(out, entry)
	}
	return out
}

func fileConfig(t *testing.T, level string) *config.LoggerConfig {
	t.Helper()
	return &config.LoggerConfig{
		Level:    level,
		Format:   "json",
		Output:   "file",
		FilePath: filepath.Join(t.TempDir(), "nested", "collabd.log"),
		TimeZone: "UTC",
	}
}

func TestGetLogLevel(t *testing.T) {
	for name, want := range levels {
		assert.Equal(t, want, getLogLevel(name), name)
		assert.Equal(t, want, getLogLevel(strings.ToUpper(name)), name)
	}
	assert.Equal(t, zapcore.InfoLevel, getLogLevel(""))
	assert.Equal(t, zapcore.InfoLevel, getLogLevel("verbose"))
}

func TestSetLoggerDefaults(t *testing.T) {
	tests := []struct {
		name string
		in   config.LoggerConfig
		want config.LoggerConfig
	}{
		{
			name: "empty",
			want: config.LoggerConfig{
				Level: "info", Format: "json", Output: "stdout",
				MaxSize: 100, MaxBackups: 3, MaxAge: 7,
				TimeZone: "Local", TimeFormat: "2006-01-02 15:04:05",
			},
		},
		{
			name: "explicit values survive",
			in: config.LoggerConfig{
				Level: "debug", Format: "console", Output: "file",
				MaxSize: 5, MaxBackups: 1, MaxAge: 2,
				TimeZone: "UTC", TimeFormat: "15:04",
			},
			want: config.LoggerConfig{
				Level: "debug", Format: "console", Output: "file",
				MaxSize: 5, MaxBackups: 1, MaxAge: 2,
				TimeZone: "UTC", TimeFormat: "15:04",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.in
			setLoggerDefaults(&cfg)
			assert.Equal(t, tt.want, cfg)
		})
	}
}

func TestNewService_WritesTaggedEntries(t *testing.T) {
	cfg := fileConfig(t, "debug")

	lg, err := NewService(cfg, "collabd", "v0.1.0\n")
	require.NoError(t, err)
	lg.Named("collab.manager").Info("session created")
	require.NoError(t, lg.Sync())

	entries := readLines(t, cfg.FilePath)
	require.Len(t, entries, 1)
	e := entries[0]
	assert.Equal(t, "session created", e["msg"])
	assert.Equal(t, "info", e["level"])
	assert.Equal(t, "collab.manager", e["logger"])
	assert.Equal(t, "collabd", e["service"])
	assert.Equal(t, "v0.1.0", e["version"])
	assert.NotEmpty(t, e["time"])
	assert.Contains(t, e["caller"], "logger_test.go")
}

func TestNewLogger_LevelAndStacktrace(t *testing.T) {
	cfg := fileConfig(t, "warn")
	cfg.Stacktrace = true

	lg, err := NewLogger(cfg)
	require.NoError(t, err)
	lg.Info("dropped")
	lg.Warn("kept")
	lg.Error("failed")
	require.NoError(t, lg.Sync())

	entries := readLines(t, cfg.FilePath)
	require.Len(t, entries, 2)
	assert.Equal(t, "kept", entries[0]["msg"])
	assert.Nil(t, entries[0]["stacktrace"])
	assert.Equal(t, "failed", entries[1]["msg"])
	assert.NotEmpty(t, entries[1]["stacktrace"])
}

func TestNewLogger_FileOutputIntoMissingDirectory(t *testing.T) {
	cfg := fileConfig(t, "info")
	cfg.FilePath = filepath.Join(t.TempDir(), "a", "b", "collabd.log")

	lg, err := NewLogger(cfg)
	require.NoError(t, err)
	lg.Info("hello")
	require.NoError(t, lg.Sync())

	info, err := os.Stat(filepath.Dir(cfg.FilePath))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
