package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"DEBUG":   zapcore.DebugLevel,
		"warn":    zapcore.WarnLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"info":    zapcore.InfoLevel,
		"":        zapcore.InfoLevel,
		"verbose": zapcore.InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestFileOutputHonorsAtomicLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	lvl := zap.NewAtomicLevel()
	l := New(&Config{Level: "warn", Format: "json", Output: "file", FilePath: path, MaxSize: 1}, lvl)

	l.Info("hidden")
	l.Warn("shown", zap.String("workflow_id", "wf1"))
	lvl.SetLevel(zapcore.DebugLevel)
	l.Debug("now visible")
	require.NoError(t, l.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"shown"`)
	assert.Contains(t, out, `"workflow_id":"wf1"`)
	assert.Contains(t, out, "now visible")
}

func TestConsoleFileHasNoColor(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	l := New(&Config{Level: "info", Format: "console", Output: "file", FilePath: path}, zap.NewAtomicLevel())
	l.Info("plain")
	require.NoError(t, l.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "INFO")
	assert.NotContains(t, string(data), "\x1b[")
}

func TestSetLevel(t *testing.T) {
	L()
	prev := Level()
	t.Cleanup(func() { SetLevel(prev) })

	SetLevel("error")
	assert.Equal(t, "error", Level())
	assert.False(t, L().Core().Enabled(zapcore.WarnLevel))
	SetLevel("debug")
	assert.True(t, Named("test").Core().Enabled(zapcore.DebugLevel))
}
