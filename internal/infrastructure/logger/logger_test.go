package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"INFO":    zapcore.InfoLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"bogus":   zapcore.InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestNew_TeesExtraCores(t *testing.T) {
	extra, recorded := observer.New(zapcore.InfoLevel)
	l, err := New(&Config{Level: "error", Format: "json", Output: "stderr"}, extra)
	require.NoError(t, err)

	l.Info("billing run finished")
	assert.Equal(t, 1, recorded.Len())
}

func TestNew_WritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	l, err := New(&Config{Level: "info", Format: "json", Output: path})
	require.NoError(t, err)

	l.Info("payment recorded")
	require.NoError(t, l.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"payment recorded"`)
}

func TestNew_NilConfigUsesDefaults(t *testing.T) {
	l, err := New(nil)
	require.NoError(t, err)
	assert.NotNil(t, l)
}
