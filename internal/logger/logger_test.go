package logger

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/mchurichi/logdash/internal/config"
)

func TestGet_PrefersContextLogger(t *testing.T) {
	scoped := zap.NewNop().Sugar().With("request_id", "abc")
	ctx := WithContext(context.Background(), scoped)

	assert.Same(t, scoped, Get(ctx))
}

func TestGet_FallsBackWithoutContext(t *testing.T) {
	assert.NotNil(t, Get(context.Background()))
}

func TestInit_WritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "logdash.log")

	l := Init(config.LoggingConfig{Level: "debug", Path: path, MaxSize: 1})
	l.Debugw("hello from test", "k", "v")
	require.NoError(t, Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello from test")
	assert.Same(t, l, Get(context.Background()))
}

func TestParseLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"debug": zapcore.DebugLevel,
		"DEBUG": zapcore.DebugLevel,
		"warn":  zapcore.WarnLevel,
		"error": zapcore.ErrorLevel,
		"info":  zapcore.InfoLevel,
		"":      zapcore.InfoLevel,
		"other": zapcore.InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, parseLevel(in), "parseLevel(%q)", in)
	}
}
