// Package logger owns the process-wide zap logger and the helpers that
// carry request-scoped loggers through a context.
package logger

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/mchurichi/logdash/internal/config"
)

type contextKey string

const loggerKey = contextKey("logger")

var (
	mu           sync.RWMutex
	globalLogger *zap.SugaredLogger
)

// Init builds the global logger from configuration. Output goes to stderr
// unless a path is configured, in which case it is rotated by lumberjack.
func Init(cfg config.LoggingConfig) *zap.SugaredLogger {
	writeSyncer := zapcore.AddSync(os.Stderr)

	var dirErr error
	if cfg.Path != "" {
		path := config.ExpandPath(cfg.Path)
		if dirErr = os.MkdirAll(filepath.Dir(path), 0755); dirErr == nil {
			writeSyncer = zapcore.AddSync(&lumberjack.Logger{
				Filename:   path,
				MaxSize:    cfg.MaxSize,
				MaxBackups: cfg.MaxBackups,
				MaxAge:     cfg.MaxAge,
				Compress:   cfg.Compress,
			})
		}
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder := zapcore.NewConsoleEncoder(encoderConfig)

	core := zapcore.NewCore(encoder, writeSyncer, parseLevel(cfg.Level))
	l := zap.New(core, zap.AddCaller()).Sugar()

	mu.Lock()
	globalLogger = l
	mu.Unlock()

	if dirErr != nil {
		l.Warnw("failed to create log directory, logging to stderr", "path", cfg.Path, "error", dirErr)
	}
	return l
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Sync flushes any buffered log entries.
func Sync() error {
	mu.RLock()
	l := globalLogger
	mu.RUnlock()
	if l != nil {
		return l.Sync()
	}
	return nil
}

var fallback = sync.OnceValue(func() *zap.SugaredLogger {
	l, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop().Sugar()
	}
	return l.Sugar()
})

// Get returns the logger stored in ctx, the global logger, or a
// development logger when Init was never called.
func Get(ctx context.Context) *zap.SugaredLogger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey).(*zap.SugaredLogger); ok {
			return l
		}
	}
	mu.RLock()
	l := globalLogger
	mu.RUnlock()
	if l == nil {
		return fallback()
	}
	return l
}

// WithContext adds logger to context
func WithContext(ctx context.Context, l *zap.SugaredLogger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}
