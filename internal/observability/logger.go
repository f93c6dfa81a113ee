// Package observability holds the process-wide loggers and metrics.
package observability

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logging profiles.
const (
	// ProfileStructured emits one JSON object per line (CloudWatch, Loki).
	ProfileStructured = "structured"

	// ProfileConsole emits human-readable, colorless lines.
	ProfileConsole = "console"
)

var (
	// CLILogger is the logger used by commands. It writes to stderr so that
	// stdout stays reserved for JSONL records.
	CLILogger = zap.NewNop()

	// ServerLogger is the logger used by the webhook server.
	ServerLogger = zap.NewNop()

	loggerMu sync.Mutex
)

// InitLoggers configures both loggers from the logging configuration.
func InitLoggers(service, level, profile string) error {
	cli, err := NewLogger(service, level, profile)
	if err != nil {
		return err
	}
	srv, err := NewLogger(service, level, profile)
	if err != nil {
		return err
	}

	loggerMu.Lock()
	defer loggerMu.Unlock()
	CLILogger = cli
	ServerLogger = srv.With(zap.String("component", "server"))
	return nil
}

// NewLogger builds a stderr zap logger tagged with service.
func NewLogger(service, level, profile string) (*zap.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	return newLogger(service, lvl, profile, zapcore.Lock(os.Stderr)), nil
}

func newLogger(service string, lvl zapcore.Level, profile string, sink zapcore.WriteSyncer) *zap.Logger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var enc zapcore.Encoder
	switch strings.ToLower(profile) {
	case ProfileConsole:
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	default:
		enc = zapcore.NewJSONEncoder(encCfg)
	}

	core := zapcore.NewCore(enc, sink, zap.NewAtomicLevelAt(lvl))
	return zap.New(core, zap.AddCaller()).With(zap.String("service", service))
}

// ParseLevel accepts zap level names case-insensitively.
func ParseLevel(level string) (zapcore.Level, error) {
	if level == "" {
		return zapcore.InfoLevel, nil
	}
	lvl, err := zapcore.ParseLevel(strings.ToLower(level))
	if err != nil {
		return zapcore.InfoLevel, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return lvl, nil
}

// Sync flushes both loggers. Errors from syncing a terminal are ignored.
func Sync() {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	_ = CLILogger.Sync()
	_ = ServerLogger.Sync()
}
