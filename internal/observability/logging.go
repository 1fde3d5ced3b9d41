// Package observability builds the structured loggers shared by every
// binary.
package observability

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cory-johannsen/survivors/internal/config"
)

// presets maps a configured format to its zap base config.
var presets = map[string]func() zap.Config{
	"json":    zap.NewProductionConfig,
	"console": zap.NewDevelopmentConfig,
}

// NewLogger builds the logger for one binary from cfg. Every entry carries
// a service field when service is non-empty.
//
// Precondition: cfg.Level is debug, info, warn or error; cfg.Format is json
// or console.
// Postcondition: Returns a ready logger or a non-nil error.
func NewLogger(cfg config.LoggingConfig, service string) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("parsing log level %q: %w", cfg.Level, err)
	}
	preset, ok := presets[cfg.Format]
	if !ok {
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}
	zc := preset()
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zc.EncoderConfig.EncodeDuration = zapcore.StringDurationEncoder
	if cfg.Format == "console" {
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	// Debug tick and roll logs would otherwise flood at 60 ticks per session.
	if level == zapcore.DebugLevel && zc.Sampling == nil {
		zc.Sampling = &zap.SamplingConfig{Initial: 100, Thereafter: 100}
	}
	if service != "" {
		zc.InitialFields = map[string]any{"service": service}
	}
	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}
	return logger, nil
}

// SessionLogger tags base with the profile and, when known, the session id.
func SessionLogger(base *zap.Logger, profile, sessionID string) *zap.Logger {
	fields := []zap.Field{zap.String("profile", profile)}
	if sessionID != "" {
		fields = append(fields, zap.String("session", sessionID))
	}
	return base.With(fields...)
}
