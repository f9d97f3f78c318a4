// Package logging builds the process-wide logr.Logger on a zap core.
// LOG_LEVEL selects the level by name; LOG_PATH adds a file-backed core
// under that directory alongside stderr.
package logging

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a logr.Logger writing to stderr and, when LOG_PATH is set,
// also to a file under that directory (created if absent). LOG_LEVEL
// selects the zap level by name ("debug", "info", "warn", "error"); unset
// or unrecognized values default to info. encoderType selects "console" or
// "json" (the default).
func New(encoderType string) (logr.Logger, *zap.Logger, error) {
	level := parseLevel(os.Getenv("LOG_LEVEL"))

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder := newEncoder(encoderType, encoderCfg)

	cores := []zapcore.Core{
		zapcore.NewCore(encoder, zapcore.Lock(os.Stderr), level),
	}

	if logPath := os.Getenv("LOG_PATH"); logPath != "" {
		if err := os.MkdirAll(logPath, 0o755); err != nil {
			return logr.Logger{}, nil, fmt.Errorf("creating log directory %q: %w", logPath, err)
		}
		file, err := os.OpenFile(logPath+"/run-supervisor.log", os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return logr.Logger{}, nil, fmt.Errorf("opening log file in %q: %w", logPath, err)
		}
		cores = append(cores, zapcore.NewCore(encoder, zapcore.AddSync(file), level))
	}

	zl := zap.New(zapcore.NewTee(cores...))
	return zapr.NewLogger(zl), zl, nil
}

func newEncoder(encoderType string, cfg zapcore.EncoderConfig) zapcore.Encoder {
	if encoderType == "console" {
		return zapcore.NewConsoleEncoder(cfg)
	}
	return zapcore.NewJSONEncoder(cfg)
}

func parseLevel(raw string) zapcore.Level {
	switch strings.ToLower(raw) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
