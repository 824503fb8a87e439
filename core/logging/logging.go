// Package logging creates per-package zap loggers with adjustable levels.
//
// Log entries are written to stderr as JSON. Setting VERBSRX_LOG_FORMAT=console
// selects the human readable console encoder instead.
package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var root = newRoot(os.Getenv("VERBSRX_LOG_FORMAT"))

func newRoot(format string) *zap.Logger {
	var enc zapcore.Encoder
	switch format {
	case "console":
		cfg := zap.NewDevelopmentEncoderConfig()
		cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		enc = zapcore.NewConsoleEncoder(cfg)
	default:
		enc = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	}
	return zap.New(zapcore.NewCore(enc, zapcore.Lock(os.Stderr), zap.DebugLevel))
}

// Named creates a named logger that is not subject to package level.
func Named(pkg string) *zap.Logger {
	return root.Named(pkg)
}

// New creates a package logger filtered by the package level.
//
//	var logger = logging.New("rxq")
func New(pkg string) *zap.Logger {
	return Named(pkg).WithOptions(zap.IncreaseLevel(GetLevel(pkg).al))
}
