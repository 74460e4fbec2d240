package provisioning

import (
	"fmt"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log formats accepted by NewLogger.
const (
	LogFormatConsole = "console"
	LogFormatJSON    = "json"
)

// NewLogger builds a zap-backed logr.Logger. Verbose enables V(1) output,
// which includes per-resource "already exists" events.
func NewLogger(format string, verbose bool) (logr.Logger, error) {
	var cfg zap.Config
	switch format {
	case LogFormatJSON:
		cfg = zap.NewProductionConfig()
	case LogFormatConsole, "":
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cfg.DisableStacktrace = true
	default:
		return logr.Discard(), fmt.Errorf("unknown log format %q: must be %s or %s", format, LogFormatConsole, LogFormatJSON)
	}

	cfg.DisableCaller = true
	cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if verbose {
		// logr V(1) maps to zap level -1.
		cfg.Level = zap.NewAtomicLevelAt(zapcore.Level(-1))
	}

	zl, err := cfg.Build()
	if err != nil {
		return logr.Discard(), fmt.Errorf("failed to build logger: %w", err)
	}
	return zapr.NewLogger(zl), nil
}
