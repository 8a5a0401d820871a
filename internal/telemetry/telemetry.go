// Package telemetry provides the structured run logging every CLI
// invocation writes to, distinct from the source-located diagnostics
// internal/diagnostic collects for the extracted interface itself.
package telemetry

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a SugaredLogger writing console-formatted entries to
// stderr, at debug level when verbose is set and info level otherwise.
func New(verbose bool) *zap.SugaredLogger {
	level := zapcore.InfoLevel
	if verbose {
		level = zapcore.DebugLevel
	}

	encoderCfg := zap.NewDevelopmentEncoderConfig()
	encoderCfg.TimeKey = ""

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderCfg),
		zapcore.Lock(zapcore.AddSync(os.Stderr)),
		level,
	)
	return zap.New(core).Sugar()
}

// Noop returns a logger that discards everything, used by tests and by
// library callers that do not want fremgen's own run logging.
func Noop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}
