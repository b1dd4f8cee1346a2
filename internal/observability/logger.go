// Package observability owns the process-wide CLI logger.
package observability

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// CLILogger is the logger used by commands and the engine. It discards
// everything until InitCLILogger runs.
var CLILogger = zap.NewNop()

// InitCLILogger replaces CLILogger with a console logger writing to stderr
// at the given level ("debug", "info", "warn", "error").
func InitCLILogger(level string) error {
	lvl, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}

	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	encCfg.TimeKey = ""

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encCfg),
		zapcore.Lock(os.Stderr),
		lvl,
	)
	CLILogger = zap.New(core).Named("cftp")
	return nil
}

// Sync flushes buffered log entries. Errors from syncing a terminal are
// ignored.
func Sync() {
	_ = CLILogger.Sync()
}
