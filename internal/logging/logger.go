// Package logging builds the process logger.
package logging

import (
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"secureshred/internal/config"
)

// New builds a zap logger from cfg. verbose forces debug level. console
// selects whether records also go to stderr; it is off while the terminal UI
// owns the screen. With no console and no file the logger discards output.
func New(cfg config.LoggingConfig, verbose, console bool) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid log level %q", cfg.Level)
	}
	if verbose {
		level = zapcore.DebugLevel
	}

	var outputs []string
	if console {
		outputs = append(outputs, "stderr")
	}
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o700); err != nil {
			if !console {
				return zap.NewNop(), errors.Wrapf(err, "create log directory for %s", cfg.File)
			}
			// Keep logging to the console only.
			cfg.File = ""
		} else {
			outputs = append(outputs, cfg.File)
		}
	}
	if len(outputs) == 0 {
		return zap.NewNop(), nil
	}

	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(level)
	zcfg.Encoding = cfg.Format
	zcfg.OutputPaths = outputs
	zcfg.ErrorOutputPaths = []string{"stderr"}
	zcfg.Sampling = nil
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if cfg.Format == "console" {
		zcfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}

	logger, err := zcfg.Build()
	if err != nil {
		return nil, errors.Wrap(err, "build logger")
	}
	return logger.Named("shredder"), nil
}
