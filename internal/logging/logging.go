// Package logging builds the daemon's zap logger from LoggingConfig.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/vnykmshr/metricbus/internal/config"
)

// New returns a logger writing to console and, when cfg.File is set, to a
// rotated file as well. Console output goes to stderr when console is nil;
// stdout is left to the report printers.
func New(cfg config.LoggingConfig, console io.Writer) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("logging: %w", err)
	}
	if console == nil {
		console = os.Stderr
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var consoleEncoder zapcore.Encoder
	if cfg.Format == config.LogFormatJSON {
		consoleEncoder = zapcore.NewJSONEncoder(encCfg)
	} else {
		devCfg := encCfg
		devCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		consoleEncoder = zapcore.NewConsoleEncoder(devCfg)
	}

	atom := zap.NewAtomicLevelAt(level)
	cores := []zapcore.Core{
		zapcore.NewCore(consoleEncoder, zapcore.AddSync(console), atom),
	}

	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o700); err != nil {
			return nil, fmt.Errorf("logging: create log directory: %w", err)
		}
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(encCfg),
			zapcore.AddSync(&lumberjack.Logger{
				Filename:   cfg.File,
				MaxSize:    cfg.MaxSizeMB, // megabytes
				MaxBackups: cfg.MaxBackups,
			}),
			atom,
		))
	}

	return zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)), nil
}
