// Package logger builds the zap loggers used by the command-line tools.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config controls console and file output.
type Config struct {
	Level      string `yaml:"level"`        // debug, info, warn, error
	Dir        string `yaml:"dir"`          // empty disables the file core
	File       string `yaml:"file"`         // file name inside Dir
	MaxSizeMB  int    `yaml:"max_size_mb"`  // rotate after this size
	MaxBackups int    `yaml:"max_backups"`  // rotated files kept
	MaxAgeDays int    `yaml:"max_age_days"` // rotated files kept at most this long
	Compress   bool   `yaml:"compress"`
	Console    bool   `yaml:"console"` // human-readable output to Output

	// Output receives console logs; defaults to stderr so reports on stdout stay clean.
	Output io.Writer `yaml:"-"`
}

// DefaultConfig returns console-only logging at info level.
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		File:       "ladder.json",
		MaxSizeMB:  10,
		MaxBackups: 30,
		MaxAgeDays: 30,
		Compress:   true,
		Console:    true,
	}
}

// New builds a logger that tees a console core and a rotated JSON file core.
func New(cfg Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", cfg.Level, err)
	}

	var cores []zapcore.Core

	if cfg.Console {
		out := cfg.Output
		if out == nil {
			out = os.Stderr
		}
		enc := zap.NewDevelopmentEncoderConfig()
		enc.EncodeLevel = zapcore.CapitalLevelEncoder
		enc.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
		enc.EncodeCaller = zapcore.ShortCallerEncoder
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.AddSync(out), level))
	}

	if cfg.Dir != "" {
		if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
		file := cfg.File
		if file == "" {
			file = "ladder.json"
		}
		enc := zap.NewProductionEncoderConfig()
		enc.EncodeTime = zapcore.ISO8601TimeEncoder
		sink := zapcore.AddSync(&lumberjack.Logger{
			Filename:   filepath.Join(cfg.Dir, file),
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		})
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(enc), sink, level))
	}

	if len(cores) == 0 {
		return zap.NewNop(), nil
	}

	return zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)), nil
}

// Module returns l tagged with a module field.
func Module(l *zap.Logger, name string) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l.With(zap.String("module", name))
}
