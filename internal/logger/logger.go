// Package logger wraps a process-wide zerolog logger behind printf-style
// helpers so call sites stay one-liners.
package logger

import (
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config controls sinks and verbosity.
type Config struct {
	Level      string `json:"level" toml:"level"`
	Console    bool   `json:"console" toml:"console"`
	FilePath   string `json:"file_path" toml:"file_path"`
	MaxSizeMB  int    `json:"max_size_mb" toml:"max_size_mb"`
	MaxBackups int    `json:"max_backups" toml:"max_backups"`
	MaxAgeDays int    `json:"max_age_days" toml:"max_age_days"`
}

// DefaultConfig logs to the console only.
func DefaultConfig() Config {
	return Config{Level: "info", Console: true}
}

var (
	mu  sync.RWMutex
	log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()
)

// Init rebuilds the process logger from cfg. A non-empty FilePath adds a
// rotating file sink next to the console one.
func Init(cfg Config) error {
	var writers []io.Writer
	if cfg.Console {
		writers = append(writers, zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	if cfg.FilePath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0o755); err != nil {
			return err
		}
		writers = append(writers, &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		})
	}
	var w io.Writer = os.Stderr
	if len(writers) == 1 {
		w = writers[0]
	} else if len(writers) > 1 {
		w = zerolog.MultiLevelWriter(writers...)
	}

	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	mu.Lock()
	log = zerolog.New(w).With().Timestamp().Logger()
	mu.Unlock()
	return nil
}

func parseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Base returns the current logger for callers that want structured fields.
func Base() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return log
}

func Debugf(format string, args ...any) {
	l := Base()
	l.Debug().Msgf(format, args...)
}

func Infof(format string, args ...any) {
	l := Base()
	l.Info().Msgf(format, args...)
}

func Warnf(format string, args ...any) {
	l := Base()
	l.Warn().Msgf(format, args...)
}

func Errorf(format string, args ...any) {
	l := Base()
	l.Error().Msgf(format, args...)
}
