// Package logger implements the ports.Logger interface on top of logrus
// with lumberjack file rotation.
package logger

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config holds the logging configuration.
type Config struct {
	Level      string // debug, info, warn, error
	OutputFile string // Optional; empty logs to stdout only
	MaxSize    int    // Max size of the log file in MB before rotation
	MaxBackups int    // Number of rotated files to keep
	MaxAge     int    // Days to keep rotated files
	Compress   bool   // Compress rotated files
}

// Logger wraps a logrus instance behind the ports.Logger contract.
type Logger struct {
	log *logrus.Logger
}

// New builds a logger writing to stdout and, when an output file is
// configured, to a rotated log file as well.
func New(cfg Config) (*Logger, error) {
	log := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05.000",
	})

	writers := []io.Writer{os.Stdout}
	if cfg.OutputFile != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.OutputFile), 0o755); err != nil {
			return nil, err
		}
		writers = append(writers, &lumberjack.Logger{
			Filename:   cfg.OutputFile,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		})
	}
	log.SetOutput(io.MultiWriter(writers...))

	return &Logger{log: log}, nil
}

func (l *Logger) entry(fields ...map[string]interface{}) *logrus.Entry {
	if len(fields) == 0 || fields[0] == nil {
		return logrus.NewEntry(l.log)
	}
	return l.log.WithFields(logrus.Fields(fields[0]))
}

// Debug logs a message at Debug level.
func (l *Logger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {
	l.entry(fields...).Debug(msg)
}

// Info logs a message at Info level.
func (l *Logger) Info(ctx context.Context, msg string, fields ...map[string]interface{}) {
	l.entry(fields...).Info(msg)
}

// Warn logs a message at Warning level.
func (l *Logger) Warn(ctx context.Context, msg string, fields ...map[string]interface{}) {
	l.entry(fields...).Warn(msg)
}

// Error logs an error message at Error level.
func (l *Logger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
	entry := l.entry(fields...)
	if err != nil {
		entry = entry.WithError(err)
	}
	entry.Error(msg)
}
