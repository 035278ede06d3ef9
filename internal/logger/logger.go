package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Logger interface for structured logging.
// Fields are alternating key/value pairs: logger.Info("deal updated", "deal_id", id, "stage", stage).
type Logger interface {
	Info(msg string, fields ...interface{})
	Error(msg string, err error, fields ...interface{})
	Warn(msg string, fields ...interface{})
	Debug(msg string, fields ...interface{})
	Fatal(msg string, err error, fields ...interface{})
	With(fields ...interface{}) Logger
}

// LogrusLogger implements Logger on top of logrus
type LogrusLogger struct {
	entry *logrus.Entry
}

// NewLogrusLogger creates a logger writing to stdout with the given level ("debug", "info", ...)
// and format ("json" or "text").
func NewLogrusLogger(level, format string) Logger {
	return newLogrusLogger(os.Stdout, level, format)
}

// NewLogrusLoggerTo is NewLogrusLogger writing to out
func NewLogrusLoggerTo(out io.Writer, level, format string) Logger {
	return newLogrusLogger(out, level, format)
}

func newLogrusLogger(out io.Writer, level, format string) *LogrusLogger {
	base := logrus.New()
	base.SetOutput(out)

	lvl, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = logrus.InfoLevel
	}
	base.SetLevel(lvl)

	if strings.EqualFold(format, "json") {
		base.SetFormatter(&logrus.JSONFormatter{})
	} else {
		base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	return &LogrusLogger{entry: logrus.NewEntry(base)}
}

// NewNopLogger returns a logger that discards everything
func NewNopLogger() Logger {
	base := logrus.New()
	base.SetOutput(io.Discard)
	return &LogrusLogger{entry: logrus.NewEntry(base)}
}

// Info logs an info message
func (l *LogrusLogger) Info(msg string, fields ...interface{}) {
	l.entry.WithFields(toFields(fields)).Info(msg)
}

// Error logs an error message
func (l *LogrusLogger) Error(msg string, err error, fields ...interface{}) {
	l.entry.WithFields(toFields(fields)).WithError(err).Error(msg)
}

// Warn logs a warning message
func (l *LogrusLogger) Warn(msg string, fields ...interface{}) {
	l.entry.WithFields(toFields(fields)).Warn(msg)
}

// Debug logs a debug message
func (l *LogrusLogger) Debug(msg string, fields ...interface{}) {
	l.entry.WithFields(toFields(fields)).Debug(msg)
}

// Fatal logs a fatal error and exits
func (l *LogrusLogger) Fatal(msg string, err error, fields ...interface{}) {
	l.entry.WithFields(toFields(fields)).WithError(err).Fatal(msg)
}

// With returns a child logger that always carries the given fields
func (l *LogrusLogger) With(fields ...interface{}) Logger {
	return &LogrusLogger{entry: l.entry.WithFields(toFields(fields))}
}

func toFields(kv []interface{}) logrus.Fields {
	fields := make(logrus.Fields, len(kv)/2+1)
	for i := 0; i < len(kv); i += 2 {
		key := fmt.Sprintf("%v", kv[i])
		if i+1 >= len(kv) {
			fields["extra"] = kv[i]
			break
		}
		fields[key] = kv[i+1]
	}
	return fields
}
