// Package logger provides structured logging for sandboxdb
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps zap.SugaredLogger with key/value helpers
type Logger struct {
	*zap.SugaredLogger
	base *zap.Logger
}

// New creates a Logger writing to stderr, stdout or a file path.
func New(level, format, output string) (*Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}

	var ws zapcore.WriteSyncer
	switch strings.ToLower(output) {
	case "stderr", "":
		ws = zapcore.AddSync(os.Stderr)
	case "stdout":
		ws = zapcore.AddSync(os.Stdout)
	default:
		file, err := os.OpenFile(output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %w", output, err)
		}
		ws = zapcore.AddSync(file)
	}
	return build(lvl, format, ws, true), nil
}

// NewWithWriter creates a Logger writing to w. Color codes are never emitted,
// which keeps the output readable when w is a buffer or a pipe.
func NewWithWriter(level, format string, w io.Writer) (*Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	return build(lvl, format, zapcore.AddSync(w), false), nil
}

// ParseLevel converts debug, info, warn or error to a zap level.
func ParseLevel(level string) (zapcore.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel, nil
	case "info", "":
		return zapcore.InfoLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unknown log level: %s", level)
	}
}

func build(level zapcore.Level, format string, ws zapcore.WriteSyncer, color bool) *Logger {
	var encoder zapcore.Encoder
	if strings.ToLower(format) == "json" {
		cfg := zap.NewProductionEncoderConfig()
		cfg.TimeKey = "timestamp"
		cfg.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewJSONEncoder(cfg)
	} else {
		cfg := zap.NewDevelopmentEncoderConfig()
		cfg.EncodeLevel = zapcore.CapitalLevelEncoder
		if color {
			cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		}
		cfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
		encoder = zapcore.NewConsoleEncoder(cfg)
	}

	core := zapcore.NewCore(encoder, ws, level)
	base := zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))
	return &Logger{SugaredLogger: base.Sugar(), base: base}
}

// Sync flushes any buffered log entries
func (l *Logger) Sync() error {
	return l.base.Sync()
}

// With returns a new Logger with additional context fields
func (l *Logger) With(args ...interface{}) *Logger {
	sugar := l.SugaredLogger.With(args...)
	return &Logger{SugaredLogger: sugar, base: sugar.Desugar()}
}

// Named returns a new Logger with name appended to the logger's name.
// Fields added with With are kept.
func (l *Logger) Named(name string) *Logger {
	sugar := l.SugaredLogger.Named(name)
	return &Logger{SugaredLogger: sugar, base: sugar.Desugar()}
}

// Info logs a message with key-value pairs at Info level
func (l *Logger) Info(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Infow(msg, keysAndValues...)
}

// Debug logs a message with key-value pairs at Debug level
func (l *Logger) Debug(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Debugw(msg, keysAndValues...)
}

// Warn logs a message with key-value pairs at Warn level
func (l *Logger) Warn(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Warnw(msg, keysAndValues...)
}

// Error logs a message with key-value pairs at Error level
func (l *Logger) Error(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Errorw(msg, keysAndValues...)
}

// NewNop returns a no-op Logger for testing
func NewNop() *Logger {
	base := zap.NewNop()
	return &Logger{SugaredLogger: base.Sugar(), base: base}
}
