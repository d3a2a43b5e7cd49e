package logging

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
)

// ANSI escapes used on terminals.
const (
	ColorReset  = "\033[0m"
	ColorRed    = "\033[31m"
	ColorYellow = "\033[33m"
	ColorBold   = "\033[1m"
)

// Level orders log severities.
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
	FatalLevel
)

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR", "FATAL"}

func (l Level) String() string {
	if l < DebugLevel || int(l) >= len(levelNames) {
		return "UNKNOWN"
	}
	return levelNames[l]
}

// ParseLevel converts a configuration string such as "debug" or "WARN" into a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DebugLevel, nil
	case "info", "":
		return InfoLevel, nil
	case "warn", "warning":
		return WarnLevel, nil
	case "error":
		return ErrorLevel, nil
	case "fatal":
		return FatalLevel, nil
	default:
		return InfoLevel, fmt.Errorf("unknown log level %q", s)
	}
}

// Fields are key/value pairs appended to a log line.
type Fields map[string]any

// Logger is the logging surface every package in this module writes through.
type Logger interface {
	Debug(msg string, fields ...Fields)
	Info(msg string, fields ...Fields)
	Warn(msg string, fields ...Fields)
	Error(err error, msg string, fields ...Fields)
	Fatal(err error, msg string, fields ...Fields)

	// WithFields returns a logger with preset fields
	WithFields(fields Fields) Logger

	// WithContext returns a logger carrying the fields stored in ctx by ContextWithFields
	WithContext(ctx context.Context) Logger

	// SetLevel sets the minimum log level
	SetLevel(level Level)
}

type fieldsKey struct{}

// ContextWithFields attaches logging fields to ctx for later use by WithContext.
func ContextWithFields(ctx context.Context, fields Fields) context.Context {
	return context.WithValue(ctx, fieldsKey{}, fields)
}

func fieldsFromContext(ctx context.Context) (Fields, bool) {
	if ctx == nil {
		return nil, false
	}
	fields, ok := ctx.Value(fieldsKey{}).(Fields)
	return fields, ok
}

type holder struct{ Logger }

var global atomic.Pointer[holder]

func init() {
	global.Store(&holder{NewDefaultLogger()})
}

// SetGlobalLogger replaces the process-wide logger. nil installs a NoOpLogger.
func SetGlobalLogger(logger Logger) {
	if logger == nil {
		logger = &NoOpLogger{}
	}
	global.Store(&holder{logger})
}

// GetGlobalLogger returns the process-wide logger. Sessions built without
// WithLogger log through it.
func GetGlobalLogger() Logger {
	return global.Load().Logger
}

func Debug(msg string, fields ...Fields)            { GetGlobalLogger().Debug(msg, fields...) }
func Info(msg string, fields ...Fields)             { GetGlobalLogger().Info(msg, fields...) }
func Warn(msg string, fields ...Fields)             { GetGlobalLogger().Warn(msg, fields...) }
func Error(err error, msg string, fields ...Fields) { GetGlobalLogger().Error(err, msg, fields...) }
func Fatal(err error, msg string, fields ...Fields) { GetGlobalLogger().Fatal(err, msg, fields...) }
func WithFields(fields Fields) Logger               { return GetGlobalLogger().WithFields(fields) }
func WithContext(ctx context.Context) Logger        { return GetGlobalLogger().WithContext(ctx) }
func SetLevel(level Level)                          { GetGlobalLogger().SetLevel(level) }

// DisableColors turns off ANSI colors on the global logger if it is a DefaultLogger.
func DisableColors() {
	if d, ok := GetGlobalLogger().(*DefaultLogger); ok {
		d.out.mu.Lock()
		d.out.useColors = false
		d.out.mu.Unlock()
	}
}
