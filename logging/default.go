package logging

import (
	"context"
	"fmt"
	"io"
	"log"
	"maps"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"
)

// sink is the output shared by a DefaultLogger and every logger derived from
// it through WithFields or WithContext. SetLevel on any of them applies to all.
type sink struct {
	mu        sync.Mutex
	stdout    *log.Logger // Debug, Info
	stderr    *log.Logger // Warn, Error, Fatal
	level     Level
	useColors bool
	exit      func(code int)
}

func (s *sink) enabled(level Level) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return level >= s.level
}

// DefaultLogger writes one line per entry through the standard log package.
// Warnings and errors go to stderr, colored on terminals.
type DefaultLogger struct {
	out    *sink
	fields Fields
}

// NewDefaultLogger creates a logger on os.Stdout and os.Stderr.
func NewDefaultLogger() *DefaultLogger {
	l := NewDefaultLoggerWithWriters(os.Stdout, os.Stderr)
	l.out.useColors = isTerminal()
	return l
}

// NewDefaultLoggerWithWriters creates an uncolored logger writing to the given sinks.
// Fatal writes its message and then exits the process.
func NewDefaultLoggerWithWriters(stdout, stderr io.Writer) *DefaultLogger {
	return &DefaultLogger{
		out: &sink{
			stdout: log.New(stdout, "", log.LstdFlags),
			stderr: log.New(stderr, "", log.LstdFlags),
			level:  InfoLevel,
			exit:   os.Exit,
		},
	}
}

// isTerminal reports whether stdout is a character device.
func isTerminal() bool {
	if fileInfo, _ := os.Stdout.Stat(); fileInfo != nil {
		return (fileInfo.Mode() & os.ModeCharDevice) != 0
	}
	return false
}

var levelColors = map[Level]string{
	WarnLevel:  ColorYellow,
	ErrorLevel: ColorRed,
	FatalLevel: ColorBold + ColorRed,
}

// formatValue quotes strings that would otherwise break the key=value layout.
func formatValue(v any) string {
	s := fmt.Sprint(v)
	if s == "" || strings.ContainsAny(s, " \t\n\"=") {
		return strconv.Quote(s)
	}
	return s
}

// format renders "[LEVEL] msg: err {k=v ...}" with keys sorted.
func (d *DefaultLogger) format(level Level, err error, msg string, extra []Fields) string {
	merged := maps.Clone(d.fields)
	if merged == nil {
		merged = make(Fields)
	}
	for _, f := range extra {
		maps.Copy(merged, f)
	}

	var sb strings.Builder
	sb.WriteString("[" + level.String() + "] " + msg)
	if err != nil {
		sb.WriteString(": " + err.Error())
	}
	if len(merged) > 0 {
		sb.WriteString(" {")
		for i, k := range slices.Sorted(maps.Keys(merged)) {
			if i > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(k + "=" + formatValue(merged[k]))
		}
		sb.WriteByte('}')
	}
	return sb.String()
}

func (d *DefaultLogger) log(level Level, err error, msg string, extra []Fields) {
	if !d.out.enabled(level) {
		return
	}
	line := d.format(level, err, msg, extra)

	d.out.mu.Lock()
	defer d.out.mu.Unlock()
	if color, ok := levelColors[level]; ok && d.out.useColors {
		line = color + line + ColorReset
	}
	if level < WarnLevel {
		d.out.stdout.Println(line)
		return
	}
	d.out.stderr.Println(line)
	if level == FatalLevel {
		d.out.exit(1)
	}
}

func (d *DefaultLogger) Debug(msg string, fields ...Fields) { d.log(DebugLevel, nil, msg, fields) }
func (d *DefaultLogger) Info(msg string, fields ...Fields)  { d.log(InfoLevel, nil, msg, fields) }
func (d *DefaultLogger) Warn(msg string, fields ...Fields)  { d.log(WarnLevel, nil, msg, fields) }

func (d *DefaultLogger) Error(err error, msg string, fields ...Fields) {
	d.log(ErrorLevel, err, msg, fields)
}

func (d *DefaultLogger) Fatal(err error, msg string, fields ...Fields) {
	d.log(FatalLevel, err, msg, fields)
}

// WithFields returns a child sharing this logger's output and level.
func (d *DefaultLogger) WithFields(fields Fields) Logger {
	merged := make(Fields, len(d.fields)+len(fields))
	maps.Copy(merged, d.fields)
	maps.Copy(merged, fields)
	return &DefaultLogger{out: d.out, fields: merged}
}

func (d *DefaultLogger) WithContext(ctx context.Context) Logger {
	if fields, ok := fieldsFromContext(ctx); ok {
		return d.WithFields(fields)
	}
	return d
}

func (d *DefaultLogger) SetLevel(level Level) {
	d.out.mu.Lock()
	d.out.level = level
	d.out.mu.Unlock()
}

// NoOpLogger discards everything. Sessions created without a logger in tests use it.
type NoOpLogger struct{}

func (n *NoOpLogger) Debug(msg string, fields ...Fields)            {}
func (n *NoOpLogger) Info(msg string, fields ...Fields)             {}
func (n *NoOpLogger) Warn(msg string, fields ...Fields)             {}
func (n *NoOpLogger) Error(err error, msg string, fields ...Fields) {}
func (n *NoOpLogger) Fatal(err error, msg string, fields ...Fields) {}
func (n *NoOpLogger) WithFields(fields Fields) Logger               { return n }
func (n *NoOpLogger) WithContext(ctx context.Context) Logger        { return n }
func (n *NoOpLogger) SetLevel(level Level)                          {}
