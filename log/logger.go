// Package log is the observability sink of textwire.
//
// Framing calls never fail loudly for conditions a caller can recover from:
// they fold them into a result value and report the details here. The library
// stays silent by default (NopLogger); hosts redirect the sink by injecting
// their own Logger, a StdLogger on any io.Writer, or a zerolog logger.
package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Level is the severity of a log message.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	// LevelSilent disables all output.
	LevelSilent
)

var levelNames = [...]string{
	LevelDebug: "DEBUG",
	LevelInfo:  "INFO",
	LevelWarn:  "WARN",
	LevelError: "ERROR",
}

// String returns the upper-case level name, or "UNKNOWN" for LevelSilent and
// values out of range.
func (l Level) String() string {
	if l < 0 || int(l) >= len(levelNames) {
		return "UNKNOWN"
	}
	return levelNames[l]
}

// ParseLevel maps a configuration string (case-insensitive) to a Level.
// "off" and "none" are accepted as aliases of "silent".
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "info", "":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	case "silent", "off", "none":
		return LevelSilent, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// Logger is the sink used for non-fatal condition reporting.
// Implementations must be safe for concurrent use: several sessions may
// report through the same logger.
type Logger interface {
	Debug(format string, args ...interface{})
	Info(format string, args ...interface{})
	Warn(format string, args ...interface{})
	Error(format string, args ...interface{})
}

// NopLogger discards everything.
type NopLogger struct{}

func (NopLogger) Debug(format string, args ...interface{}) {}
func (NopLogger) Info(format string, args ...interface{})  {}
func (NopLogger) Warn(format string, args ...interface{})  {}
func (NopLogger) Error(format string, args ...interface{}) {}

// Nop returns the silent logger used when none is configured.
func Nop() Logger {
	return NopLogger{}
}

// StdLogger writes one timestamped line per message to an io.Writer,
// dropping messages below its level.
type StdLogger struct {
	mu     sync.Mutex
	writer io.Writer
	level  Level
	prefix string
}

// StdLoggerOption configures a StdLogger.
type StdLoggerOption func(*StdLogger)

// WithWriter sets the destination, os.Stderr by default.
func WithWriter(w io.Writer) StdLoggerOption {
	return func(l *StdLogger) {
		l.writer = w
	}
}

// WithLevel sets the minimum level written.
func WithLevel(level Level) StdLoggerOption {
	return func(l *StdLogger) {
		l.level = level
	}
}

// WithPrefix sets the tag placed before the level. An empty prefix omits it.
func WithPrefix(prefix string) StdLoggerOption {
	return func(l *StdLogger) {
		l.prefix = prefix
	}
}

// NewStdLogger creates a StdLogger writing to stderr at Info level.
func NewStdLogger(opts ...StdLoggerOption) *StdLogger {
	l := &StdLogger{
		writer: os.Stderr,
		level:  LevelInfo,
		prefix: "[textwire]",
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *StdLogger) log(level Level, format string, args ...interface{}) {
	if level < l.level {
		return
	}

	var b strings.Builder
	b.WriteString(time.Now().Format("2006-01-02 15:04:05.000"))
	if l.prefix != "" {
		b.WriteByte(' ')
		b.WriteString(l.prefix)
	}
	b.WriteByte(' ')
	b.WriteString(level.String())
	b.WriteByte(' ')
	fmt.Fprintf(&b, format, args...)
	b.WriteByte('\n')

	l.mu.Lock()
	io.WriteString(l.writer, b.String())
	l.mu.Unlock()
}

func (l *StdLogger) Debug(format string, args ...interface{}) { l.log(LevelDebug, format, args...) }
func (l *StdLogger) Info(format string, args ...interface{})  { l.log(LevelInfo, format, args...) }
func (l *StdLogger) Warn(format string, args ...interface{})  { l.log(LevelWarn, format, args...) }
func (l *StdLogger) Error(format string, args ...interface{}) { l.log(LevelError, format, args...) }

// Tagged returns a Logger that puts "tag: " in front of every message
// before handing it to l. Sessions use the peer address as tag so that
// interleaved framing reports stay attributable.
func Tagged(l Logger, tag string) Logger {
	if l == nil {
		return Nop()
	}
	if _, ok := l.(NopLogger); ok {
		return l
	}
	return &taggedLogger{next: l, tag: tag + ": "}
}

type taggedLogger struct {
	next Logger
	tag  string
}

func (t *taggedLogger) Debug(format string, args ...interface{}) {
	t.next.Debug("%s%s", t.tag, fmt.Sprintf(format, args...))
}

func (t *taggedLogger) Info(format string, args ...interface{}) {
	t.next.Info("%s%s", t.tag, fmt.Sprintf(format, args...))
}

func (t *taggedLogger) Warn(format string, args ...interface{}) {
	t.next.Warn("%s%s", t.tag, fmt.Sprintf(format, args...))
}

func (t *taggedLogger) Error(format string, args ...interface{}) {
	t.next.Error("%s%s", t.tag, fmt.Sprintf(format, args...))
}
