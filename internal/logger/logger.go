package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/hashicorp/go-hclog"
)

// Level is a log verbosity.
type Level int

const (
	TraceLevel Level = iota
	DebugLevel
	InfoLevel
	WarnLevel
	ErrorLevel
	FatalLevel
	PanicLevel
)

var (
	mu    sync.RWMutex
	level = InfoLevel
	base  = newHCLog(os.Stderr, InfoLevel, false)
)

func newHCLog(w io.Writer, lvl Level, json bool) hclog.Logger {
	return hclog.New(&hclog.LoggerOptions{
		Name:       "dogcmd",
		Level:      toHCLevel(lvl),
		Output:     w,
		JSONFormat: json,
	})
}

func toHCLevel(l Level) hclog.Level {
	switch l {
	case TraceLevel:
		return hclog.Trace
	case DebugLevel:
		return hclog.Debug
	case InfoLevel:
		return hclog.Info
	case WarnLevel:
		return hclog.Warn
	default:
		return hclog.Error
	}
}

// ParseLevel accepts trace, debug, info, warn, error, fatal and panic.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return TraceLevel, nil
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
	case "panic":
		return PanicLevel, nil
	default:
		return InfoLevel, fmt.Errorf("invalid log level: %q", s)
	}
}

func (l Level) String() string {
	switch l {
	case TraceLevel:
		return "trace"
	case DebugLevel:
		return "debug"
	case InfoLevel:
		return "info"
	case WarnLevel:
		return "warn"
	case ErrorLevel:
		return "error"
	case FatalLevel:
		return "fatal"
	default:
		return "panic"
	}
}

// SetLevel changes the global verbosity.
func SetLevel(l Level) {
	mu.Lock()
	defer mu.Unlock()
	level = l
	base.SetLevel(toHCLevel(l))
}

// GetLevel returns the global verbosity.
func GetLevel() Level {
	mu.RLock()
	defer mu.RUnlock()
	return level
}

// SetOutput redirects logs. json switches to hclog's JSON format.
func SetOutput(w io.Writer, json bool) {
	mu.Lock()
	defer mu.Unlock()
	base = newHCLog(w, level, json)
}

func current() (hclog.Logger, Level) {
	mu.RLock()
	defer mu.RUnlock()
	return base, level
}

func Trace(format string, args ...any) {
	if l, lvl := current(); lvl <= TraceLevel {
		l.Trace(fmt.Sprintf(format, args...))
	}
}

func Debug(format string, args ...any) {
	if l, lvl := current(); lvl <= DebugLevel {
		l.Debug(fmt.Sprintf(format, args...))
	}
}

func Info(format string, args ...any) {
	if l, lvl := current(); lvl <= InfoLevel {
		l.Info(fmt.Sprintf(format, args...))
	}
}

func Warn(format string, args ...any) {
	if l, lvl := current(); lvl <= WarnLevel {
		l.Warn(fmt.Sprintf(format, args...))
	}
}

func Error(format string, args ...any) {
	l, _ := current()
	l.Error(fmt.Sprintf(format, args...))
}

// Fatal logs and exits with status 1.
func Fatal(format string, args ...any) {
	l, _ := current()
	l.Error(fmt.Sprintf(format, args...))
	os.Exit(1)
}
