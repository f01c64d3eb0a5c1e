package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"go.uber.org/atomic"
)

// Level is the verbosity threshold. Lower values are more verbose.
type Level int32

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var (
	level  = atomic.NewInt32(int32(LevelInfo))
	std    = log.New(os.Stderr, "powerhal: ", log.LstdFlags|log.Lmicroseconds)
	exitFn = os.Exit
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return fmt.Sprintf("level(%d)", int32(l))
	}
}

// ParseLevel parses a level name (debug, info, warn, error).
func ParseLevel(raw string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug", "verbose":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	}
	return LevelInfo, fmt.Errorf("unknown log level %q", raw)
}

// SetLevel sets the global threshold.
func SetLevel(l Level) {
	level.Store(int32(l))
}

// Enabled reports whether messages at l would be emitted.
func Enabled(l Level) bool {
	return l >= Level(level.Load())
}

// SetOutput replaces the writer used by the global logger.
func SetOutput(w io.Writer) {
	std.SetOutput(w)
}

func logf(l Level, tag, format string, args ...any) {
	if !Enabled(l) {
		return
	}
	std.Output(3, tag+" "+fmt.Sprintf(format, args...))
}

func Debugf(format string, args ...any) { logf(LevelDebug, "D", format, args...) }
func Infof(format string, args ...any)  { logf(LevelInfo, "I", format, args...) }
func Warnf(format string, args ...any)  { logf(LevelWarn, "W", format, args...) }
func Errorf(format string, args ...any) { logf(LevelError, "E", format, args...) }

// Fatalf logs unconditionally and terminates the process.
func Fatalf(format string, args ...any) {
	std.Output(2, "F "+fmt.Sprintf(format, args...))
	exitFn(1)
}
