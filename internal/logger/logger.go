// Package logger provides leveled logging for the docqa CLI and server.
// By default only errors are printed; --verbose lowers the threshold to
// debug and --log-level picks any level. Output goes to stderr unless
// redirected.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Level is a log severity.
type Level int

// Levels in increasing severity.
const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR"}

func (l Level) String() string {
	if l < LevelDebug || l > LevelError {
		return fmt.Sprintf("Level(%d)", int(l))
	}
	return levelNames[l]
}

// ParseLevel accepts debug, info, warn (or warning) and error, in any case.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelError, fmt.Errorf("unknown log level %q", s)
	}
}

// Writers are not assumed to be goroutine safe, so mu also serialises output.
var (
	mu         sync.Mutex
	threshold            = LevelError
	output     io.Writer = os.Stderr
	timestamps bool
	now        = time.Now
)

// SetVerbose switches between debug output and errors only.
func SetVerbose(v bool) {
	if v {
		SetLevel(LevelDebug)
		return
	}
	SetLevel(LevelError)
}

// IsVerbose reports whether debug messages are printed.
func IsVerbose() bool {
	mu.Lock()
	defer mu.Unlock()
	return threshold <= LevelDebug
}

// SetLevel prints messages at l and above.
func SetLevel(l Level) {
	mu.Lock()
	defer mu.Unlock()
	threshold = l
}

// SetOutput sets the output writer for logs.
// Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

// SetTimestamps prefixes every line with an RFC 3339 time. Long running
// commands (serve, mcp --http) turn it on.
func SetTimestamps(on bool) {
	mu.Lock()
	defer mu.Unlock()
	timestamps = on
}

func logf(level Level, format string, args ...any) {
	mu.Lock()
	defer mu.Unlock()
	if level < threshold {
		return
	}
	prefix := "[" + level.String() + "] "
	if timestamps {
		prefix = now().UTC().Format(time.RFC3339) + " " + prefix
	}
	fmt.Fprintf(output, prefix+format+"\n", args...)
}

// Debug logs pipeline detail such as chunk counts and scores.
func Debug(format string, args ...any) {
	logf(LevelDebug, format, args...)
}

// Section prints a section header when debug output is on.
func Section(name string) {
	mu.Lock()
	defer mu.Unlock()
	if threshold <= LevelDebug {
		fmt.Fprintf(output, "\n=== %s ===\n", name)
	}
}

// Info logs outcomes and latencies.
func Info(format string, args ...any) {
	logf(LevelInfo, format, args...)
}

// Warn logs failures that were recovered from.
func Warn(format string, args ...any) {
	logf(LevelWarn, format, args...)
}

// Error logs at the highest level, which is always printed.
func Error(format string, args ...any) {
	logf(LevelError, format, args...)
}
