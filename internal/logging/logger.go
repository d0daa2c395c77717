// Package logging provides leveled, key-value logging for litctl. Playback
// runs interleaved with timer callbacks and device I/O, so log lines carry
// structured fields rather than free-form formatting.
package logging

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

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String returns the level's label.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return fmt.Sprintf("LEVEL(%d)", int(l))
	}
}

// ParseLevel converts a level name (case-insensitive) to a Level.
func ParseLevel(name string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return LevelDebug, nil
	case "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level: %q", name)
	}
}

// field is a single key-value pair. Fields keep insertion order so log lines
// are stable and diffable.
type field struct {
	key   string
	value any
}

// Logger writes leveled log lines with structured fields.
type Logger struct {
	mu       sync.Mutex
	minLevel Level
	out      io.Writer
	fields   []field
	now      func() time.Time
}

var defaultLogger = New(os.Stderr)

// Default returns the package-level logger.
func Default() *Logger {
	return defaultLogger
}

// New creates a Logger writing to out at the default Warn level.
func New(out io.Writer) *Logger {
	return &Logger{
		minLevel: LevelWarn,
		out:      out,
		now:      time.Now,
	}
}

// SetLevel sets the minimum level that will be written.
func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.minLevel = level
}

// With returns a child logger that includes the given field on every line.
func (l *Logger) With(key string, value any) *Logger {
	l.mu.Lock()
	defer l.mu.Unlock()

	fields := make([]field, len(l.fields), len(l.fields)+1)
	copy(fields, l.fields)
	fields = append(fields, field{key: key, value: value})

	return &Logger{
		minLevel: l.minLevel,
		out:      l.out,
		fields:   fields,
		now:      l.now,
	}
}

// Debug logs at debug level.
func (l *Logger) Debug(msg string, keyVals ...any) { l.write(LevelDebug, msg, keyVals) }

// Info logs at info level.
func (l *Logger) Info(msg string, keyVals ...any) { l.write(LevelInfo, msg, keyVals) }

// Warn logs at warn level.
func (l *Logger) Warn(msg string, keyVals ...any) { l.write(LevelWarn, msg, keyVals) }

// Error logs at error level.
func (l *Logger) Error(msg string, keyVals ...any) { l.write(LevelError, msg, keyVals) }

func (l *Logger) write(level Level, msg string, keyVals []any) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if level < l.minLevel {
		return
	}

	var sb strings.Builder
	sb.WriteString(l.now().Format("2006-01-02 15:04:05"))
	sb.WriteString(" ")
	sb.WriteString(level.String())
	sb.WriteString(": ")
	sb.WriteString(msg)

	for _, f := range l.fields {
		writeField(&sb, f.key, f.value)
	}
	for i := 0; i+1 < len(keyVals); i += 2 {
		key, ok := keyVals[i].(string)
		if !ok {
			key = fmt.Sprint(keyVals[i])
		}
		writeField(&sb, key, keyVals[i+1])
	}
	sb.WriteString("\n")

	fmt.Fprint(l.out, sb.String())
}

func writeField(sb *strings.Builder, key string, value any) {
	sb.WriteString(" ")
	sb.WriteString(key)
	sb.WriteString("=")

	switch v := value.(type) {
	case string:
		if strings.ContainsAny(v, " \t\n") {
			fmt.Fprintf(sb, "%q", v)
		} else {
			sb.WriteString(v)
		}
	case error:
		fmt.Fprintf(sb, "%q", v.Error())
	default:
		fmt.Fprint(sb, v)
	}
}
