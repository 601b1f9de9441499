package logger

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"
)

// LogLevel represents the severity of a log message
type LogLevel int

const (
	// LevelDebug is for detailed debugging information
	LevelDebug LogLevel = iota
	// LevelInfo is for general informational messages
	LevelInfo
	// LevelWarn is for warning messages
	LevelWarn
	// LevelError is for error messages
	LevelError
)

// String returns the string representation of a log level
func (l LogLevel) String() string {
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
		return "UNKNOWN"
	}
}

// ParseLevel converts a level name to a LogLevel. Unknown names map to
// LevelInfo.
func ParseLevel(name string) LogLevel {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "DEBUG":
		return LevelDebug
	case "WARN", "WARNING":
		return LevelWarn
	case "ERROR":
		return LevelError
	default:
		return LevelInfo
	}
}

// Logger provides leveled logging to a single writer
type Logger struct {
	level  LogLevel
	writer io.Writer
}

// New creates a new logger
func New(level LogLevel, writer io.Writer) *Logger {
	if writer == nil {
		writer = os.Stderr
	}
	return &Logger{level: level, writer: writer}
}

// Default returns a logger with default settings (INFO level, stderr)
func Default() *Logger {
	return New(LevelInfo, os.Stderr)
}

// Silent returns a logger that doesn't output anything
func Silent() *Logger {
	return New(LevelError, io.Discard)
}

// SetLevel sets the minimum log level
func (l *Logger) SetLevel(level LogLevel) {
	l.level = level
}

// log writes a log message if the level is high enough
func (l *Logger) log(level LogLevel, fields map[string]string, format string, args ...interface{}) {
	if level < l.level {
		return
	}

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	message := fmt.Sprintf(format, args...)

	fieldsStr := ""
	if len(fields) > 0 {
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		pairs := make([]string, 0, len(keys))
		for _, k := range keys {
			pairs = append(pairs, fmt.Sprintf("%s=%s", k, fields[k]))
		}
		fieldsStr = " [" + strings.Join(pairs, ", ") + "]"
	}

	fmt.Fprintf(l.writer, "[%s] %s%s: %s\n", timestamp, level.String(), fieldsStr, message)
}

// Debug logs a debug message
func (l *Logger) Debug(format string, args ...interface{}) {
	l.log(LevelDebug, nil, format, args...)
}

// Info logs an info message
func (l *Logger) Info(format string, args ...interface{}) {
	l.log(LevelInfo, nil, format, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(format string, args ...interface{}) {
	l.log(LevelWarn, nil, format, args...)
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	l.log(LevelError, nil, format, args...)
}

// WithField returns a logger view that attaches a field to every message
func (l *Logger) WithField(key, value string) *FieldLogger {
	return &FieldLogger{logger: l, fields: map[string]string{key: value}}
}

// FieldLogger is a logger with attached fields
type FieldLogger struct {
	logger *Logger
	fields map[string]string
}

// WithField adds another field
func (fl *FieldLogger) WithField(key, value string) *FieldLogger {
	fields := make(map[string]string, len(fl.fields)+1)
	for k, v := range fl.fields {
		fields[k] = v
	}
	fields[key] = value
	return &FieldLogger{logger: fl.logger, fields: fields}
}

// Debug logs a debug message
func (fl *FieldLogger) Debug(format string, args ...interface{}) {
	fl.logger.log(LevelDebug, fl.fields, format, args...)
}

// Info logs an info message
func (fl *FieldLogger) Info(format string, args ...interface{}) {
	fl.logger.log(LevelInfo, fl.fields, format, args...)
}

// Warn logs a warning message
func (fl *FieldLogger) Warn(format string, args ...interface{}) {
	fl.logger.log(LevelWarn, fl.fields, format, args...)
}

// Error logs an error message
func (fl *FieldLogger) Error(format string, args ...interface{}) {
	fl.logger.log(LevelError, fl.fields, format, args...)
}
