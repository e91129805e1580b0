package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// Level represents log severity
type Level string

const (
	// LevelDebug indicates fine-grained diagnostic logging.
	LevelDebug Level = "debug"
	// LevelInfo indicates informational logging.
	LevelInfo Level = "info"
	// LevelWarn indicates non-fatal warnings.
	LevelWarn Level = "warn"
	// LevelError indicates error logging requiring attention.
	LevelError Level = "error"
)

// Format selects how events are encoded on the output.
type Format string

const (
	// FormatJSON writes one JSON object per line.
	FormatJSON Format = "json"
	// FormatText writes a single human readable line per event.
	FormatText Format = "text"
)

var levelRank = map[Level]int{
	LevelDebug: 0,
	LevelInfo:  1,
	LevelWarn:  2,
	LevelError: 3,
}

// ParseLevel converts a config string into a Level, defaulting to info.
func ParseLevel(s string) Level {
	lvl := Level(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := levelRank[lvl]; ok {
		return lvl
	}
	return LevelInfo
}

// Event represents a structured log event
type Event struct {
	Timestamp string                 `json:"ts"`
	Level     Level                  `json:"level"`
	Type      string                 `json:"type"`
	Message   string                 `json:"message"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
}

// Logger provides structured logging
type Logger struct {
	mu       sync.Mutex
	minLevel Level
	format   Format
	output   io.Writer
	logFile  *os.File
}

// NewLogger creates a new logger writing JSON events to stderr
func NewLogger(minLevel Level) *Logger {
	return &Logger{
		minLevel: minLevel,
		format:   FormatJSON,
		output:   os.Stderr,
	}
}

// NewWriterLogger creates a logger writing to w in the given format
func NewWriterLogger(minLevel Level, format Format, w io.Writer) *Logger {
	if format != FormatText {
		format = FormatJSON
	}
	return &Logger{
		minLevel: minLevel,
		format:   format,
		output:   w,
	}
}

// NewFileLogger creates a new logger appending JSON events to a file
func NewFileLogger(minLevel Level, logFilePath string) (*Logger, error) {
	logDir := filepath.Dir(logFilePath)
	if err := os.MkdirAll(logDir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	logFile, err := os.OpenFile(filepath.Clean(logFilePath), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	return &Logger{
		minLevel: minLevel,
		format:   FormatJSON,
		output:   logFile,
		logFile:  logFile,
	}, nil
}

// Close closes the log file if open
func (l *Logger) Close() error {
	if l.logFile != nil {
		return l.logFile.Close()
	}
	return nil
}

// Log writes a structured log event
func (l *Logger) Log(level Level, eventType, message string, payload map[string]interface{}) {
	if l == nil || !l.shouldLog(level) {
		return
	}

	event := Event{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Level:     level,
		Type:      eventType,
		Message:   message,
		Payload:   payload,
	}

	line, err := l.encode(event)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to marshal log event: %v\n", err)
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	output := l.output
	if output == nil {
		output = os.Stderr
	}

	if _, err := fmt.Fprintln(output, line); err != nil {
		// Best-effort logging: fallback to stderr when the primary writer fails
		if output != os.Stderr {
			fmt.Fprintf(os.Stderr, "Failed to write log event: %v\n", err)
		}
	}
}

func (l *Logger) encode(event Event) (string, error) {
	if l.format != FormatText {
		data, err := json.Marshal(event)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %-5s %s: %s", event.Timestamp, strings.ToUpper(string(event.Level)), event.Type, event.Message)

	keys := make([]string, 0, len(event.Payload))
	for k := range event.Payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, event.Payload[k])
	}
	return b.String(), nil
}

// Debug logs a debug-level event
func (l *Logger) Debug(eventType, message string, payload map[string]interface{}) {
	l.Log(LevelDebug, eventType, message, payload)
}

// Info logs an info-level event
func (l *Logger) Info(eventType, message string, payload map[string]interface{}) {
	l.Log(LevelInfo, eventType, message, payload)
}

// Warn logs a warn-level event
func (l *Logger) Warn(eventType, message string, payload map[string]interface{}) {
	l.Log(LevelWarn, eventType, message, payload)
}

// Error logs an error-level event
func (l *Logger) Error(eventType, message string, payload map[string]interface{}) {
	l.Log(LevelError, eventType, message, payload)
}

// shouldLog determines if a log level should be output
func (l *Logger) shouldLog(level Level) bool {
	return levelRank[level] >= levelRank[l.minLevel]
}
