package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", LevelDebug},
		{"INFO", LevelInfo},
		{" warn ", LevelWarn},
		{"error", LevelError},
		{"verbose", LevelInfo},
		{"", LevelInfo},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestLogger_ShouldLog(t *testing.T) {
	tests := []struct {
		name     string
		minLevel Level
		logLevel Level
		want     bool
	}{
		{"debug logs when min is debug", LevelDebug, LevelDebug, true},
		{"error logs when min is debug", LevelDebug, LevelError, true},
		{"debug does not log when min is info", LevelInfo, LevelDebug, false},
		{"warn logs when min is info", LevelInfo, LevelWarn, true},
		{"info does not log when min is error", LevelError, LevelInfo, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := NewLogger(tt.minLevel)
			if got := logger.shouldLog(tt.logLevel); got != tt.want {
				t.Errorf("shouldLog() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLogger_JSONEvent(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger(LevelInfo, FormatJSON, &buf)

	logger.Warn("fallback.triggered", "GPU fallback", map[string]interface{}{
		"from": "GPU:0 (RTX 3080)",
		"to":   "CPU",
	})

	var event Event
	if err := json.Unmarshal(buf.Bytes(), &event); err != nil {
		t.Fatalf("Failed to parse log output as JSON: %v\nOutput: %s", err, buf.String())
	}

	if event.Level != LevelWarn {
		t.Errorf("Expected level %s, got %s", LevelWarn, event.Level)
	}
	if event.Type != "fallback.triggered" {
		t.Errorf("Expected type 'fallback.triggered', got %s", event.Type)
	}
	if event.Payload["to"] != "CPU" {
		t.Errorf("Expected payload to=CPU, got %v", event.Payload["to"])
	}
	if event.Timestamp == "" {
		t.Error("Expected timestamp to be set")
	}
}

func TestLogger_TextEvent(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger(LevelDebug, FormatText, &buf)

	logger.Debug("gpu.device.detected", "GPU device detected", map[string]interface{}{
		"name":      "NVIDIA GeForce RTX 4090",
		"device_id": 1,
	})

	line := buf.String()
	if !strings.Contains(line, "DEBUG gpu.device.detected: GPU device detected") {
		t.Errorf("unexpected text line: %s", line)
	}
	// payload keys are sorted
	if strings.Index(line, "device_id=1") > strings.Index(line, "name=") {
		t.Errorf("expected sorted payload keys, got: %s", line)
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger(LevelWarn, FormatJSON, &buf)

	logger.Debug("test.debug", "Debug message", nil)
	logger.Info("test.info", "Info message", nil)
	logger.Error("test.error", "Error message", nil)

	out := buf.String()
	if strings.Contains(out, "test.debug") || strings.Contains(out, "test.info") {
		t.Errorf("filtered events were written: %s", out)
	}
	if !strings.Contains(out, "test.error") {
		t.Error("Error event was not logged")
	}
}

func TestLogger_NilIsNoop(t *testing.T) {
	var logger *Logger
	logger.Info("test.nil", "nothing happens", nil)
}

func TestFileLogger_Append(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "logs", "gpuguard.log")

	for _, eventType := range []string{"test.first", "test.second"} {
		logger, err := NewFileLogger(LevelInfo, logPath)
		if err != nil {
			t.Fatalf("Failed to create file logger: %v", err)
		}
		logger.Info(eventType, "message", nil)
		if err := logger.Close(); err != nil {
			t.Fatalf("Failed to close logger: %v", err)
		}
	}

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %s", len(lines), content)
	}
	if !strings.Contains(lines[1], "test.second") {
		t.Error("Second event was not appended")
	}
}
