package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestLevel_String(t *testing.T) {
	tests := []struct {
		level    Level
		expected string
	}{
		{LevelDebug, "DEBUG"},
		{LevelInfo, "INFO"},
		{LevelWarn, "WARN"},
		{LevelError, "ERROR"},
		{Level(99), "UNKNOWN"},
	}

	for _, tt := range tests {
		if got := tt.level.String(); got != tt.expected {
			t.Errorf("Level(%d).String() = %q, expected %q", tt.level, got, tt.expected)
		}
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
	}{
		{"debug", LevelDebug},
		{"DEBUG", LevelDebug},
		{"info", LevelInfo},
		{"warning", LevelWarn},
		{"WARN", LevelWarn},
		{"error", LevelError},
		{"bogus", LevelInfo},
		{"", LevelInfo},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.input); got != tt.expected {
			t.Errorf("ParseLevel(%q) = %v, expected %v", tt.input, got, tt.expected)
		}
	}
}

func TestLogger_Filtering(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: LevelWarn, Output: &buf, Prefix: "test"})

	logger.Debug("debug")
	logger.Info("info")
	logger.Warn("warn %d", 1)
	logger.Error("error")

	output := buf.String()
	if strings.Contains(output, "[DEBUG]") || strings.Contains(output, "[INFO]") {
		t.Errorf("expected debug/info to be filtered, got: %s", output)
	}
	if !strings.Contains(output, "[WARN] test: warn 1") {
		t.Errorf("expected formatted warning, got: %s", output)
	}
	if !strings.Contains(output, "[ERROR]") {
		t.Error("expected ERROR in output")
	}
}

func TestLogger_FieldsAreSorted(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: LevelInfo, Output: &buf})

	logger.WithFields(map[string]any{"zeta": 2, "alpha": "a"}).WithField("mid", true).Info("x")

	if !strings.Contains(buf.String(), "{alpha=a, mid=true, zeta=2}") {
		t.Errorf("unexpected field rendering: %s", buf.String())
	}
}

func TestLogger_WithComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: LevelInfo, Output: &buf, Prefix: "stepwise"})

	logger.WithComponent("breakpoints").Info("set")

	if !strings.Contains(buf.String(), "breakpoints: set") {
		t.Errorf("expected component prefix, got: %s", buf.String())
	}
}

func TestLogger_DerivedSharesLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: LevelInfo, Output: &buf})
	child := logger.WithField("k", "v")

	child.Debug("hidden")
	if buf.Len() != 0 {
		t.Fatalf("expected no output, got: %s", buf.String())
	}
}

func TestNop(t *testing.T) {
	l := Nop()
	l.Error("nothing")
	l.WithComponent("x").Info("still nothing")
}
