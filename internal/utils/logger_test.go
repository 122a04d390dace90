// internal/utils/logger_test.go

package utils

import (
	"bytes"
	"strings"
	"testing"
)

func newBufferLogger(level LogLevel) (*ConsoleLogger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	return &ConsoleLogger{
		level:  level,
		fields: make(map[string]interface{}),
		out:    buf,
	}, buf
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
	}{
		{"debug", DebugLevel},
		{"info", InfoLevel},
		{"warn", WarnLevel},
		{"warning", WarnLevel},
		{"error", ErrorLevel},
		{"ERROR", ErrorLevel},
		{"", InfoLevel},
		{"nonsense", InfoLevel},
	}
	for _, tt := range tests {
		if got := ParseLogLevel(tt.in); got != tt.want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLogLevelFiltering(t *testing.T) {
	l, buf := newBufferLogger(WarnLevel)

	l.Debug("debug message")
	l.Info("info message")
	l.Warn("warn message")
	l.Error("error message")

	out := buf.String()
	if strings.Contains(out, "debug message") || strings.Contains(out, "info message") {
		t.Errorf("messages below the level leaked: %s", out)
	}
	if !strings.Contains(out, "warn message") || !strings.Contains(out, "error message") {
		t.Errorf("expected warn and error output, got: %s", out)
	}
}

func TestWithFieldsDeterministicOrder(t *testing.T) {
	l, buf := newBufferLogger(InfoLevel)

	l.WithFields(map[string]interface{}{
		"zebra": 1,
		"alpha": 2,
		"mid":   3,
	}).Info("hello")

	out := buf.String()
	if !strings.Contains(out, "{alpha=2, mid=3, zebra=1}") {
		t.Errorf("fields not sorted: %s", out)
	}
}

func TestWithFieldDoesNotMutateParent(t *testing.T) {
	l, buf := newBufferLogger(InfoLevel)

	child := l.WithField("event_id", "ev-1")
	child.Info("child line")
	l.Info("parent line")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %d", len(lines))
	}
	if !strings.Contains(lines[0], "event_id=ev-1") {
		t.Errorf("child missing field: %s", lines[0])
	}
	if strings.Contains(lines[1], "event_id") {
		t.Errorf("parent gained the child's field: %s", lines[1])
	}
}
