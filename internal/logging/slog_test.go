package logging

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestWithTool(t *testing.T) {
	logger := slog.Default()
	result := WithTool(logger, "clickup_list_tasks")
	if result == nil {
		t.Error("WithTool returned nil")
	}
}

func TestOperationAttr(t *testing.T) {
	attr := Operation("list_tasks")
	if attr.Key != KeyOperation {
		t.Errorf("Operation key = %q, want %q", attr.Key, KeyOperation)
	}
	if attr.Value.String() != "list_tasks" {
		t.Errorf("Operation value = %q", attr.Value.String())
	}
}

func TestToolAttr(t *testing.T) {
	attr := Tool("clickup_create_task")
	if attr.Key != KeyTool {
		t.Errorf("Tool key = %q, want %q", attr.Key, KeyTool)
	}
	if attr.Value.String() != "clickup_create_task" {
		t.Errorf("Tool value = %q", attr.Value.String())
	}
}

func TestStatusAttr(t *testing.T) {
	attr := Status(StatusSuccess)
	if attr.Key != KeyStatus {
		t.Errorf("Status key = %q, want %q", attr.Key, KeyStatus)
	}
	if attr.Value.String() != StatusSuccess {
		t.Errorf("Status value = %q", attr.Value.String())
	}
}

func TestErr(t *testing.T) {
	err := errors.New("boom")
	attr := Err(err)
	if attr.Key != KeyError {
		t.Errorf("Err key = %q, want %q", attr.Key, KeyError)
	}
	if attr.Value.String() != "boom" {
		t.Errorf("Err value = %q", attr.Value.String())
	}

	// Nil errors become an empty group that slog omits.
	attr = Err(nil)
	if attr.Key != "" {
		t.Errorf("Err(nil) key = %q, want empty string", attr.Key)
	}
}

func TestSanitizeToken(t *testing.T) {
	tests := []struct {
		token    string
		expected string
	}{
		{"", "<empty>"},
		{"abc123", "[token:6 chars]"},
		{"pk_1234567890abcdef", "[token:19 chars]"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := SanitizeToken(tt.token); got != tt.expected {
				t.Errorf("SanitizeToken(%q) = %q, want %q", tt.token, got, tt.expected)
			}
		})
	}
}

func TestSetupWithWriterDebugLevel(t *testing.T) {
	var buf bytes.Buffer
	SetupWithWriter(&buf, true)
	defer SetupWithWriter(&buf, false)

	slog.Debug("debug message")
	if !strings.Contains(buf.String(), "debug message") {
		t.Error("debug logs should be emitted when debug is enabled")
	}

	buf.Reset()
	SetupWithWriter(&buf, false)
	slog.Debug("hidden")
	if strings.Contains(buf.String(), "hidden") {
		t.Error("debug logs should be suppressed by default")
	}
}
