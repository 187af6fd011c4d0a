package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

// Common log attribute keys for consistent naming across the codebase.
const (
	KeyOperation = "operation"
	KeyTool      = "tool"
	KeyStatus    = "status"
	KeyError     = "error"
	KeyDuration  = "duration"
)

// Status values for consistent logging.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Setup configures the default slog logger. Logs always go to stderr so the
// stdio MCP transport keeps stdout clean for protocol frames.
func Setup(debug bool) {
	SetupWithWriter(os.Stderr, debug)
}

// SetupWithWriter configures the default slog logger with a custom writer.
func SetupWithWriter(w io.Writer, debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}

// WithTool returns a logger with the tool attribute set.
func WithTool(logger *slog.Logger, tool string) *slog.Logger {
	return logger.With(Tool(tool))
}

// Operation returns a slog attribute for the operation name.
func Operation(op string) slog.Attr {
	return slog.String(KeyOperation, op)
}

// Tool returns a slog attribute for the tool name.
func Tool(tool string) slog.Attr {
	return slog.String(KeyTool, tool)
}

// Status returns a slog attribute for the status.
func Status(status string) slog.Attr {
	return slog.String(KeyStatus, status)
}

// Err returns a slog attribute for an error.
// If err is nil, returns an empty Group attribute that will be omitted from
// output, so Err(maybeNilErr) is always safe to pass.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Group("")
	}
	return slog.String(KeyError, err.Error())
}

// SanitizeToken returns a masked version of a credential for logging.
// It returns a length indicator without exposing any token content.
func SanitizeToken(token string) string {
	if token == "" {
		return "<empty>"
	}
	return fmt.Sprintf("[token:%d chars]", len(token))
}
