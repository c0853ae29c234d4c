package logging

import (
	"fmt"
	"io"
	"log/slog"
)

// Common log attribute keys for consistent naming across the codebase.
const (
	KeyOperation = "operation"
	KeyTool      = "tool"
	KeyMode      = "mode"
	KeyFileID    = "file_id"
	KeyPath      = "path"
	KeyStatus    = "status"
	KeyError     = "error"
	KeyComponent = "component"
)

// Status values for consistent logging.
// Duplicated from the instrumentation package, which imports this one.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// New returns a text logger writing to w at the given level.
//
// In stdio mode w must be stderr: stdout carries the protocol.
func New(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// Level picks the log level for a transport. Debug always wins; stdio
// defaults to warn so the client's stderr pane stays quiet.
func Level(transport string, debug bool) slog.Level {
	switch {
	case debug:
		return slog.LevelDebug
	case transport == "stdio":
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// WithComponent returns a logger with the component attribute set.
func WithComponent(logger *slog.Logger, component string) *slog.Logger {
	return logger.With(slog.String(KeyComponent, component))
}

// WithTool returns a logger with the tool attribute set.
func WithTool(logger *slog.Logger, tool string) *slog.Logger {
	return logger.With(slog.String(KeyTool, tool))
}

// Operation returns a slog attribute for the operation name.
func Operation(op string) slog.Attr {
	return slog.String(KeyOperation, op)
}

// Tool returns a slog attribute for the tool name.
func Tool(tool string) slog.Attr {
	return slog.String(KeyTool, tool)
}

// Mode returns a slog attribute for the server mode (stdio or http).
func Mode(mode string) slog.Attr {
	return slog.String(KeyMode, mode)
}

// FileID returns a slog attribute for a Drive file id.
func FileID(id string) slog.Attr {
	return slog.String(KeyFileID, id)
}

// Path returns a slog attribute for a filesystem path.
func Path(p string) slog.Attr {
	return slog.String(KeyPath, p)
}

// Status returns a slog attribute for the status.
func Status(status string) slog.Attr {
	return slog.String(KeyStatus, status)
}

// Err returns a slog attribute for an error.
// If err is nil, returns an empty Group attribute that slog omits from output,
// so Err(maybeNilErr) is always safe to pass.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Group("")
	}
	return slog.String(KeyError, err.Error())
}

// SanitizeToken returns a length indicator for a token without exposing any
// of its content.
func SanitizeToken(token string) string {
	if token == "" {
		return "<empty>"
	}
	return fmt.Sprintf("[token:%d chars]", len(token))
}
