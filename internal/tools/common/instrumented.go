package common

import (
	"context"
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/drivepicker/internal/format"
	"github.com/teemow/drivepicker/internal/instrumentation"
	"github.com/teemow/drivepicker/internal/logging"
	"github.com/teemow/drivepicker/internal/server"
)

// ToolHandler is the mcp-go tool handler signature.
type ToolHandler = func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)

// InstrumentedToolHandler wraps a tool handler with tracing, metrics, audit
// logging and panic recovery. operation is the Drive operation the tool
// performs; it is empty for the authentication tools.
//
// A panic inside handler becomes an error result rendered by format.Error,
// so a misbehaving call never takes the server down.
//
// Usage:
//
//	s.AddTool(getFileTool, common.InstrumentedToolHandler("get_file", instrumentation.OperationGet, sc, handler))
func InstrumentedToolHandler(toolName, operation string, sc *server.ServerContext, handler ToolHandler) ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (result *mcp.CallToolResult, err error) {
		ctx, span := instrumentation.StartToolSpan(ctx, toolName)
		start := time.Now()

		invocation := instrumentation.NewToolInvocation(toolName).
			WithOperation(operation).
			WithFileID(StringArg(request.GetArguments(), "file_id")).
			WithSpanContext(ctx)

		defer func() {
			if r := recover(); r != nil {
				sc.Logger().Error("tool handler panicked",
					logging.Tool(toolName),
					slog.Any("panic", r))
				result, err = mcp.NewToolResultError(format.Error(r)), nil
			}

			status := instrumentation.StatusSuccess
			errMsg := ""
			switch {
			case err != nil:
				status = instrumentation.StatusError
				errMsg = err.Error()
			case result != nil && result.IsError:
				status = instrumentation.StatusError
				errMsg = resultText(result)
			}

			sc.Metrics().RecordToolInvocation(ctx, toolName, status, time.Since(start))
			sc.AuditLogger().LogToolInvocation(invocation.Complete(status == instrumentation.StatusSuccess, errMsg))
			instrumentation.EndSpan(span, err)
		}()

		return handler(ctx, request)
	}
}

// resultText returns the first text content of a result.
func resultText(result *mcp.CallToolResult) string {
	for _, c := range result.Content {
		if text, ok := mcp.AsTextContent(c); ok {
			return text.Text
		}
	}
	return ""
}
