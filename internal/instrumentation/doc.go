// Package instrumentation provides OpenTelemetry metrics, tracing and audit
// logging for the drivepicker MCP server.
//
// # Metrics
//
// HTTP transport:
//   - http_requests_total: Counter of HTTP requests by method, path, and status
//   - http_request_duration_seconds: Histogram of HTTP request durations
//
// Drive API:
//   - drive_api_operations_total: Counter of Drive operations by operation and status
//   - drive_api_operation_duration_seconds: Histogram of Drive operation durations
//
// Credentials:
//   - oauth_auth_total: Counter of code exchanges and direct credential loads by result
//   - oauth_token_refresh_total: Counter of refresh attempts by result
//
// MCP tools:
//   - mcp_tool_invocations_total: Counter of tool invocations by tool and status
//   - mcp_tool_duration_seconds: Histogram of tool execution durations
//
// # Tracing
//
// Spans are created for MCP tool invocations (tool.<name>) and for each Drive
// API round trip (drive.<operation>).
//
// # Configuration
//
// Instrumentation is configured through environment variables:
//   - INSTRUMENTATION_ENABLED: Enable/disable instrumentation (default: true)
//   - METRICS_EXPORTER: prometheus, otlp or stdout (default: prometheus)
//   - TRACING_EXPORTER: otlp, stdout or none (default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint for traces/metrics
//   - OTEL_TRACES_SAMPLER_ARG: Sampling rate (0.0 to 1.0, default: 0.1)
//   - OTEL_SERVICE_NAME: Service name (default: drivepicker)
//   - AUDIT_LOGGING_ENABLED / AUDIT_LOGGING_INCLUDE_FILE_IDS: audit log switches
//
// # Example Usage
//
//	provider, err := instrumentation.NewProvider(ctx, instrumentation.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	provider.Metrics().RecordDriveOperation(ctx, instrumentation.OperationList, "success", time.Since(start))
package instrumentation
