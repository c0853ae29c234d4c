package common

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/teemow/drivepicker/internal/google"
	"github.com/teemow/drivepicker/internal/instrumentation"
	"github.com/teemow/drivepicker/internal/server"
)

type testEnv struct {
	sc     *server.ServerContext
	reader *sdkmetric.ManualReader
	audit  *bytes.Buffer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	metrics, err := instrumentation.NewMetrics(mp.Meter("test"))
	require.NoError(t, err)

	var audit bytes.Buffer
	auditLogger := instrumentation.NewAuditLoggerWithConfig(
		slog.New(slog.NewTextHandler(&audit, nil)),
		instrumentation.AuditLoggingConfig{Enabled: true, IncludeFileIDs: true},
	)

	sc, err := server.NewServerContext(context.Background(), server.Options{
		Mode:        server.ModeStdio,
		Credentials: google.NewCredentialStore("", nil),
		Metrics:     metrics,
		AuditLogger: auditLogger,
		Logger:      slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = sc.Shutdown() })

	return &testEnv{sc: sc, reader: reader, audit: &audit}
}

func (e *testEnv) invocations(t *testing.T, status string) int64 {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, e.reader.Collect(context.Background(), &rm))

	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, md := range sm.Metrics {
			if md.Name != "mcp_tool_invocations_total" {
				continue
			}
			sum, ok := md.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, dp := range sum.DataPoints {
				if v, ok := dp.Attributes.Value("status"); ok && v.AsString() == status {
					total += dp.Value
				}
			}
		}
	}
	return total
}

func request(args map[string]interface{}) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func TestInstrumentedToolHandler_Success(t *testing.T) {
	env := newTestEnv(t)

	called := false
	wrapped := InstrumentedToolHandler("get_file", instrumentation.OperationGet, env.sc,
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			called = true
			return mcp.NewToolResultText("ok"), nil
		})

	result, err := wrapped(context.Background(), request(map[string]interface{}{"file_id": "abc"}))
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.False(t, result.IsError)
	assert.True(t, called)

	assert.EqualValues(t, 1, env.invocations(t, instrumentation.StatusSuccess))
	logged := env.audit.String()
	assert.Contains(t, logged, "tool_executed")
	assert.Contains(t, logged, "tool=get_file")
	assert.Contains(t, logged, "operation=get")
	assert.Contains(t, logged, "file_id=abc")
}

func TestInstrumentedToolHandler_ErrorResult(t *testing.T) {
	env := newTestEnv(t)

	wrapped := InstrumentedToolHandler("delete_file", instrumentation.OperationDelete, env.sc,
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return mcp.NewToolResultError("Error: file_id is required"), nil
		})

	result, err := wrapped(context.Background(), request(nil))
	require.NoError(t, err)
	assert.True(t, result.IsError)

	assert.EqualValues(t, 1, env.invocations(t, instrumentation.StatusError))
	assert.Contains(t, env.audit.String(), "tool_failed")
	assert.Contains(t, env.audit.String(), "file_id is required")
}

func TestInstrumentedToolHandler_GoError(t *testing.T) {
	env := newTestEnv(t)
	expected := errors.New("transport closed")

	wrapped := InstrumentedToolHandler("list_files", instrumentation.OperationList, env.sc,
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return nil, expected
		})

	_, err := wrapped(context.Background(), request(nil))
	assert.ErrorIs(t, err, expected)
	assert.EqualValues(t, 1, env.invocations(t, instrumentation.StatusError))
}

func TestInstrumentedToolHandler_RecoversPanic(t *testing.T) {
	env := newTestEnv(t)

	wrapped := InstrumentedToolHandler("copy_file", instrumentation.OperationCopy, env.sc,
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			panic("nil map write")
		})

	result, err := wrapped(context.Background(), request(nil))
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, result.IsError)
	assert.True(t, strings.HasPrefix(resultText(result), "Unknown error: nil map write"))
	assert.EqualValues(t, 1, env.invocations(t, instrumentation.StatusError))
}

func TestInstrumentedToolHandler_WithoutInstrumentation(t *testing.T) {
	sc, err := server.NewServerContext(context.Background(), server.Options{
		Mode:        server.ModeStdio,
		Credentials: google.NewCredentialStore("", nil),
	})
	require.NoError(t, err)
	defer func() { _ = sc.Shutdown() }()

	wrapped := InstrumentedToolHandler("authenticate", "", sc,
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return mcp.NewToolResultText("ok"), nil
		})

	result, err := wrapped(context.Background(), request(nil))
	require.NoError(t, err)
	assert.Equal(t, "ok", resultText(result))
}
