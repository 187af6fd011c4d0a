package instrumentation

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys.
const (
	attrTool      = "tool"
	attrOperation = "operation"
	attrResult    = "result"
	attrStep      = "step"
)

// Result values for metric labels.
const (
	ResultSuccess = "success"
	ResultError   = "error"
)

// Metrics provides methods for recording observability metrics. The zero
// value and a nil *Metrics are both safe no-op recorders.
type Metrics struct {
	toolInvocationsTotal metric.Int64Counter
	toolDuration         metric.Float64Histogram

	apiOperationsTotal   metric.Int64Counter
	apiOperationDuration metric.Float64Histogram

	oauthAttemptsTotal metric.Int64Counter
}

// NewMetrics creates a Metrics instance with all instruments initialized.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}

	var err error

	m.toolInvocationsTotal, err = meter.Int64Counter(
		"mcp_tool_invocations_total",
		metric.WithDescription("Total number of MCP tool invocations"),
		metric.WithUnit("{invocation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_tool_invocations_total counter: %w", err)
	}

	m.toolDuration, err = meter.Float64Histogram(
		"mcp_tool_duration_seconds",
		metric.WithDescription("MCP tool execution duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_tool_duration_seconds histogram: %w", err)
	}

	m.apiOperationsTotal, err = meter.Int64Counter(
		"clickup_api_operations_total",
		metric.WithDescription("Total number of ClickUp API operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create clickup_api_operations_total counter: %w", err)
	}

	m.apiOperationDuration, err = meter.Float64Histogram(
		"clickup_api_operation_duration_seconds",
		metric.WithDescription("ClickUp API operation duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create clickup_api_operation_duration_seconds histogram: %w", err)
	}

	m.oauthAttemptsTotal, err = meter.Int64Counter(
		"oauth_attempts_total",
		metric.WithDescription("Total number of OAuth flow steps"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create oauth_attempts_total counter: %w", err)
	}

	return m, nil
}

// RecordToolInvocation records one MCP tool call with its outcome and
// duration.
func (m *Metrics) RecordToolInvocation(ctx context.Context, tool, result string, duration time.Duration) {
	if m == nil || m.toolInvocationsTotal == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String(attrTool, tool),
		attribute.String(attrResult, result),
	)
	m.toolInvocationsTotal.Add(ctx, 1, attrs)
	m.toolDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordAPIOperation records one upstream ClickUp call.
func (m *Metrics) RecordAPIOperation(ctx context.Context, operation, result string, duration time.Duration) {
	if m == nil || m.apiOperationsTotal == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String(attrOperation, operation),
		attribute.String(attrResult, result),
	)
	m.apiOperationsTotal.Add(ctx, 1, attrs)
	m.apiOperationDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordOAuthAttempt records one OAuth flow step (authorize, callback,
// logout) with its outcome.
func (m *Metrics) RecordOAuthAttempt(ctx context.Context, step, result string) {
	if m == nil || m.oauthAttemptsTotal == nil {
		return
	}
	m.oauthAttemptsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrStep, step),
		attribute.String(attrResult, result),
	))
}
