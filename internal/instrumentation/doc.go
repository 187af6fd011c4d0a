// Package instrumentation provides OpenTelemetry metrics with a Prometheus
// exporter: MCP tool invocations, upstream ClickUp API operations, and
// OAuth flow steps. There is no tracing pipeline; every request is a single
// hop to one upstream API.
package instrumentation
