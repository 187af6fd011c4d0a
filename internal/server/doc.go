// Package server provides the shared server context for MCP tools plus the
// HTTP plumbing around the MCP transport: the combined MCP/OAuth/health
// listener, Kubernetes health probes, and the dedicated Prometheus metrics
// server.
//
// ServerContext resolves the active ClickUp credential for each tool call:
// a stored OAuth token wins over the static API token, and ErrNoCredential
// is returned when neither exists.
package server
