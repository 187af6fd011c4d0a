package instrumentation

import (
	"os"
)

// Config holds the configuration for OpenTelemetry instrumentation.
type Config struct {
	// ServiceName is the name of the service (default: clickup-mcp).
	ServiceName string

	// ServiceVersion is the version of the service.
	ServiceVersion string

	// Enabled determines if instrumentation is active (default: true).
	// Set INSTRUMENTATION_ENABLED=false to disable metrics entirely.
	Enabled bool
}

// DefaultConfig returns the instrumentation configuration with environment
// overrides applied.
func DefaultConfig() Config {
	cfg := Config{
		ServiceName:    "clickup-mcp",
		ServiceVersion: "dev",
		Enabled:        true,
	}

	if os.Getenv("INSTRUMENTATION_ENABLED") == "false" {
		cfg.Enabled = false
	}
	if name := os.Getenv("OTEL_SERVICE_NAME"); name != "" {
		cfg.ServiceName = name
	}

	return cfg
}
