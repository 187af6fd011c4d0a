package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
)

const (
	// DefaultHTTPReadHeaderTimeout bounds how long the server waits for
	// request headers.
	DefaultHTTPReadHeaderTimeout = 10 * time.Second

	// DefaultHTTPIdleTimeout is the keep-alive idle timeout.
	DefaultHTTPIdleTimeout = 120 * time.Second
)

// OAuthRegistrar mounts OAuth HTTP endpoints on a mux. Satisfied by
// oauth.Handler.
type OAuthRegistrar interface {
	Register(mux *http.ServeMux)
}

// HTTPServer serves the streamable HTTP MCP transport together with the
// OAuth and health endpoints on a single listener.
type HTTPServer struct {
	httpServer  *http.Server
	addr        string
	tlsCertFile string
	tlsKeyFile  string
}

// HTTPServerConfig holds configuration for the combined HTTP server.
type HTTPServerConfig struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string

	// OAuth mounts the OAuth endpoints when non-nil.
	OAuth OAuthRegistrar

	// Health mounts the liveness and readiness endpoints when non-nil.
	Health *HealthChecker

	// TLSCertFile and TLSKeyFile enable HTTPS when both are set.
	TLSCertFile string
	TLSKeyFile  string
}

// NewHTTPServer builds the combined HTTP server. The MCP endpoint is
// mounted at /mcp.
func NewHTTPServer(mcpSrv *mcpserver.MCPServer, config HTTPServerConfig) (*HTTPServer, error) {
	if mcpSrv == nil {
		return nil, fmt.Errorf("MCP server is required")
	}
	if config.Addr == "" {
		config.Addr = ":8080"
	}

	streamable := mcpserver.NewStreamableHTTPServer(mcpSrv,
		mcpserver.WithEndpointPath("/mcp"),
	)

	mux := http.NewServeMux()
	mux.Handle("/mcp", streamable)
	mux.Handle("/mcp/", streamable)

	if config.OAuth != nil {
		config.OAuth.Register(mux)
	}
	if config.Health != nil {
		config.Health.RegisterHealthEndpoints(mux)
	}

	return &HTTPServer{
		httpServer: &http.Server{
			Addr:              config.Addr,
			Handler:           mux,
			ReadHeaderTimeout: DefaultHTTPReadHeaderTimeout,
			IdleTimeout:       DefaultHTTPIdleTimeout,
		},
		addr:        config.Addr,
		tlsCertFile: config.TLSCertFile,
		tlsKeyFile:  config.TLSKeyFile,
	}, nil
}

// Start starts the HTTP server in a blocking manner. Serves HTTPS when a
// certificate and key are configured.
func (s *HTTPServer) Start() error {
	if s.tlsCertFile != "" && s.tlsKeyFile != "" {
		slog.Info("starting HTTPS server", "addr", s.addr)
		return s.httpServer.ListenAndServeTLS(s.tlsCertFile, s.tlsKeyFile)
	}
	slog.Info("starting HTTP server", "addr", s.addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	slog.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// Addr returns the configured listen address.
func (s *HTTPServer) Addr() string {
	return s.addr
}
