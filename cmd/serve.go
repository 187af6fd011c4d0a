package cmd

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/taskops/clickup-mcp/internal/clickup"
	"github.com/taskops/clickup-mcp/internal/config"
	"github.com/taskops/clickup-mcp/internal/instrumentation"
	"github.com/taskops/clickup-mcp/internal/logging"
	"github.com/taskops/clickup-mcp/internal/oauth"
	"github.com/taskops/clickup-mcp/internal/server"
	"github.com/taskops/clickup-mcp/internal/store"
	"github.com/taskops/clickup-mcp/internal/tools/comment_tools"
	"github.com/taskops/clickup-mcp/internal/tools/doc_tools"
	"github.com/taskops/clickup-mcp/internal/tools/field_tools"
	"github.com/taskops/clickup-mcp/internal/tools/task_tools"
)

// serveOptions collects every serve flag after env fallbacks are applied.
type serveOptions struct {
	debugMode bool
	transport string
	httpAddr  string
	baseURL   string

	defaultListID string
	defaultTeamID string
	apiToken      string

	clientID      string
	clientSecret  string
	encryptionKey []byte

	storageType string
	valkey      store.ValkeyConfig

	metricsEnabled bool
	metricsAddr    string

	tlsCertFile string
	tlsKeyFile  string
}

func newServeCmd() *cobra.Command {
	var (
		debugMode     bool
		transport     string
		httpAddr      string
		baseURL       string
		defaultListID string
		defaultTeamID string
		clientID      string
		clientSecret  string
		encryptionKey string
		storageType   string
		valkeyURL     string
		valkeyPass    string
		valkeyTLS     bool
		valkeyPrefix  string
		valkeyDB      int
		metricsOn     bool
		metricsAddr   string
		tlsCertFile   string
		tlsKeyFile    string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the Model Context Protocol (MCP) server exposing ClickUp tasks,
comments, custom fields and documents as tools for AI assistants.

Supports multiple transport types:
  - stdio: Standard input/output (default)
  - streamable-http: Streamable HTTP transport with OAuth and health endpoints

Authentication:
  Static token:
    Set CLICKUP_API_TOKEN to a ClickUp personal API token.

  OAuth (HTTP transport):
    Provide --clickup-client-id and --clickup-client-secret (or the
    CLICKUP_CLIENT_ID and CLICKUP_CLIENT_SECRET env vars) and direct users
    to /oauth/authorize. Tokens are stored AES-256-GCM encrypted; set
    CLICKUP_OAUTH_ENCRYPTION_KEY (32 bytes, base64) so tokens survive
    restarts. Without it an ephemeral key is generated on startup.`,
		RunE: func(cmd *cobra.Command, cmdArgs []string) error {
			opts := serveOptions{
				debugMode:      debugMode,
				transport:      transport,
				httpAddr:       httpAddr,
				baseURL:        baseURL,
				defaultListID:  defaultListID,
				defaultTeamID:  defaultTeamID,
				clientID:       clientID,
				clientSecret:   clientSecret,
				storageType:    storageType,
				metricsEnabled: metricsOn,
				metricsAddr:    metricsAddr,
				tlsCertFile:    tlsCertFile,
				tlsKeyFile:     tlsKeyFile,
				valkey: store.ValkeyConfig{
					URL:        valkeyURL,
					Password:   valkeyPass,
					TLSEnabled: valkeyTLS,
					KeyPrefix:  valkeyPrefix,
					DB:         valkeyDB,
				},
			}

			if err := applyServeEnv(cmd, &opts, encryptionKey); err != nil {
				return err
			}

			return runServe(opts)
		},
	}

	cmd.Flags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
	cmd.Flags().StringVar(&transport, "transport", "stdio", "Transport type: stdio or streamable-http")
	cmd.Flags().StringVar(&httpAddr, "http-addr", ":8080", "HTTP server address (for streamable-http transport)")
	cmd.Flags().StringVar(&baseURL, "base-url", "", "Public base URL for OAuth redirects (HTTP transport only). Can also use MCP_BASE_URL env var. Example: https://mcp.example.com")
	cmd.Flags().StringVar(&defaultListID, "default-list-id", "", "ClickUp list ID used when a tool call omits list_id. Can also use CLICKUP_DEFAULT_LIST_ID env var.")
	cmd.Flags().StringVar(&defaultTeamID, "default-team-id", "", "ClickUp workspace (team) ID used when a tool call omits workspace_id. Can also use CLICKUP_DEFAULT_TEAM_ID env var.")
	cmd.Flags().StringVar(&clientID, "clickup-client-id", "", "ClickUp OAuth client ID. Can also use CLICKUP_CLIENT_ID env var.")
	cmd.Flags().StringVar(&clientSecret, "clickup-client-secret", "", "ClickUp OAuth client secret. Can also use CLICKUP_CLIENT_SECRET env var.")
	cmd.Flags().StringVar(&encryptionKey, "oauth-encryption-key", "", "AES-256 key for token storage at rest (32 bytes, base64 encoded). Can also use CLICKUP_OAUTH_ENCRYPTION_KEY env var. Generate with: openssl rand -base64 32")
	cmd.Flags().StringVar(&storageType, "oauth-storage-type", "memory", "OAuth token storage type: memory or valkey. Can also use OAUTH_STORAGE_TYPE env var.")
	cmd.Flags().StringVar(&valkeyURL, "valkey-url", "", "Valkey server address (e.g., valkey.namespace.svc:6379). Can also use VALKEY_URL env var.")
	cmd.Flags().StringVar(&valkeyPass, "valkey-password", "", "Valkey authentication password. Can also use VALKEY_PASSWORD env var.")
	cmd.Flags().BoolVar(&valkeyTLS, "valkey-tls", false, "Enable TLS for Valkey connections. Can also use VALKEY_TLS_ENABLED env var.")
	cmd.Flags().StringVar(&valkeyPrefix, "valkey-key-prefix", "clickup-mcp:", "Prefix for all Valkey keys. Can also use VALKEY_KEY_PREFIX env var.")
	cmd.Flags().IntVar(&valkeyDB, "valkey-db", 0, "Valkey database number. Can also use VALKEY_DB env var.")
	cmd.Flags().BoolVar(&metricsOn, "metrics-enabled", true, "Enable the metrics server on a dedicated port. Can also use METRICS_ENABLED env var.")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", ":9090", "Metrics server address. Can also use METRICS_ADDR env var.")
	cmd.Flags().StringVar(&tlsCertFile, "tls-cert-file", "", "Path to TLS certificate file (PEM). Enables HTTPS together with --tls-key-file. Can also use TLS_CERT_FILE env var.")
	cmd.Flags().StringVar(&tlsKeyFile, "tls-key-file", "", "Path to TLS private key file (PEM). Can also use TLS_KEY_FILE env var.")

	return cmd
}

// applyServeEnv fills unset flags from environment variables and decodes the
// encryption key. Env vars only apply when the flag was not explicitly set.
func applyServeEnv(cmd *cobra.Command, opts *serveOptions, encryptionKey string) error {
	opts.apiToken = os.Getenv("CLICKUP_API_TOKEN")

	if !cmd.Flags().Changed("base-url") {
		if v := os.Getenv("MCP_BASE_URL"); v != "" {
			opts.baseURL = v
		}
	}
	if !cmd.Flags().Changed("default-list-id") {
		if v := os.Getenv("CLICKUP_DEFAULT_LIST_ID"); v != "" {
			opts.defaultListID = v
		}
	}
	if !cmd.Flags().Changed("default-team-id") {
		if v := os.Getenv("CLICKUP_DEFAULT_TEAM_ID"); v != "" {
			opts.defaultTeamID = v
		}
	}
	if !cmd.Flags().Changed("clickup-client-id") {
		if v := os.Getenv("CLICKUP_CLIENT_ID"); v != "" {
			opts.clientID = v
		}
	}
	if !cmd.Flags().Changed("clickup-client-secret") {
		if v := os.Getenv("CLICKUP_CLIENT_SECRET"); v != "" {
			opts.clientSecret = v
		}
	}
	if !cmd.Flags().Changed("oauth-storage-type") {
		if v := os.Getenv("OAUTH_STORAGE_TYPE"); v != "" {
			opts.storageType = v
		}
	}
	if !cmd.Flags().Changed("valkey-url") {
		if v := os.Getenv("VALKEY_URL"); v != "" {
			opts.valkey.URL = v
		}
	}
	if !cmd.Flags().Changed("valkey-password") {
		if v := os.Getenv("VALKEY_PASSWORD"); v != "" {
			opts.valkey.Password = v
		}
	}
	if !cmd.Flags().Changed("valkey-tls") {
		if os.Getenv("VALKEY_TLS_ENABLED") == "true" {
			opts.valkey.TLSEnabled = true
		}
	}
	if !cmd.Flags().Changed("valkey-key-prefix") {
		if v := os.Getenv("VALKEY_KEY_PREFIX"); v != "" {
			opts.valkey.KeyPrefix = v
		}
	}
	if !cmd.Flags().Changed("valkey-db") {
		if v := os.Getenv("VALKEY_DB"); v != "" {
			if db, err := strconv.Atoi(v); err == nil {
				opts.valkey.DB = db
			}
		}
	}
	if !cmd.Flags().Changed("metrics-enabled") {
		if os.Getenv("METRICS_ENABLED") == "false" {
			opts.metricsEnabled = false
		}
	}
	if !cmd.Flags().Changed("metrics-addr") {
		if v := os.Getenv("METRICS_ADDR"); v != "" {
			opts.metricsAddr = v
		}
	}
	if opts.tlsCertFile == "" {
		opts.tlsCertFile = os.Getenv("TLS_CERT_FILE")
	}
	if opts.tlsKeyFile == "" {
		opts.tlsKeyFile = os.Getenv("TLS_KEY_FILE")
	}

	if encryptionKey == "" {
		encryptionKey = os.Getenv("CLICKUP_OAUTH_ENCRYPTION_KEY")
	}
	if encryptionKey != "" {
		decoded, err := base64.StdEncoding.DecodeString(encryptionKey)
		if err != nil {
			return fmt.Errorf("invalid encryption key (must be base64 encoded): %w", err)
		}
		if len(decoded) != 32 {
			return fmt.Errorf("encryption key must be exactly 32 bytes (got %d bytes)", len(decoded))
		}
		opts.encryptionKey = decoded
	}

	return nil
}

func runServe(opts serveOptions) error {
	shutdownCtx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logging.Setup(opts.debugMode)

	cfg := config.New()
	cfg.DefaultListID = opts.defaultListID
	cfg.DefaultTeamID = opts.defaultTeamID
	cfg.APIToken = opts.apiToken
	cfg.OAuth.ClientID = opts.clientID
	cfg.OAuth.ClientSecret = opts.clientSecret
	cfg.EncryptionKey = opts.encryptionKey

	if len(cfg.EncryptionKey) == 0 && cfg.OAuthConfigured() {
		key := make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return fmt.Errorf("failed to generate ephemeral encryption key: %w", err)
		}
		cfg.EncryptionKey = key
		slog.Warn("no encryption key configured, generated an ephemeral key; stored OAuth tokens will not survive a restart")
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// Initialize instrumentation provider
	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version

	provider, err := instrumentation.NewProvider(shutdownCtx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		if err := provider.Shutdown(shutdownCtx); err != nil {
			slog.Error("instrumentation shutdown failed", logging.Err(err))
		}
	}()

	// Start metrics server if enabled and not in stdio mode
	var metricsServer *server.MetricsServer
	if opts.transport != "stdio" && opts.metricsEnabled && provider.Enabled() {
		metricsServer, err = server.NewMetricsServer(server.MetricsServerConfig{
			Addr:                    opts.metricsAddr,
			Enabled:                 true,
			InstrumentationProvider: provider,
		})
		if err != nil {
			return fmt.Errorf("failed to create metrics server: %w", err)
		}

		metricsReady := make(chan struct{})
		metricsErr := make(chan error, 1)
		go func() {
			if err := metricsServer.StartWithReadySignal(metricsReady); err != nil && err != http.ErrServerClosed {
				metricsErr <- err
			}
			close(metricsErr)
		}()

		select {
		case <-metricsReady:
			slog.Info("metrics server started", "addr", metricsServer.Addr())
		case err := <-metricsErr:
			return fmt.Errorf("metrics server failed to start: %w", err)
		case <-time.After(5 * time.Second):
			return fmt.Errorf("metrics server startup timed out")
		}

		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				slog.Error("metrics server shutdown failed", logging.Err(err))
			}
		}()
	}

	// Build the OAuth token store
	st, err := newTokenStore(opts)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	client := clickup.NewClient(cfg)
	client.SetMetrics(provider.Metrics())

	// OAuth endpoints only exist on the HTTP transport; stdio relies on the
	// static API token.
	var oauthHandler *oauth.Handler
	if opts.transport != "stdio" && cfg.OAuthConfigured() {
		baseURL := opts.baseURL
		if baseURL == "" {
			baseURL = autoBaseURL(opts.httpAddr)
			slog.Info("no base URL configured, using auto-detected", "base_url", baseURL)
		}
		oauthHandler, err = oauth.NewHandler(cfg, baseURL, st)
		if err != nil {
			return fmt.Errorf("failed to create OAuth handler: %w", err)
		}
		oauthHandler.SetMetrics(provider.Metrics())
	}

	serverContext := server.NewServerContext(shutdownCtx, cfg, client, oauthHandler, provider.Metrics())
	defer func() {
		if err := serverContext.Shutdown(); err != nil {
			slog.Error("server context shutdown failed", logging.Err(err))
		}
	}()

	mcpSrv := mcpserver.NewMCPServer("clickup-mcp", version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithToolHandlerMiddleware(toolMetricsMiddleware(serverContext)),
	)

	if err := registerAllTools(mcpSrv, serverContext); err != nil {
		return err
	}

	switch opts.transport {
	case "stdio":
		return runStdioServer(mcpSrv)
	case "streamable-http":
		return runHTTPServer(shutdownCtx, mcpSrv, serverContext, oauthHandler, opts)
	default:
		return fmt.Errorf("unsupported transport type: %s (supported: stdio, streamable-http)", opts.transport)
	}
}

// autoBaseURL derives an OAuth redirect base URL from the listen address
// when none is configured. Bare port addresses resolve to localhost.
func autoBaseURL(addr string) string {
	if addr == "" {
		addr = ":8080"
	}
	if strings.HasPrefix(addr, ":") {
		return "http://localhost" + addr
	}
	return "http://" + addr
}

// newTokenStore builds the KV store backing OAuth state and tokens.
func newTokenStore(opts serveOptions) (store.Store, error) {
	switch opts.storageType {
	case "", "memory":
		return store.NewMemoryStore(), nil
	case "valkey":
		st, err := store.NewValkeyStore(opts.valkey)
		if err != nil {
			return nil, fmt.Errorf("failed to create valkey store: %w", err)
		}
		return st, nil
	default:
		return nil, fmt.Errorf("unsupported oauth storage type: %s (supported: memory, valkey)", opts.storageType)
	}
}

// toolMetricsMiddleware records an invocation counter, a duration histogram
// and a debug log line around every tool handler.
func toolMetricsMiddleware(sc *server.ServerContext) mcpserver.ToolHandlerMiddleware {
	return func(next mcpserver.ToolHandlerFunc) mcpserver.ToolHandlerFunc {
		return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			start := time.Now()
			result, err := next(ctx, request)
			elapsed := time.Since(start)

			outcome := instrumentation.ResultSuccess
			status := logging.StatusSuccess
			if err != nil || (result != nil && result.IsError) {
				outcome = instrumentation.ResultError
				status = logging.StatusError
			}
			sc.Metrics().RecordToolInvocation(ctx, request.Params.Name, outcome, elapsed)
			logging.WithTool(slog.Default(), request.Params.Name).Debug("tool call completed",
				logging.Status(status),
				slog.Duration(logging.KeyDuration, elapsed))

			return result, err
		}
	}
}

// registerAllTools registers all MCP tools.
func registerAllTools(mcpSrv *mcpserver.MCPServer, ctx *server.ServerContext) error {
	type toolRegistration struct {
		name     string
		register func() error
	}

	registrations := []toolRegistration{
		{
			name: "Tasks",
			register: func() error {
				return task_tools.RegisterTaskTools(mcpSrv, ctx)
			},
		},
		{
			name: "Custom Fields",
			register: func() error {
				return field_tools.RegisterFieldTools(mcpSrv, ctx)
			},
		},
		{
			name: "Comments",
			register: func() error {
				return comment_tools.RegisterCommentTools(mcpSrv, ctx)
			},
		},
		{
			name: "Docs",
			register: func() error {
				return doc_tools.RegisterDocTools(mcpSrv, ctx)
			},
		},
	}

	for _, reg := range registrations {
		if err := reg.register(); err != nil {
			return fmt.Errorf("failed to register %s: %w", reg.name, err)
		}
	}

	return nil
}

func runStdioServer(mcpSrv *mcpserver.MCPServer) error {
	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := mcpserver.ServeStdio(mcpSrv); err != nil {
			serverDone <- err
		}
	}()

	err := <-serverDone
	if err != nil {
		return fmt.Errorf("server stopped with error: %w", err)
	}
	return nil
}

func runHTTPServer(ctx context.Context, mcpSrv *mcpserver.MCPServer, sc *server.ServerContext, oauthHandler *oauth.Handler, opts serveOptions) error {
	healthChecker := server.NewHealthChecker(sc)

	httpConfig := server.HTTPServerConfig{
		Addr:        opts.httpAddr,
		Health:      healthChecker,
		TLSCertFile: opts.tlsCertFile,
		TLSKeyFile:  opts.tlsKeyFile,
	}
	if oauthHandler != nil {
		httpConfig.OAuth = oauthHandler
	}

	httpServer, err := server.NewHTTPServer(mcpSrv, httpConfig)
	if err != nil {
		return fmt.Errorf("failed to create HTTP server: %w", err)
	}

	slog.Info("streamable HTTP server starting",
		"addr", opts.httpAddr,
		"mcp_endpoint", "/mcp",
		"oauth_enabled", oauthHandler != nil)

	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := httpServer.Start(); err != nil && err != http.ErrServerClosed {
			serverDone <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutdown signal received, stopping HTTP server")
		healthChecker.SetReady(false)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("error shutting down HTTP server: %w", err)
		}
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("HTTP server stopped with error: %w", err)
		}
	}

	return nil
}
