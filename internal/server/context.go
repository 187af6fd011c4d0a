package server

import (
	"context"
	"errors"
	"sync"

	"github.com/taskops/clickup-mcp/internal/clickup"
	"github.com/taskops/clickup-mcp/internal/config"
	"github.com/taskops/clickup-mcp/internal/instrumentation"
	"github.com/taskops/clickup-mcp/internal/oauth"
)

// ErrNoCredential is returned when a tool needs a ClickUp credential but
// neither an OAuth token nor a static API token is available.
var ErrNoCredential = errors.New("not authenticated with ClickUp: complete the OAuth flow at /oauth/authorize or set CLICKUP_API_TOKEN")

// ServerContext holds the shared state for the MCP server: the upstream
// ClickUp client, the credential sources and the metrics recorder.
type ServerContext struct {
	ctx     context.Context
	cancel  context.CancelFunc
	cfg     config.Config
	client  *clickup.Client
	oauth   *oauth.Handler
	metrics *instrumentation.Metrics

	mu       sync.RWMutex
	shutdown bool
}

// NewServerContext creates a new server context. The oauth handler may be
// nil when the OAuth flow is not configured; tools then rely on the static
// API token alone.
func NewServerContext(ctx context.Context, cfg config.Config, client *clickup.Client, oauthHandler *oauth.Handler, metrics *instrumentation.Metrics) *ServerContext {
	shutdownCtx, cancel := context.WithCancel(ctx)

	if metrics == nil {
		metrics = &instrumentation.Metrics{}
	}

	return &ServerContext{
		ctx:     shutdownCtx,
		cancel:  cancel,
		cfg:     cfg,
		client:  client,
		oauth:   oauthHandler,
		metrics: metrics,
	}
}

// Context returns the server context.
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// Config returns the server configuration.
func (sc *ServerContext) Config() config.Config {
	return sc.cfg
}

// Client returns the ClickUp API client.
func (sc *ServerContext) Client() *clickup.Client {
	return sc.client
}

// Metrics returns the metrics recorder. Never nil.
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	return sc.metrics
}

// OAuthHandler returns the OAuth handler, or nil when OAuth is not
// configured.
func (sc *ServerContext) OAuthHandler() *oauth.Handler {
	return sc.oauth
}

// ResolveToken returns the bearer token to use for upstream calls. A stored
// OAuth token takes precedence over the static API token. Returns
// ErrNoCredential when neither is available.
func (sc *ServerContext) ResolveToken(ctx context.Context) (string, error) {
	if sc.oauth != nil {
		if token, ok := sc.oauth.StoredAccessToken(ctx); ok {
			return token, nil
		}
	}
	if sc.cfg.APIToken != "" {
		return sc.cfg.APIToken, nil
	}
	return "", ErrNoCredential
}

// IsShutdown returns whether the server has been shut down.
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown cancels the server context. Safe to call more than once.
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}

	sc.shutdown = true
	sc.cancel()
	return nil
}
