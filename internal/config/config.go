package config

import (
	"fmt"
	"time"
)

// Default upstream endpoints for the ClickUp API.
const (
	DefaultAPIBaseURL     = "https://api.clickup.com/api/v2"
	DefaultDocsAPIBaseURL = "https://api.clickup.com/api/v3"
	DefaultAuthURL        = "https://app.clickup.com/api"
	DefaultTokenURL       = "https://api.clickup.com/api/v2/oauth/token"
	DefaultUserInfoURL    = "https://api.clickup.com/api/v2/user"
)

// Default lifetimes for OAuth records stored in the key-value store.
const (
	DefaultStateTTL = 10 * time.Minute
	DefaultTokenTTL = 365 * 24 * time.Hour
)

// OAuthConfig holds the ClickUp OAuth application credentials.
type OAuthConfig struct {
	// ClientID is the ClickUp OAuth app client ID. Required for the
	// authorization flow; tools fall back to the static API token without it.
	ClientID string

	// ClientSecret is the ClickUp OAuth app client secret.
	ClientSecret string
}

// Config carries all settings the adapter needs. It is constructed once in
// cmd and passed explicitly into every component; nothing reads it from
// globals.
type Config struct {
	// APIBaseURL is the base URL for ClickUp API v2 (tasks, fields, comments).
	APIBaseURL string

	// DocsAPIBaseURL is the base URL for ClickUp API v3 (docs and pages).
	DocsAPIBaseURL string

	// AuthURL is the ClickUp OAuth consent endpoint.
	AuthURL string

	// TokenURL is the ClickUp OAuth code-exchange endpoint.
	TokenURL string

	// UserInfoURL is the endpoint used to resolve the authorized user after
	// a token exchange.
	UserInfoURL string

	// DefaultListID is used by task and field tools when the caller omits
	// list_id.
	DefaultListID string

	// DefaultTeamID is the workspace ID used by doc tools when the caller
	// omits workspace_id.
	DefaultTeamID string

	// APIToken is the static ClickUp personal token used when no OAuth token
	// is stored.
	APIToken string

	// EncryptionKey is the 32-byte AES-256 key for token storage at rest.
	EncryptionKey []byte

	// OAuth holds the OAuth application credentials.
	OAuth OAuthConfig

	// StateTTL is the lifetime of an OAuth state nonce.
	StateTTL time.Duration

	// TokenTTL is the lifetime of a stored OAuth token record.
	TokenTTL time.Duration
}

// New returns a Config with the ClickUp endpoints and TTLs filled in.
func New() Config {
	return Config{
		APIBaseURL:     DefaultAPIBaseURL,
		DocsAPIBaseURL: DefaultDocsAPIBaseURL,
		AuthURL:        DefaultAuthURL,
		TokenURL:       DefaultTokenURL,
		UserInfoURL:    DefaultUserInfoURL,
		StateTTL:       DefaultStateTTL,
		TokenTTL:       DefaultTokenTTL,
	}
}

// OAuthConfigured reports whether the OAuth authorization flow can run.
func (c Config) OAuthConfigured() bool {
	return c.OAuth.ClientID != ""
}

// Validate checks invariants that would otherwise surface as confusing
// runtime failures.
func (c Config) Validate() error {
	if c.APIBaseURL == "" {
		return fmt.Errorf("API base URL cannot be empty")
	}
	if c.DocsAPIBaseURL == "" {
		return fmt.Errorf("docs API base URL cannot be empty")
	}
	if len(c.EncryptionKey) != 0 && len(c.EncryptionKey) != 32 {
		return fmt.Errorf("encryption key must be exactly 32 bytes (got %d bytes)", len(c.EncryptionKey))
	}
	return nil
}
