package store

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"
)

// ValkeyConfig holds the connection settings for a Valkey-backed store.
type ValkeyConfig struct {
	// URL is the Valkey server address (e.g., "valkey.namespace.svc:6379").
	URL string

	// Password is the optional password for Valkey authentication.
	Password string

	// TLSEnabled enables TLS for Valkey connections.
	TLSEnabled bool

	// KeyPrefix is prepended to all keys (default: "clickup-mcp:").
	KeyPrefix string

	// DB is the Valkey database number.
	DB int
}

// ValkeyStore is a Store backed by a Valkey server, for deployments where
// OAuth tokens must survive process restarts.
type ValkeyStore struct {
	client valkey.Client
	prefix string
}

// NewValkeyStore connects to Valkey and returns a Store using it.
func NewValkeyStore(cfg ValkeyConfig) (*ValkeyStore, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("valkey URL cannot be empty")
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "clickup-mcp:"
	}

	option := valkey.ClientOption{
		InitAddress: []string{cfg.URL},
		Password:    cfg.Password,
		SelectDB:    cfg.DB,
	}
	if cfg.TLSEnabled {
		option.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	client, err := valkey.NewClient(option)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to valkey at %s: %w", cfg.URL, err)
	}

	return &ValkeyStore{client: client, prefix: cfg.KeyPrefix}, nil
}

func (s *ValkeyStore) key(k string) string {
	return s.prefix + k
}

// Get returns the value for key, reporting absence on the valkey nil reply.
func (s *ValkeyStore) Get(ctx context.Context, key string) (string, bool, error) {
	resp := s.client.Do(ctx, s.client.B().Get().Key(s.key(key)).Build())
	value, err := resp.ToString()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("valkey GET failed: %w", err)
	}
	return value, true, nil
}

// Put stores a value, with expiry when ttl is positive.
func (s *ValkeyStore) Put(ctx context.Context, key, value string, ttl time.Duration) error {
	var err error
	if ttl > 0 {
		err = s.client.Do(ctx, s.client.B().Set().Key(s.key(key)).Value(value).Ex(ttl).Build()).Error()
	} else {
		err = s.client.Do(ctx, s.client.B().Set().Key(s.key(key)).Value(value).Build()).Error()
	}
	if err != nil {
		return fmt.Errorf("valkey SET failed: %w", err)
	}
	return nil
}

// Delete removes a key. DEL on a missing key is a no-op upstream as well.
func (s *ValkeyStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Do(ctx, s.client.B().Del().Key(s.key(key)).Build()).Error(); err != nil {
		return fmt.Errorf("valkey DEL failed: %w", err)
	}
	return nil
}

// Close closes the underlying client.
func (s *ValkeyStore) Close() error {
	s.client.Close()
	return nil
}
