package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/taskops/clickup-mcp/internal/config"
	"github.com/taskops/clickup-mcp/internal/instrumentation"
	"github.com/taskops/clickup-mcp/internal/logging"
	"github.com/taskops/clickup-mcp/internal/store"
)

// OAuth flow steps recorded against the attempt counter.
const (
	stepAuthorize = "authorize"
	stepCallback  = "callback"
	stepLogout    = "logout"
)

// DefaultTokenKey is the storage key used when user-identity resolution
// fails after a token exchange, and the key the dispatcher reads tokens
// from. Known limitation: under resolution failure multiple principals
// share this slot; the server is effectively single-tenant.
const DefaultTokenKey = "default"

const (
	statePrefix = "oauth:state:"
	tokenPrefix = "oauth:token:"
)

// TokenRecord is the persisted shape of an exchanged token. It is stored
// encrypted; only the decrypted access token is ever handed to callers.
type TokenRecord struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	CreatedAt   int64  `json:"created_at"`
}

// stateRecord is the one-time CSRF state stored during authorization.
type stateRecord struct {
	Nonce     string `json:"nonce"`
	Redirect  string `json:"redirect,omitempty"`
	CreatedAt int64  `json:"created_at"`
}

// Handler implements the OAuth token exchange against ClickUp: authorize
// redirect, callback, status and logout.
type Handler struct {
	cfg        config.Config
	oauthCfg   *oauth2.Config
	store      store.Store
	cipher     *Cipher
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *instrumentation.Metrics
}

// NewHandler creates the OAuth handler. baseURL is the public base URL of
// this server, used to build the callback redirect URI.
func NewHandler(cfg config.Config, baseURL string, st store.Store) (*Handler, error) {
	cipher, err := NewCipher(cfg.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create token cipher: %w", err)
	}

	return &Handler{
		cfg: cfg,
		oauthCfg: &oauth2.Config{
			ClientID:     cfg.OAuth.ClientID,
			ClientSecret: cfg.OAuth.ClientSecret,
			RedirectURL:  baseURL + "/oauth/callback",
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.AuthURL,
				TokenURL: cfg.TokenURL,
			},
		},
		store:      st,
		cipher:     cipher,
		httpClient: http.DefaultClient,
		logger:     slog.Default(),
		metrics:    &instrumentation.Metrics{},
	}, nil
}

// SetHTTPClient overrides the HTTP client used for the exchange and
// user-info calls, mainly for tests.
func (h *Handler) SetHTTPClient(hc *http.Client) {
	h.httpClient = hc
}

// SetMetrics attaches a metrics recorder for OAuth flow step counters.
func (h *Handler) SetMetrics(m *instrumentation.Metrics) {
	if m == nil {
		m = &instrumentation.Metrics{}
	}
	h.metrics = m
}

// Register mounts the OAuth endpoints on the given mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/oauth/authorize", h.HandleAuthorize)
	mux.HandleFunc("/oauth/callback", h.HandleCallback)
	mux.HandleFunc("/oauth/status", h.HandleStatus)
	mux.HandleFunc("/oauth/logout", h.HandleLogout)
}

// HandleAuthorize stores a one-time state nonce and redirects the caller to
// the ClickUp consent page.
func (h *Handler) HandleAuthorize(w http.ResponseWriter, r *http.Request) {
	if !h.cfg.OAuthConfigured() {
		h.metrics.RecordOAuthAttempt(r.Context(), stepAuthorize, instrumentation.ResultError)
		writeJSONError(w, http.StatusInternalServerError, "OAuth is not configured: missing client ID")
		return
	}

	nonce := uuid.NewString()
	record := stateRecord{
		Nonce:     nonce,
		Redirect:  r.URL.Query().Get("redirect"),
		CreatedAt: time.Now().Unix(),
	}

	payload, err := json.Marshal(record)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to encode state")
		return
	}

	if err := h.store.Put(r.Context(), statePrefix+nonce, string(payload), h.cfg.StateTTL); err != nil {
		h.logger.Error("failed to store OAuth state", logging.Err(err))
		h.metrics.RecordOAuthAttempt(r.Context(), stepAuthorize, instrumentation.ResultError)
		writeJSONError(w, http.StatusInternalServerError, "failed to store state")
		return
	}

	h.metrics.RecordOAuthAttempt(r.Context(), stepAuthorize, instrumentation.ResultSuccess)
	http.Redirect(w, r, h.oauthCfg.AuthCodeURL(nonce), http.StatusFound)
}

// HandleCallback validates the state nonce, exchanges the authorization
// code and persists the encrypted token. The nonce is deleted before the
// exchange so a replay can never trigger a second exchange.
func (h *Handler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	outcome := instrumentation.ResultError
	defer func() { h.metrics.RecordOAuthAttempt(r.Context(), stepCallback, outcome) }()

	if errParam := query.Get("error"); errParam != "" {
		writeJSONError(w, http.StatusBadRequest, "authorization denied: "+errParam)
		return
	}

	code := query.Get("code")
	nonce := query.Get("state")
	if code == "" || nonce == "" {
		writeJSONError(w, http.StatusBadRequest, "invalid state: missing code or state parameter")
		return
	}

	ctx := r.Context()

	raw, ok, err := h.store.Get(ctx, statePrefix+nonce)
	if err != nil {
		h.logger.Error("failed to read OAuth state", logging.Err(err))
		writeJSONError(w, http.StatusInternalServerError, "failed to read state")
		return
	}
	if !ok {
		writeJSONError(w, http.StatusBadRequest, "invalid state: unknown, expired or already used")
		return
	}

	var state stateRecord
	if err := json.Unmarshal([]byte(raw), &state); err != nil || state.Nonce != nonce {
		writeJSONError(w, http.StatusBadRequest, "invalid state: corrupt state record")
		return
	}

	// Single use: consume the nonce before the exchange.
	if err := h.store.Delete(ctx, statePrefix+nonce); err != nil {
		h.logger.Warn("failed to delete OAuth state", logging.Err(err))
	}

	exchangeCtx := context.WithValue(ctx, oauth2.HTTPClient, h.httpClient)
	token, err := h.oauthCfg.Exchange(exchangeCtx, code)
	if err != nil {
		h.logger.Error("OAuth token exchange failed", logging.Err(err))
		writeJSONError(w, http.StatusBadGateway, "token exchange failed")
		return
	}

	userKey := h.resolveUserKey(ctx, token.AccessToken)

	record := TokenRecord{
		AccessToken: token.AccessToken,
		TokenType:   token.TokenType,
		CreatedAt:   time.Now().Unix(),
	}
	if record.TokenType == "" {
		record.TokenType = "Bearer"
	}

	if err := h.saveToken(ctx, userKey, record); err != nil {
		h.logger.Error("failed to persist OAuth token", logging.Err(err))
		writeJSONError(w, http.StatusInternalServerError, "failed to store token")
		return
	}

	outcome = instrumentation.ResultSuccess
	h.logger.Info("OAuth token stored",
		slog.String("user_key", userKey),
		slog.String("token", logging.SanitizeToken(token.AccessToken)))

	if state.Redirect != "" {
		http.Redirect(w, r, state.Redirect, http.StatusFound)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprint(w, confirmationPage)
}

// HandleStatus reports whether a usable credential exists without revealing
// the token itself.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	_, authenticated := h.StoredAccessToken(r.Context())

	writeJSON(w, http.StatusOK, map[string]any{
		"authenticated":     authenticated || h.cfg.APIToken != "",
		"oauth_configured":  h.cfg.OAuthConfigured(),
		"api_token_present": h.cfg.APIToken != "",
	})
}

// HandleLogout deletes the stored token for the default key. Deleting a
// missing token is not an error.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Delete(r.Context(), tokenPrefix+DefaultTokenKey); err != nil {
		h.logger.Error("failed to delete stored token", logging.Err(err))
		h.metrics.RecordOAuthAttempt(r.Context(), stepLogout, instrumentation.ResultError)
		writeJSONError(w, http.StatusInternalServerError, "failed to delete token")
		return
	}
	h.metrics.RecordOAuthAttempt(r.Context(), stepLogout, instrumentation.ResultSuccess)
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// StoredAccessToken returns the decrypted access token for the default key.
// Any storage or decryption failure is treated as "no token".
func (h *Handler) StoredAccessToken(ctx context.Context) (string, bool) {
	sealed, ok, err := h.store.Get(ctx, tokenPrefix+DefaultTokenKey)
	if err != nil || !ok {
		return "", false
	}

	plaintext, err := h.cipher.Decrypt(sealed)
	if err != nil {
		h.logger.Warn("stored token unreadable, treating as absent", logging.Err(err))
		return "", false
	}

	var record TokenRecord
	if err := json.Unmarshal(plaintext, &record); err != nil {
		return "", false
	}
	return record.AccessToken, true
}

// StoreToken persists a token record under the default key. The callback
// flow uses the internal path; this is for injecting a token out of band.
func (h *Handler) StoreToken(ctx context.Context, record TokenRecord) error {
	return h.saveToken(ctx, DefaultTokenKey, record)
}

// saveToken encrypts the record and stores it under the resolved user key
// and the default key, each with the long token TTL.
func (h *Handler) saveToken(ctx context.Context, userKey string, record TokenRecord) error {
	plaintext, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode token record: %w", err)
	}

	sealed, err := h.cipher.Encrypt(plaintext)
	if err != nil {
		return fmt.Errorf("failed to encrypt token record: %w", err)
	}

	if err := h.store.Put(ctx, tokenPrefix+userKey, sealed, h.cfg.TokenTTL); err != nil {
		return fmt.Errorf("failed to store token for %s: %w", userKey, err)
	}
	if userKey != DefaultTokenKey {
		if err := h.store.Put(ctx, tokenPrefix+DefaultTokenKey, sealed, h.cfg.TokenTTL); err != nil {
			return fmt.Errorf("failed to store token for default key: %w", err)
		}
	}
	return nil
}

// resolveUserKey resolves the authorized user's ID for use as the storage
// key. Best effort: any failure falls back to the default key.
func (h *Handler) resolveUserKey(ctx context.Context, accessToken string) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.cfg.UserInfoURL, nil)
	if err != nil {
		return DefaultTokenKey
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := h.httpClient.Do(req)
	if err != nil {
		h.logger.Warn("user resolution failed, using default key", logging.Err(err))
		return DefaultTokenKey
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return DefaultTokenKey
	}

	var body struct {
		User struct {
			ID json.Number `json:"id"`
		} `json:"user"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body.User.ID.String() == "" {
		return DefaultTokenKey
	}

	return "user:" + body.User.ID.String()
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

const confirmationPage = `<!DOCTYPE html>
<html>
<head><title>ClickUp authorization complete</title></head>
<body>
<h1>Authorization complete</h1>
<p>Your ClickUp account is now connected. You can close this window and
return to your AI assistant.</p>
</body>
</html>
`
