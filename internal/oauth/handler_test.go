package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/taskops/clickup-mcp/internal/config"
	"github.com/taskops/clickup-mcp/internal/instrumentation"
	"github.com/taskops/clickup-mcp/internal/store"
)

// fakeUpstream simulates the ClickUp token and user endpoints, counting
// exchanges so replay tests can assert none happened.
type fakeUpstream struct {
	server    *httptest.Server
	exchanges atomic.Int32
	userID    string
}

func newFakeUpstream(t *testing.T) *fakeUpstream {
	t.Helper()
	f := &fakeUpstream{userID: "42"}

	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		f.exchanges.Add(1)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"at-secret-123","token_type":"Bearer"}`)
	})
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		if f.userID == "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"user":{"id":%s,"username":"alice"}}`, f.userID)
	})

	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func newTestHandler(t *testing.T, upstream *fakeUpstream) (*Handler, *store.MemoryStore) {
	t.Helper()

	cfg := config.New()
	cfg.OAuth.ClientID = "client-id"
	cfg.OAuth.ClientSecret = "client-secret"
	cfg.EncryptionKey = testKey()
	cfg.AuthURL = upstream.server.URL + "/authorize"
	cfg.TokenURL = upstream.server.URL + "/oauth/token"
	cfg.UserInfoURL = upstream.server.URL + "/user"

	st := store.NewMemoryStore()
	t.Cleanup(func() { _ = st.Close() })

	h, err := NewHandler(cfg, "http://localhost:8080", st)
	require.NoError(t, err)
	h.SetHTTPClient(upstream.server.Client())
	return h, st
}

// authorize runs the authorize handler and returns the state nonce from the
// redirect URL.
func authorize(t *testing.T, h *Handler) string {
	t.Helper()

	rec := httptest.NewRecorder()
	h.HandleAuthorize(rec, httptest.NewRequest(http.MethodGet, "/oauth/authorize", nil))
	require.Equal(t, http.StatusFound, rec.Code)

	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	nonce := loc.Query().Get("state")
	require.NotEmpty(t, nonce)
	assert.Equal(t, "client-id", loc.Query().Get("client_id"))
	return nonce
}

func callback(h *Handler, code, state string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	target := "/oauth/callback?code=" + url.QueryEscape(code) + "&state=" + url.QueryEscape(state)
	h.HandleCallback(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestAuthorizeRequiresClientID(t *testing.T) {
	upstream := newFakeUpstream(t)
	h, _ := newTestHandler(t, upstream)
	h.cfg.OAuth.ClientID = ""

	rec := httptest.NewRecorder()
	h.HandleAuthorize(rec, httptest.NewRequest(http.MethodGet, "/oauth/authorize", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestAuthorizeStoresFreshNoncePerRequest(t *testing.T) {
	upstream := newFakeUpstream(t)
	h, st := newTestHandler(t, upstream)

	first := authorize(t, h)
	second := authorize(t, h)

	assert.NotEqual(t, first, second)
	assert.Equal(t, 2, st.Len())
}

func TestCallbackStoresTokenUnderBothKeys(t *testing.T) {
	upstream := newFakeUpstream(t)
	h, st := newTestHandler(t, upstream)

	nonce := authorize(t, h)
	rec := callback(h, "auth-code", nonce)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Authorization complete")
	assert.Equal(t, int32(1), upstream.exchanges.Load())

	for _, key := range []string{tokenPrefix + "user:42", tokenPrefix + DefaultTokenKey} {
		sealed, ok, err := st.Get(t.Context(), key)
		require.NoError(t, err)
		require.True(t, ok, "token missing under %s", key)
		assert.NotContains(t, sealed, "at-secret-123", "token must be stored encrypted")
	}

	token, ok := h.StoredAccessToken(t.Context())
	require.True(t, ok)
	assert.Equal(t, "at-secret-123", token)
}

func TestCallbackFallsBackToDefaultKey(t *testing.T) {
	upstream := newFakeUpstream(t)
	upstream.userID = ""
	h, st := newTestHandler(t, upstream)

	nonce := authorize(t, h)
	rec := callback(h, "auth-code", nonce)

	require.Equal(t, http.StatusOK, rec.Code)
	_, ok, err := st.Get(t.Context(), tokenPrefix+DefaultTokenKey)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, st.Len(), "only the default key should be written")
}

func TestCallbackReplayDoesNotExchangeAgain(t *testing.T) {
	upstream := newFakeUpstream(t)
	h, _ := newTestHandler(t, upstream)

	nonce := authorize(t, h)
	require.Equal(t, http.StatusOK, callback(h, "auth-code", nonce).Code)

	replay := callback(h, "auth-code", nonce)
	assert.Equal(t, http.StatusBadRequest, replay.Code)
	assert.Contains(t, replay.Body.String(), "invalid state")
	assert.Equal(t, int32(1), upstream.exchanges.Load(), "replay must not trigger a second exchange")
}

func TestCallbackUnknownState(t *testing.T) {
	upstream := newFakeUpstream(t)
	h, _ := newTestHandler(t, upstream)

	rec := callback(h, "auth-code", "never-issued")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, int32(0), upstream.exchanges.Load())
}

func TestCallbackMissingParameters(t *testing.T) {
	upstream := newFakeUpstream(t)
	h, _ := newTestHandler(t, upstream)

	rec := httptest.NewRecorder()
	h.HandleCallback(rec, httptest.NewRequest(http.MethodGet, "/oauth/callback", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.HandleCallback(rec, httptest.NewRequest(http.MethodGet, "/oauth/callback?error=access_denied", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, int32(0), upstream.exchanges.Load())
}

func TestCallbackRedirectsWhenRequested(t *testing.T) {
	upstream := newFakeUpstream(t)
	h, _ := newTestHandler(t, upstream)

	rec := httptest.NewRecorder()
	h.HandleAuthorize(rec, httptest.NewRequest(http.MethodGet, "/oauth/authorize?redirect=/done", nil))
	require.Equal(t, http.StatusFound, rec.Code)
	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)

	cb := callback(h, "auth-code", loc.Query().Get("state"))
	assert.Equal(t, http.StatusFound, cb.Code)
	assert.Equal(t, "/done", cb.Header().Get("Location"))
}

func TestStatusNeverRevealsToken(t *testing.T) {
	upstream := newFakeUpstream(t)
	h, _ := newTestHandler(t, upstream)

	rec := httptest.NewRecorder()
	h.HandleStatus(rec, httptest.NewRequest(http.MethodGet, "/oauth/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var status map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, false, status["authenticated"])
	assert.Equal(t, true, status["oauth_configured"])
	assert.Equal(t, false, status["api_token_present"])

	nonce := authorize(t, h)
	callback(h, "auth-code", nonce)

	rec = httptest.NewRecorder()
	h.HandleStatus(rec, httptest.NewRequest(http.MethodGet, "/oauth/status", nil))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, true, status["authenticated"])
	assert.NotContains(t, rec.Body.String(), "at-secret-123")
}

func TestLogoutIsIdempotent(t *testing.T) {
	upstream := newFakeUpstream(t)
	h, _ := newTestHandler(t, upstream)

	nonce := authorize(t, h)
	callback(h, "auth-code", nonce)

	_, ok := h.StoredAccessToken(t.Context())
	require.True(t, ok)

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		h.HandleLogout(rec, httptest.NewRequest(http.MethodPost, "/oauth/logout", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"success":true`)
	}

	_, ok = h.StoredAccessToken(t.Context())
	assert.False(t, ok)
}

func TestStoredAccessTokenDecryptionFailureIsAbsent(t *testing.T) {
	upstream := newFakeUpstream(t)
	h, st := newTestHandler(t, upstream)

	// A record written under a different key is unreadable after rotation.
	require.NoError(t, st.Put(t.Context(), tokenPrefix+DefaultTokenKey, "bm90LXZhbGlkLWNpcGhlcnRleHQ=", 0))

	_, ok := h.StoredAccessToken(t.Context())
	assert.False(t, ok)
}

func TestCallbackRecordsAttemptMetrics(t *testing.T) {
	upstream := newFakeUpstream(t)
	h, _ := newTestHandler(t, upstream)

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	metrics, err := instrumentation.NewMetrics(mp.Meter("test"))
	require.NoError(t, err)
	h.SetMetrics(metrics)

	nonce := authorize(t, h)
	rec := callback(h, "auth-code", nonce)
	require.Equal(t, http.StatusOK, rec.Code)

	// Replaying the nonce fails and must land on the error side.
	rec = callback(h, "auth-code", nonce)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(t.Context(), &rm))

	counts := map[string]int64{}
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			if m.Name != "oauth_attempts_total" {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, dp := range sum.DataPoints {
				step, _ := dp.Attributes.Value(attribute.Key("step"))
				result, _ := dp.Attributes.Value(attribute.Key("result"))
				counts[step.AsString()+"/"+result.AsString()] += dp.Value
			}
		}
	}

	assert.Equal(t, int64(1), counts["authorize/success"])
	assert.Equal(t, int64(1), counts["callback/success"])
	assert.Equal(t, int64(1), counts["callback/error"])
}
