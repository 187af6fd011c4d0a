package cmd

import (
	"bytes"
	"context"
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/taskops/clickup-mcp/internal/clickup"
	"github.com/taskops/clickup-mcp/internal/config"
	"github.com/taskops/clickup-mcp/internal/instrumentation"
	"github.com/taskops/clickup-mcp/internal/logging"
	"github.com/taskops/clickup-mcp/internal/server"
)

func TestApplyServeEnvFallbacks(t *testing.T) {
	t.Setenv("CLICKUP_API_TOKEN", "pk_token")
	t.Setenv("CLICKUP_DEFAULT_LIST_ID", "list-env")
	t.Setenv("CLICKUP_DEFAULT_TEAM_ID", "team-env")
	t.Setenv("CLICKUP_CLIENT_ID", "client-env")
	t.Setenv("CLICKUP_CLIENT_SECRET", "secret-env")
	t.Setenv("OAUTH_STORAGE_TYPE", "valkey")
	t.Setenv("VALKEY_URL", "valkey.svc:6379")
	t.Setenv("METRICS_ENABLED", "false")

	cmd := newServeCmd()
	opts := serveOptions{storageType: "memory", metricsEnabled: true}

	if err := applyServeEnv(cmd, &opts, ""); err != nil {
		t.Fatalf("applyServeEnv() error = %v", err)
	}

	if opts.apiToken != "pk_token" {
		t.Errorf("apiToken = %q", opts.apiToken)
	}
	if opts.defaultListID != "list-env" {
		t.Errorf("defaultListID = %q", opts.defaultListID)
	}
	if opts.defaultTeamID != "team-env" {
		t.Errorf("defaultTeamID = %q", opts.defaultTeamID)
	}
	if opts.clientID != "client-env" || opts.clientSecret != "secret-env" {
		t.Errorf("oauth credentials = %q/%q", opts.clientID, opts.clientSecret)
	}
	if opts.storageType != "valkey" {
		t.Errorf("storageType = %q", opts.storageType)
	}
	if opts.valkey.URL != "valkey.svc:6379" {
		t.Errorf("valkey URL = %q", opts.valkey.URL)
	}
	if opts.metricsEnabled {
		t.Error("metricsEnabled should be false from env")
	}
}

func TestApplyServeEnvFlagsWinOverEnv(t *testing.T) {
	t.Setenv("CLICKUP_DEFAULT_LIST_ID", "list-env")

	cmd := newServeCmd()
	if err := cmd.Flags().Set("default-list-id", "list-flag"); err != nil {
		t.Fatal(err)
	}

	opts := serveOptions{defaultListID: "list-flag"}
	if err := applyServeEnv(cmd, &opts, ""); err != nil {
		t.Fatalf("applyServeEnv() error = %v", err)
	}

	if opts.defaultListID != "list-flag" {
		t.Errorf("defaultListID = %q, flag should win over env", opts.defaultListID)
	}
}

func TestApplyServeEnvEncryptionKey(t *testing.T) {
	key := base64.StdEncoding.EncodeToString(make([]byte, 32))

	cmd := newServeCmd()
	opts := serveOptions{}
	if err := applyServeEnv(cmd, &opts, key); err != nil {
		t.Fatalf("applyServeEnv() error = %v", err)
	}
	if len(opts.encryptionKey) != 32 {
		t.Errorf("encryptionKey length = %d", len(opts.encryptionKey))
	}
}

func TestApplyServeEnvEncryptionKeyErrors(t *testing.T) {
	cmd := newServeCmd()

	opts := serveOptions{}
	if err := applyServeEnv(cmd, &opts, "not base64!!!"); err == nil {
		t.Error("expected error for non-base64 key")
	}

	short := base64.StdEncoding.EncodeToString(make([]byte, 16))
	if err := applyServeEnv(cmd, &opts, short); err == nil {
		t.Error("expected error for 16-byte key")
	}
}

func TestNewTokenStore(t *testing.T) {
	st, err := newTokenStore(serveOptions{storageType: "memory"})
	if err != nil {
		t.Fatalf("newTokenStore(memory) error = %v", err)
	}
	_ = st.Close()

	st, err = newTokenStore(serveOptions{})
	if err != nil {
		t.Fatalf("newTokenStore(empty) error = %v", err)
	}
	_ = st.Close()

	if _, err := newTokenStore(serveOptions{storageType: "redis"}); err == nil {
		t.Error("expected error for unsupported storage type")
	}
}

func TestAutoBaseURL(t *testing.T) {
	tests := []struct {
		addr string
		want string
	}{
		{"", "http://localhost:8080"},
		{":9000", "http://localhost:9000"},
		{"0.0.0.0:8080", "http://0.0.0.0:8080"},
		{"mcp.example.com:8080", "http://mcp.example.com:8080"},
	}

	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			if got := autoBaseURL(tt.addr); got != tt.want {
				t.Errorf("autoBaseURL(%q) = %q, want %q", tt.addr, got, tt.want)
			}
		})
	}
}

func TestToolMetricsMiddleware(t *testing.T) {
	var logBuf bytes.Buffer
	logging.SetupWithWriter(&logBuf, true)
	defer logging.Setup(false)

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = mp.Shutdown(context.Background()) }()

	metrics, err := instrumentation.NewMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("NewMetrics() error = %v", err)
	}

	cfg := config.New()
	sc := server.NewServerContext(t.Context(), cfg, clickup.NewClient(cfg), nil, metrics)
	defer func() { _ = sc.Shutdown() }()

	handler := toolMetricsMiddleware(sc)(func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		time.Sleep(time.Millisecond)
		return mcp.NewToolResultText("ok"), nil
	})

	request := mcp.CallToolRequest{}
	request.Params.Name = "clickup_get_task"
	if _, err := handler(t.Context(), request); err != nil {
		t.Fatalf("handler error = %v", err)
	}

	if !strings.Contains(logBuf.String(), "tool=clickup_get_task") {
		t.Errorf("log output missing tool attribute: %s", logBuf.String())
	}
	if !strings.Contains(logBuf.String(), "status=success") {
		t.Errorf("log output missing status attribute: %s", logBuf.String())
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(t.Context(), &rm); err != nil {
		t.Fatalf("Collect() error = %v", err)
	}

	found := false
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			if m.Name != "mcp_tool_invocations_total" {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok || len(sum.DataPoints) != 1 || sum.DataPoints[0].Value != 1 {
				t.Fatalf("unexpected invocation data: %+v", m.Data)
			}
			found = true
		}
	}
	if !found {
		t.Error("mcp_tool_invocations_total not recorded")
	}
}
