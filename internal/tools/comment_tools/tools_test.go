package comment_tools

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/taskops/clickup-mcp/internal/clickup"
	"github.com/taskops/clickup-mcp/internal/config"
	"github.com/taskops/clickup-mcp/internal/server"
)

func TestRegisterCommentTools(t *testing.T) {
	cfg := config.New()
	sc := server.NewServerContext(t.Context(), cfg, clickup.NewClient(cfg), nil, nil)
	defer func() { _ = sc.Shutdown() }()

	s := mcpserver.NewMCPServer("test", "dev")
	if err := RegisterCommentTools(s, sc); err != nil {
		t.Errorf("RegisterCommentTools() error = %v", err)
	}
}

// callTool drives a registered tool through the server's JSON-RPC entry
// point, the same path a connected client takes.
func callTool(t *testing.T, s *mcpserver.MCPServer, name string, toolArgs map[string]any) {
	t.Helper()

	init := `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05","capabilities":{},"clientInfo":{"name":"test","version":"dev"}}}`
	s.HandleMessage(t.Context(), json.RawMessage(init))

	call, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      2,
		"method":  "tools/call",
		"params":  map[string]any{"name": name, "arguments": toolArgs},
	})
	if err != nil {
		t.Fatalf("marshal call: %v", err)
	}
	s.HandleMessage(t.Context(), json.RawMessage(call))
}

func TestPostCommentNotifiesWatchersByDefault(t *testing.T) {
	var gotBody []byte
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v2/task/t1/comment" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		gotBody, _ = io.ReadAll(r.Body)
		fmt.Fprint(w, `{"id":"c1"}`)
	}))
	defer upstream.Close()

	cfg := config.New()
	cfg.APIBaseURL = upstream.URL + "/api/v2"
	cfg.APIToken = "token"

	client := clickup.NewClient(cfg)
	client.SetHTTPClient(upstream.Client())

	sc := server.NewServerContext(t.Context(), cfg, client, nil, nil)
	defer func() { _ = sc.Shutdown() }()

	s := mcpserver.NewMCPServer("test", "dev")
	if err := RegisterCommentTools(s, sc); err != nil {
		t.Fatalf("RegisterCommentTools() error = %v", err)
	}

	callTool(t, s, "clickup_post_comment", map[string]any{
		"task_id": "t1", "comment_text": "on it",
	})

	var body struct {
		CommentText string `json:"comment_text"`
		NotifyAll   bool   `json:"notify_all"`
	}
	if err := json.Unmarshal(gotBody, &body); err != nil {
		t.Fatalf("decode upstream body: %v", err)
	}
	if body.CommentText != "on it" {
		t.Errorf("comment_text = %q", body.CommentText)
	}
	if !body.NotifyAll {
		t.Error("notify_all should default to true")
	}
}
