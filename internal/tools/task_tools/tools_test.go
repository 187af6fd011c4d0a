package task_tools

import (
	"testing"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/taskops/clickup-mcp/internal/clickup"
	"github.com/taskops/clickup-mcp/internal/config"
	"github.com/taskops/clickup-mcp/internal/server"
)

func newTestContext(t *testing.T, defaultListID string) *server.ServerContext {
	t.Helper()
	cfg := config.New()
	cfg.DefaultListID = defaultListID
	sc := server.NewServerContext(t.Context(), cfg, clickup.NewClient(cfg), nil, nil)
	t.Cleanup(func() { _ = sc.Shutdown() })
	return sc
}

func TestResolveListID(t *testing.T) {
	sc := newTestContext(t, "default-list")

	// Explicit argument wins.
	listID, err := resolveListID(map[string]any{"list_id": "explicit"}, sc)
	if err != nil || listID != "explicit" {
		t.Errorf("resolveListID() = (%q, %v)", listID, err)
	}

	// Falls back to the configured default.
	listID, err = resolveListID(map[string]any{}, sc)
	if err != nil || listID != "default-list" {
		t.Errorf("resolveListID() = (%q, %v)", listID, err)
	}
}

func TestResolveListIDNoDefault(t *testing.T) {
	sc := newTestContext(t, "")

	_, err := resolveListID(map[string]any{}, sc)
	if err == nil {
		t.Error("resolveListID() should fail when no list is given or configured")
	}
}

func TestPriorityArg(t *testing.T) {
	tests := []struct {
		name    string
		args    map[string]any
		want    int
		wantErr bool
	}{
		{"absent", map[string]any{}, 0, false},
		{"urgent", map[string]any{"priority": 1.0}, 1, false},
		{"low", map[string]any{"priority": 4.0}, 4, false},
		{"too small", map[string]any{"priority": 0.0}, 0, true},
		{"too large", map[string]any{"priority": 5.0}, 0, true},
		{"fractional", map[string]any{"priority": 2.5}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := priorityArg(tt.args)
			if (err != nil) != tt.wantErr {
				t.Fatalf("priorityArg() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && got != tt.want {
				t.Errorf("priorityArg() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestRegisterTaskTools(t *testing.T) {
	sc := newTestContext(t, "")
	s := mcpserver.NewMCPServer("test", "dev")

	if err := RegisterTaskTools(s, sc); err != nil {
		t.Errorf("RegisterTaskTools() error = %v", err)
	}
}
