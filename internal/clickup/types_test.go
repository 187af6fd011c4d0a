package clickup

import (
	"strings"
	"testing"
)

func TestNewFieldValue(t *testing.T) {
	tests := []struct {
		name      string
		fieldType string
		raw       any
		wantKind  FieldValueKind
		wantErr   bool
	}{
		{"text with string", "text", "hello", FieldValueString, false},
		{"short_text with string", "short_text", "hi", FieldValueString, false},
		{"url with string", "url", "https://example.com", FieldValueString, false},
		{"drop_down with option id", "drop_down", "opt-123", FieldValueString, false},
		{"number with float", "number", 42.5, FieldValueNumber, false},
		{"currency with float", "currency", 9.99, FieldValueNumber, false},
		{"date with epoch ms", "date", float64(1735689600000), FieldValueNumber, false},
		{"checkbox with bool", "checkbox", true, FieldValueBool, false},
		{"labels with string array", "labels", []any{"a", "b"}, FieldValueStringList, false},
		{"users with string array", "users", []any{"42"}, FieldValueStringList, false},
		{"text with number", "text", 42.0, 0, true},
		{"number with string", "number", "42", 0, true},
		{"checkbox with string", "checkbox", "true", 0, true},
		{"labels with scalar", "labels", "a,b", 0, true},
		{"labels with mixed array", "labels", []any{"a", 1.0}, 0, true},
		{"unknown field type", "rating", "5", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := NewFieldValue(tt.fieldType, tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewFieldValue() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && v.Kind != tt.wantKind {
				t.Errorf("NewFieldValue() kind = %v, want %v", v.Kind, tt.wantKind)
			}
		})
	}
}

func TestNewFieldValueUnknownTypeListsSupported(t *testing.T) {
	_, err := NewFieldValue("rating", "5")
	if err == nil {
		t.Fatal("expected error for unknown field type")
	}
	if !strings.Contains(err.Error(), "checkbox") {
		t.Errorf("error should list supported types, got: %v", err)
	}
}

func TestFieldValuePayload(t *testing.T) {
	tests := []struct {
		name  string
		value FieldValue
		want  any
	}{
		{"string", FieldValue{Kind: FieldValueString, Str: "x"}, "x"},
		{"number", FieldValue{Kind: FieldValueNumber, Num: 3.5}, 3.5},
		{"bool", FieldValue{Kind: FieldValueBool, Bool: true}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.value.Payload(); got != tt.want {
				t.Errorf("Payload() = %v, want %v", got, tt.want)
			}
		})
	}

	list := FieldValue{Kind: FieldValueStringList, List: []string{"a", "b"}}
	got, ok := list.Payload().([]string)
	if !ok || len(got) != 2 || got[0] != "a" {
		t.Errorf("Payload() for list = %v", list.Payload())
	}
}

func TestToSummary(t *testing.T) {
	raw := rawTask{
		ID:   "abc123",
		Name: "Ship release",
	}
	raw.Status.Status = "in progress"
	raw.Priority = &struct {
		ID       string `json:"id"`
		Priority string `json:"priority"`
	}{ID: "2", Priority: "high"}
	raw.DueDate = "1735689600000"
	raw.Assignees = []struct {
		Username string `json:"username"`
	}{{Username: "alice"}, {Username: "bob"}}

	s := toSummary(raw)

	if s.ID != "abc123" || s.Name != "Ship release" {
		t.Errorf("unexpected identity fields: %+v", s)
	}
	if s.Status != "in progress" {
		t.Errorf("Status = %q", s.Status)
	}
	if s.Priority != 2 {
		t.Errorf("Priority = %d, want 2", s.Priority)
	}
	if s.DueDate != 1735689600000 {
		t.Errorf("DueDate = %d", s.DueDate)
	}
	if len(s.Assignees) != 2 || s.Assignees[0] != "alice" {
		t.Errorf("Assignees = %v", s.Assignees)
	}
}

func TestToSummaryMissingOptionalFields(t *testing.T) {
	raw := rawTask{ID: "t1", Name: "bare"}
	raw.Status.Status = "open"

	s := toSummary(raw)

	if s.Priority != 0 {
		t.Errorf("Priority = %d, want 0 for missing priority", s.Priority)
	}
	if s.DueDate != 0 {
		t.Errorf("DueDate = %d, want 0 for missing due date", s.DueDate)
	}
	if s.Assignees != nil {
		t.Errorf("Assignees = %v, want nil", s.Assignees)
	}
}

func TestToSummaryUnparsableDueDate(t *testing.T) {
	raw := rawTask{ID: "t1", Name: "x"}
	raw.DueDate = "not-a-number"

	if s := toSummary(raw); s.DueDate != 0 {
		t.Errorf("DueDate = %d, want 0 for unparsable value", s.DueDate)
	}
}

func TestToCustomFieldLiftsOptions(t *testing.T) {
	f := rawField{
		ID:   "f1",
		Name: "Stage",
		Type: "drop_down",
		TypeConfig: map[string]any{
			"options": []any{
				map[string]any{"id": "o1", "name": "Backlog", "color": "#ccc"},
				map[string]any{"id": "o2", "label": "Done"},
			},
		},
	}

	cf := toCustomField(f)

	if len(cf.Options) != 2 {
		t.Fatalf("Options = %v, want 2 entries", cf.Options)
	}
	if cf.Options[0].Name != "Backlog" || cf.Options[0].Color != "#ccc" {
		t.Errorf("first option = %+v", cf.Options[0])
	}
	// Label fields carry "label" instead of "name".
	if cf.Options[1].Name != "Done" {
		t.Errorf("second option = %+v", cf.Options[1])
	}
}

func TestFieldSummary(t *testing.T) {
	if got := fieldSummary(nil); got != "No custom fields defined on this list." {
		t.Errorf("empty summary = %q", got)
	}

	fields := []CustomField{{Name: "Sprint"}, {Name: "Effort"}}
	got := fieldSummary(fields)
	if !strings.HasPrefix(got, "2 custom fields:") {
		t.Errorf("summary = %q", got)
	}
	// Names are sorted for deterministic output.
	if !strings.Contains(got, "Effort, Sprint") {
		t.Errorf("summary should sort names, got %q", got)
	}
}

func TestPrettyJSON(t *testing.T) {
	out := PrettyJSON([]byte(`{"a":1}`))
	if !strings.Contains(out, "\n") {
		t.Errorf("expected indented output, got %q", out)
	}

	// Invalid JSON passes through untouched.
	if got := PrettyJSON([]byte("not json")); got != "not json" {
		t.Errorf("PrettyJSON(invalid) = %q", got)
	}
}
