package clickup

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// APIError is returned for any non-2xx upstream response. The status code
// and raw response body are preserved verbatim.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("ClickUp API error: status %d: %s", e.StatusCode, e.Body)
}

// TaskSummary is the trimmed task shape returned by list operations.
type TaskSummary struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Status    string   `json:"status"`
	Priority  int      `json:"priority,omitempty"`
	DueDate   int64    `json:"due_date,omitempty"` // epoch milliseconds
	Assignees []string `json:"assignees,omitempty"`
}

// TaskPage is the result of a list-tasks call: the upstream-reported total,
// the number of tasks actually returned, and the trimmed tasks themselves.
type TaskPage struct {
	Total    int           `json:"total"`
	Returned int           `json:"returned"`
	Tasks    []TaskSummary `json:"tasks"`
}

// rawTask mirrors the subset of the upstream task JSON the adapter reads.
type rawTask struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status struct {
		Status string `json:"status"`
	} `json:"status"`
	Priority *struct {
		ID       string `json:"id"`
		Priority string `json:"priority"`
	} `json:"priority"`
	DueDate   string `json:"due_date"` // epoch ms, serialized as string upstream
	Assignees []struct {
		Username string `json:"username"`
	} `json:"assignees"`
}

type taskListResponse struct {
	Tasks      []rawTask `json:"tasks"`
	TotalCount int       `json:"total_count"`
}

// toSummary converts an upstream task to its trimmed form.
func toSummary(t rawTask) TaskSummary {
	s := TaskSummary{
		ID:     t.ID,
		Name:   t.Name,
		Status: t.Status.Status,
	}

	if t.Priority != nil {
		if p, err := strconv.Atoi(t.Priority.ID); err == nil {
			s.Priority = p
		}
	}

	if t.DueDate != "" {
		if ms, err := strconv.ParseInt(t.DueDate, 10, 64); err == nil {
			s.DueDate = ms
		}
	}

	for _, a := range t.Assignees {
		if a.Username != "" {
			s.Assignees = append(s.Assignees, a.Username)
		}
	}

	return s
}

// FieldOption is one entry of an enumerated custom field.
type FieldOption struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

// CustomField is the adapter's view of an upstream custom field definition.
type CustomField struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Type       string         `json:"type"`
	TypeConfig map[string]any `json:"type_config,omitempty"`
	Options    []FieldOption  `json:"options,omitempty"`
	Required   bool           `json:"required"`
}

// FieldList is the result of field discovery for a list.
type FieldList struct {
	ListID  string        `json:"list_id"`
	Fields  []CustomField `json:"fields"`
	Summary string        `json:"summary"`
}

// rawField mirrors the upstream field definition JSON.
type rawField struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Type       string         `json:"type"`
	TypeConfig map[string]any `json:"type_config"`
	Required   bool           `json:"required"`
}

type fieldListResponse struct {
	Fields []rawField `json:"fields"`
}

// toCustomField converts an upstream field definition, lifting the option
// list out of type_config when present.
func toCustomField(f rawField) CustomField {
	cf := CustomField{
		ID:         f.ID,
		Name:       f.Name,
		Type:       f.Type,
		TypeConfig: f.TypeConfig,
		Required:   f.Required,
	}

	if f.TypeConfig == nil {
		return cf
	}

	opts, ok := f.TypeConfig["options"].([]any)
	if !ok {
		return cf
	}

	for _, o := range opts {
		m, ok := o.(map[string]any)
		if !ok {
			continue
		}
		opt := FieldOption{}
		if id, ok := m["id"].(string); ok {
			opt.ID = id
		}
		// Dropdown options use "name", label fields use "label".
		if name, ok := m["name"].(string); ok {
			opt.Name = name
		} else if label, ok := m["label"].(string); ok {
			opt.Name = label
		}
		if color, ok := m["color"].(string); ok {
			opt.Color = color
		}
		cf.Options = append(cf.Options, opt)
	}

	return cf
}

// fieldSummary builds the human-readable summary line listing field names.
func fieldSummary(fields []CustomField) string {
	if len(fields) == 0 {
		return "No custom fields defined on this list."
	}
	names := make([]string, 0, len(fields))
	for _, f := range fields {
		names = append(names, f.Name)
	}
	sort.Strings(names)
	return fmt.Sprintf("%d custom fields: %s", len(fields), strings.Join(names, ", "))
}

// FieldValueKind enumerates the wire shapes a custom field value can take.
type FieldValueKind int

const (
	FieldValueString FieldValueKind = iota
	FieldValueNumber
	FieldValueBool
	FieldValueStringList
)

// FieldValue is a typed custom field value. The kind is selected by the
// field's declared type and validated before any network call.
type FieldValue struct {
	Kind FieldValueKind
	Str  string
	Num  float64
	Bool bool
	List []string
}

// fieldValueKinds maps ClickUp field types to the value shape they accept.
var fieldValueKinds = map[string]FieldValueKind{
	"text":       FieldValueString,
	"short_text": FieldValueString,
	"url":        FieldValueString,
	"email":      FieldValueString,
	"phone":      FieldValueString,
	"drop_down":  FieldValueString,
	"number":     FieldValueNumber,
	"currency":   FieldValueNumber,
	"date":       FieldValueNumber,
	"checkbox":   FieldValueBool,
	"labels":     FieldValueStringList,
	"users":      FieldValueStringList,
}

// FieldTypes returns the supported field type tags, sorted.
func FieldTypes() []string {
	types := make([]string, 0, len(fieldValueKinds))
	for t := range fieldValueKinds {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// NewFieldValue validates a JSON-decoded value against the declared field
// type and returns the typed variant. A mismatch is an error; no request is
// built from an invalid value.
func NewFieldValue(fieldType string, raw any) (FieldValue, error) {
	kind, ok := fieldValueKinds[fieldType]
	if !ok {
		return FieldValue{}, fmt.Errorf("unsupported field type %q (supported: %s)",
			fieldType, strings.Join(FieldTypes(), ", "))
	}

	switch kind {
	case FieldValueString:
		s, ok := raw.(string)
		if !ok {
			return FieldValue{}, fmt.Errorf("field type %q requires a string value, got %T", fieldType, raw)
		}
		return FieldValue{Kind: FieldValueString, Str: s}, nil

	case FieldValueNumber:
		n, ok := raw.(float64)
		if !ok {
			return FieldValue{}, fmt.Errorf("field type %q requires a numeric value, got %T", fieldType, raw)
		}
		return FieldValue{Kind: FieldValueNumber, Num: n}, nil

	case FieldValueBool:
		b, ok := raw.(bool)
		if !ok {
			return FieldValue{}, fmt.Errorf("field type %q requires a boolean value, got %T", fieldType, raw)
		}
		return FieldValue{Kind: FieldValueBool, Bool: b}, nil

	case FieldValueStringList:
		items, ok := raw.([]any)
		if !ok {
			return FieldValue{}, fmt.Errorf("field type %q requires an array of strings, got %T", fieldType, raw)
		}
		list := make([]string, 0, len(items))
		for i, item := range items {
			s, ok := item.(string)
			if !ok {
				return FieldValue{}, fmt.Errorf("field type %q requires an array of strings, element %d is %T", fieldType, i, item)
			}
			list = append(list, s)
		}
		return FieldValue{Kind: FieldValueStringList, List: list}, nil
	}

	return FieldValue{}, fmt.Errorf("unsupported field type %q", fieldType)
}

// Payload returns the value in the shape the upstream API expects.
func (v FieldValue) Payload() any {
	switch v.Kind {
	case FieldValueNumber:
		return v.Num
	case FieldValueBool:
		return v.Bool
	case FieldValueStringList:
		return v.List
	default:
		return v.Str
	}
}

// ListTasksOptions holds validated arguments for a list-tasks call.
type ListTasksOptions struct {
	ListID          string
	Statuses        []string
	Assignees       []string
	OrderBy         string
	Page            int
	Limit           int
	IncludeArchived bool
}

// CreateTaskInput holds validated arguments for a create-task call.
type CreateTaskInput struct {
	Name        string
	Description string
	Assignees   []int64
	Priority    int   // 1=urgent .. 4=low, 0 means unset
	DueDate     int64 // epoch milliseconds, 0 means unset
	Status      string
	NotifyAll   bool
}

// CommentInput holds validated arguments for a post-comment call.
type CommentInput struct {
	Text      string
	Assignee  int64 // 0 means unset
	NotifyAll bool
}

// DocInput holds validated arguments for a create-doc call.
type DocInput struct {
	Name       string
	ParentID   string
	ParentType int
}

// PrettyJSON re-indents a raw upstream payload for tool output. Invalid JSON
// is returned as-is.
func PrettyJSON(raw json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return string(raw)
	}
	return buf.String()
}
