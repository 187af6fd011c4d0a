package clickup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/taskops/clickup-mcp/internal/config"
	"github.com/taskops/clickup-mcp/internal/instrumentation"
	"github.com/taskops/clickup-mcp/internal/logging"
)

// Client performs ClickUp API calls. Every method issues exactly one HTTP
// request; credentials are passed per call so the client itself holds no
// auth state.
type Client struct {
	baseURL     string
	docsBaseURL string
	httpClient  *http.Client
	logger      *slog.Logger
	metrics     *instrumentation.Metrics
}

// NewClient creates a ClickUp API client from the given configuration.
func NewClient(cfg config.Config) *Client {
	return &Client{
		baseURL:     cfg.APIBaseURL,
		docsBaseURL: cfg.DocsAPIBaseURL,
		httpClient:  http.DefaultClient,
		logger:      slog.Default(),
		metrics:     &instrumentation.Metrics{},
	}
}

// SetHTTPClient overrides the underlying HTTP client, mainly for tests.
func (c *Client) SetHTTPClient(hc *http.Client) {
	c.httpClient = hc
}

// SetMetrics attaches a metrics recorder for upstream operation counters
// and durations.
func (c *Client) SetMetrics(m *instrumentation.Metrics) {
	if m == nil {
		m = &instrumentation.Metrics{}
	}
	c.metrics = m
}

// do issues a single request against the upstream API and returns the raw
// response body. Any non-2xx status is returned as an *APIError carrying the
// status code and body verbatim. Every call is recorded against the
// operation name, whatever the outcome.
func (c *Client) do(ctx context.Context, token, operation, method, rawURL string, query url.Values, body any) (json.RawMessage, error) {
	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(payload)
	}

	if len(query) > 0 {
		rawURL = rawURL + "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.RecordAPIOperation(ctx, operation, instrumentation.ResultError, time.Since(start))
		return nil, fmt.Errorf("request to ClickUp failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		c.metrics.RecordAPIOperation(ctx, operation, instrumentation.ResultError, time.Since(start))
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.metrics.RecordAPIOperation(ctx, operation, instrumentation.ResultError, time.Since(start))
		c.logger.Debug("upstream call failed",
			logging.Operation(operation),
			logging.Status(logging.StatusError),
			slog.Int("status", resp.StatusCode))
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	c.metrics.RecordAPIOperation(ctx, operation, instrumentation.ResultSuccess, time.Since(start))
	return respBody, nil
}

// ListTasks lists tasks in a list, trimmed to the summary shape and capped
// at opts.Limit even when the upstream page contains more.
func (c *Client) ListTasks(ctx context.Context, token string, opts ListTasksOptions) (*TaskPage, error) {
	query := url.Values{}
	query.Set("page", strconv.Itoa(opts.Page))
	if opts.OrderBy != "" {
		query.Set("order_by", opts.OrderBy)
	}
	if opts.IncludeArchived {
		query.Set("archived", "true")
	}
	for _, s := range opts.Statuses {
		query.Add("statuses[]", s)
	}
	for _, a := range opts.Assignees {
		query.Add("assignees[]", a)
	}

	raw, err := c.do(ctx, token, "list_tasks", http.MethodGet, c.baseURL+"/list/"+opts.ListID+"/task", query, nil)
	if err != nil {
		return nil, err
	}

	var resp taskListResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode task list response: %w", err)
	}

	total := resp.TotalCount
	if total == 0 {
		total = len(resp.Tasks)
	}

	tasks := resp.Tasks
	if opts.Limit > 0 && len(tasks) > opts.Limit {
		tasks = tasks[:opts.Limit]
	}

	page := &TaskPage{
		Total:    total,
		Returned: len(tasks),
		Tasks:    make([]TaskSummary, 0, len(tasks)),
	}
	for _, t := range tasks {
		page.Tasks = append(page.Tasks, toSummary(t))
	}

	return page, nil
}

// GetTask retrieves a single task, returning the upstream JSON unmodified.
func (c *Client) GetTask(ctx context.Context, token, taskID string) (json.RawMessage, error) {
	return c.do(ctx, token, "get_task", http.MethodGet, c.baseURL+"/task/"+taskID, nil, nil)
}

// CreateTask creates a task in the given list.
func (c *Client) CreateTask(ctx context.Context, token, listID string, input CreateTaskInput) (json.RawMessage, error) {
	body := map[string]any{
		"name":       input.Name,
		"notify_all": input.NotifyAll,
	}
	if input.Description != "" {
		body["description"] = input.Description
	}
	if len(input.Assignees) > 0 {
		body["assignees"] = input.Assignees
	}
	if input.Priority != 0 {
		body["priority"] = input.Priority
	}
	if input.DueDate != 0 {
		body["due_date"] = input.DueDate
	}
	if input.Status != "" {
		body["status"] = input.Status
	}

	return c.do(ctx, token, "create_task", http.MethodPost, c.baseURL+"/list/"+listID+"/task", nil, body)
}

// UpdateTask applies a partial update to a task. The fields map has already
// been validated; it is passed through unchanged.
func (c *Client) UpdateTask(ctx context.Context, token, taskID string, fields map[string]any) (json.RawMessage, error) {
	return c.do(ctx, token, "update_task", http.MethodPut, c.baseURL+"/task/"+taskID, nil, fields)
}

// ListCustomFields discovers the custom fields of a list and maps them to
// the adapter's field shape, with a summary line listing field names.
func (c *Client) ListCustomFields(ctx context.Context, token, listID string) (*FieldList, error) {
	raw, err := c.do(ctx, token, "list_custom_fields", http.MethodGet, c.baseURL+"/list/"+listID+"/field", nil, nil)
	if err != nil {
		return nil, err
	}

	var resp fieldListResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode field list response: %w", err)
	}

	result := &FieldList{
		ListID: listID,
		Fields: make([]CustomField, 0, len(resp.Fields)),
	}
	for _, f := range resp.Fields {
		result.Fields = append(result.Fields, toCustomField(f))
	}
	result.Summary = fieldSummary(result.Fields)

	return result, nil
}

// SetCustomField sets a typed value on a task's custom field. The value has
// already been validated against the field's declared type.
func (c *Client) SetCustomField(ctx context.Context, token, taskID, fieldID string, value FieldValue) (json.RawMessage, error) {
	body := map[string]any{"value": value.Payload()}
	return c.do(ctx, token, "set_custom_field", http.MethodPost, c.baseURL+"/task/"+taskID+"/field/"+fieldID, nil, body)
}

// CreateComment posts a comment on a task.
func (c *Client) CreateComment(ctx context.Context, token, taskID string, input CommentInput) (json.RawMessage, error) {
	body := map[string]any{
		"comment_text": input.Text,
		"notify_all":   input.NotifyAll,
	}
	if input.Assignee != 0 {
		body["assignee"] = input.Assignee
	}
	return c.do(ctx, token, "create_comment", http.MethodPost, c.baseURL+"/task/"+taskID+"/comment", nil, body)
}

// ListComments lists the comments of a task, returning the upstream JSON
// unmodified.
func (c *Client) ListComments(ctx context.Context, token, taskID string) (json.RawMessage, error) {
	return c.do(ctx, token, "list_comments", http.MethodGet, c.baseURL+"/task/"+taskID+"/comment", nil, nil)
}

// CreateDoc creates a document in a workspace.
func (c *Client) CreateDoc(ctx context.Context, token, workspaceID string, input DocInput) (json.RawMessage, error) {
	body := map[string]any{"name": input.Name}
	if input.ParentID != "" {
		body["parent"] = map[string]any{
			"id":   input.ParentID,
			"type": input.ParentType,
		}
	}
	return c.do(ctx, token, "create_doc", http.MethodPost, c.docsBaseURL+"/workspaces/"+workspaceID+"/docs", nil, body)
}

// GetDoc retrieves a document, returning the upstream JSON unmodified.
func (c *Client) GetDoc(ctx context.Context, token, workspaceID, docID string) (json.RawMessage, error) {
	return c.do(ctx, token, "get_doc", http.MethodGet, c.docsBaseURL+"/workspaces/"+workspaceID+"/docs/"+docID, nil, nil)
}

// UpdateDocPage replaces the content of a doc page. Pages are replaced
// whole, not patched.
func (c *Client) UpdateDocPage(ctx context.Context, token, workspaceID, docID, pageID, content string) (json.RawMessage, error) {
	body := map[string]any{
		"content":           content,
		"content_edit_mode": "replace",
		"content_format":    "text/md",
	}
	return c.do(ctx, token, "update_doc_page", http.MethodPut, c.docsBaseURL+"/workspaces/"+workspaceID+"/docs/"+docID+"/pages/"+pageID, nil, body)
}
