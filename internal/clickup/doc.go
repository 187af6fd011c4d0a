// Package clickup provides a client for the ClickUp API.
//
// The client wraps API v2 (tasks, custom fields, comments) and API v3 (docs
// and pages) and provides functionality for:
//   - Listing tasks with server-side filters and trimmed summaries
//   - Creating and partially updating tasks
//   - Discovering custom field definitions and setting typed field values
//   - Posting and listing task comments
//   - Creating and reading docs and replacing doc page content
//
// Every method performs exactly one HTTP call. The bearer credential is
// passed per call; the client holds no auth state and performs no retries.
// Non-2xx responses are surfaced as *APIError with the upstream status code
// and raw body preserved.
package clickup
