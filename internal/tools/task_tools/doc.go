// Package task_tools provides MCP tools for working with ClickUp tasks.
//
// # Available Tools
//
//   - clickup_list_tasks: List tasks in a list with paging, ordering and
//     status/assignee filters
//   - clickup_get_task: Get the full details of a single task
//   - clickup_create_task: Create a task with optional description,
//     assignees, priority, due date and status
//   - clickup_update_task: Apply a partial update to a task
//
// Tools that take a list_id fall back to the server's configured default
// list when the argument is omitted.
//
// # Authentication
//
// Every tool resolves a credential before doing anything else: a stored
// OAuth token if one exists, otherwise the static API token. Calls without
// a credential fail with instructions and never reach ClickUp.
package task_tools
