// Package comment_tools provides MCP tools for ClickUp task comments:
// clickup_post_comment posts a comment (notifying watchers by default) and
// clickup_list_comments reads a task's comment thread.
package comment_tools
