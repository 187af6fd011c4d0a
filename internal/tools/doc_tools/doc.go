// Package doc_tools provides MCP tools for ClickUp documents.
//
// clickup_create_doc creates a doc in a workspace, clickup_get_doc reads
// one and clickup_update_doc_page replaces the content of a doc page
// wholesale. Tools that take a workspace_id fall back to the server's
// configured default workspace when the argument is omitted.
package doc_tools
