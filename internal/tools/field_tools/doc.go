// Package field_tools provides MCP tools for ClickUp custom fields.
//
// clickup_get_custom_fields discovers the fields defined on a list, with
// their IDs, types and dropdown options. clickup_set_custom_field writes a
// typed value to a field; the value is validated against the declared
// field_type before any request is made, so a mistyped value never reaches
// ClickUp.
package field_tools
