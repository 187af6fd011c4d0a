package field_tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/taskops/clickup-mcp/internal/clickup"
	"github.com/taskops/clickup-mcp/internal/server"
	"github.com/taskops/clickup-mcp/internal/tools/args"
)

// RegisterFieldTools registers the custom field tools with the MCP server.
func RegisterFieldTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	registerGetCustomFields(s, sc)
	registerSetCustomField(s, sc)
	return nil
}

func registerGetCustomFields(s *mcpserver.MCPServer, sc *server.ServerContext) {
	getFieldsTool := mcp.NewTool("clickup_get_custom_fields",
		mcp.WithDescription("Discover the custom fields defined on a ClickUp list: IDs, types, dropdown options and a summary line."),
		mcp.WithString("list_id",
			mcp.Description("The ClickUp list ID. Falls back to the configured default list."),
		),
	)

	s.AddTool(getFieldsTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		token, err := sc.ResolveToken(ctx)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		a, _ := request.Params.Arguments.(map[string]interface{})

		listID := args.StringWithDefault(a, "list_id", sc.Config().DefaultListID)
		if listID == "" {
			return mcp.NewToolResultError(args.Errorf("list_id is required (no default list configured)").Error()), nil
		}

		fields, err := sc.Client().ListCustomFields(ctx, token, listID)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to get custom fields: %v", err)), nil
		}

		result, _ := json.MarshalIndent(fields, "", "  ")
		return mcp.NewToolResultText(string(result)), nil
	})
}

// withUntypedValue declares a required "value" property without a JSON type
// constraint. The accepted shape depends on field_type, so the schema cannot
// pin value to a single type.
func withUntypedValue(description string) mcp.ToolOption {
	return func(t *mcp.Tool) {
		t.InputSchema.Properties["value"] = map[string]any{
			"description": description,
		}
		t.InputSchema.Required = append(t.InputSchema.Required, "value")
	}
}

func registerSetCustomField(s *mcpserver.MCPServer, sc *server.ServerContext) {
	setFieldTool := mcp.NewTool("clickup_set_custom_field",
		mcp.WithDescription("Set a custom field value on a ClickUp task. The value must match the field's declared type; use clickup_get_custom_fields to discover field IDs and types."),
		mcp.WithString("task_id",
			mcp.Required(),
			mcp.Description("The ID of the task to modify."),
		),
		mcp.WithString("field_id",
			mcp.Required(),
			mcp.Description("The ID of the custom field to set."),
		),
		mcp.WithString("field_type",
			mcp.Required(),
			mcp.Description("The field's declared type: "+strings.Join(clickup.FieldTypes(), ", ")+"."),
		),
		withUntypedValue("The value to set. A string for text-like and dropdown fields, a number for number/currency/date fields, a boolean for checkboxes, an array of strings for labels/users."),
	)

	s.AddTool(setFieldTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		token, err := sc.ResolveToken(ctx)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		a, _ := request.Params.Arguments.(map[string]interface{})

		taskID, err := args.RequiredString(a, "task_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		fieldID, err := args.RequiredString(a, "field_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		fieldType, err := args.RequiredString(a, "field_type")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		rawValue, ok := a["value"]
		if !ok || rawValue == nil {
			return mcp.NewToolResultError(args.Errorf("value is required").Error()), nil
		}

		value, err := clickup.NewFieldValue(fieldType, rawValue)
		if err != nil {
			return mcp.NewToolResultError(args.Errorf("%v", err).Error()), nil
		}

		resp, err := sc.Client().SetCustomField(ctx, token, taskID, fieldID, value)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to set custom field: %v", err)), nil
		}

		out := clickup.PrettyJSON(resp)
		if strings.TrimSpace(out) == "" || out == "{}" {
			return mcp.NewToolResultText(fmt.Sprintf("Custom field %s set on task %s", fieldID, taskID)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Custom field set successfully:\n%s", out)), nil
	})
}
