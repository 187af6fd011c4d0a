package doc_tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/taskops/clickup-mcp/internal/clickup"
	"github.com/taskops/clickup-mcp/internal/server"
	"github.com/taskops/clickup-mcp/internal/tools/args"
)

// resolveWorkspaceID returns the workspace_id argument or the configured
// default team ID.
func resolveWorkspaceID(a map[string]any, sc *server.ServerContext) (string, error) {
	wsID := args.StringWithDefault(a, "workspace_id", sc.Config().DefaultTeamID)
	if wsID == "" {
		return "", args.Errorf("workspace_id is required (no default workspace configured)")
	}
	return wsID, nil
}

// RegisterDocTools registers the document tools with the MCP server.
func RegisterDocTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	registerCreateDoc(s, sc)
	registerGetDoc(s, sc)
	registerUpdateDocPage(s, sc)
	return nil
}

func registerCreateDoc(s *mcpserver.MCPServer, sc *server.ServerContext) {
	createDocTool := mcp.NewTool("clickup_create_doc",
		mcp.WithDescription("Create a new document in a ClickUp workspace."),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("The document name."),
		),
		mcp.WithString("workspace_id",
			mcp.Description("The ClickUp workspace (team) ID. Falls back to the configured default workspace."),
		),
		mcp.WithString("parent_id",
			mcp.Description("Parent container ID to create the doc under."),
		),
		mcp.WithNumber("parent_type",
			mcp.Description("Parent container type (4=space, 5=folder, 6=list, 7=everything, 12=workspace). Required when parent_id is set."),
		),
	)

	s.AddTool(createDocTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		token, err := sc.ResolveToken(ctx)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		a, _ := request.Params.Arguments.(map[string]interface{})

		name, err := args.RequiredString(a, "name")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		wsID, err := resolveWorkspaceID(a, sc)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		parentID := args.OptionalString(a, "parent_id")
		parentType, parentTypePresent, err := args.Int(a, "parent_type")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if parentID != "" && !parentTypePresent {
			return mcp.NewToolResultError(args.Errorf("parent_type is required when parent_id is set").Error()), nil
		}

		doc, err := sc.Client().CreateDoc(ctx, token, wsID, clickup.DocInput{
			Name:       name,
			ParentID:   parentID,
			ParentType: parentType,
		})
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to create doc: %v", err)), nil
		}

		return mcp.NewToolResultText(fmt.Sprintf("Doc created successfully:\n%s", clickup.PrettyJSON(doc))), nil
	})
}

func registerGetDoc(s *mcpserver.MCPServer, sc *server.ServerContext) {
	getDocTool := mcp.NewTool("clickup_get_doc",
		mcp.WithDescription("Get a ClickUp document and its page listing."),
		mcp.WithString("doc_id",
			mcp.Required(),
			mcp.Description("The ID of the document to retrieve."),
		),
		mcp.WithString("workspace_id",
			mcp.Description("The ClickUp workspace (team) ID. Falls back to the configured default workspace."),
		),
	)

	s.AddTool(getDocTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		token, err := sc.ResolveToken(ctx)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		a, _ := request.Params.Arguments.(map[string]interface{})

		docID, err := args.RequiredString(a, "doc_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		wsID, err := resolveWorkspaceID(a, sc)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		doc, err := sc.Client().GetDoc(ctx, token, wsID, docID)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to get doc: %v", err)), nil
		}

		return mcp.NewToolResultText(clickup.PrettyJSON(doc)), nil
	})
}

func registerUpdateDocPage(s *mcpserver.MCPServer, sc *server.ServerContext) {
	updatePageTool := mcp.NewTool("clickup_update_doc_page",
		mcp.WithDescription("Replace the content of a ClickUp doc page with new markdown. The page is replaced whole, not patched."),
		mcp.WithString("doc_id",
			mcp.Required(),
			mcp.Description("The ID of the document containing the page."),
		),
		mcp.WithString("page_id",
			mcp.Required(),
			mcp.Description("The ID of the page to update."),
		),
		mcp.WithString("content",
			mcp.Required(),
			mcp.Description("The new page content as markdown."),
		),
		mcp.WithString("workspace_id",
			mcp.Description("The ClickUp workspace (team) ID. Falls back to the configured default workspace."),
		),
	)

	s.AddTool(updatePageTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		token, err := sc.ResolveToken(ctx)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		a, _ := request.Params.Arguments.(map[string]interface{})

		docID, err := args.RequiredString(a, "doc_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		pageID, err := args.RequiredString(a, "page_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		content, err := args.RequiredString(a, "content")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		wsID, err := resolveWorkspaceID(a, sc)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		resp, err := sc.Client().UpdateDocPage(ctx, token, wsID, docID, pageID, content)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to update doc page: %v", err)), nil
		}

		out := clickup.PrettyJSON(resp)
		if out == "" || out == "{}" {
			return mcp.NewToolResultText(fmt.Sprintf("Doc page %s updated", pageID)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Doc page updated successfully:\n%s", out)), nil
	})
}
