package comment_tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/taskops/clickup-mcp/internal/clickup"
	"github.com/taskops/clickup-mcp/internal/server"
	"github.com/taskops/clickup-mcp/internal/tools/args"
)

// RegisterCommentTools registers the task comment tools with the MCP server.
func RegisterCommentTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	registerPostComment(s, sc)
	registerListComments(s, sc)
	return nil
}

func registerPostComment(s *mcpserver.MCPServer, sc *server.ServerContext) {
	postCommentTool := mcp.NewTool("clickup_post_comment",
		mcp.WithDescription("Post a comment on a ClickUp task."),
		mcp.WithString("task_id",
			mcp.Required(),
			mcp.Description("The ID of the task to comment on."),
		),
		mcp.WithString("comment_text",
			mcp.Required(),
			mcp.Description("The comment body (markdown supported)."),
		),
		mcp.WithNumber("assignee",
			mcp.Description("User ID to assign the comment to."),
		),
		mcp.WithBoolean("notify_all",
			mcp.Description("Notify all task watchers (default: true)."),
		),
	)

	s.AddTool(postCommentTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		token, err := sc.ResolveToken(ctx)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		a, _ := request.Params.Arguments.(map[string]interface{})

		taskID, err := args.RequiredString(a, "task_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		text, err := args.RequiredString(a, "comment_text")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		assignee, _, err := args.Int(a, "assignee")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		resp, err := sc.Client().CreateComment(ctx, token, taskID, clickup.CommentInput{
			Text:      text,
			Assignee:  int64(assignee),
			NotifyAll: args.BoolWithDefault(a, "notify_all", true),
		})
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to post comment: %v", err)), nil
		}

		return mcp.NewToolResultText(fmt.Sprintf("Comment posted successfully:\n%s", clickup.PrettyJSON(resp))), nil
	})
}

func registerListComments(s *mcpserver.MCPServer, sc *server.ServerContext) {
	listCommentsTool := mcp.NewTool("clickup_list_comments",
		mcp.WithDescription("List the comments on a ClickUp task, newest first."),
		mcp.WithString("task_id",
			mcp.Required(),
			mcp.Description("The ID of the task whose comments to list."),
		),
	)

	s.AddTool(listCommentsTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		token, err := sc.ResolveToken(ctx)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		a, _ := request.Params.Arguments.(map[string]interface{})

		taskID, err := args.RequiredString(a, "task_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		comments, err := sc.Client().ListComments(ctx, token, taskID)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to list comments: %v", err)), nil
		}

		return mcp.NewToolResultText(clickup.PrettyJSON(comments)), nil
	})
}
