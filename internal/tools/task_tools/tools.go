package task_tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/taskops/clickup-mcp/internal/clickup"
	"github.com/taskops/clickup-mcp/internal/server"
	"github.com/taskops/clickup-mcp/internal/tools/args"
)

// resolveListID returns the list_id argument or the configured default.
func resolveListID(a map[string]any, sc *server.ServerContext) (string, error) {
	listID := args.StringWithDefault(a, "list_id", sc.Config().DefaultListID)
	if listID == "" {
		return "", args.Errorf("list_id is required (no default list configured)")
	}
	return listID, nil
}

// RegisterTaskTools registers all task-related tools with the MCP server.
func RegisterTaskTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	registerListTasks(s, sc)
	registerGetTask(s, sc)
	registerCreateTask(s, sc)
	registerUpdateTask(s, sc)
	return nil
}

func registerListTasks(s *mcpserver.MCPServer, sc *server.ServerContext) {
	listTasksTool := mcp.NewTool("clickup_list_tasks",
		mcp.WithDescription("List tasks in a ClickUp list. Returns a trimmed summary per task (id, name, status, priority, due date, assignees) plus the total count reported upstream."),
		mcp.WithString("list_id",
			mcp.Description("The ClickUp list ID. Falls back to the configured default list."),
		),
		mcp.WithString("statuses",
			mcp.Description("Filter by status names, comma-separated (e.g. 'open,in progress')."),
		),
		mcp.WithString("assignees",
			mcp.Description("Filter by assignee user IDs, comma-separated."),
		),
		mcp.WithString("order_by",
			mcp.Description("Sort key: created, updated or due_date (default: created)."),
		),
		mcp.WithNumber("page",
			mcp.Description("Page number, starting at 0."),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of tasks to return (default 20, max 100)."),
		),
		mcp.WithBoolean("include_archived",
			mcp.Description("Include archived tasks (default: false)."),
		),
	)

	s.AddTool(listTasksTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		token, err := sc.ResolveToken(ctx)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		a, _ := request.Params.Arguments.(map[string]interface{})

		listID, err := resolveListID(a, sc)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		orderBy, err := args.OneOf(a, "order_by", "created", "created", "updated", "due_date")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		page, _, err := args.Int(a, "page")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if page < 0 {
			return mcp.NewToolResultError(args.Errorf("page must not be negative").Error()), nil
		}

		limit, err := args.Limit(a, "limit")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		statuses, err := args.StringList(a, "statuses")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		assignees, err := args.StringList(a, "assignees")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		tasks, err := sc.Client().ListTasks(ctx, token, clickup.ListTasksOptions{
			ListID:          listID,
			Statuses:        statuses,
			Assignees:       assignees,
			OrderBy:         orderBy,
			Page:            page,
			Limit:           limit,
			IncludeArchived: args.BoolWithDefault(a, "include_archived", false),
		})
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to list tasks: %v", err)), nil
		}

		result, _ := json.MarshalIndent(tasks, "", "  ")
		return mcp.NewToolResultText(string(result)), nil
	})
}

func registerGetTask(s *mcpserver.MCPServer, sc *server.ServerContext) {
	getTaskTool := mcp.NewTool("clickup_get_task",
		mcp.WithDescription("Get the full details of a single ClickUp task, including custom field values."),
		mcp.WithString("task_id",
			mcp.Required(),
			mcp.Description("The ID of the task to retrieve."),
		),
	)

	s.AddTool(getTaskTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		token, err := sc.ResolveToken(ctx)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		a, _ := request.Params.Arguments.(map[string]interface{})

		taskID, err := args.RequiredString(a, "task_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		task, err := sc.Client().GetTask(ctx, token, taskID)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to get task: %v", err)), nil
		}

		return mcp.NewToolResultText(clickup.PrettyJSON(task)), nil
	})
}

func registerCreateTask(s *mcpserver.MCPServer, sc *server.ServerContext) {
	createTaskTool := mcp.NewTool("clickup_create_task",
		mcp.WithDescription("Create a new task in a ClickUp list."),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("The task name."),
		),
		mcp.WithString("list_id",
			mcp.Description("The ClickUp list ID. Falls back to the configured default list."),
		),
		mcp.WithString("description",
			mcp.Description("The task description (markdown supported)."),
		),
		mcp.WithString("assignees",
			mcp.Description("Assignee user IDs, comma-separated."),
		),
		mcp.WithNumber("priority",
			mcp.Description("Priority: 1 (urgent), 2 (high), 3 (normal) or 4 (low)."),
		),
		mcp.WithNumber("due_date",
			mcp.Description("Due date as Unix epoch milliseconds."),
		),
		mcp.WithString("status",
			mcp.Description("Initial status name. Uses the list default when omitted."),
		),
		mcp.WithBoolean("notify_all",
			mcp.Description("Notify all task watchers (default: true)."),
		),
	)

	s.AddTool(createTaskTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		token, err := sc.ResolveToken(ctx)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		a, _ := request.Params.Arguments.(map[string]interface{})

		name, err := args.RequiredString(a, "name")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		listID, err := resolveListID(a, sc)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		assignees, err := args.Int64List(a, "assignees")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		priority, err := priorityArg(a)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		dueDate, _, err := args.Int(a, "due_date")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		task, err := sc.Client().CreateTask(ctx, token, listID, clickup.CreateTaskInput{
			Name:        name,
			Description: args.OptionalString(a, "description"),
			Assignees:   assignees,
			Priority:    priority,
			DueDate:     int64(dueDate),
			Status:      args.OptionalString(a, "status"),
			NotifyAll:   args.BoolWithDefault(a, "notify_all", true),
		})
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to create task: %v", err)), nil
		}

		return mcp.NewToolResultText(fmt.Sprintf("Task created successfully:\n%s", clickup.PrettyJSON(task))), nil
	})
}

func registerUpdateTask(s *mcpserver.MCPServer, sc *server.ServerContext) {
	updateTaskTool := mcp.NewTool("clickup_update_task",
		mcp.WithDescription("Update an existing ClickUp task. Only the provided fields are changed."),
		mcp.WithString("task_id",
			mcp.Required(),
			mcp.Description("The ID of the task to update."),
		),
		mcp.WithString("name",
			mcp.Description("New task name."),
		),
		mcp.WithString("description",
			mcp.Description("New task description."),
		),
		mcp.WithString("status",
			mcp.Description("New status name."),
		),
		mcp.WithNumber("priority",
			mcp.Description("New priority: 1 (urgent), 2 (high), 3 (normal) or 4 (low)."),
		),
		mcp.WithNumber("due_date",
			mcp.Description("New due date as Unix epoch milliseconds."),
		),
	)

	s.AddTool(updateTaskTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		token, err := sc.ResolveToken(ctx)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		a, _ := request.Params.Arguments.(map[string]interface{})

		taskID, err := args.RequiredString(a, "task_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		fields := make(map[string]any)
		if name := args.OptionalString(a, "name"); name != "" {
			fields["name"] = name
		}
		if desc := args.OptionalString(a, "description"); desc != "" {
			fields["description"] = desc
		}
		if status := args.OptionalString(a, "status"); status != "" {
			fields["status"] = status
		}

		priority, err := priorityArg(a)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if priority != 0 {
			fields["priority"] = priority
		}

		dueDate, present, err := args.Int(a, "due_date")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if present {
			fields["due_date"] = int64(dueDate)
		}

		if len(fields) == 0 {
			return mcp.NewToolResultError(args.Errorf("at least one field to update is required").Error()), nil
		}

		task, err := sc.Client().UpdateTask(ctx, token, taskID, fields)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to update task: %v", err)), nil
		}

		return mcp.NewToolResultText(fmt.Sprintf("Task updated successfully:\n%s", clickup.PrettyJSON(task))), nil
	})
}

// priorityArg extracts and validates the optional priority argument.
// Returns 0 when absent.
func priorityArg(a map[string]any) (int, error) {
	priority, present, err := args.Int(a, "priority")
	if err != nil {
		return 0, err
	}
	if !present {
		return 0, nil
	}
	if priority < 1 || priority > 4 {
		return 0, args.Errorf("priority must be between 1 (urgent) and 4 (low)")
	}
	return priority, nil
}
