package debug_ext

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/xhd2015/dlv-rpc/debug/common"
)

// registerBreakpointTools registers tools for breakpoint management
func registerBreakpointTools(s *server.MCPServer, sessionManager common.SessionManager, opts ToolOptions) {
	registerListBreakpointsTool(s, sessionManager, opts)
	registerClearBreakpointTool(s, sessionManager, opts)
}

func registerListBreakpointsTool(s *server.MCPServer, sessionManager common.SessionManager, opts ToolOptions) {
	tool := mcp.NewTool("list_breakpoints",
		mcp.WithDescription("List all breakpoints in the debug session"),
		sessionIDParam(),
	)

	s.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		LogCall(opts, "list_breakpoints", request)

		client, err := SessionClient(sessionManager, request)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		breakpoints, err := client.ListBreakpoints(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to list breakpoints: %v", err)), nil
		}

		var builder strings.Builder
		builder.WriteString("Breakpoints:\n")
		if len(breakpoints) == 0 {
			builder.WriteString("No breakpoints set.")
			return mcp.NewToolResultText(builder.String()), nil
		}
		for i := range breakpoints {
			builder.WriteString(FormatBreakpoint(&breakpoints[i]))
			builder.WriteString("\n")
		}
		return mcp.NewToolResultText(builder.String()), nil
	})
}

func registerClearBreakpointTool(s *server.MCPServer, sessionManager common.SessionManager, opts ToolOptions) {
	tool := mcp.NewTool("clear_breakpoint",
		mcp.WithDescription("Remove a breakpoint, selected by ID or by name"),
		sessionIDParam(),
		mcp.WithNumber("breakpoint_id",
			mcp.Description("ID of the breakpoint to remove"),
		),
		mcp.WithString("name",
			mcp.Description("Name of the breakpoint to remove, used when breakpoint_id is not given"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		LogCall(opts, "clear_breakpoint", request)

		client, err := SessionClient(sessionManager, request)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		if idFloat, ok := request.Params.Arguments["breakpoint_id"].(float64); ok {
			id := int(idFloat)
			if err := client.ClearBreakpointByID(ctx, id); err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("Failed to clear breakpoint: %v", err)), nil
			}
			return mcp.NewToolResultText(fmt.Sprintf("Cleared breakpoint %d", id)), nil
		}

		name, _ := request.Params.Arguments["name"].(string)
		if name == "" {
			return mcp.NewToolResultError("either breakpoint_id or name is required"), nil
		}
		if err := client.ClearBreakpointByName(ctx, name); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to clear breakpoint: %v", err)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Cleared breakpoint %s", name)), nil
	})
}
