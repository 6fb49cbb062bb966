package debug_ext

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/xhd2015/dlv-rpc/debug/common"
)

const defaultStackDepth = 20

// registerStackframeTools registers tools for stack and goroutine inspection
func registerStackframeTools(s *server.MCPServer, sessionManager common.SessionManager, opts ToolOptions) {
	registerStacktraceTool(s, sessionManager, opts)
	registerListGoroutinesTool(s, sessionManager, opts)
	registerSwitchGoroutineTool(s, sessionManager, opts)
	registerSwitchThreadTool(s, sessionManager, opts)
}

func registerStacktraceTool(s *server.MCPServer, sessionManager common.SessionManager, opts ToolOptions) {
	tool := mcp.NewTool("stacktrace",
		mcp.WithDescription("Get the stack trace of a goroutine"),
		sessionIDParam(),
		mcp.WithNumber("goroutine_id",
			mcp.Description("Goroutine ID, -1 (default) for the selected goroutine"),
		),
		mcp.WithNumber("depth",
			mcp.Description("Maximum number of frames (default 20)"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		LogCall(opts, "stacktrace", request)

		client, err := SessionClient(sessionManager, request)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		goroutineID := common.CurrentGoroutine
		if id, ok := request.Params.Arguments["goroutine_id"].(float64); ok {
			goroutineID = int64(id)
		}
		depth := defaultStackDepth
		if d, ok := request.Params.Arguments["depth"].(float64); ok && d > 0 {
			depth = int(d)
		}

		frames, err := client.GetStacktrace(ctx, goroutineID, depth, false)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to get stacktrace: %v", err)), nil
		}

		var builder strings.Builder
		builder.WriteString("Stack trace:\n")
		for i, frame := range frames {
			funcName := "unknown"
			if frame.Function != nil {
				funcName = frame.Function.Name()
			}
			builder.WriteString(fmt.Sprintf("%d: %s:%d %s\n", i, frame.File, frame.Line, funcName))
		}
		return mcp.NewToolResultText(builder.String()), nil
	})
}

func registerListGoroutinesTool(s *server.MCPServer, sessionManager common.SessionManager, opts ToolOptions) {
	tool := mcp.NewTool("list_goroutines",
		mcp.WithDescription("List the goroutines of the debugged process"),
		sessionIDParam(),
	)

	s.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		LogCall(opts, "list_goroutines", request)

		client, err := SessionClient(sessionManager, request)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		goroutines, err := client.GetGoroutines(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to list goroutines: %v", err)), nil
		}

		var builder strings.Builder
		builder.WriteString(fmt.Sprintf("Goroutines (%d):\n", len(goroutines)))
		for _, g := range goroutines {
			loc := g.UserCurrentLoc
			funcName := "unknown"
			if loc.Function != nil {
				funcName = loc.Function.Name()
			}
			builder.WriteString(fmt.Sprintf("%d: %s:%d %s", g.ID, loc.File, loc.Line, funcName))
			if g.ThreadID != 0 {
				builder.WriteString(fmt.Sprintf(" [thread %d]", g.ThreadID))
			}
			builder.WriteString("\n")
		}
		return mcp.NewToolResultText(builder.String()), nil
	})
}

func registerSwitchGoroutineTool(s *server.MCPServer, sessionManager common.SessionManager, opts ToolOptions) {
	tool := mcp.NewTool("switch_goroutine",
		mcp.WithDescription("Select a goroutine"),
		sessionIDParam(),
		mcp.WithNumber("goroutine_id",
			mcp.Required(),
			mcp.Description("ID of the goroutine to select"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		LogCall(opts, "switch_goroutine", request)

		client, err := SessionClient(sessionManager, request)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		id, ok := request.Params.Arguments["goroutine_id"].(float64)
		if !ok {
			return mcp.NewToolResultError("invalid goroutine_id parameter"), nil
		}

		state, err := client.SwitchGoroutine(ctx, int64(id))
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to switch goroutine: %v", err)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Switched to goroutine %d\n%s", int64(id), FormatState(state))), nil
	})
}

func registerSwitchThreadTool(s *server.MCPServer, sessionManager common.SessionManager, opts ToolOptions) {
	tool := mcp.NewTool("switch_thread",
		mcp.WithDescription("Select a thread"),
		sessionIDParam(),
		mcp.WithNumber("thread_id",
			mcp.Required(),
			mcp.Description("ID of the thread to select"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		LogCall(opts, "switch_thread", request)

		client, err := SessionClient(sessionManager, request)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		id, ok := request.Params.Arguments["thread_id"].(float64)
		if !ok {
			return mcp.NewToolResultError("invalid thread_id parameter"), nil
		}

		thread, err := client.GetThread(ctx, int(id))
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to get thread: %v", err)), nil
		}
		if thread == nil {
			return mcp.NewToolResultError(fmt.Sprintf("No thread with id %d", int(id))), nil
		}

		state, err := client.SwitchThread(ctx, int(id))
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to switch thread: %v", err)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Switched to thread %d\n%s", int(id), FormatState(state))), nil
	})
}
