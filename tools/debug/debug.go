package debug

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-delve/delve/service/api"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rudderlabs/rudder-go-kit/logger"

	"github.com/xhd2015/dlv-rpc/debug/common"
	"github.com/xhd2015/dlv-rpc/debug/headless"
	"github.com/xhd2015/dlv-rpc/tools/debug/debug_ext"
)

type ToolOptions struct {
	Logger logger.Logger
}

// RegisterTools registers the debug tools with the MCP server
func RegisterTools(s *server.MCPServer, sessionManager common.SessionManager, opts ToolOptions) error {
	if opts.Logger == nil {
		opts.Logger = logger.NOP
	}
	extOpts := debug_ext.ToolOptions{Logger: opts.Logger}

	registerConnectTool(s, sessionManager, extOpts)
	registerDisconnectTool(s, sessionManager, extOpts)
	registerListSessionsTool(s, sessionManager)
	registerSetBreakpointTool(s, sessionManager, extOpts)
	registerStepTool(s, sessionManager, extOpts, "continue", "Continue execution until a breakpoint is hit or the program exits",
		common.DebuggerClient.Continue)
	registerStepTool(s, sessionManager, extOpts, "next", "Step over current line in a debug session",
		common.DebuggerClient.Next)
	registerStepTool(s, sessionManager, extOpts, "step_in", "Step into function in a debug session",
		common.DebuggerClient.Step)
	registerStepTool(s, sessionManager, extOpts, "step_out", "Step out of function in a debug session",
		common.DebuggerClient.StepOut)
	registerEvaluateTool(s, sessionManager, extOpts)

	if err := debug_ext.RegisterExtendedTools(s, sessionManager, extOpts); err != nil {
		return fmt.Errorf("failed to register extended tools: %w", err)
	}
	return nil
}

// registerConnectTool registers the connect tool
func registerConnectTool(s *server.MCPServer, sessionManager common.SessionManager, opts debug_ext.ToolOptions) {
	tool := mcp.NewTool("connect_debugger",
		mcp.WithDescription("Connect to a Delve headless server, e.g. one started with 'dlv debug --headless --listen=127.0.0.1:8181 --api-version=2'"),
		mcp.WithString("addr",
			mcp.Description("Address of the headless server (default: localhost:8181)"),
		),
		mcp.WithString("transport",
			mcp.Description("Transport: 'socket' (default) for a persistent TCP connection, 'websocket' for a websocket connection, 'http' for one HTTP request per call"),
			mcp.Enum("socket", "websocket", "http"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		debug_ext.LogCall(opts, "connect_debugger", request)

		addr, _ := request.Params.Arguments["addr"].(string)
		if addr == "" {
			addr = fmt.Sprintf("%s:%d", headless.DefaultHost, headless.DefaultPort)
		}
		transport, _ := request.Params.Arguments["transport"].(string)
		if transport == "" {
			transport = "socket"
		}

		info, err := sessionManager.Connect(ctx, addr, transport)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to connect to debugger: %v", err)), nil
		}

		return mcp.NewToolResultText(fmt.Sprintf("Debug session started with ID: %s\nAddress: %s\nTransport: %s",
			info.ID, info.Addr, info.Transport)), nil
	})
}

// registerDisconnectTool registers the disconnect tool
func registerDisconnectTool(s *server.MCPServer, sessionManager common.SessionManager, opts debug_ext.ToolOptions) {
	tool := mcp.NewTool("disconnect_debugger",
		mcp.WithDescription("Close a debug session, leaving the debugged process as it is"),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("ID of the debug session to close"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		debug_ext.LogCall(opts, "disconnect_debugger", request)

		sessionID, _ := request.Params.Arguments["session_id"].(string)
		if err := sessionManager.TerminateSession(ctx, sessionID, false, false); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to close debug session: %v", err)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Debug session %s closed", sessionID)), nil
	})
}

// registerListSessionsTool registers the list sessions tool
func registerListSessionsTool(s *server.MCPServer, sessionManager common.SessionManager) {
	tool := mcp.NewTool("list_debug_sessions",
		mcp.WithDescription("List active debug sessions"),
	)

	s.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sessions := sessionManager.ListSessions()
		if len(sessions) == 0 {
			return mcp.NewToolResultText("No active debug sessions"), nil
		}

		var builder strings.Builder
		builder.WriteString("Active debug sessions:\n\n")
		for _, session := range sessions {
			builder.WriteString(fmt.Sprintf("ID: %s\nAddress: %s\nTransport: %s\n\n",
				session.ID, session.Addr, session.Transport))
		}
		return mcp.NewToolResultText(builder.String()), nil
	})
}

// registerSetBreakpointTool registers the set breakpoint tool
func registerSetBreakpointTool(s *server.MCPServer, sessionManager common.SessionManager, opts debug_ext.ToolOptions) {
	tool := mcp.NewTool("set_breakpoint",
		mcp.WithDescription("Set a breakpoint in a debug session"),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("ID of the debug session"),
		),
		mcp.WithString("location",
			mcp.Required(),
			mcp.Description("Location to break at: file:line, a function name, or any other location spec accepted by dlv"),
		),
		mcp.WithString("name",
			mcp.Description("Optional breakpoint name"),
		),
		mcp.WithBoolean("tracepoint",
			mcp.Description("Log and resume instead of stopping"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		debug_ext.LogCall(opts, "set_breakpoint", request)

		client, err := debug_ext.SessionClient(sessionManager, request)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		location, _ := request.Params.Arguments["location"].(string)
		if location == "" {
			return mcp.NewToolResultError("invalid location parameter"), nil
		}
		name, _ := request.Params.Arguments["name"].(string)
		tracepoint, _ := request.Params.Arguments["tracepoint"].(bool)

		breakpoints, err := client.CreateBreakpoints(ctx, name, location, tracepoint)
		if err != nil && len(breakpoints) == 0 {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to set breakpoint: %v", err)), nil
		}

		var builder strings.Builder
		for i := range breakpoints {
			builder.WriteString("Breakpoint set: ")
			builder.WriteString(debug_ext.FormatBreakpoint(&breakpoints[i]))
			builder.WriteString("\n")
		}
		if err != nil {
			builder.WriteString(fmt.Sprintf("Failed to set remaining breakpoints: %v", err))
		}
		return mcp.NewToolResultText(strings.TrimSuffix(builder.String(), "\n")), nil
	})
}

type stepFunc func(client common.DebuggerClient, ctx context.Context) (*api.DebuggerState, error)

// registerStepTool registers an execution-advancing tool
func registerStepTool(s *server.MCPServer, sessionManager common.SessionManager, opts debug_ext.ToolOptions, name string, description string, step stepFunc) {
	tool := mcp.NewTool(name,
		mcp.WithDescription(description),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("ID of the debug session"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		debug_ext.LogCall(opts, name, request)

		client, err := debug_ext.SessionClient(sessionManager, request)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		state, err := step(client, ctx)
		var exited *headless.DebuggerExitedError
		if errors.As(err, &exited) {
			return mcp.NewToolResultText(fmt.Sprintf("Program exited with status %d", exited.ExitStatus)), nil
		}
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to %s: %v", strings.ReplaceAll(name, "_", " "), err)), nil
		}
		return mcp.NewToolResultText(debug_ext.FormatState(state)), nil
	})
}

// registerEvaluateTool registers the evaluate tool
func registerEvaluateTool(s *server.MCPServer, sessionManager common.SessionManager, opts debug_ext.ToolOptions) {
	params := []mcp.ToolOption{
		mcp.WithDescription("Evaluate an expression in a debug session"),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("ID of the debug session"),
		),
		mcp.WithString("expression",
			mcp.Required(),
			mcp.Description("Expression to evaluate"),
		),
	}
	tool := mcp.NewTool("evaluate", append(params, debug_ext.ScopeParams()...)...)

	s.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		debug_ext.LogCall(opts, "evaluate", request)

		client, err := debug_ext.SessionClient(sessionManager, request)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		expression, _ := request.Params.Arguments["expression"].(string)
		if expression == "" {
			return mcp.NewToolResultError("invalid expression parameter"), nil
		}

		v, err := client.EvalSymbol(ctx, expression, debug_ext.ScopeArgument(request))
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to evaluate expression: %v", err)), nil
		}

		var builder strings.Builder
		debug_ext.FormatVariable(&builder, v, 0)
		return mcp.NewToolResultText(strings.TrimSuffix(builder.String(), "\n")), nil
	})
}
