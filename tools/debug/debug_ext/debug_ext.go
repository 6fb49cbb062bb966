package debug_ext

import (
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rudderlabs/rudder-go-kit/logger"

	"github.com/xhd2015/dlv-rpc/debug/common"
)

// ToolOptions contains configuration options for the debug tools
type ToolOptions struct {
	Logger logger.Logger
}

// RegisterExtendedTools registers additional debug tools with the MCP server
func RegisterExtendedTools(s *server.MCPServer, sessionManager common.SessionManager, opts ToolOptions) error {
	if opts.Logger == nil {
		opts.Logger = logger.NOP
	}

	// Register stack frame tools
	registerStackframeTools(s, sessionManager, opts)

	// Register variable inspection tools
	registerVariableTools(s, sessionManager, opts)

	// Register breakpoint management tools
	registerBreakpointTools(s, sessionManager, opts)

	// Register execution control tools
	registerExecutionTools(s, sessionManager, opts)

	// Register source code tools
	registerSourceTools(s, sessionManager, opts)

	return nil
}

// SessionClient resolves the session_id argument of request to the
// session's client.
func SessionClient(sessionManager common.SessionManager, request mcp.CallToolRequest) (common.DebuggerClient, error) {
	sessionID, _ := request.Params.Arguments["session_id"].(string)
	if sessionID == "" {
		return nil, fmt.Errorf("invalid session_id parameter")
	}
	session, err := sessionManager.GetSession(sessionID)
	if err != nil {
		return nil, fmt.Errorf("debug session not found: %s", sessionID)
	}
	return session.Client(), nil
}

// LogCall logs an incoming tool call.
func LogCall(opts ToolOptions, tool string, request mcp.CallToolRequest) {
	sessionID, _ := request.Params.Arguments["session_id"].(string)
	opts.Logger.Debugn("Tool called",
		logger.NewStringField("tool", tool),
		logger.NewStringField("session", sessionID),
	)
}

// ScopeArgument reads the optional goroutine_id and frame arguments.
func ScopeArgument(request mcp.CallToolRequest) common.Scope {
	scope := common.DefaultScope()
	if goroutineID, ok := request.Params.Arguments["goroutine_id"].(float64); ok {
		scope.GoroutineID = int64(goroutineID)
	}
	if frame, ok := request.Params.Arguments["frame"].(float64); ok {
		scope.Frame = int(frame)
	}
	return scope
}

func sessionIDParam() mcp.ToolOption {
	return mcp.WithString("session_id",
		mcp.Required(),
		mcp.Description("ID of the debug session"),
	)
}

// ScopeParams declares the arguments read by ScopeArgument.
func ScopeParams() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithNumber("goroutine_id",
			mcp.Description("Goroutine to evaluate in, -1 (default) for the selected goroutine"),
		),
		mcp.WithNumber("frame",
			mcp.Description("Stack frame to evaluate in, 0 (default) is the topmost frame"),
		),
	}
}
