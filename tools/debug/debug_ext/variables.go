package debug_ext

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/xhd2015/dlv-rpc/debug/common"
)

// registerVariableTools registers tools for variable inspection and manipulation
func registerVariableTools(s *server.MCPServer, sessionManager common.SessionManager, opts ToolOptions) {
	registerListLocalVarsTool(s, sessionManager, opts)
	registerListFunctionArgsTool(s, sessionManager, opts)
	registerSetVariableTool(s, sessionManager, opts)
}

func registerListLocalVarsTool(s *server.MCPServer, sessionManager common.SessionManager, opts ToolOptions) {
	params := []mcp.ToolOption{
		mcp.WithDescription("List local variables in the current scope"),
		sessionIDParam(),
	}
	tool := mcp.NewTool("list_local_vars", append(params, ScopeParams()...)...)

	s.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		LogCall(opts, "list_local_vars", request)

		client, err := SessionClient(sessionManager, request)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		vars, err := client.ListLocalVars(ctx, ScopeArgument(request))
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to list local variables: %v", err)), nil
		}
		return mcp.NewToolResultText(formatVariables("Local variables", vars)), nil
	})
}

func registerListFunctionArgsTool(s *server.MCPServer, sessionManager common.SessionManager, opts ToolOptions) {
	params := []mcp.ToolOption{
		mcp.WithDescription("List function arguments in the current scope"),
		sessionIDParam(),
	}
	tool := mcp.NewTool("list_function_args", append(params, ScopeParams()...)...)

	s.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		LogCall(opts, "list_function_args", request)

		client, err := SessionClient(sessionManager, request)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		args, err := client.ListFunctionArgs(ctx, ScopeArgument(request))
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to list function arguments: %v", err)), nil
		}
		return mcp.NewToolResultText(formatVariables("Function arguments", args)), nil
	})
}

func registerSetVariableTool(s *server.MCPServer, sessionManager common.SessionManager, opts ToolOptions) {
	params := []mcp.ToolOption{
		mcp.WithDescription("Set the value of a variable"),
		sessionIDParam(),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Name of the variable to set"),
		),
		mcp.WithString("value",
			mcp.Required(),
			mcp.Description("New value for the variable"),
		),
	}
	tool := mcp.NewTool("set_variable", append(params, ScopeParams()...)...)

	s.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		LogCall(opts, "set_variable", request)

		client, err := SessionClient(sessionManager, request)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		name, _ := request.Params.Arguments["name"].(string)
		if name == "" {
			return mcp.NewToolResultError("invalid name parameter"), nil
		}
		value, _ := request.Params.Arguments["value"].(string)
		if value == "" {
			return mcp.NewToolResultError("invalid value parameter"), nil
		}

		if err := client.SetSymbol(ctx, name, value, ScopeArgument(request)); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to set variable: %v", err)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Set %s = %s", name, value)), nil
	})
}
