package debug_ext

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-delve/delve/service/api"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/xhd2015/dlv-rpc/debug/common"
)

// registerExecutionTools registers tools for execution control
func registerExecutionTools(s *server.MCPServer, sessionManager common.SessionManager, opts ToolOptions) {
	registerHaltTool(s, sessionManager, opts)
	registerRestartTool(s, sessionManager, opts)
	registerDetachTool(s, sessionManager, opts)
	registerDisassembleTool(s, sessionManager, opts)
}

func registerHaltTool(s *server.MCPServer, sessionManager common.SessionManager, opts ToolOptions) {
	tool := mcp.NewTool("halt",
		mcp.WithDescription("Stop the running process"),
		sessionIDParam(),
	)

	s.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		LogCall(opts, "halt", request)

		client, err := SessionClient(sessionManager, request)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		state, err := client.Halt(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to halt: %v", err)), nil
		}
		return mcp.NewToolResultText(FormatState(state)), nil
	})
}

func registerRestartTool(s *server.MCPServer, sessionManager common.SessionManager, opts ToolOptions) {
	tool := mcp.NewTool("restart",
		mcp.WithDescription("Restart the debugged process, keeping breakpoints"),
		sessionIDParam(),
	)

	s.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		LogCall(opts, "restart", request)

		client, err := SessionClient(sessionManager, request)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		discarded, err := client.RestartProcess(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to restart: %v", err)), nil
		}

		var builder strings.Builder
		builder.WriteString("Process restarted")
		if len(discarded) > 0 {
			builder.WriteString("\nDiscarded breakpoints:\n")
			for _, d := range discarded {
				if d.Breakpoint != nil {
					builder.WriteString(fmt.Sprintf("%d at %s:%d: %s\n", d.Breakpoint.ID, d.Breakpoint.File, d.Breakpoint.Line, d.Reason))
				} else {
					builder.WriteString(d.Reason + "\n")
				}
			}
		}
		return mcp.NewToolResultText(builder.String()), nil
	})
}

func registerDetachTool(s *server.MCPServer, sessionManager common.SessionManager, opts ToolOptions) {
	tool := mcp.NewTool("detach",
		mcp.WithDescription("Detach the debugger from the process; the session is closed afterwards"),
		sessionIDParam(),
		mcp.WithBoolean("kill",
			mcp.Description("Kill the process after detaching"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		LogCall(opts, "detach", request)

		sessionID, _ := request.Params.Arguments["session_id"].(string)
		kill, _ := request.Params.Arguments["kill"].(bool)

		if err := sessionManager.TerminateSession(ctx, sessionID, true, kill); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to detach: %v", err)), nil
		}
		if kill {
			return mcp.NewToolResultText("Detached and killed the process"), nil
		}
		return mcp.NewToolResultText("Detached from the process"), nil
	})
}

func registerDisassembleTool(s *server.MCPServer, sessionManager common.SessionManager, opts ToolOptions) {
	params := []mcp.ToolOption{
		mcp.WithDescription("Disassemble a range of addresses"),
		sessionIDParam(),
		mcp.WithNumber("start_pc",
			mcp.Required(),
			mcp.Description("Start address"),
		),
		mcp.WithNumber("end_pc",
			mcp.Description("End address; 0 disassembles the function containing start_pc"),
		),
		mcp.WithString("flavor",
			mcp.Description("Assembly syntax: 'intel', 'gnu' or 'go'"),
			mcp.Enum("intel", "gnu", "go"),
		),
	}
	tool := mcp.NewTool("disassemble", append(params, ScopeParams()...)...)

	s.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		LogCall(opts, "disassemble", request)

		client, err := SessionClient(sessionManager, request)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		startPC, _ := request.Params.Arguments["start_pc"].(float64)
		endPC, _ := request.Params.Arguments["end_pc"].(float64)
		flavorName, _ := request.Params.Arguments["flavor"].(string)

		insts, err := client.Disassemble(ctx, uint64(startPC), uint64(endPC), ScopeArgument(request), assemblyFlavour(flavorName))
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to disassemble: %v", err)), nil
		}

		var builder strings.Builder
		builder.WriteString("Disassembly:\n")
		if len(insts) == 0 {
			builder.WriteString("No instructions found.")
			return mcp.NewToolResultText(builder.String()), nil
		}
		for _, inst := range insts {
			marker := " "
			if inst.AtPC {
				marker = "=>"
			}
			builder.WriteString(fmt.Sprintf("%2s %s:%d\t%#x\t%s\n", marker, inst.Loc.File, inst.Loc.Line, inst.Loc.PC, inst.Text))
		}
		return mcp.NewToolResultText(builder.String()), nil
	})
}

func assemblyFlavour(name string) api.AssemblyFlavour {
	switch name {
	case "gnu":
		return api.GNUFlavour
	case "go":
		return api.GoFlavour
	default:
		return api.IntelFlavour
	}
}
