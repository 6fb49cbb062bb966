package debug_ext

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/xhd2015/dlv-rpc/debug/common"
)

// registerSourceTools registers tools for source code navigation
func registerSourceTools(s *server.MCPServer, sessionManager common.SessionManager, opts ToolOptions) {
	tool := mcp.NewTool("list_sources",
		mcp.WithDescription("List source files in the debugged program"),
		sessionIDParam(),
		mcp.WithString("filter",
			mcp.Description("Regular expression the file paths must match"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		LogCall(opts, "list_sources", request)

		client, err := SessionClient(sessionManager, request)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		filter, _ := request.Params.Arguments["filter"].(string)

		sources, err := client.GetSources(ctx, filter)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to list source files: %v", err)), nil
		}
		return mcp.NewToolResultText(FormatSources(filter, sources)), nil
	})
}

// FormatSources groups source files by directory.
func FormatSources(filter string, sources []string) string {
	var builder strings.Builder
	if filter != "" {
		builder.WriteString(fmt.Sprintf("Source files matching filter '%s':\n", filter))
	} else {
		builder.WriteString("All source files:\n")
	}

	if len(sources) == 0 {
		builder.WriteString("No source files found.")
		return builder.String()
	}

	dirMap := make(map[string][]string)
	for _, source := range sources {
		dir := filepath.Dir(source)
		dirMap[dir] = append(dirMap[dir], filepath.Base(source))
	}
	dirs := make([]string, 0, len(dirMap))
	for dir := range dirMap {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)

	for _, dir := range dirs {
		files := dirMap[dir]
		sort.Strings(files)
		builder.WriteString(fmt.Sprintf("\n%s/\n", dir))
		for _, file := range files {
			builder.WriteString(fmt.Sprintf("  %s\n", file))
		}
	}
	builder.WriteString(fmt.Sprintf("\nTotal: %d files", len(sources)))
	return builder.String()
}
