package debug_ext

import (
	"fmt"
	"strings"

	"github.com/go-delve/delve/service/api"

	"github.com/xhd2015/dlv-rpc/debug/common"
)

// FormatVariable formats a variable for display
func FormatVariable(builder *strings.Builder, v *api.Variable, depth int) {
	indent := strings.Repeat("  ", depth)

	if v.Name != "" {
		builder.WriteString(fmt.Sprintf("%s%s = ", indent, v.Name))
	} else {
		builder.WriteString(indent)
	}

	if v.Type != "" {
		builder.WriteString(fmt.Sprintf("(%s) ", v.Type))
	}

	if v.Unreadable != "" {
		builder.WriteString(fmt.Sprintf("<unreadable: %s>\n", v.Unreadable))
		return
	}

	if len(v.Children) > 0 {
		builder.WriteString("{\n")
		for i := range v.Children {
			FormatVariable(builder, &v.Children[i], depth+1)
		}
		builder.WriteString(fmt.Sprintf("%s}\n", indent))
	} else {
		builder.WriteString(fmt.Sprintf("%v\n", v.Value))
	}
}

func formatVariables(title string, vars []api.Variable) string {
	var builder strings.Builder
	builder.WriteString(title + ":\n")
	if len(vars) == 0 {
		builder.WriteString("None found.")
		return builder.String()
	}
	for i := range vars {
		FormatVariable(&builder, &vars[i], 0)
	}
	return builder.String()
}

// FormatState describes where the process stopped.
func FormatState(state *api.DebuggerState) string {
	if state == nil {
		return "No state available"
	}
	if state.Running {
		return "Process is running"
	}

	var builder strings.Builder
	if g := state.SelectedGoroutine; g != nil {
		loc := g.UserCurrentLoc
		builder.WriteString(fmt.Sprintf("Stopped in goroutine %d at %s:%d", g.ID, loc.File, loc.Line))
		if loc.Function != nil {
			builder.WriteString(fmt.Sprintf(" (%s)", loc.Function.Name()))
		}
		builder.WriteString("\n")
	} else if th := state.CurrentThread; th != nil {
		builder.WriteString(fmt.Sprintf("Stopped in thread %d at %s:%d\n", th.ID, th.File, th.Line))
	}
	if th := state.CurrentThread; th != nil && th.Breakpoint != nil {
		builder.WriteString(fmt.Sprintf("Hit breakpoint %d", th.Breakpoint.ID))
		if th.Breakpoint.Name != "" {
			builder.WriteString(fmt.Sprintf(" (%s)", th.Breakpoint.Name))
		}
		builder.WriteString("\n")
	}
	if builder.Len() == 0 {
		return "Process stopped"
	}
	return strings.TrimSuffix(builder.String(), "\n")
}

// FormatBreakpoint renders a breakpoint on one line.
func FormatBreakpoint(bp *common.Breakpoint) string {
	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("ID: %d", bp.ID))
	if bp.Name != "" {
		builder.WriteString(fmt.Sprintf(", Name: %s", bp.Name))
	}
	builder.WriteString(fmt.Sprintf(", Location: %s:%d", bp.File, bp.Line))
	if bp.FunctionName != "" {
		builder.WriteString(fmt.Sprintf(" (%s)", bp.FunctionName))
	}
	if bp.Cond != "" {
		builder.WriteString(fmt.Sprintf(", Condition: %s", bp.Cond))
	}
	if bp.Tracepoint {
		builder.WriteString(", Tracepoint")
	}
	if bp.Disabled {
		builder.WriteString(", Disabled")
	}
	builder.WriteString(fmt.Sprintf(", Hits: %d", bp.TotalHitCount))
	return builder.String()
}
