package headless

import (
	"context"

	"github.com/go-delve/delve/service/api"
	"github.com/go-delve/delve/service/rpc2"
	"github.com/rudderlabs/rudder-go-kit/logger"
)

// command sends a debugger command and returns the resulting state.
func (c *Client) command(ctx context.Context, cmd api.DebuggerCommand) (*api.DebuggerState, error) {
	var out rpc2.CommandOut
	if err := c.callWrapped(ctx, RPCCommand, cmd, &out); err != nil {
		return nil, err
	}
	return &out.State, nil
}

// advance runs an execution-advancing command. A state reporting that the
// process exited is turned into a *DebuggerExitedError.
func (c *Client) advance(ctx context.Context, name string) (*api.DebuggerState, error) {
	state, err := c.command(ctx, api.DebuggerCommand{Name: name})
	if err != nil {
		return nil, err
	}
	if state.Exited {
		c.log.Infon("Process exited",
			logger.NewStringField("command", name),
			logger.NewIntField("status", int64(state.ExitStatus)),
		)
		return nil, &DebuggerExitedError{ExitStatus: state.ExitStatus, State: state}
	}
	return state, nil
}

// Continue resumes execution until a breakpoint is hit or the process exits.
func (c *Client) Continue(ctx context.Context) (*api.DebuggerState, error) {
	return c.advance(ctx, api.Continue)
}

// Step steps into the current function.
func (c *Client) Step(ctx context.Context) (*api.DebuggerState, error) {
	return c.advance(ctx, api.Step)
}

// Next steps over the current line.
func (c *Client) Next(ctx context.Context) (*api.DebuggerState, error) {
	return c.advance(ctx, api.Next)
}

// StepOut steps out of the current function.
func (c *Client) StepOut(ctx context.Context) (*api.DebuggerState, error) {
	return c.advance(ctx, api.StepOut)
}

// StepInstruction steps a single CPU instruction.
func (c *Client) StepInstruction(ctx context.Context) (*api.DebuggerState, error) {
	return c.advance(ctx, api.StepInstruction)
}

// Halt stops a running process.
func (c *Client) Halt(ctx context.Context) (*api.DebuggerState, error) {
	return c.command(ctx, api.DebuggerCommand{Name: api.Halt})
}

func (c *Client) SwitchThread(ctx context.Context, id int) (*api.DebuggerState, error) {
	return c.command(ctx, api.DebuggerCommand{Name: api.SwitchThread, ThreadID: id})
}

func (c *Client) SwitchGoroutine(ctx context.Context, id int64) (*api.DebuggerState, error) {
	return c.command(ctx, api.DebuggerCommand{Name: api.SwitchGoroutine, GoroutineID: id})
}

// GetDebuggerState returns the current state without waiting for a running
// process to stop.
func (c *Client) GetDebuggerState(ctx context.Context) (*api.DebuggerState, error) {
	var out rpc2.StateOut
	if err := c.callWrapped(ctx, RPCState, rpc2.StateIn{NonBlocking: true}, &out); err != nil {
		return nil, err
	}
	return out.State, nil
}

// RestartProcess restarts the debugged process and returns the breakpoints
// that could not be set again.
func (c *Client) RestartProcess(ctx context.Context) ([]api.DiscardedBreakpoint, error) {
	var out rpc2.RestartOut
	if err := c.callWrapped(ctx, RPCRestart, rpc2.RestartIn{}, &out); err != nil {
		return nil, err
	}
	return out.DiscardedBreakpoints, nil
}

// DetachProcess detaches from the debugged process, killing it if kill is set.
func (c *Client) DetachProcess(ctx context.Context, kill bool) error {
	return c.callWrapped(ctx, RPCDetach, rpc2.DetachIn{Kill: kill}, &rpc2.DetachOut{})
}

func (c *Client) GetProcessID(ctx context.Context) (int, error) {
	var out rpc2.ProcessPidOut
	if err := c.callWrapped(ctx, RPCProcessPid, rpc2.ProcessPidIn{}, &out); err != nil {
		return 0, err
	}
	return out.Pid, nil
}

func (c *Client) IsAttachedToExistingProcess(ctx context.Context) (bool, error) {
	var out rpc2.AttachedToExistingProcessOut
	if err := c.callWrapped(ctx, RPCAttachedToExistingProcess, rpc2.AttachedToExistingProcessIn{}, &out); err != nil {
		return false, err
	}
	return out.Answer, nil
}

// Disassemble disassembles the range [startPC, endPC). With endPC zero the
// server disassembles the whole function containing startPC.
func (c *Client) Disassemble(ctx context.Context, startPC, endPC uint64, scope Scope, flavor api.AssemblyFlavour) (api.AsmInstructions, error) {
	in := rpc2.DisassembleIn{
		Scope:   scope.EvalScope(),
		StartPC: startPC,
		EndPC:   endPC,
		Flavour: flavor,
	}
	var out rpc2.DisassembleOut
	if err := c.callWrapped(ctx, RPCDisassemble, in, &out); err != nil {
		return nil, err
	}
	return out.Disassemble, nil
}
