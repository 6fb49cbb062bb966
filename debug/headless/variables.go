package headless

import (
	"context"

	"github.com/go-delve/delve/service/api"
	"github.com/go-delve/delve/service/rpc2"
)

// loadConfig controls how much of each variable the server loads.
var loadConfig = api.LoadConfig{
	FollowPointers:     true,
	MaxVariableRecurse: 1,
	MaxStringLen:       64,
	MaxArrayValues:     64,
	MaxStructFields:    -1,
}

// EvalSymbol evaluates expr in scope.
// Uses the RPCServer.Eval API method:
// https://pkg.go.dev/github.com/go-delve/delve/service/rpc2#RPCServer.Eval
func (c *Client) EvalSymbol(ctx context.Context, expr string, scope Scope) (*api.Variable, error) {
	cfg := loadConfig
	in := rpc2.EvalIn{
		Scope: scope.EvalScope(),
		Expr:  expr,
		Cfg:   &cfg,
	}
	var out rpc2.EvalOut
	if err := c.callWrapped(ctx, RPCEval, in, &out); err != nil {
		return nil, err
	}
	return out.Variable, nil
}

// SetSymbol assigns value to the variable expr in scope.
func (c *Client) SetSymbol(ctx context.Context, expr string, value string, scope Scope) error {
	in := rpc2.SetIn{
		Scope:  scope.EvalScope(),
		Symbol: expr,
		Value:  value,
	}
	return c.callWrapped(ctx, RPCSet, in, &rpc2.SetOut{})
}

func (c *Client) ListLocalVars(ctx context.Context, scope Scope) ([]api.Variable, error) {
	in := rpc2.ListLocalVarsIn{
		Scope: scope.EvalScope(),
		Cfg:   loadConfig,
	}
	var out rpc2.ListLocalVarsOut
	if err := c.callWrapped(ctx, RPCListLocalVars, in, &out); err != nil {
		return nil, err
	}
	return out.Variables, nil
}

func (c *Client) ListFunctionArgs(ctx context.Context, scope Scope) ([]api.Variable, error) {
	in := rpc2.ListFunctionArgsIn{
		Scope: scope.EvalScope(),
		Cfg:   loadConfig,
	}
	var out rpc2.ListFunctionArgsOut
	if err := c.callWrapped(ctx, RPCListFunctionArgs, in, &out); err != nil {
		return nil, err
	}
	return out.Args, nil
}

// GetPackageVariables lists package variables matching filter (a regular
// expression, empty for all).
//
// Package variables are process-global, so the server has no per-thread
// listing. When threadID is set the thread is looked up first and a
// missing thread fails the call with a *ServerError.
func (c *Client) GetPackageVariables(ctx context.Context, filter string, threadID *int) ([]api.Variable, error) {
	if threadID != nil {
		var thread rpc2.GetThreadOut
		if err := c.callWrapped(ctx, RPCGetThread, rpc2.GetThreadIn{Id: *threadID}, &thread); err != nil {
			return nil, err
		}
	}

	in := rpc2.ListPackageVarsIn{
		Filter: filter,
		Cfg:    loadConfig,
	}
	var out rpc2.ListPackageVarsOut
	if err := c.callWrapped(ctx, RPCListPackageVars, in, &out); err != nil {
		return nil, err
	}
	return out.Variables, nil
}

// GetRegisters returns the registers of a thread; threadID 0 selects the
// current thread.
func (c *Client) GetRegisters(ctx context.Context, threadID int, includeFP bool) (api.Registers, error) {
	in := rpc2.ListRegistersIn{
		ThreadID:  threadID,
		IncludeFp: includeFP,
	}
	var out rpc2.ListRegistersOut
	if err := c.callWrapped(ctx, RPCListRegisters, in, &out); err != nil {
		return nil, err
	}
	return out.Regs, nil
}
