package headless

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-delve/delve/service/api"
	"github.com/go-delve/delve/service/rpc2"
	"github.com/rudderlabs/rudder-go-kit/logger"
)

// Breakpoint payloads are kept raw so that DecodeBreakpoint can tell a
// missing field from a zero one.
type rawBreakpointOut struct {
	Breakpoint json.RawMessage
}

type rawBreakpointsOut struct {
	Breakpoints []json.RawMessage
}

// ListBreakpoints lists all breakpoints. The first payload that does not
// decode fails the whole call with a *MalformedBreakpointError.
func (c *Client) ListBreakpoints(ctx context.Context) ([]Breakpoint, error) {
	var out rawBreakpointsOut
	if err := c.callWrapped(ctx, RPCListBreakpoints, rpc2.ListBreakpointsIn{}, &out); err != nil {
		return nil, err
	}

	breakpoints := make([]Breakpoint, 0, len(out.Breakpoints))
	for i, payload := range out.Breakpoints {
		bp, err := decodeBreakpoint(payload)
		if err != nil {
			return nil, &MalformedBreakpointError{Index: i, Payload: payload, Err: err}
		}
		breakpoints = append(breakpoints, *bp)
	}
	return breakpoints, nil
}

// GetBreakpointByID returns nil and no error when no breakpoint has that id.
func (c *Client) GetBreakpointByID(ctx context.Context, id int) (*Breakpoint, error) {
	return c.getBreakpoint(ctx, rpc2.GetBreakpointIn{Id: id})
}

// GetBreakpointByName returns nil and no error when no breakpoint has that name.
func (c *Client) GetBreakpointByName(ctx context.Context, name string) (*Breakpoint, error) {
	return c.getBreakpoint(ctx, rpc2.GetBreakpointIn{Name: name})
}

func (c *Client) getBreakpoint(ctx context.Context, in rpc2.GetBreakpointIn) (*Breakpoint, error) {
	var out rawBreakpointOut
	err := c.callRaw(ctx, RPCGetBreakpoint, in, &out)
	var fault *Fault
	if errors.As(err, &fault) {
		if fault.notFound() {
			return nil, nil
		}
		return nil, &ServerError{Method: string(RPCGetBreakpoint), Fault: fault}
	}
	if err != nil {
		return nil, err
	}
	return DecodeBreakpoint(out.Breakpoint)
}

// FindLocations resolves a location pattern (file:line, function name,
// address, ...) to the addresses it stands for. A nil scope means
// DefaultScope. Any rejection by the server is reported as a
// *MalformedLocationError.
func (c *Client) FindLocations(ctx context.Context, pattern string, scope *Scope) ([]api.Location, error) {
	s := DefaultScope()
	if scope != nil {
		s = *scope
	}
	in := rpc2.FindLocationIn{
		Scope: s.EvalScope(),
		Loc:   pattern,
	}

	var out rpc2.FindLocationOut
	err := c.callRaw(ctx, RPCFindLocation, in, &out)
	var fault *Fault
	if errors.As(err, &fault) {
		return nil, &MalformedLocationError{LocationArg: pattern, Err: fault}
	}
	if err != nil {
		return nil, err
	}
	return out.Locations, nil
}

// CreateBreakpoints resolves pattern and creates one breakpoint per
// resulting address, in resolution order.
//
// The operation is not transactional: when a creation fails, the
// breakpoints created before it are returned along with the error and are
// left in place on the server. Only the first breakpoint carries name,
// since the server requires names to be unique.
func (c *Client) CreateBreakpoints(ctx context.Context, name string, pattern string, tracepoint bool) ([]Breakpoint, error) {
	locations, err := c.FindLocations(ctx, pattern, nil)
	if err != nil {
		return nil, err
	}

	created := make([]Breakpoint, 0, len(locations))
	for i, loc := range locations {
		requested := api.Breakpoint{
			Addr:       loc.PC,
			Tracepoint: tracepoint,
		}
		if i == 0 {
			requested.Name = name
		}

		var out rawBreakpointOut
		if err := c.callWrapped(ctx, RPCCreateBreakpoint, rpc2.CreateBreakpointIn{Breakpoint: requested}, &out); err != nil {
			return created, fmt.Errorf("failed to create breakpoint at %#x: %w", loc.PC, err)
		}
		bp, err := DecodeBreakpoint(out.Breakpoint)
		if err != nil {
			return created, err
		}
		created = append(created, *bp)
	}

	c.log.Debugn("Created breakpoints",
		logger.NewStringField("name", name),
		logger.NewStringField("location", pattern),
		logger.NewIntField("count", int64(len(created))),
	)
	return created, nil
}

// ClearBreakpointByID removes the breakpoint with the given id.
func (c *Client) ClearBreakpointByID(ctx context.Context, id int) error {
	return c.callWrapped(ctx, RPCClearBreakpoint, rpc2.ClearBreakpointIn{Id: id}, &rpc2.ClearBreakpointOut{})
}

// ClearBreakpointByName removes the breakpoint with the given name.
func (c *Client) ClearBreakpointByName(ctx context.Context, name string) error {
	return c.callWrapped(ctx, RPCClearBreakpoint, rpc2.ClearBreakpointIn{Name: name}, &rpc2.ClearBreakpointOut{})
}
