package headless

import (
	"context"
	"errors"

	"github.com/go-delve/delve/service/api"
	"github.com/go-delve/delve/service/rpc2"
)

// GetStacktrace returns up to depth frames of a goroutine's stack.
// With full set, local variables and arguments are loaded for each frame.
func (c *Client) GetStacktrace(ctx context.Context, goroutineID int64, depth int, full bool) ([]api.Stackframe, error) {
	in := rpc2.StacktraceIn{
		Id:    goroutineID,
		Depth: depth,
		Full:  full,
	}
	if full {
		cfg := loadConfig
		in.Cfg = &cfg
	}
	var out rpc2.StacktraceOut
	if err := c.callWrapped(ctx, RPCStacktrace, in, &out); err != nil {
		return nil, err
	}
	return out.Locations, nil
}

func (c *Client) GetThreads(ctx context.Context) ([]*api.Thread, error) {
	var out rpc2.ListThreadsOut
	if err := c.callWrapped(ctx, RPCListThreads, rpc2.ListThreadsIn{}, &out); err != nil {
		return nil, err
	}
	return out.Threads, nil
}

// GetThread returns nil and no error when there is no thread with that id.
func (c *Client) GetThread(ctx context.Context, id int) (*api.Thread, error) {
	var out rpc2.GetThreadOut
	err := c.callRaw(ctx, RPCGetThread, rpc2.GetThreadIn{Id: id}, &out)
	var fault *Fault
	if errors.As(err, &fault) {
		if fault.notFound() {
			return nil, nil
		}
		return nil, &ServerError{Method: string(RPCGetThread), Fault: fault}
	}
	if err != nil {
		return nil, err
	}
	return out.Thread, nil
}

// GetGoroutines lists every goroutine of the process.
func (c *Client) GetGoroutines(ctx context.Context) ([]*api.Goroutine, error) {
	var out rpc2.ListGoroutinesOut
	if err := c.callWrapped(ctx, RPCListGoroutines, rpc2.ListGoroutinesIn{}, &out); err != nil {
		return nil, err
	}
	return out.Goroutines, nil
}
