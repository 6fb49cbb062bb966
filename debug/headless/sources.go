package headless

import (
	"context"

	"github.com/go-delve/delve/service/rpc2"
)

// GetSources lists the source files of the debugged program matching the
// filter regular expression.
// Uses the RPCServer.ListSources API method:
// https://pkg.go.dev/github.com/go-delve/delve/service/rpc2#RPCServer.ListSources
func (c *Client) GetSources(ctx context.Context, filter string) ([]string, error) {
	var out rpc2.ListSourcesOut
	if err := c.callWrapped(ctx, RPCListSources, rpc2.ListSourcesIn{Filter: filter}, &out); err != nil {
		return nil, err
	}
	return out.Sources, nil
}

func (c *Client) GetFunctions(ctx context.Context, filter string) ([]string, error) {
	var out rpc2.ListFunctionsOut
	if err := c.callWrapped(ctx, RPCListFunctions, rpc2.ListFunctionsIn{Filter: filter}, &out); err != nil {
		return nil, err
	}
	return out.Funcs, nil
}

func (c *Client) GetTypes(ctx context.Context, filter string) ([]string, error) {
	var out rpc2.ListTypesOut
	if err := c.callWrapped(ctx, RPCListTypes, rpc2.ListTypesIn{Filter: filter}, &out); err != nil {
		return nil, err
	}
	return out.Types, nil
}
