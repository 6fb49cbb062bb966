package headless

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-delve/delve/service/api"
	"github.com/tidwall/gjson"

	"github.com/xhd2015/dlv-rpc/debug/common"
)

type (
	Breakpoint = common.Breakpoint
	Scope      = common.Scope
)

// CurrentGoroutine selects the goroutine the debugger has selected.
const CurrentGoroutine = common.CurrentGoroutine

// DefaultScope is the topmost frame of the selected goroutine.
func DefaultScope() Scope {
	return common.DefaultScope()
}

// DecodeBreakpoint decodes one breakpoint payload as sent by the server.
// The payload must carry a numeric "id" and a string "name".
func DecodeBreakpoint(payload json.RawMessage) (*Breakpoint, error) {
	bp, err := decodeBreakpoint(payload)
	if err != nil {
		return nil, &MalformedBreakpointError{Index: -1, Payload: payload, Err: err}
	}
	return bp, nil
}

func decodeBreakpoint(payload json.RawMessage) (*Breakpoint, error) {
	if !gjson.ValidBytes(payload) {
		return nil, errors.New("invalid JSON")
	}
	doc := gjson.ParseBytes(payload)
	if !doc.IsObject() {
		return nil, fmt.Errorf("expected an object, got %s", doc.Type)
	}
	if id := doc.Get("id"); id.Type != gjson.Number {
		return nil, fieldError("id", id)
	}
	if name := doc.Get("name"); name.Type != gjson.String {
		return nil, fieldError("name", name)
	}

	var bp api.Breakpoint
	if err := json.Unmarshal(payload, &bp); err != nil {
		return nil, err
	}
	return fromAPIBreakpoint(&bp), nil
}

func fieldError(field string, v gjson.Result) error {
	if !v.Exists() {
		return fmt.Errorf("missing %q", field)
	}
	return fmt.Errorf("invalid %q: %s", field, v.Raw)
}

func fromAPIBreakpoint(bp *api.Breakpoint) *Breakpoint {
	out := &Breakpoint{
		ID:            bp.ID,
		Name:          bp.Name,
		Addr:          bp.Addr,
		Addrs:         bp.Addrs,
		File:          bp.File,
		Line:          bp.Line,
		FunctionName:  bp.FunctionName,
		Cond:          bp.Cond,
		HitCond:       bp.HitCond,
		Tracepoint:    bp.Tracepoint,
		Goroutine:     bp.Goroutine,
		Stacktrace:    bp.Stacktrace,
		Variables:     bp.Variables,
		HitCount:      bp.HitCount,
		TotalHitCount: bp.TotalHitCount,
		Disabled:      bp.Disabled,
	}
	if out.Variables == nil {
		out.Variables = []string{}
	}
	if out.HitCount == nil {
		out.HitCount = map[string]uint64{}
	}
	return out
}
