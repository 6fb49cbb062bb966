package headless

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/go-delve/delve/service/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUnreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	c, err := New(context.Background(), "127.0.0.1", port)
	require.Error(t, err)
	assert.Nil(t, c)

	var connErr *ConnectionError
	require.True(t, errors.As(err, &connErr), "got %T", err)
	assert.Equal(t, net.JoinHostPort("127.0.0.1", strconv.Itoa(port)), connErr.Addr)
	assert.Equal(t, KindConnection, KindOf(err))
}

func TestNewDefaults(t *testing.T) {
	c, err := New(context.Background(), "", 0, WithTransport(&loudTransport{t: t}))
	require.NoError(t, err)
	assert.Equal(t, "localhost:8181", c.Addr())
	assert.Equal(t, TransportBasic, c.State())
}

func TestCreateBreakpoints(t *testing.T) {
	s := newFakeServer(t)
	s.handle("FindLocation", func(params json.RawMessage) (interface{}, interface{}) {
		var in struct {
			Scope struct {
				GoroutineID int64
				Frame       int
			}
			Loc string
		}
		decodeParams(t, params, &in)
		assert.Equal(t, "main.go:10", in.Loc)
		assert.Equal(t, CurrentGoroutine, in.Scope.GoroutineID)
		assert.Equal(t, 0, in.Scope.Frame)
		return map[string]interface{}{
			"Locations": []map[string]interface{}{{"pc": 4198400, "file": "main.go", "line": 10}},
		}, nil
	})
	s.handle("CreateBreakpoint", func(params json.RawMessage) (interface{}, interface{}) {
		var in struct {
			Breakpoint struct {
				Name       string `json:"name"`
				Addr       uint64 `json:"addr"`
				Tracepoint bool   `json:"continue"`
			}
		}
		decodeParams(t, params, &in)
		assert.Equal(t, uint64(4198400), in.Breakpoint.Addr)
		assert.False(t, in.Breakpoint.Tracepoint)
		return map[string]interface{}{
			"Breakpoint": map[string]interface{}{
				"id":   1,
				"name": in.Breakpoint.Name,
				"addr": in.Breakpoint.Addr,
				"file": "main.go",
				"line": 10,
			},
		}, nil
	})

	c := s.client()
	bps, err := c.CreateBreakpoints(context.Background(), "bp1", "main.go:10", false)
	require.NoError(t, err)
	require.Len(t, bps, 1)
	assert.Equal(t, "bp1", bps[0].Name)
	assert.Equal(t, 1, bps[0].ID)
	assert.Equal(t, []string{"FindLocation", "CreateBreakpoint"}, s.recordedCalls())
}

func TestCreateBreakpointsPartialFailure(t *testing.T) {
	s := newFakeServer(t)
	s.reply("FindLocation", map[string]interface{}{
		"Locations": []map[string]interface{}{{"pc": 16}, {"pc": 32}, {"pc": 48}},
	})
	s.handle("CreateBreakpoint", func(params json.RawMessage) (interface{}, interface{}) {
		var in struct {
			Breakpoint struct {
				Name string `json:"name"`
				Addr uint64 `json:"addr"`
			}
		}
		decodeParams(t, params, &in)
		if in.Breakpoint.Addr == 32 {
			return nil, "could not set breakpoint"
		}
		return map[string]interface{}{
			"Breakpoint": map[string]interface{}{"id": in.Breakpoint.Addr, "name": in.Breakpoint.Name, "addr": in.Breakpoint.Addr},
		}, nil
	})

	c := s.client()
	bps, err := c.CreateBreakpoints(context.Background(), "multi", "f", true)
	require.Error(t, err)
	assert.Equal(t, KindServer, KindOf(err))

	// the first breakpoint stays, the third is never attempted
	require.Len(t, bps, 1)
	assert.Equal(t, "multi", bps[0].Name)
	assert.Equal(t, []string{"FindLocation", "CreateBreakpoint", "CreateBreakpoint"}, s.recordedCalls())
}

func TestFindLocationsMalformed(t *testing.T) {
	s := newFakeServer(t)
	s.fail("FindLocation", `invalid location "bad::pattern"`)

	c := s.client()
	locs, err := c.FindLocations(context.Background(), "bad::pattern", nil)
	require.Error(t, err)
	assert.Nil(t, locs)

	var malformed *MalformedLocationError
	require.True(t, errors.As(err, &malformed), "got %T", err)
	assert.Equal(t, "bad::pattern", malformed.LocationArg)
	assert.Equal(t, KindMalformedLocation, KindOf(err))

	var fault *Fault
	require.True(t, errors.As(err, &fault))
	assert.Contains(t, fault.Message, "bad::pattern")
}

func TestFindLocationsScope(t *testing.T) {
	s := newFakeServer(t)
	s.handle("FindLocation", func(params json.RawMessage) (interface{}, interface{}) {
		var in struct {
			Scope struct {
				GoroutineID int64
				Frame       int
			}
		}
		decodeParams(t, params, &in)
		assert.Equal(t, int64(7), in.Scope.GoroutineID)
		assert.Equal(t, 2, in.Scope.Frame)
		return map[string]interface{}{"Locations": []map[string]interface{}{{"pc": 1}, {"pc": 2}}}, nil
	})

	c := s.client()
	locs, err := c.FindLocations(context.Background(), "+1", &Scope{GoroutineID: 7, Frame: 2})
	require.NoError(t, err)
	require.Len(t, locs, 2)
	assert.Equal(t, uint64(2), locs[1].PC)
}

func TestGetBreakpointNotFound(t *testing.T) {
	s := newFakeServer(t)
	s.handle("GetBreakpoint", func(params json.RawMessage) (interface{}, interface{}) {
		var in struct {
			Id   int
			Name string
		}
		decodeParams(t, params, &in)
		switch {
		case in.Id == 999:
			return nil, "no breakpoint with id 999"
		case in.Name == "missing":
			return nil, "no breakpoint with name missing"
		case in.Id == 500:
			return nil, "internal failure"
		case in.Id == 501:
			return nil, "could not read debug info: file not found"
		}
		return map[string]interface{}{"Breakpoint": map[string]interface{}{"id": 1, "name": "found"}}, nil
	})

	c := s.client()
	ctx := context.Background()

	bp, err := c.GetBreakpointByID(ctx, 999)
	require.NoError(t, err)
	assert.Nil(t, bp)

	bp, err = c.GetBreakpointByName(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, bp)

	bp, err = c.GetBreakpointByName(ctx, "found")
	require.NoError(t, err)
	require.NotNil(t, bp)
	assert.Equal(t, "found", bp.Name)

	_, err = c.GetBreakpointByID(ctx, 500)
	var serverErr *ServerError
	require.True(t, errors.As(err, &serverErr), "got %T", err)
	assert.Equal(t, string(RPCGetBreakpoint), serverErr.Method)
	assert.Equal(t, "internal failure", serverErr.Fault.Message)

	// only the server's own lookup misses mean "no such breakpoint"
	bp, err = c.GetBreakpointByID(ctx, 501)
	assert.Nil(t, bp)
	assert.Equal(t, KindServer, KindOf(err))
}

func TestListBreakpoints(t *testing.T) {
	s := newFakeServer(t)
	s.reply("ListBreakpoints", map[string]interface{}{
		"Breakpoints": []map[string]interface{}{
			{"id": -1, "name": "unrecovered-panic", "functionName": "runtime.fatalpanic"},
			{"id": 1, "name": "", "file": "main.go", "line": 3, "hitCount": map[string]int{"1": 4}, "totalHitCount": 4},
		},
	})

	c := s.client()
	bps, err := c.ListBreakpoints(context.Background())
	require.NoError(t, err)
	require.Len(t, bps, 2)
	assert.Equal(t, "runtime.fatalpanic", bps[0].FunctionName)
	assert.Equal(t, map[string]uint64{"1": 4}, bps[1].HitCount)
	assert.Equal(t, uint64(4), bps[1].TotalHitCount)
	assert.Equal(t, []string{}, bps[1].Variables)
}

func TestListBreakpointsMalformed(t *testing.T) {
	s := newFakeServer(t)
	s.reply("ListBreakpoints", map[string]interface{}{
		"Breakpoints": []map[string]interface{}{
			{"id": 1, "name": "ok"},
			{"name": "no id"},
		},
	})

	c := s.client()
	bps, err := c.ListBreakpoints(context.Background())
	require.Error(t, err)
	assert.Nil(t, bps)

	var malformed *MalformedBreakpointError
	require.True(t, errors.As(err, &malformed), "got %T", err)
	assert.Equal(t, 1, malformed.Index)
}

func TestClearBreakpoint(t *testing.T) {
	s := newFakeServer(t)
	s.handle("ClearBreakpoint", func(params json.RawMessage) (interface{}, interface{}) {
		var in struct {
			Id   int
			Name string
		}
		decodeParams(t, params, &in)
		if in.Id == 1 || in.Name == "bp1" {
			return map[string]interface{}{"Breakpoint": map[string]interface{}{"id": 1, "name": "bp1"}}, nil
		}
		return nil, map[string]interface{}{"code": -32000, "message": "no breakpoint"}
	})

	c := s.client()
	ctx := context.Background()
	require.NoError(t, c.ClearBreakpointByID(ctx, 1))
	require.NoError(t, c.ClearBreakpointByName(ctx, "bp1"))

	err := c.ClearBreakpointByID(ctx, 2)
	var serverErr *ServerError
	require.True(t, errors.As(err, &serverErr), "got %T", err)
	assert.Equal(t, -32000, serverErr.Fault.Code)
	assert.Equal(t, "no breakpoint", serverErr.Fault.Message)
}

func TestContinueExited(t *testing.T) {
	s := newFakeServer(t)
	s.reply("Command", map[string]interface{}{
		"State": map[string]interface{}{"exited": true, "exitStatus": 0},
	})

	c := s.client()
	state, err := c.Continue(context.Background())
	require.Error(t, err)
	assert.Nil(t, state)

	var exited *DebuggerExitedError
	require.True(t, errors.As(err, &exited), "got %T", err)
	assert.Equal(t, 0, exited.ExitStatus)
	require.NotNil(t, exited.State)
	assert.True(t, exited.State.Exited)
	assert.Equal(t, KindDebuggerExited, KindOf(err))
}

func TestExecutionCommands(t *testing.T) {
	s := newFakeServer(t)
	var exitOn atomic.Value
	exitOn.Store("")
	s.handle("Command", func(params json.RawMessage) (interface{}, interface{}) {
		var cmd api.DebuggerCommand
		decodeParams(t, params, &cmd)
		state := map[string]interface{}{"Running": false, "exited": cmd.Name == exitOn.Load(), "exitStatus": 3}
		return map[string]interface{}{"State": state}, nil
	})

	c := s.client()
	ctx := context.Background()

	advancing := map[string]func(context.Context) (*api.DebuggerState, error){
		api.Continue:        c.Continue,
		api.Step:            c.Step,
		api.Next:            c.Next,
		api.StepOut:         c.StepOut,
		api.StepInstruction: c.StepInstruction,
	}
	for name, op := range advancing {
		exitOn.Store("")
		state, err := op(ctx)
		require.NoError(t, err, name)
		require.NotNil(t, state, name)

		exitOn.Store(name)
		_, err = op(ctx)
		var exited *DebuggerExitedError
		require.True(t, errors.As(err, &exited), "%s: got %v", name, err)
		assert.Equal(t, 3, exited.ExitStatus)
	}

	// halt only reports the state
	exitOn.Store(api.Halt)
	state, err := c.Halt(ctx)
	require.NoError(t, err)
	assert.True(t, state.Exited)
}

func TestSwitchGoroutineAndThread(t *testing.T) {
	s := newFakeServer(t)
	var mu sync.Mutex
	var got []api.DebuggerCommand
	s.handle("Command", func(params json.RawMessage) (interface{}, interface{}) {
		var cmd api.DebuggerCommand
		decodeParams(t, params, &cmd)
		mu.Lock()
		got = append(got, cmd)
		mu.Unlock()
		return map[string]interface{}{"State": map[string]interface{}{}}, nil
	})

	c := s.client()
	ctx := context.Background()
	_, err := c.SwitchGoroutine(ctx, 12)
	require.NoError(t, err)
	_, err = c.SwitchThread(ctx, 34)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 2)
	assert.Equal(t, api.SwitchGoroutine, got[0].Name)
	assert.Equal(t, int64(12), got[0].GoroutineID)
	assert.Equal(t, api.SwitchThread, got[1].Name)
	assert.Equal(t, 34, got[1].ThreadID)
}

func TestGetThread(t *testing.T) {
	s := newFakeServer(t)
	s.handle("GetThread", func(params json.RawMessage) (interface{}, interface{}) {
		var in struct{ Id int }
		decodeParams(t, params, &in)
		if in.Id != 1 {
			return nil, "no thread with id " + strconv.Itoa(in.Id)
		}
		return map[string]interface{}{"Thread": map[string]interface{}{"id": 1, "pc": 100}}, nil
	})
	s.reply("ListThreads", map[string]interface{}{
		"Threads": []map[string]interface{}{{"id": 1}, {"id": 2}},
	})
	s.reply("ListPackageVars", map[string]interface{}{
		"Variables": []map[string]interface{}{{"name": "main.counter", "value": "4"}},
	})

	c := s.client()
	ctx := context.Background()

	th, err := c.GetThread(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, th)
	assert.Equal(t, 1, th.ID)

	th, err = c.GetThread(ctx, 5)
	require.NoError(t, err)
	assert.Nil(t, th)

	threads, err := c.GetThreads(ctx)
	require.NoError(t, err)
	assert.Len(t, threads, 2)

	vars, err := c.GetPackageVariables(ctx, "main", nil)
	require.NoError(t, err)
	require.Len(t, vars, 1)
	assert.Equal(t, "main.counter", vars[0].Name)

	thread := 1
	_, err = c.GetPackageVariables(ctx, "", &thread)
	require.NoError(t, err)

	thread = 5
	_, err = c.GetPackageVariables(ctx, "", &thread)
	assert.Equal(t, KindServer, KindOf(err))
}

func TestEvalAndSetSymbol(t *testing.T) {
	s := newFakeServer(t)
	s.handle("Eval", func(params json.RawMessage) (interface{}, interface{}) {
		var in struct {
			Scope struct {
				GoroutineID int64
				Frame       int
			}
			Expr string
			Cfg  *api.LoadConfig
		}
		decodeParams(t, params, &in)
		assert.Equal(t, int64(3), in.Scope.GoroutineID)
		assert.Equal(t, 1, in.Scope.Frame)
		require.NotNil(t, in.Cfg)
		assert.True(t, in.Cfg.FollowPointers)
		return map[string]interface{}{"Variable": map[string]interface{}{"name": in.Expr, "type": "int", "value": "42"}}, nil
	})
	s.handle("Set", func(params json.RawMessage) (interface{}, interface{}) {
		var in struct {
			Symbol string
			Value  string
		}
		decodeParams(t, params, &in)
		if in.Symbol == "const" {
			return nil, "can not set a constant"
		}
		return map[string]interface{}{}, nil
	})

	c := s.client()
	ctx := context.Background()
	scope := Scope{GoroutineID: 3, Frame: 1}

	v, err := c.EvalSymbol(ctx, "x", scope)
	require.NoError(t, err)
	assert.Equal(t, "42", v.Value)
	assert.Equal(t, "int", v.Type)

	require.NoError(t, c.SetSymbol(ctx, "x", "43", scope))
	assert.Equal(t, KindServer, KindOf(c.SetSymbol(ctx, "const", "1", scope)))
}

func TestPassThroughOperations(t *testing.T) {
	s := newFakeServer(t)
	s.reply("ProcessPid", map[string]interface{}{"Pid": 4242})
	s.reply("AttachedToExistingProcess", map[string]interface{}{"Answer": true})
	s.reply("ListSources", map[string]interface{}{"Sources": []string{"/src/main.go"}})
	s.reply("ListFunctions", map[string]interface{}{"Funcs": []string{"main.main"}})
	s.reply("ListTypes", map[string]interface{}{"Types": []string{"main.T"}})
	s.reply("ListGoroutines", map[string]interface{}{"Goroutines": []map[string]interface{}{{"id": 1}}, "Nextg": -1})
	s.reply("Stacktrace", map[string]interface{}{"Locations": []map[string]interface{}{{"pc": 1, "file": "main.go", "line": 5}}})
	s.reply("ListLocalVars", map[string]interface{}{"Variables": []map[string]interface{}{{"name": "a"}}})
	s.reply("ListFunctionArgs", map[string]interface{}{"Args": []map[string]interface{}{{"name": "b"}}})
	s.reply("ListRegisters", map[string]interface{}{"Regs": []map[string]interface{}{{"Name": "rip", "Value": "0x1"}}})
	s.reply("Disassemble", map[string]interface{}{"Disassemble": []map[string]interface{}{{"Text": "MOVQ"}}})
	s.reply("State", map[string]interface{}{"State": map[string]interface{}{"Pid": 4242}})
	s.reply("Restart", map[string]interface{}{"DiscardedBreakpoints": []map[string]interface{}{{"reason": "gone"}}})
	s.reply("Detach", map[string]interface{}{})

	c := s.client()
	ctx := context.Background()

	pid, err := c.GetProcessID(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4242, pid)

	attached, err := c.IsAttachedToExistingProcess(ctx)
	require.NoError(t, err)
	assert.True(t, attached)

	sources, err := c.GetSources(ctx, "main")
	require.NoError(t, err)
	assert.Equal(t, []string{"/src/main.go"}, sources)

	funcs, err := c.GetFunctions(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"main.main"}, funcs)

	types, err := c.GetTypes(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"main.T"}, types)

	goroutines, err := c.GetGoroutines(ctx)
	require.NoError(t, err)
	require.Len(t, goroutines, 1)
	assert.Equal(t, int64(1), goroutines[0].ID)

	frames, err := c.GetStacktrace(ctx, CurrentGoroutine, 10, true)
	require.NoError(t, err)
	require.Len(t, frames, 1)
	assert.Equal(t, 5, frames[0].Line)

	locals, err := c.ListLocalVars(ctx, DefaultScope())
	require.NoError(t, err)
	assert.Equal(t, "a", locals[0].Name)

	args, err := c.ListFunctionArgs(ctx, DefaultScope())
	require.NoError(t, err)
	assert.Equal(t, "b", args[0].Name)

	regs, err := c.GetRegisters(ctx, 0, false)
	require.NoError(t, err)
	require.Len(t, regs, 1)
	assert.Equal(t, "rip", regs[0].Name)

	asm, err := c.Disassemble(ctx, 0x1000, 0x1010, DefaultScope(), api.GoFlavour)
	require.NoError(t, err)
	require.Len(t, asm, 1)
	assert.Equal(t, "MOVQ", asm[0].Text)

	state, err := c.GetDebuggerState(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4242, state.Pid)

	discarded, err := c.RestartProcess(ctx)
	require.NoError(t, err)
	assert.Len(t, discarded, 1)

	require.NoError(t, c.DetachProcess(ctx, true))
}

func TestUnknownMethodIsServerError(t *testing.T) {
	s := newFakeServer(t)
	c := s.client()

	_, err := c.GetProcessID(context.Background())
	var serverErr *ServerError
	require.True(t, errors.As(err, &serverErr), "got %T", err)
	assert.Equal(t, string(RPCProcessPid), serverErr.Method)
	assert.Contains(t, serverErr.Error(), "can't find method")
}
