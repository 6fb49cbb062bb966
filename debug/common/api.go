package common

import (
	"context"

	"github.com/go-delve/delve/service/api"
)

// CurrentGoroutine selects whatever goroutine the debugger currently has
// selected instead of a specific one.
const CurrentGoroutine int64 = -1

// Scope identifies the goroutine and stack frame an evaluation applies to.
type Scope struct {
	GoroutineID int64
	Frame       int
}

// DefaultScope is the topmost frame of the currently selected goroutine.
func DefaultScope() Scope {
	return Scope{GoroutineID: CurrentGoroutine, Frame: 0}
}

// EvalScope converts the scope into the server's wire representation.
func (s Scope) EvalScope() api.EvalScope {
	return api.EvalScope{GoroutineID: s.GoroutineID, Frame: s.Frame}
}

// Breakpoint is a breakpoint as reported by the debugger server.
// Optional fields the server leaves out are normalized: FunctionName is
// empty, Variables and HitCount are empty but non-nil.
type Breakpoint struct {
	ID           int
	Name         string
	Addr         uint64
	Addrs        []uint64
	File         string
	Line         int
	FunctionName string
	Cond         string
	HitCond      string
	// Tracepoint breakpoints log and resume instead of halting.
	Tracepoint bool
	Goroutine  bool
	Stacktrace int
	Variables  []string
	// HitCount maps goroutine ids to the number of hits on that goroutine.
	HitCount      map[string]uint64
	TotalHitCount uint64
	Disabled      bool
}

// DebuggerClient is the set of operations a connected debugger client offers
type DebuggerClient interface {
	// Close closes the connection to the debug server
	Close() error

	ListBreakpoints(ctx context.Context) ([]Breakpoint, error)
	GetBreakpointByID(ctx context.Context, id int) (*Breakpoint, error)
	GetBreakpointByName(ctx context.Context, name string) (*Breakpoint, error)
	FindLocations(ctx context.Context, pattern string, scope *Scope) ([]api.Location, error)
	CreateBreakpoints(ctx context.Context, name string, pattern string, tracepoint bool) ([]Breakpoint, error)
	ClearBreakpointByID(ctx context.Context, id int) error
	ClearBreakpointByName(ctx context.Context, name string) error

	Continue(ctx context.Context) (*api.DebuggerState, error)
	Step(ctx context.Context) (*api.DebuggerState, error)
	Next(ctx context.Context) (*api.DebuggerState, error)
	StepOut(ctx context.Context) (*api.DebuggerState, error)
	StepInstruction(ctx context.Context) (*api.DebuggerState, error)
	Halt(ctx context.Context) (*api.DebuggerState, error)
	SwitchThread(ctx context.Context, id int) (*api.DebuggerState, error)
	SwitchGoroutine(ctx context.Context, id int64) (*api.DebuggerState, error)

	EvalSymbol(ctx context.Context, expr string, scope Scope) (*api.Variable, error)
	SetSymbol(ctx context.Context, expr string, value string, scope Scope) error
	ListLocalVars(ctx context.Context, scope Scope) ([]api.Variable, error)
	ListFunctionArgs(ctx context.Context, scope Scope) ([]api.Variable, error)
	GetPackageVariables(ctx context.Context, filter string, threadID *int) ([]api.Variable, error)
	GetRegisters(ctx context.Context, threadID int, includeFP bool) (api.Registers, error)
	Disassemble(ctx context.Context, startPC, endPC uint64, scope Scope, flavor api.AssemblyFlavour) (api.AsmInstructions, error)

	GetStacktrace(ctx context.Context, goroutineID int64, depth int, full bool) ([]api.Stackframe, error)
	GetThreads(ctx context.Context) ([]*api.Thread, error)
	GetThread(ctx context.Context, id int) (*api.Thread, error)
	GetGoroutines(ctx context.Context) ([]*api.Goroutine, error)

	GetSources(ctx context.Context, filter string) ([]string, error)
	GetFunctions(ctx context.Context, filter string) ([]string, error)
	GetTypes(ctx context.Context, filter string) ([]string, error)

	GetProcessID(ctx context.Context) (int, error)
	GetDebuggerState(ctx context.Context) (*api.DebuggerState, error)
	IsAttachedToExistingProcess(ctx context.Context) (bool, error)
	RestartProcess(ctx context.Context) ([]api.DiscardedBreakpoint, error)
	DetachProcess(ctx context.Context, kill bool) error
}

// SessionManager is the interface for managing connections to debug servers
type SessionManager interface {
	// Connect connects to the debug server listening on addr.
	// transport is one of "http", "socket" or "websocket".
	Connect(ctx context.Context, addr string, transport string) (*SessionInfo, error)

	// TerminateSession closes a session, detaching from the debugged
	// process first when detach is set
	TerminateSession(ctx context.Context, sessionID string, detach bool, kill bool) error

	// ListSessions returns a list of active debug sessions
	ListSessions() []*SessionInfo

	// GetSession returns a debug session by ID
	GetSession(sessionID string) (Session, error)
}

// Session is a connection to one debug server
type Session interface {
	// GetID returns the session ID
	GetID() string

	// Client returns the client bound to the session
	Client() DebuggerClient
}

// SessionInfo holds information about a debug session
type SessionInfo struct {
	ID        string
	Addr      string
	Transport string
}
