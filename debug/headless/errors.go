package headless

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-delve/delve/service/api"
)

// ErrorKind enumerates the errors a Client surfaces.
type ErrorKind uint8

const (
	KindUnknown ErrorKind = iota
	KindConnection
	KindServer
	KindMalformedLocation
	KindMalformedBreakpoint
	KindDebuggerExited
)

func (k ErrorKind) String() string {
	switch k {
	case KindConnection:
		return "connection"
	case KindServer:
		return "server"
	case KindMalformedLocation:
		return "malformed location"
	case KindMalformedBreakpoint:
		return "malformed breakpoint"
	case KindDebuggerExited:
		return "debugger exited"
	default:
		return "unknown"
	}
}

type kinded interface {
	Kind() ErrorKind
}

// KindOf reports the kind of the outermost typed error in err's chain.
func KindOf(err error) ErrorKind {
	var k kinded
	if errors.As(err, &k) {
		return k.Kind()
	}
	return KindUnknown
}

// Fault is an error reported by the server in a JSON-RPC response.
// Delve reports faults as plain strings, JSON-RPC 2.0 servers as objects;
// both end up here.
type Fault struct {
	Code    int             `json:"code,omitempty"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (f *Fault) Error() string {
	if f.Code != 0 {
		return fmt.Sprintf("%s (code %d)", f.Message, f.Code)
	}
	return f.Message
}

// parseFault returns nil when raw carries no error.
func parseFault(raw json.RawMessage) (*Fault, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var msg string
	if err := json.Unmarshal(raw, &msg); err == nil {
		return &Fault{Message: msg}, nil
	}
	var f Fault
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("failed to parse error object %s: %w", raw, err)
	}
	return &f, nil
}

// notFound reports whether the server rejected a lookup because the
// object does not exist.
func (f *Fault) notFound() bool {
	msg := strings.ToLower(f.Message)
	return strings.HasPrefix(msg, "no breakpoint with") ||
		strings.HasPrefix(msg, "no thread with")
}

// ConnectionError means the server at Addr could not be reached.
type ConnectionError struct {
	Addr string
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("failed to reach debugger at %s: %v", e.Addr, e.Err)
}

func (e *ConnectionError) Unwrap() error   { return e.Err }
func (e *ConnectionError) Kind() ErrorKind { return KindConnection }

// ServerError means the call reached the server and the server failed it.
type ServerError struct {
	Method string
	Fault  *Fault
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("error from %s: %s", e.Method, e.Fault.Error())
}

func (e *ServerError) Unwrap() error   { return e.Fault }
func (e *ServerError) Kind() ErrorKind { return KindServer }

// MalformedLocationError means the server could not resolve LocationArg.
type MalformedLocationError struct {
	LocationArg string
	Err         error
}

func (e *MalformedLocationError) Error() string {
	return fmt.Sprintf("malformed location %q: %v", e.LocationArg, e.Err)
}

func (e *MalformedLocationError) Unwrap() error   { return e.Err }
func (e *MalformedLocationError) Kind() ErrorKind { return KindMalformedLocation }

// MalformedBreakpointError means a breakpoint payload could not be decoded.
// Index is the position of the payload in a list response, -1 otherwise.
type MalformedBreakpointError struct {
	Index   int
	Payload json.RawMessage
	Err     error
}

func (e *MalformedBreakpointError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("malformed breakpoint at index %d: %v", e.Index, e.Err)
	}
	return fmt.Sprintf("malformed breakpoint: %v", e.Err)
}

func (e *MalformedBreakpointError) Unwrap() error   { return e.Err }
func (e *MalformedBreakpointError) Kind() ErrorKind { return KindMalformedBreakpoint }

// DebuggerExitedError is returned by execution-advancing operations when
// the debugged process exited.
type DebuggerExitedError struct {
	ExitStatus int
	State      *api.DebuggerState
}

func (e *DebuggerExitedError) Error() string {
	return fmt.Sprintf("process exited with status %d", e.ExitStatus)
}

func (e *DebuggerExitedError) Kind() ErrorKind { return KindDebuggerExited }
