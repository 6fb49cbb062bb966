package headless

// RPCNamespace prefixes every method exposed by the Delve headless server.
const RPCNamespace = "RPCServer"

// RPCMethod is a fully qualified server method name.
// Documentation: https://pkg.go.dev/github.com/go-delve/delve/service/rpc2
type RPCMethod string

const (
	RPCCommand RPCMethod = RPCNamespace + ".Command"
	RPCState   RPCMethod = RPCNamespace + ".State"
	RPCEval    RPCMethod = RPCNamespace + ".Eval"

	// Breakpoint methods
	RPCCreateBreakpoint RPCMethod = RPCNamespace + ".CreateBreakpoint"
	RPCGetBreakpoint    RPCMethod = RPCNamespace + ".GetBreakpoint"
	RPCListBreakpoints  RPCMethod = RPCNamespace + ".ListBreakpoints"
	RPCClearBreakpoint  RPCMethod = RPCNamespace + ".ClearBreakpoint"
	RPCFindLocation     RPCMethod = RPCNamespace + ".FindLocation"

	// Stack, thread and goroutine methods
	RPCStacktrace     RPCMethod = RPCNamespace + ".Stacktrace"
	RPCListThreads    RPCMethod = RPCNamespace + ".ListThreads"
	RPCGetThread      RPCMethod = RPCNamespace + ".GetThread"
	RPCListGoroutines RPCMethod = RPCNamespace + ".ListGoroutines"
	RPCListRegisters  RPCMethod = RPCNamespace + ".ListRegisters"

	// Process methods
	RPCRestart                   RPCMethod = RPCNamespace + ".Restart"
	RPCDetach                    RPCMethod = RPCNamespace + ".Detach"
	RPCProcessPid                RPCMethod = RPCNamespace + ".ProcessPid"
	RPCAttachedToExistingProcess RPCMethod = RPCNamespace + ".AttachedToExistingProcess"
	RPCDisassemble               RPCMethod = RPCNamespace + ".Disassemble"

	// Variable methods
	RPCListLocalVars    RPCMethod = RPCNamespace + ".ListLocalVars"    // https://pkg.go.dev/github.com/go-delve/delve/service/rpc2#RPCServer.ListLocalVars
	RPCListFunctionArgs RPCMethod = RPCNamespace + ".ListFunctionArgs" // https://pkg.go.dev/github.com/go-delve/delve/service/rpc2#RPCServer.ListFunctionArgs
	RPCListPackageVars  RPCMethod = RPCNamespace + ".ListPackageVars"
	RPCSet              RPCMethod = RPCNamespace + ".Set" // https://pkg.go.dev/github.com/go-delve/delve/service/rpc2#RPCServer.Set

	// Symbol listing methods
	RPCListSources   RPCMethod = RPCNamespace + ".ListSources" // https://pkg.go.dev/github.com/go-delve/delve/service/rpc2#RPCServer.ListSources
	RPCListFunctions RPCMethod = RPCNamespace + ".ListFunctions"
	RPCListTypes     RPCMethod = RPCNamespace + ".ListTypes"
)
