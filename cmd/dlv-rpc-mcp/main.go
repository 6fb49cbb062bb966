package main

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/mark3labs/mcp-go/server"
	"github.com/rudderlabs/rudder-go-kit/config"
	"github.com/rudderlabs/rudder-go-kit/logger"

	"github.com/xhd2015/dlv-rpc/debug"
	tools "github.com/xhd2015/dlv-rpc/tools/debug"
)

// install: go install ./cmd/dlv-rpc-mcp
const help = `
dlv-rpc-mcp MCP server for Delve headless debuggers

Usage: dlv-rpc-mcp <cmd> [OPTIONS]

Available commands:
  help                               show help message

Options:
  --listen <listen>                  Serve MCP over SSE on this address instead of stdio
  --help   show help message

Environment:
  RSERVER_DEBUGGER_DIAL_TIMEOUT      Dial timeout for debugger connections (default: 10s)
  RSERVER_LOGGER_LOG_FILE_LOCATION   Log file used in stdio mode (default: ~/.dlv-rpc-mcp/dlv-rpc-mcp.log)
  LOG_LEVEL                          Log level (default: INFO)
`

func main() {
	if err := handle(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func handle(args []string) error {
	if len(args) > 0 && args[0] == "help" {
		fmt.Println(strings.TrimSpace(help))
		return nil
	}

	var listen string
	n := len(args)
	for i, arg := range args {
		switch arg {
		case "--listen":
			if i+1 >= n {
				return fmt.Errorf("%s requires arg", arg)
			}
			listen = args[i+1]
		case "-h", "--help":
			fmt.Println(strings.TrimSpace(help))
			return nil
		}
	}

	conf := config.New()
	if listen == "" {
		// stdout carries the protocol in stdio mode
		if err := logToFile(conf); err != nil {
			return err
		}
	}
	log := logger.NewFactory(conf).NewLogger().Child("dlv-rpc-mcp")

	// Create MCP server
	s := server.NewMCPServer(
		"Go Delve Debugger MCP",
		"1.0.0",
		server.WithToolCapabilities(true),
	)

	sessionManager := debug.NewSessionManager(conf, log)
	if err := tools.RegisterTools(s, sessionManager, tools.ToolOptions{
		Logger: log,
	}); err != nil {
		return err
	}

	if listen == "" {
		log.Infon("MCP Server listening on stdio")
		return server.ServeStdio(s)
	}
	log.Infon("MCP Server listening", logger.NewStringField("addr", listen))
	sseServer := server.NewSSEServer(s, sseBaseURL(listen))
	return sseServer.Start(listen)
}

// sseBaseURL is the URL clients reach the SSE endpoints under. A listen
// address without a host is served on localhost.
func sseBaseURL(listen string) string {
	host, port, err := net.SplitHostPort(listen)
	if err != nil {
		return "http://" + listen
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, port)
}

func logToFile(conf *config.Config) error {
	if !conf.IsSet("Logger.logFileLocation") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get user home directory: %w", err)
		}
		configDir := filepath.Join(homeDir, ".dlv-rpc-mcp")
		if err := os.MkdirAll(configDir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
		conf.Set("Logger.logFileLocation", filepath.Join(configDir, "dlv-rpc-mcp.log"))
	}
	conf.Set("Logger.enableConsole", false)
	conf.Set("Logger.enableFile", true)
	return nil
}
