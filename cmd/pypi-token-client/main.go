// File: cmd/pypi-token-client/main.go
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/xkilldash9x/pypi-token-client/cmd"
)

// Allows mocking os.Exit in tests.
var osExit = os.Exit

func main() {
	// Ctrl+C also ends a headed session that waits for its window to close.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := exitCode(cmd.Execute(ctx, os.Args[1:]))
	stop()
	osExit(code)
}

// exitCode maps the command result to the process status. An interrupted
// command is not a failure.
func exitCode(err error) int {
	switch {
	case err == nil, errors.Is(err, context.Canceled):
		return 0
	default:
		return 1
	}
}
