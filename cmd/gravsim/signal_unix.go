//go:build !windows

package main

import (
	"os"
	"syscall"
)

// shutdownSignals stop `run` and `mcp-server` cleanly.
var shutdownSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}
