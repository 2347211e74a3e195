//go:build windows

package main

import "os"

// shutdownSignals stop `run` and `mcp-server` cleanly.
// Windows has no SIGTERM; only Ctrl+C is delivered.
var shutdownSignals = []os.Signal{os.Interrupt}
