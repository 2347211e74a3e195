//go:build windows

package mcp

import "os"

// Windows has no SIGTERM.
var shutdownSignals = []os.Signal{os.Interrupt}
