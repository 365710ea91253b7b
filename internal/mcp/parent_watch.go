package mcp

import (
	"context"
	"os"
	"time"

	"newsdesk/internal/logging"
)

// WatchParent cancels the server when the parent process dies, so a
// disconnected MCP host never leaves an orphaned server behind. It
// polls the parent PID instead of reading stdin: the SDK's stdio
// transport owns stdin exclusively, and consuming bytes here would
// corrupt the JSON-RPC stream.
func WatchParent(ctx context.Context, cancel context.CancelFunc) {
	ppid := os.Getppid()
	logger := logging.New("mcp")
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-time.After(2 * time.Second):
				if os.Getppid() != ppid {
					logger.Warn("parent process died, shutting down", "was_pid", ppid)
					cancel()
					return
				}
			}
		}
	}()
}
