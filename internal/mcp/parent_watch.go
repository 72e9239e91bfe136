package mcp

import (
	"context"
	"os"
	"time"

	"catalyst/internal/logging"
)

// WatchParent monitors for parent process death in a background goroutine.
// When the parent PID changes (the editor disconnected or restarted its
// extension host), it calls cancelFn to trigger graceful shutdown so server
// processes do not accumulate.
//
// This must NOT read from stdin: the MCP SDK's StdioTransport owns stdin
// exclusively; stealing bytes would corrupt the JSON-RPC stream.
func WatchParent(ctx context.Context, cancelFn context.CancelFunc) {
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
					cancelFn()
					return
				}
			}
		}
	}()
}
