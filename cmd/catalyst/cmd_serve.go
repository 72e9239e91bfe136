package main

import (
	"context"

	"github.com/spf13/cobra"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"catalyst/internal/logging"
	mcpserver "catalyst/internal/mcp"
)

var serveFlags struct {
	dbPath string
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server over stdio",
	Long: `Starts an MCP server over stdin/stdout exposing read-only analysis tools:
stored verdicts, research, per-question results and database stats.

The server monitors for parent process death. When the client disconnects or
restarts, the server self-terminates to prevent zombie processes.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveFlags.dbPath, "db", "", "analysis database path (default "+defaultDBHint+")")
}

func runServe(cmd *cobra.Command, _ []string) error {
	st, err := openStoreAt(serveFlags.dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	srv := mcpserver.NewServer(st)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	mcpserver.WatchParent(ctx, cancel)

	logging.New("mcp").Info("starting catalyst MCP server over stdio (parent watchdog active)")
	return srv.MCPServer.Run(ctx, &sdkmcp.StdioTransport{})
}
