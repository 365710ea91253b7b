package main

import (
	"context"

	"github.com/spf13/cobra"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"newsdesk/internal/logging"
	mcpserver "newsdesk/internal/mcp"
	"newsdesk/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server over stdio",
	Long: `Starts an MCP server over stdin/stdout exposing research_url,
smart_brief, and get_report tools.

The server monitors for parent process death and self-terminates when
the host disconnects, so no orphaned servers accumulate.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	runner, err := buildRunner(cfg)
	if err != nil {
		return err
	}

	srv := mcpserver.NewServer(runner)
	defer srv.Shutdown()

	if cfg.Store.Path != "" {
		st, err := store.Open(cfg.Store.Path)
		if err != nil {
			return err
		}
		defer st.Close()
		srv.Store = st
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	mcpserver.WatchParent(ctx, cancel)

	logging.New("mcp").Info("starting newsdesk MCP server over stdio")
	return srv.MCPServer.Run(ctx, &sdkmcp.StdioTransport{})
}
