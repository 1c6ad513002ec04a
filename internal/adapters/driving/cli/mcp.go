package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/cmis-poller/internal/adapters/driving/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  `Commands for the Model Context Protocol (MCP) server integration.`,
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server so AI assistants can query the
configured repositories (cmis_query) and trigger polls (cmis_poll).

By default, the server communicates over stdio using JSON-RPC.
Use --port to start an HTTP server instead.

Examples:
  # Stdio mode (default)
  cmispoll mcp serve

  # HTTP mode (for MCP Inspector, remote access)
  cmispoll mcp serve --port 8080

Client configuration:
  {
    "mcpServers": {
      "cmispoll": {
        "command": "/path/to/cmispoll",
        "args": ["mcp", "serve"]
      }
    }
  }`,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntP("port", "p", 0, "HTTP port (0 = use stdio)")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		return fmt.Errorf("getting port flag: %w", err)
	}

	svc, err := requireServices()
	if err != nil {
		return err
	}

	ports := &mcp.Ports{
		Sessions: svc.Sessions,
		Polls:    svc.Polls,
	}
	if svc.Endpoints != nil {
		ports.Endpoints = svc.Endpoints
	}

	server, err := mcp.NewServer(ports)
	if err != nil {
		return err
	}

	if port > 0 {
		addr := fmt.Sprintf(":%d", port)
		fmt.Fprintf(cmd.ErrOrStderr(), "MCP server listening on http://localhost%s\n", addr)
		return server.RunHTTP(cmd.Context(), addr)
	}

	return server.Run(cmd.Context())
}
