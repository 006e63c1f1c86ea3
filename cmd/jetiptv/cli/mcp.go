package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	jmcp "github.com/JET-SOUZA/jet.iptv/internal/mcp"
)

func newMCPCmd() *cobra.Command {
	var (
		transport string
		port      int
	)

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP server for account administration",
		Long: `Start a Model Context Protocol (MCP) server that exposes account administration
as tools and the stream catalog as resources. Supports stdio (default) and HTTP
transports.

The MCP server talks to the user database directly; it has the same power as
the admin dashboard, so only expose the HTTP transport on trusted networks.`,
		Example: `  jetiptv mcp                              # stdio mode
  jetiptv mcp --transport http --port 3001  # Streamable HTTP mode`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMCP(transport, port)
		},
	}

	cmd.Flags().StringVar(&transport, "transport", "stdio", "Transport mode: stdio or http")
	cmd.Flags().IntVar(&port, "port", 3001, "HTTP port (only used with --transport http)")

	return cmd
}

func runMCP(transport string, port int) error {
	cfg := loadSettings()
	// stdout carries the protocol in stdio mode; logs go to stderr.
	logger := newLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat)

	if transport != "stdio" && transport != "http" {
		return fmt.Errorf("unsupported transport %q; use 'stdio' or 'http'", transport)
	}

	admin, st, err := openAdmin(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	cat, err := loadCatalog(cfg)
	if err != nil {
		return err
	}

	mcpSrv := jmcp.NewMCPServer(admin, cat, versionString(), logger)

	if transport == "http" {
		return mcpSrv.ServeHTTP(fmt.Sprintf(":%d", port))
	}
	return mcpSrv.ServeStdio()
}
