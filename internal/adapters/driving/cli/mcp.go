package cli

import (
	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa/internal/adapters/driving/mcp"
	"github.com/custodia-labs/docqa/internal/logger"
)

var mcpAddr string

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Model Context Protocol server",
}

var mcpServeCmd = requires(&cobra.Command{
	Use:   "serve",
	Short: "Expose ask and retrieve to MCP clients",
	Long: `Runs an MCP server over the same index and generation backend as
"docqa ask". It speaks JSON-RPC on stdio unless --addr is given, in which
case it serves the streamable HTTP transport on that address.

Tools:      ask, retrieve, delete_document, stats
Resources:  docqa://documents, docqa://metrics

A client entry for stdio mode looks like:

  {"mcpServers": {"docqa": {"command": "docqa", "args": ["mcp", "serve"]}}}`,
	Args: cobra.NoArgs,
	RunE: runMCPServe,
}, "generation")

func init() {
	mcpServeCmd.Flags().StringVarP(&mcpAddr, "addr", "a", "", "serve HTTP on this address instead of stdio, e.g. :8080")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	server, err := mcp.NewServer(&mcp.Ports{
		Query:   queryService,
		Ingest:  ingestService,
		Metrics: metricsService,
	}, mcp.WithVersion(version))
	if err != nil {
		return err
	}

	if mcpAddr == "" {
		return server.Run(cmd.Context())
	}

	logger.SetTimestamps(true)
	cmd.Printf("MCP server listening on %s\n", mcpAddr)
	return server.RunHTTP(cmd.Context(), mcpAddr)
}
