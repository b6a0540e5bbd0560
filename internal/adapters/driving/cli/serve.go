package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa/internal/adapters/driving/httpapi"
	"github.com/custodia-labs/docqa/internal/logger"
)

var serveAddr string

var serveCmd = requires(&cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Serves upload, query, document and metrics endpoints over HTTP.
Prometheus metrics are exposed at /metrics/prometheus.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}, "generation")

func init() {
	serveCmd.Flags().StringVarP(&serveAddr, "addr", "a", "", "listen address (default from settings)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	addr := serveAddr
	if addr == "" {
		settings, err := settingsService.Get()
		if err != nil {
			return fmt.Errorf("failed to get settings: %w", err)
		}
		addr = settings.ServerAddr
	}

	server, err := httpapi.NewServer(&httpapi.Ports{
		Query:   queryService,
		Ingest:  ingestService,
		Metrics: metricsService,
	}, observer)
	if err != nil {
		return err
	}

	logger.SetTimestamps(true)
	cmd.Printf("docqa API listening on http://%s\n", addr)
	return server.Run(cmd.Context(), addr)
}
