// Package cli is the docqa command line.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa/internal/core/ports/driving"
	"github.com/custodia-labs/docqa/internal/logger"
)

// version is set by Execute.
var version = "dev"

var (
	verbose   bool
	logLevel  string
	ephemeral bool
)

// Services used by the commands. They are built in PersistentPreRunE from
// the settings, or set directly by tests.
var (
	settingsService driving.SettingsService
	ingestService   driving.IngestService
	queryService    driving.QueryService
	metricsService  driving.MetricsService
)

var rootCmd = &cobra.Command{
	Use:   "docqa",
	Short: "Ask questions about your documents",
	Long: `docqa indexes PDF, text and markdown files into a vector index and
answers questions from them with sources.

  docqa ingest ./docs
  docqa ask "How do I rotate the signing key?" --sources
  docqa serve`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if err := configureLogging(); err != nil {
			return err
		}
		return prepare(cmd.Context(), needsOf(cmd))
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print debug logs to stderr")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"minimum level printed to stderr: debug, info, warn or error")
	rootCmd.PersistentFlags().BoolVar(&ephemeral, "ephemeral", false,
		"keep settings, index and metrics in memory for this run only")
}

// configureLogging applies --verbose, then --log-level when given.
func configureLogging() error {
	logger.SetVerbose(verbose)
	if logLevel == "" {
		return nil
	}
	level, err := logger.ParseLevel(logLevel)
	if err != nil {
		return err
	}
	logger.SetLevel(level)
	return nil
}

// Execute runs the root command until it finishes or the process is
// interrupted.
func Execute(v string) error {
	if v != "" {
		version = v
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer release()
	return rootCmd.ExecuteContext(ctx)
}
