package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa/internal/adapters/driven/ai"
	"github.com/custodia-labs/docqa/internal/adapters/driven/config/file"
	"github.com/custodia-labs/docqa/internal/adapters/driven/storage/jsonfile"
	"github.com/custodia-labs/docqa/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/docqa/internal/chunker"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/core/services"
	"github.com/custodia-labs/docqa/internal/extractors"
	"github.com/custodia-labs/docqa/internal/logger"
	"github.com/custodia-labs/docqa/internal/telemetry"
)

// HomeEnv overrides the configuration directory (default ~/.docqa).
const HomeEnv = "DOCQA_HOME"

// need is what a command requires to be built before it runs.
// Each level includes the ones below it.
type need int

const (
	needNothing need = iota
	needSettings
	needMetrics
	needIndex
	needGeneration
)

const needsAnnotation = "docqa.needs"

var needNames = map[string]need{
	"settings":   needSettings,
	"metrics":    needMetrics,
	"index":      needIndex,
	"generation": needGeneration,
}

// requires marks cmd as needing n before it runs.
func requires(cmd *cobra.Command, n string) *cobra.Command {
	if cmd.Annotations == nil {
		cmd.Annotations = map[string]string{}
	}
	cmd.Annotations[needsAnnotation] = n
	return cmd
}

func needsOf(cmd *cobra.Command) need {
	return needNames[cmd.Annotations[needsAnnotation]]
}

var (
	// components holds the adapters opened by prepare, closed by release.
	components *ai.Components

	// observer receives ingestion and query telemetry; serve exposes it.
	observer *telemetry.Metrics
)

// prepare builds whatever n requires that is not already set.
func prepare(ctx context.Context, n need) error {
	if n == needNothing {
		return nil
	}

	if settingsService == nil {
		svc, err := openSettings()
		if err != nil {
			return err
		}
		settingsService = svc
	}
	if satisfied(n) {
		return nil
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	if settings.DataDir == "" {
		if home := os.Getenv(HomeEnv); home != "" {
			settings.DataDir = filepath.Join(home, "data")
		}
	}

	collector, err := openMetrics(settings.DataDir)
	if err != nil {
		return err
	}
	if metricsService == nil {
		metricsService = collector
	}
	if n == needMetrics {
		return nil
	}

	return openPipeline(ctx, settings, collector, n == needGeneration)
}

// satisfied reports whether the services n requires are already set.
func satisfied(n need) bool {
	switch n {
	case needNothing, needSettings:
		return true
	case needMetrics:
		return metricsService != nil
	default:
		return ingestService != nil && queryService != nil
	}
}

func openSettings() (*services.SettingsService, error) {
	if ephemeral {
		store := memory.NewConfigStoreWith(map[string]any{
			services.KeyVectorProvider: string(domain.VectorProviderMemory),
		})
		return services.NewSettingsService(store, ai.NewConfigValidator()), nil
	}

	store, err := file.NewConfigStore(os.Getenv(HomeEnv))
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	return services.NewSettingsService(store, ai.NewConfigValidator()), nil
}

func openMetrics(dataDir string) (*services.MetricsCollector, error) {
	if ephemeral {
		return services.NewMetricsCollector(memory.NewMetricsStore()), nil
	}

	path := ""
	if dataDir != "" {
		path = filepath.Join(dataDir, jsonfile.DefaultFile)
	}
	store, err := jsonfile.NewMetricsStore(path)
	if err != nil {
		return nil, fmt.Errorf("open metrics log: %w", err)
	}
	return services.NewMetricsCollector(store), nil
}

// openPipeline builds the ingestion and query services. The generation
// backend is only built when withGeneration is set.
func openPipeline(
	ctx context.Context, settings *domain.AppSettings, collector *services.MetricsCollector, withGeneration bool,
) error {
	built, err := ai.Build(ctx, settings, withGeneration)
	if err != nil {
		return err
	}
	components = built

	processor, err := chunker.New(
		chunker.WithWindow(settings.Chunking.Window),
		chunker.WithOverlap(settings.Chunking.Overlap),
	)
	if err != nil {
		return err
	}

	observer = telemetry.New()

	ingest, err := services.NewIngestionService(
		extractors.NewDefaultRegistry(), processor, built.Embedding, built.Index)
	if err != nil {
		return err
	}
	ingest.SetMetrics(collector)
	ingest.SetObserver(observer)
	ingest.SetStatsSample(settings.Retrieval.StatsSample)
	if ingestService == nil {
		ingestService = ingest
	}

	promptDir := ""
	if home := os.Getenv(HomeEnv); home != "" {
		promptDir = filepath.Join(home, "prompts")
	}
	var prompts driven.PromptStore
	if !ephemeral {
		if store, err := file.NewPromptStore(promptDir); err != nil {
			logger.Warn("Prompt store unavailable, using built-in instructions: %v", err)
		} else {
			prompts = store
		}
	}
	generator := services.NewGenerator(built.Generation, prompts)

	query := services.NewQueryService(services.NewRetriever(built.Embedding, built.Index), generator, collector)
	query.SetRetrieval(settings.Retrieval.TopK, settings.Retrieval.MaxContextChars)
	query.SetObserver(observer)
	if queryService == nil {
		queryService = query
	}
	return nil
}

// release closes the adapters opened by prepare.
func release() {
	if components != nil {
		components.Close()
		components = nil
	}
}

// errNotConfigured is returned when a command runs without its service.
func errNotConfigured(name string) error {
	return errors.New(name + " service not configured")
}
