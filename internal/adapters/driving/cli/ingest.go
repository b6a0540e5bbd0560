package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/docqa/internal/connectors/filesystem"
	"github.com/custodia-labs/docqa/internal/core/domain"
)

var (
	ingestMeta    map[string]string
	ingestWorkers int
)

var ingestCmd = requires(&cobra.Command{
	Use:   "ingest <path>...",
	Short: "Index files or directories",
	Long: `Extracts, chunks, embeds and indexes each file. Directories are walked
recursively for .pdf, .txt and .md files; hidden entries are skipped.

Ingesting the same content again refreshes its chunks instead of
duplicating them. A failing file does not stop the others.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}, "index")

func init() {
	ingestCmd.Flags().StringToStringVarP(&ingestMeta, "meta", "m", nil, "metadata key=value added to every chunk")
	ingestCmd.Flags().IntVarP(&ingestWorkers, "workers", "w", 4, "files ingested concurrently")
	rootCmd.AddCommand(ingestCmd)
}

// ingestResult is the outcome for one file.
type ingestResult struct {
	path   string
	report *domain.IngestionReport
	err    error
}

func runIngest(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errNotConfigured("ingest")
	}

	var files []string
	for _, arg := range args {
		found, err := filesystem.Walk(arg, ingestService.Supports)
		if err != nil {
			return fmt.Errorf("scan %s: %w", arg, err)
		}
		files = append(files, found...)
	}
	if len(files) == 0 {
		cmd.Println("No supported files found.")
		return nil
	}

	results := ingestFiles(cmd.Context(), files, ingestWorkers)

	failed := 0
	for _, r := range results {
		if r.err != nil {
			failed++
			cmd.Printf("  FAIL %s: %v\n", r.path, r.err)
			continue
		}
		note := ""
		if r.report.AlreadyIndexed {
			note = " (already indexed, refreshed)"
		}
		cmd.Printf("  OK   %s -> %s, %d chunks%s\n", r.path, r.report.DocID, r.report.ChunksCreated, note)
	}

	cmd.Printf("\nIndexed %d of %d files.\n", len(results)-failed, len(results))
	if failed > 0 {
		return fmt.Errorf("%d files failed", failed)
	}
	return nil
}

// ingestFiles ingests files with at most workers in flight. Results keep
// the order of files.
func ingestFiles(ctx context.Context, files []string, workers int) []ingestResult {
	if workers < 1 {
		workers = 1
	}
	results := make([]ingestResult, len(files))

	var g errgroup.Group
	g.SetLimit(workers)
	for i, path := range files {
		g.Go(func() error {
			report, err := ingestFile(ctx, path)
			results[i] = ingestResult{path: path, report: report, err: err}
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func ingestFile(ctx context.Context, path string) (*domain.IngestionReport, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}

	extra := make(map[string]any, len(ingestMeta)+1)
	for k, v := range ingestMeta {
		extra[k] = v
	}
	if abs, err := filepath.Abs(path); err == nil {
		extra[domain.MetaSourcePath] = abs
	}

	return ingestService.Ingest(ctx, raw, filepath.Base(path), extra)
}
