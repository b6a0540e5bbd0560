package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa/internal/connectors/filesystem"
)

var (
	watchSkipInitial bool
	watchDebounce    time.Duration
)

var watchCmd = requires(&cobra.Command{
	Use:   "watch <dir>",
	Short: "Keep the index in sync with a directory",
	Long: `Ingests every supported file under dir, then watches it. Created and
modified files are re-ingested once they stop changing; when a file's
content changes its previous document is removed. Deleted files have
their document removed.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}, "index")

func init() {
	watchCmd.Flags().BoolVar(&watchSkipInitial, "skip-initial", false, "do not ingest existing files first")
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 500*time.Millisecond, "quiet period before a changed file is ingested")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errNotConfigured("ingest")
	}
	ctx := cmd.Context()
	dir := args[0]
	state := newWatchState()

	if !watchSkipInitial {
		files, err := filesystem.Walk(dir, ingestService.Supports)
		if err != nil {
			return fmt.Errorf("scan %s: %w", dir, err)
		}
		for _, r := range ingestFiles(ctx, files, ingestWorkers) {
			if r.err != nil {
				cmd.Printf("  FAIL %s: %v\n", r.path, r.err)
				continue
			}
			state.remember(r.path, r.report.DocID)
		}
		cmd.Printf("Indexed %d files.\n", state.len())
	}

	watcher := filesystem.NewWatcher(dir, ingestService.Supports)
	changes, err := watcher.Watch(ctx)
	if err != nil {
		return err
	}
	defer watcher.Close()
	cmd.Printf("Watching %s (Ctrl-C to stop)\n", dir)

	due := make(chan string)
	timers := make(map[string]*time.Timer)
	for {
		select {
		case <-ctx.Done():
			return nil
		case change, ok := <-changes:
			if !ok {
				return nil
			}
			path := change.Path
			if t, ok := timers[path]; ok {
				t.Reset(watchDebounce)
				continue
			}
			timers[path] = time.AfterFunc(watchDebounce, func() {
				select {
				case due <- path:
				case <-ctx.Done():
				}
			})
		case path := <-due:
			delete(timers, path)
			msg, err := state.sync(ctx, path)
			if err != nil {
				cmd.Printf("  FAIL %s: %v\n", path, err)
				continue
			}
			if msg != "" {
				cmd.Printf("  %s\n", msg)
			}
		}
	}
}

// watchState maps watched paths to the document their content produced.
type watchState struct {
	mu    sync.Mutex
	paths map[string]string
}

func newWatchState() *watchState {
	return &watchState{paths: make(map[string]string)}
}

func (s *watchState) remember(path, docID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paths[path] = docID
}

func (s *watchState) forget(path string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.paths[path]
	delete(s.paths, path)
	return id, ok
}

func (s *watchState) lookup(path string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.paths[path]
	return id, ok
}

func (s *watchState) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.paths)
}

// sync brings the index in line with path: ingest it if it exists,
// otherwise delete the document it last produced.
func (s *watchState) sync(ctx context.Context, path string) (string, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		id, ok := s.forget(path)
		if !ok || s.shared(id) {
			return "", nil
		}
		if _, err := ingestService.DeleteDocument(ctx, id); err != nil {
			return "", err
		}
		return fmt.Sprintf("removed %s (%s)", path, id), nil
	}

	report, err := ingestFile(ctx, path)
	if err != nil {
		return "", err
	}

	previous, had := s.lookup(path)
	s.remember(path, report.DocID)
	if had && previous != report.DocID && !s.shared(previous) {
		if _, err := ingestService.DeleteDocument(ctx, previous); err != nil {
			return "", fmt.Errorf("remove previous version %s: %w", previous, err)
		}
		return fmt.Sprintf("updated %s -> %s (%d chunks, replaced %s)",
			path, report.DocID, report.ChunksCreated, previous), nil
	}
	return fmt.Sprintf("indexed %s -> %s (%d chunks)", path, report.DocID, report.ChunksCreated), nil
}

// shared reports whether another path still produces docID.
func (s *watchState) shared(docID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.paths {
		if id == docID {
			return true
		}
	}
	return false
}
