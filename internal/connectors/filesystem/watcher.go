package filesystem

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/docqa/internal/logger"
)

// ChangeType describes what happened to a file.
type ChangeType string

// Change types.
const (
	ChangeCreated ChangeType = "created"
	ChangeUpdated ChangeType = "updated"
	ChangeDeleted ChangeType = "deleted"
)

// Change is one file event.
type Change struct {
	Type ChangeType
	Path string
}

// Watcher reports changes to supported files below a root directory,
// including directories created after Watch starts.
type Watcher struct {
	root     string
	supports SupportsFunc
	watcher  *fsnotify.Watcher
}

// NewWatcher creates a watcher for root. supports may be nil to accept
// every file.
func NewWatcher(root string, supports SupportsFunc) *Watcher {
	return &Watcher{root: root, supports: supports}
}

// Watch starts watching. The channel is closed when ctx is done or the
// watcher fails.
func (w *Watcher) Watch(ctx context.Context) (<-chan Change, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	w.watcher = fw

	if err := w.addTree(w.root); err != nil {
		fw.Close()
		return nil, err
	}

	changes := make(chan Change, 64)
	go func() {
		defer close(changes)
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-fw.Events:
				if !ok {
					return
				}
				if event.Has(fsnotify.Create) {
					if info, err := os.Stat(event.Name); err == nil && info.IsDir() && !isHidden(rel(w.root, event.Name)) {
						if err := w.addTree(event.Name); err != nil {
							logger.Warn("Cannot watch %s: %v", event.Name, err)
						}
						continue
					}
				}
				if change := w.handleFsEvent(event); change != nil {
					select {
					case changes <- *change:
					case <-ctx.Done():
						return
					}
				}
			case err, ok := <-fw.Errors:
				if !ok {
					return
				}
				logger.Warn("Watcher error: %v", err)
			}
		}
	}()

	return changes, nil
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	if w.watcher == nil {
		return nil
	}
	return w.watcher.Close()
}

// handleFsEvent maps an fsnotify event to a Change, or nil when the event
// is not about a supported, visible file.
func (w *Watcher) handleFsEvent(event fsnotify.Event) *Change {
	if isHidden(rel(w.root, event.Name)) {
		return nil
	}
	if w.supports != nil && !w.supports(event.Name) {
		return nil
	}

	switch {
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		return &Change{Type: ChangeDeleted, Path: event.Name}
	case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
		info, err := os.Stat(event.Name)
		if err != nil || info.IsDir() {
			return nil
		}
		t := ChangeUpdated
		if event.Has(fsnotify.Create) {
			t = ChangeCreated
		}
		return &Change{Type: t, Path: event.Name}
	default:
		return nil
	}
}

func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root && isHidden(d.Name()) {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

func rel(root, path string) string {
	r, err := filepath.Rel(root, path)
	if err != nil {
		return path
	}
	return r
}
