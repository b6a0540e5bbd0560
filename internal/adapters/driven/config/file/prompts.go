package file

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/logger"
)

// Ensure PromptStore implements the interface.
var _ driven.PromptStore = (*PromptStore)(nil)

var defaultPrompts = map[string]string{
	driven.PromptAnswerSystem: domain.DefaultAnswerSystemPrompt,
}

// cachedPrompt is a prompt file's trimmed text and the modification time
// it was read at.
type cachedPrompt struct {
	text    string
	modTime time.Time
}

// PromptStore serves prompts from <dir>/<name>.txt. A file is re-read
// when its modification time changes, so edits reach a running server
// without a restart. Missing or blank files fall back to the built-in
// text. The directory and default files are written on first Load.
type PromptStore struct {
	dir string

	initOnce sync.Once
	initErr  error

	mu    sync.Mutex
	cache map[string]cachedPrompt
}

// NewPromptStore creates a store rooted at dir, or ~/.docqa/prompts when
// dir is empty. It does no I/O.
func NewPromptStore(dir string) (*PromptStore, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		dir = filepath.Join(home, ".docqa", "prompts")
	}
	return &PromptStore{dir: dir, cache: make(map[string]cachedPrompt)}, nil
}

// Load returns the prompt called name.
func (s *PromptStore) Load(name string) (string, error) {
	s.initOnce.Do(s.writeDefaults)

	def, hasDefault := defaultPrompts[name]
	if s.initErr != nil {
		if hasDefault {
			return def, nil
		}
		return "", fmt.Errorf("load prompt %q: %w", name, s.initErr)
	}

	text, err := s.read(name)
	switch {
	case err == nil && text != "":
		return text, nil
	case hasDefault:
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			logger.Warn("Prompt %q unreadable, using built-in text: %v", name, err)
		}
		return def, nil
	case err == nil:
		return "", fmt.Errorf("load prompt %q: file is empty", name)
	default:
		return "", fmt.Errorf("load prompt %q: %w", name, err)
	}
}

// Reload drops every cached prompt.
func (s *PromptStore) Reload() {
	s.mu.Lock()
	s.cache = make(map[string]cachedPrompt)
	s.mu.Unlock()
}

// Dir returns the prompt directory.
func (s *PromptStore) Dir() string {
	return s.dir
}

func (s *PromptStore) path(name string) string {
	return filepath.Join(s.dir, name+".txt")
}

// read returns the cached text while the file's modification time is
// unchanged and re-reads it otherwise.
func (s *PromptStore) read(name string) (string, error) {
	info, err := os.Stat(s.path(name))
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.cache[name]; ok && c.modTime.Equal(info.ModTime()) {
		return c.text, nil
	}

	data, err := os.ReadFile(s.path(name))
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(string(data))
	s.cache[name] = cachedPrompt{text: text, modTime: info.ModTime()}
	logger.Debug("Loaded prompt %q (%d chars)", name, len(text))
	return text, nil
}

// writeDefaults creates the directory and any default prompt file that
// does not exist yet. Existing files are never overwritten.
func (s *PromptStore) writeDefaults() {
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		s.initErr = fmt.Errorf("create prompt directory: %w", err)
		return
	}
	for name, content := range defaultPrompts {
		f, err := os.OpenFile(s.path(name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			s.initErr = fmt.Errorf("create default prompt %q: %w", name, err)
			return
		}
		_, werr := f.WriteString(content + "\n")
		if cerr := f.Close(); werr == nil {
			werr = cerr
		}
		if werr != nil {
			s.initErr = fmt.Errorf("write default prompt %q: %w", name, werr)
			return
		}
	}
}
