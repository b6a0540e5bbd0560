package filesystem

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func onlyText(name string) bool {
	return strings.HasSuffix(name, ".txt") || strings.HasSuffix(name, ".md")
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestWalk(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "b.txt"), "b")
	writeFile(t, filepath.Join(root, "a.md"), "a")
	writeFile(t, filepath.Join(root, "image.png"), "png")
	writeFile(t, filepath.Join(root, "nested", "c.txt"), "c")
	writeFile(t, filepath.Join(root, ".git", "notes.txt"), "hidden dir")
	writeFile(t, filepath.Join(root, ".draft.txt"), "hidden file")

	t.Run("finds supported visible files sorted", func(t *testing.T) {
		files, err := Walk(root, onlyText)
		require.NoError(t, err)
		assert.Equal(t, []string{
			filepath.Join(root, "a.md"),
			filepath.Join(root, "b.txt"),
			filepath.Join(root, "nested", "c.txt"),
		}, files)
	})

	t.Run("nil supports accepts every file", func(t *testing.T) {
		files, err := Walk(root, nil)
		require.NoError(t, err)
		assert.Len(t, files, 4)
	})

	t.Run("file root is returned even when unsupported", func(t *testing.T) {
		path := filepath.Join(root, "image.png")
		files, err := Walk(path, onlyText)
		require.NoError(t, err)
		assert.Equal(t, []string{path}, files)
	})

	t.Run("missing root fails", func(t *testing.T) {
		_, err := Walk(filepath.Join(root, "missing"), onlyText)
		assert.Error(t, err)
	})
}

func TestIsHidden(t *testing.T) {
	tests := []struct {
		path     string
		expected bool
	}{
		{".hidden", true},
		{"path/to/.hidden", true},
		{"/root/.config/file.txt", true},
		{"dir/.git/config", true},
		{".config/.cache/data", true},

		{"file.txt", false},
		{"path/to/file.txt", false},
		{"file.hidden", false},
		{"directory.name/file", false},

		{".", false},
		{"..", false},
		{"path/./file", false},
		{"path/../file", false},
		{"", false},
		{"/", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.expected, isHidden(tt.path))
		})
	}
}
