// Package filesystem finds documents under a directory and watches it
// for changes.
package filesystem

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// SupportsFunc reports whether a file name can be ingested.
type SupportsFunc func(filename string) bool

// Walk returns the supported files under root, sorted. Hidden files and
// directories are skipped. A root that is a file is returned as is, even
// when unsupported, so the caller can report it.
func Walk(root string, supports SupportsFunc) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{root}, nil
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path != root && isHidden(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		if supports == nil || supports(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}

// isHidden reports whether any element of path starts with a dot.
// "." and ".." are not hidden.
func isHidden(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == "" || part == "." || part == ".." {
			continue
		}
		if strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}
