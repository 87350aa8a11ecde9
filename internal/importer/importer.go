package importer

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"fapiao/internal/config"
	"fapiao/internal/invoice"
)

var supportedExtensions = map[string]struct{}{
	".pdf":  {},
	".png":  {},
	".jpg":  {},
	".jpeg": {},
}

// Supported reports whether path carries an invoice file extension the
// recognition pipeline can handle.
func Supported(path string) bool {
	_, ok := supportedExtensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Scan resolves the provided paths or glob patterns into a deduplicated list
// of invoice files. Directories are walked recursively, glob patterns follow
// doublestar syntax, and plain file paths are taken as-is when supported.
// Results sort by lowercase base name so batches enumerate deterministically.
func Scan(patterns []string) ([]string, error) {
	seen := make(map[string]struct{})
	var files []string

	add := func(path string) {
		abs, err := filepath.Abs(filepath.Clean(path))
		if err != nil {
			abs = filepath.Clean(path)
		}
		if _, ok := seen[abs]; ok {
			return
		}
		seen[abs] = struct{}{}
		files = append(files, abs)
	}

	for _, pattern := range patterns {
		trimmed := strings.TrimSpace(pattern)
		if trimmed == "" {
			continue
		}
		expanded, err := config.ExpandPath(trimmed)
		if err != nil {
			return nil, err
		}

		info, statErr := os.Stat(expanded)
		switch {
		case statErr == nil && info.IsDir():
			if err := walkDir(expanded, add); err != nil {
				return nil, err
			}
		case statErr == nil:
			if Supported(expanded) {
				add(expanded)
			}
		case hasGlobMeta(trimmed):
			matches, err := doublestar.FilepathGlob(expanded)
			if err != nil {
				return nil, fmt.Errorf("glob %q: %w", pattern, err)
			}
			for _, match := range matches {
				if info, err := os.Stat(match); err == nil && !info.IsDir() && Supported(match) {
					add(match)
				}
			}
		default:
			return nil, fmt.Errorf("stat %q: %w", pattern, statErr)
		}
	}

	sort.SliceStable(files, func(i, j int) bool {
		left := strings.ToLower(filepath.Base(files[i]))
		right := strings.ToLower(filepath.Base(files[j]))
		if left != right {
			return left < right
		}
		return files[i] < files[j]
	})
	return files, nil
}

func walkDir(root string, add func(string)) error {
	return filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}
		if Supported(path) {
			add(path)
		}
		return nil
	})
}

func hasGlobMeta(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[{")
}

// NewItems builds invoice items for the given file paths, preserving order.
func NewItems(paths []string) []*invoice.Item {
	items := make([]*invoice.Item, 0, len(paths))
	for _, path := range paths {
		base := filepath.Base(path)
		ext := strings.ToLower(filepath.Ext(base))
		items = append(items, invoice.NewItem(path, base, ext))
	}
	return items
}
