package extract

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	appErr "github.com/jfrchan18/rag-chatbot/internal/pkg/errors"
)

// Supported reports whether File knows how to read path.
func Supported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf", ".md", ".markdown", ".txt":
		return true
	}
	return false
}

// File reads path and returns its text, dispatching on the extension.
func File(ctx context.Context, path string) (string, error) {
	if !Supported(path) {
		return "", fmt.Errorf("%w: unsupported file type %q", appErr.ErrInvalid, filepath.Ext(path))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return PDF(ctx, data)
	case ".md", ".markdown":
		return Markdown(data), nil
	default:
		return string(data), nil
	}
}

// Collect expands paths into the supported files they name. Directories are
// walked recursively; hidden entries are skipped. The result is sorted and
// free of duplicates.
func Collect(paths []string) ([]string, error) {
	seen := make(map[string]struct{})
	var out []string
	add := func(p string) {
		if _, ok := seen[p]; ok {
			return
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", root, err)
		}
		if !info.IsDir() {
			if !Supported(root) {
				return nil, fmt.Errorf("%w: unsupported file type %q", appErr.ErrInvalid, filepath.Ext(root))
			}
			add(filepath.Clean(root))
			continue
		}
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if path != root && strings.HasPrefix(d.Name(), ".") {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.Type().IsRegular() && Supported(path) {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", root, err)
		}
	}
	sort.Strings(out)
	return out, nil
}
