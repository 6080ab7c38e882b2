// Package corpus discovers image files to index.
package corpus

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hyperjump/miru/internal/config"
)

// Discover scans dir non-recursively for regular files whose extension
// (case-insensitive) is in extensions, truncated at max entries.
// config.MaxImagesUnbounded disables truncation. The order is the directory
// iteration order; no sorting is guaranteed or required.
func Discover(dir string, extensions []string, max int) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read corpus directory: %w", err)
	}

	var paths []string
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		if !extensionAllowed(filepath.Ext(entry.Name()), extensions) {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
		if max != config.MaxImagesUnbounded && len(paths) >= max {
			break
		}
	}
	return paths, nil
}

func extensionAllowed(ext string, extensions []string) bool {
	if ext == "" {
		return false
	}
	ext = strings.ToLower(ext)
	for _, allowed := range extensions {
		if ext == strings.ToLower(allowed) {
			return true
		}
	}
	return false
}
