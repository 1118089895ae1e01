// Package fsutil holds small path helpers shared by the watch layers.
package fsutil

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// NormalizePath returns the absolute, cleaned form of a watch path.
func NormalizePath(pathValue string) (string, error) {
	trimmed := strings.TrimSpace(pathValue)
	if trimmed == "" {
		return "", errors.New("path is empty")
	}
	abs, err := filepath.Abs(trimmed)
	if err != nil {
		return "", err
	}
	return filepath.Clean(abs), nil
}

// NormalizePaths normalizes a list of watch paths, dropping duplicates while
// keeping first-seen order.
func NormalizePaths(paths ...string) ([]string, error) {
	if len(paths) == 0 {
		return nil, nil
	}
	seen := make(map[string]struct{}, len(paths))
	normalized := make([]string, 0, len(paths))
	for _, value := range paths {
		cleaned, err := NormalizePath(value)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[cleaned]; ok {
			continue
		}
		seen[cleaned] = struct{}{}
		normalized = append(normalized, cleaned)
	}
	return normalized, nil
}

// IsDir reports whether the path exists and is a directory.
func IsDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
