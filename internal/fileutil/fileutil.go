// Package fileutil provides file and path utility functions.
package fileutil

import (
	"fmt"
	"os"
	"strings"
)

// EnsureDir creates the directory and any missing parents.
func EnsureDir(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", path, err)
	}
	return nil
}

// FileExists returns true if the path exists and is a regular file.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// IsURL returns true if the string looks like a URL.
func IsURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// IsBareName returns true if the string contains no path separators or null
// bytes, making it safe to use as a single directory name.
func IsBareName(s string) bool {
	return s != "" && !strings.ContainsAny(s, "/\\\x00")
}
