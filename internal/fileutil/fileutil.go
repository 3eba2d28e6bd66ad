// Package fileutil provides the small filesystem helpers shared by the
// download engine and discovery handlers.
package fileutil

import (
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// EnsureDir creates dir (and parents) when missing.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}
	return nil
}

// Exists reports whether a file or directory is present at path.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// ModTime returns the modification time of path.
func ModTime(path string) (time.Time, error) {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}

// TempPath derives the deterministic temporary path used while downloading a
// file: an FNV-64a hash of the display name with a ".tmp" suffix, colocated
// with the final target so the final rename stays within one filesystem.
// Determinism makes crash debris recognizable across runs.
func TempPath(dir, displayName string) string {
	h := fnv.New64a()
	h.Write([]byte(displayName))
	return filepath.Join(dir, strconv.FormatUint(h.Sum64(), 10)+".tmp")
}

// SetModTime stamps path with the given time for both atime and mtime.
func SetModTime(path string, t time.Time) error {
	return os.Chtimes(path, t, t)
}
