// Package fileutil holds small filesystem helpers shared by the media pipeline.
package fileutil

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// RemoveIfExists deletes path and treats a missing file as success, so calling
// it twice is a no-op.
func RemoveIfExists(path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// Exists reports whether path names an existing regular file.
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// Size returns the size of the file at path in bytes.
func Size(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	if info.IsDir() {
		return 0, fmt.Errorf("%s is a directory", path)
	}
	return info.Size(), nil
}

// MegaBytes converts a byte count to mebibytes for display.
func MegaBytes(size int64) float64 {
	return float64(size) / (1024 * 1024)
}

// RemoveByPrefix deletes every regular file in dir whose name starts with
// prefix and returns the number removed.
func RemoveByPrefix(dir, prefix string) (int, error) {
	if prefix == "" {
		return 0, errors.New("remove by prefix: empty prefix")
	}
	matches, err := filepath.Glob(filepath.Join(dir, globEscape(prefix)+"*"))
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, match := range matches {
		if !Exists(match) {
			continue
		}
		if err := RemoveIfExists(match); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

// SweepDir deletes regular files directly under dir that were last modified
// before cutoff. A zero cutoff removes every file. Missing directories are
// not an error.
func SweepDir(dir string, cutoff time.Time) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, err
	}
	removed := 0
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		if !cutoff.IsZero() {
			info, err := entry.Info()
			if err != nil || !info.ModTime().Before(cutoff) {
				continue
			}
		}
		if err := RemoveIfExists(filepath.Join(dir, entry.Name())); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

func globEscape(value string) string {
	var b strings.Builder
	for _, r := range value {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
