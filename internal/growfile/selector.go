// Package growfile finds the log file a sounding is currently appending to.
package growfile

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/roman-kulish/sounding-telemetry/internal/sounding"
)

// File describes a candidate log file.
type File struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// SelectLatest returns the path of the most recently modified file in dir
// whose name matches pattern. Every call lists the directory again.
func SelectLatest(dir, pattern string) (string, error) {
	f, err := Latest(dir, pattern)
	if err != nil {
		return "", err
	}
	return f.Path, nil
}

// Latest is like SelectLatest but also returns the file size and
// modification time. Equal modification times are resolved in favour of the
// lexically greater name.
func Latest(dir, pattern string) (File, error) {
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return File{}, fmt.Errorf("listing %s: %w", filepath.Join(dir, pattern), err)
	}

	var (
		latest File
		found  bool
	)
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue // removed between listing and stat
			}
			return File{}, fmt.Errorf("inspecting %s: %w", path, err)
		}
		if !info.Mode().IsRegular() {
			continue
		}

		candidate := File{Path: path, Size: info.Size(), ModTime: info.ModTime()}
		if !found || newer(candidate, latest) {
			latest = candidate
			found = true
		}
	}

	if !found {
		return File{}, fmt.Errorf("%w: %s", sounding.ErrNoMatchingFile, filepath.Join(dir, pattern))
	}
	return latest, nil
}

func newer(a, b File) bool {
	if a.ModTime.Equal(b.ModTime) {
		return a.Path > b.Path
	}
	return a.ModTime.After(b.ModTime)
}
