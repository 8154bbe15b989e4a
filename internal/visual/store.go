package visual

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
)

// Store is the baseline image store: a flat directory mapping image
// filenames to the last-accepted reference bytes, plus a sibling
// directory holding generated diff artifacts. Both roots are injected
// explicitly; the store derives nothing from ambient layout.
//
// The store holds no in-memory cache. Every operation is a read-through
// to the filesystem.
type Store struct {
	baselineDir string
	diffDir     string
}

// NewStore returns a store rooted at the given directories. Neither is
// created until EnsureReady.
func NewStore(baselineDir, diffDir string) *Store {
	return &Store{baselineDir: baselineDir, diffDir: diffDir}
}

// EnsureReady creates the baseline and diff directories if absent.
// Idempotent.
func (s *Store) EnsureReady() error {
	if err := os.MkdirAll(s.baselineDir, 0o755); err != nil {
		return fmt.Errorf("create baseline dir: %w", err)
	}
	if err := os.MkdirAll(s.diffDir, 0o755); err != nil {
		return fmt.Errorf("create diff dir: %w", err)
	}
	return nil
}

// HasBaseline reports whether a baseline exists for filename. A missing
// file is not an error; only unexpected I/O failures are.
func (s *Store) HasBaseline(filename string) (bool, error) {
	_, err := os.Stat(s.BaselinePath(filename))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("stat baseline %s: %w", filename, err)
}

// Adopt copies the captured image into the store under filename,
// unconditionally overwriting any prior baseline. Used both for
// first-sight adoption and explicit promotion.
func (s *Store) Adopt(capturedPath, filename string) error {
	data, err := os.ReadFile(capturedPath)
	if err != nil {
		return fmt.Errorf("read capture %s: %w", capturedPath, err)
	}
	if err := os.WriteFile(s.BaselinePath(filename), data, 0o644); err != nil {
		return fmt.Errorf("write baseline %s: %w", filename, err)
	}
	return nil
}

// Remove deletes a baseline. A missing target is logged and treated as
// success, since a caller may race with manual cleanup.
func (s *Store) Remove(filename string) error {
	err := os.Remove(s.BaselinePath(filename))
	if errors.Is(err, fs.ErrNotExist) {
		slog.Debug("baseline already absent", "filename", filename)
		return nil
	}
	if err != nil {
		return fmt.Errorf("remove baseline %s: %w", filename, err)
	}
	return nil
}

// ListAll enumerates current baseline filenames, sorted for stable
// output.
func (s *Store) ListAll() ([]string, error) {
	entries, err := os.ReadDir(s.baselineDir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list baselines: %w", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// BaselinePath returns the on-disk location of a baseline.
func (s *Store) BaselinePath(filename string) string {
	return filepath.Join(s.baselineDir, filename)
}

// DiffPath returns the artifact location for a run/filename pair.
func (s *Store) DiffPath(runID, filename string) string {
	return filepath.Join(s.diffDir, runID+"-"+filename)
}

// DiffDir returns the diff artifact root.
func (s *Store) DiffDir() string {
	return s.diffDir
}

// BaselineDir returns the baseline root.
func (s *Store) BaselineDir() string {
	return s.baselineDir
}
