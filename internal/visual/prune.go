package visual

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// PruneDiffArtifacts deletes diff artifacts whose last-modified time is
// older than maxAge and returns how many were removed. Best-effort
// housekeeping: every failure is logged and swallowed so pruning can
// never block or fail the comparison workflow. Not invoked by
// CompareAll.
func (c *Comparator) PruneDiffArtifacts(maxAge time.Duration) int {
	cutoff := c.now().Add(-maxAge)

	entries, err := os.ReadDir(c.store.DiffDir())
	if err != nil {
		slog.Warn("diff artifact scan failed", "dir", c.store.DiffDir(), "error", err)
		return 0
	}

	deleted := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			slog.Warn("diff artifact stat failed", "name", e.Name(), "error", err)
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(c.store.DiffDir(), e.Name())
		if err := os.Remove(path); err != nil {
			slog.Warn("diff artifact delete failed", "path", path, "error", err)
			continue
		}
		slog.Info("pruned diff artifact", "path", path, "age", c.now().Sub(info.ModTime()))
		deleted++
	}
	return deleted
}
