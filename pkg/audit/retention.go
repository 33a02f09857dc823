package audit

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Prune deletes rotated log files older than retentionDays, measured
// against the UTC date encoded in the filename. Called by pkg/cleanup's
// retention loop (spec §3 retention).
func (l *Log) Prune(retentionDays int, now time.Time) (deleted []string, err error) {
	cutoff := now.UTC().AddDate(0, 0, -retentionDays)

	files, err := l.sortedLogFiles()
	if err != nil {
		return nil, err
	}

	for _, path := range files {
		name := strings.TrimSuffix(filepath.Base(path), ".jsonl")
		day, parseErr := time.Parse("2006-01-02", name)
		if parseErr != nil {
			continue
		}
		if day.Before(cutoff) {
			if rmErr := os.Remove(path); rmErr != nil {
				return deleted, fmt.Errorf("audit: prune %s: %w", path, rmErr)
			}
			deleted = append(deleted, path)
		}
	}
	return deleted, nil
}
