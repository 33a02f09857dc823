// Package audit implements the append-only JSONL audit log (spec §3, §4.6).
// Every event is written before the corresponding session state is
// persisted, so a crash between the two never produces a session whose
// status implies an event that was never recorded.
package audit

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/codeready-toolchain/transclassify/pkg/pipelineerr"
	"github.com/codeready-toolchain/transclassify/pkg/types"
)

// ID is attached to every record at write time purely so log tailers
// can deduplicate on retry; it is not part of the AuditEntry contract.
type storedEntry struct {
	ID string `json:"id"`
	types.AuditEntry
}

// Log is an append-only, daily-rotated JSONL audit log rooted at
// {dataDir}/audit-logs.
type Log struct {
	dir string
	mu  sync.Mutex
}

// New creates a Log rooted at dataDir/audit-logs, creating the directory
// if needed.
func New(dataDir string) (*Log, error) {
	dir := filepath.Join(dataDir, "audit-logs")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("audit: create %s: %w", dir, err)
	}
	return &Log{dir: dir}, nil
}

func (l *Log) pathForDate(t time.Time) string {
	return filepath.Join(l.dir, t.UTC().Format("2006-01-02")+".jsonl")
}

// Write appends entry to the current UTC day's log file. The timestamp is
// stamped here if the caller left it zero.
func (l *Log) Write(ctx context.Context, entry types.AuditEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	if entry.SessionID == "" {
		entry.SessionID = types.PublicSessionID
	}

	rec := storedEntry{ID: uuid.NewString(), AuditEntry: entry}
	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("audit: marshal entry: %w", err)
	}
	line = append(line, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()

	path := l.pathForDate(entry.Timestamp)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return pipelineerr.Wrap(pipelineerr.KindStorageFailure, err, "audit: open %s", path)
	}
	defer f.Close()

	if _, err := f.Write(line); err != nil {
		return pipelineerr.Wrap(pipelineerr.KindStorageFailure, err, "audit: append to %s", path)
	}
	return f.Sync()
}

// QueryByDate returns every entry recorded on the given UTC date.
func (l *Log) QueryByDate(date time.Time) ([]types.AuditEntry, error) {
	path := l.pathForDate(date)
	return l.readFile(path)
}

// QueryBySession returns every entry for sessionID across all rotated log
// files, scanning oldest to newest.
func (l *Log) QueryBySession(sessionID string) ([]types.AuditEntry, error) {
	files, err := l.sortedLogFiles()
	if err != nil {
		return nil, err
	}

	var out []types.AuditEntry
	for _, f := range files {
		entries, err := l.readFile(f)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if e.SessionID == sessionID {
				out = append(out, e)
			}
		}
	}
	return out, nil
}

func (l *Log) sortedLogFiles() ([]string, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, fmt.Errorf("audit: list log files: %w", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, filepath.Join(l.dir, e.Name()))
		}
	}
	return names, nil
}

func (l *Log) readFile(path string) ([]types.AuditEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("audit: open %s: %w", path, err)
	}
	defer f.Close()

	var out []types.AuditEntry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	for scanner.Scan() {
		var rec storedEntry
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			return nil, fmt.Errorf("audit: parse %s: %w", path, err)
		}
		out = append(out, rec.AuditEntry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("audit: scan %s: %w", path, err)
	}
	return out, nil
}
