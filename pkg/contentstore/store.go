// Package contentstore implements the versioned, file-backed store for
// prompt templates and decision matrices (spec §4.5). Every write is an
// immutable new version; nothing is ever edited in place.
package contentstore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/codeready-toolchain/transclassify/pkg/pipelineerr"
	"github.com/codeready-toolchain/transclassify/pkg/types"
)

const matrixContentID = "decision-matrix"

// AuditWriter is the minimal surface contentstore needs from pkg/audit.
// Defined here (not imported from pkg/audit) so contentstore never depends
// on the audit package's storage format, mirroring the teacher's habit of
// depending on narrow local interfaces instead of concrete collaborators.
type AuditWriter interface {
	Write(ctx context.Context, entry types.AuditEntry) error
}

// Store is the versioned content store for prompts and the decision
// matrix. Safe for concurrent use.
type Store struct {
	promptsDir string
	matrixDir  string

	mu    sync.Mutex // serializes version allocation across all content ids
	audit AuditWriter

	cacheMu sync.RWMutex
	latest  map[string]Version // contentID -> cached latest version

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// New creates a Store rooted at dataDir, creating the prompts/ and
// decision-matrix/ subdirectories if needed, and starts an fsnotify watch
// so that a save performed by another process invalidates this process's
// in-memory "latest" cache (spec §5: process-wide caches are explicitly
// in-process, invalidated on save).
func New(dataDir string, audit AuditWriter) (*Store, error) {
	s := &Store{
		promptsDir: filepath.Join(dataDir, "prompts"),
		matrixDir:  filepath.Join(dataDir, "decision-matrix"),
		audit:      audit,
		latest:     make(map[string]Version),
		done:       make(chan struct{}),
	}

	for _, dir := range []string{s.promptsDir, s.matrixDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("contentstore: create %s: %w", dir, err)
		}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		// Cache invalidation across processes is best-effort; a single
		// process still sees its own writes immediately because every save
		// updates the cache through cacheLatest. Fail open rather than refuse
		// to start.
		slog.Warn("contentstore: fsnotify unavailable, cross-process cache invalidation disabled", "error", err)
		return s, nil
	}
	if err := watcher.Add(s.promptsDir); err != nil {
		slog.Warn("contentstore: watch prompts dir failed", "error", err)
	}
	if err := watcher.Add(s.matrixDir); err != nil {
		slog.Warn("contentstore: watch matrix dir failed", "error", err)
	}
	s.watcher = watcher
	go s.watchLoop()

	return s, nil
}

// Stop releases the fsnotify watcher, if any.
func (s *Store) Stop() error {
	if s.watcher == nil {
		return nil
	}
	close(s.done)
	return s.watcher.Close()
}

func (s *Store) watchLoop() {
	for {
		select {
		case <-s.done:
			return
		case ev, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			s.invalidate(s.contentIDFromPath(ev.Name))
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("contentstore: fsnotify error", "error", err)
		}
	}
}

// contentIDFromPath maps a changed file back to the cache key it affects:
// the promptID for a file under promptsDir, or matrixContentID for
// anything under matrixDir.
func (s *Store) contentIDFromPath(path string) string {
	if filepath.Dir(path) == s.promptsDir {
		base := strings.TrimSuffix(filepath.Base(path), ".txt")
		if idx := strings.LastIndex(base, "-v"); idx >= 0 {
			return base[:idx]
		}
	}
	return matrixContentID
}

func (s *Store) invalidate(contentID string) {
	s.cacheMu.Lock()
	delete(s.latest, contentID)
	s.cacheMu.Unlock()
}

func (s *Store) cacheLatest(contentID string, v Version) {
	s.cacheMu.Lock()
	s.latest[contentID] = v
	s.cacheMu.Unlock()
}

func (s *Store) cachedLatest(contentID string) (Version, bool) {
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()
	v, ok := s.latest[contentID]
	return v, ok
}

// allocateVersion picks the version to write for contentID. If
// explicitVersion is empty, it auto-bumps the minor component of the
// current latest (or allocates 1.0 for a brand new content id). If
// explicitVersion is non-empty, it must not already exist and must sort
// after the current latest.
func (s *Store) allocateVersion(existing []Version, explicitVersion string) (Version, error) {
	var latest Version
	hasLatest := len(existing) > 0
	if hasLatest {
		latest = existing[len(existing)-1]
	}

	if explicitVersion == "" {
		if !hasLatest {
			return firstVersion, nil
		}
		return nextAutoVersion(latest), nil
	}

	v, err := ParseVersion(explicitVersion)
	if err != nil {
		return Version{}, err
	}
	for _, e := range existing {
		if e == v {
			return Version{}, fmt.Errorf("contentstore: %w: %s", pipelineerr.ErrVersionCollision, explicitVersion)
		}
	}
	if hasLatest && !latest.Less(v) {
		return Version{}, fmt.Errorf("contentstore: version %s must be greater than current latest %s", explicitVersion, latest)
	}
	return v, nil
}

func (s *Store) writeAudit(ctx context.Context, eventType types.EventType, data types.ContentUpdateAuditData) {
	if s.audit == nil {
		return
	}
	entry := types.AuditEntry{
		SessionID: types.PublicSessionID,
		EventType: eventType,
		UserID:    data.UserID,
		Data:      data,
	}
	if err := s.audit.Write(ctx, entry); err != nil {
		slog.Warn("contentstore: audit write failed", "event_type", eventType, "error", err)
	}
}

func marshalIndent(v any) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}

func sortVersions(vs []Version) {
	sort.Slice(vs, func(i, j int) bool { return vs[i].Less(vs[j]) })
}
