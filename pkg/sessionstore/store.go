// Package sessionstore implements the file-backed Session Store (spec §3,
// §4.6): one JSON file per session, atomic writes, and per-session locking
// so concurrent reads and read-modify-write updates of the same session
// serialize instead of racing.
package sessionstore

import (
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

// Store is the file-backed session store. Safe for concurrent use.
type Store struct {
	dir string

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// New creates a Store rooted at dataDir/sessions, creating the directory
// if needed.
func New(dataDir string) (*Store, error) {
	dir := filepath.Join(dataDir, "sessions")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("sessionstore: create %s: %w", dir, err)
	}
	return &Store{dir: dir, locks: make(map[string]*sync.Mutex)}, nil
}

func (s *Store) lockFor(sessionID string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	l, ok := s.locks[sessionID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[sessionID] = l
	}
	return l
}

func (s *Store) path(sessionID string) string {
	return filepath.Join(s.dir, sessionID+".json")
}

// Create persists a new pending session for userID with the given
// description and returns it. subject is persisted but is never read by
// the classification or matrix services (SPEC_FULL Open Question decision
// 3 — it exists purely for the caller's own bookkeeping/display).
func (s *Store) Create(userID, subject, description string) (*types.Session, error) {
	now := time.Now()
	sess := &types.Session{
		SessionID:      uuid.New().String(),
		UserID:         userID,
		Status:         types.StatusPending,
		Subject:        subject,
		Description:    description,
		Conversations:  []types.ConversationTurn{},
		CreatedAt:      now,
		UpdatedAt:      now,
		LastActivityAt: now,
	}
	if err := sess.Validate(); err != nil {
		return nil, fmt.Errorf("sessionstore: create: %w", err)
	}

	lock := s.lockFor(sess.SessionID)
	lock.Lock()
	defer lock.Unlock()

	if err := s.write(sess); err != nil {
		return nil, err
	}
	return sess.Clone(), nil
}

// Get loads a session by id.
func (s *Store) Get(sessionID string) (*types.Session, error) {
	lock := s.lockFor(sessionID)
	lock.Lock()
	defer lock.Unlock()

	return s.read(sessionID)
}

func (s *Store) read(sessionID string) (*types.Session, error) {
	data, err := os.ReadFile(s.path(sessionID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("sessionstore: %w: %s", pipelineerr.ErrSessionNotFound, sessionID)
		}
		return nil, fmt.Errorf("sessionstore: read %s: %w", sessionID, err)
	}
	var sess types.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("sessionstore: unmarshal %s: %w", sessionID, err)
	}
	return &sess, nil
}

func (s *Store) write(sess *types.Session) error {
	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return fmt.Errorf("sessionstore: marshal %s: %w", sess.SessionID, err)
	}
	if err := atomicWriteFile(s.path(sess.SessionID), data, 0o644); err != nil {
		return fmt.Errorf("sessionstore: write %s: %w", sess.SessionID, err)
	}
	return nil
}

// Update performs a locked read-modify-write against sessionID: fn
// mutates the in-memory session, UpdatedAt is stamped, the invariants from
// Session.Validate are checked, and the result is persisted atomically.
// The whole operation holds this session's lock, so a concurrent call
// against the same session blocks rather than racing (spec §4.6: "the
// session store never loses a concurrent Clarify and sweep-triggered
// Reclassify against the same session").
func (s *Store) Update(sessionID string, fn func(*types.Session) error) (*types.Session, error) {
	lock := s.lockFor(sessionID)
	lock.Lock()
	defer lock.Unlock()

	sess, err := s.read(sessionID)
	if err != nil {
		return nil, err
	}

	if err := fn(sess); err != nil {
		return nil, err
	}

	sess.UpdatedAt = time.Now()
	if err := sess.Validate(); err != nil {
		return nil, fmt.Errorf("sessionstore: update %s: %w", sessionID, err)
	}
	if err := s.write(sess); err != nil {
		return nil, err
	}
	return sess.Clone(), nil
}

// ListIdleSince returns every session whose LastActivityAt is at or before
// cutoff and whose status is not already terminal, for the hygiene sweep
// to act on (spec §3).
func (s *Store) ListIdleSince(cutoff time.Time) ([]*types.Session, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("sessionstore: list: %w", err)
	}

	var idle []*types.Session
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		sessionID := trimJSONExt(e.Name())
		sess, err := s.Get(sessionID)
		if err != nil {
			continue
		}
		if isTerminal(sess.Status) {
			continue
		}
		if !sess.LastActivityAt.After(cutoff) {
			idle = append(idle, sess)
		}
	}
	return idle, nil
}

// DeleteCompletedOlderThan removes terminal-state session files whose
// UpdatedAt is at or before cutoff, returning the count removed.
func (s *Store) DeleteCompletedOlderThan(cutoff time.Time) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("sessionstore: list: %w", err)
	}

	removed := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		sessionID := trimJSONExt(e.Name())
		lock := s.lockFor(sessionID)
		lock.Lock()
		sess, err := s.read(sessionID)
		if err != nil {
			lock.Unlock()
			continue
		}
		if isTerminal(sess.Status) && !sess.UpdatedAt.After(cutoff) {
			if err := os.Remove(s.path(sessionID)); err != nil && !os.IsNotExist(err) {
				lock.Unlock()
				return removed, fmt.Errorf("sessionstore: delete %s: %w", sessionID, err)
			}
			removed++
		}
		lock.Unlock()
	}
	return removed, nil
}

func isTerminal(status types.SessionStatus) bool {
	switch status {
	case types.StatusCompleted, types.StatusFailed, types.StatusManualReview, types.StatusPendingAdminReview:
		return true
	default:
		return false
	}
}

func trimJSONExt(name string) string {
	const ext = ".json"
	if len(name) > len(ext) && name[len(name)-len(ext):] == ext {
		return name[:len(name)-len(ext)]
	}
	return name
}
