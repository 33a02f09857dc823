// Package cleanup provides data retention and cleanup services.
package cleanup

import (
	"context"
	"log/slog"
	"time"

	"github.com/codeready-toolchain/transclassify/pkg/config"
)

// AuditLog is the minimal surface cleanup needs from pkg/audit.
type AuditLog interface {
	Prune(retentionDays int, now time.Time) ([]string, error)
}

// SessionStore is the minimal surface cleanup needs from pkg/sessionstore.
type SessionStore interface {
	DeleteCompletedOlderThan(cutoff time.Time) (int, error)
}

// Service periodically enforces retention policies:
//   - Deletes terminal-state session files past SessionRetentionDays
//   - Deletes rotated audit-log files past AuditLogRetentionDays
//
// All operations are idempotent and safe to run repeatedly.
type Service struct {
	config  *config.RetentionConfig
	audit   AuditLog
	session SessionStore

	cancel context.CancelFunc
	done   chan struct{}
}

// NewService creates a new cleanup service.
func NewService(cfg *config.RetentionConfig, audit AuditLog, session SessionStore) *Service {
	return &Service{config: cfg, audit: audit, session: session}
}

// Start launches the background cleanup loop.
func (s *Service) Start(ctx context.Context) {
	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go s.run(ctx)

	slog.Info("cleanup service started",
		"session_retention_days", s.config.SessionRetentionDays,
		"audit_log_retention_days", s.config.AuditLogRetentionDays,
		"interval", s.config.CleanupInterval)
}

// Stop signals the cleanup loop to exit and waits for it to finish.
func (s *Service) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	slog.Info("cleanup service stopped")
}

func (s *Service) run(ctx context.Context) {
	defer close(s.done)

	s.runAll(ctx)

	ticker := time.NewTicker(s.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runAll(ctx)
		}
	}
}

func (s *Service) runAll(_ context.Context) {
	s.deleteOldSessions()
	s.pruneAuditLogs()
}

func (s *Service) deleteOldSessions() {
	cutoff := time.Now().AddDate(0, 0, -s.config.SessionRetentionDays)
	count, err := s.session.DeleteCompletedOlderThan(cutoff)
	if err != nil {
		slog.Error("retention: session deletion failed", "error", err)
		return
	}
	if count > 0 {
		slog.Info("retention: deleted old sessions", "count", count)
	}
}

func (s *Service) pruneAuditLogs() {
	deleted, err := s.audit.Prune(s.config.AuditLogRetentionDays, time.Now())
	if err != nil {
		slog.Error("retention: audit log prune failed", "error", err)
		return
	}
	if len(deleted) > 0 {
		slog.Info("retention: pruned audit log files", "count", len(deleted))
	}
}
