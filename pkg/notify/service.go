// Package notify pages a human when a session lands in a state that needs
// attention — manual_review, pending_admin_review, or failed — adapted from
// the teacher's pkg/slack. Sessions that complete cleanly are passed in too
// but never page.
package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/codeready-toolchain/transclassify/pkg/config"
	"github.com/codeready-toolchain/transclassify/pkg/types"
)

// Service pages Slack for terminal sessions that need human attention.
// Nil-safe: every method is a no-op on a nil *Service, so callers can wire
// it unconditionally and let NewService decide whether paging is active.
type Service struct {
	client       *client
	dashboardURL string
	logger       *slog.Logger
}

// NewService builds a Service from NotifyConfig and the resolved token. It
// returns nil — not an error — when paging is disabled or unconfigured, so
// the orchestrator can hold a nil-safe Notifier unconditionally.
func NewService(cfg config.NotifyConfig, token string) *Service {
	if !cfg.Enabled || token == "" || cfg.Channel == "" {
		return nil
	}
	return &Service{
		client:       newClient(token, cfg.Channel),
		dashboardURL: cfg.DashboardURL,
		logger:       slog.Default().With("component", "notify-service"),
	}
}

// NotifyTerminal pages for sessions that landed in manual_review,
// pending_admin_review, or failed. completed sessions are the happy path
// and never page. Fail-open: delivery errors are logged, never returned —
// a Slack outage must never fail the classification pipeline.
func (s *Service) NotifyTerminal(ctx context.Context, sess *types.Session) {
	if s == nil {
		return
	}
	switch sess.Status {
	case types.StatusManualReview, types.StatusPendingAdminReview, types.StatusFailed:
	default:
		return
	}

	blocks := buildTerminalMessage(sess, s.dashboardURL)
	if err := s.client.postMessage(ctx, blocks, 10*time.Second); err != nil {
		s.logger.Error("notify: failed to page", "session_id", sess.SessionID, "status", sess.Status, "error", err)
	}
}
