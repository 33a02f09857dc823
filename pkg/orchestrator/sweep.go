package orchestrator

import (
	"context"
	"log/slog"
	"time"

	"github.com/codeready-toolchain/transclassify/pkg/config"
	"github.com/codeready-toolchain/transclassify/pkg/types"
)

// IdleLister is the minimal surface the sweep needs from
// pkg/sessionstore, beyond the Orchestrator's own SessionStore interface.
type IdleLister interface {
	ListIdleSince(cutoff time.Time) ([]*types.Session, error)
}

// Sweeper periodically force-completes sessions that have sat idle past
// SESSION_TIMEOUT (spec §3, §5). Rather than fabricating a Classification
// for the idle session — which would violate Session.Validate's invariant
// that a completed session always carries one — the sweep re-runs a full
// classify+extract+matrix+finalize pass tagged with reason
// "session_timeout", the same path loop detection uses to guarantee a
// persisted Classification.
type Sweeper struct {
	orchestrator *Orchestrator
	idle         IdleLister
	pipeline     *config.PipelineConfig

	cancel context.CancelFunc
	done   chan struct{}
}

func NewSweeper(o *Orchestrator, idle IdleLister, pipeline *config.PipelineConfig) *Sweeper {
	return &Sweeper{orchestrator: o, idle: idle, pipeline: pipeline}
}

// Start launches the background sweep loop.
func (s *Sweeper) Start(ctx context.Context) {
	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go s.run(ctx)

	slog.Info("session-timeout sweep started",
		"session_timeout", s.pipeline.SessionTimeout,
		"interval", s.pipeline.SessionSweepInterval)
}

// Stop signals the sweep loop to exit and waits for it to finish.
func (s *Sweeper) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	slog.Info("session-timeout sweep stopped")
}

func (s *Sweeper) run(ctx context.Context) {
	defer close(s.done)

	s.sweepOnce(ctx)

	ticker := time.NewTicker(s.pipeline.SessionSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweepOnce(ctx)
		}
	}
}

func (s *Sweeper) sweepOnce(ctx context.Context) {
	cutoff := time.Now().Add(-s.pipeline.SessionTimeout)
	sessions, err := s.idle.ListIdleSince(cutoff)
	if err != nil {
		slog.Error("session-timeout sweep: list idle sessions failed", "error", err)
		return
	}

	for _, sess := range sessions {
		providerName := s.orchestrator.providerFor("")
		if _, err := s.orchestrator.finalize(ctx, sess, providerName, finalizeOptions{
			skipRouting: true,
			reason:      "session_timeout",
		}); err != nil {
			slog.Error("session-timeout sweep: finalize failed", "session_id", sess.SessionID, "error", err)
		}
	}
}
