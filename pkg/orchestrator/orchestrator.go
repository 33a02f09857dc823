// Package orchestrator implements the Pipeline Orchestrator (spec §4.1):
// the Submit/Clarify/Reclassify state machine, confidence-based routing,
// loop detection, and the session-timeout sweep. Each public operation is
// a single request-scoped state transition on the session, not a
// long-running coroutine (spec §9). Session writes go through
// SessionStore.Update, which holds the session's mutex for each
// read-modify-write; an operation as a whole does not hold it, so two calls
// against the same session are not serialized end to end.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/codeready-toolchain/transclassify/pkg/classification"
	"github.com/codeready-toolchain/transclassify/pkg/clarification"
	"github.com/codeready-toolchain/transclassify/pkg/config"
	"github.com/codeready-toolchain/transclassify/pkg/pipelineerr"
	"github.com/codeready-toolchain/transclassify/pkg/types"
)

// SessionStore is the minimal surface orchestrator needs from
// pkg/sessionstore.
type SessionStore interface {
	Create(userID, subject, description string) (*types.Session, error)
	Get(sessionID string) (*types.Session, error)
	Update(sessionID string, fn func(*types.Session) error) (*types.Session, error)
}

// ClarificationService is the minimal surface orchestrator needs from
// pkg/clarification.
type ClarificationService interface {
	GenerateQuestions(ctx context.Context, providerName, description, conversationContext string, finalRound bool) (clarification.Round, error)
}

// ClassificationService is the minimal surface orchestrator needs from
// pkg/classification.
type ClassificationService interface {
	Classify(ctx context.Context, providerName, description, conversationContext string) (classification.Proposal, error)
	ExtractAttributes(ctx context.Context, providerName, description, conversationContext string, attrs []types.Attribute) (types.Attributes, error)
}

// MatrixService is the minimal surface orchestrator needs from pkg/matrix.
type MatrixService interface {
	Load(version string) (types.DecisionMatrix, []string, error)
	Evaluate(m types.DecisionMatrix, attrs types.Attributes, proposedCategory types.Category, proposedConfidence float64) (types.Category, float64, types.MatrixEvaluation, error)
}

// AuditLog is the minimal surface orchestrator needs from pkg/audit.
type AuditLog interface {
	Write(ctx context.Context, entry types.AuditEntry) error
	QueryBySession(sessionID string) ([]types.AuditEntry, error)
}

// Notifier is the minimal surface orchestrator needs from pkg/notify. A
// nil Notifier is valid: every call site treats it as a no-op, matching
// the teacher's "nil-safe fail-open" Slack service idiom.
type Notifier interface {
	NotifyTerminal(ctx context.Context, sess *types.Session)
}

// Orchestrator ties together the session store, the clarification and
// classification services, the decision matrix, and the audit log into
// the Submit/Clarify/Reclassify operations.
type Orchestrator struct {
	sessions   SessionStore
	clarifier  ClarificationService
	classifier ClassificationService
	matrix     MatrixService
	audit      AuditLog
	notify     Notifier

	pipeline *config.PipelineConfig
	defaults *config.Defaults
}

func New(
	sessions SessionStore,
	clarifier ClarificationService,
	classifier ClassificationService,
	matrix MatrixService,
	audit AuditLog,
	notify Notifier,
	pipeline *config.PipelineConfig,
	defaults *config.Defaults,
) *Orchestrator {
	return &Orchestrator{
		sessions:   sessions,
		clarifier:  clarifier,
		classifier: classifier,
		matrix:     matrix,
		audit:      audit,
		notify:     notify,
		pipeline:   pipeline,
		defaults:   defaults,
	}
}

// providerFor picks the provider name from llmConfig, falling back to the
// system default when the caller leaves it empty.
func (o *Orchestrator) providerFor(llmConfig string) string {
	if llmConfig != "" {
		return llmConfig
	}
	return o.defaults.LLMProvider
}

func (o *Orchestrator) completenessThreshold() int {
	if o.defaults.InformationCompletenessThreshold > 0 {
		return o.defaults.InformationCompletenessThreshold
	}
	return 4
}

// Submit creates a new session and runs the first evaluate pass (spec
// §4.1, §6).
func (o *Orchestrator) Submit(ctx context.Context, userID, subject, description, providerName string) (Result, error) {
	if strings.TrimSpace(description) == "" {
		return Result{}, pipelineerr.New(pipelineerr.KindInvalidInput, pipelineerr.ErrNoDescription)
	}

	sess, err := o.sessions.Create(userID, subject, description)
	if err != nil {
		return Result{}, pipelineerr.Wrap(pipelineerr.KindStorageFailure, err, "orchestrator: submit")
	}

	return o.evaluate(ctx, sess.SessionID, o.providerFor(providerName), false)
}

// Clarify records the caller's answers against the session's still-unanswered
// questions and runs another evaluate pass (spec §4.1, §6).
func (o *Orchestrator) Clarify(ctx context.Context, sessionID string, answers []string, forceClassify bool, providerName string) (Result, error) {
	sess, err := o.sessions.Get(sessionID)
	if err != nil {
		return Result{}, err
	}
	if sess.Status != types.StatusClarifying && sess.Status != types.StatusPending {
		return Result{}, pipelineerr.New(pipelineerr.KindInvalidInput, pipelineerr.ErrInvalidState)
	}

	if _, err := o.sessions.Update(sessionID, func(s *types.Session) error {
		recordAnswers(s, answers)
		s.LastActivityAt = time.Now()
		return nil
	}); err != nil {
		return Result{}, pipelineerr.Wrap(pipelineerr.KindStorageFailure, err, "orchestrator: clarify")
	}

	return o.evaluate(ctx, sessionID, o.providerFor(providerName), forceClassify)
}

// recordAnswers fills the answer half of the still-unanswered questions
// across the session's conversation turns, oldest first, in order.
func recordAnswers(s *types.Session, answers []string) {
	idx := 0
	for t := range s.Conversations {
		qas := s.Conversations[t].ClarificationQA
		for i := range qas {
			if idx >= len(answers) {
				return
			}
			if qas[i].Question != "" && qas[i].AnsweredAt == nil {
				now := time.Now()
				qas[i].Answer = answers[idx]
				qas[i].AnsweredAt = &now
				idx++
			}
		}
	}
}

// evaluate runs one pass of the [evaluate] state in the spec §4.1 state
// machine: loop detection, then either a clarification round or a
// classify+extract+matrix+persist pass.
func (o *Orchestrator) evaluate(ctx context.Context, sessionID, providerName string, forceClassify bool) (Result, error) {
	sess, err := o.sessions.Get(sessionID)
	if err != nil {
		return Result{}, err
	}

	loopReason, looped := o.detectLoop(sessionID)
	if looped {
		return o.finalize(ctx, sess, providerName, finalizeOptions{
			skipRouting:  true,
			loopDetected: true,
			reason:       loopReason,
		})
	}
	if forceClassify {
		return o.finalize(ctx, sess, providerName, finalizeOptions{
			skipRouting:   true,
			forceClassify: true,
			reason:        "force_classify",
		})
	}

	answers := collectAnswers(sess)
	proposal, err := o.classifier.Classify(ctx, providerName, sess.Description, conversationText(sess))
	if err != nil {
		if pipelineerr.KindOf(err) == pipelineerr.KindLLMMalformed {
			slog.Warn("orchestrator: malformed classification, routing to manual review", "session_id", sess.SessionID, "error", err)
			return o.toManualReview(ctx, sess, proposal)
		}
		return Result{}, o.handleLLMFailure(ctx, sess, err)
	}
	o.auditClassificationProbe(ctx, sess, proposal)

	descriptionWords := countWords(sess.Description)
	completeness := estimateCompleteness(sess.Description, answers)
	route := o.route(proposal.Confidence, descriptionWords, completeness)

	switch route {
	case routeAutoClassify:
		return o.finalize(ctx, sess, providerName, finalizeOptions{proposal: &proposal})
	case routeManualReview:
		return o.toManualReview(ctx, sess, proposal)
	default: // routeClarify
		return o.askNextRound(ctx, sess, providerName)
	}
}

type route string

const (
	routeAutoClassify route = "auto_classify"
	routeManualReview route = "manual_review"
	routeClarify      route = "clarify"
)

// route implements the ordered routing decision from spec §4.1.
func (o *Orchestrator) route(confidence float64, descriptionWords, completeness int) route {
	if confidence >= o.pipeline.AutoClassifyConfidence &&
		descriptionWords >= o.pipeline.MinDescriptionWords &&
		completeness >= o.completenessThreshold() {
		return routeAutoClassify
	}
	if confidence < o.pipeline.ManualReviewConfidence {
		return routeManualReview
	}
	return routeClarify
}

// askNextRound generates the next clarification question batch, handling
// the hard limit and the LLM's own stop signals (spec §4.2).
func (o *Orchestrator) askNextRound(ctx context.Context, sess *types.Session, providerName string) (Result, error) {
	qaCount := sess.TotalQAPairs()
	if qaCount >= types.HardLimitQuestions {
		return o.finalize(ctx, sess, providerName, finalizeOptions{skipRouting: true, reason: "hard_limit"})
	}
	if qaCount >= o.pipeline.SoftLimitQuestions {
		slog.Warn("orchestrator: clarification past soft question limit", "session_id", sess.SessionID, "qa_count", qaCount, "soft_limit", o.pipeline.SoftLimitQuestions)
	}

	convContext := clarification.BuildContext(sess.Conversations, o.pipeline.SummarizationThreshold)
	finalRound := qaCount == types.HardLimitQuestions-1
	round, err := o.clarifier.GenerateQuestions(ctx, providerName, sess.Description, convContext, finalRound)
	if err != nil {
		return Result{}, o.handleLLMFailure(ctx, sess, err)
	}

	o.auditClarificationRound(ctx, sess, round)

	emptyStreak := 0
	if len(round.Questions) == 0 {
		emptyStreak = o.trailingEmptyClarificationRounds(sess.SessionID)
	}
	stop := clarification.CheckStop(qaCount, round, emptyStreak, o.pipeline.EmptyRoundThreshold)
	if stop != clarification.StopNone {
		return o.finalize(ctx, sess, providerName, finalizeOptions{skipRouting: true, reason: string(stop)})
	}

	questions := round.Questions
	if remaining := types.HardLimitQuestions - qaCount; len(questions) > remaining {
		questions = questions[:remaining]
	}

	updated, err := o.sessions.Update(sess.SessionID, func(s *types.Session) error {
		s.Status = types.StatusClarifying
		now := time.Now()
		qas := make([]types.ClarificationQA, 0, len(questions))
		for _, q := range questions {
			qas = append(qas, types.ClarificationQA{Question: q, AskedAt: now})
		}
		s.Conversations = append(s.Conversations, types.ConversationTurn{
			TurnIndex:       len(s.Conversations),
			ClarificationQA: qas,
		})
		s.LastActivityAt = now
		return nil
	})
	if err != nil {
		return Result{}, pipelineerr.Wrap(pipelineerr.KindStorageFailure, err, "orchestrator: persist clarification round")
	}

	return Result{SessionID: sess.SessionID, Phase: PhaseClarifying, Session: updated, Questions: questions}, nil
}

func (o *Orchestrator) toManualReview(ctx context.Context, sess *types.Session, proposal classification.Proposal) (Result, error) {
	updated, err := o.sessions.Update(sess.SessionID, func(s *types.Session) error {
		s.Status = types.StatusManualReview
		s.LastActivityAt = time.Now()
		return nil
	})
	if err != nil {
		return Result{}, pipelineerr.Wrap(pipelineerr.KindStorageFailure, err, "orchestrator: manual review")
	}
	o.notifyTerminal(ctx, updated)
	return Result{SessionID: sess.SessionID, Phase: PhaseManualReview, Session: updated}, nil
}

type finalizeOptions struct {
	proposal      *classification.Proposal
	skipRouting   bool
	forceClassify bool
	loopDetected  bool
	reason        string
}

// finalize runs (or reuses) a classification proposal, always extracts
// attributes, evaluates the decision matrix, and persists the resulting
// Classification (spec §4.1: "the orchestrator always asks the
// classification service for attribute extraction before committing").
func (o *Orchestrator) finalize(ctx context.Context, sess *types.Session, providerName string, opts finalizeOptions) (Result, error) {
	proposal := opts.proposal
	if proposal == nil {
		p, err := o.classifier.Classify(ctx, providerName, sess.Description, conversationText(sess))
		if err != nil {
			return Result{}, o.handleLLMFailure(ctx, sess, err)
		}
		proposal = &p
	}

	m, _, err := o.matrix.Load("")
	if err != nil {
		return Result{}, pipelineerr.Wrap(pipelineerr.KindStorageFailure, err, "orchestrator: load matrix")
	}

	attrs, err := o.classifier.ExtractAttributes(ctx, providerName, sess.Description, conversationText(sess), m.Attributes)
	if err != nil {
		return Result{}, o.handleLLMFailure(ctx, sess, err)
	}

	category, confidence, matrixEval, err := o.matrix.Evaluate(m, attrs, proposal.Category, proposal.Confidence)
	if err != nil {
		return Result{}, pipelineerr.Wrap(pipelineerr.KindStorageFailure, err, "orchestrator: evaluate matrix")
	}

	classificationResult := types.Classification{
		Category:                 category,
		Confidence:               confidence,
		Rationale:                proposal.Rationale,
		CategoryProgression:      proposal.CategoryProgression,
		FutureOpportunities:      proposal.FutureOpportunities,
		Timestamp:                time.Now(),
		ModelUsed:                proposal.ModelUsed,
		LLMProvider:              proposal.LLMProvider,
		DecisionMatrixEvaluation: &matrixEval,
	}

	status := types.StatusCompleted
	if matrixEval.RequiresReview {
		status = types.StatusPendingAdminReview
	}

	// The audit entry is written before the session is persisted (spec
	// §4.6 crash safety): if the process dies between the two, the audit
	// log already has the classification and the orchestrator can replay.
	o.auditFinalClassification(ctx, sess, classificationResult, matrixEval, *proposal, opts)

	updated, err := o.sessions.Update(sess.SessionID, func(s *types.Session) error {
		s.Status = status
		s.Classification = &classificationResult
		s.LastActivityAt = time.Now()
		return nil
	})
	if err != nil {
		return Result{}, pipelineerr.Wrap(pipelineerr.KindStorageFailure, err, "orchestrator: persist classification")
	}

	o.notifyTerminal(ctx, updated)

	phase := PhaseClassified
	if status == types.StatusPendingAdminReview {
		phase = PhasePendingAdminReview
	}
	return Result{SessionID: sess.SessionID, Phase: phase, Session: updated}, nil
}

// Reclassify re-runs classification and matrix evaluation against the
// session's frozen description/conversations, using the current prompts
// and matrix, and overwrites Session.Classification only after a
// successful evaluation (spec §4.1).
func (o *Orchestrator) Reclassify(ctx context.Context, sessionID, providerName, reason string) (ReclassifyResult, error) {
	sess, err := o.sessions.Get(sessionID)
	if err != nil {
		return ReclassifyResult{}, err
	}
	if strings.TrimSpace(sess.Description) == "" {
		return ReclassifyResult{}, pipelineerr.New(pipelineerr.KindInvalidInput, pipelineerr.ErrNoDescription)
	}
	if sess.Classification == nil {
		return ReclassifyResult{}, pipelineerr.New(pipelineerr.KindInvalidInput, pipelineerr.ErrInvalidState)
	}
	original := *sess.Classification

	proposal, err := o.classifier.Classify(ctx, o.providerFor(providerName), sess.Description, conversationText(sess))
	if err != nil {
		return ReclassifyResult{}, o.handleLLMFailure(ctx, sess, err)
	}

	m, _, err := o.matrix.Load("")
	if err != nil {
		return ReclassifyResult{}, pipelineerr.Wrap(pipelineerr.KindStorageFailure, err, "orchestrator: reclassify load matrix")
	}
	attrs, err := o.classifier.ExtractAttributes(ctx, o.providerFor(providerName), sess.Description, conversationText(sess), m.Attributes)
	if err != nil {
		return ReclassifyResult{}, o.handleLLMFailure(ctx, sess, err)
	}
	category, confidence, matrixEval, err := o.matrix.Evaluate(m, attrs, proposal.Category, proposal.Confidence)
	if err != nil {
		return ReclassifyResult{}, pipelineerr.Wrap(pipelineerr.KindStorageFailure, err, "orchestrator: reclassify evaluate matrix")
	}

	newClassification := types.Classification{
		Category:                 category,
		Confidence:               confidence,
		Rationale:                proposal.Rationale,
		CategoryProgression:      proposal.CategoryProgression,
		FutureOpportunities:      proposal.FutureOpportunities,
		Timestamp:                time.Now(),
		ModelUsed:                proposal.ModelUsed,
		LLMProvider:              proposal.LLMProvider,
		DecisionMatrixEvaluation: &matrixEval,
	}

	o.writeAudit(ctx, types.AuditEntry{
		SessionID: sessionID,
		EventType: types.EventReclassification,
		Data: types.ReclassificationAuditData{
			OriginalClassification: original,
			NewClassification:      newClassification,
			Reason:                 reason,
		},
		ModelPrompt:   proposal.ModelPrompt,
		ModelResponse: proposal.ModelResponse,
		Metadata:      types.AuditMetadata{ModelVersion: proposal.ModelUsed, LLMProvider: proposal.LLMProvider, LatencyMs: proposal.LatencyMs, Reason: reason},
	})

	if _, err := o.sessions.Update(sessionID, func(s *types.Session) error {
		s.Classification = &newClassification
		s.LastActivityAt = time.Now()
		return nil
	}); err != nil {
		return ReclassifyResult{}, pipelineerr.Wrap(pipelineerr.KindStorageFailure, err, "orchestrator: persist reclassification")
	}

	return ReclassifyResult{
		Original:         original,
		New:              newClassification,
		Changed:          original.Category != newClassification.Category,
		ConfidenceDelta:  newClassification.Confidence - original.Confidence,
		MatrixEvaluation: &matrixEval,
	}, nil
}

func (o *Orchestrator) handleLLMFailure(ctx context.Context, sess *types.Session, err error) error {
	o.writeAudit(ctx, types.AuditEntry{
		SessionID: sess.SessionID,
		EventType: types.EventClassification,
		Metadata:  types.AuditMetadata{Reason: err.Error()},
	})
	updated, updateErr := o.sessions.Update(sess.SessionID, func(s *types.Session) error {
		s.Status = types.StatusFailed
		s.LastActivityAt = time.Now()
		return nil
	})
	if updateErr != nil {
		slog.Error("orchestrator: failed to persist failed status", "session_id", sess.SessionID, "error", updateErr)
	} else {
		o.notifyTerminal(ctx, updated)
	}
	return pipelineerr.Wrap(pipelineerr.KindLLMFailure, err, "orchestrator: llm call failed")
}

func (o *Orchestrator) notifyTerminal(ctx context.Context, sess *types.Session) {
	if o.notify == nil {
		return
	}
	o.notify.NotifyTerminal(ctx, sess)
}

func (o *Orchestrator) writeAudit(ctx context.Context, entry types.AuditEntry) {
	if o.audit == nil {
		return
	}
	if err := o.audit.Write(ctx, entry); err != nil {
		slog.Error("orchestrator: audit write failed", "event_type", entry.EventType, "error", err)
	}
}

func (o *Orchestrator) auditClassificationProbe(ctx context.Context, sess *types.Session, proposal classification.Proposal) {
	o.writeAudit(ctx, types.AuditEntry{
		SessionID: sess.SessionID,
		EventType: types.EventClassification,
		Data: types.ClassificationAuditData{
			Classification: types.Classification{
				Category:            proposal.Category,
				Confidence:          proposal.Confidence,
				Rationale:           proposal.Rationale,
				CategoryProgression: proposal.CategoryProgression,
				FutureOpportunities: proposal.FutureOpportunities,
				Timestamp:           time.Now(),
				ModelUsed:           proposal.ModelUsed,
				LLMProvider:         proposal.LLMProvider,
			},
		},
		ModelPrompt:   proposal.ModelPrompt,
		ModelResponse: proposal.ModelResponse,
		Metadata: types.AuditMetadata{
			ModelVersion: proposal.ModelUsed,
			LLMProvider:  proposal.LLMProvider,
			LatencyMs:    proposal.LatencyMs,
			Action:       "clarify_probe",
		},
	})
}

func (o *Orchestrator) auditFinalClassification(ctx context.Context, sess *types.Session, c types.Classification, eval types.MatrixEvaluation, proposal classification.Proposal, opts finalizeOptions) {
	o.writeAudit(ctx, types.AuditEntry{
		SessionID: sess.SessionID,
		EventType: types.EventClassification,
		Data: types.ClassificationAuditData{
			Classification:   c,
			MatrixEvaluation: &eval,
		},
		ModelPrompt:   proposal.ModelPrompt,
		ModelResponse: proposal.ModelResponse,
		Metadata: types.AuditMetadata{
			ModelVersion: c.ModelUsed,
			LLMProvider:  c.LLMProvider,
			LatencyMs:    proposal.LatencyMs,
			Action:       "finalize",
			LoopDetected: opts.loopDetected,
			Reason:       opts.reason,
		},
	})
}

func (o *Orchestrator) auditClarificationRound(ctx context.Context, sess *types.Session, round clarification.Round) {
	o.writeAudit(ctx, types.AuditEntry{
		SessionID: sess.SessionID,
		EventType: types.EventClarification,
		Data: types.ClarificationAuditData{
			Questions: round.Questions,
		},
		ModelPrompt:   round.ModelPrompt,
		ModelResponse: round.ModelResponse,
		Metadata: types.AuditMetadata{
			ModelVersion: round.ModelUsed,
			LLMProvider:  round.LLMProvider,
			LatencyMs:    round.LatencyMs,
			Reason:       round.MalformedKind,
		},
	})
}

// trailingEmptyClarificationRounds counts how many of the session's most
// recent clarification audit entries, scanning back from the latest, asked
// zero questions in a row. Used by CheckStop (spec §4.2 stop-condition 2:
// "the last EMPTY_ROUND_THRESHOLD rounds all asked no questions").
func (o *Orchestrator) trailingEmptyClarificationRounds(sessionID string) int {
	if o.audit == nil {
		return 0
	}
	entries, err := o.audit.QueryBySession(sessionID)
	if err != nil {
		return 0
	}

	streak := 0
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		if e.EventType != types.EventClarification {
			continue
		}
		if clarificationQuestionCount(e.Data) != 0 {
			break
		}
		streak++
	}
	return streak
}

// detectLoop queries the audit log for the session's last
// SILENT_DETECTION_WINDOW clarification entries; if EMPTY_ROUND_THRESHOLD
// of them had empty questions[], the caller should skip question
// generation entirely and force classification (spec §4.2).
func (o *Orchestrator) detectLoop(sessionID string) (reason string, looped bool) {
	if o.audit == nil {
		return "", false
	}
	entries, err := o.audit.QueryBySession(sessionID)
	if err != nil {
		return "", false
	}

	var clarifications []types.AuditEntry
	for _, e := range entries {
		if e.EventType == types.EventClarification {
			clarifications = append(clarifications, e)
		}
	}

	window := o.pipeline.SilentDetectionWindow
	if len(clarifications) > window {
		clarifications = clarifications[len(clarifications)-window:]
	}

	empty := 0
	for _, e := range clarifications {
		if clarificationQuestionCount(e.Data) == 0 {
			empty++
		}
	}
	if empty >= o.pipeline.EmptyRoundThreshold {
		return fmt.Sprintf("last %d of %d clarification rounds asked no questions", empty, len(clarifications)), true
	}
	return "", false
}

// clarificationQuestionCount extracts the question count from an
// EventClarification audit entry's Data payload. Data read back from the
// JSONL audit log has been round-tripped through encoding/json and is a
// map[string]interface{}, not the original types.ClarificationAuditData —
// both shapes are handled here.
func clarificationQuestionCount(data any) int {
	switch v := data.(type) {
	case types.ClarificationAuditData:
		return len(v.Questions)
	case map[string]any:
		questions, ok := v["questions"]
		if !ok {
			return 0
		}
		if list, ok := questions.([]any); ok {
			return len(list)
		}
		return 0
	default:
		return 0
	}
}

func collectAnswers(sess *types.Session) []string {
	var answers []string
	for _, turn := range sess.Conversations {
		for _, qa := range turn.ClarificationQA {
			if qa.Answer != "" {
				answers = append(answers, qa.Answer)
			}
		}
	}
	return answers
}

func conversationText(sess *types.Session) string {
	return clarification.BuildContext(sess.Conversations, 1<<30)
}

func countWords(s string) int {
	return len(strings.Fields(s))
}
