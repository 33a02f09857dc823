package orchestrator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/transclassify/pkg/classification"
	"github.com/codeready-toolchain/transclassify/pkg/clarification"
	"github.com/codeready-toolchain/transclassify/pkg/config"
	"github.com/codeready-toolchain/transclassify/pkg/types"
)

// -- fakes --------------------------------------------------------------

type memSessionStore struct {
	mu       sync.Mutex
	sessions map[string]*types.Session
}

func newMemSessionStore() *memSessionStore {
	return &memSessionStore{sessions: make(map[string]*types.Session)}
}

func (m *memSessionStore) Create(userID, subject, description string) (*types.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	sess := &types.Session{
		SessionID: "sess-" + subject + description[:min(5, len(description))],
		UserID:    userID, Subject: subject, Description: description,
		Status: types.StatusPending, CreatedAt: now, UpdatedAt: now, LastActivityAt: now,
	}
	if sess.SessionID == "sess-" {
		sess.SessionID = "sess-1"
	}
	m.sessions[sess.SessionID] = sess
	return sess.Clone(), nil
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func (m *memSessionStore) Get(sessionID string) (*types.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, assertErr("session not found")
	}
	return s.Clone(), nil
}

func (m *memSessionStore) Update(sessionID string, fn func(*types.Session) error) (*types.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, assertErr("session not found")
	}
	clone := s.Clone()
	if err := fn(clone); err != nil {
		return nil, err
	}
	if err := clone.Validate(); err != nil {
		return nil, err
	}
	m.sessions[sessionID] = clone
	return clone.Clone(), nil
}

type assertErr string

func (e assertErr) Error() string { return string(e) }

type fakeClarifier struct {
	rounds []clarification.Round
	idx    int
}

func (f *fakeClarifier) GenerateQuestions(ctx context.Context, providerName, description, conversationContext string, finalRound bool) (clarification.Round, error) {
	if f.idx >= len(f.rounds) {
		return clarification.Round{}, nil
	}
	r := f.rounds[f.idx]
	f.idx++
	return r, nil
}

type fakeClassifier struct {
	proposals []classification.Proposal
	idx       int
	attrs     types.Attributes
}

func (f *fakeClassifier) Classify(ctx context.Context, providerName, description, conversationContext string) (classification.Proposal, error) {
	if f.idx >= len(f.proposals) {
		return f.proposals[len(f.proposals)-1], nil
	}
	p := f.proposals[f.idx]
	f.idx++
	return p, nil
}

func (f *fakeClassifier) ExtractAttributes(ctx context.Context, providerName, description, conversationContext string, attrs []types.Attribute) (types.Attributes, error) {
	if f.attrs != nil {
		return f.attrs, nil
	}
	out := make(types.Attributes, len(attrs))
	for _, a := range attrs {
		out[a.Name] = "unknown"
	}
	return out, nil
}

type fakeMatrix struct{}

func (fakeMatrix) Load(version string) (types.DecisionMatrix, []string, error) {
	return types.DecisionMatrix{Version: "1.0"}, nil, nil
}

func (fakeMatrix) Evaluate(m types.DecisionMatrix, attrs types.Attributes, proposedCategory types.Category, proposedConfidence float64) (types.Category, float64, types.MatrixEvaluation, error) {
	return proposedCategory, proposedConfidence, types.MatrixEvaluation{MatrixVersion: m.Version}, nil
}

type fakeAudit struct {
	mu      sync.Mutex
	entries []types.AuditEntry
}

func (f *fakeAudit) Write(ctx context.Context, entry types.AuditEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeAudit) QueryBySession(sessionID string) ([]types.AuditEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []types.AuditEntry
	for _, e := range f.entries {
		if e.SessionID == sessionID {
			out = append(out, e)
		}
	}
	return out, nil
}

func testPipelineConfig() *config.PipelineConfig {
	c := config.DefaultPipelineConfig()
	return c
}

func testDefaults() *config.Defaults {
	return &config.Defaults{LLMProvider: "openai", InformationCompletenessThreshold: 4}
}

// -- tests ----------------------------------------------------------------

func longDescription() string {
	words := make([]string, 0, 60)
	for i := 0; i < 60; i++ {
		words = append(words, "word")
	}
	s := ""
	for i, w := range words {
		if i > 0 {
			s += " "
		}
		s += w
	}
	return s + " daily volume 500 transactions currently manual crm sensitive pain bottleneck"
}

func TestSubmitAutoClassifiesOnHighConfidence(t *testing.T) {
	sessions := newMemSessionStore()
	classifier := &fakeClassifier{proposals: []classification.Proposal{
		{Category: types.CategoryRPA, Confidence: 0.97, Rationale: "high volume rule-based"},
	}}
	o := New(sessions, &fakeClarifier{}, classifier, fakeMatrix{}, &fakeAudit{}, nil, testPipelineConfig(), testDefaults())

	result, err := o.Submit(context.Background(), "user-1", "", longDescription(), "")
	require.NoError(t, err)
	assert.Equal(t, PhaseClassified, result.Phase)
	assert.Equal(t, types.StatusCompleted, result.Session.Status)
	assert.Equal(t, types.CategoryRPA, result.Session.Classification.Category)
}

func TestSubmitRoutesToManualReviewOnLowConfidence(t *testing.T) {
	sessions := newMemSessionStore()
	classifier := &fakeClassifier{proposals: []classification.Proposal{
		{Category: types.CategorySimplify, Confidence: 0.3},
	}}
	o := New(sessions, &fakeClarifier{}, classifier, fakeMatrix{}, &fakeAudit{}, nil, testPipelineConfig(), testDefaults())

	result, err := o.Submit(context.Background(), "user-1", "", "short vague description", "")
	require.NoError(t, err)
	assert.Equal(t, PhaseManualReview, result.Phase)
	assert.Equal(t, types.StatusManualReview, result.Session.Status)
}

func TestSubmitRoutesToClarifyOnMidConfidence(t *testing.T) {
	sessions := newMemSessionStore()
	classifier := &fakeClassifier{proposals: []classification.Proposal{
		{Category: types.CategorySimplify, Confidence: 0.7},
	}}
	clarifier := &fakeClarifier{rounds: []clarification.Round{
		{Questions: []string{"How often does this run?", "What systems are involved?"}, ShouldClarify: true},
	}}
	o := New(sessions, clarifier, classifier, fakeMatrix{}, &fakeAudit{}, nil, testPipelineConfig(), testDefaults())

	result, err := o.Submit(context.Background(), "user-1", "", "we process customer requests", "")
	require.NoError(t, err)
	assert.Equal(t, PhaseClarifying, result.Phase)
	assert.Len(t, result.Questions, 2)
	assert.Equal(t, types.StatusClarifying, result.Session.Status)
}

func TestClarifyForceClassifySkipsRoutingAndPersistsClassification(t *testing.T) {
	sessions := newMemSessionStore()
	classifier := &fakeClassifier{proposals: []classification.Proposal{
		{Category: types.CategorySimplify, Confidence: 0.7},
	}}
	clarifier := &fakeClarifier{rounds: []clarification.Round{
		{Questions: []string{"q1"}, ShouldClarify: true},
	}}
	o := New(sessions, clarifier, classifier, fakeMatrix{}, &fakeAudit{}, nil, testPipelineConfig(), testDefaults())

	submitResult, err := o.Submit(context.Background(), "user-1", "", "we process customer requests", "")
	require.NoError(t, err)
	require.Equal(t, PhaseClarifying, submitResult.Phase)

	result, err := o.Clarify(context.Background(), submitResult.SessionID, []string{"we don't really track that"}, true, "")
	require.NoError(t, err)
	assert.Equal(t, PhaseClassified, result.Phase)
	require.NotNil(t, result.Session.Classification)
}

func TestAskNextRoundStopsAtHardLimit(t *testing.T) {
	sessions := newMemSessionStore()
	classifier := &fakeClassifier{proposals: []classification.Proposal{
		{Category: types.CategorySimplify, Confidence: 0.7},
	}}
	o := New(sessions, &fakeClarifier{}, classifier, fakeMatrix{}, &fakeAudit{}, nil, testPipelineConfig(), testDefaults())

	sess, err := sessions.Create("user-1", "", "desc")
	require.NoError(t, err)

	qas := make([]types.ClarificationQA, 0, types.HardLimitQuestions)
	for i := 0; i < types.HardLimitQuestions; i++ {
		qas = append(qas, types.ClarificationQA{Question: "q", Answer: "a", AskedAt: time.Now()})
	}
	_, err = sessions.Update(sess.SessionID, func(s *types.Session) error {
		s.Status = types.StatusClarifying
		s.Conversations = []types.ConversationTurn{{TurnIndex: 0, ClarificationQA: qas}}
		return nil
	})
	require.NoError(t, err)

	result, err := o.askNextRound(context.Background(), sess, "openai")
	require.NoError(t, err)
	assert.Equal(t, PhaseClassified, result.Phase)
}

func TestLoopDetectionForcesAutoClassifyAndPersistsClassification(t *testing.T) {
	sessions := newMemSessionStore()
	classifier := &fakeClassifier{proposals: []classification.Proposal{
		{Category: types.CategorySimplify, Confidence: 0.5},
	}}
	audit := &fakeAudit{}
	o := New(sessions, &fakeClarifier{}, classifier, fakeMatrix{}, audit, nil, testPipelineConfig(), testDefaults())

	sess, err := sessions.Create("user-1", "", "desc")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, audit.Write(context.Background(), types.AuditEntry{
			SessionID: sess.SessionID,
			EventType: types.EventClarification,
			Data:      types.ClarificationAuditData{Questions: []string{}},
		}))
	}

	result, err := o.evaluate(context.Background(), sess.SessionID, "openai", false)
	require.NoError(t, err)
	assert.Equal(t, PhaseClassified, result.Phase)
	require.NotNil(t, result.Session.Classification)
}

func TestClarificationQuestionCountHandlesBothShapes(t *testing.T) {
	assert.Equal(t, 2, clarificationQuestionCount(types.ClarificationAuditData{Questions: []string{"a", "b"}}))
	assert.Equal(t, 2, clarificationQuestionCount(map[string]any{"questions": []any{"a", "b"}}))
	assert.Equal(t, 0, clarificationQuestionCount(map[string]any{"questions": []any{}}))
	assert.Equal(t, 0, clarificationQuestionCount(nil))
}
