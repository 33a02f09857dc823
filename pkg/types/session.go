package types

import "time"

// HARD_LIMIT_QUESTIONS is the total Q&A count at which the clarification
// interview is forced to stop (spec §4.2).
const HardLimitQuestions = 15

// SoftLimitQuestions is the count at which the interview is merely warned
// about, not stopped.
const SoftLimitQuestions = 8

// SessionTimeout is how long a session may sit idle before the hygiene
// sweep force-completes it (spec §3).
const SessionTimeout = 2 * time.Hour

// ClarificationQA is one question/answer pair within a ConversationTurn.
// Either field may be empty if the round produced no question or no answer
// yet (spec §3 ConversationTurn invariant).
type ClarificationQA struct {
	Question   string     `json:"question"`
	Answer     string     `json:"answer,omitempty"`
	AskedAt    time.Time  `json:"askedAt"`
	AnsweredAt *time.Time `json:"answeredAt,omitempty"`
}

// ConversationTurn is one insertion-ordered round of the clarification
// interview.
type ConversationTurn struct {
	TurnIndex       int               `json:"turnIndex"`
	ClarificationQA []ClarificationQA `json:"clarificationQA"`
}

// QAPairCount returns the number of {question, answer} pairs in this turn,
// counting only entries that carry a question (an answer-only placeholder
// does not count as a new pair).
func (t ConversationTurn) QAPairCount() int {
	n := 0
	for _, qa := range t.ClarificationQA {
		if qa.Question != "" {
			n++
		}
	}
	return n
}

// AdminReview records the outcome of the out-of-scope blind-evaluation
// workflow; the core only reads/writes the fields needed to satisfy the
// Session invariants in spec §3.
type AdminReview struct {
	Reviewed   bool      `json:"reviewed"`
	ReviewedBy string    `json:"reviewedBy,omitempty"`
	ReviewedAt time.Time `json:"reviewedAt,omitempty"`
	Notes      string    `json:"notes,omitempty"`
}

// Session is the aggregate root persisted one-per-file by pkg/sessionstore.
type Session struct {
	SessionID  string        `json:"sessionId"`
	UserID     string        `json:"userId"`
	Status     SessionStatus `json:"status"`
	Subject    string        `json:"subject,omitempty"`
	Description string       `json:"description"`

	Conversations []ConversationTurn `json:"conversations"`

	Classification *Classification `json:"classification,omitempty"`
	AdminReview    *AdminReview    `json:"adminReview,omitempty"`

	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
	LastActivityAt time.Time `json:"lastActivityAt"`
}

// TotalQAPairs counts {question, answer} pairs across all turns — the
// quantity bounded by HardLimitQuestions.
func (s *Session) TotalQAPairs() int {
	n := 0
	for _, t := range s.Conversations {
		n += t.QAPairCount()
	}
	return n
}

// Clone returns a deep copy safe for concurrent read access after the
// session-store mutex has been released.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.Conversations = make([]ConversationTurn, len(s.Conversations))
	for i, t := range s.Conversations {
		qa := make([]ClarificationQA, len(t.ClarificationQA))
		copy(qa, t.ClarificationQA)
		out.Conversations[i] = ConversationTurn{TurnIndex: t.TurnIndex, ClarificationQA: qa}
	}
	if s.Classification != nil {
		c := *s.Classification
		out.Classification = &c
	}
	if s.AdminReview != nil {
		a := *s.AdminReview
		out.AdminReview = &a
	}
	return &out
}

// Validate checks the cross-field invariants from spec §3. It does not
// check HardLimitQuestions here — that is enforced at the point a new Q&A
// pair would be appended, not on every read.
func (s *Session) Validate() error {
	if s.Status == StatusCompleted && s.Classification == nil {
		return errSessionInvariant("completed session has no classification")
	}
	if s.Status == StatusPendingAdminReview {
		if s.Classification == nil {
			return errSessionInvariant("pending_admin_review session has no classification")
		}
		if s.AdminReview != nil && s.AdminReview.Reviewed {
			return errSessionInvariant("pending_admin_review session already has a completed admin review")
		}
	}
	return nil
}

type sessionInvariantError string

func (e sessionInvariantError) Error() string { return string(e) }

func errSessionInvariant(msg string) error { return sessionInvariantError(msg) }
