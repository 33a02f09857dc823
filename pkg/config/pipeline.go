package config

import "time"

// PipelineConfig contains the tunable limits and thresholds that govern the
// clarification interview and confidence routing (spec §3, §4.1, §4.2).
type PipelineConfig struct {
	// HardLimitQuestions is loaded and validated (it bounds
	// SoftLimitQuestions), but the interview itself is force-stopped at the
	// fixed types.HardLimitQuestions (15) by pkg/orchestrator and
	// clarification.CheckStop; a different value here does not move that stop.
	HardLimitQuestions int `yaml:"hard_limit_questions"`

	// SoftLimitQuestions is the Q&A count from which the orchestrator logs a
	// warning before each further clarification round; it never stops the
	// interview.
	SoftLimitQuestions int `yaml:"soft_limit_questions"`

	// SummarizationThreshold is the Q&A pair count at which the
	// conversation context is compressed before the next LLM call.
	SummarizationThreshold int `yaml:"summarization_threshold"`

	// EmptyRoundThreshold is how many empty rounds end the interview: that
	// many consecutive empty rounds stop it with llm_exhausted, and that many
	// empty rounds within SilentDetectionWindow trigger loop detection.
	EmptyRoundThreshold int `yaml:"empty_round_threshold"`

	// SilentDetectionWindow is the trailing round count examined for
	// EmptyRoundThreshold.
	SilentDetectionWindow int `yaml:"silent_detection_window"`

	// SessionTimeout is how long a session may sit idle before the
	// background sweep force-completes it.
	SessionTimeout time.Duration `yaml:"session_timeout"`

	// SessionSweepInterval is how often the timeout sweep runs.
	SessionSweepInterval time.Duration `yaml:"session_sweep_interval"`

	// AutoClassifyConfidence is the confidence (kappa) at or above which a
	// classification is accepted without clarification or review, subject
	// to the description-length and completeness gates.
	AutoClassifyConfidence float64 `yaml:"auto_classify_confidence" validate:"required,gt=0,lte=1"`

	// ManualReviewConfidence is the confidence below which a classification
	// is routed to manual_review instead of another clarification round.
	ManualReviewConfidence float64 `yaml:"manual_review_confidence" validate:"required,gt=0,lte=1"`

	// MinDescriptionWords is the |d| word-count gate for auto_classify
	// (spec §4.1: 50).
	MinDescriptionWords int `yaml:"min_description_words"`
}

// DefaultPipelineConfig returns the built-in pipeline defaults, matching the
// named constants in spec §3.
func DefaultPipelineConfig() *PipelineConfig {
	return &PipelineConfig{
		HardLimitQuestions:     15,
		SoftLimitQuestions:     8,
		SummarizationThreshold: 5,
		EmptyRoundThreshold:    2,
		SilentDetectionWindow:  3,
		SessionTimeout:         2 * time.Hour,
		SessionSweepInterval:   5 * time.Minute,
		AutoClassifyConfidence: 0.95,
		ManualReviewConfidence: 0.60,
		MinDescriptionWords:    50,
	}
}
