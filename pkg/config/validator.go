package config

import (
	"fmt"
	"os"
)

// Validator validates configuration comprehensively with clear error
// messages, fail-fast (stops at the first error), mirroring the teacher's
// *Validator discipline.
type Validator struct {
	cfg *Config
}

// NewValidator creates a validator for the given configuration.
func NewValidator(cfg *Config) *Validator {
	return &Validator{cfg: cfg}
}

// ValidateAll performs comprehensive validation in dependency order:
// storage → pipeline → LLM providers → notify → retention → defaults.
func (v *Validator) ValidateAll() error {
	if err := v.validateStorage(); err != nil {
		return fmt.Errorf("storage validation failed: %w", err)
	}
	if err := v.validatePipeline(); err != nil {
		return fmt.Errorf("pipeline validation failed: %w", err)
	}
	if err := v.validateLLMProviders(); err != nil {
		return fmt.Errorf("LLM provider validation failed: %w", err)
	}
	if err := v.validateNotify(); err != nil {
		return fmt.Errorf("notify validation failed: %w", err)
	}
	if err := v.validateRetention(); err != nil {
		return fmt.Errorf("retention validation failed: %w", err)
	}
	if err := v.validateDefaults(); err != nil {
		return fmt.Errorf("defaults validation failed: %w", err)
	}
	return nil
}

func (v *Validator) validateStorage() error {
	s := v.cfg.Storage
	if s == nil || s.DataDir == "" {
		return NewValidationError("storage", "", "data_dir", fmt.Errorf("data_dir is required"))
	}
	return nil
}

func (v *Validator) validatePipeline() error {
	p := v.cfg.Pipeline
	if p == nil {
		return fmt.Errorf("pipeline configuration is nil")
	}

	if p.HardLimitQuestions < 1 {
		return NewValidationError("pipeline", "", "hard_limit_questions", fmt.Errorf("must be at least 1, got %d", p.HardLimitQuestions))
	}
	if p.SoftLimitQuestions < 1 || p.SoftLimitQuestions > p.HardLimitQuestions {
		return NewValidationError("pipeline", "", "soft_limit_questions", fmt.Errorf("must be between 1 and hard_limit_questions (%d), got %d", p.HardLimitQuestions, p.SoftLimitQuestions))
	}
	if p.SummarizationThreshold < 1 {
		return NewValidationError("pipeline", "", "summarization_threshold", fmt.Errorf("must be at least 1, got %d", p.SummarizationThreshold))
	}
	if p.EmptyRoundThreshold < 1 || p.EmptyRoundThreshold > p.SilentDetectionWindow {
		return NewValidationError("pipeline", "", "empty_round_threshold", fmt.Errorf("must be between 1 and silent_detection_window (%d), got %d", p.SilentDetectionWindow, p.EmptyRoundThreshold))
	}
	if p.SilentDetectionWindow < 1 {
		return NewValidationError("pipeline", "", "silent_detection_window", fmt.Errorf("must be at least 1, got %d", p.SilentDetectionWindow))
	}
	if p.SessionTimeout <= 0 {
		return NewValidationError("pipeline", "", "session_timeout", fmt.Errorf("must be positive, got %v", p.SessionTimeout))
	}
	if p.SessionSweepInterval <= 0 {
		return NewValidationError("pipeline", "", "session_sweep_interval", fmt.Errorf("must be positive, got %v", p.SessionSweepInterval))
	}
	if p.SessionSweepInterval >= p.SessionTimeout {
		return NewValidationError("pipeline", "", "session_sweep_interval", fmt.Errorf("must be less than session_timeout to avoid missing timed-out sessions, got sweep=%v timeout=%v", p.SessionSweepInterval, p.SessionTimeout))
	}
	if p.AutoClassifyConfidence <= 0 || p.AutoClassifyConfidence > 1 {
		return NewValidationError("pipeline", "", "auto_classify_confidence", fmt.Errorf("must be in (0, 1], got %v", p.AutoClassifyConfidence))
	}
	if p.ManualReviewConfidence <= 0 || p.ManualReviewConfidence >= p.AutoClassifyConfidence {
		return NewValidationError("pipeline", "", "manual_review_confidence", fmt.Errorf("must be in (0, auto_classify_confidence), got manual=%v auto=%v", p.ManualReviewConfidence, p.AutoClassifyConfidence))
	}
	if p.MinDescriptionWords < 0 {
		return NewValidationError("pipeline", "", "min_description_words", fmt.Errorf("must be non-negative, got %d", p.MinDescriptionWords))
	}

	return nil
}

func (v *Validator) validateLLMProviders() error {
	if v.cfg.LLMProviderRegistry.Len() == 0 {
		return NewValidationError("llm_provider", "", "", fmt.Errorf("at least one LLM provider must be configured"))
	}

	for name, provider := range v.cfg.LLMProviderRegistry.GetAll() {
		if !provider.Type.IsValid() {
			return NewValidationError("llm_provider", name, "type", fmt.Errorf("invalid provider type: %s", provider.Type))
		}
		if provider.Model == "" {
			return NewValidationError("llm_provider", name, "model", fmt.Errorf("model required"))
		}

		switch provider.Type {
		case LLMProviderTypeOpenAI:
			if provider.APIKeyEnv != "" {
				if value := os.Getenv(provider.APIKeyEnv); value == "" {
					return NewValidationError("llm_provider", name, "api_key_env", fmt.Errorf("environment variable %s is not set", provider.APIKeyEnv))
				}
			}
		case LLMProviderTypeBedrock:
			// Region is optional; the AWS SDK's default credential/region
			// chain applies when unset. Credentials themselves come from
			// the standard AWS environment, not a config field.
		}

		if provider.MaxRetries < 0 {
			return NewValidationError("llm_provider", name, "max_retries", fmt.Errorf("must be non-negative"))
		}
	}

	return nil
}

func (v *Validator) validateNotify() error {
	n := v.cfg.Notify
	if n == nil || !n.Enabled {
		return nil
	}

	if n.Channel == "" {
		return NewValidationError("notify", "", "channel", fmt.Errorf("required when notify is enabled"))
	}
	if n.TokenEnv == "" {
		return NewValidationError("notify", "", "token_env", fmt.Errorf("required when notify is enabled"))
	}
	if token := os.Getenv(n.TokenEnv); token == "" {
		return NewValidationError("notify", "", "token_env", fmt.Errorf("environment variable %s is not set", n.TokenEnv))
	}

	return nil
}

func (v *Validator) validateRetention() error {
	r := v.cfg.Retention
	if r == nil {
		return nil
	}
	if r.AuditLogRetentionDays < 1 {
		return NewValidationError("retention", "", "audit_log_retention_days", fmt.Errorf("must be at least 1"))
	}
	if r.SessionRetentionDays < 1 {
		return NewValidationError("retention", "", "session_retention_days", fmt.Errorf("must be at least 1"))
	}
	if r.CleanupInterval <= 0 {
		return NewValidationError("retention", "", "cleanup_interval", fmt.Errorf("must be positive"))
	}
	return nil
}

func (v *Validator) validateDefaults() error {
	d := v.cfg.Defaults
	if d == nil {
		return nil
	}
	if d.LLMProvider != "" && !v.cfg.LLMProviderRegistry.Has(d.LLMProvider) {
		return NewValidationError("defaults", "", "llm_provider", fmt.Errorf("LLM provider '%s' not found", d.LLMProvider))
	}
	if d.InformationCompletenessThreshold < 0 || d.InformationCompletenessThreshold > 6 {
		return NewValidationError("defaults", "", "information_completeness_threshold", fmt.Errorf("must be between 0 and 6"))
	}
	return nil
}
