package config

import "time"

// RetentionConfig controls audit-log and session retention.
type RetentionConfig struct {
	// AuditLogRetentionDays is how many days of daily JSONL audit-log
	// files are kept before the cleanup sweep deletes them.
	AuditLogRetentionDays int `yaml:"audit_log_retention_days"`

	// SessionRetentionDays is how many days a terminal-state (completed,
	// failed, manual_review, pending_admin_review) session file is kept
	// before deletion.
	SessionRetentionDays int `yaml:"session_retention_days"`

	// CleanupInterval is how often the retention sweep runs.
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

// DefaultRetentionConfig returns the built-in retention defaults.
func DefaultRetentionConfig() *RetentionConfig {
	return &RetentionConfig{
		AuditLogRetentionDays: 365,
		SessionRetentionDays:  90,
		CleanupInterval:       12 * time.Hour,
	}
}
