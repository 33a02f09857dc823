package config

// StorageConfig roots the file-based stores. Subdirectories follow spec
// §4.5/§4.6 exactly: {DataDir}/sessions, {DataDir}/prompts,
// {DataDir}/decision-matrix, {DataDir}/audit-logs.
type StorageConfig struct {
	DataDir string `yaml:"data_dir" validate:"required"`
}

// NotifyConfig configures the Slack paging adapted from the teacher's
// pkg/slack for terminal states that need human attention (manual_review,
// pending_admin_review, failed).
type NotifyConfig struct {
	Enabled      bool   `yaml:"enabled"`
	TokenEnv     string `yaml:"token_env,omitempty"`
	Channel      string `yaml:"channel,omitempty"`
	DashboardURL string `yaml:"dashboard_url,omitempty"`
}
