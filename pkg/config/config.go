package config

// Config is the umbrella configuration object returned by Initialize and
// used throughout the classifier: registries, pipeline limits, storage
// paths, retention, and notification settings.
type Config struct {
	configDir string

	Defaults  *Defaults
	Pipeline  *PipelineConfig
	Storage   *StorageConfig
	Retention *RetentionConfig
	Notify    *NotifyConfig

	LLMProviderRegistry *LLMProviderRegistry
}

// ConfigStats contains statistics about loaded configuration.
type ConfigStats struct {
	LLMProviders int
}

// Stats returns configuration statistics for logging/monitoring.
func (c *Config) Stats() ConfigStats {
	return ConfigStats{
		LLMProviders: len(c.LLMProviderRegistry.GetAll()),
	}
}

// ConfigDir returns the configuration directory path.
func (c *Config) ConfigDir() string {
	return c.configDir
}

// GetLLMProvider retrieves an LLM provider configuration by name.
func (c *Config) GetLLMProvider(name string) (*LLMProviderConfig, error) {
	return c.LLMProviderRegistry.Get(name)
}
