package config

// BuiltinConfig holds the configuration this package ships with, merged
// underneath whatever the operator's YAML provides. There are no built-in
// LLM providers — every provider must be declared explicitly with its own
// credentials — but the merge step is kept so a future built-in default
// (e.g. a house "openai-default" entry) has somewhere to go without
// reshaping the loader.
type BuiltinConfig struct {
	LLMProviders map[string]LLMProviderConfig
}

// GetBuiltinConfig returns the package's built-in configuration.
func GetBuiltinConfig() *BuiltinConfig {
	return &BuiltinConfig{
		LLMProviders: map[string]LLMProviderConfig{},
	}
}
