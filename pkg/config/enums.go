package config

// LLMProviderType defines the supported LLM backends. This spec's domain
// scope is direct OpenAI/Bedrock calls, unlike the broader multi-provider
// surface the chain-execution framework this package descended from once
// supported.
type LLMProviderType string

const (
	// LLMProviderTypeOpenAI is the OpenAI chat completions API, reached via
	// langchaingo.
	LLMProviderTypeOpenAI LLMProviderType = "openai"
	// LLMProviderTypeBedrock is AWS Bedrock Runtime.
	LLMProviderTypeBedrock LLMProviderType = "bedrock"
)

// IsValid checks if the LLM provider type is valid.
func (t LLMProviderType) IsValid() bool {
	return t == LLMProviderTypeOpenAI || t == LLMProviderTypeBedrock
}
