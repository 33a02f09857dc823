package config

import (
	"fmt"
	"sync"
	"time"
)

// LLMProviderConfig defines one named LLM provider's connection details.
// Provider is selected explicitly per spec §4.3 — never inferred from a
// model id.
type LLMProviderConfig struct {
	// Type selects the backend (openai or bedrock), required.
	Type LLMProviderType `yaml:"type" validate:"required"`

	// Model is the model identifier passed to the backend, required.
	Model string `yaml:"model" validate:"required"`

	// APIKeyEnv names the environment variable holding the OpenAI API key.
	// Only meaningful for Type == openai.
	APIKeyEnv string `yaml:"api_key_env,omitempty"`

	// Region is the AWS region for Bedrock calls. Only meaningful for
	// Type == bedrock; falls back to the SDK's default credential chain
	// region resolution when empty.
	Region string `yaml:"region,omitempty"`

	// BaseURL overrides the default API endpoint (OpenAI-compatible proxies).
	BaseURL string `yaml:"base_url,omitempty"`

	// RequestTimeout is loaded but not read by pkg/llmprovider, which bounds
	// every call attempt at a fixed 30s.
	RequestTimeout time.Duration `yaml:"request_timeout,omitempty"`

	// MaxRetries is validated (0-10) but not read by pkg/llmprovider, which
	// always makes at most 3 attempts.
	MaxRetries int `yaml:"max_retries,omitempty" validate:"omitempty,min=0,max=10"`
}

// LLMProviderRegistry stores LLM provider configurations in memory with
// thread-safe access.
type LLMProviderRegistry struct {
	providers map[string]*LLMProviderConfig
	mu        sync.RWMutex
}

// NewLLMProviderRegistry creates a new LLM provider registry.
func NewLLMProviderRegistry(providers map[string]*LLMProviderConfig) *LLMProviderRegistry {
	copied := make(map[string]*LLMProviderConfig, len(providers))
	for k, v := range providers {
		copied[k] = v
	}
	return &LLMProviderRegistry{providers: copied}
}

// Get retrieves an LLM provider configuration by name (thread-safe).
func (r *LLMProviderRegistry) Get(name string) (*LLMProviderConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	provider, exists := r.providers[name]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrLLMProviderNotFound, name)
	}
	return provider, nil
}

// GetAll returns all LLM provider configurations (thread-safe, returns copy).
func (r *LLMProviderRegistry) GetAll() map[string]*LLMProviderConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[string]*LLMProviderConfig, len(r.providers))
	for k, v := range r.providers {
		result[k] = v
	}
	return result
}

// Has checks if an LLM provider exists in the registry (thread-safe).
func (r *LLMProviderRegistry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.providers[name]
	return exists
}

// Len returns the number of LLM providers in the registry (thread-safe).
func (r *LLMProviderRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.providers)
}
