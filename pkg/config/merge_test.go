package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMergeLLMProviders_UserOverridesBuiltin(t *testing.T) {
	builtin := map[string]LLMProviderConfig{
		"shared": {Type: LLMProviderTypeOpenAI, Model: "gpt-4o-mini"},
	}
	user := map[string]LLMProviderConfig{
		"shared": {Type: LLMProviderTypeOpenAI, Model: "gpt-4o"},
		"extra":  {Type: LLMProviderTypeBedrock, Model: "anthropic.claude-3"},
	}

	merged := mergeLLMProviders(builtin, user)

	assert.Len(t, merged, 2)
	assert.Equal(t, "gpt-4o", merged["shared"].Model)
	assert.Equal(t, "anthropic.claude-3", merged["extra"].Model)
}

func TestMergeLLMProviders_BuiltinSurvivesWhenNotOverridden(t *testing.T) {
	builtin := map[string]LLMProviderConfig{
		"house": {Type: LLMProviderTypeOpenAI, Model: "gpt-4o-mini"},
	}
	merged := mergeLLMProviders(builtin, map[string]LLMProviderConfig{})
	assert.Len(t, merged, 1)
	assert.Equal(t, "gpt-4o-mini", merged["house"].Model)
}
