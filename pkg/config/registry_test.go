package config

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLLMProviderRegistry_DefensiveCopyOnConstruct(t *testing.T) {
	src := map[string]*LLMProviderConfig{
		"primary": {Type: LLMProviderTypeOpenAI, Model: "gpt-4o"},
	}
	reg := NewLLMProviderRegistry(src)

	delete(src, "primary")
	assert.True(t, reg.Has("primary"), "registry must not be affected by caller mutating the source map")
}

func TestLLMProviderRegistry_GetAllReturnsCopy(t *testing.T) {
	reg := NewLLMProviderRegistry(map[string]*LLMProviderConfig{
		"primary": {Type: LLMProviderTypeOpenAI, Model: "gpt-4o"},
	})

	all := reg.GetAll()
	delete(all, "primary")
	assert.True(t, reg.Has("primary"), "mutating the returned map must not affect the registry")
}

func TestLLMProviderRegistry_ConcurrentReads(t *testing.T) {
	reg := NewLLMProviderRegistry(map[string]*LLMProviderConfig{
		"primary": {Type: LLMProviderTypeBedrock, Model: "anthropic.claude-3-haiku"},
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = reg.Get("primary")
			reg.GetAll()
			reg.Has("primary")
			reg.Len()
		}()
	}
	wg.Wait()
}

func TestLLMProviderRegistry_NotFound(t *testing.T) {
	reg := NewLLMProviderRegistry(nil)
	_, err := reg.Get("missing")
	assert.ErrorIs(t, err, ErrLLMProviderNotFound)
	assert.False(t, reg.Has("missing"))
	assert.Equal(t, 0, reg.Len())
}
