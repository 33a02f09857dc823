package llmprovider

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/codeready-toolchain/transclassify/pkg/config"
	"github.com/codeready-toolchain/transclassify/pkg/types"
)

// openAIProvider talks to the OpenAI chat completions API through
// langchaingo's uniform llms.Model interface.
type openAIProvider struct {
	llm   *openai.LLM
	model string
}

func newOpenAIProvider(cfg *config.LLMProviderConfig) (*openAIProvider, error) {
	opts := []openai.Option{openai.WithModel(cfg.Model)}

	if cfg.APIKeyEnv != "" {
		key := os.Getenv(cfg.APIKeyEnv)
		if key == "" {
			return nil, fmt.Errorf("llmprovider: openai: environment variable %s is not set", cfg.APIKeyEnv)
		}
		opts = append(opts, openai.WithToken(key))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}

	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("llmprovider: openai: init: %w", err)
	}

	return &openAIProvider{llm: llm, model: cfg.Model}, nil
}

func (p *openAIProvider) Chat(ctx context.Context, messages []Message) (ChatResult, error) {
	start := time.Now()

	content := make([]llms.MessageContent, 0, len(messages))
	for _, m := range messages {
		content = append(content, llms.TextParts(toLangchainRole(m.Role), m.Content))
	}

	resp, err := p.llm.GenerateContent(ctx, content)
	if err != nil {
		return ChatResult{}, fmt.Errorf("llmprovider: openai: generate: %w", err)
	}
	if len(resp.Choices) == 0 {
		return ChatResult{}, fmt.Errorf("llmprovider: openai: empty response")
	}

	return ChatResult{
		Content:     resp.Choices[0].Content,
		ModelUsed:   p.model,
		LLMProvider: types.ProviderOpenAI,
		LatencyMs:   elapsedMs(start),
		PromptText:  renderPrompt(messages),
		Usage:       usageFromGenerationInfo(resp.Choices[0].GenerationInfo),
	}, nil
}

// usageFromGenerationInfo reads the token counts langchaingo's OpenAI
// backend stashes in GenerationInfo. Any key that is absent or the wrong
// type is left at zero rather than treated as an error — token accounting
// is informational, never load-bearing for pipeline correctness.
func usageFromGenerationInfo(info map[string]any) Usage {
	var u Usage
	if info == nil {
		return u
	}
	if v, ok := info["PromptTokens"].(int); ok {
		u.PromptTokens = v
	}
	if v, ok := info["CompletionTokens"].(int); ok {
		u.CompletionTokens = v
	}
	if v, ok := info["TotalTokens"].(int); ok {
		u.TotalTokens = v
	}
	return u
}

func (p *openAIProvider) ListModels(ctx context.Context) ([]string, error) {
	// langchaingo does not expose a models-list call; the configured model
	// is the only one this provider instance can serve.
	return []string{p.model}, nil
}

func toLangchainRole(r Role) llms.ChatMessageType {
	switch r {
	case RoleSystem:
		return llms.ChatMessageTypeSystem
	case RoleAssistant:
		return llms.ChatMessageTypeAI
	default:
		return llms.ChatMessageTypeHuman
	}
}
