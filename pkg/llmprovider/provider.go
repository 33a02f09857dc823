// Package llmprovider implements the uniform chat/listModels contract over
// the two supported LLM backends (spec §4.3): OpenAI via langchaingo, and
// AWS Bedrock via the native SDK. Both backends are wrapped in the same
// retry + circuit-breaker resilience layer so callers never see a
// provider-specific failure shape.
package llmprovider

import (
	"context"
	"time"

	"github.com/codeready-toolchain/transclassify/pkg/types"
)

// Role identifies the speaker of a Message in a chat exchange.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of the chat history sent to the LLM.
type Message struct {
	Role    Role
	Content string
}

// Usage is the token accounting a backend reports for one Chat call (spec
// §4.3: "chat(...) -> {content, model, usage{promptTokens,
// completionTokens, totalTokens}}").
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// ChatResult is the provider's response to a Chat call.
type ChatResult struct {
	Content     string
	ModelUsed   string
	LLMProvider types.LLMProvider
	LatencyMs   int64
	PromptText  string // the rendered prompt, for audit logging
	Usage       Usage
}

// Provider is the uniform interface every backend implements. Chat is
// synchronous; this domain has no streaming requirement (spec §4.3, unlike
// the teacher's streaming Chunk sum type).
type Provider interface {
	Chat(ctx context.Context, messages []Message) (ChatResult, error)
	ListModels(ctx context.Context) ([]string, error)
}

// renderPrompt flattens messages into a single string for audit logging —
// providers are free to send the structured form to the wire.
func renderPrompt(messages []Message) string {
	var out string
	for _, m := range messages {
		out += string(m.Role) + ": " + m.Content + "\n"
	}
	return out
}

func elapsedMs(start time.Time) int64 {
	return time.Since(start).Milliseconds()
}
