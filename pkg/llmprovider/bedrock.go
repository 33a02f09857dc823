package llmprovider

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"github.com/codeready-toolchain/transclassify/pkg/config"
	"github.com/codeready-toolchain/transclassify/pkg/types"
)

// bedrockProvider talks to AWS Bedrock Runtime's Converse API, which gives
// every model family Bedrock hosts (Anthropic, Meta, Amazon, ...) the same
// request/response shape — exactly the permissive, non-model-specific
// surface spec §4.3 asks for.
type bedrockProvider struct {
	client *bedrockruntime.Client
	model  string
}

func newBedrockProvider(cfg *config.LLMProviderConfig) (*bedrockProvider, error) {
	ctx := context.Background()

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("llmprovider: bedrock: load AWS config: %w", err)
	}

	client := bedrockruntime.NewFromConfig(awsCfg, func(o *bedrockruntime.Options) {
		if cfg.BaseURL != "" {
			o.BaseEndpoint = aws.String(cfg.BaseURL)
		}
	})

	return &bedrockProvider{client: client, model: cfg.Model}, nil
}

func (p *bedrockProvider) Chat(ctx context.Context, messages []Message) (ChatResult, error) {
	start := time.Now()

	var system []brtypes.SystemContentBlock
	var conv []brtypes.Message
	for _, m := range messages {
		if m.Role == RoleSystem {
			system = append(system, &brtypes.SystemContentBlockMemberText{Value: m.Content})
			continue
		}
		conv = append(conv, brtypes.Message{
			Role:    toBedrockRole(m.Role),
			Content: []brtypes.ContentBlock{&brtypes.ContentBlockMemberText{Value: m.Content}},
		})
	}

	out, err := p.client.Converse(ctx, &bedrockruntime.ConverseInput{
		ModelId:  aws.String(p.model),
		Messages: conv,
		System:   system,
	})
	if err != nil {
		return ChatResult{}, fmt.Errorf("llmprovider: bedrock: converse: %w", err)
	}

	msg, ok := out.Output.(*brtypes.ConverseOutputMemberMessage)
	if !ok || len(msg.Value.Content) == 0 {
		return ChatResult{}, fmt.Errorf("llmprovider: bedrock: empty response")
	}
	text, ok := msg.Value.Content[0].(*brtypes.ContentBlockMemberText)
	if !ok {
		return ChatResult{}, fmt.Errorf("llmprovider: bedrock: non-text response block")
	}

	var usage Usage
	if out.Usage != nil {
		usage = Usage{
			PromptTokens:     int(aws.ToInt32(out.Usage.InputTokens)),
			CompletionTokens: int(aws.ToInt32(out.Usage.OutputTokens)),
			TotalTokens:      int(aws.ToInt32(out.Usage.TotalTokens)),
		}
	}

	return ChatResult{
		Content:     text.Value,
		ModelUsed:   p.model,
		LLMProvider: types.ProviderBedrock,
		LatencyMs:   elapsedMs(start),
		PromptText:  renderPrompt(messages),
		Usage:       usage,
	}, nil
}

func (p *bedrockProvider) ListModels(ctx context.Context) ([]string, error) {
	// Bedrock Runtime (the data-plane client Converse lives on) has no
	// model-listing call; that belongs to the separate control-plane
	// client. The configured model is the only one this instance can
	// serve, same limitation as the openai provider.
	return []string{p.model}, nil
}

func toBedrockRole(r Role) brtypes.ConversationRole {
	if r == RoleAssistant {
		return brtypes.ConversationRoleAssistant
	}
	return brtypes.ConversationRoleUser
}
