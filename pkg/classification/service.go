// Package classification implements the Classification Service (spec
// §4.1): proposing a category + confidence from a description and
// conversation history, and extracting structured attributes for the
// decision matrix.
package classification

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/itchyny/gojq"

	"github.com/codeready-toolchain/transclassify/pkg/llmprovider"
	"github.com/codeready-toolchain/transclassify/pkg/pipelineerr"
	"github.com/codeready-toolchain/transclassify/pkg/types"
)

const classificationPromptID = "classification"

// ContentStore is the minimal prompt-lookup surface this service needs.
type ContentStore interface {
	GetLatestPrompt(promptID string) (types.PromptArtifact, error)
}

// LLM is the minimal chat surface this service needs.
type LLM interface {
	Chat(ctx context.Context, providerName string, messages []llmprovider.Message) (llmprovider.ChatResult, error)
}

// Proposal is the LLM's raw category/confidence proposal, before decision
// matrix post-processing.
type Proposal struct {
	Category            types.Category
	Confidence          float64
	Rationale           string
	CategoryProgression string
	FutureOpportunities string

	ModelPrompt   string
	ModelResponse string
	ModelUsed     string
	LLMProvider   types.LLMProvider
	LatencyMs     int64
}

// Service proposes classifications and extracts attributes via the LLM.
type Service struct {
	content ContentStore
	llm     LLM
}

func NewService(content ContentStore, llm LLM) *Service {
	return &Service{content: content, llm: llm}
}

// Classify asks the LLM to propose a category, confidence, and rationale
// for the given description + conversation context (spec §4.1).
func (s *Service) Classify(ctx context.Context, providerName, description, conversationContext string) (Proposal, error) {
	prompt, err := s.content.GetLatestPrompt(classificationPromptID)
	if err != nil {
		return Proposal{}, err
	}

	messages := []llmprovider.Message{
		{Role: llmprovider.RoleSystem, Content: prompt.Content},
		{Role: llmprovider.RoleUser, Content: fmt.Sprintf(
			"Business process description:\n%s\n\nConversation:\n%s\n\n"+
				"Respond with a single JSON object: "+
				`{"category": "<one of Eliminate, Simplify, Digitise, RPA, AI Agent, Agentic AI>", `+
				`"confidence": <0.0-1.0>, "rationale": "...", "categoryProgression": "...", `+
				`"futureOpportunities": "..."}`,
			description, conversationContext)},
	}

	result, err := s.llm.Chat(ctx, providerName, messages)
	if err != nil {
		return Proposal{}, err
	}

	proposal := Proposal{
		ModelPrompt:   result.PromptText,
		ModelResponse: result.Content,
		ModelUsed:     result.ModelUsed,
		LLMProvider:   result.LLMProvider,
		LatencyMs:     result.LatencyMs,
	}

	parsed, err := parseProposal(result.Content)
	if err != nil {
		return Proposal{}, pipelineerr.Wrap(pipelineerr.KindLLMMalformed, err, "classification: parse proposal")
	}
	proposal.Category = parsed.Category
	proposal.Confidence = parsed.Confidence
	proposal.Rationale = parsed.Rationale
	proposal.CategoryProgression = parsed.CategoryProgression
	proposal.FutureOpportunities = parsed.FutureOpportunities
	return proposal, nil
}

type parsedProposal struct {
	Category            types.Category
	Confidence          float64
	Rationale           string
	CategoryProgression string
	FutureOpportunities string
}

// parseProposal extracts the proposal fields from raw LLM text with gojq,
// tolerating prose wrapped around the JSON object, and rejects a category
// that isn't one of the six known values (spec §4.1 — a malformed category
// is never silently coerced, it's a KindLLMMalformed failure the caller
// recovers from, typically by falling back to manual_review).
func parseProposal(raw string) (parsedProposal, error) {
	start := strings.IndexByte(raw, '{')
	end := strings.LastIndexByte(raw, '}')
	if start < 0 || end < start {
		return parsedProposal{}, fmt.Errorf("classification: no JSON object found in response")
	}

	var obj any
	if err := json.Unmarshal([]byte(raw[start:end+1]), &obj); err != nil {
		return parsedProposal{}, fmt.Errorf("classification: unmarshal: %w", err)
	}

	query, err := gojq.Parse(".category, .confidence, .rationale, .categoryProgression, .futureOpportunities")
	if err != nil {
		return parsedProposal{}, fmt.Errorf("classification: compile jq query: %w", err)
	}

	var p parsedProposal
	step := 0
	iter := query.Run(obj)
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if jqErr, isErr := v.(error); isErr {
			return parsedProposal{}, fmt.Errorf("classification: jq evaluation: %w", jqErr)
		}
		switch step {
		case 0:
			if s, ok := v.(string); ok {
				p.Category = types.Category(s)
			}
		case 1:
			switch n := v.(type) {
			case float64:
				p.Confidence = n
			case int:
				p.Confidence = float64(n)
			}
		case 2:
			if s, ok := v.(string); ok {
				p.Rationale = s
			}
		case 3:
			if s, ok := v.(string); ok {
				p.CategoryProgression = s
			}
		case 4:
			if s, ok := v.(string); ok {
				p.FutureOpportunities = s
			}
		}
		step++
	}

	if !p.Category.IsValid() {
		return parsedProposal{}, fmt.Errorf("classification: invalid category %q", p.Category)
	}
	if p.Confidence < 0 || p.Confidence > 1 {
		return parsedProposal{}, fmt.Errorf("classification: confidence %f out of range", p.Confidence)
	}
	return p, nil
}
