// Package clarification implements the Clarification Service (spec §4.2):
// generating the next batch of clarification questions, recognizing the
// known malformed-response failure mode, and judging the ordered stop
// conditions.
package clarification

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/itchyny/gojq"

	"github.com/codeready-toolchain/transclassify/pkg/llmprovider"
	"github.com/codeready-toolchain/transclassify/pkg/types"
)

// malformedPattern matches the "Clarification N" meta-commentary failure
// mode where the LLM emits its own round label instead of a JSON question
// batch (spec §4.2, §9).
var malformedPattern = regexp.MustCompile(`(?i)^Clarification\s+\d+$`)

const promptID = "clarification-question"

// ContentStore is the minimal prompt-lookup surface this service needs.
type ContentStore interface {
	GetLatestPrompt(promptID string) (types.PromptArtifact, error)
}

// LLM is the minimal chat surface this service needs.
type LLM interface {
	Chat(ctx context.Context, providerName string, messages []llmprovider.Message) (llmprovider.ChatResult, error)
}

// Round is the outcome of one GenerateQuestions call.
type Round struct {
	Questions     []string
	ShouldClarify bool
	Malformed     bool
	MalformedKind string // "meta_commentary_pattern" | "unparseable" | "" when clean

	ModelPrompt   string
	ModelResponse string
	ModelUsed     string
	LLMProvider   types.LLMProvider
	LatencyMs     int64
}

// Service generates clarification question batches. It delegates the
// "should we keep asking" signal entirely to the LLM's own shouldClarify
// field rather than running sentiment regexes over answers — a prior
// regex-based frustration detector produced false positives on benign
// phrases like "this is my job" (spec §4.2 design note).
type Service struct {
	content ContentStore
	llm     LLM
}

func NewService(content ContentStore, llm LLM) *Service {
	return &Service{content: content, llm: llm}
}

// GenerateQuestions asks the LLM for the next batch of clarification
// questions given the description and prior Q&A context (already
// compressed by BuildContext if over threshold). finalRound requests
// exactly one question instead of 2-3 (spec §4.2).
func (s *Service) GenerateQuestions(ctx context.Context, providerName, description, conversationContext string, finalRound bool) (Round, error) {
	prompt, err := s.content.GetLatestPrompt(promptID)
	if err != nil {
		return Round{}, err
	}

	aim := "Ask 2-3 clarification questions."
	if finalRound {
		aim = "This is the final round: ask exactly 1 clarification question, or none if you already have enough information."
	}

	messages := []llmprovider.Message{
		{Role: llmprovider.RoleSystem, Content: prompt.Content},
		{Role: llmprovider.RoleUser, Content: fmt.Sprintf(
			"Business process description:\n%s\n\nConversation so far:\n%s\n\n%s\n\n"+
				"Respond with a single JSON object: "+
				`{"questions": ["..."], "shouldClarify": true|false}`+
				". Set shouldClarify to false and return an empty questions list if the user's "+
				"answers show frustration, dismissiveness, or repeated \"I don't know\" — do not "+
				"keep asking once that happens.",
			description, conversationContext, aim)},
	}

	result, err := s.llm.Chat(ctx, providerName, messages)
	if err != nil {
		return Round{}, err
	}

	round := Round{
		ModelPrompt:   result.PromptText,
		ModelResponse: result.Content,
		ModelUsed:     result.ModelUsed,
		LLMProvider:   result.LLMProvider,
		LatencyMs:     result.LatencyMs,
	}

	trimmed := strings.TrimSpace(result.Content)
	if malformedPattern.MatchString(trimmed) {
		round.Malformed = true
		round.MalformedKind = "meta_commentary_pattern"
		return round, nil
	}

	questions, shouldClarify, err := parseQuestionBatch(result.Content)
	if err != nil {
		round.Malformed = true
		round.MalformedKind = "unparseable"
		return round, nil
	}

	round.Questions = questions
	round.ShouldClarify = shouldClarify
	return round, nil
}

// parseQuestionBatch defensively extracts {questions, shouldClarify} from
// raw LLM text using gojq, tolerating prose wrapped around the JSON object
// (spec §9: "treat every LLM response as a string and parse defensively").
func parseQuestionBatch(raw string) ([]string, bool, error) {
	obj, err := extractJSONObject(raw)
	if err != nil {
		return nil, false, err
	}

	query, err := gojq.Parse(".questions, .shouldClarify")
	if err != nil {
		return nil, false, fmt.Errorf("clarification: compile jq query: %w", err)
	}

	var questions []string
	shouldClarify := true // absent field defaults to "keep clarifying"
	step := 0

	iter := query.Run(obj)
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if jqErr, isErr := v.(error); isErr {
			return nil, false, fmt.Errorf("clarification: jq evaluation: %w", jqErr)
		}
		switch step {
		case 0:
			if list, ok := v.([]any); ok {
				for _, q := range list {
					if qs, ok := q.(string); ok && strings.TrimSpace(qs) != "" {
						questions = append(questions, qs)
					}
				}
			}
		case 1:
			if b, ok := v.(bool); ok {
				shouldClarify = b
			}
		}
		step++
	}
	return questions, shouldClarify, nil
}

func extractJSONObject(raw string) (any, error) {
	start := strings.IndexByte(raw, '{')
	end := strings.LastIndexByte(raw, '}')
	if start < 0 || end < start {
		return nil, fmt.Errorf("clarification: no JSON object found in response")
	}
	var obj any
	if err := json.Unmarshal([]byte(raw[start:end+1]), &obj); err != nil {
		return nil, fmt.Errorf("clarification: unmarshal: %w", err)
	}
	return obj, nil
}
