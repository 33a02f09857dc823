package classification

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/itchyny/gojq"

	"github.com/codeready-toolchain/transclassify/pkg/llmprovider"
	"github.com/codeready-toolchain/transclassify/pkg/types"
)

const attributeExtractionPromptID = "attribute-extraction"

// ExtractAttributes asks the LLM to fill in every attribute the decision
// matrix declares, given the description and conversation so far. Any
// attribute the LLM omits or returns malformed is filled with the literal
// "unknown" rather than failing the pipeline — attribute extraction backs
// the decision matrix's confidence adjustments, not a hard gate (spec
// §4.1, §4.4).
func (s *Service) ExtractAttributes(ctx context.Context, providerName, description, conversationContext string, attrs []types.Attribute) (types.Attributes, error) {
	prompt, err := s.content.GetLatestPrompt(attributeExtractionPromptID)
	if err != nil {
		return nil, err
	}

	messages := []llmprovider.Message{
		{Role: llmprovider.RoleSystem, Content: prompt.Content},
		{Role: llmprovider.RoleUser, Content: fmt.Sprintf(
			"Business process description:\n%s\n\nConversation:\n%s\n\n%s\n\n"+
				`Respond with a single flat JSON object mapping each attribute name to its value.`,
			description, conversationContext, describeAttributes(attrs))},
	}

	result, err := s.llm.Chat(ctx, providerName, messages)
	if err != nil {
		return unknownAttributes(attrs), nil
	}

	extracted, err := parseAttributeObject(result.Content, attrs)
	if err != nil {
		return unknownAttributes(attrs), nil
	}
	return extracted, nil
}

func describeAttributes(attrs []types.Attribute) string {
	var b strings.Builder
	b.WriteString("Attributes to extract:\n")
	for _, a := range attrs {
		fmt.Fprintf(&b, "- %s (%s)", a.Name, a.Type)
		if a.Type == types.AttributeCategorical {
			fmt.Fprintf(&b, " one of: %s", strings.Join(a.PossibleValues, ", "))
		}
		if a.Description != "" {
			fmt.Fprintf(&b, " — %s", a.Description)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// unknownAttributes fills every requested attribute with "unknown" — the
// fallback used whenever extraction fails outright, so the decision matrix
// always receives a complete attribute set to evaluate against.
func unknownAttributes(attrs []types.Attribute) types.Attributes {
	out := make(types.Attributes, len(attrs))
	for _, a := range attrs {
		out[a.Name] = "unknown"
	}
	return out
}

// parseAttributeObject extracts each declared attribute's value from raw
// LLM text via gojq, using the quoted-key form (.["name"]) so attribute
// names containing characters jq's bare identifier syntax can't express
// (spaces, dashes) still resolve. Any attribute missing or of the wrong
// type for its declared AttributeType falls back to "unknown" rather than
// failing the whole extraction.
func parseAttributeObject(raw string, attrs []types.Attribute) (types.Attributes, error) {
	start := strings.IndexByte(raw, '{')
	end := strings.LastIndexByte(raw, '}')
	if start < 0 || end < start {
		return nil, fmt.Errorf("classification: no JSON object found in response")
	}

	var obj any
	if err := json.Unmarshal([]byte(raw[start:end+1]), &obj); err != nil {
		return nil, fmt.Errorf("classification: unmarshal: %w", err)
	}

	out := make(types.Attributes, len(attrs))
	for _, a := range attrs {
		query, err := gojq.Parse(fmt.Sprintf(".[%q]", a.Name))
		if err != nil {
			out[a.Name] = "unknown"
			continue
		}
		value := firstResult(query, obj)
		out[a.Name] = coerceAttributeValue(a, value)
	}
	return out, nil
}

func firstResult(query *gojq.Query, obj any) any {
	iter := query.Run(obj)
	v, ok := iter.Next()
	if !ok {
		return nil
	}
	if _, isErr := v.(error); isErr {
		return nil
	}
	return v
}

func coerceAttributeValue(a types.Attribute, value any) any {
	if value == nil {
		return "unknown"
	}
	switch a.Type {
	case types.AttributeNumeric:
		switch n := value.(type) {
		case float64:
			return n
		case int:
			return float64(n)
		}
		return "unknown"
	case types.AttributeBoolean:
		if b, ok := value.(bool); ok {
			return b
		}
		return "unknown"
	case types.AttributeCategorical:
		if s, ok := value.(string); ok {
			for _, pv := range a.PossibleValues {
				if pv == s {
					return s
				}
			}
		}
		return "unknown"
	default:
		if s, ok := value.(string); ok {
			return s
		}
		return "unknown"
	}
}
