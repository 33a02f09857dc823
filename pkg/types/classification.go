package types

import "time"

// Classification is the LLM's category proposal plus the decision-matrix
// post-processing applied to it.
type Classification struct {
	Category    Category `json:"category"`
	Confidence  float64  `json:"confidence"`
	Rationale   string   `json:"rationale,omitempty"`

	CategoryProgression  string `json:"categoryProgression,omitempty"`
	FutureOpportunities  string `json:"futureOpportunities,omitempty"`

	Timestamp   time.Time   `json:"timestamp"`
	ModelUsed   string      `json:"modelUsed"`
	LLMProvider LLMProvider `json:"llmProvider"`

	DecisionMatrixEvaluation *MatrixEvaluation `json:"decisionMatrixEvaluation,omitempty"`
}

// Attributes is the structured set of attributes extracted from a
// description + conversation for matrix evaluation. Values are always one
// of string, float64, or bool after extraction — missing fields are filled
// with the literal "unknown" (spec §4.1), never omitted.
type Attributes map[string]any

// InformationCompletenessScore counts how many of the given key indicator
// attribute names are present with a non-"unknown" value.
func InformationCompletenessScore(attrs Attributes, indicators []string) int {
	score := 0
	for _, name := range indicators {
		v, ok := attrs[name]
		if !ok {
			continue
		}
		if s, isStr := v.(string); isStr && (s == "" || s == "unknown") {
			continue
		}
		score++
	}
	return score
}

// DefaultCompletenessIndicators is the set of six key indicators used by
// the default information-completeness gate (SPEC_FULL "Open Questions"
// decision 2).
var DefaultCompletenessIndicators = []string{
	"frequency", "volume", "currentState", "dataSensitivity", "systemsInvolved", "painPoints",
}
