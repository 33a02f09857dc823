package orchestrator

import (
	"strings"

	"github.com/codeready-toolchain/transclassify/pkg/types"
)

// indicatorKeywords approximates which of the six completeness indicators
// (spec §4.1, SPEC_FULL Open Question decision 2) a piece of free text
// speaks to. This is a cheap heuristic used only to decide whether a
// routing pass should even attempt auto_classify — the real attribute
// extraction the decision matrix consumes is always run by the
// classification service once routing has chosen auto_classify, since a
// full LLM extraction call on every single evaluate pass (including ones
// that end up clarifying again) would be wasteful.
var indicatorKeywords = map[string][]string{
	"frequency":       {"daily", "weekly", "monthly", "annually", "per day", "per week", "per month", "times a", "how often", "frequency"},
	"volume":          {"volume", "how many", "transactions", "per day", "per week", "records", "items", "cases"},
	"currentState":    {"currently", "today", "right now", "manually", "current process", "as it stands"},
	"dataSensitivity": {"sensitive", "confidential", "pii", "personal data", "compliance", "regulated"},
	"systemsInvolved": {"system", "application", "crm", "erp", "platform", "software", "tool"},
	"painPoints":      {"problem", "issue", "pain", "frustrat", "bottleneck", "error", "delay", "manual"},
}

// estimateCompleteness counts how many of the six indicators appear to be
// addressed across description and the clarification answers collected so
// far.
func estimateCompleteness(description string, answers []string) int {
	text := strings.ToLower(description)
	for _, a := range answers {
		text += " " + strings.ToLower(a)
	}

	score := 0
	for _, indicator := range types.DefaultCompletenessIndicators {
		for _, kw := range indicatorKeywords[indicator] {
			if strings.Contains(text, kw) {
				score++
				break
			}
		}
	}
	return score
}
