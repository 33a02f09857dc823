package clarification

import (
	"fmt"
	"strings"

	"github.com/codeready-toolchain/transclassify/pkg/types"
)

// indicatorKeywords flags which completeness indicator a Q&A pair most
// likely touched on, used only to label the compressed digest — the real
// completeness scoring lives in pkg/orchestrator.
var indicatorKeywords = map[string][]string{
	"frequency":       {"frequency", "often", "daily", "weekly", "monthly", "times a"},
	"volume":          {"volume", "how many", "per day", "per week", "per month", "transactions"},
	"currentState":    {"current", "today", "right now", "manually", "currently"},
	"dataSensitivity": {"sensitive", "confidential", "pii", "personal data", "compliance"},
	"systemsInvolved": {"system", "application", "tool", "software", "platform"},
	"painPoints":      {"problem", "issue", "pain", "frustrat", "bottleneck", "error"},
}

// BuildContext renders the conversation history into prompt text for the
// next clarification round, compressing older rounds into a short key-fact
// digest once the Q&A pair count reaches threshold while keeping the most
// recent rounds verbatim (spec §4.2: "summarize older context, keep the
// tail verbatim" — avoids context growing unbounded over a 15-question
// interview while preserving the answers most likely to still matter).
func BuildContext(conversations []types.ConversationTurn, threshold int) string {
	pairs := flattenPairs(conversations)
	if len(pairs) == 0 {
		return "(no prior clarification rounds)"
	}
	if len(pairs) < threshold {
		return renderRaw(pairs)
	}

	tailSize := 3
	if tailSize > len(pairs) {
		tailSize = len(pairs)
	}
	older := pairs[:len(pairs)-tailSize]
	tail := pairs[len(pairs)-tailSize:]

	var b strings.Builder
	b.WriteString("Summary of earlier rounds:\n")
	for _, fact := range keyFactHeuristics(older) {
		fmt.Fprintf(&b, "- %s\n", fact)
	}
	b.WriteString("\nMost recent rounds (verbatim):\n")
	b.WriteString(renderRaw(tail))
	return b.String()
}

func flattenPairs(conversations []types.ConversationTurn) []types.ClarificationQA {
	var pairs []types.ClarificationQA
	for _, turn := range conversations {
		pairs = append(pairs, turn.ClarificationQA...)
	}
	return pairs
}

func renderRaw(pairs []types.ClarificationQA) string {
	var b strings.Builder
	for i, p := range pairs {
		fmt.Fprintf(&b, "Q%d: %s\nA%d: %s\n", i+1, p.Question, i+1, answerOrPending(p))
	}
	return b.String()
}

func answerOrPending(p types.ClarificationQA) string {
	if p.AnsweredAt == nil || strings.TrimSpace(p.Answer) == "" {
		return "(no answer yet)"
	}
	return p.Answer
}

// keyFactHeuristics reduces older Q&A pairs to one short line per pair,
// tagged with the completeness indicator it most likely speaks to.
func keyFactHeuristics(pairs []types.ClarificationQA) []string {
	facts := make([]string, 0, len(pairs))
	for _, p := range pairs {
		answer := strings.TrimSpace(p.Answer)
		if answer == "" {
			continue
		}
		facts = append(facts, extractFact(p.Question, answer))
	}
	return facts
}

func extractFact(question, answer string) string {
	indicator := classifyIndicator(question + " " + answer)
	if indicator != "" {
		return fmt.Sprintf("[%s] %s", indicator, answer)
	}
	return answer
}

func classifyIndicator(text string) string {
	lower := strings.ToLower(text)
	for indicator, keywords := range indicatorKeywords {
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				return indicator
			}
		}
	}
	return ""
}
