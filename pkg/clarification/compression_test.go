package clarification

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/transclassify/pkg/types"
)

func qa(question, answer string) types.ClarificationQA {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return types.ClarificationQA{Question: question, Answer: answer, AskedAt: now, AnsweredAt: &now}
}

func TestBuildContextNoConversations(t *testing.T) {
	out := BuildContext(nil, 5)
	assert.Contains(t, out, "no prior clarification rounds")
}

func TestBuildContextUnderThresholdIsVerbatim(t *testing.T) {
	conversations := []types.ConversationTurn{
		{TurnIndex: 0, ClarificationQA: []types.ClarificationQA{
			qa("How often does this run?", "Daily"),
			qa("What systems are involved?", "CRM and email"),
		}},
	}
	out := BuildContext(conversations, 5)
	assert.Contains(t, out, "Q1: How often does this run?")
	assert.Contains(t, out, "A1: Daily")
	assert.NotContains(t, out, "Summary of earlier rounds")
}

func TestBuildContextOverThresholdCompressesOlderRounds(t *testing.T) {
	var pairs []types.ClarificationQA
	for i := 0; i < 8; i++ {
		pairs = append(pairs, qa("How often does this run?", "Daily, every morning"))
	}
	conversations := []types.ConversationTurn{{TurnIndex: 0, ClarificationQA: pairs}}

	out := BuildContext(conversations, 5)
	require.Contains(t, out, "Summary of earlier rounds")
	assert.Contains(t, out, "Most recent rounds (verbatim):")
	assert.Contains(t, out, "[frequency]")
	// exactly 3 verbatim tail pairs
	assert.Equal(t, 3, strings.Count(out, "A1:")+strings.Count(out, "A2:")+strings.Count(out, "A3:"))
}

func TestBuildContextSkipsUnansweredInKeyFacts(t *testing.T) {
	unanswered := types.ClarificationQA{Question: "pending?", Answer: ""}
	pairs := []types.ClarificationQA{unanswered}
	for i := 0; i < 6; i++ {
		pairs = append(pairs, qa("volume per day?", "about 500 transactions"))
	}
	conversations := []types.ConversationTurn{{TurnIndex: 0, ClarificationQA: pairs}}

	out := BuildContext(conversations, 5)
	assert.Contains(t, out, "[volume]")
}
