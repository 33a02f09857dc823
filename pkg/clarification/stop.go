package clarification

import "github.com/codeready-toolchain/transclassify/pkg/types"

// StopReason identifies why a clarification interview should stop asking
// questions, in priority order (spec §4.2).
type StopReason string

const (
	StopNone         StopReason = ""
	StopHardLimit    StopReason = "hard_limit"
	StopLLMExhausted StopReason = "llm_exhausted"
	StopLLMConfident StopReason = "llm_confident"
)

// CheckStop applies the ordered stop conditions: a hard question-count
// ceiling always wins regardless of what the LLM wants, then
// EMPTY_ROUND_THRESHOLD consecutive rounds in which the LLM asked no new
// questions, then an LLM that is done because it has enough information
// (spec §4.2). consecutiveEmptyRounds is the number of trailing rounds,
// ending with this one, that asked zero questions; a lone empty round is
// not yet exhaustion, only a streak reaching emptyRoundThreshold is.
func CheckStop(questionCount int, round Round, consecutiveEmptyRounds, emptyRoundThreshold int) StopReason {
	if questionCount >= types.HardLimitQuestions {
		return StopHardLimit
	}
	if round.Malformed {
		return StopNone
	}
	if len(round.Questions) == 0 && consecutiveEmptyRounds >= emptyRoundThreshold {
		return StopLLMExhausted
	}
	if !round.ShouldClarify {
		return StopLLMConfident
	}
	return StopNone
}
