package matrix

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/codeready-toolchain/transclassify/pkg/types"
)

// Engine evaluates a DecisionMatrix's rules against extracted attributes.
// Compiled CEL programs are cached per matrix version so repeated
// evaluation of the same (attributes, matrixVersion) pair never
// recompiles an expression and always runs the identical program — the
// basis for spec §8's idempotence law ("re-evaluating the same pair twice
// produces identical MatrixEvaluation").
type Engine struct {
	cel *celEvaluator

	mu    sync.Mutex
	cache map[string]map[string][]cel.Program // matrixVersion -> ruleID -> per-condition programs
}

func NewEngine() (*Engine, error) {
	ce, err := newCELEvaluator()
	if err != nil {
		return nil, err
	}
	return &Engine{cel: ce, cache: make(map[string]map[string][]cel.Program)}, nil
}

// Evaluate runs m's active rules, sorted by priority descending with ties
// broken by source order, against attrs. It returns the final category
// (the first override's target, or the LLM's proposed category if none
// fired), the final confidence (proposed + all adjust_confidence deltas,
// clamped to [0,1]), and the MatrixEvaluation audit record (spec §4.4).
func (e *Engine) Evaluate(m types.DecisionMatrix, attrs types.Attributes, proposedCategory types.Category, proposedConfidence float64) (types.Category, float64, types.MatrixEvaluation, error) {
	programs, err := e.programsFor(m)
	if err != nil {
		return proposedCategory, proposedConfidence, types.MatrixEvaluation{}, err
	}

	rules := activeRulesByPriority(m.Rules)

	eval := types.MatrixEvaluation{MatrixVersion: m.Version}
	category := proposedCategory
	overrideApplied := false

	for _, r := range rules {
		if !e.ruleTriggered(programs[r.RuleID], r, attrs) {
			continue
		}

		eval.TriggeredRules = append(eval.TriggeredRules, types.TriggeredRule{
			RuleID: r.RuleID, RuleName: r.Name, Priority: r.Priority, Action: r.Action,
		})

		switch r.Action.Type {
		case types.ActionOverride:
			if !overrideApplied {
				category = r.Action.TargetCategory
				overrideApplied = true
				eval.Overridden = true
			}
		case types.ActionAdjustConfidence:
			eval.ConfidenceAdjustmentTotal += r.Action.ConfidenceAdjustment
		case types.ActionFlagReview:
			eval.RequiresReview = true
		}
	}

	finalConfidence := clamp01(proposedConfidence + eval.ConfidenceAdjustmentTotal)
	return category, finalConfidence, eval, nil
}

func (e *Engine) programsFor(m types.DecisionMatrix) (map[string][]cel.Program, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if cached, ok := e.cache[m.Version]; ok {
		return cached, nil
	}

	byRule := make(map[string][]cel.Program, len(m.Rules))
	for _, r := range m.Rules {
		progs := make([]cel.Program, 0, len(r.Conditions))
		for _, c := range r.Conditions {
			prg, err := e.cel.compile(c)
			if err != nil {
				return nil, err
			}
			progs = append(progs, prg)
		}
		byRule[r.RuleID] = progs
	}

	e.cache[m.Version] = byRule
	return byRule, nil
}

// ruleTriggered evaluates r's conditions against attrs. A condition whose
// attribute value can't be compared the way the rule expects (spec §4.1
// fills a missing/unparseable attribute with the string "unknown", which a
// numeric or set comparison then rejects) is treated as not satisfied, not
// as a fatal error (spec §4.4: filter-and-warn, never fail a valid
// classification over an admin-authored rule mismatch).
func (e *Engine) ruleTriggered(programs []cel.Program, r types.Rule, attrs types.Attributes) bool {
	if len(r.Conditions) == 0 || len(programs) != len(r.Conditions) {
		return false
	}
	for i, c := range r.Conditions {
		ok, err := e.cel.evaluate(programs[i], attrs, c.Value)
		if err != nil {
			slog.Warn("matrix: condition evaluation type mismatch, treating as not satisfied",
				"rule_id", r.RuleID, "attribute", c.Attribute, "error", err)
			return false
		}
		if !ok {
			return false
		}
	}
	return true
}

func activeRulesByPriority(rules []types.Rule) []types.Rule {
	out := make([]types.Rule, 0, len(rules))
	for _, r := range rules {
		if r.Active {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority > out[j].Priority })
	return out
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
