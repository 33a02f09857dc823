package matrix

import (
	"fmt"

	"github.com/codeready-toolchain/transclassify/pkg/types"
)

// SanitizeResult is the outcome of validating one DecisionMatrix: the
// matrix with invalid fragments dropped, plus a human-readable warning per
// drop or coercion (spec §4.4: filter-and-warn, never fail-closed).
type SanitizeResult struct {
	Matrix   types.DecisionMatrix
	Warnings []string
}

// Sanitize validates m against spec §3/§4.4's invariants: condition
// attributes must reference a declared attribute, categorical values must
// be in possibleValues, priority/weight are clamped into range, and rules
// left with zero valid conditions or an invalid action are dropped
// entirely. It never fails outright — the caller (Service.Load/Save)
// decides whether the survivors are usable.
func Sanitize(m types.DecisionMatrix) SanitizeResult {
	var warnings []string

	validAttrs := make(map[string]types.Attribute, len(m.Attributes))
	cleanedAttrs := make([]types.Attribute, 0, len(m.Attributes))
	for _, a := range m.Attributes {
		if a.Name == "" {
			warnings = append(warnings, "dropped attribute with empty name")
			continue
		}
		a.Weight = clamp(a.Weight, 0, 1)
		cleanedAttrs = append(cleanedAttrs, a)
		validAttrs[a.Name] = a
	}

	cleanedRules := make([]types.Rule, 0, len(m.Rules))
	for _, r := range m.Rules {
		rule, ruleWarnings, ok := sanitizeRule(r, validAttrs)
		warnings = append(warnings, ruleWarnings...)
		if ok {
			cleanedRules = append(cleanedRules, rule)
		}
	}

	return SanitizeResult{
		Matrix:   types.DecisionMatrix{Version: m.Version, Attributes: cleanedAttrs, Rules: cleanedRules},
		Warnings: warnings,
	}
}

func sanitizeRule(r types.Rule, validAttrs map[string]types.Attribute) (types.Rule, []string, bool) {
	var warnings []string

	if r.Name == "" {
		return types.Rule{}, []string{fmt.Sprintf("dropped rule %q: empty name", r.RuleID)}, false
	}
	r.Priority = int(clamp(float64(r.Priority), 0, 100))

	cleanedConds := make([]types.Condition, 0, len(r.Conditions))
	for _, c := range r.Conditions {
		cond, ok, warn := sanitizeCondition(c, validAttrs)
		if warn != "" {
			warnings = append(warnings, warn)
		}
		if ok {
			cleanedConds = append(cleanedConds, cond)
		}
	}
	if len(cleanedConds) == 0 {
		warnings = append(warnings, fmt.Sprintf("dropped rule %q (%s): zero valid conditions after sanitization", r.RuleID, r.Name))
		return types.Rule{}, warnings, false
	}
	r.Conditions = cleanedConds

	action, actionWarnings, ok := sanitizeAction(r.Action)
	warnings = append(warnings, actionWarnings...)
	if !ok {
		warnings = append(warnings, fmt.Sprintf("dropped rule %q (%s): invalid action", r.RuleID, r.Name))
		return types.Rule{}, warnings, false
	}
	r.Action = action

	return r, warnings, true
}

func sanitizeCondition(c types.Condition, validAttrs map[string]types.Attribute) (types.Condition, bool, string) {
	attr, ok := validAttrs[c.Attribute]
	if !ok {
		return types.Condition{}, false, fmt.Sprintf("dropped condition: unknown attribute %q", c.Attribute)
	}
	if attr.Type != types.AttributeCategorical {
		return c, true, ""
	}

	allowed := make(map[string]bool, len(attr.PossibleValues))
	for _, v := range attr.PossibleValues {
		allowed[v] = true
	}

	if c.Operator.IsListOperator() {
		values, ok := c.Value.([]any)
		if !ok {
			return types.Condition{}, false, fmt.Sprintf("dropped condition on %q: operator %s requires a list value", c.Attribute, c.Operator)
		}
		kept := make([]any, 0, len(values))
		for _, v := range values {
			s, isStr := v.(string)
			if !isStr || !allowed[s] {
				return types.Condition{}, false, fmt.Sprintf("dropped condition on %q: value %v not in possibleValues", c.Attribute, v)
			}
			kept = append(kept, v)
		}
		c.Value = kept
		return c, true, ""
	}

	s, isStr := c.Value.(string)
	if !isStr || !allowed[s] {
		return types.Condition{}, false, fmt.Sprintf("dropped condition on %q: value %v not in possibleValues", c.Attribute, c.Value)
	}
	return c, true, ""
}

func sanitizeAction(a types.Action) (types.Action, []string, bool) {
	var warnings []string

	switch a.Type {
	case types.ActionOverride:
		if !a.TargetCategory.IsValid() {
			warnings = append(warnings, fmt.Sprintf("invalid targetCategory %q", a.TargetCategory))
			return types.Action{}, warnings, false
		}
	case types.ActionAdjustConfidence:
		a.ConfidenceAdjustment = clamp(a.ConfidenceAdjustment, -1, 1)
	case types.ActionFlagReview:
		// no scalar fields to sanitize
	default:
		warnings = append(warnings, fmt.Sprintf("unknown action type %q", a.Type))
		return types.Action{}, warnings, false
	}
	return a, warnings, true
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
