package matrix

import (
	"encoding/json"
	"fmt"

	"github.com/codeready-toolchain/transclassify/pkg/types"
)

// rawAction mirrors types.Action but leaves TargetCategory as raw JSON so
// ParseRaw can detect and coerce the array-vs-scalar failure mode an
// LLM-authored matrix occasionally produces (spec §4.4, §9) before the
// typed Sanitize pass runs.
type rawAction struct {
	Type                 types.ActionType `json:"type"`
	TargetCategory       json.RawMessage  `json:"targetCategory,omitempty"`
	ConfidenceAdjustment float64          `json:"confidenceAdjustment,omitempty"`
	Rationale            string           `json:"rationale,omitempty"`
}

type rawRule struct {
	RuleID      string            `json:"ruleId"`
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Priority    int               `json:"priority"`
	Active      bool              `json:"active"`
	Conditions  []types.Condition `json:"conditions"`
	Action      rawAction         `json:"action"`
}

type rawMatrix struct {
	Version    string            `json:"version,omitempty"`
	Attributes []types.Attribute `json:"attributes"`
	Rules      []rawRule         `json:"rules"`
}

// ParseRaw decodes raw JSON (LLM-generated or admin-submitted) into a
// DecisionMatrix, coercing an array-valued targetCategory to its first
// element and recording a warning when it does so. The returned matrix is
// not yet sanitized — callers must still run Sanitize.
func ParseRaw(raw []byte) (types.DecisionMatrix, []string, error) {
	var rm rawMatrix
	if err := json.Unmarshal(raw, &rm); err != nil {
		return types.DecisionMatrix{}, nil, fmt.Errorf("matrix: parse: %w", err)
	}

	var warnings []string
	rules := make([]types.Rule, 0, len(rm.Rules))
	for _, r := range rm.Rules {
		action, warn := coerceTargetCategory(r.Action, r.RuleID)
		if warn != "" {
			warnings = append(warnings, warn)
		}
		rules = append(rules, types.Rule{
			RuleID:      r.RuleID,
			Name:        r.Name,
			Description: r.Description,
			Priority:    r.Priority,
			Active:      r.Active,
			Conditions:  r.Conditions,
			Action:      action,
		})
	}

	return types.DecisionMatrix{Version: rm.Version, Attributes: rm.Attributes, Rules: rules}, warnings, nil
}

func coerceTargetCategory(ra rawAction, ruleID string) (types.Action, string) {
	action := types.Action{
		Type:                 ra.Type,
		ConfidenceAdjustment: ra.ConfidenceAdjustment,
		Rationale:            ra.Rationale,
	}
	if len(ra.TargetCategory) == 0 {
		return action, ""
	}

	var asString string
	if err := json.Unmarshal(ra.TargetCategory, &asString); err == nil {
		action.TargetCategory = types.Category(asString)
		return action, ""
	}

	var asList []string
	if err := json.Unmarshal(ra.TargetCategory, &asList); err == nil {
		if len(asList) > 0 {
			action.TargetCategory = types.Category(asList[0])
		}
		return action, fmt.Sprintf("rule %q: targetCategory arrived as array %v, coerced to %q", ruleID, asList, action.TargetCategory)
	}

	return action, fmt.Sprintf("rule %q: targetCategory had an unparseable shape, left empty", ruleID)
}
