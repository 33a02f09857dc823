package matrix

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/transclassify/pkg/types"
)

func TestSanitizeDropsUnknownAttributeCondition(t *testing.T) {
	m := types.DecisionMatrix{
		Attributes: []types.Attribute{{Name: "frequency", Type: types.AttributeCategorical, PossibleValues: []string{"daily", "weekly"}}},
		Rules: []types.Rule{{
			RuleID: "r1", Name: "unknown attr", Priority: 10, Active: true,
			Conditions: []types.Condition{{Attribute: "urgency", Operator: types.OpEq, Value: "high"}},
			Action:     types.Action{Type: types.ActionFlagReview},
		}},
	}

	result := Sanitize(m)
	require.Len(t, result.Matrix.Rules, 0)
	assert.NotEmpty(t, result.Warnings)
}

func TestSanitizeCoercesOutOfRangeValues(t *testing.T) {
	m := types.DecisionMatrix{
		Attributes: []types.Attribute{{Name: "volume", Type: types.AttributeNumeric, Weight: 5}},
		Rules: []types.Rule{{
			RuleID: "r1", Name: "high volume", Priority: 999, Active: true,
			Conditions: []types.Condition{{Attribute: "volume", Operator: types.OpGt, Value: 100.0}},
			Action:     types.Action{Type: types.ActionAdjustConfidence, ConfidenceAdjustment: 5},
		}},
	}

	result := Sanitize(m)
	require.Len(t, result.Matrix.Rules, 1)
	assert.Equal(t, 100, result.Matrix.Rules[0].Priority)
	assert.Equal(t, 1.0, result.Matrix.Rules[0].Action.ConfidenceAdjustment)
	assert.Equal(t, 1.0, result.Matrix.Attributes[0].Weight)
}

func TestSanitizeRejectsCategoricalValueNotInPossibleValues(t *testing.T) {
	m := types.DecisionMatrix{
		Attributes: []types.Attribute{{Name: "frequency", Type: types.AttributeCategorical, PossibleValues: []string{"daily", "weekly"}}},
		Rules: []types.Rule{{
			RuleID: "r1", Name: "bad value", Priority: 10, Active: true,
			Conditions: []types.Condition{{Attribute: "frequency", Operator: types.OpEq, Value: "hourly"}},
			Action:     types.Action{Type: types.ActionFlagReview},
		}},
	}

	result := Sanitize(m)
	require.Len(t, result.Matrix.Rules, 0)
}

func TestSanitizeDropsInvalidTargetCategory(t *testing.T) {
	m := types.DecisionMatrix{
		Attributes: []types.Attribute{{Name: "frequency", Type: types.AttributeCategorical, PossibleValues: []string{"daily"}}},
		Rules: []types.Rule{{
			RuleID: "r1", Name: "bad override", Priority: 10, Active: true,
			Conditions: []types.Condition{{Attribute: "frequency", Operator: types.OpEq, Value: "daily"}},
			Action:     types.Action{Type: types.ActionOverride, TargetCategory: "Not A Category"},
		}},
	}

	result := Sanitize(m)
	require.Len(t, result.Matrix.Rules, 0)
}

func TestParseRawCoercesArrayTargetCategory(t *testing.T) {
	raw := []byte(`{
		"attributes": [{"name": "frequency", "type": "categorical", "possibleValues": ["daily"]}],
		"rules": [{
			"ruleId": "r1", "name": "bad array", "priority": 10, "active": true,
			"conditions": [{"attribute": "frequency", "operator": "==", "value": "daily"}],
			"action": {"type": "override", "targetCategory": ["RPA", "Digitise"]}
		}]
	}`)

	m, warnings, err := ParseRaw(raw)
	require.NoError(t, err)
	require.Len(t, m.Rules, 1)
	assert.Equal(t, types.Category("RPA"), m.Rules[0].Action.TargetCategory)
	assert.NotEmpty(t, warnings)
}
