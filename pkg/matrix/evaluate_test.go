package matrix

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/transclassify/pkg/types"
)

func sampleMatrix() types.DecisionMatrix {
	return types.DecisionMatrix{
		Version: "1.0",
		Attributes: []types.Attribute{
			{Name: "frequency", Type: types.AttributeCategorical, PossibleValues: []string{"daily", "monthly"}},
			{Name: "volume", Type: types.AttributeNumeric},
		},
		Rules: []types.Rule{
			{
				RuleID: "r-high-priority-override", Name: "override to RPA", Priority: 100, Active: true,
				Conditions: []types.Condition{{Attribute: "frequency", Operator: types.OpEq, Value: "daily"}},
				Action:     types.Action{Type: types.ActionOverride, TargetCategory: types.CategoryRPA},
			},
			{
				RuleID: "r-low-priority-override", Name: "override to Eliminate", Priority: 10, Active: true,
				Conditions: []types.Condition{{Attribute: "frequency", Operator: types.OpEq, Value: "daily"}},
				Action:     types.Action{Type: types.ActionOverride, TargetCategory: types.CategoryEliminate},
			},
			{
				RuleID: "r-adjust", Name: "boost confidence on high volume", Priority: 50, Active: true,
				Conditions: []types.Condition{{Attribute: "volume", Operator: types.OpGt, Value: 1000.0}},
				Action:     types.Action{Type: types.ActionAdjustConfidence, ConfidenceAdjustment: 0.1},
			},
			{
				RuleID: "r-inactive", Name: "inactive rule", Priority: 1000, Active: false,
				Conditions: []types.Condition{{Attribute: "frequency", Operator: types.OpEq, Value: "daily"}},
				Action:     types.Action{Type: types.ActionOverride, TargetCategory: types.CategoryAgenticAI},
			},
		},
	}
}

func TestEngineFirstOverrideWins(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)

	m := sampleMatrix()
	attrs := types.Attributes{"frequency": "daily", "volume": 2000.0}

	category, confidence, eval, err := engine.Evaluate(m, attrs, types.CategorySimplify, 0.8)
	require.NoError(t, err)

	assert.Equal(t, types.CategoryRPA, category)
	assert.InDelta(t, 0.9, confidence, 1e-9)
	assert.True(t, eval.Overridden)
	assert.Len(t, eval.TriggeredRules, 3) // both overrides + the adjustment; inactive rule never evaluated
}

func TestEngineNoRulesTriggered(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)

	m := sampleMatrix()
	attrs := types.Attributes{"frequency": "monthly", "volume": 5.0}

	category, confidence, eval, err := engine.Evaluate(m, attrs, types.CategoryDigitise, 0.7)
	require.NoError(t, err)

	assert.Equal(t, types.CategoryDigitise, category)
	assert.InDelta(t, 0.7, confidence, 1e-9)
	assert.False(t, eval.Overridden)
	assert.Empty(t, eval.TriggeredRules)
}

func TestEngineIdempotentAcrossCalls(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)

	m := sampleMatrix()
	attrs := types.Attributes{"frequency": "daily", "volume": 2000.0}

	cat1, conf1, eval1, err := engine.Evaluate(m, attrs, types.CategorySimplify, 0.8)
	require.NoError(t, err)
	cat2, conf2, eval2, err := engine.Evaluate(m, attrs, types.CategorySimplify, 0.8)
	require.NoError(t, err)

	assert.Equal(t, cat1, cat2)
	assert.Equal(t, conf1, conf2)
	assert.Equal(t, eval1, eval2)
}

func TestEngineFlagReviewRequiresReview(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)

	m := types.DecisionMatrix{
		Version:    "1.0",
		Attributes: []types.Attribute{{Name: "dataSensitivity", Type: types.AttributeCategorical, PossibleValues: []string{"confidential", "public"}}},
		Rules: []types.Rule{{
			RuleID: "r1", Name: "flag confidential", Priority: 10, Active: true,
			Conditions: []types.Condition{{Attribute: "dataSensitivity", Operator: types.OpEq, Value: "confidential"}},
			Action:     types.Action{Type: types.ActionFlagReview},
		}},
	}

	_, _, eval, err := engine.Evaluate(m, types.Attributes{"dataSensitivity": "confidential"}, types.CategoryRPA, 0.9)
	require.NoError(t, err)
	assert.True(t, eval.RequiresReview)
}

// TestEngineUnknownAttributeValueIsNotSatisfiedNotFatal covers spec §4.1's
// fallback of filling an unparseable attribute with the string "unknown":
// a numeric comparison against that string must not fail the whole
// evaluation, only fail to trigger (spec §4.4 filter-and-warn).
func TestEngineUnknownAttributeValueIsNotSatisfiedNotFatal(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)

	m := sampleMatrix()
	attrs := types.Attributes{"frequency": "monthly", "volume": "unknown"}

	category, confidence, eval, err := engine.Evaluate(m, attrs, types.CategoryDigitise, 0.7)
	require.NoError(t, err)

	assert.Equal(t, types.CategoryDigitise, category)
	assert.InDelta(t, 0.7, confidence, 1e-9)
	assert.Empty(t, eval.TriggeredRules)
}
