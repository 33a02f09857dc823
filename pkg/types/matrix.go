package types

// Attribute describes one field that rule conditions can reference.
type Attribute struct {
	Name           string        `json:"name"`
	Type           AttributeType `json:"type"`
	PossibleValues []string      `json:"possibleValues,omitempty"`
	Weight         float64       `json:"weight"`
	Description    string        `json:"description,omitempty"`
}

// Condition is one AND-ed predicate within a Rule.
type Condition struct {
	Attribute string            `json:"attribute"`
	Operator  ConditionOperator `json:"operator"`
	// Value is a scalar for comparison operators and a []any for in/not_in.
	Value any `json:"value"`
}

// Action is the effect a triggered rule has on the classification
// accumulator. Exactly one of the Target*/Adjustment/none fields is
// meaningful, selected by Type.
type Action struct {
	Type                 ActionType `json:"type"`
	TargetCategory       Category   `json:"targetCategory,omitempty"`
	ConfidenceAdjustment float64    `json:"confidenceAdjustment,omitempty"`
	Rationale            string     `json:"rationale,omitempty"`
}

// Rule is one row of the decision matrix.
type Rule struct {
	RuleID      string      `json:"ruleId"`
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Priority    int         `json:"priority"`
	Active      bool        `json:"active"`
	Conditions  []Condition `json:"conditions"`
	Action      Action      `json:"action"`
}

// DecisionMatrix is a single immutable version of the admin-editable rule
// set. Identified by Version within pkg/contentstore.
type DecisionMatrix struct {
	Version    string      `json:"version"`
	Attributes []Attribute `json:"attributes"`
	Rules      []Rule      `json:"rules"`
}

// AttributeByName returns the attribute with the given name, if present.
func (m *DecisionMatrix) AttributeByName(name string) (Attribute, bool) {
	for _, a := range m.Attributes {
		if a.Name == name {
			return a, true
		}
	}
	return Attribute{}, false
}

// TriggeredRule is one entry of MatrixEvaluation.TriggeredRules.
type TriggeredRule struct {
	RuleID   string `json:"ruleId"`
	RuleName string `json:"ruleName"`
	Priority int    `json:"priority"`
	Action   Action `json:"action"`
}

// MatrixEvaluation records which rules fired against a particular set of
// attributes and what they did to the classification.
type MatrixEvaluation struct {
	MatrixVersion               string          `json:"matrixVersion"`
	TriggeredRules               []TriggeredRule `json:"triggeredRules"`
	Overridden                   bool            `json:"overridden"`
	ConfidenceAdjustmentTotal    float64         `json:"confidenceAdjustmentTotal"`
	RequiresReview               bool            `json:"requiresReview"`
}
