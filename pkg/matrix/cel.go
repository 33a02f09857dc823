package matrix

import (
	"fmt"

	"github.com/google/cel-go/cel"

	"github.com/codeready-toolchain/transclassify/pkg/types"
)

// celEvaluator compiles decision-matrix conditions into CEL programs and
// evaluates them against extracted attributes, following the
// compile-once/evaluate-many discipline of vishprometa-agent-warden's
// policy.CELEvaluator. A condition's comparison value is never
// interpolated into the expression string — it is bound at evaluation time
// through the "value" variable, so a malformed or adversarial attribute
// value can never change what the expression means.
type celEvaluator struct {
	env *cel.Env
}

func newCELEvaluator() (*celEvaluator, error) {
	env, err := cel.NewEnv(
		cel.Variable("attrs", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("value", cel.DynType),
	)
	if err != nil {
		return nil, fmt.Errorf("matrix: create CEL environment: %w", err)
	}
	return &celEvaluator{env: env}, nil
}

func (e *celEvaluator) compile(c types.Condition) (cel.Program, error) {
	expr, err := conditionExpr(c)
	if err != nil {
		return nil, err
	}

	ast, issues := e.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("matrix: compile condition on %q: %w", c.Attribute, issues.Err())
	}
	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("matrix: condition on %q does not evaluate to bool", c.Attribute)
	}

	prg, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("matrix: build program for %q: %w", c.Attribute, err)
	}
	return prg, nil
}

func conditionExpr(c types.Condition) (string, error) {
	ref := fmt.Sprintf("attrs[%q]", c.Attribute)
	switch c.Operator {
	case types.OpEq:
		return ref + " == value", nil
	case types.OpNeq:
		return ref + " != value", nil
	case types.OpGt:
		return ref + " > value", nil
	case types.OpLt:
		return ref + " < value", nil
	case types.OpGte:
		return ref + " >= value", nil
	case types.OpLte:
		return ref + " <= value", nil
	case types.OpIn:
		return ref + " in value", nil
	case types.OpNotIn:
		return "!(" + ref + " in value)", nil
	default:
		return "", fmt.Errorf("matrix: unknown operator %q", c.Operator)
	}
}

func (e *celEvaluator) evaluate(prg cel.Program, attrs types.Attributes, value any) (bool, error) {
	vars := map[string]any{
		"attrs": map[string]any(attrs),
		"value": value,
	}
	out, _, err := prg.Eval(vars)
	if err != nil {
		return false, fmt.Errorf("matrix: evaluate condition: %w", err)
	}
	b, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("matrix: condition evaluated to non-bool %T", out.Value())
	}
	return b, nil
}
