package matrix

import (
	"fmt"
	"strings"

	"github.com/codeready-toolchain/transclassify/pkg/types"
)

// BuildGenerationPrompt composes the admin "generate matrix from scratch"
// prompt (spec §4.4): it enumerates every legal attribute name, operator,
// and category with explicit negative examples, so a response that
// follows these instructions can only reference things Sanitize would
// keep anyway.
func BuildGenerationPrompt(attributes []types.Attribute) string {
	var b strings.Builder
	b.WriteString("Generate a decision matrix as JSON. Only use the attributes and operators ")
	b.WriteString("listed below; any rule referencing anything else will be dropped before it ")
	b.WriteString("ever takes effect.\n\nAttributes:\n")
	for _, a := range attributes {
		fmt.Fprintf(&b, "- %s (%s)", a.Name, a.Type)
		if a.Type == types.AttributeCategorical {
			fmt.Fprintf(&b, " possible values: %s", strings.Join(a.PossibleValues, ", "))
		}
		b.WriteString("\n")
	}

	b.WriteString("\nOperators: ==, !=, >, <, >=, <=, in, not_in (in/not_in take a list value).\n")
	b.WriteString("\nValid categories for action.targetCategory (always a single string, never a list): ")
	for i, c := range types.AllCategories {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(string(c))
	}
	b.WriteString(".\n\nINVALID example (do not do this): ")
	b.WriteString(`{"attribute": "urgency", "operator": "==", "value": "high"}`)
	b.WriteString(" — \"urgency\" is not a declared attribute.\n")
	b.WriteString("INVALID example (do not do this): ")
	b.WriteString(`{"type": "override", "targetCategory": ["RPA", "Digitise"]}`)
	b.WriteString(" — targetCategory must be a single string, not a list.\n")
	return b.String()
}
