package hcl

import (
	"fmt"
	"regexp"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
)

// criterionType is the object produced by the criterion functions. Plain
// strings stay strings and mean "equal or glob".
var criterionType = cty.Object(map[string]cty.Type{
	"kind":    cty.String,
	"pattern": cty.String,
})

func criterionFunc(kind string, check func(string) error) function.Function {
	return function.New(&function.Spec{
		Description: fmt.Sprintf("Marks a file criterion as %s.", kind),
		Params:      []function.Parameter{{Name: "pattern", Type: cty.String}},
		Type:        function.StaticReturnType(criterionType),
		Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
			pattern := args[0].AsString()
			if check != nil {
				if err := check(pattern); err != nil {
					return cty.NilVal, err
				}
			}
			return cty.ObjectVal(map[string]cty.Value{
				"kind":    cty.StringVal(kind),
				"pattern": cty.StringVal(pattern),
			}), nil
		},
	})
}

func checkRegex(p string) error {
	_, err := regexp.Compile(p)
	return err
}

func checkGlob(p string) error {
	if !doublestar.ValidatePattern(p) {
		return fmt.Errorf("invalid glob pattern %q", p)
	}
	return nil
}

// newEvalContext returns the context criterion expressions are evaluated in.
func newEvalContext() *hcl.EvalContext {
	return &hcl.EvalContext{
		Functions: map[string]function.Function{
			"regex": criterionFunc("regex", checkRegex),
			"glob":  criterionFunc("glob", checkGlob),
			"exact": criterionFunc("exact", nil),
		},
	}
}
