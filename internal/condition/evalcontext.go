package condition

import (
	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"

	"github.com/vk/matrixci/internal/report"
)

var ctyBool = cty.Bool

// EvalContext builds the HCL evaluation scope for this context. The same
// scope backs condition evaluation and per-job argument resolution, so step
// arguments may interpolate matrix values exactly like conditions reference
// them.
//
// Variables: matrix.<name>, steps.<step>.outcome, runtime.<dimension>,
// platform. Functions: always(), success(), failure().
func (c Context) EvalContext() *hcl.EvalContext {
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"matrix":   stringMapVal(c.Matrix),
			"runtime":  stringMapVal(c.Runtimes),
			"platform": cty.StringVal(c.Platform),
			"steps":    stepsVal(c.Steps),
		},
		Functions: map[string]function.Function{
			// always() requests execution even after a prior fatal failure;
			// the executor additionally detects it via AlwaysRuns.
			"always": constBoolFunc(true),
			// success() is true while no fatal-policy step has failed.
			"success": constBoolFunc(!c.PriorFailure),
			// failure() is true once a fatal-policy step has failed.
			"failure": constBoolFunc(c.PriorFailure),
		},
	}
}

func stringMapVal(m map[string]string) cty.Value {
	if len(m) == 0 {
		return cty.EmptyObjectVal
	}
	vals := make(map[string]cty.Value, len(m))
	for k, v := range m {
		vals[k] = cty.StringVal(v)
	}
	return cty.ObjectVal(vals)
}

func stepsVal(steps map[string]report.StepState) cty.Value {
	if len(steps) == 0 {
		return cty.EmptyObjectVal
	}
	vals := make(map[string]cty.Value, len(steps))
	for name, state := range steps {
		vals[name] = cty.ObjectVal(map[string]cty.Value{
			"outcome": cty.StringVal(string(state)),
		})
	}
	return cty.ObjectVal(vals)
}

func constBoolFunc(result bool) function.Function {
	return function.New(&function.Spec{
		Type: function.StaticReturnType(cty.Bool),
		Impl: func(args []cty.Value, retType cty.Type) (cty.Value, error) {
			return cty.BoolVal(result), nil
		},
	})
}
