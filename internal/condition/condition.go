// Package condition evaluates step conditions: boolean HCL expressions over
// a job's context. A condition sees the job's matrix values and extra fields,
// the outcomes of previously completed steps in the same job, the resolved
// runtime identifiers, and the ambient platform. Evaluation is a pure
// function of the context; it has no side effects.
package condition

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"

	"github.com/vk/matrixci/internal/report"
)

// Condition wraps a parsed boolean expression from a pipeline document.
// The zero value is invalid; use FromExpr or ParseString.
type Condition struct {
	expr hcl.Expression
}

// FromExpr wraps an already-decoded HCL expression, as produced by the HCL
// document front-end. Returns nil for a nil expression so that absent
// condition attributes decode to an absent Condition.
func FromExpr(expr hcl.Expression) *Condition {
	if expr == nil {
		return nil
	}
	return &Condition{expr: expr}
}

// ParseString parses a condition from its string form, as used by the YAML
// document front-end. The filename is only used in diagnostics.
func ParseString(src, filename string) (*Condition, error) {
	expr, diags := hclsyntax.ParseExpression([]byte(src), filename, hcl.InitialPos)
	if diags.HasErrors() {
		return nil, fmt.Errorf("invalid condition %q: %w", src, diags)
	}
	return &Condition{expr: expr}, nil
}

// Context is the data a condition may reference.
type Context struct {
	// Matrix holds the job's dimension values merged with its extra fields.
	Matrix map[string]string
	// Steps maps the names of previously completed steps in this job to
	// their final states.
	Steps map[string]report.StepState
	// Runtimes maps dimension names to the runtime identifiers the planner
	// resolved for this job.
	Runtimes map[string]string
	// Platform is the ambient host platform, e.g. "linux".
	Platform string
	// PriorFailure is true once an earlier fatal-policy step in this job
	// has failed.
	PriorFailure bool
}

// Evaluate resolves the expression against the context and returns the
// boolean result. A malformed expression or a non-boolean result is an
// error; the executor treats that as false plus a diagnostic, never a crash.
func (c *Condition) Evaluate(cctx Context) (bool, error) {
	val, diags := c.expr.Value(cctx.EvalContext())
	if diags.HasErrors() {
		return false, fmt.Errorf("condition evaluation: %w", diags)
	}
	if val.IsNull() || !val.IsKnown() {
		return false, fmt.Errorf("condition evaluation: result is not a known boolean")
	}
	if val.Type() != ctyBool {
		return false, fmt.Errorf("condition evaluation: result is %s, want bool", val.Type().FriendlyName())
	}
	return val.True(), nil
}

// AlwaysRuns reports whether the expression calls always(), the explicit
// override that requests execution even after a prior fatal failure in the
// job. Cleanup and reporting steps use it.
func (c *Condition) AlwaysRuns() bool {
	syntaxExpr, ok := c.expr.(hclsyntax.Expression)
	if !ok {
		return false
	}
	finder := &funcCallFinder{name: "always"}
	hclsyntax.Walk(syntaxExpr, finder)
	return finder.found
}

// funcCallFinder walks an expression AST looking for a call to one function.
type funcCallFinder struct {
	name  string
	found bool
}

func (f *funcCallFinder) Enter(node hclsyntax.Node) hcl.Diagnostics {
	if call, ok := node.(*hclsyntax.FunctionCallExpr); ok && call.Name == f.name {
		f.found = true
	}
	return nil
}

func (f *funcCallFinder) Exit(node hclsyntax.Node) hcl.Diagnostics {
	return nil
}
