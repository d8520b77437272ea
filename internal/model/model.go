// Package model holds the format-agnostic pipeline document. Both the HCL
// and the YAML front-ends in internal/loader normalize into these records,
// and everything downstream (resolver, planner, executor) consumes only
// them, never the source syntax.
package model

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"

	"github.com/vk/matrixci/internal/condition"
	"github.com/vk/matrixci/internal/matrix"
)

// FailurePolicy classifies how a step failure propagates within its job.
type FailurePolicy string

const (
	// PolicyFatal stops subsequent steps and marks the job failed.
	PolicyFatal FailurePolicy = "fatal"
	// PolicyTolerant records the failure but lets execution continue.
	PolicyTolerant FailurePolicy = "tolerant"
)

// ParsePolicy maps a document string to a FailurePolicy. The empty string
// defaults to fatal, matching the common CI expectation that a failing step
// breaks the build unless the author opted out.
func ParsePolicy(s string) (FailurePolicy, error) {
	switch s {
	case "", string(PolicyFatal):
		return PolicyFatal, nil
	case string(PolicyTolerant):
		return PolicyTolerant, nil
	default:
		return "", fmt.Errorf("invalid failure policy %q: must be %q or %q", s, PolicyFatal, PolicyTolerant)
	}
}

// RuntimeTable maps one dimension's values to concrete runtime identifiers,
// e.g. ver "3.12" → "python-3.12". The planner consults it per job.
type RuntimeTable struct {
	Dimension string
	Map       map[string]string
}

// StepTemplate is one ordered unit of work, declared once per pipeline and
// instantiated for every resolved job.
type StepTemplate struct {
	// Action names the registered action handler that performs the work.
	Action string
	// Name identifies the step within the job; prior outcomes are exposed
	// to conditions under it.
	Name string
	// Condition gates execution; nil means "run unless a prior step in this
	// job had an unrecovered failure".
	Condition *condition.Condition
	// Policy is the step's failure-tolerance classification.
	Policy FailurePolicy
	// Platform, when set, restricts the step to hosts whose platform matches.
	Platform string
	// Args holds the unevaluated argument expressions, resolved per job
	// against that job's evaluation context.
	Args map[string]hcl.Expression
	// Env is extra process environment for the action.
	Env map[string]string
}

// AlwaysRuns reports whether this step's condition requests execution even
// after a prior fatal failure in the job.
func (s *StepTemplate) AlwaysRuns() bool {
	return s.Condition != nil && s.Condition.AlwaysRuns()
}

// Document is a fully loaded pipeline declaration.
type Document struct {
	// FailFast, when set, requests cancellation of all still-pending jobs
	// as soon as any job fails.
	FailFast bool

	Dimensions []matrix.Dimension
	Excludes   []matrix.Rule
	Includes   []matrix.IncludeRule
	Runtimes   []RuntimeTable
	Steps      []*StepTemplate
}

// Validate checks the cross-document invariants the loaders cannot see
// locally: unique step names and non-empty action identifiers.
func (d *Document) Validate() error {
	names := make(map[string]bool, len(d.Steps))
	for _, step := range d.Steps {
		if step.Action == "" {
			return fmt.Errorf("step %q has no action", step.Name)
		}
		if step.Name == "" {
			return fmt.Errorf("step using action %q has no name", step.Action)
		}
		if names[step.Name] {
			return fmt.Errorf("step name %q declared more than once", step.Name)
		}
		names[step.Name] = true
	}
	return nil
}
