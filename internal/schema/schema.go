// Package schema defines the decode structs for the HCL pipeline format.
package schema

import (
	"github.com/hashicorp/hcl/v2"
)

// PipelineBlock carries pipeline-wide switches.
type PipelineBlock struct {
	FailFast *bool `hcl:"fail_fast,optional"`
}

// DimensionBlock declares one matrix axis and its ordered value list.
type DimensionBlock struct {
	Name   string   `hcl:"name,label"`
	Values []string `hcl:"values"`
}

// RuleBlock is an `exclude` block. Its attributes are a partial assignment
// of dimension names, so the body is captured raw and read as attributes.
type RuleBlock struct {
	Body hcl.Body `hcl:",remain"`
}

// IncludeBlock is an `include` block: a partial assignment plus extra
// fields, split apart by the loader using the declared dimension names.
type IncludeBlock struct {
	Body hcl.Body `hcl:",remain"`
}

// RuntimeBlock maps one dimension's values to runtime identifiers.
type RuntimeBlock struct {
	Dimension string            `hcl:"dimension,label"`
	Map       map[string]string `hcl:"map"`
}

// ArgumentsBlock captures a step's action arguments unevaluated; they are
// resolved per job against that job's evaluation context.
type ArgumentsBlock struct {
	Body hcl.Body `hcl:",remain"`
}

// StepBlock is one `step "<action>" "<name>"` declaration.
type StepBlock struct {
	Action    string            `hcl:"action,label"`
	Name      string            `hcl:"name,label"`
	Condition hcl.Expression    `hcl:"condition,optional"`
	OnFailure string            `hcl:"on_failure,optional"`
	Platform  string            `hcl:"platform,optional"`
	Env       map[string]string `hcl:"env,optional"`
	Arguments *ArgumentsBlock   `hcl:"arguments,block"`
}

// PipelineFile is the top-level structure of one HCL pipeline document.
type PipelineFile struct {
	Pipeline   *PipelineBlock    `hcl:"pipeline,block"`
	Dimensions []*DimensionBlock `hcl:"dimension,block"`
	Excludes   []*RuleBlock      `hcl:"exclude,block"`
	Includes   []*IncludeBlock   `hcl:"include,block"`
	Runtimes   []*RuntimeBlock   `hcl:"runtime,block"`
	Steps      []*StepBlock      `hcl:"step,block"`
}
