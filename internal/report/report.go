// Package report defines the shared vocabulary for pipeline outcomes: the
// per-step and per-job state machines and the structured run report that is
// rendered for external consumers.
package report

import (
	"encoding/json"
	"io"
)

// StepState is the lifecycle state of a single step within a job.
// Transitions: pending → {skipped, running → {succeeded, failed}}.
// Terminal states are final.
type StepState string

const (
	StepPending   StepState = "pending"
	StepRunning   StepState = "running"
	StepSucceeded StepState = "succeeded"
	StepFailed    StepState = "failed"
	StepSkipped   StepState = "skipped"
)

// JobState is the lifecycle state of a resolved job.
// Transitions: pending → running → {succeeded, failed}. A job the planner
// rejected is unplannable and never enters running; a job abandoned by a
// pipeline-wide abort is canceled.
type JobState string

const (
	JobPending     JobState = "pending"
	JobRunning     JobState = "running"
	JobSucceeded   JobState = "succeeded"
	JobFailed      JobState = "failed"
	JobUnplannable JobState = "unplannable"
	JobCanceled    JobState = "canceled"
)

// Skip reasons recorded alongside StepSkipped.
const (
	SkipConditionFalse = "condition evaluated to false"
	SkipConditionError = "condition evaluation error"
	SkipPriorFailure   = "prior fatal failure in job"
	SkipPlatform       = "platform guard mismatch"
	SkipCanceled       = "pipeline canceled"
)

// StepResult is the final record for one step of one job.
type StepResult struct {
	Name   string    `json:"name"`
	Action string    `json:"action"`
	State  StepState `json:"state"`
	// Reason explains a skip; empty for executed steps.
	Reason string `json:"reason,omitempty"`
	// Error carries the failure message for failed steps.
	Error string `json:"error,omitempty"`
	// Output is whatever the action handler returned, if anything.
	Output any `json:"output,omitempty"`
	// DurationMS is wall-clock execution time; zero for skipped steps.
	DurationMS int64 `json:"duration_ms,omitempty"`
}

// JobResult is the ordered step log and aggregate state for one job.
type JobResult struct {
	Name  string   `json:"name"`
	State JobState `json:"state"`
	// Runtimes maps a dimension name to the runtime identifier the planner
	// resolved for this job's value of that dimension.
	Runtimes map[string]string `json:"runtimes,omitempty"`
	// Diagnostic explains an unplannable job.
	Diagnostic string       `json:"diagnostic,omitempty"`
	Steps      []StepResult `json:"steps,omitempty"`
}

// PipelineResult aggregates every job of one pipeline run.
// Success is true iff no job ended in the failed state; tolerant-step
// failures and unplannable jobs do not flip it.
type PipelineResult struct {
	RunID   string       `json:"run_id"`
	Success bool         `json:"success"`
	Jobs    []*JobResult `json:"jobs"`
}

// Aggregate recomputes Success from the job states.
func (r *PipelineResult) Aggregate() {
	r.Success = true
	for _, job := range r.Jobs {
		if job.State == JobFailed {
			r.Success = false
			return
		}
	}
}

// Render writes the report as indented JSON.
func (r *PipelineResult) Render(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}
