// Package planner turns resolved matrix jobs into executable jobs by
// attaching the concrete execution context: the runtime identifiers looked
// up from the declared runtime tables and the shared step sequence. A job
// whose runtime cannot be resolved is flagged unplannable and excluded from
// execution with a diagnostic; it never aborts the rest of the pipeline.
package planner

import (
	"context"
	"fmt"

	"github.com/vk/matrixci/internal/ctxlog"
	"github.com/vk/matrixci/internal/matrix"
	"github.com/vk/matrixci/internal/model"
)

// ExecutableJob is one planned job: the resolved combination plus
// everything the executor needs to run its steps.
type ExecutableJob struct {
	Job *matrix.Job
	// Runtimes maps dimension name to the runtime identifier resolved for
	// this job's value of that dimension.
	Runtimes map[string]string
	// Steps is the pipeline's declared step sequence. It is shared across
	// jobs and must not be mutated.
	Steps []*model.StepTemplate
	// Unplannable marks a job whose required runtime identifier could not
	// be resolved; Diagnostic explains why.
	Unplannable bool
	Diagnostic  string
}

// Plan builds the executable job list in the resolver's order. Runtime
// lookup rules: a job that does not carry a table's dimension at all (a
// partial include-synthesized job) is planned without that runtime; a job
// whose value for the dimension has no table entry is unplannable.
func Plan(ctx context.Context, doc *model.Document, jobs []*matrix.Job) []*ExecutableJob {
	logger := ctxlog.FromContext(ctx)

	planned := make([]*ExecutableJob, 0, len(jobs))
	for _, job := range jobs {
		ej := &ExecutableJob{
			Job:      job,
			Runtimes: map[string]string{},
			Steps:    doc.Steps,
		}

		for _, table := range doc.Runtimes {
			value, ok := job.Values[table.Dimension]
			if !ok {
				continue
			}
			id, ok := table.Map[value]
			if !ok {
				ej.Unplannable = true
				ej.Diagnostic = fmt.Sprintf(
					"no runtime identifier for %s=%q", table.Dimension, value)
				logger.Warn("Job is unplannable and will be skipped.",
					"job", job.Name, "diagnostic", ej.Diagnostic)
				break
			}
			ej.Runtimes[table.Dimension] = id
		}

		planned = append(planned, ej)
	}

	logger.Debug("Planning complete.", "jobs", len(planned))
	return planned
}
