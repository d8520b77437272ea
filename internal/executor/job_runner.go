package executor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/matrixci/internal/condition"
	"github.com/vk/matrixci/internal/ctxlog"
	"github.com/vk/matrixci/internal/model"
	"github.com/vk/matrixci/internal/planner"
	"github.com/vk/matrixci/internal/report"
)

// runJob executes one job's steps strictly in declared order and returns
// its final record. An unplannable job is reported without running; a
// canceled job stops scheduling steps at the next boundary.
func (e *Executor) runJob(ctx context.Context, ej *planner.ExecutableJob) *report.JobResult {
	logger := ctxlog.FromContext(ctx).With("job", ej.Job.Name)

	res := &report.JobResult{
		Name:     ej.Job.Name,
		State:    report.JobPending,
		Runtimes: ej.Runtimes,
	}
	if ej.Unplannable {
		res.State = report.JobUnplannable
		res.Diagnostic = ej.Diagnostic
		return res
	}

	res.State = report.JobRunning
	logger.Info("▶️ Starting job")

	matrixVals := make(map[string]string, len(ej.Job.Values)+len(ej.Job.Extra))
	for k, v := range ej.Job.Values {
		matrixVals[k] = v
	}
	for k, v := range ej.Job.Extra {
		matrixVals[k] = v
	}

	outcomes := make(map[string]report.StepState, len(ej.Steps))
	priorFatal := false
	canceled := false

	for _, step := range ej.Steps {
		sr := report.StepResult{
			Name:   step.Name,
			Action: step.Action,
			State:  report.StepPending,
		}
		cctx := condition.Context{
			Matrix:       matrixVals,
			Steps:        outcomes,
			Runtimes:     ej.Runtimes,
			Platform:     e.platform,
			PriorFailure: priorFatal,
		}

		switch {
		case canceled || ctx.Err() != nil:
			canceled = true
			skip(&sr, report.SkipCanceled)
		case step.Platform != "" && step.Platform != e.platform:
			skip(&sr, report.SkipPlatform)
		case priorFatal && !step.AlwaysRuns():
			skip(&sr, report.SkipPriorFailure)
		default:
			run := true
			if step.Condition != nil {
				ok, err := step.Condition.Evaluate(cctx)
				if err != nil {
					// Malformed conditions skip the step with a diagnostic,
					// never a crash.
					logger.Warn("Condition evaluation failed, skipping step.",
						"step", step.Name, "error", err)
					skip(&sr, report.SkipConditionError)
					sr.Error = err.Error()
					run = false
				} else if !ok {
					skip(&sr, report.SkipConditionFalse)
					run = false
				}
			}
			if run {
				e.executeStep(ctx, logger, &sr, step, cctx)
				if sr.State == report.StepFailed && step.Policy == model.PolicyFatal {
					priorFatal = true
				}
			}
		}

		outcomes[step.Name] = sr.State
		res.Steps = append(res.Steps, sr)
	}

	switch {
	case priorFatal:
		res.State = report.JobFailed
		logger.Error("🏁 Job failed")
	case canceled:
		res.State = report.JobCanceled
		logger.Warn("🏁 Job canceled")
	default:
		res.State = report.JobSucceeded
		logger.Info("🏁 Job succeeded")
	}
	return res
}

func skip(sr *report.StepResult, reason string) {
	sr.State = report.StepSkipped
	sr.Reason = reason
}

// executeStep resolves the step's arguments against the job context and
// delegates to the registered action. Argument resolution failures are
// classified like any other step failure, by the step's own policy.
func (e *Executor) executeStep(ctx context.Context, logger *slog.Logger, sr *report.StepResult, step *model.StepTemplate, cctx condition.Context) {
	sr.State = report.StepRunning
	logger.Info("▶️ Running step", "step", step.Name, "action", step.Action)
	start := time.Now()

	args, err := resolveArgs(step, cctx)
	var output any
	if err == nil {
		output, err = e.registry.Invoke(ctx, step.Action, args)
	}

	sr.DurationMS = time.Since(start).Milliseconds()
	sr.Output = output
	if err != nil {
		sr.State = report.StepFailed
		sr.Error = err.Error()
		logger.Error("❌ Step failed",
			"step", step.Name, "policy", string(step.Policy), "error", err)
		return
	}
	sr.State = report.StepSucceeded
	logger.Info("✅ Step succeeded", "step", step.Name)
}

func resolveArgs(step *model.StepTemplate, cctx condition.Context) (map[string]cty.Value, error) {
	evalCtx := cctx.EvalContext()
	args := make(map[string]cty.Value, len(step.Args)+1)
	for name, expr := range step.Args {
		val, diags := expr.Value(evalCtx)
		if diags.HasErrors() {
			return nil, fmt.Errorf("argument %q: %w", name, diags)
		}
		args[name] = val
	}

	// Step-level env merges in unless the arguments already set one.
	if len(step.Env) > 0 {
		if _, ok := args["env"]; !ok {
			env := make(map[string]cty.Value, len(step.Env))
			for k, v := range step.Env {
				env[k] = cty.StringVal(v)
			}
			args["env"] = cty.ObjectVal(env)
		}
	}
	return args, nil
}
