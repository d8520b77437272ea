// Package executor runs planned jobs. Jobs are mutually independent and run
// concurrently on a worker pool; within one job, steps run strictly in
// declared order. Cancellation is cooperative: it is checked only at step
// boundaries so that a running step always finishes cleanly.
package executor

import (
	"context"
	"runtime"
	"sync"

	"github.com/vk/matrixci/internal/ctxlog"
	"github.com/vk/matrixci/internal/planner"
	"github.com/vk/matrixci/internal/registry"
	"github.com/vk/matrixci/internal/report"
)

// Executor executes planned jobs against an action registry.
type Executor struct {
	registry *registry.Registry
	workers  int
	failFast bool
	platform string
}

// New creates an Executor. Zero workers defaults to one; an empty platform
// defaults to the host OS.
func New(reg *registry.Registry, workers int, failFast bool, platform string) *Executor {
	if workers < 1 {
		workers = 1
	}
	if platform == "" {
		platform = runtime.GOOS
	}
	return &Executor{
		registry: reg,
		workers:  workers,
		failFast: failFast,
		platform: platform,
	}
}

// Run executes every job and returns the aggregate result. Failures are
// contained to their job; Run itself never aborts early except through
// fail-fast cancellation, which stops scheduling further steps on pending
// jobs (best-effort, not preemptive).
func (e *Executor) Run(ctx context.Context, jobs []*planner.ExecutableJob) *report.PipelineResult {
	logger := ctxlog.FromContext(ctx)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make([]*report.JobResult, len(jobs))
	indexCh := make(chan int)
	var wg sync.WaitGroup

	workers := e.workers
	if workers > len(jobs) {
		workers = len(jobs)
	}
	if workers < 1 {
		workers = 1
	}

	logger.Info("🚀 Starting job execution",
		"jobs", len(jobs), "workers", workers, "fail_fast", e.failFast)

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			workerLogger := logger.With("workerID", workerID)
			for i := range indexCh {
				workerLogger.Debug("Worker picked up job.", "job", jobs[i].Job.Name)
				res := e.runJob(ctxlog.WithLogger(runCtx, workerLogger), jobs[i])
				if res.State == report.JobFailed && e.failFast {
					workerLogger.Warn("Job failed with fail_fast enabled, canceling pending jobs.",
						"job", res.Name)
					cancel()
				}
				results[i] = res
			}
		}(w)
	}

	for i := range jobs {
		indexCh <- i
	}
	close(indexCh)
	wg.Wait()

	result := &report.PipelineResult{Jobs: results}
	result.Aggregate()
	if result.Success {
		logger.Info("🏁 All jobs completed.", "jobs", len(jobs))
	} else {
		logger.Error("🏁 Execution finished with failures.", "jobs", len(jobs))
	}
	return result
}
