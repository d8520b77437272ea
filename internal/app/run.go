package app

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/vk/matrixci/internal/ctxlog"
	"github.com/vk/matrixci/internal/executor"
	"github.com/vk/matrixci/internal/matrix"
	"github.com/vk/matrixci/internal/planner"
	"github.com/vk/matrixci/internal/report"
)

// Run resolves the matrix, plans the jobs, executes them, and renders the
// run report. It returns an error iff the aggregate pipeline result is a
// failure, so the CLI can map it to a non-zero exit code.
func (a *App) Run(ctx context.Context) error {
	runID := uuid.NewString()
	logger := a.logger.With("runID", runID)
	ctx = ctxlog.WithLogger(ctx, logger)
	logger.Debug("App.Run method started.")

	if a.config.HealthcheckPort > 0 {
		go a.startHealthcheckServer(ctx, a.config.HealthcheckPort)
	}

	jobs, err := matrix.Resolve(a.doc.Dimensions, a.doc.Excludes, a.doc.Includes)
	if err != nil {
		return fmt.Errorf("failed to resolve matrix: %w", err)
	}
	logger.Info("Matrix resolved.", "jobs", len(jobs))

	planned := planner.Plan(ctx, a.doc, jobs)
	if len(planned) == 0 {
		logger.Warn("No jobs to run, execution not required.")
		return nil
	}

	exec := executor.New(a.registry, a.config.Workers, a.doc.FailFast || a.config.FailFast, a.config.Platform)
	result := exec.Run(ctx, planned)
	result.RunID = runID

	if err := a.renderReport(result); err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}

	if !result.Success {
		return fmt.Errorf("pipeline failed: one or more jobs had an unrecovered fatal failure")
	}
	logger.Debug("App.Run method finished.")
	return nil
}

// renderReport writes the JSON run report to the configured destination:
// stdout for "" or "-", a file otherwise.
func (a *App) renderReport(result *report.PipelineResult) error {
	if a.config.ReportPath == "" || a.config.ReportPath == "-" {
		return result.Render(a.outW)
	}
	f, err := os.Create(a.config.ReportPath)
	if err != nil {
		return err
	}
	defer f.Close()
	return result.Render(f)
}
