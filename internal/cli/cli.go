package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/vk/matrixci/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns a populated app.Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("matrixci", flag.ContinueOnError)
	flagSet.SetOutput(output)

	// Custom usage/help text function
	flagSet.Usage = func() {
		fmt.Fprint(output, `
MatrixCI - A declarative build-matrix pipeline runner.

Usage:
  matrixci [options] [PIPELINE_PATH]

Arguments:
  PIPELINE_PATH
    Path to a pipeline document (.hcl, .yml, .yaml) or a directory of them.

Options:
`)
		flagSet.PrintDefaults()
	}

	pipelineFlag := flagSet.String("pipeline", "", "Path to the pipeline document or directory.")
	pFlag := flagSet.String("p", "", "Path to the pipeline document or directory (shorthand).")
	workersFlag := flagSet.Int("workers", 4, "Number of jobs to run concurrently.")
	failFastFlag := flagSet.Bool("fail-fast", false, "Cancel pending jobs as soon as any job fails.")
	platformFlag := flagSet.String("platform", "", "Override the ambient platform used by platform guards. Defaults to the host OS.")
	reportFlag := flagSet.String("report", "-", "Where to write the JSON run report. '-' is stdout.")
	healthPortFlag := flagSet.Int("healthcheck-port", 0, "Port for the HTTP health check server. 0 is disabled.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	path := ""
	if *pipelineFlag != "" {
		path = *pipelineFlag
	} else if *pFlag != "" {
		path = *pFlag
	} else if flagSet.NArg() > 0 {
		path = flagSet.Arg(0)
	}
	slog.Debug("Pipeline path determined.", "path", path)

	if path == "" {
		slog.Debug("No pipeline path provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}
	slog.Debug("CLI parameter validation complete.")

	config, err := app.NewConfig(app.Config{
		PipelinePath:    path,
		Workers:         *workersFlag,
		FailFast:        *failFastFlag,
		Platform:        *platformFlag,
		ReportPath:      *reportFlag,
		HealthcheckPort: *healthPortFlag,
		LogFormat:       logFormat,
		LogLevel:        logLevel,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}
