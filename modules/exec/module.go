// Package exec provides the 'exec' action: it runs a shell command, the
// canonical CI step. The command inherits the process environment plus any
// step-level env entries. Retry and timeout policy belong to the command
// itself, not to the pipeline core.
package exec

import (
	"context"
	"fmt"
	"os"
	osexec "os/exec"
	"strings"

	"github.com/vk/matrixci/internal/ctxlog"
	"github.com/vk/matrixci/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments for the exec action.
type Input struct {
	Command string            `mci:"command"`
	Shell   string            `mci:"shell"`
	Dir     string            `mci:"dir"`
	Env     map[string]string `mci:"env"`
}

// Output is the captured result of the command.
type Output struct {
	ExitCode int    `json:"exit_code"`
	Output   string `json:"output,omitempty"`
}

// OnRunExec is the handler for the 'exec' action.
func OnRunExec(ctx context.Context, input *Input) (any, error) {
	logger := ctxlog.FromContext(ctx)

	if strings.TrimSpace(input.Command) == "" {
		return nil, fmt.Errorf("exec: command is required")
	}
	shell := input.Shell
	if shell == "" {
		shell = "/bin/sh"
	}

	cmd := osexec.CommandContext(ctx, shell, "-c", input.Command)
	cmd.Dir = input.Dir
	cmd.Env = os.Environ()
	for k, v := range input.Env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}

	logger.Debug("Running command.", "shell", shell, "command", input.Command)
	out, err := cmd.CombinedOutput()
	result := &Output{Output: string(out)}
	if err != nil {
		if exitErr, ok := err.(*osexec.ExitError); ok {
			result.ExitCode = exitErr.ExitCode()
			return result, fmt.Errorf("exec: command exited with code %d", result.ExitCode)
		}
		return result, fmt.Errorf("exec: %w", err)
	}
	return result, nil
}

// Register registers the handler with the action registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterAction("exec", &registry.RegisteredAction{
		NewInput: func() any { return new(Input) },
		Fn:       OnRunExec,
	})
}
