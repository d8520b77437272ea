// Package env_vars provides the 'env_vars' action, which captures the
// process environment into the step's output for later inspection in the
// run report.
package env_vars

import (
	"context"
	"os"
	"strings"

	"github.com/vk/matrixci/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input is empty; the action takes no arguments.
type Input struct{}

// Output holds the captured environment.
type Output struct {
	All map[string]string `json:"all"`
}

// OnRunEnvVars is the handler for the 'env_vars' action.
func OnRunEnvVars(ctx context.Context, input *Input) (any, error) {
	envMap := make(map[string]string)
	for _, e := range os.Environ() {
		pair := strings.SplitN(e, "=", 2)
		if len(pair) == 2 {
			envMap[pair[0]] = pair[1]
		}
	}
	return &Output{All: envMap}, nil
}

// Register registers the handler with the action registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterAction("env_vars", &registry.RegisteredAction{
		NewInput: func() any { return new(Input) },
		Fn:       OnRunEnvVars,
	})
}
