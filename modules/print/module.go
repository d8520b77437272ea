// Package print provides the 'print' action, which writes its resolved
// arguments to standard output. Useful for smoke-testing a matrix before
// wiring real commands in.
package print

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/vk/matrixci/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments for the print action.
type Input struct {
	Values map[string]string `mci:"values"`
}

// OnRunPrint is the handler for the 'print' action.
func OnRunPrint(ctx context.Context, input *Input) (any, error) {
	slog.Info("Printing values")

	if len(input.Values) == 0 {
		fmt.Println("      (empty)")
		return nil, nil
	}

	// Sort keys for consistent output
	keys := make([]string, 0, len(input.Values))
	for k := range input.Values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		fmt.Printf("      %s = %q\n", k, input.Values[k])
	}
	return nil, nil
}

// Register registers the handler with the action registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterAction("print", &registry.RegisteredAction{
		NewInput: func() any { return new(Input) },
		Fn:       OnRunPrint,
	})
}
