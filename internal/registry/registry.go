// Package registry holds the action registry: the mapping from the action
// identifiers referenced by pipeline steps to the Go handlers that perform
// them. The execution core never interprets action semantics; it resolves
// the identifier here and invokes whatever is registered.
package registry

import (
	"context"
	"fmt"
	"reflect"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/matrixci/internal/ctxlog"
)

// Module is the interface action modules implement to be registered.
type Module interface {
	Register(r *Registry)
}

// RegisteredAction holds the compiled Go parts of one action.
//
// NewInput returns a pointer to a fresh argument struct; DecodeArgs fills
// it from the step's resolved arguments. Fn must have the signature
// func(ctx context.Context, input *T) (any, error) where *T is the type
// NewInput returns.
type RegisteredAction struct {
	NewInput func() any
	Fn       any
}

// Registry is the per-application action table.
type Registry struct {
	actions map[string]*RegisteredAction
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{actions: make(map[string]*RegisteredAction)}
}

// RegisterAction registers a handler under an action identifier. Double
// registration is a programmer error and panics.
func (r *Registry) RegisterAction(name string, action *RegisteredAction) {
	if _, exists := r.actions[name]; exists {
		panic(fmt.Sprintf("action %q already registered", name))
	}
	if action.NewInput == nil || action.Fn == nil {
		panic(fmt.Sprintf("action %q registered without NewInput or Fn", name))
	}
	r.actions[name] = action
}

// Action looks up a registered action by identifier.
func (r *Registry) Action(name string) (*RegisteredAction, bool) {
	action, ok := r.actions[name]
	return action, ok
}

// Invoke resolves and runs an action with the given resolved arguments.
func (r *Registry) Invoke(ctx context.Context, name string, args map[string]cty.Value) (any, error) {
	logger := ctxlog.FromContext(ctx)

	action, ok := r.actions[name]
	if !ok {
		return nil, fmt.Errorf("unknown action %q", name)
	}

	input := action.NewInput()
	if err := DecodeArgs(args, input); err != nil {
		return nil, fmt.Errorf("action %q: %w", name, err)
	}

	logger.Debug("Invoking action handler.", "action", name)
	fn := reflect.ValueOf(action.Fn)
	results := fn.Call([]reflect.Value{reflect.ValueOf(ctx), reflect.ValueOf(input)})

	output := results[0].Interface()
	if errVal := results[1].Interface(); errVal != nil {
		return output, errVal.(error)
	}
	return output, nil
}
