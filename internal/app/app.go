package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/vk/matrixci/internal/ctxlog"
	"github.com/vk/matrixci/internal/loader"
	"github.com/vk/matrixci/internal/model"
	"github.com/vk/matrixci/internal/registry"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	config   *Config
	registry *registry.Registry
	doc      *model.Document
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance with its own isolated logger and registry.
// Reports go to outW; logs go to logW. A document that fails to load or
// references unregistered actions is a fatal startup error and panics; the
// CLI entrypoint recovers it into a clean exit.
func NewApp(outW, logW io.Writer, config *Config, modules ...registry.Module) *App {
	logger := newLogger(config.LogLevel, config.LogFormat, logW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	doc, err := loader.Load(ctx, config.PipelinePath)
	if err != nil {
		panic(fmt.Errorf("failed to load pipeline: %w", err))
	}
	logger.Debug("Pipeline documents loaded into unified model.")

	reg := registry.New()
	if len(modules) == 0 {
		modules = coreModules()
	}
	for _, mod := range modules {
		mod.Register(reg)
	}
	logger.Debug("All action modules registered.", "count", len(modules))

	// Referencing an unregistered action is a declaration error, caught
	// before any job runs.
	for _, step := range doc.Steps {
		if _, ok := reg.Action(step.Action); !ok {
			panic(fmt.Errorf("step %q references unknown action %q", step.Name, step.Action))
		}
	}
	logger.Debug("Action references validated.")

	return &App{
		outW:     outW,
		logger:   logger,
		config:   config,
		registry: reg,
		doc:      doc,
	}
}

// Registry returns the application's action registry. Primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Document returns the loaded pipeline document. Primarily for testing.
func (a *App) Document() *model.Document {
	return a.doc
}
