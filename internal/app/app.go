package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/vlk/flowver/internal/config"
	"github.com/vlk/flowver/internal/ctxlog"
	"github.com/vlk/flowver/internal/interval"
	"github.com/vlk/flowver/internal/registry"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	model    *config.Model
	registry *registry.Registry
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance, including its own isolated logger and a
// registry populated from the manifest.
func NewApp(outW io.Writer, appConfig *Config, loader *config.Loader) *App {
	logger := newLogger(appConfig.LogLevel, appConfig.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	model, err := loader.Load(ctx, appConfig.ConfigPath)
	if err != nil {
		// A failure to load the manifest is a fatal startup error.
		panic(fmt.Errorf("failed to load manifest: %w", err))
	}
	logger.Debug("Manifest loaded into unified model.")

	reg, err := buildRegistry(model.Registry)
	if err != nil {
		// A bad registry manifest is a fatal startup error too.
		panic(fmt.Errorf("failed to build API registry: %w", err))
	}
	logger.Debug("API registry populated.", "functions", reg.Len(), "probe", reg.ProbeName())

	return &App{
		outW:     outW,
		logger:   logger,
		model:    model,
		registry: reg,
	}
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Model returns the loaded manifest model. This is primarily for testing.
func (a *App) Model() *config.Model {
	return a.model
}

// buildRegistry translates the manifest's registry spec into the lookup
// structure the resolver consumes.
func buildRegistry(spec *config.RegistrySpec) (*registry.Registry, error) {
	reg, err := registry.New(spec.Probe, spec.DefaultVersion)
	if err != nil {
		return nil, err
	}

	for _, fn := range spec.Functions {
		span := interval.AtLeast(fn.Min)
		if fn.Max != nil {
			span = interval.Between(fn.Min, *fn.Max)
		}
		if err := reg.Add(fn.Name, span); err != nil {
			return nil, err
		}
	}
	return reg, nil
}
