package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/vk/assetgrid/internal/config"
	"github.com/vk/assetgrid/internal/ctxlog"
	"github.com/vk/assetgrid/internal/pipeline"
	"github.com/vk/assetgrid/internal/registry"
	"github.com/vk/assetgrid/internal/reload"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW       io.Writer
	ctx        context.Context
	logger     *slog.Logger
	config     *Config
	model      *config.Model
	registry   *registry.Registry
	pipeline   *pipeline.Pipeline
	reload     *reload.Server
	httpServer *http.Server
}

// NewApp is the constructor for the main application. It loads the project
// configuration, registers plugins and prepares the build pipeline. The app
// gets its own logger and registry. Passing modules replaces the built-in
// plugin set.
func NewApp(outW io.Writer, appConfig *Config, modules ...registry.Module) (*App, error) {
	logger := newLogger(appConfig.LogLevel, appConfig.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	model, err := loadConfig(ctx, appConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if appConfig.Optimize {
		model.Optimize = true
	}
	logger.Debug("Configuration loaded into unified model.", "files", len(model.Files), "plugins", len(model.Plugins))
	if len(model.Files) == 0 {
		logger.Warn("No files blocks configured; only assets will be copied.")
	}

	reg, err := newRegistry(ctx, model, modules)
	if err != nil {
		return nil, err
	}
	logger.Debug("Registry validation passed.")

	p, err := pipeline.New(model, reg, pipeline.Options{
		Root:    appConfig.Root,
		Workers: appConfig.WorkerCount,
	})
	if err != nil {
		return nil, err
	}

	return &App{
		outW:     outW,
		ctx:      ctx,
		logger:   logger,
		config:   appConfig,
		model:    model,
		registry: reg,
		pipeline: p,
		reload:   reload.NewServer(ctx),
	}, nil
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Model returns the loaded project configuration.
func (a *App) Model() *config.Model {
	return a.model
}

// withLogger attaches the app logger to ctx.
func (a *App) withLogger(ctx context.Context) context.Context {
	return ctxlog.WithLogger(ctx, a.logger)
}
