package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/vk/batchgrid/internal/config"
	"github.com/vk/batchgrid/internal/ctxlog"
	"github.com/vk/batchgrid/internal/fsutil"
	"github.com/vk/batchgrid/internal/message"
	"github.com/vk/batchgrid/internal/registry"
	"github.com/vk/batchgrid/internal/worker"
)

// Streams are the process streams a run reads and writes. Records go to Out
// and diagnostics to Err.
type Streams struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	streams  Streams
	config   *Config
	logger   *slog.Logger
	registry *registry.Registry
	model    *config.Model
	runID    string
	launch   Launcher
}

// NewApp is the constructor for the main application. It resolves and loads
// the simulation definition and validates it against the registered engines.
// With no modules the built-in engines are registered.
func NewApp(streams Streams, cfg *Config, loader config.Loader, modules ...registry.Module) (*App, error) {
	runID := cfg.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	logger := newLogger(cfg, runID, streams.Err)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	path, err := fsutil.ResolveDefinition(cfg.PackageDir, cfg.DefinitionFile)
	if err != nil {
		return nil, fmt.Errorf("failed to locate simulation definition: %w", err)
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}

	model, err := loader.Load(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to load simulation definition: %w", err)
	}
	logger.Debug("Simulation definition loaded.", "path", path, "engine", model.Engine)

	reg := registry.New()
	if len(modules) == 0 {
		modules = coreModules
	}
	for _, mod := range modules {
		mod.Register(reg)
	}
	logger.Debug("All Go modules registered.", "count", len(modules), "engines", reg.Names())

	if err := reg.Validate(ctx, model); err != nil {
		return nil, err
	}

	return &App{
		streams:  streams,
		config:   cfg,
		logger:   logger,
		registry: reg,
		model:    model,
		runID:    runID,
		launch:   execLauncher(streams.Err),
	}, nil
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Model returns the loaded base model.
func (a *App) Model() *config.Model {
	return a.model
}

// RunID identifies this run in every rank's logs.
func (a *App) RunID() string {
	return a.runID
}

// SetLauncher replaces the way spawned mode starts worker processes.
func (a *App) SetLauncher(l Launcher) {
	a.launch = l
}

// newWorker builds a worker rank on ch with its own copy of the model.
func (a *App) newWorker(ctx context.Context, ch message.Channel) (*worker.Worker, error) {
	model := a.model.Clone(a.model.Replication)
	engine, err := a.registry.NewEngine(ctx, model)
	if err != nil {
		return nil, fmt.Errorf("rank %d: %w", ch.Rank(), err)
	}
	return worker.New(ch, model, engine, worker.Options{
		Verbose:    a.config.Verbose,
		Warnings:   a.config.Warnings,
		RunTimeout: a.config.RunTimeout,
	}), nil
}

func (a *App) openInput() (io.Reader, func() error, error) {
	if a.config.InputPath == "" || a.config.InputPath == "-" {
		return a.streams.In, func() error { return nil }, nil
	}
	f, err := os.Open(a.config.InputPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open input: %w", err)
	}
	return f, f.Close, nil
}

func (a *App) openOutput() (io.Writer, func() error, error) {
	if a.config.OutputPath == "" || a.config.OutputPath == "-" {
		return a.streams.Out, func() error { return nil }, nil
	}
	f, err := os.Create(a.config.OutputPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output: %w", err)
	}
	return f, f.Close, nil
}
