package registry

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vk/batchgrid/internal/config"
)

// RegisterEngine registers the factory for an engine name.
func (r *Registry) RegisterEngine(name string, factory Factory) {
	if _, exists := r.engines[name]; exists {
		panic(fmt.Sprintf("engine with name '%s' already registered", name))
	}
	slog.Debug("Registering engine.", "name", name)
	r.engines[name] = factory
}

// NewEngine builds the engine named by the model.
func (r *Registry) NewEngine(ctx context.Context, model *config.Model) (Engine, error) {
	factory, ok := r.engines[model.Engine]
	if !ok {
		return nil, fmt.Errorf("unknown engine %q (registered: %v)", model.Engine, r.Names())
	}
	engine, err := factory(ctx, model)
	if err != nil {
		return nil, fmt.Errorf("engine %q rejected %s: %w", model.Engine, model.Source, err)
	}
	return engine, nil
}
