package registry

import (
	"context"
	"sort"

	"github.com/vk/batchgrid/internal/config"
	"github.com/vk/batchgrid/internal/result"
)

// Engine runs one simulation replication.
type Engine interface {
	// Run simulates model, a clone stamped with the replication id, and
	// returns its views. It should return promptly once ctx is done.
	Run(ctx context.Context, model *config.Model, replication int64) (*result.Map, error)
}

// Factory prepares an engine for a loaded definition. It is called once per
// worker and should reject definitions the engine cannot run.
type Factory func(ctx context.Context, model *config.Model) (Engine, error)

// Module is the interface that all engine modules implement to be registered.
type Module interface {
	Register(r *Registry)
}

// Registry holds the registered engine factories of one application instance.
type Registry struct {
	engines map[string]Factory
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{engines: make(map[string]Factory)}
}

// Names lists the registered engines in lexical order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.engines))
	for name := range r.engines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
