// Package expr is the built-in simulation engine. A definition describes
// its output as views of column expressions, and the engine evaluates every
// column once per time step.
//
// Column expressions can read:
//
//	condition.<name>.<port>  the current experiment parameters
//	replication              the replication id (the input row id)
//	time                     the current step, from 0 to duration-1
//	prev.<column>            the same view's value at the previous step,
//	                         null at time 0
//
// along with the cty standard library functions and rand(), a uniform
// number in [0, 1) drawn from a generator seeded by the replication id.
package expr

import (
	"context"

	"github.com/vk/batchgrid/internal/config"
	"github.com/vk/batchgrid/internal/registry"
)

// Name is the engine name used in definitions.
const Name = "expr"

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the engine factory.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterEngine(Name, func(ctx context.Context, model *config.Model) (registry.Engine, error) {
		return New(ctx, model)
	})
}
