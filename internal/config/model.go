package config

import (
	"context"

	"github.com/hashicorp/hcl/v2"
	"github.com/vk/batchgrid/internal/paramtree"
	"github.com/zclconf/go-cty/cty"
)

const (
	// DefaultEngine is used when a definition does not name one.
	DefaultEngine = "expr"
	// DefaultDuration is the number of time steps when none is given.
	DefaultDuration = 1
)

// Loader reads a simulation definition from a file.
type Loader interface {
	Load(ctx context.Context, path string) (*Model, error)
}

// Model is a loaded simulation definition.
type Model struct {
	// Source is the file the model was loaded from.
	Source   string
	Engine   string
	Duration int64
	// Conditions is the experiment-parameter tree.
	Conditions *paramtree.Tree
	Views      []*View
	// Replication identifies the row a cloned model was stamped for. It is
	// -1 on the base model.
	Replication int64
}

// View is a named group of output columns.
type View struct {
	Name    string
	Columns []*Column
}

// Column is one output value, evaluated at every time step.
type Column struct {
	Name string
	Expr hcl.Expression
	// Type is the declared type of the column, cty.DynamicPseudoType if none.
	Type cty.Type
}

// Clone returns a copy of the model with its own condition tree, stamped
// with the given replication id. Views are shared.
func (m *Model) Clone(replication int64) *Model {
	out := *m
	out.Conditions = m.Conditions.Clone()
	out.Replication = replication
	return &out
}
