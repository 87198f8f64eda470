// This file translates the decoded HCL blocks into the format-agnostic
// config.Model.

package hcl

import (
	"context"
	"fmt"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/vk/batchgrid/internal/config"
	"github.com/vk/batchgrid/internal/paramtree"
)

func (l *Loader) translate(ctx context.Context, root *fileRoot) (*config.Model, error) {
	model := &config.Model{
		Engine:      config.DefaultEngine,
		Duration:    config.DefaultDuration,
		Conditions:  paramtree.New(),
		Replication: -1,
	}

	if sim := root.Simulation; sim != nil {
		if sim.Engine != nil && *sim.Engine != "" {
			model.Engine = *sim.Engine
		}
		if sim.Duration != nil {
			if *sim.Duration < 1 {
				return nil, fmt.Errorf("simulation duration must be at least 1, got %d", *sim.Duration)
			}
			model.Duration = *sim.Duration
		}
	}

	for _, cb := range root.Conditions {
		if err := translateCondition(model.Conditions, cb); err != nil {
			return nil, err
		}
	}

	seen := make(map[string]struct{}, len(root.Views))
	for _, vb := range root.Views {
		if _, dup := seen[vb.Name]; dup {
			return nil, fmt.Errorf("view %q is declared more than once", vb.Name)
		}
		seen[vb.Name] = struct{}{}

		view, err := translateView(ctx, vb)
		if err != nil {
			return nil, err
		}
		model.Views = append(model.Views, view)
	}
	return model, nil
}

// translateCondition evaluates every port of a condition block. Ports keep
// the order in which they appear in the file.
func translateCondition(tree *paramtree.Tree, cb *conditionBlock) error {
	cond, err := tree.AddCondition(cb.Name)
	if err != nil {
		return err
	}

	attrs, diags := cb.Body.JustAttributes()
	if diags.HasErrors() {
		return fmt.Errorf("condition %q: %w", cb.Name, diags)
	}
	ordered := make([]*hcl.Attribute, 0, len(attrs))
	for _, attr := range attrs {
		ordered = append(ordered, attr)
	}
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].Range.Start.Byte < ordered[j].Range.Start.Byte
	})

	for _, attr := range ordered {
		val, diags := attr.Expr.Value(nil)
		if diags.HasErrors() {
			return fmt.Errorf("condition %q port %q: %w", cb.Name, attr.Name, diags)
		}
		if err := cond.AddPort(attr.Name, val); err != nil {
			return err
		}
	}
	return nil
}

func translateView(ctx context.Context, vb *viewBlock) (*config.View, error) {
	view := &config.View{Name: vb.Name}
	seen := make(map[string]struct{}, len(vb.Columns))
	for _, cb := range vb.Columns {
		if _, dup := seen[cb.Name]; dup {
			return nil, fmt.Errorf("view %q: column %q is declared more than once", vb.Name, cb.Name)
		}
		seen[cb.Name] = struct{}{}

		ty, err := typeExprToCtyType(ctx, cb.Type)
		if err != nil {
			return nil, fmt.Errorf("view %q column %q: %w", vb.Name, cb.Name, err)
		}
		view.Columns = append(view.Columns, &config.Column{Name: cb.Name, Expr: cb.Value, Type: ty})
	}
	return view, nil
}
