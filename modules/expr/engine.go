package expr

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/vk/batchgrid/internal/config"
	"github.com/vk/batchgrid/internal/ctxlog"
	"github.com/vk/batchgrid/internal/result"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// Variable roots available to column expressions.
const (
	varCondition   = "condition"
	varReplication = "replication"
	varTime        = "time"
	varPrev        = "prev"
)

// Engine evaluates the views of one definition.
type Engine struct {
	views []*config.View
}

// New checks every column expression of model and returns an engine for it.
func New(ctx context.Context, model *config.Model) (*Engine, error) {
	logger := ctxlog.FromContext(ctx)

	for _, view := range model.Views {
		columns := make(map[string]struct{}, len(view.Columns))
		for _, col := range view.Columns {
			columns[col.Name] = struct{}{}
		}
		for _, col := range view.Columns {
			if err := checkExpression(model, columns, col.Expr); err != nil {
				return nil, fmt.Errorf("view %q column %q: %w", view.Name, col.Name, err)
			}
		}
	}

	logger.Debug("Expression engine ready.", "views", len(model.Views), "duration", model.Duration)
	return &Engine{views: model.Views}, nil
}

// Run implements registry.Engine.
func (e *Engine) Run(ctx context.Context, model *config.Model, replication int64) (*result.Map, error) {
	out := result.NewMap()
	tables := make([]*result.View, len(e.views))
	for i, view := range e.views {
		names := make([]string, len(view.Columns))
		for j, col := range view.Columns {
			names[j] = col.Name
		}
		v, err := out.AddView(view.Name, names...)
		if err != nil {
			return nil, err
		}
		tables[i] = v
	}

	evalCtx := &hcl.EvalContext{
		Variables: map[string]cty.Value{
			varCondition:   model.Conditions.Object(),
			varReplication: cty.NumberIntVal(replication),
		},
		Functions: functionsFor(replication),
	}

	for t := int64(0); t < model.Duration; t++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("simulation stopped at time %d: %w", t, err)
		}
		evalCtx.Variables[varTime] = cty.NumberIntVal(t)

		for i, view := range e.views {
			evalCtx.Variables[varPrev] = previousRow(tables[i])
			row := make([]cty.Value, len(view.Columns))
			for j, col := range view.Columns {
				v, err := evalColumn(evalCtx, col)
				if err != nil {
					return nil, fmt.Errorf("view %q column %q at time %d: %w", view.Name, col.Name, t, err)
				}
				row[j] = v
			}
			if err := tables[i].Append(row); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

func evalColumn(evalCtx *hcl.EvalContext, col *config.Column) (cty.Value, error) {
	v, diags := col.Expr.Value(evalCtx)
	if diags.HasErrors() {
		return cty.NilVal, diags
	}
	if !v.IsWhollyKnown() {
		return cty.NilVal, fmt.Errorf("value is not known")
	}
	if col.Type != cty.DynamicPseudoType && col.Type != cty.NilType {
		converted, err := convert.Convert(v, col.Type)
		if err != nil {
			return cty.NilVal, fmt.Errorf("cannot convert %s to %s: %w", v.Type().FriendlyName(), col.Type.FriendlyName(), err)
		}
		v = converted
	}
	return v, nil
}

// previousRow exposes the last appended row as an object keyed by column.
func previousRow(v *result.View) cty.Value {
	if len(v.Columns) == 0 {
		return cty.EmptyObjectVal
	}
	final := v.Final()
	attrs := make(map[string]cty.Value, len(v.Columns))
	for i, name := range v.Columns {
		attrs[name] = final[i]
	}
	return cty.ObjectVal(attrs)
}

// checkExpression rejects references and function calls that could never
// evaluate.
func checkExpression(model *config.Model, columns map[string]struct{}, expr hcl.Expression) error {
	for _, traversal := range expr.Variables() {
		if err := checkTraversal(model, columns, traversal); err != nil {
			return err
		}
	}
	if syntaxExpr, ok := expr.(hclsyntax.Expression); ok {
		var unknown []string
		walkForFunctions(syntaxExpr, func(name string) {
			if !knownFunction(name) {
				unknown = append(unknown, name)
			}
		})
		if len(unknown) > 0 {
			return fmt.Errorf("unknown function %q", unknown[0])
		}
	}
	return nil
}

func checkTraversal(model *config.Model, columns map[string]struct{}, traversal hcl.Traversal) error {
	root := traversal.RootName()
	attr := func(i int) (string, bool) {
		if len(traversal) <= i {
			return "", false
		}
		step, ok := traversal[i].(hcl.TraverseAttr)
		return step.Name, ok
	}

	switch root {
	case varReplication, varTime:
		return nil
	case varPrev:
		if name, ok := attr(1); ok {
			if _, exists := columns[name]; !exists {
				return fmt.Errorf("prev.%s: no such column in this view", name)
			}
		}
		return nil
	case varCondition:
		name, ok := attr(1)
		if !ok {
			return nil
		}
		cond, exists := model.Conditions.Condition(name)
		if !exists {
			return fmt.Errorf("condition.%s: unknown condition", name)
		}
		if port, ok := attr(2); ok {
			if _, exists := cond.Port(port); !exists {
				return fmt.Errorf("condition.%s.%s: unknown port", name, port)
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown variable %q", root)
	}
}
