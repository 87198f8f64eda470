package binder

import (
	"fmt"
	"strconv"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/vk/batchgrid/internal/paramtree"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

const (
	// BatchCondition is the reserved bookkeeping condition of complex rows.
	BatchCondition = "_batch"
	// BatchIDPort names the row in the output.
	BatchIDPort = "id"
	// BatchApplyPort, when true, lets the bookkeeping condition's own ports
	// be applied to the tree like any other condition.
	BatchApplyPort = "apply"
)

// ComplexBinder applies rows written as a single-line object expression,
// e.g. {cond1 = {portA = 3}, _batch = {id = "run7"}}. JSON objects are
// accepted as well.
type ComplexBinder struct{}

// Mode implements Binder.
func (c *ComplexBinder) Mode() Mode { return Complex }

// Apply implements Binder.
func (c *ComplexBinder) Apply(tree *paramtree.Tree, row Row) (*Applied, error) {
	applied := &Applied{Tag: strconv.FormatInt(row.ID, 10)}
	rowErr := func(column string, err error) (*Applied, error) {
		applied.Restore()
		return applied, &RowError{Row: row.ID, Column: column, Err: err}
	}

	overrides, err := parseOverrides(row)
	if err != nil {
		return rowErr("", err)
	}

	applyBatch := false
	if batch, ok := member(overrides, BatchCondition); ok {
		if id, ok := member(batch, BatchIDPort); ok && !id.IsNull() {
			s, err := convert.Convert(id, cty.String)
			if err != nil {
				return rowErr(BatchCondition+"."+BatchIDPort, err)
			}
			applied.Tag = s.AsString()
		}
		if flag, ok := member(batch, BatchApplyPort); ok && !flag.IsNull() {
			b, err := convert.Convert(flag, cty.Bool)
			if err != nil {
				return rowErr(BatchCondition+"."+BatchApplyPort, err)
			}
			applyBatch = b.True()
		}
	}

	snapshot := tree.Snapshot()
	applied.restore = func() { tree.Restore(snapshot) }

	for it := overrides.ElementIterator(); it.Next(); {
		k, ports := it.Element()
		name := k.AsString()
		if name == BatchCondition && !applyBatch {
			continue
		}
		cond, ok := tree.Condition(name)
		if !ok {
			return rowErr(name, fmt.Errorf("unknown condition"))
		}
		if !isMapping(ports) {
			return rowErr(name, fmt.Errorf("condition overrides must be an object, got %s", ports.Type().FriendlyName()))
		}
		for pit := ports.ElementIterator(); pit.Next(); {
			pk, v := pit.Element()
			port := pk.AsString()
			current, ok := cond.Port(port)
			if !ok {
				return rowErr(name+"."+port, fmt.Errorf("unknown port"))
			}
			v, err := coerce(current, v)
			if err != nil {
				return rowErr(name+"."+port, err)
			}
			if err := cond.SetPort(port, v); err != nil {
				return rowErr(name+"."+port, err)
			}
		}
	}
	return applied, nil
}

// parseOverrides evaluates the row as a constant object expression.
func parseOverrides(row Row) (cty.Value, error) {
	filename := fmt.Sprintf("row %d", row.ID)
	expr, diags := hclsyntax.ParseExpression([]byte(row.Text), filename, hcl.InitialPos)
	if diags.HasErrors() {
		return cty.NilVal, diags
	}
	val, diags := expr.Value(nil)
	if diags.HasErrors() {
		return cty.NilVal, diags
	}
	if val.IsNull() || !isMapping(val) {
		return cty.NilVal, fmt.Errorf("complex row must be an object of condition overrides, got %s", val.Type().FriendlyName())
	}
	return val, nil
}

// coerce converts an override to the type of the port's current value.
// Scalars must convert. A collection may be replaced by one of a different
// shape as long as a sequence stays a sequence and a mapping a mapping.
func coerce(current, v cty.Value) (cty.Value, error) {
	want := current.Type()
	converted, err := convert.Convert(v, want)
	if err == nil {
		return converted, nil
	}
	if want.IsPrimitiveType() {
		return cty.NilVal, fmt.Errorf("want %s: %w", want.FriendlyName(), err)
	}
	got := v.Type()
	if isSequenceType(want) != isSequenceType(got) || isMappingType(want) != isMappingType(got) {
		return cty.NilVal, fmt.Errorf("cannot replace %s with %s", want.FriendlyName(), got.FriendlyName())
	}
	return v, nil
}

func isSequenceType(ty cty.Type) bool {
	return ty.IsListType() || ty.IsTupleType() || ty.IsSetType()
}

func isMappingType(ty cty.Type) bool {
	return ty.IsObjectType() || ty.IsMapType()
}

func isMapping(v cty.Value) bool {
	if v.IsNull() || !v.IsKnown() {
		return false
	}
	ty := v.Type()
	return ty.IsObjectType() || ty.IsMapType()
}

// member reads one entry of an object or map value.
func member(v cty.Value, name string) (cty.Value, bool) {
	if !isMapping(v) {
		return cty.NilVal, false
	}
	if v.Type().IsObjectType() {
		if !v.Type().HasAttribute(name) {
			return cty.NilVal, false
		}
		return v.GetAttr(name), true
	}
	key := cty.StringVal(name)
	if !v.HasIndex(key).True() {
		return cty.NilVal, false
	}
	return v.Index(key), true
}
