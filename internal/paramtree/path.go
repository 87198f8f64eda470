// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package paramtree

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// Path is a parsed dotted address of a value inside a tree.
type Path struct {
	Condition string
	Port      string
	Segments  []string
}

// ParsePath parses "condition.port[.segment]*".
func ParsePath(s string) (Path, error) {
	parts := strings.Split(strings.TrimSpace(s), ".")
	if len(parts) < 2 {
		return Path{}, fmt.Errorf("path %q must have the form condition.port[.index|.key]*", s)
	}
	for i, p := range parts {
		if p == "" {
			return Path{}, fmt.Errorf("path %q has an empty segment at position %d", s, i)
		}
	}
	return Path{Condition: parts[0], Port: parts[1], Segments: parts[2:]}, nil
}

// String renders the path in dotted form.
func (p Path) String() string {
	parts := append([]string{p.Condition, p.Port}, p.Segments...)
	return strings.Join(parts, ".")
}

// PathError is a configuration error raised while resolving a path.
type PathError struct {
	Condition string
	Port      string
	// Segment is the offending segment; empty when the condition or port
	// itself could not be found.
	Segment string
	// Position is the index of Segment in the dotted path (the condition is
	// position 0, the port position 1).
	Position int
	Reason   string
}

func (e *PathError) Error() string {
	switch {
	case e.Segment == "" && e.Port == "":
		return fmt.Sprintf("condition %q: %s", e.Condition, e.Reason)
	case e.Segment == "":
		return fmt.Sprintf("condition %q port %q: %s", e.Condition, e.Port, e.Reason)
	default:
		return fmt.Sprintf("condition %q port %q: segment %d (%q): %s", e.Condition, e.Port, e.Position, e.Segment, e.Reason)
	}
}

// Ref is a path resolved against a tree: the steps that reach the leaf and
// the leaf's type at resolution time.
type Ref struct {
	Path  Path
	Type  cty.Type
	steps cty.Path
}

// Resolve walks p through the tree.
func (t *Tree) Resolve(p Path) (Ref, error) {
	c, ok := t.conditions[p.Condition]
	if !ok {
		return Ref{}, &PathError{Condition: p.Condition, Reason: "unknown condition"}
	}
	val, ok := c.ports[p.Port]
	if !ok {
		return Ref{}, &PathError{Condition: p.Condition, Port: p.Port, Position: 1, Reason: "unknown port"}
	}

	steps := make(cty.Path, 0, len(p.Segments))
	for i, seg := range p.Segments {
		fail := func(format string, args ...any) (Ref, error) {
			return Ref{}, &PathError{
				Condition: p.Condition,
				Port:      p.Port,
				Segment:   seg,
				Position:  i + 2,
				Reason:    fmt.Sprintf(format, args...),
			}
		}
		if val.IsNull() || !val.IsKnown() {
			return fail("cannot descend into a null value")
		}

		ty := val.Type()
		switch {
		case ty.IsListType() || ty.IsTupleType():
			idx, err := strconv.Atoi(seg)
			if err != nil || idx < 0 {
				return fail("expected a non-negative integer index")
			}
			if n := val.LengthInt(); idx >= n {
				return fail("index %d out of range (length %d)", idx, n)
			}
			key := cty.NumberIntVal(int64(idx))
			steps = append(steps, cty.IndexStep{Key: key})
			val = val.Index(key)
		case ty.IsMapType():
			key := cty.StringVal(seg)
			if !val.HasIndex(key).True() {
				return fail("unknown key")
			}
			steps = append(steps, cty.IndexStep{Key: key})
			val = val.Index(key)
		case ty.IsObjectType():
			if !ty.HasAttribute(seg) {
				return fail("unknown key")
			}
			steps = append(steps, cty.GetAttrStep{Name: seg})
			val = val.GetAttr(seg)
		default:
			return fail("cannot descend into a %s", ty.FriendlyName())
		}
	}
	return Ref{Path: p, Type: val.Type(), steps: steps}, nil
}

// Get reads the value addressed by ref.
func (t *Tree) Get(ref Ref) (cty.Value, error) {
	c, ok := t.conditions[ref.Path.Condition]
	if !ok {
		return cty.NilVal, &PathError{Condition: ref.Path.Condition, Reason: "unknown condition"}
	}
	val, ok := c.ports[ref.Path.Port]
	if !ok {
		return cty.NilVal, &PathError{Condition: ref.Path.Condition, Port: ref.Path.Port, Position: 1, Reason: "unknown port"}
	}
	return ref.steps.Apply(val)
}

// Set writes v at ref, converting it to the leaf's type first.
func (t *Tree) Set(ref Ref, v cty.Value) error {
	c, ok := t.conditions[ref.Path.Condition]
	if !ok {
		return &PathError{Condition: ref.Path.Condition, Reason: "unknown condition"}
	}
	port, ok := c.ports[ref.Path.Port]
	if !ok {
		return &PathError{Condition: ref.Path.Condition, Port: ref.Path.Port, Position: 1, Reason: "unknown port"}
	}
	if ref.Type != cty.DynamicPseudoType && !v.Type().Equals(ref.Type) {
		converted, err := convert.Convert(v, ref.Type)
		if err != nil {
			return fmt.Errorf("%s: %w", ref.Path, err)
		}
		v = converted
	}
	updated, err := setAt(port, ref.steps, v)
	if err != nil {
		return fmt.Errorf("%s: %w", ref.Path, err)
	}
	c.ports[ref.Path.Port] = updated
	return nil
}

// setAt rebuilds cur with the value at steps replaced by leaf.
func setAt(cur cty.Value, steps cty.Path, leaf cty.Value) (cty.Value, error) {
	if len(steps) == 0 {
		return leaf, nil
	}
	ty := cur.Type()

	switch step := steps[0].(type) {
	case cty.IndexStep:
		switch {
		case ty.IsListType() || ty.IsTupleType():
			i, _ := step.Key.AsBigFloat().Int64()
			elems := cur.AsValueSlice()
			if i < 0 || int(i) >= len(elems) {
				return cty.NilVal, fmt.Errorf("index %d out of range", i)
			}
			child, err := setAt(elems[i], steps[1:], leaf)
			if err != nil {
				return cty.NilVal, err
			}
			if ty.IsListType() && !child.Type().Equals(ty.ElementType()) {
				return cty.NilVal, fmt.Errorf("list element must be %s, got %s", ty.ElementType().FriendlyName(), child.Type().FriendlyName())
			}
			elems[i] = child
			if ty.IsListType() {
				return cty.ListVal(elems), nil
			}
			return cty.TupleVal(elems), nil
		case ty.IsMapType():
			key := step.Key.AsString()
			elems := cur.AsValueMap()
			child, err := setAt(elems[key], steps[1:], leaf)
			if err != nil {
				return cty.NilVal, err
			}
			if !child.Type().Equals(ty.ElementType()) {
				return cty.NilVal, fmt.Errorf("map element must be %s, got %s", ty.ElementType().FriendlyName(), child.Type().FriendlyName())
			}
			elems[key] = child
			return cty.MapVal(elems), nil
		}
	case cty.GetAttrStep:
		if ty.IsObjectType() {
			attrs := cur.AsValueMap()
			child, err := setAt(attrs[step.Name], steps[1:], leaf)
			if err != nil {
				return cty.NilVal, err
			}
			attrs[step.Name] = child
			return cty.ObjectVal(attrs), nil
		}
	}
	return cty.NilVal, fmt.Errorf("cannot descend into a %s", ty.FriendlyName())
}

// Leaves lists the path of every scalar leaf in declaration order. Sequence
// elements are visited by index and mapping entries by sorted key.
func (t *Tree) Leaves() []Path {
	var out []Path
	for _, c := range t.Conditions() {
		for _, port := range c.order {
			walkLeaves(c.ports[port], Path{Condition: c.Name, Port: port}, &out)
		}
	}
	return out
}

func walkLeaves(v cty.Value, at Path, out *[]Path) {
	ty := v.Type()
	if v.IsNull() || !v.IsKnown() || !(ty.IsListType() || ty.IsTupleType() || ty.IsMapType() || ty.IsObjectType()) {
		*out = append(*out, at)
		return
	}
	for it := v.ElementIterator(); it.Next(); {
		k, elem := it.Element()
		var seg string
		if k.Type() == cty.Number {
			seg = indexString(k.AsBigFloat())
		} else {
			seg = k.AsString()
		}
		next := Path{Condition: at.Condition, Port: at.Port, Segments: append(append([]string(nil), at.Segments...), seg)}
		walkLeaves(elem, next, out)
	}
}

func indexString(f *big.Float) string {
	i, _ := f.Int64()
	return strconv.FormatInt(i, 10)
}
