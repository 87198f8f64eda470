package binder

import (
	"fmt"
	"strings"

	"github.com/vk/batchgrid/internal/paramtree"
	"github.com/zclconf/go-cty/cty"
)

// Kind distinguishes pass-through columns from bound ones.
type Kind int

const (
	// Keep columns are labels copied to the output record.
	Keep Kind = iota
	// Value columns are bound to a scalar leaf.
	Value
)

// Binding associates one header column with its target.
type Binding struct {
	Kind  Kind
	Label string
	Ref   paramtree.Ref
	// Default is the leaf value at binding time, restored after every row
	// and whenever a cell is blank.
	Default cty.Value
}

// FlatBinder applies comma-delimited rows column by column.
type FlatBinder struct {
	bindings []Binding
}

// NewFlat resolves every header column against tree.
func NewFlat(header string, tree *paramtree.Tree) (*FlatBinder, error) {
	tokens := strings.Split(header, ",")
	bindings := make([]Binding, 0, len(tokens))
	for i, raw := range tokens {
		token := strings.TrimSpace(raw)
		if token == "" {
			return nil, &ConfigError{Column: i, Token: raw, Err: fmt.Errorf("empty column name")}
		}
		if !strings.Contains(token, ".") {
			bindings = append(bindings, Binding{Kind: Keep, Label: token})
			continue
		}

		path, err := paramtree.ParsePath(token)
		if err != nil {
			return nil, &ConfigError{Column: i, Token: token, Err: err}
		}
		ref, err := tree.Resolve(path)
		if err != nil {
			return nil, &ConfigError{Column: i, Token: token, Err: err}
		}
		if !ref.Type.IsPrimitiveType() && ref.Type != cty.DynamicPseudoType {
			return nil, &ConfigError{Column: i, Token: token, Err: fmt.Errorf("path addresses a %s, not a scalar leaf", ref.Type.FriendlyName())}
		}
		def, err := tree.Get(ref)
		if err != nil {
			return nil, &ConfigError{Column: i, Token: token, Err: err}
		}
		bindings = append(bindings, Binding{Kind: Value, Label: token, Ref: ref, Default: def})
	}
	return &FlatBinder{bindings: bindings}, nil
}

// Mode implements Binder.
func (f *FlatBinder) Mode() Mode { return Flat }

// Bindings returns the resolved columns.
func (f *FlatBinder) Bindings() []Binding {
	return append([]Binding(nil), f.bindings...)
}

// Apply implements Binder.
func (f *FlatBinder) Apply(tree *paramtree.Tree, row Row) (*Applied, error) {
	applied := &Applied{restore: func() { f.reset(tree) }}

	cells := strings.Split(row.Text, ",")
	if len(cells) != len(f.bindings) {
		return applied, &RowError{Row: row.ID, Err: fmt.Errorf("row has %d cells, header has %d columns", len(cells), len(f.bindings))}
	}

	for i, b := range f.bindings {
		cell := cells[i]
		if b.Kind == Keep {
			applied.Kept = append(applied.Kept, cell)
			continue
		}

		v := b.Default
		if strings.TrimSpace(cell) != "" {
			parsed, err := parseCell(cell, b.Default.Type())
			if err != nil {
				applied.Restore()
				return applied, &RowError{Row: row.ID, Column: b.Label, Err: err}
			}
			v = parsed
		}
		if err := tree.Set(b.Ref, v); err != nil {
			applied.Restore()
			return applied, &RowError{Row: row.ID, Column: b.Label, Err: err}
		}
	}
	return applied, nil
}

// reset writes every bound leaf back to its default.
func (f *FlatBinder) reset(tree *paramtree.Tree) {
	for _, b := range f.bindings {
		if b.Kind == Value {
			// The refs were resolved against this tree and the defaults
			// carry the leaf's own type, so this cannot fail.
			_ = tree.Set(b.Ref, b.Default)
		}
	}
}

// parseCell reads a cell using the leaf's native type.
func parseCell(cell string, ty cty.Type) (cty.Value, error) {
	switch ty {
	case cty.Bool:
		switch strings.ToLower(strings.TrimSpace(cell)) {
		case "true":
			return cty.True, nil
		case "false":
			return cty.False, nil
		}
		return cty.NilVal, fmt.Errorf("expected true or false, got %q", cell)
	case cty.Number:
		v, err := cty.ParseNumberVal(strings.TrimSpace(cell))
		if err != nil {
			return cty.NilVal, fmt.Errorf("expected a number, got %q", cell)
		}
		return v, nil
	case cty.String, cty.DynamicPseudoType:
		return cty.StringVal(cell), nil
	default:
		return cty.NilVal, fmt.Errorf("cannot bind a cell to a %s", ty.FriendlyName())
	}
}
