package result

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"
)

// View is a named table of values, one row per time step.
type View struct {
	Name    string
	Columns []string
	Rows    [][]cty.Value
}

// Append adds one row. It must have a value for every column.
func (v *View) Append(row []cty.Value) error {
	if len(row) != len(v.Columns) {
		return fmt.Errorf("view %q: row has %d values, view has %d columns", v.Name, len(row), len(v.Columns))
	}
	v.Rows = append(v.Rows, row)
	return nil
}

// Final returns the last row, or a row of nulls if nothing was appended.
func (v *View) Final() []cty.Value {
	if len(v.Rows) == 0 {
		out := make([]cty.Value, len(v.Columns))
		for i := range out {
			out[i] = cty.NullVal(cty.DynamicPseudoType)
		}
		return out
	}
	return v.Rows[len(v.Rows)-1]
}

// Map is the output of one simulation call.
type Map struct {
	views []*View
	index map[string]*View
}

// NewMap returns an empty result map.
func NewMap() *Map {
	return &Map{index: make(map[string]*View)}
}

// AddView registers a new, empty view.
func (m *Map) AddView(name string, columns ...string) (*View, error) {
	if _, exists := m.index[name]; exists {
		return nil, fmt.Errorf("view %q already exists", name)
	}
	v := &View{Name: name, Columns: append([]string(nil), columns...)}
	m.views = append(m.views, v)
	m.index[name] = v
	return v, nil
}

// View looks a view up by name.
func (m *Map) View(name string) (*View, bool) {
	v, ok := m.index[name]
	return v, ok
}

// Views returns the views in the order they were added.
func (m *Map) Views() []*View {
	return append([]*View(nil), m.views...)
}
