package binder

import (
	"fmt"
	"strings"

	"github.com/vk/batchgrid/internal/paramtree"
)

// ComplexHeader is the reserved header that selects complex mode.
const ComplexHeader = "@complex"

// Mode is the way a header maps rows onto the tree.
type Mode int

const (
	// Flat binds each column to one leaf.
	Flat Mode = iota
	// Complex treats each row as a block of condition overrides.
	Complex
)

func (m Mode) String() string {
	if m == Complex {
		return "complex"
	}
	return "flat"
}

// Row is one input row with its id.
type Row struct {
	ID   int64
	Text string
}

// Applied is the outcome of applying one row.
type Applied struct {
	// Tag identifies the row in complex-mode output.
	Tag string
	// Kept holds the pass-through cells of a flat row, in column order.
	Kept    []string
	restore func()
}

// Restore reverts the tree to its state before Apply. It is safe to call
// more than once and on a nil receiver.
func (a *Applied) Restore() {
	if a == nil || a.restore == nil {
		return
	}
	a.restore()
}

// Binder applies rows to a tree.
type Binder interface {
	Mode() Mode
	// Apply mutates tree for row. It always returns a non-nil Applied; a
	// returned error is a *RowError and the tree has already been restored.
	Apply(tree *paramtree.Tree, row Row) (*Applied, error)
}

// New builds the binder selected by header. Failures are *ConfigError and
// are fatal for the run.
func New(header string, tree *paramtree.Tree) (Binder, error) {
	if strings.TrimSpace(header) == ComplexHeader {
		return &ComplexBinder{}, nil
	}
	return NewFlat(header, tree)
}

// ConfigError reports a header that does not match the loaded definition.
type ConfigError struct {
	Column int
	Token  string
	Err    error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("header column %d (%q): %v", e.Column, e.Token, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// RowError reports a row that could not be applied. It never stops a run.
type RowError struct {
	Row    int64
	Column string
	Err    error
}

func (e *RowError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("row %d: %v", e.Row, e.Err)
	}
	return fmt.Sprintf("row %d column %q: %v", e.Row, e.Column, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}
