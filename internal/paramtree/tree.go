// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package paramtree

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"
)

// Tree is an ordered set of conditions.
type Tree struct {
	conditions map[string]*Condition
	order      []string
}

// Condition groups named ports.
type Condition struct {
	Name  string
	ports map[string]cty.Value
	order []string
}

// New returns an empty tree.
func New() *Tree {
	return &Tree{conditions: make(map[string]*Condition)}
}

// AddCondition appends a new, empty condition.
func (t *Tree) AddCondition(name string) (*Condition, error) {
	if _, exists := t.conditions[name]; exists {
		return nil, fmt.Errorf("condition %q is declared more than once", name)
	}
	c := &Condition{Name: name, ports: make(map[string]cty.Value)}
	t.conditions[name] = c
	t.order = append(t.order, name)
	return c, nil
}

// Condition looks a condition up by name.
func (t *Tree) Condition(name string) (*Condition, bool) {
	c, ok := t.conditions[name]
	return c, ok
}

// Conditions returns the conditions in declaration order.
func (t *Tree) Conditions() []*Condition {
	out := make([]*Condition, 0, len(t.order))
	for _, name := range t.order {
		out = append(out, t.conditions[name])
	}
	return out
}

// AddPort declares a port with its initial value.
func (c *Condition) AddPort(name string, v cty.Value) error {
	if _, exists := c.ports[name]; exists {
		return fmt.Errorf("condition %q: port %q is declared more than once", c.Name, name)
	}
	c.ports[name] = v
	c.order = append(c.order, name)
	return nil
}

// Port returns the current value of a port.
func (c *Condition) Port(name string) (cty.Value, bool) {
	v, ok := c.ports[name]
	return v, ok
}

// SetPort replaces the whole value of an existing port.
func (c *Condition) SetPort(name string, v cty.Value) error {
	if _, ok := c.ports[name]; !ok {
		return fmt.Errorf("condition %q has no port %q", c.Name, name)
	}
	c.ports[name] = v
	return nil
}

// PortNames returns the port names in declaration order.
func (c *Condition) PortNames() []string {
	return append([]string(nil), c.order...)
}

// Object returns the condition as a cty object of its ports.
func (c *Condition) Object() cty.Value {
	if len(c.ports) == 0 {
		return cty.EmptyObjectVal
	}
	attrs := make(map[string]cty.Value, len(c.ports))
	for k, v := range c.ports {
		attrs[k] = v
	}
	return cty.ObjectVal(attrs)
}

// Object returns the whole tree as a cty object of condition objects.
func (t *Tree) Object() cty.Value {
	if len(t.conditions) == 0 {
		return cty.EmptyObjectVal
	}
	attrs := make(map[string]cty.Value, len(t.conditions))
	for name, c := range t.conditions {
		attrs[name] = c.Object()
	}
	return cty.ObjectVal(attrs)
}

// Clone returns an independent copy of the tree.
func (t *Tree) Clone() *Tree {
	out := &Tree{
		conditions: make(map[string]*Condition, len(t.conditions)),
		order:      append([]string(nil), t.order...),
	}
	for name, c := range t.conditions {
		ports := make(map[string]cty.Value, len(c.ports))
		for k, v := range c.ports {
			ports[k] = v
		}
		out.conditions[name] = &Condition{
			Name:  c.Name,
			ports: ports,
			order: append([]string(nil), c.order...),
		}
	}
	return out
}

// Snapshot is a saved copy of every port value in a tree.
type Snapshot struct {
	ports map[string]map[string]cty.Value
}

// Snapshot saves the current port values.
func (t *Tree) Snapshot() Snapshot {
	s := Snapshot{ports: make(map[string]map[string]cty.Value, len(t.conditions))}
	for name, c := range t.conditions {
		ports := make(map[string]cty.Value, len(c.ports))
		for k, v := range c.ports {
			ports[k] = v
		}
		s.ports[name] = ports
	}
	return s
}

// Restore puts back the port values saved by Snapshot.
func (t *Tree) Restore(s Snapshot) {
	for name, saved := range s.ports {
		c, ok := t.conditions[name]
		if !ok {
			continue
		}
		ports := make(map[string]cty.Value, len(saved))
		for k, v := range saved {
			ports[k] = v
		}
		c.ports = ports
	}
}

// Equal reports whether both trees hold the same conditions, ports and values.
func (t *Tree) Equal(o *Tree) bool {
	if len(t.conditions) != len(o.conditions) {
		return false
	}
	for name, c := range t.conditions {
		oc, ok := o.conditions[name]
		if !ok || len(c.ports) != len(oc.ports) {
			return false
		}
		for k, v := range c.ports {
			ov, ok := oc.ports[k]
			if !ok || !v.RawEquals(ov) {
				return false
			}
		}
	}
	return true
}
