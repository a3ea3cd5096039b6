package entity

import (
	"fmt"
	"maps"

	"github.com/Breeze/breeze.sharp-sub000"
	"github.com/Breeze/breeze.sharp-sub000/graph"
	"github.com/Breeze/breeze.sharp-sub000/schema/field"
)

// Record is the property access surface shared by entities and complex
// objects. The set of implementations is closed.
type Record interface {
	// Type returns the graph type of the record.
	Type() *graph.Type
	// Get returns the value of the named property.
	Get(name string) any
	// Set writes the named property.
	Set(name string, v any) error
	// Values returns the data and complex property values. Complex
	// values are returned as nested maps.
	Values() map[string]any

	record()
}

// ComplexObject is a record without identity embedded in an entity (or
// another complex object) through a complex property.
type ComplexObject struct {
	typ       *graph.Type
	values    map[string]any
	originals map[string]any
	owner     *Entity
	parent    *ComplexObject
	prop      *graph.Property
}

// NewComplexObject creates a detached complex object of type t holding
// the default values of its properties.
func NewComplexObject(t *graph.Type) *ComplexObject {
	if !t.Complex {
		panic(fmt.Sprintf("breeze: %s is not a complex type", t.Name))
	}
	return newComplex(t, nil, nil, nil)
}

func newComplex(t *graph.Type, owner *Entity, parent *ComplexObject, prop *graph.Property) *ComplexObject {
	c := &ComplexObject{
		typ:    t,
		values: make(map[string]any, len(t.Properties)),
		owner:  owner,
		parent: parent,
		prop:   prop,
	}
	for _, p := range t.Properties {
		if p.IsComplex() {
			c.values[p.Name] = newComplex(p.ComplexType, owner, c, p)
			continue
		}
		c.values[p.Name] = p.DefaultValue()
	}
	return c
}

// Type implements Record.
func (c *ComplexObject) Type() *graph.Type {
	return c.typ
}

// Owner returns the entity the object belongs to, or nil.
func (c *ComplexObject) Owner() *Entity {
	return c.owner
}

// Get implements Record.
func (c *ComplexObject) Get(name string) any {
	return c.values[name]
}

// Set implements Record.
func (c *ComplexObject) Set(name string, v any) error {
	p, ok := c.typ.Property(name)
	if !ok {
		return fmt.Errorf("breeze: unknown property %s.%s", c.typ.Name, name)
	}
	if m := c.manager(); m != nil {
		return m.run(false, func() error { return c.set(p, v, track|notify) })
	}
	return c.set(p, v, track|notify)
}

// Values implements Record.
func (c *ComplexObject) Values() map[string]any {
	vs := make(map[string]any, len(c.values))
	for k, v := range c.values {
		if co, ok := v.(*ComplexObject); ok {
			v = co.Values()
		}
		vs[k] = v
	}
	return vs
}

// OriginalValues returns the values the object held before its owner
// was modified.
func (c *ComplexObject) OriginalValues() map[string]any {
	return maps.Clone(c.originals)
}

func (*ComplexObject) record() {}

func (c *ComplexObject) manager() *Manager {
	if c.owner == nil {
		return nil
	}
	return c.owner.manager
}

// path returns the property path of the object relative to its owner.
func (c *ComplexObject) path() string {
	if c.prop == nil {
		return ""
	}
	if c.parent != nil {
		return c.parent.path() + "." + c.prop.Name
	}
	return c.prop.Name
}

func (c *ComplexObject) set(p *graph.Property, v any, md mode) error {
	if p.IsComplex() {
		return c.values[p.Name].(*ComplexObject).assign(v, md)
	}
	cv, err := p.Coerce(v)
	if err != nil {
		return err
	}
	old := c.values[p.Name]
	if field.Equal(old, cv) {
		return nil
	}
	e, m := c.owner, c.manager()
	path := c.path() + "." + p.Name
	if m != nil && md&(track|notify) == track|notify {
		if err := m.changing(e, breeze.ActionPropertyChange, path); err != nil {
			return err
		}
	}
	tracking := md&track != 0 && m != nil
	if tracking && e.state != breeze.Added {
		if _, ok := c.originals[p.Name]; !ok {
			if c.originals == nil {
				c.originals = make(map[string]any)
			}
			c.originals[p.Name] = old
		}
	}
	c.values[p.Name] = cv
	if tracking && e.state == breeze.Unchanged {
		m.setState(e, breeze.Modified)
	}
	if e != nil && md&notify != 0 {
		e.propertyChanged(path, old, cv)
	}
	return nil
}

// assign copies the values of v, a *ComplexObject or a map, into c.
func (c *ComplexObject) assign(v any, md mode) error {
	var vs map[string]any
	switch v := v.(type) {
	case *ComplexObject:
		if v.typ != c.typ {
			return fmt.Errorf("breeze: cannot assign %s to %s", v.typ.Name, c.path())
		}
		vs = v.values
	case map[string]any:
		vs = v
	case nil:
		return fmt.Errorf("breeze: complex property %s cannot be nil", c.path())
	default:
		return fmt.Errorf("breeze: cannot assign %T to complex property %s", v, c.path())
	}
	for _, p := range c.typ.Properties {
		val, ok := vs[p.Name]
		if !ok {
			continue
		}
		if err := c.set(p, val, md); err != nil {
			return err
		}
	}
	return nil
}

// acceptChanges forgets the originals of c and its nested objects.
func (c *ComplexObject) acceptChanges() {
	c.originals = nil
	for _, v := range c.values {
		if co, ok := v.(*ComplexObject); ok {
			co.acceptChanges()
		}
	}
}

// rejectChanges restores the originals of c and its nested objects.
func (c *ComplexObject) rejectChanges() {
	for _, p := range c.typ.Properties {
		if co, ok := c.values[p.Name].(*ComplexObject); ok {
			co.rejectChanges()
			continue
		}
		if v, ok := c.originals[p.Name]; ok {
			// Originals were coerced when recorded.
			_ = c.set(p, v, notify)
		}
	}
	c.originals = nil
}

// hasOriginals reports whether c or a nested object recorded originals.
func (c *ComplexObject) hasOriginals() bool {
	if len(c.originals) > 0 {
		return true
	}
	for _, v := range c.values {
		if co, ok := v.(*ComplexObject); ok && co.hasOriginals() {
			return true
		}
	}
	return false
}

// exportOriginals returns the originals of c and its nested objects as a
// nested map of portable values.
func (c *ComplexObject) exportOriginals() map[string]any {
	var out map[string]any
	for _, p := range c.typ.Properties {
		if co, ok := c.values[p.Name].(*ComplexObject); ok {
			if sub := co.exportOriginals(); sub != nil {
				if out == nil {
					out = make(map[string]any)
				}
				out[p.Name] = sub
			}
			continue
		}
		if v, ok := c.originals[p.Name]; ok {
			if out == nil {
				out = make(map[string]any)
			}
			out[p.Name] = p.Type.Portable(v)
		}
	}
	return out
}

// importOriginals restores originals from a nested map.
func (c *ComplexObject) importOriginals(vs map[string]any) error {
	for name, v := range vs {
		p, ok := c.typ.Property(name)
		if !ok {
			continue
		}
		if p.IsComplex() {
			sub, ok := v.(map[string]any)
			if !ok {
				return fmt.Errorf("breeze: originals of %s.%s must be an object", c.typ.Name, name)
			}
			if err := c.values[name].(*ComplexObject).importOriginals(sub); err != nil {
				return err
			}
			continue
		}
		cv, err := p.Coerce(v)
		if err != nil {
			return err
		}
		if c.originals == nil {
			c.originals = make(map[string]any)
		}
		c.originals[name] = cv
	}
	return nil
}

// exportValues returns the values of c as portable values, omitting
// values equal to their defaults.
func (c *ComplexObject) exportValues() map[string]any {
	out := make(map[string]any)
	for _, p := range c.typ.Properties {
		v := c.values[p.Name]
		if co, ok := v.(*ComplexObject); ok {
			if sub := co.exportValues(); len(sub) > 0 {
				out[p.Name] = sub
			}
			continue
		}
		if field.Equal(v, p.DefaultValue()) {
			continue
		}
		out[p.Name] = p.Type.Portable(v)
	}
	return out
}
