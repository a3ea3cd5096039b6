package graph

import (
	"fmt"

	"github.com/Breeze/breeze.sharp-sub000"
	"github.com/Breeze/breeze.sharp-sub000/schema/field"
)

type (
	// Type represents one entity or complex type of the graph.
	Type struct {
		// Name holds the type name.
		Name string
		// Resource is the data service resource the type is queried from.
		Resource string
		// Complex reports whether the type is a complex (embedded) type.
		Complex bool
		// AutoKey is the key generation policy of the type.
		AutoKey breeze.AutoKey
		// Base is the base type, nil for root types.
		Base *Type
		// Subtypes holds the types that directly extend this type.
		Subtypes []*Type
		// Keys holds the key properties, in key order.
		Keys []*Property
		// Properties holds the data and complex properties, including the
		// properties inherited from the base type.
		Properties []*Property
		// Navigations holds the navigation properties, including the
		// navigations inherited from the base type.
		Navigations []*Navigation
		// Comment of the type.
		Comment string
		// Annotations that were defined for the type in the schema.
		Annotations map[string]any

		graph  *Graph
		props  map[string]*Property
		server map[string]*Property
		navs   map[string]*Navigation
	}

	// Property holds the metadata of a data or complex property.
	Property struct {
		// Name is the client side property name.
		Name string
		// ServerName is the property name used by data services.
		ServerName string
		// Type holds the value type.
		Type field.Type
		// ComplexType is the type of complex properties.
		ComplexType *Type
		// Key reports whether the property is part of the entity key.
		Key bool
		// Nillable reports whether nil is a valid value.
		Nillable bool
		// Optional reports whether the property may be left unset.
		Optional bool
		// Concurrency marks optimistic concurrency tokens.
		Concurrency bool
		// MaxLength is the maximum length of string properties, 0 if unbounded.
		MaxLength int
		// Owner is the type declaring the property.
		Owner *Type
		// RelatedNavigation is the scalar navigation on the owner whose
		// foreign key includes this property.
		RelatedNavigation *Navigation
		// InverseNavigations are the navigations of other types that read
		// this property as their inverse foreign key.
		InverseNavigations []*Navigation
		// Comment of the property.
		Comment string
		// Annotations that were defined for the property in the schema.
		Annotations map[string]any

		desc *field.Descriptor
	}

	// Navigation holds the metadata of a navigation property.
	Navigation struct {
		// Name of the navigation property.
		Name string
		// Owner is the type declaring the navigation.
		Owner *Type
		// Target is the related type.
		Target *Type
		// Scalar reports whether the navigation references a single entity.
		Scalar bool
		// Required reports whether the association is required.
		Required bool
		// Inverse is the navigation on the target pointing back, if any.
		Inverse *Navigation
		// ForeignKeys are the properties of the owner holding the key of
		// the target. Only scalar navigations have them.
		ForeignKeys []*Property
		// InverseForeignKeys are the properties of the target holding the
		// key of the owner.
		InverseForeignKeys []*Property
		// Comment of the navigation.
		Comment string
		// Annotations that were defined for the edge in the schema.
		Annotations map[string]any
	}
)

// String returns the type name.
func (t *Type) String() string {
	return t.Name
}

// Graph returns the graph the type belongs to.
func (t *Type) Graph() *Graph {
	return t.graph
}

// Property returns the data or complex property with the given name.
func (t *Type) Property(name string) (*Property, bool) {
	p, ok := t.props[name]
	return p, ok
}

// PropertyByServerName returns the property with the given server name.
func (t *Type) PropertyByServerName(name string) (*Property, bool) {
	p, ok := t.server[name]
	return p, ok
}

// Navigation returns the navigation property with the given name.
func (t *Type) Navigation(name string) (*Navigation, bool) {
	n, ok := t.navs[name]
	return n, ok
}

// Root returns the root of the type hierarchy.
func (t *Type) Root() *Type {
	for t.Base != nil {
		t = t.Base
	}
	return t
}

// IsSubtypeOf reports whether t is base or derives from it.
func (t *Type) IsSubtypeOf(base *Type) bool {
	for c := t; c != nil; c = c.Base {
		if c == base {
			return true
		}
	}
	return false
}

// SelfAndSubtypes returns t followed by all types deriving from it.
func (t *Type) SelfAndSubtypes() []*Type {
	types := []*Type{t}
	for i := 0; i < len(types); i++ {
		types = append(types, types[i].Subtypes...)
	}
	return types
}

// ForeignKeys returns the properties taking part in an association.
func (t *Type) ForeignKeys() []*Property {
	var fks []*Property
	for _, p := range t.Properties {
		if p.IsForeignKey() {
			fks = append(fks, p)
		}
	}
	return fks
}

// ConcurrencyProperties returns the concurrency tokens of the type.
func (t *Type) ConcurrencyProperties() []*Property {
	var ps []*Property
	for _, p := range t.Properties {
		if p.Concurrency {
			ps = append(ps, p)
		}
	}
	return ps
}

// HasAutoKey reports whether keys of new entities are produced by the
// client key generator.
func (t *Type) HasAutoKey() bool {
	return t.AutoKey != breeze.AutoKeyNone
}

// String returns the qualified property name.
func (p *Property) String() string {
	return p.Owner.Name + "." + p.Name
}

// IsComplex reports whether the property holds a complex object.
func (p *Property) IsComplex() bool {
	return p.Type == field.TypeComplex
}

// IsForeignKey reports whether the property takes part in an association.
func (p *Property) IsForeignKey() bool {
	return p.RelatedNavigation != nil || len(p.InverseNavigations) > 0
}

// DefaultValue returns the default value of the property. Complex
// properties return nil; the cache creates their objects.
func (p *Property) DefaultValue() any {
	if p.IsComplex() {
		return nil
	}
	return p.desc.DefaultValue()
}

// Coerce converts v to the property value type.
func (p *Property) Coerce(v any) (any, error) {
	if p.IsComplex() {
		return v, nil
	}
	c, err := p.Type.Coerce(v)
	if err != nil {
		return nil, fmt.Errorf("property %s: %w", p, err)
	}
	return c, nil
}

// Validate runs the validators declared on the property.
func (p *Property) Validate(v any) error {
	if v == nil && !p.Nillable && !p.Optional && !p.IsComplex() {
		return fmt.Errorf("%s is required", p.Name)
	}
	return p.desc.Validate(v)
}

// String returns the qualified navigation name.
func (n *Navigation) String() string {
	return n.Owner.Name + "." + n.Name
}

// ForeignKeyNames returns the names of the owner side foreign keys.
func (n *Navigation) ForeignKeyNames() []string {
	names := make([]string, len(n.ForeignKeys))
	for i, p := range n.ForeignKeys {
		names[i] = p.Name
	}
	return names
}
