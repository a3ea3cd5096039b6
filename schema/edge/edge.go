package edge

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/Breeze/breeze.sharp-sub000/schema"
)

// A Descriptor for navigation property configuration.
type Descriptor struct {
	Tag         string              // struct tag of the generated accessor.
	Type        string              // target type name.
	Name        string              // navigation property name.
	Fields      []string            // foreign key properties.
	RefName     string              // name of the inverse navigation.
	Ref         *Descriptor         // edge reference, for edges declared through edge.From.
	Unique      bool                // scalar navigation.
	Inverse     bool                // declared through edge.From.
	Required    bool                // association is required.
	Comment     string              // edge comment.
	Annotations []schema.Annotation // edge annotations.
	Err         error               // builder error.
}

// To defines an association edge. The target type may be given by name or
// as a method expression of the schema, e.g. Order.Type.
//
//	edge.To("orders", Order.Type)
func To(name string, t any) *assocBuilder {
	return &assocBuilder{desc: newDescriptor(name, t)}
}

// From represents a reversed-edge between two types that has a back-reference
// to its source edge.
//
//	edge.From("customer", Customer.Type).Ref("orders").Field("customerID").Unique()
func From(name string, t any) *inverseBuilder {
	d := newDescriptor(name, t)
	d.Inverse = true
	return &inverseBuilder{desc: d}
}

func newDescriptor(name string, t any) *Descriptor {
	d := &Descriptor{Name: name, Type: typ(t)}
	switch {
	case name == "":
		d.Err = errors.New("edge: missing edge name")
	case d.Type == "":
		d.Err = fmt.Errorf("edge %q: invalid target type %T", name, t)
	}
	return d
}

// assocBuilder is the builder for assoc edges.
type assocBuilder struct {
	desc *Descriptor
}

// Unique sets the edge type to be unique. Basically, it limits the edge to
// be one of the two: one-to-one or many-to-one.
func (b *assocBuilder) Unique() *assocBuilder {
	b.desc.Unique = true
	return b
}

// Required indicates that this edge is a required field on creation.
func (b *assocBuilder) Required() *assocBuilder {
	b.desc.Required = true
	return b
}

// Field names the foreign key property declared on the target type, for
// unidirectional collections.
//
//	edge.To("details", OrderDetail.Type).Field("orderID")
func (b *assocBuilder) Field(f string) *assocBuilder {
	b.desc.Fields = []string{f}
	return b
}

// Fields names a composite foreign key declared on the target type.
func (b *assocBuilder) Fields(fs ...string) *assocBuilder {
	b.desc.Fields = append([]string(nil), fs...)
	return b
}

// From creates an inverse-edge with the same type.
func (b *assocBuilder) From(name string) *inverseBuilder {
	return &inverseBuilder{desc: &Descriptor{Name: name, Type: b.desc.Type, Inverse: true, Ref: b.desc}}
}

// StructTag sets the struct tag of the generated accessor.
func (b *assocBuilder) StructTag(s string) *assocBuilder {
	b.desc.Tag = s
	return b
}

// Comment used to put annotations on the schema.
func (b *assocBuilder) Comment(c string) *assocBuilder {
	b.desc.Comment = c
	return b
}

// Annotations adds a list of annotations to the edge object.
func (b *assocBuilder) Annotations(annotations ...schema.Annotation) *assocBuilder {
	b.desc.Annotations = append(b.desc.Annotations, annotations...)
	return b
}

// Descriptor implements the breeze.Edge interface.
func (b *assocBuilder) Descriptor() *Descriptor {
	return b.desc
}

// inverseBuilder is the builder for inverse edges.
type inverseBuilder struct {
	desc *Descriptor
}

// Ref sets the referenced-edge of this inverse edge.
func (b *inverseBuilder) Ref(ref string) *inverseBuilder {
	b.desc.RefName = ref
	return b
}

// Unique sets the edge type to be unique, making it a scalar navigation.
func (b *inverseBuilder) Unique() *inverseBuilder {
	b.desc.Unique = true
	return b
}

// Required indicates that this edge is a required field on creation.
func (b *inverseBuilder) Required() *inverseBuilder {
	b.desc.Required = true
	return b
}

// Field binds the foreign key property holding the target's key.
func (b *inverseBuilder) Field(f string) *inverseBuilder {
	b.desc.Fields = []string{f}
	return b
}

// Fields binds a composite foreign key, in target key order.
func (b *inverseBuilder) Fields(fs ...string) *inverseBuilder {
	b.desc.Fields = append([]string(nil), fs...)
	return b
}

// StructTag sets the struct tag of the generated accessor.
func (b *inverseBuilder) StructTag(s string) *inverseBuilder {
	b.desc.Tag = s
	return b
}

// Comment used to put annotations on the schema.
func (b *inverseBuilder) Comment(c string) *inverseBuilder {
	b.desc.Comment = c
	return b
}

// Annotations adds a list of annotations to the edge object.
func (b *inverseBuilder) Annotations(annotations ...schema.Annotation) *inverseBuilder {
	b.desc.Annotations = append(b.desc.Annotations, annotations...)
	return b
}

// Descriptor implements the breeze.Edge interface.
func (b *inverseBuilder) Descriptor() *Descriptor {
	if b.desc.Ref != nil {
		b.desc.RefName = b.desc.Ref.Name
	}
	return b.desc
}

// typ returns the type name of a schema reference.
func typ(t any) string {
	switch t := t.(type) {
	case string:
		return t
	case nil:
		return ""
	}
	rt := reflect.TypeOf(t)
	if rt.Kind() == reflect.Func && rt.NumIn() > 0 {
		return rt.In(0).Name()
	}
	return ""
}
