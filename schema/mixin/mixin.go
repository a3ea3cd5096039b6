// Package mixin provides the base mixin implementation for entity schemas.
//
// A mixin is a reusable set of fields, edges and annotations that can be
// embedded in multiple schema declarations.
//
// To create a custom mixin, embed Schema and override the methods you need:
//
//	type AuditMixin struct {
//	    mixin.Schema
//	}
//
//	func (AuditMixin) Fields() []breeze.Field {
//	    return []breeze.Field{
//	        field.Time("createdAt").Default(time.Now),
//	        field.String("createdBy").Optional(),
//	    }
//	}
//
// Ready-to-use mixins live in contrib/mixin.
package mixin

import (
	"github.com/Breeze/breeze.sharp-sub000"
	"github.com/Breeze/breeze.sharp-sub000/schema"
)

// Schema is the default implementation for the breeze.Mixin interface.
// It should be embedded in all custom mixin definitions.
type Schema struct{}

// Fields returns the fields of the mixin.
func (Schema) Fields() []breeze.Field { return nil }

// Edges returns the edges of the mixin.
func (Schema) Edges() []breeze.Edge { return nil }

// Annotations returns the annotations of the mixin.
func (Schema) Annotations() []schema.Annotation { return nil }

// schema mixin must implement `Mixin` interface.
var _ breeze.Mixin = (*Schema)(nil)

// AnnotateFields wraps a mixin and adds annotations to all its fields.
//
//	mixin.AnnotateFields(
//	    AuditMixin{},
//	    schema.Comment("audit"),
//	)
func AnnotateFields(m breeze.Mixin, annotations ...schema.Annotation) breeze.Mixin {
	return fieldAnnotator{Mixin: m, annotations: annotations}
}

// AnnotateEdges wraps a mixin and adds annotations to all its edges.
func AnnotateEdges(m breeze.Mixin, annotations ...schema.Annotation) breeze.Mixin {
	return edgeAnnotator{Mixin: m, annotations: annotations}
}

type fieldAnnotator struct {
	breeze.Mixin
	annotations []schema.Annotation
}

func (a fieldAnnotator) Fields() []breeze.Field {
	fields := a.Mixin.Fields()
	for i := range fields {
		desc := fields[i].Descriptor()
		desc.Annotations = append(desc.Annotations, a.annotations...)
	}
	return fields
}

type edgeAnnotator struct {
	breeze.Mixin
	annotations []schema.Annotation
}

func (a edgeAnnotator) Edges() []breeze.Edge {
	edges := a.Mixin.Edges()
	for i := range edges {
		desc := edges[i].Descriptor()
		desc.Annotations = append(desc.Annotations, a.annotations...)
	}
	return edges
}
