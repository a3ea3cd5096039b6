package mixin_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Breeze/breeze.sharp-sub000"
	"github.com/Breeze/breeze.sharp-sub000/schema"
	"github.com/Breeze/breeze.sharp-sub000/schema/edge"
	"github.com/Breeze/breeze.sharp-sub000/schema/field"
	"github.com/Breeze/breeze.sharp-sub000/schema/mixin"
)

// TestSchemaBaseMixin tests the base Schema mixin.
func TestSchemaBaseMixin(t *testing.T) {
	m := mixin.Schema{}

	t.Run("returns_nil_fields", func(t *testing.T) {
		assert.Nil(t, m.Fields())
	})

	t.Run("returns_nil_edges", func(t *testing.T) {
		assert.Nil(t, m.Edges())
	})

	t.Run("returns_nil_annotations", func(t *testing.T) {
		assert.Nil(t, m.Annotations())
	})
}

// TestAnnotation is a test annotation type.
type TestAnnotation string

func (TestAnnotation) Name() string { return "TestAnnotation" }

// TestCustomMixin is a custom mixin for testing.
type TestCustomMixin struct {
	mixin.Schema
}

func (TestCustomMixin) Fields() []breeze.Field {
	return []breeze.Field{
		field.String("field1"),
		field.Int("field2"),
	}
}

func (TestCustomMixin) Edges() []breeze.Edge {
	return []breeze.Edge{
		edge.To("children", "Node"),
		edge.From("parent", "Node").Ref("children").Field("parentID").Unique(),
	}
}

// TestAnnotateFields tests the AnnotateFields function.
func TestAnnotateFields(t *testing.T) {
	tests := []struct {
		name        string
		annotations []schema.Annotation
		want        int
	}{
		{name: "single", annotations: []schema.Annotation{TestAnnotation("foo")}, want: 1},
		{name: "multiple", annotations: []schema.Annotation{TestAnnotation("foo"), TestAnnotation("bar")}, want: 2},
		{name: "empty", annotations: nil, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := mixin.AnnotateFields(TestCustomMixin{}, tt.annotations...).Fields()
			require.Len(t, fields, 2)
			for _, f := range fields {
				assert.Len(t, f.Descriptor().Annotations, tt.want)
			}
		})
	}
}

// TestAnnotateEdges tests the AnnotateEdges function.
func TestAnnotateEdges(t *testing.T) {
	m := mixin.AnnotateEdges(TestCustomMixin{}, TestAnnotation("edge_ann"))
	edges := m.Edges()
	require.Len(t, edges, 2)
	for _, e := range edges {
		desc := e.Descriptor()
		require.Len(t, desc.Annotations, 1)
		assert.Equal(t, TestAnnotation("edge_ann"), desc.Annotations[0])
	}
	// Fields are passed through untouched.
	assert.Len(t, m.Fields(), 2)
}
