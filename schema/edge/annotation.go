package edge

import (
	"encoding/json"

	"github.com/Breeze/breeze.sharp-sub000/schema"
)

// Annotation is a builtin schema annotation for configuring the
// navigation accessors of generated wrappers.
//
//	edge.To("details", OrderDetail.Type).
//		Annotations(edge.Annotation{Accessor: "Lines"})
type Annotation struct {
	// Accessor overrides the name of the generated getter. The setter of
	// scalar navigations is named Set<Accessor>.
	Accessor string `json:"accessor,omitempty" yaml:"accessor,omitempty"`
	// Skip omits the generated accessors.
	Skip bool `json:"skip,omitempty" yaml:"skip,omitempty"`
}

// Name describes the annotation name.
func (Annotation) Name() string {
	return "Edges"
}

// Merge implements the schema.Merger interface.
func (a Annotation) Merge(other schema.Annotation) schema.Annotation {
	var ant Annotation
	switch other := other.(type) {
	case Annotation:
		ant = other
	case *Annotation:
		if other != nil {
			ant = *other
		}
	default:
		return a
	}
	if name := ant.Accessor; name != "" {
		a.Accessor = name
	}
	a.Skip = a.Skip || ant.Skip
	return a
}

// Decode unmarshals an annotation value, as stored in the annotations of
// a loaded schema, into a.
func (a *Annotation) Decode(v any) error {
	buf, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(buf, a)
}

var (
	_ schema.Annotation = (*Annotation)(nil)
	_ schema.Merger     = (*Annotation)(nil)
)
