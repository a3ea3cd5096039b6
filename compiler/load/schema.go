// Package load turns schema declarations into serializable metadata.
//
// Metadata comes from two places: Go schemas implementing breeze.Interface
// (FromInterface) and metadata documents fetched from a data service or
// read from disk (ParseJSON, ParseYAML, ParseFile). Both produce the same
// Schema values, which graph.Build compiles into a registry.
package load

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"

	"github.com/Breeze/breeze.sharp-sub000"
	"github.com/Breeze/breeze.sharp-sub000/schema"
	"github.com/Breeze/breeze.sharp-sub000/schema/edge"
	"github.com/Breeze/breeze.sharp-sub000/schema/field"
)

// Schema represents the metadata of one entity or complex type.
type Schema struct {
	Name        string         `json:"name" yaml:"name"`
	Resource    string         `json:"resource,omitempty" yaml:"resource,omitempty"`
	Base        string         `json:"base,omitempty" yaml:"base,omitempty"`
	Complex     bool           `json:"complex,omitempty" yaml:"complex,omitempty"`
	AutoKey     breeze.AutoKey `json:"autoKey,omitempty" yaml:"autoKey,omitempty"`
	Fields      []*Field       `json:"fields,omitempty" yaml:"fields,omitempty"`
	Edges       []*Edge        `json:"edges,omitempty" yaml:"edges,omitempty"`
	Comment     string         `json:"comment,omitempty" yaml:"comment,omitempty"`
	Annotations map[string]any `json:"annotations,omitempty" yaml:"annotations,omitempty"`
}

// Field represents the metadata of a data or complex property.
type Field struct {
	Name         string         `json:"name" yaml:"name"`
	ServerName   string         `json:"serverName,omitempty" yaml:"serverName,omitempty"`
	Type         field.Type     `json:"type" yaml:"type"`
	ComplexType  string         `json:"complexType,omitempty" yaml:"complexType,omitempty"`
	Key          bool           `json:"key,omitempty" yaml:"key,omitempty"`
	Nillable     bool           `json:"nillable,omitempty" yaml:"nillable,omitempty"`
	Optional     bool           `json:"optional,omitempty" yaml:"optional,omitempty"`
	Concurrency  bool           `json:"concurrency,omitempty" yaml:"concurrency,omitempty"`
	MaxLength    int            `json:"maxLength,omitempty" yaml:"maxLength,omitempty"`
	DefaultValue any            `json:"defaultValue,omitempty" yaml:"defaultValue,omitempty"`
	Comment      string         `json:"comment,omitempty" yaml:"comment,omitempty"`
	Annotations  map[string]any `json:"annotations,omitempty" yaml:"annotations,omitempty"`

	// desc is the builder descriptor, available for Go declared schemas.
	// It carries default factories and validators that do not serialize.
	desc *field.Descriptor
}

// Edge represents the metadata of a navigation property.
type Edge struct {
	Name        string         `json:"name" yaml:"name"`
	Type        string         `json:"type" yaml:"type"`
	Fields      []string       `json:"fields,omitempty" yaml:"fields,omitempty"`
	RefName     string         `json:"refName,omitempty" yaml:"refName,omitempty"`
	Ref         *Edge          `json:"ref,omitempty" yaml:"ref,omitempty"`
	Unique      bool           `json:"unique,omitempty" yaml:"unique,omitempty"`
	Inverse     bool           `json:"inverse,omitempty" yaml:"inverse,omitempty"`
	Required    bool           `json:"required,omitempty" yaml:"required,omitempty"`
	Comment     string         `json:"comment,omitempty" yaml:"comment,omitempty"`
	Annotations map[string]any `json:"annotations,omitempty" yaml:"annotations,omitempty"`
}

// NewEdge creates a loaded edge from edge descriptor.
// It returns an error if the descriptor contains an error.
func NewEdge(ed *edge.Descriptor) (*Edge, error) {
	if ed.Err != nil {
		return nil, ed.Err
	}
	ne := &Edge{
		Type:     ed.Type,
		Name:     ed.Name,
		Fields:   ed.Fields,
		Unique:   ed.Unique,
		Inverse:  ed.Inverse,
		Required: ed.Required,
		RefName:  ed.RefName,
		Comment:  ed.Comment,
	}
	for _, at := range ed.Annotations {
		ne.Annotations = addAnnotation(ne.Annotations, at)
	}
	if ref := ed.Ref; ref != nil {
		refEdge, err := NewEdge(ref)
		if err != nil {
			return nil, err
		}
		ne.Ref = refEdge
	}
	return ne, nil
}

// NewField creates a loaded field from field descriptor.
func NewField(fd *field.Descriptor) (*Field, error) {
	if fd.Err != nil {
		return nil, fmt.Errorf("field %q: %w", fd.Name, fd.Err)
	}
	if fd.Info == nil || !fd.Info.Type.Valid() {
		return nil, fmt.Errorf("missing type info for field %q", fd.Name)
	}
	sf := &Field{
		Name:        fd.Name,
		ServerName:  fd.ServerName,
		Type:        fd.Info.Type,
		ComplexType: fd.ComplexType,
		Key:         fd.Key,
		Nillable:    fd.Nillable,
		Optional:    fd.Optional,
		Concurrency: fd.Concurrency,
		MaxLength:   fd.Size,
		Comment:     fd.Comment,
		desc:        fd,
	}
	for _, at := range fd.Annotations {
		sf.Annotations = addAnnotation(sf.Annotations, at)
	}
	// Only static defaults that encode are part of the metadata.
	// Factories such as time.Now stay on the descriptor.
	if fd.Default != nil {
		if _, err := json.Marshal(fd.Default); err == nil {
			sf.DefaultValue = fd.Info.Type.Portable(fd.Default)
		}
	}
	return sf, nil
}

// Descriptor returns the field descriptor. Fields decoded from metadata
// documents get a descriptor rebuilt from the metadata.
func (f *Field) Descriptor() *field.Descriptor {
	if f.desc != nil {
		return f.desc
	}
	d := &field.Descriptor{
		Name:        f.Name,
		ServerName:  f.ServerName,
		Info:        &field.TypeInfo{Type: f.Type},
		ComplexType: f.ComplexType,
		Key:         f.Key,
		Nillable:    f.Nillable,
		Optional:    f.Optional,
		Concurrency: f.Concurrency,
		Default:     f.DefaultValue,
		Size:        f.MaxLength,
		Comment:     f.Comment,
	}
	if n := f.MaxLength; n > 0 && f.Type == field.TypeString {
		d.Validators = append(d.Validators, func(v any) error {
			if s, ok := v.(string); ok && len([]rune(s)) > n {
				return errors.New("value is greater than the required length")
			}
			return nil
		})
	}
	f.desc = d
	return d
}

// FromInterface loads the metadata of a Go declared schema.
func FromInterface(iface breeze.Interface) (*Schema, error) {
	cfg := iface.Config()
	s := &Schema{
		Name:     indirect(reflect.TypeOf(iface)).Name(),
		Resource: cfg.Resource,
		Base:     cfg.Base,
		Complex:  cfg.Complex,
		AutoKey:  cfg.AutoKey,
	}
	if err := s.loadMixin(iface); err != nil {
		return nil, fmt.Errorf("schema %q: %w", s.Name, err)
	}
	// Schema annotations override mixed-in annotations.
	for _, at := range iface.Annotations() {
		if c, ok := at.(*schema.CommentAnnotation); ok {
			s.Comment = c.Text
		}
		s.Annotations = addAnnotation(s.Annotations, at)
	}
	if err := s.loadFields(iface); err != nil {
		return nil, fmt.Errorf("schema %q: %w", s.Name, err)
	}
	edges, err := safeEdges(iface)
	if err != nil {
		return nil, fmt.Errorf("schema %q: %w", s.Name, err)
	}
	for _, e := range edges {
		ne, err := NewEdge(e.Descriptor())
		if err != nil {
			return nil, fmt.Errorf("schema %q: %w", s.Name, err)
		}
		s.Edges = append(s.Edges, ne)
	}
	return s, nil
}

// MarshalSchema encodes the breeze.Interface into a JSON that can be
// decoded into the Schema objects declared above.
func MarshalSchema(iface breeze.Interface) ([]byte, error) {
	s, err := FromInterface(iface)
	if err != nil {
		return nil, err
	}
	return json.Marshal(s)
}

// UnmarshalSchema decodes the given buffer to a loaded schema.
func UnmarshalSchema(buf []byte) (*Schema, error) {
	s := &Schema{}
	if err := json.Unmarshal(buf, s); err != nil {
		return nil, err
	}
	if err := s.defaults(); err != nil {
		return nil, err
	}
	return s, nil
}

// Field returns the field with the given name.
func (s *Schema) Field(name string) (*Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return nil, false
}

// loadMixin loads mixin to schema from breeze.Interface.
func (s *Schema) loadMixin(iface breeze.Interface) error {
	mixin, err := safeMixin(iface)
	if err != nil {
		return err
	}
	for _, mx := range mixin {
		name := indirect(reflect.TypeOf(mx)).Name()
		fields, err := safeFields(mx)
		if err != nil {
			return fmt.Errorf("mixin %q: %w", name, err)
		}
		for _, f := range fields {
			sf, err := NewField(f.Descriptor())
			if err != nil {
				return fmt.Errorf("mixin %q: %w", name, err)
			}
			s.Fields = append(s.Fields, sf)
		}
		edges, err := safeEdges(mx)
		if err != nil {
			return fmt.Errorf("mixin %q: %w", name, err)
		}
		for _, e := range edges {
			ne, err := NewEdge(e.Descriptor())
			if err != nil {
				return fmt.Errorf("mixin %q: %w", name, err)
			}
			s.Edges = append(s.Edges, ne)
		}
		for _, at := range mx.Annotations() {
			s.Annotations = addAnnotation(s.Annotations, at)
		}
	}
	return nil
}

// loadFields loads field to schema from breeze.Interface.
func (s *Schema) loadFields(iface breeze.Interface) error {
	fields, err := safeFields(iface)
	if err != nil {
		return err
	}
	for _, f := range fields {
		sf, err := NewField(f.Descriptor())
		if err != nil {
			return err
		}
		s.Fields = append(s.Fields, sf)
	}
	return nil
}

// defaults coerces decoded default values to their property types.
func (s *Schema) defaults() error {
	for _, f := range s.Fields {
		if f.DefaultValue == nil {
			continue
		}
		v, err := f.Type.Coerce(f.DefaultValue)
		if err != nil {
			return fmt.Errorf("schema %q: default of field %q: %w", s.Name, f.Name, err)
		}
		f.DefaultValue = v
	}
	return nil
}

func addAnnotation(annotations map[string]any, an schema.Annotation) map[string]any {
	if annotations == nil {
		annotations = make(map[string]any)
	}
	curr, ok := annotations[an.Name()]
	if !ok {
		annotations[an.Name()] = an
		return annotations
	}
	if m, ok := curr.(schema.Merger); ok {
		annotations[an.Name()] = m.Merge(an)
	}
	return annotations
}

// safeFields wraps the schema.Fields and mixin.Fields method with recover to ensure no panics in marshaling.
func safeFields(fd interface{ Fields() []breeze.Field }) (fields []breeze.Field, err error) {
	defer func() {
		if v := recover(); v != nil {
			err = fmt.Errorf("%T.Fields panics: %v", fd, v)
			fields = nil
		}
	}()
	return fd.Fields(), nil
}

// safeEdges wraps the schema.Edges method with recover to ensure no panics in marshaling.
func safeEdges(s interface{ Edges() []breeze.Edge }) (edges []breeze.Edge, err error) {
	defer func() {
		if v := recover(); v != nil {
			err = fmt.Errorf("schema.Edges panics: %v", v)
			edges = nil
		}
	}()
	return s.Edges(), nil
}

// safeMixin wraps the schema.Mixin method with recover to ensure no panics in marshaling.
func safeMixin(s breeze.Interface) (mixin []breeze.Mixin, err error) {
	defer func() {
		if v := recover(); v != nil {
			err = fmt.Errorf("schema.Mixin panics: %v", v)
			mixin = nil
		}
	}()
	return s.Mixin(), nil
}

func indirect(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}
