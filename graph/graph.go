package graph

import (
	"fmt"
	"slices"
	"sync"

	"github.com/go-openapi/inflect"

	"github.com/Breeze/breeze.sharp-sub000"
	"github.com/Breeze/breeze.sharp-sub000/compiler/load"
	"github.com/Breeze/breeze.sharp-sub000/schema/field"
)

var rules = inflect.NewDefaultRuleset()

// Graph is the registry of the types known to a cache.
type Graph struct {
	// Namespace of the metadata the graph was built from.
	Namespace string

	mu        sync.RWMutex
	naming    NamingConvention
	types     map[string]*Type
	resources map[string]*Type
	order     []*Type
}

// Option configures a Graph.
type Option func(*Graph)

// WithNamingConvention sets the convention used to derive server names of
// properties that do not declare one. The default is Identity.
func WithNamingConvention(nc NamingConvention) Option {
	return func(g *Graph) {
		g.naming = nc
	}
}

// WithNamespace sets the graph namespace.
func WithNamespace(ns string) Option {
	return func(g *Graph) {
		g.Namespace = ns
	}
}

// NewGraph creates a graph from Go declared schemas.
func NewGraph(schemas ...breeze.Interface) (*Graph, error) {
	loaded := make([]*load.Schema, 0, len(schemas))
	for _, s := range schemas {
		ls, err := load.FromInterface(s)
		if err != nil {
			return nil, NewSchemaError("", "", "load schema", err)
		}
		loaded = append(loaded, ls)
	}
	return Build(loaded)
}

// MustNewGraph is like NewGraph but panics on error.
func MustNewGraph(schemas ...breeze.Interface) *Graph {
	g, err := NewGraph(schemas...)
	if err != nil {
		panic(err)
	}
	return g
}

// Build creates a graph from loaded schemas.
func Build(schemas []*load.Schema, opts ...Option) (*Graph, error) {
	g := &Graph{
		naming:    Identity,
		types:     make(map[string]*Type),
		resources: make(map[string]*Type),
	}
	for _, opt := range opts {
		opt(g)
	}
	if err := g.Merge(schemas); err != nil {
		return nil, err
	}
	return g, nil
}

// Merge adds the given schemas to the graph. Schemas whose name is already
// registered are ignored. Merge is atomic: on error the graph is left
// unchanged.
func (g *Graph) Merge(schemas []*load.Schema) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	b := &builder{g: g, added: make(map[string]*Type)}
	if err := b.build(schemas); err != nil {
		return err
	}
	for _, fn := range b.patches {
		fn()
	}
	for _, t := range b.order {
		g.types[t.Name] = t
		if !t.Complex {
			g.resources[t.Resource] = t
		}
		g.order = append(g.order, t)
	}
	return nil
}

// Type returns the type with the given name.
func (g *Graph) Type(name string) (*Type, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	t, ok := g.types[name]
	return t, ok
}

// MustType is like Type but panics if the type does not exist.
func (g *Graph) MustType(name string) *Type {
	t, ok := g.Type(name)
	if !ok {
		panic(fmt.Sprintf("breeze: unknown type %q", name))
	}
	return t
}

// TypeByResource returns the entity type queried from the given resource.
func (g *Graph) TypeByResource(resource string) (*Type, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	t, ok := g.resources[resource]
	return t, ok
}

// Types returns all types in registration order.
func (g *Graph) Types() []*Type {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return slices.Clone(g.order)
}

// Naming returns the naming convention of the graph.
func (g *Graph) Naming() NamingConvention {
	return g.naming
}

// builder compiles schemas into types. Types already registered in the
// graph are only modified through patches, applied once the whole batch
// is known to be valid.
type builder struct {
	g       *Graph
	added   map[string]*Type
	order   []*Type
	schemas map[*Type]*load.Schema
	patches []func()
}

func (b *builder) lookup(name string) (*Type, bool) {
	if t, ok := b.added[name]; ok {
		return t, true
	}
	t, ok := b.g.types[name]
	return t, ok
}

// mutate runs fn against t now if t is part of this batch, or after the
// batch is validated otherwise.
func (b *builder) mutate(t *Type, fn func()) {
	if _, ok := b.added[t.Name]; ok {
		fn()
		return
	}
	b.patches = append(b.patches, fn)
}

func (b *builder) build(schemas []*load.Schema) error {
	b.schemas = make(map[*Type]*load.Schema, len(schemas))
	for _, s := range schemas {
		if _, ok := b.g.types[s.Name]; ok {
			continue
		}
		if _, ok := b.added[s.Name]; ok {
			return NewSchemaError(s.Name, "", "duplicate type", nil)
		}
		t := &Type{
			Name:        s.Name,
			Resource:    s.Resource,
			Complex:     s.Complex,
			AutoKey:     s.AutoKey,
			Comment:     s.Comment,
			Annotations: s.Annotations,
			graph:       b.g,
			props:       make(map[string]*Property),
			server:      make(map[string]*Property),
			navs:        make(map[string]*Navigation),
		}
		if t.Resource == "" && !t.Complex {
			t.Resource = rules.Pluralize(t.Name)
		}
		b.added[t.Name] = t
		b.order = append(b.order, t)
		b.schemas[t] = s
	}
	if err := b.resolveBases(); err != nil {
		return err
	}
	// Base types first, so subtypes can copy inherited members.
	slices.SortStableFunc(b.order, func(x, y *Type) int {
		return depth(x) - depth(y)
	})
	for _, t := range b.order {
		if err := b.addFields(t); err != nil {
			return err
		}
	}
	for _, t := range b.order {
		if err := b.addEdges(t); err != nil {
			return err
		}
	}
	for _, t := range b.order {
		if err := b.linkEdges(t); err != nil {
			return err
		}
	}
	for _, t := range b.order {
		if err := b.check(t); err != nil {
			return err
		}
	}
	return nil
}

func depth(t *Type) int {
	n := 0
	for c := t.Base; c != nil; c = c.Base {
		n++
	}
	return n
}

func (b *builder) resolveBases() error {
	for _, t := range b.order {
		s := b.schemas[t]
		if s.Base == "" {
			continue
		}
		base, ok := b.lookup(s.Base)
		if !ok {
			return NewSchemaError(t.Name, "", fmt.Sprintf("unknown base type %q", s.Base), nil)
		}
		if base.Complex != t.Complex {
			return NewSchemaError(t.Name, "", fmt.Sprintf("base type %q is of a different kind", s.Base), nil)
		}
		t.Base = base
	}
	limit := len(b.order) + len(b.g.order)
	for _, t := range b.order {
		n := 0
		for c := t.Base; c != nil; c = c.Base {
			if c == t || n > limit {
				return NewSchemaError(t.Name, "", "inheritance cycle", nil)
			}
			n++
		}
		if base := t.Base; base != nil {
			b.mutate(base, func() { base.Subtypes = append(base.Subtypes, t) })
		}
	}
	return nil
}

func (b *builder) addFields(t *Type) error {
	if base := t.Base; base != nil {
		t.Keys = append(t.Keys, base.Keys...)
		for _, p := range base.Properties {
			t.addProperty(p)
		}
		if t.AutoKey == breeze.AutoKeyNone {
			t.AutoKey = base.AutoKey
		}
	}
	for _, f := range b.schemas[t].Fields {
		if _, ok := t.props[f.Name]; ok {
			return NewSchemaError(t.Name, f.Name, "duplicate property", nil)
		}
		p := &Property{
			Name:        f.Name,
			ServerName:  f.ServerName,
			Type:        f.Type,
			Key:         f.Key,
			Nillable:    f.Nillable,
			Optional:    f.Optional,
			Concurrency: f.Concurrency,
			MaxLength:   f.MaxLength,
			Owner:       t,
			Comment:     f.Comment,
			Annotations: f.Annotations,
			desc:        f.Descriptor(),
		}
		if p.ServerName == "" {
			p.ServerName = b.g.naming.ServerName(p.Name)
		}
		if p.Type == field.TypeComplex {
			ct, ok := b.lookup(f.ComplexType)
			if !ok || !ct.Complex {
				return NewSchemaError(t.Name, f.Name, fmt.Sprintf("unknown complex type %q", f.ComplexType), nil)
			}
			p.ComplexType = ct
		}
		if p.Key {
			switch {
			case t.Complex:
				return NewSchemaError(t.Name, f.Name, "complex types cannot declare keys", nil)
			case t.Base != nil:
				return NewSchemaError(t.Name, f.Name, "subtypes inherit their keys", nil)
			case p.Nillable || p.IsComplex():
				return NewSchemaError(t.Name, f.Name, "key properties must be scalar and not nillable", nil)
			}
			t.Keys = append(t.Keys, p)
		}
		t.addProperty(p)
	}
	if t.AutoKey != breeze.AutoKeyNone && len(t.Keys) != 1 {
		return NewSchemaError(t.Name, "", "generated keys require a single key property", nil)
	}
	return nil
}

func (t *Type) addProperty(p *Property) {
	t.Properties = append(t.Properties, p)
	t.props[p.Name] = p
	t.server[p.ServerName] = p
}

func (b *builder) addEdges(t *Type) error {
	if base := t.Base; base != nil {
		for _, n := range base.Navigations {
			t.Navigations = append(t.Navigations, n)
			t.navs[n.Name] = n
		}
	}
	for _, e := range b.schemas[t].Edges {
		if t.Complex {
			return NewEdgeError(t.Name, e.Type, e.Name, "complex types cannot declare navigations", nil)
		}
		if err := b.addEdge(t, e); err != nil {
			return err
		}
		// Same-type inverse declared through edge.To(...).From(...).
		if ref := e.Ref; ref != nil && e.Inverse {
			if err := b.addEdge(t, ref); err != nil {
				return err
			}
		}
	}
	return nil
}

func (b *builder) addEdge(t *Type, e *load.Edge) error {
	if _, ok := t.navs[e.Name]; ok {
		return NewEdgeError(t.Name, e.Type, e.Name, "duplicate navigation", nil)
	}
	if _, ok := t.props[e.Name]; ok {
		return NewEdgeError(t.Name, e.Type, e.Name, "navigation name collides with a property", nil)
	}
	target, ok := b.lookup(e.Type)
	if !ok {
		return NewEdgeError(t.Name, e.Type, e.Name, "unknown target type", nil)
	}
	if target.Complex {
		return NewEdgeError(t.Name, e.Type, e.Name, "navigations cannot target complex types", nil)
	}
	n := &Navigation{
		Name:        e.Name,
		Owner:       t,
		Target:      target,
		Scalar:      e.Unique,
		Required:    e.Required,
		Comment:     e.Comment,
		Annotations: e.Annotations,
	}
	if len(e.Fields) > 0 {
		// Scalar navigations hold their foreign key, collections point at
		// the foreign key of the target.
		holder := t
		if !n.Scalar {
			holder = target
		}
		for _, name := range e.Fields {
			p, ok := holder.props[name]
			if !ok {
				return NewEdgeError(t.Name, e.Type, e.Name, fmt.Sprintf("unknown foreign key %s.%s", holder.Name, name), nil)
			}
			if n.Scalar {
				n.ForeignKeys = append(n.ForeignKeys, p)
			} else {
				n.InverseForeignKeys = append(n.InverseForeignKeys, p)
			}
		}
	}
	t.Navigations = append(t.Navigations, n)
	t.navs[n.Name] = n
	return nil
}

func (b *builder) linkEdges(t *Type) error {
	for _, e := range b.schemas[t].Edges {
		if !e.Inverse {
			continue
		}
		n := t.navs[e.Name]
		refName := e.RefName
		if refName == "" && e.Ref != nil {
			refName = e.Ref.Name
		}
		if refName == "" {
			continue
		}
		ref, ok := n.Target.navs[refName]
		if !ok {
			return NewEdgeError(t.Name, n.Target.Name, e.Name, fmt.Sprintf("missing inverse navigation %s.%s", n.Target.Name, refName), nil)
		}
		if !t.IsSubtypeOf(ref.Target) {
			return NewEdgeError(t.Name, n.Target.Name, e.Name, fmt.Sprintf("inverse navigation %s targets %s", ref, ref.Target), nil)
		}
		if !n.Scalar && !ref.Scalar {
			return NewEdgeError(t.Name, n.Target.Name, e.Name, "many-to-many associations need a join type", nil)
		}
		b.mutate(ref.Owner, func() { ref.Inverse = n })
		n.Inverse = ref
		switch {
		case len(n.ForeignKeys) > 0 && len(ref.ForeignKeys) == 0 && len(ref.InverseForeignKeys) == 0:
			if err := b.setInverseForeignKeys(ref, n.ForeignKeys); err != nil {
				return err
			}
		case len(n.InverseForeignKeys) > 0 && ref.Scalar && len(ref.ForeignKeys) == 0:
			if err := b.setForeignKeys(ref, n.InverseForeignKeys); err != nil {
				return err
			}
		case len(n.ForeignKeys) == 0 && n.Scalar && len(ref.InverseForeignKeys) > 0:
			n.ForeignKeys = ref.InverseForeignKeys
		case len(n.ForeignKeys) == 0 && len(n.InverseForeignKeys) == 0 && len(ref.ForeignKeys) > 0:
			n.InverseForeignKeys = ref.ForeignKeys
		}
	}
	return nil
}

// setInverseForeignKeys binds fks as the inverse foreign keys of ref.
// Navigations of types already in the graph are checked and registered
// here, since check only visits the types of the batch.
func (b *builder) setInverseForeignKeys(ref *Navigation, fks []*Property) error {
	if _, ok := b.added[ref.Owner.Name]; ok {
		ref.InverseForeignKeys = fks
		return nil
	}
	if err := matchKeys(ref, fks, ref.Owner); err != nil {
		return err
	}
	b.patches = append(b.patches, func() { ref.InverseForeignKeys = fks })
	for _, p := range fks {
		b.mutate(p.Owner, func() { p.InverseNavigations = append(p.InverseNavigations, ref) })
	}
	return nil
}

// setForeignKeys binds fks as the foreign keys of the scalar navigation ref.
func (b *builder) setForeignKeys(ref *Navigation, fks []*Property) error {
	if _, ok := b.added[ref.Owner.Name]; ok {
		ref.ForeignKeys = fks
		return nil
	}
	if err := matchKeys(ref, fks, ref.Target); err != nil {
		return err
	}
	b.patches = append(b.patches, func() { ref.ForeignKeys = fks })
	for _, p := range fks {
		b.mutate(p.Owner, func() { p.RelatedNavigation = ref })
	}
	return nil
}

// check validates the foreign keys of the navigations declared by t and
// registers them on their properties.
func (b *builder) check(t *Type) error {
	for _, n := range t.Navigations {
		if n.Owner != t {
			continue
		}
		if len(n.ForeignKeys) == 0 && len(n.InverseForeignKeys) == 0 {
			return NewEdgeError(t.Name, n.Target.Name, n.Name, "no foreign key", nil)
		}
		if err := matchKeys(n, n.ForeignKeys, n.Target); err != nil {
			return err
		}
		if err := matchKeys(n, n.InverseForeignKeys, t); err != nil {
			return err
		}
		for _, p := range n.ForeignKeys {
			b.mutate(p.Owner, func() { p.RelatedNavigation = n })
		}
		for _, p := range n.InverseForeignKeys {
			b.mutate(p.Owner, func() { p.InverseNavigations = append(p.InverseNavigations, n) })
		}
	}
	return nil
}

func matchKeys(n *Navigation, fks []*Property, principal *Type) error {
	if len(fks) == 0 {
		return nil
	}
	if len(fks) != len(principal.Keys) {
		return NewEdgeError(n.Owner.Name, n.Target.Name, n.Name,
			fmt.Sprintf("%d foreign keys for %d key properties of %s", len(fks), len(principal.Keys), principal), nil)
	}
	for i, p := range fks {
		if k := principal.Keys[i]; k.Type != p.Type {
			return NewEdgeError(n.Owner.Name, n.Target.Name, n.Name,
				fmt.Sprintf("foreign key %s is %s, key %s is %s", p, p.Type, k, k.Type), nil)
		}
	}
	return nil
}
