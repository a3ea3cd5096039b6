package entity

import (
	"fmt"

	"github.com/Breeze/breeze.sharp-sub000"
	"github.com/Breeze/breeze.sharp-sub000/graph"
	"github.com/Breeze/breeze.sharp-sub000/schema/field"
)

// Document is the portable form of a set of cached entities. Values are
// portable: times and UUIDs are strings.
type Document struct {
	Groups   map[string][]*ExportedEntity `json:"entityGroupMap" yaml:"entityGroupMap" msgpack:"entityGroupMap"`
	TempKeys []*ExportedKey               `json:"tempKeys,omitempty" yaml:"tempKeys,omitempty" msgpack:"tempKeys,omitempty"`
}

// ExportedEntity is an entity of a Document. Values equal to the property
// default are omitted.
type ExportedEntity struct {
	Values map[string]any `json:"values" yaml:"values" msgpack:"values"`
	Aspect Aspect         `json:"entityAspect" yaml:"entityAspect" msgpack:"entityAspect"`
}

// Aspect holds the change tracking state of an exported entity.
type Aspect struct {
	State          breeze.EntityState `json:"entityState" yaml:"entityState" msgpack:"entityState"`
	OriginalValues map[string]any     `json:"originalValuesMap,omitempty" yaml:"originalValuesMap,omitempty" msgpack:"originalValuesMap,omitempty"`
}

// ExportedKey is a temporary key of a Document.
type ExportedKey struct {
	Type   string `json:"entityType" yaml:"entityType" msgpack:"entityType"`
	Values []any  `json:"values" yaml:"values" msgpack:"values"`
}

// Len returns the number of entities of the document.
func (d *Document) Len() int {
	n := 0
	for _, es := range d.Groups {
		n += len(es)
	}
	return n
}

// Export returns the given entities, or every cached entity, as a
// document. Entities of other managers are ignored.
func (m *Manager) Export(entities ...*Entity) *Document {
	if len(entities) == 0 {
		entities = m.GetEntities(nil)
	}
	doc := &Document{Groups: make(map[string][]*ExportedEntity)}
	for _, e := range entities {
		if e.manager != m {
			continue
		}
		doc.Groups[e.typ.Name] = append(doc.Groups[e.typ.Name], exportEntity(e))
		if _, ok := m.tempKeys[e]; ok {
			doc.TempKeys = append(doc.TempKeys, &ExportedKey{Type: e.typ.Name, Values: portableKey(e.key)})
		}
	}
	return doc
}

func exportEntity(e *Entity) *ExportedEntity {
	x := &ExportedEntity{Values: make(map[string]any), Aspect: Aspect{State: e.state}}
	for _, p := range e.typ.Properties {
		v := e.values[p.Name]
		if co, ok := v.(*ComplexObject); ok {
			if sub := co.exportValues(); len(sub) > 0 {
				x.Values[p.Name] = sub
			}
			continue
		}
		if field.Equal(v, p.DefaultValue()) {
			continue
		}
		x.Values[p.Name] = p.Type.Portable(v)
	}
	if e.state != breeze.Modified && e.state != breeze.Deleted {
		return x
	}
	originals := make(map[string]any)
	for _, p := range e.typ.Properties {
		if co, ok := e.values[p.Name].(*ComplexObject); ok {
			if sub := co.exportOriginals(); sub != nil {
				originals[p.Name] = sub
			}
			continue
		}
		if v, ok := e.originals[p.Name]; ok {
			originals[p.Name] = p.Type.Portable(v)
		}
	}
	if len(originals) > 0 {
		x.Aspect.OriginalValues = originals
	}
	return x
}

func portableKey(k Key) []any {
	vs := make([]any, len(k.values))
	for i, v := range k.values {
		vs[i] = k.typ.Keys[i].Type.Portable(v)
	}
	return vs
}

// ImportOptions configures Import.
type ImportOptions struct {
	// MergeStrategy decides what happens to cached entities with the key
	// of an imported one. The default is PreserveChanges.
	MergeStrategy breeze.MergeStrategy
}

// KeyRemap records a temporary key replaced during an import.
type KeyRemap struct {
	From Key
	To   Key
}

// ImportResult is the outcome of an import.
type ImportResult struct {
	// Entities are the cached entities matching the imported ones, in
	// document order.
	Entities []*Entity
	// TempKeys lists the imported temporary keys that collided with a
	// cached key and were replaced.
	TempKeys []KeyRemap
}

// Lookup returns the key an imported key ended up with.
func (r *ImportResult) Lookup(k Key) Key {
	for _, remap := range r.TempKeys {
		if remap.From.Equal(k) {
			return remap.To
		}
	}
	return k
}

// imported is a decoded entity of a document.
type imported struct {
	typ       *graph.Type
	values    map[string]any
	complex   map[string]map[string]any
	originals map[string]any
	state     breeze.EntityState
	key       Key
	temp      bool

	// local is the cached entity the record merges into. Records without
	// one are attached as entity, following plan.
	local  *Entity
	entity *Entity
	plan   *attachPlan
}

// Import merges a document into the cache. Imported temporary keys that
// collide with a cached entity, and imported keys equal to a cached
// temporary key, are replaced by new temporary keys; foreign keys of the
// document referencing them follow. The document is checked completely
// before the cache changes.
func (m *Manager) Import(doc *Document, opts ImportOptions) (*ImportResult, error) {
	recs, err := m.decode(doc)
	if err != nil {
		return nil, err
	}
	remaps, err := m.remapTempKeys(recs)
	if err != nil {
		return nil, err
	}
	if err := m.prepareImport(recs); err != nil {
		return nil, err
	}
	res := &ImportResult{TempKeys: remaps}
	err = m.run(true, func() error {
		for _, r := range recs {
			e, err := m.importOne(r, opts.MergeStrategy)
			if err != nil {
				return err
			}
			res.Entities = append(res.Entities, e)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	m.metrics.RecordImport(len(res.Entities))
	m.log.Debug("document imported", "count", len(res.Entities), "remapped", len(remaps), "strategy", opts.MergeStrategy)
	return res, nil
}

// decode coerces the entities of doc, following the type order of the
// graph.
func (m *Manager) decode(doc *Document) ([]*imported, error) {
	for name := range doc.Groups {
		if t, ok := m.graph.Type(name); !ok || t.Complex {
			return nil, fmt.Errorf("breeze: unknown entity type %q", name)
		}
	}
	temps := make(map[string]bool, len(doc.TempKeys))
	for _, tk := range doc.TempKeys {
		t, ok := m.graph.Type(tk.Type)
		if !ok {
			return nil, fmt.Errorf("breeze: unknown entity type %q", tk.Type)
		}
		k, err := NewKey(t, tk.Values...)
		if err != nil {
			return nil, err
		}
		temps[k.id] = true
	}
	var recs []*imported
	for _, t := range m.graph.Types() {
		for _, x := range doc.Groups[t.Name] {
			r, err := decodeEntity(t, x)
			if err != nil {
				return nil, err
			}
			r.temp = temps[r.key.id]
			recs = append(recs, r)
		}
	}
	return recs, nil
}

func decodeEntity(t *graph.Type, x *ExportedEntity) (*imported, error) {
	r := &imported{
		typ:     t,
		values:  make(map[string]any, len(t.Properties)),
		complex: make(map[string]map[string]any),
		state:   x.Aspect.State,
	}
	if r.state == breeze.Detached {
		r.state = breeze.Unchanged
	}
	for _, p := range t.Properties {
		v, ok := x.Values[p.Name]
		if p.IsComplex() {
			if ok && v != nil {
				sub, ok := v.(map[string]any)
				if !ok {
					return nil, fmt.Errorf("breeze: value of %s must be an object", p)
				}
				r.complex[p.Name] = sub
			}
			continue
		}
		if !ok {
			r.values[p.Name] = p.DefaultValue()
			continue
		}
		cv, err := p.Coerce(v)
		if err != nil {
			return nil, err
		}
		r.values[p.Name] = cv
	}
	if len(x.Aspect.OriginalValues) > 0 {
		r.originals = make(map[string]any, len(x.Aspect.OriginalValues))
		for name, v := range x.Aspect.OriginalValues {
			p, ok := t.Property(name)
			if !ok {
				continue
			}
			if p.IsComplex() {
				r.originals[name] = v
				continue
			}
			cv, err := p.Coerce(v)
			if err != nil {
				return nil, err
			}
			r.originals[name] = cv
		}
	}
	if len(t.Keys) == 0 {
		return nil, breeze.NewMissingKeyDefinitionError(t.Name)
	}
	r.key = r.computeKey()
	return r, nil
}

func (r *imported) computeKey() Key {
	vs := make([]any, len(r.typ.Keys))
	for i, p := range r.typ.Keys {
		vs[i] = r.values[p.Name]
	}
	return newKey(r.typ, vs)
}

// remapTempKeys assigns new temporary keys to the imported entities whose
// key collides with the cache, and rewrites the foreign keys of the
// document referencing them.
func (m *Manager) remapTempKeys(recs []*imported) ([]KeyRemap, error) {
	// Ids of the document are taken even if not cached.
	taken := &Entity{}
	reserved := make(map[string]*Entity, len(recs))
	for _, r := range recs {
		reserved[r.key.id] = taken
	}
	var (
		remaps []KeyRemap
		byID   = make(map[string]Key)
	)
	for _, r := range recs {
		local := m.findByID(r.typ, r.key.id)
		if local == nil || !r.typ.HasAutoKey() || len(r.typ.Keys) != 1 {
			continue
		}
		if _, localTemp := m.tempKeys[local]; !r.temp && !localTemp {
			continue
		}
		scratch := &Entity{typ: r.typ}
		v, err := m.generateKey(scratch, reserved)
		if err != nil {
			return nil, err
		}
		nk := newKey(r.typ, []any{v})
		reserved[nk.id] = taken
		byID[r.key.id] = nk
		remaps = append(remaps, KeyRemap{From: r.key, To: nk})
		m.log.Debug("imported temporary key remapped", "from", r.key.String(), "to", nk.String())
	}
	if len(remaps) == 0 {
		return nil, nil
	}
	for _, r := range recs {
		if nk, ok := byID[r.key.id]; ok {
			r.values[r.typ.Keys[0].Name] = nk.values[0]
			r.temp = true
		}
	}
	for _, r := range recs {
		rewriteForeignKeys(r, byID)
		r.key = r.computeKey()
	}
	return remaps, nil
}

// rewriteForeignKeys replaces the foreign key values of r referencing a
// remapped key.
func rewriteForeignKeys(r *imported, byID map[string]Key) {
	rewrite := func(fks []*graph.Property, principal *graph.Type) {
		vs := make([]any, len(fks))
		for i, fk := range fks {
			vs[i] = r.values[fk.Name]
		}
		nk, ok := byID[newKey(principal, vs).id]
		if !ok {
			return
		}
		for i, fk := range fks {
			r.values[fk.Name] = nk.values[i]
		}
	}
	for _, n := range r.typ.Navigations {
		if n.Scalar && len(n.ForeignKeys) > 0 {
			rewrite(n.ForeignKeys, n.Target)
		}
	}
	for _, p := range r.typ.Properties {
		for _, n := range p.InverseNavigations {
			if n.Inverse == nil && n.InverseForeignKeys[0] == p {
				rewrite(n.InverseForeignKeys, n.Owner)
			}
		}
	}
}

// prepareImport runs every check of an import before the cache changes:
// duplicate keys within the document and against the cache, complex
// values, missing keys and temporary key generation. Records that are not
// cached get a detached entity and an attach plan.
func (m *Manager) prepareImport(recs []*imported) error {
	var (
		seen     = make(map[string]*imported, len(recs))
		reserved = make(map[string]*Entity, len(recs))
	)
	for _, r := range recs {
		e := New(r.typ)
		for name, v := range r.values {
			e.values[name] = v
		}
		if err := importComplex(e, r); err != nil {
			return err
		}
		if r.key.IsEmpty() && !r.key.IsPartial() {
			// Planned below: a key is generated or the record is rejected.
			r.entity = e
			continue
		}
		if _, ok := seen[r.key.id]; ok {
			return breeze.NewDuplicateKeyError(r.typ.Name, r.key.String())
		}
		seen[r.key.id] = r
		if local := m.findByID(r.typ, r.key.id); local != nil {
			if local.typ != r.typ {
				return breeze.NewDuplicateKeyError(r.typ.Name, r.key.String())
			}
			r.local = local
			continue
		}
		r.entity = e
		reserved[r.key.id] = e
	}
	for _, r := range recs {
		if r.local != nil {
			continue
		}
		plan, err := m.planAttach([]*Entity{r.entity}, r.state, reserved)
		if err != nil {
			return err
		}
		r.plan = plan
	}
	return nil
}

// importOne merges r into the cache.
func (m *Manager) importOne(r *imported, strategy breeze.MergeStrategy) (*Entity, error) {
	local := r.local
	if local == nil {
		e := r.entity
		m.commitAttach(r.plan)
		if r.temp {
			m.tempKeys[e] = struct{}{}
		}
		m.changed(e, breeze.ActionMergeOnImport, "", nil, nil)
		return e, nil
	}
	switch {
	case strategy == breeze.Disallowed:
		return local, nil
	case strategy == breeze.PreserveChanges && local.state.IsChanged():
		return local, nil
	}
	wasDeleted := local.state == breeze.Deleted
	if r.state != breeze.Deleted {
		m.setState(local, r.state)
	}
	for _, p := range local.typ.Properties {
		if p.IsComplex() {
			continue
		}
		if err := local.setValue(p, r.values[p.Name], fixup|notify); err != nil {
			return nil, err
		}
	}
	if err := importComplex(local, r); err != nil {
		return nil, err
	}
	switch {
	case r.state == breeze.Deleted && !wasDeleted:
		m.unlink(local)
		m.setState(local, breeze.Deleted)
	case wasDeleted && r.state != breeze.Deleted:
		m.link(local)
	}
	if r.temp {
		m.tempKeys[local] = struct{}{}
	}
	m.changed(local, breeze.ActionMergeOnImport, "", nil, nil)
	return local, nil
}

// importComplex replaces the complex values and the originals of e with
// those of r.
func importComplex(e *Entity, r *imported) error {
	e.originals = nil
	for _, p := range e.typ.Properties {
		if !p.IsComplex() {
			continue
		}
		co := e.values[p.Name].(*ComplexObject)
		if err := co.assign(fillDefaults(p.ComplexType, r.complex[p.Name]), notify); err != nil {
			return err
		}
		co.acceptChanges()
	}
	for name, v := range r.originals {
		p, _ := e.typ.Property(name)
		if p.IsComplex() {
			sub, ok := v.(map[string]any)
			if !ok {
				return fmt.Errorf("breeze: originals of %s must be an object", p)
			}
			if err := e.values[name].(*ComplexObject).importOriginals(sub); err != nil {
				return err
			}
			continue
		}
		if e.originals == nil {
			e.originals = make(map[string]any)
		}
		e.originals[name] = v
	}
	return nil
}

// fillDefaults completes exported complex values, which omit defaults.
func fillDefaults(t *graph.Type, vs map[string]any) map[string]any {
	out := make(map[string]any, len(t.Properties))
	for _, p := range t.Properties {
		v, ok := vs[p.Name]
		switch {
		case p.IsComplex():
			sub, _ := v.(map[string]any)
			out[p.Name] = fillDefaults(p.ComplexType, sub)
		case ok:
			out[p.Name] = v
		default:
			out[p.Name] = p.DefaultValue()
		}
	}
	return out
}
