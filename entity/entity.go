package entity

import (
	"context"
	"fmt"
	"maps"

	"github.com/Breeze/breeze.sharp-sub000"
	"github.com/Breeze/breeze.sharp-sub000/graph"
	"github.com/Breeze/breeze.sharp-sub000/schema/field"
)

// mode selects the side effects of a property write.
type mode uint8

const (
	// track records originals and moves Unchanged entities to Modified.
	track mode = 1 << iota
	// fixup keeps associations consistent with foreign keys.
	fixup
	// notify publishes change notifications.
	notify

	// user is the mode of writes made through the public API.
	user = track | fixup | notify
)

// Entity is a record with identity. Its values are accessed by property
// name and every write goes through the change tracking of its manager.
type Entity struct {
	typ       *graph.Type
	values    map[string]any
	refs      map[string]*Entity
	sets      map[string]*NavigationSet
	originals map[string]any
	state     breeze.EntityState
	manager   *Manager
	group     *Group
	slot      int
	key       Key
	errors    []*breeze.ValidationError
	onChange  event[*PropertyChangedEvent]
	// pendingTemp marks a temporary key generated while detached.
	pendingTemp bool
}

// New creates a detached entity of type t holding the default values of
// its properties.
func New(t *graph.Type) *Entity {
	if t.Complex {
		panic(fmt.Sprintf("breeze: %s is a complex type", t.Name))
	}
	e := &Entity{
		typ:    t,
		values: make(map[string]any, len(t.Properties)),
		refs:   make(map[string]*Entity),
		sets:   make(map[string]*NavigationSet),
		slot:   -1,
	}
	for _, p := range t.Properties {
		if p.IsComplex() {
			e.values[p.Name] = newComplex(p.ComplexType, e, nil, p)
			continue
		}
		e.values[p.Name] = p.DefaultValue()
	}
	return e
}

// Type implements Record.
func (e *Entity) Type() *graph.Type {
	return e.typ
}

// State returns the entity state.
func (e *Entity) State() breeze.EntityState {
	return e.state
}

// Manager returns the manager the entity is attached to, or nil.
func (e *Entity) Manager() *Manager {
	return e.manager
}

// Key returns the current key of the entity.
func (e *Entity) Key() Key {
	if e.manager != nil {
		return e.key
	}
	return e.computeKey()
}

func (e *Entity) computeKey() Key {
	return newKey(e.typ, e.keyValues())
}

func (e *Entity) keyValues() []any {
	vs := make([]any, len(e.typ.Keys))
	for i, p := range e.typ.Keys {
		vs[i] = e.values[p.Name]
	}
	return vs
}

// String returns the type and key of the entity.
func (e *Entity) String() string {
	if len(e.typ.Keys) == 0 {
		return e.typ.Name
	}
	return e.Key().String()
}

// Get implements Record. Navigation properties return an *Entity for
// scalar navigations and a *NavigationSet for collections.
func (e *Entity) Get(name string) any {
	if v, ok := e.values[name]; ok {
		return v
	}
	if n, ok := e.typ.Navigation(name); ok {
		if n.Scalar {
			if r := e.refs[name]; r != nil {
				return r
			}
			return nil
		}
		return e.collection(n)
	}
	return nil
}

// Set implements Record. Scalar navigations accept an *Entity or nil;
// collections are changed through their NavigationSet.
func (e *Entity) Set(name string, v any) error {
	if p, ok := e.typ.Property(name); ok {
		return e.write(func() error { return e.setValue(p, v, user) })
	}
	n, ok := e.typ.Navigation(name)
	if !ok {
		return fmt.Errorf("breeze: unknown property %s.%s", e.typ.Name, name)
	}
	if !n.Scalar {
		return fmt.Errorf("breeze: collection %s is read-only, use its Add and Remove methods", n)
	}
	var target *Entity
	if v != nil {
		t, ok := v.(*Entity)
		if !ok {
			return fmt.Errorf("breeze: cannot assign %T to navigation %s", v, n)
		}
		target = t
	}
	return e.SetNavigation(name, target)
}

// Values implements Record.
func (e *Entity) Values() map[string]any {
	vs := make(map[string]any, len(e.values))
	for k, v := range e.values {
		if co, ok := v.(*ComplexObject); ok {
			v = co.Values()
		}
		vs[k] = v
	}
	return vs
}

func (*Entity) record() {}

// Complex returns the complex object held by the named property.
func (e *Entity) Complex(name string) *ComplexObject {
	co, _ := e.values[name].(*ComplexObject)
	return co
}

// Navigation returns the entity referenced by a scalar navigation.
func (e *Entity) Navigation(name string) *Entity {
	return e.refs[name]
}

// Collection returns the collection of a collection navigation, or nil if
// the type has no such navigation.
func (e *Entity) Collection(name string) *NavigationSet {
	n, ok := e.typ.Navigation(name)
	if !ok || n.Scalar {
		return nil
	}
	return e.collection(n)
}

func (e *Entity) collection(n *graph.Navigation) *NavigationSet {
	s, ok := e.sets[n.Name]
	if !ok {
		s = &NavigationSet{owner: e, nav: n, members: make(map[*Entity]struct{})}
		e.sets[n.Name] = s
	}
	return s
}

// SetNavigation sets a scalar navigation and updates the inverse side and
// the foreign keys. Detached entities on either side are attached as
// Added to the manager of the other side.
func (e *Entity) SetNavigation(name string, target *Entity) error {
	n, ok := e.typ.Navigation(name)
	if !ok || !n.Scalar {
		return fmt.Errorf("breeze: unknown scalar navigation %s.%s", e.typ.Name, name)
	}
	return runWith(func() error { return setNavigation(e, n, target, user) }, e, target)
}

// OriginalValue returns the value a property held before the entity was
// modified. The boolean is false if the property was not changed.
func (e *Entity) OriginalValue(name string) (any, bool) {
	v, ok := e.originals[name]
	return v, ok
}

// HasOriginal reports whether the property was changed since the last
// accept.
func (e *Entity) HasOriginal(name string) bool {
	_, ok := e.originals[name]
	return ok
}

// OriginalValues returns a copy of the original values map.
func (e *Entity) OriginalValues() map[string]any {
	return maps.Clone(e.originals)
}

// IsTempKey reports whether the entity holds a temporary key pending save.
func (e *Entity) IsTempKey() bool {
	if e.manager == nil {
		return e.pendingTemp
	}
	return e.manager.IsTempKey(e)
}

// AcceptChanges commits the pending changes of the entity.
func (e *Entity) AcceptChanges() {
	if m := e.manager; m != nil {
		_ = m.run(false, func() error {
			m.acceptEntity(e)
			return nil
		})
	}
}

// RejectChanges reverts the pending changes of the entity. Added entities
// are detached.
func (e *Entity) RejectChanges() error {
	m := e.manager
	if m == nil {
		return nil
	}
	return m.run(false, func() error { return m.rejectEntity(e) })
}

// Delete marks the entity Deleted and removes it from its associations.
// Added entities are detached.
func (e *Entity) Delete() error {
	m := e.manager
	if m == nil {
		return nil
	}
	return m.run(false, func() error { return m.deleteEntity(e) })
}

// SetModified forces an Unchanged entity to Modified.
func (e *Entity) SetModified() {
	if m := e.manager; m != nil && e.state == breeze.Unchanged {
		_ = m.run(false, func() error {
			m.setState(e, breeze.Modified)
			m.changed(e, breeze.ActionEntityStateChange, "", nil, nil)
			return nil
		})
	}
}

// Detach removes the entity from its manager. It reports false if the
// entity was not attached.
func (e *Entity) Detach() bool {
	if e.manager == nil {
		return false
	}
	return e.manager.Detach(e)
}

// ValidationErrors returns the errors of the last validation.
func (e *Entity) ValidationErrors() []*breeze.ValidationError {
	return append([]*breeze.ValidationError(nil), e.errors...)
}

// Validate validates the entity and records its validation errors.
func (e *Entity) Validate(ctx context.Context) error {
	var v Validator
	if e.manager != nil {
		v = e.manager.cfg.Validator
	}
	return validateEntity(ctx, e, v)
}

// OnPropertyChanged subscribes fn to the property changes of the entity.
func (e *Entity) OnPropertyChanged(fn func(*PropertyChangedEvent)) func() {
	return e.onChange.subscribe(fn)
}

// write runs fn as a batch of the entity manager, if any.
func (e *Entity) write(fn func() error) error {
	if m := e.manager; m != nil {
		return m.run(false, fn)
	}
	return fn()
}

// setValue writes a data or complex property.
func (e *Entity) setValue(p *graph.Property, v any, md mode) error {
	if p.IsComplex() {
		return e.values[p.Name].(*ComplexObject).assign(v, md)
	}
	cv, err := p.Coerce(v)
	if err != nil {
		return err
	}
	old := e.values[p.Name]
	if field.Equal(old, cv) {
		return nil
	}
	m := e.manager
	var nk Key
	if p.Key && m != nil {
		vs := e.keyValues()
		for i, k := range e.typ.Keys {
			if k == p {
				vs[i] = cv
			}
		}
		nk = newKey(e.typ, vs)
		if other := m.findByID(e.typ, nk.id); other != nil && other != e {
			return breeze.NewDuplicateKeyError(e.typ.Name, nk.String())
		}
	}
	if m != nil && md&(track|notify) == track|notify {
		if err := m.changing(e, breeze.ActionPropertyChange, p.Name); err != nil {
			return err
		}
	}
	if md&track != 0 && m != nil && e.state != breeze.Added {
		if _, ok := e.originals[p.Name]; !ok {
			if e.originals == nil {
				e.originals = make(map[string]any)
			}
			e.originals[p.Name] = old
		}
	}
	e.values[p.Name] = cv
	if p.Key && m != nil {
		m.rekey(e, nk)
		if md&track != 0 {
			delete(m.tempKeys, e)
		}
	}
	if p.Key && m == nil && md&track != 0 {
		e.pendingTemp = false
	}
	if m != nil && md&fixup != 0 {
		if p.IsForeignKey() {
			m.fixupForeignKey(e, p, old)
		}
		if p.Key {
			m.updateDependents(e, md)
		}
	}
	if md&track != 0 && m != nil && e.state == breeze.Unchanged {
		m.setState(e, breeze.Modified)
	}
	if md&notify != 0 {
		e.propertyChanged(p.Name, old, cv)
		if m != nil && md&track != 0 {
			m.validateProperty(e, p, cv)
		}
	}
	return nil
}

// propertyChanged publishes the property change on the entity and its
// manager.
func (e *Entity) propertyChanged(name string, old, cur any) {
	m := e.manager
	if m == nil {
		e.onChange.publish(&PropertyChangedEvent{Entity: e, Property: name, OldValue: old, NewValue: cur})
		return
	}
	if !e.onChange.empty() {
		ev := &PropertyChangedEvent{Entity: e, Property: name, OldValue: old, NewValue: cur}
		m.emit(func() { e.onChange.publish(ev) })
	}
	m.changed(e, breeze.ActionPropertyChange, name, old, cur)
}
