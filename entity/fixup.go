package entity

import (
	"fmt"

	"github.com/Breeze/breeze.sharp-sub000"
	"github.com/Breeze/breeze.sharp-sub000/graph"
	"github.com/Breeze/breeze.sharp-sub000/schema/field"
)

// runWith runs fn as a batch of the first manager found among es.
func runWith(fn func() error, es ...*Entity) error {
	for _, e := range es {
		if e != nil && e.manager != nil {
			return e.manager.run(false, fn)
		}
	}
	return fn()
}

// join prepares a and b to be linked. It fails if they belong to
// different managers, and attaches the detached one as Added to the
// manager of the other.
func join(a, b *Entity, property string) error {
	am, bm := a.manager, b.manager
	switch {
	case am != nil && bm != nil && am != bm:
		return breeze.NewCrossCacheAssociationError(a.String(), b.String(), property)
	case am != nil && bm == nil:
		return am.attachGraph([]*Entity{b}, breeze.Added)
	case am == nil && bm != nil:
		return bm.attachGraph([]*Entity{a}, breeze.Added)
	}
	return nil
}

// setNavigation sets the scalar navigation n of e to target, updating the
// inverse side and the foreign keys.
func setNavigation(e *Entity, n *graph.Navigation, target *Entity, md mode) error {
	if target != nil && !target.typ.IsSubtypeOf(n.Target) {
		return fmt.Errorf("breeze: cannot assign %s to %s", target.typ.Name, n)
	}
	old := e.refs[n.Name]
	if old == target {
		return nil
	}
	if m := e.manager; m != nil && md&(track|notify) == track|notify {
		if err := m.changing(e, breeze.ActionPropertyChange, n.Name); err != nil {
			return err
		}
	}
	if target != nil {
		if err := checkRekey(e, n.ForeignKeys, target); err != nil {
			return err
		}
		if err := checkRekey(target, n.InverseForeignKeys, e); err != nil {
			return err
		}
		if err := join(e, target, n.Name); err != nil {
			return err
		}
	}
	linkScalar(e, n, target)
	switch {
	case len(n.ForeignKeys) > 0:
		if m := e.manager; m != nil {
			m.unattached.remove(e, n)
		}
		if target != nil {
			return setForeignKeys(e, n.ForeignKeys, target.keyValues(), md)
		}
		if e.state == breeze.Deleted {
			return nil
		}
		return clearForeignKeys(e, n.ForeignKeys, md)
	case len(n.InverseForeignKeys) > 0:
		// One-to-one principal side: the foreign key lives on the target.
		if old != nil && old.state != breeze.Deleted {
			if err := clearForeignKeys(old, n.InverseForeignKeys, md); err != nil {
				return err
			}
		}
		if target != nil {
			return setForeignKeys(target, n.InverseForeignKeys, e.keyValues(), md)
		}
	}
	return nil
}

// linkScalar points the scalar navigation n of e at target and updates
// the inverse navigation. Foreign keys are not touched.
func linkScalar(e *Entity, n *graph.Navigation, target *Entity) {
	old := e.refs[n.Name]
	if old == target {
		return
	}
	if target == nil {
		delete(e.refs, n.Name)
	} else {
		e.refs[n.Name] = target
	}
	if inv := n.Inverse; inv != nil {
		if old != nil {
			if inv.Scalar {
				if old.refs[inv.Name] == e {
					delete(old.refs, inv.Name)
					old.propertyChanged(inv.Name, e, nil)
				}
			} else {
				old.collection(inv).removeRaw(e)
			}
		}
		if target != nil {
			if inv.Scalar {
				if prev := target.refs[inv.Name]; prev != nil && prev != e {
					delete(prev.refs, n.Name)
					prev.propertyChanged(n.Name, target, nil)
				}
				target.refs[inv.Name] = e
				target.propertyChanged(inv.Name, nil, e)
			} else {
				target.collection(inv).addRaw(e)
			}
		}
	}
	e.propertyChanged(n.Name, old, target)
}

// checkRekey fails with a duplicate key error when pointing the foreign
// keys fks of e at principal would change the key of e to one already
// cached. It runs before either side of an association changes.
func checkRekey(e *Entity, fks []*graph.Property, principal *Entity) error {
	m := e.manager
	if m == nil {
		m = principal.manager
	}
	if m == nil || len(fks) == 0 {
		return nil
	}
	values := principal.keyValues()
	vs := e.keyValues()
	rekeyed := false
	for i, fk := range fks {
		if !fk.Key || field.IsZero(values[i]) {
			continue
		}
		for j, k := range e.typ.Keys {
			if k != fk {
				continue
			}
			v, err := k.Coerce(values[i])
			if err != nil {
				return err
			}
			vs[j] = v
			rekeyed = true
		}
	}
	if !rekeyed {
		return nil
	}
	nk := newKey(e.typ, vs)
	if other := m.findByID(e.typ, nk.id); other != nil && other != e {
		return breeze.NewDuplicateKeyError(e.typ.Name, nk.String())
	}
	return nil
}

func setForeignKeys(e *Entity, fks []*graph.Property, values []any, md mode) error {
	for i, p := range fks {
		if err := e.setValue(p, values[i], md); err != nil {
			return err
		}
	}
	return nil
}

// clearForeignKeys resets foreign keys to their defaults. Foreign keys
// that are part of the entity key are kept.
func clearForeignKeys(e *Entity, fks []*graph.Property, md mode) error {
	for _, p := range fks {
		if p.Key {
			continue
		}
		if err := e.setValue(p, p.DefaultValue(), md); err != nil {
			return err
		}
	}
	return nil
}

// foreignKey returns the key referenced by the properties fks of e, with
// the value of p replaced by v when p is not nil. The boolean is false
// when a foreign key value is unset.
func foreignKey(e *Entity, fks []*graph.Property, principal *graph.Type, p *graph.Property, v any) (Key, bool) {
	vs := make([]any, len(fks))
	complete := true
	for i, fk := range fks {
		val := e.values[fk.Name]
		if fk == p {
			val = v
		}
		if field.IsZero(val) {
			complete = false
		}
		vs[i] = val
	}
	return newKey(principal, vs), complete
}

// fixupForeignKey reacts to a change of the foreign key p of e.
func (m *Manager) fixupForeignKey(e *Entity, p *graph.Property, old any) {
	if e.state == breeze.Deleted {
		return
	}
	if n := p.RelatedNavigation; n != nil {
		m.resolveNavigation(e, n)
	}
	for _, n := range p.InverseNavigations {
		// Bidirectional collections follow their scalar side.
		if n.Inverse == nil {
			m.resolveInverse(e, n, p, old)
		}
	}
}

// resolveNavigation points the scalar navigation n of e at the cached
// entity its foreign keys reference. If that entity is not cached, e
// waits for it.
func (m *Manager) resolveNavigation(e *Entity, n *graph.Navigation) {
	k, complete := foreignKey(e, n.ForeignKeys, n.Target, nil, nil)
	if cur := e.refs[n.Name]; cur != nil && cur.key.id == k.id {
		m.unattached.remove(e, n)
		return
	}
	if !complete {
		m.unattached.remove(e, n)
		linkScalar(e, n, nil)
		return
	}
	if parent := m.findByID(n.Target, k.id); parent != nil && parent.state != breeze.Deleted && parent.typ.IsSubtypeOf(n.Target) {
		m.unattached.remove(e, n)
		linkScalar(e, n, parent)
		return
	}
	linkScalar(e, n, nil)
	m.unattached.add(n, k.id, e)
}

// resolveInverse moves e between the collections of the unidirectional
// navigation n after its foreign key p changed from old.
func (m *Manager) resolveInverse(e *Entity, n *graph.Navigation, p *graph.Property, old any) {
	if p != nil {
		if k, ok := foreignKey(e, n.InverseForeignKeys, n.Owner, p, old); ok {
			if prev := m.findByID(n.Owner, k.id); prev != nil {
				detachMember(prev, n, e)
			}
		}
	}
	m.unattached.remove(e, n)
	k, ok := foreignKey(e, n.InverseForeignKeys, n.Owner, nil, nil)
	if !ok {
		return
	}
	parent := m.findByID(n.Owner, k.id)
	if parent == nil || parent.state == breeze.Deleted || !parent.typ.IsSubtypeOf(n.Owner) {
		m.unattached.add(n, k.id, e)
		return
	}
	attachMember(parent, n, e)
}

// attachMember adds e to the navigation n of parent, without touching
// foreign keys.
func attachMember(parent *Entity, n *graph.Navigation, e *Entity) {
	if n.Scalar {
		if parent.refs[n.Name] != e {
			old := parent.refs[n.Name]
			parent.refs[n.Name] = e
			parent.propertyChanged(n.Name, old, e)
		}
		return
	}
	parent.collection(n).addRaw(e)
}

// detachMember removes e from the navigation n of parent.
func detachMember(parent *Entity, n *graph.Navigation, e *Entity) {
	if n.Scalar {
		if parent.refs[n.Name] == e {
			delete(parent.refs, n.Name)
			parent.propertyChanged(n.Name, e, nil)
		}
		return
	}
	if s, ok := parent.sets[n.Name]; ok {
		s.removeRaw(e)
	}
}

// updateDependents rewrites the foreign keys of the dependents of e after
// its key changed.
func (m *Manager) updateDependents(e *Entity, md mode) {
	vs := e.keyValues()
	for _, n := range e.typ.Navigations {
		if len(n.InverseForeignKeys) == 0 {
			continue
		}
		for _, d := range dependents(e, n) {
			if err := setForeignKeys(d, n.InverseForeignKeys, vs, md&^fixup); err != nil {
				m.log.Warn("update dependent foreign key", "entity", d.String(), "error", err)
			}
		}
	}
	m.drainUnattached(e)
}

// dependents returns the entities e references through n.
func dependents(e *Entity, n *graph.Navigation) []*Entity {
	if n.Scalar {
		if r := e.refs[n.Name]; r != nil {
			return []*Entity{r}
		}
		return nil
	}
	if s, ok := e.sets[n.Name]; ok {
		return s.Entities()
	}
	return nil
}

// link connects an entity joining the cache with the cached entities its
// foreign keys reference and with the entities waiting for it. Deleted
// entities stay unlinked.
func (m *Manager) link(e *Entity) {
	if e.state == breeze.Deleted {
		return
	}
	for _, n := range e.typ.Navigations {
		switch {
		case n.Scalar && len(n.ForeignKeys) > 0:
			if r := e.refs[n.Name]; r != nil {
				// Attached together: foreign keys follow the reference.
				if err := setForeignKeys(e, n.ForeignKeys, r.keyValues(), 0); err != nil {
					m.log.Warn("sync foreign key", "entity", e.String(), "navigation", n.Name, "error", err)
				}
				continue
			}
			m.resolveNavigation(e, n)
		case len(n.InverseForeignKeys) > 0:
			for _, d := range dependents(e, n) {
				if inv := n.Inverse; inv != nil {
					linkScalar(d, inv, e)
				}
				if err := setForeignKeys(d, n.InverseForeignKeys, e.keyValues(), 0); err != nil {
					m.log.Warn("sync foreign key", "entity", d.String(), "navigation", n.Name, "error", err)
				}
			}
		}
	}
	for _, p := range e.typ.Properties {
		for _, n := range p.InverseNavigations {
			if n.Inverse == nil && n.InverseForeignKeys[0] == p {
				m.resolveInverse(e, n, nil, nil)
			}
		}
	}
	m.drainUnattached(e)
}

// unlink removes e from its associations. Foreign keys of e and of its
// dependents are kept and the dependents wait for e to come back.
func (m *Manager) unlink(e *Entity) {
	for _, n := range e.typ.Navigations {
		if n.Scalar {
			r := e.refs[n.Name]
			if r == nil {
				continue
			}
			if len(n.InverseForeignKeys) == 0 {
				linkScalar(e, n, nil)
				continue
			}
			// One-to-one principal: the target holds the foreign key.
			if inv := n.Inverse; inv != nil && r.refs[inv.Name] == e {
				delete(r.refs, inv.Name)
				r.propertyChanged(inv.Name, e, nil)
			}
			delete(e.refs, n.Name)
			e.propertyChanged(n.Name, r, nil)
			m.unattached.add(waitingNav(n), e.key.id, r)
			continue
		}
		s, ok := e.sets[n.Name]
		if !ok {
			continue
		}
		for _, d := range s.Entities() {
			if inv := n.Inverse; inv != nil && d.refs[inv.Name] == e {
				delete(d.refs, inv.Name)
				d.propertyChanged(inv.Name, e, nil)
			}
			m.unattached.add(waitingNav(n), e.key.id, d)
		}
		s.clearRaw()
	}
	for _, p := range e.typ.Properties {
		for _, n := range p.InverseNavigations {
			if n.Inverse != nil || n.InverseForeignKeys[0] != p {
				continue
			}
			if k, ok := foreignKey(e, n.InverseForeignKeys, n.Owner, nil, nil); ok {
				if parent := m.findByID(n.Owner, k.id); parent != nil {
					detachMember(parent, n, e)
				}
			}
			m.unattached.remove(e, n)
		}
	}
}

// waitingNav returns the navigation under which dependents of n wait for
// their principal: the inverse scalar navigation when there is one, n
// itself otherwise.
func waitingNav(n *graph.Navigation) *graph.Navigation {
	if n.Inverse != nil {
		return n.Inverse
	}
	return n
}

// drainUnattached links the entities waiting for the key of e.
func (m *Manager) drainUnattached(e *Entity) {
	if e.state == breeze.Deleted {
		return
	}
	for _, w := range m.unattached.take(e.key.id) {
		d, n := w.entity, w.nav
		if d.manager != m || d.state == breeze.Deleted {
			continue
		}
		if len(n.ForeignKeys) > 0 {
			// d holds the scalar navigation n.
			if !e.typ.IsSubtypeOf(n.Target) {
				m.unattached.add(n, e.key.id, d)
				continue
			}
			if k, ok := foreignKey(d, n.ForeignKeys, n.Target, nil, nil); ok && k.id == e.key.id {
				linkScalar(d, n, e)
			}
			continue
		}
		// e owns the unidirectional navigation n.
		if !e.typ.IsSubtypeOf(n.Owner) {
			m.unattached.add(n, e.key.id, d)
			continue
		}
		if k, ok := foreignKey(d, n.InverseForeignKeys, n.Owner, nil, nil); ok && k.id == e.key.id {
			attachMember(e, n, d)
		}
	}
}

// waiting is an entity whose foreign key references an uncached entity.
type waiting struct {
	nav    *graph.Navigation
	entity *Entity
}

// unattachedIndex indexes the entities waiting for a principal by the key
// id of that principal.
type unattachedIndex struct {
	byKey   map[string][]waiting
	byChild map[*Entity]map[*graph.Navigation]string
}

func newUnattachedIndex() *unattachedIndex {
	return &unattachedIndex{
		byKey:   make(map[string][]waiting),
		byChild: make(map[*Entity]map[*graph.Navigation]string),
	}
}

func (u *unattachedIndex) add(n *graph.Navigation, id string, e *Entity) {
	u.remove(e, n)
	u.byKey[id] = append(u.byKey[id], waiting{nav: n, entity: e})
	navs, ok := u.byChild[e]
	if !ok {
		navs = make(map[*graph.Navigation]string)
		u.byChild[e] = navs
	}
	navs[n] = id
}

func (u *unattachedIndex) remove(e *Entity, n *graph.Navigation) {
	navs, ok := u.byChild[e]
	if !ok {
		return
	}
	id, ok := navs[n]
	if !ok {
		return
	}
	delete(navs, n)
	if len(navs) == 0 {
		delete(u.byChild, e)
	}
	u.drop(id, func(w waiting) bool { return w.entity == e && w.nav == n })
}

func (u *unattachedIndex) removeEntity(e *Entity) {
	for n := range u.byChild[e] {
		u.remove(e, n)
	}
}

func (u *unattachedIndex) drop(id string, match func(waiting) bool) {
	ws := u.byKey[id]
	for i, w := range ws {
		if match(w) {
			ws = append(ws[:i], ws[i+1:]...)
			break
		}
	}
	if len(ws) == 0 {
		delete(u.byKey, id)
		return
	}
	u.byKey[id] = ws
}

// take removes and returns the entities waiting for id.
func (u *unattachedIndex) take(id string) []waiting {
	ws := u.byKey[id]
	delete(u.byKey, id)
	for _, w := range ws {
		if navs, ok := u.byChild[w.entity]; ok {
			delete(navs, w.nav)
			if len(navs) == 0 {
				delete(u.byChild, w.entity)
			}
		}
	}
	return ws
}

// rekey moves the entities waiting for oldID to newID.
func (u *unattachedIndex) rekey(oldID, newID string) {
	if oldID == newID {
		return
	}
	ws, ok := u.byKey[oldID]
	if !ok {
		return
	}
	delete(u.byKey, oldID)
	u.byKey[newID] = append(u.byKey[newID], ws...)
	for _, w := range ws {
		u.byChild[w.entity][w.nav] = newID
	}
}

func (u *unattachedIndex) len() int {
	n := 0
	for _, ws := range u.byKey {
		n += len(ws)
	}
	return n
}

func (u *unattachedIndex) clear() {
	clear(u.byKey)
	clear(u.byChild)
}
