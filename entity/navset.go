package entity

import (
	"fmt"
	"slices"

	"github.com/Breeze/breeze.sharp-sub000"
	"github.com/Breeze/breeze.sharp-sub000/graph"
)

// NavigationSet is the collection side of an association. Adding and
// removing entities updates their foreign keys and inverse navigations.
type NavigationSet struct {
	owner   *Entity
	nav     *graph.Navigation
	items   []*Entity
	members map[*Entity]struct{}
	changed event[*CollectionChangedEvent]
	// busy guards against re-entrant Add and Remove calls made while the
	// set updates the other side of the association.
	busy bool
}

// Owner returns the entity owning the collection.
func (s *NavigationSet) Owner() *Entity {
	return s.owner
}

// Navigation returns the navigation property of the collection.
func (s *NavigationSet) Navigation() *graph.Navigation {
	return s.nav
}

// Len returns the number of entities in the collection.
func (s *NavigationSet) Len() int {
	return len(s.items)
}

// At returns the i-th entity of the collection.
func (s *NavigationSet) At(i int) *Entity {
	return s.items[i]
}

// Entities returns a copy of the collection.
func (s *NavigationSet) Entities() []*Entity {
	return slices.Clone(s.items)
}

// Contains reports whether e is in the collection.
func (s *NavigationSet) Contains(e *Entity) bool {
	_, ok := s.members[e]
	return ok
}

// OnCollectionChanged subscribes fn to the changes of the collection.
func (s *NavigationSet) OnCollectionChanged(fn func(*CollectionChangedEvent)) func() {
	return s.changed.subscribe(fn)
}

// Add adds e to the collection, setting its foreign keys to the key of
// the owner. An entity moved from another collection is removed from it.
func (s *NavigationSet) Add(e *Entity) error {
	if e == nil {
		return fmt.Errorf("breeze: cannot add nil to %s", s.nav)
	}
	if !e.typ.IsSubtypeOf(s.nav.Target) {
		return fmt.Errorf("breeze: cannot add %s to %s", e.typ.Name, s.nav)
	}
	if s.Contains(e) {
		return nil
	}
	if s.busy {
		s.addRaw(e)
		return nil
	}
	s.busy = true
	defer func() { s.busy = false }()
	return runWith(func() error {
		if inv := s.nav.Inverse; inv != nil {
			return setNavigation(e, inv, s.owner, user)
		}
		if err := checkRekey(e, s.nav.InverseForeignKeys, s.owner); err != nil {
			return err
		}
		if err := join(s.owner, e, s.nav.Name); err != nil {
			return err
		}
		s.addRaw(e)
		return setForeignKeys(e, s.nav.InverseForeignKeys, s.owner.keyValues(), user)
	}, s.owner, e)
}

// Remove removes e from the collection and resets its foreign keys. It
// reports false if e was not in the collection.
func (s *NavigationSet) Remove(e *Entity) (bool, error) {
	if !s.Contains(e) {
		return false, nil
	}
	if s.busy {
		return s.removeRaw(e), nil
	}
	s.busy = true
	defer func() { s.busy = false }()
	err := s.owner.write(func() error {
		if inv := s.nav.Inverse; inv != nil {
			return setNavigation(e, inv, nil, user)
		}
		s.removeRaw(e)
		if e.state == breeze.Deleted {
			return nil
		}
		return clearForeignKeys(e, s.nav.InverseForeignKeys, user)
	})
	return err == nil, err
}

// addRaw adds e without touching the other side of the association.
func (s *NavigationSet) addRaw(e *Entity) bool {
	if s.Contains(e) {
		return false
	}
	s.items = append(s.items, e)
	s.members[e] = struct{}{}
	s.publish(CollectionAdd, e)
	return true
}

// removeRaw removes e without touching the other side of the association.
func (s *NavigationSet) removeRaw(e *Entity) bool {
	if !s.Contains(e) {
		return false
	}
	delete(s.members, e)
	s.items = slices.DeleteFunc(s.items, func(x *Entity) bool { return x == e })
	s.publish(CollectionRemove, e)
	return true
}

func (s *NavigationSet) clearRaw() {
	for _, e := range slices.Clone(s.items) {
		s.removeRaw(e)
	}
}

func (s *NavigationSet) publish(action CollectionAction, e *Entity) {
	if s.changed.empty() {
		return
	}
	ev := &CollectionChangedEvent{Collection: s, Action: action, Entity: e}
	if m := s.owner.manager; m != nil {
		m.emit(func() { s.changed.publish(ev) })
		return
	}
	s.changed.publish(ev)
}
