package entity

import (
	"fmt"
	"slices"

	"github.com/Breeze/breeze.sharp-sub000"
)

type (
	// EntityChangingEvent is published before an entity changes. Handlers
	// may cancel the change.
	EntityChangingEvent struct {
		Entity   *Entity
		Action   breeze.EntityAction
		Property string
		canceled bool
	}

	// EntityChangedEvent is published after an entity changed.
	EntityChangedEvent struct {
		Entity   *Entity
		Action   breeze.EntityAction
		Property string
		OldValue any
		NewValue any
	}

	// HasChangesChangedEvent is published when the manager gains its first
	// pending change or loses its last one.
	HasChangesChangedEvent struct {
		HasChanges bool
	}

	// PropertyChangedEvent is published by an entity after one of its
	// properties changed. Properties of complex objects are reported with
	// their path, e.g. "address.city".
	PropertyChangedEvent struct {
		Entity   *Entity
		Property string
		OldValue any
		NewValue any
	}

	// CollectionChangedEvent is published by a navigation collection after
	// an entity was added or removed.
	CollectionChangedEvent struct {
		Collection *NavigationSet
		Action     CollectionAction
		Entity     *Entity
	}
)

// Cancel cancels the pending change.
func (e *EntityChangingEvent) Cancel() {
	e.canceled = true
}

// Canceled reports whether a handler canceled the change.
func (e *EntityChangingEvent) Canceled() bool {
	return e.canceled
}

// CollectionAction describes a collection change.
type CollectionAction uint8

// Collection actions.
const (
	CollectionAdd CollectionAction = iota + 1
	CollectionRemove
)

// String implements fmt.Stringer.
func (a CollectionAction) String() string {
	switch a {
	case CollectionAdd:
		return "Add"
	case CollectionRemove:
		return "Remove"
	default:
		return fmt.Sprintf("CollectionAction(%d)", a)
	}
}

// event is a list of subscribers.
type event[T any] struct {
	subs []*func(T)
}

// subscribe adds fn and returns a function removing it.
func (ev *event[T]) subscribe(fn func(T)) func() {
	p := &fn
	ev.subs = append(ev.subs, p)
	return func() {
		ev.subs = slices.DeleteFunc(ev.subs, func(s *func(T)) bool { return s == p })
	}
}

func (ev *event[T]) publish(v T) {
	for _, fn := range slices.Clone(ev.subs) {
		(*fn)(v)
	}
}

func (ev *event[T]) empty() bool {
	return len(ev.subs) == 0
}

// OnEntityChanging subscribes fn to the entity changing events of the
// manager. It returns a function that removes the subscription.
func (m *Manager) OnEntityChanging(fn func(*EntityChangingEvent)) func() {
	return m.entityChanging.subscribe(fn)
}

// OnEntityChanged subscribes fn to the entity changed events of the manager.
func (m *Manager) OnEntityChanged(fn func(*EntityChangedEvent)) func() {
	return m.entityChanged.subscribe(fn)
}

// OnHasChangesChanged subscribes fn to the has-changes events of the manager.
func (m *Manager) OnHasChangesChanged(fn func(*HasChangesChangedEvent)) func() {
	return m.hasChangesChanged.subscribe(fn)
}

// Loading runs fn inside a loading block. Change notifications raised by
// fn are deferred until the outermost block completes and entity changing
// events are not published.
func (m *Manager) Loading(fn func() error) error {
	return m.run(true, fn)
}

// IsLoading reports whether a loading block is active.
func (m *Manager) IsLoading() bool {
	return m.loading > 0
}

// run executes fn as one batch. Notifications raised during the batch are
// queued and replayed when the outermost batch ends, followed by a single
// has-changes check.
func (m *Manager) run(loading bool, fn func() error) (err error) {
	m.depth++
	if loading {
		m.loading++
	}
	func() {
		defer func() {
			m.depth--
			if loading {
				m.loading--
			}
		}()
		err = fn()
	}()
	if m.depth == 0 && !m.draining {
		m.flush()
	}
	return err
}

// flush drains the notification queue to a fixed point: handlers that
// change entities enqueue further notifications, which are replayed in
// order before flush returns.
func (m *Manager) flush() {
	m.draining = true
	for len(m.queue) > 0 {
		fn := m.queue[0]
		m.queue[0] = nil
		m.queue = m.queue[1:]
		fn()
	}
	m.queue = nil
	m.draining = false
	m.checkHasChanges()
}

// emit publishes now, or queues when a batch is active.
func (m *Manager) emit(fn func()) {
	if m.depth > 0 || m.draining {
		m.queue = append(m.queue, fn)
		return
	}
	fn()
}

// changing publishes an entity changing event and reports ErrCanceled if
// a handler canceled it. No event is published inside loading blocks.
func (m *Manager) changing(e *Entity, action breeze.EntityAction, property string) error {
	if m.loading > 0 || m.entityChanging.empty() {
		return nil
	}
	ev := &EntityChangingEvent{Entity: e, Action: action, Property: property}
	m.entityChanging.publish(ev)
	if ev.canceled {
		return fmt.Errorf("%w: %s %s", breeze.ErrCanceled, action, e)
	}
	return nil
}

func (m *Manager) changed(e *Entity, action breeze.EntityAction, property string, old, cur any) {
	if m.entityChanged.empty() {
		return
	}
	ev := &EntityChangedEvent{Entity: e, Action: action, Property: property, OldValue: old, NewValue: cur}
	m.emit(func() { m.entityChanged.publish(ev) })
}

func (m *Manager) checkHasChanges() {
	has := m.numChanged > 0
	if has == m.hasChanges {
		return
	}
	m.hasChanges = has
	m.hasChangesChanged.publish(&HasChangesChangedEvent{HasChanges: has})
}
