package entity

import (
	"github.com/Breeze/breeze.sharp-sub000"
)

// AcceptChanges commits the pending changes of the given entities, or of
// every changed entity. Deleted entities are detached.
func (m *Manager) AcceptChanges(entities ...*Entity) {
	if len(entities) == 0 {
		entities = m.GetChanges()
	}
	_ = m.run(false, func() error {
		for _, e := range entities {
			if e.manager == m {
				m.acceptEntity(e)
			}
		}
		return nil
	})
}

// RejectChanges reverts the pending changes of the given entities, or of
// every changed entity. Added entities are detached.
func (m *Manager) RejectChanges(entities ...*Entity) error {
	if len(entities) == 0 {
		entities = m.GetChanges()
	}
	return m.run(false, func() error {
		var errs []error
		for _, e := range entities {
			if e.manager != m {
				continue
			}
			if err := m.rejectEntity(e); err != nil {
				errs = append(errs, err)
			}
		}
		return breeze.NewAggregateError(errs...)
	})
}

func (m *Manager) acceptEntity(e *Entity) {
	switch e.state {
	case breeze.Unchanged, breeze.Detached:
		return
	case breeze.Deleted:
		m.detachEntity(e)
		return
	}
	e.originals = nil
	for _, v := range e.values {
		if co, ok := v.(*ComplexObject); ok {
			co.acceptChanges()
		}
	}
	m.setState(e, breeze.Unchanged)
	m.changed(e, breeze.ActionAcceptChanges, "", nil, nil)
}

func (m *Manager) rejectEntity(e *Entity) error {
	switch e.state {
	case breeze.Unchanged, breeze.Detached:
		return nil
	case breeze.Added:
		m.changed(e, breeze.ActionRejectChanges, "", nil, nil)
		m.detachEntity(e)
		return nil
	}
	deleted := e.state == breeze.Deleted
	m.setState(e, breeze.Unchanged)
	originals := e.originals
	e.originals = nil
	for _, p := range e.typ.Properties {
		if p.IsComplex() {
			e.values[p.Name].(*ComplexObject).rejectChanges()
			continue
		}
		v, ok := originals[p.Name]
		if !ok {
			continue
		}
		if err := e.setValue(p, v, fixup|notify); err != nil {
			return err
		}
	}
	if deleted {
		m.link(e)
	}
	e.errors = nil
	m.changed(e, breeze.ActionRejectChanges, "", nil, nil)
	return nil
}

func (m *Manager) deleteEntity(e *Entity) error {
	switch e.state {
	case breeze.Deleted, breeze.Detached:
		return nil
	}
	if err := m.changing(e, breeze.ActionEntityStateChange, ""); err != nil {
		return err
	}
	if e.state == breeze.Added {
		m.detachEntity(e)
		return nil
	}
	m.unlink(e)
	m.setState(e, breeze.Deleted)
	m.changed(e, breeze.ActionEntityStateChange, "", nil, nil)
	return nil
}
