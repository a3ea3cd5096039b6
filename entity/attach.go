package entity

import (
	"context"
	"fmt"

	"github.com/Breeze/breeze.sharp-sub000"
)

// Attach adds e, and every detached entity reachable from it through its
// navigations, to the manager in the given state, Unchanged by default.
//
// Entities attached as Added get a temporary key when their key is unset
// and their type has an auto-generated key. Attaching fails without
// changing the cache if a key is missing or already cached, or if the
// graph reaches an entity of another manager.
func (m *Manager) Attach(e *Entity, state ...breeze.EntityState) error {
	st := breeze.Unchanged
	if len(state) > 0 {
		st = state[0]
	}
	if st == breeze.Detached {
		return fmt.Errorf("breeze: cannot attach %s as Detached", e)
	}
	switch e.manager {
	case m:
		return nil
	case nil:
	default:
		return breeze.NewCrossCacheAssociationError(e.String(), "", "")
	}
	return m.run(false, func() error { return m.attachGraph([]*Entity{e}, st) })
}

// attachGraph attaches the detached entities reachable from roots in
// state st. Every check runs before the first mutation.
func (m *Manager) attachGraph(roots []*Entity, st breeze.EntityState) error {
	batch, err := m.collect(roots)
	if err != nil {
		return err
	}
	plan, err := m.planAttach(batch, st, make(map[string]*Entity, len(batch)))
	if err != nil {
		return err
	}
	m.commitAttach(plan)
	return nil
}

// attachPlan holds the checked keys of a batch about to be attached.
type attachPlan struct {
	batch     []*Entity
	state     breeze.EntityState
	keys      []Key
	generated map[*Entity]any
}

// planAttach checks that every entity of batch can be attached in state
// st and picks the temporary keys of those needing one. It does not change
// the cache. Keys are reserved in reserved, which may hold the keys of
// entities planned by earlier calls.
func (m *Manager) planAttach(batch []*Entity, st breeze.EntityState, reserved map[string]*Entity) (*attachPlan, error) {
	plan := &attachPlan{
		batch:     batch,
		state:     st,
		keys:      make([]Key, len(batch)),
		generated: make(map[*Entity]any),
	}
	for i, e := range batch {
		if len(e.typ.Keys) == 0 {
			return nil, breeze.NewMissingKeyDefinitionError(e.typ.Name)
		}
		k := e.computeKey()
		if k.IsEmpty() {
			switch {
			case st == breeze.Added && e.typ.HasAutoKey() && len(e.typ.Keys) == 1:
				v, err := m.generateKey(e, reserved)
				if err != nil {
					return nil, err
				}
				plan.generated[e] = v
				k = newKey(e.typ, []any{v})
			case st == breeze.Added && k.IsPartial():
				// Composite keys may be completed after the entity is added.
			default:
				return nil, breeze.NewMissingKeyError(e.typ.Name)
			}
		}
		if other := m.findByID(e.typ, k.id); other != nil {
			return nil, breeze.NewDuplicateKeyError(e.typ.Name, k.String())
		}
		if other := reserved[k.id]; other != nil && other != e {
			return nil, breeze.NewDuplicateKeyError(e.typ.Name, k.String())
		}
		reserved[k.id] = e
		plan.keys[i] = k
	}
	return plan, nil
}

// commitAttach attaches a planned batch.
func (m *Manager) commitAttach(plan *attachPlan) {
	st := plan.state
	for i, e := range plan.batch {
		if v, ok := plan.generated[e]; ok {
			e.values[e.typ.Keys[0].Name] = v
		}
		e.manager = m
		e.key = plan.keys[i]
		m.group(e.typ).add(e, e.key.id)
		m.setState(e, st)
		if _, ok := plan.generated[e]; ok || e.pendingTemp {
			m.tempKeys[e] = struct{}{}
			e.pendingTemp = false
		}
		if st == breeze.Added {
			e.originals = nil
		}
	}
	for _, e := range plan.batch {
		m.link(e)
	}
	for _, e := range plan.batch {
		if m.cfg.Validation.OnAttach {
			// Failures are recorded on the entity and do not block the attach.
			_ = validateEntity(context.Background(), e, m.cfg.Validator)
		}
		m.changed(e, breeze.ActionAttach, "", nil, nil)
	}
	m.metrics.RecordAttach(len(plan.batch))
	m.metrics.SetCached(m.Len())
	m.log.Debug("entities attached", "count", len(plan.batch), "state", st, "generated", len(plan.generated))
}

// collect returns the detached entities reachable from roots, roots first.
func (m *Manager) collect(roots []*Entity) ([]*Entity, error) {
	var (
		batch []*Entity
		seen  = make(map[*Entity]bool)
		queue = roots
	)
	visit := func(from, to *Entity, property string) error {
		switch to.manager {
		case nil:
			if !seen[to] {
				seen[to] = true
				queue = append(queue, to)
			}
		case m:
		default:
			return breeze.NewCrossCacheAssociationError(from.String(), to.String(), property)
		}
		return nil
	}
	for _, r := range roots {
		seen[r] = true
	}
	for len(queue) > 0 {
		e := queue[0]
		queue = queue[1:]
		if e.manager != nil {
			if e.manager != m {
				return nil, breeze.NewCrossCacheAssociationError(e.String(), "", "")
			}
			continue
		}
		batch = append(batch, e)
		for name, r := range e.refs {
			if err := visit(e, r, name); err != nil {
				return nil, err
			}
		}
		for name, s := range e.sets {
			for _, r := range s.items {
				if err := visit(e, r, name); err != nil {
					return nil, err
				}
			}
		}
	}
	return batch, nil
}

// Detach removes e from the manager and from its associations. It reports
// false if e is not attached to the manager.
func (m *Manager) Detach(e *Entity) bool {
	if e.manager != m {
		return false
	}
	_ = m.run(false, func() error {
		m.detachEntity(e)
		return nil
	})
	return true
}

func (m *Manager) detachEntity(e *Entity) {
	m.unlink(e)
	m.unattached.removeEntity(e)
	if e.group != nil {
		e.group.remove(e)
	}
	delete(m.tempKeys, e)
	m.setState(e, breeze.Detached)
	m.changed(e, breeze.ActionDetach, "", nil, nil)
	release(e)
	m.metrics.RecordDetach(1)
	m.metrics.SetCached(m.Len())
}

// release drops the cache aspect of an entity leaving its manager: state,
// key, originals, including those of its complex values.
func release(e *Entity) {
	e.state, e.manager, e.key = breeze.Detached, nil, Key{}
	e.originals = nil
	e.pendingTemp = false
	for _, v := range e.values {
		if co, ok := v.(*ComplexObject); ok {
			co.acceptChanges()
		}
	}
}
