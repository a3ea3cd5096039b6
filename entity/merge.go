package entity

import (
	"context"
	"fmt"

	"github.com/Breeze/breeze.sharp-sub000"
	"github.com/Breeze/breeze.sharp-sub000/graph"
)

// Payload is an entity received from a data service. Values are keyed by
// property name. A navigation value holds a nested payload map for
// scalar navigations and a slice of them for collections.
type Payload struct {
	Type   string         `json:"entityType" yaml:"entityType" msgpack:"entityType"`
	Values map[string]any `json:"values" yaml:"values" msgpack:"values"`
}

// Merge merges query results into the cache with the given strategy and
// returns the cached entities in payload order. Nested payloads are
// merged too.
func (m *Manager) Merge(payloads []Payload, strategy breeze.MergeStrategy) ([]*Entity, error) {
	return m.mergePayloads(payloads, strategy, breeze.ActionMergeOnQuery)
}

// incoming is a flattened payload with coerced values.
type incoming struct {
	typ    *graph.Type
	values map[string]any
	key    Key
	top    bool

	// entity is attached following plan when the key is neither cached
	// nor held by an earlier payload.
	entity *Entity
	plan   *attachPlan
}

func (m *Manager) mergePayloads(payloads []Payload, strategy breeze.MergeStrategy, action breeze.EntityAction) ([]*Entity, error) {
	var recs []*incoming
	for _, p := range payloads {
		t, ok := m.graph.Type(p.Type)
		if !ok {
			return nil, fmt.Errorf("breeze: unknown entity type %q", p.Type)
		}
		if _, err := m.flatten(t, p.Values, true, &recs); err != nil {
			return nil, err
		}
	}
	if err := m.prepareMerge(recs); err != nil {
		return nil, err
	}
	var top []*Entity
	err := m.run(true, func() error {
		for _, r := range recs {
			e, err := m.mergeOne(r, strategy, action)
			if err != nil {
				return err
			}
			if r.top {
				top = append(top, e)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if m.cfg.Validation.OnQuery && action == breeze.ActionMergeOnQuery {
		for _, e := range top {
			_ = validateEntity(context.Background(), e, m.cfg.Validator)
		}
	}
	m.log.Debug("payloads merged", "count", len(recs), "strategy", strategy, "action", action)
	return top, nil
}

// flatten coerces the values of a payload of type t and appends it, and
// the payloads nested in its navigations, to recs.
func (m *Manager) flatten(t *graph.Type, raw map[string]any, top bool, recs *[]*incoming) (*incoming, error) {
	r := &incoming{typ: t, values: make(map[string]any, len(raw)), top: top}
	type nested struct {
		nav  *graph.Navigation
		vals []map[string]any
	}
	var navs []nested
	for name, v := range raw {
		if p, ok := t.Property(name); ok {
			if p.IsComplex() {
				if v != nil {
					r.values[name] = v
				}
				continue
			}
			cv, err := p.Coerce(v)
			if err != nil {
				return nil, err
			}
			r.values[name] = cv
			continue
		}
		n, ok := t.Navigation(name)
		if !ok || v == nil {
			continue
		}
		vals, err := payloadMaps(v, n)
		if err != nil {
			return nil, err
		}
		navs = append(navs, nested{nav: n, vals: vals})
	}
	if len(t.Keys) == 0 {
		return nil, breeze.NewMissingKeyDefinitionError(t.Name)
	}
	vs := make([]any, len(t.Keys))
	for i, p := range t.Keys {
		vs[i] = r.values[p.Name]
	}
	r.key = newKey(t, vs)
	if r.key.IsEmpty() {
		return nil, breeze.NewMissingKeyError(t.Name)
	}
	*recs = append(*recs, r)
	for _, nv := range navs {
		for _, raw := range nv.vals {
			child := make(map[string]any, len(raw))
			for k, v := range raw {
				child[k] = v
			}
			if !nv.nav.Scalar {
				// Children inherit the foreign keys of their parent.
				for i, fk := range nv.nav.InverseForeignKeys {
					if _, ok := child[fk.Name]; !ok {
						child[fk.Name] = r.key.values[i]
					}
				}
			}
			c, err := m.flatten(nv.nav.Target, child, false, recs)
			if err != nil {
				return nil, err
			}
			if nv.nav.Scalar {
				for i, fk := range nv.nav.ForeignKeys {
					if _, ok := r.values[fk.Name]; !ok {
						r.values[fk.Name] = c.key.values[i]
					}
				}
			}
		}
	}
	return r, nil
}

func payloadMaps(v any, n *graph.Navigation) ([]map[string]any, error) {
	switch v := v.(type) {
	case map[string]any:
		return []map[string]any{v}, nil
	case []map[string]any:
		return v, nil
	case []any:
		out := make([]map[string]any, 0, len(v))
		for _, x := range v {
			mv, ok := x.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("breeze: navigation %s holds %T, want an object", n, x)
			}
			out = append(out, mv)
		}
		return out, nil
	}
	return nil, fmt.Errorf("breeze: navigation %s holds %T, want an object", n, v)
}

// prepareMerge checks every payload before the cache changes and plans
// the attach of the entities not cached yet. Payloads repeating a key merge
// into the entity of the first one.
func (m *Manager) prepareMerge(recs []*incoming) error {
	var (
		planned  = make(map[string]*incoming, len(recs))
		reserved = make(map[string]*Entity, len(recs))
	)
	for _, r := range recs {
		e := New(r.typ)
		if err := fill(e, r.values); err != nil {
			return err
		}
		if local := m.findByID(r.typ, r.key.id); local != nil {
			if !related(local.typ, r.typ) {
				return breeze.NewDuplicateKeyError(r.typ.Name, r.key.String())
			}
			continue
		}
		if first, ok := planned[r.key.id]; ok {
			if !related(first.typ, r.typ) {
				return breeze.NewDuplicateKeyError(r.typ.Name, r.key.String())
			}
			continue
		}
		plan, err := m.planAttach([]*Entity{e}, breeze.Unchanged, reserved)
		if err != nil {
			return err
		}
		planned[r.key.id] = r
		r.entity, r.plan = e, plan
	}
	return nil
}

func related(a, b *graph.Type) bool {
	return a.IsSubtypeOf(b) || b.IsSubtypeOf(a)
}

// mergeOne merges r into the cache.
func (m *Manager) mergeOne(r *incoming, strategy breeze.MergeStrategy, action breeze.EntityAction) (*Entity, error) {
	if r.plan != nil {
		m.commitAttach(r.plan)
		return r.entity, nil
	}
	local := m.findByID(r.typ, r.key.id)
	if local == nil {
		return nil, breeze.NewNotFoundError(r.typ.Name, r.key.String())
	}
	switch {
	case strategy == breeze.Disallowed:
		return local, nil
	case strategy == breeze.PreserveChanges && local.state.IsChanged():
		return local, nil
	}
	wasDeleted := local.state == breeze.Deleted
	m.setState(local, breeze.Unchanged)
	if err := m.overwrite(local, r.values); err != nil {
		return nil, err
	}
	local.originals = nil
	if wasDeleted {
		m.link(local)
	}
	m.changed(local, action, "", nil, nil)
	return local, nil
}

// fill sets the values of a new detached entity.
func fill(e *Entity, values map[string]any) error {
	for name, v := range values {
		p, _ := e.typ.Property(name)
		if p == nil {
			continue
		}
		if p.IsComplex() {
			if err := e.values[name].(*ComplexObject).assign(v, 0); err != nil {
				return err
			}
			continue
		}
		e.values[name] = v
	}
	return nil
}

// overwrite writes incoming values over those of a cached entity. The
// writes fix up associations and notify, but are not tracked.
func (m *Manager) overwrite(e *Entity, values map[string]any) error {
	for _, p := range e.typ.Properties {
		v, ok := values[p.Name]
		if !ok {
			continue
		}
		if p.IsComplex() {
			co := e.values[p.Name].(*ComplexObject)
			if err := co.assign(v, notify); err != nil {
				return err
			}
			co.acceptChanges()
			continue
		}
		if err := e.setValue(p, v, fixup|notify); err != nil {
			return err
		}
	}
	return nil
}
