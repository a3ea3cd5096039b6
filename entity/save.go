package entity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Breeze/breeze.sharp-sub000"
	"github.com/Breeze/breeze.sharp-sub000/graph"
)

// KeyMapping maps the temporary key value of a saved entity to the value
// assigned by the store.
type KeyMapping struct {
	Type      string `json:"entityType" yaml:"entityType" msgpack:"entityType"`
	TempValue any    `json:"tempValue" yaml:"tempValue" msgpack:"tempValue"`
	RealValue any    `json:"realValue" yaml:"realValue" msgpack:"realValue"`
}

// SaveResult is the response of a data service to a save.
type SaveResult struct {
	Entities    []Payload    `json:"entities" yaml:"entities" msgpack:"entities"`
	KeyMappings []KeyMapping `json:"keyMappings" yaml:"keyMappings" msgpack:"keyMappings"`
}

// SaveChanges validates the given entities, or every changed entity,
// sends them to the data service and applies the result. Nothing is sent
// if an entity fails validation.
func (m *Manager) SaveChanges(ctx context.Context, entities ...*Entity) ([]*Entity, error) {
	ds, err := m.dataService()
	if err != nil {
		return nil, err
	}
	if len(entities) == 0 {
		entities = m.GetChanges()
	}
	if len(entities) == 0 {
		return nil, nil
	}
	if m.cfg.Validation.OnSave {
		var errs []error
		for _, e := range entities {
			if e.state == breeze.Deleted {
				continue
			}
			if err := validateEntity(ctx, e, m.cfg.Validator); err != nil {
				var failure *breeze.ValidationFailure
				if errors.As(err, &failure) {
					errs = append(errs, failure.Errors...)
				} else {
					errs = append(errs, err)
				}
			}
		}
		if len(errs) > 0 {
			return nil, &breeze.ValidationFailure{Errors: errs}
		}
	}
	start := time.Now()
	res, err := ds.SaveChanges(ctx, m.Export(entities...))
	if err != nil {
		m.metrics.RecordSave(len(entities), time.Since(start), err)
		return nil, breeze.NewSaveError(len(entities), err)
	}
	saved, err := m.ApplySaveResult(entities, res)
	m.metrics.RecordSave(len(entities), time.Since(start), err)
	return saved, err
}

type remap struct {
	entity *Entity
	old    Key
	value  any
}

// ApplySaveResult applies the response of a save of the given entities:
// temporary keys are replaced by the keys of the store, every foreign key
// referencing them is updated, the returned entities are merged and the
// saved entities accept their changes. Deleted entities are detached.
//
// Mappings of keys that are not cached are ignored.
func (m *Manager) ApplySaveResult(saved []*Entity, res *SaveResult) ([]*Entity, error) {
	if res == nil {
		res = &SaveResult{}
	}
	remaps, err := m.checkKeyMappings(res.KeyMappings)
	if err != nil {
		return nil, err
	}
	var merged []*Entity
	err = m.run(true, func() error {
		for _, r := range remaps {
			if err := m.applyKeyMapping(r); err != nil {
				return err
			}
		}
		es, err := m.mergePayloads(res.Entities, breeze.OverwriteChanges, breeze.ActionMergeOnSave)
		if err != nil {
			return err
		}
		merged = es
		for _, e := range saved {
			if e.manager != m {
				continue
			}
			delete(m.tempKeys, e)
			m.acceptEntity(e)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	out := make([]*Entity, 0, len(saved)+len(merged))
	seen := make(map[*Entity]bool, cap(out))
	for _, e := range append(saved, merged...) {
		if !seen[e] {
			seen[e] = true
			out = append(out, e)
		}
	}
	return out, nil
}

// checkKeyMappings resolves the mappings to cached entities and verifies
// that no real key is already used.
func (m *Manager) checkKeyMappings(mappings []KeyMapping) ([]remap, error) {
	var (
		remaps []remap
		taken  = make(map[string]bool)
	)
	for _, km := range mappings {
		t, ok := m.graph.Type(km.Type)
		if !ok {
			m.log.Warn("key mapping of unknown type dropped", "type", km.Type)
			continue
		}
		if len(t.Keys) != 1 {
			return nil, fmt.Errorf("breeze: key mapping of %s needs a single key property", t.Name)
		}
		tmp, err := NewKey(t, km.TempValue)
		if err != nil {
			return nil, err
		}
		rk, err := NewKey(t, km.RealValue)
		if err != nil {
			return nil, err
		}
		e := m.findByID(t, tmp.id)
		if e == nil {
			m.log.Warn("key mapping of uncached entity dropped", "key", tmp.String())
			continue
		}
		if other := m.findByID(t, rk.id); (other != nil && other != e) || taken[rk.id] {
			return nil, breeze.NewDuplicateKeyError(t.Name, rk.String())
		}
		taken[rk.id] = true
		remaps = append(remaps, remap{entity: e, old: e.key, value: rk.values[0]})
	}
	return remaps, nil
}

// applyKeyMapping rekeys r.entity and rewrites every cached foreign key
// holding its old key.
func (m *Manager) applyKeyMapping(r remap) error {
	e := r.entity
	if err := e.setValue(e.typ.Keys[0], r.value, notify); err != nil {
		return err
	}
	root := e.typ.Root()
	for _, g := range m.groupList {
		for _, fks := range referencingKeys(g.typ, root) {
			for _, x := range g.Entities() {
				if k, ok := foreignKey(x, fks, root, nil, nil); !ok || k.id != r.old.id {
					continue
				}
				if err := x.setValue(fks[0], r.value, notify); err != nil {
					return err
				}
			}
		}
	}
	m.unattached.rekey(r.old.id, e.key.id)
	delete(m.tempKeys, e)
	m.drainUnattached(e)
	m.log.Debug("temporary key replaced", "from", r.old.String(), "to", e.key.String())
	return nil
}

// referencingKeys returns the foreign key property lists of t that
// reference an entity of the hierarchy of root.
func referencingKeys(t, root *graph.Type) [][]*graph.Property {
	var out [][]*graph.Property
	for _, n := range t.Navigations {
		if n.Scalar && len(n.ForeignKeys) == 1 && n.Target.Root() == root {
			out = append(out, n.ForeignKeys)
		}
	}
	for _, p := range t.Properties {
		for _, n := range p.InverseNavigations {
			if n.Inverse == nil && len(n.InverseForeignKeys) == 1 && n.Owner.Root() == root {
				out = append(out, n.InverseForeignKeys)
			}
		}
	}
	return out
}
