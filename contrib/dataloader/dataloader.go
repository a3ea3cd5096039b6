// Package dataloader batch loads the related entities of cached entities.
//
// LoadParents resolves a scalar navigation of many entities with one
// concurrent batch of key queries for the parents missing from the cache:
//
//	customers, errs, err := dataloader.LoadParents(ctx, m, "customer", orders...)
//	// customers[i] is the customer of orders[i]; errs[i] is ErrNotFound
//	// when the store has no such customer.
//
// LoadChildren fetches a collection navigation of many parents:
//
//	details, err := dataloader.LoadChildren(ctx, m, "details", orders...)
//	// details[i] holds the details of orders[i]
package dataloader

import (
	"context"
	"errors"
	"fmt"

	"github.com/Breeze/breeze.sharp-sub000/entity"
	"github.com/Breeze/breeze.sharp-sub000/graph"
)

// ErrNotFound is returned when an entity is not found in a batch result.
var ErrNotFound = errors.New("dataloader: entity not found")

// KeyFunc extracts a key from an entity.
type KeyFunc[K comparable, V any] func(V) K

// OrderByKeys reorders values to match the order of keys. Missing values
// are zero values with an ErrNotFound error.
func OrderByKeys[K comparable, V any](keys []K, values []V, keyFn KeyFunc[K, V]) ([]V, []error) {
	lookup := make(map[K]V, len(values))
	for _, v := range values {
		lookup[keyFn(v)] = v
	}
	result := make([]V, len(keys))
	errs := make([]error, len(keys))
	for i, key := range keys {
		if v, ok := lookup[key]; ok {
			result[i] = v
		} else {
			errs[i] = ErrNotFound
		}
	}
	return result, errs
}

// GroupByKey groups values by a key function.
func GroupByKey[K comparable, V any](values []V, keyFn KeyFunc[K, V]) map[K][]V {
	result := make(map[K][]V)
	for _, v := range values {
		key := keyFn(v)
		result[key] = append(result[key], v)
	}
	return result
}

// OrderGroupsByKeys returns the group of every key, in key order.
func OrderGroupsByKeys[K comparable, V any](keys []K, groups map[K][]V) [][]V {
	result := make([][]V, len(keys))
	for i, key := range keys {
		result[i] = groups[key]
	}
	return result
}

// LoadParents returns the entity referenced by the scalar navigation nav of
// every entity of es. Parents missing from the cache are queried by key
// concurrently and merged with the default strategy of m. Entities with an
// empty foreign key get a nil parent and no error.
func LoadParents(ctx context.Context, m *entity.Manager, nav string, es ...*entity.Entity) ([]*entity.Entity, []error, error) {
	var (
		ids     = make([]string, len(es))
		keys    = make(map[string]entity.Key)
		missing []entity.Key
	)
	for i, e := range es {
		n, ok := e.Type().Navigation(nav)
		if !ok || !n.Scalar || len(n.ForeignKeys) == 0 {
			return nil, nil, fmt.Errorf("dataloader: %s.%s is not a scalar navigation with foreign keys", e.Type().Name, nav)
		}
		vs := make([]any, len(n.ForeignKeys))
		for j, fk := range n.ForeignKeys {
			vs[j] = e.Get(fk.Name)
		}
		k, err := entity.NewKey(n.Target, vs...)
		if err != nil {
			return nil, nil, err
		}
		if k.IsEmpty() {
			continue
		}
		ids[i] = k.ID()
		if _, ok := keys[k.ID()]; ok {
			continue
		}
		keys[k.ID()] = k
		if _, ok := m.FindEntityByKey(k); !ok {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		qs := make([]*entity.Query, len(missing))
		for i, k := range missing {
			qs[i] = keyQuery(k)
		}
		if _, err := m.ExecuteQueries(ctx, qs...); err != nil {
			return nil, nil, err
		}
	}
	found := make([]*entity.Entity, 0, len(keys))
	for _, k := range keys {
		if p, ok := m.FindEntityByKey(k); ok {
			found = append(found, p)
		}
	}
	parents, errs := OrderByKeys(ids, found, func(p *entity.Entity) string { return p.Key().ID() })
	for i, id := range ids {
		if id == "" {
			errs[i] = nil
		}
	}
	return parents, errs, nil
}

// LoadChildren queries the entities of the collection navigation nav of
// every parent and returns them grouped by parent, in parent order.
// Parents with temporary keys are not queried.
func LoadChildren(ctx context.Context, m *entity.Manager, nav string, parents ...*entity.Entity) ([][]*entity.Entity, error) {
	var (
		ids = make([]string, len(parents))
		qs  []*entity.Query
		n   *graph.Navigation
	)
	for i, p := range parents {
		pn, ok := p.Type().Navigation(nav)
		if !ok || pn.Scalar || len(pn.InverseForeignKeys) == 0 {
			return nil, fmt.Errorf("dataloader: %s.%s is not a collection navigation with foreign keys", p.Type().Name, nav)
		}
		if n != nil && pn.Target != n.Target {
			return nil, fmt.Errorf("dataloader: parents of %s reach different types", nav)
		}
		n = pn
		ids[i] = p.Key().ID()
		if p.IsTempKey() {
			continue
		}
		q := entity.NewQuery(n.Target.Resource)
		for j, fk := range n.InverseForeignKeys {
			q.Where(fk.Name, fk.Type.Portable(p.Key().Value(j)))
		}
		qs = append(qs, q)
	}
	if len(qs) == 0 {
		return make([][]*entity.Entity, len(parents)), nil
	}
	results, err := m.ExecuteQueries(ctx, qs...)
	if err != nil {
		return nil, err
	}
	var children []*entity.Entity
	seen := make(map[*entity.Entity]bool)
	for _, es := range results {
		for _, c := range es {
			if !seen[c] {
				seen[c] = true
				children = append(children, c)
			}
		}
	}
	owner := n.Owner
	groups := GroupByKey(children, func(c *entity.Entity) string {
		vs := make([]any, len(n.InverseForeignKeys))
		for j, fk := range n.InverseForeignKeys {
			vs[j] = c.Get(fk.Name)
		}
		k, err := entity.NewKey(owner, vs...)
		if err != nil {
			return ""
		}
		return k.ID()
	})
	return OrderGroupsByKeys(ids, groups), nil
}

// keyQuery returns a query selecting the entity with key k.
func keyQuery(k entity.Key) *entity.Query {
	t := k.Type()
	q := entity.NewQuery(t.Resource)
	for i, p := range t.Keys {
		q.Where(p.Name, p.Type.Portable(k.Value(i)))
	}
	return q
}
