package memory

import (
	"fmt"
	"sort"

	"github.com/Breeze/breeze.sharp-sub000"
	"github.com/Breeze/breeze.sharp-sub000/entity"
	"github.com/Breeze/breeze.sharp-sub000/graph"
	"github.com/Breeze/breeze.sharp-sub000/schema/field"
)

// saveTx applies a save bundle to a copy of the service state.
type saveTx struct {
	graph *graph.Graph
	state state
}

type saveItem struct {
	typ *graph.Type
	x   *entity.ExportedEntity
	r   *row
}

func (tx *saveTx) apply(doc *entity.Document) (*entity.SaveResult, error) {
	temp, err := tx.tempKeys(doc)
	if err != nil {
		return nil, err
	}
	items, err := tx.decode(doc)
	if err != nil {
		return nil, err
	}
	res := &entity.SaveResult{}
	assigned := make(map[string]any)
	for _, it := range items {
		if it.x.Aspect.State != breeze.Added || !isIdentity(it.typ) {
			continue
		}
		id, err := it.r.id()
		if err != nil {
			return nil, err
		}
		if !temp[id] {
			continue
		}
		name := it.typ.Keys[0].Name
		rv, err := tx.state.nextID(it.typ)
		if err != nil {
			return nil, err
		}
		res.KeyMappings = append(res.KeyMappings, entity.KeyMapping{
			Type:      it.typ.Name,
			TempValue: it.r.values[name],
			RealValue: rv,
		})
		it.r.values[name] = rv
		assigned[id] = rv
	}
	for _, it := range items {
		rewriteForeignKeys(it.r, assigned)
	}
	for _, it := range items {
		id, err := it.r.id()
		if err != nil {
			return nil, err
		}
		cur, exists := tx.state.rows[id]
		switch it.x.Aspect.State {
		case breeze.Added:
			if exists {
				return nil, breeze.NewDuplicateKeyError(it.typ.Name, id)
			}
			tx.state.put(id, it.r)
		case breeze.Modified:
			if !exists {
				return nil, breeze.NewNotFoundError(it.typ.Name, id)
			}
			if err := checkConcurrency(it, cur); err != nil {
				return nil, err
			}
			if err := bumpConcurrency(it.r); err != nil {
				return nil, err
			}
			tx.state.put(id, it.r)
		case breeze.Deleted:
			if !exists {
				return nil, breeze.NewNotFoundError(it.typ.Name, id)
			}
			if err := checkConcurrency(it, cur); err != nil {
				return nil, err
			}
			delete(tx.state.rows, id)
			continue
		default:
			continue
		}
		res.Entities = append(res.Entities, entity.Payload{Type: it.typ.Name, Values: cloneValues(it.r.values)})
	}
	return res, nil
}

func (tx *saveTx) tempKeys(doc *entity.Document) (map[string]bool, error) {
	temp := make(map[string]bool, len(doc.TempKeys))
	for _, tk := range doc.TempKeys {
		t, ok := tx.graph.Type(tk.Type)
		if !ok {
			return nil, fmt.Errorf("memory: unknown type %q", tk.Type)
		}
		k, err := entity.NewKey(t, tk.Values...)
		if err != nil {
			return nil, err
		}
		temp[k.ID()] = true
	}
	return temp, nil
}

// decode returns the entities of doc ordered by type name.
func (tx *saveTx) decode(doc *entity.Document) ([]*saveItem, error) {
	names := make([]string, 0, len(doc.Groups))
	for name := range doc.Groups {
		names = append(names, name)
	}
	sort.Strings(names)
	var items []*saveItem
	for _, name := range names {
		t, ok := tx.graph.Type(name)
		if !ok || t.Complex {
			return nil, fmt.Errorf("memory: unknown entity type %q", name)
		}
		for _, x := range doc.Groups[name] {
			r, err := newRow(t, x.Values)
			if err != nil {
				return nil, err
			}
			items = append(items, &saveItem{typ: t, x: x, r: r})
		}
	}
	return items, nil
}

// principal returns the root type referenced by the single column foreign
// key p, or nil.
func principal(p *graph.Property) *graph.Type {
	if n := p.RelatedNavigation; n != nil && len(n.ForeignKeys) == 1 {
		return n.Target.Root()
	}
	for _, n := range p.InverseNavigations {
		if len(n.InverseForeignKeys) == 1 {
			return n.Owner.Root()
		}
	}
	return nil
}

func rewriteForeignKeys(r *row, assigned map[string]any) {
	if len(assigned) == 0 {
		return
	}
	for _, p := range r.typ.Properties {
		root := principal(p)
		if root == nil || len(root.Keys) != 1 || r.values[p.Name] == nil {
			continue
		}
		k, err := entity.NewKey(root, r.values[p.Name])
		if err != nil {
			continue
		}
		if rv, ok := assigned[k.ID()]; ok {
			r.values[p.Name] = rv
		}
	}
}

// checkConcurrency compares the concurrency values the client read with
// the stored ones.
func checkConcurrency(it *saveItem, cur *row) error {
	for _, p := range it.typ.ConcurrencyProperties() {
		read, ok := it.x.Aspect.OriginalValues[p.Name]
		if !ok {
			read = it.r.values[p.Name]
		}
		a, err := p.Coerce(read)
		if err != nil {
			return err
		}
		b, err := p.Coerce(cur.values[p.Name])
		if err != nil {
			return err
		}
		if !field.Equal(a, b) {
			return fmt.Errorf("%w: %s.%s changed", breeze.ErrConcurrency, it.typ.Name, p.Name)
		}
	}
	return nil
}

// bumpConcurrency increments the integer concurrency properties of r.
func bumpConcurrency(r *row) error {
	for _, p := range r.typ.ConcurrencyProperties() {
		if !p.Type.Integer() {
			continue
		}
		n, err := field.TypeInt64.Coerce(r.values[p.Name])
		if err != nil {
			return err
		}
		if n == nil {
			n = int64(0)
		}
		v, err := p.Coerce(n.(int64) + 1)
		if err != nil {
			return err
		}
		r.values[p.Name] = v
	}
	return nil
}
