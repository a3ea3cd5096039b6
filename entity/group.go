package entity

import (
	"slices"

	"github.com/Breeze/breeze.sharp-sub000"
	"github.com/Breeze/breeze.sharp-sub000/graph"
)

// Group holds the cached entities of one concrete type. Entities live in
// a dense slot array; removed slots are recycled through a free list and
// the index maps key ids to slots.
//
// Deleted entities stay in their group until the deletion is accepted.
type Group struct {
	typ   *graph.Type
	slots []*Entity
	free  []int
	index map[string]int
}

func newGroup(t *graph.Type) *Group {
	return &Group{typ: t, index: make(map[string]int)}
}

// Type returns the entity type of the group.
func (g *Group) Type() *graph.Type {
	return g.typ
}

// Len returns the number of entities in the group.
func (g *Group) Len() int {
	return len(g.index)
}

// Entities returns the entities of the group in the given states, or all
// of them when no state is given.
func (g *Group) Entities(states ...breeze.EntityState) []*Entity {
	es := make([]*Entity, 0, len(g.index))
	for _, e := range g.slots {
		if e != nil && (len(states) == 0 || slices.Contains(states, e.state)) {
			es = append(es, e)
		}
	}
	return es
}

// Find returns the entity of the group with the given key.
func (g *Group) Find(k Key) (*Entity, bool) {
	e := g.get(k.ID())
	return e, e != nil
}

func (g *Group) get(id string) *Entity {
	if i, ok := g.index[id]; ok {
		return g.slots[i]
	}
	return nil
}

func (g *Group) add(e *Entity, id string) {
	i := len(g.slots)
	if n := len(g.free); n > 0 {
		i = g.free[n-1]
		g.free = g.free[:n-1]
		g.slots[i] = e
	} else {
		g.slots = append(g.slots, e)
	}
	g.index[id] = i
	e.group, e.slot = g, i
}

func (g *Group) remove(e *Entity) {
	if e.group != g {
		return
	}
	delete(g.index, e.key.id)
	g.slots[e.slot] = nil
	g.free = append(g.free, e.slot)
	e.group, e.slot = nil, -1
}

func (g *Group) reindex(e *Entity, oldID, newID string) {
	delete(g.index, oldID)
	g.index[newID] = e.slot
}

func (g *Group) clear() {
	for _, e := range g.slots {
		if e != nil {
			e.group, e.slot = nil, -1
		}
	}
	g.slots, g.free = nil, nil
	clear(g.index)
}
