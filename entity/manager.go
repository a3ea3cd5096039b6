package entity

import (
	"fmt"
	"log/slog"
	"slices"

	"golang.org/x/sync/singleflight"

	"github.com/Breeze/breeze.sharp-sub000"
	"github.com/Breeze/breeze.sharp-sub000/graph"
)

// Manager caches the entities of one graph. It keeps every attached
// entity indexed by key, tracks their changes and keeps their
// associations consistent.
//
// A Manager is not safe for concurrent use. Network-bound operations may
// run their transport concurrently, but they merge their results on the
// calling goroutine.
type Manager struct {
	cfg     Config
	graph   *graph.Graph
	keygen  KeyGenerator
	log     *slog.Logger
	metrics MetricsCollector

	groups     map[*graph.Type]*Group
	groupList  []*Group
	tempKeys   map[*Entity]struct{}
	unattached *unattachedIndex
	numChanged int
	hasChanges bool

	entityChanging    event[*EntityChangingEvent]
	entityChanged     event[*EntityChangedEvent]
	hasChangesChanged event[*HasChangesChangedEvent]

	// Batch state. depth counts the nested runs, loading the nested
	// loading blocks. Events emitted while depth > 0 are queued and
	// replayed once the outermost run returns.
	depth    int
	loading  int
	draining bool
	queue    []func()

	flight singleflight.Group
}

// NewManager returns an empty manager for the entity types of g.
func NewManager(g *graph.Graph, opts ...Option) (*Manager, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}
	m := &Manager{
		cfg:        cfg,
		graph:      g,
		keygen:     cfg.KeyGenerator,
		log:        cfg.Logger,
		metrics:    cfg.Metrics,
		groups:     make(map[*graph.Type]*Group),
		tempKeys:   make(map[*Entity]struct{}),
		unattached: newUnattachedIndex(),
	}
	return m, nil
}

// MustNewManager is like NewManager but panics on error.
func MustNewManager(g *graph.Graph, opts ...Option) *Manager {
	m, err := NewManager(g, opts...)
	if err != nil {
		panic(err)
	}
	return m
}

// Graph returns the entity types of the manager.
func (m *Manager) Graph() *graph.Graph {
	return m.graph
}

// Config returns a copy of the manager configuration.
func (m *Manager) Config() Config {
	return m.cfg
}

// Group returns the group holding the entities of the concrete type t, or
// nil if no entity of t was ever attached.
func (m *Manager) Group(t *graph.Type) *Group {
	return m.groups[t]
}

func (m *Manager) group(t *graph.Type) *Group {
	g, ok := m.groups[t]
	if !ok {
		g = newGroup(t)
		m.groups[t] = g
		m.groupList = append(m.groupList, g)
	}
	return g
}

// findByID returns the entity of the hierarchy of t cached under id.
func (m *Manager) findByID(t *graph.Type, id string) *Entity {
	for _, st := range t.Root().SelfAndSubtypes() {
		if g, ok := m.groups[st]; ok {
			if e := g.get(id); e != nil {
				return e
			}
		}
	}
	return nil
}

// rekey re-indexes e under k.
func (m *Manager) rekey(e *Entity, k Key) {
	if e.group != nil {
		e.group.reindex(e, e.key.id, k.id)
	}
	e.key = k
}

// setState moves e to s and maintains the count of changed entities.
func (m *Manager) setState(e *Entity, s breeze.EntityState) {
	if e.state == s {
		return
	}
	if e.state.IsChanged() {
		m.numChanged--
	}
	if s.IsChanged() {
		m.numChanged++
	}
	e.state = s
}

// FindEntityByKey returns the entity cached under k. Entities of subtypes
// of the key type are found as well.
func (m *Manager) FindEntityByKey(k Key) (*Entity, bool) {
	if k.IsZero() {
		return nil, false
	}
	e := m.findByID(k.typ, k.id)
	if e == nil || !e.typ.IsSubtypeOf(k.typ) {
		return nil, false
	}
	return e, true
}

// GetEntityByKey is like FindEntityByKey but returns a NotFoundError if
// no entity is cached under k.
func (m *Manager) GetEntityByKey(k Key) (*Entity, error) {
	e, ok := m.FindEntityByKey(k)
	if !ok {
		label := "<nil>"
		if !k.IsZero() {
			label = k.typ.Name
		}
		return nil, breeze.NewNotFoundError(label, k.String())
	}
	return e, nil
}

// GetEntities returns the cached entities of the given types and their
// subtypes in the given states. A nil types slice selects every type and
// no state selects every state.
func (m *Manager) GetEntities(types []*graph.Type, states ...breeze.EntityState) []*Entity {
	var es []*Entity
	for _, g := range m.groupList {
		if types != nil && !slices.ContainsFunc(types, g.typ.IsSubtypeOf) {
			continue
		}
		es = append(es, g.Entities(states...)...)
	}
	return es
}

// GetChanges returns the Added, Modified and Deleted entities of the given
// types, or of every type.
func (m *Manager) GetChanges(types ...*graph.Type) []*Entity {
	if len(types) == 0 {
		types = nil
	}
	return m.GetEntities(types, breeze.Added, breeze.Modified, breeze.Deleted)
}

// HasChanges reports whether the manager holds pending changes for the
// given types, or for any type.
func (m *Manager) HasChanges(types ...*graph.Type) bool {
	if len(types) == 0 {
		return m.numChanged > 0
	}
	return len(m.GetChanges(types...)) > 0
}

// Len returns the number of cached entities.
func (m *Manager) Len() int {
	n := 0
	for _, g := range m.groupList {
		n += g.Len()
	}
	return n
}

// Clear detaches every entity of the manager. It publishes a single
// ActionClear change instead of one ActionDetach per entity, and no
// property or collection changes.
func (m *Manager) Clear() {
	_ = m.run(false, func() error {
		n := 0
		for _, g := range m.groupList {
			for _, e := range g.slots {
				if e == nil {
					continue
				}
				clear(e.refs)
				for _, s := range e.sets {
					s.items, s.members = nil, make(map[*Entity]struct{})
				}
				release(e)
				n++
			}
			g.clear()
		}
		clear(m.tempKeys)
		m.unattached.clear()
		m.numChanged = 0
		m.changed(nil, breeze.ActionClear, "", nil, nil)
		if n > 0 {
			m.metrics.RecordDetach(n)
		}
		return nil
	})
	m.metrics.SetCached(0)
	m.log.Debug("manager cleared")
}

// CreateEntity creates an entity of the named type with the given values
// and attaches it in the given state, Added by default. Entities created
// Detached are returned unattached.
func (m *Manager) CreateEntity(typeName string, values map[string]any, state ...breeze.EntityState) (*Entity, error) {
	t, ok := m.graph.Type(typeName)
	if !ok {
		return nil, fmt.Errorf("breeze: unknown entity type %q", typeName)
	}
	if t.Complex {
		return nil, fmt.Errorf("breeze: %s is a complex type", t.Name)
	}
	e := New(t)
	for _, p := range t.Properties {
		if v, ok := values[p.Name]; ok {
			if err := e.Set(p.Name, v); err != nil {
				return nil, err
			}
		}
	}
	for name, v := range values {
		if _, ok := t.Property(name); ok {
			continue
		}
		if err := e.Set(name, v); err != nil {
			return nil, err
		}
	}
	st := breeze.Added
	if len(state) > 0 {
		st = state[0]
	}
	if st == breeze.Detached {
		return e, nil
	}
	if err := m.Attach(e, st); err != nil {
		return nil, err
	}
	return e, nil
}
