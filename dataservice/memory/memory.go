// Package memory provides an in-process data service for tests, demos and
// offline-first prototypes.
//
// The service keeps rows in portable form, assigns identity keys on save,
// rewrites the foreign keys of the saved bundle that reference temporary
// keys, and checks concurrency properties. Saves are applied to a copy of
// the state that replaces it only when the whole bundle succeeded.
package memory

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/Breeze/breeze.sharp-sub000"
	"github.com/Breeze/breeze.sharp-sub000/compiler/load"
	"github.com/Breeze/breeze.sharp-sub000/entity"
	"github.com/Breeze/breeze.sharp-sub000/graph"
	"github.com/Breeze/breeze.sharp-sub000/schema/field"
)

// Query parameters with a special meaning. Every other parameter selects
// rows whose property equals the parameter value.
const (
	// ParamExpand lists the navigations to include, comma separated.
	ParamExpand = "$expand"
	// ParamTop limits the number of rows returned.
	ParamTop = "$top"
	// ParamSkip skips the first rows.
	ParamSkip = "$skip"
)

var _ entity.DataService = (*Service)(nil)

// Service is an in-memory entity.DataService.
type Service struct {
	mu      sync.RWMutex
	graph   *graph.Graph
	schemas []*load.Schema
	state   state
	log     *slog.Logger
	hook    func(context.Context, *entity.Document) error
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger of the service.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.log = l }
}

// WithSaveHook installs a function called before every save. A non-nil
// error fails the save.
func WithSaveHook(fn func(context.Context, *entity.Document) error) Option {
	return func(s *Service) { s.hook = fn }
}

// New returns a service serving the given schemas.
func New(ifaces []breeze.Interface, opts ...Option) (*Service, error) {
	schemas := make([]*load.Schema, 0, len(ifaces))
	for _, iface := range ifaces {
		s, err := load.FromInterface(iface)
		if err != nil {
			return nil, err
		}
		schemas = append(schemas, s)
	}
	g, err := graph.Build(schemas)
	if err != nil {
		return nil, err
	}
	s := &Service{
		graph:   g,
		schemas: schemas,
		state:   newState(),
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// MustNew is like New but panics on error.
func MustNew(ifaces []breeze.Interface, opts ...Option) *Service {
	s, err := New(ifaces, opts...)
	if err != nil {
		panic(err)
	}
	return s
}

// Graph returns the server side graph of the service.
func (s *Service) Graph() *graph.Graph { return s.graph }

// FetchMetadata implements entity.DataService.
func (s *Service) FetchMetadata(ctx context.Context) ([]*load.Schema, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.schemas, nil
}

// Seed stores rows of the given type. Missing keys of identity types are
// assigned.
func (s *Service) Seed(typeName string, rows ...map[string]any) error {
	t, ok := s.graph.Type(typeName)
	if !ok {
		return fmt.Errorf("memory: unknown type %q", typeName)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, vs := range rows {
		r, err := newRow(t, vs)
		if err != nil {
			return err
		}
		if isIdentity(t) && field.IsZero(r.values[t.Keys[0].Name]) {
			v, err := s.state.nextID(t)
			if err != nil {
				return err
			}
			r.values[t.Keys[0].Name] = v
		}
		id, err := r.id()
		if err != nil {
			return err
		}
		if _, ok := s.state.rows[id]; ok {
			return breeze.NewDuplicateKeyError(t.Name, id)
		}
		s.state.put(id, r)
	}
	return nil
}

// Len returns the number of stored rows of the type and its subtypes.
func (s *Service) Len(typeName string) int {
	t, ok := s.graph.Type(typeName)
	if !ok {
		return 0
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, r := range s.state.rows {
		if r.typ.IsSubtypeOf(t) {
			n++
		}
	}
	return n
}

// Row returns a copy of the stored values of the entity with the given key
// values.
func (s *Service) Row(typeName string, key ...any) (map[string]any, bool) {
	t, ok := s.graph.Type(typeName)
	if !ok {
		return nil, false
	}
	k, err := entity.NewKey(t, key...)
	if err != nil {
		return nil, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.state.rows[k.ID()]
	if !ok || !r.typ.IsSubtypeOf(t) {
		return nil, false
	}
	return cloneValues(r.values), true
}

// ExecuteQuery implements entity.DataService. The resource names a type
// resource or a type name.
func (s *Service) ExecuteQuery(ctx context.Context, q *entity.Query) ([]entity.Payload, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t, ok := s.graph.TypeByResource(q.Resource)
	if !ok {
		if t, ok = s.graph.Type(q.Resource); !ok || t.Complex {
			return nil, fmt.Errorf("memory: unknown resource %q", q.Resource)
		}
	}
	sel, err := newSelection(t, q.Parameters)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var matched []*row
	for _, id := range s.state.sortedIDs() {
		r := s.state.rows[id]
		if r.typ.IsSubtypeOf(t) && sel.match(r) {
			matched = append(matched, r)
		}
	}
	matched = sel.page(matched)
	out := make([]entity.Payload, 0, len(matched))
	for _, r := range matched {
		vs := cloneValues(r.values)
		for _, n := range sel.expand {
			if nav, ok := r.typ.Navigation(n); ok {
				if v := s.state.expand(r, nav); v != nil {
					vs[n] = v
				}
			}
		}
		out = append(out, entity.Payload{Type: r.typ.Name, Values: vs})
	}
	s.log.Debug("query executed", "resource", q.Resource, "count", len(out))
	return out, nil
}

type selection struct {
	typ       *graph.Type
	filters   map[*graph.Property]any
	expand    []string
	top, skip int
}

func newSelection(t *graph.Type, params map[string]any) (*selection, error) {
	sel := &selection{typ: t, filters: make(map[*graph.Property]any), top: -1}
	for name, v := range params {
		switch name {
		case ParamExpand:
			s, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("memory: %s must be a string, got %T", name, v)
			}
			for _, n := range strings.Split(s, ",") {
				if n = strings.TrimSpace(n); n != "" {
					sel.expand = append(sel.expand, n)
				}
			}
		case ParamTop, ParamSkip:
			cv, err := field.TypeInt.Coerce(v)
			n, ok := cv.(int)
			if err != nil || !ok || n < 0 {
				return nil, fmt.Errorf("memory: invalid %s %v", name, v)
			}
			if name == ParamTop {
				sel.top = n
			} else {
				sel.skip = n
			}
		default:
			p, ok := t.Property(name)
			if !ok || p.IsComplex() {
				return nil, fmt.Errorf("memory: unknown property %s.%s", t.Name, name)
			}
			cv, err := p.Coerce(v)
			if err != nil {
				return nil, err
			}
			sel.filters[p] = cv
		}
	}
	return sel, nil
}

func (sel *selection) match(r *row) bool {
	for p, want := range sel.filters {
		got, err := p.Coerce(r.values[p.Name])
		if err != nil || !field.Equal(got, want) {
			return false
		}
	}
	return true
}

func (sel *selection) page(rs []*row) []*row {
	if sel.skip >= len(rs) {
		return nil
	}
	rs = rs[sel.skip:]
	if sel.top >= 0 && sel.top < len(rs) {
		rs = rs[:sel.top]
	}
	return rs
}

// SaveChanges implements entity.DataService.
func (s *Service) SaveChanges(ctx context.Context, doc *entity.Document) (*entity.SaveResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.hook != nil {
		if err := s.hook(ctx, doc); err != nil {
			return nil, err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	tx := &saveTx{graph: s.graph, state: s.state.clone()}
	res, err := tx.apply(doc)
	if err != nil {
		s.log.Warn("save rejected", "error", err)
		return nil, err
	}
	s.state = tx.state
	s.log.Debug("changes saved", "entities", len(res.Entities), "keys", len(res.KeyMappings))
	return res, nil
}

// row is a stored entity.
type row struct {
	typ    *graph.Type
	values map[string]any
}

// newRow coerces vs to the property types of t and stores them in
// portable form. Missing properties hold their default.
func newRow(t *graph.Type, vs map[string]any) (*row, error) {
	r := &row{typ: t, values: make(map[string]any, len(t.Properties))}
	for _, p := range t.Properties {
		v, ok := vs[p.Name]
		if p.IsComplex() {
			sub, _ := v.(map[string]any)
			cr, err := newRow(p.ComplexType, sub)
			if err != nil {
				return nil, err
			}
			r.values[p.Name] = cr.values
			continue
		}
		if !ok {
			v = p.DefaultValue()
		}
		cv, err := p.Coerce(v)
		if err != nil {
			return nil, fmt.Errorf("memory: %s.%s: %w", t.Name, p.Name, err)
		}
		r.values[p.Name] = p.Type.Portable(cv)
	}
	return r, nil
}

func (r *row) key() (entity.Key, error) {
	vs := make([]any, len(r.typ.Keys))
	for i, p := range r.typ.Keys {
		vs[i] = r.values[p.Name]
	}
	return entity.NewKey(r.typ, vs...)
}

func (r *row) id() (string, error) {
	k, err := r.key()
	if err != nil {
		return "", err
	}
	if k.IsEmpty() {
		return "", breeze.NewMissingKeyError(r.typ.Name)
	}
	return k.ID(), nil
}

// state holds the rows by key id.
type state struct {
	rows map[string]*row
	ids  map[*graph.Type]int64
}

func newState() state {
	return state{rows: make(map[string]*row), ids: make(map[*graph.Type]int64)}
}

func (st state) clone() state {
	c := state{
		rows: make(map[string]*row, len(st.rows)),
		ids:  make(map[*graph.Type]int64, len(st.ids)),
	}
	for id, r := range st.rows {
		c.rows[id] = &row{typ: r.typ, values: cloneValues(r.values)}
	}
	for t, n := range st.ids {
		c.ids[t] = n
	}
	return c
}

func (st state) put(id string, r *row) {
	st.rows[id] = r
	if len(r.typ.Keys) != 1 || !r.typ.Keys[0].Type.Integer() {
		return
	}
	root := r.typ.Root()
	if n, err := field.TypeInt64.Coerce(r.values[r.typ.Keys[0].Name]); err == nil && n.(int64) > st.ids[root] {
		st.ids[root] = n.(int64)
	}
}

// nextID returns the next identity of the hierarchy of t, in the portable
// form of its key property.
func (st state) nextID(t *graph.Type) (any, error) {
	root := t.Root()
	st.ids[root]++
	p := t.Keys[0]
	v, err := p.Coerce(st.ids[root])
	if err != nil {
		return nil, fmt.Errorf("memory: identity of %s: %w", root.Name, err)
	}
	return p.Type.Portable(v), nil
}

func isIdentity(t *graph.Type) bool {
	return t.Root().AutoKey == breeze.AutoKeyIdentity && len(t.Keys) == 1 && t.Keys[0].Type.Integer()
}

func (st state) sortedIDs() []string {
	ids := make([]string, 0, len(st.rows))
	for id := range st.rows {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// expand returns the portable values of the entities related to r through
// n: a map for scalar navigations, a slice otherwise.
func (st state) expand(r *row, n *graph.Navigation) any {
	if n.Scalar {
		if len(n.ForeignKeys) == 0 {
			return st.expandInverse(r, n, true)
		}
		vs := make([]any, len(n.ForeignKeys))
		for i, fk := range n.ForeignKeys {
			vs[i] = r.values[fk.Name]
		}
		k, err := entity.NewKey(n.Target, vs...)
		if err != nil || k.IsEmpty() {
			return nil
		}
		if t, ok := st.rows[k.ID()]; ok && t.typ.IsSubtypeOf(n.Target) {
			return cloneValues(t.values)
		}
		return nil
	}
	return st.expandInverse(r, n, false)
}

func (st state) expandInverse(r *row, n *graph.Navigation, scalar bool) any {
	if len(n.InverseForeignKeys) == 0 {
		return nil
	}
	k, err := r.key()
	if err != nil {
		return nil
	}
	var out []any
	for _, id := range st.sortedIDs() {
		c := st.rows[id]
		if !c.typ.IsSubtypeOf(n.Target) {
			continue
		}
		vs := make([]any, len(n.InverseForeignKeys))
		for i, fk := range n.InverseForeignKeys {
			vs[i] = c.values[fk.Name]
		}
		if fk, err := entity.NewKey(r.typ, vs...); err == nil && fk.ID() == k.ID() {
			if scalar {
				return cloneValues(c.values)
			}
			out = append(out, cloneValues(c.values))
		}
	}
	if scalar {
		return nil
	}
	if out == nil {
		out = []any{}
	}
	return out
}

func cloneValues(vs map[string]any) map[string]any {
	out := make(map[string]any, len(vs))
	for k, v := range vs {
		if sub, ok := v.(map[string]any); ok {
			v = cloneValues(sub)
		}
		out[k] = v
	}
	return out
}
