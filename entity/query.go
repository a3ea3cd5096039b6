package entity

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Breeze/breeze.sharp-sub000"
	"github.com/Breeze/breeze.sharp-sub000/compiler/load"
)

// DataService is the transport of a manager. Implementations translate
// the calls into requests to the remote store.
type DataService interface {
	// FetchMetadata returns the schemas of the entity types served.
	FetchMetadata(ctx context.Context) ([]*load.Schema, error)
	// ExecuteQuery returns the entities selected by q.
	ExecuteQuery(ctx context.Context, q *Query) ([]Payload, error)
	// SaveChanges persists the exported changes and returns the saved
	// entities with the keys assigned by the store.
	SaveChanges(ctx context.Context, doc *Document) (*SaveResult, error)
}

// Query selects entities of a resource. Parameters are passed to the data
// service unchanged.
type Query struct {
	Resource   string
	Parameters map[string]any
	// MergeStrategy overrides the default strategy of the manager.
	MergeStrategy *breeze.MergeStrategy
}

// NewQuery returns a query of the resource.
func NewQuery(resource string) *Query {
	return &Query{Resource: resource}
}

// Where adds a parameter to the query.
func (q *Query) Where(name string, value any) *Query {
	if q.Parameters == nil {
		q.Parameters = make(map[string]any)
	}
	q.Parameters[name] = value
	return q
}

// WithMergeStrategy sets the merge strategy of the query.
func (q *Query) WithMergeStrategy(s breeze.MergeStrategy) *Query {
	q.MergeStrategy = &s
	return q
}

func (m *Manager) dataService() (DataService, error) {
	if m.cfg.DataService == nil {
		return nil, breeze.ErrNoDataService
	}
	return m.cfg.DataService, nil
}

func (m *Manager) strategy(q *Query) breeze.MergeStrategy {
	if q.MergeStrategy != nil {
		return *q.MergeStrategy
	}
	return m.cfg.MergeStrategy
}

// ExecuteQuery runs q through the data service and merges the results
// into the cache once the whole response is available.
func (m *Manager) ExecuteQuery(ctx context.Context, q *Query) ([]*Entity, error) {
	ds, err := m.dataService()
	if err != nil {
		return nil, err
	}
	start := time.Now()
	payloads, err := ds.ExecuteQuery(ctx, q)
	if err != nil {
		m.metrics.RecordQuery(q.Resource, time.Since(start), 0, err)
		return nil, breeze.NewQueryError(q.Resource, err)
	}
	es, err := m.mergePayloads(payloads, m.strategy(q), breeze.ActionMergeOnQuery)
	m.metrics.RecordQuery(q.Resource, time.Since(start), len(es), err)
	if err != nil {
		return nil, breeze.NewQueryError(q.Resource, err)
	}
	return es, nil
}

// ExecuteQueries runs the queries concurrently. Results are merged in
// query order, in a single loading block, after every query completed.
// Nothing is merged if a query fails.
func (m *Manager) ExecuteQueries(ctx context.Context, qs ...*Query) ([][]*Entity, error) {
	ds, err := m.dataService()
	if err != nil {
		return nil, err
	}
	start := time.Now()
	results := make([][]Payload, len(qs))
	g, gctx := errgroup.WithContext(ctx)
	for i, q := range qs {
		g.Go(func() error {
			payloads, err := ds.ExecuteQuery(gctx, q)
			if err != nil {
				return breeze.NewQueryError(q.Resource, err)
			}
			results[i] = payloads
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	out := make([][]*Entity, len(qs))
	err = m.Loading(func() error {
		for i, q := range qs {
			es, err := m.mergePayloads(results[i], m.strategy(q), breeze.ActionMergeOnQuery)
			m.metrics.RecordQuery(q.Resource, time.Since(start), len(es), err)
			if err != nil {
				return breeze.NewQueryError(q.Resource, err)
			}
			out[i] = es
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// FetchMetadata fetches the schemas of the data service and merges the
// types missing from the graph of the manager. Concurrent calls share one
// request.
func (m *Manager) FetchMetadata(ctx context.Context) error {
	ds, err := m.dataService()
	if err != nil {
		return err
	}
	_, err, shared := m.flight.Do("metadata", func() (any, error) {
		schemas, err := ds.FetchMetadata(ctx)
		if err != nil {
			return nil, err
		}
		return nil, m.graph.Merge(schemas)
	})
	if shared {
		m.log.Debug("metadata fetch shared")
	}
	return err
}
