package memory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Breeze/breeze.sharp-sub000"
	"github.com/Breeze/breeze.sharp-sub000/dataservice/memory"
	"github.com/Breeze/breeze.sharp-sub000/entity"
	"github.com/Breeze/breeze.sharp-sub000/graph"
	"github.com/Breeze/breeze.sharp-sub000/internal/testmodel"
)

var model = testmodel.Graph()

func seeded(t *testing.T, opts ...memory.Option) (*memory.Service, uuid.UUID) {
	t.Helper()
	svc := memory.MustNew(testmodel.Schemas(), opts...)
	id := uuid.New()
	require.NoError(t, svc.Seed("Customer", map[string]any{"customerID": id, "companyName": "Alfreds", "rowVersion": 1}))
	require.NoError(t, svc.Seed("Order",
		map[string]any{"customerID": id, "freight": 10.0},
		map[string]any{"customerID": id, "freight": 20.0},
	))
	require.NoError(t, svc.Seed("OrderDetail", map[string]any{"orderID": 1, "productID": 5, "quantity": 3}))
	return svc, id
}

func TestSeed(t *testing.T) {
	svc, id := seeded(t)
	assert.Equal(t, 1, svc.Len("Customer"))
	assert.Equal(t, 2, svc.Len("Order"))
	assert.Zero(t, svc.Len("Unknown"))

	row, ok := svc.Row("Order", 2)
	require.True(t, ok)
	assert.Equal(t, id.String(), row["customerID"])
	assert.Equal(t, "USA", row["shipCountry"])

	err := svc.Seed("Order", map[string]any{"orderID": 2})
	assert.True(t, breeze.IsDuplicateKey(err))
	require.Error(t, svc.Seed("Nope", map[string]any{}))
	require.NoError(t, svc.Seed("Order", map[string]any{"orderID": 10}))
	require.NoError(t, svc.Seed("Order", map[string]any{}))
	_, ok = svc.Row("Order", 11)
	assert.True(t, ok, "identities continue after the highest seeded key")
}

func TestExecuteQuery(t *testing.T) {
	svc, _ := seeded(t)
	ctx := context.Background()
	m := entity.MustNewManager(model, entity.WithDataService(svc))

	cs, err := m.ExecuteQuery(ctx, entity.NewQuery("Customers").Where(memory.ParamExpand, "orders"))
	require.NoError(t, err)
	require.Len(t, cs, 1)
	c := cs[0]
	assert.Equal(t, breeze.Unchanged, c.State())
	assert.Equal(t, 2, c.Collection("orders").Len())
	assert.Equal(t, 3, m.Len())

	os, err := m.ExecuteQuery(ctx, entity.NewQuery("Orders").Where("freight", 20))
	require.NoError(t, err)
	require.Len(t, os, 1)
	assert.Equal(t, 2, os[0].Get("orderID"))
	assert.Same(t, c, os[0].Navigation("customer"))

	os, err = m.ExecuteQuery(ctx, entity.NewQuery("Orders").
		Where(memory.ParamSkip, 0).
		Where(memory.ParamTop, 1).
		Where(memory.ParamExpand, "details, customer"))
	require.NoError(t, err)
	require.Len(t, os, 1)
	require.Equal(t, 1, os[0].Collection("details").Len())
	assert.Equal(t, int16(3), os[0].Collection("details").At(0).Get("quantity"))

	os, err = m.ExecuteQuery(ctx, entity.NewQuery("Order").Where(memory.ParamSkip, 5))
	require.NoError(t, err)
	assert.Empty(t, os)
}

func TestExecuteQueryErrors(t *testing.T) {
	svc, _ := seeded(t)
	ctx := context.Background()
	for _, q := range []*entity.Query{
		entity.NewQuery("Nope"),
		entity.NewQuery("Address"),
		entity.NewQuery("Orders").Where("nope", 1),
		entity.NewQuery("Orders").Where(memory.ParamTop, -1),
		entity.NewQuery("Orders").Where(memory.ParamTop, "x"),
		entity.NewQuery("Orders").Where(memory.ParamExpand, 1),
	} {
		_, err := svc.ExecuteQuery(ctx, q)
		assert.Error(t, err, q.Resource)
	}
	canceled, cancel := context.WithCancel(ctx)
	cancel()
	_, err := svc.ExecuteQuery(canceled, entity.NewQuery("Orders"))
	require.ErrorIs(t, err, context.Canceled)
}

func TestExecuteQueryInheritance(t *testing.T) {
	svc := memory.MustNew(testmodel.Schemas())
	require.NoError(t, svc.Seed("Person", map[string]any{"name": "Nancy"}))
	require.NoError(t, svc.Seed("Contact", map[string]any{"name": "Andrew", "email": "andrew@example.com"}))
	m := entity.MustNewManager(model, entity.WithDataService(svc))

	people, err := m.ExecuteQuery(context.Background(), entity.NewQuery("People"))
	require.NoError(t, err)
	require.Len(t, people, 2)
	assert.Equal(t, "Person", people[0].Type().Name)
	assert.Equal(t, "Contact", people[1].Type().Name)
	assert.Equal(t, "andrew@example.com", people[1].Get("email"))
}

func TestSaveChangesAssignsKeys(t *testing.T) {
	svc, id := seeded(t)
	ctx := context.Background()
	m := entity.MustNewManager(model, entity.WithDataService(svc))
	cs, err := m.ExecuteQuery(ctx, entity.NewQuery("Customers"))
	require.NoError(t, err)
	c := cs[0]

	o, err := m.CreateEntity("Order", map[string]any{"freight": 5.0})
	require.NoError(t, err)
	require.NoError(t, o.SetNavigation("customer", c))
	d, err := m.CreateEntity("OrderDetail", map[string]any{"productID": 7, "quantity": 2})
	require.NoError(t, err)
	require.NoError(t, o.Collection("details").Add(d))
	require.NoError(t, c.Set("companyName", "Alfreds Futterkiste"))
	require.True(t, o.IsTempKey())

	saved, err := m.SaveChanges(ctx)
	require.NoError(t, err)
	assert.Len(t, saved, 3)
	assert.False(t, m.HasChanges())

	assert.Equal(t, 3, o.Get("orderID"))
	assert.False(t, o.IsTempKey())
	assert.Equal(t, 3, d.Get("orderID"))
	assert.Same(t, o, d.Navigation("order"))
	assert.Equal(t, int64(2), c.Get("rowVersion"))
	assert.Equal(t, breeze.Unchanged, c.State())

	row, ok := svc.Row("Order", 3)
	require.True(t, ok)
	assert.Equal(t, id.String(), row["customerID"])
	_, ok = svc.Row("OrderDetail", 3, 7)
	assert.True(t, ok)
	row, ok = svc.Row("Customer", id)
	require.True(t, ok)
	assert.Equal(t, "Alfreds Futterkiste", row["companyName"])
	assert.Equal(t, int64(2), row["rowVersion"])
}

func TestSaveChangesDelete(t *testing.T) {
	svc, _ := seeded(t)
	ctx := context.Background()
	m := entity.MustNewManager(model, entity.WithDataService(svc))
	os, err := m.ExecuteQuery(ctx, entity.NewQuery("Orders").Where("orderID", 2))
	require.NoError(t, err)
	require.NoError(t, os[0].Delete())

	_, err = m.SaveChanges(ctx)
	require.NoError(t, err)
	assert.Equal(t, breeze.Detached, os[0].State())
	assert.Equal(t, 1, svc.Len("Order"))
}

func TestSaveChangesConcurrency(t *testing.T) {
	svc, id := seeded(t)
	ctx := context.Background()
	g := graph.MustNewGraph(testmodel.Schemas()...)
	m1 := entity.MustNewManager(g, entity.WithDataService(svc))
	m2 := entity.MustNewManager(g, entity.WithDataService(svc))
	load := func(m *entity.Manager) *entity.Entity {
		cs, err := m.ExecuteQuery(ctx, entity.NewQuery("Customers").Where("customerID", id.String()))
		require.NoError(t, err)
		require.Len(t, cs, 1)
		return cs[0]
	}
	c1, c2 := load(m1), load(m2)

	require.NoError(t, c1.Set("companyName", "First"))
	_, err := m1.SaveChanges(ctx)
	require.NoError(t, err)

	require.NoError(t, c2.Set("companyName", "Second"))
	_, err = m2.SaveChanges(ctx)
	require.ErrorIs(t, err, breeze.ErrConcurrency)
	assert.True(t, breeze.IsSaveError(err))
	assert.Equal(t, breeze.Modified, c2.State())

	row, _ := svc.Row("Customer", id)
	assert.Equal(t, "First", row["companyName"])
}

func TestSaveChangesIsAtomic(t *testing.T) {
	svc, _ := seeded(t)
	ctx := context.Background()
	m := entity.MustNewManager(model, entity.WithDataService(svc))
	_, err := m.CreateEntity("Order", map[string]any{"freight": 1.0})
	require.NoError(t, err)
	_, err = m.CreateEntity("Territory", map[string]any{"territoryID": "T1"}, breeze.Modified)
	require.NoError(t, err)

	_, err = m.SaveChanges(ctx)
	require.Error(t, err)
	assert.True(t, breeze.IsNotFound(err))
	assert.Equal(t, 2, svc.Len("Order"))

	_, ok := svc.Row("Order", 3)
	assert.False(t, ok)
	require.NoError(t, svc.Seed("Order", map[string]any{}))
	_, ok = svc.Row("Order", 3)
	assert.True(t, ok, "a failed save consumes no identity")
}

func TestSaveHook(t *testing.T) {
	errOffline := errors.New("offline")
	svc, _ := seeded(t, memory.WithSaveHook(func(context.Context, *entity.Document) error {
		return errOffline
	}))
	m := entity.MustNewManager(model, entity.WithDataService(svc))
	_, err := m.CreateEntity("Order", map[string]any{"freight": 1.0})
	require.NoError(t, err)
	_, err = m.SaveChanges(context.Background())
	require.ErrorIs(t, err, errOffline)
	assert.True(t, m.HasChanges())
	assert.Equal(t, 2, svc.Len("Order"))
}

func TestFetchMetadata(t *testing.T) {
	svc := memory.MustNew(testmodel.Schemas())
	m := entity.MustNewManager(graph.MustNewGraph(testmodel.Territory{}), entity.WithDataService(svc))
	_, ok := m.Graph().Type("Order")
	require.False(t, ok)
	require.NoError(t, m.FetchMetadata(context.Background()))
	_, ok = m.Graph().Type("Order")
	assert.True(t, ok)
	_, ok = svc.Graph().TypeByResource("OrderDetails")
	assert.True(t, ok)
}
