package entity_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Breeze/breeze.sharp-sub000"
	"github.com/Breeze/breeze.sharp-sub000/entity"
)

// newOrderWithDetail creates an added order holding a temporary key and
// an added detail referencing it.
func newOrderWithDetail(t *testing.T, m *entity.Manager) (*entity.Entity, *entity.Entity) {
	t.Helper()
	o, err := m.CreateEntity("Order", nil)
	require.NoError(t, err)
	d, err := m.CreateEntity("OrderDetail", map[string]any{"productID": 5})
	require.NoError(t, err)
	require.NoError(t, o.Collection("details").Add(d))
	require.Equal(t, -1, d.Get("orderID"))
	return o, d
}

func TestApplySaveResultReplacesTempKeys(t *testing.T) {
	m, g := newManager(t)
	o, d := newOrderWithDetail(t, m)

	saved, err := m.ApplySaveResult([]*entity.Entity{o, d}, &entity.SaveResult{
		KeyMappings: []entity.KeyMapping{{Type: "Order", TempValue: -1, RealValue: 100}},
		Entities: []entity.Payload{
			{Type: "Order", Values: map[string]any{"orderID": 100, "freight": 12.5}},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []*entity.Entity{o, d}, saved)

	assert.Equal(t, 100, o.Get("orderID"))
	assert.Equal(t, 12.5, o.Get("freight"))
	assert.Equal(t, 100, d.Get("orderID"))
	assert.Equal(t, entity.MustKey(g.MustType("OrderDetail"), 100, 5), d.Key())
	assert.Same(t, o, d.Navigation("order"))
	assert.True(t, o.Collection("details").Contains(d))
	for _, e := range saved {
		assert.Equal(t, breeze.Unchanged, e.State())
		assert.False(t, e.IsTempKey())
	}
	assert.Empty(t, m.TempKeys())
	assert.False(t, m.HasChanges())

	_, ok := m.FindEntityByKey(entity.MustKey(g.MustType("Order"), -1))
	assert.False(t, ok)
	found, ok := m.FindEntityByKey(entity.MustKey(g.MustType("Order"), 100))
	require.True(t, ok)
	assert.Same(t, o, found)
}

func TestApplySaveResultRelinksWaitingEntities(t *testing.T) {
	m, _ := newManager(t)
	o, err := m.CreateEntity("Order", nil)
	require.NoError(t, err)
	// Arrives from another source and references the real key.
	d := attach(t, m, "OrderDetail", map[string]any{"orderID": 100, "productID": 1})
	require.Nil(t, d.Navigation("order"))

	_, err = m.ApplySaveResult([]*entity.Entity{o}, &entity.SaveResult{
		KeyMappings: []entity.KeyMapping{{Type: "Order", TempValue: -1, RealValue: 100}},
	})
	require.NoError(t, err)
	assert.Same(t, o, d.Navigation("order"))
}

func TestApplySaveResultIgnoresUnknownMappings(t *testing.T) {
	m, _ := newManager(t)
	o, _ := newOrderWithDetail(t, m)

	_, err := m.ApplySaveResult([]*entity.Entity{o}, &entity.SaveResult{
		KeyMappings: []entity.KeyMapping{
			{Type: "Nope", TempValue: -1, RealValue: 1},
			{Type: "Order", TempValue: -99, RealValue: 1},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, -1, o.Get("orderID"))
	assert.Equal(t, breeze.Unchanged, o.State())
}

func TestApplySaveResultDuplicateRealKey(t *testing.T) {
	m, _ := newManager(t)
	o, d := newOrderWithDetail(t, m)
	attach(t, m, "Order", map[string]any{"orderID": 100})

	_, err := m.ApplySaveResult([]*entity.Entity{o, d}, &entity.SaveResult{
		KeyMappings: []entity.KeyMapping{{Type: "Order", TempValue: -1, RealValue: 100}},
	})
	require.Error(t, err)
	assert.True(t, breeze.IsDuplicateKey(err))
	assert.Equal(t, -1, o.Get("orderID"))
	assert.Equal(t, -1, d.Get("orderID"))
	assert.Equal(t, breeze.Added, o.State())
	assert.True(t, o.IsTempKey())
}

func TestSaveChanges(t *testing.T) {
	svc := &fakeService{}
	m, _ := newManager(t, entity.WithDataService(svc))
	o, d := newOrderWithDetail(t, m)
	c, _ := newCustomer(t, m)
	require.NoError(t, c.Delete())

	svc.save = func(_ context.Context, doc *entity.Document) (*entity.SaveResult, error) {
		assert.Equal(t, 3, doc.Len())
		require.Len(t, doc.TempKeys, 1)
		assert.Equal(t, "Order", doc.TempKeys[0].Type)
		return &entity.SaveResult{
			KeyMappings: []entity.KeyMapping{{Type: "Order", TempValue: doc.TempKeys[0].Values[0], RealValue: 7}},
		}, nil
	}
	saved, err := m.SaveChanges(context.Background())
	require.NoError(t, err)
	assert.Len(t, saved, 3)
	assert.Equal(t, 7, o.Get("orderID"))
	assert.Equal(t, 7, d.Get("orderID"))
	assert.Equal(t, breeze.Detached, c.State())
	assert.False(t, m.HasChanges())

	saved, err = m.SaveChanges(context.Background())
	require.NoError(t, err)
	assert.Empty(t, saved)
}

func TestSaveChangesFailure(t *testing.T) {
	svc := &fakeService{save: func(context.Context, *entity.Document) (*entity.SaveResult, error) {
		return nil, errors.New("connection reset")
	}}
	m, _ := newManager(t, entity.WithDataService(svc))
	o, _ := newOrderWithDetail(t, m)

	_, err := m.SaveChanges(context.Background())
	require.Error(t, err)
	assert.True(t, breeze.IsSaveError(err))
	assert.ErrorContains(t, err, "connection reset")
	assert.Equal(t, breeze.Added, o.State())
	assert.True(t, o.IsTempKey())
}

func TestSaveChangesValidation(t *testing.T) {
	svc := &fakeService{save: func(context.Context, *entity.Document) (*entity.SaveResult, error) {
		t.Fatal("invalid entities must not be sent")
		return nil, nil
	}}
	m, _ := newManager(t, entity.WithDataService(svc))
	e, err := m.CreateEntity("Employee", nil)
	require.NoError(t, err)

	_, err = m.SaveChanges(context.Background(), e)
	require.Error(t, err)
	assert.True(t, breeze.IsValidationFailure(err))
	assert.NotEmpty(t, e.ValidationErrors())
	assert.Equal(t, breeze.Added, e.State())

	require.NoError(t, e.Set("lastName", "Buchanan"))
	svc.save = func(context.Context, *entity.Document) (*entity.SaveResult, error) {
		return &entity.SaveResult{}, nil
	}
	_, err = m.SaveChanges(context.Background(), e)
	require.NoError(t, err)
	assert.Equal(t, breeze.Unchanged, e.State())
}

func TestSaveChangesWithoutDataService(t *testing.T) {
	m, _ := newManager(t)
	_, err := m.SaveChanges(context.Background())
	assert.ErrorIs(t, err, breeze.ErrNoDataService)
}
