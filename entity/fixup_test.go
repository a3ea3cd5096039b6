package entity_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Breeze/breeze.sharp-sub000"
	"github.com/Breeze/breeze.sharp-sub000/entity"
)

// assertLinked checks the three sides of the customer-orders association.
func assertLinked(t *testing.T, c, o *entity.Entity) {
	t.Helper()
	assert.Same(t, c, o.Navigation("customer"))
	assert.True(t, c.Collection("orders").Contains(o))
	assert.Equal(t, c.Get("customerID"), o.Get("customerID"))
}

func assertUnlinked(t *testing.T, c, o *entity.Entity) {
	t.Helper()
	assert.NotSame(t, c, o.Navigation("customer"))
	assert.False(t, c.Collection("orders").Contains(o))
	assert.NotEqual(t, c.Get("customerID"), o.Get("customerID"))
}

func TestForeignKeyFixup(t *testing.T) {
	m, _ := newManager(t)
	c, id := newCustomer(t, m)
	o := attach(t, m, "Order", map[string]any{"orderID": 1, "customerID": id})
	assertLinked(t, c, o)

	require.NoError(t, o.Set("customerID", nil))
	assert.Nil(t, o.Navigation("customer"))
	assert.False(t, c.Collection("orders").Contains(o))
	assert.Equal(t, breeze.Modified, o.State())
	orig, ok := o.OriginalValue("customerID")
	require.True(t, ok)
	assert.Equal(t, id, orig)

	require.NoError(t, o.Set("customerID", id.String()))
	assertLinked(t, c, o)
}

func TestForeignKeyFixupOrderIndependent(t *testing.T) {
	m, _ := newManager(t)
	id := uuid.New()
	o1 := attach(t, m, "Order", map[string]any{"orderID": 1, "customerID": id})
	o2 := attach(t, m, "Order", map[string]any{"orderID": 2, "customerID": id})
	assert.Nil(t, o1.Navigation("customer"), "parent not cached yet")

	c := attach(t, m, "Customer", map[string]any{"customerID": id})
	assertLinked(t, c, o1)
	assertLinked(t, c, o2)
	assert.Equal(t, 2, c.Collection("orders").Len())
}

func TestNavigationFixup(t *testing.T) {
	m, _ := newManager(t)
	c, _ := newCustomer(t, m)
	o := attach(t, m, "Order", map[string]any{"orderID": 1})

	require.NoError(t, o.SetNavigation("customer", c))
	assertLinked(t, c, o)

	require.NoError(t, o.SetNavigation("customer", nil))
	assertUnlinked(t, c, o)
	assert.Nil(t, o.Get("customerID"), "cleared foreign keys take their default")

	require.NoError(t, c.Collection("orders").Add(o))
	assertLinked(t, c, o)

	removed, err := c.Collection("orders").Remove(o)
	require.NoError(t, err)
	assert.True(t, removed)
	assertUnlinked(t, c, o)

	removed, err = c.Collection("orders").Remove(o)
	require.NoError(t, err)
	assert.False(t, removed)

	assert.Error(t, c.Set("orders", nil))
	assert.Error(t, o.Set("customer", "not an entity"))
	assert.Error(t, c.Collection("orders").Add(c))
}

func TestMoveBetweenCollections(t *testing.T) {
	m, _ := newManager(t)
	a, _ := newCustomer(t, m)
	b, bid := newCustomer(t, m)
	o := attach(t, m, "Order", map[string]any{"orderID": 1, "customerID": a.Get("customerID")})
	require.Equal(t, 1, a.Collection("orders").Len())

	var fromA, toB []*entity.CollectionChangedEvent
	a.Collection("orders").OnCollectionChanged(func(ev *entity.CollectionChangedEvent) { fromA = append(fromA, ev) })
	b.Collection("orders").OnCollectionChanged(func(ev *entity.CollectionChangedEvent) { toB = append(toB, ev) })

	require.NoError(t, b.Collection("orders").Add(o))

	assert.Equal(t, 0, a.Collection("orders").Len())
	assert.Equal(t, 1, b.Collection("orders").Len())
	assert.Equal(t, bid, o.Get("customerID"))
	assertLinked(t, b, o)
	require.Len(t, fromA, 1)
	assert.Equal(t, entity.CollectionRemove, fromA[0].Action)
	require.Len(t, toB, 1)
	assert.Equal(t, entity.CollectionAdd, toB[0].Action)
	assert.Same(t, o, toB[0].Entity)
}

func TestAddAttachesDetachedEntities(t *testing.T) {
	m, g := newManager(t)
	c, id := newCustomer(t, m)

	o := entity.New(g.MustType("Order"))
	require.NoError(t, c.Collection("orders").Add(o))
	assert.Same(t, m, o.Manager())
	assert.Equal(t, breeze.Added, o.State())
	assert.Equal(t, -1, o.Get("orderID"))
	assert.Equal(t, id, o.Get("customerID"))
	assertLinked(t, c, o)

	nc := entity.New(g.MustType("Customer"))
	o2 := attach(t, m, "Order", map[string]any{"orderID": 2})
	require.NoError(t, o2.SetNavigation("customer", nc))
	assert.Equal(t, breeze.Added, nc.State())
	assert.True(t, nc.IsTempKey())
	assertLinked(t, nc, o2)
}

func TestCrossCacheAssociation(t *testing.T) {
	m1, _ := newManager(t)
	m2, _ := newManager(t)
	c, _ := newCustomer(t, m1)
	o := attach(t, m2, "Order", map[string]any{"orderID": 1})

	err := c.Collection("orders").Add(o)
	require.Error(t, err)
	assert.True(t, breeze.IsCrossCacheAssociation(err))
	assert.Zero(t, c.Collection("orders").Len())
	assert.Nil(t, o.Navigation("customer"))
	assert.Nil(t, o.Get("customerID"))
	assert.Same(t, m2, o.Manager())

	err = o.SetNavigation("customer", c)
	assert.True(t, breeze.IsCrossCacheAssociation(err))
	assert.Equal(t, breeze.Unchanged, o.State())
}

func TestDeleteKeepsForeignKeys(t *testing.T) {
	m, _ := newManager(t)
	c, id := newCustomer(t, m)
	o := attach(t, m, "Order", map[string]any{"orderID": 1, "customerID": id})

	require.NoError(t, o.Delete())
	assert.Equal(t, breeze.Deleted, o.State())
	assert.Nil(t, o.Navigation("customer"))
	assert.False(t, c.Collection("orders").Contains(o))
	assert.Equal(t, id, o.Get("customerID"))

	require.NoError(t, o.RejectChanges())
	assert.Equal(t, breeze.Unchanged, o.State())
	assertLinked(t, c, o)
}

func TestDeleteParentKeepsChildren(t *testing.T) {
	m, _ := newManager(t)
	c, id := newCustomer(t, m)
	o := attach(t, m, "Order", map[string]any{"orderID": 1, "customerID": id})

	require.NoError(t, c.Delete())
	assert.Nil(t, o.Navigation("customer"))
	assert.Zero(t, c.Collection("orders").Len())
	assert.Equal(t, id, o.Get("customerID"))
	assert.Equal(t, breeze.Unchanged, o.State())

	require.NoError(t, c.RejectChanges())
	assertLinked(t, c, o)

	added, err := m.CreateEntity("Customer", nil)
	require.NoError(t, err)
	o2 := attach(t, m, "Order", map[string]any{"orderID": 2, "customerID": added.Get("customerID")})
	assertLinked(t, added, o2)
	require.NoError(t, added.Delete())
	assert.Equal(t, breeze.Detached, added.State(), "deleting an added entity detaches it")
	assert.Nil(t, o2.Navigation("customer"))
}

func TestUnidirectionalCollection(t *testing.T) {
	m, _ := newManager(t)
	p := attach(t, m, "Product", map[string]any{"productID": 1, "supplierID": 10})
	s := attach(t, m, "Supplier", map[string]any{"supplierID": 10, "companyName": "Exotic Liquids"})
	assert.True(t, s.Collection("products").Contains(p), "waiting children join their parent")

	require.NoError(t, p.Set("supplierID", nil))
	assert.False(t, s.Collection("products").Contains(p))

	p2 := attach(t, m, "Product", map[string]any{"productID": 2})
	require.NoError(t, s.Collection("products").Add(p2))
	assert.Equal(t, 10, p2.Get("supplierID"))
	assert.Equal(t, 1, s.Collection("products").Len())

	s2 := attach(t, m, "Supplier", map[string]any{"supplierID": 11})
	require.NoError(t, p2.Set("supplierID", 11))
	assert.False(t, s.Collection("products").Contains(p2))
	assert.True(t, s2.Collection("products").Contains(p2))
}

func TestUnidirectionalScalar(t *testing.T) {
	m, _ := newManager(t)
	d := attach(t, m, "OrderDetail", map[string]any{"orderID": 1, "productID": 5})
	assert.Nil(t, d.Navigation("product"))

	p := attach(t, m, "Product", map[string]any{"productID": 5})
	assert.Same(t, p, d.Navigation("product"))
}

func TestSelfReference(t *testing.T) {
	m, g := newManager(t)
	boss := attach(t, m, "Employee", map[string]any{"employeeID": 1, "lastName": "Fuller"})
	rep := attach(t, m, "Employee", map[string]any{"employeeID": 2, "lastName": "Davolio", "reportsToID": 1})
	assert.Same(t, boss, rep.Navigation("manager"))
	assert.True(t, boss.Collection("directReports").Contains(rep))

	emp := g.MustType("Employee")
	top, mid, leaf := entity.New(emp), entity.New(emp), entity.New(emp)
	require.NoError(t, leaf.SetNavigation("manager", mid))
	require.NoError(t, mid.SetNavigation("manager", top))
	require.NoError(t, m.Attach(leaf, breeze.Added))

	for _, e := range []*entity.Entity{top, mid, leaf} {
		assert.Same(t, m, e.Manager())
		assert.Equal(t, breeze.Added, e.State())
		assert.True(t, e.IsTempKey())
	}
	assert.NotEqual(t, leaf.Get("employeeID"), mid.Get("employeeID"))
	assert.NotEqual(t, mid.Get("employeeID"), top.Get("employeeID"))
	assert.Equal(t, mid.Get("employeeID"), leaf.Get("reportsToID"))
	assert.Equal(t, top.Get("employeeID"), mid.Get("reportsToID"))
	assert.True(t, top.Collection("directReports").Contains(mid))
}

func TestKeyChangeUpdatesDependents(t *testing.T) {
	m, _ := newManager(t)
	o := attach(t, m, "Order", map[string]any{"orderID": 1})
	d := attach(t, m, "OrderDetail", map[string]any{"orderID": 1, "productID": 3})
	require.Same(t, o, d.Navigation("order"))

	require.NoError(t, o.Set("orderID", 2))
	assert.Equal(t, 2, d.Get("orderID"))
	assert.Same(t, o, d.Navigation("order"))
	assert.True(t, o.Collection("details").Contains(d))
	_, ok := m.FindEntityByKey(d.Key())
	assert.True(t, ok)

	other := attach(t, m, "Order", map[string]any{"orderID": 3})
	err := other.Set("orderID", 2)
	assert.True(t, breeze.IsDuplicateKey(err))
	assert.Equal(t, 3, other.Get("orderID"))
}

func TestNavigationDuplicateKeyLeavesGraph(t *testing.T) {
	m, _ := newManager(t)
	o1 := attach(t, m, "Order", map[string]any{"orderID": 1})
	o2 := attach(t, m, "Order", map[string]any{"orderID": 2})
	d1 := attach(t, m, "OrderDetail", map[string]any{"orderID": 1, "productID": 5})
	d2 := attach(t, m, "OrderDetail", map[string]any{"orderID": 2, "productID": 5})
	require.Same(t, o2, d2.Navigation("order"))

	assertUntouched := func() {
		t.Helper()
		assert.Same(t, o2, d2.Navigation("order"))
		assert.True(t, o2.Collection("details").Contains(d2))
		assert.False(t, o1.Collection("details").Contains(d2))
		assert.Equal(t, 2, d2.Get("orderID"))
		assert.Equal(t, breeze.Unchanged, d2.State())
		assert.Same(t, o1, d1.Navigation("order"))
	}

	err := d2.Set("order", o1)
	assert.True(t, breeze.IsDuplicateKey(err))
	assertUntouched()

	err = o1.Collection("details").Add(d2)
	assert.True(t, breeze.IsDuplicateKey(err))
	assertUntouched()

	p6 := attach(t, m, "Product", map[string]any{"productID": 6})
	require.NoError(t, d2.SetNavigation("product", p6))
	p5 := attach(t, m, "Product", map[string]any{"productID": 5})
	d3 := attach(t, m, "OrderDetail", map[string]any{"orderID": 2, "productID": 7})
	err = d3.SetNavigation("product", p6)
	assert.True(t, breeze.IsDuplicateKey(err))
	assert.Nil(t, d3.Navigation("product"))
	assert.Equal(t, 7, d3.Get("productID"))
	require.NoError(t, d3.SetNavigation("product", p5))
	assert.Equal(t, 5, d3.Get("productID"))
}
