package graph_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Breeze/breeze.sharp-sub000"
	"github.com/Breeze/breeze.sharp-sub000/compiler/load"
	"github.com/Breeze/breeze.sharp-sub000/graph"
	"github.com/Breeze/breeze.sharp-sub000/internal/testmodel"
	"github.com/Breeze/breeze.sharp-sub000/schema/field"
)

func TestGraphTypes(t *testing.T) {
	g := testmodel.Graph()

	order := g.MustType("Order")
	assert.Equal(t, "Orders", order.Resource)
	assert.Equal(t, breeze.AutoKeyIdentity, order.AutoKey)
	require.Len(t, order.Keys, 1)
	assert.Equal(t, "orderID", order.Keys[0].Name)

	rt, ok := g.TypeByResource("Orders")
	require.True(t, ok)
	assert.Same(t, order, rt)

	created, ok := order.Property("createdAt")
	require.True(t, ok, "mixin fields are part of the type")
	assert.Equal(t, field.TypeTime, created.Type)
	assert.NotNil(t, created.DefaultValue())

	country, _ := order.Property("shipCountry")
	assert.Equal(t, "USA", country.DefaultValue())

	detail := g.MustType("OrderDetail")
	assert.Len(t, detail.Keys, 2)
	assert.Equal(t, "OrderDetails", detail.Resource)

	addr := g.MustType("Address")
	assert.True(t, addr.Complex)
	cust := g.MustType("Customer")
	p, _ := cust.Property("address")
	assert.True(t, p.IsComplex())
	assert.Same(t, addr, p.ComplexType)

	_, ok = g.Type("Nope")
	assert.False(t, ok)
	assert.Panics(t, func() { g.MustType("Nope") })
	assert.Len(t, g.Types(), len(testmodel.Schemas()))
}

func TestGraphBidirectional(t *testing.T) {
	g := testmodel.Graph()
	cust, order := g.MustType("Customer"), g.MustType("Order")

	orders, ok := cust.Navigation("orders")
	require.True(t, ok)
	customer, ok := order.Navigation("customer")
	require.True(t, ok)

	assert.False(t, orders.Scalar)
	assert.True(t, customer.Scalar)
	assert.Same(t, customer, orders.Inverse)
	assert.Same(t, orders, customer.Inverse)

	fk, _ := order.Property("customerID")
	assert.Equal(t, []*graph.Property{fk}, customer.ForeignKeys)
	assert.Equal(t, []*graph.Property{fk}, orders.InverseForeignKeys)
	assert.Same(t, customer, fk.RelatedNavigation)
	assert.Equal(t, []*graph.Navigation{orders}, fk.InverseNavigations)
	assert.True(t, fk.IsForeignKey())
	assert.Equal(t, []string{"customerID"}, customer.ForeignKeyNames())
}

func TestGraphUnidirectional(t *testing.T) {
	g := testmodel.Graph()
	supplier, product, detail := g.MustType("Supplier"), g.MustType("Product"), g.MustType("OrderDetail")

	products, _ := supplier.Navigation("products")
	assert.Nil(t, products.Inverse)
	fk, _ := product.Property("supplierID")
	assert.Nil(t, fk.RelatedNavigation)
	assert.Equal(t, []*graph.Navigation{products}, fk.InverseNavigations)

	nav, _ := detail.Navigation("product")
	assert.True(t, nav.Scalar)
	assert.Nil(t, nav.Inverse)
	pid, _ := detail.Property("productID")
	assert.True(t, pid.Key)
	assert.Same(t, nav, pid.RelatedNavigation)
}

func TestGraphSelfReference(t *testing.T) {
	emp := testmodel.Graph().MustType("Employee")
	manager, ok := emp.Navigation("manager")
	require.True(t, ok)
	reports, ok := emp.Navigation("directReports")
	require.True(t, ok)

	assert.Same(t, emp, manager.Target)
	assert.Same(t, reports, manager.Inverse)
	assert.Same(t, manager, reports.Inverse)
	fk, _ := emp.Property("reportsToID")
	assert.Equal(t, []*graph.Property{fk}, reports.InverseForeignKeys)
}

func TestGraphInheritance(t *testing.T) {
	g := testmodel.Graph()
	person, contact := g.MustType("Person"), g.MustType("Contact")

	assert.Same(t, person, contact.Base)
	assert.Equal(t, []*graph.Type{contact}, person.Subtypes)
	assert.Equal(t, person.Keys, contact.Keys)
	assert.Equal(t, breeze.AutoKeyIdentity, contact.AutoKey)
	assert.True(t, contact.IsSubtypeOf(person))
	assert.False(t, person.IsSubtypeOf(contact))
	assert.Same(t, person, contact.Root())
	assert.Equal(t, []*graph.Type{person, contact}, person.SelfAndSubtypes())

	_, ok := contact.Property("name")
	assert.True(t, ok)
	_, ok = person.Property("email")
	assert.False(t, ok)
}

func TestGraphMerge(t *testing.T) {
	g := testmodel.Graph()
	n := len(g.Types())

	schemas, err := load.ParseYAML([]byte(`
schemas:
  - name: Shipper
    autoKey: identity
    fields:
      - name: shipperID
        type: int
        key: true
      - name: companyName
        type: string
        serverName: CompanyName
    edges:
      - name: orders
        type: Order
        fields: [shipVia]
  - name: Order
    fields:
      - name: ignored
        type: int
`))
	require.NoError(t, err)
	// Order already exists, so shipVia is unknown and the batch fails.
	err = g.Merge(schemas)
	require.Error(t, err)
	assert.True(t, graph.IsEdgeError(err))
	assert.Len(t, g.Types(), n, "failed merges leave the graph unchanged")

	schemas[0].Edges = nil
	require.NoError(t, g.Merge(schemas))
	shipper, ok := g.Type("Shipper")
	require.True(t, ok)
	assert.Equal(t, "Shippers", shipper.Resource)
	p, ok := shipper.PropertyByServerName("CompanyName")
	require.True(t, ok)
	assert.Equal(t, "companyName", p.Name)
	_, ok = g.MustType("Order").Property("ignored")
	assert.False(t, ok, "registered types are not redefined")
}

func TestGraphMergeLinksExistingTypes(t *testing.T) {
	g := testmodel.Graph()
	schemas, err := load.ParseYAML([]byte(`
schemas:
  - name: Invoice
    fields:
      - name: invoiceID
        type: int
        key: true
      - name: customerID
        type: uuid
    edges:
      - name: customer
        type: Customer
        inverse: true
        unique: true
        refName: invoices
        fields: [customerID]
`))
	require.NoError(t, err)
	err = g.Merge(schemas)
	require.Error(t, err, "Customer declares no invoices navigation")
	_, ok := g.Type("Invoice")
	assert.False(t, ok)
}

func TestGraphErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		edge bool
	}{
		{
			name: "unknown base",
			yaml: "schemas:\n  - name: A\n    base: B\n",
		},
		{
			name: "inheritance cycle",
			yaml: "schemas:\n  - name: A\n    base: B\n  - name: B\n    base: A\n",
		},
		{
			name: "complex key",
			yaml: "schemas:\n  - name: A\n    complex: true\n    fields:\n      - {name: id, type: int, key: true}\n",
		},
		{
			name: "generated composite key",
			yaml: "schemas:\n  - name: A\n    autoKey: identity\n    fields:\n      - {name: a, type: int, key: true}\n      - {name: b, type: int, key: true}\n",
		},
		{
			name: "duplicate property",
			yaml: "schemas:\n  - name: A\n    fields:\n      - {name: a, type: int}\n      - {name: a, type: int}\n",
		},
		{
			name: "unknown complex type",
			yaml: "schemas:\n  - name: A\n    fields:\n      - {name: a, type: complex, complexType: Nope}\n",
		},
		{
			name: "unknown target",
			yaml: "schemas:\n  - name: A\n    edges:\n      - {name: b, type: B}\n",
			edge: true,
		},
		{
			name: "missing foreign key",
			yaml: "schemas:\n  - name: A\n    fields:\n      - {name: id, type: int, key: true}\n    edges:\n      - {name: b, type: B, unique: true}\n  - name: B\n    fields:\n      - {name: id, type: int, key: true}\n",
			edge: true,
		},
		{
			name: "foreign key type mismatch",
			yaml: "schemas:\n  - name: A\n    fields:\n      - {name: id, type: int, key: true}\n      - {name: bID, type: string}\n    edges:\n      - {name: b, type: B, unique: true, fields: [bID]}\n  - name: B\n    fields:\n      - {name: id, type: int, key: true}\n",
			edge: true,
		},
		{
			name: "missing inverse",
			yaml: "schemas:\n  - name: A\n    fields:\n      - {name: id, type: int, key: true}\n      - {name: bID, type: int}\n    edges:\n      - {name: b, type: B, unique: true, inverse: true, refName: as, fields: [bID]}\n  - name: B\n    fields:\n      - {name: id, type: int, key: true}\n",
			edge: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			schemas, err := load.ParseYAML([]byte(tt.yaml))
			require.NoError(t, err)
			_, err = graph.Build(schemas)
			require.Error(t, err)
			if tt.edge {
				assert.ErrorIs(t, err, graph.ErrInvalidEdge)
			} else {
				assert.ErrorIs(t, err, graph.ErrInvalidSchema)
			}
		})
	}
}

func TestNamingConvention(t *testing.T) {
	tests := []struct {
		client, server string
	}{
		{"companyName", "CompanyName"},
		{"customerID", "CustomerID"},
		{"id", "Id"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.server, graph.CamelCase.ServerName(tt.client))
		assert.Equal(t, tt.client, graph.CamelCase.ClientName(tt.server))
	}
	assert.Equal(t, "idNumber", graph.CamelCase.ClientName("IDNumber"))
	assert.Equal(t, "id", graph.CamelCase.ClientName("ID"))
	assert.Equal(t, "Name", graph.Identity.ServerName("Name"))

	schemas, err := load.ParseYAML([]byte("schemas:\n  - name: A\n    fields:\n      - {name: firstName, type: string}\n"))
	require.NoError(t, err)
	g, err := graph.Build(schemas, graph.WithNamingConvention(graph.CamelCase), graph.WithNamespace("Test"))
	require.NoError(t, err)
	assert.Equal(t, "Test", g.Namespace)
	p, ok := g.MustType("A").PropertyByServerName("FirstName")
	require.True(t, ok)
	assert.Equal(t, "firstName", p.Name)
}

func TestErrorMessages(t *testing.T) {
	err := graph.NewSchemaError("Order", "freight", "bad", nil)
	assert.Equal(t, "breeze: schema error on type Order field freight: bad", err.Error())
	assert.True(t, graph.IsSchemaError(err))

	eerr := graph.NewEdgeError("Order", "Customer", "customer", "bad", assert.AnError)
	assert.Contains(t, eerr.Error(), "(Order -> Customer)")
	assert.ErrorIs(t, eerr, assert.AnError)
	assert.False(t, graph.IsSchemaError(eerr))
}
