// Package testmodel declares the Northwind-like schema shared by tests.
package testmodel

import (
	"github.com/Breeze/breeze.sharp-sub000"
	"github.com/Breeze/breeze.sharp-sub000/contrib/mixin"
	"github.com/Breeze/breeze.sharp-sub000/graph"
	"github.com/Breeze/breeze.sharp-sub000/schema/edge"
	"github.com/Breeze/breeze.sharp-sub000/schema/field"
)

// Schemas returns every schema of the model.
func Schemas() []breeze.Interface {
	return []breeze.Interface{
		Address{},
		Customer{},
		Order{},
		OrderDetail{},
		Product{},
		Supplier{},
		Employee{},
		Person{},
		Contact{},
		Territory{},
	}
}

// Graph builds a new graph of the model.
func Graph() *graph.Graph {
	return graph.MustNewGraph(Schemas()...)
}

// Address is a complex type embedded by customers and suppliers.
type Address struct{ breeze.Schema }

func (Address) Fields() []breeze.Field {
	return []breeze.Field{
		field.String("street").Optional(),
		field.String("city").Optional(),
		field.String("postalCode").Optional().MaxLen(10),
	}
}

func (Address) Config() breeze.Config {
	return breeze.Config{Complex: true}
}

// Customer has a client generated UUID key.
type Customer struct{ breeze.Schema }

func (Customer) Fields() []breeze.Field {
	return []breeze.Field{
		field.UUID("customerID").Key(),
		field.String("companyName").MaxLen(40),
		field.String("city").Nillable(),
		field.Complex("address", "Address"),
		field.Int64("rowVersion").Concurrency(),
	}
}

func (Customer) Edges() []breeze.Edge {
	return []breeze.Edge{
		edge.To("orders", Order.Type),
	}
}

func (Customer) Config() breeze.Config {
	return breeze.Config{AutoKey: breeze.AutoKeyGenerator}
}

// Order has a store assigned integer key.
type Order struct{ breeze.Schema }

func (Order) Mixin() []breeze.Mixin {
	return []breeze.Mixin{mixin.CreateTime{}}
}

func (Order) Fields() []breeze.Field {
	return []breeze.Field{
		field.Int("orderID").Key(),
		field.UUID("customerID").Nillable(),
		field.Int("employeeID").Nillable(),
		field.Float64("freight").NonNegative(),
		field.String("shipCountry").Default("USA"),
	}
}

func (Order) Edges() []breeze.Edge {
	return []breeze.Edge{
		edge.From("customer", Customer.Type).
			Ref("orders").
			Field("customerID").
			Unique(),
		edge.From("employee", Employee.Type).
			Ref("orders").
			Field("employeeID").
			Unique(),
		edge.To("details", OrderDetail.Type),
	}
}

func (Order) Config() breeze.Config {
	return breeze.Config{AutoKey: breeze.AutoKeyIdentity}
}

// OrderDetail has a composite key made of its foreign keys.
type OrderDetail struct{ breeze.Schema }

func (OrderDetail) Fields() []breeze.Field {
	return []breeze.Field{
		field.Int("orderID").Key(),
		field.Int("productID").Key(),
		field.Int16("quantity").Positive().Default(1),
		field.Float64("unitPrice"),
	}
}

func (OrderDetail) Edges() []breeze.Edge {
	return []breeze.Edge{
		edge.From("order", Order.Type).
			Ref("details").
			Field("orderID").
			Unique(),
		edge.To("product", Product.Type).
			Field("productID").
			Unique(),
	}
}

func (OrderDetail) Config() breeze.Config {
	return breeze.Config{Resource: "OrderDetails"}
}

// Product is referenced by details and suppliers without inverse
// navigations.
type Product struct{ breeze.Schema }

func (Product) Fields() []breeze.Field {
	return []breeze.Field{
		field.Int("productID").Key(),
		field.String("productName").MaxLen(40),
		field.Int("supplierID").Nillable(),
		field.Float64("unitPrice").Optional(),
	}
}

func (Product) Config() breeze.Config {
	return breeze.Config{AutoKey: breeze.AutoKeyIdentity}
}

// Supplier owns a unidirectional product collection.
type Supplier struct{ breeze.Schema }

func (Supplier) Fields() []breeze.Field {
	return []breeze.Field{
		field.Int("supplierID").Key(),
		field.String("companyName").MaxLen(40),
		field.Complex("location", "Address"),
	}
}

func (Supplier) Edges() []breeze.Edge {
	return []breeze.Edge{
		edge.To("products", Product.Type).Field("supplierID"),
	}
}

func (Supplier) Config() breeze.Config {
	return breeze.Config{AutoKey: breeze.AutoKeyIdentity}
}

// Employee references itself through its manager.
type Employee struct{ breeze.Schema }

func (Employee) Fields() []breeze.Field {
	return []breeze.Field{
		field.Int("employeeID").Key(),
		field.String("lastName").NotEmpty(),
		field.Int("reportsToID").Nillable(),
	}
}

func (Employee) Edges() []breeze.Edge {
	return []breeze.Edge{
		edge.To("directReports", Employee.Type).
			From("manager").
			Field("reportsToID").
			Unique(),
		edge.To("orders", Order.Type),
	}
}

func (Employee) Config() breeze.Config {
	return breeze.Config{AutoKey: breeze.AutoKeyIdentity}
}

// Person is the base of Contact.
type Person struct{ breeze.Schema }

func (Person) Fields() []breeze.Field {
	return []breeze.Field{
		field.Int("personID").Key(),
		field.String("name"),
	}
}

func (Person) Config() breeze.Config {
	return breeze.Config{AutoKey: breeze.AutoKeyIdentity, Resource: "People"}
}

// Contact extends Person.
type Contact struct{ breeze.Schema }

func (Contact) Fields() []breeze.Field {
	return []breeze.Field{
		field.String("email").Nillable(),
	}
}

func (Contact) Config() breeze.Config {
	return breeze.Config{Base: "Person"}
}

// Territory has a client generated string key.
type Territory struct{ breeze.Schema }

func (Territory) Fields() []breeze.Field {
	return []breeze.Field{
		field.String("territoryID").Key(),
		field.String("description").Optional(),
	}
}

func (Territory) Config() breeze.Config {
	return breeze.Config{AutoKey: breeze.AutoKeyGenerator}
}
