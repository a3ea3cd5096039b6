// Package graph holds the type registry of an entity cache.
//
// A Graph is built once from schema metadata and passed explicitly to the
// managers that use it. There is no package level registry.
//
//	g, err := graph.NewGraph(schema.Customer{}, schema.Order{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	mgr := entity.NewManager(g)
//
// # Types
//
// Each Type describes one entity or complex type:
//
//	type Type struct {
//	    Name        string         // Type name (e.g., "Order")
//	    Resource    string         // Data service resource (e.g., "Orders")
//	    Keys        []*Property    // Key properties, in key order
//	    Properties  []*Property    // Data and complex properties
//	    Navigations []*Navigation  // Navigation properties
//	}
//
// Subtypes inherit the keys, properties and navigations of their base.
//
// # Navigations
//
// A Navigation is one side of an association. Scalar navigations hold the
// foreign key on their owner (ForeignKeys); collection navigations point at
// the foreign key declared on the target (InverseForeignKeys). Navigations
// declared with edge.From(...).Ref(...) are linked to their inverse:
//
//	// On Order.
//	edge.From("customer", Customer.Type).Ref("orders").Field("customerID").Unique()
//	// On Customer.
//	edge.To("orders", Order.Type)
//
// # Metadata
//
// Graphs can also be built from metadata documents (see compiler/load),
// and grown at runtime with Merge as a data service reports new types.
package graph
