// Package edge provides fluent builders for declaring navigation properties.
//
// An association has an owning side, which carries the foreign key
// properties, and an optional inverse navigation on the principal type.
//
//   - edge.To: declares a navigation on the principal side (collection by
//     default, scalar with Unique)
//   - edge.From: declares the navigation on the owning side and names the
//     inverse through Ref
//
// # Bidirectional Associations
//
//	// Customer schema
//	func (Customer) Edges() []breeze.Edge {
//	    return []breeze.Edge{
//	        edge.To("orders", Order.Type),
//	    }
//	}
//
//	// Order schema
//	func (Order) Edges() []breeze.Edge {
//	    return []breeze.Edge{
//	        edge.From("customer", Customer.Type).
//	            Ref("orders").
//	            Field("customerID").
//	            Unique(),
//	    }
//	}
//
// # Unidirectional Associations
//
// A scalar navigation without inverse:
//
//	edge.From("product", Product.Type).Field("productID").Unique()
//
// A collection without a navigation back to the principal. The foreign key
// lives on the target type:
//
//	edge.To("details", OrderDetail.Type).Field("orderID")
//
// # Self-Referential Associations
//
//	edge.To("directReports", Employee.Type).
//	    From("manager").
//	    Field("reportsToID").
//	    Unique()
//
// # Composite Foreign Keys
//
//	edge.From("orderDetail", OrderDetail.Type).
//	    Fields("orderID", "productID").
//	    Unique()
package edge
