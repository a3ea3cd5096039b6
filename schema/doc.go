// Package schema provides the building blocks for declaring entity and
// complex types of the cache.
//
//   - [field]: data and complex property builders
//   - [edge]: navigation property builders
//   - [mixin]: reusable schema components
//
// # Quick Start
//
// Declare a type by embedding breeze.Schema:
//
//	type Customer struct{ breeze.Schema }
//
//	func (Customer) Fields() []breeze.Field {
//	    return []breeze.Field{
//	        field.UUID("customerID").Key(),
//	        field.String("companyName").MaxLen(40).NotEmpty(),
//	        field.Complex("address", "Address"),
//	    }
//	}
//
//	func (Customer) Edges() []breeze.Edge {
//	    return []breeze.Edge{
//	        edge.To("orders", Order.Type),
//	    }
//	}
//
// The owning side of an association carries the foreign key:
//
//	func (Order) Edges() []breeze.Edge {
//	    return []breeze.Edge{
//	        edge.From("customer", Customer.Type).
//	            Ref("orders").
//	            Field("customerID").
//	            Unique(),
//	    }
//	}
//
// Types are compiled into an explicit registry with graph.NewGraph. There
// is no global schema state.
package schema
