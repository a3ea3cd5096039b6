// Package field provides fluent builders for declaring entity properties.
//
// Property names are the client side names; ServerName maps a property to
// the name used by the remote store when the naming convention alone does
// not produce it:
//
//	field.Int("orderID").Key()
//	field.String("companyName").MaxLen(40).ServerName("CompanyName")
//
// # Property Types
//
//	field.String("name")
//	field.Int("count")
//	field.Int64("bigNumber")
//	field.Float64("price")
//	field.Bool("discontinued")
//	field.Time("orderDate")
//	field.UUID("customerID")
//	field.Bytes("rowVersion")
//	field.Complex("address", "Address")
//
// # Keys
//
// Key marks a property as part of the entity key. Types with an auto key
// policy receive temporary keys when entities are created without one.
//
// # Nullability and Defaults
//
//	field.Int("customerID").Nillable()     // nil when unset
//	field.String("status").Default("new")  // static default
//	field.Time("created").Default(time.Now) // computed default
//
// Values omitted from exported documents are the values reported by
// Descriptor.DefaultValue.
//
// # Validation
//
//	field.String("name").NotEmpty().MaxLen(40)
//	field.Int("quantity").Positive()
//	field.Float64("discount").Range(0, 1)
//
// # Coercion
//
// Values written to properties are coerced with Type.Coerce, which accepts
// the shapes decoders produce (float64 JSON numbers, RFC 3339 strings,
// UUID strings, base64 bytes, any integer width).
package field
