// Package mixin provides optional, ready-to-use schema mixins.
//
//	func (Order) Mixin() []breeze.Mixin {
//	    return []breeze.Mixin{
//	        mixin.ID{},
//	        mixin.Time{},
//	    }
//	}
package mixin

import (
	"time"

	"github.com/google/uuid"

	"github.com/Breeze/breeze.sharp-sub000"
	"github.com/Breeze/breeze.sharp-sub000/schema/field"
	"github.com/Breeze/breeze.sharp-sub000/schema/mixin"
)

// ID adds an integer key property named "id". Pair it with
// breeze.AutoKeyIdentity so new entities receive temporary keys until the
// store assigns real ones.
type ID struct{ mixin.Schema }

// Fields of the ID mixin.
func (ID) Fields() []breeze.Field {
	return []breeze.Field{
		field.Int("id").Key(),
	}
}

// UUIDID adds a UUID key property named "id", generated on the client
// when the entity is created.
type UUIDID struct{ mixin.Schema }

// Fields of the UUIDID mixin.
func (UUIDID) Fields() []breeze.Field {
	return []breeze.Field{
		field.UUID("id").
			Key().
			Default(uuid.New),
	}
}

// CreateTime adds a createdAt timestamp initialized on creation.
type CreateTime struct{ mixin.Schema }

// Fields of the CreateTime mixin.
func (CreateTime) Fields() []breeze.Field {
	return []breeze.Field{
		field.Time("createdAt").
			Default(time.Now).
			Comment("Time the entity was created"),
	}
}

// UpdateTime adds an updatedAt timestamp used as a concurrency token.
type UpdateTime struct{ mixin.Schema }

// Fields of the UpdateTime mixin.
func (UpdateTime) Fields() []breeze.Field {
	return []breeze.Field{
		field.Time("updatedAt").
			Default(time.Now).
			Concurrency().
			Comment("Time the entity was last updated"),
	}
}

// Time composes CreateTime and UpdateTime.
type Time struct{ mixin.Schema }

// Fields of the Time mixin.
func (Time) Fields() []breeze.Field {
	return append(
		CreateTime{}.Fields(),
		UpdateTime{}.Fields()...,
	)
}

// RowVersion adds an integer concurrency token maintained by the store.
type RowVersion struct{ mixin.Schema }

// Fields of the RowVersion mixin.
func (RowVersion) Fields() []breeze.Field {
	return []breeze.Field{
		field.Int64("rowVersion").Concurrency(),
	}
}

// TenantID adds a tenantID property for multi-tenant stores.
type TenantID struct{ mixin.Schema }

// Fields of the TenantID mixin.
func (TenantID) Fields() []breeze.Field {
	return []breeze.Field{
		field.String("tenantID").
			NotEmpty().
			Comment("Tenant identifier"),
	}
}

var (
	_ breeze.Mixin = (*ID)(nil)
	_ breeze.Mixin = (*UUIDID)(nil)
	_ breeze.Mixin = (*Time)(nil)
	_ breeze.Mixin = (*RowVersion)(nil)
	_ breeze.Mixin = (*TenantID)(nil)
)
