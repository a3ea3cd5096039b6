package mixin_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Breeze/breeze.sharp-sub000/contrib/mixin"
	"github.com/Breeze/breeze.sharp-sub000/schema/field"
)

// TestIDMixin tests the ID mixin.
func TestIDMixin(t *testing.T) {
	fields := mixin.ID{}.Fields()
	require.Len(t, fields, 1)
	desc := fields[0].Descriptor()
	assert.Equal(t, "id", desc.Name)
	assert.True(t, desc.Key)
	assert.Equal(t, field.TypeInt, desc.Info.Type)
	assert.Equal(t, 0, desc.DefaultValue())
}

// TestUUIDIDMixin tests the UUIDID mixin.
func TestUUIDIDMixin(t *testing.T) {
	desc := mixin.UUIDID{}.Fields()[0].Descriptor()
	assert.True(t, desc.Key)
	assert.Equal(t, field.TypeUUID, desc.Info.Type)

	a, b := desc.DefaultValue().(uuid.UUID), desc.DefaultValue().(uuid.UUID)
	assert.NotEqual(t, uuid.Nil, a)
	assert.NotEqual(t, a, b, "every default is a fresh uuid")
}

// TestTimeMixin tests the Time mixin.
func TestTimeMixin(t *testing.T) {
	fields := mixin.Time{}.Fields()
	require.Len(t, fields, 2)
	assert.Equal(t, "createdAt", fields[0].Descriptor().Name)
	assert.Equal(t, "updatedAt", fields[1].Descriptor().Name)
	assert.True(t, fields[1].Descriptor().Concurrency)

	before := time.Now()
	created := fields[0].Descriptor().DefaultValue().(time.Time)
	assert.False(t, created.Before(before))
}

// TestRowVersionAndTenant tests the remaining mixins.
func TestRowVersionAndTenant(t *testing.T) {
	rv := mixin.RowVersion{}.Fields()[0].Descriptor()
	assert.True(t, rv.Concurrency)
	assert.Equal(t, int64(0), rv.DefaultValue())

	tenant := mixin.TenantID{}.Fields()[0].Descriptor()
	assert.Error(t, tenant.Validate(""))
	assert.NoError(t, tenant.Validate("acme"))
}
