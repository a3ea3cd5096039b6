package entity

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Breeze/breeze.sharp-sub000"
	"github.com/Breeze/breeze.sharp-sub000/graph"
	"github.com/Breeze/breeze.sharp-sub000/schema/field"
)

// Key identifies an entity by its type and key property values. Keys are
// immutable; changing a key property produces a new Key.
//
// Keys of types in the same hierarchy compare equal when their values do,
// since entities of a hierarchy share one key space.
type Key struct {
	typ    *graph.Type
	values []any
	id     string
}

// NewKey creates a key of type t, coercing every value to the type of the
// matching key property.
func NewKey(t *graph.Type, values ...any) (Key, error) {
	if len(t.Keys) == 0 {
		return Key{}, breeze.NewMissingKeyDefinitionError(t.Name)
	}
	if len(values) != len(t.Keys) {
		return Key{}, fmt.Errorf("breeze: key of %s needs %d values, got %d", t.Name, len(t.Keys), len(values))
	}
	vs := make([]any, len(values))
	for i, v := range values {
		c, err := t.Keys[i].Coerce(v)
		if err != nil {
			return Key{}, err
		}
		vs[i] = c
	}
	return newKey(t, vs), nil
}

// MustKey is like NewKey but panics on error.
func MustKey(t *graph.Type, values ...any) Key {
	k, err := NewKey(t, values...)
	if err != nil {
		panic(err)
	}
	return k
}

// newKey builds a key from already coerced values.
func newKey(t *graph.Type, values []any) Key {
	return Key{typ: t, values: values, id: keyID(t, values)}
}

// keyID quotes every value and marks nil with a bare word, so values
// holding the separator cannot collide.
func keyID(t *graph.Type, values []any) string {
	var b strings.Builder
	b.WriteString(t.Root().Name)
	b.WriteByte(':')
	for i, v := range values {
		if i > 0 {
			b.WriteByte(',')
		}
		if v == nil {
			b.WriteString("nil")
			continue
		}
		b.WriteString(strconv.Quote(fmt.Sprint(t.Keys[i].Type.Portable(v))))
	}
	return b.String()
}

// Type returns the entity type of the key.
func (k Key) Type() *graph.Type {
	return k.typ
}

// Values returns a copy of the key values, in key property order.
func (k Key) Values() []any {
	return append([]any(nil), k.values...)
}

// Value returns the i-th key value.
func (k Key) Value(i int) any {
	return k.values[i]
}

// ID returns the canonical string form of the key, usable as a map key.
func (k Key) ID() string {
	return k.id
}

// Equal reports whether both keys identify the same entity.
func (k Key) Equal(other Key) bool {
	return k.typ != nil && other.typ != nil && k.id == other.id
}

// IsZero reports whether k is the zero Key.
func (k Key) IsZero() bool {
	return k.typ == nil
}

// IsEmpty reports whether any key value is absent.
func (k Key) IsEmpty() bool {
	if k.typ == nil {
		return true
	}
	for _, v := range k.values {
		if field.IsZero(v) {
			return true
		}
	}
	return false
}

// IsPartial reports whether some, but not all, values of a composite key
// are set.
func (k Key) IsPartial() bool {
	if len(k.values) < 2 {
		return false
	}
	set := 0
	for _, v := range k.values {
		if !field.IsZero(v) {
			set++
		}
	}
	return set > 0 && set < len(k.values)
}

// String implements fmt.Stringer.
func (k Key) String() string {
	if k.typ == nil {
		return "<nil>"
	}
	var b strings.Builder
	b.WriteString(k.typ.Name)
	for i, v := range k.values {
		if i == 0 {
			b.WriteByte(':')
		} else {
			b.WriteByte(',')
		}
		if v != nil {
			fmt.Fprintf(&b, "%v", k.typ.Keys[i].Type.Portable(v))
		}
	}
	return b.String()
}
