// Package breeze defines the shared vocabulary of the entity cache: schema
// declaration interfaces, entity states, merge strategies and the error
// taxonomy. The cache itself lives in the entity package; type metadata is
// resolved through an explicit graph.Graph.
package breeze

import (
	"fmt"
	"strings"

	"github.com/Breeze/breeze.sharp-sub000/schema"
	"github.com/Breeze/breeze.sharp-sub000/schema/edge"
	"github.com/Breeze/breeze.sharp-sub000/schema/field"
)

type (
	// Interface is the schema interface implemented by entity and complex
	// type declarations.
	//
	//	type Customer struct {
	//		breeze.Schema
	//	}
	//
	//	func (Customer) Fields() []breeze.Field {
	//		return []breeze.Field{
	//			field.UUID("id").Key(),
	//			field.String("companyName").MaxLen(40),
	//		}
	//	}
	Interface interface {
		// Type is a dummy method used to distinguish schemas from other types.
		Type()
		// Fields returns the data and complex properties of the type.
		Fields() []Field
		// Edges returns the navigation properties of the type.
		Edges() []Edge
		// Mixin returns reusable groups of fields and edges.
		Mixin() []Mixin
		// Config returns type level options.
		Config() Config
		// Annotations returns a list of schema annotations.
		Annotations() []schema.Annotation
	}

	// Field is the interface implemented by the field builders.
	Field interface {
		Descriptor() *field.Descriptor
	}

	// Edge is the interface implemented by the edge builders.
	Edge interface {
		Descriptor() *edge.Descriptor
	}

	// Mixin declares a reusable group of fields, edges and annotations.
	Mixin interface {
		Fields() []Field
		Edges() []Edge
		Annotations() []schema.Annotation
	}

	// Config holds type level options.
	Config struct {
		// Resource overrides the resource name used by data services.
		// Defaults to the pluralized type name.
		Resource string
		// AutoKey is the key generation policy of the type.
		AutoKey AutoKey
		// Base names the base type for inheritance.
		Base string
		// Complex marks the type as a complex (embedded) type without identity.
		Complex bool
	}

	// Schema is the default implementation of Interface. Schemas embed it.
	Schema struct {
		Interface
	}
)

// Type implements Interface.
func (Schema) Type() {}

// Fields of the schema.
func (Schema) Fields() []Field { return nil }

// Edges of the schema.
func (Schema) Edges() []Edge { return nil }

// Mixin of the schema.
func (Schema) Mixin() []Mixin { return nil }

// Config of the schema.
func (Schema) Config() Config { return Config{} }

// Annotations of the schema.
func (Schema) Annotations() []schema.Annotation { return nil }

// AutoKey describes how keys of new entities are produced.
type AutoKey uint8

// AutoKey values.
const (
	// AutoKeyNone requires callers to set keys before attaching.
	AutoKeyNone AutoKey = iota
	// AutoKeyIdentity means the store assigns keys on save; a temporary key
	// is generated client side until then.
	AutoKeyIdentity
	// AutoKeyGenerator means the client key generator produces the key.
	AutoKeyGenerator
)

var autoKeyNames = [...]string{
	AutoKeyNone:      "none",
	AutoKeyIdentity:  "identity",
	AutoKeyGenerator: "keyGenerator",
}

// String implements fmt.Stringer.
func (k AutoKey) String() string {
	if int(k) < len(autoKeyNames) {
		return autoKeyNames[k]
	}
	return fmt.Sprintf("AutoKey(%d)", k)
}

// MarshalText implements encoding.TextMarshaler.
func (k AutoKey) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *AutoKey) UnmarshalText(text []byte) error {
	for i, name := range autoKeyNames {
		if strings.EqualFold(name, string(text)) {
			*k = AutoKey(i)
			return nil
		}
	}
	return fmt.Errorf("breeze: unknown auto key policy %q", text)
}

// EntityState is the change tracking state of an entity.
type EntityState uint8

// Entity states.
const (
	Detached EntityState = iota
	Added
	Unchanged
	Modified
	Deleted
)

var stateNames = [...]string{
	Detached:  "Detached",
	Added:     "Added",
	Unchanged: "Unchanged",
	Modified:  "Modified",
	Deleted:   "Deleted",
}

// String implements fmt.Stringer.
func (s EntityState) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("EntityState(%d)", s)
}

// ParseEntityState parses the name of a state, ignoring case.
func ParseEntityState(name string) (EntityState, error) {
	for i, n := range stateNames {
		if strings.EqualFold(n, name) {
			return EntityState(i), nil
		}
	}
	return Detached, fmt.Errorf("breeze: unknown entity state %q", name)
}

// MarshalText implements encoding.TextMarshaler.
func (s EntityState) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *EntityState) UnmarshalText(text []byte) error {
	v, err := ParseEntityState(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// IsChanged reports whether the state carries pending changes.
func (s EntityState) IsChanged() bool {
	return s == Added || s == Modified || s == Deleted
}

// IsAttached reports whether the state belongs to a cached entity.
func (s EntityState) IsAttached() bool { return s != Detached }

// IsUnchangedOrModified reports whether s is Unchanged or Modified.
func (s EntityState) IsUnchangedOrModified() bool {
	return s == Unchanged || s == Modified
}

// MergeStrategy decides what happens when incoming data meets a cached
// entity with the same key.
type MergeStrategy uint8

// Merge strategies.
const (
	// PreserveChanges keeps locally changed entities untouched. Unchanged
	// entities are refreshed.
	PreserveChanges MergeStrategy = iota
	// OverwriteChanges replaces values and original values of the cached
	// entity and marks it Unchanged.
	OverwriteChanges
	// Disallowed never touches an entity already in the cache.
	Disallowed
)

var strategyNames = [...]string{
	PreserveChanges:  "preserveChanges",
	OverwriteChanges: "overwriteChanges",
	Disallowed:       "disallowed",
}

// String implements fmt.Stringer.
func (m MergeStrategy) String() string {
	if int(m) < len(strategyNames) {
		return strategyNames[m]
	}
	return fmt.Sprintf("MergeStrategy(%d)", m)
}

// MarshalText implements encoding.TextMarshaler.
func (m MergeStrategy) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *MergeStrategy) UnmarshalText(text []byte) error {
	for i, name := range strategyNames {
		if strings.EqualFold(name, string(text)) {
			*m = MergeStrategy(i)
			return nil
		}
	}
	return fmt.Errorf("breeze: unknown merge strategy %q", text)
}

// EntityAction names the operation behind an entity changed notification.
type EntityAction uint8

// Entity actions.
const (
	ActionAttach EntityAction = iota + 1
	ActionDetach
	ActionPropertyChange
	ActionEntityStateChange
	ActionAcceptChanges
	ActionRejectChanges
	ActionMergeOnQuery
	ActionMergeOnImport
	ActionMergeOnSave
	ActionClear
)

// String implements fmt.Stringer.
func (a EntityAction) String() string {
	switch a {
	case ActionAttach:
		return "Attach"
	case ActionDetach:
		return "Detach"
	case ActionPropertyChange:
		return "PropertyChange"
	case ActionEntityStateChange:
		return "EntityStateChange"
	case ActionAcceptChanges:
		return "AcceptChanges"
	case ActionRejectChanges:
		return "RejectChanges"
	case ActionMergeOnQuery:
		return "MergeOnQuery"
	case ActionMergeOnImport:
		return "MergeOnImport"
	case ActionMergeOnSave:
		return "MergeOnSave"
	case ActionClear:
		return "Clear"
	default:
		return fmt.Sprintf("EntityAction(%d)", a)
	}
}
