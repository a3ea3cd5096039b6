package breeze

import (
	"errors"
	"fmt"
	"strings"
)

// Standard sentinel errors for common operations.
var (
	// ErrNotFound is returned when a requested entity is not cached.
	ErrNotFound = errors.New("breeze: entity not found")

	// ErrDuplicateKey is returned when an entity with the same key is already cached.
	ErrDuplicateKey = errors.New("breeze: duplicate entity key")

	// ErrMissingKey is returned when an entity cannot be attached without a key.
	ErrMissingKey = errors.New("breeze: missing entity key")

	// ErrMissingKeyDefinition is returned for types that declare no key properties.
	ErrMissingKeyDefinition = errors.New("breeze: missing key definition")

	// ErrCrossCache is returned when two entities of different managers would be linked.
	ErrCrossCache = errors.New("breeze: cross cache association")

	// ErrUnknownKeyGenerator is returned when a key must be generated but no
	// generator can produce one.
	ErrUnknownKeyGenerator = errors.New("breeze: unknown key generator")

	// ErrValidation is returned when one or more entities fail validation.
	ErrValidation = errors.New("breeze: validation failed")

	// ErrCanceled is returned when an EntityChanging handler cancels a change.
	ErrCanceled = errors.New("breeze: change canceled")

	// ErrNoDataService is returned by remote operations of a manager
	// configured without a data service.
	ErrNoDataService = errors.New("breeze: no data service configured")

	// ErrConcurrency is returned by data services when a saved entity was
	// changed in the store since it was queried.
	ErrConcurrency = errors.New("breeze: concurrency violation")
)

// NotFoundError represents an error when an entity is not found.
type NotFoundError struct {
	label string
	key   any
}

// Error returns the error string.
func (e *NotFoundError) Error() string {
	if e.key != nil {
		return fmt.Sprintf("breeze: %s not found (key=%v)", e.label, e.key)
	}
	return fmt.Sprintf("breeze: %s not found", e.label)
}

// Is reports whether the target error matches NotFoundError.
func (e *NotFoundError) Is(err error) bool {
	return err == ErrNotFound
}

// Label returns the entity type name.
func (e *NotFoundError) Label() string {
	return e.label
}

// Key returns the key that was searched for, if available.
func (e *NotFoundError) Key() any {
	return e.key
}

// NewNotFoundError returns a new NotFoundError for the given entity type.
func NewNotFoundError(label string, key any) *NotFoundError {
	return &NotFoundError{label: label, key: key}
}

// IsNotFound returns true if the error is a NotFoundError.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	var e *NotFoundError
	return errors.As(err, &e) || errors.Is(err, ErrNotFound)
}

// DuplicateKeyError is returned when an attach collides with a cached key.
type DuplicateKeyError struct {
	Type string
	Key  string
}

// Error returns the error string.
func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("breeze: an entity of type %s with key %s is already attached", e.Type, e.Key)
}

// Is reports whether the target error matches DuplicateKeyError.
func (e *DuplicateKeyError) Is(err error) bool {
	return err == ErrDuplicateKey
}

// NewDuplicateKeyError returns a new DuplicateKeyError.
func NewDuplicateKeyError(typ, key string) *DuplicateKeyError {
	return &DuplicateKeyError{Type: typ, Key: key}
}

// IsDuplicateKey returns true if the error is a DuplicateKeyError.
func IsDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	var e *DuplicateKeyError
	return errors.As(err, &e) || errors.Is(err, ErrDuplicateKey)
}

// MissingKeyError is returned when an entity has no usable key and none
// can be generated.
type MissingKeyError struct {
	Type string
}

// Error returns the error string.
func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("breeze: entity of type %s has no key and no key can be generated", e.Type)
}

// Is reports whether the target error matches MissingKeyError.
func (e *MissingKeyError) Is(err error) bool {
	return err == ErrMissingKey
}

// NewMissingKeyError returns a new MissingKeyError.
func NewMissingKeyError(typ string) *MissingKeyError {
	return &MissingKeyError{Type: typ}
}

// IsMissingKey returns true if the error is a MissingKeyError.
func IsMissingKey(err error) bool {
	if err == nil {
		return false
	}
	var e *MissingKeyError
	return errors.As(err, &e) || errors.Is(err, ErrMissingKey)
}

// MissingKeyDefinitionError is returned when a key is built for a type
// without key properties.
type MissingKeyDefinitionError struct {
	Type string
}

// Error returns the error string.
func (e *MissingKeyDefinitionError) Error() string {
	return fmt.Sprintf("breeze: type %s does not declare key properties", e.Type)
}

// Is reports whether the target error matches MissingKeyDefinitionError.
func (e *MissingKeyDefinitionError) Is(err error) bool {
	return err == ErrMissingKeyDefinition
}

// NewMissingKeyDefinitionError returns a new MissingKeyDefinitionError.
func NewMissingKeyDefinitionError(typ string) *MissingKeyDefinitionError {
	return &MissingKeyDefinitionError{Type: typ}
}

// IsMissingKeyDefinition returns true if the error is a MissingKeyDefinitionError.
func IsMissingKeyDefinition(err error) bool {
	if err == nil {
		return false
	}
	var e *MissingKeyDefinitionError
	return errors.As(err, &e) || errors.Is(err, ErrMissingKeyDefinition)
}

// CrossCacheAssociationError is returned when an operation would link
// entities owned by different managers.
type CrossCacheAssociationError struct {
	Entity   string // Entity being linked
	Related  string // Entity owned by the other manager
	Property string // Navigation property, if any
}

// Error returns the error string.
func (e *CrossCacheAssociationError) Error() string {
	if e.Property != "" {
		return fmt.Sprintf("breeze: cannot link %s to %s through %q: entities belong to different managers", e.Entity, e.Related, e.Property)
	}
	return fmt.Sprintf("breeze: cannot link %s to %s: entities belong to different managers", e.Entity, e.Related)
}

// Is reports whether the target error matches CrossCacheAssociationError.
func (e *CrossCacheAssociationError) Is(err error) bool {
	return err == ErrCrossCache
}

// NewCrossCacheAssociationError returns a new CrossCacheAssociationError.
func NewCrossCacheAssociationError(entity, related, property string) *CrossCacheAssociationError {
	return &CrossCacheAssociationError{Entity: entity, Related: related, Property: property}
}

// IsCrossCacheAssociation returns true if the error is a CrossCacheAssociationError.
func IsCrossCacheAssociation(err error) bool {
	if err == nil {
		return false
	}
	var e *CrossCacheAssociationError
	return errors.As(err, &e) || errors.Is(err, ErrCrossCache)
}

// UnknownKeyGeneratorError is returned when a key has to be generated but
// no configured generator supports the property.
type UnknownKeyGeneratorError struct {
	Type     string
	Property string
}

// Error returns the error string.
func (e *UnknownKeyGeneratorError) Error() string {
	if e.Property != "" {
		return fmt.Sprintf("breeze: no key generator can produce %s.%s", e.Type, e.Property)
	}
	return fmt.Sprintf("breeze: no key generator configured for %s", e.Type)
}

// Is reports whether the target error matches UnknownKeyGeneratorError.
func (e *UnknownKeyGeneratorError) Is(err error) bool {
	return err == ErrUnknownKeyGenerator
}

// NewUnknownKeyGeneratorError returns a new UnknownKeyGeneratorError.
func NewUnknownKeyGeneratorError(typ, property string) *UnknownKeyGeneratorError {
	return &UnknownKeyGeneratorError{Type: typ, Property: property}
}

// IsUnknownKeyGenerator returns true if the error is an UnknownKeyGeneratorError.
func IsUnknownKeyGenerator(err error) bool {
	if err == nil {
		return false
	}
	var e *UnknownKeyGeneratorError
	return errors.As(err, &e) || errors.Is(err, ErrUnknownKeyGenerator)
}

// ValidationError represents a validation error for an entity or one of
// its properties.
type ValidationError struct {
	Entity string // Entity type and key
	Name   string // Property name, empty for entity level rules
	Err    error  // Underlying validation error
}

// Error returns the error string.
func (e *ValidationError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("breeze: validation failed for %s: %s", e.Entity, e.Err)
	}
	return fmt.Sprintf("breeze: validator failed for %s property %q: %s", e.Entity, e.Name, e.Err)
}

// Unwrap returns the underlying error.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError returns a new ValidationError.
func NewValidationError(entity, name string, err error) *ValidationError {
	return &ValidationError{Entity: entity, Name: name, Err: err}
}

// IsValidationError returns true if the error is a ValidationError.
func IsValidationError(err error) bool {
	if err == nil {
		return false
	}
	var e *ValidationError
	return errors.As(err, &e)
}

// ValidationFailure aggregates every validation error found before a save.
type ValidationFailure struct {
	Errors []error
}

// Error returns the error string.
func (e *ValidationFailure) Error() string {
	switch len(e.Errors) {
	case 0:
		return "breeze: validation failed"
	case 1:
		return "breeze: validation failed: " + e.Errors[0].Error()
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "breeze: validation failed with %d errors:", len(e.Errors))
	for i, err := range e.Errors {
		fmt.Fprintf(&sb, "\n  [%d] %v", i+1, err)
	}
	return sb.String()
}

// Is reports whether the target error matches ValidationFailure.
func (e *ValidationFailure) Is(err error) bool {
	return err == ErrValidation
}

// Unwrap returns the collected errors.
func (e *ValidationFailure) Unwrap() []error {
	return e.Errors
}

// IsValidationFailure returns true if the error is a ValidationFailure.
func IsValidationFailure(err error) bool {
	if err == nil {
		return false
	}
	var e *ValidationFailure
	return errors.As(err, &e)
}

// AggregateError represents multiple errors collected during an operation.
type AggregateError struct {
	Errors []error
}

// Error returns the error string.
func (e *AggregateError) Error() string {
	if len(e.Errors) == 0 {
		return "breeze: no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	var sb strings.Builder
	sb.WriteString("breeze: multiple errors:")
	for i, err := range e.Errors {
		fmt.Fprintf(&sb, "\n  [%d] %v", i+1, err)
	}
	return sb.String()
}

// Unwrap returns the collected errors.
func (e *AggregateError) Unwrap() []error {
	return e.Errors
}

// NewAggregateError returns a new AggregateError if there are errors,
// otherwise returns nil.
func NewAggregateError(errs ...error) error {
	var filtered []error
	for _, err := range errs {
		if err != nil {
			filtered = append(filtered, err)
		}
	}
	if len(filtered) == 0 {
		return nil
	}
	if len(filtered) == 1 {
		return filtered[0]
	}
	return &AggregateError{Errors: filtered}
}

// QueryError wraps a data service query error with additional context.
type QueryError struct {
	Resource string // Resource being queried
	Err      error  // Underlying error
}

// Error returns the error string.
func (e *QueryError) Error() string {
	return fmt.Sprintf("breeze: querying %s: %v", e.Resource, e.Err)
}

// Unwrap returns the underlying error.
func (e *QueryError) Unwrap() error {
	return e.Err
}

// NewQueryError returns a new QueryError.
func NewQueryError(resource string, err error) *QueryError {
	return &QueryError{Resource: resource, Err: err}
}

// IsQueryError returns true if the error is a QueryError.
func IsQueryError(err error) bool {
	if err == nil {
		return false
	}
	var e *QueryError
	return errors.As(err, &e)
}

// SaveError wraps a data service save error with additional context.
type SaveError struct {
	Count int   // Number of entities in the save bundle
	Err   error // Underlying error
}

// Error returns the error string.
func (e *SaveError) Error() string {
	return fmt.Sprintf("breeze: saving %d entities: %v", e.Count, e.Err)
}

// Unwrap returns the underlying error.
func (e *SaveError) Unwrap() error {
	return e.Err
}

// NewSaveError returns a new SaveError.
func NewSaveError(count int, err error) *SaveError {
	return &SaveError{Count: count, Err: err}
}

// IsSaveError returns true if the error is a SaveError.
func IsSaveError(err error) bool {
	if err == nil {
		return false
	}
	var e *SaveError
	return errors.As(err, &e)
}
