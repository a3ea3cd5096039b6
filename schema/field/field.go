package field

import (
	"errors"
	"fmt"
	"regexp"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/Breeze/breeze.sharp-sub000/schema"
)

// Descriptor for property configuration.
type Descriptor struct {
	Name        string              // property name.
	ServerName  string              // name used by the remote data store.
	Info        *TypeInfo           // property type info.
	ComplexType string              // name of the complex type, for complex properties.
	Key         bool                // part of the entity key.
	Nillable    bool                // accepts nil values.
	Optional    bool                // may be left unset on create.
	Concurrency bool                // concurrency token.
	Default     any                 // default value.
	DefaultFunc func() any          // default value factory.
	Size        int                 // max size, for strings and bytes.
	Validators  []func(any) error   // property validators.
	Comment     string              // property comment.
	Annotations []schema.Annotation // property annotations.
	Err         error               // builder error.
}

// DefaultValue returns the default value of the property: the result of
// the default factory, the static default, nil for nillable properties, or
// the zero value of the type.
func (d *Descriptor) DefaultValue() any {
	switch {
	case d.DefaultFunc != nil:
		return d.DefaultFunc()
	case d.Default != nil:
		return d.Default
	case d.Nillable:
		return nil
	default:
		return d.Info.Type.Zero()
	}
}

// Validate runs the property validators against v. Nil values are not
// validated.
func (d *Descriptor) Validate(v any) error {
	if v == nil {
		return nil
	}
	var errs []error
	for _, fn := range d.Validators {
		if err := fn(v); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func newDescriptor(name string, t Type) *Descriptor {
	return &Descriptor{Name: name, Info: &TypeInfo{Type: t}}
}

// Number is the set of Go types behind numeric properties.
type Number interface {
	~int | ~int16 | ~int32 | ~int64 | ~float32 | ~float64
}

// Int returns a new property with type int.
func Int(name string) *numberBuilder[int] {
	return &numberBuilder[int]{newDescriptor(name, TypeInt)}
}

// Int16 returns a new property with type int16.
func Int16(name string) *numberBuilder[int16] {
	return &numberBuilder[int16]{newDescriptor(name, TypeInt16)}
}

// Int32 returns a new property with type int32.
func Int32(name string) *numberBuilder[int32] {
	return &numberBuilder[int32]{newDescriptor(name, TypeInt32)}
}

// Int64 returns a new property with type int64.
func Int64(name string) *numberBuilder[int64] {
	return &numberBuilder[int64]{newDescriptor(name, TypeInt64)}
}

// Float32 returns a new property with type float32.
func Float32(name string) *numberBuilder[float32] {
	return &numberBuilder[float32]{newDescriptor(name, TypeFloat32)}
}

// Float64 returns a new property with type float64.
func Float64(name string) *numberBuilder[float64] {
	return &numberBuilder[float64]{newDescriptor(name, TypeFloat64)}
}

// String returns a new property with type string.
func String(name string) *stringBuilder {
	return &stringBuilder{newDescriptor(name, TypeString)}
}

// Bool returns a new property with type bool.
func Bool(name string) *boolBuilder {
	return &boolBuilder{newDescriptor(name, TypeBool)}
}

// Time returns a new property with type time.Time.
func Time(name string) *timeBuilder {
	return &timeBuilder{newDescriptor(name, TypeTime)}
}

// UUID returns a new property with type uuid.UUID.
func UUID(name string) *uuidBuilder {
	return &uuidBuilder{newDescriptor(name, TypeUUID)}
}

// Bytes returns a new property with type []byte.
func Bytes(name string) *bytesBuilder {
	return &bytesBuilder{newDescriptor(name, TypeBytes)}
}

// Complex returns a new property holding a value of the named complex type.
//
//	field.Complex("address", "Address")
func Complex(name, typeName string) *complexBuilder {
	d := newDescriptor(name, TypeComplex)
	d.ComplexType = typeName
	if typeName == "" {
		d.Err = fmt.Errorf("field: complex property %q requires a type name", name)
	}
	return &complexBuilder{d}
}

// numberBuilder is the builder for numeric properties.
type numberBuilder[T Number] struct {
	desc *Descriptor
}

// Key marks the property as part of the entity key.
func (b *numberBuilder[T]) Key() *numberBuilder[T] {
	b.desc.Key = true
	return b
}

// Optional indicates that this property may be left unset on create.
func (b *numberBuilder[T]) Optional() *numberBuilder[T] {
	b.desc.Optional = true
	return b
}

// Nillable indicates that this property accepts nil values.
func (b *numberBuilder[T]) Nillable() *numberBuilder[T] {
	b.desc.Nillable = true
	return b
}

// Default sets the default value of the property.
func (b *numberBuilder[T]) Default(v T) *numberBuilder[T] {
	b.desc.Default = v
	return b
}

// DefaultFunc sets a function computing the default value of the property.
func (b *numberBuilder[T]) DefaultFunc(fn func() T) *numberBuilder[T] {
	b.desc.DefaultFunc = func() any { return fn() }
	return b
}

// Min adds a minimum value validator.
func (b *numberBuilder[T]) Min(i T) *numberBuilder[T] {
	return b.Validate(func(v T) error {
		if v < i {
			return fmt.Errorf("value out of range: %v < %v", v, i)
		}
		return nil
	})
}

// Max adds a maximum value validator.
func (b *numberBuilder[T]) Max(i T) *numberBuilder[T] {
	return b.Validate(func(v T) error {
		if v > i {
			return fmt.Errorf("value out of range: %v > %v", v, i)
		}
		return nil
	})
}

// Range adds a range validator, inclusive on both ends.
func (b *numberBuilder[T]) Range(lo, hi T) *numberBuilder[T] {
	return b.Validate(func(v T) error {
		if v < lo || v > hi {
			return fmt.Errorf("value out of range: %v not in [%v, %v]", v, lo, hi)
		}
		return nil
	})
}

// Positive adds a validator rejecting values <= 0.
func (b *numberBuilder[T]) Positive() *numberBuilder[T] {
	return b.Min(1)
}

// NonNegative adds a validator rejecting values < 0.
func (b *numberBuilder[T]) NonNegative() *numberBuilder[T] {
	return b.Min(0)
}

// Validate adds a custom validator.
func (b *numberBuilder[T]) Validate(fn func(T) error) *numberBuilder[T] {
	b.desc.Validators = append(b.desc.Validators, typed(fn))
	return b
}

// ServerName sets the name of the property in the remote data store.
func (b *numberBuilder[T]) ServerName(name string) *numberBuilder[T] {
	b.desc.ServerName = name
	return b
}

// Concurrency marks the property as a concurrency token.
func (b *numberBuilder[T]) Concurrency() *numberBuilder[T] {
	b.desc.Concurrency = true
	return b
}

// Comment sets the comment of the property.
func (b *numberBuilder[T]) Comment(c string) *numberBuilder[T] {
	b.desc.Comment = c
	return b
}

// Annotations adds a list of annotations to the property.
func (b *numberBuilder[T]) Annotations(annotations ...schema.Annotation) *numberBuilder[T] {
	b.desc.Annotations = append(b.desc.Annotations, annotations...)
	return b
}

// Descriptor implements the breeze.Field interface by returning its descriptor.
func (b *numberBuilder[T]) Descriptor() *Descriptor {
	return b.desc
}

// stringBuilder is the builder for string properties.
type stringBuilder struct {
	desc *Descriptor
}

// Key marks the property as part of the entity key.
func (b *stringBuilder) Key() *stringBuilder {
	b.desc.Key = true
	return b
}

// Optional indicates that this property may be left unset on create.
func (b *stringBuilder) Optional() *stringBuilder {
	b.desc.Optional = true
	return b
}

// Nillable indicates that this property accepts nil values.
func (b *stringBuilder) Nillable() *stringBuilder {
	b.desc.Nillable = true
	return b
}

// Default sets the default value of the property.
func (b *stringBuilder) Default(s string) *stringBuilder {
	b.desc.Default = s
	return b
}

// DefaultFunc sets a function computing the default value of the property.
func (b *stringBuilder) DefaultFunc(fn func() string) *stringBuilder {
	b.desc.DefaultFunc = func() any { return fn() }
	return b
}

// MaxLen adds a length validator and records the size of the property.
func (b *stringBuilder) MaxLen(i int) *stringBuilder {
	b.desc.Size = i
	return b.Validate(func(v string) error {
		if utf8.RuneCountInString(v) > i {
			return errors.New("value is greater than the required length")
		}
		return nil
	})
}

// MinLen adds a minimum length validator.
func (b *stringBuilder) MinLen(i int) *stringBuilder {
	return b.Validate(func(v string) error {
		if utf8.RuneCountInString(v) < i {
			return errors.New("value is less than the required length")
		}
		return nil
	})
}

// NotEmpty adds a validator rejecting empty strings.
func (b *stringBuilder) NotEmpty() *stringBuilder {
	return b.MinLen(1)
}

// Match adds a regex matcher validator.
func (b *stringBuilder) Match(re *regexp.Regexp) *stringBuilder {
	return b.Validate(func(v string) error {
		if !re.MatchString(v) {
			return errors.New("value does not match validation")
		}
		return nil
	})
}

// Validate adds a custom validator.
func (b *stringBuilder) Validate(fn func(string) error) *stringBuilder {
	b.desc.Validators = append(b.desc.Validators, typed(fn))
	return b
}

// ServerName sets the name of the property in the remote data store.
func (b *stringBuilder) ServerName(name string) *stringBuilder {
	b.desc.ServerName = name
	return b
}

// Concurrency marks the property as a concurrency token.
func (b *stringBuilder) Concurrency() *stringBuilder {
	b.desc.Concurrency = true
	return b
}

// Comment sets the comment of the property.
func (b *stringBuilder) Comment(c string) *stringBuilder {
	b.desc.Comment = c
	return b
}

// Annotations adds a list of annotations to the property.
func (b *stringBuilder) Annotations(annotations ...schema.Annotation) *stringBuilder {
	b.desc.Annotations = append(b.desc.Annotations, annotations...)
	return b
}

// Descriptor implements the breeze.Field interface by returning its descriptor.
func (b *stringBuilder) Descriptor() *Descriptor {
	return b.desc
}

// boolBuilder is the builder for boolean properties.
type boolBuilder struct {
	desc *Descriptor
}

// Optional indicates that this property may be left unset on create.
func (b *boolBuilder) Optional() *boolBuilder {
	b.desc.Optional = true
	return b
}

// Nillable indicates that this property accepts nil values.
func (b *boolBuilder) Nillable() *boolBuilder {
	b.desc.Nillable = true
	return b
}

// Default sets the default value of the property.
func (b *boolBuilder) Default(v bool) *boolBuilder {
	b.desc.Default = v
	return b
}

// ServerName sets the name of the property in the remote data store.
func (b *boolBuilder) ServerName(name string) *boolBuilder {
	b.desc.ServerName = name
	return b
}

// Comment sets the comment of the property.
func (b *boolBuilder) Comment(c string) *boolBuilder {
	b.desc.Comment = c
	return b
}

// Annotations adds a list of annotations to the property.
func (b *boolBuilder) Annotations(annotations ...schema.Annotation) *boolBuilder {
	b.desc.Annotations = append(b.desc.Annotations, annotations...)
	return b
}

// Descriptor implements the breeze.Field interface by returning its descriptor.
func (b *boolBuilder) Descriptor() *Descriptor {
	return b.desc
}

// timeBuilder is the builder for time properties.
type timeBuilder struct {
	desc *Descriptor
}

// Key marks the property as part of the entity key.
func (b *timeBuilder) Key() *timeBuilder {
	b.desc.Key = true
	return b
}

// Optional indicates that this property may be left unset on create.
func (b *timeBuilder) Optional() *timeBuilder {
	b.desc.Optional = true
	return b
}

// Nillable indicates that this property accepts nil values.
func (b *timeBuilder) Nillable() *timeBuilder {
	b.desc.Nillable = true
	return b
}

// Default sets a function computing the default value, for example time.Now.
func (b *timeBuilder) Default(fn func() time.Time) *timeBuilder {
	b.desc.DefaultFunc = func() any { return fn() }
	return b
}

// Concurrency marks the property as a concurrency token.
func (b *timeBuilder) Concurrency() *timeBuilder {
	b.desc.Concurrency = true
	return b
}

// ServerName sets the name of the property in the remote data store.
func (b *timeBuilder) ServerName(name string) *timeBuilder {
	b.desc.ServerName = name
	return b
}

// Comment sets the comment of the property.
func (b *timeBuilder) Comment(c string) *timeBuilder {
	b.desc.Comment = c
	return b
}

// Annotations adds a list of annotations to the property.
func (b *timeBuilder) Annotations(annotations ...schema.Annotation) *timeBuilder {
	b.desc.Annotations = append(b.desc.Annotations, annotations...)
	return b
}

// Descriptor implements the breeze.Field interface by returning its descriptor.
func (b *timeBuilder) Descriptor() *Descriptor {
	return b.desc
}

// uuidBuilder is the builder for UUID properties.
type uuidBuilder struct {
	desc *Descriptor
}

// Key marks the property as part of the entity key.
func (b *uuidBuilder) Key() *uuidBuilder {
	b.desc.Key = true
	return b
}

// Optional indicates that this property may be left unset on create.
func (b *uuidBuilder) Optional() *uuidBuilder {
	b.desc.Optional = true
	return b
}

// Nillable indicates that this property accepts nil values.
func (b *uuidBuilder) Nillable() *uuidBuilder {
	b.desc.Nillable = true
	return b
}

// Default sets a function computing the default value, for example uuid.New.
func (b *uuidBuilder) Default(fn func() uuid.UUID) *uuidBuilder {
	b.desc.DefaultFunc = func() any { return fn() }
	return b
}

// ServerName sets the name of the property in the remote data store.
func (b *uuidBuilder) ServerName(name string) *uuidBuilder {
	b.desc.ServerName = name
	return b
}

// Comment sets the comment of the property.
func (b *uuidBuilder) Comment(c string) *uuidBuilder {
	b.desc.Comment = c
	return b
}

// Annotations adds a list of annotations to the property.
func (b *uuidBuilder) Annotations(annotations ...schema.Annotation) *uuidBuilder {
	b.desc.Annotations = append(b.desc.Annotations, annotations...)
	return b
}

// Descriptor implements the breeze.Field interface by returning its descriptor.
func (b *uuidBuilder) Descriptor() *Descriptor {
	return b.desc
}

// bytesBuilder is the builder for bytes properties.
type bytesBuilder struct {
	desc *Descriptor
}

// Optional indicates that this property may be left unset on create.
func (b *bytesBuilder) Optional() *bytesBuilder {
	b.desc.Optional = true
	return b
}

// Nillable indicates that this property accepts nil values.
func (b *bytesBuilder) Nillable() *bytesBuilder {
	b.desc.Nillable = true
	return b
}

// MaxLen adds a length validator and records the size of the property.
func (b *bytesBuilder) MaxLen(i int) *bytesBuilder {
	b.desc.Size = i
	b.desc.Validators = append(b.desc.Validators, typed(func(v []byte) error {
		if len(v) > i {
			return errors.New("value is greater than the required length")
		}
		return nil
	}))
	return b
}

// Concurrency marks the property as a concurrency token, such as a row version.
func (b *bytesBuilder) Concurrency() *bytesBuilder {
	b.desc.Concurrency = true
	return b
}

// ServerName sets the name of the property in the remote data store.
func (b *bytesBuilder) ServerName(name string) *bytesBuilder {
	b.desc.ServerName = name
	return b
}

// Comment sets the comment of the property.
func (b *bytesBuilder) Comment(c string) *bytesBuilder {
	b.desc.Comment = c
	return b
}

// Descriptor implements the breeze.Field interface by returning its descriptor.
func (b *bytesBuilder) Descriptor() *Descriptor {
	return b.desc
}

// complexBuilder is the builder for complex properties.
type complexBuilder struct {
	desc *Descriptor
}

// ServerName sets the name of the property in the remote data store.
func (b *complexBuilder) ServerName(name string) *complexBuilder {
	b.desc.ServerName = name
	return b
}

// Comment sets the comment of the property.
func (b *complexBuilder) Comment(c string) *complexBuilder {
	b.desc.Comment = c
	return b
}

// Annotations adds a list of annotations to the property.
func (b *complexBuilder) Annotations(annotations ...schema.Annotation) *complexBuilder {
	b.desc.Annotations = append(b.desc.Annotations, annotations...)
	return b
}

// Descriptor implements the breeze.Field interface by returning its descriptor.
func (b *complexBuilder) Descriptor() *Descriptor {
	return b.desc
}

// typed adapts a typed validator to the untyped form stored in descriptors.
func typed[T any](fn func(T) error) func(any) error {
	return func(v any) error {
		tv, ok := v.(T)
		if !ok {
			var zero T
			return fmt.Errorf("validator expects %T, got %T", zero, v)
		}
		return fn(tv)
	}
}
