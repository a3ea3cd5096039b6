package entity

import (
	"context"
	"errors"
	"slices"

	"github.com/Breeze/breeze.sharp-sub000"
	"github.com/Breeze/breeze.sharp-sub000/graph"
)

// Validator validates an entity. The returned error may be a
// *breeze.ValidationError, a *breeze.ValidationFailure or an error joining
// several of them; other errors are attached to the entity as a whole.
type Validator interface {
	Validate(ctx context.Context, e *Entity) error
}

// ValidatorFunc adapts a function to the Validator interface.
type ValidatorFunc func(context.Context, *Entity) error

// Validate calls f(ctx, e).
func (f ValidatorFunc) Validate(ctx context.Context, e *Entity) error {
	return f(ctx, e)
}

// ValidationOptions selects when a manager validates its entities.
type ValidationOptions struct {
	OnAttach         bool `yaml:"onAttach"`
	OnQuery          bool `yaml:"onQuery"`
	OnSave           bool `yaml:"onSave"`
	OnPropertyChange bool `yaml:"onPropertyChange"`
}

// DefaultValidationOptions validates on attach, save and property change.
func DefaultValidationOptions() ValidationOptions {
	return ValidationOptions{OnAttach: true, OnSave: true, OnPropertyChange: true}
}

// validateEntity runs the property validators of the schema and then v.
// The errors found replace the validation errors of e.
func validateEntity(ctx context.Context, e *Entity, v Validator) error {
	var errs []*breeze.ValidationError
	for _, p := range e.typ.Properties {
		errs = append(errs, validateValue(e, p, e.values[p.Name], p.Name)...)
	}
	if v != nil {
		if err := v.Validate(ctx, e); err != nil {
			errs = append(errs, flatten(e, err)...)
		}
	}
	e.errors = errs
	if len(errs) == 0 {
		return nil
	}
	failure := &breeze.ValidationFailure{Errors: make([]error, len(errs))}
	for i, err := range errs {
		failure.Errors[i] = err
	}
	return failure
}

// validateValue validates v against p, descending into complex objects.
// Names of nested properties are dotted paths.
func validateValue(e *Entity, p *graph.Property, v any, name string) []*breeze.ValidationError {
	if co, ok := v.(*ComplexObject); ok {
		var errs []*breeze.ValidationError
		for _, cp := range co.typ.Properties {
			errs = append(errs, validateValue(e, cp, co.values[cp.Name], name+"."+cp.Name)...)
		}
		return errs
	}
	if err := p.Validate(v); err != nil {
		return []*breeze.ValidationError{breeze.NewValidationError(e.String(), name, err)}
	}
	return nil
}

// flatten converts the error of a validator into validation errors.
func flatten(e *Entity, err error) []*breeze.ValidationError {
	var ve *breeze.ValidationError
	if errors.As(err, &ve) && ve == err {
		return []*breeze.ValidationError{ve}
	}
	if u, ok := err.(interface{ Unwrap() []error }); ok {
		var errs []*breeze.ValidationError
		for _, err := range u.Unwrap() {
			errs = append(errs, flatten(e, err)...)
		}
		return errs
	}
	if errors.As(err, &ve) {
		return []*breeze.ValidationError{ve}
	}
	return []*breeze.ValidationError{breeze.NewValidationError(e.String(), "", err)}
}

// validateProperty revalidates p after a write and updates the validation
// errors of e for that property.
func (m *Manager) validateProperty(e *Entity, p *graph.Property, v any) {
	if !m.cfg.Validation.OnPropertyChange {
		return
	}
	e.errors = slices.DeleteFunc(e.errors, func(ve *breeze.ValidationError) bool { return ve.Name == p.Name })
	e.errors = append(e.errors, validateValue(e, p, v, p.Name)...)
}
