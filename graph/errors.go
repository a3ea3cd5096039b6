package graph

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for graph construction failures.
var (
	// ErrInvalidSchema indicates a type definition error.
	ErrInvalidSchema = errors.New("breeze: invalid schema")
	// ErrInvalidEdge indicates a navigation definition error.
	ErrInvalidEdge = errors.New("breeze: invalid edge definition")
)

// SchemaError represents a type definition error.
type SchemaError struct {
	Type    string // Type name
	Field   string // Property name (if applicable)
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *SchemaError) Error() string {
	var b strings.Builder
	b.WriteString("breeze: schema error")
	if e.Type != "" {
		b.WriteString(" on type ")
		b.WriteString(e.Type)
	}
	if e.Field != "" {
		b.WriteString(" field ")
		b.WriteString(e.Field)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap returns the underlying error.
func (e *SchemaError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches the sentinel error for SchemaError.
func (e *SchemaError) Is(target error) bool {
	return target == ErrInvalidSchema
}

// NewSchemaError creates a new SchemaError.
func NewSchemaError(typeName, fieldName, message string, cause error) *SchemaError {
	return &SchemaError{
		Type:    typeName,
		Field:   fieldName,
		Message: message,
		Cause:   cause,
	}
}

// EdgeError represents a navigation definition error.
type EdgeError struct {
	From    string
	To      string
	Edge    string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *EdgeError) Error() string {
	var b strings.Builder
	b.WriteString("breeze: edge error")
	if e.Edge != "" {
		b.WriteString(" on edge ")
		b.WriteString(e.Edge)
	}
	if e.From != "" && e.To != "" {
		fmt.Fprintf(&b, " (%s -> %s)", e.From, e.To)
	} else if e.From != "" {
		b.WriteString(" from ")
		b.WriteString(e.From)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap returns the underlying error.
func (e *EdgeError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches the sentinel error for EdgeError.
func (e *EdgeError) Is(target error) bool {
	return target == ErrInvalidEdge
}

// NewEdgeError creates a new EdgeError.
func NewEdgeError(from, to, edgeName, message string, cause error) *EdgeError {
	return &EdgeError{
		From:    from,
		To:      to,
		Edge:    edgeName,
		Message: message,
		Cause:   cause,
	}
}

// IsSchemaError reports whether err is a SchemaError.
func IsSchemaError(err error) bool {
	var e *SchemaError
	return errors.As(err, &e)
}

// IsEdgeError reports whether err is an EdgeError.
func IsEdgeError(err error) bool {
	var e *EdgeError
	return errors.As(err, &e)
}
