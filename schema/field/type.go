package field

import "fmt"

// A Type represents a property type.
type Type uint8

// List of property types.
const (
	TypeInvalid Type = iota
	TypeBool
	TypeTime
	TypeUUID
	TypeBytes
	TypeString
	TypeInt16
	TypeInt32
	TypeInt
	TypeInt64
	TypeFloat32
	TypeFloat64
	TypeComplex
	endTypes
)

var typeNames = [...]string{
	TypeInvalid: "invalid",
	TypeBool:    "bool",
	TypeTime:    "time.Time",
	TypeUUID:    "uuid.UUID",
	TypeBytes:   "[]byte",
	TypeString:  "string",
	TypeInt16:   "int16",
	TypeInt32:   "int32",
	TypeInt:     "int",
	TypeInt64:   "int64",
	TypeFloat32: "float32",
	TypeFloat64: "float64",
	TypeComplex: "complex",
}

// String returns the Go type name of the property type.
func (t Type) String() string {
	if t < endTypes {
		return typeNames[t]
	}
	return typeNames[TypeInvalid]
}

// Valid reports if the given type if known type.
func (t Type) Valid() bool {
	return t > TypeInvalid && t < endTypes
}

// Numeric reports if the given type is a numeric type.
func (t Type) Numeric() bool {
	return t >= TypeInt16 && t <= TypeFloat64
}

// Integer reports if the given type is an integral type.
func (t Type) Integer() bool {
	return t >= TypeInt16 && t <= TypeInt64
}

// ParseType returns the Type for the given name, as produced by String.
// It also accepts the short names used in metadata documents.
func ParseType(name string) (Type, error) {
	for i, n := range typeNames {
		if n == name && Type(i) != TypeInvalid {
			return Type(i), nil
		}
	}
	switch name {
	case "time":
		return TypeTime, nil
	case "uuid", "guid":
		return TypeUUID, nil
	case "bytes", "binary":
		return TypeBytes, nil
	case "int16", "short":
		return TypeInt16, nil
	case "int32":
		return TypeInt32, nil
	case "long":
		return TypeInt64, nil
	case "double", "decimal":
		return TypeFloat64, nil
	case "single":
		return TypeFloat32, nil
	case "boolean":
		return TypeBool, nil
	}
	return TypeInvalid, fmt.Errorf("field: unknown type %q", name)
}

// MarshalText implements encoding.TextMarshaler.
func (t Type) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Type) UnmarshalText(text []byte) error {
	v, err := ParseType(string(text))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// TypeInfo holds the information regarding property type.
type TypeInfo struct {
	Type Type
}

// String returns the Go type name.
func (t TypeInfo) String() string {
	return t.Type.String()
}
