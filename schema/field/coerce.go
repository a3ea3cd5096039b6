package field

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Zero returns the zero value stored for a non-nillable property of type t.
func (t Type) Zero() any {
	switch t {
	case TypeBool:
		return false
	case TypeTime:
		return time.Time{}
	case TypeUUID:
		return uuid.Nil
	case TypeString:
		return ""
	case TypeInt16:
		return int16(0)
	case TypeInt32:
		return int32(0)
	case TypeInt:
		return 0
	case TypeInt64:
		return int64(0)
	case TypeFloat32:
		return float32(0)
	case TypeFloat64:
		return float64(0)
	default:
		return nil
	}
}

// Coerce converts v to the canonical Go representation of t. Decoded
// documents hand over float64 for JSON numbers, strings for times and
// UUIDs, and arbitrary integer widths for msgpack; all of them are
// normalized here. A nil value is returned unchanged.
func (t Type) Coerce(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch t {
	case TypeBool:
		switch v := v.(type) {
		case bool:
			return v, nil
		case string:
			return strconv.ParseBool(v)
		}
	case TypeString:
		switch v := v.(type) {
		case string:
			return v, nil
		case []byte:
			return string(v), nil
		case fmt.Stringer:
			return v.String(), nil
		}
	case TypeTime:
		return coerceTime(v)
	case TypeUUID:
		return coerceUUID(v)
	case TypeBytes:
		switch v := v.(type) {
		case []byte:
			return bytes.Clone(v), nil
		case string:
			return base64.StdEncoding.DecodeString(v)
		}
	case TypeInt16, TypeInt32, TypeInt, TypeInt64:
		n, err := toInt64(v)
		if err != nil {
			return nil, fmt.Errorf("field: coerce %T to %s: %w", v, t, err)
		}
		return narrow(t, n)
	case TypeFloat32, TypeFloat64:
		f, err := toFloat64(v)
		if err != nil {
			return nil, fmt.Errorf("field: coerce %T to %s: %w", v, t, err)
		}
		if t == TypeFloat32 {
			return float32(f), nil
		}
		return f, nil
	case TypeComplex:
		return v, nil
	}
	return nil, fmt.Errorf("field: cannot coerce %T to %s", v, t)
}

// Portable converts a coerced value into a form every codec round-trips:
// times become RFC 3339 strings and UUIDs become their string form.
func (t Type) Portable(v any) any {
	switch v := v.(type) {
	case time.Time:
		return v.Format(time.RFC3339Nano)
	case uuid.UUID:
		return v.String()
	}
	return v
}

// IsZero reports whether v is absent: nil or the zero value of its type.
func IsZero(v any) bool {
	switch v := v.(type) {
	case nil:
		return true
	case bool:
		return !v
	case string:
		return v == ""
	case int:
		return v == 0
	case int16:
		return v == 0
	case int32:
		return v == 0
	case int64:
		return v == 0
	case float32:
		return v == 0
	case float64:
		return v == 0
	case time.Time:
		return v.IsZero()
	case uuid.UUID:
		return v == uuid.Nil
	case []byte:
		return len(v) == 0
	}
	return false
}

// Equal reports whether two coerced property values are equal.
func Equal(a, b any) bool {
	switch a := a.(type) {
	case nil:
		return b == nil
	case []byte:
		bb, ok := b.([]byte)
		return ok && bytes.Equal(a, bb)
	case time.Time:
		bt, ok := b.(time.Time)
		return ok && a.Equal(bt)
	case bool, string, int, int16, int32, int64, float32, float64, uuid.UUID:
		return a == b
	}
	return a == b
}

func coerceTime(v any) (any, error) {
	switch v := v.(type) {
	case time.Time:
		return v, nil
	case *time.Time:
		if v == nil {
			return nil, nil
		}
		return *v, nil
	case string:
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", time.DateOnly} {
			if ts, err := time.Parse(layout, v); err == nil {
				return ts, nil
			}
		}
		return nil, fmt.Errorf("field: invalid time %q", v)
	}
	return nil, fmt.Errorf("field: cannot coerce %T to time.Time", v)
}

func coerceUUID(v any) (any, error) {
	switch v := v.(type) {
	case uuid.UUID:
		return v, nil
	case [16]byte:
		return uuid.UUID(v), nil
	case []byte:
		if len(v) == 16 {
			return uuid.FromBytes(v)
		}
		return uuid.ParseBytes(v)
	case string:
		return uuid.Parse(v)
	}
	return nil, fmt.Errorf("field: cannot coerce %T to uuid.UUID", v)
}

func toInt64(v any) (int64, error) {
	switch v := v.(type) {
	case int:
		return int64(v), nil
	case int8:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case uint:
		return uintToInt64(uint64(v))
	case uint8:
		return int64(v), nil
	case uint16:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case uint64:
		return uintToInt64(v)
	case float32:
		return floatToInt64(float64(v))
	case float64:
		return floatToInt64(v)
	case json.Number:
		return v.Int64()
	case string:
		return strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	}
	return 0, fmt.Errorf("unsupported type %T", v)
}

func uintToInt64(v uint64) (int64, error) {
	if v > math.MaxInt64 {
		return 0, fmt.Errorf("value %d overflows int64", v)
	}
	return int64(v), nil
}

func floatToInt64(f float64) (int64, error) {
	if f != math.Trunc(f) || f > math.MaxInt64 || f < math.MinInt64 {
		return 0, fmt.Errorf("value %v is not integral", f)
	}
	return int64(f), nil
}

func narrow(t Type, n int64) (any, error) {
	switch t {
	case TypeInt16:
		if n < math.MinInt16 || n > math.MaxInt16 {
			return nil, fmt.Errorf("field: value %d overflows int16", n)
		}
		return int16(n), nil
	case TypeInt32:
		if n < math.MinInt32 || n > math.MaxInt32 {
			return nil, fmt.Errorf("field: value %d overflows int32", n)
		}
		return int32(n), nil
	case TypeInt:
		if n < math.MinInt || n > math.MaxInt {
			return nil, fmt.Errorf("field: value %d overflows int", n)
		}
		return int(n), nil
	default:
		return n, nil
	}
}

func toFloat64(v any) (float64, error) {
	switch v := v.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case json.Number:
		return v.Float64()
	case string:
		return strconv.ParseFloat(strings.TrimSpace(v), 64)
	}
	n, err := toInt64(v)
	if err != nil {
		return 0, err
	}
	return float64(n), nil
}
