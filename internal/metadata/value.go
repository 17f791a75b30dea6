package metadata

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
)

// Kind identifies which scalar a Value holds.
type Kind int

const (
	KindInvalid Kind = iota
	KindString
	KindNumber
	KindBool
)

// String returns the JSON type name of the kind.
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "boolean"
	default:
		return "invalid"
	}
}

// ErrUnsupportedType is returned when a metadata value is not a string, number or boolean.
var ErrUnsupportedType = errors.New("metadata values must be string, number or boolean")

// Value is a scalar metadata value: a string, a number or a boolean.
// The zero Value is invalid.
type Value struct {
	kind Kind
	str  string
	num  float64
	b    bool
}

// String creates a string value.
func String(s string) Value {
	return Value{kind: KindString, str: s}
}

// Number creates a numeric value. Negative zero is stored as zero.
func Number(f float64) Value {
	if f == 0 {
		f = 0
	}
	return Value{kind: KindNumber, num: f}
}

// Bool creates a boolean value.
func Bool(b bool) Value {
	return Value{kind: KindBool, b: b}
}

// Kind reports the kind of the value.
func (v Value) Kind() Kind {
	return v.kind
}

// IsValid reports whether the value holds one of the supported scalars.
func (v Value) IsValid() bool {
	return v.kind != KindInvalid
}

// Str returns the string payload and whether the value is a string.
func (v Value) Str() (string, bool) {
	return v.str, v.kind == KindString
}

// Num returns the numeric payload and whether the value is a number.
func (v Value) Num() (float64, bool) {
	return v.num, v.kind == KindNumber
}

// Boolean returns the boolean payload and whether the value is a boolean.
func (v Value) Boolean() (bool, bool) {
	return v.b, v.kind == KindBool
}

// Equal reports whether two values have the same kind and payload.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.str == other.str
	case KindNumber:
		return v.num == other.num
	case KindBool:
		return v.b == other.b
	default:
		return false
	}
}

// Any returns the value as a plain Go value (string, float64 or bool).
func (v Value) Any() any {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return v.num
	case KindBool:
		return v.b
	default:
		return nil
	}
}

// FromAny converts a decoded JSON value (or a Go scalar) into a Value.
func FromAny(x any) (Value, error) {
	switch t := x.(type) {
	case string:
		return String(t), nil
	case bool:
		return Bool(t), nil
	case float64:
		return number(t)
	case float32:
		return number(float64(t))
	case int:
		return Number(float64(t)), nil
	case int32:
		return Number(float64(t)), nil
	case int64:
		return Number(float64(t)), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("invalid number %q: %w", t.String(), err)
		}
		return number(f)
	case Value:
		if !t.IsValid() {
			return Value{}, ErrUnsupportedType
		}
		return t, nil
	default:
		return Value{}, fmt.Errorf("%w, got %s", ErrUnsupportedType, jsonTypeName(x))
	}
}

func number(f float64) (Value, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Value{}, fmt.Errorf("%w, got non-finite number", ErrUnsupportedType)
	}
	return Number(f), nil
}

func jsonTypeName(x any) string {
	switch x.(type) {
	case nil:
		return "null"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", x)
	}
}

// MarshalJSON encodes the value as its JSON scalar.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.IsValid() {
		return []byte("null"), nil
	}
	return json.Marshal(v.Any())
}

// UnmarshalJSON decodes a JSON scalar. null, arrays and objects are rejected.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	parsed, err := FromAny(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// Encode renders the value as a kind-tagged string ("s:", "n:" or "b:" prefix)
// so engines that only store string metadata keep equality kind-sensitive.
func (v Value) Encode() string {
	switch v.kind {
	case KindString:
		return "s:" + v.str
	case KindNumber:
		return "n:" + strconv.FormatFloat(v.num, 'g', -1, 64)
	case KindBool:
		return "b:" + strconv.FormatBool(v.b)
	default:
		return ""
	}
}

// Decode parses a string produced by Value.Encode.
func Decode(s string) (Value, error) {
	if len(s) < 2 || s[1] != ':' {
		return Value{}, fmt.Errorf("malformed encoded metadata value %q", s)
	}
	payload := s[2:]
	switch s[0] {
	case 's':
		return String(payload), nil
	case 'n':
		f, err := strconv.ParseFloat(payload, 64)
		if err != nil {
			return Value{}, fmt.Errorf("malformed encoded number %q: %w", s, err)
		}
		return Number(f), nil
	case 'b':
		b, err := strconv.ParseBool(payload)
		if err != nil {
			return Value{}, fmt.Errorf("malformed encoded boolean %q: %w", s, err)
		}
		return Bool(b), nil
	default:
		return Value{}, fmt.Errorf("unknown metadata tag in %q", s)
	}
}
