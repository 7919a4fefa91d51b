package option

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
)

// Type names a declarable option type. The names match the schema document
// vocabulary, so they can be used verbatim in error messages.
type Type string

const (
	TypeString  Type = "string"
	TypeInteger Type = "integer"
	TypeFloat   Type = "number"
	TypeBoolean Type = "boolean"
	TypeArray   Type = "array"
)

// ValidScalarTypes defines the types an array element may declare.
var ValidScalarTypes = map[Type]bool{
	TypeString:  true,
	TypeInteger: true,
	TypeFloat:   true,
	TypeBoolean: true,
}

// ValidTypes defines all declarable option types.
var ValidTypes = map[Type]bool{
	TypeString:  true,
	TypeInteger: true,
	TypeFloat:   true,
	TypeBoolean: true,
	TypeArray:   true,
}

// Value is a sealed interface over the supported option value forms.
// Only String, Int, Float, Bool, and Array implement it. There is no null
// variant: an option without a value is simply absent from its ValueSet.
type Value interface {
	optionValue()

	// Kind reports the value's type using schema vocabulary.
	Kind() Type
}

// String is a string option value.
type String string

func (String) optionValue() {}

// Kind implements Value.
func (String) Kind() Type { return TypeString }

// Int is an integer option value. Always int64, never produced from a
// numeral containing a fraction or exponent.
type Int int64

func (Int) optionValue() {}

// Kind implements Value.
func (Int) Kind() Type { return TypeInteger }

// Float is a floating-point option value. Non-finite values are rejected at
// decode time since JSON cannot represent them.
type Float float64

func (Float) optionValue() {}

// Kind implements Value.
func (Float) Kind() Type { return TypeFloat }

// Bool is a boolean option value.
type Bool bool

func (Bool) optionValue() {}

// Kind implements Value.
func (Bool) Kind() Type { return TypeBoolean }

// Array is a homogeneous array of scalar option values. Homogeneity is
// judged against the declared element type, so an integer element satisfies
// a number array. Nesting is not representable: element decoding rejects
// arrays and objects.
type Array []Value

func (Array) optionValue() {}

// Kind implements Value.
func (Array) Kind() Type { return TypeArray }

// errNullValue marks a JSON/YAML null encountered where a value was
// expected. The validator reports it as its own violation class.
var errNullValue = errors.New("null is not a value: omit the key instead")

// IsNullError reports whether err was caused by an explicit null value.
func IsNullError(err error) bool {
	return errors.Is(err, errNullValue)
}

// DecodeValue parses a single JSON value into a Value with strict typing.
// Numbers are classified at token level via json.Number; null, objects, and
// nested arrays are rejected.
func DecodeValue(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	return FromGoValue(raw)
}

// FromGoValue converts a decoded Go value into a Value. It accepts the
// shapes produced by encoding/json (with UseNumber) and by yaml.v3, which
// keeps the integer/float token distinction intact on both paths.
func FromGoValue(v any) (Value, error) {
	val, err := fromGoValue(v, false)
	if err != nil {
		return nil, err
	}
	return val, nil
}

func fromGoValue(v any, inArray bool) (Value, error) {
	switch val := v.(type) {
	case nil:
		return nil, errNullValue
	case bool:
		return Bool(val), nil
	case string:
		return String(val), nil
	case json.Number:
		return fromNumber(val)
	case int:
		return Int(val), nil
	case int64:
		return Int(val), nil
	case uint64:
		if val > math.MaxInt64 {
			return nil, fmt.Errorf("integer out of range: %d", val)
		}
		return Int(val), nil
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return nil, fmt.Errorf("non-finite number %v is not representable", val)
		}
		return Float(val), nil
	case []any:
		if inArray {
			return nil, fmt.Errorf("nested arrays are not supported")
		}
		arr := make(Array, len(val))
		for i, elem := range val {
			ev, err := fromGoValue(elem, true)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			arr[i] = ev
		}
		return arr, nil
	case map[string]any:
		return nil, fmt.Errorf("object values are not supported")
	default:
		return nil, fmt.Errorf("unsupported value type %T", v)
	}
}

// fromNumber classifies a JSON numeral. The presence of '.', 'e', or 'E' in
// the token makes it a Float even when the numeric value is integral, so
// "5.0" is a Float and only "5" is an Int.
func fromNumber(n json.Number) (Value, error) {
	s := string(n)
	if strings.ContainsAny(s, ".eE") {
		f, err := n.Float64()
		if err != nil {
			return nil, fmt.Errorf("malformed number %q: %w", s, err)
		}
		return Float(f), nil
	}
	i, err := n.Int64()
	if err != nil {
		return nil, fmt.Errorf("integer out of range: %s", s)
	}
	return Int(i), nil
}

// GoValue converts a Value back to its plain Go form: string, int64,
// float64, bool, or []any. Useful for JSON re-encoding and struct decoding.
func GoValue(v Value) any {
	switch val := v.(type) {
	case String:
		return string(val)
	case Int:
		return int64(val)
	case Float:
		return float64(val)
	case Bool:
		return bool(val)
	case Array:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = GoValue(elem)
		}
		return out
	default:
		return nil
	}
}

// Equal reports deep equality between two Values. An Int never equals a
// Float, matching the validator's strict typing.
func Equal(a, b Value) bool {
	switch av := a.(type) {
	case String:
		bv, ok := b.(String)
		return ok && av == bv
	case Int:
		bv, ok := b.(Int)
		return ok && av == bv
	case Float:
		bv, ok := b.(Float)
		return ok && av == bv
	case Bool:
		bv, ok := b.(Bool)
		return ok && av == bv
	case Array:
		bv, ok := b.(Array)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
