package option

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// RawValues holds one decoded pre-validation document: option key to plain
// Go value, as produced by encoding/json (with UseNumber) or yaml.v3.
type RawValues map[string]any

// ValueSet maps option keys to validated Values. Keys are always a subset
// of the owning schema's keys; a key is never present with a null value.
type ValueSet map[string]Value

// Keys returns the set's keys in sorted order.
func (vs ValueSet) Keys() []string {
	keys := make([]string, 0, len(vs))
	for k := range vs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a shallow copy. Values are immutable by convention, so
// sharing them between sets is safe.
func (vs ValueSet) Clone() ValueSet {
	out := make(ValueSet, len(vs))
	for k, v := range vs {
		out[k] = v
	}
	return out
}

// Validate checks a raw value set against a schema and returns the typed
// ValueSet. It is pure and total: every violation in the input is collected
// in one pass and reported together as ValidationErrors, ordered by option
// key, so identical invalid input always yields an identical error value.
// Keys absent from raw are left unset; resolution fills them later.
func Validate(schema *Schema, raw RawValues) (ValueSet, error) {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(ValueSet, len(raw))
	var errs ValidationErrors
	for _, key := range keys {
		spec, ok := schema.Spec(key)
		if !ok {
			errs = append(errs, &ValidationError{
				Code:      CodeUnknownKey,
				Namespace: schema.Namespace,
				Key:       key,
				Message:   "not declared in schema",
			})
			continue
		}

		val, err := FromGoValue(raw[key])
		if err != nil {
			errs = append(errs, conversionError(schema.Namespace, key, spec, err))
			continue
		}
		if err := checkValue(spec, val); err != nil {
			errs = append(errs, &ValidationError{
				Code:      CodeTypeMismatch,
				Namespace: schema.Namespace,
				Key:       key,
				Expected:  specType(spec),
				Actual:    describeValue(val),
				Message:   err.Error(),
			})
			continue
		}
		out[key] = val
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return out, nil
}

// conversionError classifies a FromGoValue failure. Explicit nulls get
// their own violation code; everything else is a type mismatch.
func conversionError(namespace, key string, spec OptionSpec, err error) *ValidationError {
	if IsNullError(err) {
		return &ValidationError{
			Code:      CodeNullValue,
			Namespace: namespace,
			Key:       key,
			Message:   "explicit null: omit the key to use the default",
		}
	}
	return &ValidationError{
		Code:      CodeTypeMismatch,
		Namespace: namespace,
		Key:       key,
		Expected:  specType(spec),
		Actual:    "unrepresentable value",
		Message:   err.Error(),
	}
}

// checkValue verifies that a typed Value satisfies an OptionSpec. Scalars
// require an exact kind match, except that an Int satisfies a number spec.
// Arrays check every element against the declared element type.
func checkValue(spec OptionSpec, v Value) error {
	if spec.Type == TypeArray {
		arr, ok := v.(Array)
		if !ok {
			return fmt.Errorf("expected array of %s, got %s", spec.Elem, v.Kind())
		}
		for i, elem := range arr {
			if err := checkScalar(spec.Elem, elem); err != nil {
				return fmt.Errorf("element %d: %w", i, err)
			}
		}
		return nil
	}
	return checkScalar(spec.Type, v)
}

func checkScalar(want Type, v Value) error {
	switch want {
	case TypeInteger:
		if _, ok := v.(Int); !ok {
			return fmt.Errorf("expected integer, got %s", describeValue(v))
		}
	case TypeFloat:
		switch v.(type) {
		case Int, Float:
		default:
			return fmt.Errorf("expected number, got %s", describeValue(v))
		}
	case TypeString:
		if _, ok := v.(String); !ok {
			return fmt.Errorf("expected string, got %s", describeValue(v))
		}
	case TypeBoolean:
		if _, ok := v.(Bool); !ok {
			return fmt.Errorf("expected boolean, got %s", describeValue(v))
		}
	default:
		return fmt.Errorf("unsupported type %q", want)
	}
	return nil
}

// specType names a spec for error messages: "array of string" style for
// arrays, the scalar name otherwise.
func specType(spec OptionSpec) string {
	if spec.Type == TypeArray {
		return fmt.Sprintf("array of %s", spec.Elem)
	}
	return string(spec.Type)
}

// describeValue names a value's type for error messages. The integer/float
// distinction is preserved so "5.5 against an integer spec" reads clearly.
func describeValue(v Value) string {
	if v == nil {
		return "null"
	}
	if arr, ok := v.(Array); ok {
		if len(arr) == 0 {
			return "empty array"
		}
		return fmt.Sprintf("array of %s", arr[0].Kind())
	}
	return string(v.Kind())
}

// DecodeValuesDocument parses a canonical values document, the
// `{"options": {...}}` artifact shape shared between generator output and
// store input. The options object must be present; unknown sibling keys are
// tolerated so older readers survive additive format changes.
func DecodeValuesDocument(data []byte) (RawValues, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var doc struct {
		Options map[string]any `json:"options"`
	}
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("parse values document: %w", err)
	}
	if doc.Options == nil {
		return nil, fmt.Errorf(`values document missing "options" key`)
	}
	return RawValues(doc.Options), nil
}
