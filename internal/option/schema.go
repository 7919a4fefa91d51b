package option

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

// schemaDocDef is the structural contract for schema documents, checked
// before any Go decoding so malformed documents fail with a positioned
// error instead of a half-built Schema.
const schemaDocDef = `
#Property: {
	type:         "string" | "integer" | "number" | "boolean"
	default:      _
	description?: string
} | {
	type: "array"
	items: type: "string" | "integer" | "number" | "boolean"
	default:      _
	description?: string
}

#Schema: {
	version:    string
	type:       "object"
	properties: {[string]: #Property}
}
`

var (
	schemaDefOnce sync.Once
	schemaDef     cue.Value
)

func schemaDocSchema() cue.Value {
	schemaDefOnce.Do(func() {
		ctx := cuecontext.New()
		schemaDef = ctx.CompileString(schemaDocDef).LookupPath(cue.ParsePath("#Schema"))
	})
	return schemaDef
}

// OptionSpec declares one option: its type, its default, and prose for
// humans. For arrays, Elem names the scalar element type.
type OptionSpec struct {
	Type        Type
	Elem        Type
	Default     Value
	Description string
}

// Schema owns one namespace's option declarations. Immutable once loaded;
// values hot-reload at runtime, schemas never do.
type Schema struct {
	Namespace string
	Version   string

	specs map[string]OptionSpec
	keys  []string // sorted
}

// Spec returns the declaration for key.
func (s *Schema) Spec(key string) (OptionSpec, bool) {
	spec, ok := s.specs[key]
	return spec, ok
}

// Has reports whether key is declared.
func (s *Schema) Has(key string) bool {
	_, ok := s.specs[key]
	return ok
}

// Keys returns all declared option keys in sorted order. The returned
// slice is shared; callers must not modify it.
func (s *Schema) Keys() []string {
	return s.keys
}

// Len returns the number of declared options.
func (s *Schema) Len() int {
	return len(s.specs)
}

// rawSchemaDoc mirrors the schema document JSON.
type rawSchemaDoc struct {
	Version    string                   `json:"version"`
	Type       string                   `json:"type"`
	Properties map[string]rawOptionSpec `json:"properties"`
}

type rawOptionSpec struct {
	Type        string          `json:"type"`
	Items       *rawItemsSpec   `json:"items"`
	Default     json.RawMessage `json:"default"`
	Description string          `json:"description"`
}

type rawItemsSpec struct {
	Type string `json:"type"`
}

// ParseSchema parses and validates a schema document for one namespace.
// The document is checked against the embedded structural definition, then
// decoded with strict number handling; every default must validate for its
// own declared type, so a bad default is caught here and never at read time.
func ParseSchema(namespace string, data []byte) (*Schema, error) {
	if err := checkSchemaDoc(data); err != nil {
		return nil, &SchemaError{Namespace: namespace, Message: err.Error()}
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc rawSchemaDoc
	if err := dec.Decode(&doc); err != nil {
		return nil, &SchemaError{Namespace: namespace, Message: fmt.Sprintf("parse: %v", err)}
	}

	schema := &Schema{
		Namespace: namespace,
		Version:   doc.Version,
		specs:     make(map[string]OptionSpec, len(doc.Properties)),
	}
	for key, rawSpec := range doc.Properties {
		spec, err := buildSpec(rawSpec)
		if err != nil {
			return nil, &SchemaError{
				Namespace: namespace,
				Message:   fmt.Sprintf("option %q: %v", key, err),
			}
		}
		schema.specs[key] = spec
	}

	schema.keys = make([]string, 0, len(schema.specs))
	for k := range schema.specs {
		schema.keys = append(schema.keys, k)
	}
	sort.Strings(schema.keys)
	return schema, nil
}

// checkSchemaDoc unifies the raw JSON with the structural definition.
// JSON is a subset of CUE, so the document compiles directly.
func checkSchemaDoc(data []byte) error {
	ctx := schemaDocSchema().Context()
	doc := ctx.CompileBytes(data)
	if err := doc.Err(); err != nil {
		return formatCUEError(err)
	}
	unified := schemaDocSchema().Unify(doc)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return formatCUEError(err)
	}
	return nil
}

// formatCUEError flattens a CUE error list into one message, keeping the
// first position when available.
func formatCUEError(err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	positions := cueerrors.Positions(first)
	if len(positions) > 0 && positions[0].IsValid() {
		pos := positions[0].Position()
		return fmt.Errorf("%d:%d: %v", pos.Line, pos.Column, first)
	}
	return first
}

// buildSpec converts one raw property into an OptionSpec, checking the
// declared type and the default's conformance to it.
func buildSpec(raw rawOptionSpec) (OptionSpec, error) {
	declared := Type(raw.Type)
	if !ValidTypes[declared] {
		return OptionSpec{}, fmt.Errorf("unsupported type %q", raw.Type)
	}

	spec := OptionSpec{Type: declared, Description: raw.Description}
	if declared == TypeArray {
		if raw.Items == nil {
			return OptionSpec{}, fmt.Errorf("array type requires an element type")
		}
		elem := Type(raw.Items.Type)
		if !ValidScalarTypes[elem] {
			return OptionSpec{}, fmt.Errorf("unsupported array element type %q", raw.Items.Type)
		}
		spec.Elem = elem
	} else if raw.Items != nil {
		return OptionSpec{}, fmt.Errorf("items is only valid on array types")
	}

	if len(raw.Default) == 0 {
		return OptionSpec{}, fmt.Errorf("default is required")
	}
	def, err := DecodeValue(raw.Default)
	if err != nil {
		return OptionSpec{}, fmt.Errorf("default: %v", err)
	}
	if err := checkValue(spec, def); err != nil {
		return OptionSpec{}, fmt.Errorf("default does not satisfy declared type: %v", err)
	}
	spec.Default = def
	return spec, nil
}
