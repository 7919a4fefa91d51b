package option

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSchema(t *testing.T) {
	schema := relaySchema(t)

	assert.Equal(t, "relay", schema.Namespace)
	assert.Equal(t, "1.0", schema.Version)
	assert.Equal(t, 5, schema.Len())
	assert.Equal(t, []string{
		"allowed.regions",
		"ingest.url",
		"killswitch.enabled",
		"sample.rate",
		"timeout.seconds",
	}, schema.Keys())

	spec, ok := schema.Spec("timeout.seconds")
	require.True(t, ok)
	assert.Equal(t, TypeInteger, spec.Type)
	assert.Equal(t, Int(30), spec.Default)
	assert.Equal(t, "Request timeout", spec.Description)

	spec, ok = schema.Spec("allowed.regions")
	require.True(t, ok)
	assert.Equal(t, TypeArray, spec.Type)
	assert.Equal(t, TypeString, spec.Elem)
	assert.Equal(t, Array{String("us"), String("eu")}, spec.Default)

	assert.True(t, schema.Has("sample.rate"))
	assert.False(t, schema.Has("missing"))
}

func TestParseSchemaDescriptionOptional(t *testing.T) {
	doc := `{
		"version": "1.0",
		"type": "object",
		"properties": {
			"opt": {"type": "string", "default": "x"}
		}
	}`
	schema, err := ParseSchema("bare", []byte(doc))
	require.NoError(t, err)
	spec, _ := schema.Spec("opt")
	assert.Empty(t, spec.Description)
}

func TestParseSchemaEmptyProperties(t *testing.T) {
	schema, err := ParseSchema("empty", []byte(`{"version": "1.0", "type": "object", "properties": {}}`))
	require.NoError(t, err)
	assert.Zero(t, schema.Len())
}

func TestParseSchemaRejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"not json", `{`},
		{"missing version", `{"type": "object", "properties": {}}`},
		{"missing type", `{"version": "1.0", "properties": {}}`},
		{"wrong type value", `{"version": "1.0", "type": "array", "properties": {}}`},
		{"missing properties", `{"version": "1.0", "type": "object"}`},
		{
			"unsupported option type",
			`{"version": "1.0", "type": "object", "properties": {"o": {"type": "datetime", "default": 0}}}`,
		},
		{
			"array without items",
			`{"version": "1.0", "type": "object", "properties": {"o": {"type": "array", "default": []}}}`,
		},
		{
			"array of arrays",
			`{"version": "1.0", "type": "object", "properties": {"o": {"type": "array", "items": {"type": "array"}, "default": []}}}`,
		},
		{
			"missing default",
			`{"version": "1.0", "type": "object", "properties": {"o": {"type": "string", "description": "x"}}}`,
		},
		{
			"null default",
			`{"version": "1.0", "type": "object", "properties": {"o": {"type": "string", "default": null}}}`,
		},
		{
			"default of wrong type",
			`{"version": "1.0", "type": "object", "properties": {"o": {"type": "integer", "default": "5"}}}`,
		},
		{
			"fractional default for integer",
			`{"version": "1.0", "type": "object", "properties": {"o": {"type": "integer", "default": 5.5}}}`,
		},
		{
			"array default with bad element",
			`{"version": "1.0", "type": "object", "properties": {"o": {"type": "array", "items": {"type": "integer"}, "default": [1, "x"]}}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSchema("ns", []byte(tt.doc))
			require.Error(t, err)
			assert.True(t, IsSchemaError(err), "want SchemaError, got %T: %v", err, err)
		})
	}
}

func TestParseSchemaIntegerDefaultSatisfiesNumber(t *testing.T) {
	doc := `{
		"version": "1.0",
		"type": "object",
		"properties": {
			"rate": {"type": "number", "default": 1}
		}
	}`
	schema, err := ParseSchema("ns", []byte(doc))
	require.NoError(t, err)
	spec, _ := schema.Spec("rate")
	assert.Equal(t, Int(1), spec.Default)
}

func writeSchemaFile(t *testing.T, dir, namespace, doc string) {
	t.Helper()
	nsDir := filepath.Join(dir, namespace)
	require.NoError(t, os.MkdirAll(nsDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(nsDir, "schema.json"), []byte(doc), 0o644))
}

func TestLoadRegistry(t *testing.T) {
	dir := t.TempDir()
	writeSchemaFile(t, dir, "relay", relaySchemaDoc)
	writeSchemaFile(t, dir, "ingest", `{"version": "1.0", "type": "object", "properties": {}}`)

	// a namespace directory without schema.json is skipped
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "incomplete"), 0o755))
	// plain files at the top level are ignored
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("docs"), 0o644))

	reg, err := LoadRegistry(dir)
	require.NoError(t, err)
	assert.Equal(t, 2, reg.Len())
	assert.Equal(t, []string{"ingest", "relay"}, reg.Namespaces())

	schema, ok := reg.Get("relay")
	require.True(t, ok)
	assert.Equal(t, "relay", schema.Namespace)

	_, ok = reg.Get("incomplete")
	assert.False(t, ok)
}

func TestLoadRegistryMissingDirectory(t *testing.T) {
	_, err := LoadRegistry(filepath.Join(t.TempDir(), "absent"))
	assert.Error(t, err)
}

func TestLoadRegistryInvalidSchemaFailsLoad(t *testing.T) {
	dir := t.TempDir()
	writeSchemaFile(t, dir, "good", `{"version": "1.0", "type": "object", "properties": {}}`)
	writeSchemaFile(t, dir, "bad", `{"version": "1.0"}`)

	_, err := LoadRegistry(dir)
	require.Error(t, err)
	assert.True(t, IsSchemaError(err))
	assert.Contains(t, err.Error(), filepath.Join(dir, "bad", "schema.json"))
}

func TestNewRegistry(t *testing.T) {
	reg := NewRegistry(relaySchema(t))
	assert.Equal(t, []string{"relay"}, reg.Namespaces())
	_, ok := reg.Get("relay")
	assert.True(t, ok)
}
