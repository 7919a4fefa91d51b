package runtime

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/setpoint/internal/feature"
	"github.com/roach88/setpoint/internal/option"
	"github.com/roach88/setpoint/internal/testutil"
)

const relaySchemaDoc = `{
	"version": "1.0",
	"type": "object",
	"properties": {
		"timeout.seconds": {
			"type": "integer",
			"default": 30,
			"description": "Upstream timeout"
		},
		"sample.rate": {
			"type": "number",
			"default": 0.1
		},
		"killswitch.enabled": {
			"type": "boolean",
			"default": false
		},
		"ingest.url": {
			"type": "string",
			"default": ""
		},
		"allowed.regions": {
			"type": "array",
			"items": {"type": "string"},
			"default": ["us", "eu"]
		}
	}
}`

const flagsSchemaDoc = `{
	"version": "1.0",
	"type": "object",
	"properties": {
		"features.rollout-ui": {
			"type": "string",
			"default": "{\"enabled\": false}"
		}
	}
}`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// optionsDir lays out a base directory with relay and flags namespaces:
// relay has an explicit values document, flags serves pure defaults.
func optionsDir(t *testing.T) string {
	t.Helper()
	return testutil.OptionsDir(t,
		map[string]string{"relay": relaySchemaDoc, "flags": flagsSchemaDoc},
		map[string]string{
			"relay": `{"options": {"timeout.seconds": 60, "ingest.url": "https://ingest.example.com"}}`,
		},
	)
}

func TestOpenDirectory_ExplicitAndDefaultValues(t *testing.T) {
	store, err := OpenDirectory(optionsDir(t))
	require.NoError(t, err)

	v, err := store.Get("relay", "timeout.seconds")
	require.NoError(t, err)
	assert.Equal(t, option.Int(60), v)

	// Keys absent from the values document serve their schema default.
	v, err = store.Get("relay", "sample.rate")
	require.NoError(t, err)
	assert.Equal(t, option.Float(0.1), v)

	v, err = store.Get("relay", "allowed.regions")
	require.NoError(t, err)
	assert.Equal(t, option.Array{option.String("us"), option.String("eu")}, v)
}

func TestOpenDirectory_MissingValuesDocument(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "schemas", "relay", "schema.json"), relaySchemaDoc)

	store, err := OpenDirectory(dir)
	require.NoError(t, err)

	v, err := store.Get("relay", "timeout.seconds")
	require.NoError(t, err)
	assert.Equal(t, option.Int(30), v)

	set, err := store.Isset("relay", "timeout.seconds")
	require.NoError(t, err)
	assert.False(t, set)
}

func TestOpenDirectory_InvalidValuesFailOpen(t *testing.T) {
	tests := []struct {
		name   string
		values string
		check  func(*testing.T, error)
	}{
		{
			name:   "unknown key",
			values: `{"options": {"typo_key": true}}`,
			check: func(t *testing.T, err error) {
				assert.True(t, option.IsValidationError(err))
				assert.Contains(t, err.Error(), "typo_key")
			},
		},
		{
			name:   "type mismatch",
			values: `{"options": {"timeout.seconds": "60"}}`,
			check: func(t *testing.T, err error) {
				assert.True(t, option.IsValidationError(err))
			},
		},
		{
			name:   "malformed json",
			values: `{"options": {`,
			check: func(t *testing.T, err error) {
				assert.Contains(t, err.Error(), "relay")
			},
		},
		{
			name:   "missing options key",
			values: `{"values": {}}`,
			check: func(t *testing.T, err error) {
				assert.Contains(t, err.Error(), "options")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeFile(t, filepath.Join(dir, "schemas", "relay", "schema.json"), relaySchemaDoc)
			writeFile(t, filepath.Join(dir, "values", "relay", "values.json"), tt.values)

			_, err := OpenDirectory(dir)
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestOpenDirectory_MissingSchemasDir(t *testing.T) {
	_, err := OpenDirectory(t.TempDir())
	require.Error(t, err)
}

func TestStore_UnknownNamespaceAndOption(t *testing.T) {
	store, err := OpenDirectory(optionsDir(t))
	require.NoError(t, err)

	_, err = store.Get("nope", "timeout.seconds")
	assert.True(t, option.IsUnknownNamespace(err))

	_, err = store.Get("relay", "nope")
	assert.True(t, option.IsUnknownOption(err))

	_, err = store.Isset("nope", "timeout.seconds")
	assert.True(t, option.IsUnknownNamespace(err))

	_, err = store.Isset("relay", "nope")
	assert.True(t, option.IsUnknownOption(err))
}

func TestStore_Isset(t *testing.T) {
	store, err := OpenDirectory(optionsDir(t))
	require.NoError(t, err)

	set, err := store.Isset("relay", "timeout.seconds")
	require.NoError(t, err)
	assert.True(t, set)

	set, err = store.Isset("relay", "killswitch.enabled")
	require.NoError(t, err)
	assert.False(t, set, "schema default is not an explicit value")
}

func TestStore_TypedGetters(t *testing.T) {
	store, err := OpenDirectory(optionsDir(t))
	require.NoError(t, err)

	s, err := store.GetString("relay", "ingest.url")
	require.NoError(t, err)
	assert.Equal(t, "https://ingest.example.com", s)

	n, err := store.GetInt("relay", "timeout.seconds")
	require.NoError(t, err)
	assert.Equal(t, int64(60), n)

	f, err := store.GetFloat("relay", "sample.rate")
	require.NoError(t, err)
	assert.Equal(t, 0.1, f)

	b, err := store.GetBool("relay", "killswitch.enabled")
	require.NoError(t, err)
	assert.False(t, b)

	regions, err := store.GetStringSlice("relay", "allowed.regions")
	require.NoError(t, err)
	assert.Equal(t, []string{"us", "eu"}, regions)
}

func TestStore_TypedGetterMismatch(t *testing.T) {
	store, err := OpenDirectory(optionsDir(t))
	require.NoError(t, err)

	_, err = store.GetString("relay", "timeout.seconds")
	require.Error(t, err)
	assert.True(t, option.IsValidationError(err))
	assert.Contains(t, err.Error(), "expected string")

	_, err = store.GetInt("relay", "ingest.url")
	require.Error(t, err)

	_, err = store.GetBool("relay", "sample.rate")
	require.Error(t, err)

	_, err = store.GetStringSlice("relay", "timeout.seconds")
	require.Error(t, err)
}

func TestStore_GetFloatAcceptsIntegerToken(t *testing.T) {
	// A number spec admits the integer token 1, which stays an Int
	// through validation; the float getter must still serve it.
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "schemas", "relay", "schema.json"), relaySchemaDoc)
	writeFile(t, filepath.Join(dir, "values", "relay", "values.json"),
		`{"options": {"sample.rate": 1}}`)

	store, err := OpenDirectory(dir)
	require.NoError(t, err)

	f, err := store.GetFloat("relay", "sample.rate")
	require.NoError(t, err)
	assert.Equal(t, 1.0, f)

	// The underlying value keeps its integer form.
	v, err := store.Get("relay", "sample.rate")
	require.NoError(t, err)
	assert.Equal(t, option.Int(1), v)
}

func TestStore_RoundTripsGeneratorArtifact(t *testing.T) {
	// A canonical artifact written as a values document must load back
	// to the exact effective set it was built from.
	effective := option.ValueSet{
		"timeout.seconds":    option.Int(120),
		"sample.rate":        option.Float(0.5),
		"killswitch.enabled": option.Bool(true),
		"ingest.url":         option.String("https://eu.example.com"),
		"allowed.regions":    option.Array{option.String("de")},
	}
	data, err := option.EncodeArtifact(effective)
	require.NoError(t, err)

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "schemas", "relay", "schema.json"), relaySchemaDoc)
	writeFile(t, filepath.Join(dir, "values", "relay", "values.json"), string(data))

	store, err := OpenDirectory(dir)
	require.NoError(t, err)

	for key, want := range effective {
		got, err := store.Get("relay", key)
		require.NoError(t, err, key)
		assert.True(t, option.Equal(want, got), "key %s: %v != %v", key, want, got)
	}
}

func TestNamespaceOptions_Handle(t *testing.T) {
	store, err := OpenDirectory(optionsDir(t))
	require.NoError(t, err)

	relay := store.Namespace("relay")
	assert.Equal(t, "relay", relay.Name())

	n, err := relay.GetInt("timeout.seconds")
	require.NoError(t, err)
	assert.Equal(t, int64(60), n)

	set, err := relay.Isset("sample.rate")
	require.NoError(t, err)
	assert.False(t, set)

	values, err := relay.Values()
	require.NoError(t, err)
	assert.Len(t, values, 5, "every schema key appears in the effective set")
	assert.Equal(t, option.Int(60), values["timeout.seconds"])
	assert.Equal(t, option.Float(0.1), values["sample.rate"])
}

func TestNamespaceOptions_Decode(t *testing.T) {
	store, err := OpenDirectory(optionsDir(t))
	require.NoError(t, err)

	type relayConfig struct {
		Timeout    int      `mapstructure:"timeout.seconds"`
		SampleRate float64  `mapstructure:"sample.rate"`
		Killswitch bool     `mapstructure:"killswitch.enabled"`
		IngestURL  string   `mapstructure:"ingest.url"`
		Regions    []string `mapstructure:"allowed.regions"`
	}

	var cfg relayConfig
	require.NoError(t, store.Namespace("relay").Decode(&cfg))

	assert.Equal(t, relayConfig{
		Timeout:    60,
		SampleRate: 0.1,
		Killswitch: false,
		IngestURL:  "https://ingest.example.com",
		Regions:    []string{"us", "eu"},
	}, cfg)
}

func TestNamespaceOptions_DecodeUnknownNamespace(t *testing.T) {
	store, err := OpenDirectory(optionsDir(t))
	require.NoError(t, err)

	var out struct{}
	err = store.Namespace("nope").Decode(&out)
	assert.True(t, option.IsUnknownNamespace(err))
}

func TestStore_Override(t *testing.T) {
	store, err := OpenDirectory(optionsDir(t))
	require.NoError(t, err)

	restore, err := store.Override("relay", "killswitch.enabled", true)
	require.NoError(t, err)

	b, err := store.GetBool("relay", "killswitch.enabled")
	require.NoError(t, err)
	assert.True(t, b)

	set, err := store.Isset("relay", "killswitch.enabled")
	require.NoError(t, err)
	assert.True(t, set, "an override counts as an explicit value")

	restore()

	b, err = store.GetBool("relay", "killswitch.enabled")
	require.NoError(t, err)
	assert.False(t, b)

	set, err = store.Isset("relay", "killswitch.enabled")
	require.NoError(t, err)
	assert.False(t, set)
}

func TestStore_OverrideNestedRestore(t *testing.T) {
	store, err := OpenDirectory(optionsDir(t))
	require.NoError(t, err)

	outer, err := store.Override("relay", "timeout.seconds", 100)
	require.NoError(t, err)
	inner, err := store.Override("relay", "timeout.seconds", 200)
	require.NoError(t, err)

	n, err := store.GetInt("relay", "timeout.seconds")
	require.NoError(t, err)
	assert.Equal(t, int64(200), n)

	// The inner guard restores the outer override, not the original.
	inner()
	n, err = store.GetInt("relay", "timeout.seconds")
	require.NoError(t, err)
	assert.Equal(t, int64(100), n)

	outer()
	n, err = store.GetInt("relay", "timeout.seconds")
	require.NoError(t, err)
	assert.Equal(t, int64(60), n)
}

func TestStore_OverrideValidates(t *testing.T) {
	store, err := OpenDirectory(optionsDir(t))
	require.NoError(t, err)

	_, err = store.Override("relay", "timeout.seconds", "not an int")
	require.Error(t, err)
	assert.True(t, option.IsValidationError(err))

	_, err = store.Override("relay", "nope", 1)
	assert.True(t, option.IsUnknownOption(err))

	_, err = store.Override("nope", "timeout.seconds", 1)
	assert.True(t, option.IsUnknownNamespace(err))
}

func TestStore_OverrideStringSlice(t *testing.T) {
	store, err := OpenDirectory(optionsDir(t))
	require.NoError(t, err)

	restore, err := store.Override("relay", "allowed.regions", []string{"ap"})
	require.NoError(t, err)
	defer restore()

	regions, err := store.GetStringSlice("relay", "allowed.regions")
	require.NoError(t, err)
	assert.Equal(t, []string{"ap"}, regions)
}

func TestStore_FeaturesIntegration(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "schemas", "flags", "schema.json"), flagsSchemaDoc)
	writeFile(t, filepath.Join(dir, "values", "flags", "values.json"),
		`{"options": {"features.rollout-ui": "{\"enabled\": true, \"segments\": [{\"name\": \"internal\", \"conditions\": [{\"property\": \"org\", \"operator\": {\"kind\": \"equals\", \"value\": \"sentry\"}}]}]}"}}`)

	store, err := OpenDirectory(dir)
	require.NoError(t, err)

	checker := store.Features("flags")

	ctx := feature.NewContext()
	ctx.Set("org", feature.StringValue("sentry"))
	assert.True(t, checker.Has("rollout-ui", ctx))

	other := feature.NewContext()
	other.Set("org", feature.StringValue("acme"))
	assert.False(t, checker.Has("rollout-ui", other))

	// A flag with no schema entry is off.
	assert.False(t, checker.Has("missing", ctx))
}

func TestStore_FeatureDefaultPolicy(t *testing.T) {
	// With no values document the flag serves its schema default, a
	// disabled policy.
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "schemas", "flags", "schema.json"), flagsSchemaDoc)

	store, err := OpenDirectory(dir)
	require.NoError(t, err)

	assert.False(t, store.Features("flags").Has("rollout-ui", feature.NewContext()))
}

func TestStore_Accessors(t *testing.T) {
	dir := optionsDir(t)
	store, err := OpenDirectory(dir)
	require.NoError(t, err)

	assert.Equal(t, dir, store.Dir())
	assert.Equal(t, []string{"flags", "relay"}, store.Namespaces())
	assert.Equal(t, 2, store.Registry().Len())
}
