package option

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeArtifactBasic(t *testing.T) {
	data, err := EncodeArtifact(ValueSet{
		"zebra": Int(1),
		"alpha": String("a"),
		"beta":  Bool(true),
	})
	require.NoError(t, err)
	assert.Equal(t, `{"options":{"alpha":"a","beta":true,"zebra":1}}`, string(data))
}

func TestEncodeArtifactEmpty(t *testing.T) {
	data, err := EncodeArtifact(ValueSet{})
	require.NoError(t, err)
	assert.Equal(t, `{"options":{}}`, string(data))
}

func TestEncodeArtifactValues(t *testing.T) {
	tests := []struct {
		name     string
		value    Value
		expected string
	}{
		{"string", String("hello"), `"hello"`},
		{"int", Int(-42), `-42`},
		{"bool false", Bool(false), `false`},
		{"fractional float", Float(0.25), `0.25`},
		{"integral float keeps point", Float(5), `5.0`},
		{"negative integral float", Float(-2), `-2.0`},
		{"empty array", Array{}, `[]`},
		{"array", Array{Int(1), Int(2)}, `[1,2]`},
		{"array of strings", Array{String("a"), String("b")}, `["a","b"]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := EncodeArtifact(ValueSet{"k": tt.value})
			require.NoError(t, err)
			assert.Equal(t, `{"options":{"k":`+tt.expected+`}}`, string(data))
		})
	}
}

func TestEncodeArtifactNoHTMLEscaping(t *testing.T) {
	data, err := EncodeArtifact(ValueSet{"url": String("https://example.com/?a=1&b=<2>")})
	require.NoError(t, err)
	assert.Equal(t, `{"options":{"url":"https://example.com/?a=1&b=<2>"}}`, string(data))
}

func TestEncodeArtifactNFCNormalization(t *testing.T) {
	// e + combining acute accent normalizes to precomposed é, emitted as
	// plain UTF-8 rather than an escape sequence
	data, err := EncodeArtifact(ValueSet{"name": String("café")})
	require.NoError(t, err)
	assert.Equal(t, "{\"options\":{\"name\":\"café\"}}", string(data))
}

func TestEncodeArtifactLineSeparatorsLiteral(t *testing.T) {
	data, err := EncodeArtifact(ValueSet{"s": String("a b c")})
	require.NoError(t, err)
	assert.Equal(t, "{\"options\":{\"s\":\"a b c\"}}", string(data))
}

func TestEncodeArtifactEscapedBackslashStaysEscaped(t *testing.T) {
	// literal backslash followed by the text "u2028" must not be rewritten
	data, err := EncodeArtifact(ValueSet{"s": String(` `)})
	require.NoError(t, err)
	assert.Equal(t, `{"options":{"s":"\\u2028"}}`, string(data))
}

func TestEncodeArtifactUTF16KeyOrder(t *testing.T) {
	// U+10000 encodes as the surrogate pair 0xD800 0xDC00, which sorts
	// before U+E000 in UTF-16 code units despite the opposite byte order.
	data, err := EncodeArtifact(ValueSet{
		"":     Int(1),
		"\U00010000": Int(2),
	})
	require.NoError(t, err)
	assert.Equal(t, "{\"options\":{\"\U00010000\":2,\"\":1}}", string(data))
}

func TestEncodeArtifactDeterministic(t *testing.T) {
	vs := ValueSet{
		"a": Int(1),
		"b": Float(2.5),
		"c": Array{String("x")},
	}
	first, err := EncodeArtifact(vs)
	require.NoError(t, err)
	for i := 0; i < 50; i++ {
		again, err := EncodeArtifact(vs)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestArtifactRoundTrip(t *testing.T) {
	schema := relaySchema(t)
	eff := Resolve(schema, ValueSet{
		"timeout.seconds": Int(45),
		"sample.rate":     Float(1),
	}, ValueSet{
		"allowed.regions": Array{String("de")},
	})

	data, err := EncodeArtifact(eff)
	require.NoError(t, err)

	raw, err := DecodeValuesDocument(data)
	require.NoError(t, err)
	back, err := Validate(schema, raw)
	require.NoError(t, err)

	require.Len(t, back, len(eff))
	for key, want := range eff {
		assert.True(t, Equal(want, back[key]), "key %q: %#v != %#v", key, want, back[key])
	}
}

func TestFormatCanonicalFloat(t *testing.T) {
	tests := []struct {
		in       float64
		expected string
	}{
		{0.1, "0.1"},
		{0.5, "0.5"},
		{5, "5.0"},
		{-0.25, "-0.25"},
		{100, "100.0"},
		{1e21, "1" + strings.Repeat("0", 21) + ".0"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, formatCanonicalFloat(tt.in))
	}
}
