package feature

import (
	"crypto/sha1"
	"slices"
	"strconv"
	"strings"
)

type contextKind uint8

const (
	kindString contextKind = iota
	kindInt
	kindFloat
	kindBool
	kindStrings
	kindInts
	kindFloats
	kindBools
)

// ContextValue is one typed property of a FeatureContext. Construct values
// with StringValue, IntValue, and the other constructors below; the zero
// ContextValue is an empty string.
type ContextValue struct {
	kind    contextKind
	str     string
	integer int64
	float   float64
	boolean bool
	strs    []string
	ints    []int64
	floats  []float64
	bools   []bool
}

// StringValue returns a string context value.
func StringValue(s string) ContextValue {
	return ContextValue{kind: kindString, str: s}
}

// IntValue returns an integer context value.
func IntValue(i int64) ContextValue {
	return ContextValue{kind: kindInt, integer: i}
}

// FloatValue returns a float context value.
func FloatValue(f float64) ContextValue {
	return ContextValue{kind: kindFloat, float: f}
}

// BoolValue returns a boolean context value.
func BoolValue(b bool) ContextValue {
	return ContextValue{kind: kindBool, boolean: b}
}

// StringsValue returns a string-list context value. The slice is copied.
func StringsValue(v []string) ContextValue {
	return ContextValue{kind: kindStrings, strs: slices.Clone(v)}
}

// IntsValue returns an integer-list context value. The slice is copied.
func IntsValue(v []int64) ContextValue {
	return ContextValue{kind: kindInts, ints: slices.Clone(v)}
}

// FloatsValue returns a float-list context value. The slice is copied.
func FloatsValue(v []float64) ContextValue {
	return ContextValue{kind: kindFloats, floats: slices.Clone(v)}
}

// BoolsValue returns a boolean-list context value. The slice is copied.
func BoolsValue(v []bool) ContextValue {
	return ContextValue{kind: kindBools, bools: slices.Clone(v)}
}

func (v ContextValue) isList() bool {
	return v.kind >= kindStrings
}

// String renders the value as it appears in identity strings and debug
// logs. Booleans render as "True"/"False" (Python str casing) because the
// identity text must hash identically in every client that produces it.
func (v ContextValue) String() string {
	switch v.kind {
	case kindString:
		return v.str
	case kindInt:
		return strconv.FormatInt(v.integer, 10)
	case kindFloat:
		return strconv.FormatFloat(v.float, 'f', -1, 64)
	case kindBool:
		if v.boolean {
			return "True"
		}
		return "False"
	case kindStrings:
		parts := make([]string, len(v.strs))
		for i, s := range v.strs {
			parts[i] = strconv.Quote(s)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case kindInts:
		parts := make([]string, len(v.ints))
		for i, n := range v.ints {
			parts[i] = strconv.FormatInt(n, 10)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case kindFloats:
		parts := make([]string, len(v.floats))
		for i, f := range v.floats {
			parts[i] = formatListFloat(f)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case kindBools:
		parts := make([]string, len(v.bools))
		for i, b := range v.bools {
			parts[i] = strconv.FormatBool(b)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	}
	return ""
}

// formatListFloat keeps a decimal point on integral floats so list
// renderings stay distinguishable from integer lists.
func formatListFloat(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// FeatureContext carries the application data a flag is evaluated against.
//
// Identity fields pick which properties feed the rollout bucket; with none
// declared, every property participates in sorted key order. Not safe for
// concurrent use; build one per evaluation site.
type FeatureContext struct {
	data           map[string]ContextValue
	identityFields []string // kept sorted

	// bucket is the cached identity bucket, -1 until computed.
	bucket int16
}

// NewContext returns an empty context.
func NewContext() *FeatureContext {
	return &FeatureContext{
		data:   make(map[string]ContextValue),
		bucket: -1,
	}
}

// Set stores a property and invalidates the cached identity bucket.
func (c *FeatureContext) Set(key string, v ContextValue) {
	c.data[key] = v
	c.bucket = -1
}

// SetIdentityFields declares which properties form the rollout identity.
// Fields are stored sorted; the cached bucket is invalidated.
func (c *FeatureContext) SetIdentityFields(fields ...string) {
	sorted := slices.Clone(fields)
	slices.Sort(sorted)
	c.identityFields = sorted
	c.bucket = -1
}

// Get returns the property stored under key.
func (c *FeatureContext) Get(key string) (ContextValue, bool) {
	v, ok := c.data[key]
	return v, ok
}

// Has reports whether key is present in the context.
func (c *FeatureContext) Has(key string) bool {
	_, ok := c.data[key]
	return ok
}

// ID returns the stable identity bucket in [0, 100).
//
// The identity string is the values of the identity fields (absent fields
// skipped) joined with ":"; it is SHA1-hashed and the 20-byte digest
// reduced mod 100. The reduction matches Python's int(sha1_hex, 16) % 100,
// so buckets agree across clients regardless of language.
func (c *FeatureContext) ID() uint64 {
	if c.bucket >= 0 {
		return uint64(c.bucket)
	}
	b := c.computeBucket()
	c.bucket = int16(b)
	return uint64(b)
}

func (c *FeatureContext) computeBucket() uint8 {
	fields := c.identityFields
	if len(fields) == 0 {
		fields = make([]string, 0, len(c.data))
		for k := range c.data {
			fields = append(fields, k)
		}
		slices.Sort(fields)
	}

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		if v, ok := c.data[field]; ok {
			parts = append(parts, v.String())
		}
	}

	sum := sha1.Sum([]byte(strings.Join(parts, ":")))

	// Horner reduction of the digest, equivalent to interpreting all
	// 20 bytes as one big-endian integer mod 100.
	var acc uint64
	for _, b := range sum {
		acc = (acc*256 + uint64(b)) % 100
	}
	return uint8(acc)
}
