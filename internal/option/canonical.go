package option

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"unicode/utf16"

	"golang.org/x/text/unicode/norm"
)

// EncodeArtifact serializes a value set as a canonical artifact document:
// one object with a single top-level "options" key, no insignificant
// whitespace, keys sorted by UTF-16 code units, strings NFC-normalized
// with no HTML escaping. Equal value sets always produce identical bytes,
// so artifacts can be diffed and digested.
//
// Decoding back through DecodeValuesDocument reproduces the same typed
// values: integral floats are written with a trailing ".0" so they are
// never reclassified as integers on the way back in.
func EncodeArtifact(values ValueSet) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"options":`)
	if err := appendCanonicalSet(&buf, values); err != nil {
		return nil, err
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func appendCanonicalSet(buf *bytes.Buffer, values ValueSet) error {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sortCanonical(keys)

	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := encodeCanonicalString(k)
		if err != nil {
			return fmt.Errorf("key %q: %w", k, err)
		}
		buf.Write(kb)
		buf.WriteByte(':')
		if err := appendCanonicalValue(buf, values[k]); err != nil {
			return fmt.Errorf("value for key %q: %w", k, err)
		}
	}
	buf.WriteByte('}')
	return nil
}

func appendCanonicalValue(buf *bytes.Buffer, v Value) error {
	switch val := v.(type) {
	case String:
		sb, err := encodeCanonicalString(string(val))
		if err != nil {
			return err
		}
		buf.Write(sb)
	case Int:
		buf.WriteString(strconv.FormatInt(int64(val), 10))
	case Float:
		buf.WriteString(formatCanonicalFloat(float64(val)))
	case Bool:
		if val {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case Array:
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := appendCanonicalValue(buf, elem); err != nil {
				return fmt.Errorf("element %d: %w", i, err)
			}
		}
		buf.WriteByte(']')
	default:
		return fmt.Errorf("unsupported value kind %T", v)
	}
	return nil
}

// formatCanonicalFloat renders a float in decimal notation with the fewest
// digits that round-trip. Integral values keep a ".0" suffix so the token
// stays a float when re-parsed.
func formatCanonicalFloat(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// encodeCanonicalString produces a canonical JSON string: NFC-normalized,
// no HTML escaping, and with U+2028/U+2029 left literal. Go's encoder
// escapes those two for JavaScript embedding even with HTML escaping off,
// so they are unescaped after the fact.
func encodeCanonicalString(s string) ([]byte, error) {
	normalized := norm.NFC.String(s)

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(normalized); err != nil {
		return nil, err
	}

	// drop the encoder's trailing newline
	result := buf.Bytes()
	if n := len(result); n > 0 && result[n-1] == '\n' {
		result = result[:n-1]
	}
	return unescapeLineSeparators(result), nil
}

// unescapeLineSeparators rewrites   and   escape sequences back
// to literal characters. A sequence preceded by an odd run of backslashes
// is literal text ("\\u2028" is backslash then "u2028") and stays as is.
func unescapeLineSeparators(data []byte) []byte {
	if !bytes.Contains(data, []byte(`\u202`)) {
		return data
	}
	out := make([]byte, 0, len(data))
	run := 0 // consecutive backslashes already copied
	for i := 0; i < len(data); {
		if data[i] == '\\' && run%2 == 0 && i+5 < len(data) &&
			data[i+1] == 'u' && data[i+2] == '2' && data[i+3] == '0' && data[i+4] == '2' &&
			(data[i+5] == '8' || data[i+5] == '9') {
			if data[i+5] == '8' {
				out = append(out, " "...)
			} else {
				out = append(out, " "...)
			}
			i += 6
			run = 0
			continue
		}
		if data[i] == '\\' {
			run++
		} else {
			run = 0
		}
		out = append(out, data[i])
		i++
	}
	return out
}

// sortCanonical sorts keys by UTF-16 code units as canonical JSON
// requires. Differs from Go's byte ordering only outside the BMP, but the
// artifact contract is exact.
func sortCanonical(keys []string) {
	slices.SortFunc(keys, compareUTF16)
}

func compareUTF16(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))
	for i := 0; i < len(a16) && i < len(b16); i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a16) < len(b16):
		return -1
	case len(a16) > len(b16):
		return 1
	}
	return 0
}
