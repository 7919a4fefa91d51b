// Package option provides the shared value, schema, and validation model
// for setpoint.
//
// This package is the foundational layer: the generator (write path) and the
// runtime store (read path) both build on it, so type semantics are defined
// exactly once. option imports nothing internal.
//
// Key design constraints:
//   - Value is a sealed interface; null is not representable (absence of a
//     key stands in for "unset")
//   - Integer/float distinction is token-level: a numeral with '.', 'e', or
//     'E' is never an Integer, regardless of its numeric value
//   - Schemas are immutable after loading; only values reload at runtime
//   - Canonical artifact encoding is byte-deterministic (sorted keys,
//     compact separators, NFC-normalized strings, no HTML escaping)
package option
