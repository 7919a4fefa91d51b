package runtime

import (
	"github.com/roach88/setpoint/internal/option"
)

// Override replaces one option's explicit value in memory and returns a
// function that restores the previous state of that key. The value is
// validated against the schema first.
//
// Intended for tests exercising code that reads options. Overrides are
// not durable: a reload triggered by an on-disk change publishes a fresh
// snapshot without them.
func (s *Store) Override(namespace, key string, value any) (restore func(), err error) {
	schema, ok := s.registry.Get(namespace)
	if !ok {
		return nil, &option.UnknownNamespaceError{Namespace: namespace}
	}
	if !schema.Has(key) {
		return nil, &option.UnknownOptionError{Namespace: namespace, Key: key}
	}

	validated, err := option.Validate(schema, option.RawValues{key: normalizeOverride(value)})
	if err != nil {
		return nil, err
	}
	v := validated[key]

	ptr := s.current[namespace]

	s.reloadMu.Lock()
	before := ptr.Load()
	prior, hadPrior := before.values[key]
	next := &snapshot{
		values:   before.values.Clone(),
		state:    before.state,
		loadedAt: before.loadedAt,
	}
	next.values[key] = v
	ptr.Store(next)
	s.reloadMu.Unlock()

	return func() {
		s.reloadMu.Lock()
		defer s.reloadMu.Unlock()

		cur := ptr.Load()
		reverted := &snapshot{
			values:   cur.values.Clone(),
			state:    cur.state,
			loadedAt: cur.loadedAt,
		}
		if hadPrior {
			reverted.values[key] = prior
		} else {
			delete(reverted.values, key)
		}
		ptr.Store(reverted)
	}, nil
}

// normalizeOverride widens the convenience forms tests actually pass:
// typed slices become []any and Values pass through their Go form.
func normalizeOverride(value any) any {
	switch v := value.(type) {
	case option.Value:
		return option.GoValue(v)
	case []string:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = e
		}
		return out
	case []int:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = e
		}
		return out
	case []int64:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = e
		}
		return out
	case []float64:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = e
		}
		return out
	case []bool:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = e
		}
		return out
	default:
		return value
	}
}
