package runtime

import (
	"github.com/go-viper/mapstructure/v2"

	"github.com/roach88/setpoint/internal/option"
)

// NamespaceOptions reads options from one namespace of a Store. The
// zero value is not usable; obtain handles from Store.Namespace or the
// package-level Namespace.
type NamespaceOptions struct {
	namespace string
	store     *Store
}

// Name returns the namespace the handle reads from.
func (o NamespaceOptions) Name() string {
	return o.namespace
}

// Get returns the value of key, falling back to the schema default.
func (o NamespaceOptions) Get(key string) (option.Value, error) {
	return o.store.Get(o.namespace, key)
}

// Isset reports whether key has an explicit value rather than serving
// its schema default.
func (o NamespaceOptions) Isset(key string) (bool, error) {
	return o.store.Isset(o.namespace, key)
}

// GetString returns a string option.
func (o NamespaceOptions) GetString(key string) (string, error) {
	return o.store.GetString(o.namespace, key)
}

// GetInt returns an integer option.
func (o NamespaceOptions) GetInt(key string) (int64, error) {
	return o.store.GetInt(o.namespace, key)
}

// GetFloat returns a number option.
func (o NamespaceOptions) GetFloat(key string) (float64, error) {
	return o.store.GetFloat(o.namespace, key)
}

// GetBool returns a boolean option.
func (o NamespaceOptions) GetBool(key string) (bool, error) {
	return o.store.GetBool(o.namespace, key)
}

// GetStringSlice returns an array-of-string option.
func (o NamespaceOptions) GetStringSlice(key string) ([]string, error) {
	return o.store.GetStringSlice(o.namespace, key)
}

// Values returns the full effective value set of the namespace: every
// schema key mapped to its explicit value or default. The returned set
// is the caller's to keep.
func (o NamespaceOptions) Values() (option.ValueSet, error) {
	schema, ok := o.store.registry.Get(o.namespace)
	if !ok {
		return nil, &option.UnknownNamespaceError{Namespace: o.namespace}
	}
	snap := o.store.current[o.namespace].Load()
	return option.Resolve(schema, snap.values, nil), nil
}

// Decode fills target, a pointer to a struct, from the namespace's
// effective values. Fields select options with `mapstructure` tags
// carrying the full option key:
//
//	type relayConfig struct {
//		Timeout int      `mapstructure:"timeout.seconds"`
//		Regions []string `mapstructure:"allowed.regions"`
//	}
//
// Untagged or unmatched fields keep their existing values.
func (o NamespaceOptions) Decode(target any) error {
	values, err := o.Values()
	if err != nil {
		return err
	}

	flat := make(map[string]any, len(values))
	for key, v := range values {
		flat[key] = option.GoValue(v)
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result: target,
	})
	if err != nil {
		return err
	}
	return dec.Decode(flat)
}
