package option

// Resolve builds the effective value set for one namespace and target.
// For every schema key the value comes from the override layer, else the
// base layer, else the option's declared default, in that order. Both
// layers must already be validated against the schema; given that,
// resolution is total and the result covers every schema key.
//
// The base layer is the mandatory default target. A target's own layer is
// passed as override; pass nil to resolve the base layer alone.
func Resolve(schema *Schema, base, override ValueSet) ValueSet {
	out := make(ValueSet, schema.Len())
	for _, key := range schema.Keys() {
		if v, ok := override[key]; ok {
			out[key] = v
			continue
		}
		if v, ok := base[key]; ok {
			out[key] = v
			continue
		}
		spec, _ := schema.Spec(key)
		out[key] = spec.Default
	}
	return out
}
