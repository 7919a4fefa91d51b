package feature

import "log/slog"

// Source supplies option values for feature lookups. The runtime store
// satisfies it; tests substitute a map.
type Source interface {
	// GetString returns the string value of key in namespace. Non-string
	// values and unknown namespaces or keys return an error.
	GetString(namespace, key string) (string, error)
}

// Checker evaluates feature flags stored as options in one namespace.
//
// Every failure mode degrades to false: a flag that is missing,
// non-string, or malformed must never crash or block its caller.
type Checker struct {
	namespace string
	source    Source
}

// NewChecker returns a Checker bound to namespace, reading from src.
func NewChecker(namespace string, src Source) *Checker {
	return &Checker{namespace: namespace, source: src}
}

// Namespace returns the namespace the checker reads from.
func (c *Checker) Namespace() string {
	return c.namespace
}

// Has reports whether the flag named name admits ctx.
//
// The policy document is read from the "features.{name}" option on every
// call, so a hot-reloaded value takes effect on the next check.
func (c *Checker) Has(name string, ctx *FeatureContext) bool {
	value, err := c.source.GetString(c.namespace, "features."+name)
	if err != nil {
		return false
	}

	policy, err := ParsePolicy([]byte(value))
	if err != nil {
		if debugConfig().logParse {
			slog.Warn("feature policy parse failed",
				"feature", name,
				"namespace", c.namespace,
				"error", err,
			)
		}
		return false
	}

	return policy.Evaluate(name, ctx)
}
