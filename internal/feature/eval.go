package feature

import (
	"encoding/json"
	"log/slog"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
)

// Evaluate reports whether the policy admits ctx.
//
// Segments are tried in declared order. A segment is a candidate when all
// of its conditions match; the candidate admits ctx when its rollout does.
// A candidate whose rollout excludes ctx does not end evaluation: later
// segments are still tried. No admitting segment means false.
func (p *Policy) Evaluate(name string, ctx *FeatureContext) bool {
	cfg := debugConfig()

	if !p.Enabled {
		return false
	}

	for _, seg := range p.Segments {
		if !seg.conditionsMatch(ctx) {
			continue
		}
		admitted := seg.inRollout(ctx)
		if cfg.logMatch && shouldSample(cfg.sampleRate) {
			slog.Debug("feature segment matched",
				"feature", name,
				"segment", seg.Name,
				"in_rollout", admitted,
			)
		}
		if admitted {
			return true
		}
	}

	if cfg.logMatch && shouldSample(cfg.sampleRate) {
		slog.Debug("feature did not match",
			"feature", name,
			"context", formatContext(ctx),
		)
	}
	return false
}

func (s Segment) conditionsMatch(ctx *FeatureContext) bool {
	for _, cond := range s.Conditions {
		if !cond.matches(ctx) {
			return false
		}
	}
	return true
}

// inRollout applies the percentage gate. 0 admits nobody and 100 admits
// everybody without touching the identity bucket; between them the bucket
// boundary is inclusive.
func (s Segment) inRollout(ctx *FeatureContext) bool {
	if s.Rollout == 0 {
		return false
	}
	if s.Rollout == 100 {
		return true
	}
	return ctx.ID() <= uint64(s.Rollout)
}

// matches evaluates one condition. The negated operators are strict
// complements of their positive forms, so a property absent from the
// context fails in/contains/equals and passes their negations.
func (c Condition) matches(ctx *FeatureContext) bool {
	prop, ok := ctx.Get(c.Property)
	switch c.Op {
	case OpIn:
		return evalIn(prop, ok, c.Operand)
	case OpNotIn:
		return !evalIn(prop, ok, c.Operand)
	case OpContains:
		return evalContains(prop, ok, c.Operand)
	case OpNotContains:
		return !evalContains(prop, ok, c.Operand)
	case OpEquals:
		return evalEquals(prop, ok, c.Operand)
	case OpNotEquals:
		return !evalEquals(prop, ok, c.Operand)
	}
	return false
}

// evalIn tests a scalar property against an array operand. List-valued
// properties and non-array operands never match.
func evalIn(prop ContextValue, ok bool, operand any) bool {
	if !ok || prop.isList() {
		return false
	}
	arr, isArr := operand.([]any)
	if !isArr {
		return false
	}
	for _, item := range arr {
		if scalarEq(prop, item) {
			return true
		}
	}
	return false
}

// evalContains tests a list property against a scalar operand. Scalar
// properties never match.
func evalContains(prop ContextValue, ok bool, operand any) bool {
	if !ok {
		return false
	}
	switch prop.kind {
	case kindStrings:
		s, isStr := operand.(string)
		if !isStr {
			return false
		}
		for _, item := range prop.strs {
			if strings.EqualFold(item, s) {
				return true
			}
		}
	case kindInts:
		n, isInt := operandInt(operand)
		if !isInt {
			return false
		}
		for _, item := range prop.ints {
			if item == n {
				return true
			}
		}
	case kindFloats:
		f, isNum := operandFloat(operand)
		if !isNum {
			return false
		}
		for _, item := range prop.floats {
			if item == f {
				return true
			}
		}
	case kindBools:
		b, isBool := operand.(bool)
		if !isBool {
			return false
		}
		for _, item := range prop.bools {
			if item == b {
				return true
			}
		}
	}
	return false
}

func evalEquals(prop ContextValue, ok bool, operand any) bool {
	if !ok {
		return false
	}
	return scalarEq(prop, operand)
}

// scalarEq compares a scalar property against one JSON operand. Strings
// compare case-insensitively. Integer properties accept only integer
// number tokens; float properties accept any number token.
func scalarEq(prop ContextValue, operand any) bool {
	switch prop.kind {
	case kindString:
		s, isStr := operand.(string)
		return isStr && strings.EqualFold(prop.str, s)
	case kindInt:
		n, isInt := operandInt(operand)
		return isInt && prop.integer == n
	case kindFloat:
		f, isNum := operandFloat(operand)
		return isNum && prop.float == f
	case kindBool:
		b, isBool := operand.(bool)
		return isBool && prop.boolean == b
	}
	return false
}

// operandInt extracts an integer operand. Number tokens carrying a
// fraction or exponent are not integers even when their value is whole.
func operandInt(operand any) (int64, bool) {
	n, isNum := operand.(json.Number)
	if !isNum {
		return 0, false
	}
	s := n.String()
	if strings.ContainsAny(s, ".eE") {
		return 0, false
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func operandFloat(operand any) (float64, bool) {
	n, isNum := operand.(json.Number)
	if !isNum {
		return 0, false
	}
	f, err := n.Float64()
	if err != nil {
		return 0, false
	}
	return f, true
}

func formatContext(ctx *FeatureContext) string {
	pairs := make([]string, 0, len(ctx.data))
	for k, v := range ctx.data {
		pairs = append(pairs, k+"="+v.String())
	}
	slices.Sort(pairs)
	return strings.Join(pairs, ", ")
}

// Debug logging is off unless SETPOINT_FEATURE_DEBUG_LOG selects a stage
// ("parse", "match", or "all"). SETPOINT_FEATURE_DEBUG_LOG_SAMPLE_RATE
// thins match logging on hot paths; it defaults to 1.0.
type debugSettings struct {
	logParse   bool
	logMatch   bool
	sampleRate float64
}

var (
	debugOnce sync.Once
	debugCfg  debugSettings

	sampleCounter atomic.Uint64
)

func debugConfig() *debugSettings {
	debugOnce.Do(func() {
		level := os.Getenv("SETPOINT_FEATURE_DEBUG_LOG")
		rate := 1.0
		if s := os.Getenv("SETPOINT_FEATURE_DEBUG_LOG_SAMPLE_RATE"); s != "" {
			if parsed, err := strconv.ParseFloat(s, 64); err == nil {
				rate = parsed
			}
		}
		debugCfg = debugSettings{
			logParse:   level == "all" || level == "parse",
			logMatch:   level == "all" || level == "match",
			sampleRate: rate,
		}
	})
	return &debugCfg
}

func shouldSample(rate float64) bool {
	if rate >= 1.0 {
		return true
	}
	if rate <= 0.0 {
		return false
	}
	interval := uint64(math.Round(1.0 / rate))
	if interval < 1 {
		interval = 1
	}
	n := sampleCounter.Add(1) - 1
	return n%interval == 0
}
