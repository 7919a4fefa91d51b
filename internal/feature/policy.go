package feature

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Operator identifies a condition comparison.
type Operator uint8

const (
	OpIn Operator = iota
	OpNotIn
	OpContains
	OpNotContains
	OpEquals
	OpNotEquals
)

var operatorNames = map[string]Operator{
	"in":           OpIn,
	"not_in":       OpNotIn,
	"contains":     OpContains,
	"not_contains": OpNotContains,
	"equals":       OpEquals,
	"not_equals":   OpNotEquals,
}

// String returns the wire name of the operator.
func (o Operator) String() string {
	switch o {
	case OpIn:
		return "in"
	case OpNotIn:
		return "not_in"
	case OpContains:
		return "contains"
	case OpNotContains:
		return "not_contains"
	case OpEquals:
		return "equals"
	case OpNotEquals:
		return "not_equals"
	}
	return fmt.Sprintf("operator(%d)", uint8(o))
}

// Condition compares one context property against an operand.
type Condition struct {
	Name     string
	Property string
	Op       Operator

	// Operand is the decoded JSON operand: string, bool, json.Number,
	// nil, []any, or map[string]any.
	Operand any
}

// Segment is one ordered policy clause: conditions ANDed together plus a
// percentage rollout applied after the conditions match.
type Segment struct {
	Name       string
	Rollout    int // 0..255; values above 100 admit everyone
	Conditions []Condition
}

// Policy is a parsed feature-flag policy.
type Policy struct {
	Enabled  bool
	Segments []Segment
}

// PolicyError reports a malformed policy document. Evaluation of a policy
// that fails to parse degrades to false; it never reaches the caller as an
// error.
type PolicyError struct {
	Message string
}

// Error implements the error interface.
func (e *PolicyError) Error() string {
	return "invalid feature policy: " + e.Message
}

// IsPolicyError returns true if the error is a PolicyError.
func IsPolicyError(err error) bool {
	var pe *PolicyError
	return errors.As(err, &pe)
}

func policyErrorf(format string, args ...any) error {
	return &PolicyError{Message: fmt.Sprintf(format, args...)}
}

type rawPolicy struct {
	Enabled     *bool        `json:"enabled"`
	Description *string      `json:"description"`
	Owner       *rawOwner    `json:"owner"`
	Segments    []rawSegment `json:"segments"`
}

type rawOwner struct {
	Team  *string `json:"team"`
	Email *string `json:"email"`
}

type rawSegment struct {
	Name *string `json:"name"`

	// Decoded as any: a quoted number would sneak through json.Number,
	// and rollout must reject strings outright.
	Rollout    any            `json:"rollout"`
	Conditions []rawCondition `json:"conditions"`
}

type rawCondition struct {
	Name     *string      `json:"name"`
	Property *string      `json:"property"`
	Operator *rawOperator `json:"operator"`
}

type rawOperator struct {
	Kind  *string         `json:"kind"`
	Value json.RawMessage `json:"value"`
}

// ParsePolicy decodes a feature-policy document. Required fields are
// "enabled", per-segment "name", and per-condition "property" and
// "operator" (with "kind" and "value"). Missing segments or conditions
// default to empty; a missing rollout defaults to 100. Unknown fields
// are ignored.
func ParsePolicy(data []byte) (*Policy, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw rawPolicy
	if err := dec.Decode(&raw); err != nil {
		return nil, policyErrorf("%v", err)
	}
	if dec.More() {
		return nil, policyErrorf("trailing data after policy document")
	}
	if raw.Enabled == nil {
		return nil, policyErrorf("missing field %q", "enabled")
	}
	if raw.Owner != nil && raw.Owner.Team == nil {
		return nil, policyErrorf("owner missing field %q", "team")
	}

	policy := &Policy{
		Enabled:  *raw.Enabled,
		Segments: make([]Segment, 0, len(raw.Segments)),
	}
	for i, rs := range raw.Segments {
		seg, err := buildSegment(rs)
		if err != nil {
			return nil, policyErrorf("segment %d: %v", i, err)
		}
		policy.Segments = append(policy.Segments, seg)
	}
	return policy, nil
}

func buildSegment(raw rawSegment) (Segment, error) {
	if raw.Name == nil {
		return Segment{}, fmt.Errorf("missing field %q", "name")
	}

	rollout := 100
	if raw.Rollout != nil {
		num, ok := raw.Rollout.(json.Number)
		if !ok {
			return Segment{}, fmt.Errorf("rollout must be an integer, got %v", raw.Rollout)
		}
		n, err := parseRollout(num)
		if err != nil {
			return Segment{}, err
		}
		rollout = n
	}

	seg := Segment{
		Name:       *raw.Name,
		Rollout:    rollout,
		Conditions: make([]Condition, 0, len(raw.Conditions)),
	}
	for i, rc := range raw.Conditions {
		cond, err := buildCondition(rc)
		if err != nil {
			return Segment{}, fmt.Errorf("condition %d: %v", i, err)
		}
		seg.Conditions = append(seg.Conditions, cond)
	}
	return seg, nil
}

// parseRollout admits only integer tokens in [0, 255]. Fractional or
// exponent forms like 50.5 and 5e1 are rejected even when integral.
func parseRollout(n json.Number) (int, error) {
	s := n.String()
	if strings.ContainsAny(s, ".eE") {
		return 0, fmt.Errorf("rollout must be an integer, got %s", s)
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("rollout must be an integer, got %s", s)
	}
	if v < 0 || v > 255 {
		return 0, fmt.Errorf("rollout %d out of range [0, 255]", v)
	}
	return int(v), nil
}

func buildCondition(raw rawCondition) (Condition, error) {
	if raw.Property == nil {
		return Condition{}, fmt.Errorf("missing field %q", "property")
	}
	if raw.Operator == nil {
		return Condition{}, fmt.Errorf("missing field %q", "operator")
	}
	if raw.Operator.Kind == nil {
		return Condition{}, fmt.Errorf("operator missing field %q", "kind")
	}
	op, ok := operatorNames[*raw.Operator.Kind]
	if !ok {
		return Condition{}, fmt.Errorf("unknown operator kind %q", *raw.Operator.Kind)
	}
	if len(raw.Operator.Value) == 0 {
		return Condition{}, fmt.Errorf("operator missing field %q", "value")
	}

	operand, err := decodeOperand(raw.Operator.Value)
	if err != nil {
		return Condition{}, fmt.Errorf("operator value: %v", err)
	}

	cond := Condition{
		Property: *raw.Property,
		Op:       op,
		Operand:  operand,
	}
	if raw.Name != nil {
		cond.Name = *raw.Name
	}
	return cond, nil
}

// decodeOperand keeps numbers as json.Number so integer and float tokens
// stay distinguishable during comparison.
func decodeOperand(data json.RawMessage) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}
