package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/setpoint/internal/generate"
	"github.com/roach88/setpoint/internal/option"
)

// AssertionError describes one failed assertion with enough context to
// diagnose it without re-running the scenario.
type AssertionError struct {
	Type     string // assertion type, for categorization
	Expected string // human-readable expected outcome
	Actual   string // human-readable actual outcome

	// Artifacts is the run's full artifact list, for context.
	Artifacts []ArtifactTrace
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)
	if len(e.Artifacts) > 0 {
		fmt.Fprintf(&buf, "\nArtifacts produced:\n")
		for i, a := range e.Artifacts {
			fmt.Fprintf(&buf, "  [%d] %s/%s %s\n", i+1, a.Namespace, a.Target, a.Name)
		}
	}
	return buf.String()
}

// EvaluateAssertions checks every assertion against the result and
// returns the failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var failures []string
	for i, assertion := range assertions {
		var err error
		switch assertion.Type {
		case AssertArtifactContains:
			err = assertArtifactContains(result, assertion)
		case AssertArtifactAbsent:
			err = assertArtifactAbsent(result, assertion)
		case AssertArtifactCount:
			err = assertArtifactCount(result, assertion)
		case AssertRunFails:
			err = assertRunFails(result, assertion)
		default:
			err = fmt.Errorf("assertions[%d]: unknown assertion type %q", i, assertion.Type)
		}
		if err != nil {
			failures = append(failures, err.Error())
		}
	}
	return failures
}

// assertArtifactContains checks that an artifact exists for the
// namespace/target pair and carries every listed option with an equal
// typed value. Extra artifact keys are ignored.
func assertArtifactContains(result *Result, assertion Assertion) error {
	want := fmt.Sprintf("artifact for %s/%s with options %v",
		assertion.Namespace, assertion.Target, assertion.Options)
	if result.Err != nil {
		return &AssertionError{
			Type:     AssertArtifactContains,
			Expected: want,
			Actual:   fmt.Sprintf("run failed: %v", result.Err),
		}
	}

	trace, ok := result.Artifact(assertion.Namespace, assertion.Target)
	if !ok {
		return &AssertionError{
			Type:      AssertArtifactContains,
			Expected:  want,
			Actual:    "no artifact for that namespace/target pair",
			Artifacts: result.Artifacts,
		}
	}

	for _, key := range sortedKeys(assertion.Options) {
		expected, err := option.FromGoValue(assertion.Options[key])
		if err != nil {
			return fmt.Errorf("assertion option %q: %w", key, err)
		}
		actual, ok := trace.Options[key]
		if !ok {
			return &AssertionError{
				Type:      AssertArtifactContains,
				Expected:  fmt.Sprintf("option %q in %s", key, trace.Name),
				Actual:    "key absent from artifact",
				Artifacts: result.Artifacts,
			}
		}
		if !option.Equal(expected, actual) {
			return &AssertionError{
				Type:      AssertArtifactContains,
				Expected:  fmt.Sprintf("option %q = %v (%s)", key, option.GoValue(expected), expected.Kind()),
				Actual:    fmt.Sprintf("option %q = %v (%s)", key, option.GoValue(actual), actual.Kind()),
				Artifacts: result.Artifacts,
			}
		}
	}
	return nil
}

// assertArtifactAbsent checks that no artifact exists for the
// namespace/target pair.
func assertArtifactAbsent(result *Result, assertion Assertion) error {
	if trace, ok := result.Artifact(assertion.Namespace, assertion.Target); ok {
		return &AssertionError{
			Type:      AssertArtifactAbsent,
			Expected:  fmt.Sprintf("no artifact for %s/%s", assertion.Namespace, assertion.Target),
			Actual:    fmt.Sprintf("found %s", trace.Name),
			Artifacts: result.Artifacts,
		}
	}
	return nil
}

// assertArtifactCount checks that the run produced exactly the expected
// number of artifacts.
func assertArtifactCount(result *Result, assertion Assertion) error {
	if len(result.Artifacts) == assertion.Count {
		return nil
	}
	actual := fmt.Sprintf("%d artifact(s)", len(result.Artifacts))
	if result.Err != nil {
		actual = fmt.Sprintf("run failed: %v", result.Err)
	}
	return &AssertionError{
		Type:      AssertArtifactCount,
		Expected:  fmt.Sprintf("%d artifact(s)", assertion.Count),
		Actual:    actual,
		Artifacts: result.Artifacts,
	}
}

// assertRunFails checks that the pipeline failed, optionally with a
// specific failure kind and message substring.
func assertRunFails(result *Result, assertion Assertion) error {
	want := describeExpectedFailure(assertion)
	if result.Err == nil {
		return &AssertionError{
			Type:      AssertRunFails,
			Expected:  want,
			Actual:    fmt.Sprintf("run succeeded with %d artifact(s)", len(result.Artifacts)),
			Artifacts: result.Artifacts,
		}
	}
	if assertion.Kind != "" && !failureKindMatches(assertion.Kind, result.Err) {
		return &AssertionError{
			Type:     AssertRunFails,
			Expected: want,
			Actual:   fmt.Sprintf("failure of a different kind: %v", result.Err),
		}
	}
	if assertion.Contains != "" && !strings.Contains(result.Err.Error(), assertion.Contains) {
		return &AssertionError{
			Type:     AssertRunFails,
			Expected: want,
			Actual:   fmt.Sprintf("failure message: %v", result.Err),
		}
	}
	return nil
}

func describeExpectedFailure(assertion Assertion) string {
	switch {
	case assertion.Kind != "" && assertion.Contains != "":
		return fmt.Sprintf("%s failure containing %q", assertion.Kind, assertion.Contains)
	case assertion.Kind != "":
		return fmt.Sprintf("%s failure", assertion.Kind)
	default:
		return fmt.Sprintf("failure containing %q", assertion.Contains)
	}
}

// failureKindMatches classifies a pipeline error against a scenario
// failure kind using the libraries' own predicates.
func failureKindMatches(kind string, err error) bool {
	switch kind {
	case KindSchema:
		return option.IsSchemaError(err)
	case KindValidation:
		return option.IsValidationError(err)
	case KindAuthoring:
		return generate.IsAuthoringError(err)
	case KindSize:
		return generate.IsSizeError(err)
	default:
		return false
	}
}
