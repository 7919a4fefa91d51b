package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// Scenario defines one generation conformance case: the schemas and
// authoring documents to generate from, plus assertions over the
// outcome.
type Scenario struct {
	// Name uniquely identifies the scenario. It doubles as the golden
	// file name, so it must be stable and filesystem safe.
	Name string `yaml:"name"`

	// Description explains what the scenario demonstrates.
	Description string `yaml:"description"`

	// Schemas maps each namespace to its schema document (JSON).
	Schemas map[string]string `yaml:"schemas"`

	// Tree maps authoring file paths, relative to the tree root in
	// namespace/target/file.yaml form, to document bodies.
	Tree map[string]string `yaml:"tree"`

	// Assertions validate the produced artifacts or the failure.
	Assertions []Assertion `yaml:"assertions"`
}

// Assertion validates one aspect of a scenario run.
type Assertion struct {
	// Type selects the assertion:
	//   - "artifact_contains": an artifact exists for Namespace/Target
	//     and carries the listed Options (subset match)
	//   - "artifact_absent": no artifact exists for Namespace/Target
	//   - "artifact_count": exactly Count artifacts were produced
	//   - "run_fails": generation failed with the expected error
	Type string `yaml:"type"`

	// Namespace and Target select an artifact. Used by
	// artifact_contains and artifact_absent.
	Namespace string `yaml:"namespace,omitempty"`
	Target    string `yaml:"target,omitempty"`

	// Options are the expected key/value pairs for artifact_contains.
	// Matching is strictly typed: write 1.0, not 1, to match a number
	// option. Extra artifact keys are ignored.
	Options map[string]any `yaml:"options,omitempty"`

	// Count is the expected artifact count for artifact_count.
	Count int `yaml:"count,omitempty"`

	// Kind classifies the expected failure for run_fails: one of
	// "schema", "validation", "authoring", "size".
	Kind string `yaml:"kind,omitempty"`

	// Contains is a substring the failure message must carry for
	// run_fails. At least one of Kind and Contains must be set.
	Contains string `yaml:"contains,omitempty"`
}

// Assertion types a scenario may declare.
const (
	AssertArtifactContains = "artifact_contains"
	AssertArtifactAbsent   = "artifact_absent"
	AssertArtifactCount    = "artifact_count"
	AssertRunFails         = "run_fails"
)

// Failure kinds accepted by run_fails assertions. Each maps to the
// corresponding error predicate in the option and generate packages.
const (
	KindSchema     = "schema"
	KindValidation = "validation"
	KindAuthoring  = "authoring"
	KindSize       = "size"
)

var validKinds = map[string]bool{
	KindSchema:     true,
	KindValidation: true,
	KindAuthoring:  true,
	KindSize:       true,
}

// LoadScenario reads and parses one scenario YAML file. Unknown fields
// are rejected so a typo like "assertion:" fails loudly instead of
// silently skipping checks.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}

	var scenario Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// LoadDir loads every scenario under dir, one per .yaml file, in file
// name order. Scenario names must be unique within the directory since
// they key golden files.
func LoadDir(dir string) ([]*Scenario, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read scenario directory: %w", err)
	}

	var scenarios []*Scenario
	seen := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		scenario, err := LoadScenario(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", entry.Name(), err)
		}
		if prev, ok := seen[scenario.Name]; ok {
			return nil, fmt.Errorf("%s: scenario name %q already used by %s", entry.Name(), scenario.Name, prev)
		}
		seen[scenario.Name] = entry.Name()
		scenarios = append(scenarios, scenario)
	}
	return scenarios, nil
}

// validateScenario rejects documents missing a required section and tree
// paths that would escape the scratch root.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Schemas) == 0 {
		return fmt.Errorf("schemas map is required and must be non-empty")
	}
	if len(s.Tree) == 0 {
		return fmt.Errorf("tree map is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for _, rel := range sortedKeys(s.Tree) {
		if filepath.IsAbs(rel) || slices.Contains(strings.Split(filepath.ToSlash(rel), "/"), "..") {
			return fmt.Errorf("tree path %q must stay inside the tree root", rel)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion checks the fields each assertion type requires.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertArtifactContains:
		if a.Namespace == "" || a.Target == "" {
			return fmt.Errorf("assertions[%d]: namespace and target are required for %s", index, a.Type)
		}
		if len(a.Options) == 0 {
			return fmt.Errorf("assertions[%d]: options map is required for %s", index, a.Type)
		}
	case AssertArtifactAbsent:
		if a.Namespace == "" || a.Target == "" {
			return fmt.Errorf("assertions[%d]: namespace and target are required for %s", index, a.Type)
		}
	case AssertArtifactCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	case AssertRunFails:
		if a.Kind == "" && a.Contains == "" {
			return fmt.Errorf("assertions[%d]: at least one of kind and contains is required for %s", index, a.Type)
		}
		if a.Kind != "" && !validKinds[a.Kind] {
			return fmt.Errorf("assertions[%d]: unknown failure kind %q", index, a.Kind)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
