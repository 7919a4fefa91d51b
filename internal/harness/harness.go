// Package harness executes generation conformance scenarios: YAML
// documents declaring namespace schemas, an authoring tree, and
// assertions over the artifacts generated from them. Each scenario is
// materialized in a scratch directory and run through the same loader
// and artifact builder the write command uses, so one scenario
// exercises schema parsing, tree validation, layered resolution, and
// canonical encoding end to end.
package harness

import (
	"fmt"
	"os"
	"sort"

	"github.com/roach88/setpoint/internal/generate"
	"github.com/roach88/setpoint/internal/option"
	"github.com/roach88/setpoint/internal/testutil"
)

// Run executes one scenario and returns its result.
//
// Pipeline failures (schema parse, tree load, artifact build) are
// captured on the result where run_fails assertions can inspect them.
// The returned error is reserved for harness infrastructure failures,
// such as an unwritable scratch directory.
func Run(scenario *Scenario) (*Result, error) {
	root, err := os.MkdirTemp("", "setpoint-harness-*")
	if err != nil {
		return nil, fmt.Errorf("create scratch directory: %w", err)
	}
	defer os.RemoveAll(root)

	if err := testutil.WriteTree(root, scenario.Tree); err != nil {
		return nil, fmt.Errorf("materialize authoring tree: %w", err)
	}

	result := NewResult()
	artifacts, err := execute(root, scenario)
	if err != nil {
		result.SetFailure(err)
	}
	for _, a := range artifacts {
		trace, err := traceArtifact(a)
		if err != nil {
			return nil, fmt.Errorf("decode artifact %s: %w", a.Name, err)
		}
		result.Artifacts = append(result.Artifacts, trace)
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

// execute runs the generation pipeline over the materialized tree.
func execute(root string, scenario *Scenario) ([]generate.Artifact, error) {
	schemas := make([]*option.Schema, 0, len(scenario.Schemas))
	for _, namespace := range sortedKeys(scenario.Schemas) {
		schema, err := option.ParseSchema(namespace, []byte(scenario.Schemas[namespace]))
		if err != nil {
			return nil, err
		}
		schemas = append(schemas, schema)
	}
	reg := option.NewRegistry(schemas...)

	tree, err := generate.LoadTree(root, reg)
	if err != nil {
		return nil, err
	}
	return generate.BuildArtifacts(tree, reg)
}

// traceArtifact decodes an artifact's canonical document back into
// typed values for assertion matching.
func traceArtifact(a generate.Artifact) (ArtifactTrace, error) {
	raw, err := option.DecodeValuesDocument(a.Data)
	if err != nil {
		return ArtifactTrace{}, err
	}
	values := make(option.ValueSet, len(raw))
	for key, rv := range raw {
		v, err := option.FromGoValue(rv)
		if err != nil {
			return ArtifactTrace{}, fmt.Errorf("key %q: %w", key, err)
		}
		values[key] = v
	}
	return ArtifactTrace{
		Namespace: a.Namespace,
		Target:    a.Target,
		Name:      a.Name,
		Digest:    a.Digest(),
		Options:   values,
		Data:      a.Data,
	}, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
