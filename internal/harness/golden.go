package harness

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// runSnapshot is the golden-file shape for one scenario run: the
// scenario name plus every artifact's name, digest, and canonical
// document. Both the field order and the document bytes are
// deterministic, so snapshots are byte-stable across runs.
type runSnapshot struct {
	Scenario  string           `json:"scenario"`
	Artifacts []artifactRecord `json:"artifacts"`
}

type artifactRecord struct {
	Name     string          `json:"name"`
	Digest   string          `json:"digest"`
	Document json.RawMessage `json:"document"`
}

// RunWithGolden executes a scenario, reports its assertion failures on
// t, and compares the run snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// Regenerate fixtures with:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}
	for _, msg := range result.Errors {
		t.Error(msg)
	}
	return AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares an already-computed result against the named
// golden snapshot. Useful when a test has run a scenario itself and
// wants both custom checks and the golden comparison.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	snapshot := runSnapshot{
		Scenario:  scenarioName,
		Artifacts: make([]artifactRecord, 0, len(result.Artifacts)),
	}
	for _, a := range result.Artifacts {
		snapshot.Artifacts = append(snapshot.Artifacts, artifactRecord{
			Name:     a.Name,
			Digest:   a.Digest,
			Document: json.RawMessage(a.Data),
		})
	}

	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}
