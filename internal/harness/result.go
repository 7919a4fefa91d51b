package harness

import (
	"github.com/roach88/setpoint/internal/option"
)

// ArtifactTrace records one produced artifact in both decoded and
// canonical form.
type ArtifactTrace struct {
	Namespace string
	Target    string

	// Name is the distribution file name.
	Name string

	// Digest is the artifact's content digest.
	Digest string

	// Options holds the document's typed values, keyed by option key.
	Options option.ValueSet

	// Data is the canonical serialized document.
	Data []byte
}

// Result is the outcome of one scenario run.
type Result struct {
	// Pass reports overall success: the pipeline outcome matched every
	// assertion. A failed pipeline still passes when a run_fails
	// assertion expected the failure.
	Pass bool

	// Artifacts lists the produced artifacts in build order, namespace
	// then target. Empty when the run failed.
	Artifacts []ArtifactTrace

	// Err is the pipeline failure, nil when generation succeeded.
	Err error

	// Errors lists assertion failure messages. Empty when Pass is true.
	Errors []string
}

// NewResult returns an empty passing result.
func NewResult() *Result {
	return &Result{Pass: true, Artifacts: []ArtifactTrace{}}
}

// SetFailure records the pipeline failure for assertion inspection.
func (r *Result) SetFailure(err error) {
	r.Err = err
}

// AddError records an assertion failure and fails the result.
func (r *Result) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
	r.Pass = false
}

// Artifact returns the trace for one namespace/target pair.
func (r *Result) Artifact(namespace, target string) (ArtifactTrace, bool) {
	for _, a := range r.Artifacts {
		if a.Namespace == namespace && a.Target == target {
			return a, true
		}
	}
	return ArtifactTrace{}, false
}
