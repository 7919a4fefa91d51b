package generate

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/roach88/setpoint/internal/option"
)

// MaxArtifactSize is the ceiling for one serialized artifact: the
// Kubernetes ConfigMap limit of 1MiB minus 1000 bytes of etcd/protobuf
// overhead. Exceeding it fails the run; artifacts are never truncated.
const MaxArtifactSize = 1024*1024 - 1000

// artifactDomain versions the digest computation so the algorithm can
// migrate without colliding with old digests.
const artifactDomain = "setpoint/artifact/v1"

// Artifact is one distributable values document for a (namespace, target)
// pair.
type Artifact struct {
	Namespace string
	Target    string

	// Name is the deterministic distribution file name.
	Name string

	// Data is the canonical serialized document.
	Data []byte
}

// Digest returns the artifact's content digest: SHA-256 over a domain
// prefix, a null separator, and the canonical bytes.
func (a Artifact) Digest() string {
	h := sha256.New()
	h.Write([]byte(artifactDomain))
	h.Write([]byte{0x00})
	h.Write(a.Data)
	return hex.EncodeToString(h.Sum(nil))
}

// ArtifactName returns the distribution file name for a namespace and
// target.
func ArtifactName(namespace, target string) string {
	return fmt.Sprintf("setpoint-%s-%s.json", namespace, target)
}

// BuildArtifacts produces one artifact per (namespace, target) pair in the
// tree, skipping the default target, which exists only as the base layer.
// Each artifact bakes the full effective value set, so readers never need
// the default layer at runtime. Results are ordered by namespace then
// target. Any oversized artifact fails the whole run before anything is
// written.
func BuildArtifacts(tree Tree, reg *option.Registry) ([]Artifact, error) {
	var artifacts []Artifact
	for _, namespace := range tree.Namespaces() {
		schema, ok := reg.Get(namespace)
		if !ok {
			return nil, &AuthoringError{
				Path:    namespace,
				Message: fmt.Sprintf("unknown namespace %q: no schema found", namespace),
			}
		}
		base := MergeLayer(tree[namespace][DefaultTarget])
		for _, target := range tree.Targets(namespace) {
			if target == DefaultTarget {
				continue
			}
			effective := option.Resolve(schema, base, MergeLayer(tree[namespace][target]))
			data, err := option.EncodeArtifact(effective)
			if err != nil {
				return nil, fmt.Errorf("encode artifact for %s/%s: %w", namespace, target, err)
			}
			if len(data) > MaxArtifactSize {
				return nil, &SizeError{
					Name:      ArtifactName(namespace, target),
					Namespace: namespace,
					Target:    target,
					Size:      len(data),
					Limit:     MaxArtifactSize,
				}
			}
			artifacts = append(artifacts, Artifact{
				Namespace: namespace,
				Target:    target,
				Name:      ArtifactName(namespace, target),
				Data:      data,
			})
		}
	}
	return artifacts, nil
}

// ResolveTarget builds the effective value set for one namespace and
// target from the tree. Target may be the default target, in which case
// the base layer resolves alone.
func ResolveTarget(tree Tree, reg *option.Registry, namespace, target string) (option.ValueSet, error) {
	targets, ok := tree[namespace]
	if !ok {
		return nil, &AuthoringError{
			Path:    namespace,
			Message: fmt.Sprintf("namespace %q not found in values tree", namespace),
		}
	}
	schema, ok := reg.Get(namespace)
	if !ok {
		return nil, &AuthoringError{
			Path:    namespace,
			Message: fmt.Sprintf("unknown namespace %q: no schema found", namespace),
		}
	}
	base := MergeLayer(targets[DefaultTarget])
	if target == DefaultTarget {
		return option.Resolve(schema, base, nil), nil
	}
	files, ok := targets[target]
	if !ok {
		return nil, &AuthoringError{
			Path:    namespace,
			Message: fmt.Sprintf("target %q not found in namespace %q", target, namespace),
		}
	}
	return option.Resolve(schema, base, MergeLayer(files)), nil
}

// WriteArtifacts writes every artifact into dir, creating it as needed.
// Existing files with the same names are replaced.
func WriteArtifacts(dir string, artifacts []Artifact) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	for _, a := range artifacts {
		if err := os.WriteFile(filepath.Join(dir, a.Name), a.Data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", a.Name, err)
		}
	}
	return nil
}
