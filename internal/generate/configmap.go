package generate

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/setpoint/internal/option"
)

// ConfigMap is a Kubernetes ConfigMap manifest carrying one namespace's
// values document. The manifest name depends only on the namespace; the
// cluster a manifest is applied to implies the target, so two targets of
// the same namespace produce manifests with the same name.
type ConfigMap struct {
	APIVersion string            `yaml:"apiVersion"`
	Kind       string            `yaml:"kind"`
	Metadata   ConfigMapMetadata `yaml:"metadata"`
	Data       map[string]string `yaml:"data"`
}

// ConfigMapMetadata is the manifest metadata block.
type ConfigMapMetadata struct {
	Name        string            `yaml:"name"`
	Labels      map[string]string `yaml:"labels"`
	Annotations map[string]string `yaml:"annotations"`
}

// ConfigMapMeta carries provenance recorded as manifest annotations.
type ConfigMapMeta struct {
	// GeneratedAt is an RFC 3339 timestamp of the generation run.
	GeneratedAt string

	// CommitSHA is the values-repo commit the run was generated from.
	CommitSHA string

	// CommitTimestamp is the commit's timestamp, for propagation-delay
	// tracking.
	CommitTimestamp string
}

// valuesDataKey is the ConfigMap data key holding the values document.
// It matches the file name the runtime store reads after the manifest is
// mounted into a namespace directory.
const valuesDataKey = "values.json"

// BuildConfigMap renders one (namespace, target) pair of the tree as a
// ConfigMap manifest. The default target is the inherited base layer and
// is never distributed on its own.
func BuildConfigMap(tree Tree, reg *option.Registry, namespace, target string, meta ConfigMapMeta) (*ConfigMap, error) {
	if target == DefaultTarget {
		return nil, &AuthoringError{
			Path:    namespace,
			Message: fmt.Sprintf("target %q is the base layer and is never distributed", DefaultTarget),
		}
	}
	effective, err := ResolveTarget(tree, reg, namespace, target)
	if err != nil {
		return nil, err
	}
	data, err := option.EncodeArtifact(effective)
	if err != nil {
		return nil, fmt.Errorf("encode values for %s/%s: %w", namespace, target, err)
	}

	annotations := make(map[string]string)
	if meta.GeneratedAt != "" {
		annotations["generated_at"] = meta.GeneratedAt
	}
	if meta.CommitSHA != "" {
		annotations["commit_sha"] = meta.CommitSHA
	}
	if meta.CommitTimestamp != "" {
		annotations["commit_timestamp"] = meta.CommitTimestamp
	}

	return &ConfigMap{
		APIVersion: "v1",
		Kind:       "ConfigMap",
		Metadata: ConfigMapMetadata{
			Name:        fmt.Sprintf("setpoint-%s", namespace),
			Labels:      map[string]string{"app.kubernetes.io/managed-by": "setpoint"},
			Annotations: annotations,
		},
		Data: map[string]string{valuesDataKey: string(data)},
	}, nil
}

// RenderConfigMap marshals the manifest as YAML, enforcing the same size
// ceiling as JSON artifacts on the rendered document.
func RenderConfigMap(cm *ConfigMap) ([]byte, error) {
	out, err := yaml.Marshal(cm)
	if err != nil {
		return nil, fmt.Errorf("marshal ConfigMap: %w", err)
	}
	if len(out) > MaxArtifactSize {
		return nil, &SizeError{
			Name:  cm.Metadata.Name,
			Size:  len(out),
			Limit: MaxArtifactSize,
		}
	}
	return out, nil
}

// ConfigMapFileName returns the manifest file name for a namespace and
// target. Manifest names depend only on the namespace; file names keep
// targets of one namespace apart within a single output directory.
func ConfigMapFileName(namespace, target string) string {
	return fmt.Sprintf("setpoint-%s-%s.yaml", namespace, target)
}

// WriteConfigMaps renders every non-default (namespace, target) pair of
// the tree as a ConfigMap manifest under dir, creating it as needed.
// Returns the written file names ordered by namespace then target.
func WriteConfigMaps(dir string, tree Tree, reg *option.Registry, meta ConfigMapMeta) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	var names []string
	for _, namespace := range tree.Namespaces() {
		for _, target := range tree.Targets(namespace) {
			if target == DefaultTarget {
				continue
			}
			cm, err := BuildConfigMap(tree, reg, namespace, target, meta)
			if err != nil {
				return nil, err
			}
			out, err := RenderConfigMap(cm)
			if err != nil {
				return nil, err
			}
			name := ConfigMapFileName(namespace, target)
			if err := os.WriteFile(filepath.Join(dir, name), out, 0o644); err != nil {
				return nil, fmt.Errorf("write %s: %w", name, err)
			}
			names = append(names, name)
		}
	}
	return names, nil
}
