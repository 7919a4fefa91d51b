package generate

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/setpoint/internal/option"
)

// DefaultTarget is the mandatory base layer every other target inherits
// from. It is resolved into every artifact but never distributed itself.
const DefaultTarget = "default"

// FileValues is one authoring document, already validated against its
// namespace schema.
type FileValues struct {
	// Path is the document's location relative to the tree root.
	Path string

	// Values holds the document's typed option values.
	Values option.ValueSet
}

// Tree groups validated authoring documents by namespace, then target.
// Files within a target are sorted by path; merging applies them in that
// order with later files winning on duplicate keys.
type Tree map[string]map[string][]FileValues

// Namespaces returns the tree's namespaces in sorted order.
func (t Tree) Namespaces() []string {
	names := make([]string, 0, len(t))
	for ns := range t {
		names = append(names, ns)
	}
	sort.Strings(names)
	return names
}

// Targets returns one namespace's targets in sorted order.
func (t Tree) Targets(namespace string) []string {
	targets := make([]string, 0, len(t[namespace]))
	for target := range t[namespace] {
		targets = append(targets, target)
	}
	sort.Strings(targets)
	return targets
}

// LoadTree walks an authoring tree laid out as
// {root}/{namespace}/{target}/{file}.yaml and validates every document
// against the registry. Documents must sit exactly three levels deep, the
// namespace must have a schema, and the extension must be .yaml (.yml is
// rejected outright; other extensions are ignored). Every namespace that
// contributes at least one document must include the default target.
func LoadTree(root string, reg *option.Registry) (Tree, error) {
	tree := make(Tree)

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return &AuthoringError{Path: path, Message: fmt.Sprintf("resolve relative path: %v", err)}
		}
		parts := strings.Split(filepath.ToSlash(rel), "/")
		if len(parts) != 3 {
			return &AuthoringError{
				Path:    rel,
				Message: "invalid directory structure: expected namespace/target/file.yaml",
			}
		}
		namespace, target, name := parts[0], parts[1], parts[2]

		schema, ok := reg.Get(namespace)
		if !ok {
			return &AuthoringError{
				Path:    rel,
				Message: fmt.Sprintf("unknown namespace %q: no schema found", namespace),
			}
		}
		if strings.HasSuffix(name, ".yml") {
			return &AuthoringError{Path: rel, Message: "expected .yaml extension, found .yml"}
		}
		if !strings.HasSuffix(name, ".yaml") {
			return nil
		}

		values, err := loadValuesFile(path, schema)
		if err != nil {
			return err
		}

		byTarget, ok := tree[namespace]
		if !ok {
			byTarget = make(map[string][]FileValues)
			tree[namespace] = byTarget
		}
		byTarget[target] = append(byTarget[target], FileValues{Path: rel, Values: values})
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, namespace := range tree.Namespaces() {
		if _, ok := tree[namespace][DefaultTarget]; !ok {
			return nil, &AuthoringError{
				Path:    namespace,
				Message: fmt.Sprintf("namespace %q is missing the required %q target", namespace, DefaultTarget),
			}
		}
	}

	// deterministic merge order
	for _, targets := range tree {
		for _, files := range targets {
			sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
		}
	}
	return tree, nil
}

// loadValuesFile parses one authoring document. The document must be a
// mapping with exactly one top-level "options" key whose value is itself a
// mapping; the values are then schema-validated.
func loadValuesFile(path string, schema *option.Schema) (option.ValueSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &AuthoringError{Path: path, Message: fmt.Sprintf("parse YAML: %v", err)}
	}
	if len(doc) != 1 {
		return nil, &AuthoringError{
			Path:    path,
			Message: fmt.Sprintf("expected exactly one top-level key %q, found %s", "options", topLevelKeys(doc)),
		}
	}
	rawOptions, ok := doc["options"]
	if !ok {
		return nil, &AuthoringError{
			Path:    path,
			Message: fmt.Sprintf("expected top-level key %q, found %s", "options", topLevelKeys(doc)),
		}
	}
	optionsMap, ok := rawOptions.(map[string]any)
	if !ok {
		// yaml.v3 falls back to map[any]any when a key is not a string
		if _, isMap := rawOptions.(map[any]any); isMap {
			return nil, &AuthoringError{Path: path, Message: "option keys must be strings"}
		}
		return nil, &AuthoringError{Path: path, Message: `expected "options" to be a mapping`}
	}

	values, err := option.Validate(schema, option.RawValues(optionsMap))
	if err != nil {
		return nil, fmt.Errorf("in file %s: %w", path, err)
	}
	return values, nil
}

func topLevelKeys(doc map[string]any) string {
	keys := make([]string, 0, len(doc))
	for k := range doc {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return fmt.Sprintf("%q", keys)
}

// MergeLayer flattens one target's documents into a single layer. Files
// apply in path order, so on duplicate keys the lexicographically last
// file wins.
func MergeLayer(files []FileValues) option.ValueSet {
	merged := make(option.ValueSet)
	for _, f := range files {
		for k, v := range f.Values {
			merged[k] = v
		}
	}
	return merged
}
