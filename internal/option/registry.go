package option

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Registry holds every namespace schema loaded from a schemas directory.
// Built once at startup and then read-only.
type Registry struct {
	schemas map[string]*Schema
	names   []string // sorted
}

// LoadRegistry loads all schemas under dir, which must contain one
// subdirectory per namespace with a schema.json inside. Subdirectories
// without a schema.json and plain files are skipped. A missing directory
// is an error; a single invalid schema fails the whole load.
func LoadRegistry(dir string) (*Registry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read schemas directory: %w", err)
	}

	reg := &Registry{schemas: make(map[string]*Schema)}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		namespace := entry.Name()
		schemaPath := filepath.Join(dir, namespace, "schema.json")
		data, err := os.ReadFile(schemaPath)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("read schema for namespace %q: %w", namespace, err)
		}
		schema, err := ParseSchema(namespace, data)
		if err != nil {
			var serr *SchemaError
			if errors.As(err, &serr) && serr.File == "" {
				serr.File = schemaPath
			}
			return nil, err
		}
		reg.schemas[namespace] = schema
	}

	reg.names = make([]string, 0, len(reg.schemas))
	for name := range reg.schemas {
		reg.names = append(reg.names, name)
	}
	sort.Strings(reg.names)
	return reg, nil
}

// NewRegistry builds a registry from already-parsed schemas, keyed by
// namespace. Used by tests and by callers that assemble schemas in memory.
func NewRegistry(schemas ...*Schema) *Registry {
	reg := &Registry{schemas: make(map[string]*Schema, len(schemas))}
	for _, s := range schemas {
		reg.schemas[s.Namespace] = s
	}
	reg.names = make([]string, 0, len(reg.schemas))
	for name := range reg.schemas {
		reg.names = append(reg.names, name)
	}
	sort.Strings(reg.names)
	return reg
}

// Get returns the schema for namespace.
func (r *Registry) Get(namespace string) (*Schema, bool) {
	s, ok := r.schemas[namespace]
	return s, ok
}

// Namespaces returns all loaded namespace names in sorted order. The
// returned slice is shared; callers must not modify it.
func (r *Registry) Namespaces() []string {
	return r.names
}

// Len returns the number of loaded namespaces.
func (r *Registry) Len() int {
	return len(r.schemas)
}
