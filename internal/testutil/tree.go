package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// WriteTree writes each file, keyed by slash-separated relative path,
// under root, creating directories as needed.
func WriteTree(root string, files map[string]string) error {
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("create %s: %w", filepath.Dir(path), err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", rel, err)
		}
	}
	return nil
}

// TempTree materializes files under a fresh test temp directory and
// returns its root.
func TempTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, WriteTree(root, files))
	return root
}

// SchemasDir writes one schema document per namespace in the layout the
// registry loader reads: {dir}/{namespace}/schema.json.
func SchemasDir(t *testing.T, docs map[string]string) string {
	t.Helper()
	files := make(map[string]string, len(docs))
	for namespace, doc := range docs {
		files[namespace+"/schema.json"] = doc
	}
	return TempTree(t, files)
}

// OptionsDir writes a read-side options directory: schema documents
// under schemas/ and values documents under values/. A namespace may
// appear in schemas only; its values document is simply absent.
func OptionsDir(t *testing.T, schemas, values map[string]string) string {
	t.Helper()
	files := make(map[string]string, len(schemas)+len(values))
	for namespace, doc := range schemas {
		files["schemas/"+namespace+"/schema.json"] = doc
	}
	for namespace, doc := range values {
		files["values/"+namespace+"/values.json"] = doc
	}
	return TempTree(t, files)
}
