package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/setpoint/internal/testutil"
)

const relaySchemaDoc = `{
	"version": "1.0",
	"type": "object",
	"properties": {
		"timeout.seconds": {
			"type": "integer",
			"default": 30,
			"description": "Upstream timeout"
		},
		"ingest.url": {
			"type": "string",
			"default": ""
		}
	}
}`

const flagsSchemaDoc = `{
	"version": "1.0",
	"type": "object",
	"properties": {
		"features.rollout-ui": {
			"type": "string",
			"default": "{\"enabled\": false}"
		}
	}
}`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// schemasDir lays out a schemas directory with relay and flags schemas.
func schemasDir(t *testing.T) string {
	t.Helper()
	return testutil.SchemasDir(t, map[string]string{
		"relay": relaySchemaDoc,
		"flags": flagsSchemaDoc,
	})
}

// authoringTree lays out a relay namespace with a default base layer and
// one prod target.
func authoringTree(t *testing.T) string {
	t.Helper()
	return testutil.TempTree(t, map[string]string{
		"relay/default/base.yaml": "options:\n  timeout.seconds: 30\n",
		"relay/prod/overrides.yaml": "options:\n  timeout.seconds: 60\n" +
			"  ingest.url: \"https://ingest.example.com\"\n",
	})
}

// optionsDir lays out a runtime directory with schemas/ and values/
// subdirectories, for the watch command.
func optionsDir(t *testing.T) string {
	t.Helper()
	return testutil.OptionsDir(t,
		map[string]string{"relay": relaySchemaDoc},
		map[string]string{"relay": `{"options": {"timeout.seconds": 60}}`},
	)
}
