package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFlagDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "setpoint.toml")
	writeFile(t, path, "format = \"json\"\nverbose = true\nlimit = 5\n")

	defaults, err := LoadFlagDefaults(path)
	require.NoError(t, err)

	assert.Equal(t, "json", defaults["format"])
	assert.Equal(t, true, defaults["verbose"])
	assert.Equal(t, int64(5), defaults["limit"])
}

func TestLoadFlagDefaultsMissingFile(t *testing.T) {
	_, err := LoadFlagDefaults(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config file")
}

func TestLoadFlagDefaultsBadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.toml")
	writeFile(t, path, "format = [unclosed\n")

	_, err := LoadFlagDefaults(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config file")
}

func newConfigTestCommand() (*cobra.Command, *string, *int) {
	var name string
	var count int
	cmd := &cobra.Command{Use: "probe", RunE: func(cmd *cobra.Command, args []string) error { return nil }}
	cmd.Flags().StringVar(&name, "name", "initial", "")
	cmd.Flags().IntVar(&count, "count", 1, "")
	return cmd, &name, &count
}

func TestFlagDefaultsApply(t *testing.T) {
	cmd, name, count := newConfigTestCommand()

	defaults := FlagDefaults{"name": "from-config", "count": int64(7)}
	require.NoError(t, defaults.Apply(cmd))

	assert.Equal(t, "from-config", *name)
	assert.Equal(t, 7, *count)
}

func TestFlagDefaultsApplyKeepsChangedFlags(t *testing.T) {
	cmd, name, _ := newConfigTestCommand()
	require.NoError(t, cmd.Flags().Set("name", "from-cli"))

	defaults := FlagDefaults{"name": "from-config"}
	require.NoError(t, defaults.Apply(cmd))

	assert.Equal(t, "from-cli", *name)
}

func TestFlagDefaultsApplySkipsUnknownKeys(t *testing.T) {
	cmd, name, _ := newConfigTestCommand()

	// Keys for other commands' flags must not error
	defaults := FlagDefaults{"out": "/tmp/x", "name": "from-config"}
	require.NoError(t, defaults.Apply(cmd))

	assert.Equal(t, "from-config", *name)
}

func TestFlagDefaultsApplyRejectsNonScalar(t *testing.T) {
	cmd, _, _ := newConfigTestCommand()

	defaults := FlagDefaults{"name": []any{"a", "b"}}
	err := defaults.Apply(cmd)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected a scalar value")
}

func TestFlagDefaultsApplyDuration(t *testing.T) {
	root := NewRootCommand()
	watch, _, err := root.Find([]string{"watch"})
	require.NoError(t, err)

	defaults := FlagDefaults{"interval": "10s"}
	require.NoError(t, defaults.Apply(watch))

	assert.Equal(t, "10s", watch.Flags().Lookup("interval").Value.String())
}

func TestScalarString(t *testing.T) {
	tests := []struct {
		name    string
		value   any
		want    string
		wantErr bool
	}{
		{name: "string", value: "hello", want: "hello"},
		{name: "bool", value: true, want: "true"},
		{name: "int64", value: int64(42), want: "42"},
		{name: "float64", value: 1.5, want: "1.5"},
		{name: "slice", value: []any{1, 2}, wantErr: true},
		{name: "table", value: map[string]any{"a": 1}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := scalarString(tt.value)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConfigFileDefaultsIntegration(t *testing.T) {
	schemas := schemasDir(t)
	configPath := filepath.Join(t.TempDir(), "setpoint.toml")
	writeFile(t, configPath, "format = \"json\"\n")

	var buf bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs([]string{"--config", configPath, "validate-schema", "--schemas", schemas})

	require.NoError(t, cmd.Execute())

	// Config file switched the output format to JSON
	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestConfigFileCommandLineWins(t *testing.T) {
	schemas := schemasDir(t)
	configPath := filepath.Join(t.TempDir(), "setpoint.toml")
	writeFile(t, configPath, "format = \"json\"\n")

	var buf bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs([]string{"--config", configPath, "--format", "text", "validate-schema", "--schemas", schemas})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "✓")
}
