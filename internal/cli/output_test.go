package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/setpoint/internal/generate"
	"github.com/roach88/setpoint/internal/option"
)

func TestOutputFormatterSuccessText(t *testing.T) {
	var buf bytes.Buffer
	f := &OutputFormatter{Format: "text", Writer: &buf}

	err := f.Success("all good")
	require.NoError(t, err)
	assert.Equal(t, "all good\n", buf.String())
}

func TestOutputFormatterSuccessJSON(t *testing.T) {
	var buf bytes.Buffer
	f := &OutputFormatter{Format: "json", Writer: &buf}

	err := f.Success(map[string]int{"count": 3})
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Nil(t, resp.Error)

	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(3), data["count"])
}

func TestOutputFormatterErrorText(t *testing.T) {
	var buf bytes.Buffer
	f := &OutputFormatter{Format: "text", Writer: &buf}

	err := f.Error(ErrCodeNotFound, "no such directory", nil)
	require.NoError(t, err)
	assert.Equal(t, "Error [E002]: no such directory\n", buf.String())
}

func TestOutputFormatterErrorTextVerboseDetails(t *testing.T) {
	var buf bytes.Buffer
	f := &OutputFormatter{Format: "text", Writer: &buf, Verbose: true}

	err := f.Error(ErrCodeGeneric, "boom", "extra context")
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Error [E001]: boom")
	assert.Contains(t, buf.String(), "Details: extra context")
}

func TestOutputFormatterErrorJSON(t *testing.T) {
	var buf bytes.Buffer
	f := &OutputFormatter{Format: "json", Writer: &buf}

	err := f.Error(ErrCodeValidation, "2 violations", []string{"a", "b"})
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E102", resp.Error.Code)
	assert.Equal(t, "2 violations", resp.Error.Message)
	assert.NotNil(t, resp.Error.Details)
}

func TestOutputFormatterVerboseLog(t *testing.T) {
	var out, errOut bytes.Buffer
	f := &OutputFormatter{Format: "json", Writer: &out, ErrWriter: &errOut, Verbose: true}

	f.VerboseLog("checked %d namespaces", 4)
	// Diagnostics must not land in the JSON stream
	assert.Empty(t, out.String())
	assert.Equal(t, "checked 4 namespaces\n", errOut.String())
}

func TestOutputFormatterVerboseLogDisabled(t *testing.T) {
	var buf bytes.Buffer
	f := &OutputFormatter{Format: "text", Writer: &buf}

	f.VerboseLog("should not appear")
	assert.Empty(t, buf.String())
}

func TestExitError(t *testing.T) {
	err := NewExitError(ExitFailure, "validation failed")
	assert.Equal(t, "validation failed", err.Error())
	assert.Equal(t, ExitFailure, err.Code)

	wrapped := WrapExitError(ExitCommandError, "load schemas", errors.New("permission denied"))
	assert.Equal(t, "load schemas: permission denied", wrapped.Error())
	assert.Equal(t, "permission denied", wrapped.Unwrap().Error())
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
		wantExit int
	}{
		{
			name:     "schema error",
			err:      &option.SchemaError{Namespace: "relay", Message: "default out of range"},
			wantCode: ErrCodeSchema,
			wantExit: ExitFailure,
		},
		{
			name: "validation errors",
			err: option.ValidationErrors{{
				Code:      option.CodeTypeMismatch,
				Namespace: "relay",
				Key:       "timeout.seconds",
				Expected:  "integer",
				Actual:    "string",
			}},
			wantCode: ErrCodeValidation,
			wantExit: ExitFailure,
		},
		{
			name:     "authoring error",
			err:      &generate.AuthoringError{Path: "relay/prod", Message: "not a directory"},
			wantCode: ErrCodeAuthoring,
			wantExit: ExitFailure,
		},
		{
			name:     "size error",
			err:      &generate.SizeError{Name: "setpoint-relay-prod.json", Size: 2 << 20, Limit: generate.MaxArtifactSize},
			wantCode: ErrCodeSize,
			wantExit: ExitFailure,
		},
		{
			name:     "wrapped not-exist",
			err:      fmt.Errorf("load tree: %w", fs.ErrNotExist),
			wantCode: ErrCodeNotFound,
			wantExit: ExitCommandError,
		},
		{
			name:     "unclassified",
			err:      errors.New("something else"),
			wantCode: ErrCodeGeneric,
			wantExit: ExitCommandError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, exit := classifyError(tt.err)
			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, tt.wantExit, exit)
		})
	}
}

func TestFailEmbedsCode(t *testing.T) {
	var buf bytes.Buffer
	f := &OutputFormatter{Format: "text", Writer: &buf}

	err := fail(f, &option.SchemaError{Namespace: "relay", Message: "bad default"})
	require.Error(t, err)

	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, ExitFailure, exitErr.Code)
	assert.Contains(t, err.Error(), "E101")
	assert.Contains(t, buf.String(), "Error [E101]")
}

func TestFailCode(t *testing.T) {
	var buf bytes.Buffer
	f := &OutputFormatter{Format: "text", Writer: &buf}

	err := failCode(f, ErrCodeWriteFailed, ExitCommandError, "output directory exists")
	require.Error(t, err)

	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, ExitCommandError, exitErr.Code)
	assert.Contains(t, err.Error(), "E003: output directory exists")
	assert.Contains(t, buf.String(), "Error [E003]: output directory exists")
}
