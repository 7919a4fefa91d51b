package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchStopsWhenContextCancelled(t *testing.T) {
	dir := optionsDir(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var buf bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs([]string{"watch", "--dir", dir, "--interval", "10ms"})

	done := make(chan error, 1)
	go func() { done <- cmd.ExecuteContext(ctx) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop on context cancellation")
	}

	assert.Contains(t, buf.String(), "Watching "+dir)
	assert.Contains(t, buf.String(), "1 namespace(s)")
}

func TestWatchMissingDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nope")

	out, err := runCommand(t, "watch", "--dir", dir)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E002]")
}

func TestWatchRejectsNonPositiveInterval(t *testing.T) {
	dir := optionsDir(t)

	_, err := runCommand(t, "watch", "--dir", dir, "--interval", "0s")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "poll interval must be positive")
}
