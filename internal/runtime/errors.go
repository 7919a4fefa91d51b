package runtime

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyInitialized is returned by Init when the global store is
	// already live. A second initialization must never silently replace a
	// running store.
	ErrAlreadyInitialized = errors.New("options already initialized")

	// ErrNotInitialized is returned by Close before Init has succeeded.
	ErrNotInitialized = errors.New("options not initialized")

	// ErrWatcherRunning is returned by Watch while a previous watcher on
	// the same store is still running.
	ErrWatcherRunning = errors.New("watcher already running")
)

// ReloadError wraps a failure to refresh one namespace during polling.
// It is transient: the previous snapshot stays live and the next change
// to the backing document triggers another attempt.
type ReloadError struct {
	Namespace string
	Path      string
	Err       error
}

// Error implements the error interface.
func (e *ReloadError) Error() string {
	return fmt.Sprintf("reload of namespace %q from %s failed: %v", e.Namespace, e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *ReloadError) Unwrap() error {
	return e.Err
}

// IsReloadError returns true if the error is a ReloadError.
func IsReloadError(err error) bool {
	var re *ReloadError
	return errors.As(err, &re)
}
