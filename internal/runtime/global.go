package runtime

import (
	"context"
	"sync"

	"github.com/roach88/setpoint/internal/feature"
)

// The process-wide store behind Init/Namespace/Features/Close. Guarded by
// globalMu; the store itself is safe for concurrent readers.
var (
	globalMu      sync.Mutex
	globalStore   *Store
	globalWatcher *Watcher
)

// Init loads the global store from the resolved options directory (see
// ResolveDir) and starts its watcher. Calling Init while a global store
// is live returns ErrAlreadyInitialized; a stale or partial runtime must
// never silently replace a running one.
func Init() error {
	return initGlobal(ResolveDir())
}

// InitDirectory is Init with an explicit options directory.
func InitDirectory(dir string) error {
	return initGlobal(dir)
}

func initGlobal(dir string) error {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalStore != nil {
		return ErrAlreadyInitialized
	}

	store, err := OpenDirectory(dir)
	if err != nil {
		return err
	}
	watcher, err := store.Watch(context.Background())
	if err != nil {
		return err
	}

	globalStore = store
	globalWatcher = watcher
	return nil
}

// Close stops the global watcher and releases the store. After Close,
// Init may run again. Returns ErrNotInitialized when nothing is live.
func Close() error {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalStore == nil {
		return ErrNotInitialized
	}

	globalWatcher.Stop()
	globalStore = nil
	globalWatcher = nil
	return nil
}

// Namespace returns a handle on the global store.
//
// Panics if Init has not succeeded.
func Namespace(namespace string) NamespaceOptions {
	return mustGlobal().Namespace(namespace)
}

// Features returns a feature checker on the global store.
//
// Panics if Init has not succeeded.
func Features(namespace string) *feature.Checker {
	return mustGlobal().Features(namespace)
}

// Global returns the global store, or nil before Init.
func Global() *Store {
	globalMu.Lock()
	defer globalMu.Unlock()
	return globalStore
}

func mustGlobal() *Store {
	globalMu.Lock()
	defer globalMu.Unlock()
	if globalStore == nil {
		panic("setpoint: options not initialized, call runtime.Init first")
	}
	return globalStore
}
