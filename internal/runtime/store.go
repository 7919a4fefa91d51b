package runtime

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/roach88/setpoint/internal/feature"
	"github.com/roach88/setpoint/internal/option"
)

// fileState identifies one observed version of a values document. Two
// equal states mean the document has not visibly changed; a reload is
// only attempted when states differ.
type fileState struct {
	exists  bool
	modTime time.Time
	size    int64
}

func (a fileState) equal(b fileState) bool {
	return a.exists == b.exists && a.modTime.Equal(b.modTime) && a.size == b.size
}

func statValues(path string) (fileState, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fileState{}, nil
		}
		return fileState{}, err
	}
	return fileState{exists: true, modTime: info.ModTime(), size: info.Size()}, nil
}

// snapshot is one immutable published version of a namespace's explicit
// values. Defaults are resolved at read time, not baked in, so a partial
// values document still serves schema defaults for its missing keys.
type snapshot struct {
	values   option.ValueSet
	state    fileState
	loadedAt time.Time
}

// Store serves validated option values for every namespace under one
// options directory.
//
// Reads are lock-free: each namespace's current snapshot hangs off an
// atomic pointer and reload publishes by swapping it. The namespace set
// is fixed at open; schemas never hot-reload, values do.
type Store struct {
	registry *option.Registry
	dir      string

	// current is written once at open; only the per-namespace pointers
	// change afterwards.
	current map[string]*atomic.Pointer[snapshot]

	// reloadMu serializes publishers (watcher sweeps, explicit Reload,
	// overrides). Readers never take it.
	reloadMu sync.Mutex

	watching atomic.Bool
}

// Open loads a store from the resolved options directory (see ResolveDir).
func Open() (*Store, error) {
	return OpenDirectory(ResolveDir())
}

// OpenDirectory loads a store from dir, which must hold a schemas/ tree.
// Every namespace's values document is validated before Open returns;
// a namespace with no values document starts with schema defaults only.
func OpenDirectory(dir string) (*Store, error) {
	registry, err := option.LoadRegistry(SchemasDir(dir))
	if err != nil {
		return nil, err
	}

	s := &Store{
		registry: registry,
		dir:      dir,
		current:  make(map[string]*atomic.Pointer[snapshot], registry.Len()),
	}
	for _, namespace := range registry.Namespaces() {
		snap, err := s.loadNamespace(namespace)
		if err != nil {
			return nil, err
		}
		ptr := &atomic.Pointer[snapshot]{}
		ptr.Store(snap)
		s.current[namespace] = ptr
	}
	return s, nil
}

// Dir returns the options directory the store reads from.
func (s *Store) Dir() string {
	return s.dir
}

// Registry returns the schema registry backing the store.
func (s *Store) Registry() *option.Registry {
	return s.registry
}

// Namespaces returns the served namespaces in sorted order.
func (s *Store) Namespaces() []string {
	return s.registry.Namespaces()
}

// loadNamespace reads and validates one namespace's values document.
// The stat happens before the read: if the document is replaced between
// the two, the stored state mismatches the next poll and the namespace
// reloads again.
func (s *Store) loadNamespace(namespace string) (*snapshot, error) {
	schema, ok := s.registry.Get(namespace)
	if !ok {
		return nil, &option.UnknownNamespaceError{Namespace: namespace}
	}

	path := valuesPath(s.dir, namespace)
	state, err := statValues(path)
	if err != nil {
		return nil, fmt.Errorf("namespace %s: %w", namespace, err)
	}
	if !state.exists {
		return &snapshot{values: option.ValueSet{}, state: state, loadedAt: time.Now()}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("namespace %s: %w", namespace, err)
	}
	raw, err := option.DecodeValuesDocument(data)
	if err != nil {
		return nil, fmt.Errorf("namespace %s: %w", namespace, err)
	}
	values, err := option.Validate(schema, raw)
	if err != nil {
		return nil, err
	}
	return &snapshot{values: values, state: state, loadedAt: time.Now()}, nil
}

// pollNamespace refreshes one namespace if its backing document changed
// relative to prior. It returns the disk state it observed so the caller
// can skip an unchanged (or unchanged-and-broken) document next time, and
// the published snapshot when a new one went live.
func (s *Store) pollNamespace(namespace string, prior fileState) (fileState, *snapshot, error) {
	path := valuesPath(s.dir, namespace)
	state, err := statValues(path)
	if err != nil {
		return prior, nil, &ReloadError{Namespace: namespace, Path: path, Err: err}
	}
	if state.equal(prior) {
		return state, nil, nil
	}

	snap, err := s.loadNamespace(namespace)
	if err != nil {
		return state, nil, &ReloadError{Namespace: namespace, Path: path, Err: err}
	}

	s.reloadMu.Lock()
	s.current[namespace].Store(snap)
	s.reloadMu.Unlock()
	return state, snap, nil
}

// Reload polls every namespace once, publishing fresh snapshots for the
// documents that changed. Failed namespaces keep their previous snapshot;
// their errors are joined into the return value.
func (s *Store) Reload() error {
	var errs []error
	for _, namespace := range s.registry.Namespaces() {
		snap := s.current[namespace].Load()
		if _, _, err := s.pollNamespace(namespace, snap.state); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Get returns the value of key in namespace: the explicit value when the
// values document sets one, otherwise the schema default.
func (s *Store) Get(namespace, key string) (option.Value, error) {
	schema, ok := s.registry.Get(namespace)
	if !ok {
		return nil, &option.UnknownNamespaceError{Namespace: namespace}
	}

	snap := s.current[namespace].Load()
	if v, ok := snap.values[key]; ok {
		return v, nil
	}

	spec, ok := schema.Spec(key)
	if !ok {
		return nil, &option.UnknownOptionError{Namespace: namespace, Key: key}
	}
	return spec.Default, nil
}

// Isset reports whether key has an explicit value, as opposed to serving
// its schema default. Unknown namespaces and keys are errors.
func (s *Store) Isset(namespace, key string) (bool, error) {
	schema, ok := s.registry.Get(namespace)
	if !ok {
		return false, &option.UnknownNamespaceError{Namespace: namespace}
	}
	if !schema.Has(key) {
		return false, &option.UnknownOptionError{Namespace: namespace, Key: key}
	}

	snap := s.current[namespace].Load()
	_, set := snap.values[key]
	return set, nil
}

// GetString returns a string option.
func (s *Store) GetString(namespace, key string) (string, error) {
	v, err := s.Get(namespace, key)
	if err != nil {
		return "", err
	}
	str, ok := v.(option.String)
	if !ok {
		return "", typeError(namespace, key, option.TypeString, v)
	}
	return string(str), nil
}

// GetInt returns an integer option.
func (s *Store) GetInt(namespace, key string) (int64, error) {
	v, err := s.Get(namespace, key)
	if err != nil {
		return 0, err
	}
	n, ok := v.(option.Int)
	if !ok {
		return 0, typeError(namespace, key, option.TypeInteger, v)
	}
	return int64(n), nil
}

// GetFloat returns a number option. Integer values satisfy a number spec
// and keep their integer form through validation, so both forms convert
// here.
func (s *Store) GetFloat(namespace, key string) (float64, error) {
	v, err := s.Get(namespace, key)
	if err != nil {
		return 0, err
	}
	switch n := v.(type) {
	case option.Float:
		return float64(n), nil
	case option.Int:
		return float64(n), nil
	}
	return 0, typeError(namespace, key, option.TypeFloat, v)
}

// GetBool returns a boolean option.
func (s *Store) GetBool(namespace, key string) (bool, error) {
	v, err := s.Get(namespace, key)
	if err != nil {
		return false, err
	}
	b, ok := v.(option.Bool)
	if !ok {
		return false, typeError(namespace, key, option.TypeBoolean, v)
	}
	return bool(b), nil
}

// GetStringSlice returns an array-of-string option.
func (s *Store) GetStringSlice(namespace, key string) ([]string, error) {
	v, err := s.Get(namespace, key)
	if err != nil {
		return nil, err
	}
	arr, ok := v.(option.Array)
	if !ok {
		return nil, typeError(namespace, key, option.TypeArray, v)
	}
	out := make([]string, len(arr))
	for i, elem := range arr {
		str, ok := elem.(option.String)
		if !ok {
			return nil, &option.ValidationError{
				Code:      option.CodeTypeMismatch,
				Namespace: namespace,
				Key:       key,
				Expected:  "array of string",
				Actual:    fmt.Sprintf("array with %s element", elem.Kind()),
			}
		}
		out[i] = string(str)
	}
	return out, nil
}

func typeError(namespace, key string, want option.Type, got option.Value) error {
	return &option.ValidationError{
		Code:      option.CodeTypeMismatch,
		Namespace: namespace,
		Key:       key,
		Expected:  string(want),
		Actual:    string(got.Kind()),
	}
}

// Namespace returns a handle bound to one namespace.
func (s *Store) Namespace(namespace string) NamespaceOptions {
	return NamespaceOptions{namespace: namespace, store: s}
}

// Features returns a feature checker reading flags from namespace.
func (s *Store) Features(namespace string) *feature.Checker {
	return feature.NewChecker(namespace, s)
}
