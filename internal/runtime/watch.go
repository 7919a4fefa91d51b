package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// DefaultPollInterval is how often the watcher checks values documents
// for changes. Polling is deliberate: the documents typically arrive via
// mounted ConfigMaps, whose update propagation does not produce reliable
// change notifications.
const DefaultPollInterval = 5 * time.Second

// Clock supplies the watcher's tick source. The zero configuration uses
// a real time.Ticker; tests substitute a manual implementation to drive
// sweeps without waiting.
type Clock interface {
	// Ticker returns a channel delivering ticks roughly every d and a
	// stop function releasing the ticker's resources.
	Ticker(d time.Duration) (<-chan time.Time, func())
}

type systemClock struct{}

func (systemClock) Ticker(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}

// WatchOption configures a watcher.
type WatchOption func(*Watcher)

// WithInterval sets the polling interval.
func WithInterval(d time.Duration) WatchOption {
	return func(w *Watcher) { w.interval = d }
}

// WithClock sets the tick source.
func WithClock(c Clock) WatchOption {
	return func(w *Watcher) { w.clock = c }
}

// WithLogger sets the logger for publish and lifecycle messages.
func WithLogger(l *slog.Logger) WatchOption {
	return func(w *Watcher) { w.logger = l }
}

// WithErrorFunc installs fn as the reload-failure callback, replacing
// the default log warning. fn runs on the watcher goroutine.
func WithErrorFunc(fn func(error)) WatchOption {
	return func(w *Watcher) { w.onError = fn }
}

// Watcher keeps a Store's snapshots in sync with the backing documents.
//
// One sweep stats every namespace's values document; only documents whose
// state changed since the last attempt are re-read and re-validated. A
// document that fails validation is reported once per on-disk change and
// the previous snapshot stays live.
type Watcher struct {
	store    *Store
	interval time.Duration
	clock    Clock
	logger   *slog.Logger
	onError  func(error)

	// seen records the last attempted state per namespace, successful or
	// not, so a broken document is not re-parsed every tick.
	seen map[string]fileState

	cancel context.CancelFunc
	done   chan struct{}
}

// Watch starts a watcher goroutine polling the store's values documents.
// Only one watcher may run per store. The watcher stops when ctx is
// cancelled or Stop is called.
func (s *Store) Watch(ctx context.Context, opts ...WatchOption) (*Watcher, error) {
	w := &Watcher{
		store:    s,
		interval: DefaultPollInterval,
		clock:    systemClock{},
		logger:   slog.Default(),
		seen:     make(map[string]fileState, len(s.current)),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.interval <= 0 {
		return nil, fmt.Errorf("poll interval must be positive, got %v", w.interval)
	}
	if w.onError == nil {
		logger := w.logger
		w.onError = func(err error) {
			logger.Warn("options reload failed", "error", err)
		}
	}

	if !s.watching.CompareAndSwap(false, true) {
		return nil, ErrWatcherRunning
	}

	for namespace, ptr := range s.current {
		w.seen[namespace] = ptr.Load().state
	}

	ctx, w.cancel = context.WithCancel(ctx)
	go w.run(ctx)
	return w, nil
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.done)
	defer w.store.watching.Store(false)

	w.logger.Debug("options watcher started",
		"dir", w.store.dir,
		"interval", w.interval,
		"namespaces", len(w.store.current),
	)

	ticks, stop := w.clock.Ticker(w.interval)
	defer stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("options watcher stopped")
			return
		case <-ticks:
			w.sweep()
		}
	}
}

// sweep polls every namespace once.
func (w *Watcher) sweep() {
	for _, namespace := range w.store.registry.Namespaces() {
		state, snap, err := w.store.pollNamespace(namespace, w.seen[namespace])
		w.seen[namespace] = state
		if err != nil {
			w.onError(err)
			continue
		}
		if snap != nil {
			w.logger.Info("published snapshot", "namespace", namespace, "keys", len(snap.values))
		}
	}
}

// Stop cancels the watcher and waits for its goroutine to exit. Safe to
// call more than once.
func (w *Watcher) Stop() {
	w.cancel()
	<-w.done
}

// Done is closed when the watcher goroutine has exited.
func (w *Watcher) Done() <-chan struct{} {
	return w.done
}
