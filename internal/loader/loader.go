// Package loader holds the async fetch primitive shared by the collection and
// detail views.
//
// A Loader issues fetches as tea.Cmds. Each fetch carries the generation it was
// issued under; Handle applies a result only when that generation is still the
// newest and the loader has not been closed. Closing never aborts the network
// call, it only suppresses the result.
package loader

import (
	"context"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/jask/edgeaudit/internal/metrics"
)

// FetchFunc performs one blocking fetch for key.
type FetchFunc[K comparable, T any] func(ctx context.Context, key K) (T, error)

// Result is the message a fetch command produces.
type Result[K comparable, T any] struct {
	loaderID   uint64
	generation uint64
	Key        K
	Value      T
	Err        error
}

var nextLoaderID atomic.Uint64

// Loader tracks one resource's State across overlapping fetches.
type Loader[K comparable, T any] struct {
	id         uint64
	name       string
	ctx        context.Context
	fetch      FetchFunc[K, T]
	precheck   func(K) error
	logger     *zap.Logger
	observers  []func(State[T])
	generation uint64
	key        K
	hasKey     bool
	closed     bool
	state      State[T]
}

// Option configures a Loader.
type Option[K comparable, T any] func(*Loader[K, T])

// WithLogger sets the logger used for stale-result diagnostics.
func WithLogger[K comparable, T any](l *zap.Logger) Option[K, T] {
	return func(ld *Loader[K, T]) {
		if l != nil {
			ld.logger = l
		}
	}
}

// WithObserver registers fn to receive every state transition.
func WithObserver[K comparable, T any](fn func(State[T])) Option[K, T] {
	return func(ld *Loader[K, T]) {
		if fn != nil {
			ld.observers = append(ld.observers, fn)
		}
	}
}

// WithPrecheck short-circuits Load: when fn returns an error the loader moves
// straight to Failed without issuing a request.
func WithPrecheck[K comparable, T any](fn func(K) error) Option[K, T] {
	return func(ld *Loader[K, T]) { ld.precheck = fn }
}

// New creates an idle Loader. ctx is the parent of every fetch.
func New[K comparable, T any](ctx context.Context, name string, fetch FetchFunc[K, T], opts ...Option[K, T]) *Loader[K, T] {
	if ctx == nil {
		ctx = context.Background()
	}
	l := &Loader[K, T]{
		id:     nextLoaderID.Add(1),
		name:   name,
		ctx:    ctx,
		fetch:  fetch,
		logger: zap.NewNop(),
		state:  IdleState[T](),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// State returns the current snapshot.
func (l *Loader[K, T]) State() State[T] { return l.state }

// Key returns the most recently issued key and whether one exists.
func (l *Loader[K, T]) Key() (K, bool) { return l.key, l.hasKey }

// Closed reports whether the consumer has torn the loader down.
func (l *Loader[K, T]) Closed() bool { return l.closed }

// Load supersedes any in-flight fetch with one for key and moves to Loading.
// The returned command must be run by the caller's event loop; its Result is
// fed back through Handle.
func (l *Loader[K, T]) Load(key K) tea.Cmd {
	if l.closed {
		return nil
	}
	l.generation++
	l.key = key
	l.hasKey = true

	if l.precheck != nil {
		if err := l.precheck(key); err != nil {
			l.set(FailedState[T](err))
			return nil
		}
	}

	l.set(LoadingState[T]())
	gen, id, ctx, fetch := l.generation, l.id, l.ctx, l.fetch
	return func() tea.Msg {
		v, err := fetch(ctx, key)
		return Result[K, T]{loaderID: id, generation: gen, Key: key, Value: v, Err: err}
	}
}

// Refetch re-issues the last key. It returns nil if nothing was loaded yet.
func (l *Loader[K, T]) Refetch() tea.Cmd {
	if !l.hasKey {
		return nil
	}
	return l.Load(l.key)
}

// Handle applies msg if it is this loader's newest result. It reports whether
// msg belonged to this loader, including results it discarded.
func (l *Loader[K, T]) Handle(msg tea.Msg) bool {
	res, ok := msg.(Result[K, T])
	if !ok || res.loaderID != l.id {
		return false
	}
	if l.closed {
		l.discard(res.generation, "torn_down")
		return true
	}
	if res.generation != l.generation {
		l.discard(res.generation, "superseded")
		return true
	}
	if res.Err != nil {
		l.set(FailedState[T](res.Err))
		return true
	}
	l.set(LoadedState(res.Value))
	return true
}

// Close marks the consumer as gone. No transition happens after Close.
func (l *Loader[K, T]) Close() {
	l.closed = true
}

func (l *Loader[K, T]) set(s State[T]) {
	l.state = s
	for _, fn := range l.observers {
		fn(s)
	}
}

func (l *Loader[K, T]) discard(gen uint64, cause string) {
	metrics.ObserveStale(l.name, cause)
	l.logger.Debug("discarding load result",
		zap.String("loader", l.name),
		zap.Uint64("generation", gen),
		zap.Uint64("current", l.generation),
		zap.String("cause", cause))
}
