package loader

import "github.com/jask/edgeaudit/internal/api"

// Status tags which variant a State holds.
type Status int

const (
	Idle Status = iota
	Loading
	Loaded
	Failed
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// State is the tagged variant {Idle, Loading, Loaded(T), Failed(err)}.
// Fields are unexported so no other combination can be built; transitions
// replace the whole value.
type State[T any] struct {
	status Status
	value  T
	err    error
}

func IdleState[T any]() State[T]    { return State[T]{status: Idle} }
func LoadingState[T any]() State[T] { return State[T]{status: Loading} }

func LoadedState[T any](v T) State[T] {
	return State[T]{status: Loaded, value: v}
}

// FailedState panics on a nil error; a failure without a reason is not representable.
func FailedState[T any](err error) State[T] {
	if err == nil {
		panic("loader: FailedState requires an error")
	}
	return State[T]{status: Failed, err: err}
}

func (s State[T]) Status() Status { return s.status }

// Value returns the loaded value; ok is false in every other variant.
func (s State[T]) Value() (T, bool) {
	if s.status != Loaded {
		var zero T
		return zero, false
	}
	return s.value, true
}

// Err is non-nil only in the Failed variant.
func (s State[T]) Err() error { return s.err }

// Reason is the user-facing failure text.
func (s State[T]) Reason() string { return api.Reason(s.err) }

func (s State[T]) IsIdle() bool    { return s.status == Idle }
func (s State[T]) IsLoading() bool { return s.status == Loading }
func (s State[T]) IsLoaded() bool  { return s.status == Loaded }
func (s State[T]) IsFailed() bool  { return s.status == Failed }
