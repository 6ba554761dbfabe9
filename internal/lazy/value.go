// Package lazy provides a single-assignment value that is computed once and
// shared by every caller.
package lazy

import (
	"context"
	"fmt"
	"sync"
)

// State is the lifecycle stage of a Value.
type State uint8

// Value states.
const (
	Pending State = iota // nobody asked yet
	Loading              // load running, callers wait on done
	Ready                // value available
	Failed               // load returned an error, kept for every caller
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Value runs its load function at most once.
//
// The first Get starts the load; concurrent callers block on the same
// completion channel. The outcome, value or error, is kept for the lifetime of
// the Value. A caller's context bounds only its own wait: the load runs with
// cancellation detached so an impatient caller does not fail the others.
type Value[T any] struct {
	load func(context.Context) (T, error)

	mu    sync.Mutex
	state State
	done  chan struct{}
	val   T
	err   error
}

// New returns a Value that computes its result with load.
func New[T any](load func(context.Context) (T, error)) *Value[T] {
	return &Value[T]{
		load: load,
		done: make(chan struct{}),
	}
}

// Get returns the loaded value, starting the load if nobody has yet.
func (v *Value[T]) Get(ctx context.Context) (T, error) {
	v.mu.Lock()
	switch v.state {
	case Ready, Failed:
		val, err := v.val, v.err
		v.mu.Unlock()
		return val, err
	case Pending:
		v.state = Loading
		go v.run(context.WithoutCancel(ctx))
	}
	v.mu.Unlock()

	select {
	case <-v.done:
		return v.val, v.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// State reports the current stage.
func (v *Value[T]) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

func (v *Value[T]) run(ctx context.Context) {
	var (
		val T
		err error
	)
	defer func() {
		if r := recover(); r != nil {
			var zero T
			val, err = zero, fmt.Errorf("lazy: load panicked: %v", r)
		}
		v.finish(val, err)
	}()
	val, err = v.load(ctx)
}

func (v *Value[T]) finish(val T, err error) {
	v.mu.Lock()
	v.val, v.err = val, err
	if err != nil {
		v.state = Failed
	} else {
		v.state = Ready
	}
	v.mu.Unlock()
	close(v.done)
}
