package scene

import (
	"context"

	"go.uber.org/zap"

	"github.com/rakib91221/StableGen/types"
)

// task is one closure waiting for the main context, with its completion
// signal.
type task struct {
	fn   func(ctx context.Context) error
	done chan error
}

// Dispatcher hands work from the run worker to the main execution
// context. The worker blocks in Do until the main context has pumped the
// closure to completion; the two contexts strictly alternate, which is
// the ordering guarantee sequential mode depends on.
type Dispatcher struct {
	tasks  chan *task
	logger *zap.Logger
}

// NewDispatcher returns an unbuffered dispatcher; a scheduled task
// rendezvouses directly with a pumping main context.
func NewDispatcher(logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		tasks:  make(chan *task),
		logger: logger.With(zap.String("component", "dispatcher")),
	}
}

// Do schedules fn on the main context and blocks until it completes.
// Cancelling ctx while waiting returns a cancelled error; a task already
// handed over still runs to completion on the main context.
func (d *Dispatcher) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	t := &task{fn: fn, done: make(chan error, 1)}
	select {
	case d.tasks <- t:
	case <-ctx.Done():
		return types.NewError(types.ErrCancelled, "main-context work cancelled before dispatch").
			WithCause(ctx.Err())
	}
	return <-t.done
}

// Pump runs scheduled tasks on the caller's context until ctx is
// cancelled. The caller must be the main execution context.
func (d *Dispatcher) Pump(ctx context.Context) {
	for {
		select {
		case t := <-d.tasks:
			t.done <- t.fn(ctx)
		case <-ctx.Done():
			d.drain(ctx)
			return
		}
	}
}

// PumpOne runs at most one pending task without blocking. Hosts that
// drive the main context off a timer call this per tick. Reports whether
// a task ran.
func (d *Dispatcher) PumpOne(ctx context.Context) bool {
	select {
	case t := <-d.tasks:
		t.done <- t.fn(ctx)
		return true
	default:
		return false
	}
}

// drain fails any task that raced the shutdown so no worker blocks
// forever on a dead pump.
func (d *Dispatcher) drain(ctx context.Context) {
	for {
		select {
		case t := <-d.tasks:
			t.done <- types.NewError(types.ErrCancelled, "main context stopped").
				WithCause(ctx.Err())
		default:
			return
		}
	}
}

// Run schedules a value-returning closure on the main context.
func Run[T any](ctx context.Context, d *Dispatcher, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := d.Do(ctx, func(ctx context.Context) error {
		var err error
		out, err = fn(ctx)
		return err
	})
	return out, err
}
