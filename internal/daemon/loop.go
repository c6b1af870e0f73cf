package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"

	"deedles.dev/xsync/cq"
)

// ErrLoopStopped is returned when posting to a closed loop.
var ErrLoopStopped = errors.New("event loop stopped")

// batch is everything posted between two wake-ups of the loop.
type batch struct {
	fns []func() error
}

// LoopConfig holds configuration for the loop.
type LoopConfig struct {
	// Refresh runs once after every drained batch and before the first wait.
	Refresh func()
	Logger  *slog.Logger
}

// Loop runs every closure posted to it on a single goroutine. It is the only
// place the window manager core is touched from.
type Loop struct {
	queue   *cq.BulkQueue[func() error, *batch]
	refresh func()
	logger  *slog.Logger

	done      chan struct{}
	closeOnce sync.Once
}

func NewLoop(cfg LoopConfig) *Loop {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	refresh := cfg.Refresh
	if refresh == nil {
		refresh = func() {}
	}
	return &Loop{
		queue: cq.New(func(fns []func() error) *batch {
			return &batch{fns: fns}
		}),
		refresh: refresh,
		logger:  logger,
		done:    make(chan struct{}),
	}
}

// Post queues fn without waiting for it to run.
func (l *Loop) Post(fn func() error) error {
	select {
	case <-l.done:
		return ErrLoopStopped
	default:
	}
	select {
	case l.queue.Add() <- fn:
		return nil
	case <-l.done:
		return ErrLoopStopped
	}
}

// Do runs fn on the loop and returns its error.
func (l *Loop) Do(ctx context.Context, fn func() error) error {
	res := make(chan error, 1)
	if err := l.Post(func() error {
		res <- l.call(fn)
		return nil
	}); err != nil {
		return err
	}
	select {
	case err := <-res:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return ErrLoopStopped
	}
}

// Serve drains batches until ctx is done. Closure errors are logged; a
// panicking closure is recovered and does not stop the loop.
func (l *Loop) Serve(ctx context.Context) error {
	l.runRefresh()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.done:
			return ErrLoopStopped
		case b, ok := <-l.queue.Get():
			if !ok || b == nil {
				return ErrLoopStopped
			}
			var errs []error
			for _, fn := range b.fns {
				if err := l.call(fn); err != nil {
					errs = append(errs, err)
				}
			}
			if err := errors.Join(errs...); err != nil {
				l.logger.Warn("loop batch failed", "error", err, "closures", len(b.fns))
			}
			l.runRefresh()
		}
	}
}

func (l *Loop) call(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("loop closure panic recovered", "panic", r, "stack", string(debug.Stack()))
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}

func (l *Loop) runRefresh() {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("refresh panic recovered", "panic", r, "stack", string(debug.Stack()))
		}
	}()
	l.refresh()
}

// Close stops the loop. Pending closures are dropped.
func (l *Loop) Close() {
	l.closeOnce.Do(func() {
		close(l.done)
		l.queue.Stop()
	})
}

func (l *Loop) String() string {
	return "loop"
}
