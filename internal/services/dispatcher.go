package services

import (
	"context"
	"errors"
	"sync"
	"time"
)

const defaultTaskTimeout = 30 * time.Second

// GoroutineDispatcher runs tasks on detached goroutines with their own timeout
// budget, so webhook acknowledgements never wait on inventory or email work.
type GoroutineDispatcher struct {
	timeout time.Duration
	logger  func(context.Context, string, map[string]any)
	wg      sync.WaitGroup
}

// GoroutineDispatcherDeps configures the dispatcher.
type GoroutineDispatcherDeps struct {
	TaskTimeout time.Duration
	Logger      func(ctx context.Context, event string, fields map[string]any)
}

var _ TaskDispatcher = (*GoroutineDispatcher)(nil)

// NewGoroutineDispatcher constructs a GoroutineDispatcher.
func NewGoroutineDispatcher(deps GoroutineDispatcherDeps) *GoroutineDispatcher {
	timeout := deps.TaskTimeout
	if timeout <= 0 {
		timeout = defaultTaskTimeout
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &GoroutineDispatcher{timeout: timeout, logger: logger}
}

// Dispatch schedules the task on its own goroutine. The task receives a fresh
// context detached from any request so it survives the response being written.
func (d *GoroutineDispatcher) Dispatch(name string, task func(ctx context.Context)) {
	if d == nil || task == nil {
		return
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()
		defer func() {
			if r := recover(); r != nil {
				d.logger(ctx, "dispatcher.task_panicked", map[string]any{
					"task":  name,
					"panic": r,
				})
			}
		}()

		task(ctx)
	}()
}

// Shutdown waits for in-flight tasks to finish or the context to expire.
func (d *GoroutineDispatcher) Shutdown(ctx context.Context) error {
	if d == nil {
		return nil
	}
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return errors.New("dispatcher: shutdown timed out with tasks in flight")
	}
}
