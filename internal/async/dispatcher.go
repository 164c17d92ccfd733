package async

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/openbridge/relay/internal/metrics"
)

// DefaultDispatchTimeout bounds a dispatched operation's wall-clock time.
const DefaultDispatchTimeout = 30 * time.Second

// Dispatcher starts async operations without blocking the caller. The
// hard timeout is the only cancellation signal; whether the underlying
// work actually stops depends on the handler honoring its context.
type Dispatcher struct {
	timeout  time.Duration
	failures *FailureLog
	wg       sync.WaitGroup
	log      *slog.Logger
}

// NewDispatcher creates a dispatcher. A timeout <= 0 uses the default.
func NewDispatcher(timeout time.Duration, failures *FailureLog) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultDispatchTimeout
	}
	return &Dispatcher{
		timeout:  timeout,
		failures: failures,
		log:      slog.Default().With("component", "dispatcher"),
	}
}

// Dispatch starts h under the dispatcher's timeout and returns
// immediately. Failures (including timeouts) are reported through the
// failure log; nothing escapes into the caller's path.
func Dispatch[T any](d *Dispatcher, h Handler[T], input T, opts Options) {
	if opts.Failures == nil {
		opts.Failures = d.failures
	}
	metrics.DispatchesTotal.WithLabelValues(h.Name()).Inc()

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				d.log.Error("Dispatched operation panicked", "handler", h.Name(), "panic", r)
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		// Execute logs and records its own failures.
		_ = Execute(ctx, h, input, opts)
	}()
}

// Shutdown waits for in-flight operations up to the context deadline.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
