package async

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/openbridge/relay/internal/core/domain"
	"github.com/openbridge/relay/internal/metrics"
)

// Handler is a named unit of asynchronous work. Implementations supply
// Handle only; retries, classification, logging and failure recording
// are layered on by Execute.
type Handler[T any] interface {
	Name() string
	Handle(ctx context.Context, input T) error
}

// Options configures a single execution.
type Options struct {
	Policy   Policy
	Failures *FailureLog
	// Context carries diagnostic metadata attached to a recorded failure.
	Context map[string]string
}

// Execute runs h.Handle under the handler's retry policy, tagged with a
// freshly generated operation id. On exhaustion the last error is
// recorded as an OperationFailure and returned to the caller; errors
// from that bookkeeping itself are logged and discarded, never
// propagated.
func Execute[T any](ctx context.Context, h Handler[T], input T, opts Options) error {
	opID := uuid.New().String()
	log := slog.Default().With("component", "async", "handler", h.Name(), "operation_id", opID)
	log.Info("Operation started")

	start := time.Now()
	attempts := 0
	err := Do(ctx, opts.Policy, func(ctx context.Context) error {
		attempts++
		if attempts > 1 {
			metrics.OperationRetriesTotal.WithLabelValues(h.Name()).Inc()
		}
		return reclassify(h.Handle(ctx, input))
	})
	metrics.OperationDuration.WithLabelValues(h.Name()).Observe(time.Since(start).Seconds())

	if err != nil {
		log.Error("Operation failed", "error", err, "attempts", attempts)
		metrics.OperationsExhaustedTotal.WithLabelValues(h.Name()).Inc()
		record(log, opts.Failures, domain.OperationFailure{
			OperationID: opID,
			Handler:     h.Name(),
			Error:       err.Error(),
			Attempts:    attempts,
			OccurredAt:  time.Now().UTC(),
			Context:     opts.Context,
		})
		return err
	}

	log.Info("Operation completed", "attempts", attempts, "duration", time.Since(start))
	return nil
}

// reclassify converts parse/shape errors raised by a handler into
// discardable errors before they reach the retry decision.
func reclassify(err error) error {
	if err == nil || errors.Is(err, ErrDiscard) {
		return err
	}
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return Discard(err)
	}
	return err
}

func record(log *slog.Logger, failures *FailureLog, f domain.OperationFailure) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("Failed to record operation failure", "panic", r)
		}
	}()
	if failures != nil {
		failures.Record(f)
	}
}
