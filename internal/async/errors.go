package async

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
)

// ErrDiscard marks a failure that retrying can never fix.
var ErrDiscard = errors.New("discardable input")

// DiscardError wraps a cause with the non-retryable marker.
type DiscardError struct {
	Cause error
}

func (e *DiscardError) Error() string {
	return fmt.Sprintf("cannot process input: %v", e.Cause)
}

func (e *DiscardError) Unwrap() error { return e.Cause }

func (e *DiscardError) Is(target error) bool { return target == ErrDiscard }

// Discard marks err as malformed-input, excluding it from retries.
func Discard(err error) error {
	if err == nil {
		return nil
	}
	return &DiscardError{Cause: err}
}

// IsDiscardable reports whether err represents malformed or unparseable
// input. Retrying such a failure can never succeed, so the retry engine
// gives up on the first attempt.
func IsDiscardable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrDiscard) {
		return true
	}
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return true
	}
	var typeErr *json.UnmarshalTypeError
	return errors.As(err, &typeErr)
}

// IsRetryable is the classifier handed to the retry engine: discardable
// failures are never retried, everything else is.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if IsDiscardable(err) {
		return false
	}

	// Timeouts may be transient network stalls.
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	// Default to retry (network, 5xx, etc)
	return true
}
