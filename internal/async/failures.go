package async

import (
	"sync"

	"github.com/openbridge/relay/internal/core/domain"
)

// DefaultFailureLogCapacity bounds the in-memory failure history.
const DefaultFailureLogCapacity = 100

// FailureLog is a fixed-capacity ring of the most recent exhausted
// operations. It is purely diagnostic and never persisted.
type FailureLog struct {
	mu    sync.Mutex
	buf   []domain.OperationFailure
	next  int
	count int
}

// NewFailureLog creates a failure log. A capacity <= 0 uses the default.
func NewFailureLog(capacity int) *FailureLog {
	if capacity <= 0 {
		capacity = DefaultFailureLogCapacity
	}
	return &FailureLog{buf: make([]domain.OperationFailure, capacity)}
}

// Record appends a failure, evicting the oldest entry once full.
func (l *FailureLog) Record(f domain.OperationFailure) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.buf[l.next] = f
	l.next = (l.next + 1) % len(l.buf)
	if l.count < len(l.buf) {
		l.count++
	}
}

// Recent returns a copy of the recorded failures, newest first.
func (l *FailureLog) Recent() []domain.OperationFailure {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]domain.OperationFailure, l.count)
	for i := 0; i < l.count; i++ {
		idx := (l.next - 1 - i + len(l.buf)) % len(l.buf)
		out[i] = l.buf[idx]
	}
	return out
}

// Len returns the number of recorded failures.
func (l *FailureLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.count
}
