package domain

import "time"

// OperationFailure records an async operation that exhausted its retries
type OperationFailure struct {
	OperationID string            `json:"operation_id"`
	Handler     string            `json:"handler"`
	Error       string            `json:"error"`
	Attempts    int               `json:"attempts"`
	OccurredAt  time.Time         `json:"occurred_at"`
	Context     map[string]string `json:"context,omitempty"`
}
