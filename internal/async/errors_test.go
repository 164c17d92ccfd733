package async

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
)

func jsonErr(data string) error {
	var v map[string]any
	return json.Unmarshal([]byte(data), &v)
}

func TestIsDiscardable(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		expect bool
	}{
		{"nil", nil, false},
		{"json syntax error", jsonErr("{not json"), true},
		{"valid json", jsonErr(`{"a": "x"}`), false},
		{"explicit discard", Discard(errors.New("bad payload")), true},
		{"wrapped discard", fmt.Errorf("handler: %w", Discard(errors.New("bad"))), true},
		{"generic error", errors.New("boom"), false},
		{"timeout", context.DeadlineExceeded, false},
	}

	for _, tt := range tests {
		if got := IsDiscardable(tt.err); got != tt.expect {
			t.Errorf("%s: IsDiscardable(%v) = %v, want %v", tt.name, tt.err, got, tt.expect)
		}
	}
}

func TestIsDiscardableUnmarshalTypeError(t *testing.T) {
	var n int
	err := json.Unmarshal([]byte(`"text"`), &n)
	if !IsDiscardable(err) {
		t.Errorf("IsDiscardable(%v) = false, want true", err)
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		expect bool
	}{
		{"nil", nil, false},
		{"generic error", errors.New("connection reset by peer"), true},
		{"deadline exceeded", context.DeadlineExceeded, true},
		{"json syntax error", jsonErr("{"), false},
		{"discard wrapper", Discard(errors.New("bad")), false},
	}

	for _, tt := range tests {
		if got := IsRetryable(tt.err); got != tt.expect {
			t.Errorf("%s: IsRetryable(%v) = %v, want %v", tt.name, tt.err, got, tt.expect)
		}
	}
}

func TestClassificationMutuallyExclusive(t *testing.T) {
	errs := []error{
		errors.New("boom"),
		jsonErr("{"),
		Discard(errors.New("bad")),
		context.DeadlineExceeded,
	}
	for _, err := range errs {
		if IsRetryable(err) == IsDiscardable(err) {
			t.Errorf("classification not mutually exclusive for %v", err)
		}
	}
}

func TestDiscardUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := Discard(cause)
	if !errors.Is(err, cause) {
		t.Errorf("Discard should preserve the cause chain")
	}
	if !errors.Is(err, ErrDiscard) {
		t.Errorf("Discard should match ErrDiscard")
	}
	if Discard(nil) != nil {
		t.Errorf("Discard(nil) should be nil")
	}
}
