package asyncevents

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for the conditions named in the error taxonomy.
var (
	// ErrHandlerNil is returned synchronously by Subscribe/SubscribeAck when
	// the supplied handler is nil.
	ErrHandlerNil = errors.New("asyncevents: handler cannot be nil")

	// ErrNoEventNames is returned synchronously when Subscribe/SubscribeAck
	// is called with an empty event-name list.
	ErrNoEventNames = errors.New("asyncevents: subscribe requires at least one event name")

	// ErrInvalidTimeout is returned by NewTopic when the configured
	// acknowledgment timeout is not positive.
	ErrInvalidTimeout = errors.New("asyncevents: ack timeout must be positive")
)

// AckTimeoutError is the rejection reason attached to a Deliver result when a
// subscription does not acknowledge within the topic's configured window. It
// names the topic, event, and subscription so a caller can diagnose which
// recipient stalled.
type AckTimeoutError struct {
	Topic          string
	Event          string
	SubscriptionID string
	Timeout        time.Duration
}

func (e *AckTimeoutError) Error() string {
	return fmt.Sprintf("asyncevents: topic %q event %q subscription %q did not acknowledge within %s",
		e.Topic, e.Event, e.SubscriptionID, e.Timeout)
}

// AggregateExecutionFailure is the error Execute returns when at least one
// matched subscription rejected. It carries the full Results slice and the
// producer-visible Metadata so the caller can inspect every outcome, not just
// the fact that one failed.
type AggregateExecutionFailure struct {
	Event   string
	Meta    Metadata
	Results []Result
}

func (e *AggregateExecutionFailure) Error() string {
	failed := 0
	for _, r := range e.Results {
		if r.Status == StatusRejected {
			failed++
		}
	}
	return fmt.Sprintf("asyncevents: execute %q: %d of %d subscribers rejected", e.Event, failed, len(e.Results))
}

// Unwrap exposes the first rejection reason so callers using errors.Is/As can
// drill into the underlying subscriber failure without walking Results by hand.
func (e *AggregateExecutionFailure) Unwrap() error {
	for _, r := range e.Results {
		if r.Status == StatusRejected {
			return r.Reason
		}
	}
	return nil
}

// panicError turns a recovered panic value into an error so a handler panic
// settles a Result the same way a returned error does, instead of crashing
// the topic's dispatch goroutine.
func panicError(r any) error {
	if err, ok := r.(error); ok {
		return fmt.Errorf("asyncevents: handler panicked: %w", err)
	}
	return fmt.Errorf("asyncevents: handler panicked: %v", r)
}
