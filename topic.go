package asyncevents

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Topic owns one Subscription Registry and dispatches publications to it
// under one of four delivery disciplines. A Topic is safe for concurrent use.
type Topic struct {
	name       string
	ackTimeout atomic.Int64 // nanoseconds, read/written via helpers below
	observers  observers

	reg *registry

	emitted   atomic.Int64
	published atomic.Int64
	executed  atomic.Int64
	delivered atomic.Int64
}

// NewTopic constructs a Topic. ackTimeout bounds how long Deliver waits for a
// subscriber to acknowledge before the subscription is marked timed out; it
// must be positive.
func NewTopic(name string, ackTimeout time.Duration) (*Topic, error) {
	if ackTimeout <= 0 {
		return nil, ErrInvalidTimeout
	}
	t := &Topic{name: name, reg: newRegistry()}
	t.ackTimeout.Store(int64(ackTimeout))
	return t, nil
}

// AckTimeout returns the topic's current acknowledgment timeout.
func (t *Topic) AckTimeout() time.Duration { return time.Duration(t.ackTimeout.Load()) }

// setAckTimeout updates the acknowledgment timeout in effect for future
// Deliver calls. Existing in-flight ack machines keep their original timer.
func (t *Topic) setAckTimeout(d time.Duration) { t.ackTimeout.Store(int64(d)) }

// RegisterObserver adds an optional side-channel observer. Observers are
// never consulted to determine a producer's return value; see Observer.
func (t *Topic) RegisterObserver(o Observer) { t.observers.register(o) }

// UnregisterObserver removes a previously registered observer. A no-op if o
// was never registered.
func (t *Topic) UnregisterObserver(o Observer) { t.observers.unregister(o) }

// Subscribe registers handler for every name in events and returns the new
// subscription's ID. The subscription is dispatched under Emit, Publish, and
// Execute; see Deliver for how a Handler-kind subscription behaves there.
func (t *Topic) Subscribe(events []string, handler Handler) (string, error) {
	if handler == nil {
		return "", ErrHandlerNil
	}
	if len(events) == 0 {
		return "", ErrNoEventNames
	}
	sub := &subscription{handler: handler}
	t.reg.add(events, sub)
	return sub.id, nil
}

// SubscribeAck registers an acknowledgment-style handler for every name in
// events and returns the new subscription's ID. The subscription is
// dispatched under all four disciplines; see Emit, Publish, and Execute for
// how an AckHandler-kind subscription behaves outside Deliver.
func (t *Topic) SubscribeAck(events []string, handler AckHandler) (string, error) {
	if handler == nil {
		return "", ErrHandlerNil
	}
	if len(events) == 0 {
		return "", ErrNoEventNames
	}
	sub := &subscription{ackHandler: handler}
	t.reg.add(events, sub)
	return sub.id, nil
}

// Unsubscribe removes a subscription by ID. It reports whether a
// subscription with that ID was still registered.
func (t *Topic) Unsubscribe(subscriptionID string) bool {
	return t.reg.remove(subscriptionID)
}

// EventNames returns the distinct event names with at least one live
// subscription, in no particular order.
func (t *Topic) EventNames() []string {
	t.reg.mu.RLock()
	defer t.reg.mu.RUnlock()
	names := make([]string, 0, len(t.reg.byEvent))
	for name := range t.reg.byEvent {
		names = append(names, name)
	}
	return names
}

// SubscriberCount returns the number of live subscriptions registered for
// event.
func (t *Topic) SubscriberCount(event string) int {
	return len(t.reg.matching(event))
}

// Stats is a snapshot of per-discipline publication counters.
type Stats struct {
	Emitted   int64
	Published int64
	Executed  int64
	Delivered int64
}

// Stats returns a point-in-time snapshot of this topic's dispatch counters.
func (t *Topic) Stats() Stats {
	return Stats{
		Emitted:   t.emitted.Load(),
		Published: t.published.Load(),
		Executed:  t.executed.Load(),
		Delivered: t.delivered.Load(),
	}
}

// Emit dispatches event to every matching subscription without waiting for
// any of them to complete and without reporting results. A Handler-kind
// subscription's return error, and an AckHandler-kind subscription's
// rejection, are only visible through an installed Observer.
func (t *Topic) Emit(ctx context.Context, event string, payload any, overrides map[string]any) Metadata {
	t.emitted.Add(1)
	meta := buildMetadata(t.name, event, overrides)
	subs := t.reg.matching(event)
	if len(subs) == 0 {
		t.notifyNoSubscriptions(event, meta)
		return meta
	}
	for _, sub := range subs {
		sub := sub
		sm := meta.forSubscriber(sub.id)
		go func() {
			defer t.recoverInto(sub, event, meta, nil)
			if sub.handler != nil {
				if _, err := sub.handler(ctx, sm, payload); err != nil {
					t.notifyHandlerFailed(event, meta, sub.id, err)
				}
				return
			}
			sub.ackHandler(ctx, sm, payload, func(err error, _ any) {
				if err != nil {
					t.notifyHandlerFailed(event, meta, sub.id, err)
				}
			})
		}()
	}
	return meta
}

// Publish dispatches event to every matching subscription and waits for all
// of them, returning an Outcome that aggregates each subscriber's Result.
// Publish never fails the producer: a subscriber rejection is only reflected
// in its Result entry.
func (t *Topic) Publish(ctx context.Context, event string, payload any, overrides map[string]any) Outcome {
	t.published.Add(1)
	return t.dispatchAwaited(ctx, event, payload, overrides)
}

// Execute dispatches event exactly as Publish does, but returns a non-nil
// *AggregateExecutionFailure if any matched subscription rejected.
func (t *Topic) Execute(ctx context.Context, event string, payload any, overrides map[string]any) (Outcome, error) {
	t.executed.Add(1)
	out := t.dispatchAwaited(ctx, event, payload, overrides)
	for _, r := range out.Results {
		if r.Status == StatusRejected {
			err := &AggregateExecutionFailure{Event: event, Meta: out.Meta, Results: out.Results}
			t.notifyExecuteFailed(event, out.Meta, err)
			return out, err
		}
	}
	return out, nil
}

// dispatchAwaited implements the common Publish/Execute fan-out: every
// matched subscription runs concurrently and every Result is collected at its
// registration-order index, regardless of completion order.
func (t *Topic) dispatchAwaited(ctx context.Context, event string, payload any, overrides map[string]any) Outcome {
	meta := buildMetadata(t.name, event, overrides)
	subs := t.reg.matching(event)
	if len(subs) == 0 {
		t.notifyNoSubscriptions(event, meta)
		return Outcome{Count: 0, Meta: meta, Results: nil}
	}

	results := make([]Result, len(subs))
	var wg sync.WaitGroup
	wg.Add(len(subs))
	for i, sub := range subs {
		i, sub := i, sub
		sm := meta.forSubscriber(sub.id)
		go func() {
			defer wg.Done()
			results[i] = t.runAwaited(ctx, sub, event, meta, sm, payload)
		}()
	}
	wg.Wait()
	return Outcome{Count: len(subs), Meta: meta, Results: results}
}

// runAwaited executes one subscription for Publish/Execute. A Handler-kind
// subscription runs to completion and its return is the Result directly. An
// AckHandler-kind subscription is invoked with an ack wired to a channel this
// call blocks on without a timeout: outside Deliver no per-subscriber
// deadline applies, so a subscription that never acks hangs the publication,
// by design.
func (t *Topic) runAwaited(ctx context.Context, sub *subscription, event string, meta Metadata, sm SubscriberMeta, payload any) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			result = rejected(panicError(r))
		}
	}()

	if sub.handler != nil {
		v, err := sub.handler(ctx, sm, payload)
		if err != nil {
			return rejected(err)
		}
		return fulfilled(v)
	}

	done := make(chan Result, 1)
	var once sync.Once
	sub.ackHandler(ctx, sm, payload, func(err error, value any) {
		once.Do(func() {
			if err != nil {
				done <- rejected(err)
				return
			}
			done <- fulfilled(value)
		})
	})
	return <-done
}

// Deliver dispatches event to every matching subscription and waits for each
// to acknowledge, or for the topic's ack timeout to elapse, whichever comes
// first. An AckHandler-kind subscription's Result is exactly what it passes
// to ack. A Handler-kind subscription runs for its side effects, but its
// return is never consulted — it structurally cannot ack, so it resolves as
// a timeout, or as a rejection carrying the panic if the handler panics.
func (t *Topic) Deliver(ctx context.Context, event string, payload any, overrides map[string]any) Outcome {
	t.delivered.Add(1)
	meta := buildMetadata(t.name, event, overrides)
	subs := t.reg.matching(event)
	if len(subs) == 0 {
		t.notifyNoSubscriptions(event, meta)
		return Outcome{Count: 0, Meta: meta, Results: nil}
	}

	results := make([]Result, len(subs))
	var wg sync.WaitGroup
	wg.Add(len(subs))
	for i, sub := range subs {
		i, sub := i, sub
		sm := meta.forSubscriber(sub.id)
		go func() {
			defer wg.Done()
			results[i] = t.deliverOne(ctx, sub, event, meta, sm, payload)
		}()
	}
	wg.Wait()
	return Outcome{Count: len(subs), Meta: meta, Results: results}
}

func (t *Topic) deliverOne(ctx context.Context, sub *subscription, event string, meta Metadata, sm SubscriberMeta, payload any) Result {
	timeout := t.AckTimeout()
	am := newAckMachine(timeout, func() Result {
		err := &AckTimeoutError{Topic: t.name, Event: event, SubscriptionID: sub.id, Timeout: timeout}
		t.notifyAckTimeout(event, meta, sub.id, err)
		return rejected(err)
	})

	go func() {
		defer func() {
			if r := recover(); r != nil {
				am.ack(panicError(r), nil)
			}
		}()
		if sub.ackHandler != nil {
			sub.ackHandler(ctx, sm, payload, am.ack)
			return
		}
		// Handler-kind subscription under Deliver: run for side effects only,
		// it has no way to ack so it always times out unless it panics first.
		sub.handler(ctx, sm, payload) //nolint:errcheck
	}()

	return am.wait()
}

func (t *Topic) recoverInto(sub *subscription, event string, meta Metadata, _ any) {
	if r := recover(); r != nil {
		t.notifyHandlerFailed(event, meta, sub.id, panicError(r))
	}
}
