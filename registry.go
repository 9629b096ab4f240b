package asyncevents

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Ack is the acknowledgment continuation passed to an AckHandler. The first
// call wins: it carries either a rejection (err non-nil) or a fulfilled value
// (err nil). Every call after the first is a no-op.
type Ack func(err error, value any)

// Handler is a subscriber invoked under Emit, Publish, and Execute. Its
// return value and error become the subscriber's Result under Publish and
// Execute; under Emit the value is discarded and a non-nil error is reported
// only to the topic's registered Observers.
type Handler func(ctx context.Context, meta SubscriberMeta, payload any) (any, error)

// AckHandler is a subscriber invoked under Deliver. Its own return value is
// never consulted — only the Ack it calls (or fails to call before the
// topic's timeout) determines its Result. AckHandler subscriptions may also
// be dispatched under Emit, Publish, and Execute; see Topic for how those
// disciplines treat an acknowledgment call outside Deliver.
type AckHandler func(ctx context.Context, meta SubscriberMeta, payload any, ack Ack)

// subscription is one registered (handler, event-name-set, id) record. Each
// subscription carries exactly one of handler or ackHandler, never both,
// reflecting the spec's two handler arities as distinct Go types rather than
// a reflection-dispatched single signature.
type subscription struct {
	id         string
	events     []string
	handler    Handler
	ackHandler AckHandler
}

// registry is the Subscription Registry: it maps an event name to the set of
// live subscriptions on one topic, preserving registration order.
type registry struct {
	mu      sync.RWMutex
	byEvent map[string][]*subscription
	byID    map[string]*subscription
}

func newRegistry() *registry {
	return &registry{
		byEvent: make(map[string][]*subscription),
		byID:    make(map[string]*subscription),
	}
}

func (r *registry) add(events []string, sub *subscription) {
	sub.id = uuid.NewString()
	sub.events = append([]string(nil), events...)

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range events {
		r.byEvent[e] = append(r.byEvent[e], sub)
	}
	r.byID[sub.id] = sub
}

// remove deletes the subscription from every event name it was registered
// for. It is idempotent and reports whether anything was removed.
func (r *registry) remove(subscriptionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub, ok := r.byID[subscriptionID]
	if !ok {
		return false
	}
	delete(r.byID, subscriptionID)
	for _, e := range sub.events {
		subs := r.byEvent[e]
		for i, s := range subs {
			if s.id == subscriptionID {
				r.byEvent[e] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
		if len(r.byEvent[e]) == 0 {
			delete(r.byEvent, e)
		}
	}
	return true
}

// matching returns a stable, insertion-ordered snapshot of the subscriptions
// registered for event. The snapshot is frozen at call time: later
// add/remove calls never affect a slice already returned.
func (r *registry) matching(event string) []*subscription {
	r.mu.RLock()
	defer r.mu.RUnlock()

	subs := r.byEvent[event]
	if len(subs) == 0 {
		return nil
	}
	out := make([]*subscription, len(subs))
	copy(out, subs)
	return out
}
