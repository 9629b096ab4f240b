package asyncevents

import (
	"time"

	"github.com/google/uuid"
)

// busAuthoritative names the metadata keys a producer's overrides can never
// replace. The bus value always wins for these, silently.
var busAuthoritative = map[string]struct{}{
	"id":    {},
	"time":  {},
	"topic": {},
	"event": {},
}

// Metadata is the immutable per-publication bundle threaded through every
// delivery discipline. One Metadata value is built per publication call and
// shared, by value, across every subscriber of that call.
type Metadata struct {
	ID        string
	Time      int64 // milliseconds since epoch
	Topic     string
	Event     string
	overrides map[string]any
}

// Get returns a producer-supplied override for key, or a bus-authoritative
// field if key names one of id/time/topic/event.
func (m Metadata) Get(key string) (any, bool) {
	switch key {
	case "id":
		return m.ID, true
	case "time":
		return m.Time, true
	case "topic":
		return m.Topic, true
	case "event":
		return m.Event, true
	}
	v, ok := m.overrides[key]
	return v, ok
}

// Map returns the metadata bundle, including overrides, as a plain map. The
// result never contains "subscriptionId" — that key only exists on the copy
// handed to a subscriber, see SubscriberMeta.
func (m Metadata) Map() map[string]any {
	out := make(map[string]any, len(m.overrides)+4)
	for k, v := range m.overrides {
		out[k] = v
	}
	out["id"] = m.ID
	out["time"] = m.Time
	out["topic"] = m.Topic
	out["event"] = m.Event
	return out
}

// SubscriberMeta is the per-recipient copy of Metadata. It adds
// SubscriptionID without mutating the shared Metadata the copy is based on.
type SubscriberMeta struct {
	Metadata
	SubscriptionID string
}

// buildMetadata constructs the one metadata bundle for a publication,
// merging producer overrides under the bus-authoritative-wins rule.
func buildMetadata(topic, event string, overrides map[string]any) Metadata {
	m := Metadata{
		ID:    uuid.NewString(),
		Time:  time.Now().UnixMilli(),
		Topic: topic,
		Event: event,
	}
	if len(overrides) == 0 {
		return m
	}
	m.overrides = make(map[string]any, len(overrides))
	for k, v := range overrides {
		if _, reserved := busAuthoritative[k]; reserved {
			continue
		}
		m.overrides[k] = v
	}
	return m
}

// forSubscriber returns the per-recipient copy of m, adding subscriptionID.
func (m Metadata) forSubscriber(subscriptionID string) SubscriberMeta {
	return SubscriberMeta{Metadata: m, SubscriptionID: subscriptionID}
}
