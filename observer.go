package asyncevents

import (
	"context"
	"log/slog"
	"sync"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/google/uuid"
)

func newEventID() string { return uuid.NewString() }

// Event types reported to an Observer. Named after the reverse-domain
// convention the rest of the module's CloudEvents payloads use.
const (
	EventTypeHandlerFailed  = "io.asyncevents.handler.failed"
	EventTypeAckTimeout     = "io.asyncevents.ack.timeout"
	EventTypeExecuteFailed  = "io.asyncevents.execute.failed"
	EventTypeNoSubscription = "io.asyncevents.no_subscription"
)

// Observer receives a side-channel notification for an Emit subscriber's
// error, a Deliver subscription's timeout, an Execute aggregate failure, or a
// dispatch that matched no subscription. An Observer is never consulted to
// decide a producer's return value — it is strictly informational, and Notify
// is called from a goroutine detached from dispatch, so it never blocks it.
type Observer interface {
	Notify(ctx context.Context, event cloudevents.Event)
}

// Subject is satisfied by a Topic: it exposes where Observer notifications
// originate from, named after the teacher's Observer/Subject convention. A
// Subject may broadcast to zero or more registered Observers.
type Subject interface {
	RegisterObserver(o Observer)
	UnregisterObserver(o Observer)
}

// observers is a mutex-guarded, append-only-until-removed list of Observers,
// embedded in Topic. Registration and removal are safe for concurrent use
// alongside in-flight notify calls.
type observers struct {
	mu   sync.RWMutex
	list []Observer
}

func (o *observers) register(obs Observer) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.list = append(o.list, obs)
}

func (o *observers) unregister(obs Observer) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i, existing := range o.list {
		if existing == obs {
			o.list = append(o.list[:i], o.list[i+1:]...)
			return
		}
	}
}

// snapshot returns a stable copy safe to range over without holding the lock.
func (o *observers) snapshot() []Observer {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if len(o.list) == 0 {
		return nil
	}
	out := make([]Observer, len(o.list))
	copy(out, o.list)
	return out
}

// SlogObserver logs every notification with log/slog. It is the default,
// zero-configuration Observer.
type SlogObserver struct {
	Logger *slog.Logger
}

// NewSlogObserver returns an Observer that logs to logger, or to
// slog.Default() if logger is nil.
func NewSlogObserver(logger *slog.Logger) *SlogObserver {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogObserver{Logger: logger}
}

func (o *SlogObserver) Notify(_ context.Context, event cloudevents.Event) {
	o.Logger.Warn("asyncevents notification",
		"type", event.Type(),
		"source", event.Source(),
		"subject", event.Subject(),
		"data", string(event.Data()),
	)
}

// newCloudEvent builds the CloudEvents envelope shared by every notification
// path, mirroring the teacher's NewCloudEvent helper.
func newCloudEvent(eventType, topic, subject string, data map[string]any) cloudevents.Event {
	ce := cloudevents.NewEvent()
	ce.SetID(newEventID())
	ce.SetSource("asyncevents/" + topic)
	ce.SetType(eventType)
	ce.SetTime(time.Now())
	ce.SetSubject(subject)
	_ = ce.SetData(cloudevents.ApplicationJSON, data)
	return ce
}

// notify broadcasts to every registered Observer in a detached goroutine, so
// a slow or blocking Observer never holds up the dispatch goroutine that
// triggered it. No observers registered: no goroutine spawns.
func (t *Topic) notify(eventType, subject string, data map[string]any) {
	obs := t.observers.snapshot()
	if len(obs) == 0 {
		return
	}
	event := newCloudEvent(eventType, t.name, subject, data)
	go func() {
		ctx := context.Background()
		for _, o := range obs {
			o.Notify(ctx, event)
		}
	}()
}

func (t *Topic) notifyHandlerFailed(event string, meta Metadata, subscriptionID string, err error) {
	t.notify(EventTypeHandlerFailed, event, map[string]any{
		"event":          event,
		"metadataId":     meta.ID,
		"subscriptionId": subscriptionID,
		"error":          err.Error(),
	})
}

func (t *Topic) notifyAckTimeout(event string, meta Metadata, subscriptionID string, err *AckTimeoutError) {
	t.notify(EventTypeAckTimeout, event, map[string]any{
		"event":          event,
		"metadataId":     meta.ID,
		"subscriptionId": subscriptionID,
		"timeout":        err.Timeout.String(),
	})
}

func (t *Topic) notifyExecuteFailed(event string, meta Metadata, err *AggregateExecutionFailure) {
	t.notify(EventTypeExecuteFailed, event, map[string]any{
		"event":      event,
		"metadataId": meta.ID,
		"error":      err.Error(),
	})
}

func (t *Topic) notifyNoSubscriptions(event string, meta Metadata) {
	t.notify(EventTypeNoSubscription, event, map[string]any{
		"event":      event,
		"metadataId": meta.ID,
	})
}
