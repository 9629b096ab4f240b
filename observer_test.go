package asyncevents

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingObserver struct {
	mu     sync.Mutex
	events []cloudevents.Event
}

func (o *recordingObserver) Notify(_ context.Context, event cloudevents.Event) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, event)
}

func (o *recordingObserver) snapshot() []cloudevents.Event {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]cloudevents.Event, len(o.events))
	copy(out, o.events)
	return out
}

func TestObserverReceivesEmitSwallowedError(t *testing.T) {
	topic := newTestTopic(t, time.Second)
	obs := &recordingObserver{}
	topic.RegisterObserver(obs)

	done := make(chan struct{})
	_, err := topic.Subscribe([]string{"created"}, func(ctx context.Context, meta SubscriberMeta, payload any) (any, error) {
		return nil, errors.New("boom")
	})
	require.NoError(t, err)
	_, err = topic.Subscribe([]string{"created"}, func(ctx context.Context, meta SubscriberMeta, payload any) (any, error) {
		close(done)
		return nil, nil
	})
	require.NoError(t, err)

	topic.Emit(context.Background(), "created", nil, nil)
	<-done
	assert.Eventually(t, func() bool {
		return len(obs.snapshot()) >= 1
	}, time.Second, 5*time.Millisecond)

	events := obs.snapshot()
	assert.Equal(t, EventTypeHandlerFailed, events[0].Type())
}

func TestObserverReceivesAckTimeout(t *testing.T) {
	topic := newTestTopic(t, 10*time.Millisecond)
	obs := &recordingObserver{}
	topic.RegisterObserver(obs)

	_, err := topic.SubscribeAck([]string{"created"}, func(ctx context.Context, meta SubscriberMeta, payload any, ack Ack) {})
	require.NoError(t, err)

	topic.Deliver(context.Background(), "created", nil, nil)
	require.Eventually(t, func() bool {
		return len(obs.snapshot()) >= 1
	}, time.Second, 5*time.Millisecond)

	events := obs.snapshot()
	require.Len(t, events, 1)
	assert.Equal(t, EventTypeAckTimeout, events[0].Type())
}

func TestObserverReceivesExecuteFailure(t *testing.T) {
	topic := newTestTopic(t, time.Second)
	obs := &recordingObserver{}
	topic.RegisterObserver(obs)

	_, err := topic.Subscribe([]string{"created"}, func(ctx context.Context, meta SubscriberMeta, payload any) (any, error) {
		return nil, errors.New("boom")
	})
	require.NoError(t, err)

	_, execErr := topic.Execute(context.Background(), "created", nil, nil)
	require.Error(t, execErr)
	require.Eventually(t, func() bool {
		return len(obs.snapshot()) >= 1
	}, time.Second, 5*time.Millisecond)

	events := obs.snapshot()
	require.Len(t, events, 1)
	assert.Equal(t, EventTypeExecuteFailed, events[0].Type())
}

func TestNilObserverIsANoOp(t *testing.T) {
	topic := newTestTopic(t, time.Second)
	assert.NotPanics(t, func() {
		topic.Emit(context.Background(), "nothing-subscribed", nil, nil)
	})
}

func TestMultipleObserversAllReceiveNotifications(t *testing.T) {
	topic := newTestTopic(t, time.Second)
	first := &recordingObserver{}
	second := &recordingObserver{}
	topic.RegisterObserver(first)
	topic.RegisterObserver(second)

	topic.Emit(context.Background(), "nothing-subscribed", nil, nil)

	assert.Eventually(t, func() bool {
		return len(first.snapshot()) == 1 && len(second.snapshot()) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestUnregisterObserverStopsFutureNotifications(t *testing.T) {
	topic := newTestTopic(t, time.Second)
	obs := &recordingObserver{}
	topic.RegisterObserver(obs)
	topic.UnregisterObserver(obs)

	topic.Emit(context.Background(), "nothing-subscribed", nil, nil)

	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, obs.snapshot())
}
