package asyncevents

import (
	"sync"
	"time"
)

// ackState is the acknowledgment state machine's current phase.
type ackState int

const (
	ackPending ackState = iota
	ackFulfilled
	ackRejected
	ackTimedOut
)

// ackMachine arbitrates the single-shot race between a subscriber calling its
// Ack continuation and the topic's deadline timer firing first. It must be
// armed before the handler that owns it ever runs, so a handler that panics
// before calling ack still resolves (the deferred recover in the caller
// settles it as rejected, see Topic.deliverOne).
type ackMachine struct {
	mu     sync.Mutex
	state  ackState
	result Result
	timer  *time.Timer
	done   chan struct{}
}

// newAckMachine arms the timer immediately. Callers must always call stop
// (directly, or implicitly via wait) at least once to release the timer.
func newAckMachine(timeout time.Duration, onTimeout func() Result) *ackMachine {
	m := &ackMachine{done: make(chan struct{})}
	m.timer = time.AfterFunc(timeout, func() {
		m.settle(ackTimedOut, onTimeout())
	})
	return m
}

// settle records the first outcome to arrive and closes done. Every call
// after the first is a no-op, satisfying the idempotency requirement on
// repeated or racing ack invocations.
func (m *ackMachine) settle(state ackState, result Result) {
	m.mu.Lock()
	if m.state != ackPending {
		m.mu.Unlock()
		return
	}
	m.state = state
	m.result = result
	m.mu.Unlock()
	close(m.done)
}

// ack is the continuation exposed to the subscriber as an Ack func.
func (m *ackMachine) ack(err error, value any) {
	if err != nil {
		m.settle(ackRejected, rejected(err))
		return
	}
	m.settle(ackFulfilled, fulfilled(value))
}

// stop releases the timer. Safe to call multiple times and after the timer
// has already fired.
func (m *ackMachine) stop() {
	m.timer.Stop()
}

// wait blocks until the machine settles (by ack or by timeout) and releases
// the timer before returning.
func (m *ackMachine) wait() Result {
	<-m.done
	m.stop()
	return m.result
}
