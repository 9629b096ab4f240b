package asyncevents

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAckMachineFirstCallWins(t *testing.T) {
	m := newAckMachine(time.Second, func() Result { return rejected(errors.New("timeout")) })
	m.ack(nil, "value")
	m.ack(errors.New("too late"), nil)

	r := m.wait()
	assert.Equal(t, StatusFulfilled, r.Status)
	assert.Equal(t, "value", r.Value)
}

func TestAckMachineTimeoutFiresWhenNeverAcked(t *testing.T) {
	m := newAckMachine(10*time.Millisecond, func() Result { return rejected(errors.New("timed out")) })
	r := m.wait()
	assert.Equal(t, StatusRejected, r.Status)
	assert.EqualError(t, r.Reason, "timed out")
}

func TestAckMachineAckBeforeTimeoutWins(t *testing.T) {
	m := newAckMachine(50*time.Millisecond, func() Result { return rejected(errors.New("timed out")) })
	m.ack(nil, "fast")
	r := m.wait()
	assert.Equal(t, StatusFulfilled, r.Status)
	assert.Equal(t, "fast", r.Value)
}
