package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestRegisterUnregister(t *testing.T) {
	m := NewManager(zap.NewNop())

	assert.False(t, m.IsOnline(1))
	assert.Zero(t, m.Count())

	m.Register(1)
	m.Register(2)
	assert.True(t, m.IsOnline(1))
	assert.Equal(t, 2, m.Count())
	assert.ElementsMatch(t, []int64{1, 2}, m.All())

	m.Unregister(1)
	assert.False(t, m.IsOnline(1))
	assert.Equal(t, 1, m.Count())

	// Unregistering twice is harmless.
	m.Unregister(1)
	assert.Equal(t, 1, m.Count())
}

func TestPruneStale(t *testing.T) {
	m := NewManager(zap.NewNop())

	m.Register(1)
	m.Register(2)

	// Age profile 1's heartbeat past the cutoff.
	m.mu.Lock()
	m.online[1].LastSeen = time.Now().Add(-5 * time.Minute)
	m.mu.Unlock()

	dropped := m.PruneStale(time.Minute)
	assert.Equal(t, 1, dropped)
	assert.False(t, m.IsOnline(1))
	assert.True(t, m.IsOnline(2))
}

func TestHeartbeatKeepsAlive(t *testing.T) {
	m := NewManager(zap.NewNop())

	m.Register(1)
	m.mu.Lock()
	m.online[1].LastSeen = time.Now().Add(-5 * time.Minute)
	m.mu.Unlock()

	m.Heartbeat(1)
	assert.Zero(t, m.PruneStale(time.Minute), "heartbeat reset the clock")

	// Heartbeat for an offline profile does not register it.
	m.Heartbeat(99)
	assert.False(t, m.IsOnline(99))
}
