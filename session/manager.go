package session

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Presence is one online profile's state.
type Presence struct {
	ProfileID int64
	LastSeen  time.Time
}

// Manager maintains the registry of online profiles. A profile is online
// between Register and Unregister, or until its heartbeat goes stale and
// PruneStale drops it.
type Manager struct {
	mu     sync.RWMutex
	online map[int64]*Presence
	logger *zap.Logger
}

// NewManager creates a new presence Manager.
func NewManager(logger *zap.Logger) *Manager {
	return &Manager{
		online: make(map[int64]*Presence),
		logger: logger,
	}
}

// Register marks a profile online. Re-registering refreshes last-seen.
func (m *Manager) Register(profileID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.online[profileID]; !ok {
		m.logger.Info("profile online", zap.Int64("profile_id", profileID))
	}
	m.online[profileID] = &Presence{ProfileID: profileID, LastSeen: time.Now()}
}

// Heartbeat refreshes a profile's last-seen timestamp if it is online.
func (m *Manager) Heartbeat(profileID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.online[profileID]; ok {
		p.LastSeen = time.Now()
	}
}

// Unregister marks a profile offline.
func (m *Manager) Unregister(profileID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.online[profileID]; ok {
		delete(m.online, profileID)
		m.logger.Info("profile offline", zap.Int64("profile_id", profileID))
	}
}

// IsOnline reports whether a profile is currently online.
func (m *Manager) IsOnline(profileID int64) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.online[profileID]
	return ok
}

// Count returns the number of online profiles.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.online)
}

// All returns a snapshot of online profile IDs.
func (m *Manager) All() []int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]int64, 0, len(m.online))
	for id := range m.online {
		out = append(out, id)
	}
	return out
}

// PruneStale drops profiles whose heartbeat is older than maxAge and
// returns how many were dropped.
func (m *Manager) PruneStale(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)
	m.mu.Lock()
	defer m.mu.Unlock()
	dropped := 0
	for id, p := range m.online {
		if p.LastSeen.Before(cutoff) {
			delete(m.online, id)
			dropped++
		}
	}
	if dropped > 0 {
		m.logger.Info("pruned stale presences", zap.Int("count", dropped))
	}
	return dropped
}
