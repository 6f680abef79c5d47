package session

import (
	"fmt"
	"sync"
	"time"

	"databridge/internal/domain"

	"github.com/google/uuid"
)

// Manager creates, looks up and expires sessions.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
	now      func() time.Time
	onExpire func(id string)
}

// NewManager returns a manager that expires sessions idle for longer than
// ttl. A ttl of zero disables expiry.
func NewManager(ttl time.Duration) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// OnExpire registers a callback run for every session removed by Sweep or Delete.
func (m *Manager) OnExpire(fn func(id string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onExpire = fn
}

// Create starts a new session.
func (m *Manager) Create() *Session {
	s := newSession(uuid.New().String(), m.clock())
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return s
}

// Get returns the session and marks it active.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, domain.ErrNotFound)
	}
	s.touch(m.clock())
	return s, nil
}

// Delete removes a session.
func (m *Manager) Delete(id string) {
	m.mu.Lock()
	_, ok := m.sessions[id]
	delete(m.sessions, id)
	fn := m.onExpire
	m.mu.Unlock()
	if ok && fn != nil {
		fn(id)
	}
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep removes sessions idle longer than the TTL and returns their IDs.
func (m *Manager) Sweep() []string {
	if m.ttl <= 0 {
		return nil
	}
	now := m.clock()

	m.mu.Lock()
	var expired []string
	for id, s := range m.sessions {
		if s.idleSince(now) > m.ttl {
			expired = append(expired, id)
			delete(m.sessions, id)
		}
	}
	fn := m.onExpire
	m.mu.Unlock()

	if fn != nil {
		for _, id := range expired {
			fn(id)
		}
	}
	return expired
}

func (m *Manager) clock() time.Time {
	m.mu.RLock()
	now := m.now
	m.mu.RUnlock()
	return now()
}

// SetClock replaces the time source. Used by tests.
func (m *Manager) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}
