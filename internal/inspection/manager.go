package inspection

import (
	"sync"

	"github.com/ukydev/equipment-checklist/internal/checklist"
	"github.com/ukydev/equipment-checklist/internal/models"
)

type sessionKey struct {
	userID string
	typ    models.ChecklistType
}

// Manager owns the open sessions of every signed-in operator. Sessions live
// from first use until End/EndAll (sign-out).
type Manager struct {
	deps *Deps

	mu       sync.Mutex
	sessions map[sessionKey]*Session
}

// NewManager creates a manager sharing deps across sessions.
func NewManager(deps Deps) *Manager {
	return &Manager{
		deps:     deps.withDefaults(),
		sessions: make(map[sessionKey]*Session),
	}
}

// Policy is the score policy sessions are assembled with.
func (m *Manager) Policy() checklist.ScorePolicy {
	return m.deps.Assembler.Policy
}

// Get returns the user's session for typ, starting one if needed. created
// reports whether the session is new.
func (m *Manager) Get(userID string, typ models.ChecklistType) (s *Session, created bool, err error) {
	key := sessionKey{userID: userID, typ: typ}

	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[key]; ok {
		return s, false, nil
	}
	def, err := checklist.GetDefinition(typ)
	if err != nil {
		return nil, false, err
	}
	s = newSession(m.deps, userID, typ, def)
	m.sessions[key] = s
	return s, true, nil
}

// Start replaces any session the user has for typ with a fresh one.
func (m *Manager) Start(userID string, typ models.ChecklistType) (*Session, error) {
	def, err := checklist.GetDefinition(typ)
	if err != nil {
		return nil, err
	}
	s := newSession(m.deps, userID, typ, def)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sessionKey{userID: userID, typ: typ}] = s
	return s, nil
}

// Lookup returns an existing session without creating one.
func (m *Manager) Lookup(userID string, typ models.ChecklistType) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionKey{userID: userID, typ: typ}]
	return s, ok
}

// End drops one session.
func (m *Manager) End(userID string, typ models.ChecklistType) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionKey{userID: userID, typ: typ})
}

// EndAll drops every session of a user and returns how many there were.
func (m *Manager) EndAll(userID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for key := range m.sessions {
		if key.userID == userID {
			delete(m.sessions, key)
			n++
		}
	}
	return n
}

// Count is the number of open sessions.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
