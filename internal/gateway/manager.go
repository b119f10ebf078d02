package gateway

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Fangzx-code/TCP-IP/internal/protocol"
)

// Manager is the session-id -> connection table and the broadcast fan-out.
// Sessions appear here once they register a display name, so broadcasts only
// reach registered participants.
type Manager struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
}

// NewManager creates an empty session manager.
func NewManager() *Manager {
	return &Manager{
		sessions: make(map[uuid.UUID]*Session),
	}
}

// Register adds a session to the broadcast set.
func (m *Manager) Register(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.id] = s
	log.Debug().
		Str("session_id", s.id.String()).
		Int("total_connections", len(m.sessions)).
		Msg("session registered")
}

// Unregister removes a session from the broadcast set. Safe to call for
// sessions that were never registered.
func (m *Manager) Unregister(id uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}

// Broadcast serializes the message once and writes it to every registered
// session. A failed write to one peer is swallowed and does not abort
// delivery to the others; cleanup of dead connections belongs to the
// session's own disconnect path.
func (m *Manager) Broadcast(msg protocol.ServerMessage) {
	data, err := msg.Encode()
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal broadcast message")
		return
	}

	m.mu.RLock()
	targets := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		targets = append(targets, s)
	}
	m.mu.RUnlock()

	for _, s := range targets {
		if err := s.write(data); err != nil {
			log.Debug().
				Err(err).
				Str("session_id", s.id.String()).
				Msg("dropped broadcast to unreachable session")
		}
	}
}

// Count returns the number of registered sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// CloseAll closes every registered session's transport, unblocking their read
// loops. Used during shutdown.
func (m *Manager) CloseAll() {
	m.mu.RLock()
	targets := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		targets = append(targets, s)
	}
	m.mu.RUnlock()

	for _, s := range targets {
		if err := s.conn.Close(); err != nil {
			log.Debug().Err(err).Str("session_id", s.id.String()).Msg("error closing session")
		}
	}
}
