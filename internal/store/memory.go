package store

import (
	"context"
	"sync"

	"github.com/ocx/fhecoord/internal/apperr"
	"github.com/ocx/fhecoord/internal/domain"
	"github.com/ocx/fhecoord/internal/fhe"
)

// InMemoryStore is a process-local SessionStore backed by a guarded map.
// It loses every session across a process restart — used by tests and by
// deployments that accept that tradeoff in exchange for not running
// Postgres (§8 scenario 5).
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[domain.SessionID]*domain.Session
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{sessions: make(map[domain.SessionID]*domain.Session)}
}

func (m *InMemoryStore) Create(_ context.Context, s *domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.sessions[s.ID]; exists {
		return apperr.ValidationFail("session already exists")
	}
	m.sessions[s.ID] = cloneSession(s)
	return nil
}

func (m *InMemoryStore) Get(_ context.Context, id domain.SessionID) (*domain.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, apperr.NotFound("session " + id.String() + " not found")
	}
	return cloneSession(s), nil
}

func (m *InMemoryStore) Update(_ context.Context, s *domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[s.ID]; !ok {
		return apperr.NotFound("session " + s.ID.String() + " not found")
	}
	m.sessions[s.ID] = cloneSession(s)
	return nil
}

func (m *InMemoryStore) Delete(_ context.Context, id domain.SessionID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

// cloneSession deep-copies the client map so callers can't mutate the
// stored record through an aliased pointer, matching the Postgres store's
// "read a fresh row every time" semantics. ServerState is intentionally
// shared by reference within a process: only a process restart loses it,
// at which point the Postgres store's Get rebuilds it from scratch.
// Concurrent mutation safety relies on the session service's per-session
// actor serializing all access, not on this store.
func cloneSession(s *domain.Session) *domain.Session {
	cp := *s
	cp.Clients = make(map[domain.ClientID]*domain.ClientRecord, len(s.Clients))
	for id, c := range s.Clients {
		rc := *c
		cp.Clients[id] = &rc
	}
	cp.Result = append([]fhe.Ciphertext(nil), s.Result...)
	return &cp
}
