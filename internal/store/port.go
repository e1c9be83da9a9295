// Package store is the persistence port for sessions: a narrow interface
// with two implementations (in-memory, Postgres) satisfying the same
// contract, following the source system's SessionPort abstraction and the
// teacher's pattern of swappable store backends (internal/reputation's
// Spanner/SQLite/mock ReputationStore).
package store

import (
	"context"

	"github.com/ocx/fhecoord/internal/domain"
)

// SessionStore owns the Session record exclusively; all mutation goes
// through Update. Get always returns a Session with ServerState populated,
// reconstructing it from persisted client shares when necessary (§3: the
// FHE server handle is not persisted across process restarts).
type SessionStore interface {
	Create(ctx context.Context, s *domain.Session) error
	Get(ctx context.Context, id domain.SessionID) (*domain.Session, error)
	Update(ctx context.Context, s *domain.Session) error
	Delete(ctx context.Context, id domain.SessionID) error
}
