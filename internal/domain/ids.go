// Package domain holds the Session/ClientRecord aggregate and its
// invariants. Beyond the standard library it imports only internal/fhe,
// internal/apperr and github.com/google/uuid — no transport or persistence
// concerns leak in here.
package domain

import (
	"github.com/google/uuid"

	"github.com/ocx/fhecoord/internal/apperr"
)

// SessionID is a session's globally unique, lifetime-stable identifier.
type SessionID uuid.UUID

func NewSessionID() SessionID { return SessionID(uuid.New()) }

func ParseSessionID(s string) (SessionID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return SessionID{}, apperr.ParseID(err)
	}
	return SessionID(id), nil
}

func (id SessionID) String() string { return uuid.UUID(id).String() }

// ClientID is a participant's share index, in [0, N).
type ClientID int
