package domain

import (
	"sort"
	"time"

	"github.com/ocx/fhecoord/internal/apperr"
	"github.com/ocx/fhecoord/internal/fhe"
)

// Status is the session's monotonically-advancing lifecycle stage.
type Status int

const (
	WaitingForClients Status = iota
	WaitingForBootstrap
	WaitingForArgument
	Done
)

func (s Status) String() string {
	switch s {
	case WaitingForClients:
		return "WaitingForClients"
	case WaitingForBootstrap:
		return "WaitingForBootstrap"
	case WaitingForArgument:
		return "WaitingForArgument"
	case Done:
		return "Done"
	default:
		return "Unknown"
	}
}

func ParseStatus(s string) (Status, error) {
	switch s {
	case "WaitingForClients":
		return WaitingForClients, nil
	case "WaitingForBootstrap":
		return WaitingForBootstrap, nil
	case "WaitingForArgument":
		return WaitingForArgument, nil
	case "Done":
		return Done, nil
	default:
		return 0, apperr.ValidationFail("'" + s + "' is not a valid status")
	}
}

// ClientRecord is one participant's contribution within a session.
type ClientRecord struct {
	ID            ClientID
	PkShare       []byte
	RpKeyShare    []byte
	BsKeyShare    []byte
	EncryptedData []byte
}

// Session is the central aggregate: the coordinator's single mutable record
// per cohort of participants. ServerState is never serialized; it is
// rebuilt from Clients on load (see internal/store).
type Session struct {
	ID        SessionID
	Status    Status
	Clients   map[ClientID]*ClientRecord
	PK        []byte
	Result    []fhe.Ciphertext
	CreatedAt time.Time
	UpdatedAt time.Time

	ServerState *fhe.ServerFacade

	participantNumber int
	ring              fhe.RingKind
}

// New creates a session in WaitingForClients with an empty client map,
// bound to the given participant count and ring kind for the lifetime of
// the session.
func New(id SessionID, participantNumber int, ring fhe.RingKind) *Session {
	now := time.Now()
	return &Session{
		ID:                id,
		Status:            WaitingForClients,
		Clients:           make(map[ClientID]*ClientRecord),
		CreatedAt:         now,
		UpdatedAt:         now,
		ServerState:       fhe.NewServerFacade(ring),
		participantNumber: participantNumber,
		ring:              ring,
	}
}

// ParticipantNumber is the configured N for this session.
func (s *Session) ParticipantNumber() int { return s.participantNumber }

// Ring is the configured ring kind for this session.
func (s *Session) Ring() fhe.RingKind { return s.ring }

// SortedClientIDs returns client IDs in ascending share-index order, used
// wherever the spec requires deterministic ordering over participants
// (bootstrap-key aggregation, circuit operand selection).
func (s *Session) SortedClientIDs() []ClientID {
	ids := make([]ClientID, 0, len(s.Clients))
	for id := range s.Clients {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// AllBsKeySharesPresent reports whether every joined client has submitted a
// non-empty bootstrap-key share.
func (s *Session) AllBsKeySharesPresent() bool {
	if len(s.Clients) != s.participantNumber {
		return false
	}
	for _, c := range s.Clients {
		if len(c.BsKeyShare) == 0 {
			return false
		}
	}
	return true
}

// AllDataPresent reports whether every joined client has submitted
// non-empty encrypted data.
func (s *Session) AllDataPresent() bool {
	if len(s.Clients) != s.participantNumber {
		return false
	}
	for _, c := range s.Clients {
		if len(c.EncryptedData) == 0 {
			return false
		}
	}
	return true
}

// Validate checks the invariants of §3 against the current record. Intended
// for tests and defensive assertions, not the request hot path.
func (s *Session) Validate() error {
	switch s.Status {
	case WaitingForClients:
		if len(s.Clients) >= s.participantNumber {
			return apperr.Internal("invariant violation", nil)
		}
		if len(s.PK) != 0 {
			return apperr.Internal("invariant violation: pk set before WaitingForBootstrap", nil)
		}
	case WaitingForBootstrap:
		if len(s.Clients) != s.participantNumber || len(s.PK) == 0 {
			return apperr.Internal("invariant violation", nil)
		}
		for _, c := range s.Clients {
			if len(c.PkShare) == 0 || len(c.RpKeyShare) == 0 {
				return apperr.Internal("invariant violation: missing pk/rp share", nil)
			}
		}
	case WaitingForArgument:
		if !s.AllBsKeySharesPresent() {
			return apperr.Internal("invariant violation: missing bs-key share", nil)
		}
	case Done:
		if !s.AllDataPresent() || len(s.Result) == 0 {
			return apperr.Internal("invariant violation: missing data or result", nil)
		}
	}
	return nil
}
