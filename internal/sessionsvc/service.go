// Package sessionsvc implements the session aggregation service: join,
// bootstrap, submit_data and get_session, plus the two asynchronous job
// handlers a worker pool drives. It owns every state-machine transition in
// the core; internal/api and internal/worker are thin transport/dispatch
// shells around it.
package sessionsvc

import (
	"context"
	"log/slog"
	"strconv"
	"sync"

	"github.com/ocx/fhecoord/internal/apperr"
	"github.com/ocx/fhecoord/internal/dispatch"
	"github.com/ocx/fhecoord/internal/domain"
	"github.com/ocx/fhecoord/internal/fhe"
	"github.com/ocx/fhecoord/internal/store"
)

// Service is the single entry point for every session operation. It is safe
// for concurrent use: mutation is routed through a per-session actor,
// lazily created on first access and kept for the process lifetime.
type Service struct {
	store      store.SessionStore
	dispatcher dispatch.JobDispatcher
	ring       fhe.RingKind
	logger     *slog.Logger

	mu     sync.Mutex
	actors map[domain.SessionID]*actor
}

func New(st store.SessionStore, dispatcher dispatch.JobDispatcher, ring fhe.RingKind, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:      st,
		dispatcher: dispatcher,
		ring:       ring,
		logger:     logger,
		actors:     make(map[domain.SessionID]*actor),
	}
}

func (svc *Service) actorFor(id domain.SessionID) *actor {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	a, ok := svc.actors[id]
	if !ok {
		a = newActor()
		svc.actors[id] = a
	}
	return a
}

// CreateSession starts a new session awaiting participantNumber clients,
// per §3's multi-session expansion: each call mints a fresh session id
// rather than reusing a single well-known one.
func (svc *Service) CreateSession(ctx context.Context, participantNumber int) (*domain.Session, error) {
	if participantNumber <= 0 {
		return nil, apperr.ValidationFail("participant_number must be positive")
	}
	s := domain.New(domain.NewSessionID(), participantNumber, svc.ring)
	if err := svc.store.Create(ctx, s); err != nil {
		return nil, err
	}
	svc.logger.Info("session created", "session_id", s.ID.String(), "participant_number", participantNumber)
	return s, nil
}

// GetSession is a plain read; it performs no mutation so it bypasses the
// session's actor.
func (svc *Service) GetSession(ctx context.Context, id domain.SessionID) (*domain.Session, error) {
	return svc.store.Get(ctx, id)
}

// JoinInput is one client's contribution at join time.
type JoinInput struct {
	ClientID   domain.ClientID
	PkShare    []byte
	RpKeyShare []byte
}

// Join records a client's pk-share and rp-key-share. When the Nth client
// joins, the coordinator aggregates pk/rp shares synchronously (cheap XOR
// folds in this core's facade) and advances the session to
// WaitingForBootstrap — unlike bootstrap-key aggregation, this step is not
// dispatched to the worker pool.
func (svc *Service) Join(ctx context.Context, id domain.SessionID, in JoinInput) (*domain.Session, error) {
	var result *domain.Session
	var opErr error

	err := svc.actorFor(id).do(ctx, func() {
		s, err := svc.store.Get(ctx, id)
		if err != nil {
			opErr = err
			return
		}
		if len(s.Clients) >= s.ParticipantNumber() {
			opErr = apperr.SessionFull("session " + id.String() + " already has all participants")
			return
		}
		if s.Status != domain.WaitingForClients {
			opErr = apperr.SessionError("session " + id.String() + " is not accepting new clients")
			return
		}
		if _, exists := s.Clients[in.ClientID]; exists {
			opErr = apperr.ValidationFail("client already joined")
			return
		}
		if len(in.PkShare) == 0 || len(in.RpKeyShare) == 0 {
			opErr = apperr.ValidationFail("pk_share and rp_key_share must be non-empty")
			return
		}
		if int(in.ClientID) < 0 || int(in.ClientID) >= s.ParticipantNumber() {
			opErr = apperr.ValidationFail("client_id must lie in [0, participant_number)")
			return
		}

		s.Clients[in.ClientID] = &domain.ClientRecord{
			ID:         in.ClientID,
			PkShare:    in.PkShare,
			RpKeyShare: in.RpKeyShare,
		}

		if len(s.Clients) == s.ParticipantNumber() {
			if err := svc.aggregateJoinShares(s); err != nil {
				opErr = err
				return
			}
			s.Status = domain.WaitingForBootstrap
		}

		if err := svc.store.Update(ctx, s); err != nil {
			opErr = err
			return
		}
		result = s
	})
	if err != nil {
		return nil, err
	}
	return result, opErr
}

// aggregateJoinShares deserializes every client's pk-share and rp-key-share
// in sorted client-ID order and aggregates them. A malformed share aborts
// the join entirely (spec.md §4.1: "Fails with InvalidShare if
// deserialization of any share fails during the N-th join") rather than
// being silently dropped from the aggregate.
func (svc *Service) aggregateJoinShares(s *domain.Session) error {
	ids := s.SortedClientIDs()
	pkShares := make([]fhe.PadSeed, 0, len(ids))
	rpShares := make([]fhe.PadSeed, 0, len(ids))
	for _, id := range ids {
		c := s.Clients[id]
		ps, err := fhe.DeserializePadSeed(c.PkShare)
		if err != nil {
			return apperr.InvalidShare("malformed pk_share for client "+strconv.Itoa(int(id)), err)
		}
		pkShares = append(pkShares, ps)

		rs, err := fhe.DeserializePadSeed(c.RpKeyShare)
		if err != nil {
			return apperr.InvalidShare("malformed rp_key_share for client "+strconv.Itoa(int(id)), err)
		}
		rpShares = append(rpShares, rs)
	}
	s.PK = s.ServerState.AggregatePkShares(pkShares)
	s.ServerState.AggregateRpKeyShares(rpShares)
	return nil
}

// Bootstrap records a client's bootstrap-key share. Once every joined
// client has submitted one, an AggregateBootstrap job is enqueued; the
// status only advances once the worker pool processes that job (§4.2).
func (svc *Service) Bootstrap(ctx context.Context, id domain.SessionID, clientID domain.ClientID, bsKeyShare []byte) (*domain.Session, error) {
	var result *domain.Session
	var opErr error
	var shouldEnqueue bool

	err := svc.actorFor(id).do(ctx, func() {
		s, err := svc.store.Get(ctx, id)
		if err != nil {
			opErr = err
			return
		}
		if s.Status != domain.WaitingForBootstrap {
			opErr = apperr.SessionError("session " + id.String() + " is not waiting for bootstrap shares")
			return
		}
		c, ok := s.Clients[clientID]
		if !ok {
			opErr = apperr.SessionError("unknown client " + strconv.Itoa(int(clientID)) + " for session " + id.String())
			return
		}
		if len(bsKeyShare) == 0 {
			opErr = apperr.ValidationFail("bs_key_share must be non-empty")
			return
		}
		alreadyHadShare := len(c.BsKeyShare) > 0
		c.BsKeyShare = bsKeyShare

		if !alreadyHadShare && s.AllBsKeySharesPresent() {
			shouldEnqueue = true
		}
		if err := svc.store.Update(ctx, s); err != nil {
			opErr = err
			return
		}
		result = s
	})
	if err != nil {
		return nil, err
	}
	if opErr != nil {
		return nil, opErr
	}
	if shouldEnqueue {
		if err := svc.dispatcher.Enqueue(ctx, dispatch.AggregateBootstrap, id, nil); err != nil {
			return nil, apperr.Internal("enqueue aggregate_bootstrap job", err)
		}
		svc.logger.Info("aggregate_bootstrap job enqueued", "session_id", id.String())
	}
	return result, nil
}

// SubmitInput is one client's encrypted argument.
type SubmitInput struct {
	ClientID      domain.ClientID
	EncryptedData []byte
}

// SubmitData records a client's encrypted argument. Once every joined
// client has submitted, a ComputeFunction job is enqueued.
func (svc *Service) SubmitData(ctx context.Context, id domain.SessionID, in SubmitInput) (*domain.Session, error) {
	var result *domain.Session
	var opErr error
	var shouldEnqueue bool

	err := svc.actorFor(id).do(ctx, func() {
		s, err := svc.store.Get(ctx, id)
		if err != nil {
			opErr = err
			return
		}
		if s.Status != domain.WaitingForArgument {
			opErr = apperr.SessionError("session " + id.String() + " is not waiting for arguments")
			return
		}
		c, ok := s.Clients[in.ClientID]
		if !ok {
			opErr = apperr.SessionError("unknown client " + strconv.Itoa(int(in.ClientID)) + " for session " + id.String())
			return
		}
		if len(in.EncryptedData) == 0 {
			opErr = apperr.ValidationFail("encrypted data must be non-empty")
			return
		}
		alreadyHadData := len(c.EncryptedData) > 0
		c.EncryptedData = in.EncryptedData

		if !alreadyHadData && s.AllDataPresent() {
			shouldEnqueue = true
		}
		if err := svc.store.Update(ctx, s); err != nil {
			opErr = err
			return
		}
		result = s
	})
	if err != nil {
		return nil, err
	}
	if opErr != nil {
		return nil, opErr
	}
	if shouldEnqueue {
		if err := svc.dispatcher.Enqueue(ctx, dispatch.ComputeFunction, id, nil); err != nil {
			return nil, apperr.Internal("enqueue compute_function job", err)
		}
		svc.logger.Info("compute_function job enqueued", "session_id", id.String())
	}
	return result, nil
}
