package sessionsvc

import (
	"context"
	"strconv"

	"github.com/ocx/fhecoord/internal/apperr"
	"github.com/ocx/fhecoord/internal/domain"
	"github.com/ocx/fhecoord/internal/fhe"
)

// HandleAggregateBootstrap aggregates every client's bootstrap-key share,
// in ascending share-index order, and advances the session to
// WaitingForArgument. It is idempotent: re-delivery against a session
// already past WaitingForBootstrap is a no-op, satisfying at-least-once
// delivery from the dispatcher (§8).
func (svc *Service) HandleAggregateBootstrap(ctx context.Context, id domain.SessionID) error {
	var opErr error
	err := svc.actorFor(id).do(ctx, func() {
		s, err := svc.store.Get(ctx, id)
		if err != nil {
			opErr = err
			return
		}
		if s.Status != domain.WaitingForBootstrap {
			return
		}
		if !s.AllBsKeySharesPresent() {
			opErr = apperr.WorkerError("aggregate_bootstrap dispatched before all bs-key shares arrived", nil)
			return
		}

		ids := s.SortedClientIDs()
		shares := make([]fhe.PadSeed, 0, len(ids))
		for _, cid := range ids {
			ps, err := fhe.DeserializePadSeed(s.Clients[cid].BsKeyShare)
			if err != nil {
				opErr = apperr.WorkerError("malformed bs-key share for client "+strconv.Itoa(int(cid)), err)
				return
			}
			shares = append(shares, ps)
		}
		s.ServerState.AggregateBsKeyShares(shares)
		s.Status = domain.WaitingForArgument

		if err := svc.store.Update(ctx, s); err != nil {
			opErr = err
			return
		}
	})
	if err != nil {
		return err
	}
	return opErr
}

// HandleComputeFunction evaluates the fixed addition circuit over the first
// two clients by ascending share index and advances the session to Done.
// Also idempotent: a session already Done is left untouched.
func (svc *Service) HandleComputeFunction(ctx context.Context, id domain.SessionID) error {
	var opErr error
	err := svc.actorFor(id).do(ctx, func() {
		s, err := svc.store.Get(ctx, id)
		if err != nil {
			opErr = err
			return
		}
		if s.Status != domain.WaitingForArgument {
			return
		}
		if !s.AllDataPresent() {
			opErr = apperr.WorkerError("compute_function dispatched before all data arrived", nil)
			return
		}

		ids := s.SortedClientIDs()
		if len(ids) < 2 {
			opErr = apperr.WorkerError("compute_function requires at least two clients", nil)
			return
		}
		a, err := fhe.DeserializeBatchedCiphertext(s.Clients[ids[0]].EncryptedData)
		if err != nil {
			opErr = apperr.WorkerError("malformed encrypted data for first operand", err)
			return
		}
		b, err := fhe.DeserializeBatchedCiphertext(s.Clients[ids[1]].EncryptedData)
		if err != nil {
			opErr = apperr.WorkerError("malformed encrypted data for second operand", err)
			return
		}

		result, err := fhe.AddU64(s.ServerState, []fhe.Ciphertext(a), []fhe.Ciphertext(b))
		if err != nil {
			opErr = apperr.WorkerError("circuit evaluation failed", err)
			return
		}
		s.Result = result
		s.Status = domain.Done

		if err := svc.store.Update(ctx, s); err != nil {
			opErr = err
			return
		}
	})
	if err != nil {
		return err
	}
	return opErr
}
