package sessionsvc

import (
	"context"
	"testing"
	"time"

	"github.com/ocx/fhecoord/internal/apperr"
	"github.com/ocx/fhecoord/internal/dispatch"
	"github.com/ocx/fhecoord/internal/domain"
	"github.com/ocx/fhecoord/internal/fhe"
	"github.com/ocx/fhecoord/internal/store"
)

func newTestService(t *testing.T) (*Service, *dispatch.InMemoryDispatcher) {
	t.Helper()
	d := dispatch.NewInMemoryDispatcher(8)
	svc := New(store.NewInMemoryStore(), d, fhe.RingKindNative, nil)
	return svc, d
}

func joinAll(t *testing.T, svc *Service, id domain.SessionID, n int) []*fhe.ClientFacade {
	t.Helper()
	ctx := context.Background()
	clients := make([]*fhe.ClientFacade, n)
	for i := 0; i < n; i++ {
		seed := fhe.CRSSeed("test-seed")
		c := fhe.NewClientFacade(fhe.RingKindNative, i, seed)
		pkShare := c.PkShareGen()
		rpShare := c.RpKeyShareGen()
		_, err := svc.Join(ctx, id, JoinInput{
			ClientID:   domain.ClientID(i),
			PkShare:    fhe.SerializePadSeed(pkShare),
			RpKeyShare: fhe.SerializePadSeed(rpShare),
		})
		if err != nil {
			t.Fatalf("join client %d: %v", i, err)
		}
		clients[i] = c
	}
	return clients
}

func TestJoinAdvancesToWaitingForBootstrapOnNthClient(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	s, err := svc.CreateSession(ctx, 2)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	joinAll(t, svc, s.ID, 2)

	got, err := svc.GetSession(ctx, s.ID)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if got.Status != domain.WaitingForBootstrap {
		t.Fatalf("status = %v, want WaitingForBootstrap", got.Status)
	}
	if len(got.PK) == 0 {
		t.Fatalf("expected aggregated pk to be set")
	}
}

func TestJoinRejectsExtraClientWithSessionFull(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	s, err := svc.CreateSession(ctx, 1)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	joinAll(t, svc, s.ID, 1)

	seed := fhe.CRSSeed("test-seed")
	c := fhe.NewClientFacade(fhe.RingKindNative, 1, seed)
	_, err = svc.Join(ctx, s.ID, JoinInput{
		ClientID:   1,
		PkShare:    fhe.SerializePadSeed(c.PkShareGen()),
		RpKeyShare: fhe.SerializePadSeed(c.RpKeyShareGen()),
	})
	if apperr.KindOf(err) != apperr.KindSessionFull {
		t.Fatalf("err kind = %v, want SessionFull", apperr.KindOf(err))
	}
}

func TestBootstrapUnknownClientIsSessionError(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	s, _ := svc.CreateSession(ctx, 1)
	joinAll(t, svc, s.ID, 1)

	_, err := svc.Bootstrap(ctx, s.ID, domain.ClientID(99), []byte("share"))
	if apperr.KindOf(err) != apperr.KindSessionError {
		t.Fatalf("err kind = %v, want SessionError", apperr.KindOf(err))
	}
}

func TestBootstrapEnqueuesAggregateJobOnLastShare(t *testing.T) {
	svc, d := newTestService(t)
	ctx := context.Background()
	s, _ := svc.CreateSession(ctx, 2)
	clients := joinAll(t, svc, s.ID, 2)

	for i, c := range clients {
		bsShare, err := c.BsKeyShareGen()
		if err == nil {
			t.Fatalf("client %d: expected error before WithPK", i)
		}
		loaded, _ := svc.GetSession(ctx, s.ID)
		c.WithPK(loaded.PK)
		bsShare, err = c.BsKeyShareGen()
		if err != nil {
			t.Fatalf("client %d bs key share: %v", i, err)
		}
		if _, err := svc.Bootstrap(ctx, s.ID, domain.ClientID(i), fhe.SerializePadSeed(bsShare)); err != nil {
			t.Fatalf("bootstrap client %d: %v", i, err)
		}
	}

	job, err := d.Dequeue(ctx)
	if err != nil {
		t.Fatalf("dequeue: %v", err)
	}
	if job.Kind != dispatch.AggregateBootstrap {
		t.Fatalf("job kind = %v, want AggregateBootstrap", job.Kind)
	}
	if job.SessionID != s.ID {
		t.Fatalf("job session id mismatch")
	}
}

func TestJoinRejectsClientIDOutsideParticipantRange(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	s, err := svc.CreateSession(ctx, 2)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	seed := fhe.CRSSeed("test-seed")
	c := fhe.NewClientFacade(fhe.RingKindNative, 99, seed)
	_, err = svc.Join(ctx, s.ID, JoinInput{
		ClientID:   domain.ClientID(99),
		PkShare:    fhe.SerializePadSeed(c.PkShareGen()),
		RpKeyShare: fhe.SerializePadSeed(c.RpKeyShareGen()),
	})
	if apperr.KindOf(err) != apperr.KindValidationFail {
		t.Fatalf("err kind = %v, want ValidationFail", apperr.KindOf(err))
	}

	got, getErr := svc.GetSession(ctx, s.ID)
	if getErr != nil {
		t.Fatalf("get session: %v", getErr)
	}
	if len(got.Clients) != 0 {
		t.Fatalf("expected no client recorded, got %d", len(got.Clients))
	}
}

func TestJoinOnNthClientAbortsOnMalformedShare(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	s, err := svc.CreateSession(ctx, 2)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	seed := fhe.CRSSeed("test-seed")
	c0 := fhe.NewClientFacade(fhe.RingKindNative, 0, seed)
	if _, err := svc.Join(ctx, s.ID, JoinInput{
		ClientID:   0,
		PkShare:    fhe.SerializePadSeed(c0.PkShareGen()),
		RpKeyShare: fhe.SerializePadSeed(c0.RpKeyShareGen()),
	}); err != nil {
		t.Fatalf("join client 0: %v", err)
	}

	// Client 1's pk_share is well-formed bytes but not a valid PadSeed
	// encoding, so deserialization fails during the Nth-join aggregation.
	_, err = svc.Join(ctx, s.ID, JoinInput{
		ClientID:   1,
		PkShare:    []byte("not-a-valid-pad-seed"),
		RpKeyShare: fhe.SerializePadSeed(c0.RpKeyShareGen()),
	})
	if apperr.KindOf(err) != apperr.KindInvalidShare {
		t.Fatalf("err kind = %v, want InvalidShare", apperr.KindOf(err))
	}

	got, getErr := svc.GetSession(ctx, s.ID)
	if getErr != nil {
		t.Fatalf("get session: %v", getErr)
	}
	if got.Status != domain.WaitingForClients {
		t.Fatalf("status = %v, want WaitingForClients (aborted join must not persist)", got.Status)
	}
}

func TestBootstrapRetryDoesNotReenqueue(t *testing.T) {
	svc, d := newTestService(t)
	ctx := context.Background()
	s, _ := svc.CreateSession(ctx, 1)
	clients := joinAll(t, svc, s.ID, 1)

	loaded, _ := svc.GetSession(ctx, s.ID)
	clients[0].WithPK(loaded.PK)
	bsShare, err := clients[0].BsKeyShareGen()
	if err != nil {
		t.Fatalf("bs key share: %v", err)
	}
	share := fhe.SerializePadSeed(bsShare)

	if _, err := svc.Bootstrap(ctx, s.ID, 0, share); err != nil {
		t.Fatalf("first bootstrap: %v", err)
	}
	if _, err := d.Dequeue(ctx); err != nil {
		t.Fatalf("dequeue after first bootstrap: %v", err)
	}

	// A retried bootstrap call for the same (session, client) after the
	// threshold is already satisfied must not enqueue a second job.
	if _, err := svc.Bootstrap(ctx, s.ID, 0, share); err != nil {
		t.Fatalf("retried bootstrap: %v", err)
	}

	drainCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	if _, err := d.Dequeue(drainCtx); err == nil {
		t.Fatalf("expected no second aggregate_bootstrap job from retried submission")
	}
}

func TestHandleAggregateBootstrapIsIdempotent(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	s, _ := svc.CreateSession(ctx, 1)
	clients := joinAll(t, svc, s.ID, 1)

	loaded, _ := svc.GetSession(ctx, s.ID)
	clients[0].WithPK(loaded.PK)
	bsShare, err := clients[0].BsKeyShareGen()
	if err != nil {
		t.Fatalf("bs key share: %v", err)
	}
	if _, err := svc.Bootstrap(ctx, s.ID, 0, fhe.SerializePadSeed(bsShare)); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}

	if err := svc.HandleAggregateBootstrap(ctx, s.ID); err != nil {
		t.Fatalf("first handle: %v", err)
	}
	got, _ := svc.GetSession(ctx, s.ID)
	if got.Status != domain.WaitingForArgument {
		t.Fatalf("status = %v, want WaitingForArgument", got.Status)
	}

	// Re-delivery: the handler must not error or regress the status.
	if err := svc.HandleAggregateBootstrap(ctx, s.ID); err != nil {
		t.Fatalf("second handle: %v", err)
	}
	got2, _ := svc.GetSession(ctx, s.ID)
	if got2.Status != domain.WaitingForArgument {
		t.Fatalf("status after redelivery = %v, want WaitingForArgument", got2.Status)
	}
}

func TestEndToEndTwoPartyAddition(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	s, _ := svc.CreateSession(ctx, 2)
	clients := joinAll(t, svc, s.ID, 2)

	loaded, _ := svc.GetSession(ctx, s.ID)
	for i, c := range clients {
		c.WithPK(loaded.PK)
		bsShare, err := c.BsKeyShareGen()
		if err != nil {
			t.Fatalf("client %d bs key share: %v", i, err)
		}
		if _, err := svc.Bootstrap(ctx, s.ID, domain.ClientID(i), fhe.SerializePadSeed(bsShare)); err != nil {
			t.Fatalf("bootstrap client %d: %v", i, err)
		}
	}
	if err := svc.HandleAggregateBootstrap(ctx, s.ID); err != nil {
		t.Fatalf("handle aggregate bootstrap: %v", err)
	}

	values := []uint64{6, 7}
	for i, c := range clients {
		bits := fhe.U64ToBits(values[i])
		ct, err := c.BatchedPkEncrypt(bits)
		if err != nil {
			t.Fatalf("client %d encrypt: %v", i, err)
		}
		if _, err := svc.SubmitData(ctx, s.ID, SubmitInput{
			ClientID:      domain.ClientID(i),
			EncryptedData: fhe.SerializeBatchedCiphertext(ct),
		}); err != nil {
			t.Fatalf("client %d submit data: %v", i, err)
		}
	}
	if err := svc.HandleComputeFunction(ctx, s.ID); err != nil {
		t.Fatalf("handle compute function: %v", err)
	}

	final, err := svc.GetSession(ctx, s.ID)
	if err != nil {
		t.Fatalf("get final session: %v", err)
	}
	if final.Status != domain.Done {
		t.Fatalf("status = %v, want Done", final.Status)
	}

	bits := make([]bool, len(final.Result))
	for i, ct := range final.Result {
		var shares []fhe.DecryptionShare
		for _, c := range clients {
			shares = append(shares, c.DecryptShare(ct))
		}
		bits[i] = fhe.AggregateDecryptionShares(ct, shares)
	}
	got := fhe.BitsToU64(bits)
	if got != 13 {
		t.Fatalf("decrypted sum = %d, want 13", got)
	}
}
