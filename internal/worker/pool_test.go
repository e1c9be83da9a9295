package worker

import (
	"context"
	"testing"
	"time"

	"github.com/ocx/fhecoord/internal/dispatch"
	"github.com/ocx/fhecoord/internal/domain"
	"github.com/ocx/fhecoord/internal/fhe"
	"github.com/ocx/fhecoord/internal/sessionsvc"
	"github.com/ocx/fhecoord/internal/store"
)

func TestPoolDrainsAggregateBootstrapJob(t *testing.T) {
	d := dispatch.NewInMemoryDispatcher(4)
	svc := sessionsvc.New(store.NewInMemoryStore(), d, fhe.RingKindNative, nil)

	ctx := context.Background()
	s, err := svc.CreateSession(ctx, 1)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	seed := fhe.CRSSeed("pool-test-seed")
	c := fhe.NewClientFacade(fhe.RingKindNative, 0, seed)
	if _, err := svc.Join(ctx, s.ID, sessionsvc.JoinInput{
		ClientID:   0,
		PkShare:    fhe.SerializePadSeed(c.PkShareGen()),
		RpKeyShare: fhe.SerializePadSeed(c.RpKeyShareGen()),
	}); err != nil {
		t.Fatalf("join: %v", err)
	}

	loaded, err := svc.GetSession(ctx, s.ID)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	c.WithPK(loaded.PK)
	bsShare, err := c.BsKeyShareGen()
	if err != nil {
		t.Fatalf("bs key share: %v", err)
	}
	if _, err := svc.Bootstrap(ctx, s.ID, 0, fhe.SerializePadSeed(bsShare)); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}

	runCtx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	pool := &Pool{Dispatcher: d, Service: svc, Concurrent: 2}
	pool.Run(runCtx)

	final, err := svc.GetSession(context.Background(), s.ID)
	if err != nil {
		t.Fatalf("get final session: %v", err)
	}
	if final.Status != domain.WaitingForArgument {
		t.Fatalf("status = %v, want WaitingForArgument", final.Status)
	}
}
