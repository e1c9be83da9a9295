package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ocx/fhecoord/internal/domain"
	"github.com/ocx/fhecoord/internal/fhe"
)

func TestInMemoryStoreCreateGetRoundTrip(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	s := domain.New(domain.NewSessionID(), 2, fhe.RingKindNative)
	require.NoError(t, store.Create(ctx, s))

	got, err := store.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, s.ID, got.ID)
	assert.Equal(t, domain.WaitingForClients, got.Status)
	assert.Equal(t, 2, got.ParticipantNumber())
}

func TestInMemoryStoreGetUnknownSessionNotFound(t *testing.T) {
	store := NewInMemoryStore()
	_, err := store.Get(context.Background(), domain.NewSessionID())
	require.Error(t, err)
}

func TestInMemoryStoreUpdateIsIsolatedFromCallerMutation(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	s := domain.New(domain.NewSessionID(), 1, fhe.RingKindNative)
	require.NoError(t, store.Create(ctx, s))

	s.Clients[0] = &domain.ClientRecord{ID: 0, PkShare: []byte("pk")}
	require.NoError(t, store.Update(ctx, s))

	s.Clients[0].PkShare = []byte("mutated-after-update")

	got, err := store.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("pk"), got.Clients[0].PkShare)
}

func TestInMemoryStoreUpdateUnknownSessionNotFound(t *testing.T) {
	store := NewInMemoryStore()
	s := domain.New(domain.NewSessionID(), 1, fhe.RingKindNative)
	err := store.Update(context.Background(), s)
	require.Error(t, err)
}
