package chaindb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coldstake/beacon-core/beacon-chain/core/types"
)

func TestMemStore_PersistAndRetrieveBlock(t *testing.T) {
	ctx := context.Background()
	db := NewMemStore()

	b := &types.Block{Slot: 5, Body: &types.BlockBody{}}
	if err := db.PersistBlock(ctx, b); err != nil {
		t.Fatal(err)
	}

	got, err := db.BlockByHash(ctx, b.Root())
	require.NoError(t, err)
	if got.Slot != 5 {
		t.Fatalf("expected slot 5, got %d", got.Slot)
	}
}

func TestMemStore_MissingReturnsErrNotFound(t *testing.T) {
	ctx := context.Background()
	db := NewMemStore()
	if _, err := db.BlockByHash(ctx, [32]byte{1}); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := db.CanonicalHead(ctx); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound for unset canonical head, got %v", err)
	}
}

func TestMemStore_SetCanonicalHead(t *testing.T) {
	ctx := context.Background()
	db := NewMemStore()

	b := &types.Block{Slot: 3, Body: &types.BlockBody{}}
	if err := db.PersistBlock(ctx, b); err != nil {
		t.Fatal(err)
	}
	if err := db.SetCanonicalHead(ctx, b.Root(), b.Slot); err != nil {
		t.Fatal(err)
	}

	head, err := db.CanonicalHead(ctx)
	require.NoError(t, err)
	if head.Slot != 3 {
		t.Fatalf("expected canonical head at slot 3, got %d", head.Slot)
	}

	hash, err := db.CanonicalBlockHashBySlot(ctx, 3)
	require.NoError(t, err)
	if hash != b.Root() {
		t.Fatal("expected the canonical hash to match the persisted block's root")
	}
}
