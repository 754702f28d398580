package cart

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRelay(t *testing.T) (*PendingRelay, *Store, *memStorage) {
	t.Helper()
	storage := newMemStorage()
	store := NewStore(storage, zap.NewNop())
	return NewPendingRelay(store, storage, zap.NewNop()), store, storage
}

func TestRelayHold_LastWriteWins(t *testing.T) {
	relay, _, storage := newTestRelay(t)

	require.NoError(t, relay.Hold(context.Background(), testLine(1)))
	second := testLine(2)
	second.Title = "Aniversário"
	require.NoError(t, relay.Hold(context.Background(), second))

	pending := relay.Pending()
	require.NotNil(t, pending)
	assert.Equal(t, "Aniversário", pending.Title)

	var persisted Line
	require.NoError(t, json.Unmarshal(storage.slots[SlotPending], &persisted))
	assert.Equal(t, int64(2), persisted.ID)
}

func TestRelayOnAuthChange_DrainsExactlyOnce(t *testing.T) {
	relay, store, storage := newTestRelay(t)
	require.NoError(t, relay.Hold(context.Background(), testLine(1)))

	require.NoError(t, relay.OnAuthChange(context.Background(), true))

	assert.Equal(t, 1, store.Len(), "pending line added to cart")
	assert.Nil(t, relay.Pending())
	_, ok := storage.slots[SlotPending]
	assert.False(t, ok, "pending slot cleared")

	// A repeated authenticated notification must not re-trigger.
	require.NoError(t, relay.OnAuthChange(context.Background(), true))
	assert.Equal(t, 1, store.Len())
	assert.Equal(t, 1, store.Lines()[0].Quantity, "no duplicate merge")
}

func TestRelayOnAuthChange_NoEdgeNoDrain(t *testing.T) {
	relay, store, _ := newTestRelay(t)

	// Already authenticated before anything was held.
	require.NoError(t, relay.OnAuthChange(context.Background(), true))
	require.NoError(t, relay.Hold(context.Background(), testLine(1)))

	// Still authenticated: no edge, nothing drains.
	require.NoError(t, relay.OnAuthChange(context.Background(), true))
	assert.Equal(t, 0, store.Len())
	assert.NotNil(t, relay.Pending())

	// Logging out and back in produces the edge.
	require.NoError(t, relay.OnAuthChange(context.Background(), false))
	require.NoError(t, relay.OnAuthChange(context.Background(), true))
	assert.Equal(t, 1, store.Len())
	assert.Nil(t, relay.Pending())
}

func TestRelayOnAuthChange_InvalidPendingDiscardedSilently(t *testing.T) {
	relay, store, storage := newTestRelay(t)

	held := testLine(1)
	held.Price = decimal.Zero
	require.NoError(t, relay.Hold(context.Background(), held))

	require.NoError(t, relay.OnAuthChange(context.Background(), true))

	assert.Equal(t, 0, store.Len(), "invalid pending never reaches the cart")
	assert.Nil(t, relay.Pending())
	_, ok := storage.slots[SlotPending]
	assert.False(t, ok)
}

func TestRelayRestore_FiltersInvalid(t *testing.T) {
	storage := newMemStorage()
	invalid := testLine(1)
	invalid.GuestCount = 0
	data, err := json.Marshal(invalid)
	require.NoError(t, err)
	storage.slots[SlotPending] = data

	store := NewStore(storage, zap.NewNop())
	relay := NewPendingRelay(store, storage, zap.NewNop())
	require.NoError(t, relay.Restore(context.Background()))

	assert.Nil(t, relay.Pending())
	_, ok := storage.slots[SlotPending]
	assert.False(t, ok, "invalid persisted pending removed")
}

func TestRelayRestore_ValidSurvives(t *testing.T) {
	storage := newMemStorage()
	held := testLine(1)
	held.WaiterFee = decimal.NewFromInt(1040)
	data, err := json.Marshal(held)
	require.NoError(t, err)
	storage.slots[SlotPending] = data

	store := NewStore(storage, zap.NewNop())
	relay := NewPendingRelay(store, storage, zap.NewNop())
	require.NoError(t, relay.Restore(context.Background()))

	pending := relay.Pending()
	require.NotNil(t, pending)
	assert.Equal(t, int64(1), pending.ID)
}

func TestEngine_AddToCartUnauthenticatedHolds(t *testing.T) {
	storage := newMemStorage()
	engine := NewEngine(storage, zap.NewNop())

	err := engine.AddToCart(context.Background(), testLine(1))
	assert.ErrorIs(t, err, ErrPendingHeld)
	assert.Equal(t, 0, engine.Store.Len())
	assert.NotNil(t, engine.Relay.Pending())

	// Login: the held line enters the cart exactly once.
	require.NoError(t, engine.SetIdentity(context.Background(), 12))
	assert.Equal(t, 1, engine.Store.Len())
	assert.Nil(t, engine.Relay.Pending())
	assert.Equal(t, int64(12), engine.Auth().UserID())
}

func TestEngine_AddToCartAuthenticated(t *testing.T) {
	storage := newMemStorage()
	engine := NewEngine(storage, zap.NewNop())
	require.NoError(t, engine.SetIdentity(context.Background(), 12))

	require.NoError(t, engine.AddToCart(context.Background(), testLine(1)))
	assert.Equal(t, 1, engine.Store.Len())
	assert.Nil(t, engine.Relay.Pending())
}
