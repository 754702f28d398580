package checkout

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pratofino/catering-cart/internal/domain/cart"
)

// memStorage is a minimal in-memory cart.Storage.
type memStorage struct {
	slots map[string][]byte
}

func newMemStorage() *memStorage {
	return &memStorage{slots: make(map[string][]byte)}
}

func (m *memStorage) Load(_ context.Context, slot string) ([]byte, bool, error) {
	data, ok := m.slots[slot]
	return data, ok, nil
}

func (m *memStorage) Save(_ context.Context, slot string, data []byte) error {
	m.slots[slot] = data
	return nil
}

func (m *memStorage) Delete(_ context.Context, slot string) error {
	delete(m.slots, slot)
	return nil
}

type staticAuth struct {
	authenticated bool
	userID        int64
}

func (a *staticAuth) Authenticated() bool { return a.authenticated }
func (a *staticAuth) UserID() int64       { return a.userID }

// mockOrderAPI records submissions and fails at a configurable index.
type mockOrderAPI struct {
	requests []OrderRequest
	failAt   int // -1 never fails
	err      error
}

func (m *mockOrderAPI) Create(_ context.Context, req OrderRequest) (int64, error) {
	if m.failAt >= 0 && len(m.requests) == m.failAt {
		return 0, m.err
	}
	m.requests = append(m.requests, req)
	return int64(1000 + len(m.requests)), nil
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func line(id int64, date string) cart.Line {
	return cart.Line{
		ID:            id,
		EventID:       7,
		Title:         "Casamento no Jardim",
		ImageURL:      "https://cdn.example.com/jardim.jpg",
		Date:          date,
		Time:          "18:30",
		GuestCount:    40,
		Location:      "Espaço Verde, São Paulo",
		MenuSelection: "Menu Premium",
		MenuItems:     map[string][]string{"Entradas": {"Bruschetta"}},
		Price:         dec("3500"),
		Quantity:      1,
	}
}

func newCheckout(t *testing.T, api OrderAPI, auth cart.AuthState, lines ...cart.Line) (*Orchestrator, *cart.Store) {
	t.Helper()
	store := cart.NewStore(newMemStorage(), zap.NewNop())
	for _, l := range lines {
		require.NoError(t, store.Add(context.Background(), l))
	}
	return New(store, api, auth, zap.NewNop()), store
}

func TestCheckout_RequiresAuthentication(t *testing.T) {
	o, _ := newCheckout(t, &mockOrderAPI{failAt: -1}, &staticAuth{}, line(1, "2026-09-12"))

	_, err := o.Checkout(context.Background())
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestCheckout_RejectsEmptyCart(t *testing.T) {
	o, _ := newCheckout(t, &mockOrderAPI{failAt: -1}, &staticAuth{authenticated: true, userID: 12})

	_, err := o.Checkout(context.Background())
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestCheckout_AllSucceed(t *testing.T) {
	api := &mockOrderAPI{failAt: -1}
	auth := &staticAuth{authenticated: true, userID: 12}
	o, store := newCheckout(t, api, auth,
		line(1, "2026-09-12"),
		line(2, "2026-09-13"),
		line(3, "2026-09-14"),
	)

	result, err := o.Checkout(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Succeeded())
	assert.Equal(t, []int64{1001, 1002, 1003}, result.OrderIDs, "ids in submission order")
	assert.Equal(t, 0, store.Len(), "cart cleared on full success")
	assert.False(t, store.IsOpen(), "cart view closed")

	req := api.requests[0]
	assert.Equal(t, int64(12), req.UserID)
	assert.Equal(t, int64(7), req.EventID)
	assert.Equal(t, StatusPending, req.Status)
	assert.Equal(t, "2026-09-12T18:30:00Z", req.Date.Format("2006-01-02T15:04:05Z07:00"))
	assert.Equal(t, 40, req.GuestCount)
	assert.Equal(t, "Menu Premium", req.MenuSelection)
	assert.Equal(t, "Espaço Verde, São Paulo", req.Location)
	// totalAmount = round2(price * quantity) + waiterFee = 3500 + 1040.
	assert.True(t, dec("4540").Equal(req.TotalAmount))
	assert.True(t, dec("1040").Equal(req.WaiterFee))
	assert.Contains(t, req.AdditionalInfo, `"selectedItems"`)
	assert.Contains(t, req.AdditionalInfo, "Bruschetta")
	assert.NotEmpty(t, req.IdempotencyKey)
}

func TestCheckout_MissingTimeDefaultsToNoon(t *testing.T) {
	api := &mockOrderAPI{failAt: -1}
	l := line(1, "2026-09-12")
	l.Time = ""
	o, _ := newCheckout(t, api, &staticAuth{authenticated: true, userID: 12}, l)

	_, err := o.Checkout(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 12, api.requests[0].Date.Hour())
	assert.Equal(t, 0, api.requests[0].Date.Minute())
}

func TestCheckout_MidlineFailureStopsAndKeepsCart(t *testing.T) {
	api := &mockOrderAPI{failAt: 1, err: errors.New("backend rejected order")}
	auth := &staticAuth{authenticated: true, userID: 12}
	o, store := newCheckout(t, api, auth,
		line(1, "2026-09-12"),
		line(2, "2026-09-13"),
		line(3, "2026-09-14"),
	)

	result, err := o.Checkout(context.Background())
	require.Error(t, err)
	require.NotNil(t, result)
	assert.False(t, result.Succeeded())
	assert.Equal(t, 1, result.FailedIndex)
	assert.Equal(t, []int64{1001}, result.OrderIDs, "only the first line was created")
	assert.Len(t, api.requests, 1, "line 3 never submitted")
	assert.Equal(t, 3, store.Len(), "cart keeps every original line on failure")
}

func TestCheckout_BadDateIsFatal(t *testing.T) {
	api := &mockOrderAPI{failAt: -1}
	auth := &staticAuth{authenticated: true, userID: 12}
	bad := line(2, "12/09/2026") // wrong format
	o, store := newCheckout(t, api, auth, line(1, "2026-09-12"), bad)

	result, err := o.Checkout(context.Background())
	require.Error(t, err)

	var dateErr *DateError
	require.ErrorAs(t, err, &dateErr)
	assert.Equal(t, int64(2), dateErr.LineID)
	assert.Equal(t, 1, result.FailedIndex)
	// The prior line was already submitted and is not rolled back.
	assert.Equal(t, []int64{1001}, result.OrderIDs)
	assert.Equal(t, 2, store.Len())
}

func TestCheckout_IdempotencyKeyStablePerLine(t *testing.T) {
	auth := &staticAuth{authenticated: true, userID: 12}

	api1 := &mockOrderAPI{failAt: -1}
	o1, _ := newCheckout(t, api1, auth, line(1, "2026-09-12"))
	_, err := o1.Checkout(context.Background())
	require.NoError(t, err)

	api2 := &mockOrderAPI{failAt: -1}
	o2, _ := newCheckout(t, api2, auth, line(1, "2026-09-12"))
	_, err = o2.Checkout(context.Background())
	require.NoError(t, err)

	assert.Equal(t, api1.requests[0].IdempotencyKey, api2.requests[0].IdempotencyKey,
		"a retried checkout reuses the same key per line")

	api3 := &mockOrderAPI{failAt: -1}
	o3, _ := newCheckout(t, api3, auth, line(99, "2026-09-12"))
	_, err = o3.Checkout(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, api1.requests[0].IdempotencyKey, api3.requests[0].IdempotencyKey)
}
