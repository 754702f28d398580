package cart

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pratofino/catering-cart/internal/domain/pricing"
)

// memStorage is an in-memory Storage for tests.
type memStorage struct {
	slots map[string][]byte
	saves int
}

func newMemStorage() *memStorage {
	return &memStorage{slots: make(map[string][]byte)}
}

func (m *memStorage) Load(_ context.Context, slot string) ([]byte, bool, error) {
	data, ok := m.slots[slot]
	return data, ok, nil
}

func (m *memStorage) Save(_ context.Context, slot string, data []byte) error {
	m.saves++
	m.slots[slot] = data
	return nil
}

func (m *memStorage) Delete(_ context.Context, slot string) error {
	delete(m.slots, slot)
	return nil
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func testLine(id int64) Line {
	return Line{
		ID:            id,
		EventID:       7,
		Title:         "Casamento no Jardim",
		ImageURL:      "https://cdn.example.com/jardim.jpg",
		Date:          "2026-09-12",
		Time:          "18:30",
		GuestCount:    40,
		Location:      "Espaço Verde, São Paulo",
		MenuSelection: "Menu Premium",
		MenuItems:     map[string][]string{"Entradas": {"Bruschetta", "Carpaccio"}},
		Price:         dec("3500"),
		Quantity:      1,
	}
}

func newTestStore(t *testing.T) (*Store, *memStorage) {
	t.Helper()
	storage := newMemStorage()
	return NewStore(storage, zap.NewNop()), storage
}

func TestStoreAdd_ComputesWaiterFee(t *testing.T) {
	s, _ := newTestStore(t)
	require.NoError(t, s.Add(context.Background(), testLine(1)))

	lines := s.Lines()
	require.Len(t, lines, 1)
	assert.True(t, pricing.StaffingFee(40).Equal(lines[0].WaiterFee))
	assert.True(t, s.IsOpen(), "adding opens the cart view")
}

func TestStoreAdd_MergesSameEventDateMenu(t *testing.T) {
	s, _ := newTestStore(t)
	first := testLine(1)
	require.NoError(t, s.Add(context.Background(), first))

	second := testLine(2)
	second.GuestCount = 55
	second.Quantity = 2
	require.NoError(t, s.Add(context.Background(), second))

	lines := s.Lines()
	require.Len(t, lines, 1, "collection length must not grow on merge")
	assert.Equal(t, 3, lines[0].Quantity)
	// The fee tracks the most recent add's guest count.
	assert.True(t, pricing.StaffingFee(55).Equal(lines[0].WaiterFee))
}

func TestStoreAdd_DifferentDateIsNewLine(t *testing.T) {
	s, _ := newTestStore(t)
	require.NoError(t, s.Add(context.Background(), testLine(1)))

	other := testLine(2)
	other.Date = "2026-10-01"
	require.NoError(t, s.Add(context.Background(), other))

	assert.Equal(t, 2, s.Len())
}

func TestStoreAdd_RejectsInvalidLine(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Line)
	}{
		{"missing event", func(l *Line) { l.EventID = 0 }},
		{"missing title", func(l *Line) { l.Title = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, storage := newTestStore(t)
			line := testLine(1)
			tt.mutate(&line)

			err := s.Add(context.Background(), line)
			assert.ErrorIs(t, err, ErrInvalidLine)
			assert.Equal(t, 0, s.Len(), "collection unchanged")
			assert.Equal(t, 0, storage.saves, "nothing persisted")
		})
	}
}

func TestStoreRemove(t *testing.T) {
	s, _ := newTestStore(t)
	require.NoError(t, s.Add(context.Background(), testLine(1)))

	require.NoError(t, s.Remove(context.Background(), 1))
	assert.Equal(t, 0, s.Len())

	// Removing an absent id is a no-op.
	require.NoError(t, s.Remove(context.Background(), 99))
}

func TestStoreUpdateQuantity_PreservesWaiterFee(t *testing.T) {
	s, _ := newTestStore(t)
	require.NoError(t, s.Add(context.Background(), testLine(1)))
	fee := s.Lines()[0].WaiterFee

	require.NoError(t, s.UpdateQuantity(context.Background(), 1, 4))

	lines := s.Lines()
	assert.Equal(t, 4, lines[0].Quantity)
	assert.True(t, fee.Equal(lines[0].WaiterFee))
}

func TestStoreUpdateLine_ForcesWaiterFeeRecompute(t *testing.T) {
	s, _ := newTestStore(t)
	require.NoError(t, s.Add(context.Background(), testLine(1)))

	edited := testLine(1)
	edited.GuestCount = 80
	edited.WaiterFee = dec("1") // caller-supplied fee is discarded
	require.NoError(t, s.UpdateLine(context.Background(), edited))

	lines := s.Lines()
	assert.True(t, pricing.StaffingFee(80).Equal(lines[0].WaiterFee))
	assert.Equal(t, 80, lines[0].GuestCount)
}

func TestStoreSubtotal(t *testing.T) {
	s, _ := newTestStore(t)

	a := testLine(1)
	a.Price = dec("100")
	a.GuestCount = 5 // fee 260
	require.NoError(t, s.Add(context.Background(), a))

	b := testLine(2)
	b.Date = "2026-10-01"
	b.Price = dec("30")
	b.GuestCount = 0 // fee 0
	require.NoError(t, s.Add(context.Background(), b))

	// Line a: (100 + 260) * 1; line b: (30 + 0) * 1.
	assert.True(t, dec("390").Equal(s.Subtotal()))
}

func TestStorePersistence_RoundTrip(t *testing.T) {
	storage := newMemStorage()
	s := NewStore(storage, zap.NewNop())
	require.NoError(t, s.Add(context.Background(), testLine(1)))

	restored := NewStore(storage, zap.NewNop())
	require.NoError(t, restored.Restore(context.Background()))

	require.Equal(t, 1, restored.Len())
	assert.Equal(t, s.Lines(), restored.Lines())
}

func TestStoreRestore_FiltersInvalidAndResaves(t *testing.T) {
	storage := newMemStorage()

	valid := testLine(1)
	valid.WaiterFee = pricing.StaffingFee(valid.GuestCount)
	invalid := testLine(2)
	invalid.EventID = 0 // fails the validity predicate
	data, err := json.Marshal([]Line{valid, invalid})
	require.NoError(t, err)
	storage.slots[SlotCart] = data

	s := NewStore(storage, zap.NewNop())
	require.NoError(t, s.Restore(context.Background()))

	require.Equal(t, 1, s.Len())
	assert.Equal(t, int64(7), s.Lines()[0].EventID)

	// The filtered list was re-persisted: only the valid entry remains.
	var persisted []Line
	require.NoError(t, json.Unmarshal(storage.slots[SlotCart], &persisted))
	require.Len(t, persisted, 1)
	assert.Equal(t, int64(1), persisted[0].ID)
}

func TestStoreRestore_CorruptPayloadResetsSilently(t *testing.T) {
	storage := newMemStorage()
	storage.slots[SlotCart] = []byte("{not json")

	s := NewStore(storage, zap.NewNop())
	require.NoError(t, s.Restore(context.Background()), "corruption recovery is silent")
	assert.Equal(t, 0, s.Len())

	_, ok := storage.slots[SlotCart]
	assert.False(t, ok, "corrupt slot removed")
}

func TestStoreRestore_MalformedWaiterFeeBecomesZero(t *testing.T) {
	storage := newMemStorage()
	storage.slots[SlotCart] = []byte(`[{
		"id": 1, "eventId": 7, "title": "Casamento",
		"date": "2026-09-12", "guestCount": 40,
		"price": 3500, "waiterFee": "garbage", "quantity": 1
	}]`)

	s := NewStore(storage, zap.NewNop())
	require.NoError(t, s.Restore(context.Background()))

	require.Equal(t, 1, s.Len())
	assert.True(t, s.Lines()[0].WaiterFee.IsZero())
	// A zero fee must not corrupt the subtotal.
	assert.True(t, dec("3500").Equal(s.Subtotal()))
}

func TestStoreOpen_RequiresAuthentication(t *testing.T) {
	s, _ := newTestStore(t)

	err := s.Open(&authState{})
	assert.ErrorIs(t, err, ErrLoginRequired)
	assert.False(t, s.IsOpen())

	auth := &authState{}
	auth.set(true, 12)
	require.NoError(t, s.Open(auth))
	assert.True(t, s.IsOpen())

	s.Close()
	assert.False(t, s.IsOpen())
}
