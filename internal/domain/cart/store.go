package cart

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/pratofino/catering-cart/internal/domain/pricing"
)

var (
	// ErrInvalidLine rejects an add of a line missing its event
	// reference or title. The collection is left untouched.
	ErrInvalidLine = errors.New("invalid cart line")
	// ErrLoginRequired signals that opening the cart needs an
	// authenticated identity.
	ErrLoginRequired = errors.New("login required")
)

// Store holds the ordered collection of cart lines for one actor and
// mirrors it to durable storage after every mutation. The zero number
// of concurrent actors per store is one; the mutex only guards against
// the hosting server delivering that actor's requests on different
// goroutines.
type Store struct {
	mu      sync.Mutex
	lines   []Line
	open    bool
	storage Storage
	lg      *zap.Logger
}

// NewStore creates an empty cart store over the given storage.
func NewStore(storage Storage, lg *zap.Logger) *Store {
	return &Store{storage: storage, lg: lg}
}

// Restore loads the persisted cart, drops entries failing the validity
// predicate, and re-persists the filtered list if anything was dropped
// so corruption never silently reappears. Corrupt payloads are
// recovered by resetting to an empty cart; only storage I/O failures
// are returned.
func (s *Store) Restore(ctx context.Context) error {
	data, ok, err := s.storage.Load(ctx, SlotCart)
	if err != nil {
		return errors.Wrap(err, "load cart")
	}
	if !ok {
		return nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		s.lg.Warn("Discarding corrupt cart payload", zap.Error(err))
		if err := s.storage.Delete(ctx, SlotCart); err != nil {
			return errors.Wrap(err, "delete corrupt cart")
		}
		return nil
	}

	lines := make([]Line, 0, len(raw))
	dropped := 0
	for _, entry := range raw {
		line, err := decodeLine(entry)
		if err != nil || !line.validForRestore() {
			dropped++
			continue
		}
		lines = append(lines, line)
	}

	s.mu.Lock()
	s.lines = lines
	s.mu.Unlock()

	if dropped > 0 {
		s.lg.Warn("Dropped invalid persisted cart lines", zap.Int("dropped", dropped))
		return s.persist(ctx)
	}
	return nil
}

// decodeLine decodes one persisted line, treating a malformed waiterFee
// as zero rather than failing the whole line.
func decodeLine(data []byte) (Line, error) {
	var line Line
	if err := json.Unmarshal(data, &line); err == nil {
		return line, nil
	}

	// Retry with the waiter fee shielded: a malformed fee must not
	// take the line down with it.
	var shadow struct {
		Line
		WaiterFee json.RawMessage `json:"waiterFee"`
	}
	if err := json.Unmarshal(data, &shadow); err != nil {
		return Line{}, err
	}
	line = shadow.Line
	line.WaiterFee = decimal.Zero
	if fee, err := decimal.NewFromString(string(shadow.WaiterFee)); err == nil && !fee.IsNegative() {
		line.WaiterFee = fee
	}
	return line, nil
}

// Add validates the line and inserts it, merging with an existing line
// sharing the same (event, date, menu) triple by summing quantities.
// On merge, the waiter fee is recomputed from the incoming line's guest
// count, so the fee tracks whichever add most recently touched the
// line. Adding opens the cart view.
func (s *Store) Add(ctx context.Context, line Line) error {
	if !line.validForAdd() {
		s.lg.Warn("Rejecting invalid cart line",
			zap.Int64("eventId", line.EventID),
			zap.String("title", line.Title),
		)
		return ErrInvalidLine
	}

	s.mu.Lock()
	line.WaiterFee = pricing.StaffingFee(line.GuestCount)
	merged := false
	for i := range s.lines {
		existing := &s.lines[i]
		if existing.EventID == line.EventID &&
			existing.Date == line.Date &&
			existing.MenuSelection == line.MenuSelection {
			existing.Quantity += line.Quantity
			existing.WaiterFee = line.WaiterFee
			merged = true
			break
		}
	}
	if !merged {
		s.lines = append(s.lines, line)
	}
	s.open = true
	s.mu.Unlock()

	return s.persist(ctx)
}

// Remove drops the line with the given id. Removing an absent id is a
// no-op.
func (s *Store) Remove(ctx context.Context, id int64) error {
	s.mu.Lock()
	kept := s.lines[:0]
	for _, l := range s.lines {
		if l.ID != id {
			kept = append(kept, l)
		}
	}
	s.lines = kept
	s.mu.Unlock()

	return s.persist(ctx)
}

// UpdateQuantity replaces the quantity on the matching line. Nothing
// else is recomputed; in particular the waiter fee is preserved as-is.
func (s *Store) UpdateQuantity(ctx context.Context, id int64, quantity int) error {
	s.mu.Lock()
	for i := range s.lines {
		if s.lines[i].ID == id {
			s.lines[i].Quantity = quantity
			break
		}
	}
	s.mu.Unlock()

	return s.persist(ctx)
}

// UpdateLine fully replaces the line matching updated.ID. The waiter
// fee supplied by the caller is discarded and recomputed from the
// updated guest count; this is the authoritative path for the edit
// interaction. Updating an absent id is a no-op.
func (s *Store) UpdateLine(ctx context.Context, updated Line) error {
	s.mu.Lock()
	for i := range s.lines {
		if s.lines[i].ID == updated.ID {
			updated.WaiterFee = pricing.StaffingFee(updated.GuestCount)
			s.lines[i] = updated
			break
		}
	}
	s.mu.Unlock()

	return s.persist(ctx)
}

// Clear empties the collection. Used after a fully successful checkout.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.lines = nil
	s.mu.Unlock()

	return s.persist(ctx)
}

// Lines returns a copy of the current collection in insertion order.
func (s *Store) Lines() []Line {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Line, len(s.lines))
	copy(out, s.lines)
	return out
}

// Len returns the number of lines in the cart.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lines)
}

// Subtotal returns the cart subtotal per the pricing rules.
func (s *Store) Subtotal() decimal.Decimal {
	return pricing.Subtotal(pricingView(s.Lines()))
}

// Totals returns the displayed totals breakdown.
func (s *Store) Totals() pricing.Breakdown {
	return pricing.Totals(pricingView(s.Lines()))
}

// Open opens the cart view. Without an authenticated identity the view
// stays closed and ErrLoginRequired is returned instead.
func (s *Store) Open(auth AuthState) error {
	if !auth.Authenticated() {
		return ErrLoginRequired
	}
	s.mu.Lock()
	s.open = true
	s.mu.Unlock()
	return nil
}

// Close closes the cart view.
func (s *Store) Close() {
	s.mu.Lock()
	s.open = false
	s.mu.Unlock()
}

// IsOpen reports whether the cart view is open.
func (s *Store) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

// persist mirrors the full collection to durable storage.
func (s *Store) persist(ctx context.Context) error {
	s.mu.Lock()
	lines := s.lines
	if lines == nil {
		lines = []Line{}
	}
	data, err := json.Marshal(lines)
	s.mu.Unlock()
	if err != nil {
		return errors.Wrap(err, "marshal cart")
	}
	if err := s.storage.Save(ctx, SlotCart, data); err != nil {
		return errors.Wrap(err, "save cart")
	}
	return nil
}
