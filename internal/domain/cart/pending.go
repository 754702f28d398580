package cart

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/go-faster/errors"
	"go.uber.org/zap"
)

// PendingRelay holds at most one cart line created while the actor was
// unauthenticated and feeds it into the Store exactly once when the
// actor becomes authenticated. The pending line is mirrored to durable
// storage whenever it is set or cleared.
type PendingRelay struct {
	mu      sync.Mutex
	pending *Line
	wasAuth bool

	store   *Store
	storage Storage
	lg      *zap.Logger
}

// NewPendingRelay creates a relay that drains into the given store.
func NewPendingRelay(store *Store, storage Storage, lg *zap.Logger) *PendingRelay {
	return &PendingRelay{store: store, storage: storage, lg: lg}
}

// Restore loads the persisted pending line, applying the same validity
// filter as cart restore. An invalid or corrupt value is discarded
// immediately and never reaches the relay logic.
func (r *PendingRelay) Restore(ctx context.Context) error {
	data, ok, err := r.storage.Load(ctx, SlotPending)
	if err != nil {
		return errors.Wrap(err, "load pending selection")
	}
	if !ok {
		return nil
	}

	line, err := decodeLine(data)
	if err != nil || !line.validForRestore() {
		r.lg.Warn("Discarding invalid persisted pending selection", zap.Error(err))
		if err := r.storage.Delete(ctx, SlotPending); err != nil {
			return errors.Wrap(err, "delete invalid pending selection")
		}
		return nil
	}

	r.mu.Lock()
	r.pending = &line
	r.mu.Unlock()
	return nil
}

// Hold replaces any existing pending selection with the given line
// (last write wins; only one pending line is retained) and persists it.
func (r *PendingRelay) Hold(ctx context.Context, line Line) error {
	r.mu.Lock()
	r.pending = &line
	r.mu.Unlock()

	data, err := json.Marshal(line)
	if err != nil {
		return errors.Wrap(err, "marshal pending selection")
	}
	if err := r.storage.Save(ctx, SlotPending, data); err != nil {
		return errors.Wrap(err, "save pending selection")
	}
	return nil
}

// Pending returns a copy of the held line, or nil.
func (r *PendingRelay) Pending() *Line {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pending == nil {
		return nil
	}
	line := *r.pending
	return &line
}

// OnAuthChange observes an authentication-state change. Exactly on the
// unauthenticated-to-authenticated edge, a held line with a positive
// price and guest count is added to the store and the pending slot is
// cleared; a held line failing that check is discarded silently. Any
// other state change (including repeated authenticated notifications)
// does nothing.
func (r *PendingRelay) OnAuthChange(ctx context.Context, authenticated bool) error {
	r.mu.Lock()
	edge := authenticated && !r.wasAuth
	r.wasAuth = authenticated
	var line *Line
	if edge && r.pending != nil {
		line = r.pending
		r.pending = nil
	}
	r.mu.Unlock()

	if line == nil {
		return nil
	}

	if err := r.storage.Delete(ctx, SlotPending); err != nil {
		return errors.Wrap(err, "clear pending selection")
	}

	if !line.Price.IsPositive() || line.GuestCount <= 0 {
		r.lg.Warn("Discarding pending selection with invalid pricing",
			zap.Int64("eventId", line.EventID),
		)
		return nil
	}

	if err := r.store.Add(ctx, *line); err != nil {
		return errors.Wrap(err, "add pending selection to cart")
	}
	return nil
}
