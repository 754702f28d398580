package cart

import "context"

// Slot names are part of the persisted contract.
const (
	// SlotCart holds the JSON array of cart lines.
	SlotCart = "cart"
	// SlotPending holds the single pending cart line, when present.
	SlotPending = "pendingCartItem"
)

// Storage is the durable key-value surface the cart persists itself to
// after every mutation. Implementations are expected to be scoped to a
// single actor (one browser session); the engine never shares a Storage
// between actors.
type Storage interface {
	// Load returns the slot's payload and whether the slot exists.
	Load(ctx context.Context, slot string) ([]byte, bool, error)
	// Save overwrites the slot's payload.
	Save(ctx context.Context, slot string, data []byte) error
	// Delete removes the slot entirely.
	Delete(ctx context.Context, slot string) error
}

// AuthState exposes the authentication state of the actor driving the
// engine. Implementations are injected; the cart never talks to the
// authentication provider itself.
type AuthState interface {
	Authenticated() bool
	// UserID returns the authenticated user's identifier, or 0 when
	// unauthenticated.
	UserID() int64
}
