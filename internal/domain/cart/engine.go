package cart

import (
	"context"
	"sync"

	"github.com/go-faster/errors"
	"go.uber.org/zap"
)

// ErrPendingHeld reports that an add was deferred because the actor is
// not authenticated: the line is held as the pending selection and will
// enter the cart on login.
var ErrPendingHeld = errors.New("selection held until login")

// Engine bundles the cart store, the pending-selection relay, and the
// actor's authentication state into the single object a hosting layer
// drives. One engine per actor.
type Engine struct {
	Store *Store
	Relay *PendingRelay

	auth *authState
}

// NewEngine creates an engine over the given per-actor storage.
func NewEngine(storage Storage, lg *zap.Logger) *Engine {
	store := NewStore(storage, lg)
	return &Engine{
		Store: store,
		Relay: NewPendingRelay(store, storage, lg),
		auth:  &authState{},
	}
}

// Restore loads persisted cart and pending state.
func (e *Engine) Restore(ctx context.Context) error {
	if err := e.Store.Restore(ctx); err != nil {
		return err
	}
	return e.Relay.Restore(ctx)
}

// Auth returns the engine's authentication state view.
func (e *Engine) Auth() AuthState {
	return e.auth
}

// SetIdentity records the actor as authenticated with the given user id
// and notifies the relay, which drains any pending selection exactly
// once per unauthenticated-to-authenticated transition.
func (e *Engine) SetIdentity(ctx context.Context, userID int64) error {
	e.auth.set(true, userID)
	return e.Relay.OnAuthChange(ctx, true)
}

// ClearIdentity records the actor as unauthenticated.
func (e *Engine) ClearIdentity(ctx context.Context) error {
	e.auth.set(false, 0)
	return e.Relay.OnAuthChange(ctx, false)
}

// AddToCart adds the line when authenticated; otherwise it holds the
// line as the pending selection and returns ErrPendingHeld.
func (e *Engine) AddToCart(ctx context.Context, line Line) error {
	if !e.auth.Authenticated() {
		if err := e.Relay.Hold(ctx, line); err != nil {
			return err
		}
		return ErrPendingHeld
	}
	return e.Store.Add(ctx, line)
}

// authState is the engine-internal mutable AuthState.
type authState struct {
	mu            sync.Mutex
	authenticated bool
	userID        int64
}

func (a *authState) set(authenticated bool, userID int64) {
	a.mu.Lock()
	a.authenticated = authenticated
	a.userID = userID
	a.mu.Unlock()
}

func (a *authState) Authenticated() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.authenticated
}

func (a *authState) UserID() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.userID
}
