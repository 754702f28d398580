// Package checkout converts the cart into a sequence of backend order
// submissions. Submission is deliberately sequential and non-atomic:
// everything up to and including the failing line is committed on the
// backend, nothing after it, and the cart is only cleared on full
// success.
package checkout

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/pratofino/catering-cart/internal/domain/cart"
)

// StatusPending is the status every freshly submitted order carries.
const StatusPending = "pending"

var (
	// ErrNotAuthenticated aborts a checkout attempted without an
	// authenticated identity; the caller should route to login.
	ErrNotAuthenticated = errors.New("checkout requires login")
	// ErrEmptyCart aborts a checkout over an empty cart.
	ErrEmptyCart = errors.New("cart is empty")
)

// idemNamespace scopes the per-line idempotency keys.
var idemNamespace = uuid.MustParse("9d9694b7-5cf4-4f2f-8c29-db2e1eba4f11")

// DateError reports a cart line whose date and time could not be
// combined into a valid timestamp. It is fatal for the checkout
// attempt; lines already submitted in the same run stay submitted.
type DateError struct {
	LineID int64
	Date   string
	Time   string
}

func (e *DateError) Error() string {
	return fmt.Sprintf("invalid event date %q %q on cart line %d", e.Date, e.Time, e.LineID)
}

// OrderRequest is one order-creation call to the backend, carrying the
// wire fields of POST /orders.
type OrderRequest struct {
	UserID         int64
	EventID        int64
	Status         string
	Date           time.Time
	GuestCount     int
	MenuSelection  string
	Location       string
	TotalAmount    decimal.Decimal
	WaiterFee      decimal.Decimal
	AdditionalInfo string
	// IdempotencyKey is stable per (user, cart line) so a blind retry
	// of a partially failed checkout cannot duplicate orders the
	// backend already created.
	IdempotencyKey string
}

// additionalInfo is the opaque payload serialized into the order
// request's additionalInfo field.
type additionalInfo struct {
	Quantity      int                 `json:"quantity"`
	ImageURL      string              `json:"imageUrl"`
	SelectedItems map[string][]string `json:"selectedItems"`
}

// OrderAPI is the backend collaborator that creates orders. It returns
// the created order's identifier.
type OrderAPI interface {
	Create(ctx context.Context, req OrderRequest) (int64, error)
}

// Result is the outcome of one checkout run. On full success OrderIDs
// holds every created order identifier in submission order and
// FailedIndex is -1. On failure, OrderIDs holds the identifiers created
// before the failing line; those orders exist on the backend and are
// not compensated.
type Result struct {
	OrderIDs    []int64
	FailedIndex int
	Err         error
}

// Succeeded reports whether every line was submitted.
func (r *Result) Succeeded() bool {
	return r.FailedIndex < 0
}

// Orchestrator drives the checkout of a cart store against the order
// backend.
type Orchestrator struct {
	store  *cart.Store
	orders OrderAPI
	auth   cart.AuthState
	lg     *zap.Logger
}

// New creates an orchestrator for one actor's cart.
func New(store *cart.Store, orders OrderAPI, auth cart.AuthState, lg *zap.Logger) *Orchestrator {
	return &Orchestrator{store: store, orders: orders, auth: auth, lg: lg}
}

// Checkout submits one order per cart line, strictly in collection
// order and one at a time, so a failure leaves a deterministic prefix
// of submitted lines. On full success the cart is cleared and closed.
// On any failure the remaining lines are not submitted, the cart is
// left untouched, and the returned Result carries the identifiers
// created so far alongside the error.
func (o *Orchestrator) Checkout(ctx context.Context) (*Result, error) {
	if !o.auth.Authenticated() {
		return nil, ErrNotAuthenticated
	}
	lines := o.store.Lines()
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}

	userID := o.auth.UserID()
	result := &Result{FailedIndex: -1}

	for i, line := range lines {
		eventDate, err := composeTimestamp(line.Date, line.EffectiveTime())
		if err != nil {
			result.FailedIndex = i
			result.Err = &DateError{LineID: line.ID, Date: line.Date, Time: line.EffectiveTime()}
			return result, result.Err
		}

		info, err := json.Marshal(additionalInfo{
			Quantity:      line.Quantity,
			ImageURL:      line.ImageURL,
			SelectedItems: line.MenuItems,
		})
		if err != nil {
			result.FailedIndex = i
			result.Err = errors.Wrap(err, "marshal additional info")
			return result, result.Err
		}

		qty := decimal.NewFromInt(int64(line.Quantity))
		totalAmount := line.Price.Mul(qty).Round(2).Add(line.WaiterFee)

		id, err := o.orders.Create(ctx, OrderRequest{
			UserID:         userID,
			EventID:        line.EventID,
			Status:         StatusPending,
			Date:           eventDate,
			GuestCount:     line.GuestCount,
			MenuSelection:  line.MenuSelection,
			Location:       line.Location,
			TotalAmount:    totalAmount,
			WaiterFee:      line.WaiterFee,
			AdditionalInfo: string(info),
			IdempotencyKey: idempotencyKey(userID, line.ID),
		})
		if err != nil {
			o.lg.Error("Order submission failed",
				zap.Int("lineIndex", i),
				zap.Int64("lineId", line.ID),
				zap.Int64s("createdOrderIds", result.OrderIDs),
				zap.Error(err),
			)
			result.FailedIndex = i
			result.Err = errors.Wrapf(err, "submit order for cart line %d", line.ID)
			return result, result.Err
		}
		result.OrderIDs = append(result.OrderIDs, id)
	}

	if err := o.store.Clear(ctx); err != nil {
		// Orders exist; a stale local cart is the lesser failure.
		o.lg.Error("Clearing cart after checkout failed", zap.Error(err))
	}
	o.store.Close()

	return result, nil
}

// composeTimestamp combines a calendar date and a time of day into a
// single UTC timestamp.
func composeTimestamp(date, timeOfDay string) (time.Time, error) {
	return time.Parse("2006-01-02 15:04", date+" "+timeOfDay)
}

// idempotencyKey derives the stable per-line submission key.
func idempotencyKey(userID, lineID int64) string {
	return uuid.NewSHA1(idemNamespace, fmt.Appendf(nil, "%d:%d", userID, lineID)).String()
}
