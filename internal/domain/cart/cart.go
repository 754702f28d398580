// Package cart implements the cart of configured catering requests: the
// line collection with its merge and persistence discipline, the pending
// selection held across the authentication boundary, and the per-actor
// engine tying both to an authentication state.
package cart

import (
	"github.com/shopspring/decimal"

	"github.com/pratofino/catering-cart/internal/domain/pricing"
)

// DefaultTime is the time of day assumed when a line carries none.
const DefaultTime = "12:00"

// Line is one configured catering request pending purchase. The JSON
// field names are the persisted contract for the durable "cart" and
// "pendingCartItem" slots and must not change.
type Line struct {
	// ID is client-generated at creation time and unique per add
	// (creation timestamp in milliseconds).
	ID      int64 `json:"id"`
	EventID int64 `json:"eventId"`

	// Title and ImageURL are display copy snapshotted at add time;
	// later catalog edits do not reach back into the cart.
	Title    string `json:"title"`
	ImageURL string `json:"imageUrl,omitempty"`

	Date       string `json:"date"`
	Time       string `json:"time,omitempty"`
	GuestCount int    `json:"guestCount"`
	Location   string `json:"location,omitempty"`

	MenuSelection string              `json:"menuSelection,omitempty"`
	MenuItems     map[string][]string `json:"menuItems,omitempty"`

	// Price is the line's menu cost: per-guest unit price already
	// multiplied by GuestCount. Recomputed whenever GuestCount changes.
	Price decimal.Decimal `json:"price"`

	// WaiterFee is the cached staffing fee. It is derived from
	// GuestCount through pricing.StaffingFee and is only ever written
	// by Store.Add and Store.UpdateLine.
	WaiterFee decimal.Decimal `json:"waiterFee"`

	Quantity int `json:"quantity"`
}

// EffectiveTime returns the line's time of day, defaulting to noon.
func (l *Line) EffectiveTime() string {
	if l.Time == "" {
		return DefaultTime
	}
	return l.Time
}

// validForAdd reports whether a line may enter the cart: it must
// reference an event and carry a title. Price and guest count only need
// to be well-formed numbers at this point; the stricter positivity
// check applies when restoring persisted state.
func (l *Line) validForAdd() bool {
	return l.EventID > 0 && l.Title != ""
}

// validForRestore is the validity predicate applied to persisted lines:
// everything validForAdd requires plus a positive price and guest count.
func (l *Line) validForRestore() bool {
	return l.validForAdd() && l.Price.IsPositive() && l.GuestCount > 0
}

// pricingView converts lines to the pricing package's view.
func pricingView(lines []Line) []pricing.Line {
	out := make([]pricing.Line, len(lines))
	for i, l := range lines {
		out[i] = pricing.Line{Price: l.Price, WaiterFee: l.WaiterFee, Quantity: l.Quantity}
	}
	return out
}
