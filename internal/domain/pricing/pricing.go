// Package pricing holds the pure pricing rules for catering cart lines:
// the staffing fee banded by guest count, per-line totals, and the cart
// totals breakdown with its 10% service charge.
package pricing

import (
	"github.com/shopspring/decimal"
)

// unitStaffCost is the cost of one waiter. One waiter is billed per
// started block of ten guests.
var unitStaffCost = decimal.NewFromInt(260)

// serviceChargeRate is the flat service fee applied once to the cart
// subtotal.
var serviceChargeRate = decimal.RequireFromString("0.10")

// Line is the minimal view of a cart line the pricing rules need.
type Line struct {
	// Price is the line's menu cost: per-guest unit price already
	// multiplied by the guest count.
	Price decimal.Decimal
	// WaiterFee is the cached staffing fee for the line.
	WaiterFee decimal.Decimal
	// Quantity is the number of identical repeat bookings.
	Quantity int
}

// Breakdown is the cart totals breakdown as displayed at checkout.
type Breakdown struct {
	Subtotal      decimal.Decimal
	ServiceCharge decimal.Decimal
	WaiterFees    decimal.Decimal
	GrandTotal    decimal.Decimal
}

// StaffingFee returns the waiter surcharge for the given guest count:
// one unit cost per started block of 10 guests. Non-positive guest
// counts yield a zero fee.
func StaffingFee(guestCount int) decimal.Decimal {
	if guestCount <= 0 {
		return decimal.Zero
	}
	waiters := (guestCount + 9) / 10
	return decimal.NewFromInt(int64(waiters)).Mul(unitStaffCost)
}

// MenuCost returns the menu-only cost of a line: per-guest unit price
// times guest count.
func MenuCost(unitPricePerGuest decimal.Decimal, guestCount int) decimal.Decimal {
	return unitPricePerGuest.Mul(decimal.NewFromInt(int64(guestCount)))
}

// LineTotal returns the full cost of one booking of a line: menu cost
// plus staffing fee.
func LineTotal(l Line) decimal.Decimal {
	return l.Price.Add(l.WaiterFee)
}

// Subtotal sums (price + waiter fee) * quantity over all lines. A
// negative waiter fee on a line (the decimal rendering of a malformed
// persisted value) counts as zero so one bad line cannot corrupt the
// whole total.
func Subtotal(lines []Line) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		fee := l.WaiterFee
		if fee.IsNegative() {
			fee = decimal.Zero
		}
		qty := decimal.NewFromInt(int64(l.Quantity))
		total = total.Add(l.Price.Mul(qty)).Add(fee.Mul(qty))
	}
	return total
}

// ServiceCharge returns the flat 10% service fee on the given subtotal.
func ServiceCharge(subtotal decimal.Decimal) decimal.Decimal {
	return subtotal.Mul(serviceChargeRate)
}

// waiterFeeTotal sums waiter fee * quantity over all lines, with the
// same negative-fee guard as Subtotal.
func waiterFeeTotal(lines []Line) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		fee := l.WaiterFee
		if fee.IsNegative() {
			fee = decimal.Zero
		}
		total = total.Add(fee.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return total
}

// Totals computes the displayed checkout breakdown. The staffing fee is
// counted once inside the subtotal and once more as its own breakdown
// row, so it contributes twice to the grand total. That arithmetic is
// kept for parity with the ordering flow this engine replaces; see
// DESIGN.md before "fixing" it.
func Totals(lines []Line) Breakdown {
	subtotal := Subtotal(lines)
	charge := ServiceCharge(subtotal)
	fees := waiterFeeTotal(lines)
	return Breakdown{
		Subtotal:      subtotal,
		ServiceCharge: charge,
		WaiterFees:    fees,
		GrandTotal:    subtotal.Add(charge).Add(fees),
	}
}
