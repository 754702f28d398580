// Package catalog defines the read-only view of the event and menu
// catalog the cart engine composes lines from. The catalog itself is
// owned by the back-office tooling; this engine only reads it.
package catalog

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested catalog entity does not exist.
var ErrNotFound = errors.New("catalog entity not found")

// Event is a bookable catering event template.
type Event struct {
	ID          int64
	Title       string
	Description string
	ImageURL    string
}

// Menu is one menu tier offered for an event, priced per guest.
type Menu struct {
	ID            int64
	EventID       int64
	Name          string
	Description   string
	PricePerGuest decimal.Decimal
}

// Dish is one selectable dish inside a menu, grouped by its category
// string exactly as stored by the admin tooling (uppercase Portuguese
// names such as "ENTRADAS" or "BEBIDAS").
type Dish struct {
	ID       int64
	MenuID   int64
	Name     string
	Category string
}

// Repository defines the read operations the engine needs from the
// catalog collaborator.
type Repository interface {
	GetEvent(ctx context.Context, id int64) (*Event, error)
	GetMenu(ctx context.Context, id int64) (*Menu, error)
	ListMenus(ctx context.Context, eventID int64) ([]Menu, error)
	ListDishes(ctx context.Context, menuID int64) ([]Dish, error)
}
