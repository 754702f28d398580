package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pratofino/catering-cart/internal/domain/catalog"
)

const (
	getEventSQL = `SELECT id, title, description, image_url
		FROM events WHERE id = $1`

	getMenuSQL = `SELECT id, event_id, name, description, price_per_guest
		FROM menus WHERE id = $1`

	listMenusSQL = `SELECT id, event_id, name, description, price_per_guest
		FROM menus WHERE event_id = $1 ORDER BY id`

	listDishesSQL = `SELECT id, menu_id, name, category
		FROM dishes WHERE menu_id = $1 ORDER BY id`
)

var _ catalog.Repository = (*CatalogRepository)(nil)

// CatalogRepository implements catalog.Repository backed by PostgreSQL.
type CatalogRepository struct {
	pool *pgxpool.Pool
}

// NewCatalogRepository returns a CatalogRepository that uses the given pool.
func NewCatalogRepository(pool *pgxpool.Pool) *CatalogRepository {
	return &CatalogRepository{pool: pool}
}

// GetEvent returns a single event by its identifier.
func (r *CatalogRepository) GetEvent(ctx context.Context, id int64) (*catalog.Event, error) {
	rows, err := r.pool.Query(ctx, getEventSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting event %d: %w", id, err)
	}

	e, err := pgx.CollectExactlyOneRow(rows, scanEvent)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrNotFound
		}
		return nil, fmt.Errorf("getting event %d: %w", id, err)
	}
	return &e, nil
}

// GetMenu returns a single menu by its identifier.
func (r *CatalogRepository) GetMenu(ctx context.Context, id int64) (*catalog.Menu, error) {
	rows, err := r.pool.Query(ctx, getMenuSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting menu %d: %w", id, err)
	}

	m, err := pgx.CollectExactlyOneRow(rows, scanMenu)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrNotFound
		}
		return nil, fmt.Errorf("getting menu %d: %w", id, err)
	}
	return &m, nil
}

// ListMenus returns every menu tier offered for the event.
func (r *CatalogRepository) ListMenus(ctx context.Context, eventID int64) ([]catalog.Menu, error) {
	rows, err := r.pool.Query(ctx, listMenusSQL, eventID)
	if err != nil {
		return nil, fmt.Errorf("listing menus for event %d: %w", eventID, err)
	}
	return pgx.CollectRows(rows, scanMenu)
}

// ListDishes returns the menu's dishes in catalog order.
func (r *CatalogRepository) ListDishes(ctx context.Context, menuID int64) ([]catalog.Dish, error) {
	rows, err := r.pool.Query(ctx, listDishesSQL, menuID)
	if err != nil {
		return nil, fmt.Errorf("listing dishes for menu %d: %w", menuID, err)
	}
	return pgx.CollectRows(rows, scanDish)
}

func scanEvent(row pgx.CollectableRow) (catalog.Event, error) {
	var e catalog.Event
	err := row.Scan(&e.ID, &e.Title, &e.Description, &e.ImageURL)
	return e, err
}

func scanMenu(row pgx.CollectableRow) (catalog.Menu, error) {
	var m catalog.Menu
	err := row.Scan(&m.ID, &m.EventID, &m.Name, &m.Description, &m.PricePerGuest)
	return m, err
}

func scanDish(row pgx.CollectableRow) (catalog.Dish, error) {
	var d catalog.Dish
	err := row.Scan(&d.ID, &d.MenuID, &d.Name, &d.Category)
	return d, err
}
