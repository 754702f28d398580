// Command seed-catalog loads the event catalog (events, menus, dishes)
// from a JSON file into PostgreSQL. The catalog is normally maintained
// by the back-office tooling; this seeder exists for local development
// and fresh environments.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/pratofino/catering-cart/internal/storage/postgres"
)

type dishJSON struct {
	Name     string `json:"name"`
	Category string `json:"category"`
}

type menuJSON struct {
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	PricePerGuest decimal.Decimal `json:"pricePerGuest"`
	Dishes        []dishJSON      `json:"dishes"`
}

type eventJSON struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	ImageURL    string     `json:"imageUrl"`
	Menus       []menuJSON `json:"menus"`
}

func main() {
	var (
		databaseURL string
		catalogFile string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&catalogFile, "catalog-file", "db/seed/catalog.json", "path to catalog JSON file")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, catalogFile); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, catalogFile string) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	slog.Info("reading catalog file", slog.String("path", catalogFile))

	data, err := os.ReadFile(catalogFile)
	if err != nil {
		return errors.Wrap(err, "read catalog file")
	}

	var events []eventJSON
	if err := json.Unmarshal(data, &events); err != nil {
		return errors.Wrap(err, "parse catalog JSON")
	}

	slog.Info("seeding events", slog.Int("count", len(events)))

	for _, e := range events {
		if err := seedEvent(ctx, pool, e); err != nil {
			return errors.Wrapf(err, "seed event %q", e.Title)
		}
	}
	return nil
}

func seedEvent(ctx context.Context, pool *pgxpool.Pool, e eventJSON) error {
	var eventID int64
	err := pool.QueryRow(ctx,
		`INSERT INTO events (title, description, image_url) VALUES ($1, $2, $3) RETURNING id`,
		e.Title, e.Description, e.ImageURL,
	).Scan(&eventID)
	if err != nil {
		return errors.Wrap(err, "insert event")
	}
	slog.Info("inserted event", slog.Int64("id", eventID), slog.String("title", e.Title))

	for _, m := range e.Menus {
		var menuID int64
		err := pool.QueryRow(ctx,
			`INSERT INTO menus (event_id, name, description, price_per_guest) VALUES ($1, $2, $3, $4) RETURNING id`,
			eventID, m.Name, m.Description, m.PricePerGuest,
		).Scan(&menuID)
		if err != nil {
			return errors.Wrapf(err, "insert menu %q", m.Name)
		}

		for _, d := range m.Dishes {
			if _, err := pool.Exec(ctx,
				`INSERT INTO dishes (menu_id, name, category) VALUES ($1, $2, $3)`,
				menuID, d.Name, d.Category,
			); err != nil {
				return errors.Wrapf(err, "insert dish %q", d.Name)
			}
		}
		slog.Info("inserted menu", slog.Int64("id", menuID), slog.String("name", m.Name), slog.Int("dishes", len(m.Dishes)))
	}
	return nil
}
