package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// CityEntry is one row of the city registry auxiliary table. The seed
// subcommand does not read this table; it expands seed.Registry instead.
type CityEntry struct {
	State      string
	City       string
	CitySlug   string
	Population int64
}

// Cities is the optional city registry store (Upsert and ListByState). It
// is not on the hot crawl path.
type Cities struct {
	pool *pgxpool.Pool
}

// NewCities wraps db's pool in a Cities store.
func NewCities(db *DB) *Cities {
	return &Cities{pool: db.Pool}
}

// Upsert inserts or replaces one city registry row.
func (c *Cities) Upsert(ctx context.Context, entry CityEntry) error {
	_, err := c.pool.Exec(ctx, `
		INSERT INTO cities (state, city, city_slug, population)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (state, city_slug) DO UPDATE SET city = $2, population = $4
	`, entry.State, entry.City, entry.CitySlug, entry.Population)
	if err != nil {
		return fmt.Errorf("upsert city %s/%s: %w", entry.State, entry.CitySlug, err)
	}
	return nil
}

// ListByState returns every registered city in a state, ordered by
// population descending so larger cities seed first.
func (c *Cities) ListByState(ctx context.Context, state string) ([]CityEntry, error) {
	rows, err := c.pool.Query(ctx, `
		SELECT state, city, city_slug, population FROM cities
		WHERE state = $1
		ORDER BY population DESC
	`, state)
	if err != nil {
		return nil, fmt.Errorf("list cities for %s: %w", state, err)
	}
	defer rows.Close()

	var out []CityEntry
	for rows.Next() {
		var e CityEntry
		if err := rows.Scan(&e.State, &e.City, &e.CitySlug, &e.Population); err != nil {
			return nil, fmt.Errorf("scan city row: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
