package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/coldtrail/ypcrawl/internal/model"
)

// Rejects is the optional reject log auxiliary table: every
// listing the filter turned away, with the reason and score that decided
// it, for later selector-drift or threshold-tuning review. The crawl calls
// Record synchronously for each rejected listing and discards its error,
// so a Record failure never fails a crawl.
type Rejects struct {
	pool *pgxpool.Pool
}

// NewRejects wraps db's pool in a Rejects store.
func NewRejects(db *DB) *Rejects {
	return &Rejects{pool: db.Pool}
}

// Record appends one rejected listing to the log.
func (r *Rejects) Record(ctx context.Context, listing model.Listing, fr model.FilterResult) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO rejects (listing_name, website, source_page_url, reason, score)
		VALUES ($1, $2, $3, $4, $5)
	`, listing.Name, listing.Website, listing.SourcePageURL, fr.Reason, fr.Score)
	if err != nil {
		return fmt.Errorf("record reject: %w", err)
	}
	return nil
}
