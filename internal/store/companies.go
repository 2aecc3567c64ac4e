package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/coldtrail/ypcrawl/internal/canon"
	"github.com/coldtrail/ypcrawl/internal/model"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx, letting Upsert run
// standalone or as part of a larger transaction (the per-page checkpoint).
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgx.CommandTag, error)
}

// Companies implements the deduplicated persistence layer keyed by
// canonical website URL (component C4).
type Companies struct {
	pool *pgxpool.Pool
}

// NewCompanies wraps db's pool in a Companies store.
func NewCompanies(db *DB) *Companies {
	return &Companies{pool: db.Pool}
}

// Upsert runs the single public C4 operation standalone.
func (c *Companies) Upsert(ctx context.Context, listing model.Listing, fr model.FilterResult) (model.UpsertOutcome, error) {
	return c.upsertTx(ctx, c.pool, listing, fr)
}

// upsertTx is the actual company upsert decision procedure, runnable
// against either the pool or an open transaction so the per-page
// checkpoint can commit listing upserts and page_current together.
func (c *Companies) upsertTx(ctx context.Context, q querier, listing model.Listing, fr model.FilterResult) (model.UpsertOutcome, error) {
	if listing.Website == "" {
		return model.UpsertSkipped, nil
	}
	canonicalWebsite, err := canon.CanonicalizeURL(listing.Website)
	if err != nil || canonicalWebsite == "" {
		return model.UpsertSkipped, nil
	}

	meta := model.ParseMetadata{
		ProfileURL:    listing.ProfileURL,
		CategoryTags:  listing.CategoryTags,
		IsSponsored:   listing.IsSponsored,
		FilterScore:   fr.Score,
		FilterReason:  fr.Reason,
		SourcePageURL: listing.SourcePageURL,
	}

	// Two concurrent crawlers can both observe the same new website and
	// race to insert it. Rather than look up the row first and branch
	// (TOCTOU), always attempt the insert with ON CONFLICT DO NOTHING: at
	// most one of the racing transactions inserts the row, and a
	// conflicting insert never aborts its transaction, so the loser can
	// fall through to the ordinary update path against the row the
	// winner created.
	inserted, err := c.tryInsert(ctx, q, listing, canonicalWebsite, meta)
	if err != nil {
		return "", err
	}
	if inserted {
		return model.UpsertInserted, nil
	}

	var existingID string
	var existingMetaRaw []byte
	row := q.QueryRow(ctx, `SELECT id, parse_metadata FROM companies WHERE website_canonical = $1`, canonicalWebsite)
	if err := row.Scan(&existingID, &existingMetaRaw); err != nil {
		return "", fmt.Errorf("lookup company %q after insert conflict: %w", canonicalWebsite, err)
	}
	return c.update(ctx, q, existingID, existingMetaRaw, listing, canonicalWebsite, meta)
}

// tryInsert attempts to create a new company row for canonicalWebsite. It
// reports inserted=false (with no error) if a concurrent transaction has
// already claimed that website_canonical, rather than erroring out.
func (c *Companies) tryInsert(ctx context.Context, q querier, listing model.Listing, canonicalWebsite string, meta model.ParseMetadata) (inserted bool, err error) {
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return false, fmt.Errorf("marshal parse_metadata: %w", err)
	}
	now := time.Now().UTC()

	row := q.QueryRow(ctx, `
		INSERT INTO companies (id, name, phone_e164, address_line, website_canonical,
		                        domain, rating, review_count, business_hours, description,
		                        parse_metadata, source_first_seen, last_seen)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $12)
		ON CONFLICT (website_canonical) DO NOTHING
		RETURNING id
	`,
		uuid.NewString(), canon.CleanName(listing.Name), listing.Phone, listing.Address,
		canonicalWebsite, canon.ExtractDomain(canonicalWebsite), listing.Rating, listing.Reviews,
		listing.BusinessHours, listing.Description, metaJSON, now,
	)
	var returnedID string
	if err := row.Scan(&returnedID); err != nil {
		if err == pgx.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("insert company: %w", err)
	}
	return true, nil
}

// update fills in any empty scalar field on the existing row from listing,
// bumps last_seen unconditionally, and merges parse_metadata: newer
// scalars replace older ones, array fields (category_tags) are unioned in
// first-seen order.
func (c *Companies) update(ctx context.Context, q querier, id string, existingMetaRaw []byte, listing model.Listing, canonicalWebsite string, newMeta model.ParseMetadata) (model.UpsertOutcome, error) {
	var existingMeta model.ParseMetadata
	if len(existingMetaRaw) > 0 {
		if err := json.Unmarshal(existingMetaRaw, &existingMeta); err != nil {
			return "", fmt.Errorf("unmarshal existing parse_metadata: %w", err)
		}
	}
	merged := mergeParseMetadata(existingMeta, newMeta)
	metaJSON, err := json.Marshal(merged)
	if err != nil {
		return "", fmt.Errorf("marshal merged parse_metadata: %w", err)
	}

	_, err = q.Exec(ctx, `
		UPDATE companies SET
		    name           = CASE WHEN name = '' THEN $2 ELSE name END,
		    phone_e164     = CASE WHEN phone_e164 = '' THEN $3 ELSE phone_e164 END,
		    address_line   = CASE WHEN address_line = '' THEN $4 ELSE address_line END,
		    rating         = COALESCE(rating, $5),
		    review_count   = COALESCE(review_count, $6),
		    business_hours = CASE WHEN business_hours = '' THEN $7 ELSE business_hours END,
		    description    = CASE WHEN description = '' THEN $8 ELSE description END,
		    parse_metadata = $9,
		    last_seen      = $10
		WHERE id = $1
	`,
		id, canon.CleanName(listing.Name), listing.Phone, listing.Address,
		listing.Rating, listing.Reviews, listing.BusinessHours, listing.Description,
		metaJSON, time.Now().UTC(),
	)
	if err != nil {
		return "", fmt.Errorf("update company %q: %w", canonicalWebsite, err)
	}
	return model.UpsertUpdated, nil
}

// CountSince reports how many company rows were newly created versus
// merely updated at or after since, for the operator-visible run summary.
func (c *Companies) CountSince(ctx context.Context, since time.Time) (created, updated int, err error) {
	row := c.pool.QueryRow(ctx, `
		SELECT count(*) FILTER (WHERE source_first_seen >= $1),
		       count(*) FILTER (WHERE source_first_seen < $1 AND last_seen >= $1)
		FROM companies
	`, since)
	if err := row.Scan(&created, &updated); err != nil {
		return 0, 0, fmt.Errorf("count companies since %s: %w", since, err)
	}
	return created, updated, nil
}

// mergeParseMetadata folds a newly observed ParseMetadata into the
// existing one: newer non-empty scalars win, CategoryTags is unioned
// preserving the order each tag was first seen in.
func mergeParseMetadata(old, new model.ParseMetadata) model.ParseMetadata {
	merged := old
	if new.ProfileURL != "" {
		merged.ProfileURL = new.ProfileURL
	}
	if new.SourcePageURL != "" {
		merged.SourcePageURL = new.SourcePageURL
	}
	merged.IsSponsored = new.IsSponsored
	merged.FilterScore = new.FilterScore
	merged.FilterReason = new.FilterReason
	merged.CategoryTags = unionPreservingOrder(old.CategoryTags, new.CategoryTags)
	return merged
}

func unionPreservingOrder(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, tag := range a {
		if !seen[tag] {
			seen[tag] = true
			out = append(out, tag)
		}
	}
	for _, tag := range b {
		if !seen[tag] {
			seen[tag] = true
			out = append(out, tag)
		}
	}
	return out
}
