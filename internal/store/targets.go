package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/coldtrail/ypcrawl/internal/model"
)

// ErrNoTargetAvailable is returned by Claim when no eligible target exists
// for the calling worker right now; the worker is expected to idle and
// retry rather than treat it as an error.
var ErrNoTargetAvailable = errors.New("store: no target available")

const defaultOrphanTimeout = 60 * time.Minute

// maxClaimStateSkips bounds how many distinct over-cap states one Claim
// call will skip past before giving up. US state/territory counts top
// out well under this.
const maxClaimStateSkips = 64

// Targets implements the durable target queue (component C5).
type Targets struct {
	pool *pgxpool.Pool
}

// NewTargets wraps db's pool in a Targets store.
func NewTargets(db *DB) *Targets {
	return &Targets{pool: db.Pool}
}

// Claim atomically selects one PLANNED target restricted to shardStates,
// excluding states already at maxPerState concurrent IN_PROGRESS targets,
// locks it FOR UPDATE SKIP LOCKED, and transitions it to IN_PROGRESS. It
// returns ErrNoTargetAvailable if nothing is claimable right now.
//
// The candidate query itself does not look at maxPerState. Once a
// candidate is selected, claimOnce checks the cap under a Postgres
// advisory lock scoped to that state, so only one
// claim per state proceeds at a time; a candidate found over cap is
// excluded and Claim tries again for a different target.
func (t *Targets) Claim(ctx context.Context, workerID string, shardStates []string, maxPerState int) (*model.Target, error) {
	var excludedStates []string
	for i := 0; i < maxClaimStateSkips; i++ {
		tgt, overCapState, err := t.claimOnce(ctx, workerID, shardStates, excludedStates, maxPerState)
		if err != nil {
			return nil, err
		}
		if tgt != nil {
			return tgt, nil
		}
		if overCapState == "" {
			return nil, ErrNoTargetAvailable
		}
		excludedStates = append(excludedStates, overCapState)
	}
	return nil, ErrNoTargetAvailable
}

// claimOnce selects and locks one candidate target, then verifies
// maxPerState under a per-state advisory lock before committing. It
// returns (nil, "", nil) when no candidate exists at all, and (nil,
// state, nil) when a candidate exists but its state is at cap once
// checked under the lock.
func (t *Targets) claimOnce(ctx context.Context, workerID string, shardStates, excludedStates []string, maxPerState int) (*model.Target, string, error) {
	tx, err := t.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, "", fmt.Errorf("begin claim tx: %w", err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
		SELECT id, state, city, city_slug, category, primary_url, fallback_url,
		       priority, page_target, page_current, attempts, note
		FROM targets
		WHERE status = 'PLANNED'
		  AND (cardinality($1::text[]) = 0 OR state = ANY($1::text[]))
		  AND (cardinality($2::text[]) = 0 OR NOT (state = ANY($2::text[])))
		ORDER BY priority ASC, random()
		FOR UPDATE SKIP LOCKED
		LIMIT 1
	`, shardStates, excludedStates)

	var tgt model.Target
	if err := row.Scan(&tgt.ID, &tgt.State, &tgt.City, &tgt.CitySlug, &tgt.Category,
		&tgt.PrimaryURL, &tgt.FallbackURL, &tgt.Priority, &tgt.PageTarget,
		&tgt.PageCurrent, &tgt.Attempts, &tgt.Note); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", nil
		}
		return nil, "", fmt.Errorf("scan claimable target: %w", err)
	}

	if maxPerState > 0 {
		// pg_advisory_xact_lock serializes every claim for this state: a
		// concurrent claimOnce blocks here until this transaction commits
		// or rolls back, so the count below always reflects every claim
		// already committed for tgt.State.
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, tgt.State); err != nil {
			return nil, "", fmt.Errorf("acquire state claim lock: %w", err)
		}
		var inProgress int
		if err := tx.QueryRow(ctx, `
			SELECT count(*) FROM targets WHERE state = $1 AND status = 'IN_PROGRESS'
		`, tgt.State).Scan(&inProgress); err != nil {
			return nil, "", fmt.Errorf("count in-progress targets for state: %w", err)
		}
		if inProgress >= maxPerState {
			return nil, tgt.State, nil
		}
	}

	now := time.Now().UTC()
	if _, err := tx.Exec(ctx, `
		UPDATE targets
		SET status = 'IN_PROGRESS', claimed_by = $1, claimed_at = $2,
		    heartbeat_at = $2, attempts = attempts + 1
		WHERE id = $3
	`, workerID, now, tgt.ID); err != nil {
		return nil, "", fmt.Errorf("mark in_progress: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, "", fmt.Errorf("commit claim: %w", err)
	}

	tgt.Status = model.StatusInProgress
	tgt.ClaimedBy = workerID
	tgt.ClaimedAt = &now
	tgt.HeartbeatAt = &now
	tgt.Attempts++
	return &tgt, "", nil
}

// CheckpointPage upserts every accepted listing for page p and advances
// page_current and heartbeat_at in the same transaction. The upserts run
// through the supplied Companies store so both tables commit atomically.
func (t *Targets) CheckpointPage(ctx context.Context, companies *Companies, targetID string, page int, accepted []model.Listing, filterResults []model.FilterResult) error {
	tx, err := t.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin checkpoint tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for i, listing := range accepted {
		if _, err := companies.upsertTx(ctx, tx, listing, filterResults[i]); err != nil {
			return fmt.Errorf("upsert listing %q: %w", listing.Name, err)
		}
	}

	if _, err := tx.Exec(ctx, `
		UPDATE targets SET page_current = $1, heartbeat_at = $2 WHERE id = $3
	`, page, time.Now().UTC(), targetID); err != nil {
		return fmt.Errorf("advance page_current: %w", err)
	}

	return tx.Commit(ctx)
}

// EarlyExit marks a target DONE after page 1 returned zero accepted
// listings, skipping any remaining pages.
func (t *Targets) EarlyExit(ctx context.Context, targetID string) error {
	return t.complete(ctx, targetID, "early_exit_no_results_page1")
}

// Complete marks a target DONE after its page budget is exhausted.
func (t *Targets) Complete(ctx context.Context, targetID string) error {
	return t.complete(ctx, targetID, "")
}

func (t *Targets) complete(ctx context.Context, targetID, note string) error {
	now := time.Now().UTC()
	_, err := t.pool.Exec(ctx, `
		UPDATE targets SET status = 'DONE', finished_at = $1, note = $2 WHERE id = $3
	`, now, note, targetID)
	if err != nil {
		return fmt.Errorf("mark done: %w", err)
	}
	return nil
}

// FailRetryable transitions a target to FAILED after a retryable error. If
// attempts has not reached maxAttempts the caller should immediately call
// ResetToPlanned; FailRetryable only records the failure.
func (t *Targets) FailRetryable(ctx context.Context, targetID, reason string) error {
	_, err := t.pool.Exec(ctx, `
		UPDATE targets SET status = 'FAILED', last_error = $1 WHERE id = $2
	`, reason, targetID)
	return err
}

// ResetToPlanned returns a FAILED target (with attempts < max_attempts) to
// PLANNED so it can be reclaimed.
func (t *Targets) ResetToPlanned(ctx context.Context, targetID string) error {
	_, err := t.pool.Exec(ctx, `
		UPDATE targets SET status = 'PLANNED', claimed_by = NULL, claimed_at = NULL
		WHERE id = $1
	`, targetID)
	return err
}

// CoolDown returns a target to PLANNED after a block/captcha observation,
// without consuming an extra attempt.
func (t *Targets) CoolDown(ctx context.Context, targetID string) error {
	_, err := t.pool.Exec(ctx, `
		UPDATE targets
		SET status = 'PLANNED', claimed_by = NULL, claimed_at = NULL, note = 'cooling_down'
		WHERE id = $1
	`, targetID)
	return err
}

// RecoverOrphans transitions any IN_PROGRESS target whose heartbeat is
// null or older than orphanTimeout back to PLANNED, preserving
// page_current. A zero orphanTimeout applies
// the default (60 minutes). It returns the number of targets recovered.
func (t *Targets) RecoverOrphans(ctx context.Context, orphanTimeout time.Duration) (int, error) {
	if orphanTimeout <= 0 {
		orphanTimeout = defaultOrphanTimeout
	}
	cutoff := time.Now().UTC().Add(-orphanTimeout)

	tag, err := t.pool.Exec(ctx, `
		UPDATE targets
		SET status = 'PLANNED', claimed_by = NULL, claimed_at = NULL,
		    note = 'recovered_orphan'
		WHERE status = 'IN_PROGRESS'
		  AND (heartbeat_at IS NULL OR heartbeat_at < $1)
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("recover orphans: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// Park sets a target to PARKED, an operator-only hold state the claim
// query never selects.
func (t *Targets) Park(ctx context.Context, targetID string) error {
	_, err := t.pool.Exec(ctx, `UPDATE targets SET status = 'PARKED' WHERE id = $1`, targetID)
	return err
}

// CountByStatus returns the number of targets currently in each lifecycle
// status, for the operator-visible run summary.
func (t *Targets) CountByStatus(ctx context.Context) (map[model.TargetStatus]int, error) {
	rows, err := t.pool.Query(ctx, `SELECT status, count(*) FROM targets GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count targets by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[model.TargetStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan target status count: %w", err)
		}
		counts[model.TargetStatus(status)] = n
	}
	return counts, rows.Err()
}

// TotalAttempts sums the attempts counter across every target, an
// approximation of how many claims the pool has made overall (a target
// reclaimed after an orphan recovery or cool-down counts once per claim).
func (t *Targets) TotalAttempts(ctx context.Context) (int, error) {
	var total int
	err := t.pool.QueryRow(ctx, `SELECT COALESCE(sum(attempts), 0) FROM targets`).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum target attempts: %w", err)
	}
	return total, nil
}

// Insert creates a new PLANNED target, used by the seeding procedure (C5
// lifecycle start). It is idempotent on (state, city_slug,
// category): a conflicting insert is silently skipped.
func (t *Targets) Insert(ctx context.Context, tgt model.Target) error {
	if tgt.ID == "" {
		tgt.ID = uuid.NewString()
	}
	_, err := t.pool.Exec(ctx, `
		INSERT INTO targets (id, state, city, city_slug, category, primary_url,
		                      fallback_url, priority, page_target, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 'PLANNED')
		ON CONFLICT ON CONSTRAINT targets_state_city_category_key DO NOTHING
	`, tgt.ID, tgt.State, tgt.City, tgt.CitySlug, tgt.Category, tgt.PrimaryURL,
		tgt.FallbackURL, tgt.Priority, tgt.PageTarget)
	if err != nil {
		return fmt.Errorf("insert target: %w", err)
	}
	return nil
}
