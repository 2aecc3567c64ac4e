// Package crawl implements the target-crawl procedure (component C9):
// given one already-claimed target, it walks pages 1..N, checkpointing
// accepted listings transactionally with the page cursor and exiting
// early when page 1 turns up nothing.
package crawl

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/coldtrail/ypcrawl/internal/fetch"
	"github.com/coldtrail/ypcrawl/internal/filter"
	"github.com/coldtrail/ypcrawl/internal/health"
	"github.com/coldtrail/ypcrawl/internal/model"
	"github.com/coldtrail/ypcrawl/internal/parser"
	"github.com/coldtrail/ypcrawl/internal/store"
)

// Outcome is the result C10's worker loop logs and acts on after a crawl
// call returns.
type Outcome string

const (
	OutcomeDone      Outcome = "done"
	OutcomeDoneEarly Outcome = "done_early"
	OutcomeRequeued  Outcome = "requeued"
	OutcomeFailed    Outcome = "failed"
	// OutcomeStopped means the caller's stop signal fired between pages
	// before the target's page budget was exhausted. The target is left
	// IN_PROGRESS with its last checkpointed page_current and heartbeat;
	// orphan recovery reclaims it once the heartbeat goes stale.
	OutcomeStopped Outcome = "stopped"
)

const maxConsecutivePageFailures = 2

// Deps bundles the collaborators C9 drives per page: C7 fetches, guided
// by C6 and C8; C2 parses; C3 filters; C4 upserts; C5 checkpoints;
// C6 records the outcome.
type Deps struct {
	Fetcher      fetch.Fetcher
	Targets      *store.Targets
	Companies    *store.Companies
	Rejects      *store.Rejects // optional; nil disables reject logging
	Monitor      *health.Monitor
	FilterConfig filter.Config
	// MaxAttempts is the ceiling on target.Attempts a retryable failure
	// compares against to decide whether the target is reset to PLANNED
	// (attempts < MaxAttempts) or left FAILED as a terminal state. Zero
	// means every retryable failure is terminal.
	MaxAttempts int
}

// Crawl runs the page loop for target until it completes, exits early,
// is requeued after a block/CAPTCHA, or fails after too many consecutive
// soft failures. stop is checked between pages, never mid-page.
func Crawl(ctx context.Context, deps Deps, target model.Target, stop <-chan struct{}) (Outcome, error) {
	page := target.PageCurrent + 1
	consecutiveFailures := 0

	for page <= target.PageTarget {
		select {
		case <-stop:
			return OutcomeStopped, nil
		default:
		}

		pageURL, err := pageURLFor(target, page)
		if err != nil {
			return OutcomeFailed, fmt.Errorf("build page url: %w", err)
		}

		outcome := deps.Fetcher.Fetch(ctx, pageURL)
		deps.Monitor.RecordOutcome(outcome.Kind == fetch.KindOK, outcome.Kind == fetch.KindCaptcha, outcome.Kind == fetch.KindBlocked)

		if outcome.Kind == fetch.KindCaptcha || outcome.Kind == fetch.KindBlocked {
			if err := deps.Targets.CoolDown(ctx, target.ID); err != nil {
				return OutcomeFailed, fmt.Errorf("cool down target: %w", err)
			}
			return OutcomeRequeued, nil
		}

		if outcome.Kind != fetch.KindOK {
			consecutiveFailures++
			if consecutiveFailures >= maxConsecutivePageFailures {
				if err := deps.Targets.FailRetryable(ctx, target.ID, outcome.Reason); err != nil {
					return OutcomeFailed, fmt.Errorf("mark target failed: %w", err)
				}
				if target.Attempts < deps.MaxAttempts {
					if err := deps.Targets.ResetToPlanned(ctx, target.ID); err != nil {
						return OutcomeFailed, fmt.Errorf("reset failed target to planned: %w", err)
					}
				}
				return OutcomeFailed, nil
			}
			page++
			continue
		}
		consecutiveFailures = 0

		base, parseErr := url.Parse(pageURL)
		if parseErr != nil {
			return OutcomeFailed, fmt.Errorf("parse source page url: %w", parseErr)
		}

		listings := parser.ParsePage(string(outcome.Body), base, deps.FilterConfig.IncludeSponsored)
		if listings == nil {
			listings = parser.ExtractFallbackListings(bytes.NewReader(outcome.Body), base)
		}

		var accepted []model.Listing
		var filterResults []model.FilterResult
		for _, listing := range listings {
			fr := filter.Decide(listing, deps.FilterConfig)
			if fr.Accepted {
				accepted = append(accepted, listing)
				filterResults = append(filterResults, fr)
			} else if deps.Rejects != nil {
				_ = deps.Rejects.Record(ctx, listing, fr)
			}
		}

		if err := deps.Targets.CheckpointPage(ctx, deps.Companies, target.ID, page, accepted, filterResults); err != nil {
			return OutcomeFailed, fmt.Errorf("checkpoint page %d: %w", page, err)
		}
		deps.Monitor.RecordPage(len(listings), len(accepted))

		if page == 1 && len(accepted) == 0 {
			if err := deps.Targets.EarlyExit(ctx, target.ID); err != nil {
				return OutcomeFailed, fmt.Errorf("early exit: %w", err)
			}
			return OutcomeDoneEarly, nil
		}

		page++
	}

	if err := deps.Targets.Complete(ctx, target.ID); err != nil {
		return OutcomeFailed, fmt.Errorf("complete target: %w", err)
	}
	return OutcomeDone, nil
}

// pageURLFor appends the page query parameter to target.PrimaryURL,
// falling back to FallbackURL if the primary URL does not parse.
func pageURLFor(target model.Target, page int) (string, error) {
	u, err := url.Parse(target.PrimaryURL)
	if err != nil {
		u, err = url.Parse(target.FallbackURL)
		if err != nil {
			return "", fmt.Errorf("neither primary nor fallback url parses: %w", err)
		}
	}
	q := u.Query()
	q.Set("page", strconv.Itoa(page))
	u.RawQuery = q.Encode()
	return u.String(), nil
}
