// Package model holds the typed records shared across the scraper: the
// durable Target work unit, the extracted Listing, the persisted Company,
// and the proxy/health auxiliary records. Keeping them here (rather than
// letting each package carry its own half of the picture as ad-hoc maps)
// is what makes the claim protocol and the upsert path refer to the same
// vocabulary end to end.
package model

import "time"

// TargetStatus is the lifecycle state of a Target.
type TargetStatus string

const (
	StatusPlanned    TargetStatus = "PLANNED"
	StatusInProgress TargetStatus = "IN_PROGRESS"
	StatusDone       TargetStatus = "DONE"
	StatusFailed     TargetStatus = "FAILED"
	StatusStuck      TargetStatus = "STUCK"
	StatusParked     TargetStatus = "PARKED"
)

// Priority tiers drive claim ordering; page_target is the authoritative
// per-row page budget, priority is only a claim-ordering hint.
const (
	PriorityHigh   = 1
	PriorityMedium = 2
	PriorityLow    = 3
)

// Target is one unit of crawl work: a (state, city, category) tuple.
type Target struct {
	ID          string
	State       string
	City        string
	CitySlug    string
	Category    string
	PrimaryURL  string
	FallbackURL string
	Priority    int
	PageTarget  int
	Status      TargetStatus
	ClaimedBy   string
	ClaimedAt   *time.Time
	HeartbeatAt *time.Time
	PageCurrent int
	Attempts    int
	LastError   string
	Note        string
	FinishedAt  *time.Time
}

// ResumePage returns the next page to fetch: page_current + 1.
func (t Target) ResumePage() int {
	return t.PageCurrent + 1
}

// Remaining reports whether the target still has pages left to attempt.
func (t Target) Remaining() bool {
	return t.ResumePage() <= t.PageTarget
}
