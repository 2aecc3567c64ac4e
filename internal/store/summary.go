package store

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// RunSummary is the optional operator-visible "last run summary" checkpoint.
// It is written as a single JSON document, not a database
// table, so an operator can inspect it without a DB client.
type RunSummary struct {
	StartedAt        time.Time `json:"started_at"`
	FinishedAt       time.Time `json:"finished_at"`
	TargetsClaimed   int       `json:"targets_claimed"`
	TargetsCompleted int       `json:"targets_completed"`
	TargetsFailed    int       `json:"targets_failed"`
	TargetsParked    int       `json:"targets_parked"`
	ListingsFound    int       `json:"listings_found"`
	ListingsAccepted int       `json:"listings_accepted"`
	CompaniesUpdated int       `json:"companies_updated"`
	CompaniesCreated int       `json:"companies_created"`
}

// WriteSummary writes s to path as pretty-printed JSON, overwriting any
// previous summary.
func WriteSummary(path string, s RunSummary) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal run summary: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write run summary to %s: %w", path, err)
	}
	return nil
}

// ReadSummary reads a previously written run summary, if any.
func ReadSummary(path string) (RunSummary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RunSummary{}, fmt.Errorf("read run summary from %s: %w", path, err)
	}
	var s RunSummary
	if err := json.Unmarshal(data, &s); err != nil {
		return RunSummary{}, fmt.Errorf("unmarshal run summary: %w", err)
	}
	return s, nil
}
