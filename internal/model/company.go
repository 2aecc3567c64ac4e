package model

import "time"

// Company is a persisted, deduplicated business row keyed by canonical
// website URL. UpsertOutcome reports which of the three
// persistence branches fired for a given listing.
type Company struct {
	ID               string
	Name             string
	PhoneE164        string
	AddressLine      string
	City             string
	State            string
	PostalCode       string
	WebsiteCanonical string
	Domain           string
	Rating           *float64
	ReviewCount      *int
	Source           string
	BusinessHours    string
	Description      string
	ParseMetadata    ParseMetadata
	SourceFirstSeen  time.Time
	LastSeen         time.Time
}

// UpsertOutcome is the result of one C4 upsert call.
type UpsertOutcome string

const (
	UpsertInserted UpsertOutcome = "inserted"
	UpsertUpdated  UpsertOutcome = "updated"
	UpsertSkipped  UpsertOutcome = "skipped"
)
