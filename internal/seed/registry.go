// Package seed holds the small static city/category registry and the
// procedure that expands it into Targets, a seeding step that was never
// designed further upstream.
package seed

import (
	"context"
	"fmt"
	"strings"

	"github.com/coldtrail/ypcrawl/internal/model"
	"github.com/coldtrail/ypcrawl/internal/store"
)

// City is one entry in the static seed registry: a directory-searchable
// city with a population tier that drives Target.Priority.
type City struct {
	State      string
	Name       string
	Slug       string
	Population int64
}

// Registry is the small built-in set of cities the seed subcommand walks.
// It is the only city source the seed subcommand uses; the cities
// auxiliary table (store.Cities) is not read when seeding.
var Registry = []City{
	{State: "TX", Name: "Houston", Slug: "houston-tx", Population: 2302878},
	{State: "TX", Name: "Austin", Slug: "austin-tx", Population: 978908},
	{State: "TX", Name: "Dallas", Slug: "dallas-tx", Population: 1288457},
	{State: "CA", Name: "Los Angeles", Slug: "los-angeles-ca", Population: 3898747},
	{State: "CA", Name: "San Diego", Slug: "san-diego-ca", Population: 1386932},
	{State: "CA", Name: "Fresno", Slug: "fresno-ca", Population: 542107},
	{State: "NY", Name: "New York", Slug: "new-york-ny", Population: 8335897},
	{State: "NY", Name: "Buffalo", Slug: "buffalo-ny", Population: 278349},
	{State: "FL", Name: "Miami", Slug: "miami-fl", Population: 442241},
	{State: "FL", Name: "Tampa", Slug: "tampa-fl", Population: 384959},
}

// Categories is the fixed set of search categories seeded against every
// city. Deployments that need a different category set edit this slice.
var Categories = []string{
	"plumbers",
	"electricians",
	"hvac-contractors",
	"roofing-contractors",
	"landscaping",
	"auto-repair",
	"pest-control",
}

// priorityForPopulation maps a city's population to the 1/2/3 tier used
// for claim ordering.
func priorityForPopulation(pop int64) int {
	switch {
	case pop >= 1_000_000:
		return model.PriorityHigh
	case pop >= 300_000:
		return model.PriorityMedium
	default:
		return model.PriorityLow
	}
}

// pageTargetForPriority implements the priority -> page_target mapping.
func pageTargetForPriority(priority int) int {
	switch priority {
	case model.PriorityHigh:
		return 3
	case model.PriorityMedium:
		return 2
	default:
		return 1
	}
}

// BuildTargets expands the registry (or, if cities is non-nil, that
// explicit city list) against categories into Target rows ready for
// Targets.Insert. It does not touch the database itself.
func BuildTargets(cities []City, categories []string) []model.Target {
	if cities == nil {
		cities = Registry
	}
	if categories == nil {
		categories = Categories
	}

	targets := make([]model.Target, 0, len(cities)*len(categories))
	for _, c := range cities {
		priority := priorityForPopulation(c.Population)
		pageTarget := pageTargetForPriority(priority)
		for _, category := range categories {
			targets = append(targets, model.Target{
				State:       c.State,
				City:        c.Name,
				CitySlug:    c.Slug,
				Category:    category,
				PrimaryURL:  categoryPathURL(c.Slug, category),
				FallbackURL: searchFallbackURL(c.Name, c.State, category),
				Priority:    priority,
				PageTarget:  pageTarget,
			})
		}
	}
	return targets
}

// categoryPathURL builds the directory's category+city path shape.
func categoryPathURL(citySlug, category string) string {
	return fmt.Sprintf("https://www.yellowpages.com/%s/%s", citySlug, category)
}

// searchFallbackURL builds the directory's search fallback shape. The
// crawl fetches it in place of the primary URL only when the primary URL
// itself does not parse; a 404 on the category path does not trigger it.
func searchFallbackURL(city, state, category string) string {
	geo := strings.ReplaceAll(fmt.Sprintf("%s, %s", city, state), " ", "+")
	return fmt.Sprintf("https://www.yellowpages.com/search?search_terms=%s&geo_location_terms=%s", category, geo)
}

// Seed inserts every Target built from cities/categories via targets.
// Insert is idempotent on (state, city_slug, category), so re-running
// Seed against an already-seeded database is a no-op for existing rows.
// It returns the number of targets attempted and the first insert error
// encountered, if any; it does not stop early on a single failed insert.
func Seed(ctx context.Context, targets *store.Targets, cities []City, categories []string) (int, error) {
	built := BuildTargets(cities, categories)
	var firstErr error
	for _, t := range built {
		if err := ctx.Err(); err != nil {
			return len(built), err
		}
		if err := targets.Insert(ctx, t); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("insert target %s/%s/%s: %w", t.State, t.CitySlug, t.Category, err)
		}
	}
	return len(built), firstErr
}
