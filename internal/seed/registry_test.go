package seed

import (
	"strings"
	"testing"

	"github.com/coldtrail/ypcrawl/internal/model"
)

func TestBuildTargetsCoversEveryCityCategoryPair(t *testing.T) {
	cities := []City{{State: "TX", Name: "Austin", Slug: "austin-tx", Population: 978908}}
	categories := []string{"plumbers", "electricians"}

	targets := BuildTargets(cities, categories)
	if len(targets) != 2 {
		t.Fatalf("got %d targets, want 2", len(targets))
	}
	for _, tgt := range targets {
		if tgt.State != "TX" || tgt.CitySlug != "austin-tx" {
			t.Errorf("unexpected target %+v", tgt)
		}
	}
}

func TestBuildTargetsPriorityFromPopulation(t *testing.T) {
	cities := []City{
		{State: "NY", Name: "New York", Slug: "new-york-ny", Population: 8_335_897},
		{State: "TX", Name: "Midsize", Slug: "midsize-tx", Population: 500_000},
		{State: "TX", Name: "Small Town", Slug: "small-town-tx", Population: 10_000},
	}
	targets := BuildTargets(cities, []string{"plumbers"})

	want := map[string]int{"new-york-ny": model.PriorityHigh, "midsize-tx": model.PriorityMedium, "small-town-tx": model.PriorityLow}
	for _, tgt := range targets {
		if tgt.Priority != want[tgt.CitySlug] {
			t.Errorf("%s: Priority = %d, want %d", tgt.CitySlug, tgt.Priority, want[tgt.CitySlug])
		}
		if tgt.PageTarget < 1 || tgt.PageTarget > 3 {
			t.Errorf("%s: PageTarget = %d, want in [1,3]", tgt.CitySlug, tgt.PageTarget)
		}
	}
}

func TestBuildTargetsURLShapes(t *testing.T) {
	cities := []City{{State: "TX", Name: "Austin", Slug: "austin-tx", Population: 978908}}
	targets := BuildTargets(cities, []string{"plumbers"})
	tgt := targets[0]

	if tgt.PrimaryURL != "https://www.yellowpages.com/austin-tx/plumbers" {
		t.Errorf("PrimaryURL = %q", tgt.PrimaryURL)
	}
	if !strings.Contains(tgt.FallbackURL, "search_terms=plumbers") || !strings.Contains(tgt.FallbackURL, "geo_location_terms=Austin,+TX") {
		t.Errorf("FallbackURL = %q", tgt.FallbackURL)
	}
}

func TestBuildTargetsDefaultsToBuiltInRegistry(t *testing.T) {
	targets := BuildTargets(nil, nil)
	if len(targets) != len(Registry)*len(Categories) {
		t.Errorf("got %d targets, want %d", len(targets), len(Registry)*len(Categories))
	}
}
