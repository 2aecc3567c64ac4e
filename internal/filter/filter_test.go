package filter

import (
	"strings"
	"testing"

	"github.com/coldtrail/ypcrawl/internal/model"
)

func testConfig() Config {
	return Config{
		Allowlist: map[string]struct{}{
			"plumbers":             {},
			"equipment & services": {},
		},
		Blocklist: map[string]struct{}{
			"adult entertainment": {},
		},
		AntiKeywords:     []string{"closed", "scam"},
		PositiveHints:    []string{"licensed", "24/7"},
		DenyDomains:      map[string]struct{}{"yellowpages.com": {}},
		MinScore:         50,
		IncludeSponsored: false,
		EquipmentTag:     EquipmentOnlyTag,
	}
}

func rating(v float64) *float64 { return &v }
func reviews(v int) *int        { return &v }

func TestDecideRejectsNoCategory(t *testing.T) {
	l := model.Listing{Name: "Joe's Plumbing"}
	got := Decide(l, testConfig())
	if got.Accepted || got.Reason != ReasonNoCategory {
		t.Fatalf("got %+v, want rejection with reason %q", got, ReasonNoCategory)
	}
}

func TestDecideRejectsBlockedCategory(t *testing.T) {
	l := model.Listing{Name: "Joe's Place", CategoryTags: []string{"Adult Entertainment"}}
	got := Decide(l, testConfig())
	if got.Accepted || !strings.HasPrefix(got.Reason, ReasonBlockedCategory) {
		t.Fatalf("got %+v, want rejection with reason prefix %q", got, ReasonBlockedCategory)
	}
}

func TestDecideRejectsMismatchCategory(t *testing.T) {
	l := model.Listing{Name: "Joe's Place", CategoryTags: []string{"Antiques"}}
	got := Decide(l, testConfig())
	if got.Accepted || got.Reason != ReasonMismatchCategory {
		t.Fatalf("got %+v, want rejection with reason %q", got, ReasonMismatchCategory)
	}
}

func TestDecideRejectsAntiKeywordInName(t *testing.T) {
	l := model.Listing{Name: "Scam Plumbing LLC", CategoryTags: []string{"Plumbers"}}
	got := Decide(l, testConfig())
	if got.Accepted || !strings.HasPrefix(got.Reason, ReasonAntiKeyword) {
		t.Fatalf("got %+v, want rejection with reason prefix %q", got, ReasonAntiKeyword)
	}
}

func TestDecideRejectsEquipmentOnlyWithoutHint(t *testing.T) {
	l := model.Listing{
		Name:         "Acme Supply",
		CategoryTags: []string{"Equipment & Services"},
		Description:  "We sell pipe fittings.",
		Website:      "https://acmesupply.example.com",
	}
	got := Decide(l, testConfig())
	if got.Accepted || got.Reason != ReasonEquipmentOnly {
		t.Fatalf("got %+v, want rejection with reason %q", got, ReasonEquipmentOnly)
	}
}

func TestDecideAcceptsEquipmentOnlyWithHint(t *testing.T) {
	l := model.Listing{
		Name:         "Acme Supply",
		CategoryTags: []string{"Equipment & Services"},
		Description:  "Licensed supplier of pipe fittings.",
		Website:      "https://acmesupply.example.com",
	}
	got := Decide(l, testConfig())
	if !got.Accepted {
		t.Fatalf("got %+v, want acceptance", got)
	}
}

func TestDecideRejectsNoWebsite(t *testing.T) {
	l := model.Listing{Name: "Joe's Plumbing", CategoryTags: []string{"Plumbers"}}
	got := Decide(l, testConfig())
	if got.Accepted || got.Reason != ReasonNoWebsite {
		t.Fatalf("got %+v, want rejection with reason %q", got, ReasonNoWebsite)
	}
}

func TestDecideRejectsEcommerceURL(t *testing.T) {
	l := model.Listing{
		Name:         "Joe's Plumbing",
		CategoryTags: []string{"Plumbers"},
		Website:      "https://www.yellowpages.com/joes-plumbing",
	}
	got := Decide(l, testConfig())
	if got.Accepted || got.Reason != ReasonEcommerceURL {
		t.Fatalf("got %+v, want rejection with reason %q", got, ReasonEcommerceURL)
	}
}

func TestDecideRejectsSponsoredWhenExcluded(t *testing.T) {
	l := model.Listing{
		Name:         "Joe's Plumbing",
		CategoryTags: []string{"Plumbers"},
		Website:      "https://joesplumbing.example.com",
		IsSponsored:  true,
	}
	got := Decide(l, testConfig())
	if got.Accepted || got.Reason != ReasonSponsored {
		t.Fatalf("got %+v, want rejection with reason %q", got, ReasonSponsored)
	}
}

func TestDecideRejectsBelowMinScore(t *testing.T) {
	l := model.Listing{
		Name:         "Joe's Plumbing",
		CategoryTags: []string{"Plumbers"},
		Website:      "https://joesplumbing.example.com",
		Description:  "scam scam scam closed closed closed",
	}
	got := Decide(l, testConfig())
	if got.Accepted {
		t.Fatalf("got %+v, want rejection", got)
	}
	if !strings.HasPrefix(got.Reason, ReasonLowScore) {
		t.Fatalf("got reason %q, want prefix %q", got.Reason, ReasonLowScore)
	}
}

func TestDecideAcceptsStrongListing(t *testing.T) {
	l := model.Listing{
		Name:         "Joe's Plumbing",
		CategoryTags: []string{"Plumbers"},
		Description:  "Licensed and insured, open 24/7 for emergencies.",
		Website:      "https://joesplumbing.example.com",
		Rating:       rating(4.8),
		Reviews:      reviews(120),
	}
	got := Decide(l, testConfig())
	if !got.Accepted {
		t.Fatalf("got %+v, want acceptance", got)
	}
	if got.Score <= baseScore {
		t.Errorf("score %d did not reflect positive signals", got.Score)
	}
}

func TestDecideWebsiteBonusAppliesOnlyToNonDenyDomain(t *testing.T) {
	cfg := testConfig()
	withWebsite := model.Listing{
		Name:         "Joe's Plumbing",
		CategoryTags: []string{"Plumbers"},
		Website:      "https://joesplumbing.example.com",
	}
	got := Decide(withWebsite, cfg)
	if !got.Accepted {
		t.Fatalf("got %+v, want acceptance", got)
	}
	if got.Score != baseScore+allowedTagBonusEach+websiteBonus {
		t.Errorf("score = %d, want %d", got.Score, baseScore+allowedTagBonusEach+websiteBonus)
	}
}

func TestCountOccurrencesWholeWord(t *testing.T) {
	n := countOccurrences("This shop is now closed.", []string{"closed"})
	if n != 1 {
		t.Errorf("got %d, want 1", n)
	}
	n = countOccurrences("enclosed porch available", []string{"closed"})
	if n != 0 {
		t.Errorf("substring match inside another word should not count, got %d", n)
	}
}
