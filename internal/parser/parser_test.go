package parser

import (
	"net/url"
	"testing"
)

const sampleResultsPage = `
<html><body>
<div class="search-results">
<div class="result">
  <h2 class="n"><a class="business-name" href="/biz/joes-plumbing-austin">
    <span itemprop="name">Joe's Plumbing</span></a></h2>
  <div class="categories"><a>Plumbers</a>, <a>Water Heater Repair</a></div>
  <div class="phones phone primary-phone">(512) 555-0101</div>
  <div class="street-address">123 Main St</div>
  <p class="snippet-text">Licensed and insured, open 24/7 for emergencies.</p>
  <div class="ratings"><span class="rating">4.5</span></div>
  <span class="count">(120)</span>
  <a class="website" href="https://joesplumbing.example.com">Website</a>
</div>
<div class="result sponsored">
  <h2 class="n"><a class="business-name" href="/biz/acme-ads">Acme Sponsored Co</a></h2>
  <div class="categories"><a>Plumbers</a></div>
  <div class="sponsored-tag">Sponsored</div>
</div>
<div class="result">
  <h2 class="n"><a class="business-name" href="/biz/broken-card">Broken Card Co</a></h2>
</div>
</div>
</body></html>
`

func TestParsePageExtractsCards(t *testing.T) {
	base, _ := url.Parse("https://www.yellowpages.com/austin-tx/plumbers")
	listings := ParsePage(sampleResultsPage, base, true)

	if len(listings) != 3 {
		t.Fatalf("got %d listings, want 3: %+v", len(listings), listings)
	}

	first := listings[0]
	if first.Name != "Joe's Plumbing" {
		t.Errorf("Name = %q", first.Name)
	}
	if first.Phone != "+1-512-555-0101" {
		t.Errorf("Phone = %q, want normalized form", first.Phone)
	}
	if len(first.CategoryTags) != 2 || first.CategoryTags[0] != "Plumbers" {
		t.Errorf("CategoryTags = %v", first.CategoryTags)
	}
	if first.Website != "https://joesplumbing.example.com/" {
		t.Errorf("Website = %q", first.Website)
	}
	if first.Rating == nil {
		t.Error("Rating should be populated")
	}
	if first.Reviews == nil || *first.Reviews != 120 {
		t.Errorf("Reviews = %v, want 120", first.Reviews)
	}
	if first.SourcePageURL != base.String() {
		t.Errorf("SourcePageURL = %q", first.SourcePageURL)
	}

	second := listings[1]
	if !second.IsSponsored {
		t.Error("second card should be tagged sponsored")
	}

	third := listings[2]
	if third.Name != "Broken Card Co" {
		t.Errorf("Name = %q", third.Name)
	}
	if third.Phone != "" || third.Website != "" || third.Rating != nil {
		t.Errorf("malformed card should yield null fields, got %+v", third)
	}
}

func TestParsePageDedupesByCanonicalWebsite(t *testing.T) {
	base, _ := url.Parse("https://www.yellowpages.com/austin-tx/plumbers")
	html := `
	<div class="result">
	  <h2 class="n"><a class="business-name" href="/biz/a">First Listing</a></h2>
	  <div class="categories"><a>Plumbers</a></div>
	  <a class="website" href="https://Example.com/page#frag">Website</a>
	</div>
	<div class="result">
	  <h2 class="n"><a class="business-name" href="/biz/b">Duplicate Listing</a></h2>
	  <div class="categories"><a>Plumbers</a></div>
	  <a class="website" href="https://example.com/page">Website</a>
	</div>
	`
	listings := ParsePage(html, base, true)
	if len(listings) != 1 {
		t.Fatalf("got %d listings, want 1 after dedup: %+v", len(listings), listings)
	}
	if listings[0].Name != "First Listing" {
		t.Errorf("expected first occurrence kept, got %q", listings[0].Name)
	}
}

func TestParsePageReturnsNilWhenNoCardsMatch(t *testing.T) {
	base, _ := url.Parse("https://www.yellowpages.com/austin-tx/plumbers")
	listings := ParsePage(`<html><body><p>no cards here</p></body></html>`, base, true)
	if listings != nil {
		t.Errorf("got %+v, want nil so the caller falls back", listings)
	}
}

func TestParsePageMalformedHTMLNeverPanics(t *testing.T) {
	base, _ := url.Parse("https://www.yellowpages.com/austin-tx/plumbers")
	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("ParsePage panicked: %v", r)
		}
	}()
	ParsePage(`<div class="result"><h2 class="n"><a class="business-name" href="/x">`, base, true)
}
