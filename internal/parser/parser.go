// Package parser turns one directory search-results page into an ordered
// sequence of Listings (component C2). ParsePage tries a
// goquery card selector first; ExtractFallbackListings sweeps raw anchors with
// the x/net/html tokenizer when the card selectors match nothing.
package parser

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/coldtrail/ypcrawl/internal/canon"
	"github.com/coldtrail/ypcrawl/internal/model"
)

// cardSelectors are tried in order; the first one that matches any element
// on the page is used for every card on that page. The site's markup
// shifts over time without notice, so no single selector is
// trusted to be stable.
var cardSelectors = []string{
	"div.result", "div.search-results .srp-listing", "div[class*='listing-card']",
}

// fieldSelectorSet holds, per field, the selector strategies tried in
// priority order against one card. The first selector that yields
// non-empty text wins.
type fieldSelectorSet struct {
	name        []string
	phone       []string
	address     []string
	website     []string
	profileLink []string
	categories  []string
	rating      []string
	reviews     []string
	hours       []string
	description []string
	services    []string
}

var fields = fieldSelectorSet{
	name:        []string{"a.business-name span", "a.business-name", "h2.n a", "h3 a"},
	phone:       []string{"div.phones", "a.phone", "span.phone", "[class*='phone']"},
	address:     []string{"div.street-address", "p.adr", "span.street-address"},
	website:     []string{"a.website", "a[class*='website']", "a[href*='http'][rel='nofollow'][target='_blank']"},
	profileLink: []string{"a.business-name", "h2.n a", "h3 a"},
	categories:  []string{"div.categories a", "div.categories", "span.category"},
	rating:      []string{"div.ratings div[class*='star']", "span.rating", "[class*='rating']"},
	reviews:     []string{"span.count", "a.count", "[class*='review-count']"},
	hours:       []string{"div.hours", "span.hours", "[class*='open-hours']"},
	description: []string{"p.snippet-text", "div.description", "p.desc"},
	services:    []string{"div.services li", "ul.services li"},
}

// ParsePage extracts listings from a directory search-results page using
// goquery card selectors. It never returns an error: a page it cannot make
// sense of yields a nil slice, and the caller falls back to
// ExtractFallbackListings.
func ParsePage(htmlBody string, sourcePageURL *url.URL, includeSponsored bool) []model.Listing {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlBody))
	if err != nil {
		return nil
	}

	var cards *goquery.Selection
	for _, sel := range cardSelectors {
		found := doc.Find(sel)
		if found.Length() > 0 {
			cards = found
			break
		}
	}
	if cards == nil {
		return nil
	}

	var listings []model.Listing
	seenWebsites := make(map[string]bool)

	cards.Each(func(_ int, card *goquery.Selection) {
		l := parseCard(card, sourcePageURL)
		if l.Website != "" {
			canonical, err := canon.CanonicalizeURL(l.Website)
			if err == nil {
				if seenWebsites[canonical] {
					return
				}
				seenWebsites[canonical] = true
				l.Website = canonical
			}
		}
		listings = append(listings, l)
	})

	return listings
}

// parseCard is total over a single card: every field extraction is
// independent, so a missing or malformed field never prevents the rest
// from being collected.
func parseCard(card *goquery.Selection, sourcePageURL *url.URL) model.Listing {
	l := model.Listing{SourcePageURL: sourcePageURL.String()}

	l.Name = canon.CleanName(firstNonEmptyText(card, fields.name))
	l.CategoryTags = extractTags(card, fields.categories)
	l.BusinessHours = firstNonEmptyText(card, fields.hours)
	l.Description = firstNonEmptyText(card, fields.description)
	l.Services = extractTags(card, fields.services)
	l.IsSponsored = detectSponsored(card)

	if phone, err := canon.NormalizePhone(firstNonEmptyText(card, fields.phone)); err == nil {
		l.Phone = phone
	}

	l.Address = firstNonEmptyText(card, fields.address)

	if href := firstHref(card, fields.website); href != "" {
		if resolved, err := url.Parse(href); err == nil {
			absolute := sourcePageURL.ResolveReference(resolved).String()
			if canon.IsPlausibleWebsite(absolute) {
				l.Website = absolute
			}
		}
	}

	if href := firstHref(card, fields.profileLink); href != "" {
		if resolved, err := url.Parse(href); err == nil {
			l.ProfileURL = sourcePageURL.ResolveReference(resolved).String()
		}
	}

	l.Rating = extractRating(card)
	l.Reviews = extractReviews(card)

	return l
}

// firstNonEmptyText runs each selector in order against card and returns
// the trimmed text of the first one that matches a non-blank result.
func firstNonEmptyText(card *goquery.Selection, selectors []string) string {
	for _, sel := range selectors {
		text := strings.TrimSpace(card.Find(sel).First().Text())
		if text != "" {
			return text
		}
	}
	return ""
}

// firstHref is like firstNonEmptyText but for an href attribute.
func firstHref(card *goquery.Selection, selectors []string) string {
	for _, sel := range selectors {
		if href, ok := card.Find(sel).First().Attr("href"); ok && href != "" {
			return href
		}
	}
	return ""
}

// extractTags collects the text of every element matched by the first
// selector in the list that matches anything, in document order.
func extractTags(card *goquery.Selection, selectors []string) []string {
	for _, sel := range selectors {
		found := card.Find(sel)
		if found.Length() == 0 {
			continue
		}
		var tags []string
		found.Each(func(_ int, s *goquery.Selection) {
			for _, tag := range strings.Split(s.Text(), ",") {
				tag = strings.TrimSpace(tag)
				if tag != "" {
					tags = append(tags, tag)
				}
			}
		})
		if len(tags) > 0 {
			return tags
		}
	}
	return nil
}

func detectSponsored(card *goquery.Selection) bool {
	if card.HasClass("sponsored") {
		return true
	}
	marker := strings.ToLower(card.Find("[class*='sponsored']").First().Text())
	return strings.Contains(marker, "sponsored") || strings.Contains(marker, "ad")
}

func extractRating(card *goquery.Selection) *float64 {
	text := firstNonEmptyText(card, fields.rating)
	if text == "" {
		return nil
	}
	digits := strings.TrimFunc(text, func(r rune) bool {
		return !(r >= '0' && r <= '9' || r == '.')
	})
	if digits == "" {
		return nil
	}
	v, err := strconv.ParseFloat(digits, 64)
	if err != nil {
		return nil
	}
	return &v
}

func extractReviews(card *goquery.Selection) *int {
	text := firstNonEmptyText(card, fields.reviews)
	if text == "" {
		return nil
	}
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, text)
	if digits == "" {
		return nil
	}
	v, err := strconv.Atoi(digits)
	if err != nil {
		return nil
	}
	return &v
}
