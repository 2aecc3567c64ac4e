package parser

import (
	"fmt"
	"io"
	"net/url"

	"golang.org/x/net/html"

	"github.com/coldtrail/ypcrawl/internal/canon"
	"github.com/coldtrail/ypcrawl/internal/model"
)

// ExtractLinks walks the HTML token stream and collects every anchor href,
// resolved against baseURL, canonicalized with canon.CanonicalizeURL, and
// deduplicated in first-seen order. The crawl's fallback when the goquery
// card selectors in parser.go match nothing is ExtractFallbackListings,
// not this function.
func ExtractLinks(body io.Reader, baseURL *url.URL) ([]string, error) {
	tokenizer := html.NewTokenizer(body)
	seen := make(map[string]bool)
	var links []string
	var errs []error

	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			if len(errs) > 0 {
				return links, fmt.Errorf("encountered %d parse errors (first: %w)", len(errs), errs[0])
			}
			return links, nil
		case html.StartTagToken, html.SelfClosingTagToken:
			token := tokenizer.Token()
			if token.Data != "a" {
				continue
			}
			for _, attr := range token.Attr {
				if attr.Key != "href" {
					continue
				}
				href := attr.Val
				if href == "" {
					href = baseURL.String()
				}
				hrefURL, err := url.Parse(href)
				if err != nil {
					errs = append(errs, fmt.Errorf("parse href %q: %w", href, err))
					continue
				}
				resolved := baseURL.ResolveReference(hrefURL).String()

				if !canon.IsHTTPScheme(resolved) {
					continue
				}
				normalized, err := canon.CanonicalizeURL(resolved)
				if err != nil {
					errs = append(errs, fmt.Errorf("canonicalize URL %q: %w", resolved, err))
					continue
				}
				if !seen[normalized] {
					seen[normalized] = true
					links = append(links, normalized)
				}
			}
		}
	}
}

// anchorText collects the text content following a start tag until its
// matching end tag, for use as a fallback business name.
func anchorText(tokenizer *html.Tokenizer) string {
	depth := 1
	var text string
	for depth > 0 {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			return text
		case html.TextToken:
			if text == "" {
				text = string(tokenizer.Text())
			}
		case html.StartTagToken:
			if tokenizer.Token().Data == "a" {
				depth++
			}
		case html.EndTagToken:
			if tokenizer.Token().Data == "a" {
				depth--
			}
		}
	}
	return text
}

// ExtractFallbackListings builds minimal, null-heavy Listings from raw
// anchors when the card-level selector strategies in parser.go find
// nothing. Only name, profile_url and source_page_url are ever populated;
// every other field is left absent for the filter to reject.
func ExtractFallbackListings(body io.Reader, baseURL *url.URL) []model.Listing {
	tokenizer := html.NewTokenizer(body)
	var listings []model.Listing
	seen := make(map[string]bool)

	for {
		tt := tokenizer.Next()
		if tt == html.ErrorToken {
			return listings
		}
		if tt != html.StartTagToken {
			continue
		}
		token := tokenizer.Token()
		if token.Data != "a" {
			continue
		}
		var href string
		for _, attr := range token.Attr {
			if attr.Key == "href" {
				href = attr.Val
			}
		}
		if href == "" {
			continue
		}
		hrefURL, err := url.Parse(href)
		if err != nil {
			continue
		}
		resolved := baseURL.ResolveReference(hrefURL).String()
		if !canon.IsHTTPScheme(resolved) {
			continue
		}
		name := canon.CleanName(anchorText(tokenizer))
		if name == "" || seen[resolved] {
			continue
		}
		seen[resolved] = true
		listings = append(listings, model.Listing{
			Name:          name,
			ProfileURL:    resolved,
			SourcePageURL: baseURL.String(),
		})
	}
}
