package canon

import (
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// IsHTTPScheme returns true if the URL has an http or https scheme.
// Returns false for empty strings, non-HTTP schemes, or unparseable URLs.
func IsHTTPScheme(rawURL string) bool {
	if rawURL == "" {
		return false
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}

	scheme := strings.ToLower(parsed.Scheme)
	return scheme == "http" || scheme == "https"
}

// ExtractDomain returns the registrable domain (eTLD+1) of u, e.g.
// "https://blog.example.co.uk/x" -> "example.co.uk". Returns an empty
// string if u has no parseable host.
func ExtractDomain(u string) string {
	parsed, err := url.Parse(u)
	if err != nil {
		return ""
	}
	host := parsed.Hostname()
	if host == "" {
		// Caller may have passed a bare host, not a full URL.
		host = u
	}
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	if host == "" {
		return ""
	}

	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		// publicsuffix fails on single-label hosts ("localhost") or IPs;
		// fall back to the host itself rather than erroring.
		return host
	}
	return domain
}

// denyDomains lists directory/social/map/review-aggregator domains that
// are never plausible "website" values for a listing. This is
// the fixed structural deny list that always applies, independent of the
// operator-supplied deny_domains_path config consumed by internal/filter.
var denyDomains = map[string]bool{
	"yellowpages.com":  true,
	"facebook.com":     true,
	"instagram.com":    true,
	"twitter.com":      true,
	"x.com":            true,
	"linkedin.com":     true,
	"yelp.com":         true,
	"google.com":       true,
	"maps.google.com":  true,
	"goo.gl":           true,
	"foursquare.com":   true,
	"tripadvisor.com":  true,
	"bbb.org":          true,
	"mapquest.com":     true,
	"angieslist.com":   true,
	"nextdoor.com":     true,
	"pinterest.com":    true,
	"youtube.com":      true,
	"tiktok.com":       true,
}

// IsPlausibleWebsite reports whether u could be a business's own website:
// it must be http(s) and its registrable domain must not be on the
// structural deny list above.
func IsPlausibleWebsite(u string) bool {
	if !IsHTTPScheme(u) {
		return false
	}
	domain := ExtractDomain(u)
	if domain == "" {
		return false
	}
	return !denyDomains[domain]
}
