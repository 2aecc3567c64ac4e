// Package canon provides the pure, I/O-free canonicalization helpers used
// to dedupe listings: URL canonicalization, domain extraction, phone
// normalization, and name cleaning (component C1).
package canon

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"golang.org/x/net/idna"
)

// trackingParams are stripped from the query string during canonicalization.
// This list is data, not an exhaustive standard; it only covers the common
// analytics params that would otherwise defeat website-based deduplication.
var trackingParams = map[string]bool{
	"utm_source": true, "utm_medium": true, "utm_campaign": true,
	"utm_term": true, "utm_content": true, "utm_id": true,
	"gclid": true, "fbclid": true, "msclkid": true, "ref": true,
	"mc_cid": true, "mc_eid": true,
}

// CanonicalizeURL normalizes u into the canonical form used as the website
// dedup key: https scheme, lowercased+punycoded host, fragment removed,
// tracking query params stripped, deterministic trailing-slash handling.
// CanonicalizeURL is idempotent: CanonicalizeURL(CanonicalizeURL(u)) == CanonicalizeURL(u).
func CanonicalizeURL(rawURL string) (string, error) {
	if strings.TrimSpace(rawURL) == "" {
		return "", errors.New("canonicalize: empty URL")
	}

	candidate := rawURL
	if !strings.Contains(candidate, "://") {
		candidate = "https://" + candidate
	}

	parsed, err := url.Parse(candidate)
	if err != nil {
		return "", fmt.Errorf("canonicalize URL %q: %w", rawURL, err)
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("canonicalize URL %q: missing host", rawURL)
	}

	// Force https regardless of the original scheme; directory listings
	// frequently advertise bare "http://" sites that also serve https.
	parsed.Scheme = "https"

	host, err := punycodeHost(parsed.Hostname())
	if err != nil {
		return "", fmt.Errorf("canonicalize URL %q: %w", rawURL, err)
	}
	if port := parsed.Port(); port != "" {
		parsed.Host = host + ":" + port
	} else {
		parsed.Host = host
	}

	parsed.Fragment = ""
	parsed.RawFragment = ""

	if parsed.RawQuery != "" {
		parsed.RawQuery = stripTrackingParams(parsed.RawQuery)
	}

	if parsed.Path == "" {
		parsed.Path = "/"
	} else if parsed.Path != "/" && strings.HasSuffix(parsed.Path, "/") {
		parsed.Path = strings.TrimSuffix(parsed.Path, "/")
		if parsed.Path == "" {
			parsed.Path = "/"
		}
	}

	return parsed.String(), nil
}

// punycodeHost lowercases and IDN-punycodes a hostname. Hostnames that are
// already ASCII pass through unchanged apart from lowercasing.
func punycodeHost(host string) (string, error) {
	host = strings.ToLower(host)
	ascii, err := idna.Lookup.ToASCII(host)
	if err != nil {
		// Not a valid IDN label (e.g. contains an underscore); fall back to
		// the lowercased original rather than failing canonicalization.
		return host, nil
	}
	return ascii, nil
}

// stripTrackingParams removes known tracking parameters from a raw query
// string and re-encodes the remaining parameters sorted by key; repeated
// values of one key keep their original order.
func stripTrackingParams(rawQuery string) string {
	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		return rawQuery
	}
	for key := range values {
		if trackingParams[strings.ToLower(key)] {
			delete(values, key)
		}
	}
	if len(values) == 0 {
		return ""
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		for j, v := range values[k] {
			if i > 0 || j > 0 {
				b.WriteByte('&')
			}
			b.WriteString(url.QueryEscape(k))
			b.WriteByte('=')
			b.WriteString(url.QueryEscape(v))
		}
	}
	return b.String()
}
