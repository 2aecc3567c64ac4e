package health

import "strings"

// captchaSentinels are substrings whose presence in a response body
// indicates a CAPTCHA challenge rather than the requested page.
var captchaSentinels = []string{
	"g-recaptcha",
	"recaptcha/api.js",
	"hcaptcha.com",
	"h-captcha",
	"cf-challenge",
	"checking your browser before accessing",
	"verify you are human",
	"unusual traffic from your computer",
}

// blockedBodyMarkers are substrings indicating the request was rejected by
// an anti-bot layer even though the transport itself succeeded.
var blockedBodyMarkers = []string{
	"access denied",
	"you are blocked",
	"rate limit exceeded",
}

// blockedStatuses are HTTP status codes treated as a block regardless of
// body content.
var blockedStatuses = map[int]bool{
	403: true,
	429: true,
	503: true,
	504: true,
}

// IsCaptcha reports whether html matches a known CAPTCHA sentinel.
func IsCaptcha(html string) bool {
	lower := strings.ToLower(html)
	for _, s := range captchaSentinels {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

// IsBlocked reports whether status or html indicates an anti-bot block.
func IsBlocked(status int, html string) bool {
	if blockedStatuses[status] {
		return true
	}
	lower := strings.ToLower(html)
	for _, marker := range blockedBodyMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
