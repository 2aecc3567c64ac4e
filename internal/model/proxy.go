package model

import "time"

// ProxyEntry is one outbound identity in the proxy pool.
type ProxyEntry struct {
	Endpoint            string
	Kind                string
	ConsecutiveFailures int
	FailureWindow       []time.Time
	BlacklistedUntil    time.Time
}

// Eligible reports whether the proxy may be handed out by acquire():
// true iff now >= BlacklistedUntil.
func (p ProxyEntry) Eligible(now time.Time) bool {
	return !now.Before(p.BlacklistedUntil)
}
