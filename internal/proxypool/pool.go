// Package proxypool implements the proxy pool (component C8):
// a set of outbound identities with health scores, supplied and
// blacklisted by the fetcher as it observes proxy-level failures.
package proxypool

import (
	"math/rand"
	"sync"
	"time"
)

// Policy selects which eligible entry acquire() hands out.
type Policy string

const (
	PolicyRoundRobin    Policy = "round_robin"
	PolicyLeastUsed     Policy = "least_used"
	PolicyRandom        Policy = "random"
	PolicyStickySession Policy = "sticky_session"
)

const (
	blacklistThreshold = 10
	blacklistDuration  = 60 * time.Minute
)

// entry is one proxy's mutable state, guarded by Pool.mu.
type entry struct {
	endpoint            string
	kind                string
	consecutiveFailures int
	failureWindow       []time.Time
	blacklistedUntil    time.Time
	useCount            uint64
	lastFailureReason   string
}

func (e *entry) eligible(now time.Time) bool {
	return now.After(e.blacklistedUntil) || now.Equal(e.blacklistedUntil)
}

// Stats is a snapshot returned by Pool.Stats.
type Stats struct {
	Total              int
	Eligible           int
	Blacklisted        int
	LastFailureReasons map[string]string
}

// Pool maintains proxy entries and implements acquire/report_success/
// report_failure/stats. It is safe for concurrent use by multiple
// workers sharing one pool instance.
type Pool struct {
	mu      sync.Mutex
	entries []*entry
	byID    map[string]*entry
	policy  Policy
	rng     *rand.Rand
	rrNext  int
	sticky  map[string]string // session key -> endpoint, for PolicyStickySession
}

// New builds a pool from a list of "scheme://host:port" endpoints. An
// empty list is valid: acquire() then always returns the direct sentinel.
func New(endpoints []string, kind string, policy Policy) *Pool {
	p := &Pool{
		byID:   make(map[string]*entry, len(endpoints)),
		policy: policy,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		sticky: make(map[string]string),
	}
	for _, ep := range endpoints {
		e := &entry{endpoint: ep, kind: kind}
		p.entries = append(p.entries, e)
		p.byID[ep] = e
	}
	return p
}

// DirectSentinel is returned by Acquire when the pool has no eligible
// entry; the caller proceeds without a proxy.
const DirectSentinel = ""

// Acquire returns an eligible proxy endpoint chosen per the pool's
// policy, or (DirectSentinel, true) if none is eligible.
func (p *Pool) Acquire() (id string, direct bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	var eligible []*entry
	for _, e := range p.entries {
		if e.eligible(now) {
			eligible = append(eligible, e)
		}
	}
	if len(eligible) == 0 {
		return DirectSentinel, true
	}

	var chosen *entry
	switch p.policy {
	case PolicyLeastUsed:
		chosen = eligible[0]
		for _, e := range eligible[1:] {
			if e.useCount < chosen.useCount {
				chosen = e
			}
		}
	case PolicyRandom:
		chosen = eligible[p.rng.Intn(len(eligible))]
	case PolicyStickySession:
		const sessionKey = "default"
		if ep, ok := p.sticky[sessionKey]; ok {
			if e, ok := p.byID[ep]; ok && e.eligible(now) {
				chosen = e
				break
			}
		}
		chosen = eligible[p.rrNext%len(eligible)]
		p.rrNext++
		p.sticky[sessionKey] = chosen.endpoint
	default: // PolicyRoundRobin
		chosen = eligible[p.rrNext%len(eligible)]
		p.rrNext++
	}

	chosen.useCount++
	return chosen.endpoint, false
}

// ReportSuccess resets an entry's consecutive-failure counter.
func (p *Pool) ReportSuccess(id string) {
	if id == DirectSentinel {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if e, ok := p.byID[id]; ok {
		e.consecutiveFailures = 0
	}
}

// ReportFailure records a failure of the given kind ("transient",
// "captcha", "blocked") and blacklists the entry for 60 minutes once
// consecutive_failures reaches 10.
func (p *Pool) ReportFailure(id string, kind string) {
	if id == DirectSentinel {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.byID[id]
	if !ok {
		return
	}
	now := time.Now()
	e.consecutiveFailures++
	e.failureWindow = append(e.failureWindow, now)
	e.lastFailureReason = kind
	if e.consecutiveFailures >= blacklistThreshold {
		e.blacklistedUntil = now.Add(blacklistDuration)
	}
}

// Stats returns a point-in-time snapshot of the pool.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	s := Stats{Total: len(p.entries), LastFailureReasons: make(map[string]string)}
	for _, e := range p.entries {
		if e.eligible(now) {
			s.Eligible++
		} else {
			s.Blacklisted++
		}
		if e.lastFailureReason != "" {
			s.LastFailureReasons[e.endpoint] = e.lastFailureReason
		}
	}
	return s
}
