// Package health implements the per-worker health monitor: rolling
// outcome counters, CAPTCHA/block classification, and the adaptive
// request delay derived from them.
package health

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ring buffer length K.
const ringSize = 100

const (
	baseDelay = 5 * time.Second
	minDelay  = 2 * time.Second
	maxDelay  = 30 * time.Second

	errorThreshold   = 0.20
	captchaThreshold = 0.05

	multiplierUp   = 1.5
	multiplierDown = 0.75
)

// Level is the monitor's advisory health classification.
type Level int

const (
	LevelHealthy Level = iota
	LevelDegraded
	LevelUnhealthy
	LevelCritical
)

func (l Level) String() string {
	switch l {
	case LevelHealthy:
		return "healthy"
	case LevelDegraded:
		return "degraded"
	case LevelUnhealthy:
		return "unhealthy"
	case LevelCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// Assessment is a point-in-time read of the monitor's state.
type Assessment struct {
	Level            Level
	SuggestedActions []string
}

// Counters holds the cumulative, monotonic request/result counters.
type Counters struct {
	Requests        uint64
	Successes       uint64
	Failures        uint64
	Blocks          uint64
	Captchas        uint64
	ResultsFound    uint64
	ResultsAccepted uint64
	ResultsFiltered uint64
}

// ring is a fixed-capacity boolean ring buffer used to compute recent
// rates over the last ringSize outcomes without unbounded memory growth.
type ring struct {
	buf  [ringSize]bool
	n    int
	next int
}

func (r *ring) push(v bool) {
	r.buf[r.next] = v
	r.next = (r.next + 1) % ringSize
	if r.n < ringSize {
		r.n++
	}
}

func (r *ring) rate() float64 {
	if r.n == 0 {
		return 0
	}
	count := 0
	for i := 0; i < r.n; i++ {
		if r.buf[i] {
			count++
		}
	}
	return float64(count) / float64(r.n)
}

// Monitor is the per-worker health monitor: rolling outcome counters,
// CAPTCHA/block classification, and the adaptive request delay derived
// from them. It is safe for concurrent use; a worker owns exactly one
// instance.
type Monitor struct {
	mu sync.Mutex

	failures  ring
	captchas  ring
	successes ring

	counters Counters

	currentDelay         time.Duration
	consecutiveNoSuccess uint64

	pacer *rate.Limiter
}

// NewMonitor creates a monitor with the adaptive delay initialized to
// base_delay.
func NewMonitor() *Monitor {
	m := &Monitor{currentDelay: baseDelay}
	m.pacer = rate.NewLimiter(rate.Every(baseDelay), 1)
	return m
}

// Wait blocks until the monitor's current pacer admits the next request.
// Callers add their own jitter on top; Wait only enforces the adaptive
// floor.
func (m *Monitor) Wait(ctx context.Context) error {
	return m.pacer.Wait(ctx)
}

// RecordOutcome folds one request's outcome into the rolling counters and
// recomputes the adaptive delay.
func (m *Monitor) RecordOutcome(success, captcha, blocked bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.counters.Requests++
	failure := !success
	if success {
		m.counters.Successes++
		m.consecutiveNoSuccess = 0
	} else {
		m.counters.Failures++
		m.consecutiveNoSuccess++
	}
	if blocked {
		m.counters.Blocks++
	}
	if captcha {
		m.counters.Captchas++
	}

	m.failures.push(failure)
	m.captchas.push(captcha)
	m.successes.push(success)

	m.recomputeDelayLocked()
}

// RecordPage folds a page's parse/filter yield into the cumulative
// counters.
func (m *Monitor) RecordPage(found, accepted int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters.ResultsFound += uint64(found)
	m.counters.ResultsAccepted += uint64(accepted)
	if found > accepted {
		m.counters.ResultsFiltered += uint64(found - accepted)
	}
}

// recomputeDelayLocked applies the multiplicative adjustment rules.
// Must be called with mu held.
func (m *Monitor) recomputeDelayLocked() {
	errRate := m.failures.rate()
	captchaRate := m.captchas.rate()
	successRate := m.successes.rate()

	switch {
	case errRate > errorThreshold || captchaRate > captchaThreshold:
		m.currentDelay = scaleDelay(m.currentDelay, multiplierUp, maxDelay, true)
	case successRate > 0.95 && captchaRate < 0.01 && m.currentDelay > baseDelay:
		m.currentDelay = scaleDelay(m.currentDelay, multiplierDown, minDelay, false)
	}

	m.pacer.SetLimit(rate.Every(m.currentDelay))
}

func scaleDelay(current time.Duration, multiplier float64, bound time.Duration, up bool) time.Duration {
	scaled := time.Duration(float64(current) * multiplier)
	if up {
		if scaled > bound {
			return bound
		}
		return scaled
	}
	if scaled < bound {
		return bound
	}
	return scaled
}

// CurrentDelay returns the monitor's current adaptive delay.
func (m *Monitor) CurrentDelay() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentDelay
}

// Counters returns a snapshot of the cumulative counters.
func (m *Monitor) Counters() Counters {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters
}

// Assess computes the advisory health level and its suggested actions.
func (m *Monitor) Assess() Assessment {
	m.mu.Lock()
	defer m.mu.Unlock()

	var issues []string
	errRate := m.failures.rate()
	captchaRate := m.captchas.rate()

	if errRate > errorThreshold {
		issues = append(issues, "slow down: elevated failure rate")
	}
	if captchaRate > captchaThreshold {
		issues = append(issues, "rotate proxy/UA: elevated CAPTCHA rate")
	}
	if captchaRate > 0.01 && captchaRate <= captchaThreshold {
		issues = append(issues, "monitor: mild CAPTCHA uptick")
	}
	if m.counters.Blocks > 0 && m.failures.n == ringSize && m.failures.rate() > 0.10 {
		issues = append(issues, "investigate selector drift")
	}

	critical := m.consecutiveNoSuccess >= 50

	var level Level
	switch {
	case critical || len(issues) >= 4:
		level = LevelCritical
		if !contains(issues, "take a session break") {
			issues = append(issues, "take a session break")
		}
	case len(issues) >= 2:
		level = LevelUnhealthy
	case len(issues) == 1:
		level = LevelDegraded
	default:
		level = LevelHealthy
	}

	return Assessment{Level: level, SuggestedActions: issues}
}

func contains(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}
