package fetch

import (
	"context"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/coldtrail/ypcrawl/internal/health"
)

// ProxySource is the narrow proxy-pool contract the fetcher needs
// (component C8's public operations). internal/proxypool.Pool
// satisfies this interface; tests can supply a fake.
type ProxySource interface {
	Acquire() (id string, direct bool)
	ReportSuccess(id string)
	ReportFailure(id string, kind string)
}

// HTTPConfig configures the plain-HTTP fetch backend.
type HTTPConfig struct {
	RequestTimeout    time.Duration
	SessionBreakEvery int // nominal requests per session; re-randomized to [45,60] if zero
	RespectRobots     bool
	RetryPolicy       RetryPolicy
}

// HTTPFetcher is the net/http fallback backend for C7. It
// applies the monitor's adaptive delay, fingerprint randomization at the
// header level, session breaks, and CAPTCHA/block classification; it
// cannot perform the browser-only camouflage/scroll steps, which require
// BrowserFetcher.
type HTTPFetcher struct {
	client  *http.Client
	monitor *health.Monitor
	robots  *RobotsChecker
	proxies ProxySource
	cfg     HTTPConfig

	mu               sync.Mutex
	rng              *rand.Rand
	requestCount     int
	nextSessionBreak int
}

// NewHTTPFetcher builds an HTTPFetcher. proxies may be nil to disable
// proxy rotation entirely.
func NewHTTPFetcher(monitor *health.Monitor, proxies ProxySource, cfg HTTPConfig) *HTTPFetcher {
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = 45 * time.Second
	}
	if cfg.RetryPolicy == (RetryPolicy{}) {
		cfg.RetryPolicy = DefaultRetryPolicy()
	}
	client := &http.Client{Timeout: cfg.RequestTimeout}
	f := &HTTPFetcher{
		client:  client,
		monitor: monitor,
		robots:  NewRobotsChecker(client),
		proxies: proxies,
		cfg:     cfg,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	f.nextSessionBreak = f.randomSessionBreak()
	return f
}

func (f *HTTPFetcher) randomSessionBreak() int {
	if f.cfg.SessionBreakEvery > 0 {
		return f.cfg.SessionBreakEvery
	}
	return 45 + f.rng.Intn(16) // [45,60]
}

// Fetch performs one humanized GET against url.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) Outcome {
	var proxyID string
	direct := true
	if f.proxies != nil {
		proxyID, direct = f.proxies.Acquire()
	}

	fp := randomFingerprint(f.rng)

	if f.cfg.RespectRobots {
		if allowed, _ := f.robots.Allowed(ctx, url, fp.UserAgent); !allowed {
			return Outcome{Kind: KindFatal, Reason: "disallowed_by_robots_txt", ProxyUsed: proxyID}
		}
	}

	if err := f.monitor.Wait(ctx); err != nil {
		return Outcome{Kind: KindTransient, Reason: "adaptive_delay_wait: " + err.Error(), ProxyUsed: proxyID}
	}
	jitter := Jitter(f.rng, f.monitor.CurrentDelay()/4, 1.0)
	select {
	case <-ctx.Done():
		return Outcome{Kind: KindTransient, Reason: ctx.Err().Error(), ProxyUsed: proxyID}
	case <-time.After(jitter):
	}

	f.maybeSessionBreak(ctx)

	start := time.Now()
	var body []byte
	var status int
	result := retryWithBackoff(ctx, f.cfg.RetryPolicy, func() attemptResult {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return classifyTransport(err)
		}
		req.Header.Set("User-Agent", fp.UserAgent)
		req.Header.Set("Accept-Language", strings.Join(fp.Languages, ","))

		resp, err := f.client.Do(req)
		if err != nil {
			return classifyTransport(err)
		}
		defer resp.Body.Close()
		b, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return classifyTransport(readErr)
		}
		body = b
		status = resp.StatusCode
		return attemptResult{status: resp.StatusCode}
	})
	elapsed := time.Since(start)

	if result.err != nil && status == 0 {
		f.reportProxyOutcome(direct, proxyID, false, false, false)
		return Outcome{Kind: KindTransient, Reason: result.err.Error(), Elapsed: elapsed, ProxyUsed: proxyID}
	}

	html := string(body)
	captcha := health.IsCaptcha(html)
	blocked := health.IsBlocked(status, html)

	f.monitor.RecordOutcome(!captcha && !blocked && status < 400, captcha, blocked)

	if captcha {
		f.reportProxyOutcome(direct, proxyID, false, true, false)
		return Outcome{Kind: KindCaptcha, Status: status, Elapsed: elapsed, Reason: "captcha_sentinel_detected", ProxyUsed: proxyID}
	}
	if blocked {
		f.reportProxyOutcome(direct, proxyID, false, false, true)
		return Outcome{Kind: KindBlocked, Status: status, Elapsed: elapsed, Reason: "block_signal_detected", ProxyUsed: proxyID}
	}
	if status >= 400 {
		f.reportProxyOutcome(direct, proxyID, false, false, false)
		return Outcome{Kind: KindTransient, Status: status, Elapsed: elapsed, Reason: "non_success_status", ProxyUsed: proxyID}
	}

	f.reportProxyOutcome(direct, proxyID, true, false, false)
	return Outcome{Kind: KindOK, Status: status, Body: body, Elapsed: elapsed, ProxyUsed: proxyID}
}

func (f *HTTPFetcher) reportProxyOutcome(direct bool, proxyID string, success, captcha, blocked bool) {
	if direct || f.proxies == nil {
		return
	}
	if success {
		f.proxies.ReportSuccess(proxyID)
		return
	}
	kind := "transient"
	if captcha {
		kind = "captcha"
	} else if blocked {
		kind = "blocked"
	}
	f.proxies.ReportFailure(proxyID, kind)
}

// maybeSessionBreak inserts a long pause every ~50 requests to interrupt
// continuous activity patterns.
func (f *HTTPFetcher) maybeSessionBreak(ctx context.Context) {
	f.mu.Lock()
	f.requestCount++
	due := f.requestCount >= f.nextSessionBreak
	if due {
		f.requestCount = 0
		f.nextSessionBreak = f.randomSessionBreak()
	}
	f.mu.Unlock()

	if !due {
		return
	}
	pause := 30*time.Second + time.Duration(f.rng.Int63n(int64(60*time.Second)))
	select {
	case <-ctx.Done():
	case <-time.After(pause):
	}
}

// Close releases the fetcher's idle HTTP connections.
func (f *HTTPFetcher) Close() error {
	f.client.CloseIdleConnections()
	return nil
}
