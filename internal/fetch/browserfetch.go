package fetch

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/coldtrail/ypcrawl/internal/health"
)

// BrowserConfig configures the headless-browser fetch backend.
type BrowserConfig struct {
	RequestTimeout       time.Duration
	SessionBreakEvery    int
	ContextRotationEvery int // Fetch calls per browser context (target boundaries are not counted); re-randomized to [15,25] if zero
	RespectRobots        bool
}

// BrowserFetcher drives a headless Chrome instance via chromedp. It is the
// preferred C7 backend: it alone can perform fingerprint
// camouflage and the scroll/reading simulation that an HTTP-only client
// cannot express.
type BrowserFetcher struct {
	monitor *health.Monitor
	robots  *RobotsChecker
	proxies ProxySource
	cfg     BrowserConfig

	mu                 sync.Mutex
	rng                *rand.Rand
	allocCtx           context.Context
	allocCancel        context.CancelFunc
	browserCtx         context.Context
	browserCancel      context.CancelFunc
	targetsThisContext int
	nextRotation       int
	requestCount       int // monotonic, seeds the humanize PRNG; never reset
	sessionCount       int // resets every session break
	nextSessionBreak   int
}

// NewBrowserFetcher builds a BrowserFetcher and starts its first browser
// context with a freshly randomized fingerprint.
func NewBrowserFetcher(monitor *health.Monitor, proxies ProxySource, cfg BrowserConfig) (*BrowserFetcher, error) {
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = 60 * time.Second
	}
	f := &BrowserFetcher{
		monitor: monitor,
		robots:  NewRobotsChecker(&http.Client{Timeout: 10 * time.Second}),
		proxies: proxies,
		cfg:     cfg,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	f.nextRotation = f.randomRotation()
	f.nextSessionBreak = f.randomSessionBreak()
	if err := f.rotateContext(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *BrowserFetcher) randomRotation() int {
	if f.cfg.ContextRotationEvery > 0 {
		return f.cfg.ContextRotationEvery
	}
	return 15 + f.rng.Intn(11) // [15,25]
}

func (f *BrowserFetcher) randomSessionBreak() int {
	if f.cfg.SessionBreakEvery > 0 {
		return f.cfg.SessionBreakEvery
	}
	return 45 + f.rng.Intn(16) // [45,60]
}

// rotateContext tears down the current browser context, if any, and
// starts a fresh one with new fingerprint camouflage injected at
// startup.
func (f *BrowserFetcher) rotateContext() error {
	if f.browserCancel != nil {
		f.browserCancel()
	}
	if f.allocCancel != nil {
		f.allocCancel()
	}

	fp := randomFingerprint(f.rng)
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserAgent(fp.UserAgent),
		chromedp.WindowSize(fp.ViewportWidth, fp.ViewportHeight),
		chromedp.Flag("headless", true),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	if err := chromedp.Run(browserCtx, chromedp.Evaluate(fingerprintCamouflageScript(fp), nil)); err != nil {
		allocCancel()
		return fmt.Errorf("start browser context: %w", err)
	}

	f.allocCtx, f.allocCancel = allocCtx, allocCancel
	f.browserCtx, f.browserCancel = browserCtx, browserCancel
	f.targetsThisContext = 0
	return nil
}

// fingerprintCamouflageScript is injected on every new context to hide the
// automation sentinels a headless browser otherwise leaves exposed to
// fingerprinting scripts at city-directory scale.
func fingerprintCamouflageScript(fp Fingerprint) string {
	return fmt.Sprintf(`(() => {
  Object.defineProperty(navigator, 'webdriver', {get: () => undefined});
  Object.defineProperty(navigator, 'plugins', {get: () => [1, 2, 3, 4, 5]});
  Object.defineProperty(navigator, 'languages', {get: () => %q});
  Object.defineProperty(navigator, 'hardwareConcurrency', {get: () => %d});
  Object.defineProperty(navigator, 'deviceMemory', {get: () => %d});
})();`, fp.Languages, fp.HardwareConcurrency, fp.DeviceMemoryGB)
}

// Fetch navigates to url, simulates scrolling and reading, and returns the
// rendered HTML.
func (f *BrowserFetcher) Fetch(ctx context.Context, url string) Outcome {
	var proxyID string
	direct := true
	if f.proxies != nil {
		proxyID, direct = f.proxies.Acquire()
	}

	if f.cfg.RespectRobots {
		if allowed, _ := f.robots.Allowed(ctx, url, "ypcrawl-browser"); !allowed {
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

	runCtx, cancel := context.WithTimeout(f.browserCtx, f.cfg.RequestTimeout)
	defer cancel()

	start := time.Now()
	var html string
	var status int64
	attempt := f.nextAttemptNumber()

	err := chromedp.Run(runCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			return f.simulateScrolling(ctx, len(html), attempt)
		}),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	elapsed := time.Since(start)
	status = 200 // chromedp does not expose the navigation status directly without network-event hooks

	if err != nil {
		f.recordProxyOutcome(direct, proxyID, false, false, false)
		return Outcome{Kind: KindTransient, Reason: err.Error(), Elapsed: elapsed, ProxyUsed: proxyID}
	}

	reading := ReadingDelay(len(html), attempt)
	select {
	case <-ctx.Done():
	case <-time.After(reading):
	}

	captcha := health.IsCaptcha(html)
	blocked := health.IsBlocked(int(status), html)
	f.monitor.RecordOutcome(!captcha && !blocked, captcha, blocked)

	f.targetsThisContext++
	if captcha || blocked || f.targetsThisContext >= f.nextRotation {
		if rotateErr := f.rotateContext(); rotateErr != nil {
			f.recordProxyOutcome(direct, proxyID, false, captcha, blocked)
			return Outcome{Kind: KindFatal, Reason: "context_rotation_failed: " + rotateErr.Error(), ProxyUsed: proxyID}
		}
		f.nextRotation = f.randomRotation()
	}

	if captcha {
		f.recordProxyOutcome(direct, proxyID, false, true, false)
		return Outcome{Kind: KindCaptcha, Status: int(status), Elapsed: elapsed, Reason: "captcha_sentinel_detected", ProxyUsed: proxyID}
	}
	if blocked {
		f.recordProxyOutcome(direct, proxyID, false, false, true)
		return Outcome{Kind: KindBlocked, Status: int(status), Elapsed: elapsed, Reason: "block_signal_detected", ProxyUsed: proxyID}
	}

	f.recordProxyOutcome(direct, proxyID, true, false, false)
	return Outcome{Kind: KindOK, Status: int(status), Body: []byte(html), Elapsed: elapsed, ProxyUsed: proxyID}
}

func (f *BrowserFetcher) nextAttemptNumber() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requestCount++
	return f.requestCount
}

// maybeSessionBreak inserts a long pause every ~50 requests to interrupt
// continuous activity patterns, mirroring HTTPFetcher.maybeSessionBreak.
func (f *BrowserFetcher) maybeSessionBreak(ctx context.Context) {
	f.mu.Lock()
	f.sessionCount++
	due := f.sessionCount >= f.nextSessionBreak
	if due {
		f.sessionCount = 0
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

// simulateScrolling runs ScrollPlan's increments against the live page.
func (f *BrowserFetcher) simulateScrolling(ctx context.Context, contentLength, attempt int) error {
	for _, step := range ScrollPlan(contentLength, attempt) {
		if err := chromedp.Run(ctx, chromedp.Evaluate(
			fmt.Sprintf("window.scrollBy(0, %d);", step.PixelsDown), nil)); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(step.Pause):
		}
	}
	return nil
}

func (f *BrowserFetcher) recordProxyOutcome(direct bool, proxyID string, success, captcha, blocked bool) {
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

// Close tears down the browser context and its allocator.
func (f *BrowserFetcher) Close() error {
	if f.browserCancel != nil {
		f.browserCancel()
	}
	if f.allocCancel != nil {
		f.allocCancel()
	}
	return nil
}
