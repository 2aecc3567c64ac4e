package fetch

import (
	"math/rand"
	"strings"
	"testing"
)

func newTestRNG() *rand.Rand {
	return rand.New(rand.NewSource(42))
}

func TestFingerprintCamouflageScriptEmbedsFingerprint(t *testing.T) {
	fp := Fingerprint{
		Languages:           []string{"en-US", "en"},
		HardwareConcurrency: 8,
		DeviceMemoryGB:      16,
	}
	script := fingerprintCamouflageScript(fp)
	for _, want := range []string{"navigator, 'webdriver'", "navigator, 'plugins'", "en-US", "8", "16"} {
		if !strings.Contains(script, want) {
			t.Errorf("script missing %q:\n%s", want, script)
		}
	}
}

func TestBrowserFetcherRandomRotationBounds(t *testing.T) {
	f := &BrowserFetcher{rng: newTestRNG(), cfg: BrowserConfig{}}
	for i := 0; i < 50; i++ {
		n := f.randomRotation()
		if n < 15 || n > 25 {
			t.Errorf("randomRotation() = %d, want [15,25]", n)
		}
	}
}

func TestBrowserFetcherRandomRotationHonorsOverride(t *testing.T) {
	f := &BrowserFetcher{rng: newTestRNG(), cfg: BrowserConfig{ContextRotationEvery: 20}}
	if got := f.randomRotation(); got != 20 {
		t.Errorf("randomRotation() = %d, want 20", got)
	}
}

func TestBrowserFetcherRandomSessionBreakBounds(t *testing.T) {
	f := &BrowserFetcher{rng: newTestRNG(), cfg: BrowserConfig{}}
	for i := 0; i < 50; i++ {
		n := f.randomSessionBreak()
		if n < 45 || n > 60 {
			t.Errorf("randomSessionBreak() = %d, want [45,60]", n)
		}
	}
}
