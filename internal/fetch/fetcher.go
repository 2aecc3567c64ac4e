package fetch

import (
	"context"
	"time"
)

// Kind is the result-variant discriminator replacing exception-based
// control flow: OK, Captcha, Blocked, Transient, and Fatal are the only
// outcomes a caller observes.
type Kind int

const (
	KindOK Kind = iota
	KindCaptcha
	KindBlocked
	KindTransient
	KindFatal
)

func (k Kind) String() string {
	switch k {
	case KindOK:
		return "ok"
	case KindCaptcha:
		return "captcha"
	case KindBlocked:
		return "blocked"
	case KindTransient:
		return "transient"
	case KindFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Outcome is the value every fetch produces; it is always returned, never
// thrown. Reason carries a short diagnostic for Blocked/Transient/Fatal.
type Outcome struct {
	Kind      Kind
	Status    int
	Body      []byte
	Elapsed   time.Duration
	Reason    string
	ProxyUsed string
}

// OK reports whether the fetch produced a usable page body.
func (o Outcome) OK() bool { return o.Kind == KindOK }

// Captcha reports whether the fetch was challenged by a CAPTCHA.
func (o Outcome) Captcha() bool { return o.Kind == KindCaptcha }

// Blocked reports whether the fetch was rejected by an anti-bot layer.
func (o Outcome) Blocked() bool { return o.Kind == KindBlocked }

// Fetcher retrieves one page with humanized pacing and anti-detection
// camouflage, guided by the caller's health monitor and proxy pool
// (component C7). Both backends (plain HTTP and headless
// browser) implement this identical contract.
type Fetcher interface {
	Fetch(ctx context.Context, url string) Outcome
	Close() error
}
