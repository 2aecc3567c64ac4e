// Package config loads and validates the full configuration surface
// from a file plus environment overrides, using viper — the
// corpus's dominant config-loading library for services shaped like this
// one. Configuration invalidity is the single fatal startup condition
//; every other error is absorbed and logged at runtime.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the fully validated, ready-to-use configuration surface.
type Config struct {
	Workers     int
	States      []string
	MaxPerState int

	MaxPagesOverride int
	MinScore         int
	IncludeSponsored bool

	BaseDelay        time.Duration
	MinDelay         time.Duration
	MaxDelay         time.Duration
	ErrorThreshold   float64
	CaptchaThreshold float64

	SessionBreakEvery    int
	ContextRotationEvery int
	OrphanTimeoutMinutes int
	MaxAttempts          int

	ProxyFile     string
	ProxyStrategy string
	UseBrowser    bool

	AllowlistPath     string
	BlocklistPath     string
	AntiKeywordsPath  string
	PositiveHintsPath string
	DenyDomainsPath   string

	DatabaseDSN string
	WALDir      string
	SummaryPath string
}

// setDefaults fills in the parameter defaults used when no config file,
// flag, or environment variable overrides them.
func setDefaults(v *viper.Viper) {
	v.SetDefault("workers", 4)
	v.SetDefault("max_per_state", 2)
	v.SetDefault("max_pages_override", 0)
	v.SetDefault("min_score", 50)
	v.SetDefault("include_sponsored", false)
	v.SetDefault("base_delay", "5s")
	v.SetDefault("min_delay", "2s")
	v.SetDefault("max_delay", "30s")
	v.SetDefault("error_threshold", 0.20)
	v.SetDefault("captcha_threshold", 0.05)
	v.SetDefault("session_break_every", 50)
	v.SetDefault("context_rotation_every", 20)
	v.SetDefault("orphan_timeout_minutes", 60)
	v.SetDefault("max_attempts", 3)
	v.SetDefault("proxy_strategy", "round_robin")
	v.SetDefault("use_browser", false)
	v.SetDefault("wal_dir", "./wal")
	v.SetDefault("summary_path", "./last_run_summary.json")
}

// Load reads configPath (if non-empty) and environment variables prefixed
// YPCRAWL_ (nested keys use "_" in place of "."), applies defaults, and
// validates the result. A configPath that does not exist is only an error
// if it was explicitly requested; an empty configPath relies on
// environment and defaults alone.
func Load(configPath string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("ypcrawl")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", configPath, err)
		}
	}

	cfg := Config{
		Workers:              v.GetInt("workers"),
		States:               v.GetStringSlice("states"),
		MaxPerState:          v.GetInt("max_per_state"),
		MaxPagesOverride:     v.GetInt("max_pages_override"),
		MinScore:             v.GetInt("min_score"),
		IncludeSponsored:     v.GetBool("include_sponsored"),
		BaseDelay:            v.GetDuration("base_delay"),
		MinDelay:             v.GetDuration("min_delay"),
		MaxDelay:             v.GetDuration("max_delay"),
		ErrorThreshold:       v.GetFloat64("error_threshold"),
		CaptchaThreshold:     v.GetFloat64("captcha_threshold"),
		SessionBreakEvery:    v.GetInt("session_break_every"),
		ContextRotationEvery: v.GetInt("context_rotation_every"),
		OrphanTimeoutMinutes: v.GetInt("orphan_timeout_minutes"),
		MaxAttempts:          v.GetInt("max_attempts"),
		ProxyFile:            v.GetString("proxy_file"),
		ProxyStrategy:        v.GetString("proxy_strategy"),
		UseBrowser:           v.GetBool("use_browser"),
		AllowlistPath:        v.GetString("allowlist_path"),
		BlocklistPath:        v.GetString("blocklist_path"),
		AntiKeywordsPath:     v.GetString("anti_keywords_path"),
		PositiveHintsPath:    v.GetString("positive_hints_path"),
		DenyDomainsPath:      v.GetString("deny_domains_path"),
		DatabaseDSN:          v.GetString("database_dsn"),
		WALDir:               v.GetString("wal_dir"),
		SummaryPath:          v.GetString("summary_path"),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

var validProxyStrategies = map[string]bool{
	"round_robin": true, "least_used": true, "random": true, "sticky_session": true,
}

// Validate enforces the invariants a worker pool must refuse to start
// against.
func (c Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("config: workers must be >= 1, got %d", c.Workers)
	}
	if c.DatabaseDSN == "" {
		return fmt.Errorf("config: database_dsn is required")
	}
	if c.MinScore < 0 || c.MinScore > 100 {
		return fmt.Errorf("config: min_score must be in [0,100], got %d", c.MinScore)
	}
	if c.MaxPerState < 1 {
		return fmt.Errorf("config: max_per_state must be >= 1, got %d", c.MaxPerState)
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("config: max_attempts must be >= 1, got %d", c.MaxAttempts)
	}
	if c.BaseDelay <= 0 || c.MinDelay <= 0 || c.MaxDelay <= 0 {
		return fmt.Errorf("config: base_delay/min_delay/max_delay must be positive")
	}
	if c.MinDelay > c.BaseDelay || c.BaseDelay > c.MaxDelay {
		return fmt.Errorf("config: expected min_delay <= base_delay <= max_delay, got %s <= %s <= %s", c.MinDelay, c.BaseDelay, c.MaxDelay)
	}
	if c.ErrorThreshold <= 0 || c.ErrorThreshold > 1 {
		return fmt.Errorf("config: error_threshold must be in (0,1], got %v", c.ErrorThreshold)
	}
	if c.CaptchaThreshold <= 0 || c.CaptchaThreshold > 1 {
		return fmt.Errorf("config: captcha_threshold must be in (0,1], got %v", c.CaptchaThreshold)
	}
	if c.ProxyFile != "" && !validProxyStrategies[c.ProxyStrategy] {
		return fmt.Errorf("config: unrecognized proxy_strategy %q", c.ProxyStrategy)
	}
	if c.OrphanTimeoutMinutes < 1 {
		return fmt.Errorf("config: orphan_timeout_minutes must be >= 1, got %d", c.OrphanTimeoutMinutes)
	}
	return nil
}
