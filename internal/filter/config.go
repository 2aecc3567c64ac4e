// Package filter implements the deterministic admit/reject decision
// procedure for extracted listings (component C3).
package filter

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// EquipmentOnlyTag is the distinguished category tag that, if it is the
// only allowed tag and no positive hint is present, causes a rejection
// and a score penalty. It is data-shaped like every other entry in the
// allowlist, but the filter singles it out.
const EquipmentOnlyTag = "Equipment & Services"

// FilePaths names the five plain-text configuration files the filter
// loads at startup.
type FilePaths struct {
	AllowlistPath     string
	BlocklistPath     string
	AntiKeywordsPath  string
	PositiveHintsPath string
	DenyDomainsPath   string
}

// Config is the fully loaded, ready-to-use filter configuration.
type Config struct {
	Allowlist        map[string]struct{}
	Blocklist        map[string]struct{}
	AntiKeywords     []string
	PositiveHints    []string
	DenyDomains      map[string]struct{}
	MinScore         int
	IncludeSponsored bool
	EquipmentTag     string
}

// LoadConfig reads the five flat-text configuration sets from disk and
// combines them with the operator-supplied scalar settings. Each file is
// one entry per line; blank lines and lines starting with "#" are ignored.
func LoadConfig(paths FilePaths, minScore int, includeSponsored bool) (Config, error) {
	allow, err := loadSet(paths.AllowlistPath)
	if err != nil {
		return Config{}, fmt.Errorf("load allowlist: %w", err)
	}
	block, err := loadSet(paths.BlocklistPath)
	if err != nil {
		return Config{}, fmt.Errorf("load blocklist: %w", err)
	}
	anti, err := loadList(paths.AntiKeywordsPath)
	if err != nil {
		return Config{}, fmt.Errorf("load anti-keywords: %w", err)
	}
	hints, err := loadList(paths.PositiveHintsPath)
	if err != nil {
		return Config{}, fmt.Errorf("load positive hints: %w", err)
	}
	deny, err := loadDomainSet(paths.DenyDomainsPath)
	if err != nil {
		return Config{}, fmt.Errorf("load deny domains: %w", err)
	}

	return Config{
		Allowlist:        allow,
		Blocklist:        block,
		AntiKeywords:     anti,
		PositiveHints:    hints,
		DenyDomains:      deny,
		MinScore:         minScore,
		IncludeSponsored: includeSponsored,
		EquipmentTag:     EquipmentOnlyTag,
	}, nil
}

// loadSet reads a newline-delimited file into a lowercased lookup set.
// An empty path yields an empty set rather than an error, so a deployment
// that doesn't use a given list can simply omit the path.
func loadSet(path string) (map[string]struct{}, error) {
	lines, err := readLines(path)
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(lines))
	for _, l := range lines {
		set[strings.ToLower(l)] = struct{}{}
	}
	return set, nil
}

// loadDomainSet is like loadSet but also strips a leading "www." so
// "www.example.com" and "example.com" entries collapse to one key.
func loadDomainSet(path string) (map[string]struct{}, error) {
	lines, err := readLines(path)
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(lines))
	for _, l := range lines {
		d := strings.ToLower(strings.TrimPrefix(l, "www."))
		set[d] = struct{}{}
	}
	return set, nil
}

// loadList reads a newline-delimited file preserving order, lowercased.
func loadList(path string) ([]string, error) {
	lines, err := readLines(path)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		out = append(out, strings.ToLower(l))
	}
	return out, nil
}

func readLines(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan %s: %w", path, err)
	}
	return lines, nil
}
