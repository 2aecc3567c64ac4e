package filter

import (
	"fmt"
	"strings"

	"github.com/coldtrail/ypcrawl/internal/canon"
	"github.com/coldtrail/ypcrawl/internal/model"
)

// Reason codes returned in model.FilterResult.Reason. These are logged and
// persisted verbatim, so they stay short and stable.
const (
	ReasonNoCategory       = "no_category"
	ReasonBlockedCategory  = "blocked_category"
	ReasonMismatchCategory = "mismatch_category"
	ReasonAntiKeyword      = "anti_keyword"
	ReasonEquipmentOnly    = "equipment_only"
	ReasonNoWebsite        = "no_website"
	ReasonEcommerceURL     = "ecommerce_url"
	ReasonSponsored        = "sponsored"
	ReasonLowScore         = "low_score"
	ReasonAccepted         = "accepted"
)

const (
	baseScore            = 50
	allowedTagBonusEach  = 10
	allowedTagBonusCap   = 50
	hintBonusEach        = 5
	hintBonusCap         = 25
	equipmentOnlyPenalty = 20
	websiteBonus         = 5
	ratingReviewsBonus   = 3
	antiKeywordPenalty   = 10
	antiKeywordCap       = 30
	scoreMin             = 0
	scoreMax             = 100
)

// Decide runs the eleven-step ordered decision procedure over a parsed
// listing. Rules are evaluated in order and the first
// disqualifying rule produces the rejection; a listing that survives every
// rule is scored and admitted iff the score clears cfg.MinScore. Once the
// score is computed it is returned whether the listing is accepted or
// rejected for a low score; a rejection by an earlier rule carries score 0.
func Decide(l model.Listing, cfg Config) model.FilterResult {
	if len(l.CategoryTags) == 0 {
		return reject(ReasonNoCategory, "")
	}

	allowed, blockedTag := classifyTags(l.CategoryTags, cfg)
	if blockedTag != "" {
		return reject(ReasonBlockedCategory, blockedTag)
	}
	if len(allowed) == 0 {
		return reject(ReasonMismatchCategory, "")
	}

	name := canon.CleanName(l.Name)
	if word := firstAntiKeyword(name, cfg.AntiKeywords); word != "" {
		return reject(ReasonAntiKeyword, word)
	}

	description := l.Description
	descriptionHints := countOccurrences(description, cfg.PositiveHints)
	nameHints := countOccurrences(name, cfg.PositiveHints)

	if onlyEquipmentTag(allowed, cfg.EquipmentTag) && descriptionHints == 0 && nameHints == 0 {
		return reject(ReasonEquipmentOnly, "")
	}

	if l.Website == "" {
		return reject(ReasonNoWebsite, "")
	}
	if isDenyDomain(l.Website, cfg) {
		return reject(ReasonEcommerceURL, "")
	}

	if l.IsSponsored && !cfg.IncludeSponsored {
		return reject(ReasonSponsored, "")
	}

	score := computeScore(l, allowed, descriptionHints, cfg)
	if score < cfg.MinScore {
		return model.FilterResult{Accepted: false, Reason: fmt.Sprintf("%s:%d", ReasonLowScore, score), Score: score}
	}

	return model.FilterResult{Accepted: true, Reason: ReasonAccepted, Score: score}
}

func reject(reason, detail string) model.FilterResult {
	if detail != "" {
		reason = reason + ":" + detail
	}
	return model.FilterResult{Accepted: false, Reason: reason, Score: 0}
}

// classifyTags partitions a listing's category tags against the allow and
// block lists, matching case-insensitively. The first blocked tag found is
// returned for use in the rejection reason.
func classifyTags(tags []string, cfg Config) (allowed []string, blockedTag string) {
	for _, tag := range tags {
		lower := strings.ToLower(strings.TrimSpace(tag))
		if lower == "" {
			continue
		}
		if _, bad := cfg.Blocklist[lower]; bad {
			return nil, lower
		}
	}
	for _, tag := range tags {
		lower := strings.ToLower(strings.TrimSpace(tag))
		if lower == "" {
			continue
		}
		if _, ok := cfg.Allowlist[lower]; ok {
			allowed = append(allowed, lower)
		}
	}
	return allowed, ""
}

func onlyEquipmentTag(allowed []string, equipmentTag string) bool {
	if len(allowed) != 1 {
		return false
	}
	return allowed[0] == strings.ToLower(equipmentTag)
}

// computeScore applies the additive/subtractive scoring rules on top of the
// base score, clamped to [0, 100]. descriptionHints counts positive-hint
// occurrences in the listing description only; hints in the name affect
// the equipment-only gate but not the score.
func computeScore(l model.Listing, allowed []string, descriptionHints int, cfg Config) int {
	score := baseScore

	score += capped(len(allowed)*allowedTagBonusEach, allowedTagBonusCap)
	score += capped(descriptionHints*hintBonusEach, hintBonusCap)

	if onlyEquipmentTag(allowed, cfg.EquipmentTag) {
		score -= equipmentOnlyPenalty
	}

	if l.Website != "" && !isDenyDomain(l.Website, cfg) {
		score += websiteBonus
	}

	if l.Rating != nil && l.Reviews != nil {
		score += ratingReviewsBonus
	}

	antiHits := countOccurrences(l.Description, cfg.AntiKeywords)
	score -= capped(antiHits*antiKeywordPenalty, antiKeywordCap)

	if score < scoreMin {
		score = scoreMin
	}
	if score > scoreMax {
		score = scoreMax
	}
	return score
}

func capped(v, cap int) int {
	if v > cap {
		return cap
	}
	return v
}

func isDenyDomain(websiteURL string, cfg Config) bool {
	domain := strings.ToLower(strings.TrimPrefix(canon.ExtractDomain(websiteURL), "www."))
	_, bad := cfg.DenyDomains[domain]
	return bad
}

// firstAntiKeyword returns the first anti-keyword (lowercased, whole-word)
// found in name, or "" if none appears.
func firstAntiKeyword(name string, antiKeywords []string) string {
	words := tokenize(name)
	wordSet := make(map[string]struct{}, len(words))
	for _, w := range words {
		wordSet[w] = struct{}{}
	}
	for _, needle := range antiKeywords {
		needle = strings.ToLower(strings.TrimSpace(needle))
		if needle == "" {
			continue
		}
		if strings.Contains(needle, " ") {
			if strings.Contains(strings.ToLower(name), needle) {
				return needle
			}
			continue
		}
		if _, ok := wordSet[needle]; ok {
			return needle
		}
	}
	return ""
}

// countOccurrences sums, across every needle, the number of times it
// appears in haystack (case-insensitive, whole-word).
func countOccurrences(haystack string, needles []string) int {
	if haystack == "" || len(needles) == 0 {
		return 0
	}
	words := tokenize(haystack)
	wordCount := make(map[string]int, len(words))
	for _, w := range words {
		wordCount[w]++
	}

	total := 0
	for _, needle := range needles {
		needle = strings.ToLower(strings.TrimSpace(needle))
		if needle == "" {
			continue
		}
		if strings.Contains(needle, " ") {
			total += strings.Count(strings.ToLower(haystack), needle)
			continue
		}
		total += wordCount[needle]
	}
	return total
}

// tokenize lowercases and splits on anything that isn't a letter or digit,
// giving whole-word matching that ignores punctuation.
func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
}
