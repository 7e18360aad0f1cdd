package engine

import (
	"strings"
	"time"
	"unicode"

	"github.com/mstanton/keepsake/internal/store"
)

// Relevance term weights. The type/importance bonus values below already
// include their weight: a core memory's flat 0.25 is the full share of that
// term.
const (
	weightKeyword = 0.35
	weightContent = 0.25
	weightRecency = 0.15

	partialKeywordWeight = 0.5
	partialContentWeight = 0.3 // content matches are noisier than keyword matches
)

// RelevanceScore scores a (query, memory) pair in [0, 1] for retrieval
// ranking: weighted keyword overlap, content overlap, a type/importance
// bonus, and time decay.
func RelevanceScore(query string, m *store.Memory, now time.Time) float64 {
	queryTokens := Tokenize(query)

	score := weightKeyword*overlapScore(queryTokens, m.Keywords, partialKeywordWeight) +
		weightContent*overlapScore(queryTokens, m.Content, partialContentWeight) +
		typeImportanceBonus(m) +
		weightRecency*TimeDecay(m, now)

	if score > 1.0 {
		score = 1.0
	}
	return score
}

// overlapScore computes (exact matches + partial matches × partialWeight) /
// query token count against the target text, clamped to [0, 1]. An exact
// match is token equality; a partial match is a substring hit in either
// direction.
func overlapScore(queryTokens []string, target string, partialWeight float64) float64 {
	if len(queryTokens) == 0 || target == "" {
		return 0
	}

	targetTokens := Tokenize(target)
	targetSet := make(map[string]bool, len(targetTokens))
	for _, t := range targetTokens {
		targetSet[t] = true
	}
	targetLower := strings.ToLower(target)

	matched := 0.0
	for _, qt := range queryTokens {
		if targetSet[qt] {
			matched += 1.0
			continue
		}
		if strings.Contains(targetLower, qt) {
			matched += partialWeight
			continue
		}
		for _, tt := range targetTokens {
			if strings.Contains(qt, tt) {
				matched += partialWeight
				break
			}
		}
	}

	score := matched / float64(len(queryTokens))
	if score > 1.0 {
		score = 1.0
	}
	return score
}

// typeImportanceBonus returns the weighted type/importance term in [0, 0.25].
func typeImportanceBonus(m *store.Memory) float64 {
	if m.MemoryType == store.TypeCore {
		return 0.25
	}

	var bonus float64
	switch m.ImportanceLevel {
	case store.LevelImportant:
		bonus = 0.20
	case store.LevelModerate:
		bonus = 0.15
	default:
		bonus = 0.10
	}

	switch m.MemorySubtype {
	case "instruction":
		bonus += 0.05
	case "preference", "project_info":
		bonus += 0.03
	case "solution":
		bonus += 0.02
	}

	if bonus > 0.25 {
		bonus = 0.25
	}
	return bonus
}

// TimeDecay returns the recency term in [0.3, 1.0]. Core memories never
// decay. Others hold 1.0 for a week, fall to 0.7 by day 30, to 0.3 by day
// 90, and flatten there.
func TimeDecay(m *store.Memory, now time.Time) float64 {
	if m.MemoryType == store.TypeCore {
		return 1.0
	}

	ageDays := float64(now.UnixMilli()-m.CreatedAt) / float64(24*time.Hour/time.Millisecond)
	switch {
	case ageDays <= 7:
		return 1.0
	case ageDays <= 30:
		return 1.0 - (ageDays-7)/(30-7)*0.3
	case ageDays <= 90:
		return 0.7 - (ageDays-30)/(90-30)*0.4
	default:
		return 0.3
	}
}

// Tokenize splits text into search tokens. Latin/alphanumeric runs of
// length >= 2 become tokens as-is (lowercased). CJK text is reduced to every
// contiguous substring of length 2, 3, and 4 — a crude n-gram expansion that
// trades precision for recall against short keyword lists. Tokens are
// deduplicated preserving first appearance.
func Tokenize(text string) []string {
	var tokens []string
	seen := make(map[string]bool)
	add := func(tok string) {
		if len(tok) == 0 || seen[tok] {
			return
		}
		seen[tok] = true
		tokens = append(tokens, tok)
	}

	var latin []rune
	var cjk []rune
	flushLatin := func() {
		if len(latin) >= 2 {
			add(strings.ToLower(string(latin)))
		}
		latin = latin[:0]
	}

	for _, r := range text {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
			latin = append(latin, r)
		case unicode.Is(unicode.Han, r):
			flushLatin()
			cjk = append(cjk, r)
		default:
			flushLatin()
		}
	}
	flushLatin()

	// N-grams over the script-filtered CJK text, ignoring original breaks.
	for n := 2; n <= 4; n++ {
		for i := 0; i+n <= len(cjk); i++ {
			add(string(cjk[i : i+n]))
		}
	}

	return tokens
}
