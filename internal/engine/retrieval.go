package engine

import (
	"log"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/mstanton/keepsake/internal/store"
)

// ScoredMemory pairs a memory with its relevance score for one query.
type ScoredMemory struct {
	store.Memory
	Score float64
}

// RelevantMemories fetches candidates, scores them, and returns the ranked
// result. Core memories are kept regardless of threshold and are never
// truncated away: the returned slice holds up to max(maxCount, core count)
// entries with all core entries first.
func (e *Engine) RelevantMemories(query string, threshold float64, maxCount int) ([]ScoredMemory, error) {
	if maxCount <= 0 {
		maxCount = 5
	}

	candidates, err := e.Store.SearchCandidates(Tokenize(query), 2*maxCount)
	if err != nil {
		return nil, err
	}

	now := e.Now()
	var core, others []ScoredMemory
	for i := range candidates {
		m := candidates[i]
		scored := ScoredMemory{Memory: m, Score: RelevanceScore(query, &m, now)}
		if m.MemoryType == store.TypeCore {
			core = append(core, scored)
		} else if scored.Score >= threshold {
			others = append(others, scored)
		}
	}

	byRank := func(s []ScoredMemory) {
		sort.SliceStable(s, func(i, j int) bool {
			return 0.7*s[i].Score+0.3*s[i].Importance > 0.7*s[j].Score+0.3*s[j].Importance
		})
	}
	byRank(core)
	byRank(others)

	results := append(core, others...)
	limit := maxCount
	if len(core) > limit {
		limit = len(core)
	}
	if len(results) > limit {
		results = results[:limit]
	}

	// Retrieval counts as access: bump recency for everything surfaced.
	for _, r := range results {
		if err := e.Store.TouchMemory(r.ID); err != nil {
			log.Printf("retrieval: touch %d: %v", r.ID, err)
		}
	}

	return results, nil
}

// fillerPrefixes are conversational wrappers stripped before compression.
var fillerPrefixes = []string{
	"用户说", "用户提到", "用户表示", "请记住", "记住", "注意",
	"user said", "the user said", "user mentioned", "remember that", "note that",
}

const compressedEntryRunes = 80

// CompressMemories renders the top memories as a compact bulleted excerpt
// for prompt injection. Re-ranks by 0.6×relevance + 0.4×importance, keeps
// the top 3, strips filler prefixes, and truncates each entry. Returns ""
// for empty input; callers treat "" as "no memory context to inject".
func CompressMemories(memories []ScoredMemory) string {
	if len(memories) == 0 {
		return ""
	}

	ranked := make([]ScoredMemory, len(memories))
	copy(ranked, memories)
	sort.SliceStable(ranked, func(i, j int) bool {
		return 0.6*ranked[i].Score+0.4*ranked[i].Importance > 0.6*ranked[j].Score+0.4*ranked[j].Importance
	})
	if len(ranked) > 3 {
		ranked = ranked[:3]
	}

	var lines []string
	for _, m := range ranked {
		content := strings.TrimSpace(m.Content)
		for _, prefix := range fillerPrefixes {
			if len(content) >= len(prefix) && strings.EqualFold(content[:len(prefix)], prefix) {
				content = strings.TrimSpace(content[len(prefix):])
				content = strings.TrimLeft(content, ":：,，")
				content = strings.TrimSpace(content)
				break
			}
		}
		if content == "" {
			continue
		}
		if utf8.RuneCountInString(content) > compressedEntryRunes {
			runes := []rune(content)
			content = string(runes[:compressedEntryRunes]) + "..."
		}
		lines = append(lines, "- "+content)
	}

	return strings.Join(lines, "\n")
}

// locationBiasTerms broaden candidate fetch for geo/weather/transit queries:
// the stored facts that answer them (home city, commute route, addresses)
// rarely share surface tokens with the utterance.
var locationBiasTerms = []string{
	"位置", "地址", "城市", "常去", "location", "address", "city", "home",
}

// SmartRetrieve runs the full gate → fetch → rank → compress pipeline and
// returns a compressed memory excerpt, or "" when the gate says no
// retrieval is needed or nothing relevant is stored.
func (e *Engine) SmartRetrieve(utterance string) (string, error) {
	rule, retrieve := MatchRetrievalRule(utterance)
	if !retrieve {
		log.Printf("retrieval: gated off (%s): %.40q", rule, utterance)
		return "", nil
	}

	query := utterance
	if IsLocationQuery(utterance) {
		query = utterance + " " + strings.Join(locationBiasTerms, " ")
	}

	memories, err := e.RelevantMemories(query, e.RetrievalThreshold, e.RetrievalMax)
	if err != nil {
		return "", err
	}
	return CompressMemories(memories), nil
}
