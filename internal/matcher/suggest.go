// file: internal/matcher/suggest.go
// version: 1.1.0
// guid: 53878c6f-458d-47d0-a17b-91a9e2e1101a

package matcher

import (
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// SuggestSeries returns up to limit known series keys that fuzzily match
// query, closest first. Used when a series filter selects nothing.
//
// A key matches when query is a case-folded subsequence of it, or when the
// two are within a small edit distance (typos like "Mistbron").
func SuggestSeries(query string, known []string, limit int) []string {
	query = strings.TrimSpace(query)
	if query == "" || len(known) == 0 {
		return nil
	}

	type scored struct {
		key      string
		distance int
		index    int
	}

	best := make(map[string]scored)
	consider := func(key string, distance, index int) {
		if key == query {
			return
		}
		if prev, ok := best[key]; ok && prev.distance <= distance {
			return
		}
		best[key] = scored{key: key, distance: distance, index: index}
	}

	for _, r := range fuzzy.RankFindNormalizedFold(query, known) {
		consider(r.Target, r.Distance, r.OriginalIndex)
	}

	lowered := strings.ToLower(query)
	maxEdits := len([]rune(lowered)) / 3
	if maxEdits < 2 {
		maxEdits = 2
	}
	for i, key := range known {
		d := fuzzy.LevenshteinDistance(lowered, strings.ToLower(key))
		if d <= maxEdits {
			consider(key, d, i)
		}
	}

	out := make([]scored, 0, len(best))
	for _, s := range best {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].distance != out[j].distance {
			return out[i].distance < out[j].distance
		}
		return out[i].index < out[j].index
	})

	var keys []string
	for _, s := range out {
		keys = append(keys, s.key)
		if limit > 0 && len(keys) >= limit {
			break
		}
	}
	return keys
}
