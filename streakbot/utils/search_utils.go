package utils

import (
	"github.com/sahilm/fuzzy"
	"github.com/streakbot/streakbot/internal/domain/streaks"
)

// WordSource adapts a trigger word list to fuzzy.Source.
type WordSource []string

func (s WordSource) String(i int) string { return s[i] }

func (s WordSource) Len() int { return len(s) }

// SuggestWords ranks words against query, best match first. An empty query
// keeps the configured order.
func SuggestWords(words []string, query string, limit int) []string {
	query = streaks.NormalizeWord(query)

	var out []string
	if query == "" {
		out = append(out, words...)
	} else {
		for _, m := range fuzzy.FindFrom(query, WordSource(words)) {
			out = append(out, words[m.Index])
		}
	}

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
