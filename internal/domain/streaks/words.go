package streaks

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const MaxWordLength = 32

// NormalizeWord trims and lower-cases a trigger word. Every word is passed
// through it before it is stored or compared.
func NormalizeWord(word string) string {
	return strings.ToLower(strings.TrimSpace(word))
}

// ValidateWord normalizes word and rejects it when it cannot be matched as a
// single message token.
func ValidateWord(word string) (string, error) {
	w := NormalizeWord(word)
	if w == "" || utf8.RuneCountInString(w) > MaxWordLength {
		return "", ErrInvalidWord
	}
	if strings.IndexFunc(w, isSeparator) >= 0 {
		return "", ErrInvalidWord
	}
	return w, nil
}

// NormalizeWords normalizes, validates and deduplicates words, keeping the
// first occurrence order.
func NormalizeWords(words []string) ([]string, error) {
	out := make([]string, 0, len(words))
	seen := make(map[string]struct{}, len(words))
	for _, word := range words {
		w, err := ValidateWord(word)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out, nil
}

// MatchWords returns the trigger words that appear as whole tokens in
// content, each at most once, in the order of words.
func MatchWords(content string, words []string) []string {
	if len(words) == 0 || content == "" {
		return nil
	}

	tokens := make(map[string]struct{})
	for _, tok := range strings.FieldsFunc(strings.ToLower(content), isSeparator) {
		tokens[tok] = struct{}{}
	}

	var matched []string
	seen := make(map[string]struct{}, len(words))
	for _, w := range words {
		w = NormalizeWord(w)
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		if _, ok := tokens[w]; ok {
			matched = append(matched, w)
		}
	}
	return matched
}

func isSeparator(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsNumber(r) && r != '_' && r != '-'
}
