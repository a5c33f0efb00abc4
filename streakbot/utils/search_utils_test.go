package utils

import (
	"reflect"
	"testing"
)

func TestSuggestWords(t *testing.T) {
	words := []string{"gm", "gn", "coffee", "good-morning"}

	tests := []struct {
		name  string
		query string
		limit int
		want  []string
	}{
		{"empty query keeps order", "", 25, []string{"gm", "gn", "coffee", "good-morning"}},
		{"limit", "", 2, []string{"gm", "gn"}},
		{"normalized query", " COF ", 25, []string{"coffee"}},
		{"subsequence", "cfe", 25, []string{"coffee"}},
		{"no match", "zzz", 25, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SuggestWords(words, tt.query, tt.limit); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SuggestWords(%q) = %v, want %v", tt.query, got, tt.want)
			}
		})
	}
}
