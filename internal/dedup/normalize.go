package dedup

import (
	"strings"
	"unicode"

	"github.com/pmezard/go-difflib/difflib"
)

// genericSuffixes never count toward title similarity.
var genericSuffixes = []string{"比赛", "竞赛", "大赛", "competition", "contest", "challenge", "hackathon"}

// Normalize lowercases a title and strips whitespace, punctuation, dashes and
// generic suffix words.
func Normalize(title string) string {
	if title == "" {
		return ""
	}

	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		if unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.Is(unicode.Pd, r) {
			continue
		}
		b.WriteRune(r)
	}

	normalized := b.String()
	for _, suffix := range genericSuffixes {
		normalized = strings.ReplaceAll(normalized, suffix, "")
	}
	return normalized
}

// Similarity is the longest-matching-blocks ratio of the normalized titles,
// 0 when either side normalizes to nothing.
func Similarity(a, b string) float64 {
	na, nb := Normalize(a), Normalize(b)
	if na == "" || nb == "" {
		return 0
	}
	return difflib.NewMatcher(runes(na), runes(nb)).Ratio()
}

func runes(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}
