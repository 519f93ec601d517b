package ingest

import (
	"context"
	"regexp"
	"slices"
	"strings"

	"CompetitionScanner/internal/domain"
	"CompetitionScanner/internal/ports"
	"CompetitionScanner/internal/textutil"
)

// Store field limits.
const (
	maxNameRunes = 500
	maxLinkRunes = 500
)

var nameDisallowed = regexp.MustCompile(`[^\p{Han}a-zA-Z0-9\s.,!?()\[\]{}"'\-]`)

// DefaultLabels is what an item gets when no classifier can label it.
func DefaultLabels() domain.Labels {
	return domain.Labels{
		Categories: []string{domain.DefaultCategory},
		Difficulty: domain.DefaultDifficulty,
	}
}

// KeywordLabeler labels an item from words in its title and description.
type KeywordLabeler struct{}

var _ ports.Labeler = KeywordLabeler{}

// Classify never fails.
func (KeywordLabeler) Classify(_ context.Context, title, description string) (domain.Labels, error) {
	return domain.Labels{
		Categories: []string{categoryFromKeywords(title + " " + description)},
		Difficulty: domain.DefaultDifficulty,
	}, nil
}

func categoryFromKeywords(text string) string {
	text = strings.ToLower(text)
	switch {
	case strings.Contains(text, "coding"), strings.Contains(text, "编程"):
		return domain.CategoryCoding
	case strings.Contains(text, "mcp"):
		return domain.CategoryMCP
	case strings.Contains(text, "ai"), strings.Contains(text, "智能"):
		if strings.Contains(text, "视频") || strings.Contains(text, "video") {
			return domain.CategoryVideo
		}
		return domain.CategoryAgent
	default:
		return domain.CategoryOther
	}
}

// NormalizeLabels maps free-form labels onto the closed vocabularies.
func NormalizeLabels(l domain.Labels) domain.Labels {
	return domain.Labels{
		Categories: NormalizeCategories(l.Categories),
		Difficulty: NormalizeDifficulty(l.Difficulty),
	}
}

// NormalizeDifficulty finds L1..L4 anywhere in s, defaulting to L2.
func NormalizeDifficulty(s string) string {
	upper := strings.ToUpper(s)
	for _, level := range domain.Difficulties {
		if strings.Contains(upper, level) {
			return level
		}
	}
	return domain.DefaultDifficulty
}

// NormalizeCategories keeps known labels, maps unknown ones by keyword and
// drops repeats. An empty result becomes the default category.
func NormalizeCategories(in []string) []string {
	var out []string
	for _, raw := range in {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		label := raw
		if !slices.Contains(domain.Categories, label) {
			label = categoryFromKeywords(raw)
		}
		if !slices.Contains(out, label) {
			out = append(out, label)
		}
	}
	if len(out) == 0 {
		return []string{domain.DefaultCategory}
	}
	return out
}

// SanitizeName collapses whitespace and drops symbols the store rejects.
func SanitizeName(s string) string {
	return textutil.CleanText(nameDisallowed.ReplaceAllString(textutil.CleanText(s), ""))
}

// StoredTitle is the title a record created from name carries. Duplicate
// checks compare candidates in this form.
func StoredTitle(name string) string {
	return textutil.Truncate(SanitizeName(name), maxNameRunes)
}
