package ingest

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/google/go-cmp/cmp"

	"CompetitionScanner/internal/domain"
)

func TestKeywordLabeler(t *testing.T) {
	t.Parallel()

	cases := []struct {
		title, desc string
		want        string
	}{
		{"Vibe Coding Night", "", domain.CategoryCoding},
		{"青少年编程挑战", "", domain.CategoryCoding},
		{"MCP Server Jam", "", domain.CategoryMCP},
		{"AI 短视频创作赛", "", domain.CategoryVideo},
		{"Agent Cup", "build an AI assistant", domain.CategoryAgent},
		{"智能体开发大赛", "", domain.CategoryAgent},
		{"Photo Walk", "landscapes", domain.CategoryOther},
	}

	for _, tc := range cases {
		got, err := KeywordLabeler{}.Classify(context.Background(), tc.title, tc.desc)
		if err != nil {
			t.Fatalf("%s: unexpected error %v", tc.title, err)
		}
		want := domain.Labels{Categories: []string{tc.want}, Difficulty: domain.DefaultDifficulty}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("%s (-want +got):\n%s", tc.title, diff)
		}
	}
}

func TestNormalizeDifficulty(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"L1":        "L1",
		"l3":        "L3",
		"难度：L4（专家）": "L4",
		"hard":      "L2",
		"":          "L2",
	}
	for in, want := range cases {
		if got := NormalizeDifficulty(in); got != want {
			t.Fatalf("NormalizeDifficulty(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalizeCategories(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   []string
		want []string
	}{
		{nil, []string{domain.CategoryOther}},
		{[]string{"", "  "}, []string{domain.CategoryOther}},
		{[]string{"MCP", "AI智能体"}, []string{"MCP", "AI智能体"}},
		{[]string{"coding", "Vibe Coding"}, []string{domain.CategoryCoding}},
		{[]string{"AI video generation"}, []string{domain.CategoryVideo}},
		{[]string{"robotics"}, []string{domain.CategoryOther}},
	}
	for _, tc := range cases {
		if diff := cmp.Diff(tc.want, NormalizeCategories(tc.in)); diff != "" {
			t.Fatalf("NormalizeCategories(%q) (-want +got):\n%s", tc.in, diff)
		}
	}
}

func TestSanitizeName(t *testing.T) {
	t.Parallel()

	got := SanitizeName("  2025 「星火」杯\t:AI  (Beta)! ")
	if want := "2025 星火杯 AI (Beta)!"; got != want {
		t.Fatalf("SanitizeName = %q, want %q", got, want)
	}
}

func TestStoredTitle(t *testing.T) {
	t.Parallel()

	if got := StoredTitle("AI+ Cup™"); got != "AI Cup" {
		t.Fatalf("StoredTitle = %q, want %q", got, "AI Cup")
	}
	long := StoredTitle(strings.Repeat("赛", maxNameRunes+20))
	if n := utf8.RuneCountInString(long); n != maxNameRunes {
		t.Fatalf("expected %d runes, got %d", maxNameRunes, n)
	}
}
