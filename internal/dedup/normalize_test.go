package dedup

import "testing"

func TestNormalize(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"":                           "",
		"AI Hackathon Challenge":     "ai",
		"ai-hackathon":               "ai",
		"Foo Contest 2024":           "foo2024",
		"第三届 AI 创新大赛":                "第三届ai创新",
		"Data_Science — Competition": "datascience",
		"  Vision: Track A!  ":       "visiontracka",
	}

	for in, want := range cases {
		if got := Normalize(in); got != want {
			t.Fatalf("Normalize(%q): expected %q, got %q", in, want, got)
		}
	}
}

func TestSimilaritySuffixOnlyDifference(t *testing.T) {
	t.Parallel()

	if got := Similarity("AI Hackathon Challenge", "ai-hackathon"); got < 0.8 {
		t.Fatalf("expected similarity >= 0.8, got %.2f", got)
	}
}

func TestSimilarityBounds(t *testing.T) {
	t.Parallel()

	if got := Similarity("Contest", "Robotics Cup"); got != 0 {
		t.Fatalf("expected 0 when one side normalizes to empty, got %.2f", got)
	}
	if got := Similarity("Robotics Cup", "Robotics Cup"); got != 1 {
		t.Fatalf("expected 1 for identical titles, got %.2f", got)
	}

	got := Similarity("Robotics Cup 2025", "Quantum Chess Open")
	if got < 0 || got >= 0.5 {
		t.Fatalf("expected low similarity for unrelated titles, got %.2f", got)
	}
}
