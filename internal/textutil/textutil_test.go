package textutil

import "testing"

func TestTruncateCountsRunes(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		n    int
		want string
	}{
		{"人工智能大赛", 4, "人工智能"},
		{"short", 10, "short"},
		{"abc", 0, ""},
		{"abc", -1, ""},
	}
	for _, tc := range cases {
		if got := Truncate(tc.in, tc.n); got != tc.want {
			t.Fatalf("Truncate(%q, %d) = %q, want %q", tc.in, tc.n, got, tc.want)
		}
	}
}

func TestCleanText(t *testing.T) {
	t.Parallel()

	if got := CleanText("  AI \t Agent\n Cup "); got != "AI Agent Cup" {
		t.Fatalf("CleanText = %q", got)
	}
}
