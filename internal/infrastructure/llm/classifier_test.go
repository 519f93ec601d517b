package llm

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"CompetitionScanner/internal/domain"
)

type fakeCompleter struct {
	reply     string
	err       error
	prompt    string
	maxTokens int
}

func (f *fakeCompleter) Complete(_ context.Context, prompt string, maxTokens int) (string, error) {
	f.prompt = prompt
	f.maxTokens = maxTokens
	return f.reply, f.err
}

func TestClassifyParsesFencedReply(t *testing.T) {
	t.Parallel()

	llm := &fakeCompleter{reply: "```json\n{\"competition_types\": [\"AI智能体\", \"MCP\"], \"difficulty_level\": \"L3\"}\n```"}
	c := NewClassifier(llm, nil)

	got, err := c.Classify(context.Background(), "智能体挑战赛", "构建多智能体系统")
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	want := domain.Labels{Categories: []string{"AI智能体", "MCP"}, Difficulty: "L3"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected labels (-want +got):\n%s", diff)
	}
	if !strings.Contains(llm.prompt, "比赛名称：智能体挑战赛") || llm.maxTokens != labelMaxTokens {
		t.Fatalf("unexpected prompt or budget: %d\n%s", llm.maxTokens, llm.prompt)
	}
}

func TestClassifyMalformedReplyIsParseError(t *testing.T) {
	t.Parallel()

	c := NewClassifier(&fakeCompleter{reply: "I cannot decide."}, nil)
	if _, err := c.Classify(context.Background(), "x", "y"); !errors.Is(err, domain.ErrParse) {
		t.Fatalf("expected parse error, got %v", err)
	}
}

func TestClassifyPropagatesTransportError(t *testing.T) {
	t.Parallel()

	c := NewClassifier(&fakeCompleter{err: domain.ErrTransient}, nil)
	if _, err := c.Classify(context.Background(), "x", "y"); !errors.Is(err, domain.ErrTransient) {
		t.Fatalf("expected transient error, got %v", err)
	}
}

func TestClassifyWithoutCompleter(t *testing.T) {
	t.Parallel()

	c := NewClassifier(nil, nil)
	if _, err := c.Classify(context.Background(), "x", "y"); !errors.Is(err, domain.ErrNotConfigured) {
		t.Fatalf("expected not configured, got %v", err)
	}
}

func TestDetectDuplicate(t *testing.T) {
	t.Parallel()

	llm := &fakeCompleter{reply: `Here is my analysis: {"is_duplicate": true, "confidence": 1.4, "most_similar_title": "Robotics Cup", "reason": "same organizer"} Hope it helps.`}
	c := NewClassifier(llm, nil)

	sample := []domain.Competition{
		{Title: "Robotics Cup", Description: strings.Repeat("长", 150)},
		{Title: ""},
	}
	got, err := c.DetectDuplicate(context.Background(), "Robotics Cup 2025", "robots", sample)
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	want := domain.Verdict{IsDuplicate: true, Confidence: 1, MostSimilarTitle: "Robotics Cup", Reason: "same organizer"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected verdict (-want +got):\n%s", diff)
	}
	if strings.Contains(llm.prompt, strings.Repeat("长", 101)) {
		t.Fatalf("expected sample descriptions truncated to 100 runes")
	}
	if !strings.Contains(llm.prompt, "标题: Robotics Cup\n") || llm.maxTokens != duplicateMaxTokens {
		t.Fatalf("unexpected prompt:\n%s", llm.prompt)
	}
}
