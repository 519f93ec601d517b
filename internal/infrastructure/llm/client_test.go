package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"CompetitionScanner/internal/config"
	"CompetitionScanner/internal/domain"
)

func TestNewClientRequiresKey(t *testing.T) {
	t.Parallel()

	if _, err := NewClient(config.ClassifierConfig{Model: "deepseek-chat"}); !errors.Is(err, domain.ErrNotConfigured) {
		t.Fatalf("expected not configured, got %v", err)
	}
}

func TestClientCompleteAgainstChatEndpoint(t *testing.T) {
	t.Parallel()

	var got struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string          `json:"role"`
			Content json.RawMessage `json:"content"`
		} `json:"messages"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer secret" {
			t.Errorf("unexpected auth header %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1700000000,
			"model": "deepseek-chat",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "{\"is_duplicate\": false}"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
		}`))
	}))
	defer server.Close()

	client, err := NewClient(config.ClassifierConfig{
		BaseURL:     server.URL,
		Model:       "deepseek-chat",
		APIKey:      "secret",
		Temperature: 0.1,
		Timeout:     5 * time.Second,
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	reply, err := client.Complete(context.Background(), "hello", 100)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if reply != `{"is_duplicate": false}` {
		t.Fatalf("unexpected reply %q", reply)
	}
	if got.Model != "deepseek-chat" || len(got.Messages) != 1 || got.Messages[0].Role != "user" {
		t.Fatalf("unexpected request: %+v", got)
	}
	if !strings.Contains(string(got.Messages[0].Content), "hello") {
		t.Fatalf("prompt missing from request: %s", got.Messages[0].Content)
	}
}
