package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"CompetitionScanner/internal/config"
	"CompetitionScanner/internal/domain"
)

func TestPublishDigest(t *testing.T) {
	t.Parallel()

	var chat, text string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/bot123:abc/sendMessage" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		chat, text = r.PostForm.Get("chat_id"), r.PostForm.Get("text")
		fmt.Fprint(w, `{"ok":true,"result":{}}`)
	}))
	defer server.Close()

	n := NewNotifier(config.TelegramConfig{BotToken: "123:abc", ChatID: "-100", APIBase: server.URL})
	if err := n.PublishDigest(context.Background(), "created: 3"); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if chat != "-100" || text != "created: 3" {
		t.Fatalf("unexpected form chat=%q text=%q", chat, text)
	}
}

func TestPublishDigestErrors(t *testing.T) {
	t.Parallel()

	if err := NewNotifier(config.TelegramConfig{}).PublishDigest(context.Background(), "x"); !errors.Is(err, domain.ErrNotConfigured) {
		t.Fatalf("expected not configured, got %v", err)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"ok":false,"description":"Unauthorized"}`)
	}))
	defer server.Close()

	n := NewNotifier(config.TelegramConfig{BotToken: "bad", ChatID: "1", APIBase: server.URL})
	if err := n.PublishDigest(context.Background(), "x"); !errors.Is(err, domain.ErrAuth) {
		t.Fatalf("expected auth error, got %v", err)
	}
}

func TestPublishDigestRejectsUnreadableReply(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html>gateway</html>`)
	}))
	defer server.Close()

	n := NewNotifier(config.TelegramConfig{BotToken: "123:abc", ChatID: "1", APIBase: server.URL})
	if err := n.PublishDigest(context.Background(), "x"); !errors.Is(err, domain.ErrParse) {
		t.Fatalf("expected parse error, got %v", err)
	}
}
