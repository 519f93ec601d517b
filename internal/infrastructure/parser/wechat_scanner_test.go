package parser

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"

	"CompetitionScanner/internal/domain"
	"CompetitionScanner/internal/scanner"
)

func TestWechatScannerRequiresSession(t *testing.T) {
	t.Parallel()

	s := NewWechatScanner(nil, nil)
	_, err := s.Scan(context.Background(), scanner.Request{SiteName: "wechat-mp"})
	if !errors.Is(err, domain.ErrNotConfigured) {
		t.Fatalf("expected not configured, got %v", err)
	}
}

func TestWechatScannerPagesUntilShortPage(t *testing.T) {
	t.Parallel()

	var begins []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if r.Header.Get("Cookie") != "slave_sid=abc" || q.Get("token") != "42" || q.Get("fakeid") != "MzA" {
			t.Errorf("missing session: cookie=%q query=%s", r.Header.Get("Cookie"), r.URL.RawQuery)
		}
		begins = append(begins, q.Get("begin"))
		if q.Get("begin") == "0" {
			fmt.Fprint(w, `{"base_resp":{"ret":0},"app_msg_list":[
				{"title":"AI 创作大赛来了","link":"https://mp.weixin.qq.com/s/a","digest":"报名时间：即日起-9月30日"},
				{"title":"周报","link":"https://mp.weixin.qq.com/s/b"},
				{"title":"周报","link":"https://mp.weixin.qq.com/s/c"},
				{"title":"周报","link":"https://mp.weixin.qq.com/s/d"},
				{"title":"编程挑战赛","link":"https://mp.weixin.qq.com/s/e"}
			]}`)
			return
		}
		fmt.Fprint(w, `{"base_resp":{"ret":0},"app_msg_list":[{"title":"黑客松比赛","link":"https://mp.weixin.qq.com/s/f"}]}`)
	}))
	defer server.Close()

	s := NewWechatScanner(server.Client(), nil)
	got, err := s.Scan(context.Background(), scanner.Request{
		URL:      server.URL,
		Platform: "wechat",
		MaxPages: 5,
		Options:  map[string]string{"fakeid": "MzA", "token": "42", "cookie": "slave_sid=abc"},
	})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}

	var links []string
	for _, l := range got {
		links = append(links, l.Link)
	}
	want := []string{"https://mp.weixin.qq.com/s/a", "https://mp.weixin.qq.com/s/e", "https://mp.weixin.qq.com/s/f"}
	if diff := cmp.Diff(want, links); diff != "" {
		t.Fatalf("unexpected links (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"0", "5"}, begins); diff != "" {
		t.Fatalf("unexpected pages (-want +got):\n%s", diff)
	}
}

func TestWechatScannerSessionError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"base_resp":{"ret":200003,"err_msg":"invalid session"}}`)
	}))
	defer server.Close()

	s := NewWechatScanner(server.Client(), nil)
	_, err := s.Scan(context.Background(), scanner.Request{
		URL:     server.URL,
		Options: map[string]string{"fakeid": "x", "token": "y", "cookie": "z"},
	})
	if err == nil {
		t.Fatalf("expected session error")
	}
}
