//go:build e2e

package browser

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestChromeRendererRunsScripts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><div id="app"></div>
			<script>document.getElementById("app").innerText = "截止日期：2025-09-30";</script>
		</body></html>`)
	}))
	defer server.Close()

	r := NewChromeRenderer(30*time.Second, "", nil)
	r.settle = 0
	defer r.Close()

	text, err := r.Text(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("text: %v", err)
	}
	if !strings.Contains(text, "截止日期：2025-09-30") {
		t.Fatalf("script output missing from %q", text)
	}

	markup, err := r.HTML(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("html: %v", err)
	}
	if !strings.Contains(markup, `id="app"`) {
		t.Fatalf("unexpected markup %q", markup)
	}
}
