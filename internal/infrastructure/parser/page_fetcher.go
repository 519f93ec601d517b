package parser

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"CompetitionScanner/internal/ports"
)

// HTTPPageFetcher returns the visible body text of a static page.
type HTTPPageFetcher struct {
	client    *http.Client
	userAgent string
}

var _ ports.PageFetcher = (*HTTPPageFetcher)(nil)

// NewHTTPPageFetcher wires an HTTP client; nil gets a 30s timeout client.
func NewHTTPPageFetcher(client *http.Client, userAgent string) *HTTPPageFetcher {
	return &HTTPPageFetcher{client: defaultClient(client), userAgent: userAgent}
}

// Text drops scripts and styles and joins the remaining text nodes.
func (f *HTTPPageFetcher) Text(ctx context.Context, pageURL string) (string, error) {
	var header http.Header
	if f.userAgent != "" {
		header = http.Header{"User-Agent": []string{f.userAgent}}
	}

	body, err := fetch(ctx, f.client, pageURL, header)
	if err != nil {
		return "", err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("parse document: %w", err)
	}
	return DocumentText(doc), nil
}

// DocumentText renders the body text of doc one line per block of whitespace.
func DocumentText(doc *goquery.Document) string {
	doc.Find("script, style, noscript").Remove()

	body := doc.Find("body")
	if body.Length() == 0 {
		body = doc.Selection
	}

	var lines []string
	for _, line := range strings.Split(body.Text(), "\n") {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}
