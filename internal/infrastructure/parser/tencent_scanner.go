package parser

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"CompetitionScanner/internal/domain"
	"CompetitionScanner/internal/scanner"
)

const (
	csdnBaseURL     = "https://blog.csdn.net"
	tencentBlogURL  = csdnBaseURL + "/QcloudCommunity/article/list"
	competitionMark = "赛"
)

// HTMLSource returns the rendered markup of a page.
type HTMLSource interface {
	HTML(ctx context.Context, url string) (string, error)
}

// TencentScanner reads the Tencent Cloud community blog list and keeps
// posts announcing competitions.
type TencentScanner struct {
	client *http.Client
	html   HTMLSource
	logger *slog.Logger
}

// NewTencentScanner fetches over plain HTTP unless html is set, e.g. to a
// headless browser for script-rendered lists.
func NewTencentScanner(client *http.Client, html HTMLSource, logger *slog.Logger) *TencentScanner {
	return &TencentScanner{client: defaultClient(client), html: html, logger: orDiscard(logger)}
}

// Name identifies the strategy inside the registry.
func (s *TencentScanner) Name() string {
	return "tencent"
}

// Scan walks list pages /list, /list/2, ... up to MaxPages.
func (s *TencentScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.Listing, error) {
	base := req.URL
	if base == "" {
		base = tencentBlogURL
	}
	base = strings.TrimSuffix(base, "/")

	var results []domain.Listing
	seen := map[string]struct{}{}
	for page := 1; page <= req.Pages(1); page++ {
		pageURL := base
		if page > 1 {
			if err := scanner.Pause(ctx, req.PageDelay); err != nil {
				return results, err
			}
			pageURL = base + "/" + strconv.Itoa(page)
		}

		doc, err := s.document(ctx, pageURL)
		if err != nil {
			return results, fmt.Errorf("tencent page %d: %w", page, err)
		}

		items := extractBlogPosts(doc, req.Platform)
		s.logger.Debug("tencent page", "page", page, "competitions", len(items))
		if len(items) == 0 && doc.Find("div.article-item-box").Length() == 0 {
			break
		}
		for _, item := range items {
			if _, ok := seen[item.Link]; ok {
				continue
			}
			seen[item.Link] = struct{}{}
			results = append(results, item)
		}
	}
	return results, nil
}

func (s *TencentScanner) document(ctx context.Context, pageURL string) (*goquery.Document, error) {
	if s.html != nil {
		markup, err := s.html.HTML(ctx, pageURL)
		if err != nil {
			return nil, err
		}
		return goquery.NewDocumentFromReader(strings.NewReader(markup))
	}

	body, err := fetch(ctx, s.client, pageURL, nil)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return doc, nil
}

func extractBlogPosts(doc *goquery.Document, platform string) []domain.Listing {
	var out []domain.Listing

	posts := doc.Find("div.article-item-box")
	if posts.Length() == 0 {
		posts = doc.Find("article, div.article")
	}

	posts.Each(func(_ int, post *goquery.Selection) {
		title := post.Find("h4, h3, h2, a.title").First()
		name := strings.Join(strings.Fields(title.Text()), " ")
		if !strings.Contains(name, competitionMark) {
			return
		}

		anchor := title
		if goquery.NodeName(title) != "a" {
			anchor = title.Find("a").First()
		}
		href, ok := anchor.Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			return
		}
		href = strings.TrimSpace(href)
		if !strings.HasPrefix(href, "http") {
			href = csdnBaseURL + href
		}

		intro := post.Find("p.content, div.summary").First().Text()

		out = append(out, domain.Listing{
			Name:        name,
			Link:        href,
			Description: strings.Join(strings.Fields(intro), " "),
			Platform:    platform,
		})
	})
	return out
}
