package parser

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"CompetitionScanner/internal/domain"
	"CompetitionScanner/internal/scanner"
)

const (
	baiduSearchURL = "https://aistudio.baidu.com/studio/match/search"
	baiduDetailURL = "https://aistudio.baidu.com/studio/match/detail/"
)

// BaiduScanner reads open matches from the AI Studio search API.
type BaiduScanner struct {
	client *http.Client
	logger *slog.Logger
}

// NewBaiduScanner wires an HTTP client; nil gets a 30s timeout client.
func NewBaiduScanner(client *http.Client, logger *slog.Logger) *BaiduScanner {
	return &BaiduScanner{client: defaultClient(client), logger: orDiscard(logger)}
}

// Name identifies the strategy inside the registry.
func (b *BaiduScanner) Name() string {
	return "baidu"
}

type baiduPage struct {
	Result struct {
		Data []struct {
			ID        json.Number `json:"id"`
			MatchName string      `json:"matchName"`
			MatchAbs  string      `json:"matchAbs"`
		} `json:"data"`
	} `json:"result"`
}

// Scan pages through the search results until an empty page or MaxPages.
func (b *BaiduScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.Listing, error) {
	base := req.URL
	if base == "" {
		base = baiduSearchURL
	}
	detail := req.Option("detailUrl", baiduDetailURL)

	var results []domain.Listing
	for page := 1; page <= req.Pages(5); page++ {
		if page > 1 {
			if err := scanner.Pause(ctx, req.PageDelay); err != nil {
				return results, err
			}
		}

		pageURL, err := baiduPageURL(base, page)
		if err != nil {
			return results, err
		}

		var payload baiduPage
		if err := fetchJSON(ctx, b.client, pageURL, nil, &payload); err != nil {
			return results, fmt.Errorf("baidu page %d: %w", page, err)
		}
		if len(payload.Result.Data) == 0 {
			break
		}

		b.logger.Debug("baidu page", "page", page, "items", len(payload.Result.Data))
		for _, item := range payload.Result.Data {
			results = append(results, domain.Listing{
				Name:        strings.TrimSpace(item.MatchName),
				Link:        detail + item.ID.String(),
				Description: strings.TrimSpace(item.MatchAbs),
				Platform:    req.Platform,
			})
		}
	}
	return results, nil
}

func baiduPageURL(base string, page int) (string, error) {
	parsed, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid baidu url %s: %w", base, err)
	}
	query := parsed.Query()
	query.Set("pageSize", "10")
	query.Set("matchType", "0")
	query.Set("matchStatus", "1")
	query.Set("keyword", "")
	query.Set("orderBy", "0")
	query.Set("p", strconv.Itoa(page))
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

func orDiscard(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return logger
}
