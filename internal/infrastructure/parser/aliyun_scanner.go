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
	"time"

	"CompetitionScanner/internal/domain"
	"CompetitionScanner/internal/scanner"
)

const (
	tianchiRaceURL     = "https://tianchi.aliyun.com/v3/proxy/competition/api/race/page"
	tianchiEntranceURL = "https://tianchi.aliyun.com/competition/entrance/"
)

// AliyunScanner reads races from the Tianchi race API, which also reports dates.
type AliyunScanner struct {
	client *http.Client
	logger *slog.Logger
}

// NewAliyunScanner wires an HTTP client; nil gets a 30s timeout client.
func NewAliyunScanner(client *http.Client, logger *slog.Logger) *AliyunScanner {
	return &AliyunScanner{client: defaultClient(client), logger: orDiscard(logger)}
}

// Name identifies the strategy inside the registry.
func (a *AliyunScanner) Name() string {
	return "aliyun"
}

type tianchiPage struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    struct {
		List []struct {
			RaceID       json.Number `json:"raceId"`
			Name         string      `json:"name"`
			Introduction string      `json:"introduction"`
			GmtStart     *int64      `json:"gmtStart"`
			GmtEnd       *int64      `json:"gmtEnd"`
		} `json:"list"`
	} `json:"data"`
}

// Scan pages through the race list until an empty page or MaxPages.
func (a *AliyunScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.Listing, error) {
	base := req.URL
	if base == "" {
		base = tianchiRaceURL
	}
	entrance := req.Option("entranceUrl", tianchiEntranceURL)

	var results []domain.Listing
	for page := 1; page <= req.Pages(5); page++ {
		if page > 1 {
			if err := scanner.Pause(ctx, req.PageDelay); err != nil {
				return results, err
			}
		}

		pageURL, err := tianchiPageURL(base, page)
		if err != nil {
			return results, err
		}

		var payload tianchiPage
		if err := fetchJSON(ctx, a.client, pageURL, nil, &payload); err != nil {
			return results, fmt.Errorf("tianchi page %d: %w", page, err)
		}
		if !payload.Success {
			return results, fmt.Errorf("tianchi page %d: api error: %s", page, payload.Message)
		}
		if len(payload.Data.List) == 0 {
			break
		}

		a.logger.Debug("tianchi page", "page", page, "items", len(payload.Data.List))
		for _, item := range payload.Data.List {
			results = append(results, domain.Listing{
				Name:        strings.TrimSpace(item.Name),
				Link:        entrance + item.RaceID.String() + "/introduction",
				Description: strings.TrimSpace(item.Introduction),
				Platform:    req.Platform,
				Start:       fromMillis(item.GmtStart),
				End:         fromMillis(item.GmtEnd),
			})
		}
	}
	return results, nil
}

func tianchiPageURL(base string, page int) (string, error) {
	parsed, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid tianchi url %s: %w", base, err)
	}
	query := parsed.Query()
	query.Set("visualTab", "")
	query.Set("raceName", "")
	query.Set("isActive", "")
	query.Set("pageNum", strconv.Itoa(page))
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

func fromMillis(ms *int64) *time.Time {
	if ms == nil || *ms <= 0 {
		return nil
	}
	t := time.UnixMilli(*ms)
	return &t
}
