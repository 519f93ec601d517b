package parser

import (
	"context"
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
	wechatAppMsgURL  = "https://mp.weixin.qq.com/cgi-bin/appmsg"
	wechatPageLength = 5
)

// WechatScanner lists articles of one official account through the mp
// backend and keeps those announcing competitions. It needs the fakeid,
// token and cookie site options of a logged-in session.
type WechatScanner struct {
	client *http.Client
	logger *slog.Logger
}

// NewWechatScanner wires an HTTP client; nil gets a 30s timeout client.
func NewWechatScanner(client *http.Client, logger *slog.Logger) *WechatScanner {
	return &WechatScanner{client: defaultClient(client), logger: orDiscard(logger)}
}

// Name identifies the strategy inside the registry.
func (w *WechatScanner) Name() string {
	return "wechat"
}

type appMsgPage struct {
	BaseResp struct {
		Ret    int    `json:"ret"`
		ErrMsg string `json:"err_msg"`
	} `json:"base_resp"`
	AppMsgList []struct {
		Title      string `json:"title"`
		Link       string `json:"link"`
		Digest     string `json:"digest"`
		CreateTime int64  `json:"create_time"`
	} `json:"app_msg_list"`
}

// Scan pages by five until a short page or MaxPages.
func (w *WechatScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.Listing, error) {
	fakeID := req.Option("fakeid", "")
	token := req.Option("token", "")
	cookie := req.Option("cookie", "")
	if fakeID == "" || token == "" || cookie == "" {
		return nil, fmt.Errorf("wechat site %s: fakeid, token and cookie options: %w", req.SiteName, domain.ErrNotConfigured)
	}

	base := req.URL
	if base == "" {
		base = wechatAppMsgURL
	}
	header := http.Header{}
	header.Set("Cookie", cookie)

	var results []domain.Listing
	for page := 0; page < req.Pages(3); page++ {
		if page > 0 {
			if err := scanner.Pause(ctx, req.PageDelay); err != nil {
				return results, err
			}
		}

		pageURL, err := appMsgURL(base, fakeID, token, page*wechatPageLength)
		if err != nil {
			return results, err
		}

		var payload appMsgPage
		if err := fetchJSON(ctx, w.client, pageURL, header, &payload); err != nil {
			return results, fmt.Errorf("wechat page %d: %w", page+1, err)
		}
		if payload.BaseResp.Ret != 0 {
			return results, fmt.Errorf("wechat page %d: ret %d %s", page+1, payload.BaseResp.Ret, payload.BaseResp.ErrMsg)
		}

		w.logger.Debug("wechat page", "page", page+1, "items", len(payload.AppMsgList))
		for _, item := range payload.AppMsgList {
			if !strings.Contains(item.Title, competitionMark) || item.Link == "" {
				continue
			}
			results = append(results, domain.Listing{
				Name:        strings.TrimSpace(item.Title),
				Link:        item.Link,
				Description: strings.TrimSpace(item.Digest),
				Platform:    req.Platform,
			})
		}

		if len(payload.AppMsgList) < wechatPageLength {
			break
		}
	}
	return results, nil
}

func appMsgURL(base, fakeID, token string, begin int) (string, error) {
	parsed, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid wechat url %s: %w", base, err)
	}
	query := parsed.Query()
	query.Set("action", "list_ex")
	query.Set("begin", strconv.Itoa(begin))
	query.Set("count", strconv.Itoa(wechatPageLength))
	query.Set("fakeid", fakeID)
	query.Set("type", "9")
	query.Set("query", "")
	query.Set("token", token)
	query.Set("lang", "zh_CN")
	query.Set("f", "json")
	query.Set("ajax", "1")
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}
