// Package feishu stores competitions in a Feishu (Lark) bitable.
package feishu

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"CompetitionScanner/internal/config"
	"CompetitionScanner/internal/domain"
	"CompetitionScanner/internal/ports"
	"CompetitionScanner/internal/textutil"
)

// Column names of the competition table.
const (
	colName        = "比赛名称"
	colLink        = "比赛链接"
	colStatus      = "比赛状态"
	colDifficulty  = "难度等级"
	colCategories  = "比赛类型"
	colPlatform    = "平台"
	colDescription = "比赛描述"
)

// Status values as the table stores them.
const (
	statusOngoing = "进行中"
	statusEnded   = "已结束"
)

const (
	maxLinkTextRunes = 100
	maxPageSize      = 500
)

// Token error codes returned with a non-401 status.
var authCodes = map[int]bool{99991661: true, 99991663: true, 99991668: true}

// Client implements ports.RecordStore against the bitable REST API.
type Client struct {
	baseURL   string
	appID     string
	appSecret string
	appToken  string
	tableID   string
	http      *http.Client
	logger    *slog.Logger
}

var _ ports.RecordStore = (*Client)(nil)

// NewClient builds a client from configuration.
func NewClient(cfg config.FeishuConfig, logger *slog.Logger) (*Client, error) {
	if cfg.AppID == "" || cfg.AppSecret == "" {
		return nil, fmt.Errorf("feishu app id and secret: %w", domain.ErrNotConfigured)
	}
	if cfg.AppToken == "" || cfg.TableID == "" {
		return nil, fmt.Errorf("feishu app token and table id: %w", domain.ErrNotConfigured)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	base := strings.TrimSuffix(cfg.BaseURL, "/")
	if base == "" {
		base = "https://open.feishu.cn"
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Client{
		baseURL:   base,
		appID:     cfg.AppID,
		appSecret: cfg.AppSecret,
		appToken:  cfg.AppToken,
		tableID:   cfg.TableID,
		http:      &http.Client{Timeout: timeout},
		logger:    logger,
	}, nil
}

type envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

type record struct {
	RecordID string                     `json:"record_id"`
	Fields   map[string]json.RawMessage `json:"fields"`
}

// Search finds records whose column equals value.
func (c *Client) Search(ctx context.Context, field domain.Field, value string) ([]domain.Competition, error) {
	column, err := columnFor(field)
	if err != nil {
		return nil, err
	}

	body := map[string]any{
		"filter": map[string]any{
			"conjunction": "and",
			"conditions": []map[string]any{
				{"field_name": column, "operator": "is", "value": []string{value}},
			},
		},
	}

	var data struct {
		Items []record `json:"items"`
	}
	if err := c.call(ctx, http.MethodPost, c.recordsPath("search"), body, &data); err != nil {
		return nil, fmt.Errorf("search %s: %w", column, err)
	}

	out := make([]domain.Competition, 0, len(data.Items))
	for _, item := range data.Items {
		out = append(out, toCompetition(item))
	}
	return out, nil
}

// Create inserts rec and returns the record id.
func (c *Client) Create(ctx context.Context, rec domain.Competition) (string, error) {
	var data struct {
		Record record `json:"record"`
	}
	if err := c.call(ctx, http.MethodPost, c.recordsPath(""), map[string]any{"fields": toFields(rec)}, &data); err != nil {
		return "", fmt.Errorf("create record: %w", err)
	}
	return data.Record.RecordID, nil
}

// Update applies patch to the record with id.
func (c *Client) Update(ctx context.Context, id string, patch domain.Patch) error {
	fields := map[string]any{}
	if patch.Status != nil {
		fields[colStatus] = statusToWire(*patch.Status)
	}
	if len(fields) == 0 {
		return nil
	}
	if err := c.call(ctx, http.MethodPut, c.recordsPath(url.PathEscape(id)), map[string]any{"fields": fields}, nil); err != nil {
		return fmt.Errorf("update record %s: %w", id, err)
	}
	return nil
}

// ListAll follows page tokens until the table is exhausted.
func (c *Client) ListAll(ctx context.Context, pageSize int) ([]domain.Competition, error) {
	if pageSize <= 0 || pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	var (
		out       []domain.Competition
		pageToken string
	)
	for {
		query := url.Values{}
		query.Set("page_size", strconv.Itoa(pageSize))
		if pageToken != "" {
			query.Set("page_token", pageToken)
		}

		var data struct {
			Items     []record `json:"items"`
			PageToken string   `json:"page_token"`
			HasMore   bool     `json:"has_more"`
		}
		if err := c.call(ctx, http.MethodGet, c.recordsPath("")+"?"+query.Encode(), nil, &data); err != nil {
			return nil, fmt.Errorf("list records: %w", err)
		}
		for _, item := range data.Items {
			out = append(out, toCompetition(item))
		}
		c.logger.Debug("listed records page", "count", len(data.Items), "has_more", data.HasMore)

		if !data.HasMore || data.PageToken == "" {
			return out, nil
		}
		pageToken = data.PageToken
	}
}

func (c *Client) recordsPath(suffix string) string {
	path := fmt.Sprintf("/open-apis/bitable/v1/apps/%s/tables/%s/records", url.PathEscape(c.appToken), url.PathEscape(c.tableID))
	if suffix != "" {
		path += "/" + suffix
	}
	return path
}

// tenantToken exchanges the app credentials for a short-lived token.
func (c *Client) tenantToken(ctx context.Context) (string, error) {
	payload := map[string]string{"app_id": c.appID, "app_secret": c.appSecret}

	var resp struct {
		Code              int    `json:"code"`
		Msg               string `json:"msg"`
		TenantAccessToken string `json:"tenant_access_token"`
	}
	raw, err := c.send(ctx, http.MethodPost, "/open-apis/auth/v3/tenant_access_token/internal/", "", payload)
	if err != nil {
		return "", fmt.Errorf("tenant token: %w", err)
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", fmt.Errorf("tenant token: %w: %v", domain.ErrParse, err)
	}
	if resp.Code != 0 || resp.TenantAccessToken == "" {
		return "", fmt.Errorf("tenant token: %w: code %d %s", domain.ErrAuth, resp.Code, resp.Msg)
	}
	return resp.TenantAccessToken, nil
}

// call runs one authenticated request and decodes the envelope data into out.
func (c *Client) call(ctx context.Context, method, path string, body, out any) error {
	token, err := c.tenantToken(ctx)
	if err != nil {
		return err
	}

	raw, err := c.send(ctx, method, path, token, body)
	if err != nil {
		return err
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("%w: decode response: %v", domain.ErrParse, err)
	}
	if env.Code != 0 {
		if authCodes[env.Code] {
			return fmt.Errorf("%w: code %d %s", domain.ErrAuth, env.Code, env.Msg)
		}
		return fmt.Errorf("feishu code %d: %s", env.Code, env.Msg)
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("%w: decode data: %v", domain.ErrParse, err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, path, token string, body any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%w: %v", domain.ErrTransient, err)
		}
		return nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, fmt.Errorf("%w: %s", domain.ErrAuth, resp.Status)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError:
		return nil, fmt.Errorf("%w: %s", domain.ErrTransient, resp.Status)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("feishu error %s: %s", resp.Status, snippet(payload))
	}
	return payload, nil
}

func columnFor(field domain.Field) (string, error) {
	switch field {
	case domain.FieldTitle:
		return colName, nil
	case domain.FieldLink:
		return colLink, nil
	default:
		return "", fmt.Errorf("%w: unsearchable field %q", domain.ErrValidation, field)
	}
}

func toFields(rec domain.Competition) map[string]any {
	fields := map[string]any{
		colName: rec.Title,
		colLink: map[string]string{
			"text": textutil.Truncate(rec.Title, maxLinkTextRunes),
			"link": rec.Link,
		},
		colStatus:     statusToWire(rec.Status),
		colDifficulty: []string{rec.Difficulty},
		colCategories: rec.Categories,
	}
	if rec.Platform != "" {
		fields[colPlatform] = rec.Platform
	}
	if rec.Description != "" {
		fields[colDescription] = rec.Description
	}
	return fields
}

func toCompetition(r record) domain.Competition {
	return domain.Competition{
		ID:          r.RecordID,
		Title:       textValue(r.Fields[colName]),
		Link:        linkValue(r.Fields[colLink]),
		Status:      statusFromWire(textValue(r.Fields[colStatus])),
		Categories:  listValue(r.Fields[colCategories]),
		Difficulty:  firstOf(listValue(r.Fields[colDifficulty])),
		Platform:    textValue(r.Fields[colPlatform]),
		Description: textValue(r.Fields[colDescription]),
	}
}

func statusToWire(s domain.Status) string {
	if s == domain.StatusEnded {
		return statusEnded
	}
	return statusOngoing
}

func statusFromWire(s string) domain.Status {
	if s == statusEnded {
		return domain.StatusEnded
	}
	return domain.StatusOngoing
}

// textValue accepts a plain string or a rich-text segment list.
func textValue(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var segments []struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &segments); err == nil {
		var b strings.Builder
		for _, seg := range segments {
			b.WriteString(seg.Text)
		}
		return b.String()
	}
	return ""
}

func linkValue(raw json.RawMessage) string {
	var link struct {
		Link string `json:"link"`
	}
	if err := json.Unmarshal(raw, &link); err == nil && link.Link != "" {
		return link.Link
	}
	return textValue(raw)
}

func listValue(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}
	if s := textValue(raw); s != "" {
		return []string{s}
	}
	return nil
}

func firstOf(list []string) string {
	if len(list) == 0 {
		return ""
	}
	return list[0]
}

func snippet(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > 256 {
		s = s[:256]
	}
	return s
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
