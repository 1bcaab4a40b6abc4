// Package pinterest はPinterest API v5との連携機能を提供する。
// OAuth 2.0の認可コード交換、トークン検証、ボード・ピンの取得を含む。
package pinterest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hitoshi/moodboard/internal/metrics"
)

const (
	// DefaultAPIURL はPinterest API v5のベースURL。
	DefaultAPIURL = "https://api.pinterest.com/v5"
	// DefaultPageSize はボード・ピン一覧の1ページあたりの件数（APIの上限）。
	DefaultPageSize = 100
	// maxResponseSize はレスポンスボディの最大読み取りサイズ。
	maxResponseSize = 10 * 1024 * 1024
)

// メトリクスのendpointラベル
const (
	endpointUserAccount = "user_account"
	endpointBoards      = "boards"
	endpointBoardPins   = "board_pins"
	endpointOAuthToken  = "oauth_token"
)

// StatusError はPinterest APIが2xx以外を返したことを表す。
type StatusError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("pinterest %s returned status %d", e.Endpoint, e.StatusCode)
}

// IsUnauthorized はトークンの無効・権限不足を示すステータスかどうかを返す。
func (e *StatusError) IsUnauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// Board はPinterestのボードを表す。
type Board struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Privacy     string `json:"privacy,omitempty"`
}

// UserAccount は/user_accountの応答のうち利用する項目。
type UserAccount struct {
	Username    string `json:"username"`
	AccountType string `json:"account_type"`
}

// listResponse はPinterest APIの一覧系レスポンス。
// bookmarkは次ページのカーソルだが、先頭ページのみ取得するため参照しない。
type listResponse[T any] struct {
	Items    []T     `json:"items"`
	Bookmark *string `json:"bookmark"`
}

// Client はPinterest APIのクライアント。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	metrics    metrics.MetricsCollector
	baseURL    string // テスト用にエンドポイントを差し替え可能
	pageSize   int
}

// NewClient はClientの新しいインスタンスを生成する。
// baseURLが空の場合はDefaultAPIURL、pageSizeが0以下の場合はDefaultPageSizeを使う。
func NewClient(httpClient *http.Client, logger *slog.Logger, collector metrics.MetricsCollector, baseURL string, pageSize int) *Client {
	if baseURL == "" {
		baseURL = DefaultAPIURL
	}
	if pageSize <= 0 || pageSize > DefaultPageSize {
		pageSize = DefaultPageSize
	}
	if collector == nil {
		collector = metrics.Nop{}
	}
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		metrics:    collector,
		baseURL:    strings.TrimRight(baseURL, "/"),
		pageSize:   pageSize,
	}
}

// GetUserAccount はトークン所有者のアカウント情報を取得する。
// トークン検証にも使用する。
func (c *Client) GetUserAccount(ctx context.Context, accessToken string) (*UserAccount, error) {
	var account UserAccount
	if err := c.getJSON(ctx, accessToken, endpointUserAccount, "/user_account", nil, &account); err != nil {
		return nil, err
	}
	return &account, nil
}

// ListBoards はユーザーのボード一覧の先頭ページを取得する。
func (c *Client) ListBoards(ctx context.Context, accessToken string) ([]Board, error) {
	var resp listResponse[Board]
	q := url.Values{"page_size": {strconv.Itoa(c.pageSize)}}
	if err := c.getJSON(ctx, accessToken, endpointBoards, "/user_account/boards", q, &resp); err != nil {
		return nil, err
	}
	if resp.Items == nil {
		return []Board{}, nil
	}
	return resp.Items, nil
}

// ListBoardPins は指定ボードのピン一覧の先頭ページを取得する。
// ピンはプロバイダーのJSONをそのまま返す。
func (c *Client) ListBoardPins(ctx context.Context, accessToken, boardID string) ([]json.RawMessage, error) {
	if boardID == "" {
		return nil, errors.New("board id is empty")
	}
	var resp listResponse[json.RawMessage]
	q := url.Values{"page_size": {strconv.Itoa(c.pageSize)}}
	path := "/boards/" + url.PathEscape(boardID) + "/pins"
	if err := c.getJSON(ctx, accessToken, endpointBoardPins, path, q, &resp); err != nil {
		return nil, err
	}
	if resp.Items == nil {
		return []json.RawMessage{}, nil
	}
	return resp.Items, nil
}

// getJSON はベアラートークン付きでGETし、2xxの応答をoutにデコードする。
func (c *Client) getJSON(ctx context.Context, accessToken, endpoint, path string, query url.Values, out any) error {
	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.RecordProviderFailure(endpoint)
		c.logger.Error("Pinterest APIの呼び出しに失敗しました",
			slog.String("endpoint", endpoint),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("pinterest %s request failed: %w", endpoint, err)
	}
	defer resp.Body.Close()
	c.metrics.RecordProviderRequest(endpoint, resp.StatusCode, time.Since(start))

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn("Pinterest APIがエラーステータスを返しました",
			slog.String("endpoint", endpoint),
			slog.Int("http_status", resp.StatusCode),
			slog.String("body", truncate(string(body), 512)),
		)
		return &StatusError{Endpoint: endpoint, StatusCode: resp.StatusCode, Body: string(body)}
	}

	if err := json.Unmarshal(body, out); err != nil {
		c.logger.Error("Pinterest APIのレスポンスのパースに失敗しました",
			slog.String("endpoint", endpoint),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("レスポンスJSONのパースに失敗しました: %w", err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
