package session

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Verifier はアクセストークンの有効性を判定する。
// 判定できなかった場合はエラーを返す。
type Verifier interface {
	Verify(ctx context.Context, token string) (bool, error)
}

// VerifierFunc は関数をVerifierとして扱うアダプタ。
type VerifierFunc func(ctx context.Context, token string) (bool, error)

func (f VerifierFunc) Verify(ctx context.Context, token string) (bool, error) {
	return f(ctx, token)
}

// APIVerifier はバックエンドの/api/auth/verifyを呼び出して検証する。
type APIVerifier struct {
	baseURL    string
	httpClient *http.Client
}

// NewAPIVerifier はAPIVerifierを生成する。httpClientがnilの場合は10秒タイムアウトのクライアントを使う。
func NewAPIVerifier(baseURL string, httpClient *http.Client) *APIVerifier {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &APIVerifier{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

type verifyResponse struct {
	IsAuthenticated bool `json:"isAuthenticated"`
}

// Verify はトークンをBearerヘッダーで送る。
// 200かつisAuthenticated=trueなら有効、401なら無効、それ以外はエラー。
func (v *APIVerifier) Verify(ctx context.Context, token string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.baseURL+"/api/auth/verify", nil)
	if err != nil {
		return false, fmt.Errorf("failed to build verify request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("verify request failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var body verifyResponse
		if err := json.NewDecoder(io.LimitReader(resp.Body, 64*1024)).Decode(&body); err != nil {
			return false, fmt.Errorf("failed to decode verify response: %w", err)
		}
		return body.IsAuthenticated, nil
	case http.StatusUnauthorized:
		return false, nil
	default:
		return false, fmt.Errorf("verify returned status %d", resp.StatusCode)
	}
}
