// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"mime"
	"net/http"
	"strings"

	"github.com/hitoshi/moodboard/internal/auth"
	"github.com/hitoshi/moodboard/internal/middleware"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	LoginURL(returnTo string) string
	HandleCallback(ctx context.Context, code, state string) (*auth.CallbackResult, error)
	Verify(ctx context.Context, accessToken string) bool
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	CookieDomain string
}

// AuthHandler はOAuth認証関連のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
	config  AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, config AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{
		service: service,
		config:  config,
	}
}

// tokenResponse はformat=json指定時のコールバックレスポンス。
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// verifyResponse はトークン検証のレスポンス。
type verifyResponse struct {
	IsAuthenticated bool   `json:"isAuthenticated"`
	Message         string `json:"message,omitempty"`
	Error           string `json:"error,omitempty"`
}

// Login はPinterest OAuthフローを開始する。
// GET /api/auth/login?returnTo=<url>
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	returnTo := r.URL.Query().Get("returnTo")
	http.Redirect(w, r, h.service.LoginURL(returnTo), http.StatusFound)
}

// Callback はOAuthコールバックを処理する。
// GET /api/auth/callback?code=xxx&state=yyy
//
// 既定ではトークンをCookieに設定し、returnToへtoken付きでリダイレクトする。
// format=json またはAccept: application/json の場合はトークンをJSONで返す。
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	result, err := h.service.HandleCallback(r.Context(), q.Get("code"), q.Get("state"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	token := result.Token
	h.setTokenCookie(w, token.AccessToken, int(token.ExpiresIn))

	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, tokenResponse{
			AccessToken: token.AccessToken,
			TokenType:   token.TokenType,
			ExpiresIn:   token.ExpiresIn,
		})
		return
	}

	http.Redirect(w, r, auth.AppendToken(result.ReturnTo, token.AccessToken), http.StatusFound)
}

// Verify はアクセストークンの有効性を返す。
// GET /api/auth/verify
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	token := middleware.TokenFromRequest(r)
	if token == "" {
		writeJSON(w, http.StatusUnauthorized, verifyResponse{
			IsAuthenticated: false,
			Error:           "Pinterest access token not found",
		})
		return
	}

	if !h.service.Verify(r.Context(), token) {
		writeJSON(w, http.StatusUnauthorized, verifyResponse{
			IsAuthenticated: false,
			Error:           "Invalid or expired token",
		})
		return
	}

	writeJSON(w, http.StatusOK, verifyResponse{
		IsAuthenticated: true,
		Message:         "Token is valid",
	})
}

// Logout はトークンCookieを削除する。サーバー側に破棄すべき状態はない。
// POST /api/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.setTokenCookie(w, "", -1)
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

// setTokenCookie はトークンCookieを設定する。
// 埋め込み先ページのスクリプトから読むため、HttpOnlyにせずSameSite=Noneで発行する。
// maxAgeが0の場合はセッションCookie、負の場合は削除になる。
func (h *AuthHandler) setTokenCookie(w http.ResponseWriter, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.TokenCookieName,
		Value:    value,
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   maxAge,
		HttpOnly: false,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	})
}

// wantsJSON はクライアントがJSONレスポンスを要求しているかを判定する。
func wantsJSON(r *http.Request) bool {
	if strings.EqualFold(r.URL.Query().Get("format"), "json") {
		return true
	}
	for _, part := range strings.Split(r.Header.Get("Accept"), ",") {
		mediaType, _, err := mime.ParseMediaType(strings.TrimSpace(part))
		if err == nil && mediaType == "application/json" {
			return true
		}
	}
	return false
}
