// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/hitoshi/moodboard/internal/model"
)

// TokenCookieName はアクセストークンを保持するCookieの名前。
// クライアントのJavaScriptから読み取るため、HttpOnlyにはしない。
const TokenCookieName = "pinterest_token"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// tokenContextKey はリクエストコンテキストにアクセストークンを格納するためのキー。
var tokenContextKey = contextKey("access_token")

// TokenFromRequest はリクエストからアクセストークンを取り出す。
// 優先順位は Authorization: Bearer ヘッダー、pinterest_token Cookie、
// access_token クエリ、token クエリの順。空の値は次の候補に進む。
func TokenFromRequest(r *http.Request) string {
	if token := bearerToken(r.Header.Get("Authorization")); token != "" {
		return token
	}
	if cookie, err := r.Cookie(TokenCookieName); err == nil {
		if token := strings.TrimSpace(cookie.Value); token != "" {
			return token
		}
	}
	q := r.URL.Query()
	if token := strings.TrimSpace(q.Get("access_token")); token != "" {
		return token
	}
	return strings.TrimSpace(q.Get("token"))
}

// bearerToken はAuthorizationヘッダーからBearerトークンを取り出す。
// Bearer以外のスキームは無視する。
func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// NewTokenMiddleware はリクエストからアクセストークンを取り出してコンテキストに注入する。
// required が true の場合、トークンがなければ401を返してハンドラーを呼ばない。
func NewTokenMiddleware(required bool) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := TokenFromRequest(r)
			if token == "" {
				if required {
					WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
					return
				}
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithToken(r.Context(), token)))
		})
	}
}

// TokenFromContext はリクエストコンテキストからアクセストークンを取得する。
// トークンミドルウェアを通過していない場合は空文字列を返す。
func TokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(tokenContextKey).(string)
	return token
}

// ContextWithToken はコンテキストにアクセストークンを注入する。
func ContextWithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenContextKey, token)
}
