package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/hitoshi/moodboard/internal/auth"
	"github.com/hitoshi/moodboard/internal/model"
)

// --- モック定義 ---

type mockAuthService struct {
	loginURLFn       func(returnTo string) string
	handleCallbackFn func(ctx context.Context, code, state string) (*auth.CallbackResult, error)
	verifyFn         func(ctx context.Context, accessToken string) bool
}

func (m *mockAuthService) LoginURL(returnTo string) string {
	if m.loginURLFn != nil {
		return m.loginURLFn(returnTo)
	}
	return "https://www.pinterest.com/oauth/"
}

func (m *mockAuthService) HandleCallback(ctx context.Context, code, state string) (*auth.CallbackResult, error) {
	if m.handleCallbackFn != nil {
		return m.handleCallbackFn(ctx, code, state)
	}
	return nil, model.NewInternalError()
}

func (m *mockAuthService) Verify(ctx context.Context, accessToken string) bool {
	if m.verifyFn != nil {
		return m.verifyFn(ctx, accessToken)
	}
	return false
}

func successfulCallback(returnTo string) func(ctx context.Context, code, state string) (*auth.CallbackResult, error) {
	return func(ctx context.Context, code, state string) (*auth.CallbackResult, error) {
		return &auth.CallbackResult{
			Token: &model.Token{
				AccessToken: "pina_access_token_value",
				TokenType:   "bearer",
				ExpiresIn:   2592000,
			},
			ReturnTo: returnTo,
		}, nil
	}
}

func findCookie(resp *http.Response, name string) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// --- テスト ---

func TestAuthHandler_Login_RedirectsWithReturnTo(t *testing.T) {
	var gotReturnTo string
	svc := &mockAuthService{
		loginURLFn: func(returnTo string) string {
			gotReturnTo = returnTo
			return "https://www.pinterest.com/oauth/?state=abc"
		},
	}
	h := NewAuthHandler(svc, AuthHandlerConfig{})

	req := httptest.NewRequest(http.MethodGet, "/api/auth/login?returnTo="+url.QueryEscape("https://shop.example.com/p/1"), nil)
	w := httptest.NewRecorder()
	h.Login(w, req)

	if w.Code != http.StatusFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusFound)
	}
	if loc := w.Header().Get("Location"); loc != "https://www.pinterest.com/oauth/?state=abc" {
		t.Errorf("Location = %q", loc)
	}
	if gotReturnTo != "https://shop.example.com/p/1" {
		t.Errorf("returnTo = %q", gotReturnTo)
	}
}

func TestAuthHandler_Callback_SetsCookieAndRedirects(t *testing.T) {
	svc := &mockAuthService{handleCallbackFn: successfulCallback("https://shop.example.com/p/1?ref=x")}
	h := NewAuthHandler(svc, AuthHandlerConfig{CookieDomain: "example.com"})

	req := httptest.NewRequest(http.MethodGet, "/api/auth/callback?code=abc&state=s", nil)
	w := httptest.NewRecorder()
	h.Callback(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusFound)
	}

	loc, err := url.Parse(resp.Header.Get("Location"))
	if err != nil {
		t.Fatalf("invalid Location: %v", err)
	}
	if loc.Host != "shop.example.com" || loc.Path != "/p/1" {
		t.Errorf("Location = %q", loc)
	}
	if loc.Query().Get("token") != "pina_access_token_value" || loc.Query().Get("ref") != "x" {
		t.Errorf("query = %q", loc.RawQuery)
	}

	c := findCookie(resp, "pinterest_token")
	if c == nil {
		t.Fatal("pinterest_token cookie should be set")
	}
	if c.Value != "pina_access_token_value" {
		t.Errorf("cookie value = %q", c.Value)
	}
	if c.HttpOnly {
		t.Error("クライアントから読めるようHttpOnlyにしないべき")
	}
	if !c.Secure || c.SameSite != http.SameSiteNoneMode {
		t.Errorf("Secure = %v, SameSite = %v", c.Secure, c.SameSite)
	}
	if c.Path != "/" || c.MaxAge != 2592000 {
		t.Errorf("Path = %q, MaxAge = %d", c.Path, c.MaxAge)
	}
	if c.Domain != "example.com" {
		t.Errorf("Domain = %q", c.Domain)
	}
}

func TestAuthHandler_Callback_JSONMode(t *testing.T) {
	tests := []struct {
		name   string
		target string
		accept string
	}{
		{"format=json", "/api/auth/callback?code=abc&format=json", ""},
		{"Acceptヘッダー", "/api/auth/callback?code=abc", "application/json; charset=utf-8"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockAuthService{handleCallbackFn: successfulCallback("http://localhost:8080/")}
			h := NewAuthHandler(svc, AuthHandlerConfig{})

			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			if tt.accept != "" {
				req.Header.Set("Accept", tt.accept)
			}
			w := httptest.NewRecorder()
			h.Callback(w, req)

			if w.Code != http.StatusOK {
				t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
			}
			var body tokenResponse
			if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode: %v", err)
			}
			if body.AccessToken != "pina_access_token_value" || body.TokenType != "bearer" || body.ExpiresIn != 2592000 {
				t.Errorf("body = %+v", body)
			}
		})
	}
}

func TestAuthHandler_Callback_Errors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"code未指定", model.NewMissingParameterError("code"), http.StatusBadRequest, model.ErrCodeMissingParameter},
		{"交換失敗", model.NewProviderError(), http.StatusInternalServerError, model.ErrCodeProviderError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockAuthService{
				handleCallbackFn: func(ctx context.Context, code, state string) (*auth.CallbackResult, error) {
					return nil, tt.err
				},
			}
			h := NewAuthHandler(svc, AuthHandlerConfig{})

			w := httptest.NewRecorder()
			h.Callback(w, httptest.NewRequest(http.MethodGet, "/api/auth/callback", nil))

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if body := parseAPIErrorResponse(t, w); body["code"] != tt.wantCode {
				t.Errorf("code = %q, want %q", body["code"], tt.wantCode)
			}
			if findCookie(w.Result(), "pinterest_token") != nil {
				t.Error("失敗時はCookieを設定しないべき")
			}
		})
	}
}

func TestAuthHandler_Verify(t *testing.T) {
	tests := []struct {
		name       string
		token      string
		valid      bool
		wantStatus int
		wantAuth   bool
	}{
		{"トークンなし", "", false, http.StatusUnauthorized, false},
		{"有効なトークン", "valid-token", true, http.StatusOK, true},
		{"無効なトークン", "bad-token", false, http.StatusUnauthorized, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			svc := &mockAuthService{
				verifyFn: func(ctx context.Context, accessToken string) bool {
					called = true
					if accessToken != tt.token {
						t.Errorf("token = %q, want %q", accessToken, tt.token)
					}
					return tt.valid
				},
			}
			h := NewAuthHandler(svc, AuthHandlerConfig{})

			req := httptest.NewRequest(http.MethodGet, "/api/auth/verify", nil)
			if tt.token != "" {
				req.AddCookie(&http.Cookie{Name: "pinterest_token", Value: tt.token})
			}
			w := httptest.NewRecorder()
			h.Verify(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			var body verifyResponse
			if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode: %v", err)
			}
			if body.IsAuthenticated != tt.wantAuth {
				t.Errorf("isAuthenticated = %v, want %v", body.IsAuthenticated, tt.wantAuth)
			}
			if tt.wantAuth && body.Message == "" {
				t.Error("有効時はmessageを返すべき")
			}
			if !tt.wantAuth && body.Error == "" {
				t.Error("無効時はerrorを返すべき")
			}
			if tt.token == "" && called {
				t.Error("トークンがない場合は検証を呼ばないべき")
			}
		})
	}
}

func TestAuthHandler_Logout_ClearsCookie(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, AuthHandlerConfig{})

	w := httptest.NewRecorder()
	h.Logout(w, httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil))

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	c := findCookie(w.Result(), "pinterest_token")
	if c == nil || c.MaxAge >= 0 || c.Value != "" {
		t.Errorf("cookie should be cleared: %+v", c)
	}

	var body successResponse
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil || !body.Success {
		t.Errorf("body = %+v, err = %v", body, err)
	}
}
