package pinterest

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func TestOAuthProvider_LoginURL(t *testing.T) {
	var buf bytes.Buffer
	p := NewOAuthProvider(OAuthConfig{
		ClientID:    "client-1",
		RedirectURL: "https://app.example.com/api/auth/callback",
	}, nil, newTestLogger(&buf), nil)

	raw := p.LoginURL("state-xyz")
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("URLのパースに失敗: %v", err)
	}

	if u.Scheme+"://"+u.Host+u.Path != defaultAuthURL {
		t.Errorf("auth URL = %s, want %s", u.Scheme+"://"+u.Host+u.Path, defaultAuthURL)
	}
	q := u.Query()
	want := map[string]string{
		"client_id":     "client-1",
		"redirect_uri":  "https://app.example.com/api/auth/callback",
		"response_type": "code",
		"scope":         "boards:read,pins:read",
		"state":         "state-xyz",
	}
	for k, v := range want {
		if got := q.Get(k); got != v {
			t.Errorf("%s = %q, want %q", k, got, v)
		}
	}
}

func TestOAuthProvider_Exchange_BasicAuth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != "client-1" || pass != "secret-1" {
			t.Errorf("Basic認証が不正: ok=%v user=%q pass=%q", ok, user, pass)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("フォームのパースに失敗: %v", err)
		}
		if r.PostForm.Get("grant_type") != "authorization_code" {
			t.Errorf("grant_type = %q", r.PostForm.Get("grant_type"))
		}
		if r.PostForm.Get("code") != "code-abc" {
			t.Errorf("code = %q", r.PostForm.Get("code"))
		}
		if r.PostForm.Get("redirect_uri") != "https://app.example.com/api/auth/callback" {
			t.Errorf("redirect_uri = %q", r.PostForm.Get("redirect_uri"))
		}
		if r.PostForm.Get("client_secret") != "" {
			t.Error("client_secretはボディに含めないべき")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"pina_access_token_value","token_type":"bearer","expires_in":2592000,"scope":"boards:read,pins:read"}`))
	}))
	defer server.Close()

	var buf bytes.Buffer
	p := NewOAuthProvider(OAuthConfig{
		ClientID:     "client-1",
		ClientSecret: "secret-1",
		RedirectURL:  "https://app.example.com/api/auth/callback",
		TokenURL:     server.URL,
	}, server.Client(), newTestLogger(&buf), nil)

	token, err := p.Exchange(context.Background(), "code-abc")
	if err != nil {
		t.Fatalf("Exchange がエラーを返した: %v", err)
	}
	if token.AccessToken != "pina_access_token_value" {
		t.Errorf("AccessToken = %q", token.AccessToken)
	}
	if !strings.EqualFold(token.TokenType, "bearer") {
		t.Errorf("TokenType = %q", token.TokenType)
	}
	if token.ExpiresIn < 2591990 || token.ExpiresIn > 2592000 {
		t.Errorf("ExpiresIn = %d, want about 2592000", token.ExpiresIn)
	}
	if token.Scope != "boards:read,pins:read" {
		t.Errorf("Scope = %q", token.Scope)
	}
	if strings.Contains(buf.String(), "pina_access_token_value") {
		t.Errorf("トークン全体をログに出力してはならない: %s", buf.String())
	}
}

func TestOAuthProvider_Exchange_ProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"invalid_grant","error_description":"code expired"}`))
	}))
	defer server.Close()

	var buf bytes.Buffer
	p := NewOAuthProvider(OAuthConfig{
		ClientID:     "client-1",
		ClientSecret: "secret-1",
		TokenURL:     server.URL,
	}, server.Client(), newTestLogger(&buf), nil)

	if _, err := p.Exchange(context.Background(), "stale"); err == nil {
		t.Fatal("エラーを返すべき")
	}
	logs := buf.String()
	if !strings.Contains(logs, `"http_status":400`) {
		t.Errorf("プロバイダーのステータスがログに記録されるべき: %s", logs)
	}
	if !strings.Contains(logs, "code expired") {
		t.Errorf("プロバイダーの応答本文がログに記録されるべき: %s", logs)
	}
}
