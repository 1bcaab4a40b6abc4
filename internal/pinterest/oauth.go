package pinterest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/hitoshi/moodboard/internal/metrics"
	"github.com/hitoshi/moodboard/internal/model"
)

const (
	defaultAuthURL  = "https://www.pinterest.com/oauth/"
	defaultTokenURL = "https://api.pinterest.com/v5/oauth/token"
)

// Scope はログイン時に要求するスコープ。
// Pinterestはカンマ区切りを要求するため、1要素として渡す。
const Scope = "boards:read,pins:read"

// OAuthConfig はPinterest OAuthの設定。
type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	// テスト用にオーバーライド可能なURL
	AuthURL  string
	TokenURL string
}

// OAuthProvider は認可URLの生成と認可コードの交換を行う。
type OAuthProvider struct {
	config     *oauth2.Config
	httpClient *http.Client
	logger     *slog.Logger
	metrics    metrics.MetricsCollector
}

// NewOAuthProvider はOAuthProviderを生成する。
// トークンエンドポイントにはクライアント認証をBasic認証ヘッダーで送る。
func NewOAuthProvider(cfg OAuthConfig, httpClient *http.Client, logger *slog.Logger, collector metrics.MetricsCollector) *OAuthProvider {
	if cfg.AuthURL == "" {
		cfg.AuthURL = defaultAuthURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = defaultTokenURL
	}
	if collector == nil {
		collector = metrics.Nop{}
	}
	return &OAuthProvider{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{Scope},
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.AuthURL,
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
		httpClient: httpClient,
		logger:     logger,
		metrics:    collector,
	}
}

// LoginURL は認可ページのURLを生成する。
// client_id, redirect_uri, response_type=code, scope, stateを含む。
func (p *OAuthProvider) LoginURL(state string) string {
	return p.config.AuthCodeURL(state)
}

// Exchange は認可コードをアクセストークンに交換する。
// 失敗時はプロバイダーの応答をログに記録し、エラーを返す。
func (p *OAuthProvider) Exchange(ctx context.Context, code string) (*model.Token, error) {
	if p.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
	}

	start := time.Now()
	tok, err := p.config.Exchange(ctx, code)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
			p.metrics.RecordProviderRequest(endpointOAuthToken, retrieveErr.Response.StatusCode, time.Since(start))
			p.logger.Error("トークン交換がエラーステータスを返しました",
				slog.Int("http_status", retrieveErr.Response.StatusCode),
				slog.String("error_code", retrieveErr.ErrorCode),
				slog.String("body", truncate(string(retrieveErr.Body), 512)),
			)
		} else {
			p.metrics.RecordProviderFailure(endpointOAuthToken)
			p.logger.Error("トークン交換に失敗しました", slog.String("error", err.Error()))
		}
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}
	p.metrics.RecordProviderRequest(endpointOAuthToken, http.StatusOK, time.Since(start))

	token := &model.Token{
		AccessToken: tok.AccessToken,
		TokenType:   tok.TokenType,
	}
	if !tok.Expiry.IsZero() {
		if secs := int64(time.Until(tok.Expiry).Round(time.Second).Seconds()); secs > 0 {
			token.ExpiresIn = secs
		}
	}
	if scope, ok := tok.Extra("scope").(string); ok {
		token.Scope = scope
	}

	p.logger.Info("トークン交換に成功しました",
		slog.String("token", model.MaskToken(token.AccessToken)),
		slog.Int64("expires_in", token.ExpiresIn),
	)
	return token, nil
}
