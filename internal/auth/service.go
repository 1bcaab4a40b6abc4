// Package auth はPinterest OAuthの認可フローとアクセストークンの検証を提供する。
// サーバー側にセッションやトークンは保存しない。
package auth

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"github.com/hitoshi/moodboard/internal/metrics"
	"github.com/hitoshi/moodboard/internal/model"
)

// OAuthProvider はOAuth認証プロバイダーのインターフェース。
// *pinterest.OAuthProviderが満たす。
type OAuthProvider interface {
	// LoginURL は認可ページのURLを生成する。
	LoginURL(state string) string
	// Exchange は認可コードをアクセストークンに交換する。
	Exchange(ctx context.Context, code string) (*model.Token, error)
}

// ReturnToValidator はログイン後のリダイレクト先を検証する。
type ReturnToValidator interface {
	Validate(rawURL string) error
}

// CallbackResult はOAuthコールバック処理の結果。
type CallbackResult struct {
	Token    *model.Token
	ReturnTo string
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	BaseURL string // returnTo未指定時のリダイレクト先（末尾に"/"を付ける）
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	oauth     OAuthProvider
	verifier  TokenVerifier
	validator ReturnToValidator
	metrics   metrics.MetricsCollector
	logger    *slog.Logger
	config    ServiceConfig
}

// NewService はServiceを生成する。
func NewService(
	oauth OAuthProvider,
	verifier TokenVerifier,
	validator ReturnToValidator,
	collector metrics.MetricsCollector,
	logger *slog.Logger,
	config ServiceConfig,
) *Service {
	if collector == nil {
		collector = metrics.Nop{}
	}
	return &Service{
		oauth:     oauth,
		verifier:  verifier,
		validator: validator,
		metrics:   collector,
		logger:    logger,
		config:    config,
	}
}

// DefaultReturnTo はreturnTo未指定時のリダイレクト先を返す。
func (s *Service) DefaultReturnTo() string {
	return strings.TrimRight(s.config.BaseURL, "/") + "/"
}

// LoginURL はreturnToをstateに載せた認可URLを生成する。
// returnToが空、または許可されないURLの場合はDefaultReturnToを使う。
func (s *Service) LoginURL(returnTo string) string {
	return s.oauth.LoginURL(EncodeState(s.resolveReturnTo(returnTo)))
}

// HandleCallback は認可コードを交換し、stateから復元したリダイレクト先と共に返す。
// 交換に失敗した場合の詳細はプロバイダー側でログに記録済みのため、汎用エラーを返す。
func (s *Service) HandleCallback(ctx context.Context, code, state string) (*CallbackResult, error) {
	if code == "" {
		return nil, model.NewMissingParameterError("code")
	}

	token, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, model.NewProviderError()
	}

	returnTo := s.DefaultReturnTo()
	if state != "" {
		decoded, err := DecodeState(state)
		if err != nil {
			s.logger.Warn("stateの復元に失敗したためデフォルトのリダイレクト先を使います",
				slog.String("error", err.Error()),
			)
		} else {
			returnTo = s.resolveReturnTo(decoded)
		}
	}

	return &CallbackResult{Token: token, ReturnTo: returnTo}, nil
}

// Verify はアクセストークンの有効性を判定する。
func (s *Service) Verify(ctx context.Context, accessToken string) bool {
	valid := s.verifier.Verify(ctx, accessToken)
	s.metrics.RecordTokenVerification(valid)
	return valid
}

// resolveReturnTo はreturnToを検証し、不正な場合はデフォルトに置き換える。
func (s *Service) resolveReturnTo(returnTo string) string {
	if returnTo == "" {
		return s.DefaultReturnTo()
	}
	if s.validator != nil {
		if err := s.validator.Validate(returnTo); err != nil {
			s.logger.Warn("許可されないreturnToを無視します",
				slog.String("return_to", returnTo),
				slog.String("error", err.Error()),
			)
			return s.DefaultReturnTo()
		}
	}
	return returnTo
}

// AppendToken はリダイレクト先URLのクエリにtokenを追加する。
// 既存のクエリとフラグメントは保持する。
func AppendToken(returnTo, accessToken string) string {
	u, err := url.Parse(returnTo)
	if err != nil {
		sep := "?"
		if strings.Contains(returnTo, "?") {
			sep = "&"
		}
		return returnTo + sep + "token=" + url.QueryEscape(accessToken)
	}
	q := u.Query()
	q.Set("token", accessToken)
	u.RawQuery = q.Encode()
	return u.String()
}
