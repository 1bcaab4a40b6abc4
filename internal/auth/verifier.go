package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hitoshi/moodboard/internal/config"
	"github.com/hitoshi/moodboard/internal/model"
	"github.com/hitoshi/moodboard/internal/pinterest"
)

// minTokenLength はshapeモードで有効とみなすトークン長の下限（この値を超える必要がある）。
const minTokenLength = 20

// TokenVerifier はアクセストークンの有効性を判定する。
// リトライ・キャッシュは行わない。
type TokenVerifier interface {
	Verify(ctx context.Context, accessToken string) bool
}

// AccountFetcher はトークン所有者のアカウント情報を取得する。
// *pinterest.Clientが満たす。
type AccountFetcher interface {
	GetUserAccount(ctx context.Context, accessToken string) (*pinterest.UserAccount, error)
}

// ProviderVerifier はPinterestの/user_accountを呼び出してトークンを検証する。
type ProviderVerifier struct {
	accounts AccountFetcher
	logger   *slog.Logger
}

var _ TokenVerifier = (*ProviderVerifier)(nil)

// NewProviderVerifier はProviderVerifierを生成する。
func NewProviderVerifier(accounts AccountFetcher, logger *slog.Logger) *ProviderVerifier {
	return &ProviderVerifier{accounts: accounts, logger: logger}
}

// Verify は2xxなら有効、それ以外（401/403、その他のステータス、通信エラー）は無効とする。
func (v *ProviderVerifier) Verify(ctx context.Context, accessToken string) bool {
	if accessToken == "" {
		return false
	}
	if _, err := v.accounts.GetUserAccount(ctx, accessToken); err != nil {
		var statusErr *pinterest.StatusError
		if errors.As(err, &statusErr) && statusErr.IsUnauthorized() {
			v.logger.Info("トークンが無効または期限切れです",
				slog.String("token", model.MaskToken(accessToken)),
				slog.Int("http_status", statusErr.StatusCode),
			)
		} else {
			v.logger.Warn("トークン検証に失敗したため無効として扱います",
				slog.String("token", model.MaskToken(accessToken)),
				slog.String("error", err.Error()),
			)
		}
		return false
	}
	return true
}

// ShapeVerifier はトークン文字列の長さのみで判定する縮退モードの検証器。
// プロバイダーへの問い合わせを行わない。
type ShapeVerifier struct{}

var _ TokenVerifier = ShapeVerifier{}

// Verify はトークンが20文字を超える場合に有効とする。
func (ShapeVerifier) Verify(_ context.Context, accessToken string) bool {
	return len(accessToken) > minTokenLength
}

// NewVerifier はTOKEN_VERIFY_MODEに応じた検証器を返す。
func NewVerifier(mode string, accounts AccountFetcher, logger *slog.Logger) TokenVerifier {
	if mode == config.VerifyModeShape {
		return ShapeVerifier{}
	}
	return NewProviderVerifier(accounts, logger)
}
