package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, moodboard, provider, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeMissingParameter   = "MISSING_PARAMETER"
	ErrCodeInvalidRequest     = "INVALID_REQUEST"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeInvalidToken       = "INVALID_TOKEN"
	ErrCodeMoodboardNotFound  = "MOODBOARD_NOT_FOUND"
	ErrCodePinNotFound        = "PIN_NOT_FOUND"
	ErrCodeDuplicateMoodboard = "DUPLICATE_MOODBOARD"
	ErrCodeRateLimitExceeded  = "RATE_LIMIT_EXCEEDED"
	ErrCodeProviderError      = "PROVIDER_ERROR"
	ErrCodeInternal           = "INTERNAL_ERROR"
)

// NewMissingParameterError は必須パラメータ欠落エラーを生成する。
func NewMissingParameterError(params ...string) *APIError {
	return &APIError{
		Code:     ErrCodeMissingParameter,
		Message:  fmt.Sprintf("必須パラメータが指定されていません: %v", params),
		Category: "validation",
		Action:   "必須パラメータを指定して再度リクエストしてください。",
	}
}

// NewInvalidRequestError はリクエストボディ不正エラーを生成する。
func NewInvalidRequestError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  "リクエストボディの解析に失敗しました。",
		Category: "validation",
		Action:   "正しいJSON形式でリクエストしてください。",
	}
}

// NewUnauthorizedError はアクセストークン未指定エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "アクセストークンが見つかりません。",
		Category: "auth",
		Action:   "Pinterestでログインしてください。",
	}
}

// NewInvalidTokenError は無効または期限切れのトークンエラーを生成する。
func NewInvalidTokenError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidToken,
		Message:  "アクセストークンが無効か期限切れです。",
		Category: "auth",
		Action:   "Pinterestで再度ログインしてください。",
	}
}

// NewMoodboardNotFoundError はムードボード未検出エラーを生成する。
func NewMoodboardNotFoundError(ref string) *APIError {
	return &APIError{
		Code:     ErrCodeMoodboardNotFound,
		Message:  fmt.Sprintf("指定されたムードボードが見つかりません: %s", ref),
		Category: "moodboard",
		Action:   "ムードボードIDまたは名前を確認してください。",
	}
}

// NewPinNotFoundError はムードボードピン未検出エラーを生成する。
func NewPinNotFoundError(pinID string) *APIError {
	return &APIError{
		Code:     ErrCodePinNotFound,
		Message:  fmt.Sprintf("指定されたピンが見つかりません: %s", pinID),
		Category: "moodboard",
		Action:   "ピンIDを確認してください。",
	}
}

// NewDuplicateMoodboardError は同名ムードボードが既に存在する場合のエラーを生成する。
func NewDuplicateMoodboardError(name string) *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateMoodboard,
		Message:  fmt.Sprintf("同じ名前のムードボードが既に存在します: %s", name),
		Category: "moodboard",
		Action:   "別の名前を指定してください。",
	}
}

// NewRateLimitExceededError はレート制限超過エラーを生成する。
func NewRateLimitExceededError() *APIError {
	return &APIError{
		Code:     ErrCodeRateLimitExceeded,
		Message:  "リクエスト数が上限を超えました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewProviderError はプロバイダーAPI呼び出し失敗エラーを生成する。
// 詳細はログのみに記録し、レスポンスには一般的なメッセージを返す。
func NewProviderError() *APIError {
	return &APIError{
		Code:     ErrCodeProviderError,
		Message:  "Pinterestとの通信に失敗しました。",
		Category: "provider",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewInternalError は内部エラーを生成する。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}
