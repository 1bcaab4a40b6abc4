package model

// Token はプロバイダーから発行されたアクセストークンを表す。
// サーバー側では保存せず、クライアントへ受け渡すだけに使う。
type Token struct {
	AccessToken string
	TokenType   string
	ExpiresIn   int64 // 有効期間（秒）。不明な場合は0
	Scope       string
}

// MaskToken はログ出力用にトークンの先頭数文字のみを残して返す。
func MaskToken(token string) string {
	const visible = 6
	if len(token) <= visible {
		return "***"
	}
	return token[:visible] + "..."
}
