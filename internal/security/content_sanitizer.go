// Package security はアプリケーションのセキュリティ機能を提供する。
//
// ムードボード名・説明は外部サイトの埋め込みウィジェットで表示されるため、
// 保存前にbluemondayのStrictPolicyで全てのマークアップを除去する。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// ContentSanitizerService はユーザー入力テキストのサニタイズ機能のインターフェースを定義する。
type ContentSanitizerService interface {
	// Sanitize は入力から全てのHTMLタグを除去し、前後の空白を取り除いたプレーンテキストを返す。
	Sanitize(raw string) string
}

// contentSanitizer はContentSanitizerServiceの実装。
// bluemondayのポリシーを保持し、スレッドセーフにサニタイズ処理を行う。
type contentSanitizer struct {
	policy *bluemonday.Policy
}

var _ ContentSanitizerService = (*contentSanitizer)(nil)

// NewContentSanitizer はContentSanitizerServiceの新しいインスタンスを生成する。
// script, styleは中身ごと除去され、その他のタグはテキストのみ残る。
func NewContentSanitizer() *contentSanitizer {
	return &contentSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// maxSanitizePasses はサニタイズと実体参照の復元を繰り返す上限回数。
const maxSanitizePasses = 5

// Sanitize は入力をプレーンテキストに変換する。
//
// サニタイズ後に実体参照を元の文字に戻し（"A & B"を"A &amp; B"として保存しない）、
// 値が変わらなくなるまで繰り返す。"&lt;script&gt;"のように実体参照で書かれたタグも
// 復元後のパスで除去される。最終的に"<"や">"が残る場合はエスケープした値を返す。
func (s *contentSanitizer) Sanitize(raw string) string {
	if raw == "" {
		return ""
	}

	text := raw
	for i := 0; i < maxSanitizePasses; i++ {
		next := html.UnescapeString(s.policy.Sanitize(text))
		if next == text {
			break
		}
		text = next
	}

	if strings.ContainsAny(text, "<>") {
		text = html.EscapeString(text)
	}
	return strings.TrimSpace(text)
}
