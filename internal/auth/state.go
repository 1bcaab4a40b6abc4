package auth

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
)

// oauthState はOAuthのstateパラメータに載せる情報。
type oauthState struct {
	ReturnTo string `json:"returnTo"`
}

// EncodeState はreturnToをstateパラメータ用にエンコードする。
// JSONをURLセーフなbase64にしたもの。
func EncodeState(returnTo string) string {
	b, _ := json.Marshal(oauthState{ReturnTo: returnTo})
	return base64.RawURLEncoding.EncodeToString(b)
}

// DecodeState はstateパラメータからreturnToを取り出す。
// base64形式に加えて、JSON（{"returnTo":...}）をそのまま載せた形式も受け付ける。
// クエリ取得時にデコード済みのため、JSONとして読めない場合に限りもう一度URLデコードする。
func DecodeState(state string) (string, error) {
	if state == "" {
		return "", errors.New("empty state")
	}

	candidates := [][]byte{[]byte(state)}
	if b, err := base64.RawURLEncoding.DecodeString(state); err == nil {
		candidates = append([][]byte{b}, candidates...)
	}
	if unescaped, err := url.QueryUnescape(state); err == nil && unescaped != state {
		candidates = append(candidates, []byte(unescaped))
	}

	var lastErr error
	for _, raw := range candidates {
		var s oauthState
		if err := json.Unmarshal(raw, &s); err != nil {
			lastErr = err
			continue
		}
		if s.ReturnTo == "" {
			return "", errors.New("state has no returnTo")
		}
		return s.ReturnTo, nil
	}
	return "", fmt.Errorf("invalid state payload: %w", lastErr)
}
