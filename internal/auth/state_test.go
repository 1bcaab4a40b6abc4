package auth

import (
	"net/url"
	"testing"
)

func TestState_RoundTrip(t *testing.T) {
	returnTo := "https://shop.example.com/products?id=42&color=blue#reviews"

	got, err := DecodeState(EncodeState(returnTo))
	if err != nil {
		t.Fatalf("DecodeState がエラーを返した: %v", err)
	}
	if got != returnTo {
		t.Errorf("DecodeState = %q, want %q", got, returnTo)
	}
}

func TestState_IsURLSafe(t *testing.T) {
	state := EncodeState("https://shop.example.com/?a=b&c=d")
	if url.QueryEscape(state) != state {
		t.Errorf("stateはURLエスケープ不要であるべき: %q", state)
	}
}

func TestDecodeState_AcceptsURLEncodedJSON(t *testing.T) {
	state := url.QueryEscape(`{"returnTo":"https://shop.example.com/"}`)

	got, err := DecodeState(state)
	if err != nil {
		t.Fatalf("DecodeState がエラーを返した: %v", err)
	}
	if got != "https://shop.example.com/" {
		t.Errorf("DecodeState = %q", got)
	}
}

func TestDecodeState_RawJSONKeepsPlusAndPercent(t *testing.T) {
	tests := []struct {
		name  string
		state string
		want  string
	}{
		{"プラス記号", `{"returnTo":"https://shop.example.com/search?q=a+b"}`, "https://shop.example.com/search?q=a+b"},
		{"パーセントエンコード", `{"returnTo":"https://shop.example.com/my%20board"}`, "https://shop.example.com/my%20board"},
		{"単独のパーセント", `{"returnTo":"https://shop.example.com/sale?off=50%"}`, "https://shop.example.com/sale?off=50%"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeState(tt.state)
			if err != nil {
				t.Fatalf("DecodeState がエラーを返した: %v", err)
			}
			if got != tt.want {
				t.Errorf("DecodeState = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDecodeState_Invalid(t *testing.T) {
	for _, state := range []string{"", "garbage", "%zz", EncodeState("")} {
		t.Run(state, func(t *testing.T) {
			if _, err := DecodeState(state); err == nil {
				t.Errorf("DecodeState(%q) はエラーを返すべき", state)
			}
		})
	}
}
