package security

import (
	"fmt"
	"net/url"
	"strings"
)

// ReturnToValidator はOAuth完了後のリダイレクト先（returnTo）を検証する。
type ReturnToValidator struct {
	allowedHosts map[string]struct{}
}

// NewReturnToValidator はReturnToValidatorを生成する。
// allowedHostsが空の場合はhttp/httpsの任意ホストを許可する。
func NewReturnToValidator(allowedHosts []string) *ReturnToValidator {
	hosts := make(map[string]struct{}, len(allowedHosts))
	for _, h := range allowedHosts {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			hosts[h] = struct{}{}
		}
	}
	return &ReturnToValidator{allowedHosts: hosts}
}

// Validate はreturnToが絶対URLかつ許可ホストであることを検証する。
// javascript:やプロトコル相対URL（//evil.example）は拒否する。
func (v *ReturnToValidator) Validate(rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("empty returnTo")
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid returnTo: %w", err)
	}

	if !isAllowedScheme(strings.ToLower(parsed.Scheme)) {
		return fmt.Errorf("disallowed returnTo scheme: %q", parsed.Scheme)
	}

	host := strings.ToLower(parsed.Hostname())
	if host == "" {
		return fmt.Errorf("empty host in returnTo: %s", rawURL)
	}

	if len(v.allowedHosts) == 0 {
		return nil
	}
	if _, ok := v.allowedHosts[host]; !ok {
		return fmt.Errorf("returnTo host is not allowed: %s", host)
	}
	return nil
}
