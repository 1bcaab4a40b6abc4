package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// 検証モード
const (
	// VerifyModeProvider はプロバイダーのユーザー情報エンドポイントでトークンを検証する。
	VerifyModeProvider = "provider"
	// VerifyModeShape はトークン文字列の長さのみで検証する縮退モード。
	VerifyModeShape = "shape"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// Pinterest OAuth
	PinterestClientID     string
	PinterestClientSecret string
	PinterestAPIURL       string // 空の場合はクライアント側のデフォルトを使う
	PinterestOAuthURL     string
	PinterestTokenURL     string
	PinterestPageSize     int

	// Provider calls
	ProviderTimeout       time.Duration
	PinFetchMaxConcurrent int
	TokenVerifyMode       string

	// Rate Limit
	RateLimitGeneral int // req/min/client

	// Server
	ServerPort string
	BaseURL    string

	// Cookie
	CookieDomain string

	// CORS
	CORSAllowedOrigins []string

	// Redirect
	ReturnToAllowedHosts []string
}

// RedirectURL はOAuthコールバックURLを返す。
func (c *Config) RedirectURL() string {
	return strings.TrimRight(c.BaseURL, "/") + "/api/auth/callback"
}

// Load は環境変数からConfigを読み込む。
// カレントディレクトリに.envファイルがあれば先に読み込む（既存の環境変数は上書きしない）。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to load .env file", slog.String("error", err.Error()))
	}

	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.PinterestClientID = os.Getenv("PINTEREST_CLIENT_ID")
	if cfg.PinterestClientID == "" {
		missing = append(missing, "PINTEREST_CLIENT_ID")
	}

	cfg.PinterestClientSecret = os.Getenv("PINTEREST_CLIENT_SECRET")
	if cfg.PinterestClientSecret == "" {
		missing = append(missing, "PINTEREST_CLIENT_SECRET")
	}

	cfg.BaseURL = os.Getenv("BASE_URL")
	if cfg.BaseURL == "" {
		missing = append(missing, "BASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.PinterestAPIURL = getEnvString("PINTEREST_API_URL", "")
	cfg.PinterestOAuthURL = getEnvString("PINTEREST_OAUTH_URL", "")
	cfg.PinterestTokenURL = getEnvString("PINTEREST_TOKEN_URL", "")
	cfg.PinterestPageSize = getEnvInt("PINTEREST_PAGE_SIZE", 100)
	cfg.ProviderTimeout = getEnvDuration("PROVIDER_TIMEOUT", 15*time.Second)
	cfg.PinFetchMaxConcurrent = getEnvInt("PIN_FETCH_MAX_CONCURRENT", 10)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")
	cfg.CORSAllowedOrigins = getEnvList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"})
	cfg.ReturnToAllowedHosts = getEnvList("RETURN_TO_ALLOWED_HOSTS", nil)

	cfg.TokenVerifyMode = strings.ToLower(getEnvString("TOKEN_VERIFY_MODE", VerifyModeProvider))
	if cfg.TokenVerifyMode != VerifyModeProvider && cfg.TokenVerifyMode != VerifyModeShape {
		return nil, fmt.Errorf("invalid TOKEN_VERIFY_MODE: %q (allowed: %s, %s)",
			cfg.TokenVerifyMode, VerifyModeProvider, VerifyModeShape)
	}

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

// getEnvList はカンマ区切りの環境変数をスライスとして返す。空要素は除外する。
func getEnvList(key string, defaultVal []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}
