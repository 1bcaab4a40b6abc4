package app

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/moodboard/internal/auth"
	"github.com/hitoshi/moodboard/internal/config"
	"github.com/hitoshi/moodboard/internal/database"
	"github.com/hitoshi/moodboard/internal/handler"
	"github.com/hitoshi/moodboard/internal/logger"
	"github.com/hitoshi/moodboard/internal/metrics"
	"github.com/hitoshi/moodboard/internal/middleware"
	"github.com/hitoshi/moodboard/internal/moodboard"
	"github.com/hitoshi/moodboard/internal/pins"
	"github.com/hitoshi/moodboard/internal/pinterest"
	"github.com/hitoshi/moodboard/internal/repository"
	"github.com/hitoshi/moodboard/internal/security"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
	)

	switch cmd {
	case CommandMigrate:
		return runMigrate(cfg, migrateDirection(args))
	default:
		return runServe(cfg)
	}
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. メトリクスレジストリ
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// 3. 依存関係のワイヤリング
	router, cleanup, err := buildHandler(cfg, db, reg, slog.Default())
	if err != nil {
		return err
	}
	defer cleanup()

	// 4. HTTPサーバーの起動
	// ピン集約は複数のプロバイダー呼び出しを待つため、WriteTimeoutはプロバイダータイムアウトより長くとる
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.ProviderTimeout*2 + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case <-stop:
	case err := <-serverErr:
		return fmt.Errorf("server listen error: %w", err)
	}
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// buildHandler は設定からサービス群を組み立て、ルーターを返す。
// dbがnilの場合はヘルスチェックを常にokとする（テスト用）。
// 返却するcleanupはバックグラウンド処理を停止する。
func buildHandler(cfg *config.Config, db *sql.DB, reg *prometheus.Registry, log *slog.Logger) (http.Handler, func(), error) {
	// 1. 上書きされたプロバイダーURLの検証
	ssrfGuard := security.NewSSRFGuard()
	for name, u := range map[string]string{
		"PINTEREST_API_URL":   cfg.PinterestAPIURL,
		"PINTEREST_OAUTH_URL": cfg.PinterestOAuthURL,
		"PINTEREST_TOKEN_URL": cfg.PinterestTokenURL,
	} {
		if u == "" {
			continue
		}
		if err := ssrfGuard.ValidateURL(u); err != nil {
			return nil, nil, fmt.Errorf("invalid %s: %w", name, err)
		}
	}

	// 2. メトリクス
	var collector metrics.MetricsCollector = metrics.Nop{}
	var gatherer prometheus.Gatherer
	if reg != nil {
		collector = metrics.NewCollector(reg)
		gatherer = reg
	}

	// 3. Pinterestクライアント
	providerHTTP := ssrfGuard.NewSafeClient(cfg.ProviderTimeout)
	pinterestClient := pinterest.NewClient(providerHTTP, log, collector, cfg.PinterestAPIURL, cfg.PinterestPageSize)
	oauthProvider := pinterest.NewOAuthProvider(pinterest.OAuthConfig{
		ClientID:     cfg.PinterestClientID,
		ClientSecret: cfg.PinterestClientSecret,
		RedirectURL:  cfg.RedirectURL(),
		AuthURL:      cfg.PinterestOAuthURL,
		TokenURL:     cfg.PinterestTokenURL,
	}, providerHTTP, log, collector)

	// 4. ドメインサービス
	verifier := auth.NewVerifier(cfg.TokenVerifyMode, pinterestClient, log)
	authService := auth.NewService(
		oauthProvider,
		verifier,
		security.NewReturnToValidator(cfg.ReturnToAllowedHosts),
		collector,
		log,
		auth.ServiceConfig{BaseURL: cfg.BaseURL},
	)
	pinsService := pins.NewService(pinterestClient, collector, log, cfg.PinFetchMaxConcurrent)

	var healthChecker database.HealthChecker
	var moodboardRepo repository.MoodboardRepository
	var pinRepo repository.MoodboardPinRepository
	if db != nil {
		healthChecker = db
		moodboardRepo = repository.NewPostgresMoodboardRepo(db)
		pinRepo = repository.NewPostgresMoodboardPinRepo(db)
	}
	moodboardService := moodboard.NewService(
		moodboardRepo, pinRepo, security.NewContentSanitizer(), collector, log,
	)

	// 5. ルーター
	rateLimiter := middleware.NewRateLimiter(middleware.NewRateLimiterConfig(cfg.RateLimitGeneral), log)

	router := handler.NewRouter(&handler.RouterDeps{
		Logger:             log,
		Metrics:            collector,
		Gatherer:           gatherer,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimiter:        rateLimiter,
		HealthChecker:      healthChecker,

		AuthService: authService,
		AuthConfig: handler.AuthHandlerConfig{
			CookieDomain: cfg.CookieDomain,
		},

		PinsService:      pinsService,
		MoodboardService: moodboardService,
	})

	slog.Info("handler initialized",
		slog.String("token_verify_mode", cfg.TokenVerifyMode),
		slog.Int("rate_limit_per_minute", cfg.RateLimitGeneral),
		slog.Int("pin_fetch_max_concurrent", cfg.PinFetchMaxConcurrent),
	)

	return router, rateLimiter.Stop, nil
}

// runMigrate はデータベースマイグレーションを実行する。
// directionが"down"の場合はすべてロールバックし、それ以外はすべての未適用マイグレーションを適用する。
func runMigrate(cfg *config.Config, direction string) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
		slog.String("direction", direction),
	)

	if direction == "down" {
		if err := database.RollbackMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("migration rollback failed: %w", err)
		}
		slog.Info("database migration rolled back")
		return nil
	}

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
