package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/moodboard/internal/database"
	"github.com/hitoshi/moodboard/internal/metrics"
	"github.com/hitoshi/moodboard/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger             *slog.Logger
	Metrics            metrics.MetricsCollector
	Gatherer           prometheus.Gatherer // nilの場合は/metricsを公開しない
	CORSAllowedOrigins []string
	RateLimiter        *middleware.RateLimiter // nilの場合はレート制限しない
	HealthChecker      database.HealthChecker

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// Pinterestのピン
	PinsService PinsServiceInterface

	// ムードボード
	MoodboardService MoodboardServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → Logging → SecurityHeaders → RateLimit → CORS(ルートごと) → Token(ピン取得のみ)
//
// /health と /metrics はレート制限の外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.NewRecoveryMiddleware(logger))
	r.Use(middleware.NewLoggingMiddleware(logger, deps.Metrics))
	r.Use(middleware.NewSecurityHeadersMiddleware())

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	pinsHandler := NewPinsHandler(deps.PinsService)
	moodboardHandler := NewMoodboardHandler(deps.MoodboardService)
	healthHandler := NewHealthHandler(deps.HealthChecker)

	allowListCORS := middleware.NewCORSMiddleware(deps.CORSAllowedOrigins)
	reflectCORS := middleware.NewReflectOriginCORSMiddleware()
	publicCORS := middleware.NewPublicCORSMiddleware()

	// --- 運用系 ---
	r.Get("/health", healthHandler.Check)
	if deps.Gatherer != nil {
		r.Handle("/metrics", metrics.Handler(deps.Gatherer))
	}

	// --- API ---
	r.Group(func(r chi.Router) {
		if deps.RateLimiter != nil {
			r.Use(deps.RateLimiter.Middleware())
		}

		// 認証（OAuthフローはブラウザ遷移のためCORS不要）
		r.Get("/api/auth/login", authHandler.Login)
		r.Get("/api/auth/callback", authHandler.Callback)

		// 埋め込み先ページからCookie付きで呼ばれるためOriginを反映する
		r.With(reflectCORS).Get("/api/auth/verify", authHandler.Verify)
		r.With(reflectCORS).Options("/api/auth/verify", noContent)

		r.With(allowListCORS).Post("/api/auth/logout", authHandler.Logout)
		r.With(allowListCORS).Options("/api/auth/logout", noContent)

		// Pinterestのピン一覧
		r.With(allowListCORS, middleware.NewTokenMiddleware(true)).Get("/api/getPins", pinsHandler.GetPins)
		r.With(allowListCORS).Options("/api/getPins", noContent)

		// ムードボード管理
		r.Route("/api/moodboards", func(r chi.Router) {
			r.Use(allowListCORS)

			r.Get("/", moodboardHandler.List)
			r.Post("/", moodboardHandler.Create)
			r.Get("/by-name", moodboardHandler.GetByName)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", moodboardHandler.Get)
				r.Put("/", moodboardHandler.Update)
				r.Delete("/", moodboardHandler.Delete)

				r.Get("/pins", moodboardHandler.ListPins)
				r.Post("/pins", moodboardHandler.AddPin)
				r.Delete("/pins", moodboardHandler.RemovePinByQuery)
				r.Patch("/pins/{pinId}", moodboardHandler.UpdatePinPosition)
				r.Delete("/pins/{pinId}", moodboardHandler.RemovePin)
			})
		})

		// 埋め込みウィジェット向け（どのオリジンからも読める）
		r.With(publicCORS).Get("/api/moodboard-pins-by-name", moodboardHandler.PinsByName)
		r.With(publicCORS).Options("/api/moodboard-pins-by-name", noContent)
		r.With(publicCORS).Get("/api/moodboard-pins/{name}", moodboardHandler.PinsByPathName)
		r.With(publicCORS).Options("/api/moodboard-pins/{name}", noContent)
	})

	return r
}

// noContent はプリフライト用のハンドラー。通常はCORSミドルウェアが先に応答する。
func noContent(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}
