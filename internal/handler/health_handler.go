package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/moodboard/internal/database"
)

const healthCheckTimeout = 2 * time.Second

type healthResponse struct {
	Status string `json:"status"`
}

// HealthHandler はDBの疎通を確認するヘルスチェックハンドラー。
type HealthHandler struct {
	db database.HealthChecker
}

// NewHealthHandler はHealthHandlerを生成する。dbがnilの場合は常にokを返す。
func NewHealthHandler(db database.HealthChecker) *HealthHandler {
	return &HealthHandler{db: db}
}

// Check はDBにpingし、応答があれば200、なければ503を返す。
// GET /health
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()

		if err := h.db.PingContext(ctx); err != nil {
			slog.Error("health check failed", slog.String("error", err.Error()))
			writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}
