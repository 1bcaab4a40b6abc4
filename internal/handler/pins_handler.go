package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/moodboard/internal/middleware"
	"github.com/hitoshi/moodboard/internal/model"
	"github.com/hitoshi/moodboard/internal/pins"
)

// PinsServiceInterface はピン取得ハンドラーが必要とするサービスインターフェース。
type PinsServiceInterface interface {
	GetAllPins(ctx context.Context, accessToken string) (*pins.Result, error)
}

// PinsHandler はPinterestのピン一覧を返すHTTPハンドラー。
type PinsHandler struct {
	service PinsServiceInterface
}

// NewPinsHandler はPinsHandlerを生成する。
func NewPinsHandler(service PinsServiceInterface) *PinsHandler {
	return &PinsHandler{service: service}
}

// GetPins はユーザーの全ボードのピンを集約して返す。
// GET /api/getPins
func (h *PinsHandler) GetPins(w http.ResponseWriter, r *http.Request) {
	token := middleware.TokenFromContext(r.Context())
	if token == "" {
		token = middleware.TokenFromRequest(r)
	}
	if token == "" {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	result, err := h.service.GetAllPins(r.Context(), token)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}
