package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/moodboard/internal/middleware"
	"github.com/hitoshi/moodboard/internal/model"
	"github.com/hitoshi/moodboard/internal/moodboard"
)

// MoodboardServiceInterface はムードボードハンドラーが必要とするサービスインターフェース。
type MoodboardServiceInterface interface {
	List(ctx context.Context, email string) ([]*model.Moodboard, error)
	Get(ctx context.Context, id string) (*model.Moodboard, error)
	Create(ctx context.Context, in moodboard.CreateInput) (*model.Moodboard, error)
	Update(ctx context.Context, id string, in moodboard.UpdateInput) (*model.Moodboard, error)
	Delete(ctx context.Context, id string) error
	GetByName(ctx context.Context, name, email string) (*model.Moodboard, error)
	GetWithPinsByName(ctx context.Context, name, email string) (*model.Moodboard, []*model.MoodboardPin, error)

	ListPins(ctx context.Context, moodboardID string) ([]*model.MoodboardPin, error)
	AddPin(ctx context.Context, moodboardID string, in moodboard.AddPinInput) (*model.MoodboardPin, error)
	RemovePin(ctx context.Context, moodboardID, id string) error
	UpdatePinPosition(ctx context.Context, moodboardID, id string, x, y float64) (*model.MoodboardPin, error)
}

// MoodboardHandler はムードボード管理のHTTPハンドラー。
type MoodboardHandler struct {
	service MoodboardServiceInterface
}

// NewMoodboardHandler はMoodboardHandlerを生成する。
func NewMoodboardHandler(service MoodboardServiceInterface) *MoodboardHandler {
	return &MoodboardHandler{service: service}
}

type createMoodboardRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
	UserEmail   string  `json:"user_email"`
}

type updateMoodboardRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

type addPinRequest struct {
	PinID     string          `json:"pin_id"`
	PinData   json.RawMessage `json:"pin_data"`
	PositionX *float64        `json:"position_x"`
	PositionY *float64        `json:"position_y"`
}

type updatePinPositionRequest struct {
	PositionX *float64 `json:"position_x"`
	PositionY *float64 `json:"position_y"`
}

type moodboardResponse struct {
	Moodboard *model.Moodboard `json:"moodboard"`
}

type moodboardListResponse struct {
	Moodboards []*model.Moodboard `json:"moodboards"`
}

type pinResponse struct {
	Pin *model.MoodboardPin `json:"pin"`
}

type pinListResponse struct {
	Pins []*model.MoodboardPin `json:"pins"`
}

type moodboardWithPinsResponse struct {
	Moodboard *model.Moodboard      `json:"moodboard"`
	Pins      []*model.MoodboardPin `json:"pins"`
}

// List はユーザーのムードボード一覧を返す。
// GET /api/moodboards?email=
func (h *MoodboardHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context(), r.URL.Query().Get("email"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, moodboardListResponse{Moodboards: list})
}

// Create はムードボードを作成する。
// POST /api/moodboards
func (h *MoodboardHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createMoodboardRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	mb, err := h.service.Create(r.Context(), moodboard.CreateInput{
		Name:        req.Name,
		Description: req.Description,
		UserEmail:   req.UserEmail,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, moodboardResponse{Moodboard: mb})
}

// GetByName は名前と所有者でムードボードを返す。
// GET /api/moodboards/by-name?name=&email=
func (h *MoodboardHandler) GetByName(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	mb, err := h.service.GetByName(r.Context(), q.Get("name"), q.Get("email"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, moodboardResponse{Moodboard: mb})
}

// Get はムードボード詳細を返す。
// GET /api/moodboards/{id}
func (h *MoodboardHandler) Get(w http.ResponseWriter, r *http.Request) {
	mb, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, moodboardResponse{Moodboard: mb})
}

// Update はムードボードの名前と説明を更新する。
// PUT /api/moodboards/{id}
func (h *MoodboardHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateMoodboardRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	mb, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), moodboard.UpdateInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, moodboardResponse{Moodboard: mb})
}

// Delete はムードボードを削除する。
// DELETE /api/moodboards/{id}
func (h *MoodboardHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

// ListPins はムードボードのピン一覧を返す。
// GET /api/moodboards/{id}/pins
func (h *MoodboardHandler) ListPins(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListPins(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pinListResponse{Pins: list})
}

// AddPin はムードボードにピンを追加する。
// POST /api/moodboards/{id}/pins
func (h *MoodboardHandler) AddPin(w http.ResponseWriter, r *http.Request) {
	var req addPinRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	pin, err := h.service.AddPin(r.Context(), chi.URLParam(r, "id"), moodboard.AddPinInput{
		PinID:     req.PinID,
		PinData:   req.PinData,
		PositionX: req.PositionX,
		PositionY: req.PositionY,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, pinResponse{Pin: pin})
}

// RemovePinByQuery はクエリで指定したピンを削除する。
// DELETE /api/moodboards/{id}/pins?pin_id=
func (h *MoodboardHandler) RemovePinByQuery(w http.ResponseWriter, r *http.Request) {
	h.removePin(w, r, r.URL.Query().Get("pin_id"))
}

// RemovePin はパスで指定したピンを削除する。
// DELETE /api/moodboards/{id}/pins/{pinId}
func (h *MoodboardHandler) RemovePin(w http.ResponseWriter, r *http.Request) {
	h.removePin(w, r, chi.URLParam(r, "pinId"))
}

func (h *MoodboardHandler) removePin(w http.ResponseWriter, r *http.Request, pinID string) {
	if err := h.service.RemovePin(r.Context(), chi.URLParam(r, "id"), pinID); err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

// UpdatePinPosition はピンの座標を更新する。
// PATCH /api/moodboards/{id}/pins/{pinId}
func (h *MoodboardHandler) UpdatePinPosition(w http.ResponseWriter, r *http.Request) {
	var req updatePinPositionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	var missing []string
	if req.PositionX == nil {
		missing = append(missing, "position_x")
	}
	if req.PositionY == nil {
		missing = append(missing, "position_y")
	}
	if len(missing) > 0 {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewMissingParameterError(missing...))
		return
	}

	pin, err := h.service.UpdatePinPosition(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "pinId"), *req.PositionX, *req.PositionY)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pinResponse{Pin: pin})
}

// PinsByName は名前と所有者でムードボードとピンを返す。埋め込みウィジェット向け。
// GET /api/moodboard-pins-by-name?name=&email=
func (h *MoodboardHandler) PinsByName(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	h.writeMoodboardWithPins(w, r, q.Get("name"), q.Get("email"))
}

// PinsByPathName はパスの名前と所有者でムードボードとピンを返す。
// GET /api/moodboard-pins/{name}?email=
func (h *MoodboardHandler) PinsByPathName(w http.ResponseWriter, r *http.Request) {
	h.writeMoodboardWithPins(w, r, chi.URLParam(r, "name"), r.URL.Query().Get("email"))
}

func (h *MoodboardHandler) writeMoodboardWithPins(w http.ResponseWriter, r *http.Request, name, email string) {
	mb, list, err := h.service.GetWithPinsByName(r.Context(), name, email)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, moodboardWithPinsResponse{Moodboard: mb, Pins: list})
}
