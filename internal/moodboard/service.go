// Package moodboard はムードボードとムードボードピン管理のドメインロジックを提供する。
package moodboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/hitoshi/moodboard/internal/metrics"
	"github.com/hitoshi/moodboard/internal/model"
	"github.com/hitoshi/moodboard/internal/repository"
)

// Sanitizer はユーザー入力テキストをプレーンテキストに変換する。
type Sanitizer interface {
	Sanitize(raw string) string
}

// CreateInput はムードボード作成の入力。
type CreateInput struct {
	Name        string
	Description *string
	UserEmail   string
}

// UpdateInput はムードボード更新の入力。
type UpdateInput struct {
	Name        string
	Description *string
}

// AddPinInput はピン追加の入力。
type AddPinInput struct {
	PinID     string
	PinData   json.RawMessage
	PositionX *float64
	PositionY *float64
}

// Service はムードボード管理のサービス層。
type Service struct {
	moodboards repository.MoodboardRepository
	pins       repository.MoodboardPinRepository
	sanitizer  Sanitizer
	metrics    metrics.MetricsCollector
	logger     *slog.Logger
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	moodboards repository.MoodboardRepository,
	pins repository.MoodboardPinRepository,
	sanitizer Sanitizer,
	collector metrics.MetricsCollector,
	logger *slog.Logger,
) *Service {
	if collector == nil {
		collector = metrics.Nop{}
	}
	return &Service{
		moodboards: moodboards,
		pins:       pins,
		sanitizer:  sanitizer,
		metrics:    collector,
		logger:     logger,
	}
}

// List はユーザーのムードボード一覧を新しい順に返す。
func (s *Service) List(ctx context.Context, email string) ([]*model.Moodboard, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, model.NewMissingParameterError("email")
	}
	list, err := s.moodboards.ListByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("ムードボード一覧の取得に失敗しました: %w", err)
	}
	if list == nil {
		list = []*model.Moodboard{}
	}
	return list, nil
}

// Get は指定IDのムードボードを返す。
func (s *Service) Get(ctx context.Context, id string) (*model.Moodboard, error) {
	return s.findByID(ctx, id)
}

// Create はムードボードを作成する。名前と説明はマークアップを除去して保存する。
func (s *Service) Create(ctx context.Context, in CreateInput) (*model.Moodboard, error) {
	name := s.sanitizer.Sanitize(in.Name)
	email := strings.TrimSpace(in.UserEmail)

	var missing []string
	if name == "" {
		missing = append(missing, "name")
	}
	if email == "" {
		missing = append(missing, "user_email")
	}
	if len(missing) > 0 {
		return nil, model.NewMissingParameterError(missing...)
	}

	mb := &model.Moodboard{
		ID:          uuid.New().String(),
		Name:        name,
		Description: s.sanitizeDescription(in.Description),
		UserEmail:   email,
	}
	if err := s.moodboards.Create(ctx, mb); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, model.NewDuplicateMoodboardError(name)
		}
		return nil, fmt.Errorf("ムードボードの作成に失敗しました: %w", err)
	}

	s.logger.Info("ムードボードを作成しました",
		slog.String("moodboard_id", mb.ID),
		slog.String("user_email", mb.UserEmail),
	)
	return mb, nil
}

// Update はムードボードの名前と説明を更新する。
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (*model.Moodboard, error) {
	name := s.sanitizer.Sanitize(in.Name)
	if name == "" {
		return nil, model.NewMissingParameterError("name")
	}
	if !isValidID(id) {
		return nil, model.NewMoodboardNotFoundError(id)
	}

	mb := &model.Moodboard{
		ID:          id,
		Name:        name,
		Description: s.sanitizeDescription(in.Description),
	}
	if err := s.moodboards.Update(ctx, mb); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, model.NewMoodboardNotFoundError(id)
		case errors.Is(err, repository.ErrDuplicate):
			return nil, model.NewDuplicateMoodboardError(name)
		}
		return nil, fmt.Errorf("ムードボードの更新に失敗しました: %w", err)
	}
	return mb, nil
}

// Delete はムードボードを削除する。ピンも同時に削除される。
func (s *Service) Delete(ctx context.Context, id string) error {
	if !isValidID(id) {
		return model.NewMoodboardNotFoundError(id)
	}
	if err := s.moodboards.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.NewMoodboardNotFoundError(id)
		}
		return fmt.Errorf("ムードボードの削除に失敗しました: %w", err)
	}
	s.logger.Info("ムードボードを削除しました", slog.String("moodboard_id", id))
	return nil
}

// GetByName は名前と所有者でムードボードを返す。
// 見つからず、名前がmoodboard-1〜5で、所有者がムードボードを1つも持たない場合は
// デフォルトの5件を作成してから再検索する。
func (s *Service) GetByName(ctx context.Context, name, email string) (*model.Moodboard, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)

	var missing []string
	if name == "" {
		missing = append(missing, "name")
	}
	if email == "" {
		missing = append(missing, "email")
	}
	if len(missing) > 0 {
		return nil, model.NewMissingParameterError(missing...)
	}

	mb, err := s.moodboards.FindByNameAndEmail(ctx, name, email)
	if err != nil {
		return nil, fmt.Errorf("ムードボードの検索に失敗しました: %w", err)
	}
	if mb != nil {
		return mb, nil
	}

	if !model.IsDefaultMoodboardName(name) {
		return nil, model.NewMoodboardNotFoundError(name)
	}

	created, err := s.moodboards.CreateDefaults(ctx, email)
	if err != nil {
		// 作成に失敗しても再検索の結果で応答する
		s.logger.Error("デフォルトムードボードの作成に失敗しました",
			slog.String("user_email", email),
			slog.String("error", err.Error()),
		)
	} else if created > 0 {
		s.metrics.RecordDefaultsSeeded(created)
		s.logger.Info("デフォルトムードボードを作成しました",
			slog.String("user_email", email),
			slog.Int("count", created),
		)
	}

	mb, err = s.moodboards.FindByNameAndEmail(ctx, name, email)
	if err != nil {
		return nil, fmt.Errorf("ムードボードの再検索に失敗しました: %w", err)
	}
	if mb == nil {
		return nil, model.NewMoodboardNotFoundError(name)
	}
	return mb, nil
}

// GetWithPinsByName は名前と所有者でムードボードとそのピンを返す。
// デフォルトムードボードの自動作成はGetByNameと同じ。
func (s *Service) GetWithPinsByName(ctx context.Context, name, email string) (*model.Moodboard, []*model.MoodboardPin, error) {
	mb, err := s.GetByName(ctx, name, email)
	if err != nil {
		return nil, nil, err
	}
	pins, err := s.listPins(ctx, mb.ID)
	if err != nil {
		return nil, nil, err
	}
	return mb, pins, nil
}

// ListPins はムードボードのピン一覧を新しい順に返す。
func (s *Service) ListPins(ctx context.Context, moodboardID string) ([]*model.MoodboardPin, error) {
	if _, err := s.findByID(ctx, moodboardID); err != nil {
		return nil, err
	}
	return s.listPins(ctx, moodboardID)
}

// AddPin はムードボードにピンを追加する。pin_dataは任意のJSONとしてそのまま保存する。
func (s *Service) AddPin(ctx context.Context, moodboardID string, in AddPinInput) (*model.MoodboardPin, error) {
	pinID := strings.TrimSpace(in.PinID)
	data := json.RawMessage(strings.TrimSpace(string(in.PinData)))

	var missing []string
	if pinID == "" {
		missing = append(missing, "pin_id")
	}
	if len(data) == 0 || string(data) == "null" {
		missing = append(missing, "pin_data")
	}
	if len(missing) > 0 {
		return nil, model.NewMissingParameterError(missing...)
	}
	if !json.Valid(data) {
		return nil, model.NewInvalidRequestError()
	}

	if _, err := s.findByID(ctx, moodboardID); err != nil {
		return nil, err
	}

	pin := &model.MoodboardPin{
		MoodboardID: moodboardID,
		PinID:       pinID,
		PinData:     data,
		PositionX:   in.PositionX,
		PositionY:   in.PositionY,
	}
	if err := s.pins.Create(ctx, pin); err != nil {
		return nil, fmt.Errorf("ピンの追加に失敗しました: %w", err)
	}

	s.logger.Info("ピンを追加しました",
		slog.String("moodboard_id", moodboardID),
		slog.String("pin_id", pinID),
	)
	return pin, nil
}

// RemovePin はムードボードからピンを削除する。idはムードボードピンのIDを指す。
func (s *Service) RemovePin(ctx context.Context, moodboardID, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return model.NewMissingParameterError("pin_id")
	}
	if !isValidID(moodboardID) {
		return model.NewMoodboardNotFoundError(moodboardID)
	}
	if !isValidID(id) {
		return model.NewPinNotFoundError(id)
	}
	if err := s.pins.Delete(ctx, moodboardID, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.NewPinNotFoundError(id)
		}
		return fmt.Errorf("ピンの削除に失敗しました: %w", err)
	}
	return nil
}

// UpdatePinPosition はピンの座標を更新する。
func (s *Service) UpdatePinPosition(ctx context.Context, moodboardID, id string, x, y float64) (*model.MoodboardPin, error) {
	if !isValidID(moodboardID) {
		return nil, model.NewMoodboardNotFoundError(moodboardID)
	}
	if !isValidID(id) {
		return nil, model.NewPinNotFoundError(id)
	}
	pin, err := s.pins.UpdatePosition(ctx, moodboardID, id, x, y)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, model.NewPinNotFoundError(id)
		}
		return nil, fmt.Errorf("ピン座標の更新に失敗しました: %w", err)
	}
	return pin, nil
}

func (s *Service) findByID(ctx context.Context, id string) (*model.Moodboard, error) {
	if !isValidID(id) {
		return nil, model.NewMoodboardNotFoundError(id)
	}
	mb, err := s.moodboards.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("ムードボードの取得に失敗しました: %w", err)
	}
	if mb == nil {
		return nil, model.NewMoodboardNotFoundError(id)
	}
	return mb, nil
}

func (s *Service) listPins(ctx context.Context, moodboardID string) ([]*model.MoodboardPin, error) {
	pins, err := s.pins.ListByMoodboard(ctx, moodboardID)
	if err != nil {
		return nil, fmt.Errorf("ピン一覧の取得に失敗しました: %w", err)
	}
	if pins == nil {
		pins = []*model.MoodboardPin{}
	}
	return pins, nil
}

// sanitizeDescription は説明をサニタイズする。空になった場合はnil（NULL）として扱う。
func (s *Service) sanitizeDescription(desc *string) *string {
	if desc == nil {
		return nil
	}
	clean := s.sanitizer.Sanitize(*desc)
	if clean == "" {
		return nil
	}
	return &clean
}

// isValidID はIDがUUID形式かどうかを判定する。UUID以外はDBに問い合わせず未検出として扱う。
func isValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
