package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/moodboard/internal/model"
)

// PostgresMoodboardPinRepo はPostgreSQLを使用したムードボードピンリポジトリ。
type PostgresMoodboardPinRepo struct {
	db *sql.DB
}

var _ MoodboardPinRepository = (*PostgresMoodboardPinRepo)(nil)

// NewPostgresMoodboardPinRepo はPostgresMoodboardPinRepoを生成する。
func NewPostgresMoodboardPinRepo(db *sql.DB) *PostgresMoodboardPinRepo {
	return &PostgresMoodboardPinRepo{db: db}
}

const pinColumns = `id, moodboard_id, pin_id, pin_data, position_x, position_y, created_at`

func scanPin(row interface{ Scan(...any) error }) (*model.MoodboardPin, error) {
	pin := &model.MoodboardPin{}
	var data []byte
	var x, y sql.NullFloat64
	if err := row.Scan(&pin.ID, &pin.MoodboardID, &pin.PinID, &data, &x, &y, &pin.CreatedAt); err != nil {
		return nil, err
	}
	pin.PinData = data
	if x.Valid {
		pin.PositionX = &x.Float64
	}
	if y.Valid {
		pin.PositionY = &y.Float64
	}
	return pin, nil
}

// ListByMoodboard はムードボードのピン一覧をcreated_at降順で返す。
func (r *PostgresMoodboardPinRepo) ListByMoodboard(ctx context.Context, moodboardID string) ([]*model.MoodboardPin, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+pinColumns+`
		 FROM moodboard_pins WHERE moodboard_id = $1 ORDER BY created_at DESC`,
		moodboardID,
	)
	if err != nil {
		return nil, fmt.Errorf("ピン一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	pins := []*model.MoodboardPin{}
	for rows.Next() {
		pin, err := scanPin(rows)
		if err != nil {
			return nil, fmt.Errorf("ピン行の読み取りに失敗しました: %w", err)
		}
		pins = append(pins, pin)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ピン一覧の走査に失敗しました: %w", err)
	}
	return pins, nil
}

// Create はピンを追加する。pin_dataはJSONBとしてそのまま保存する。
func (r *PostgresMoodboardPinRepo) Create(ctx context.Context, pin *model.MoodboardPin) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO moodboard_pins (moodboard_id, pin_id, pin_data, position_x, position_y)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at`,
		pin.MoodboardID, pin.PinID, string(pin.PinData), pin.PositionX, pin.PositionY,
	).Scan(&pin.ID, &pin.CreatedAt)
	if err != nil {
		return fmt.Errorf("ピンの追加に失敗しました: %w", err)
	}
	return nil
}

// Delete はムードボードに属するピンを削除する。
func (r *PostgresMoodboardPinRepo) Delete(ctx context.Context, moodboardID, id string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM moodboard_pins WHERE id = $1 AND moodboard_id = $2`,
		id, moodboardID,
	)
	if err != nil {
		return fmt.Errorf("ピンの削除に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("削除結果の取得に失敗しました: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("ピンが見つかりません: %s: %w", id, ErrNotFound)
	}
	return nil
}

// UpdatePosition はピンの座標を更新して更新後のピンを返す。
func (r *PostgresMoodboardPinRepo) UpdatePosition(ctx context.Context, moodboardID, id string, x, y float64) (*model.MoodboardPin, error) {
	pin, err := scanPin(r.db.QueryRowContext(ctx,
		`UPDATE moodboard_pins SET position_x = $3, position_y = $4
		 WHERE id = $1 AND moodboard_id = $2
		 RETURNING `+pinColumns,
		id, moodboardID, x, y,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("ピンが見つかりません: %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("ピン座標の更新に失敗しました: %w", err)
	}
	return pin, nil
}
