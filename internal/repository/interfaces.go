// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"

	"github.com/hitoshi/moodboard/internal/model"
)

// ErrNotFound は更新・削除対象の行が存在しない場合に返される。
// 取得系メソッドは見つからない場合にnilを返し、このエラーは使わない。
var ErrNotFound = errors.New("record not found")

// ErrDuplicate は(user_email, name)のユニーク制約違反時に返される。
var ErrDuplicate = errors.New("duplicate record")

// MoodboardRepository はムードボードの永続化インターフェース。
type MoodboardRepository interface {
	// ListByEmail はユーザーのムードボード一覧をcreated_at降順で返す。
	ListByEmail(ctx context.Context, email string) ([]*model.Moodboard, error)

	// FindByID は指定IDのムードボードを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Moodboard, error)

	// FindByNameAndEmail は名前と所有者でムードボードを検索する。見つからない場合はnilを返す。
	FindByNameAndEmail(ctx context.Context, name, email string) (*model.Moodboard, error)

	// Create はムードボードを作成し、採番されたID・タイムスタンプを反映する。
	// 同名のムードボードが既に存在する場合はErrDuplicateを返す。
	Create(ctx context.Context, moodboard *model.Moodboard) error

	// Update は名前と説明を更新する。対象が存在しない場合はErrNotFoundを返す。
	Update(ctx context.Context, moodboard *model.Moodboard) error

	// Delete はムードボードを削除する。ピンはCASCADE削除される。
	// 対象が存在しない場合はErrNotFoundを返す。
	Delete(ctx context.Context, id string) error

	// CreateDefaults はユーザーがムードボードを1つも持たない場合に限り
	// moodboard-1〜moodboard-5を1文で作成し、作成件数を返す。
	// 同時に呼ばれても5件に収束する。
	CreateDefaults(ctx context.Context, email string) (int, error)
}

// MoodboardPinRepository はムードボードピンの永続化インターフェース。
type MoodboardPinRepository interface {
	// ListByMoodboard はムードボードのピン一覧をcreated_at降順で返す。
	ListByMoodboard(ctx context.Context, moodboardID string) ([]*model.MoodboardPin, error)

	// Create はピンを追加し、採番されたID・タイムスタンプを反映する。
	Create(ctx context.Context, pin *model.MoodboardPin) error

	// Delete はムードボードに属するピンを削除する。対象が存在しない場合はErrNotFoundを返す。
	Delete(ctx context.Context, moodboardID, id string) error

	// UpdatePosition はピンの座標を更新して更新後のピンを返す。
	// 対象が存在しない場合はErrNotFoundを返す。
	UpdatePosition(ctx context.Context, moodboardID, id string, x, y float64) (*model.MoodboardPin, error)
}
