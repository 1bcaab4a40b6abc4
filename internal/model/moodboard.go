// Package model はドメインモデルを定義する。
package model

import (
	"encoding/json"
	"fmt"
	"regexp"
	"time"
)

// DefaultMoodboardCount は初回アクセス時に自動作成するデフォルトムードボードの数。
const DefaultMoodboardCount = 5

// defaultMoodboardNamePattern はデフォルトムードボード名（moodboard-1..moodboard-5）にマッチする。
var defaultMoodboardNamePattern = regexp.MustCompile(`^moodboard-[1-5]$`)

// Moodboard はユーザーが作成するピンのコレクションを表す。
// 所有者はメールアドレスで識別する。
type Moodboard struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	UserEmail   string    `json:"user_email"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// MoodboardPin はムードボードに追加されたピンを表す。
// PinDataはプロバイダーから取得したピンのJSONをそのまま保持する。
type MoodboardPin struct {
	ID          string          `json:"id"`
	MoodboardID string          `json:"moodboard_id"`
	PinID       string          `json:"pin_id"`
	PinData     json.RawMessage `json:"pin_data"`
	PositionX   *float64        `json:"position_x"`
	PositionY   *float64        `json:"position_y"`
	CreatedAt   time.Time       `json:"created_at"`
}

// IsDefaultMoodboardName は名前がデフォルトムードボード名かどうかを判定する。
func IsDefaultMoodboardName(name string) bool {
	return defaultMoodboardNamePattern.MatchString(name)
}

// DefaultMoodboardName はn番目（1始まり）のデフォルトムードボード名を返す。
func DefaultMoodboardName(n int) string {
	return fmt.Sprintf("moodboard-%d", n)
}

// DefaultMoodboardDescription はn番目（1始まり）のデフォルトムードボードの説明文を返す。
func DefaultMoodboardDescription(n int) string {
	return fmt.Sprintf("Default moodboard %d", n)
}
