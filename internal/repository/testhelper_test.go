package repository

import (
	"database/sql"
	"os"
	"testing"

	"github.com/hitoshi/moodboard/internal/database"
)

// setupRepoDB はマイグレーション済みのテスト用DBを返す。
// TEST_DATABASE_URLが未設定またはDBに接続できない場合はスキップする。
func setupRepoDB(t *testing.T) *sql.DB {
	t.Helper()

	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL が未設定のためスキップ")
	}

	db, err := database.Open(dbURL)
	if err != nil {
		t.Fatalf("データベースへの接続に失敗: %v", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		t.Skipf("テスト用データベースに接続できません（スキップ）: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := database.RunMigrations(dbURL); err != nil {
		t.Fatalf("マイグレーション実行に失敗: %v", err)
	}
	if _, err := db.Exec(`TRUNCATE moodboard_pins, moodboards`); err != nil {
		t.Fatalf("テーブルの初期化に失敗: %v", err)
	}
	return db
}

func strPtr(s string) *string { return &s }

func floatPtr(f float64) *float64 { return &f }
