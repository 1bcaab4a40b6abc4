package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/moodboard/internal/model"
)

// uniqueViolation はPostgreSQLのunique_violationエラーコード。
const uniqueViolation = "23505"

// PostgresMoodboardRepo はPostgreSQLを使用したムードボードリポジトリ。
type PostgresMoodboardRepo struct {
	db *sql.DB
}

var _ MoodboardRepository = (*PostgresMoodboardRepo)(nil)

// NewPostgresMoodboardRepo はPostgresMoodboardRepoを生成する。
func NewPostgresMoodboardRepo(db *sql.DB) *PostgresMoodboardRepo {
	return &PostgresMoodboardRepo{db: db}
}

const moodboardColumns = `id, name, description, user_email, created_at, updated_at`

func scanMoodboard(row interface{ Scan(...any) error }) (*model.Moodboard, error) {
	mb := &model.Moodboard{}
	var description sql.NullString
	if err := row.Scan(&mb.ID, &mb.Name, &description, &mb.UserEmail, &mb.CreatedAt, &mb.UpdatedAt); err != nil {
		return nil, err
	}
	if description.Valid {
		mb.Description = &description.String
	}
	return mb, nil
}

// ListByEmail はユーザーのムードボード一覧をcreated_at降順で返す。
func (r *PostgresMoodboardRepo) ListByEmail(ctx context.Context, email string) ([]*model.Moodboard, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+moodboardColumns+`
		 FROM moodboards WHERE user_email = $1 ORDER BY created_at DESC, name ASC`,
		email,
	)
	if err != nil {
		return nil, fmt.Errorf("ムードボード一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	moodboards := []*model.Moodboard{}
	for rows.Next() {
		mb, err := scanMoodboard(rows)
		if err != nil {
			return nil, fmt.Errorf("ムードボード行の読み取りに失敗しました: %w", err)
		}
		moodboards = append(moodboards, mb)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ムードボード一覧の走査に失敗しました: %w", err)
	}
	return moodboards, nil
}

// FindByID は指定IDのムードボードを取得する。見つからない場合はnilを返す。
func (r *PostgresMoodboardRepo) FindByID(ctx context.Context, id string) (*model.Moodboard, error) {
	mb, err := scanMoodboard(r.db.QueryRowContext(ctx,
		`SELECT `+moodboardColumns+` FROM moodboards WHERE id = $1`,
		id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ムードボードの取得に失敗しました: %w", err)
	}
	return mb, nil
}

// FindByNameAndEmail は名前と所有者でムードボードを検索する。見つからない場合はnilを返す。
func (r *PostgresMoodboardRepo) FindByNameAndEmail(ctx context.Context, name, email string) (*model.Moodboard, error) {
	mb, err := scanMoodboard(r.db.QueryRowContext(ctx,
		`SELECT `+moodboardColumns+` FROM moodboards WHERE name = $1 AND user_email = $2`,
		name, email,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("名前によるムードボードの検索に失敗しました: %w", err)
	}
	return mb, nil
}

// Create はムードボードを作成する。
// IDが空の場合はデータベース側で採番する。
func (r *PostgresMoodboardRepo) Create(ctx context.Context, mb *model.Moodboard) error {
	var id any
	if mb.ID != "" {
		id = mb.ID
	}
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO moodboards (id, name, description, user_email)
		 VALUES (COALESCE($1::uuid, gen_random_uuid()), $2, $3, $4)
		 RETURNING id, created_at, updated_at`,
		id, mb.Name, mb.Description, mb.UserEmail,
	).Scan(&mb.ID, &mb.CreatedAt, &mb.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("ムードボード %q は既に存在します: %w", mb.Name, ErrDuplicate)
		}
		return fmt.Errorf("ムードボードの作成に失敗しました: %w", err)
	}
	return nil
}

// Update は名前と説明を更新し、updated_atを進める。
func (r *PostgresMoodboardRepo) Update(ctx context.Context, mb *model.Moodboard) error {
	err := r.db.QueryRowContext(ctx,
		`UPDATE moodboards SET name = $2, description = $3, updated_at = NOW()
		 WHERE id = $1
		 RETURNING user_email, created_at, updated_at`,
		mb.ID, mb.Name, mb.Description,
	).Scan(&mb.UserEmail, &mb.CreatedAt, &mb.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("ムードボードが見つかりません: %s: %w", mb.ID, ErrNotFound)
	}
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("ムードボード %q は既に存在します: %w", mb.Name, ErrDuplicate)
		}
		return fmt.Errorf("ムードボードの更新に失敗しました: %w", err)
	}
	return nil
}

// Delete はムードボードを削除する。
func (r *PostgresMoodboardRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM moodboards WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("ムードボードの削除に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("削除結果の取得に失敗しました: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("ムードボードが見つかりません: %s: %w", id, ErrNotFound)
	}
	return nil
}

// createDefaultsQuery は所有ムードボードが0件のユーザーにのみデフォルトを一括作成する。
// NOT EXISTSを同時に通過したリクエスト同士はON CONFLICTで重複が捨てられる。
const createDefaultsQuery = `
	INSERT INTO moodboards (name, description, user_email)
	SELECT d.name, d.description, $1::text
	FROM (VALUES
		($2::text, $3::text, 1), ($4, $5, 2), ($6, $7, 3), ($8, $9, 4), ($10, $11, 5)
	) AS d(name, description, ord)
	WHERE NOT EXISTS (SELECT 1 FROM moodboards WHERE user_email = $1::text)
	ORDER BY d.ord
	ON CONFLICT (user_email, name) DO NOTHING`

// CreateDefaults はデフォルトムードボードを作成し、作成件数を返す。
func (r *PostgresMoodboardRepo) CreateDefaults(ctx context.Context, email string) (int, error) {
	args := make([]any, 0, 1+2*model.DefaultMoodboardCount)
	args = append(args, email)
	for i := 1; i <= model.DefaultMoodboardCount; i++ {
		args = append(args, model.DefaultMoodboardName(i), model.DefaultMoodboardDescription(i))
	}

	result, err := r.db.ExecContext(ctx, createDefaultsQuery, args...)
	if err != nil {
		return 0, fmt.Errorf("デフォルトムードボードの作成に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("作成結果の取得に失敗しました: %w", err)
	}
	return int(rowsAffected), nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
