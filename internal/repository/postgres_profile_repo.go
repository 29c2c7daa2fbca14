package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/lib/pq"

	"github.com/hitoshi/gatehouse/internal/model"
)

// PostgresProfileRepo はPostgreSQLを使用したプロフィールリポジトリ。
type PostgresProfileRepo struct {
	db *sql.DB
}

// NewPostgresProfileRepo はPostgresProfileRepoを生成する。
func NewPostgresProfileRepo(db *sql.DB) *PostgresProfileRepo {
	return &PostgresProfileRepo{db: db}
}

// Create はプロフィールを作成する。
// アカウントIDまたはユーザー名が重複する場合はErrProfileExistsを返す。
func (r *PostgresProfileRepo) Create(ctx context.Context, profile *model.Profile) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO profiles (account_id, username, is_admin, created_at, last_login)
		 VALUES ($1, $2, $3, $4, $5)`,
		profile.AccountID, profile.Username, profile.IsAdmin, profile.CreatedAt, profile.LastLogin,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrProfileExists
		}
		return fmt.Errorf("failed to insert profile: %w", err)
	}
	return nil
}

// FindByAccountID は指定アカウントのプロフィールを取得する。見つからない場合はnilを返す。
func (r *PostgresProfileRepo) FindByAccountID(ctx context.Context, accountID string) (*model.Profile, error) {
	profile := &model.Profile{}
	var lastLogin sql.NullTime
	err := r.db.QueryRowContext(ctx,
		`SELECT account_id, username, is_admin, created_at, last_login
		 FROM profiles WHERE account_id = $1`,
		accountID,
	).Scan(&profile.AccountID, &profile.Username, &profile.IsAdmin, &profile.CreatedAt, &lastLogin)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find profile by account ID: %w", err)
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		profile.LastLogin = &t
	}
	return profile, nil
}

// UpdateLastLogin は最終ログイン日時を更新する。
func (r *PostgresProfileRepo) UpdateLastLogin(ctx context.Context, accountID string, at time.Time) error {
	return r.updateOne(ctx,
		`UPDATE profiles SET last_login = $2 WHERE account_id = $1`,
		accountID, at,
	)
}

// SetAdmin は管理者フラグを更新する。
func (r *PostgresProfileRepo) SetAdmin(ctx context.Context, accountID string, isAdmin bool) error {
	return r.updateOne(ctx,
		`UPDATE profiles SET is_admin = $2 WHERE account_id = $1`,
		accountID, isAdmin,
	)
}

// updateOne は1行だけ更新されることを期待するUPDATEを実行する。
func (r *PostgresProfileRepo) updateOne(ctx context.Context, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrProfileNotFound
	}
	return nil
}

// isUniqueViolation はPostgreSQLの一意制約違反かどうかを判定する。
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == pgerrcode.UniqueViolation
	}
	return false
}

// compile-time interface check
var _ ProfileRepository = (*PostgresProfileRepo)(nil)
