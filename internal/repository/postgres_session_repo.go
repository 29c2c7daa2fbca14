package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hitoshi/gatehouse/internal/model"
)

// PostgresSessionRepo はPostgreSQLを使用したセッションリポジトリ。
// 期限切れ行はFindByTokenで返さず、cleanupジョブが定期的に削除する。
type PostgresSessionRepo struct {
	db  *sql.DB
	ttl time.Duration
}

// NewPostgresSessionRepo はPostgresSessionRepoを生成する。
// ttlは作成したセッションの有効期間。
func NewPostgresSessionRepo(db *sql.DB, ttl time.Duration) *PostgresSessionRepo {
	return &PostgresSessionRepo{db: db, ttl: ttl}
}

// Create はセッションを作成し、トークンを返す。
func (r *PostgresSessionRepo) Create(ctx context.Context, session *model.Session) (string, error) {
	token, err := generateSessionToken()
	if err != nil {
		return "", err
	}

	now := time.Now()
	session.Token = token
	session.CreatedAt = now
	session.ExpiresAt = now.Add(r.ttl)

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO sessions (token, account_id, is_admin, expires_at, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		session.Token, session.AccountID, session.IsAdmin, session.ExpiresAt, session.CreatedAt,
	)
	if err != nil {
		return "", fmt.Errorf("failed to create session: %w", err)
	}
	return token, nil
}

// FindByToken は指定トークンのセッションを取得する。期限切れの場合はnilを返す。
func (r *PostgresSessionRepo) FindByToken(ctx context.Context, token string) (*model.Session, error) {
	session := &model.Session{}
	err := r.db.QueryRowContext(ctx,
		`SELECT token, account_id, is_admin, expires_at, created_at
		 FROM sessions
		 WHERE token = $1 AND expires_at > now()`,
		token,
	).Scan(&session.Token, &session.AccountID, &session.IsAdmin, &session.ExpiresAt, &session.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	return session, nil
}

// DeleteByToken は指定トークンのセッションを削除する。
func (r *PostgresSessionRepo) DeleteByToken(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE token = $1`,
		token,
	)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// Ping はデータベースへの疎通を確認する。
func (r *PostgresSessionRepo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// compile-time interface check
var _ SessionRepository = (*PostgresSessionRepo)(nil)
