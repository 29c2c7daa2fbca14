// Package repository はデータ永続化のインターフェースと実装を提供する。
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/hitoshi/gatehouse/internal/model"
)

// ErrProfileExists は同じアカウントIDまたはユーザー名のプロフィールが既に存在する場合に返る。
var ErrProfileExists = errors.New("profile already exists")

// ErrProfileNotFound は更新対象のプロフィールが存在しない場合に返る。
var ErrProfileNotFound = errors.New("profile not found")

// ProfileRepository はアカウントプロフィールの永続化インターフェース。
type ProfileRepository interface {
	// Create はプロフィールを作成する。既に存在する場合はErrProfileExistsを返す。
	Create(ctx context.Context, profile *model.Profile) error
	// FindByAccountID は指定アカウントのプロフィールを取得する。見つからない場合はnilを返す。
	FindByAccountID(ctx context.Context, accountID string) (*model.Profile, error)
	// UpdateLastLogin は最終ログイン日時を更新する。
	UpdateLastLogin(ctx context.Context, accountID string, at time.Time) error
	// SetAdmin は管理者フラグを更新する。存在しない場合はErrProfileNotFoundを返す。
	SetAdmin(ctx context.Context, accountID string, isAdmin bool) error
}

// SessionRepository はセッションの永続化インターフェース。
// 削除済みまたは存在しないトークンが古いレコードに解決されることはない。
type SessionRepository interface {
	// Create はセッションを保存し、クライアントに渡す不透明なトークンを返す。
	// session.Token、CreatedAt、ExpiresAtはこのメソッドで設定される。
	Create(ctx context.Context, session *model.Session) (string, error)
	// FindByToken はトークンに対応するセッションを取得する。存在しないか期限切れの場合はnilを返す。
	FindByToken(ctx context.Context, token string) (*model.Session, error)
	// DeleteByToken はセッションを削除する。存在しない場合もエラーにしない。
	DeleteByToken(ctx context.Context, token string) error
	// Ping はストアへの疎通を確認する。
	Ping(ctx context.Context) error
}

// ContactRepository はお問い合わせメッセージの永続化インターフェース。
type ContactRepository interface {
	// Create はメッセージを1件保存する。
	Create(ctx context.Context, msg *model.ContactMessage) error
}
