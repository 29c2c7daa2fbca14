package repository

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/hitoshi/gatehouse/internal/model"
)

// profilesCollection はプロフィールを保存するコレクション名。ドキュメントIDはアカウントID。
const profilesCollection = "users"

// FirestoreProfileRepo はFirestoreを使用したプロフィールリポジトリ。
type FirestoreProfileRepo struct {
	client *firestore.Client
}

// firestoreProfile はFirestoreドキュメントの表現。
type firestoreProfile struct {
	Username  string     `firestore:"username"`
	IsAdmin   bool       `firestore:"isAdmin"`
	CreatedAt time.Time  `firestore:"createdAt"`
	LastLogin *time.Time `firestore:"lastLogin"`
}

// NewFirestoreProfileRepo はFirestoreProfileRepoを生成する。
func NewFirestoreProfileRepo(client *firestore.Client) *FirestoreProfileRepo {
	return &FirestoreProfileRepo{client: client}
}

// Create はプロフィールドキュメントを作成する。既に存在する場合はErrProfileExistsを返す。
func (r *FirestoreProfileRepo) Create(ctx context.Context, profile *model.Profile) error {
	doc := r.client.Collection(profilesCollection).Doc(profile.AccountID)
	_, err := doc.Create(ctx, firestoreProfile{
		Username:  profile.Username,
		IsAdmin:   profile.IsAdmin,
		CreatedAt: profile.CreatedAt,
		LastLogin: profile.LastLogin,
	})
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return ErrProfileExists
		}
		return fmt.Errorf("failed to create profile document: %w", err)
	}
	return nil
}

// FindByAccountID はプロフィールを取得する。ドキュメントが無い場合はnilを返す。
func (r *FirestoreProfileRepo) FindByAccountID(ctx context.Context, accountID string) (*model.Profile, error) {
	snap, err := r.client.Collection(profilesCollection).Doc(accountID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get profile document: %w", err)
	}

	var doc firestoreProfile
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode profile document: %w", err)
	}

	return &model.Profile{
		AccountID: accountID,
		Username:  doc.Username,
		IsAdmin:   doc.IsAdmin,
		CreatedAt: doc.CreatedAt,
		LastLogin: doc.LastLogin,
	}, nil
}

// UpdateLastLogin は最終ログイン日時を更新する。
func (r *FirestoreProfileRepo) UpdateLastLogin(ctx context.Context, accountID string, at time.Time) error {
	return r.update(ctx, accountID, firestore.Update{Path: "lastLogin", Value: at})
}

// SetAdmin は管理者フラグを更新する。
func (r *FirestoreProfileRepo) SetAdmin(ctx context.Context, accountID string, isAdmin bool) error {
	return r.update(ctx, accountID, firestore.Update{Path: "isAdmin", Value: isAdmin})
}

// update は既存ドキュメントのみを更新する。存在しない場合はErrProfileNotFoundを返す。
func (r *FirestoreProfileRepo) update(ctx context.Context, accountID string, updates ...firestore.Update) error {
	_, err := r.client.Collection(profilesCollection).Doc(accountID).Update(ctx, updates)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return ErrProfileNotFound
		}
		return fmt.Errorf("failed to update profile document: %w", err)
	}
	return nil
}

// compile-time interface check
var _ ProfileRepository = (*FirestoreProfileRepo)(nil)
