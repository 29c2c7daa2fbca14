package identity

import (
	"context"
	"errors"
	"fmt"

	"firebase.google.com/go/v4/auth"
)

var (
	// ErrDuplicateIdentifier は同じログイン識別子のアカウントが既に存在する場合に返る。
	ErrDuplicateIdentifier = errors.New("identifier already exists")
	// ErrAccountNotFound は識別子またはIDに対応するアカウントが無い場合に返る。
	ErrAccountNotFound = errors.New("account not found")
	// ErrInvalidCredential は識別子とパスワードの組が一致しない場合に返る。
	ErrInvalidCredential = errors.New("invalid credential")
)

// authClient はFirebaseProviderが使用するAdmin SDKの操作。*auth.Clientが満たす。
type authClient interface {
	CreateUser(ctx context.Context, user *auth.UserToCreate) (*auth.UserRecord, error)
	GetUserByEmail(ctx context.Context, email string) (*auth.UserRecord, error)
	UpdateUser(ctx context.Context, uid string, user *auth.UserToUpdate) (*auth.UserRecord, error)
}

// credentialVerifier はパスワード検証を行う。*PasswordVerifierが満たす。
type credentialVerifier interface {
	Verify(ctx context.Context, identifier, password string) (string, error)
}

// FirebaseProvider はFirebase AuthenticationをIdentity Providerとして使用する。
type FirebaseProvider struct {
	client   authClient
	verifier credentialVerifier

	// SDKのエラー分類。テストで差し替える。
	isDuplicate func(error) bool
	isNotFound  func(error) bool
}

// NewFirebaseProvider はFirebaseProviderを生成する。
func NewFirebaseProvider(client *auth.Client, verifier *PasswordVerifier) *FirebaseProvider {
	return newFirebaseProvider(client, verifier)
}

func newFirebaseProvider(client authClient, verifier credentialVerifier) *FirebaseProvider {
	return &FirebaseProvider{
		client:      client,
		verifier:    verifier,
		isDuplicate: auth.IsEmailAlreadyExists,
		isNotFound:  auth.IsUserNotFound,
	}
}

// CreateAccount は未確認のメールアドレスとしてアカウントを作成し、アカウントIDを返す。
func (p *FirebaseProvider) CreateAccount(ctx context.Context, identifier, credential string) (string, error) {
	params := (&auth.UserToCreate{}).
		Email(identifier).
		Password(credential).
		EmailVerified(false)

	record, err := p.client.CreateUser(ctx, params)
	if err != nil {
		if p.isDuplicate(err) {
			return "", ErrDuplicateIdentifier
		}
		return "", fmt.Errorf("failed to create account: %w", err)
	}
	return record.UID, nil
}

// GetAccountByIdentifier はログイン識別子からアカウントIDを取得する。
func (p *FirebaseProvider) GetAccountByIdentifier(ctx context.Context, identifier string) (string, error) {
	record, err := p.client.GetUserByEmail(ctx, identifier)
	if err != nil {
		if p.isNotFound(err) {
			return "", ErrAccountNotFound
		}
		return "", fmt.Errorf("failed to get account: %w", err)
	}
	return record.UID, nil
}

// VerifyCredential はパスワードを検証し、アカウントIDを返す。
func (p *FirebaseProvider) VerifyCredential(ctx context.Context, identifier, credential string) (string, error) {
	return p.verifier.Verify(ctx, identifier, credential)
}

// SetCredential はアカウントのパスワードを更新する。
func (p *FirebaseProvider) SetCredential(ctx context.Context, accountID, credential string) error {
	_, err := p.client.UpdateUser(ctx, accountID, (&auth.UserToUpdate{}).Password(credential))
	if err != nil {
		if p.isNotFound(err) {
			return ErrAccountNotFound
		}
		return fmt.Errorf("failed to set credential: %w", err)
	}
	return nil
}
