// Package account はアカウントのライフサイクル（登録、ログイン、セッション確認、ログアウト）と
// お問い合わせ受付のビジネスロジックを提供する。
//
// 外部の能力（Identity Provider、各ストア）はすべてインターフェースとして注入される。
// 各操作は失敗をmodel.APIErrorのいずれかの種別に1か所で変換して返す。
package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/hitoshi/gatehouse/internal/identity"
	"github.com/hitoshi/gatehouse/internal/metrics"
	"github.com/hitoshi/gatehouse/internal/model"
	"github.com/hitoshi/gatehouse/internal/repository"
)

// minPasswordLength はIdentity Providerが受け付ける最小パスワード長。
const minPasswordLength = 6

// お問い合わせ項目の最大文字数（サニタイズ後）。contact_messagesテーブルの列長と一致させる。
const (
	maxContactNameLength  = 255
	maxContactEmailLength = 320
)

// IdentityProvider はアカウントと認証情報を管理する外部サービスのインターフェース。
type IdentityProvider interface {
	// CreateAccount はアカウントを作成しIDを返す。重複時はidentity.ErrDuplicateIdentifierを返す。
	CreateAccount(ctx context.Context, identifier, credential string) (string, error)
	// GetAccountByIdentifier は識別子からIDを返す。存在しない場合はidentity.ErrAccountNotFoundを返す。
	GetAccountByIdentifier(ctx context.Context, identifier string) (string, error)
	// VerifyCredential は認証情報を検証しIDを返す。不一致はidentity.ErrInvalidCredentialを返す。
	VerifyCredential(ctx context.Context, identifier, credential string) (string, error)
	// SetCredential は認証情報を更新する。
	SetCredential(ctx context.Context, accountID, credential string) error
}

// Sanitizer は外部入力テキストのサニタイズを行う。
type Sanitizer interface {
	Sanitize(raw string) string
}

// Config はアカウントサービスの設定。
type Config struct {
	// LoginDomain はユーザー名からログイン識別子を作る際のドメイン部。
	LoginDomain string
}

// Service はアカウント操作のビジネスロジックを提供する。
type Service struct {
	identity  IdentityProvider
	profiles  repository.ProfileRepository
	sessions  repository.SessionRepository
	contacts  repository.ContactRepository
	sanitizer Sanitizer
	metrics   metrics.MetricsCollector
	config    Config
	now       func() time.Time
}

// NewService はServiceを生成する。
func NewService(
	identityProvider IdentityProvider,
	profiles repository.ProfileRepository,
	sessions repository.SessionRepository,
	contacts repository.ContactRepository,
	sanitizer Sanitizer,
	collector metrics.MetricsCollector,
	config Config,
) *Service {
	if collector == nil {
		collector = metrics.NopCollector{}
	}
	return &Service{
		identity:  identityProvider,
		profiles:  profiles,
		sessions:  sessions,
		contacts:  contacts,
		sanitizer: sanitizer,
		metrics:   collector,
		config:    config,
		now:       time.Now,
	}
}

// observe は操作の結果とレイテンシを記録する。deferで使用する。
func (s *Service) observe(operation string, start time.Time, err *error) {
	outcome := metrics.OutcomeSuccess
	if *err != nil {
		outcome = metrics.OutcomeFailure
	}
	s.metrics.RecordOperation(operation, outcome)
	s.metrics.RecordOperationLatency(operation, time.Since(start))
}

func (s *Service) identifier(username string) string {
	return identity.LoginIdentifier(username, s.config.LoginDomain)
}

// Register はアカウントを作成し、プロフィールを初期化する。
func (s *Service) Register(ctx context.Context, username, password string) (err error) {
	defer s.observe("register", time.Now(), &err)

	if username == "" || password == "" {
		return model.NewValidationError("Username and password are required")
	}
	if !identity.ValidUsername(username) {
		return model.NewValidationError("Username may only contain letters, digits, '.', '_' and '-'")
	}
	if len(password) < minPasswordLength {
		return model.NewValidationError(fmt.Sprintf("Password must be at least %d characters", minPasswordLength))
	}

	accountID, err := s.identity.CreateAccount(ctx, s.identifier(username), password)
	if err != nil {
		if errors.Is(err, identity.ErrDuplicateIdentifier) {
			slog.Info("registration rejected: duplicate username",
				slog.String("username", username),
			)
			return model.NewDuplicateAccountError(err)
		}
		slog.Error("failed to create account",
			slog.String("username", username),
			slog.String("error", err.Error()),
		)
		return model.NewRegistrationFailedError(err)
	}

	profile := &model.Profile{
		AccountID: accountID,
		Username:  username,
		IsAdmin:   false,
		CreatedAt: s.now(),
	}
	if err := s.profiles.Create(ctx, profile); err != nil {
		// Identity Provider側のアカウントは残る（孤立アカウント）
		slog.Error("failed to create profile; identity account is orphaned",
			slog.String("account_id", accountID),
			slog.String("username", username),
			slog.String("error", err.Error()),
		)
		return model.NewRegistrationFailedError(err)
	}

	slog.Info("account registered",
		slog.String("account_id", accountID),
		slog.String("username", username),
	)
	return nil
}

// Login は認証情報を検証し、新しいセッションを発行する。
// previousTokenが指定された場合、発行後にそのセッションを破棄する（1クライアント1セッション）。
// 検証後のあらゆる失敗は呼び出し側にはInvalidCredentialsErrorとして返す。
func (s *Service) Login(ctx context.Context, username, password, previousToken string) (session *model.Session, err error) {
	defer s.observe("login", time.Now(), &err)

	if username == "" || password == "" {
		return nil, model.NewValidationError("Username and password are required")
	}

	session, cause := s.authenticate(ctx, username, password)
	if cause != nil {
		return nil, model.NewInvalidCredentialsError(cause)
	}

	if previousToken != "" && previousToken != session.Token {
		if err := s.sessions.DeleteByToken(ctx, previousToken); err != nil {
			slog.Warn("failed to destroy previous session",
				slog.String("account_id", session.AccountID),
				slog.String("error", err.Error()),
			)
		}
	}

	slog.Info("user logged in",
		slog.String("account_id", session.AccountID),
		slog.String("username", username),
	)
	return session, nil
}

// authenticate はLoginの各ステップを実行し、失敗理由をログに残して返す。
func (s *Service) authenticate(ctx context.Context, username, password string) (*model.Session, error) {
	if !identity.ValidUsername(username) {
		return nil, errors.New("username is not a valid identifier")
	}
	identifier := s.identifier(username)

	accountID, err := s.identity.GetAccountByIdentifier(ctx, identifier)
	if err != nil {
		logLoginFailure(username, "lookup", err)
		return nil, err
	}

	verifiedID, err := s.identity.VerifyCredential(ctx, identifier, password)
	if err != nil {
		logLoginFailure(username, "verify", err)
		return nil, err
	}
	if verifiedID != accountID {
		err := fmt.Errorf("verified account %q does not match %q", verifiedID, accountID)
		logLoginFailure(username, "verify", err)
		return nil, err
	}

	profile, err := s.profiles.FindByAccountID(ctx, accountID)
	if err != nil {
		logLoginFailure(username, "profile", err)
		return nil, err
	}
	if profile == nil {
		stateErr := model.NewAccountStateError(accountID)
		slog.Error("account has no profile",
			slog.String("account_id", accountID),
			slog.String("username", username),
		)
		return nil, stateErr
	}

	if err := s.profiles.UpdateLastLogin(ctx, accountID, s.now()); err != nil {
		logLoginFailure(username, "last_login", err)
		return nil, err
	}

	session := &model.Session{
		AccountID: accountID,
		IsAdmin:   profile.IsAdmin,
	}
	if _, err := s.sessions.Create(ctx, session); err != nil {
		logLoginFailure(username, "session", err)
		return nil, err
	}
	return session, nil
}

// logLoginFailure はログイン失敗をステップ付きで記録する。
// 存在しないアカウントやパスワード誤りは想定内のためInfo、それ以外はErrorで出力する。
func logLoginFailure(username, step string, err error) {
	level := slog.LevelError
	if errors.Is(err, identity.ErrAccountNotFound) || errors.Is(err, identity.ErrInvalidCredential) {
		level = slog.LevelInfo
	}
	slog.Log(context.Background(), level, "login failed",
		slog.String("username", username),
		slog.String("step", step),
		slog.String("error", err.Error()),
	)
}

// WhoAmI はセッションに対応するユーザー情報をプロフィールから取得する。
// プロフィールが存在しないセッションは破棄する。
func (s *Service) WhoAmI(ctx context.Context, token string) (result *model.WhoAmI, err error) {
	defer s.observe("whoami", time.Now(), &err)

	loggedOut := &model.WhoAmI{LoggedIn: false}
	if token == "" {
		return loggedOut, nil
	}

	session, err := s.sessions.FindByToken(ctx, token)
	if err != nil {
		slog.Error("failed to load session", slog.String("error", err.Error()))
		return loggedOut, model.NewInternalError(err)
	}
	if session == nil {
		return loggedOut, nil
	}

	profile, err := s.profiles.FindByAccountID(ctx, session.AccountID)
	if err != nil {
		slog.Error("failed to load profile",
			slog.String("account_id", session.AccountID),
			slog.String("error", err.Error()),
		)
		return loggedOut, model.NewInternalError(err)
	}
	if profile == nil {
		slog.Warn("session references missing profile; destroying session",
			slog.String("account_id", session.AccountID),
		)
		if err := s.sessions.DeleteByToken(ctx, token); err != nil {
			slog.Error("failed to destroy orphaned session",
				slog.String("account_id", session.AccountID),
				slog.String("error", err.Error()),
			)
		}
		return loggedOut, nil
	}

	return &model.WhoAmI{
		LoggedIn: true,
		User: &model.UserView{
			Username: profile.Username,
			IsAdmin:  profile.IsAdmin,
		},
	}, nil
}

// Logout はセッションを破棄する。トークンが空の場合は何もしない。
func (s *Service) Logout(ctx context.Context, token string) (err error) {
	defer s.observe("logout", time.Now(), &err)

	if token == "" {
		return nil
	}
	if err := s.sessions.DeleteByToken(ctx, token); err != nil {
		slog.Error("failed to destroy session", slog.String("error", err.Error()))
		return model.NewLogoutError(err)
	}
	return nil
}

// SubmitContact はお問い合わせメッセージを保存する。
func (s *Service) SubmitContact(ctx context.Context, name, email, message string) (err error) {
	defer s.observe("contact", time.Now(), &err)

	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	message = strings.TrimSpace(message)
	if name == "" || email == "" || message == "" {
		return model.NewValidationError("Name, email and message are required")
	}

	msg := &model.ContactMessage{
		ID:      uuid.New().String(),
		Name:    s.sanitizer.Sanitize(name),
		Email:   s.sanitizer.Sanitize(email),
		Message: s.sanitizer.Sanitize(message),
	}
	// タグのみの入力はサニタイズ後に空になる
	if msg.Name == "" || msg.Email == "" || msg.Message == "" {
		return model.NewValidationError("Name, email and message are required")
	}
	if utf8.RuneCountInString(msg.Name) > maxContactNameLength {
		return model.NewValidationError(fmt.Sprintf("Name must be at most %d characters", maxContactNameLength))
	}
	if utf8.RuneCountInString(msg.Email) > maxContactEmailLength {
		return model.NewValidationError(fmt.Sprintf("Email must be at most %d characters", maxContactEmailLength))
	}
	msg.ReceivedAt = s.now()
	if err := s.contacts.Create(ctx, msg); err != nil {
		slog.Error("failed to store contact message",
			slog.String("id", msg.ID),
			slog.String("error", err.Error()),
		)
		return model.NewSubmissionFailedError(err)
	}

	slog.Info("contact message received", slog.String("id", msg.ID))
	return nil
}

// ChangePassword はログイン中ユーザーのパスワードを、現在のパスワードを確認した上で変更する。
func (s *Service) ChangePassword(ctx context.Context, token, currentPassword, newPassword string) (err error) {
	defer s.observe("change_password", time.Now(), &err)

	if token == "" {
		return model.NewUnauthenticatedError()
	}
	session, err := s.sessions.FindByToken(ctx, token)
	if err != nil {
		slog.Error("failed to load session", slog.String("error", err.Error()))
		return model.NewInternalError(err)
	}
	if session == nil {
		return model.NewUnauthenticatedError()
	}

	if currentPassword == "" || newPassword == "" {
		return model.NewValidationError("Current and new password are required")
	}
	if len(newPassword) < minPasswordLength {
		return model.NewValidationError(fmt.Sprintf("Password must be at least %d characters", minPasswordLength))
	}

	profile, err := s.profiles.FindByAccountID(ctx, session.AccountID)
	if err != nil {
		return model.NewInternalError(err)
	}
	if profile == nil {
		return model.NewUnauthenticatedError()
	}

	verifiedID, err := s.identity.VerifyCredential(ctx, s.identifier(profile.Username), currentPassword)
	if err != nil || verifiedID != session.AccountID {
		if err == nil {
			err = fmt.Errorf("verified account %q does not match session", verifiedID)
		}
		logLoginFailure(profile.Username, "change_password", err)
		return model.NewInvalidCredentialsError(err)
	}

	if err := s.identity.SetCredential(ctx, session.AccountID, newPassword); err != nil {
		slog.Error("failed to set credential",
			slog.String("account_id", session.AccountID),
			slog.String("error", err.Error()),
		)
		return model.NewInternalError(err)
	}

	slog.Info("password changed", slog.String("account_id", session.AccountID))
	return nil
}

// SetAdmin はユーザー名で指定したアカウントの管理者フラグを変更する。
// WhoAmIは毎回プロフィールを読み直すため、変更は次のリクエストから反映される。
func (s *Service) SetAdmin(ctx context.Context, username string, isAdmin bool) error {
	if !identity.ValidUsername(username) {
		return model.NewValidationError("invalid username")
	}

	accountID, err := s.identity.GetAccountByIdentifier(ctx, s.identifier(username))
	if err != nil {
		if errors.Is(err, identity.ErrAccountNotFound) {
			return fmt.Errorf("user %q not found: %w", username, err)
		}
		return fmt.Errorf("failed to look up user %q: %w", username, err)
	}

	if err := s.profiles.SetAdmin(ctx, accountID, isAdmin); err != nil {
		if errors.Is(err, repository.ErrProfileNotFound) {
			return fmt.Errorf("user %q has no profile: %w", username, model.NewAccountStateError(accountID))
		}
		return fmt.Errorf("failed to update admin flag: %w", err)
	}

	slog.Info("admin flag updated",
		slog.String("account_id", accountID),
		slog.String("username", username),
		slog.Bool("is_admin", isAdmin),
	)
	return nil
}
