package account

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hitoshi/gatehouse/internal/identity"
	"github.com/hitoshi/gatehouse/internal/model"
	"github.com/hitoshi/gatehouse/internal/repository"
)

// --- モック定義 ---
// 各モックは関数フィールドが設定されていればそれを呼び、未設定ならインメモリで動作する。

type mockIdentity struct {
	mu       sync.Mutex
	accounts map[string]string // identifier -> account id
	secrets  map[string]string // account id -> password
	calls    int

	createAccountFn    func(ctx context.Context, identifier, credential string) (string, error)
	getAccountFn       func(ctx context.Context, identifier string) (string, error)
	verifyCredentialFn func(ctx context.Context, identifier, credential string) (string, error)
	setCredentialFn    func(ctx context.Context, accountID, credential string) error
}

func newMockIdentity() *mockIdentity {
	return &mockIdentity{
		accounts: map[string]string{},
		secrets:  map[string]string{},
	}
}

func (m *mockIdentity) CreateAccount(ctx context.Context, identifier, credential string) (string, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.createAccountFn != nil {
		return m.createAccountFn(ctx, identifier, credential)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[identifier]; ok {
		return "", identity.ErrDuplicateIdentifier
	}
	id := fmt.Sprintf("uid-%d", len(m.accounts)+1)
	m.accounts[identifier] = id
	m.secrets[id] = credential
	return id, nil
}

func (m *mockIdentity) GetAccountByIdentifier(ctx context.Context, identifier string) (string, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.getAccountFn != nil {
		return m.getAccountFn(ctx, identifier)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.accounts[identifier]
	if !ok {
		return "", identity.ErrAccountNotFound
	}
	return id, nil
}

func (m *mockIdentity) VerifyCredential(ctx context.Context, identifier, credential string) (string, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.verifyCredentialFn != nil {
		return m.verifyCredentialFn(ctx, identifier, credential)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.accounts[identifier]
	if !ok || m.secrets[id] != credential {
		return "", identity.ErrInvalidCredential
	}
	return id, nil
}

func (m *mockIdentity) SetCredential(ctx context.Context, accountID, credential string) error {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.setCredentialFn != nil {
		return m.setCredentialFn(ctx, accountID, credential)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.secrets[accountID]; !ok {
		return identity.ErrAccountNotFound
	}
	m.secrets[accountID] = credential
	return nil
}

type mockProfileRepo struct {
	mu       sync.Mutex
	profiles map[string]*model.Profile
	calls    int

	createFn          func(ctx context.Context, profile *model.Profile) error
	findByAccountIDFn func(ctx context.Context, accountID string) (*model.Profile, error)
	updateLastLoginFn func(ctx context.Context, accountID string, at time.Time) error
}

func newMockProfileRepo() *mockProfileRepo {
	return &mockProfileRepo{profiles: map[string]*model.Profile{}}
}

func (m *mockProfileRepo) Create(ctx context.Context, profile *model.Profile) error {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.createFn != nil {
		return m.createFn(ctx, profile)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.profiles[profile.AccountID]; ok {
		return repository.ErrProfileExists
	}
	p := *profile
	m.profiles[profile.AccountID] = &p
	return nil
}

func (m *mockProfileRepo) FindByAccountID(ctx context.Context, accountID string) (*model.Profile, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.findByAccountIDFn != nil {
		return m.findByAccountIDFn(ctx, accountID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[accountID]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (m *mockProfileRepo) UpdateLastLogin(ctx context.Context, accountID string, at time.Time) error {
	if m.updateLastLoginFn != nil {
		return m.updateLastLoginFn(ctx, accountID, at)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[accountID]
	if !ok {
		return repository.ErrProfileNotFound
	}
	p.LastLogin = &at
	return nil
}

func (m *mockProfileRepo) SetAdmin(_ context.Context, accountID string, isAdmin bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[accountID]
	if !ok {
		return repository.ErrProfileNotFound
	}
	p.IsAdmin = isAdmin
	return nil
}

func (m *mockProfileRepo) get(accountID string) *model.Profile {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.profiles[accountID]
}

func (m *mockProfileRepo) remove(accountID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.profiles, accountID)
}

type mockSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*model.Session
	seq      int
	calls    int

	createFn        func(ctx context.Context, session *model.Session) (string, error)
	findByTokenFn   func(ctx context.Context, token string) (*model.Session, error)
	deleteByTokenFn func(ctx context.Context, token string) error
}

func newMockSessionRepo() *mockSessionRepo {
	return &mockSessionRepo{sessions: map[string]*model.Session{}}
}

func (m *mockSessionRepo) Create(ctx context.Context, session *model.Session) (string, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.createFn != nil {
		return m.createFn(ctx, session)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	session.Token = fmt.Sprintf("token-%d", m.seq)
	session.CreatedAt = time.Now()
	session.ExpiresAt = session.CreatedAt.Add(time.Hour)
	s := *session
	m.sessions[session.Token] = &s
	return session.Token, nil
}

func (m *mockSessionRepo) FindByToken(ctx context.Context, token string) (*model.Session, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.findByTokenFn != nil {
		return m.findByTokenFn(ctx, token)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[token]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (m *mockSessionRepo) DeleteByToken(ctx context.Context, token string) error {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.deleteByTokenFn != nil {
		return m.deleteByTokenFn(ctx, token)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, token)
	return nil
}

func (m *mockSessionRepo) Ping(context.Context) error { return nil }

func (m *mockSessionRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

type mockContactRepo struct {
	mu       sync.Mutex
	messages []*model.ContactMessage

	createFn func(ctx context.Context, msg *model.ContactMessage) error
}

func (m *mockContactRepo) Create(ctx context.Context, msg *model.ContactMessage) error {
	if m.createFn != nil {
		return m.createFn(ctx, msg)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *msg
	m.messages = append(m.messages, &cp)
	return nil
}

// passthroughSanitizer は入力をそのまま返す。
type passthroughSanitizer struct{}

func (passthroughSanitizer) Sanitize(raw string) string { return raw }

// testEnv はテスト用に組み立てたServiceと各モック。
type testEnv struct {
	svc      *Service
	identity *mockIdentity
	profiles *mockProfileRepo
	sessions *mockSessionRepo
	contacts *mockContactRepo
}

func newTestEnv() *testEnv {
	env := &testEnv{
		identity: newMockIdentity(),
		profiles: newMockProfileRepo(),
		sessions: newMockSessionRepo(),
		contacts: &mockContactRepo{},
	}
	env.svc = NewService(
		env.identity,
		env.profiles,
		env.sessions,
		env.contacts,
		passthroughSanitizer{},
		nil,
		Config{LoginDomain: "users.test"},
	)
	return env
}

// externalCalls は外部能力への呼び出し回数の合計を返す。
func (e *testEnv) externalCalls() int {
	e.identity.mu.Lock()
	e.profiles.mu.Lock()
	e.sessions.mu.Lock()
	defer e.identity.mu.Unlock()
	defer e.profiles.mu.Unlock()
	defer e.sessions.mu.Unlock()
	return e.identity.calls + e.profiles.calls + e.sessions.calls
}
