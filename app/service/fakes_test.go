package service_test

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/vibast-solutions/ms-go-accounts/app/entity"
	"github.com/vibast-solutions/ms-go-accounts/app/mailer"
	"github.com/vibast-solutions/ms-go-accounts/app/repository"
	"github.com/vibast-solutions/ms-go-accounts/app/service"
	"github.com/vibast-solutions/ms-go-accounts/config"
)

type memAccounts struct {
	mu     sync.Mutex
	nextID uint64
	byID   map[uint64]entity.Account
}

func newMemAccounts() *memAccounts {
	return &memAccounts{nextID: 1, byID: map[uint64]entity.Account{}}
}

func (m *memAccounts) FindByEmail(_ context.Context, email string) (*entity.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, account := range m.byID {
		if account.Email == email {
			found := account
			return &found, nil
		}
	}
	return nil, nil
}

func (m *memAccounts) FindByID(_ context.Context, id uint64) (*entity.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, ok := m.byID[id]
	if !ok {
		return nil, nil
	}
	return &account, nil
}

func (m *memAccounts) Create(_ context.Context, account *entity.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.byID {
		if existing.Email == account.Email {
			return repository.ErrDuplicateEmail
		}
	}
	account.ID = m.nextID
	m.nextID++
	m.byID[account.ID] = *account
	return nil
}

func (m *memAccounts) ReplacePassword(_ context.Context, id uint64, currentHash, newHash string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, ok := m.byID[id]
	if !ok || account.PasswordHash != currentHash {
		return false, nil
	}
	account.PasswordHash = newHash
	m.byID[id] = account
	return true, nil
}

func (m *memAccounts) UpdateLastLogin(_ context.Context, id uint64, lastLogin time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	account := m.byID[id]
	account.LastLogin = sql.NullTime{Time: lastLogin, Valid: true}
	m.byID[id] = account
	return nil
}

func (m *memAccounts) SetActive(_ context.Context, id uint64, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	account := m.byID[id]
	account.IsActive = active
	m.byID[id] = account
	return nil
}

type memRevocations struct {
	mu      sync.Mutex
	revoked map[string]entity.RevokedToken
}

func newMemRevocations() *memRevocations {
	return &memRevocations{revoked: map[string]entity.RevokedToken{}}
}

func (m *memRevocations) Revoke(_ context.Context, token *entity.RevokedToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.revoked[token.JTI]; !ok {
		m.revoked[token.JTI] = *token
	}
	return nil
}

func (m *memRevocations) IsRevoked(_ context.Context, jti string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.revoked[jti]
	return ok, nil
}

func (m *memRevocations) PurgeExpired(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var purged int64
	for jti, token := range m.revoked {
		if token.ExpiresAt.Before(now) {
			delete(m.revoked, jti)
			purged++
		}
	}
	return purged, nil
}

type recordingMailer struct {
	mu       sync.Mutex
	messages []mailer.Message
	err      error
}

func (m *recordingMailer) Send(_ context.Context, msg mailer.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.messages = append(m.messages, msg)
	return nil
}

func (m *recordingMailer) sent() []mailer.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mailer.Message(nil), m.messages...)
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{
			SecretKey:    "reset-secret",
			ResetBaseURL: "http://127.0.0.1:8080/api/v1/users/reset-password-confirm",
		},
		JWT: config.JWTConfig{
			Secret:          "test-secret",
			AccessTokenTTL:  15 * time.Minute,
			RefreshTokenTTL: 7 * 24 * time.Hour,
		},
		Tokens: config.TokenConfig{
			ResetTTL: 72 * time.Hour,
		},
		Password: config.PasswordConfig{
			Policy: config.PasswordPolicy{MinLength: 6},
		},
		Mail: config.MailConfig{
			SendTimeout: time.Second,
		},
	}
}

type testEnv struct {
	cfg         *config.Config
	accounts    *memAccounts
	revocations *memRevocations
	mail        *recordingMailer
	tokens      service.TokenIssuer
	svc         service.AccountService
}

func newTestEnv() *testEnv {
	cfg := testConfig()
	accounts := newMemAccounts()
	revocations := newMemRevocations()
	mail := &recordingMailer{}

	tokens := service.NewTokenIssuer(cfg.JWT, accounts, revocations)
	resets := service.NewPasswordResetFlow(
		accounts,
		service.NewResetTokenGenerator(cfg.App.SecretKey, cfg.Tokens.ResetTTL),
		mail,
		cfg,
		service.WithAsyncRunner(func(task func()) { task() }),
	)
	verifier := service.NewCredentialVerifier(accounts)

	return &testEnv{
		cfg:         cfg,
		accounts:    accounts,
		revocations: revocations,
		mail:        mail,
		tokens:      tokens,
		svc:         service.NewAccountService(accounts, verifier, tokens, resets, cfg),
	}
}
