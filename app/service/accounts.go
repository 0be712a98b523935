package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/vibast-solutions/ms-go-accounts/app/entity"
	"github.com/vibast-solutions/ms-go-accounts/app/metrics"
	"github.com/vibast-solutions/ms-go-accounts/app/repository"
	"github.com/vibast-solutions/ms-go-accounts/app/validation"
	"github.com/vibast-solutions/ms-go-accounts/config"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

const (
	maxEmailLength = 254
	maxNameLength  = 255
)

type LoginResult struct {
	Access  string
	Refresh string
	Account *entity.Account
}

// AccountService is the facade the HTTP, gRPC and CLI surfaces talk to.
type AccountService interface {
	Register(ctx context.Context, email, name, password string) (*entity.Account, error)
	CreateSuperuser(ctx context.Context, email, name, password string) (*entity.Account, error)
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	Logout(ctx context.Context, accountID uint64, refreshToken string) error
	Refresh(ctx context.Context, refreshToken string) (string, error)
	Profile(ctx context.Context, accountID uint64) (*entity.Account, error)
	SetActive(ctx context.Context, email string, active bool) error
	RequestPasswordReset(ctx context.Context, email string) error
	ConfirmPasswordReset(ctx context.Context, uid, token, newPassword string) error
	ValidateAccessToken(tokenString string) (*Claims, error)
	PurgeRevokedTokens(ctx context.Context) (int64, error)
}

type AccountServiceOption func(*accountService)

func WithAccountClock(now func() time.Time) AccountServiceOption {
	return func(s *accountService) {
		if now != nil {
			s.now = now
		}
	}
}

type accountService struct {
	accounts accountRepository
	verifier CredentialVerifier
	tokens   TokenIssuer
	resets   PasswordResetFlow
	cfg      *config.Config
	now      func() time.Time
}

func NewAccountService(
	accounts accountRepository,
	verifier CredentialVerifier,
	tokens TokenIssuer,
	resets PasswordResetFlow,
	cfg *config.Config,
	opts ...AccountServiceOption,
) AccountService {
	svc := &accountService{
		accounts: accounts,
		verifier: verifier,
		tokens:   tokens,
		resets:   resets,
		cfg:      cfg,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

func (s *accountService) Register(ctx context.Context, email, name, password string) (*entity.Account, error) {
	account, err := s.create(ctx, email, name, password, entity.Permissions{})
	if err != nil {
		metrics.RegistrationsTotal.WithLabelValues(resultLabel(err)).Inc()
		return nil, err
	}

	metrics.RegistrationsTotal.WithLabelValues("ok").Inc()
	return account, nil
}

func (s *accountService) CreateSuperuser(ctx context.Context, email, name, password string) (*entity.Account, error) {
	return s.create(ctx, email, name, password, entity.Permissions{IsStaff: true, IsSuperuser: true})
}

func (s *accountService) create(ctx context.Context, email, name, password string, perms entity.Permissions) (*entity.Account, error) {
	email = NormalizeEmail(email)
	if len(email) > maxEmailLength || !validation.Email(email) {
		return nil, ErrInvalidEmail
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNameRequired
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return nil, ErrNameTooLong
	}

	if err := s.cfg.Password.Policy.Validate(password); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrWeakPassword, err.Error())
	}

	existing, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrAccountExists
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	now := s.now()
	account := &entity.Account{
		Email:        email,
		PasswordHash: string(hashedPassword),
		Name:         name,
		IsActive:     true,
		Permissions:  perms,
		JoinedAt:     now,
		UpdatedAt:    now,
	}

	if err = s.accounts.Create(ctx, account); err != nil {
		// A concurrent registration can pass the lookup above.
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, ErrAccountExists
		}
		return nil, err
	}

	return account, nil
}

// Login verifies the credentials, issues a token pair and stamps last_login.
func (s *accountService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	account, err := s.verifier.Verify(ctx, email, password)
	if err != nil {
		metrics.LoginsTotal.WithLabelValues(resultLabel(err)).Inc()
		return nil, err
	}

	pair, err := s.tokens.Issue(account)
	if err != nil {
		metrics.LoginsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	now := s.now()
	if err = s.accounts.UpdateLastLogin(ctx, account.ID, now); err != nil {
		logrus.WithError(err).WithField("account_id", account.ID).Error("Failed to update last_login")
	} else {
		account.LastLogin = sql.NullTime{Time: now, Valid: true}
	}

	metrics.LoginsTotal.WithLabelValues("ok").Inc()
	return &LoginResult{Access: pair.Access, Refresh: pair.Refresh, Account: account}, nil
}

func (s *accountService) Logout(ctx context.Context, accountID uint64, refreshToken string) error {
	err := s.tokens.Revoke(ctx, refreshToken, accountID)
	metrics.LogoutsTotal.WithLabelValues(resultLabel(err)).Inc()
	return err
}

func (s *accountService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	access, err := s.tokens.Refresh(ctx, refreshToken)
	metrics.TokenRefreshesTotal.WithLabelValues(resultLabel(err)).Inc()
	return access, err
}

func (s *accountService) Profile(ctx context.Context, accountID uint64) (*entity.Account, error) {
	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, ErrAccountNotFound
	}
	return account, nil
}

func (s *accountService) SetActive(ctx context.Context, email string, active bool) error {
	account, err := s.accounts.FindByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return err
	}
	if account == nil {
		return ErrAccountNotFound
	}
	return s.accounts.SetActive(ctx, account.ID, active)
}

func (s *accountService) RequestPasswordReset(ctx context.Context, email string) error {
	return s.resets.RequestReset(ctx, email)
}

func (s *accountService) ConfirmPasswordReset(ctx context.Context, uid, token, newPassword string) error {
	return s.resets.ConfirmReset(ctx, uid, token, newPassword)
}

func (s *accountService) ValidateAccessToken(tokenString string) (*Claims, error) {
	return s.tokens.ValidateAccessToken(tokenString)
}

func (s *accountService) PurgeRevokedTokens(ctx context.Context) (int64, error) {
	purged, err := s.tokens.PurgeExpired(ctx)
	if err != nil {
		return 0, err
	}
	metrics.RevokedTokensPurgedTotal.Add(float64(purged))
	return purged, nil
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrAccountExists):
		return "exists"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, ErrAccountInactive):
		return "inactive"
	case errors.Is(err, ErrInvalidToken):
		return "invalid_token"
	case errors.Is(err, ErrWeakPassword), errors.Is(err, ErrInvalidEmail),
		errors.Is(err, ErrNameRequired), errors.Is(err, ErrNameTooLong):
		return "invalid"
	default:
		return "error"
	}
}
