package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/vibast-solutions/ms-go-accounts/app/entity"
	"github.com/vibast-solutions/ms-go-accounts/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

type Claims struct {
	UserID    uint64 `json:"user_id"`
	Email     string `json:"email"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

type TokenPair struct {
	Access  string
	Refresh string
}

// TokenIssuer issues access/refresh pairs and revokes refresh tokens.
type TokenIssuer interface {
	Issue(account *entity.Account) (*TokenPair, error)
	Revoke(ctx context.Context, refreshToken string, ownerID uint64) error
	Refresh(ctx context.Context, refreshToken string) (string, error)
	ValidateAccessToken(tokenString string) (*Claims, error)
	PurgeExpired(ctx context.Context) (int64, error)
}

type TokenIssuerOption func(*tokenIssuer)

// WithClock overrides the time source used for issuing and validating tokens.
func WithClock(now func() time.Time) TokenIssuerOption {
	return func(i *tokenIssuer) {
		if now != nil {
			i.now = now
		}
	}
}

type tokenIssuer struct {
	cfg         config.JWTConfig
	accounts    accountFinder
	revocations RevocationStore
	now         func() time.Time
}

func NewTokenIssuer(cfg config.JWTConfig, accounts accountFinder, revocations RevocationStore, opts ...TokenIssuerOption) TokenIssuer {
	issuer := &tokenIssuer{
		cfg:         cfg,
		accounts:    accounts,
		revocations: revocations,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(issuer)
	}
	return issuer
}

func (i *tokenIssuer) Issue(account *entity.Account) (*TokenPair, error) {
	access, err := i.sign(account.ID, account.Email, TokenTypeAccess, i.cfg.AccessTokenTTL)
	if err != nil {
		return nil, err
	}

	refresh, err := i.sign(account.ID, account.Email, TokenTypeRefresh, i.cfg.RefreshTokenTTL)
	if err != nil {
		return nil, err
	}

	return &TokenPair{Access: access, Refresh: refresh}, nil
}

// Revoke blacklists a valid refresh token owned by ownerID. Revoking a token
// that is already revoked succeeds without changing anything.
func (i *tokenIssuer) Revoke(ctx context.Context, refreshToken string, ownerID uint64) error {
	claims, err := i.parse(refreshToken, TokenTypeRefresh)
	if err != nil {
		return err
	}
	if claims.UserID != ownerID {
		return ErrInvalidToken
	}

	return i.revocations.Revoke(ctx, &entity.RevokedToken{
		JTI:       claims.ID,
		AccountID: claims.UserID,
		ExpiresAt: claims.ExpiresAt.Time,
		RevokedAt: i.now(),
	})
}

func (i *tokenIssuer) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := i.parse(refreshToken, TokenTypeRefresh)
	if err != nil {
		return "", err
	}

	revoked, err := i.revocations.IsRevoked(ctx, claims.ID)
	if err != nil {
		return "", err
	}
	if revoked {
		return "", ErrInvalidToken
	}

	account, err := i.accounts.FindByID(ctx, claims.UserID)
	if err != nil {
		return "", err
	}
	if account == nil || !account.IsActive {
		return "", ErrInvalidToken
	}

	return i.sign(account.ID, account.Email, TokenTypeAccess, i.cfg.AccessTokenTTL)
}

func (i *tokenIssuer) ValidateAccessToken(tokenString string) (*Claims, error) {
	return i.parse(tokenString, TokenTypeAccess)
}

func (i *tokenIssuer) PurgeExpired(ctx context.Context) (int64, error) {
	return i.revocations.PurgeExpired(ctx, i.now())
}

func (i *tokenIssuer) sign(accountID uint64, email, tokenType string, ttl time.Duration) (string, error) {
	now := i.now()
	claims := &Claims{
		UserID:    accountID,
		Email:     email,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatUint(accountID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(i.cfg.Secret))
}

func (i *tokenIssuer) parse(tokenString, expectedType string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(i.cfg.Secret), nil
	}, jwt.WithTimeFunc(i.now), jwt.WithExpirationRequired())
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.TokenType != expectedType || claims.ID == "" {
		return nil, ErrInvalidToken
	}
	if claims.Subject != strconv.FormatUint(claims.UserID, 10) {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
