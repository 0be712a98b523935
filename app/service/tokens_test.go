package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vibast-solutions/ms-go-accounts/app/service"
	"github.com/vibast-solutions/ms-go-accounts/config"

	"github.com/golang-jwt/jwt/v5"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func newIssuer(t *testing.T) (service.TokenIssuer, *memAccounts, *memRevocations, *fakeClock) {
	t.Helper()

	accounts := newMemAccounts()
	revocations := newMemRevocations()
	clock := &fakeClock{now: time.Now()}
	issuer := service.NewTokenIssuer(config.JWTConfig{
		Secret:          "test-secret",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 24 * time.Hour,
	}, accounts, revocations, service.WithClock(clock.Now))
	return issuer, accounts, revocations, clock
}

func TestTokenIssuer_IssueAndValidate(t *testing.T) {
	issuer, accounts, _, _ := newIssuer(t)
	account := seedAccount(t, accounts, "user@example.com", "secret1", true)

	pair, err := issuer.Issue(account)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if pair.Access == "" || pair.Refresh == "" || pair.Access == pair.Refresh {
		t.Fatalf("expected two distinct tokens, got %+v", pair)
	}

	claims, err := issuer.ValidateAccessToken(pair.Access)
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if claims.UserID != account.ID || claims.Email != account.Email || claims.TokenType != service.TokenTypeAccess {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if claims.ID == "" {
		t.Fatalf("expected jti to be set")
	}

	if _, err = issuer.ValidateAccessToken(pair.Refresh); !errors.Is(err, service.ErrInvalidToken) {
		t.Fatalf("expected refresh token to be rejected as access token, got %v", err)
	}
	if _, err = issuer.Refresh(context.Background(), pair.Access); !errors.Is(err, service.ErrInvalidToken) {
		t.Fatalf("expected access token to be rejected as refresh token, got %v", err)
	}
}

func TestTokenIssuer_RejectsForeignSignature(t *testing.T) {
	issuer, _, _, _ := newIssuer(t)

	claims := &service.Claims{
		UserID:    1,
		Email:     "user@example.com",
		TokenType: service.TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        "jti",
			Subject:   "1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("other-secret"))
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}

	if _, err = issuer.ValidateAccessToken(signed); !errors.Is(err, service.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestTokenIssuer_Expiry(t *testing.T) {
	issuer, accounts, _, clock := newIssuer(t)
	account := seedAccount(t, accounts, "user@example.com", "secret1", true)

	pair, err := issuer.Issue(account)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	clock.now = clock.now.Add(16 * time.Minute)
	if _, err = issuer.ValidateAccessToken(pair.Access); !errors.Is(err, service.ErrInvalidToken) {
		t.Fatalf("expected expired access token to be rejected, got %v", err)
	}
	if _, err = issuer.Refresh(context.Background(), pair.Refresh); err != nil {
		t.Fatalf("expected refresh token to still be valid, got %v", err)
	}

	clock.now = clock.now.Add(24 * time.Hour)
	if _, err = issuer.Refresh(context.Background(), pair.Refresh); !errors.Is(err, service.ErrInvalidToken) {
		t.Fatalf("expected expired refresh token to be rejected, got %v", err)
	}
}

func TestTokenIssuer_RevokeBlocksRefresh(t *testing.T) {
	issuer, accounts, revocations, _ := newIssuer(t)
	account := seedAccount(t, accounts, "user@example.com", "secret1", true)
	ctx := context.Background()

	pair, err := issuer.Issue(account)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	access, err := issuer.Refresh(ctx, pair.Refresh)
	if err != nil || access == "" {
		t.Fatalf("expected refresh to succeed, got %q %v", access, err)
	}

	if err = issuer.Revoke(ctx, pair.Refresh, account.ID); err != nil {
		t.Fatalf("revoke failed: %v", err)
	}
	if err = issuer.Revoke(ctx, pair.Refresh, account.ID); err != nil {
		t.Fatalf("expected second revoke to be a no-op, got %v", err)
	}
	if len(revocations.revoked) != 1 {
		t.Fatalf("expected one revocation record, got %d", len(revocations.revoked))
	}

	if _, err = issuer.Refresh(ctx, pair.Refresh); !errors.Is(err, service.ErrInvalidToken) {
		t.Fatalf("expected revoked refresh token to be rejected, got %v", err)
	}
}

func TestTokenIssuer_RevokeRejectsOtherOwnerAndGarbage(t *testing.T) {
	issuer, accounts, revocations, _ := newIssuer(t)
	owner := seedAccount(t, accounts, "owner@example.com", "secret1", true)
	other := seedAccount(t, accounts, "other@example.com", "secret1", true)
	ctx := context.Background()

	pair, err := issuer.Issue(owner)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	if err = issuer.Revoke(ctx, pair.Refresh, other.ID); !errors.Is(err, service.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for foreign token, got %v", err)
	}
	if err = issuer.Revoke(ctx, "not-a-token", owner.ID); !errors.Is(err, service.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for garbage, got %v", err)
	}
	if err = issuer.Revoke(ctx, pair.Access, owner.ID); !errors.Is(err, service.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for access token, got %v", err)
	}
	if len(revocations.revoked) != 0 {
		t.Fatalf("expected nothing revoked, got %d", len(revocations.revoked))
	}
}

func TestTokenIssuer_RefreshRejectsInactiveAccount(t *testing.T) {
	issuer, accounts, _, _ := newIssuer(t)
	account := seedAccount(t, accounts, "user@example.com", "secret1", true)
	ctx := context.Background()

	pair, err := issuer.Issue(account)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if err = accounts.SetActive(ctx, account.ID, false); err != nil {
		t.Fatalf("set active failed: %v", err)
	}

	if _, err = issuer.Refresh(ctx, pair.Refresh); !errors.Is(err, service.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for inactive account, got %v", err)
	}
}

func TestTokenIssuer_PurgeExpired(t *testing.T) {
	issuer, accounts, revocations, clock := newIssuer(t)
	account := seedAccount(t, accounts, "user@example.com", "secret1", true)
	ctx := context.Background()

	pair, err := issuer.Issue(account)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if err = issuer.Revoke(ctx, pair.Refresh, account.ID); err != nil {
		t.Fatalf("revoke failed: %v", err)
	}

	purged, err := issuer.PurgeExpired(ctx)
	if err != nil || purged != 0 {
		t.Fatalf("expected nothing purged before expiry, got %d %v", purged, err)
	}

	clock.now = clock.now.Add(25 * time.Hour)
	purged, err = issuer.PurgeExpired(ctx)
	if err != nil || purged != 1 {
		t.Fatalf("expected one purged record, got %d %v", purged, err)
	}
	if len(revocations.revoked) != 0 {
		t.Fatalf("expected revocation store to be empty")
	}
}
