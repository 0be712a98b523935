package service

import (
	"context"
	"time"

	"github.com/vibast-solutions/ms-go-accounts/app/entity"
)

type accountFinder interface {
	FindByEmail(ctx context.Context, email string) (*entity.Account, error)
	FindByID(ctx context.Context, id uint64) (*entity.Account, error)
}

type accountRepository interface {
	accountFinder
	Create(ctx context.Context, account *entity.Account) error
	ReplacePassword(ctx context.Context, id uint64, currentHash, newHash string) (bool, error)
	UpdateLastLogin(ctx context.Context, id uint64, lastLogin time.Time) error
	SetActive(ctx context.Context, id uint64, active bool) error
}

// RevocationStore records revoked refresh token ids. Writes must be visible to
// the next IsRevoked call and entries must outlive the token's own expiry.
type RevocationStore interface {
	Revoke(ctx context.Context, token *entity.RevokedToken) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}
