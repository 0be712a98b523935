package repository

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/vibast-solutions/ms-go-accounts/app/entity"
)

const revokedTokenKeyPrefix = "accounts:revoked:"

// RedisRevokedTokenRepository keeps one key per revoked token id that
// expires together with the token itself.
type RedisRevokedTokenRepository struct {
	client redis.Cmdable
	now    func() time.Time
}

func NewRedisRevokedTokenRepository(client redis.Cmdable) *RedisRevokedTokenRepository {
	return &RedisRevokedTokenRepository{client: client, now: time.Now}
}

func (r *RedisRevokedTokenRepository) Revoke(ctx context.Context, token *entity.RevokedToken) error {
	ttl := token.ExpiresAt.Sub(r.now())
	if ttl <= 0 {
		// Already past natural expiry; signature checks reject it anyway.
		return nil
	}
	return r.client.SetNX(ctx, revokedTokenKey(token.JTI), token.AccountID, ttl).Err()
}

func (r *RedisRevokedTokenRepository) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := r.client.Exists(ctx, revokedTokenKey(jti)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// PurgeExpired is a no-op: redis evicts keys on their own TTL.
func (r *RedisRevokedTokenRepository) PurgeExpired(_ context.Context, _ time.Time) (int64, error) {
	return 0, nil
}

func revokedTokenKey(jti string) string {
	return revokedTokenKeyPrefix + jti
}
