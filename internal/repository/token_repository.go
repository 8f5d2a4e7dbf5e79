package repository

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
)

const blacklistPrefix = "blacklist:"

// TokenRepository tracks revoked access tokens until they would have expired anyway.
type TokenRepository interface {
	Blacklist(ctx context.Context, token string, ttl time.Duration) error
	IsBlacklisted(ctx context.Context, token string) (bool, error)
}

type tokenRepository struct {
	redisClient redis.Cmdable
}

func NewTokenRepository(redisClient redis.Cmdable) TokenRepository {
	return &tokenRepository{redisClient: redisClient}
}

// Blacklist stores token for ttl. A non-positive ttl means the token has already expired.
func (r *tokenRepository) Blacklist(ctx context.Context, token string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return r.redisClient.Set(ctx, blacklistPrefix+token, "1", ttl).Err()
}

func (r *tokenRepository) IsBlacklisted(ctx context.Context, token string) (bool, error) {
	err := r.redisClient.Get(ctx, blacklistPrefix+token).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
