package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/99minutos/coupon-admin/internal/core/domain"
)

const redisTimeout = 2 * time.Second

// Redis stores the token under access_token:<profile>, so several console
// hosts (kiosks, jump boxes) can share one session per profile.
type Redis struct {
	client  *redis.Client
	profile string
	ttl     time.Duration
	log     zerolog.Logger
}

// NewRedis returns a Redis store. A zero ttl keeps the token until Clear.
func NewRedis(client *redis.Client, profile string, ttl time.Duration, log zerolog.Logger) *Redis {
	if profile == "" {
		profile = "default"
	}
	return &Redis{client: client, profile: profile, ttl: ttl, log: log}
}

func (r *Redis) key() string {
	return fmt.Sprintf("%s:%s", StorageKey, r.profile)
}

func (r *Redis) Get(ctx context.Context) (domain.Token, bool) {
	ctx, cancel := context.WithTimeout(ctx, redisTimeout)
	defer cancel()

	v, err := r.client.Get(ctx, r.key()).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.log.Warn().Err(err).Str("key", r.key()).Msg("token lookup failed, treating as absent")
		}
		return "", false
	}
	return domain.Token(v), v != ""
}

func (r *Redis) Set(ctx context.Context, token domain.Token) {
	ctx, cancel := context.WithTimeout(ctx, redisTimeout)
	defer cancel()

	if err := r.client.Set(ctx, r.key(), string(token), r.ttl).Err(); err != nil {
		r.log.Warn().Err(err).Str("key", r.key()).Msg("failed to persist token")
	}
}

func (r *Redis) Clear(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, redisTimeout)
	defer cancel()

	if err := r.client.Del(ctx, r.key()).Err(); err != nil {
		r.log.Warn().Err(err).Str("key", r.key()).Msg("failed to clear token")
	}
}

func (r *Redis) IsPresent(ctx context.Context) bool {
	_, ok := r.Get(ctx)
	return ok
}
