package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/99minutos/coupon-admin/internal/core/domain"
)

const defaultUserTTL = time.Minute

// UserCache keeps recently resolved users in Redis so /me does not hit Mongo
// on every console refresh.
// Key format: user:<id>
type UserCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewUserCache wraps client. A non-positive ttl falls back to one minute.
func NewUserCache(client *redis.Client, ttl time.Duration) *UserCache {
	if ttl <= 0 {
		ttl = defaultUserTTL
	}
	return &UserCache{client: client, ttl: ttl}
}

// cachedUser is the stored form; the password hash is carried explicitly
// because domain.User never serialises it.
type cachedUser struct {
	User         *domain.User `json:"user"`
	PasswordHash string       `json:"password_hash"`
}

// Get returns the cached user, or (nil, nil) on a miss.
func (c *UserCache) Get(ctx context.Context, id domain.UserID) (*domain.User, error) {
	raw, err := c.client.Get(ctx, c.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("user cache get: %w", err)
	}

	var cu cachedUser
	if err := json.Unmarshal(raw, &cu); err != nil || cu.User == nil {
		// Unreadable entry, drop it and report a miss.
		_ = c.client.Del(ctx, c.key(id)).Err()
		return nil, nil
	}
	cu.User.PasswordHash = cu.PasswordHash
	return cu.User, nil
}

func (c *UserCache) Set(ctx context.Context, user *domain.User) error {
	raw, err := json.Marshal(cachedUser{User: user, PasswordHash: user.PasswordHash})
	if err != nil {
		return fmt.Errorf("user cache encode: %w", err)
	}
	return c.client.Set(ctx, c.key(user.ID), raw, c.ttl).Err()
}

func (c *UserCache) Delete(ctx context.Context, id domain.UserID) error {
	return c.client.Del(ctx, c.key(id)).Err()
}

func (c *UserCache) key(id domain.UserID) string {
	return "user:" + id.String()
}
