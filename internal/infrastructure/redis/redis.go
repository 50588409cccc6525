package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/hearthshare/stay-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

type Cache struct {
	Client  *redis.Client
	userTTL time.Duration
}

func New(addr, pass string, db int, userTTL time.Duration) *Cache {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr, Password: pass, DB: db,
	})
	return &Cache{Client: rdb, userTTL: userTTL}
}

func userKey(userID string) string { return "user:" + userID }

func (c *Cache) GetUser(ctx context.Context, userID string) (domain.User, error) {
	val, err := c.Client.Get(ctx, userKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.User{}, domain.ErrCacheMiss
		}
		return domain.User{}, err
	}
	var u domain.User
	if err := json.Unmarshal(val, &u); err != nil {
		// treat a corrupt entry as a miss, the directory is authoritative
		return domain.User{}, domain.ErrCacheMiss
	}
	return u, nil
}

func (c *Cache) SetUser(ctx context.Context, user domain.User) error {
	val, err := json.Marshal(user)
	if err != nil {
		return err
	}
	return c.Client.Set(ctx, userKey(user.UserID), val, c.userTTL).Err()
}

// AllowRequest: simple fixed-window rate limit, fail open on redis errors.
func (c *Cache) AllowRequest(ctx context.Context, ip string, limit int, window time.Duration) (bool, error) {
	key := "ratelimit:" + ip
	count, err := c.Client.Incr(ctx, key).Result()
	if err != nil {
		return true, nil
	}
	if count == 1 {
		_ = c.Client.Expire(ctx, key, window).Err()
	}
	return count <= int64(limit), nil
}
