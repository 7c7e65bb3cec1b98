package version

import (
	"context"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

// RedisCounter shares the queue version across backend instances via a
// per-branch INCR key.
type RedisCounter struct {
	client *redis.Client
}

func NewRedisCounter(addr, password string, db int) *RedisCounter {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisCounter{client: client}
}

func (c *RedisCounter) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCounter) Close() error {
	return c.client.Close()
}

func (c *RedisCounter) Bump(ctx context.Context, branchID uuid.UUID) error {
	return c.client.Incr(ctx, key(branchID)).Err()
}

func (c *RedisCounter) Current(ctx context.Context, branchID uuid.UUID) (string, error) {
	val, err := c.client.Get(ctx, key(branchID)).Result()
	if err == redis.Nil {
		return "0", nil
	}
	if err != nil {
		return "", err
	}
	return val, nil
}

func key(branchID uuid.UUID) string {
	return "queue:version:" + branchID.String()
}
