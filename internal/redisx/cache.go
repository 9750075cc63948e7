package redisx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// JSONCache keeps derived read models. Everything stored here is recomputable,
// so a miss or a failed write is never an error for the caller.
type JSONCache struct {
	R redis.Cmdable
}

func (c *JSONCache) Get(ctx context.Context, key string, out any) (bool, error) {
	s, err := c.R.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(s), out); err != nil {
		return false, fmt.Errorf("decode cache %s: %w", key, err)
	}
	return true, nil
}

func (c *JSONCache) Set(ctx context.Context, key string, v any, ttl time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.R.Set(ctx, key, b, ttl).Err()
}

func (c *JSONCache) Delete(ctx context.Context, keys ...string) error {
	return c.R.Del(ctx, keys...).Err()
}
