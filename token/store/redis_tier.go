package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var _ Tier = (*RedisTier)(nil)

// RedisTier is a persistent tier for hosts that share credentials through
// Redis, e.g. several worker processes acting for the same account.
type RedisTier struct {
	client redis.Cmdable
	key    string
	ttl    time.Duration
}

// NewRedisTier stores the record under key. A zero ttl keeps it until cleared.
func NewRedisTier(client redis.Cmdable, key string, ttl time.Duration) *RedisTier {
	if key == "" {
		key = "beetrack:access_token"
	}
	return &RedisTier{client: client, key: key, ttl: ttl}
}

func (r *RedisTier) Name() string {
	return "redis"
}

func (r *RedisTier) Load(ctx context.Context) (*Record, error) {
	val, err := r.client.Get(ctx, r.key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("[RedisTier.Load] get %s: %w", r.key, err)
	}

	var rec Record
	if err := json.Unmarshal([]byte(val), &rec); err != nil {
		return nil, fmt.Errorf("[RedisTier.Load] decode: %w", err)
	}
	if rec.AccessToken == "" {
		return nil, nil
	}
	return &rec, nil
}

func (r *RedisTier) Save(ctx context.Context, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("[RedisTier.Save] encode: %w", err)
	}
	if err := r.client.Set(ctx, r.key, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("[RedisTier.Save] set %s: %w", r.key, err)
	}
	return nil
}

func (r *RedisTier) Clear(ctx context.Context) error {
	if err := r.client.Del(ctx, r.key).Err(); err != nil {
		return fmt.Errorf("[RedisTier.Clear] del %s: %w", r.key, err)
	}
	return nil
}
