package redisad

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"tripdesk/internal/adapters/observability"
)

type Store struct{ c *redis.Client }

func New(addr, pass string, db int) *Store {
	return &Store{c: redis.NewClient(&redis.Options{Addr: addr, Password: pass, DB: db})}
}

// NewFromClient wraps an existing client (tests use this with miniredis).
func NewFromClient(c *redis.Client) *Store { return &Store{c: c} }

func (r *Store) Ping(ctx context.Context) error { return r.c.Ping(ctx).Err() }

func (r *Store) Get(ctx context.Context, key string, dst any) (bool, error) {
	v, err := r.c.Get(ctx, key).Bytes()
	if err == redis.Nil {
		observability.ObserveCache("redis", "miss")
		return false, nil
	}
	if err != nil {
		return false, err
	}
	observability.ObserveCache("redis", "hit")
	return true, json.Unmarshal(v, dst)
}

func (r *Store) Set(ctx context.Context, key string, v any, ttlSec int) error {
	b, _ := json.Marshal(v)
	observability.ObserveCache("redis", "set")
	return r.c.Set(ctx, key, b, ttl(ttlSec)).Err()
}

func (r *Store) Del(ctx context.Context, key string) error {
	observability.ObserveCache("redis", "del")
	return r.c.Del(ctx, key).Err()
}

func (r *Store) GetString(ctx context.Context, key string) (string, bool, error) {
	v, err := r.c.Get(ctx, key).Result()
	if err == redis.Nil {
		observability.ObserveCache("redis", "miss")
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	observability.ObserveCache("redis", "hit")
	return v, true, nil
}

func (r *Store) SetString(ctx context.Context, key, val string, ttlSec int) error {
	observability.ObserveCache("redis", "set")
	return r.c.Set(ctx, key, val, ttl(ttlSec)).Err()
}

func (r *Store) HSet(ctx context.Context, key, field, val string) error {
	observability.ObserveCache("redis", "set")
	return r.c.HSet(ctx, key, field, val).Err()
}

func (r *Store) HSetMap(ctx context.Context, key string, fields map[string]string) error {
	args := make([]any, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	observability.ObserveCache("redis", "set")
	return r.c.HSet(ctx, key, args...).Err()
}

func (r *Store) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	m, err := r.c.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, err
	}
	if len(m) == 0 {
		observability.ObserveCache("redis", "miss")
	} else {
		observability.ObserveCache("redis", "hit")
	}
	return m, nil
}

func ttl(sec int) time.Duration {
	if sec <= 0 {
		return 0 // no expiry
	}
	return time.Duration(sec) * time.Second
}
