package app_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	redisad "tripdesk/internal/adapters/redis"
)

// newStore returns a real Store over an in-process redis.
func newStore(t *testing.T) (*redisad.Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	cl := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	return redisad.NewFromClient(cl), mr
}

// fakeStore is an in-memory Store with injectable failures.
type fakeStore struct {
	vals    map[string][]byte
	strs    map[string]string
	hashes  map[string]map[string]string
	setErr  error
	hsetErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		vals:   map[string][]byte{},
		strs:   map[string]string{},
		hashes: map[string]map[string]string{},
	}
}

func (f *fakeStore) Get(ctx context.Context, key string, dst any) (bool, error) {
	b, ok := f.vals[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}

func (f *fakeStore) Set(ctx context.Context, key string, v any, ttlSec int) error {
	if f.setErr != nil {
		return f.setErr
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	f.vals[key] = b
	return nil
}

func (f *fakeStore) Del(ctx context.Context, key string) error {
	delete(f.vals, key)
	delete(f.strs, key)
	delete(f.hashes, key)
	return nil
}

func (f *fakeStore) GetString(ctx context.Context, key string) (string, bool, error) {
	v, ok := f.strs[key]
	return v, ok, nil
}

func (f *fakeStore) SetString(ctx context.Context, key, val string, ttlSec int) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.strs[key] = val
	return nil
}

func (f *fakeStore) HSet(ctx context.Context, key, field, val string) error {
	if f.hsetErr != nil {
		return f.hsetErr
	}
	if f.hashes[key] == nil {
		f.hashes[key] = map[string]string{}
	}
	f.hashes[key][field] = val
	return nil
}

func (f *fakeStore) HSetMap(ctx context.Context, key string, fields map[string]string) error {
	for k, v := range fields {
		if err := f.HSet(ctx, key, k, v); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	out := map[string]string{}
	for k, v := range f.hashes[key] {
		out[k] = v
	}
	return out, nil
}
