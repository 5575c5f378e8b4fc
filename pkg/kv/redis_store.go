package kv

import (
	"context"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const DefaultRedisPrefix = "agentverse:"

// RedisStore keeps entries as plain redis strings under a key prefix.
type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(ctx context.Context, opts *redis.Options, prefix string) (*RedisStore, error) {
	if opts == nil || opts.Addr == "" {
		return nil, errors.New("redis kv store: address is required")
	}
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrapf(err, "redis kv store: ping %s", opts.Addr)
	}
	return &RedisStore{client: client, prefix: prefix}, nil
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.client.Get(ctx, s.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, s.wrap(err, "get", key)
	}
	return v, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value string) error {
	return s.wrap(s.client.Set(ctx, s.prefix+key, value, 0).Err(), "set", key)
}

func (s *RedisStore) Remove(ctx context.Context, key string) error {
	return s.wrap(s.client.Del(ctx, s.prefix+key).Err(), "remove", key)
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) wrap(err error, op string, key string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, redis.ErrClosed) {
		return ErrClosed
	}
	return errors.Wrapf(err, "redis kv store: %s %q", op, key)
}

var _ Store = (*RedisStore)(nil)
