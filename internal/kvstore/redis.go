// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package kvstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps entries in Redis under a key prefix, for deployments
// where the wallet host has no durable local disk.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// RedisOptions configures NewRedisStore.
type RedisOptions struct {
	Addr     string
	Username string
	Password string
	DB       int
	Prefix   string
}

// NewRedisStore connects and pings the server.
func NewRedisStore(ctx context.Context, opts RedisOptions) (*RedisStore, error) {
	if opts.Addr == "" {
		return nil, errors.New("kvstore: redis address is required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Username: opts.Username,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", opts.Addr, err)
	}
	return &RedisStore{client: client, prefix: opts.Prefix}, nil
}

func (r *RedisStore) key(key string) string {
	return r.prefix + key
}

func (r *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	value, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fail to get %s, err: %w", key, err)
	}
	return value, nil
}

func (r *RedisStore) Set(ctx context.Context, key string, value []byte) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	return r.client.Set(ctx, r.key(key), value, 0).Err()
}

func (r *RedisStore) Delete(ctx context.Context, key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	return r.client.Del(ctx, r.key(key)).Err()
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
