// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Eltonnjulio/hubspot-integration/config"
	"github.com/redis/go-redis/v9"
)

// RedisBackend keeps the credential under a single key
type RedisBackend struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

func NewRedisBackend(ctx context.Context, cfg *config.Config) (*RedisBackend, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.TokenStore.Redis.Host, cfg.TokenStore.Redis.Port),
		Password: cfg.TokenStore.Redis.Password,
		DB:       cfg.TokenStore.Redis.DB,
	})

	// Test connection
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return &RedisBackend{
		client: client,
		key:    cfg.TokenStore.Redis.Key,
		ttl:    time.Duration(cfg.TokenStore.Redis.KeyTTL) * time.Second,
	}, nil
}

func (s *RedisBackend) Get(ctx context.Context) ([]byte, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}
	return data, nil
}

func (s *RedisBackend) Put(ctx context.Context, data []byte) error {
	if err := s.client.Set(ctx, s.key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (s *RedisBackend) Delete(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func (s *RedisBackend) Close() error {
	return s.client.Close()
}
