package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/postertrack/backend/internal/rbac"
	"github.com/redis/go-redis/v9"
)

// SessionCache holds validated actors keyed by token hash.
type SessionCache interface {
	Get(ctx context.Context, tokenHash string) (*rbac.Actor, error)
	Set(ctx context.Context, tokenHash string, actor rbac.Actor, ttl time.Duration) error
	Delete(ctx context.Context, tokenHashes ...string) error
}

type RedisSessionCache struct {
	client *redis.Client
}

func NewRedisSessionCache(client *redis.Client) *RedisSessionCache {
	return &RedisSessionCache{client: client}
}

func sessionKey(tokenHash string) string { return "session:" + tokenHash }

// Get returns nil, nil on a cache miss.
func (c *RedisSessionCache) Get(ctx context.Context, tokenHash string) (*rbac.Actor, error) {
	data, err := c.client.Get(ctx, sessionKey(tokenHash)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var a rbac.Actor
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (c *RedisSessionCache) Set(ctx context.Context, tokenHash string, actor rbac.Actor, ttl time.Duration) error {
	data, err := json.Marshal(actor)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, sessionKey(tokenHash), data, ttl).Err()
}

func (c *RedisSessionCache) Delete(ctx context.Context, tokenHashes ...string) error {
	if len(tokenHashes) == 0 {
		return nil
	}
	keys := make([]string, len(tokenHashes))
	for i, h := range tokenHashes {
		keys[i] = sessionKey(h)
	}
	return c.client.Del(ctx, keys...).Err()
}

// NopSessionCache disables caching; every validation hits the database.
type NopSessionCache struct{}

func (NopSessionCache) Get(context.Context, string) (*rbac.Actor, error) { return nil, nil }
func (NopSessionCache) Set(context.Context, string, rbac.Actor, time.Duration) error { return nil }
func (NopSessionCache) Delete(context.Context, ...string) error { return nil }
