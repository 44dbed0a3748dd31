package redisclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"foodhub/internal/store"

	"github.com/go-redis/redis/v8"
)

type Client struct {
	rdb       *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// NewClient creates a new Redis client and verifies the connection.
// A zero ttl keeps keys until overwritten.
func NewClient(addr, password string, db int, keyPrefix string, ttl time.Duration) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return NewFromRedis(rdb, keyPrefix, ttl), nil
}

// NewFromRedis wraps an existing go-redis client
func NewFromRedis(rdb *redis.Client, keyPrefix string, ttl time.Duration) *Client {
	return &Client{rdb: rdb, keyPrefix: keyPrefix, ttl: ttl}
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

func (c *Client) key(key string) string {
	return c.keyPrefix + key
}

// Get returns the value stored under key
func (c *Client) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := c.rdb.Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s failed: %w", key, err)
	}
	return value, nil
}

// Set stores value under key
func (c *Client) Set(ctx context.Context, key string, value []byte) error {
	if err := c.rdb.Set(ctx, c.key(key), value, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s failed: %w", key, err)
	}
	return nil
}

// Ping checks the connection
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}
