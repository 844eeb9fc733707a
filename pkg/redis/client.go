// Package redis wraps go-redis/v9 for storing small JSON documents under
// fixed keys.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Adithya-Monish-Kumar-K/launchrank/pkg/config"
)

// ErrNotFound is returned when a key does not exist.
var ErrNotFound = errors.New("redis: key not found")

// ErrDecode wraps values that exist but are not valid JSON for the target.
var ErrDecode = errors.New("redis: undecodable value")

// Client holds a pooled go-redis connection.
type Client struct {
	rdb  *redis.Client
	addr string
}

// NewClient dials cfg.Addr and fails unless a PING answers within 5s or
// before ctx ends.
func NewClient(ctx context.Context, cfg config.RedisConfig) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		return nil, errors.Join(fmt.Errorf("pinging redis at %s: %w", cfg.Addr, err), rdb.Close())
	}
	slog.Info("connected to redis", "addr", cfg.Addr, "db", cfg.DB)
	return &Client{rdb: rdb, addr: cfg.Addr}, nil
}

// GetJSON decodes the value at key into a T. It returns ErrNotFound for a
// missing key and an error wrapping ErrDecode for a malformed one.
func GetJSON[T any](ctx context.Context, c *Client, key string) (T, error) {
	var v T
	data, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return v, ErrNotFound
	}
	if err != nil {
		return v, fmt.Errorf("GET %s: %w", key, err)
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("%w at %s: %w", ErrDecode, key, err)
	}
	return v, nil
}

// SetJSON encodes v and stores it at key. A zero ttl keeps it forever.
func SetJSON(ctx context.Context, c *Client, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding value for %s: %w", key, err)
	}
	if err := c.rdb.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("SET %s: %w", key, err)
	}
	return nil
}

// SetRaw stores data at key unencoded.
func (c *Client) SetRaw(ctx context.Context, key string, data []byte) error {
	return c.rdb.Set(ctx, key, data, 0).Err()
}

// Del deletes keys.
func (c *Client) Del(ctx context.Context, keys ...string) error {
	return c.rdb.Del(ctx, keys...).Err()
}

// Ping reports whether the server answers.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func (c *Client) Addr() string { return c.addr }

func (c *Client) Close() error {
	return c.rdb.Close()
}
