package rankstore

import (
	"context"
	"errors"

	"github.com/Adithya-Monish-Kumar-K/launchrank/internal/ranking"
	"github.com/Adithya-Monish-Kumar-K/launchrank/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/launchrank/pkg/resilience"
)

// DefaultRedisKey is used when no key is configured.
const DefaultRedisKey = "launchrank:context"

// RedisStore keeps the whole snapshot as one JSON value without expiry.
type RedisStore struct {
	client *redis.Client
	key    string
}

func NewRedisStore(client *redis.Client, key string) *RedisStore {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisStore{client: client, key: key}
}

func (s *RedisStore) Name() string { return "redis" }

func (s *RedisStore) Load(ctx context.Context) (ranking.Snapshot, error) {
	snap, err := redis.GetJSON[ranking.Snapshot](ctx, s.client, s.key)
	switch {
	case errors.Is(err, redis.ErrNotFound):
		return emptySnapshot(), nil
	case errors.Is(err, redis.ErrDecode):
		return ranking.Snapshot{}, resilience.Permanent(err)
	case err != nil:
		return ranking.Snapshot{}, err
	}
	if snap.Learned == nil {
		snap.Learned = map[string]map[string]int{}
	}
	if snap.History == nil {
		snap.History = []string{}
	}
	return snap, nil
}

func (s *RedisStore) Save(ctx context.Context, snap ranking.Snapshot) error {
	return redis.SetJSON(ctx, s.client, s.key, snap, 0)
}
