package rankstore

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/launchrank/internal/ranking"
	"github.com/Adithya-Monish-Kumar-K/launchrank/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/launchrank/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/launchrank/pkg/redis"
)

// These tests talk to real services and run only when LR_TEST_REDIS or
// LR_TEST_POSTGRES is set; connection settings come from the usual LR_*
// variables.

func sampleSnapshot() ranking.Snapshot {
	return ranking.Snapshot{
		Learned: map[string]map[string]int{
			"chr": {"apps:chrome": 2, "apps:crd": 0},
			"vs":  {"apps:code": 3},
		},
		History: []string{"apps:code", "apps:chrome", "apps:notes"},
	}
}

func exerciseStore(t *testing.T, store Store) {
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, ranking.Snapshot{}))
	empty, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty.Learned)
	assert.Empty(t, empty.History)

	want := sampleSnapshot()
	require.NoError(t, store.Save(ctx, want))
	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// Saving replaces, never merges.
	require.NoError(t, store.Save(ctx, ranking.Snapshot{History: []string{"apps:notes"}}))
	got, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, got.Learned)
	assert.Equal(t, []string{"apps:notes"}, got.History)
}

func TestRedisStore(t *testing.T) {
	if os.Getenv("LR_TEST_REDIS") == "" {
		t.Skip("LR_TEST_REDIS not set")
	}
	cfg, err := config.Load("")
	require.NoError(t, err)
	client, err := redis.NewClient(context.Background(), cfg.Redis)
	require.NoError(t, err)
	defer client.Close()

	key := "launchrank:test:" + t.Name()
	defer client.Del(context.Background(), key)

	store := NewRedisStore(client, key)
	snap, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, snap.History, "missing key loads empty")

	exerciseStore(t, store)

	require.NoError(t, client.SetRaw(context.Background(), key, []byte("{broken")))
	_, err = store.Load(context.Background())
	assert.ErrorIs(t, err, redis.ErrDecode)
}

func TestPostgresStore(t *testing.T) {
	if os.Getenv("LR_TEST_POSTGRES") == "" {
		t.Skip("LR_TEST_POSTGRES not set")
	}
	cfg, err := config.Load("")
	require.NoError(t, err)
	db, err := postgres.New(cfg.Postgres)
	require.NoError(t, err)
	defer db.Close()

	store, err := NewPostgresStore(context.Background(), db)
	require.NoError(t, err)
	exerciseStore(t, store)
}
