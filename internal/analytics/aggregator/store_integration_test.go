package aggregator

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/launchrank/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/launchrank/pkg/postgres"
)

// Runs only when LR_TEST_POSTGRES is set; connection settings come from the
// usual LR_* variables. The snapshot table is emptied first.

type counts struct {
	Searches   int64 `json:"searches"`
	Selections int64 `json:"selections"`
}

type fixedSource struct{ stats counts }

func (f fixedSource) Stats() counts { return f.stats }

func openTestStore(t *testing.T) (*Store[counts], *postgres.Client) {
	t.Helper()
	if os.Getenv("LR_TEST_POSTGRES") == "" {
		t.Skip("LR_TEST_POSTGRES not set")
	}
	cfg, err := config.Load("")
	require.NoError(t, err)
	db, err := postgres.New(cfg.Postgres)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store, err := NewStore[counts](context.Background(), db)
	require.NoError(t, err)
	_, err = db.DB.ExecContext(context.Background(), `DELETE FROM analytics_snapshots`)
	require.NoError(t, err)
	return store, db
}

func TestStoreSaveLatestList(t *testing.T) {
	store, db := openTestStore(t)
	ctx := context.Background()

	latest, err := store.Latest(ctx)
	require.NoError(t, err)
	assert.Nil(t, latest)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := range 3 {
		store.now = func() time.Time { return base.Add(time.Duration(i) * time.Minute) }
		require.NoError(t, store.Save(ctx, counts{Searches: int64(10 * (i + 1)), Selections: int64(i)}))
	}

	latest, err = store.Latest(ctx)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, counts{Searches: 30, Selections: 2}, latest.Stats)
	assert.True(t, latest.CapturedAt.Equal(base.Add(2*time.Minute)))

	list, err := store.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, int64(30), list[0].Stats.Searches)
	assert.Equal(t, int64(20), list[1].Stats.Searches)

	_, err = db.DB.ExecContext(ctx,
		`INSERT INTO analytics_snapshots (data, captured_at) VALUES ('"not an object"', $1)`,
		base.Add(time.Hour))
	require.NoError(t, err)

	list, err = store.List(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, list, 3, "undecodable row is skipped")
}

func TestStoreRunTakesFinalSnapshot(t *testing.T) {
	store, _ := openTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, store.Run(ctx, fixedSource{counts{Searches: 7}}, time.Hour))

	latest, err := store.Latest(context.Background())
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, counts{Searches: 7}, latest.Stats)
}
