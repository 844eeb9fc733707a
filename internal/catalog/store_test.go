package catalog

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Adithya-Monish-Kumar-K/launchrank/pkg/errors"
)

func ids(items []Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func TestStoreSnapshotOrder(t *testing.T) {
	s := NewStore()
	s.Replace("apps", []Item{{ID: "chrome", Name: "Google Chrome"}, {ID: "code", Name: "Visual Studio Code"}})
	s.Replace("web", []Item{{ID: "ddg", Name: "DuckDuckGo"}})
	s.Replace("apps", []Item{{ID: "terminal", Name: "Terminal"}, {ID: "chrome", Name: "Google Chrome"}})

	assert.Equal(t, []string{"terminal", "chrome", "ddg"}, ids(s.Snapshot()), "replacing keeps registration order")
	assert.Equal(t, 3, s.Len())

	require.NoError(t, s.Remove("apps"))
	s.Replace("apps", []Item{{ID: "chrome", Name: "Google Chrome"}})
	assert.Equal(t, []string{"ddg", "chrome"}, ids(s.Snapshot()), "re-added source goes last")
}

func TestStoreSnapshotDropsDuplicateIDs(t *testing.T) {
	s := NewStore()
	s.Replace("apps", []Item{{ID: "x", Name: "From apps"}})
	s.Replace("files", []Item{{ID: "x", Name: "From files"}, {ID: "y", Name: "Other"}})

	snap := s.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, "From apps", snap[0].Name)
	assert.Equal(t, "y", snap[1].ID)
}

func TestStoreReplaceCopiesItems(t *testing.T) {
	s := NewStore()
	items := []Item{{ID: "a", Name: "A"}}
	s.Replace("src", items)
	items[0].Name = "changed"

	assert.Equal(t, "A", s.Snapshot()[0].Name)
}

func TestStoreRemoveUnknown(t *testing.T) {
	err := NewStore().Remove("nope")
	assert.ErrorIs(t, err, apperrors.ErrSourceNotFound)
	assert.Equal(t, 404, apperrors.HTTPStatusCode(err))
}

func TestStoreApply(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.Apply(ctx, SourceUpdate{Source: "apps", Items: []Item{{ID: "a", Name: "A"}}, UpdatedAt: at}))
	snap := s.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, "apps", snap[0].Source, "source filled in by validation")
	assert.Equal(t, []SourceInfo{{ID: "apps", Items: 1, UpdatedAt: at}}, s.Sources())

	err := s.Apply(ctx, SourceUpdate{Source: "apps", Items: []Item{{ID: "", Name: "A"}}})
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	assert.Equal(t, 1, s.Len(), "invalid update leaves the source alone")

	require.NoError(t, s.Apply(ctx, SourceUpdate{Source: "apps", Deleted: true}))
	assert.False(t, s.Has("apps"))
	assert.ErrorIs(t, s.Apply(ctx, SourceUpdate{Source: "apps", Deleted: true}), apperrors.ErrSourceNotFound)
}

func TestStoreItemGauge(t *testing.T) {
	gauge := prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: "catalog_items"}, []string{"source"})
	s := NewStore(WithItemGauge(gauge))

	s.Replace("apps", []Item{{ID: "a", Name: "A"}, {ID: "b", Name: "B"}})
	assert.Equal(t, 2.0, testutil.ToFloat64(gauge.WithLabelValues("apps")))

	require.NoError(t, s.Remove("apps"))
	assert.Equal(t, 0, testutil.CollectAndCount(gauge))
}

func TestStoreConcurrentAccess(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				s.Replace("apps", []Item{{ID: "a", Name: "A"}, {ID: "b", Name: "B"}})
			}
		}()
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				snap := s.Snapshot()
				assert.Contains(t, []int{0, 2}, len(snap))
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 2, s.Len())
}
