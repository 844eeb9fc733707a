package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	apperrors "github.com/Adithya-Monish-Kumar-K/launchrank/pkg/errors"
)

type source struct {
	items     []Item
	updatedAt time.Time
}

// Store keeps one item list per source, in the order sources were first
// registered. It is safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	sources map[string]*source
	order   []string
	flat    []Item
	dirty   bool

	itemGauge *prometheus.GaugeVec
	now       func() time.Time
	logger    *slog.Logger
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithItemGauge reports per-source item counts to g (labelled by source).
func WithItemGauge(g *prometheus.GaugeVec) StoreOption {
	return func(s *Store) { s.itemGauge = g }
}

// NewStore creates an empty Store.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		sources: make(map[string]*source),
		now:     time.Now,
		logger:  slog.Default().With("component", "catalog"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Replace sets the items of sourceID, registering the source if it is new.
// The slice is copied.
func (s *Store) Replace(sourceID string, items []Item) {
	s.replace(sourceID, items, time.Time{})
}

func (s *Store) replace(sourceID string, items []Item, updatedAt time.Time) {
	if updatedAt.IsZero() {
		updatedAt = s.now()
	}
	copied := make([]Item, len(items))
	copy(copied, items)

	s.mu.Lock()
	src, ok := s.sources[sourceID]
	if !ok {
		src = &source{}
		s.sources[sourceID] = src
		s.order = append(s.order, sourceID)
	}
	src.items = copied
	src.updatedAt = updatedAt
	s.dirty = true
	s.mu.Unlock()

	if s.itemGauge != nil {
		s.itemGauge.WithLabelValues(sourceID).Set(float64(len(copied)))
	}
	s.logger.Info("source replaced", "source", sourceID, "items", len(copied), "new", !ok)
}

// Remove drops sourceID and all of its items.
func (s *Store) Remove(sourceID string) error {
	s.mu.Lock()
	if _, ok := s.sources[sourceID]; !ok {
		s.mu.Unlock()
		return apperrors.Newf(apperrors.ErrSourceNotFound, http.StatusNotFound, "source %q", sourceID)
	}
	delete(s.sources, sourceID)
	for i, id := range s.order {
		if id == sourceID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.dirty = true
	s.mu.Unlock()

	if s.itemGauge != nil {
		s.itemGauge.DeleteLabelValues(sourceID)
	}
	s.logger.Info("source removed", "source", sourceID)
	return nil
}

// Apply validates update and replaces or removes its source.
func (s *Store) Apply(_ context.Context, update SourceUpdate) error {
	if err := Validate(&update); err != nil {
		return fmt.Errorf("%w: %w", apperrors.ErrInvalidInput, err)
	}
	if update.Deleted {
		return s.Remove(update.Source)
	}
	s.replace(update.Source, update.Items, update.UpdatedAt)
	return nil
}

// Snapshot returns every item, sources in registration order and items in
// the order their source listed them. When two sources share an item id the
// first one wins. The returned slice is shared between callers until the
// next write and must not be modified.
func (s *Store) Snapshot() []Item {
	s.mu.RLock()
	if !s.dirty {
		flat := s.flat
		s.mu.RUnlock()
		return flat
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dirty {
		s.flat = s.flatten()
		s.dirty = false
	}
	return s.flat
}

func (s *Store) flatten() []Item {
	total := 0
	for _, src := range s.sources {
		total += len(src.items)
	}
	flat := make([]Item, 0, total)
	seen := make(map[string]string, total)
	for _, id := range s.order {
		for _, item := range s.sources[id].items {
			if owner, dup := seen[item.ID]; dup {
				s.logger.Warn("duplicate item id, keeping first",
					"item_id", item.ID, "kept_source", owner, "dropped_source", id)
				continue
			}
			seen[item.ID] = id
			flat = append(flat, item)
		}
	}
	return flat
}

// Sources lists registered sources in registration order.
func (s *Store) Sources() []SourceInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]SourceInfo, 0, len(s.order))
	for _, id := range s.order {
		src := s.sources[id]
		out = append(out, SourceInfo{ID: id, Items: len(src.items), UpdatedAt: src.updatedAt})
	}
	return out
}

// Has reports whether sourceID is registered.
func (s *Store) Has(sourceID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.sources[sourceID]
	return ok
}

// Len returns the number of items in the snapshot.
func (s *Store) Len() int {
	return len(s.Snapshot())
}
