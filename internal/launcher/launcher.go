// Package launcher is the ranking session behind a launcher UI: it owns the
// ranking context, evaluates queries against the live catalog and feeds
// selections back into the learned preferences.
package launcher

import (
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/launchrank/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/launchrank/internal/ranking"
	"github.com/Adithya-Monish-Kumar-K/launchrank/pkg/metrics"
)

// Catalog supplies the items to rank. *catalog.Store implements it.
type Catalog interface {
	Snapshot() []catalog.Item
}

// Result is the ranked answer to one query.
type Result struct {
	Query      string         `json:"query"`
	Items      []catalog.Item `json:"items"`
	Total      int            `json:"total"`
	LearnedTop bool           `json:"learned_top"`
	Latency    time.Duration  `json:"-"`
}

// Selection describes what happened when the user picked an item.
type Selection struct {
	ItemID string `json:"item_id"`
	Query  string `json:"query"`
	// Rank is the item's position in the results for Query before the
	// selection was recorded, or -1 when it was not listed.
	Rank int `json:"rank"`
	// TopChanged is set when the first result for Query differs after the
	// selection; the UI resets its highlighted row when it does.
	TopChanged   bool   `json:"top_changed"`
	Top          string `json:"top,omitempty"`
	LearnedCount int    `json:"learned_count"`
}

// Stats summarises the ranking context.
type Stats struct {
	LearnedQueries int `json:"learned_queries"`
	HistorySize    int `json:"history_size"`
	CatalogItems   int `json:"catalog_items"`
}

// Launcher serialises writers to the ranking context while letting searches
// run concurrently.
type Launcher struct {
	catalog Catalog
	mu      sync.RWMutex
	ctx     *ranking.Context
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// Option configures a Launcher.
type Option func(*Launcher)

// WithMetrics records searches and selections to m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(l *Launcher) { l.metrics = m }
}

// New creates a Launcher with an empty ranking context.
func New(c Catalog, opts ...Option) *Launcher {
	l := &Launcher{
		catalog: c,
		ctx:     ranking.NewContext(),
		logger:  slog.Default().With("component", "launcher"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Search ranks the catalog for query and keeps at most limit items (all of
// them when limit <= 0).
func (l *Launcher) Search(query string, limit int) Result {
	start := time.Now()
	items := l.catalog.Snapshot()

	l.mu.RLock()
	ranked := ranking.FilterAndSort(items, query, l.ctx)
	learnedTop := query != "" && len(ranked) > 0 && l.isLearnedWinner(query, ranked[0].ID)
	l.mu.RUnlock()

	res := Result{
		Query:      query,
		Total:      len(ranked),
		LearnedTop: learnedTop,
		Items:      ranked,
	}
	if limit > 0 && len(ranked) > limit {
		res.Items = ranked[:limit]
	}
	res.Latency = time.Since(start)
	l.observeSearch(res)
	return res
}

// isLearnedWinner must be called with l.mu held.
func (l *Launcher) isLearnedWinner(query, itemID string) bool {
	id, n := l.ctx.Winner(query)
	return id == itemID && n >= ranking.MinCountForBoost
}

// Select records that itemID was chosen for query. Unknown ids are
// recorded too; the catalog may simply not have caught up yet.
func (l *Launcher) Select(query, itemID string) Selection {
	items := l.catalog.Snapshot()

	l.mu.Lock()
	before := ranking.FilterAndSort(items, query, l.ctx)
	rank := slices.IndexFunc(before, func(it catalog.Item) bool { return it.ID == itemID })
	ranking.RecordSelection(l.ctx, query, itemID)
	after := ranking.FilterAndSort(items, query, l.ctx)
	count := 0
	if query != "" {
		count = l.ctx.Count(query, itemID)
	}
	learned, history := l.ctx.LearnedQueries(), len(l.ctx.History())
	l.mu.Unlock()

	sel := Selection{
		ItemID:       itemID,
		Query:        query,
		Rank:         rank,
		TopChanged:   topID(before) != topID(after),
		Top:          topID(after),
		LearnedCount: count,
	}
	l.observeSelection(sel, learned, history)
	l.logger.Debug("selection recorded",
		"query", strings.ToLower(query),
		"item_id", itemID,
		"rank", rank,
		"top_changed", sel.TopChanged,
		"learned_count", count,
	)
	return sel
}

func topID(items []catalog.Item) string {
	if len(items) == 0 {
		return ""
	}
	return items[0].ID
}

// Snapshot returns a copy of the ranking context for persistence.
func (l *Launcher) Snapshot() ranking.Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.ctx.Snapshot()
}

// Restore replaces the ranking context with s.
func (l *Launcher) Restore(s ranking.Snapshot) {
	restored := ranking.FromSnapshot(s)
	l.mu.Lock()
	l.ctx = restored
	learned, history := l.ctx.LearnedQueries(), len(l.ctx.History())
	l.mu.Unlock()
	l.observeContext(learned, history)
	l.logger.Info("ranking context restored", "learned_queries", learned, "history", history)
}

// Reset forgets all learned preferences and history.
func (l *Launcher) Reset() {
	l.mu.Lock()
	l.ctx.Reset()
	l.mu.Unlock()
	l.observeContext(0, 0)
	l.logger.Info("ranking context reset")
}

// Stats reports the size of the ranking context and catalog.
func (l *Launcher) Stats() Stats {
	items := len(l.catalog.Snapshot())
	l.mu.RLock()
	defer l.mu.RUnlock()
	return Stats{
		LearnedQueries: l.ctx.LearnedQueries(),
		HistorySize:    len(l.ctx.History()),
		CatalogItems:   items,
	}
}

func (l *Launcher) observeSearch(res Result) {
	if l.metrics == nil {
		return
	}
	mode := "matched"
	switch {
	case res.Query == "":
		mode = "recent"
	case res.Total == 0:
		mode = "zero_result"
	}
	l.metrics.SearchesTotal.WithLabelValues(mode).Inc()
	l.metrics.SearchLatency.Observe(res.Latency.Seconds())
	l.metrics.SearchResults.Observe(float64(res.Total))
}

func (l *Launcher) observeSelection(sel Selection, learned, history int) {
	if l.metrics == nil {
		return
	}
	outcome := "ranked"
	switch {
	case sel.Rank == 0:
		outcome = "top"
	case sel.Rank < 0:
		outcome = "unranked"
	}
	l.metrics.SelectionsTotal.WithLabelValues(outcome).Inc()
	l.observeContext(learned, history)
}

func (l *Launcher) observeContext(learned, history int) {
	if l.metrics == nil {
		return
	}
	l.metrics.LearnedQueries.Set(float64(learned))
	l.metrics.HistorySize.Set(float64(history))
}
