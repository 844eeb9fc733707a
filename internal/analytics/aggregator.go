package analytics

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/launchrank/pkg/kafka"
)

const (
	maxLatencySamples = 10000
	topListSize       = 10
)

// Stats is a point-in-time view of the aggregated events.
type Stats struct {
	TotalSearches         int64        `json:"total_searches"`
	EmptyQuerySearches    int64        `json:"empty_query_searches"`
	ZeroResultCount       int64        `json:"zero_result_count"`
	LearnedTopSearches    int64        `json:"learned_top_searches"`
	TotalSelections       int64        `json:"total_selections"`
	FirstResultSelections int64        `json:"first_result_selections"`
	UnrankedSelections    int64        `json:"unranked_selections"`
	TopChanges            int64        `json:"top_changes"`
	FirstResultRate       float64      `json:"first_result_rate"`
	MeanSelectionRank     float64      `json:"mean_selection_rank"`
	AvgLatencyUs          float64      `json:"avg_latency_us"`
	P50LatencyUs          int64        `json:"p50_latency_us"`
	P95LatencyUs          int64        `json:"p95_latency_us"`
	P99LatencyUs          int64        `json:"p99_latency_us"`
	TopQueries            []QueryCount `json:"top_queries"`
	ZeroResultQueries     []QueryCount `json:"zero_result_queries"`
	TopItems              []ItemCount  `json:"top_items"`
	SearchesPerMinute     float64      `json:"searches_per_minute"`
}

type QueryCount struct {
	Query string `json:"query"`
	Count int64  `json:"count"`
}

type ItemCount struct {
	ItemID string `json:"item_id"`
	Count  int64  `json:"count"`
}

// Aggregator folds events into running totals. It is safe for concurrent
// use.
type Aggregator struct {
	mu sync.Mutex

	searches, emptyQueries, zeroResults, learnedTop int64
	selections, firstResult, unranked, topChanges   int64
	rankSum, rankedSelections                       int64

	latencies   []int64
	latencyNext int

	queryCounts       map[string]int64
	zeroResultQueries map[string]int64
	itemCounts        map[string]int64
	startTime         time.Time

	logger *slog.Logger
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		latencies:         make([]int64, 0, 1024),
		queryCounts:       make(map[string]int64),
		zeroResultQueries: make(map[string]int64),
		itemCounts:        make(map[string]int64),
		startTime:         time.Now(),
		logger:            slog.Default().With("component", "analytics-aggregator"),
	}
}

// HandleEvent returns a Kafka MessageHandler feeding agg. Undecodable
// messages are logged and skipped.
func HandleEvent(agg *Aggregator) kafka.MessageHandler {
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := DecodeEvent(value)
		if err != nil {
			agg.logger.Error("failed to decode analytics event", "error", err, "key", string(key))
			return nil
		}
		agg.Record(event)
		return nil
	}
}

// Track records event in-process; it lets the daemon use the aggregator in
// place of a Collector when Kafka is disabled.
func (a *Aggregator) Track(event Event) {
	a.Record(event)
}

// Record folds one event into the totals.
func (a *Aggregator) Record(event Event) {
	switch e := event.(type) {
	case SearchEvent:
		a.recordSearch(e)
	case SelectionEvent:
		a.recordSelection(e)
	default:
		a.logger.Warn("ignoring unknown analytics event", "type", event.Kind())
	}
}

func (a *Aggregator) recordSearch(e SearchEvent) {
	query := strings.ToLower(e.Query)

	a.mu.Lock()
	defer a.mu.Unlock()
	a.searches++
	if len(a.latencies) < maxLatencySamples {
		a.latencies = append(a.latencies, e.LatencyUs)
	} else {
		a.latencies[a.latencyNext] = e.LatencyUs
		a.latencyNext = (a.latencyNext + 1) % maxLatencySamples
	}
	if e.EmptyQuery || query == "" {
		a.emptyQueries++
		return
	}
	a.queryCounts[query]++
	if e.LearnedTop {
		a.learnedTop++
	}
	if e.Type == EventZeroResult || e.Total == 0 {
		a.zeroResults++
		a.zeroResultQueries[query]++
	}
}

func (a *Aggregator) recordSelection(e SelectionEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.selections++
	a.itemCounts[e.ItemID]++
	switch {
	case e.Rank < 0:
		a.unranked++
	default:
		if e.Rank == 0 {
			a.firstResult++
		}
		a.rankSum += int64(e.Rank)
		a.rankedSelections++
	}
	if e.TopChanged {
		a.topChanges++
	}
}

func (a *Aggregator) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()

	stats := Stats{
		TotalSearches:         a.searches,
		EmptyQuerySearches:    a.emptyQueries,
		ZeroResultCount:       a.zeroResults,
		LearnedTopSearches:    a.learnedTop,
		TotalSelections:       a.selections,
		FirstResultSelections: a.firstResult,
		UnrankedSelections:    a.unranked,
		TopChanges:            a.topChanges,
	}
	if a.selections > 0 {
		stats.FirstResultRate = float64(a.firstResult) / float64(a.selections)
	}
	if a.rankedSelections > 0 {
		stats.MeanSelectionRank = float64(a.rankSum) / float64(a.rankedSelections)
	}
	if len(a.latencies) > 0 {
		sorted := make([]int64, len(a.latencies))
		copy(sorted, a.latencies)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

		var sum int64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgLatencyUs = float64(sum) / float64(len(sorted))
		stats.P50LatencyUs = percentile(sorted, 50)
		stats.P95LatencyUs = percentile(sorted, 95)
		stats.P99LatencyUs = percentile(sorted, 99)
	}
	stats.TopQueries = toQueryCounts(topN(a.queryCounts, topListSize))
	stats.ZeroResultQueries = toQueryCounts(topN(a.zeroResultQueries, topListSize))
	topItems := topN(a.itemCounts, topListSize)
	stats.TopItems = make([]ItemCount, len(topItems))
	for i, kv := range topItems {
		stats.TopItems[i] = ItemCount{ItemID: kv.key, Count: kv.count}
	}
	if elapsed := time.Since(a.startTime).Minutes(); elapsed > 0 {
		stats.SearchesPerMinute = float64(stats.TotalSearches) / elapsed
	}
	return stats
}

func percentile(sorted []int64, pct int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

type keyCount struct {
	key   string
	count int64
}

// topN returns the n largest counts, ties broken by key.
func topN(counts map[string]int64, n int) []keyCount {
	result := make([]keyCount, 0, len(counts))
	for key, count := range counts {
		result = append(result, keyCount{key: key, count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].count != result[j].count {
			return result[i].count > result[j].count
		}
		return result[i].key < result[j].key
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}

func toQueryCounts(kvs []keyCount) []QueryCount {
	out := make([]QueryCount, len(kvs))
	for i, kv := range kvs {
		out[i] = QueryCount{Query: kv.key, Count: kv.count}
	}
	return out
}
