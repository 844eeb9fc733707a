package ranking

import (
	"math"
	"sort"
	"strings"
)

// Candidate is anything FilterAndSort can rank: a value with a catalog-unique
// key and a display label. Everything else about the value is opaque here.
type Candidate interface {
	Key() string
	Label() string
}

// FilterAndSort returns the items relevant to query, best first.
//
// With an empty query every item is returned, most recently selected first
// and the rest alphabetically. Otherwise the learned winner for the query (if
// any) leads, followed by the fuzzy matches; items the query does not match
// are left out. Neither items nor c are modified.
func FilterAndSort[T Candidate](items []T, query string, c *Context) []T {
	if c == nil {
		c = NewContext()
	}
	q := strings.ToLower(query)
	if q == "" {
		return sortByRecency(items, c)
	}

	entries := make([]Entry, len(items))
	for i, item := range items {
		entries[i] = NewEntry(item.Key(), item.Label())
		entries[i].pos = i
	}

	matched := runPipeline(entries, q, c)
	result := make([]T, len(matched))
	for i, e := range matched {
		result[i] = items[e.pos]
	}
	return result
}

type recencyKey struct {
	pos     int
	rank    int
	sortKey string
}

func sortByRecency[T Candidate](items []T, c *Context) []T {
	historyIdx := make(map[string]int, len(c.history))
	for i, id := range c.history {
		historyIdx[id] = i
	}

	keys := make([]recencyKey, len(items))
	for i, item := range items {
		rank, ok := historyIdx[item.Key()]
		if !ok {
			rank = math.MaxInt
		}
		keys[i] = recencyKey{pos: i, rank: rank, sortKey: strings.ToLower(item.Label())}
	}
	sort.SliceStable(keys, func(i, j int) bool {
		if keys[i].rank != keys[j].rank {
			return keys[i].rank < keys[j].rank
		}
		return keys[i].sortKey < keys[j].sortKey
	})

	result := make([]T, len(keys))
	for i, k := range keys {
		result[i] = items[k.pos]
	}
	return result
}
