package ranking

import "sort"

// Match describes how a query was consumed by an entry's segments. Lower is
// better in every field.
type Match struct {
	// Start is the index of the first segment that began a match.
	Start int
	// CharSpan is the summed length of every segment that began a match.
	CharSpan int
	// Gaps counts segments between the first and last matched ones that did
	// not begin a match themselves.
	Gaps int
}

// less orders matches by (Start, CharSpan, Gaps).
func (m Match) less(o Match) bool {
	if m.Start != o.Start {
		return m.Start < o.Start
	}
	if m.CharSpan != o.CharSpan {
		return m.CharSpan < o.CharSpan
	}
	return m.Gaps < o.Gaps
}

// MatchFrom consumes query against segments starting at segment start. Both
// are expected to be lowercase. The query may only move to another segment by
// restarting at that segment's first character.
func MatchFrom(segments []string, query string, start int) (Match, bool) {
	runes := make([][]rune, len(segments))
	for i, s := range segments {
		runes[i] = []rune(s)
	}
	return matchFrom(runes, []rune(query), start)
}

func matchFrom(segments [][]rune, query []rune, start int) (Match, bool) {
	if start < 0 || start >= len(segments) || len(query) == 0 {
		return Match{}, false
	}

	var (
		queryPos     int
		seg          = start
		offset       int
		charSpan     int
		firstMatched = -1
		lastMatched  = -1
		matchedCount int
	)
	for queryPos < len(query) {
		if seg >= len(segments) {
			return Match{}, false
		}
		current := segments[seg]
		if offset < len(current) && current[offset] == query[queryPos] {
			if offset == 0 {
				if firstMatched == -1 {
					firstMatched = seg
				}
				lastMatched = seg
				matchedCount++
				charSpan += len(current)
			}
			queryPos++
			offset++
			continue
		}
		seg++
		offset = 0
	}

	return Match{
		Start:    firstMatched,
		CharSpan: charSpan,
		Gaps:     lastMatched - firstMatched + 1 - matchedCount,
	}, true
}

type scoredEntry struct {
	entry Entry
	match Match
}

// matchUnified keeps every entry the query matches from some start segment,
// taking the first start that succeeds rather than the best one, and orders
// them by (Start, CharSpan, Gaps, lowercase name).
func matchUnified(entries []Entry, query string, _ *Context) []Entry {
	q := []rune(query)
	scored := make([]scoredEntry, 0, len(entries))
	for _, e := range entries {
		for start := range e.runes {
			if m, ok := matchFrom(e.runes, q, start); ok {
				scored = append(scored, scoredEntry{entry: e, match: m})
				break
			}
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		a, b := scored[i], scored[j]
		if a.match != b.match {
			return a.match.less(b.match)
		}
		return a.entry.sortKey < b.entry.sortKey
	})

	result := make([]Entry, len(scored))
	for i, s := range scored {
		result[i] = s.entry
	}
	return result
}

// matchLearned returns the learned winner for query when it has been picked
// often enough and is still in the candidate pool.
func matchLearned(entries []Entry, query string, c *Context) []Entry {
	id, count := c.Winner(query)
	if count < MinCountForBoost {
		return nil
	}
	for _, e := range entries {
		if e.ID == id {
			return []Entry{e}
		}
	}
	return nil
}

type matcher func(entries []Entry, query string, c *Context) []Entry

// matchers run in priority order; each only sees what earlier ones left.
var matchers = []matcher{matchLearned, matchUnified}

func runPipeline(entries []Entry, query string, c *Context) []Entry {
	remaining := entries
	var result []Entry
	for _, m := range matchers {
		matched := m(remaining, query, c)
		if len(matched) == 0 {
			continue
		}
		result = append(result, matched...)

		taken := make(map[string]struct{}, len(matched))
		for _, e := range matched {
			taken[e.ID] = struct{}{}
		}
		next := make([]Entry, 0, len(remaining))
		for _, e := range remaining {
			if _, ok := taken[e.ID]; !ok {
				next = append(next, e)
			}
		}
		remaining = next
	}
	return result
}
