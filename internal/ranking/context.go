package ranking

import "strings"

const (
	// MaxCount caps a learned count.
	MaxCount = 3
	// MinCountForBoost is the count at which a learned winner is placed
	// ahead of fuzzy matches.
	MinCountForBoost = 2
	// MaxHistory bounds the recency history.
	MaxHistory = 50
)

// Context is the ranking state learned from the user's selections: per-query
// counts of which item was picked, and a most-recent-first history of picked
// ids. It is owned by the caller and mutated only by RecordSelection.
type Context struct {
	learned map[string]map[string]int
	history []string
}

// NewContext returns an empty Context.
func NewContext() *Context {
	return &Context{
		learned: make(map[string]map[string]int),
	}
}

// RecordSelection updates c after the user activated itemID while query was
// typed. The id moves to the front of the history. For a non-empty query the
// item's count goes up by one (capped at MaxCount) and a different current
// winner loses one (floored at zero), so a single stray pick erodes an
// established preference without discarding it.
func RecordSelection(c *Context, query, itemID string) {
	history := make([]string, 0, min(len(c.history)+1, MaxHistory))
	history = append(history, itemID)
	for _, id := range c.history {
		if len(history) == MaxHistory {
			break
		}
		if id != itemID {
			history = append(history, id)
		}
	}
	c.history = history

	if query == "" {
		return
	}

	q := strings.ToLower(query)
	counts, ok := c.learned[q]
	if !ok {
		counts = make(map[string]int)
		c.learned[q] = counts
	}
	if winnerID, winnerCount := winner(counts); winnerID != "" && winnerID != itemID {
		counts[winnerID] = max(0, winnerCount-1)
	}
	counts[itemID] = min(MaxCount, counts[itemID]+1)
}

// Winner returns the id with the highest learned count for query. Ties go
// to the lowest id; ids whose count is zero never win.
func (c *Context) Winner(query string) (string, int) {
	return winner(c.learned[strings.ToLower(query)])
}

func winner(counts map[string]int) (string, int) {
	var (
		bestID    string
		bestCount int
	)
	for id, n := range counts {
		if n > bestCount || (n == bestCount && n > 0 && id < bestID) {
			bestID, bestCount = id, n
		}
	}
	return bestID, bestCount
}

// Count returns the learned count of itemID for query.
func (c *Context) Count(query, itemID string) int {
	return c.learned[strings.ToLower(query)][itemID]
}

// History returns a copy of the recency history, most recent first.
func (c *Context) History() []string {
	out := make([]string, len(c.history))
	copy(out, c.history)
	return out
}

// HistoryPosition returns the index of itemID in the history or -1.
func (c *Context) HistoryPosition(itemID string) int {
	for i, id := range c.history {
		if id == itemID {
			return i
		}
	}
	return -1
}

// LearnedQueries returns how many distinct queries have learned counts.
func (c *Context) LearnedQueries() int {
	return len(c.learned)
}

// Reset forgets everything learned.
func (c *Context) Reset() {
	c.learned = make(map[string]map[string]int)
	c.history = nil
}

// Snapshot is the serializable form of a Context.
type Snapshot struct {
	Learned map[string]map[string]int `json:"learned"`
	History []string                  `json:"history"`
}

// Snapshot returns a deep copy of c.
func (c *Context) Snapshot() Snapshot {
	s := Snapshot{
		Learned: make(map[string]map[string]int, len(c.learned)),
		History: c.History(),
	}
	for q, counts := range c.learned {
		inner := make(map[string]int, len(counts))
		for id, n := range counts {
			inner[id] = n
		}
		s.Learned[q] = inner
	}
	return s
}

// FromSnapshot rebuilds a Context from persisted data, restoring the
// invariants a hand-edited or foreign snapshot may break: query keys are
// lowercased (colliding keys keep the higher count per id), counts are
// clamped into [0, MaxCount], and the history is de-duplicated, keeping the
// most recent occurrence, and truncated to MaxHistory.
func FromSnapshot(s Snapshot) *Context {
	c := NewContext()
	for q, counts := range s.Learned {
		key := strings.ToLower(q)
		inner, ok := c.learned[key]
		if !ok {
			inner = make(map[string]int, len(counts))
			c.learned[key] = inner
		}
		for id, n := range counts {
			n = min(MaxCount, max(0, n))
			if prev, seen := inner[id]; !seen || n > prev {
				inner[id] = n
			}
		}
	}

	seen := make(map[string]struct{}, len(s.History))
	for _, id := range s.History {
		if len(c.history) == MaxHistory {
			break
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		c.history = append(c.history, id)
	}
	return c
}
