package ranking

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordSelectionCounts(t *testing.T) {
	c := NewContext()

	RecordSelection(c, "Chr", "chrome")
	assert.Equal(t, 1, c.Count("chr", "chrome"), "query is lowercased")

	RecordSelection(c, "chr", "chrome")
	RecordSelection(c, "chr", "chrome")
	RecordSelection(c, "chr", "chrome")
	assert.Equal(t, MaxCount, c.Count("chr", "chrome"), "count saturates")

	RecordSelection(c, "chr", "chromium")
	assert.Equal(t, 2, c.Count("chr", "chrome"), "old winner loses one")
	assert.Equal(t, 1, c.Count("chr", "chromium"))

	id, n := c.Winner("chr")
	assert.Equal(t, "chrome", id)
	assert.Equal(t, 2, n)
}

func TestRecordSelectionTakeover(t *testing.T) {
	c := NewContext()
	RecordSelection(c, "term", "terminal")
	RecordSelection(c, "term", "terminal")

	RecordSelection(c, "term", "termius")
	RecordSelection(c, "term", "termius")

	// terminal: 2 -> 1 -> 0; termius: 1 -> 2
	assert.Equal(t, 0, c.Count("term", "terminal"))
	assert.Equal(t, 2, c.Count("term", "termius"))
	id, _ := c.Winner("term")
	assert.Equal(t, "termius", id)
}

func TestRecordSelectionEmptyQueryOnlyTouchesHistory(t *testing.T) {
	c := NewContext()
	RecordSelection(c, "", "notes")

	assert.Equal(t, []string{"notes"}, c.History())
	assert.Zero(t, c.LearnedQueries())
}

func TestRecordSelectionUnknownID(t *testing.T) {
	c := NewContext()
	RecordSelection(c, "x", "never-in-any-catalog")
	assert.Equal(t, 1, c.Count("x", "never-in-any-catalog"))
}

func TestCounterBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	ids := []string{"a", "b", "c", "d"}
	queries := []string{"q", "Q", "qu", ""}
	c := NewContext()

	for i := 0; i < 5000; i++ {
		RecordSelection(c, queries[rng.Intn(len(queries))], ids[rng.Intn(len(ids))])
		for _, counts := range c.learned {
			for id, n := range counts {
				require.GreaterOrEqual(t, n, 0, "count for %s", id)
				require.LessOrEqual(t, n, MaxCount, "count for %s", id)
			}
		}
	}
}

func TestHistoryBoundAndDedup(t *testing.T) {
	c := NewContext()
	for i := 0; i < 60; i++ {
		RecordSelection(c, "", fmt.Sprintf("item-%02d", i))
	}

	history := c.History()
	require.Len(t, history, MaxHistory)
	assert.Equal(t, "item-59", history[0])
	assert.Equal(t, "item-10", history[MaxHistory-1])

	RecordSelection(c, "", "item-30")
	history = c.History()
	assert.Len(t, history, MaxHistory, "moving to front does not grow")
	assert.Equal(t, "item-30", history[0])
	assert.Equal(t, "item-59", history[1])

	seen := map[string]bool{}
	for _, id := range history {
		assert.False(t, seen[id], "duplicate %s", id)
		seen[id] = true
	}
	assert.Equal(t, 0, c.HistoryPosition("item-30"))
	assert.Equal(t, -1, c.HistoryPosition("item-00"))
}

func TestWinnerTieIsDeterministic(t *testing.T) {
	c := NewContext()
	c.learned["x"] = map[string]int{"b": 2, "a": 2, "c": 0}
	for i := 0; i < 20; i++ {
		id, n := c.Winner("x")
		assert.Equal(t, "a", id)
		assert.Equal(t, 2, n)
	}

	c.learned["zero"] = map[string]int{"a": 0}
	id, n := c.Winner("zero")
	assert.Empty(t, id, "zero counts never win")
	assert.Zero(t, n)
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	c := NewContext()
	RecordSelection(c, "chr", "chrome")

	s := c.Snapshot()
	s.Learned["chr"]["chrome"] = 3
	s.History[0] = "other"

	assert.Equal(t, 1, c.Count("chr", "chrome"))
	assert.Equal(t, []string{"chrome"}, c.History())
}

func TestFromSnapshotRestoresInvariants(t *testing.T) {
	history := []string{"a", "b", "a"}
	for i := 0; i < 60; i++ {
		history = append(history, fmt.Sprintf("h%d", i))
	}
	s := Snapshot{
		Learned: map[string]map[string]int{
			"Chr": {"chrome": 9, "edge": -4},
			"chr": {"chrome": 1, "firefox": 2},
		},
		History: history,
	}

	c := FromSnapshot(s)

	assert.Equal(t, 1, c.LearnedQueries(), "keys are merged after lowercasing")
	assert.Equal(t, MaxCount, c.Count("chr", "chrome"), "clamped and higher count kept")
	assert.Equal(t, 0, c.Count("chr", "edge"))
	assert.Equal(t, 2, c.Count("chr", "firefox"))

	got := c.History()
	require.Len(t, got, MaxHistory)
	assert.Equal(t, []string{"a", "b", "h0"}, got[:3])
}

func TestSnapshotRoundTrip(t *testing.T) {
	c := NewContext()
	RecordSelection(c, "chr", "chrome")
	RecordSelection(c, "chr", "chrome")
	RecordSelection(c, "no", "notes")

	restored := FromSnapshot(c.Snapshot())

	assert.Equal(t, c.Snapshot(), restored.Snapshot())
}

func TestReset(t *testing.T) {
	c := NewContext()
	RecordSelection(c, "chr", "chrome")
	c.Reset()

	assert.Empty(t, c.History())
	assert.Zero(t, c.LearnedQueries())
	RecordSelection(c, "chr", "chrome")
	assert.Equal(t, 1, c.Count("chr", "chrome"))
}
