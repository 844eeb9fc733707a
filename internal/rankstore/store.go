// Package rankstore persists the ranking context so learned preferences and
// recency history survive restarts. The ranking engine itself never does
// I/O; the daemon loads a snapshot at startup and saves one periodically.
package rankstore

import (
	"context"

	"github.com/Adithya-Monish-Kumar-K/launchrank/internal/ranking"
)

// Store loads and saves ranking context snapshots. Loading from an empty
// store yields an empty snapshot, not an error.
type Store interface {
	Load(ctx context.Context) (ranking.Snapshot, error)
	Save(ctx context.Context, s ranking.Snapshot) error
	Name() string
}

// Snapshotter produces the snapshot to save; *launcher.Launcher implements it.
type Snapshotter interface {
	Snapshot() ranking.Snapshot
}

// Restorer accepts a loaded snapshot; *launcher.Launcher implements it.
type Restorer interface {
	Restore(ranking.Snapshot)
}

func emptySnapshot() ranking.Snapshot {
	return ranking.Snapshot{Learned: map[string]map[string]int{}, History: []string{}}
}
