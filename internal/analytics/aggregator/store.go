// Package aggregator persists periodic snapshots of aggregated analytics
// stats to PostgreSQL as JSONB.
package aggregator

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/launchrank/pkg/postgres"
)

// Schema creates the snapshot table.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS analytics_snapshots (
		id          BIGSERIAL PRIMARY KEY,
		data        JSONB NOT NULL,
		captured_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS analytics_snapshots_captured_at ON analytics_snapshots (captured_at DESC)`,
}

// Source produces the stats to snapshot.
type Source[T any] interface {
	Stats() T
}

// Snapshot is one stored row.
type Snapshot[T any] struct {
	Stats      T         `json:"stats"`
	CapturedAt time.Time `json:"captured_at"`
}

// Store saves and lists snapshots of T.
type Store[T any] struct {
	db     *postgres.Client
	now    func() time.Time
	logger *slog.Logger
}

// NewStore creates the snapshot table if needed.
func NewStore[T any](ctx context.Context, db *postgres.Client) (*Store[T], error) {
	if err := db.Migrate(ctx, Schema...); err != nil {
		return nil, fmt.Errorf("migrating analytics tables: %w", err)
	}
	return &Store[T]{
		db:     db,
		now:    time.Now,
		logger: slog.Default().With("component", "analytics-store"),
	}, nil
}

// Save persists one snapshot.
func (s *Store[T]) Save(ctx context.Context, stats T) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("marshaling stats: %w", err)
	}
	_, err = s.db.DB.ExecContext(ctx,
		`INSERT INTO analytics_snapshots (data, captured_at) VALUES ($1, $2)`,
		data, s.now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("saving analytics snapshot: %w", err)
	}
	s.logger.Debug("analytics snapshot saved", "size", len(data))
	return nil
}

// Latest returns the most recent snapshot, or nil when there is none.
func (s *Store[T]) Latest(ctx context.Context) (*Snapshot[T], error) {
	var (
		data []byte
		snap Snapshot[T]
	)
	err := s.db.DB.QueryRowContext(ctx,
		`SELECT data, captured_at FROM analytics_snapshots ORDER BY captured_at DESC LIMIT 1`,
	).Scan(&data, &snap.CapturedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying latest snapshot: %w", err)
	}
	if err := json.Unmarshal(data, &snap.Stats); err != nil {
		return nil, fmt.Errorf("unmarshaling snapshot: %w", err)
	}
	return &snap, nil
}

// List returns the last limit snapshots, newest first. Rows that no longer
// decode are skipped.
func (s *Store[T]) List(ctx context.Context, limit int) ([]Snapshot[T], error) {
	rows, err := s.db.DB.QueryContext(ctx,
		`SELECT data, captured_at FROM analytics_snapshots ORDER BY captured_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}
	defer rows.Close()

	snapshots := make([]Snapshot[T], 0, limit)
	for rows.Next() {
		var (
			data []byte
			snap Snapshot[T]
		)
		if err := rows.Scan(&data, &snap.CapturedAt); err != nil {
			return nil, fmt.Errorf("scanning snapshot row: %w", err)
		}
		if err := json.Unmarshal(data, &snap.Stats); err != nil {
			s.logger.Warn("skipping corrupt snapshot", "error", err)
			continue
		}
		snapshots = append(snapshots, snap)
	}
	return snapshots, rows.Err()
}

// Run snapshots src every interval until ctx is cancelled, then takes a
// final snapshot.
func (s *Store[T]) Run(ctx context.Context, src Source[T], interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	s.logger.Info("periodic snapshot started", "interval", interval)

	for {
		select {
		case <-ticker.C:
			if err := s.Save(ctx, src.Stats()); err != nil {
				s.logger.Error("periodic snapshot failed", "error", err)
			}
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			err := s.Save(shutdownCtx, src.Stats())
			cancel()
			if err != nil {
				s.logger.Error("final snapshot failed", "error", err)
			}
			return nil
		}
	}
}
