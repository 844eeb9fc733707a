package rankstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/Adithya-Monish-Kumar-K/launchrank/internal/ranking"
	"github.com/Adithya-Monish-Kumar-K/launchrank/pkg/postgres"
)

// Schema creates the tables PostgresStore uses.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS ranking_learned (
		query   TEXT     NOT NULL,
		item_id TEXT     NOT NULL,
		count   SMALLINT NOT NULL CHECK (count BETWEEN 0 AND 3),
		PRIMARY KEY (query, item_id)
	)`,
	`CREATE TABLE IF NOT EXISTS ranking_history (
		position INT  PRIMARY KEY,
		item_id  TEXT NOT NULL
	)`,
}

// PostgresStore keeps the learned table row per (query, item) and the
// history row per position. Save rewrites both tables in one transaction.
type PostgresStore struct {
	db *postgres.Client
}

// NewPostgresStore creates the tables if needed and returns the store.
func NewPostgresStore(ctx context.Context, db *postgres.Client) (*PostgresStore, error) {
	if err := db.Migrate(ctx, Schema...); err != nil {
		return nil, fmt.Errorf("migrating ranking tables: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Name() string { return "postgres" }

func (s *PostgresStore) Load(ctx context.Context) (ranking.Snapshot, error) {
	snap := emptySnapshot()

	rows, err := s.db.DB.QueryContext(ctx, `SELECT query, item_id, count FROM ranking_learned`)
	if err != nil {
		return snap, fmt.Errorf("querying learned counts: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			query, itemID string
			count         int
		)
		if err := rows.Scan(&query, &itemID, &count); err != nil {
			return snap, fmt.Errorf("scanning learned row: %w", err)
		}
		counts, ok := snap.Learned[query]
		if !ok {
			counts = make(map[string]int)
			snap.Learned[query] = counts
		}
		counts[itemID] = count
	}
	if err := rows.Err(); err != nil {
		return snap, fmt.Errorf("reading learned rows: %w", err)
	}

	hrows, err := s.db.DB.QueryContext(ctx, `SELECT item_id FROM ranking_history ORDER BY position`)
	if err != nil {
		return snap, fmt.Errorf("querying history: %w", err)
	}
	defer hrows.Close()
	for hrows.Next() {
		var itemID string
		if err := hrows.Scan(&itemID); err != nil {
			return snap, fmt.Errorf("scanning history row: %w", err)
		}
		snap.History = append(snap.History, itemID)
	}
	return snap, hrows.Err()
}

func (s *PostgresStore) Save(ctx context.Context, snap ranking.Snapshot) error {
	return s.db.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM ranking_learned`); err != nil {
			return fmt.Errorf("clearing learned counts: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM ranking_history`); err != nil {
			return fmt.Errorf("clearing history: %w", err)
		}

		var queries, itemIDs []string
		var counts []int64
		for query, byItem := range snap.Learned {
			for itemID, n := range byItem {
				queries = append(queries, query)
				itemIDs = append(itemIDs, itemID)
				counts = append(counts, int64(n))
			}
		}
		if len(queries) > 0 {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO ranking_learned (query, item_id, count)
				 SELECT * FROM unnest($1::text[], $2::text[], $3::smallint[])`,
				pq.Array(queries), pq.Array(itemIDs), pq.Array(counts))
			if err != nil {
				return fmt.Errorf("inserting learned counts: %w", err)
			}
		}

		if len(snap.History) > 0 {
			positions := make([]int64, len(snap.History))
			for i := range positions {
				positions[i] = int64(i)
			}
			_, err := tx.ExecContext(ctx,
				`INSERT INTO ranking_history (position, item_id)
				 SELECT * FROM unnest($1::int[], $2::text[])`,
				pq.Array(positions), pq.Array(snap.History))
			if err != nil {
				return fmt.Errorf("inserting history: %w", err)
			}
		}
		return nil
	})
}
