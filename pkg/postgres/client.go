// Package postgres opens a pooled lib/pq connection and offers transaction
// and schema helpers.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"time"

	_ "github.com/lib/pq"

	"github.com/Adithya-Monish-Kumar-K/launchrank/pkg/config"
)

const connectTimeout = 5 * time.Second

// Client wraps a *sql.DB. Stores query DB directly and use InTx for writes
// that must land together.
type Client struct {
	DB *sql.DB
}

// New opens the pool and pings it once.
func New(cfg config.PostgresConfig) (*Client, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("opening postgres connection: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, errors.Join(fmt.Errorf("pinging postgres at %s:%d: %w", cfg.Host, cfg.Port, err), db.Close())
	}
	slog.Info("postgres connected", "host", cfg.Host, "database", cfg.Database, "max_open_conns", cfg.MaxOpenConns)
	return &Client{DB: db}, nil
}

func (c *Client) Close() error { return c.DB.Close() }

func (c *Client) Ping(ctx context.Context) error { return c.DB.PingContext(ctx) }

// Migrate runs statements in order inside one transaction that holds an
// advisory lock derived from the statements, so daemons starting together do
// not race on the same DDL. Statements must be idempotent.
func (c *Client) Migrate(ctx context.Context, statements ...string) error {
	h := fnv.New64a()
	for _, stmt := range statements {
		h.Write([]byte(stmt))
	}
	lockID := int64(h.Sum64() >> 1)

	return c.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, lockID); err != nil {
			return fmt.Errorf("acquiring migration lock: %w", err)
		}
		for i, stmt := range statements {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("running migration statement %d: %w", i, err)
			}
		}
		return nil
	})
}

// InTx runs fn in a transaction, committing when it returns nil.
func (c *Client) InTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := c.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rolling back: %w", rbErr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}
