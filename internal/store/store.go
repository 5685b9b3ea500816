// Package store is the PostgreSQL-backed Session Store: the single
// source of truth for users, sessions, and moves. Session mutation goes
// through LockSession, which takes a row-level lock via
// "SELECT ... FOR UPDATE" so the critical section load-validate-mutate-
// commit cannot race across two requests touching the same session.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync/atomic"
	"time"

	_ "github.com/lib/pq"
)

// Store wraps a PostgreSQL connection pool. Grounded on the teacher's
// storage.Store, trimmed to the parts that survive the move from an
// async SQLite writer to synchronous transactional Postgres access: a
// pooled *sql.DB and a health flag flipped by failed operations.
type Store struct {
	db           *sql.DB
	healthStatus atomic.Bool
}

// NewStore opens the connection pool. It does not run the schema; call
// InitDB for that.
func NewStore(databaseURL string) (*Store, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}

	s := &Store{db: db}
	s.healthStatus.Store(true)
	return s, nil
}

// InitDB creates the schema if it does not already exist.
func (s *Store) InitDB(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("store: init schema: %w", err)
	}
	return nil
}

// DropAll removes the schema, for the CLI's "db delete" subcommand.
func (s *Store) DropAll(ctx context.Context) error {
	const q = `DROP TABLE IF EXISTS moves, sessions, users CASCADE`
	if _, err := s.db.ExecContext(ctx, q); err != nil {
		return fmt.Errorf("store: drop schema: %w", err)
	}
	return nil
}

// IsHealthy reports whether no database operation has failed since the
// store was opened. A later success does not clear a recorded failure.
func (s *Store) IsHealthy() bool {
	return s.healthStatus.Load()
}

func (s *Store) markDegraded(err error) error {
	if err != nil {
		s.healthStatus.Store(false)
	}
	return err
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}
