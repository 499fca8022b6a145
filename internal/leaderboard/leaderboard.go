// Package leaderboard persists retired dogs' scores to Postgres and serves
// the top-N query, grounded on the original postgres.cpp's retired_players
// table and prepared statements.
package leaderboard

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	createTable = `CREATE TABLE IF NOT EXISTS retired_players (
		id UUID PRIMARY KEY,
		name VARCHAR(100) NOT NULL,
		score INTEGER NOT NULL DEFAULT 0,
		play_time_ms INTEGER NOT NULL DEFAULT 0
	)`
	createIndex = `CREATE INDEX IF NOT EXISTS retired_players_index
		ON retired_players (score DESC, play_time_ms, name)`
	insertPlayer = `INSERT INTO retired_players (id, name, score, play_time_ms) VALUES ($1, $2, $3, $4)`
	selectTop    = `SELECT name, score, play_time_ms FROM retired_players
		ORDER BY score DESC, play_time_ms ASC, name ASC
		LIMIT $1 OFFSET $2`
)

// Record is one retired dog's leaderboard row.
type Record struct {
	Name          string
	Score         uint64
	PlayingTimeMS uint64
}

// Sink writes retirement records to Postgres and reads them back sorted. It
// is not safe for concurrent writes from multiple goroutines; callers run it
// on the simulation strand (§5).
type Sink struct {
	pool *pgxpool.Pool
}

// Open connects to dsn and ensures the schema exists.
func Open(ctx context.Context, dsn string) (*Sink, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("leaderboard: connect: %w", err)
	}
	s := &Sink{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *Sink) migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, createTable); err != nil {
		return fmt.Errorf("leaderboard: create table: %w", err)
	}
	if _, err := s.pool.Exec(ctx, createIndex); err != nil {
		return fmt.Errorf("leaderboard: create index: %w", err)
	}
	return nil
}

// Save inserts every record under a fresh UUID primary key, one INSERT per
// record within a single transaction.
func (s *Sink) Save(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("leaderboard: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, r := range records {
		id := uuid.New()
		if _, err := tx.Exec(ctx, insertPlayer, id, r.Name, r.Score, r.PlayingTimeMS); err != nil {
			return fmt.Errorf("leaderboard: insert: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("leaderboard: commit: %w", err)
	}
	return nil
}

// Top returns up to limit records starting at offset, ordered by score
// descending, then playing time ascending, then name ascending.
func (s *Sink) Top(ctx context.Context, offset, limit int) ([]Record, error) {
	rows, err := s.pool.Query(ctx, selectTop, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("leaderboard: query: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.Name, &r.Score, &r.PlayingTimeMS); err != nil {
			return nil, fmt.Errorf("leaderboard: scan: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("leaderboard: rows: %w", err)
	}
	return out, nil
}

// Close releases the connection pool.
func (s *Sink) Close() { s.pool.Close() }
