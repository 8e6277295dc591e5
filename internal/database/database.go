// Package database opens the shared Postgres connection pool backing
// the transaction and user stores.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// New opens a pgx-backed pool and verifies connectivity before handing
// it out. maxConns bounds open connections; idle connections are kept
// to a fifth of that, at least one.
func New(ctx context.Context, connStr string, maxConns int) (*sql.DB, error) {
	db, err := sql.Open("pgx", connStr)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(max(maxConns/5, 1))
	db.SetConnMaxLifetime(5 * time.Minute)

	return db, nil
}
