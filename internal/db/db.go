package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/susu3304/zapbot/internal/identity"
)

type DB struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool}, nil
}

func (db *DB) Close() {
	db.pool.Close()
}

// RunMigrations creates the identity mapping table.
func (db *DB) RunMigrations(ctx context.Context) error {
	_, err := db.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS identities (
			chat_user_id TEXT PRIMARY KEY,
			processor_id TEXT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
	`)
	return err
}

// Open connects to the identity store selected by databaseURL and runs its
// migrations. "sqlite://<path>" and "sqlite::memory:" select SQLite, anything
// else is handed to pgx. The returned func releases the connection.
func Open(ctx context.Context, databaseURL string) (identity.Store, func(), error) {
	if dsn, ok := sqliteDSN(databaseURL); ok {
		lite, err := OpenSQLite(ctx, dsn)
		if err != nil {
			return nil, nil, err
		}
		return lite, func() { _ = lite.Close() }, nil
	}

	database, err := New(ctx, databaseURL)
	if err != nil {
		return nil, nil, err
	}
	if err := database.RunMigrations(ctx); err != nil {
		database.Close()
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return database.Identities(), database.Close, nil
}

func sqliteDSN(databaseURL string) (string, bool) {
	switch {
	case databaseURL == "sqlite::memory:":
		return ":memory:", true
	case strings.HasPrefix(databaseURL, "sqlite://"):
		return strings.TrimPrefix(databaseURL, "sqlite://"), true
	default:
		return "", false
	}
}
