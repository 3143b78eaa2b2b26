package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/susu3304/zapbot/internal/identity"
	_ "modernc.org/sqlite"
)

// SQLite is an identity.Store kept in a single SQLite file, for deployments
// without a PostgreSQL server.
type SQLite struct {
	conn *sql.DB
}

// OpenSQLite opens the database at dsn and runs migrations.
func OpenSQLite(ctx context.Context, dsn string) (*SQLite, error) {
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	// One writer at a time; also keeps ":memory:" on a single connection.
	conn.SetMaxOpenConns(1)

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping sqlite: %w", err)
	}

	s := &SQLite{conn: conn}
	if err := s.RunMigrations(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return s, nil
}

func (s *SQLite) Close() error {
	return s.conn.Close()
}

func (s *SQLite) RunMigrations(ctx context.Context) error {
	_, err := s.conn.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS identities (
			chat_user_id TEXT PRIMARY KEY,
			processor_id TEXT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	return err
}

func (s *SQLite) Put(ctx context.Context, chatUserID, processorID string) error {
	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO identities (chat_user_id, processor_id)
		 VALUES (?, ?)
		 ON CONFLICT (chat_user_id) DO UPDATE
		 SET processor_id = excluded.processor_id, updated_at = CURRENT_TIMESTAMP`,
		chatUserID, processorID,
	)
	return identity.WrapStorage("put", err)
}

func (s *SQLite) Get(ctx context.Context, chatUserID string) (string, bool, error) {
	var processorID string
	err := s.conn.QueryRowContext(ctx,
		"SELECT processor_id FROM identities WHERE chat_user_id = ?",
		chatUserID,
	).Scan(&processorID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, identity.WrapStorage("get", err)
	}
	return processorID, true, nil
}

func (s *SQLite) Delete(ctx context.Context, chatUserID string) error {
	_, err := s.conn.ExecContext(ctx, "DELETE FROM identities WHERE chat_user_id = ?", chatUserID)
	return identity.WrapStorage("delete", err)
}
