package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/susu3304/zapbot/internal/identity"
)

// Identities is the PostgreSQL-backed identity.Store.
type Identities struct {
	db *DB
}

func (db *DB) Identities() *Identities {
	return &Identities{db: db}
}

func (s *Identities) Put(ctx context.Context, chatUserID, processorID string) error {
	_, err := s.db.pool.Exec(ctx,
		`INSERT INTO identities (chat_user_id, processor_id)
		 VALUES ($1, $2)
		 ON CONFLICT (chat_user_id) DO UPDATE
		 SET processor_id = EXCLUDED.processor_id, updated_at = CURRENT_TIMESTAMP`,
		chatUserID, processorID,
	)
	return identity.WrapStorage("put", err)
}

func (s *Identities) Get(ctx context.Context, chatUserID string) (string, bool, error) {
	var processorID string
	err := s.db.pool.QueryRow(ctx,
		"SELECT processor_id FROM identities WHERE chat_user_id = $1",
		chatUserID,
	).Scan(&processorID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, identity.WrapStorage("get", err)
	}
	return processorID, true, nil
}

func (s *Identities) Delete(ctx context.Context, chatUserID string) error {
	_, err := s.db.pool.Exec(ctx, "DELETE FROM identities WHERE chat_user_id = $1", chatUserID)
	return identity.WrapStorage("delete", err)
}
