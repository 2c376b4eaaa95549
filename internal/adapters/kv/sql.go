package kv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/notesapp/core/internal/infrastructure/database"
)

// SQLStore keeps values in the kv_store table of a sqlite or postgres database.
type SQLStore struct {
	db     *database.DB
	getSQL string
	setSQL string
}

// NewSQLStore wraps an open connection. The kv_store table must already be migrated.
func NewSQLStore(db *database.DB) *SQLStore {
	getSQL := `SELECT value FROM kv_store WHERE key = ?`
	setSQL := `
		INSERT INTO kv_store (key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`

	// sqlite accepts ? placeholders; postgres needs $n.
	return &SQLStore{
		db:     db,
		getSQL: db.DB.Rebind(getSQL),
		setSQL: db.DB.Rebind(setSQL),
	}
}

func (s *SQLStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value string
	err := s.db.DB.GetContext(ctx, &value, s.getSQL, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get %s: %w", key, err)
	}
	return []byte(value), true, nil
}

func (s *SQLStore) Set(ctx context.Context, key string, value []byte) error {
	if _, err := s.db.DB.ExecContext(ctx, s.setSQL, key, string(value)); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Dialect reports which database backs the store.
func (s *SQLStore) Dialect() string {
	return s.db.Dialect()
}

// ConnectionInfo returns pool statistics for health reporting.
func (s *SQLStore) ConnectionInfo() map[string]interface{} {
	info := s.db.GetConnectionInfo()
	info["dialect"] = s.Dialect()
	return info
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}
