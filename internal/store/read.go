package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// CountRows returns the number of rows in an entity table. The table
// name comes from registered archive descriptors, not user input.
func (s *Store) CountRows(ctx context.Context, table string) (int, error) {
	var n int
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", table)
	if err := s.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

// GetSetting returns the canonical JSON value stored under key.
func (s *Store) GetSetting(ctx context.Context, key string) (json.RawMessage, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("setting %q not found", key)
	}
	if err != nil {
		return nil, fmt.Errorf("get setting %q: %w", key, err)
	}
	return json.RawMessage(value), nil
}

// UIDByNaturalKey returns the uid of the row whose natural key column
// holds key. Used by tests to check identity preservation across
// export/import cycles.
func (s *Store) UIDByNaturalKey(ctx context.Context, table, column, key string) (string, error) {
	var uid string
	query := fmt.Sprintf("SELECT uid FROM %s WHERE %s = ?", table, column)
	err := s.db.QueryRowContext(ctx, query, key).Scan(&uid)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("%s %q not found", table, key)
	}
	if err != nil {
		return "", fmt.Errorf("lookup %s %q: %w", table, key, err)
	}
	return uid, nil
}
