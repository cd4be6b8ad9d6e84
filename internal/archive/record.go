package archive

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/tartinelabs/banneton/internal/domain"
)

// marshalRecord serializes one record as a single compact JSON line.
//
// Uses json.Encoder with HTML escaping disabled so payload bytes and
// strings pass through untouched; json.RawMessage fields are copied
// verbatim. Standard json.Marshal would escape <, > and & inside
// stored payloads and break byte-level round trips.
func marshalRecord(v any) (json.RawMessage, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("marshal record: %w", err)
	}
	out := buf.Bytes()
	if n := len(out); n > 0 && out[n-1] == '\n' {
		out = out[:n-1]
	}
	return out, nil
}

func marshalRecords[T any](items []T) ([]json.RawMessage, error) {
	out := make([]json.RawMessage, 0, len(items))
	for _, item := range items {
		raw, err := marshalRecord(item)
		if err != nil {
			return nil, err
		}
		out = append(out, raw)
	}
	return out, nil
}

// decodeRecord parses one archive record into its typed struct. A
// record that does not decode is a structural failure, not a skip.
func decodeRecord(entityType string, raw json.RawMessage, v any) error {
	if err := json.Unmarshal(raw, v); err != nil {
		return &ArchiveError{
			Code:       ErrCodeRecord,
			Phase:      PhaseRestore,
			EntityType: entityType,
			Message:    "malformed record",
			Err:        err,
		}
	}
	return nil
}

// checkIdentity validates the fields every record carries: a non-empty
// id and both timestamps in the fixed-width layout.
func checkIdentity(entityType, id, createdAt, updatedAt string) error {
	if id == "" {
		return recordErr(entityType, "", "record id is required", nil)
	}
	if !domain.ValidTime(createdAt) {
		return recordErr(entityType, id, fmt.Sprintf("invalid created_at %q", createdAt), nil)
	}
	if !domain.ValidTime(updatedAt) {
		return recordErr(entityType, id, fmt.Sprintf("invalid updated_at %q", updatedAt), nil)
	}
	return nil
}

// checkTime validates a required timestamp field beyond the identity
// pair, e.g. a historical ordering column.
func checkTime(entityType, record, field, value string) error {
	if !domain.ValidTime(value) {
		return recordErr(entityType, record, fmt.Sprintf("invalid %s %q", field, value), nil)
	}
	return nil
}

// checkOptTime validates a nullable timestamp field.
func checkOptTime(entityType, record, field string, p *string) error {
	if p == nil {
		return nil
	}
	return checkTime(entityType, record, field, *p)
}

// recordErr builds the structural error for a bad record.
func recordErr(entityType, record, msg string, err error) *ArchiveError {
	if record != "" {
		msg = fmt.Sprintf("record %q: %s", record, msg)
	}
	return &ArchiveError{
		Code:       ErrCodeRecord,
		Phase:      PhaseRestore,
		EntityType: entityType,
		Message:    msg,
		Err:        err,
	}
}

// insertErr wraps a failed insert. Constraint violations land here
// too: a duplicate id or natural key inside one archive is corrupt
// input, and corrupt input rolls the import back.
func insertErr(entityType, record string, err error) *ArchiveError {
	return recordErr(entityType, record, "insert failed", err)
}

// collectRecords runs an export query and scans every row through scan.
func collectRecords[T any](ctx context.Context, tx *sql.Tx, query string, scan func(*sql.Rows) (T, error)) ([]T, error) {
	rows, err := tx.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	var items []T
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate: %w", err)
	}
	return items, nil
}

// clearTable deletes all rows from an entity table inside the import
// transaction.
func clearTable(ctx context.Context, tx *sql.Tx, table string) (int64, error) {
	res, err := tx.ExecContext(ctx, "DELETE FROM "+table)
	if err != nil {
		return 0, fmt.Errorf("clear %s: %w", table, err)
	}
	return res.RowsAffected()
}

// lookupTx resolves a natural key to its rowid inside the import
// transaction. Returns found=false when no row matches.
func lookupTx(ctx context.Context, tx *sql.Tx, table, column, key string) (int64, bool, error) {
	var id int64
	query := fmt.Sprintf("SELECT id FROM %s WHERE %s = ?", table, column)
	err := tx.QueryRowContext(ctx, query, key).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("resolve %s %q: %w", table, key, err)
	}
	return id, true, nil
}

// resolveRequired resolves a required reference field. An unresolvable
// key records a skip warning and returns ok=false; the caller drops
// the record and moves on. A blank key is a malformed record and
// therefore structural.
func resolveRequired(ctx context.Context, tx *sql.Tx, entityType, record, field, table, column, key string, rep *importReport) (int64, bool, error) {
	if key == "" {
		return 0, false, recordErr(entityType, record, field+" reference is required", nil)
	}
	id, found, err := lookupTx(ctx, tx, table, column, key)
	if err != nil {
		return 0, false, err
	}
	if !found {
		rep.skip(entityType, record, field, key)
		return 0, false, nil
	}
	return id, true, nil
}

// resolveOptional resolves a nullable reference field. nil resolves to
// NULL; a present but unresolvable key records a skip warning.
func resolveOptional(ctx context.Context, tx *sql.Tx, entityType, record, field, table, column string, key *string, rep *importReport) (sql.NullInt64, bool, error) {
	if key == nil {
		return sql.NullInt64{}, true, nil
	}
	if *key == "" {
		return sql.NullInt64{}, false, recordErr(entityType, record, field+" reference is empty", nil)
	}
	id, found, err := lookupTx(ctx, tx, table, column, *key)
	if err != nil {
		return sql.NullInt64{}, false, err
	}
	if !found {
		rep.skip(entityType, record, field, *key)
		return sql.NullInt64{}, false, nil
	}
	return sql.NullInt64{Int64: id, Valid: true}, true, nil
}

// rawPayload converts a record's payload field for insertion: JSON
// null (or absent) stores as SQL NULL, anything else as its exact
// bytes.
func rawPayload(r json.RawMessage) any {
	if len(r) == 0 || string(r) == "null" {
		return nil
	}
	return string(r)
}

// optString converts a nullable scalar field for insertion.
func optString(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

// optInt64 converts a nullable integer field for insertion.
func optInt64(p *int64) any {
	if p == nil {
		return nil
	}
	return *p
}

// boolValue converts a record bool for insertion into an INTEGER
// column.
func boolValue(b bool) int {
	if b {
		return 1
	}
	return 0
}

// nullableString converts a scanned NULL-able column to a record field.
func nullableString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

// nullableRaw converts a scanned NULL-able payload column to a record
// field. NULL marshals as JSON null.
func nullableRaw(ns sql.NullString) json.RawMessage {
	if !ns.Valid {
		return nil
	}
	return json.RawMessage(ns.String)
}

// nullableInt64 converts a scanned NULL-able integer column.
func nullableInt64(ni sql.NullInt64) *int64 {
	if !ni.Valid {
		return nil
	}
	n := ni.Int64
	return &n
}
