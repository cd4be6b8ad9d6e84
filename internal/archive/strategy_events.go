package archive

import (
	"context"
	"database/sql"
	"encoding/json"
)

// Event strategies cover market events, their menus and the waste log.
// These sit at the tail of the import order: they reference finished
// goods and production runs but nothing references them, so they clear
// first and import last.

type eventRecord struct {
	ID        string          `json:"id"`
	Slug      string          `json:"slug"`
	Name      string          `json:"name"`
	Venue     string          `json:"venue"`
	Status    string          `json:"status"`
	StartsAt  string          `json:"starts_at"`
	EndsAt    string          `json:"ends_at"`
	Details   json.RawMessage `json:"details"`
	CreatedAt string          `json:"created_at"`
	UpdatedAt string          `json:"updated_at"`
}

type eventsStrategy struct{}

func (eventsStrategy) Descriptor() Descriptor {
	return Descriptor{EntityType: "events", ImportOrder: 160}
}

func (eventsStrategy) Export(ctx context.Context, tx *sql.Tx) ([]json.RawMessage, error) {
	items, err := collectRecords(ctx, tx, `
		SELECT uid, slug, name, venue, status, starts_at, ends_at, details, created_at, updated_at
		FROM events
		ORDER BY starts_at, slug`,
		func(rows *sql.Rows) (eventRecord, error) {
			var r eventRecord
			var details sql.NullString
			err := rows.Scan(&r.ID, &r.Slug, &r.Name, &r.Venue, &r.Status, &r.StartsAt, &r.EndsAt,
				&details, &r.CreatedAt, &r.UpdatedAt)
			r.Details = nullableRaw(details)
			return r, err
		})
	if err != nil {
		return nil, err
	}
	return marshalRecords(items)
}

func (eventsStrategy) Import(ctx context.Context, tx *sql.Tx, records []json.RawMessage, rep *importReport) error {
	const t = "events"
	for _, raw := range records {
		var r eventRecord
		if err := decodeRecord(t, raw, &r); err != nil {
			return err
		}
		if err := checkIdentity(t, r.ID, r.CreatedAt, r.UpdatedAt); err != nil {
			return err
		}
		if r.Slug == "" {
			return recordErr(t, r.ID, "slug is required", nil)
		}
		if err := checkTime(t, r.Slug, "starts_at", r.StartsAt); err != nil {
			return err
		}
		if err := checkTime(t, r.Slug, "ends_at", r.EndsAt); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO events (uid, slug, name, venue, status, starts_at, ends_at, details,
				created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			r.ID, r.Slug, r.Name, r.Venue, r.Status, r.StartsAt, r.EndsAt, rawPayload(r.Details),
			r.CreatedAt, r.UpdatedAt)
		if err != nil {
			return insertErr(t, r.Slug, err)
		}
		rep.markImported(t)
	}
	return nil
}

func (eventsStrategy) Clear(ctx context.Context, tx *sql.Tx) (int64, error) {
	return clearTable(ctx, tx, "events")
}

type eventMenuItemRecord struct {
	ID                 string `json:"id"`
	Event              string `json:"event"`
	Good               string `json:"good"`
	PlannedQty         int64  `json:"planned_qty"`
	PriceCentsOverride *int64 `json:"price_cents_override"`
	Position           int64  `json:"position"`
	CreatedAt          string `json:"created_at"`
	UpdatedAt          string `json:"updated_at"`
}

type eventMenuItemsStrategy struct{}

func (eventMenuItemsStrategy) Descriptor() Descriptor {
	return Descriptor{
		EntityType:   "event_menu_items",
		ImportOrder:  170,
		Dependencies: []string{"events", "finished_goods"},
	}
}

func (eventMenuItemsStrategy) Export(ctx context.Context, tx *sql.Tx) ([]json.RawMessage, error) {
	items, err := collectRecords(ctx, tx, `
		SELECT m.uid, e.slug, g.slug, m.planned_qty, m.price_cents_override, m.position,
		       m.created_at, m.updated_at
		FROM event_menu_items m
		JOIN events e ON e.id = m.event_id
		JOIN finished_goods g ON g.id = m.good_id
		ORDER BY e.slug, m.position, m.uid`,
		func(rows *sql.Rows) (eventMenuItemRecord, error) {
			var r eventMenuItemRecord
			var override sql.NullInt64
			err := rows.Scan(&r.ID, &r.Event, &r.Good, &r.PlannedQty, &override, &r.Position,
				&r.CreatedAt, &r.UpdatedAt)
			r.PriceCentsOverride = nullableInt64(override)
			return r, err
		})
	if err != nil {
		return nil, err
	}
	return marshalRecords(items)
}

func (eventMenuItemsStrategy) Import(ctx context.Context, tx *sql.Tx, records []json.RawMessage, rep *importReport) error {
	const t = "event_menu_items"
	for _, raw := range records {
		var r eventMenuItemRecord
		if err := decodeRecord(t, raw, &r); err != nil {
			return err
		}
		if err := checkIdentity(t, r.ID, r.CreatedAt, r.UpdatedAt); err != nil {
			return err
		}

		eventID, ok, err := resolveRequired(ctx, tx, t, r.ID, "event", "events", "slug", r.Event, rep)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		goodID, ok, err := resolveRequired(ctx, tx, t, r.ID, "good", "finished_goods", "slug", r.Good, rep)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO event_menu_items (uid, event_id, good_id, planned_qty, price_cents_override,
				position, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			r.ID, eventID, goodID, r.PlannedQty, optInt64(r.PriceCentsOverride), r.Position,
			r.CreatedAt, r.UpdatedAt)
		if err != nil {
			return insertErr(t, r.ID, err)
		}
		rep.markImported(t)
	}
	return nil
}

func (eventMenuItemsStrategy) Clear(ctx context.Context, tx *sql.Tx) (int64, error) {
	return clearTable(ctx, tx, "event_menu_items")
}

type wasteLogRecord struct {
	ID        string  `json:"id"`
	Good      *string `json:"good"`
	Run       *string `json:"run"`
	Quantity  int64   `json:"quantity"`
	Reason    string  `json:"reason"`
	LoggedAt  string  `json:"logged_at"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt string  `json:"updated_at"`
}

type wasteLogsStrategy struct{}

func (wasteLogsStrategy) Descriptor() Descriptor {
	return Descriptor{
		EntityType:   "waste_logs",
		ImportOrder:  180,
		Dependencies: []string{"finished_goods", "production_runs"},
	}
}

func (wasteLogsStrategy) Export(ctx context.Context, tx *sql.Tx) ([]json.RawMessage, error) {
	items, err := collectRecords(ctx, tx, `
		SELECT w.uid, g.slug, p.run_code, w.quantity, w.reason, w.logged_at, w.created_at, w.updated_at
		FROM waste_logs w
		LEFT JOIN finished_goods g ON g.id = w.good_id
		LEFT JOIN production_runs p ON p.id = w.run_id
		ORDER BY w.logged_at, w.uid`,
		func(rows *sql.Rows) (wasteLogRecord, error) {
			var r wasteLogRecord
			var good, run sql.NullString
			err := rows.Scan(&r.ID, &good, &run, &r.Quantity, &r.Reason, &r.LoggedAt,
				&r.CreatedAt, &r.UpdatedAt)
			r.Good = nullableString(good)
			r.Run = nullableString(run)
			return r, err
		})
	if err != nil {
		return nil, err
	}
	return marshalRecords(items)
}

func (wasteLogsStrategy) Import(ctx context.Context, tx *sql.Tx, records []json.RawMessage, rep *importReport) error {
	const t = "waste_logs"
	for _, raw := range records {
		var r wasteLogRecord
		if err := decodeRecord(t, raw, &r); err != nil {
			return err
		}
		if err := checkIdentity(t, r.ID, r.CreatedAt, r.UpdatedAt); err != nil {
			return err
		}
		if err := checkTime(t, r.ID, "logged_at", r.LoggedAt); err != nil {
			return err
		}

		goodID, ok, err := resolveOptional(ctx, tx, t, r.ID, "good", "finished_goods", "slug", r.Good, rep)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		runID, ok, err := resolveOptional(ctx, tx, t, r.ID, "run", "production_runs", "run_code", r.Run, rep)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO waste_logs (uid, good_id, run_id, quantity, reason, logged_at, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			r.ID, goodID, runID, r.Quantity, r.Reason, r.LoggedAt, r.CreatedAt, r.UpdatedAt)
		if err != nil {
			return insertErr(t, r.ID, err)
		}
		rep.markImported(t)
	}
	return nil
}

func (wasteLogsStrategy) Clear(ctx context.Context, tx *sql.Tx) (int64, error) {
	return clearTable(ctx, tx, "waste_logs")
}
