package archive

import (
	"context"
	"database/sql"
	"encoding/json"
)

// Catalog strategies cover the reference types nothing here depends
// on: settings, units, categories, suppliers and storage locations.
// They import first and clear last.

type settingRecord struct {
	ID        string          `json:"id"`
	Key       string          `json:"key"`
	Value     json.RawMessage `json:"value"`
	CreatedAt string          `json:"created_at"`
	UpdatedAt string          `json:"updated_at"`
}

type settingsStrategy struct{}

func (settingsStrategy) Descriptor() Descriptor {
	return Descriptor{EntityType: "settings", ImportOrder: 10}
}

func (settingsStrategy) Export(ctx context.Context, tx *sql.Tx) ([]json.RawMessage, error) {
	items, err := collectRecords(ctx, tx,
		`SELECT uid, key, value, created_at, updated_at FROM settings ORDER BY key`,
		func(rows *sql.Rows) (settingRecord, error) {
			var r settingRecord
			var value string
			err := rows.Scan(&r.ID, &r.Key, &value, &r.CreatedAt, &r.UpdatedAt)
			r.Value = json.RawMessage(value)
			return r, err
		})
	if err != nil {
		return nil, err
	}
	return marshalRecords(items)
}

func (settingsStrategy) Import(ctx context.Context, tx *sql.Tx, records []json.RawMessage, rep *importReport) error {
	const t = "settings"
	for _, raw := range records {
		var r settingRecord
		if err := decodeRecord(t, raw, &r); err != nil {
			return err
		}
		if err := checkIdentity(t, r.ID, r.CreatedAt, r.UpdatedAt); err != nil {
			return err
		}
		if r.Key == "" {
			return recordErr(t, r.ID, "key is required", nil)
		}
		value := rawPayload(r.Value)
		if value == nil {
			return recordErr(t, r.Key, "value is required", nil)
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO settings (uid, key, value, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
			r.ID, r.Key, value, r.CreatedAt, r.UpdatedAt)
		if err != nil {
			return insertErr(t, r.Key, err)
		}
		rep.markImported(t)
	}
	return nil
}

func (settingsStrategy) Clear(ctx context.Context, tx *sql.Tx) (int64, error) {
	return clearTable(ctx, tx, "settings")
}

type unitRecord struct {
	ID        string `json:"id"`
	Slug      string `json:"slug"`
	Name      string `json:"name"`
	Kind      string `json:"kind"`
	ToBase    string `json:"to_base"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type unitsStrategy struct{}

func (unitsStrategy) Descriptor() Descriptor {
	return Descriptor{EntityType: "units", ImportOrder: 20}
}

func (unitsStrategy) Export(ctx context.Context, tx *sql.Tx) ([]json.RawMessage, error) {
	items, err := collectRecords(ctx, tx,
		`SELECT uid, slug, name, kind, to_base, created_at, updated_at FROM units`,
		func(rows *sql.Rows) (unitRecord, error) {
			var r unitRecord
			err := rows.Scan(&r.ID, &r.Slug, &r.Name, &r.Kind, &r.ToBase, &r.CreatedAt, &r.UpdatedAt)
			return r, err
		})
	if err != nil {
		return nil, err
	}
	sortNatural(items, func(r unitRecord) string { return r.Name }, func(r unitRecord) string { return r.Slug })
	return marshalRecords(items)
}

func (unitsStrategy) Import(ctx context.Context, tx *sql.Tx, records []json.RawMessage, rep *importReport) error {
	const t = "units"
	for _, raw := range records {
		var r unitRecord
		if err := decodeRecord(t, raw, &r); err != nil {
			return err
		}
		if err := checkIdentity(t, r.ID, r.CreatedAt, r.UpdatedAt); err != nil {
			return err
		}
		if r.Slug == "" {
			return recordErr(t, r.ID, "slug is required", nil)
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO units (uid, slug, name, kind, to_base, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			r.ID, r.Slug, r.Name, r.Kind, r.ToBase, r.CreatedAt, r.UpdatedAt)
		if err != nil {
			return insertErr(t, r.Slug, err)
		}
		rep.markImported(t)
	}
	return nil
}

func (unitsStrategy) Clear(ctx context.Context, tx *sql.Tx) (int64, error) {
	return clearTable(ctx, tx, "units")
}

type ingredientCategoryRecord struct {
	ID        string `json:"id"`
	Slug      string `json:"slug"`
	Name      string `json:"name"`
	Position  int64  `json:"position"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type ingredientCategoriesStrategy struct{}

func (ingredientCategoriesStrategy) Descriptor() Descriptor {
	return Descriptor{EntityType: "ingredient_categories", ImportOrder: 30}
}

func (ingredientCategoriesStrategy) Export(ctx context.Context, tx *sql.Tx) ([]json.RawMessage, error) {
	items, err := collectRecords(ctx, tx,
		`SELECT uid, slug, name, position, created_at, updated_at FROM ingredient_categories`,
		func(rows *sql.Rows) (ingredientCategoryRecord, error) {
			var r ingredientCategoryRecord
			err := rows.Scan(&r.ID, &r.Slug, &r.Name, &r.Position, &r.CreatedAt, &r.UpdatedAt)
			return r, err
		})
	if err != nil {
		return nil, err
	}
	sortNatural(items,
		func(r ingredientCategoryRecord) string { return r.Name },
		func(r ingredientCategoryRecord) string { return r.Slug })
	return marshalRecords(items)
}

func (ingredientCategoriesStrategy) Import(ctx context.Context, tx *sql.Tx, records []json.RawMessage, rep *importReport) error {
	const t = "ingredient_categories"
	for _, raw := range records {
		var r ingredientCategoryRecord
		if err := decodeRecord(t, raw, &r); err != nil {
			return err
		}
		if err := checkIdentity(t, r.ID, r.CreatedAt, r.UpdatedAt); err != nil {
			return err
		}
		if r.Slug == "" {
			return recordErr(t, r.ID, "slug is required", nil)
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO ingredient_categories (uid, slug, name, position, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
			r.ID, r.Slug, r.Name, r.Position, r.CreatedAt, r.UpdatedAt)
		if err != nil {
			return insertErr(t, r.Slug, err)
		}
		rep.markImported(t)
	}
	return nil
}

func (ingredientCategoriesStrategy) Clear(ctx context.Context, tx *sql.Tx) (int64, error) {
	return clearTable(ctx, tx, "ingredient_categories")
}

type supplierRecord struct {
	ID        string          `json:"id"`
	Slug      string          `json:"slug"`
	Name      string          `json:"name"`
	Contact   json.RawMessage `json:"contact"`
	Active    bool            `json:"active"`
	CreatedAt string          `json:"created_at"`
	UpdatedAt string          `json:"updated_at"`
}

type suppliersStrategy struct{}

func (suppliersStrategy) Descriptor() Descriptor {
	return Descriptor{EntityType: "suppliers", ImportOrder: 40}
}

func (suppliersStrategy) Export(ctx context.Context, tx *sql.Tx) ([]json.RawMessage, error) {
	items, err := collectRecords(ctx, tx,
		`SELECT uid, slug, name, contact, active, created_at, updated_at FROM suppliers`,
		func(rows *sql.Rows) (supplierRecord, error) {
			var r supplierRecord
			var contact sql.NullString
			var active int64
			err := rows.Scan(&r.ID, &r.Slug, &r.Name, &contact, &active, &r.CreatedAt, &r.UpdatedAt)
			r.Contact = nullableRaw(contact)
			r.Active = active != 0
			return r, err
		})
	if err != nil {
		return nil, err
	}
	sortNatural(items, func(r supplierRecord) string { return r.Name }, func(r supplierRecord) string { return r.Slug })
	return marshalRecords(items)
}

func (suppliersStrategy) Import(ctx context.Context, tx *sql.Tx, records []json.RawMessage, rep *importReport) error {
	const t = "suppliers"
	for _, raw := range records {
		var r supplierRecord
		if err := decodeRecord(t, raw, &r); err != nil {
			return err
		}
		if err := checkIdentity(t, r.ID, r.CreatedAt, r.UpdatedAt); err != nil {
			return err
		}
		if r.Slug == "" {
			return recordErr(t, r.ID, "slug is required", nil)
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO suppliers (uid, slug, name, contact, active, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			r.ID, r.Slug, r.Name, rawPayload(r.Contact), boolValue(r.Active), r.CreatedAt, r.UpdatedAt)
		if err != nil {
			return insertErr(t, r.Slug, err)
		}
		rep.markImported(t)
	}
	return nil
}

func (suppliersStrategy) Clear(ctx context.Context, tx *sql.Tx) (int64, error) {
	return clearTable(ctx, tx, "suppliers")
}

type storageLocationRecord struct {
	ID        string `json:"id"`
	Slug      string `json:"slug"`
	Name      string `json:"name"`
	TempBand  string `json:"temp_band"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type storageLocationsStrategy struct{}

func (storageLocationsStrategy) Descriptor() Descriptor {
	return Descriptor{EntityType: "storage_locations", ImportOrder: 50}
}

func (storageLocationsStrategy) Export(ctx context.Context, tx *sql.Tx) ([]json.RawMessage, error) {
	items, err := collectRecords(ctx, tx,
		`SELECT uid, slug, name, temp_band, created_at, updated_at FROM storage_locations`,
		func(rows *sql.Rows) (storageLocationRecord, error) {
			var r storageLocationRecord
			err := rows.Scan(&r.ID, &r.Slug, &r.Name, &r.TempBand, &r.CreatedAt, &r.UpdatedAt)
			return r, err
		})
	if err != nil {
		return nil, err
	}
	sortNatural(items,
		func(r storageLocationRecord) string { return r.Name },
		func(r storageLocationRecord) string { return r.Slug })
	return marshalRecords(items)
}

func (storageLocationsStrategy) Import(ctx context.Context, tx *sql.Tx, records []json.RawMessage, rep *importReport) error {
	const t = "storage_locations"
	for _, raw := range records {
		var r storageLocationRecord
		if err := decodeRecord(t, raw, &r); err != nil {
			return err
		}
		if err := checkIdentity(t, r.ID, r.CreatedAt, r.UpdatedAt); err != nil {
			return err
		}
		if r.Slug == "" {
			return recordErr(t, r.ID, "slug is required", nil)
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO storage_locations (uid, slug, name, temp_band, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
			r.ID, r.Slug, r.Name, r.TempBand, r.CreatedAt, r.UpdatedAt)
		if err != nil {
			return insertErr(t, r.Slug, err)
		}
		rep.markImported(t)
	}
	return nil
}

func (storageLocationsStrategy) Clear(ctx context.Context, tx *sql.Tx) (int64, error) {
	return clearTable(ctx, tx, "storage_locations")
}

type recipeCategoryRecord struct {
	ID        string `json:"id"`
	Slug      string `json:"slug"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type recipeCategoriesStrategy struct{}

func (recipeCategoriesStrategy) Descriptor() Descriptor {
	return Descriptor{EntityType: "recipe_categories", ImportOrder: 60}
}

func (recipeCategoriesStrategy) Export(ctx context.Context, tx *sql.Tx) ([]json.RawMessage, error) {
	items, err := collectRecords(ctx, tx,
		`SELECT uid, slug, name, created_at, updated_at FROM recipe_categories`,
		func(rows *sql.Rows) (recipeCategoryRecord, error) {
			var r recipeCategoryRecord
			err := rows.Scan(&r.ID, &r.Slug, &r.Name, &r.CreatedAt, &r.UpdatedAt)
			return r, err
		})
	if err != nil {
		return nil, err
	}
	sortNatural(items,
		func(r recipeCategoryRecord) string { return r.Name },
		func(r recipeCategoryRecord) string { return r.Slug })
	return marshalRecords(items)
}

func (recipeCategoriesStrategy) Import(ctx context.Context, tx *sql.Tx, records []json.RawMessage, rep *importReport) error {
	const t = "recipe_categories"
	for _, raw := range records {
		var r recipeCategoryRecord
		if err := decodeRecord(t, raw, &r); err != nil {
			return err
		}
		if err := checkIdentity(t, r.ID, r.CreatedAt, r.UpdatedAt); err != nil {
			return err
		}
		if r.Slug == "" {
			return recordErr(t, r.ID, "slug is required", nil)
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO recipe_categories (uid, slug, name, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
			r.ID, r.Slug, r.Name, r.CreatedAt, r.UpdatedAt)
		if err != nil {
			return insertErr(t, r.Slug, err)
		}
		rep.markImported(t)
	}
	return nil
}

func (recipeCategoriesStrategy) Clear(ctx context.Context, tx *sql.Tx) (int64, error) {
	return clearTable(ctx, tx, "recipe_categories")
}
