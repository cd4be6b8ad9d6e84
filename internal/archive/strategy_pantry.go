package archive

import (
	"context"
	"database/sql"
	"encoding/json"
)

// Pantry strategies cover ingredients and their received lots. These
// are the first types whose records carry references, so their import
// paths exercise the resolve-or-skip machinery.

type ingredientRecord struct {
	ID                string          `json:"id"`
	Slug              string          `json:"slug"`
	Name              string          `json:"name"`
	Category          string          `json:"category"`
	BaseUnit          string          `json:"base_unit"`
	PreferredSupplier *string         `json:"preferred_supplier"`
	DefaultLocation   *string         `json:"default_location"`
	CostCents         int64           `json:"cost_cents"`
	Allergens         json.RawMessage `json:"allergens"`
	Perishable        bool            `json:"perishable"`
	ShelfLifeDays     int64           `json:"shelf_life_days"`
	CreatedAt         string          `json:"created_at"`
	UpdatedAt         string          `json:"updated_at"`
}

type ingredientsStrategy struct{}

func (ingredientsStrategy) Descriptor() Descriptor {
	return Descriptor{
		EntityType:   "ingredients",
		ImportOrder:  70,
		Dependencies: []string{"ingredient_categories", "units", "suppliers", "storage_locations"},
	}
}

func (ingredientsStrategy) Export(ctx context.Context, tx *sql.Tx) ([]json.RawMessage, error) {
	items, err := collectRecords(ctx, tx, `
		SELECT i.uid, i.slug, i.name, c.slug, u.slug, s.slug, l.slug,
		       i.cost_cents, i.allergens, i.perishable, i.shelf_life_days,
		       i.created_at, i.updated_at
		FROM ingredients i
		JOIN ingredient_categories c ON c.id = i.category_id
		JOIN units u ON u.id = i.base_unit_id
		LEFT JOIN suppliers s ON s.id = i.preferred_supplier_id
		LEFT JOIN storage_locations l ON l.id = i.default_location_id`,
		func(rows *sql.Rows) (ingredientRecord, error) {
			var r ingredientRecord
			var supplier, location, allergens sql.NullString
			var perishable int64
			err := rows.Scan(&r.ID, &r.Slug, &r.Name, &r.Category, &r.BaseUnit, &supplier, &location,
				&r.CostCents, &allergens, &perishable, &r.ShelfLifeDays, &r.CreatedAt, &r.UpdatedAt)
			r.PreferredSupplier = nullableString(supplier)
			r.DefaultLocation = nullableString(location)
			r.Allergens = nullableRaw(allergens)
			r.Perishable = perishable != 0
			return r, err
		})
	if err != nil {
		return nil, err
	}
	sortNatural(items, func(r ingredientRecord) string { return r.Name }, func(r ingredientRecord) string { return r.Slug })
	return marshalRecords(items)
}

func (ingredientsStrategy) Import(ctx context.Context, tx *sql.Tx, records []json.RawMessage, rep *importReport) error {
	const t = "ingredients"
	for _, raw := range records {
		var r ingredientRecord
		if err := decodeRecord(t, raw, &r); err != nil {
			return err
		}
		if err := checkIdentity(t, r.ID, r.CreatedAt, r.UpdatedAt); err != nil {
			return err
		}
		if r.Slug == "" {
			return recordErr(t, r.ID, "slug is required", nil)
		}

		categoryID, ok, err := resolveRequired(ctx, tx, t, r.Slug, "category", "ingredient_categories", "slug", r.Category, rep)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		unitID, ok, err := resolveRequired(ctx, tx, t, r.Slug, "base_unit", "units", "slug", r.BaseUnit, rep)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		supplierID, ok, err := resolveOptional(ctx, tx, t, r.Slug, "preferred_supplier", "suppliers", "slug", r.PreferredSupplier, rep)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		locationID, ok, err := resolveOptional(ctx, tx, t, r.Slug, "default_location", "storage_locations", "slug", r.DefaultLocation, rep)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO ingredients (uid, slug, name, category_id, base_unit_id, preferred_supplier_id,
				default_location_id, cost_cents, allergens, perishable, shelf_life_days, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			r.ID, r.Slug, r.Name, categoryID, unitID, supplierID, locationID,
			r.CostCents, rawPayload(r.Allergens), boolValue(r.Perishable), r.ShelfLifeDays, r.CreatedAt, r.UpdatedAt)
		if err != nil {
			return insertErr(t, r.Slug, err)
		}
		rep.markImported(t)
	}
	return nil
}

func (ingredientsStrategy) Clear(ctx context.Context, tx *sql.Tx) (int64, error) {
	return clearTable(ctx, tx, "ingredients")
}

type ingredientLotRecord struct {
	ID         string  `json:"id"`
	LotCode    string  `json:"lot_code"`
	Ingredient string  `json:"ingredient"`
	Supplier   *string `json:"supplier"`
	Quantity   string  `json:"quantity"`
	CostCents  int64   `json:"cost_cents"`
	ReceivedAt string  `json:"received_at"`
	ExpiresAt  *string `json:"expires_at"`
	CreatedAt  string  `json:"created_at"`
	UpdatedAt  string  `json:"updated_at"`
}

type ingredientLotsStrategy struct{}

func (ingredientLotsStrategy) Descriptor() Descriptor {
	return Descriptor{
		EntityType:   "ingredient_lots",
		ImportOrder:  80,
		Dependencies: []string{"ingredients", "suppliers"},
	}
}

func (ingredientLotsStrategy) Export(ctx context.Context, tx *sql.Tx) ([]json.RawMessage, error) {
	items, err := collectRecords(ctx, tx, `
		SELECT l.uid, l.lot_code, i.slug, s.slug, l.quantity, l.cost_cents,
		       l.received_at, l.expires_at, l.created_at, l.updated_at
		FROM ingredient_lots l
		JOIN ingredients i ON i.id = l.ingredient_id
		LEFT JOIN suppliers s ON s.id = l.supplier_id
		ORDER BY l.received_at, l.uid`,
		func(rows *sql.Rows) (ingredientLotRecord, error) {
			var r ingredientLotRecord
			var supplier, expires sql.NullString
			err := rows.Scan(&r.ID, &r.LotCode, &r.Ingredient, &supplier, &r.Quantity, &r.CostCents,
				&r.ReceivedAt, &expires, &r.CreatedAt, &r.UpdatedAt)
			r.Supplier = nullableString(supplier)
			r.ExpiresAt = nullableString(expires)
			return r, err
		})
	if err != nil {
		return nil, err
	}
	return marshalRecords(items)
}

func (ingredientLotsStrategy) Import(ctx context.Context, tx *sql.Tx, records []json.RawMessage, rep *importReport) error {
	const t = "ingredient_lots"
	for _, raw := range records {
		var r ingredientLotRecord
		if err := decodeRecord(t, raw, &r); err != nil {
			return err
		}
		if err := checkIdentity(t, r.ID, r.CreatedAt, r.UpdatedAt); err != nil {
			return err
		}
		if r.LotCode == "" {
			return recordErr(t, r.ID, "lot_code is required", nil)
		}
		if err := checkTime(t, r.LotCode, "received_at", r.ReceivedAt); err != nil {
			return err
		}
		if err := checkOptTime(t, r.LotCode, "expires_at", r.ExpiresAt); err != nil {
			return err
		}

		ingredientID, ok, err := resolveRequired(ctx, tx, t, r.LotCode, "ingredient", "ingredients", "slug", r.Ingredient, rep)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		supplierID, ok, err := resolveOptional(ctx, tx, t, r.LotCode, "supplier", "suppliers", "slug", r.Supplier, rep)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO ingredient_lots (uid, lot_code, ingredient_id, supplier_id, quantity, cost_cents,
				received_at, expires_at, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			r.ID, r.LotCode, ingredientID, supplierID, r.Quantity, r.CostCents,
			r.ReceivedAt, optString(r.ExpiresAt), r.CreatedAt, r.UpdatedAt)
		if err != nil {
			return insertErr(t, r.LotCode, err)
		}
		rep.markImported(t)
	}
	return nil
}

func (ingredientLotsStrategy) Clear(ctx context.Context, tx *sql.Tx) (int64, error) {
	return clearTable(ctx, tx, "ingredient_lots")
}
