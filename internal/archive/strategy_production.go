package archive

import (
	"context"
	"database/sql"
	"encoding/json"
)

// Production strategies cover finished goods, production runs and the
// run-level history (consumptions, inventory counts). Runs reference
// recipe snapshots by code, never live recipes, so restored history
// stays pinned to the recipe text that actually produced it.

type finishedGoodRecord struct {
	ID         string  `json:"id"`
	Slug       string  `json:"slug"`
	Name       string  `json:"name"`
	Recipe     *string `json:"recipe"`
	SellUnit   string  `json:"sell_unit"`
	PriceCents int64   `json:"price_cents"`
	Active     bool    `json:"active"`
	CreatedAt  string  `json:"created_at"`
	UpdatedAt  string  `json:"updated_at"`
}

type finishedGoodsStrategy struct{}

func (finishedGoodsStrategy) Descriptor() Descriptor {
	return Descriptor{
		EntityType:   "finished_goods",
		ImportOrder:  120,
		Dependencies: []string{"recipes", "units"},
	}
}

func (finishedGoodsStrategy) Export(ctx context.Context, tx *sql.Tx) ([]json.RawMessage, error) {
	items, err := collectRecords(ctx, tx, `
		SELECT g.uid, g.slug, g.name, r.slug, u.slug, g.price_cents, g.active,
		       g.created_at, g.updated_at
		FROM finished_goods g
		LEFT JOIN recipes r ON r.id = g.recipe_id
		JOIN units u ON u.id = g.sell_unit_id`,
		func(rows *sql.Rows) (finishedGoodRecord, error) {
			var r finishedGoodRecord
			var recipe sql.NullString
			var active int64
			err := rows.Scan(&r.ID, &r.Slug, &r.Name, &recipe, &r.SellUnit, &r.PriceCents, &active,
				&r.CreatedAt, &r.UpdatedAt)
			r.Recipe = nullableString(recipe)
			r.Active = active != 0
			return r, err
		})
	if err != nil {
		return nil, err
	}
	sortNatural(items, func(r finishedGoodRecord) string { return r.Name }, func(r finishedGoodRecord) string { return r.Slug })
	return marshalRecords(items)
}

func (finishedGoodsStrategy) Import(ctx context.Context, tx *sql.Tx, records []json.RawMessage, rep *importReport) error {
	const t = "finished_goods"
	for _, raw := range records {
		var r finishedGoodRecord
		if err := decodeRecord(t, raw, &r); err != nil {
			return err
		}
		if err := checkIdentity(t, r.ID, r.CreatedAt, r.UpdatedAt); err != nil {
			return err
		}
		if r.Slug == "" {
			return recordErr(t, r.ID, "slug is required", nil)
		}

		recipeID, ok, err := resolveOptional(ctx, tx, t, r.Slug, "recipe", "recipes", "slug", r.Recipe, rep)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		unitID, ok, err := resolveRequired(ctx, tx, t, r.Slug, "sell_unit", "units", "slug", r.SellUnit, rep)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO finished_goods (uid, slug, name, recipe_id, sell_unit_id, price_cents, active,
				created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			r.ID, r.Slug, r.Name, recipeID, unitID, r.PriceCents, boolValue(r.Active), r.CreatedAt, r.UpdatedAt)
		if err != nil {
			return insertErr(t, r.Slug, err)
		}
		rep.markImported(t)
	}
	return nil
}

func (finishedGoodsStrategy) Clear(ctx context.Context, tx *sql.Tx) (int64, error) {
	return clearTable(ctx, tx, "finished_goods")
}

type productionRunRecord struct {
	ID          string  `json:"id"`
	RunCode     string  `json:"run_code"`
	Snapshot    string  `json:"snapshot"`
	Good        *string `json:"good"`
	PlannedQty  int64   `json:"planned_qty"`
	ProducedQty int64   `json:"produced_qty"`
	Status      string  `json:"status"`
	StartedAt   string  `json:"started_at"`
	CompletedAt *string `json:"completed_at"`
	Notes       string  `json:"notes"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

type productionRunsStrategy struct{}

func (productionRunsStrategy) Descriptor() Descriptor {
	return Descriptor{
		EntityType:   "production_runs",
		ImportOrder:  130,
		Dependencies: []string{"recipe_snapshots", "finished_goods"},
	}
}

func (productionRunsStrategy) Export(ctx context.Context, tx *sql.Tx) ([]json.RawMessage, error) {
	items, err := collectRecords(ctx, tx, `
		SELECT p.uid, p.run_code, s.code, g.slug, p.planned_qty, p.produced_qty, p.status,
		       p.started_at, p.completed_at, p.notes, p.created_at, p.updated_at
		FROM production_runs p
		JOIN recipe_snapshots s ON s.id = p.snapshot_id
		LEFT JOIN finished_goods g ON g.id = p.good_id
		ORDER BY p.started_at, p.uid`,
		func(rows *sql.Rows) (productionRunRecord, error) {
			var r productionRunRecord
			var good, completed sql.NullString
			err := rows.Scan(&r.ID, &r.RunCode, &r.Snapshot, &good, &r.PlannedQty, &r.ProducedQty, &r.Status,
				&r.StartedAt, &completed, &r.Notes, &r.CreatedAt, &r.UpdatedAt)
			r.Good = nullableString(good)
			r.CompletedAt = nullableString(completed)
			return r, err
		})
	if err != nil {
		return nil, err
	}
	return marshalRecords(items)
}

func (productionRunsStrategy) Import(ctx context.Context, tx *sql.Tx, records []json.RawMessage, rep *importReport) error {
	const t = "production_runs"
	for _, raw := range records {
		var r productionRunRecord
		if err := decodeRecord(t, raw, &r); err != nil {
			return err
		}
		if err := checkIdentity(t, r.ID, r.CreatedAt, r.UpdatedAt); err != nil {
			return err
		}
		if r.RunCode == "" {
			return recordErr(t, r.ID, "run_code is required", nil)
		}
		if err := checkTime(t, r.RunCode, "started_at", r.StartedAt); err != nil {
			return err
		}
		if err := checkOptTime(t, r.RunCode, "completed_at", r.CompletedAt); err != nil {
			return err
		}

		snapshotID, ok, err := resolveRequired(ctx, tx, t, r.RunCode, "snapshot", "recipe_snapshots", "code", r.Snapshot, rep)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		goodID, ok, err := resolveOptional(ctx, tx, t, r.RunCode, "good", "finished_goods", "slug", r.Good, rep)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO production_runs (uid, run_code, snapshot_id, good_id, planned_qty, produced_qty,
				status, started_at, completed_at, notes, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			r.ID, r.RunCode, snapshotID, goodID, r.PlannedQty, r.ProducedQty,
			r.Status, r.StartedAt, optString(r.CompletedAt), r.Notes, r.CreatedAt, r.UpdatedAt)
		if err != nil {
			return insertErr(t, r.RunCode, err)
		}
		rep.markImported(t)
	}
	return nil
}

func (productionRunsStrategy) Clear(ctx context.Context, tx *sql.Tx) (int64, error) {
	return clearTable(ctx, tx, "production_runs")
}

type runConsumptionRecord struct {
	ID         string  `json:"id"`
	Run        string  `json:"run"`
	Ingredient string  `json:"ingredient"`
	Lot        *string `json:"lot"`
	Unit       string  `json:"unit"`
	Quantity   string  `json:"quantity"`
	RecordedAt string  `json:"recorded_at"`
	CreatedAt  string  `json:"created_at"`
	UpdatedAt  string  `json:"updated_at"`
}

type runConsumptionsStrategy struct{}

func (runConsumptionsStrategy) Descriptor() Descriptor {
	return Descriptor{
		EntityType:   "run_consumptions",
		ImportOrder:  140,
		Dependencies: []string{"production_runs", "ingredients", "ingredient_lots", "units"},
	}
}

func (runConsumptionsStrategy) Export(ctx context.Context, tx *sql.Tx) ([]json.RawMessage, error) {
	items, err := collectRecords(ctx, tx, `
		SELECT c.uid, p.run_code, i.slug, l.lot_code, u.slug, c.quantity, c.recorded_at,
		       c.created_at, c.updated_at
		FROM run_consumptions c
		JOIN production_runs p ON p.id = c.run_id
		JOIN ingredients i ON i.id = c.ingredient_id
		LEFT JOIN ingredient_lots l ON l.id = c.lot_id
		JOIN units u ON u.id = c.unit_id
		ORDER BY c.recorded_at, c.uid`,
		func(rows *sql.Rows) (runConsumptionRecord, error) {
			var r runConsumptionRecord
			var lot sql.NullString
			err := rows.Scan(&r.ID, &r.Run, &r.Ingredient, &lot, &r.Unit, &r.Quantity, &r.RecordedAt,
				&r.CreatedAt, &r.UpdatedAt)
			r.Lot = nullableString(lot)
			return r, err
		})
	if err != nil {
		return nil, err
	}
	return marshalRecords(items)
}

func (runConsumptionsStrategy) Import(ctx context.Context, tx *sql.Tx, records []json.RawMessage, rep *importReport) error {
	const t = "run_consumptions"
	for _, raw := range records {
		var r runConsumptionRecord
		if err := decodeRecord(t, raw, &r); err != nil {
			return err
		}
		if err := checkIdentity(t, r.ID, r.CreatedAt, r.UpdatedAt); err != nil {
			return err
		}
		if err := checkTime(t, r.ID, "recorded_at", r.RecordedAt); err != nil {
			return err
		}

		runID, ok, err := resolveRequired(ctx, tx, t, r.ID, "run", "production_runs", "run_code", r.Run, rep)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		ingredientID, ok, err := resolveRequired(ctx, tx, t, r.ID, "ingredient", "ingredients", "slug", r.Ingredient, rep)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		lotID, ok, err := resolveOptional(ctx, tx, t, r.ID, "lot", "ingredient_lots", "lot_code", r.Lot, rep)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		unitID, ok, err := resolveRequired(ctx, tx, t, r.ID, "unit", "units", "slug", r.Unit, rep)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO run_consumptions (uid, run_id, ingredient_id, lot_id, unit_id, quantity,
				recorded_at, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			r.ID, runID, ingredientID, lotID, unitID, r.Quantity, r.RecordedAt, r.CreatedAt, r.UpdatedAt)
		if err != nil {
			return insertErr(t, r.ID, err)
		}
		rep.markImported(t)
	}
	return nil
}

func (runConsumptionsStrategy) Clear(ctx context.Context, tx *sql.Tx) (int64, error) {
	return clearTable(ctx, tx, "run_consumptions")
}

type inventoryCountRecord struct {
	ID         string  `json:"id"`
	Ingredient string  `json:"ingredient"`
	Location   *string `json:"location"`
	Quantity   string  `json:"quantity"`
	CountedAt  string  `json:"counted_at"`
	Note       string  `json:"note"`
	CreatedAt  string  `json:"created_at"`
	UpdatedAt  string  `json:"updated_at"`
}

type inventoryCountsStrategy struct{}

func (inventoryCountsStrategy) Descriptor() Descriptor {
	return Descriptor{
		EntityType:   "inventory_counts",
		ImportOrder:  150,
		Dependencies: []string{"ingredients", "storage_locations"},
	}
}

func (inventoryCountsStrategy) Export(ctx context.Context, tx *sql.Tx) ([]json.RawMessage, error) {
	items, err := collectRecords(ctx, tx, `
		SELECT c.uid, i.slug, l.slug, c.quantity, c.counted_at, c.note, c.created_at, c.updated_at
		FROM inventory_counts c
		JOIN ingredients i ON i.id = c.ingredient_id
		LEFT JOIN storage_locations l ON l.id = c.location_id
		ORDER BY c.counted_at, c.uid`,
		func(rows *sql.Rows) (inventoryCountRecord, error) {
			var r inventoryCountRecord
			var location sql.NullString
			err := rows.Scan(&r.ID, &r.Ingredient, &location, &r.Quantity, &r.CountedAt, &r.Note,
				&r.CreatedAt, &r.UpdatedAt)
			r.Location = nullableString(location)
			return r, err
		})
	if err != nil {
		return nil, err
	}
	return marshalRecords(items)
}

func (inventoryCountsStrategy) Import(ctx context.Context, tx *sql.Tx, records []json.RawMessage, rep *importReport) error {
	const t = "inventory_counts"
	for _, raw := range records {
		var r inventoryCountRecord
		if err := decodeRecord(t, raw, &r); err != nil {
			return err
		}
		if err := checkIdentity(t, r.ID, r.CreatedAt, r.UpdatedAt); err != nil {
			return err
		}
		if err := checkTime(t, r.ID, "counted_at", r.CountedAt); err != nil {
			return err
		}

		ingredientID, ok, err := resolveRequired(ctx, tx, t, r.ID, "ingredient", "ingredients", "slug", r.Ingredient, rep)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		locationID, ok, err := resolveOptional(ctx, tx, t, r.ID, "location", "storage_locations", "slug", r.Location, rep)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO inventory_counts (uid, ingredient_id, location_id, quantity, counted_at, note,
				created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			r.ID, ingredientID, locationID, r.Quantity, r.CountedAt, r.Note, r.CreatedAt, r.UpdatedAt)
		if err != nil {
			return insertErr(t, r.ID, err)
		}
		rep.markImported(t)
	}
	return nil
}

func (inventoryCountsStrategy) Clear(ctx context.Context, tx *sql.Tx) (int64, error) {
	return clearTable(ctx, tx, "inventory_counts")
}
