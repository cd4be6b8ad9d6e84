package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/tartinelabs/banneton/internal/domain"
)

// stamp mints the identity and timestamps for a new record.
func (s *Store) stamp() (uid, now string) {
	return s.ids.Generate(), domain.FormatTime(s.now())
}

// refID resolves a required natural-key reference to its rowid.
func (s *Store) refID(ctx context.Context, table, column, key string) (int64, error) {
	if key == "" {
		return 0, fmt.Errorf("%s reference is required", table)
	}
	var id int64
	query := fmt.Sprintf("SELECT id FROM %s WHERE %s = ?", table, column)
	err := s.db.QueryRowContext(ctx, query, key).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("%s %q not found", table, key)
	}
	if err != nil {
		return 0, fmt.Errorf("resolve %s %q: %w", table, key, err)
	}
	return id, nil
}

// optRefID resolves an optional natural-key reference. An empty key
// resolves to NULL.
func (s *Store) optRefID(ctx context.Context, table, column, key string) (sql.NullInt64, error) {
	if key == "" {
		return sql.NullInt64{}, nil
	}
	id, err := s.refID(ctx, table, column, key)
	if err != nil {
		return sql.NullInt64{}, err
	}
	return sql.NullInt64{Int64: id, Valid: true}, nil
}

// payloadValue canonicalizes an optional JSON payload for storage.
// nil payloads store as NULL.
func payloadValue(raw json.RawMessage) (any, error) {
	if raw == nil {
		return nil, nil
	}
	canonical, err := domain.CanonicalPayload(raw)
	if err != nil {
		return nil, err
	}
	return string(canonical), nil
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return domain.FormatTime(*t)
}

// slugOrDerive returns the explicit slug or derives one from the name.
func slugOrDerive(slug, name string) (string, error) {
	if slug == "" {
		slug = domain.Slugify(name)
	}
	if slug == "" {
		return "", fmt.Errorf("cannot derive slug from name %q", name)
	}
	return slug, nil
}

// CreateSetting inserts an app preference. Value is canonicalized JSON.
func (s *Store) CreateSetting(ctx context.Context, set domain.Setting) (string, error) {
	if set.Key == "" {
		return "", fmt.Errorf("create setting: key is required")
	}
	value, err := payloadValue(set.Value)
	if err != nil || value == nil {
		if err == nil {
			err = fmt.Errorf("value is required")
		}
		return "", fmt.Errorf("create setting %q: %w", set.Key, err)
	}

	uid, now := s.stamp()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO settings (uid, key, value, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, uid, set.Key, value, now, now)
	if err != nil {
		return "", fmt.Errorf("create setting %q: %w", set.Key, err)
	}
	return uid, nil
}

func (s *Store) CreateUnit(ctx context.Context, u domain.Unit) (string, error) {
	slug, err := slugOrDerive(u.Slug, u.Name)
	if err != nil {
		return "", fmt.Errorf("create unit: %w", err)
	}
	if u.ToBase == "" {
		return "", fmt.Errorf("create unit %q: to_base is required", slug)
	}

	uid, now := s.stamp()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO units (uid, slug, name, kind, to_base, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, uid, slug, u.Name, u.Kind, u.ToBase, now, now)
	if err != nil {
		return "", fmt.Errorf("create unit %q: %w", slug, err)
	}
	return uid, nil
}

func (s *Store) CreateIngredientCategory(ctx context.Context, c domain.IngredientCategory) (string, error) {
	slug, err := slugOrDerive(c.Slug, c.Name)
	if err != nil {
		return "", fmt.Errorf("create ingredient category: %w", err)
	}

	uid, now := s.stamp()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO ingredient_categories (uid, slug, name, position, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, uid, slug, c.Name, c.Position, now, now)
	if err != nil {
		return "", fmt.Errorf("create ingredient category %q: %w", slug, err)
	}
	return uid, nil
}

func (s *Store) CreateSupplier(ctx context.Context, sup domain.Supplier) (string, error) {
	slug, err := slugOrDerive(sup.Slug, sup.Name)
	if err != nil {
		return "", fmt.Errorf("create supplier: %w", err)
	}
	contact, err := payloadValue(sup.Contact)
	if err != nil {
		return "", fmt.Errorf("create supplier %q: contact: %w", slug, err)
	}

	uid, now := s.stamp()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO suppliers (uid, slug, name, contact, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, uid, slug, sup.Name, contact, boolInt(sup.Active), now, now)
	if err != nil {
		return "", fmt.Errorf("create supplier %q: %w", slug, err)
	}
	return uid, nil
}

func (s *Store) CreateStorageLocation(ctx context.Context, loc domain.StorageLocation) (string, error) {
	slug, err := slugOrDerive(loc.Slug, loc.Name)
	if err != nil {
		return "", fmt.Errorf("create storage location: %w", err)
	}

	uid, now := s.stamp()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO storage_locations (uid, slug, name, temp_band, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, uid, slug, loc.Name, loc.TempBand, now, now)
	if err != nil {
		return "", fmt.Errorf("create storage location %q: %w", slug, err)
	}
	return uid, nil
}

func (s *Store) CreateRecipeCategory(ctx context.Context, c domain.RecipeCategory) (string, error) {
	slug, err := slugOrDerive(c.Slug, c.Name)
	if err != nil {
		return "", fmt.Errorf("create recipe category: %w", err)
	}

	uid, now := s.stamp()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO recipe_categories (uid, slug, name, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, uid, slug, c.Name, now, now)
	if err != nil {
		return "", fmt.Errorf("create recipe category %q: %w", slug, err)
	}
	return uid, nil
}

func (s *Store) CreateIngredient(ctx context.Context, ing domain.Ingredient) (string, error) {
	slug, err := slugOrDerive(ing.Slug, ing.Name)
	if err != nil {
		return "", fmt.Errorf("create ingredient: %w", err)
	}

	categoryID, err := s.refID(ctx, "ingredient_categories", "slug", ing.Category)
	if err != nil {
		return "", fmt.Errorf("create ingredient %q: %w", slug, err)
	}
	baseUnitID, err := s.refID(ctx, "units", "slug", ing.BaseUnit)
	if err != nil {
		return "", fmt.Errorf("create ingredient %q: %w", slug, err)
	}
	supplierID, err := s.optRefID(ctx, "suppliers", "slug", ing.PreferredSupplier)
	if err != nil {
		return "", fmt.Errorf("create ingredient %q: %w", slug, err)
	}
	locationID, err := s.optRefID(ctx, "storage_locations", "slug", ing.DefaultLocation)
	if err != nil {
		return "", fmt.Errorf("create ingredient %q: %w", slug, err)
	}
	allergens, err := payloadValue(ing.Allergens)
	if err != nil {
		return "", fmt.Errorf("create ingredient %q: allergens: %w", slug, err)
	}

	uid, now := s.stamp()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO ingredients
		(uid, slug, name, category_id, base_unit_id, preferred_supplier_id,
		 default_location_id, cost_cents, allergens, perishable, shelf_life_days,
		 created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, uid, slug, ing.Name, categoryID, baseUnitID, supplierID, locationID,
		ing.CostCents, allergens, boolInt(ing.Perishable), ing.ShelfLifeDays, now, now)
	if err != nil {
		return "", fmt.Errorf("create ingredient %q: %w", slug, err)
	}
	return uid, nil
}

func (s *Store) CreateIngredientLot(ctx context.Context, lot domain.IngredientLot) (string, error) {
	if lot.LotCode == "" {
		return "", fmt.Errorf("create ingredient lot: lot_code is required")
	}
	ingredientID, err := s.refID(ctx, "ingredients", "slug", lot.Ingredient)
	if err != nil {
		return "", fmt.Errorf("create ingredient lot %q: %w", lot.LotCode, err)
	}
	supplierID, err := s.optRefID(ctx, "suppliers", "slug", lot.Supplier)
	if err != nil {
		return "", fmt.Errorf("create ingredient lot %q: %w", lot.LotCode, err)
	}

	uid, now := s.stamp()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO ingredient_lots
		(uid, lot_code, ingredient_id, supplier_id, quantity, cost_cents,
		 received_at, expires_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, uid, lot.LotCode, ingredientID, supplierID, lot.Quantity, lot.CostCents,
		domain.FormatTime(lot.ReceivedAt), nullTime(lot.ExpiresAt), now, now)
	if err != nil {
		return "", fmt.Errorf("create ingredient lot %q: %w", lot.LotCode, err)
	}
	return uid, nil
}

func (s *Store) CreateRecipe(ctx context.Context, r domain.Recipe) (string, error) {
	slug, err := slugOrDerive(r.Slug, r.Name)
	if err != nil {
		return "", fmt.Errorf("create recipe: %w", err)
	}

	categoryID, err := s.optRefID(ctx, "recipe_categories", "slug", r.Category)
	if err != nil {
		return "", fmt.Errorf("create recipe %q: %w", slug, err)
	}
	yieldUnitID, err := s.refID(ctx, "units", "slug", r.YieldUnit)
	if err != nil {
		return "", fmt.Errorf("create recipe %q: %w", slug, err)
	}
	instructions, err := payloadValue(r.Instructions)
	if err != nil {
		return "", fmt.Errorf("create recipe %q: instructions: %w", slug, err)
	}

	uid, now := s.stamp()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO recipes
		(uid, slug, name, category_id, yield_quantity, yield_unit_id,
		 instructions, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, uid, slug, r.Name, categoryID, r.YieldQuantity, yieldUnitID,
		instructions, r.Notes, now, now)
	if err != nil {
		return "", fmt.Errorf("create recipe %q: %w", slug, err)
	}
	return uid, nil
}

func (s *Store) CreateRecipeIngredient(ctx context.Context, ri domain.RecipeIngredient) (string, error) {
	recipeID, err := s.refID(ctx, "recipes", "slug", ri.Recipe)
	if err != nil {
		return "", fmt.Errorf("create recipe ingredient: %w", err)
	}
	ingredientID, err := s.refID(ctx, "ingredients", "slug", ri.Ingredient)
	if err != nil {
		return "", fmt.Errorf("create recipe ingredient: %w", err)
	}
	unitID, err := s.refID(ctx, "units", "slug", ri.Unit)
	if err != nil {
		return "", fmt.Errorf("create recipe ingredient: %w", err)
	}

	uid, now := s.stamp()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO recipe_ingredients
		(uid, recipe_id, ingredient_id, unit_id, quantity, position, note,
		 created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, uid, recipeID, ingredientID, unitID, ri.Quantity, ri.Position, ri.Note, now, now)
	if err != nil {
		return "", fmt.Errorf("create recipe ingredient: %w", err)
	}
	return uid, nil
}

// CreateRecipeSnapshot freezes a recipe version. The snapshot code is
// derived from the recipe slug and version and must be unique.
func (s *Store) CreateRecipeSnapshot(ctx context.Context, snap domain.RecipeSnapshot) (string, error) {
	recipeID, err := s.refID(ctx, "recipes", "slug", snap.Recipe)
	if err != nil {
		return "", fmt.Errorf("create recipe snapshot: %w", err)
	}
	if snap.Version <= 0 {
		return "", fmt.Errorf("create recipe snapshot: version must be positive")
	}
	document, err := payloadValue(snap.Document)
	if err != nil || document == nil {
		if err == nil {
			err = fmt.Errorf("document is required")
		}
		return "", fmt.Errorf("create recipe snapshot: %w", err)
	}

	code := domain.SnapshotCode(snap.Recipe, snap.Version)
	uid, now := s.stamp()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO recipe_snapshots
		(uid, code, recipe_id, version, captured_at, document, reason,
		 created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, uid, code, recipeID, snap.Version, domain.FormatTime(snap.CapturedAt),
		document, snap.Reason, now, now)
	if err != nil {
		return "", fmt.Errorf("create recipe snapshot %q: %w", code, err)
	}
	return uid, nil
}

func (s *Store) CreateFinishedGood(ctx context.Context, fg domain.FinishedGood) (string, error) {
	slug, err := slugOrDerive(fg.Slug, fg.Name)
	if err != nil {
		return "", fmt.Errorf("create finished good: %w", err)
	}

	recipeID, err := s.optRefID(ctx, "recipes", "slug", fg.Recipe)
	if err != nil {
		return "", fmt.Errorf("create finished good %q: %w", slug, err)
	}
	sellUnitID, err := s.refID(ctx, "units", "slug", fg.SellUnit)
	if err != nil {
		return "", fmt.Errorf("create finished good %q: %w", slug, err)
	}

	uid, now := s.stamp()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO finished_goods
		(uid, slug, name, recipe_id, sell_unit_id, price_cents, active,
		 created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, uid, slug, fg.Name, recipeID, sellUnitID, fg.PriceCents, boolInt(fg.Active), now, now)
	if err != nil {
		return "", fmt.Errorf("create finished good %q: %w", slug, err)
	}
	return uid, nil
}

func (s *Store) CreateProductionRun(ctx context.Context, run domain.ProductionRun) (string, error) {
	if run.RunCode == "" {
		return "", fmt.Errorf("create production run: run_code is required")
	}
	snapshotID, err := s.refID(ctx, "recipe_snapshots", "code", run.Snapshot)
	if err != nil {
		return "", fmt.Errorf("create production run %q: %w", run.RunCode, err)
	}
	goodID, err := s.optRefID(ctx, "finished_goods", "slug", run.Good)
	if err != nil {
		return "", fmt.Errorf("create production run %q: %w", run.RunCode, err)
	}

	uid, now := s.stamp()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO production_runs
		(uid, run_code, snapshot_id, good_id, planned_qty, produced_qty, status,
		 started_at, completed_at, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, uid, run.RunCode, snapshotID, goodID, run.PlannedQty, run.ProducedQty,
		run.Status, domain.FormatTime(run.StartedAt), nullTime(run.CompletedAt),
		run.Notes, now, now)
	if err != nil {
		return "", fmt.Errorf("create production run %q: %w", run.RunCode, err)
	}
	return uid, nil
}

func (s *Store) CreateRunConsumption(ctx context.Context, rc domain.RunConsumption) (string, error) {
	runID, err := s.refID(ctx, "production_runs", "run_code", rc.Run)
	if err != nil {
		return "", fmt.Errorf("create run consumption: %w", err)
	}
	ingredientID, err := s.refID(ctx, "ingredients", "slug", rc.Ingredient)
	if err != nil {
		return "", fmt.Errorf("create run consumption: %w", err)
	}
	lotID, err := s.optRefID(ctx, "ingredient_lots", "lot_code", rc.Lot)
	if err != nil {
		return "", fmt.Errorf("create run consumption: %w", err)
	}
	unitID, err := s.refID(ctx, "units", "slug", rc.Unit)
	if err != nil {
		return "", fmt.Errorf("create run consumption: %w", err)
	}

	uid, now := s.stamp()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO run_consumptions
		(uid, run_id, ingredient_id, lot_id, unit_id, quantity, recorded_at,
		 created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, uid, runID, ingredientID, lotID, unitID, rc.Quantity,
		domain.FormatTime(rc.RecordedAt), now, now)
	if err != nil {
		return "", fmt.Errorf("create run consumption: %w", err)
	}
	return uid, nil
}

func (s *Store) CreateInventoryCount(ctx context.Context, ic domain.InventoryCount) (string, error) {
	ingredientID, err := s.refID(ctx, "ingredients", "slug", ic.Ingredient)
	if err != nil {
		return "", fmt.Errorf("create inventory count: %w", err)
	}
	locationID, err := s.optRefID(ctx, "storage_locations", "slug", ic.Location)
	if err != nil {
		return "", fmt.Errorf("create inventory count: %w", err)
	}

	uid, now := s.stamp()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO inventory_counts
		(uid, ingredient_id, location_id, quantity, counted_at, note,
		 created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, uid, ingredientID, locationID, ic.Quantity,
		domain.FormatTime(ic.CountedAt), ic.Note, now, now)
	if err != nil {
		return "", fmt.Errorf("create inventory count: %w", err)
	}
	return uid, nil
}

func (s *Store) CreateEvent(ctx context.Context, ev domain.Event) (string, error) {
	slug, err := slugOrDerive(ev.Slug, ev.Name)
	if err != nil {
		return "", fmt.Errorf("create event: %w", err)
	}
	details, err := payloadValue(ev.Details)
	if err != nil {
		return "", fmt.Errorf("create event %q: details: %w", slug, err)
	}

	uid, now := s.stamp()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO events
		(uid, slug, name, venue, status, starts_at, ends_at, details,
		 created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, uid, slug, ev.Name, ev.Venue, ev.Status,
		domain.FormatTime(ev.StartsAt), domain.FormatTime(ev.EndsAt), details, now, now)
	if err != nil {
		return "", fmt.Errorf("create event %q: %w", slug, err)
	}
	return uid, nil
}

func (s *Store) CreateEventMenuItem(ctx context.Context, mi domain.EventMenuItem) (string, error) {
	eventID, err := s.refID(ctx, "events", "slug", mi.Event)
	if err != nil {
		return "", fmt.Errorf("create event menu item: %w", err)
	}
	goodID, err := s.refID(ctx, "finished_goods", "slug", mi.Good)
	if err != nil {
		return "", fmt.Errorf("create event menu item: %w", err)
	}

	var override any
	if mi.PriceCentsOverride != nil {
		override = *mi.PriceCentsOverride
	}

	uid, now := s.stamp()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO event_menu_items
		(uid, event_id, good_id, planned_qty, price_cents_override, position,
		 created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, uid, eventID, goodID, mi.PlannedQty, override, mi.Position, now, now)
	if err != nil {
		return "", fmt.Errorf("create event menu item: %w", err)
	}
	return uid, nil
}

func (s *Store) CreateWasteLog(ctx context.Context, wl domain.WasteLog) (string, error) {
	goodID, err := s.optRefID(ctx, "finished_goods", "slug", wl.Good)
	if err != nil {
		return "", fmt.Errorf("create waste log: %w", err)
	}
	runID, err := s.optRefID(ctx, "production_runs", "run_code", wl.Run)
	if err != nil {
		return "", fmt.Errorf("create waste log: %w", err)
	}

	uid, now := s.stamp()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO waste_logs
		(uid, good_id, run_id, quantity, reason, logged_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, uid, goodID, runID, wl.Quantity, wl.Reason,
		domain.FormatTime(wl.LoggedAt), now, now)
	if err != nil {
		return "", fmt.Errorf("create waste log: %w", err)
	}
	return uid, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
