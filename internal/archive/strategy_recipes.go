package archive

import (
	"context"
	"database/sql"
	"encoding/json"
)

// Recipe strategies cover recipes, their ingredient lines and their
// frozen snapshots. A snapshot that loses its recipe to a skip is
// itself skipped, and every run hanging off that snapshot follows;
// nothing downstream can resolve a key that was never inserted.

type recipeRecord struct {
	ID            string          `json:"id"`
	Slug          string          `json:"slug"`
	Name          string          `json:"name"`
	Category      *string         `json:"category"`
	YieldQuantity string          `json:"yield_quantity"`
	YieldUnit     string          `json:"yield_unit"`
	Instructions  json.RawMessage `json:"instructions"`
	Notes         string          `json:"notes"`
	CreatedAt     string          `json:"created_at"`
	UpdatedAt     string          `json:"updated_at"`
}

type recipesStrategy struct{}

func (recipesStrategy) Descriptor() Descriptor {
	return Descriptor{
		EntityType:   "recipes",
		ImportOrder:  90,
		Dependencies: []string{"recipe_categories", "units"},
	}
}

func (recipesStrategy) Export(ctx context.Context, tx *sql.Tx) ([]json.RawMessage, error) {
	items, err := collectRecords(ctx, tx, `
		SELECT r.uid, r.slug, r.name, c.slug, r.yield_quantity, u.slug,
		       r.instructions, r.notes, r.created_at, r.updated_at
		FROM recipes r
		LEFT JOIN recipe_categories c ON c.id = r.category_id
		JOIN units u ON u.id = r.yield_unit_id`,
		func(rows *sql.Rows) (recipeRecord, error) {
			var r recipeRecord
			var category, instructions sql.NullString
			err := rows.Scan(&r.ID, &r.Slug, &r.Name, &category, &r.YieldQuantity, &r.YieldUnit,
				&instructions, &r.Notes, &r.CreatedAt, &r.UpdatedAt)
			r.Category = nullableString(category)
			r.Instructions = nullableRaw(instructions)
			return r, err
		})
	if err != nil {
		return nil, err
	}
	sortNatural(items, func(r recipeRecord) string { return r.Name }, func(r recipeRecord) string { return r.Slug })
	return marshalRecords(items)
}

func (recipesStrategy) Import(ctx context.Context, tx *sql.Tx, records []json.RawMessage, rep *importReport) error {
	const t = "recipes"
	for _, raw := range records {
		var r recipeRecord
		if err := decodeRecord(t, raw, &r); err != nil {
			return err
		}
		if err := checkIdentity(t, r.ID, r.CreatedAt, r.UpdatedAt); err != nil {
			return err
		}
		if r.Slug == "" {
			return recordErr(t, r.ID, "slug is required", nil)
		}

		categoryID, ok, err := resolveOptional(ctx, tx, t, r.Slug, "category", "recipe_categories", "slug", r.Category, rep)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		unitID, ok, err := resolveRequired(ctx, tx, t, r.Slug, "yield_unit", "units", "slug", r.YieldUnit, rep)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO recipes (uid, slug, name, category_id, yield_quantity, yield_unit_id,
				instructions, notes, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			r.ID, r.Slug, r.Name, categoryID, r.YieldQuantity, unitID,
			rawPayload(r.Instructions), r.Notes, r.CreatedAt, r.UpdatedAt)
		if err != nil {
			return insertErr(t, r.Slug, err)
		}
		rep.markImported(t)
	}
	return nil
}

func (recipesStrategy) Clear(ctx context.Context, tx *sql.Tx) (int64, error) {
	return clearTable(ctx, tx, "recipes")
}

type recipeIngredientRecord struct {
	ID         string `json:"id"`
	Recipe     string `json:"recipe"`
	Ingredient string `json:"ingredient"`
	Unit       string `json:"unit"`
	Quantity   string `json:"quantity"`
	Position   int64  `json:"position"`
	Note       string `json:"note"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
}

type recipeIngredientsStrategy struct{}

func (recipeIngredientsStrategy) Descriptor() Descriptor {
	return Descriptor{
		EntityType:   "recipe_ingredients",
		ImportOrder:  100,
		Dependencies: []string{"recipes", "ingredients", "units"},
	}
}

func (recipeIngredientsStrategy) Export(ctx context.Context, tx *sql.Tx) ([]json.RawMessage, error) {
	items, err := collectRecords(ctx, tx, `
		SELECT ri.uid, r.slug, i.slug, u.slug, ri.quantity, ri.position, ri.note,
		       ri.created_at, ri.updated_at
		FROM recipe_ingredients ri
		JOIN recipes r ON r.id = ri.recipe_id
		JOIN ingredients i ON i.id = ri.ingredient_id
		JOIN units u ON u.id = ri.unit_id
		ORDER BY r.slug, ri.position, ri.uid`,
		func(rows *sql.Rows) (recipeIngredientRecord, error) {
			var r recipeIngredientRecord
			err := rows.Scan(&r.ID, &r.Recipe, &r.Ingredient, &r.Unit, &r.Quantity, &r.Position, &r.Note,
				&r.CreatedAt, &r.UpdatedAt)
			return r, err
		})
	if err != nil {
		return nil, err
	}
	return marshalRecords(items)
}

func (recipeIngredientsStrategy) Import(ctx context.Context, tx *sql.Tx, records []json.RawMessage, rep *importReport) error {
	const t = "recipe_ingredients"
	for _, raw := range records {
		var r recipeIngredientRecord
		if err := decodeRecord(t, raw, &r); err != nil {
			return err
		}
		if err := checkIdentity(t, r.ID, r.CreatedAt, r.UpdatedAt); err != nil {
			return err
		}

		recipeID, ok, err := resolveRequired(ctx, tx, t, r.ID, "recipe", "recipes", "slug", r.Recipe, rep)
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
		unitID, ok, err := resolveRequired(ctx, tx, t, r.ID, "unit", "units", "slug", r.Unit, rep)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO recipe_ingredients (uid, recipe_id, ingredient_id, unit_id, quantity, position,
				note, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			r.ID, recipeID, ingredientID, unitID, r.Quantity, r.Position, r.Note, r.CreatedAt, r.UpdatedAt)
		if err != nil {
			return insertErr(t, r.ID, err)
		}
		rep.markImported(t)
	}
	return nil
}

func (recipeIngredientsStrategy) Clear(ctx context.Context, tx *sql.Tx) (int64, error) {
	return clearTable(ctx, tx, "recipe_ingredients")
}

type recipeSnapshotRecord struct {
	ID         string          `json:"id"`
	Code       string          `json:"code"`
	Recipe     string          `json:"recipe"`
	Version    int64           `json:"version"`
	CapturedAt string          `json:"captured_at"`
	Document   json.RawMessage `json:"document"`
	Reason     string          `json:"reason"`
	CreatedAt  string          `json:"created_at"`
	UpdatedAt  string          `json:"updated_at"`
}

type recipeSnapshotsStrategy struct{}

func (recipeSnapshotsStrategy) Descriptor() Descriptor {
	return Descriptor{
		EntityType:   "recipe_snapshots",
		ImportOrder:  110,
		Dependencies: []string{"recipes"},
	}
}

func (recipeSnapshotsStrategy) Export(ctx context.Context, tx *sql.Tx) ([]json.RawMessage, error) {
	items, err := collectRecords(ctx, tx, `
		SELECT s.uid, s.code, r.slug, s.version, s.captured_at, s.document, s.reason,
		       s.created_at, s.updated_at
		FROM recipe_snapshots s
		JOIN recipes r ON r.id = s.recipe_id
		ORDER BY s.captured_at, s.uid`,
		func(rows *sql.Rows) (recipeSnapshotRecord, error) {
			var r recipeSnapshotRecord
			var document string
			err := rows.Scan(&r.ID, &r.Code, &r.Recipe, &r.Version, &r.CapturedAt, &document, &r.Reason,
				&r.CreatedAt, &r.UpdatedAt)
			r.Document = json.RawMessage(document)
			return r, err
		})
	if err != nil {
		return nil, err
	}
	return marshalRecords(items)
}

func (recipeSnapshotsStrategy) Import(ctx context.Context, tx *sql.Tx, records []json.RawMessage, rep *importReport) error {
	const t = "recipe_snapshots"
	for _, raw := range records {
		var r recipeSnapshotRecord
		if err := decodeRecord(t, raw, &r); err != nil {
			return err
		}
		if err := checkIdentity(t, r.ID, r.CreatedAt, r.UpdatedAt); err != nil {
			return err
		}
		if r.Code == "" {
			return recordErr(t, r.ID, "code is required", nil)
		}
		if err := checkTime(t, r.Code, "captured_at", r.CapturedAt); err != nil {
			return err
		}
		document := rawPayload(r.Document)
		if document == nil {
			return recordErr(t, r.Code, "document is required", nil)
		}

		recipeID, ok, err := resolveRequired(ctx, tx, t, r.Code, "recipe", "recipes", "slug", r.Recipe, rep)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO recipe_snapshots (uid, code, recipe_id, version, captured_at, document, reason,
				created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			r.ID, r.Code, recipeID, r.Version, r.CapturedAt, document, r.Reason, r.CreatedAt, r.UpdatedAt)
		if err != nil {
			return insertErr(t, r.Code, err)
		}
		rep.markImported(t)
	}
	return nil
}

func (recipeSnapshotsStrategy) Clear(ctx context.Context, tx *sql.Tx) (int64, error) {
	return clearTable(ctx, tx, "recipe_snapshots")
}
