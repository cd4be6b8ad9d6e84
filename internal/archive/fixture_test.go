package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tartinelabs/banneton/internal/domain"
	"github.com/tartinelabs/banneton/internal/store"
)

// exportStamp pins generated_at for every test export so manifests
// compare byte for byte.
var exportStamp = time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

func exportClock() time.Time { return exportStamp }

// seqIDs returns a generator of readable sequential uids.
func seqIDs(n int) *store.FixedIDGenerator {
	uids := make([]string, n)
	for i := range uids {
		uids[i] = fmt.Sprintf("00000000-0000-7000-8000-%012d", i+1)
	}
	return store.NewFixedIDGenerator(uids...)
}

// tickingClock advances one second per call so seeded rows get
// distinct, reproducible timestamps.
func tickingClock(start time.Time) func() time.Time {
	cur := start
	return func() time.Time {
		cur = cur.Add(time.Second)
		return cur
	}
}

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "bakery.db"),
		store.WithIDGenerator(seqIDs(64)),
		store.WithClock(tickingClock(time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC))),
	)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func ptrTime(t time.Time) *time.Time { return &t }

func ptrInt64(n int64) *int64 { return &n }

// seededCounts is the per-type record count seedBakery produces.
var seededCounts = map[string]int{
	"settings":              2,
	"units":                 4,
	"ingredient_categories": 2,
	"suppliers":             2,
	"storage_locations":     2,
	"recipe_categories":     2,
	"ingredients":           3,
	"ingredient_lots":       2,
	"recipes":               2,
	"recipe_ingredients":    4,
	"recipe_snapshots":      2,
	"finished_goods":        3,
	"production_runs":       2,
	"run_consumptions":      2,
	"inventory_counts":      2,
	"events":                2,
	"event_menu_items":      2,
	"waste_logs":            2,
}

func seededTotal() int {
	total := 0
	for _, n := range seededCounts {
		total += n
	}
	return total
}

// seedBakery fills every entity type with a small fixed dataset. The
// data deliberately includes diacritics, HTML-significant characters
// and optional references both present and absent.
func seedBakery(t *testing.T, st *store.Store) {
	t.Helper()
	ctx := context.Background()

	must := func(uid string, err error) {
		t.Helper()
		require.NoError(t, err)
		require.NotEmpty(t, uid)
	}

	must(st.CreateSetting(ctx, domain.Setting{
		Key:   "bakery_name",
		Value: json.RawMessage(`{"display":"Pâtisserie <Núria> & Co","since":2019}`),
	}))
	must(st.CreateSetting(ctx, domain.Setting{Key: "currency", Value: json.RawMessage(`"EUR"`)}))

	must(st.CreateUnit(ctx, domain.Unit{Name: "Gram", Kind: domain.UnitMass, ToBase: "1"}))
	must(st.CreateUnit(ctx, domain.Unit{Name: "Kilogram", Kind: domain.UnitMass, ToBase: "1000"}))
	must(st.CreateUnit(ctx, domain.Unit{Name: "Each", Kind: domain.UnitCount, ToBase: "1"}))
	must(st.CreateUnit(ctx, domain.Unit{Name: "Milliliter", Kind: domain.UnitVolume, ToBase: "1"}))

	must(st.CreateIngredientCategory(ctx, domain.IngredientCategory{Name: "Flours", Position: 1}))
	must(st.CreateIngredientCategory(ctx, domain.IngredientCategory{Name: "Dairy", Position: 2}))

	must(st.CreateSupplier(ctx, domain.Supplier{
		Name:    "Moulin Rouge",
		Contact: json.RawMessage(`{"email":"orders@moulin.example","tags":["<preferred> & local"]}`),
		Active:  true,
	}))
	must(st.CreateSupplier(ctx, domain.Supplier{Name: "Old Mill", Active: false}))

	must(st.CreateStorageLocation(ctx, domain.StorageLocation{Name: "Pantry", TempBand: domain.TempAmbient}))
	must(st.CreateStorageLocation(ctx, domain.StorageLocation{Name: "Walk-In", TempBand: domain.TempChilled}))

	must(st.CreateRecipeCategory(ctx, domain.RecipeCategory{Name: "Breads"}))
	must(st.CreateRecipeCategory(ctx, domain.RecipeCategory{Name: "Pastries"}))

	must(st.CreateIngredient(ctx, domain.Ingredient{
		Slug:              "t55-flour",
		Name:              "T55 Flour",
		Category:          "flours",
		BaseUnit:          "gram",
		PreferredSupplier: "moulin-rouge",
		DefaultLocation:   "pantry",
		CostCents:         120,
		Allergens:         json.RawMessage(`["gluten"]`),
		ShelfLifeDays:     180,
	}))
	must(st.CreateIngredient(ctx, domain.Ingredient{
		Slug:            "butter",
		Name:            "Beurre d'Isigny",
		Category:        "dairy",
		BaseUnit:        "gram",
		DefaultLocation: "walk-in",
		CostCents:       950,
		Allergens:       json.RawMessage(`["milk"]`),
		Perishable:      true,
		ShelfLifeDays:   21,
	}))
	must(st.CreateIngredient(ctx, domain.Ingredient{
		Slug:      "sea-salt",
		Name:      "Sea Salt",
		Category:  "flours",
		BaseUnit:  "gram",
		CostCents: 80,
	}))

	must(st.CreateIngredientLot(ctx, domain.IngredientLot{
		LotCode:    "LOT-2026-001",
		Ingredient: "t55-flour",
		Supplier:   "moulin-rouge",
		Quantity:   "25000",
		CostCents:  3000,
		ReceivedAt: time.Date(2026, 1, 10, 6, 30, 0, 0, time.UTC),
		ExpiresAt:  ptrTime(time.Date(2026, 7, 10, 0, 0, 0, 0, time.UTC)),
	}))
	must(st.CreateIngredientLot(ctx, domain.IngredientLot{
		LotCode:    "LOT-2026-002",
		Ingredient: "butter",
		Quantity:   "5000",
		CostCents:  4750,
		ReceivedAt: time.Date(2026, 1, 12, 7, 0, 0, 0, time.UTC),
	}))

	must(st.CreateRecipe(ctx, domain.Recipe{
		Slug:          "baguette-tradition",
		Name:          "Baguette Tradition",
		Category:      "breads",
		YieldQuantity: "12",
		YieldUnit:     "each",
		Instructions:  json.RawMessage(`{"steps":["autolyse","bulk <4h> & fold","shape","bake"]}`),
		Notes:         "keep hydration at 72%",
	}))
	must(st.CreateRecipe(ctx, domain.Recipe{
		Slug:          "croissant",
		Name:          "Croissant",
		Category:      "pastries",
		YieldQuantity: "24",
		YieldUnit:     "each",
	}))

	must(st.CreateRecipeIngredient(ctx, domain.RecipeIngredient{
		Recipe: "baguette-tradition", Ingredient: "t55-flour", Unit: "gram", Quantity: "1000", Position: 1,
	}))
	must(st.CreateRecipeIngredient(ctx, domain.RecipeIngredient{
		Recipe: "baguette-tradition", Ingredient: "sea-salt", Unit: "gram", Quantity: "18", Position: 2, Note: "fine",
	}))
	must(st.CreateRecipeIngredient(ctx, domain.RecipeIngredient{
		Recipe: "croissant", Ingredient: "t55-flour", Unit: "gram", Quantity: "1000", Position: 1,
	}))
	must(st.CreateRecipeIngredient(ctx, domain.RecipeIngredient{
		Recipe: "croissant", Ingredient: "butter", Unit: "gram", Quantity: "500", Position: 2, Note: "cold, laminated",
	}))

	must(st.CreateRecipeSnapshot(ctx, domain.RecipeSnapshot{
		Recipe:     "baguette-tradition",
		Version:    1,
		CapturedAt: time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC),
		Document:   json.RawMessage(`{"name":"Baguette Tradition","yield":"12"}`),
		Reason:     "initial freeze",
	}))
	must(st.CreateRecipeSnapshot(ctx, domain.RecipeSnapshot{
		Recipe:     "croissant",
		Version:    1,
		CapturedAt: time.Date(2026, 1, 16, 9, 0, 0, 0, time.UTC),
		Document:   json.RawMessage(`{"name":"Croissant","yield":"24"}`),
	}))

	must(st.CreateFinishedGood(ctx, domain.FinishedGood{
		Slug: "baguette", Name: "Baguette", Recipe: "baguette-tradition", SellUnit: "each", PriceCents: 450, Active: true,
	}))
	must(st.CreateFinishedGood(ctx, domain.FinishedGood{
		Slug: "croissant-beurre", Name: "Croissant au Beurre", Recipe: "croissant", SellUnit: "each", PriceCents: 380, Active: true,
	}))
	must(st.CreateFinishedGood(ctx, domain.FinishedGood{
		Slug: "canele", Name: "Canelé", SellUnit: "each", PriceCents: 520, Active: false,
	}))

	must(st.CreateProductionRun(ctx, domain.ProductionRun{
		RunCode:     "RUN-2026-01-20-A",
		Snapshot:    "baguette-tradition-v1",
		Good:        "baguette",
		PlannedQty:  60,
		ProducedQty: 58,
		Status:      domain.RunCompleted,
		StartedAt:   time.Date(2026, 1, 20, 4, 30, 0, 0, time.UTC),
		CompletedAt: ptrTime(time.Date(2026, 1, 20, 9, 0, 0, 0, time.UTC)),
		Notes:       "oven #2 ran hot",
	}))
	must(st.CreateProductionRun(ctx, domain.ProductionRun{
		RunCode:    "RUN-2026-01-21-B",
		Snapshot:   "croissant-v1",
		Good:       "croissant-beurre",
		PlannedQty: 40,
		Status:     domain.RunPlanned,
		StartedAt:  time.Date(2026, 1, 21, 4, 30, 0, 0, time.UTC),
	}))

	must(st.CreateRunConsumption(ctx, domain.RunConsumption{
		Run: "RUN-2026-01-20-A", Ingredient: "t55-flour", Lot: "LOT-2026-001", Unit: "gram", Quantity: "5000",
		RecordedAt: time.Date(2026, 1, 20, 5, 0, 0, 0, time.UTC),
	}))
	must(st.CreateRunConsumption(ctx, domain.RunConsumption{
		Run: "RUN-2026-01-20-A", Ingredient: "sea-salt", Unit: "gram", Quantity: "90",
		RecordedAt: time.Date(2026, 1, 20, 5, 5, 0, 0, time.UTC),
	}))

	must(st.CreateInventoryCount(ctx, domain.InventoryCount{
		Ingredient: "t55-flour", Location: "pantry", Quantity: "18500",
		CountedAt: time.Date(2026, 1, 22, 17, 0, 0, 0, time.UTC), Note: "after run A",
	}))
	must(st.CreateInventoryCount(ctx, domain.InventoryCount{
		Ingredient: "butter", Quantity: "3200",
		CountedAt: time.Date(2026, 1, 22, 17, 10, 0, 0, time.UTC),
	}))

	must(st.CreateEvent(ctx, domain.Event{
		Slug:     "spring-market",
		Name:     "Spring Market",
		Venue:    "Place du Marché",
		Status:   domain.EventConfirmed,
		StartsAt: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC),
		EndsAt:   time.Date(2026, 3, 1, 14, 0, 0, 0, time.UTC),
		Details:  json.RawMessage(`{"fee_cents":4500,"stall":"B12"}`),
	}))
	must(st.CreateEvent(ctx, domain.Event{
		Slug:     "winter-fair",
		Name:     "Winter Fair",
		Status:   domain.EventPlanned,
		StartsAt: time.Date(2026, 12, 12, 9, 0, 0, 0, time.UTC),
		EndsAt:   time.Date(2026, 12, 12, 18, 0, 0, 0, time.UTC),
	}))

	must(st.CreateEventMenuItem(ctx, domain.EventMenuItem{
		Event: "spring-market", Good: "baguette", PlannedQty: 40, Position: 1,
	}))
	must(st.CreateEventMenuItem(ctx, domain.EventMenuItem{
		Event: "spring-market", Good: "croissant-beurre", PlannedQty: 60, PriceCentsOverride: ptrInt64(350), Position: 2,
	}))

	must(st.CreateWasteLog(ctx, domain.WasteLog{
		Good: "baguette", Run: "RUN-2026-01-20-A", Quantity: 2, Reason: "burnt batch",
		LoggedAt: time.Date(2026, 1, 20, 9, 15, 0, 0, time.UTC),
	}))
	must(st.CreateWasteLog(ctx, domain.WasteLog{
		Quantity: 1, Reason: "dropped tray",
		LoggedAt: time.Date(2026, 1, 23, 12, 0, 0, 0, time.UTC),
	}))
}

// exportArchive exports st into a fresh directory with the pinned
// clock and returns the directory.
func exportArchive(t *testing.T, st *store.Store) string {
	t.Helper()
	dir := t.TempDir()
	exp := NewExporter(st, DefaultRegistry(), WithClock(exportClock))
	_, err := exp.Export(context.Background(), dir)
	require.NoError(t, err)
	return dir
}

func readArchiveManifest(t *testing.T, dir string) *Manifest {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, ManifestName))
	require.NoError(t, err)
	m, err := decodeManifest(data)
	require.NoError(t, err)
	return m
}

func writeArchiveManifest(t *testing.T, dir string, m *Manifest) {
	t.Helper()
	data, err := encodeManifest(m)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ManifestName), data, 0o644))
}

func readEnvelopeFile(t *testing.T, dir, entityType string) *envelope {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, entityFileName(entityType)))
	require.NoError(t, err)
	env, err := decodeEnvelope(entityFileName(entityType), data)
	require.NoError(t, err)
	return env
}

// writeEntityFile rewrites one entity file with the given records and
// patches the manifest so counts and checksums stay consistent. Used
// to build otherwise-valid archives with targeted defects.
func writeEntityFile(t *testing.T, dir, entityType string, records []json.RawMessage) {
	t.Helper()
	data := encodeEnvelope(entityType, records)
	require.NoError(t, os.WriteFile(filepath.Join(dir, entityFileName(entityType)), data, 0o644))

	m := readArchiveManifest(t, dir)
	patched := false
	for i := range m.Files {
		if m.Files[i].EntityType == entityType {
			m.Files[i].RecordCount = len(records)
			m.Files[i].Checksum = fileChecksum(data)
			patched = true
		}
	}
	require.True(t, patched, "entity type %s not in manifest", entityType)
	writeArchiveManifest(t, dir, m)
}

// mutateRecord finds the first record of entityType matching pick,
// applies mutate, and rewrites the archive consistently.
func mutateRecord[T any](t *testing.T, dir, entityType string, pick func(T) bool, mutate func(*T)) {
	t.Helper()
	env := readEnvelopeFile(t, dir, entityType)
	for i, raw := range env.Records {
		var rec T
		require.NoError(t, json.Unmarshal(raw, &rec))
		if !pick(rec) {
			continue
		}
		mutate(&rec)
		out, err := marshalRecord(rec)
		require.NoError(t, err)
		env.Records[i] = out
		writeEntityFile(t, dir, entityType, env.Records)
		return
	}
	t.Fatalf("no %s record matched", entityType)
}

// requireCounts checks the row count of every registered table.
func requireCounts(t *testing.T, st *store.Store, want map[string]int) {
	t.Helper()
	ctx := context.Background()
	for _, entityType := range DefaultRegistry().Types() {
		n, err := st.CountRows(ctx, entityType)
		require.NoError(t, err)
		require.Equal(t, want[entityType], n, "row count for %s", entityType)
	}
}

// countFor returns the summary entry for one entity type.
func countFor(t *testing.T, sum *ImportSummary, entityType string) TypeCount {
	t.Helper()
	for _, c := range sum.Counts {
		if c.EntityType == entityType {
			return c
		}
	}
	t.Fatalf("no summary entry for %s", entityType)
	return TypeCount{}
}
