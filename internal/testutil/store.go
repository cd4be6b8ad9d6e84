package testutil

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/tartinelabs/banneton/internal/domain"
	"github.com/tartinelabs/banneton/internal/store"
)

// OpenStore opens a store in a fresh temp directory with fixed uids
// and a stepping clock, so two stores seeded the same way are
// byte-identical. Closed automatically when the test ends.
func OpenStore(t *testing.T) *store.Store {
	t.Helper()
	return OpenStoreAt(t, filepath.Join(t.TempDir(), "bakery.db"))
}

// OpenStoreAt is OpenStore at a caller-chosen path, for tests that
// hand the same path to a command via --db afterwards.
func OpenStoreAt(t *testing.T, path string) *store.Store {
	t.Helper()

	uids := make([]string, 32)
	for i := range uids {
		uids[i] = fmt.Sprintf("00000000-0000-7000-9000-%012d", i+1)
	}
	clock := NewClock(time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC), time.Second)

	st, err := store.Open(path,
		store.WithIDGenerator(store.NewFixedIDGenerator(uids...)),
		store.WithClock(clock.Now),
	)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := st.Close(); err != nil {
			t.Errorf("close store: %v", err)
		}
	})
	return st
}

// SampleCounts is the per-table row count SeedSample produces.
var SampleCounts = map[string]int{
	"settings":              1,
	"units":                 2,
	"ingredient_categories": 1,
	"ingredients":           1,
}

// SampleTotal sums SampleCounts.
func SampleTotal() int {
	total := 0
	for _, n := range SampleCounts {
		total += n
	}
	return total
}

// SeedSample inserts a small bakery: one setting, two units, one
// category and one ingredient. Enough to exercise an export, import
// and verify round trip without the full fixture zoo.
func SeedSample(t *testing.T, st *store.Store) {
	t.Helper()
	ctx := context.Background()

	must := func(_ string, err error) {
		if err != nil {
			t.Fatalf("seed sample: %v", err)
		}
	}

	must(st.CreateSetting(ctx, domain.Setting{Key: "bakery_name", Value: []byte(`{"display":"Fournil Test"}`)}))
	must(st.CreateUnit(ctx, domain.Unit{Name: "Gram", Kind: domain.UnitMass, ToBase: "1"}))
	must(st.CreateUnit(ctx, domain.Unit{Name: "Kilogram", Kind: domain.UnitMass, ToBase: "1000"}))
	must(st.CreateIngredientCategory(ctx, domain.IngredientCategory{Name: "Flours", Position: 1}))
	must(st.CreateIngredient(ctx, domain.Ingredient{
		Name:     "T55 Flour",
		Category: "flours",
		BaseUnit: "gram",
	}))
}
