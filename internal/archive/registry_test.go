package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubStrategy struct {
	d Descriptor
}

func (s stubStrategy) Descriptor() Descriptor { return s.d }

func (s stubStrategy) Export(context.Context, *sql.Tx) ([]json.RawMessage, error) {
	return nil, nil
}

func (s stubStrategy) Import(context.Context, *sql.Tx, []json.RawMessage, *importReport) error {
	return nil
}

func (s stubStrategy) Clear(context.Context, *sql.Tx) (int64, error) {
	return 0, nil
}

func TestRegistryRegisterRejectsBadDescriptors(t *testing.T) {
	tests := []struct {
		name string
		d    Descriptor
		want RegistryErrorReason
	}{
		{
			name: "empty type name",
			d:    Descriptor{EntityType: "", ImportOrder: 10},
			want: ReasonInvalidType,
		},
		{
			name: "uppercase type name",
			d:    Descriptor{EntityType: "Units", ImportOrder: 10},
			want: ReasonInvalidType,
		},
		{
			name: "type name with spaces",
			d:    Descriptor{EntityType: "waste logs", ImportOrder: 10},
			want: ReasonInvalidType,
		},
		{
			name: "zero import order",
			d:    Descriptor{EntityType: "units", ImportOrder: 0},
			want: ReasonInvalidOrder,
		},
		{
			name: "negative import order",
			d:    Descriptor{EntityType: "units", ImportOrder: -20},
			want: ReasonInvalidOrder,
		},
		{
			name: "self dependency",
			d:    Descriptor{EntityType: "units", ImportOrder: 10, Dependencies: []string{"units"}},
			want: ReasonSelfDependency,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := NewRegistry()
			err := reg.Register(stubStrategy{d: tt.d})
			require.Error(t, err)
			assert.True(t, IsRegistryError(err, tt.want), "got %v, want reason %s", err, tt.want)
		})
	}
}

func TestRegistryRegisterRejectsDuplicates(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(stubStrategy{d: Descriptor{EntityType: "units", ImportOrder: 10}}))

	err := reg.Register(stubStrategy{d: Descriptor{EntityType: "units", ImportOrder: 20}})
	assert.True(t, IsRegistryError(err, ReasonDuplicateType), "got %v", err)

	err = reg.Register(stubStrategy{d: Descriptor{EntityType: "suppliers", ImportOrder: 10}})
	assert.True(t, IsRegistryError(err, ReasonDuplicateOrder), "got %v", err)
}

func TestRegistrySealRejectsUnknownDependency(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(stubStrategy{d: Descriptor{
		EntityType:   "ingredients",
		ImportOrder:  20,
		Dependencies: []string{"units"},
	}}))

	err := reg.Seal()
	require.Error(t, err)
	assert.True(t, IsRegistryError(err, ReasonUnknownDependency), "got %v", err)
}

func TestRegistrySealRejectsOrderConflict(t *testing.T) {
	// The dependency is registered, but its declared order puts it
	// after its dependent.
	reg := NewRegistry()
	require.NoError(t, reg.Register(stubStrategy{d: Descriptor{EntityType: "units", ImportOrder: 30}}))
	require.NoError(t, reg.Register(stubStrategy{d: Descriptor{
		EntityType:   "ingredients",
		ImportOrder:  20,
		Dependencies: []string{"units"},
	}}))

	err := reg.Seal()
	require.Error(t, err)
	assert.True(t, IsRegistryError(err, ReasonOrderConflict), "got %v", err)
}

func TestRegistrySealedRejectsFurtherRegistration(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(stubStrategy{d: Descriptor{EntityType: "units", ImportOrder: 10}}))
	require.NoError(t, reg.Seal())

	err := reg.Register(stubStrategy{d: Descriptor{EntityType: "suppliers", ImportOrder: 20}})
	assert.True(t, IsRegistryError(err, ReasonSealed), "got %v", err)
}

func TestRegistryOrderings(t *testing.T) {
	// Registration order is scrambled on purpose; Seal sorts by the
	// declared integers.
	reg := NewRegistry()
	require.NoError(t, reg.Register(stubStrategy{d: Descriptor{EntityType: "c", ImportOrder: 30, Dependencies: []string{"a"}}}))
	require.NoError(t, reg.Register(stubStrategy{d: Descriptor{EntityType: "a", ImportOrder: 10}}))
	require.NoError(t, reg.Register(stubStrategy{d: Descriptor{EntityType: "b", ImportOrder: 20, Dependencies: []string{"a"}}}))
	require.NoError(t, reg.Seal())

	assert.Equal(t, []string{"a", "b", "c"}, reg.Types())

	var deletion []string
	for _, s := range reg.DeletionOrder() {
		deletion = append(deletion, s.Descriptor().EntityType)
	}
	assert.Equal(t, []string{"c", "b", "a"}, deletion)

	_, ok := reg.Lookup("b")
	assert.True(t, ok)
	_, ok = reg.Lookup("missing")
	assert.False(t, ok)
}

func TestRegistryPanicsWhenUnsealed(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(stubStrategy{d: Descriptor{EntityType: "units", ImportOrder: 10}}))

	assert.Panics(t, func() { reg.ImportOrder() })
	assert.Panics(t, func() { reg.DeletionOrder() })
	assert.Panics(t, func() { reg.Types() })
}

func TestDefaultRegistry(t *testing.T) {
	reg := DefaultRegistry()

	want := []string{
		"settings",
		"units",
		"ingredient_categories",
		"suppliers",
		"storage_locations",
		"recipe_categories",
		"ingredients",
		"ingredient_lots",
		"recipes",
		"recipe_ingredients",
		"recipe_snapshots",
		"finished_goods",
		"production_runs",
		"run_consumptions",
		"inventory_counts",
		"events",
		"event_menu_items",
		"waste_logs",
	}
	require.Equal(t, want, reg.Types())

	// Deletion order is the exact reverse.
	deletion := reg.DeletionOrder()
	order := reg.ImportOrder()
	require.Len(t, deletion, len(order))
	for i, s := range order {
		assert.Equal(t, s.Descriptor().EntityType, deletion[len(deletion)-1-i].Descriptor().EntityType)
	}

	// Every declared dependency is registered with a strictly lower
	// import order.
	for _, s := range order {
		d := s.Descriptor()
		for _, dep := range d.Dependencies {
			target, ok := reg.Lookup(dep)
			require.True(t, ok, "%s depends on unregistered %s", d.EntityType, dep)
			assert.Less(t, target.Descriptor().ImportOrder, d.ImportOrder,
				"%s must import after %s", d.EntityType, dep)
		}
	}
}
