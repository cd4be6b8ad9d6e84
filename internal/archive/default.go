package archive

import "fmt"

// DefaultRegistry returns the sealed registry covering every entity
// type the application knows. The strategy set and its declared orders
// are fixed at compile time, so a failure here is a programming error
// and panics rather than returning.
func DefaultRegistry() *Registry {
	reg := NewRegistry()
	strategies := []Strategy{
		settingsStrategy{},
		unitsStrategy{},
		ingredientCategoriesStrategy{},
		suppliersStrategy{},
		storageLocationsStrategy{},
		recipeCategoriesStrategy{},
		ingredientsStrategy{},
		ingredientLotsStrategy{},
		recipesStrategy{},
		recipeIngredientsStrategy{},
		recipeSnapshotsStrategy{},
		finishedGoodsStrategy{},
		productionRunsStrategy{},
		runConsumptionsStrategy{},
		inventoryCountsStrategy{},
		eventsStrategy{},
		eventMenuItemsStrategy{},
		wasteLogsStrategy{},
	}
	for _, s := range strategies {
		if err := reg.Register(s); err != nil {
			panic(fmt.Sprintf("archive: register %s: %v", s.Descriptor().EntityType, err))
		}
	}
	if err := reg.Seal(); err != nil {
		panic(fmt.Sprintf("archive: seal registry: %v", err))
	}
	return reg
}
