package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"regexp"
	"sort"
)

// Descriptor declares an entity type's place in the archive: its file
// name stem, its position in the import sequence, and the types whose
// records must exist before its own can resolve.
//
// Import order is declared explicitly rather than computed from the
// dependency graph. The integers are spaced (10, 20, 30...) so the
// sequence can be audited by eye and a new type can slot in without
// renumbering. Seal checks that the declared integers agree with every
// declared dependency edge, so a bad declaration cannot survive into a
// running registry.
type Descriptor struct {
	// EntityType is the snake_case type name; also the archive file
	// stem (<EntityType>.json) and the database table name.
	EntityType string

	// ImportOrder positions the type in the import sequence. Must be
	// positive and unique. Deletion order is the exact reverse.
	ImportOrder int

	// Dependencies lists entity types this type references by natural
	// key. Every dependency must be registered with a strictly lower
	// import order.
	Dependencies []string
}

// Strategy is one entity type's archive implementation: how to dump
// its records, restore them, and clear them.
//
// Export must return records in a deterministic order; identical
// database contents must yield identical slices. Import inserts the
// given records inside the caller's transaction, recording
// unresolved-reference skips on the report and returning an error only
// for structural failures. Clear deletes all rows, also inside the
// caller's transaction.
type Strategy interface {
	Descriptor() Descriptor
	Export(ctx context.Context, tx *sql.Tx) ([]json.RawMessage, error)
	Import(ctx context.Context, tx *sql.Tx, records []json.RawMessage, rep *importReport) error
	Clear(ctx context.Context, tx *sql.Tx) (int64, error)
}

var entityTypePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// Registry holds the full set of archivable entity types. Register
// everything, then Seal; a sealed registry validates its dependency
// declarations and hands out the canonical orderings.
type Registry struct {
	strategies map[string]Strategy
	byOrder    map[int]string
	order      []Strategy // ascending ImportOrder, built by Seal
	sealed     bool
}

// NewRegistry creates an empty, unsealed registry.
func NewRegistry() *Registry {
	return &Registry{
		strategies: make(map[string]Strategy),
		byOrder:    make(map[int]string),
	}
}

// Register adds a strategy. Fails on duplicate entity types, duplicate
// or non-positive import orders, malformed type names, and
// self-dependencies. Dependency existence is checked at Seal, so
// registration order is free.
func (r *Registry) Register(s Strategy) error {
	if r.sealed {
		return &RegistryError{EntityType: s.Descriptor().EntityType, Reason: ReasonSealed}
	}

	d := s.Descriptor()
	if !entityTypePattern.MatchString(d.EntityType) {
		return &RegistryError{EntityType: d.EntityType, Reason: ReasonInvalidType}
	}
	if _, exists := r.strategies[d.EntityType]; exists {
		return &RegistryError{EntityType: d.EntityType, Reason: ReasonDuplicateType}
	}
	if d.ImportOrder <= 0 {
		return &RegistryError{EntityType: d.EntityType, Reason: ReasonInvalidOrder}
	}
	if other, exists := r.byOrder[d.ImportOrder]; exists {
		return &RegistryError{EntityType: d.EntityType, Dependency: other, Reason: ReasonDuplicateOrder}
	}
	for _, dep := range d.Dependencies {
		if dep == d.EntityType {
			return &RegistryError{EntityType: d.EntityType, Dependency: dep, Reason: ReasonSelfDependency}
		}
	}

	r.strategies[d.EntityType] = s
	r.byOrder[d.ImportOrder] = d.EntityType
	return nil
}

// Seal validates dependency declarations and freezes the registry.
// After Seal, every dependency is known to be registered with a
// strictly lower import order, so iterating ImportOrder always visits
// parents before children.
func (r *Registry) Seal() error {
	for _, s := range r.strategies {
		d := s.Descriptor()
		for _, dep := range d.Dependencies {
			target, ok := r.strategies[dep]
			if !ok {
				return &RegistryError{EntityType: d.EntityType, Dependency: dep, Reason: ReasonUnknownDependency}
			}
			if target.Descriptor().ImportOrder >= d.ImportOrder {
				return &RegistryError{EntityType: d.EntityType, Dependency: dep, Reason: ReasonOrderConflict}
			}
		}
	}

	r.order = make([]Strategy, 0, len(r.strategies))
	for _, s := range r.strategies {
		r.order = append(r.order, s)
	}
	sort.Slice(r.order, func(i, j int) bool {
		return r.order[i].Descriptor().ImportOrder < r.order[j].Descriptor().ImportOrder
	})

	r.sealed = true
	return nil
}

// mustSealed guards accessors that only make sense on a sealed
// registry. Calling them earlier is a programming error, not a runtime
// condition, hence the panic.
func (r *Registry) mustSealed() {
	if !r.sealed {
		panic("archive: registry is not sealed")
	}
}

// ImportOrder returns strategies in ascending import order. Export
// uses the same sequence.
func (r *Registry) ImportOrder() []Strategy {
	r.mustSealed()
	out := make([]Strategy, len(r.order))
	copy(out, r.order)
	return out
}

// DeletionOrder returns strategies in the exact reverse of import
// order. There is no separate deletion declaration to drift out of
// sync: reversal is derived here and nowhere else.
func (r *Registry) DeletionOrder() []Strategy {
	r.mustSealed()
	out := make([]Strategy, len(r.order))
	for i, s := range r.order {
		out[len(out)-1-i] = s
	}
	return out
}

// Lookup returns the strategy for an entity type.
func (r *Registry) Lookup(entityType string) (Strategy, bool) {
	s, ok := r.strategies[entityType]
	return s, ok
}

// Types returns all entity type names in import order.
func (r *Registry) Types() []string {
	r.mustSealed()
	out := make([]string, len(r.order))
	for i, s := range r.order {
		out[i] = s.Descriptor().EntityType
	}
	return out
}

// Len returns the number of registered entity types.
func (r *Registry) Len() int {
	return len(r.strategies)
}
