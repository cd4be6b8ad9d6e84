package domain

import (
	"encoding/json"
	"time"
)

// Unit kinds.
const (
	UnitMass   = "mass"
	UnitVolume = "volume"
	UnitCount  = "count"
)

// Storage temperature bands.
const (
	TempAmbient = "ambient"
	TempChilled = "chilled"
	TempFrozen  = "frozen"
)

// Production run statuses.
const (
	RunPlanned    = "planned"
	RunInProgress = "in_progress"
	RunCompleted  = "completed"
	RunCancelled  = "cancelled"
)

// Event statuses.
const (
	EventPlanned   = "planned"
	EventConfirmed = "confirmed"
	EventDone      = "done"
	EventCancelled = "cancelled"
)

// Cross-entity references in these structs are natural keys (slugs and
// codes), never database rowids. The store resolves them on insert.
// Quantities are decimal strings and money is integer cents; nothing in
// the data model is a float.

// Setting is a single app preference. Value is opaque JSON.
type Setting struct {
	Key   string
	Value json.RawMessage
}

// Unit is a measurement unit. ToBase is the decimal conversion factor
// to the kind's base unit (grams, milliliters, or each).
type Unit struct {
	Slug   string // derived from Name when empty
	Name   string
	Kind   string // UnitMass | UnitVolume | UnitCount
	ToBase string
}

type IngredientCategory struct {
	Slug     string
	Name     string
	Position int
}

type Supplier struct {
	Slug    string
	Name    string
	Contact json.RawMessage // optional: phones, emails, address
	Active  bool
}

type StorageLocation struct {
	Slug     string
	Name     string
	TempBand string // TempAmbient | TempChilled | TempFrozen
}

type RecipeCategory struct {
	Slug string
	Name string
}

type Ingredient struct {
	Slug              string
	Name              string
	Category          string // ingredient category slug
	BaseUnit          string // unit slug
	PreferredSupplier string // supplier slug, optional
	DefaultLocation   string // storage location slug, optional
	CostCents         int64  // cost per base unit
	Allergens         json.RawMessage
	Perishable        bool
	ShelfLifeDays     int // 0 = not applicable
}

// IngredientLot is a received batch of an ingredient. Quantity is in
// the ingredient's base unit.
type IngredientLot struct {
	LotCode    string
	Ingredient string // ingredient slug
	Supplier   string // supplier slug, optional
	Quantity   string
	CostCents  int64
	ReceivedAt time.Time
	ExpiresAt  *time.Time
}

type Recipe struct {
	Slug          string
	Name          string
	Category      string // recipe category slug, optional
	YieldQuantity string
	YieldUnit     string // unit slug
	Instructions  json.RawMessage
	Notes         string
}

type RecipeIngredient struct {
	Recipe     string // recipe slug
	Ingredient string // ingredient slug
	Unit       string // unit slug
	Quantity   string
	Position   int
	Note       string
}

// RecipeSnapshot freezes a recipe at a point in time. Document carries
// the full recipe as JSON; production runs reference the snapshot so
// later recipe edits never rewrite history. Snapshots are insert-only.
type RecipeSnapshot struct {
	Recipe     string // recipe slug; code is derived as <slug>-v<version>
	Version    int
	CapturedAt time.Time
	Document   json.RawMessage
	Reason     string
}

type FinishedGood struct {
	Slug       string
	Name       string
	Recipe     string // recipe slug, optional (resale items have none)
	SellUnit   string // unit slug
	PriceCents int64
	Active     bool
}

type ProductionRun struct {
	RunCode     string
	Snapshot    string // recipe snapshot code
	Good        string // finished good slug, optional
	PlannedQty  int
	ProducedQty int
	Status      string // RunPlanned | RunInProgress | RunCompleted | RunCancelled
	StartedAt   time.Time
	CompletedAt *time.Time
	Notes       string
}

type RunConsumption struct {
	Run        string // production run code
	Ingredient string // ingredient slug
	Lot        string // ingredient lot code, optional
	Unit       string // unit slug
	Quantity   string
	RecordedAt time.Time
}

type InventoryCount struct {
	Ingredient string // ingredient slug
	Location   string // storage location slug, optional
	Quantity   string
	CountedAt  time.Time
	Note       string
}

type Event struct {
	Slug     string
	Name     string
	Venue    string
	Status   string // EventPlanned | EventConfirmed | EventDone | EventCancelled
	StartsAt time.Time
	EndsAt   time.Time
	Details  json.RawMessage
}

type EventMenuItem struct {
	Event              string // event slug
	Good               string // finished good slug
	PlannedQty         int
	PriceCentsOverride *int64
	Position           int
}

// WasteLog records discarded product. Good and Run are both optional;
// a generic waste entry may reference neither.
type WasteLog struct {
	Good     string // finished good slug, optional
	Run      string // production run code, optional
	Quantity int
	Reason   string
	LoggedAt time.Time
}
