package store

import (
	"sync"

	"github.com/google/uuid"
)

// IDGenerator mints the uid carried by every record. The uid is the
// identity that survives export and import, so production uses real
// UUIDs and tests use a fixed sequence.
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 identities.
//
// UUIDv7 embeds a timestamp in the most significant bits, so uids sort
// roughly by creation time, which keeps tie-break ordering in exports
// stable and readable.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 as a hyphenated string.
// Panics if UUID generation fails (should never happen in practice).
func (g UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedIDGenerator returns predetermined uids for testing.
//
// This makes seeded databases byte-reproducible, which golden archive
// tests depend on.
//
// Thread-safety: safe for concurrent use via internal mutex.
type FixedIDGenerator struct {
	mu   sync.Mutex
	uids []string
	idx  int
}

// NewFixedIDGenerator creates a generator that returns uids in order.
//
// Panics when exhausted. This is a fail-fast approach to catch test
// misconfiguration (test created more records than expected).
func NewFixedIDGenerator(uids ...string) *FixedIDGenerator {
	return &FixedIDGenerator{uids: uids}
}

// Generate returns the next predetermined uid.
func (g *FixedIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.uids) {
		panic("FixedIDGenerator: all uids exhausted")
	}
	uid := g.uids[g.idx]
	g.idx++
	return uid
}
