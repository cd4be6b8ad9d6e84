// Package store provides SQLite-backed storage for the bakery database.
//
// One table per entity type, with three identity layers:
//   - id: INTEGER rowid, internal foreign keys only, never exported
//   - uid: UUID TEXT, the durable identity archives carry
//   - slug/code/key: human natural key (UNIQUE) where the type has one;
//     archives resolve cross-entity references through these
//
// # Determinism
//
//   - Timestamps are fixed-width RFC 3339 UTC TEXT (domain.TimeLayout),
//     so lexicographic order is chronological and re-export is
//     byte-stable.
//   - JSON payload columns hold canonical JSON (domain.CanonicalPayload)
//     written once at insert time and copied verbatim ever after.
//   - uid and timestamp minting go through injectable seams
//     (IDGenerator, WithClock) so tests can pin both.
//   - No floats anywhere: money is INTEGER cents, quantities are
//     decimal TEXT.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
