// Package archive implements the portable export/import format for
// the whole database.
//
// An archive is a directory of JSON files: one entity file per type
// plus manifest.json, which records a SHA-256 checksum, record count
// and import order for every entity file. Records reference each
// other by natural key (slug or code), never by database rowid, so an
// archive restores cleanly into a fresh database where every rowid
// differs.
//
// Export is read-only and deterministic: identical database contents
// produce byte-identical files. Import validates everything up front
// (checksums, then schemas, then record shape) and rebuilds the
// database inside one transaction: delete every type in reverse
// import order, insert every record in import order. A structural
// problem rolls the whole transaction back; a record whose reference
// cannot be resolved is skipped with a warning and the rest of the
// archive still lands.
package archive
