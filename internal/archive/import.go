package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/tartinelabs/banneton/internal/store"
)

// Importer replaces the database contents from an archive directory.
type Importer struct {
	store *store.Store
	reg   *Registry
}

// NewImporter creates an importer over a sealed registry.
func NewImporter(st *store.Store, reg *Registry) *Importer {
	return &Importer{store: st, reg: reg}
}

// ImportWarning describes one record skipped because a reference named
// a natural key that does not exist after the archive is applied.
type ImportWarning struct {
	EntityType string `json:"entity_type"`
	Record     string `json:"record"`
	Field      string `json:"field"`
	Missing    string `json:"missing"`
}

func (w ImportWarning) String() string {
	return fmt.Sprintf("%s %q skipped: %s %q not found", w.EntityType, w.Record, w.Field, w.Missing)
}

// TypeCount reports imported and skipped records for one entity type.
type TypeCount struct {
	EntityType string `json:"entity_type"`
	Imported   int    `json:"imported"`
	Skipped    int    `json:"skipped"`
}

// ImportSummary is the result of a committed import. Counts appear in
// import order and cover every registered type, including empty ones.
type ImportSummary struct {
	Counts   []TypeCount     `json:"counts"`
	Warnings []ImportWarning `json:"warnings"`
}

// TotalImported sums imported records across all types.
func (s *ImportSummary) TotalImported() int {
	total := 0
	for _, c := range s.Counts {
		total += c.Imported
	}
	return total
}

// TotalSkipped sums skipped records across all types.
func (s *ImportSummary) TotalSkipped() int {
	total := 0
	for _, c := range s.Counts {
		total += c.Skipped
	}
	return total
}

// importReport accumulates per-type counts and warnings while the
// strategies run inside the transaction.
type importReport struct {
	imported map[string]int
	skipped  map[string]int
	warnings []ImportWarning
}

func newImportReport() *importReport {
	return &importReport{
		imported: make(map[string]int),
		skipped:  make(map[string]int),
	}
}

func (r *importReport) markImported(entityType string) {
	r.imported[entityType]++
}

// skip records a warning for one unresolvable record. The record is
// left out of the database; the import itself continues.
func (r *importReport) skip(entityType, record, field, missing string) {
	r.skipped[entityType]++
	r.warnings = append(r.warnings, ImportWarning{
		EntityType: entityType,
		Record:     record,
		Field:      field,
		Missing:    missing,
	})
	slog.Warn("skipping record with unresolved reference",
		"entity_type", entityType,
		"record", record,
		"field", field,
		"missing", missing,
	)
}

func (r *importReport) summary(reg *Registry) *ImportSummary {
	s := &ImportSummary{Warnings: r.warnings}
	for _, strat := range reg.ImportOrder() {
		t := strat.Descriptor().EntityType
		s.Counts = append(s.Counts, TypeCount{
			EntityType: t,
			Imported:   r.imported[t],
			Skipped:    r.skipped[t],
		})
	}
	return s
}

// Import validates the archive in dir and applies it inside a single
// transaction: existing rows are deleted in reverse import order, then
// archive records are inserted in import order.
//
// Any structural problem (unreadable or tampered file, malformed
// record, insert failure) rolls the whole transaction back and leaves
// the database exactly as it was. Records whose references point at
// natural keys absent from the restored data are skipped with a
// warning; skips never fail the import.
func (im *Importer) Import(ctx context.Context, dir string) (*ImportSummary, error) {
	manifest, err := im.readManifest(dir)
	if err != nil {
		return nil, err
	}

	records, err := im.readEntityFiles(dir, manifest)
	if err != nil {
		return nil, err
	}

	// One transaction covers cleanup and restore, so a failure at any
	// point restores the pre-import state.
	tx, err := im.store.BeginTx(ctx)
	if err != nil {
		return nil, &ArchiveError{Code: ErrCodeTx, Phase: PhaseCleanup, Message: "begin transaction", Err: err}
	}
	defer tx.Rollback()

	if err := clearAll(ctx, tx, im.reg); err != nil {
		return nil, err
	}

	rep := newImportReport()
	for _, strat := range im.reg.ImportOrder() {
		d := strat.Descriptor()
		recs, ok := records[d.EntityType]
		if !ok {
			// Registered here but absent from the archive: treated as
			// empty so archives from older versions stay importable.
			slog.Debug("entity type not in archive", "entity_type", d.EntityType)
			continue
		}
		if err := strat.Import(ctx, tx, recs, rep); err != nil {
			return nil, err
		}
		slog.Debug("imported entity type",
			"phase", PhaseRestore,
			"entity_type", d.EntityType,
			"imported", rep.imported[d.EntityType],
			"skipped", rep.skipped[d.EntityType],
		)
	}

	if err := tx.Commit(); err != nil {
		return nil, &ArchiveError{Code: ErrCodeTx, Phase: PhaseRestore, Message: "commit transaction", Err: err}
	}

	summary := rep.summary(im.reg)
	slog.Info("import complete",
		"phase", PhaseDone,
		"dir", dir,
		"imported", summary.TotalImported(),
		"skipped", summary.TotalSkipped(),
	)
	return summary, nil
}

// readManifest loads, schema-validates and decodes the manifest, then
// checks that every file entry names a registered type exactly once.
func (im *Importer) readManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestName))
	if err != nil {
		return nil, &ArchiveError{Code: ErrCodeManifest, Phase: PhaseManifest, File: ManifestName, Message: "cannot read manifest", Err: err}
	}
	if err := validateManifest(data); err != nil {
		return nil, err
	}
	manifest, err := decodeManifest(data)
	if err != nil {
		return nil, err
	}
	if manifest.FormatVersion > FormatVersion {
		return nil, &ArchiveError{
			Code: ErrCodeManifest, Phase: PhaseManifest, File: ManifestName,
			Message: fmt.Sprintf("format version %d is newer than supported version %d", manifest.FormatVersion, FormatVersion),
		}
	}

	seen := make(map[string]bool, len(manifest.Files))
	for _, fd := range manifest.Files {
		if _, ok := im.reg.Lookup(fd.EntityType); !ok {
			return nil, &ArchiveError{
				Code: ErrCodeManifest, Phase: PhaseManifest, EntityType: fd.EntityType, File: ManifestName,
				Message: "unknown entity type",
			}
		}
		if seen[fd.EntityType] {
			return nil, &ArchiveError{
				Code: ErrCodeManifest, Phase: PhaseManifest, EntityType: fd.EntityType, File: ManifestName,
				Message: "duplicate entity type in manifest",
			}
		}
		seen[fd.EntityType] = true
	}
	return manifest, nil
}

// readEntityFiles verifies every checksum before parsing anything, then
// schema-validates and decodes each envelope and cross-checks it
// against its manifest entry. Nothing touches the database until all
// files have passed.
func (im *Importer) readEntityFiles(dir string, manifest *Manifest) (map[string][]json.RawMessage, error) {
	files := make(map[string][]byte, len(manifest.Files))
	for _, fd := range manifest.Files {
		name := fd.File()
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, &ArchiveError{Code: ErrCodeFile, Phase: PhaseVerify, EntityType: fd.EntityType, File: name, Message: "cannot read entity file", Err: err}
		}
		if sum := fileChecksum(data); sum != fd.Checksum {
			return nil, &ArchiveError{
				Code: ErrCodeChecksum, Phase: PhaseVerify, EntityType: fd.EntityType, File: name,
				Message: fmt.Sprintf("checksum %s does not match manifest %s", sum, fd.Checksum),
			}
		}
		files[fd.EntityType] = data
	}

	records := make(map[string][]json.RawMessage, len(manifest.Files))
	for _, fd := range manifest.Files {
		name := fd.File()
		data := files[fd.EntityType]
		if err := validateEnvelope(name, data); err != nil {
			return nil, err
		}
		env, err := decodeEnvelope(name, data)
		if err != nil {
			return nil, err
		}
		if env.EntityType != fd.EntityType {
			return nil, &ArchiveError{
				Code: ErrCodeEnvelope, Phase: PhaseVerify, EntityType: fd.EntityType, File: name,
				Message: fmt.Sprintf("entity type %q does not match manifest", env.EntityType),
			}
		}
		if env.FormatVersion > FormatVersion {
			return nil, &ArchiveError{
				Code: ErrCodeEnvelope, Phase: PhaseVerify, EntityType: fd.EntityType, File: name,
				Message: fmt.Sprintf("format version %d is newer than supported version %d", env.FormatVersion, FormatVersion),
			}
		}
		if env.RecordCount != len(env.Records) {
			return nil, &ArchiveError{
				Code: ErrCodeEnvelope, Phase: PhaseVerify, EntityType: fd.EntityType, File: name,
				Message: fmt.Sprintf("record_count %d does not match %d records", env.RecordCount, len(env.Records)),
			}
		}
		if env.RecordCount != fd.RecordCount {
			return nil, &ArchiveError{
				Code: ErrCodeEnvelope, Phase: PhaseVerify, EntityType: fd.EntityType, File: name,
				Message: fmt.Sprintf("record_count %d does not match manifest %d", env.RecordCount, fd.RecordCount),
			}
		}
		records[fd.EntityType] = env.Records
	}
	return records, nil
}

// clearAll deletes every registered type in deletion order, the exact
// reverse of import order, so child rows go before their parents and
// no foreign key constraint ever trips.
func clearAll(ctx context.Context, tx *sql.Tx, reg *Registry) error {
	for _, strat := range reg.DeletionOrder() {
		d := strat.Descriptor()
		n, err := strat.Clear(ctx, tx)
		if err != nil {
			return &ArchiveError{Code: ErrCodeTx, Phase: PhaseCleanup, EntityType: d.EntityType, Message: "clear failed", Err: err}
		}
		slog.Debug("cleared entity type", "phase", PhaseCleanup, "entity_type", d.EntityType, "deleted", n)
	}
	return nil
}
