package archive

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/tartinelabs/banneton/internal/domain"
	"github.com/tartinelabs/banneton/internal/store"
)

// Exporter dumps the complete database into an archive directory: one
// entity file per registered type plus the manifest, written last.
type Exporter struct {
	store *store.Store
	reg   *Registry
	now   func() time.Time
}

// ExporterOption configures an Exporter.
type ExporterOption func(*Exporter)

// WithClock pins the manifest's generated_at timestamp. The round-trip
// verifier and golden tests use this; production takes wall time.
func WithClock(now func() time.Time) ExporterOption {
	return func(e *Exporter) { e.now = now }
}

// NewExporter creates an exporter over a sealed registry.
func NewExporter(st *store.Store, reg *Registry, opts ...ExporterOption) *Exporter {
	e := &Exporter{store: st, reg: reg, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Export writes the archive into dir, creating it if needed. Existing
// archive files are overwritten.
//
// All strategies read through one transaction, so the archive is an
// internally consistent snapshot even if the app writes concurrently.
// Export never mutates the database, and identical database contents
// produce byte-identical archives (given a pinned clock).
func (e *Exporter) Export(ctx context.Context, dir string) (*Manifest, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("export: create directory: %w", err)
	}

	tx, err := e.store.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("export: begin snapshot: %w", err)
	}
	defer tx.Rollback() // read-only use; always rolled back
	slog.Debug("snapshot open", "phase", PhaseSnapshot, "dir", dir)

	manifest := &Manifest{
		FormatVersion: FormatVersion,
		GeneratedAt:   domain.FormatTime(e.now()),
	}

	for _, strat := range e.reg.ImportOrder() {
		d := strat.Descriptor()
		records, err := strat.Export(ctx, tx)
		if err != nil {
			return nil, fmt.Errorf("export %s: %w", d.EntityType, err)
		}

		data := encodeEnvelope(d.EntityType, records)
		name := entityFileName(d.EntityType)
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
			return nil, fmt.Errorf("export %s: write %s: %w", d.EntityType, name, err)
		}

		deps := d.Dependencies
		if deps == nil {
			deps = []string{}
		}
		manifest.Files = append(manifest.Files, FileDescriptor{
			EntityType:   d.EntityType,
			RecordCount:  len(records),
			Checksum:     fileChecksum(data),
			ImportOrder:  d.ImportOrder,
			Dependencies: deps,
		})
		slog.Debug("exported entity type", "phase", PhaseWrite, "entity_type", d.EntityType, "records", len(records))
	}

	data, err := encodeManifest(manifest)
	if err != nil {
		return nil, fmt.Errorf("export: encode manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ManifestName), data, 0o644); err != nil {
		return nil, fmt.Errorf("export: write manifest: %w", err)
	}

	slog.Info("export complete",
		"phase", PhaseDone,
		"dir", dir,
		"entity_types", len(manifest.Files),
		"records", manifest.TotalRecords(),
	)
	return manifest, nil
}
