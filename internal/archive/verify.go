package archive

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/tartinelabs/banneton/internal/domain"
	"github.com/tartinelabs/banneton/internal/store"
)

// VerifyStatus classifies one archive file against a fresh export.
type VerifyStatus string

const (
	// StatusMatch means the archive file is byte-identical to the one a
	// fresh export of the current database produces.
	StatusMatch VerifyStatus = "match"

	// StatusDiffers means the file exists on both sides with different
	// bytes.
	StatusDiffers VerifyStatus = "differs"

	// StatusMissing means a fresh export produces this file but the
	// archive does not contain it.
	StatusMissing VerifyStatus = "missing"

	// StatusExtra means the archive contains a file that a fresh export
	// does not produce.
	StatusExtra VerifyStatus = "extra"
)

// FileStatus is the verification result for one file.
type FileStatus struct {
	File   string       `json:"file"`
	Status VerifyStatus `json:"status"`
}

// VerifyReport compares an archive directory against the current
// database state.
type VerifyReport struct {
	GeneratedAt string       `json:"generated_at"`
	Files       []FileStatus `json:"files"`
}

// Clean reports whether every file matched.
func (r *VerifyReport) Clean() bool {
	for _, f := range r.Files {
		if f.Status != StatusMatch {
			return false
		}
	}
	return true
}

// Verify re-exports the current database into a temporary directory
// with the clock pinned to the archive's generated_at, then compares
// both directories byte for byte. A clean report proves the archive
// and the database describe the same data.
func Verify(ctx context.Context, st *store.Store, reg *Registry, dir string) (*VerifyReport, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestName))
	if err != nil {
		return nil, &ArchiveError{Code: ErrCodeManifest, Phase: PhaseVerify, File: ManifestName, Message: "cannot read manifest", Err: err}
	}
	if err := validateManifest(data); err != nil {
		return nil, err
	}
	manifest, err := decodeManifest(data)
	if err != nil {
		return nil, err
	}
	generatedAt, err := domain.ParseTime(manifest.GeneratedAt)
	if err != nil {
		return nil, &ArchiveError{Code: ErrCodeManifest, Phase: PhaseVerify, File: ManifestName, Message: "invalid generated_at", Err: err}
	}

	tmp, err := os.MkdirTemp("", "banneton-verify-*")
	if err != nil {
		return nil, &ArchiveError{Code: ErrCodeFile, Phase: PhaseVerify, Message: "create scratch directory", Err: err}
	}
	defer os.RemoveAll(tmp)

	exp := NewExporter(st, reg, WithClock(func() time.Time { return generatedAt }))
	if _, err := exp.Export(ctx, tmp); err != nil {
		return nil, err
	}

	report := &VerifyReport{GeneratedAt: manifest.GeneratedAt}

	status, err := compareFile(dir, tmp, ManifestName)
	if err != nil {
		return nil, err
	}
	report.Files = append(report.Files, FileStatus{File: ManifestName, Status: status})

	exported := make(map[string]bool, reg.Len())
	for _, strat := range reg.ImportOrder() {
		name := entityFileName(strat.Descriptor().EntityType)
		exported[name] = true
		status, err := compareFile(dir, tmp, name)
		if err != nil {
			return nil, err
		}
		report.Files = append(report.Files, FileStatus{File: name, Status: status})
	}

	// Archive files no fresh export would produce.
	for _, fd := range manifest.Files {
		if name := fd.File(); !exported[name] {
			report.Files = append(report.Files, FileStatus{File: name, Status: StatusExtra})
		}
	}

	slog.Info("verify complete", "dir", dir, "clean", report.Clean())
	return report, nil
}

// compareFile reads name from both directories. The fresh-export side
// always has the file; only the archive side may lack it.
func compareFile(archiveDir, exportDir, name string) (VerifyStatus, error) {
	want, err := os.ReadFile(filepath.Join(exportDir, name))
	if err != nil {
		return "", &ArchiveError{Code: ErrCodeFile, Phase: PhaseVerify, File: name, Message: "cannot read fresh export", Err: err}
	}
	got, err := os.ReadFile(filepath.Join(archiveDir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return StatusMissing, nil
	}
	if err != nil {
		return "", &ArchiveError{Code: ErrCodeFile, Phase: PhaseVerify, File: name, Message: "cannot read archive file", Err: err}
	}
	if !bytes.Equal(got, want) {
		return StatusDiffers, nil
	}
	return StatusMatch, nil
}
