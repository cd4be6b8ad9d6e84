package archive

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// Manifest indexes an archive directory: one FileDescriptor per entity
// file, listed in import order, each carrying the checksum that gates
// the import.
type Manifest struct {
	FormatVersion int              `json:"format_version"`
	GeneratedAt   string           `json:"generated_at"`
	Files         []FileDescriptor `json:"files"`
}

// FileDescriptor describes one entity file. ImportOrder and
// Dependencies are recorded so an archive is self-describing; the
// importing registry still re-derives its own sequence and treats the
// manifest's copy as documentation.
type FileDescriptor struct {
	EntityType   string   `json:"entity_type"`
	RecordCount  int      `json:"record_count"`
	Checksum     string   `json:"checksum"`
	ImportOrder  int      `json:"import_order"`
	Dependencies []string `json:"dependencies"`
}

// File returns the descriptor's file name inside the archive.
func (d FileDescriptor) File() string {
	return entityFileName(d.EntityType)
}

// TotalRecords sums record counts across all files.
func (m *Manifest) TotalRecords() int {
	total := 0
	for _, fd := range m.Files {
		total += fd.RecordCount
	}
	return total
}

// encodeManifest renders the manifest deterministically: two-space
// indent, fixed field order, no HTML escaping.
func encodeManifest(m *Manifest) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(m); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decodeManifest parses manifest bytes. CUE validation runs first; a
// decode failure here means the two schemas disagree, which is still a
// structural manifest error.
func decodeManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, &ArchiveError{
			Code:    ErrCodeManifest,
			Phase:   PhaseManifest,
			File:    ManifestName,
			Message: "malformed manifest",
			Err:     err,
		}
	}
	return &m, nil
}

// fileChecksum is the SHA-256 of the complete file bytes, hex encoded.
func fileChecksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
