package archive

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// FormatVersion is the archive format version. Imports reject
// archives written by a newer format.
const FormatVersion = 1

// ManifestName is the manifest's file name inside an archive directory.
const ManifestName = "manifest.json"

// envelope is the on-disk shape of one entity file:
//
//	{
//	  "format_version": 1,
//	  "entity_type": "units",
//	  "record_count": 2,
//	  "records": [
//	    {...},
//	    {...}
//	  ]
//	}
//
// The header is indented for humans; each record is one compact line
// whose bytes the checksum covers exactly as the exporter produced
// them.
type envelope struct {
	FormatVersion int               `json:"format_version"`
	EntityType    string            `json:"entity_type"`
	RecordCount   int               `json:"record_count"`
	Records       []json.RawMessage `json:"records"`
}

// encodeEnvelope renders an entity file byte-for-byte deterministically.
// Hand-rolled rather than json.MarshalIndent because MarshalIndent
// would re-indent the record lines and HTML-escape their contents.
func encodeEnvelope(entityType string, records []json.RawMessage) []byte {
	var buf bytes.Buffer
	buf.WriteString("{\n")
	fmt.Fprintf(&buf, "  \"format_version\": %d,\n", FormatVersion)
	fmt.Fprintf(&buf, "  \"entity_type\": %q,\n", entityType)
	fmt.Fprintf(&buf, "  \"record_count\": %d,\n", len(records))
	buf.WriteString("  \"records\": [")
	for i, rec := range records {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString("\n    ")
		buf.Write(rec)
	}
	if len(records) > 0 {
		buf.WriteString("\n  ")
	}
	buf.WriteString("]\n}\n")
	return buf.Bytes()
}

// decodeEnvelope parses an entity file. Structural validation against
// the CUE schema happens before this; decode failures here still
// surface as envelope errors in case the two ever disagree.
func decodeEnvelope(file string, data []byte) (*envelope, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, &ArchiveError{
			Code:    ErrCodeEnvelope,
			Phase:   PhaseVerify,
			File:    file,
			Message: "malformed entity file",
			Err:     err,
		}
	}
	return &env, nil
}

// entityFileName returns the archive file name for an entity type.
func entityFileName(entityType string) string {
	return entityType + ".json"
}
