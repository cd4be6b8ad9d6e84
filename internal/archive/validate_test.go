package archive

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testChecksum = strings.Repeat("a", 64)

func manifestDoc(fields string) string {
	return fmt.Sprintf(`{
  "format_version": 1,
  "generated_at": "2026-02-01T12:00:00.000000000Z",
  "files": [
    {
      "entity_type": "units",
      "record_count": 0,
      "checksum": %q,
      "import_order": 20,
      "dependencies": []
    }%s
  ]
}`, testChecksum, fields)
}

func TestValidateManifestAccepts(t *testing.T) {
	require.NoError(t, validateManifest([]byte(manifestDoc(""))))
}

func TestValidateManifestRejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{
			name: "not json",
			doc:  "not json at all",
		},
		{
			name: "missing generated_at",
			doc:  `{"format_version": 1, "files": []}`,
		},
		{
			name: "timestamp without fractional digits",
			doc: `{
  "format_version": 1,
  "generated_at": "2026-02-01T12:00:00Z",
  "files": []
}`,
		},
		{
			name: "unknown top-level field",
			doc: `{
  "format_version": 1,
  "generated_at": "2026-02-01T12:00:00.000000000Z",
  "files": [],
  "extra": true
}`,
		},
		{
			name: "short checksum",
			doc: `{
  "format_version": 1,
  "generated_at": "2026-02-01T12:00:00.000000000Z",
  "files": [
    {"entity_type": "units", "record_count": 0, "checksum": "abc123", "import_order": 20, "dependencies": []}
  ]
}`,
		},
		{
			name: "zero import order",
			doc: fmt.Sprintf(`{
  "format_version": 1,
  "generated_at": "2026-02-01T12:00:00.000000000Z",
  "files": [
    {"entity_type": "units", "record_count": 0, "checksum": %q, "import_order": 0, "dependencies": []}
  ]
}`, testChecksum),
		},
		{
			name: "negative record count",
			doc: fmt.Sprintf(`{
  "format_version": 1,
  "generated_at": "2026-02-01T12:00:00.000000000Z",
  "files": [
    {"entity_type": "units", "record_count": -1, "checksum": %q, "import_order": 20, "dependencies": []}
  ]
}`, testChecksum),
		},
		{
			name: "malformed entity type",
			doc: fmt.Sprintf(`{
  "format_version": 1,
  "generated_at": "2026-02-01T12:00:00.000000000Z",
  "files": [
    {"entity_type": "Not Snake", "record_count": 0, "checksum": %q, "import_order": 20, "dependencies": []}
  ]
}`, testChecksum),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateManifest([]byte(tt.doc))
			require.Error(t, err)

			ae, ok := AsArchiveError(err)
			require.True(t, ok, "got %T: %v", err, err)
			assert.Equal(t, ErrCodeManifest, ae.Code)
			assert.Equal(t, ManifestName, ae.File)
			assert.NotEmpty(t, ae.Message)
		})
	}
}

func TestValidateEnvelopeAccepts(t *testing.T) {
	doc := `{
  "format_version": 1,
  "entity_type": "units",
  "record_count": 1,
  "records": [
    {"id": "u-1", "slug": "gram", "extra_field": null, "created_at": "2026-01-05T08:00:01.000000000Z", "updated_at": "2026-01-05T08:00:01.000000000Z"}
  ]
}`
	require.NoError(t, validateEnvelope("units.json", []byte(doc)))
}

func TestValidateEnvelopeRejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{
			name: "record missing id",
			doc: `{
  "format_version": 1,
  "entity_type": "units",
  "record_count": 1,
  "records": [
    {"slug": "gram", "created_at": "2026-01-05T08:00:01.000000000Z", "updated_at": "2026-01-05T08:00:01.000000000Z"}
  ]
}`,
		},
		{
			name: "record with empty id",
			doc: `{
  "format_version": 1,
  "entity_type": "units",
  "record_count": 1,
  "records": [
    {"id": "", "created_at": "2026-01-05T08:00:01.000000000Z", "updated_at": "2026-01-05T08:00:01.000000000Z"}
  ]
}`,
		},
		{
			name: "record missing created_at",
			doc: `{
  "format_version": 1,
  "entity_type": "units",
  "record_count": 1,
  "records": [
    {"id": "u-1", "updated_at": "2026-01-05T08:00:01.000000000Z"}
  ]
}`,
		},
		{
			name: "record with malformed updated_at",
			doc: `{
  "format_version": 1,
  "entity_type": "units",
  "record_count": 1,
  "records": [
    {"id": "u-1", "created_at": "2026-01-05T08:00:01.000000000Z", "updated_at": "last tuesday"}
  ]
}`,
		},
		{
			name: "missing record_count",
			doc: `{
  "format_version": 1,
  "entity_type": "units",
  "records": []
}`,
		},
		{
			name: "unknown top-level field",
			doc: `{
  "format_version": 1,
  "entity_type": "units",
  "record_count": 0,
  "records": [],
  "surprise": 1
}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateEnvelope("units.json", []byte(tt.doc))
			require.Error(t, err)

			ae, ok := AsArchiveError(err)
			require.True(t, ok, "got %T: %v", err, err)
			assert.Equal(t, ErrCodeEnvelope, ae.Code)
			assert.Equal(t, "units.json", ae.File)
		})
	}
}
