package archive

import (
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeEnvelopeLayout(t *testing.T) {
	records := []json.RawMessage{
		json.RawMessage(`{"id":"a","slug":"gram","name":"Gram"}`),
		json.RawMessage(`{"id":"b","slug":"kilogram","name":"Kilogram"}`),
	}
	data := encodeEnvelope("units", records)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "envelope_units", data)
}

func TestEncodeEnvelopeEmpty(t *testing.T) {
	data := encodeEnvelope("waste_logs", nil)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "envelope_empty", data)
}

func TestEncodeEnvelopeKeepsRecordBytes(t *testing.T) {
	// Record bytes pass through untouched: no HTML escaping, no
	// re-indentation, no key reordering.
	rec := json.RawMessage(`{"id":"x","name":"Brioche <maison> & fils","note":"crème"}`)
	data := encodeEnvelope("suppliers", []json.RawMessage{rec})

	assert.Contains(t, string(data), `{"id":"x","name":"Brioche <maison> & fils","note":"crème"}`)
	assert.NotContains(t, string(data), "u003c", "record bytes must not be HTML-escaped")

	env, err := decodeEnvelope("suppliers.json", data)
	require.NoError(t, err)
	require.Len(t, env.Records, 1)
	assert.Equal(t, string(rec), string(env.Records[0]))
}

func TestEncodeEnvelopeDeterministic(t *testing.T) {
	records := []json.RawMessage{json.RawMessage(`{"id":"a"}`)}
	first := encodeEnvelope("events", records)
	second := encodeEnvelope("events", records)
	assert.Equal(t, first, second)
}

func TestDecodeEnvelope(t *testing.T) {
	data := encodeEnvelope("units", []json.RawMessage{json.RawMessage(`{"id":"a"}`)})
	env, err := decodeEnvelope("units.json", data)
	require.NoError(t, err)
	assert.Equal(t, FormatVersion, env.FormatVersion)
	assert.Equal(t, "units", env.EntityType)
	assert.Equal(t, 1, env.RecordCount)
	require.Len(t, env.Records, 1)
}

func TestDecodeEnvelopeMalformed(t *testing.T) {
	_, err := decodeEnvelope("units.json", []byte("{not json"))
	require.Error(t, err)

	ae, ok := AsArchiveError(err)
	require.True(t, ok)
	assert.Equal(t, ErrCodeEnvelope, ae.Code)
	assert.Equal(t, "units.json", ae.File)
}
