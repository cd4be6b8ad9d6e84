package cli

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tartinelabs/banneton/internal/domain"
	"github.com/tartinelabs/banneton/internal/store"
)

func TestVerifyCleanArchive(t *testing.T) {
	dbPath := seedDatabase(t)
	dir := exportSample(t, dbPath)

	out, err := execBanneton(t, "verify", "--db", dbPath, "--against", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Archive matches the database")
}

func TestVerifyCleanJSON(t *testing.T) {
	dbPath := seedDatabase(t)
	dir := exportSample(t, dbPath)

	out, err := execBanneton(t, "--format", "json", "verify", "--db", dbPath, "--against", dir)
	require.NoError(t, err)

	resp := decodeResponse(t, out)
	assert.Equal(t, "ok", resp.Status)
}

func TestVerifyReportsDrift(t *testing.T) {
	dbPath := seedDatabase(t)
	dir := exportSample(t, dbPath)

	// The database moves on after the export.
	st, err := store.Open(dbPath)
	require.NoError(t, err)
	_, err = st.CreateUnit(context.Background(), domain.Unit{Name: "Litre", Kind: domain.UnitVolume, ToBase: "1000"})
	require.NoError(t, err)
	require.NoError(t, st.Close())

	out, err := execBanneton(t, "verify", "--db", dbPath, "--against", dir)
	require.Error(t, err)

	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ Archive does not match the database")
	assert.Contains(t, out, "units.json")
	assert.Contains(t, out, "differs")
	assert.Contains(t, out, "Verify Summary:")
}

func TestVerifyDriftJSON(t *testing.T) {
	dbPath := seedDatabase(t)
	dir := exportSample(t, dbPath)

	tamperFile(t, dir, "units.json", `"name":"Gram"`, `"name":"Gramme"`)

	out, err := execBanneton(t, "--format", "json", "verify", "--db", dbPath, "--against", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	resp := decodeResponse(t, out)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "VERIFY_MISMATCH", resp.Error.Code)
	assert.NotNil(t, resp.Data)
}

func TestVerifyMissingDirectory(t *testing.T) {
	dbPath := seedDatabase(t)

	_, err := execBanneton(t, "verify", "--db", dbPath, "--against", "/nonexistent/archive")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "archive directory not found")
}
