package cli

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tartinelabs/banneton/internal/archive"
	"github.com/tartinelabs/banneton/internal/testutil"
)

// seedDatabase creates a deterministic sample database on disk and
// returns its path.
func seedDatabase(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bakery.db")
	st := testutil.OpenStoreAt(t, path)
	testutil.SeedSample(t, st)
	require.NoError(t, st.Close())
	return path
}

// exportSample runs the export command against the database and
// returns the archive directory.
func exportSample(t *testing.T, dbPath string) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "archive")
	_, err := execBanneton(t, "export", "--db", dbPath, "--out", dir)
	require.NoError(t, err)
	return dir
}

// tamperFile replaces old with repl inside one archive file and
// patches the manifest checksum, so the archive stays structurally
// valid and only its meaning changes.
func tamperFile(t *testing.T, dir, file, old, repl string) {
	t.Helper()

	path := filepath.Join(dir, file)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	patched := strings.Replace(string(data), old, repl, 1)
	require.NotEqual(t, string(data), patched, "pattern %q not found in %s", old, file)
	require.NoError(t, os.WriteFile(path, []byte(patched), 0o644))

	mpath := filepath.Join(dir, archive.ManifestName)
	mdata, err := os.ReadFile(mpath)
	require.NoError(t, err)
	var m archive.Manifest
	require.NoError(t, json.Unmarshal(mdata, &m))
	sum := sha256.Sum256([]byte(patched))
	for i := range m.Files {
		if m.Files[i].File() == file {
			m.Files[i].Checksum = hex.EncodeToString(sum[:])
		}
	}
	out, err := json.MarshalIndent(&m, "", "  ")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(mpath, append(out, '\n'), 0o644))
}

// decodeResponse parses a --format json command output.
func decodeResponse(t *testing.T, out string) CLIResponse {
	t.Helper()
	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp), "output: %s", out)
	return resp
}
