package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/contriblog/internal/codec"
	"github.com/roach88/contriblog/internal/ir"
)

// seededWorkspace returns a workspace whose log holds two records.
func seededWorkspace(t *testing.T) *workspace {
	t.Helper()
	w := newWorkspace(t, "")
	_, err := w.run(t, "airdrop", "--keypair", w.alice, "--lamports", "10000000000")
	require.NoError(t, err)
	_, err = w.run(t, "init", "--keypair", w.alice)
	require.NoError(t, err)
	for _, hash := range []string{"abc", "def456"} {
		_, err = w.run(t, "log", "--keypair", w.alice, hash)
		require.NoError(t, err)
	}
	return w
}

func TestExport_ShowFromSnapshot(t *testing.T) {
	w := seededWorkspace(t)

	out, err := w.run(t, "show", "--format", "json")
	require.NoError(t, err)
	var live LogView
	jsonResponse(t, out, &live)

	for _, compress := range []bool{false, true} {
		name := "log.snap"
		args := []string{"export", "--format", "json"}
		if compress {
			name = "log.snap.gz"
			args = append(args, "--gzip")
		}
		path := filepath.Join(t.TempDir(), name)
		args = append(args, "--out", path)

		t.Run(name, func(t *testing.T) {
			out, err := w.run(t, args...)
			require.NoError(t, err)
			var exported ExportResult
			jsonResponse(t, out, &exported)
			assert.Equal(t, 2, exported.Count)
			assert.Equal(t, codec.HeaderSize+2*codec.RecordFixedSize+len("abc")+len("def456"), exported.Bytes)
			assert.Equal(t, compress, exported.Compressed)
			assert.Equal(t, live.Digest, exported.Digest)

			raw, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, compress, bytes.HasPrefix(raw, gzipMagic))

			// --from never opens the ledger.
			out, _, err = execute(t, "show", "--from", path, "--format", "json", "--backend", "sqlite", "--data-dir", filepath.Join(t.TempDir(), "unused"))
			require.NoError(t, err)
			var offline LogView
			jsonResponse(t, out, &offline)
			assert.Nil(t, offline.Address)
			assert.Nil(t, offline.Lamports)
			assert.Equal(t, live.Authority, offline.Authority)
			assert.Equal(t, live.Contributions, offline.Contributions)
			assert.Equal(t, live.Digest, offline.Digest)
			assert.Equal(t, exported.Bytes, offline.Space)
		})
	}
}

func TestShow_TextOutput(t *testing.T) {
	w := seededWorkspace(t)

	out, err := w.run(t, "show")
	require.NoError(t, err)
	assert.Contains(t, out, "records:   2")
	assert.Contains(t, out, "space:     141 bytes")
	assert.Contains(t, out, `"abc"`)
	assert.Contains(t, out, `"def456"`)
	assert.Contains(t, out, "address:   ")
}

func TestShow_CorruptSnapshot(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "bad.snap", "not a log slot")

	out, _, err := execute(t, "show", "--from", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [CORRUPT_LAYOUT]")
}

func TestShow_MissingSnapshot(t *testing.T) {
	_, _, err := execute(t, "show", "--from", filepath.Join(t.TempDir(), "missing.snap"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestReadSnapshot_Roundtrip(t *testing.T) {
	state := ir.LogState{
		Authority: ir.Pubkey{1},
		Contributions: []ir.ContributionRecord{
			{Contributor: ir.Pubkey{1}, Timestamp: 1700000000, CodeHash: "abc"},
		},
	}
	encoded := codec.EncodeState(state)
	dir := t.TempDir()

	for _, compress := range []bool{false, true} {
		path := filepath.Join(dir, "snap")
		require.NoError(t, writeSnapshot(path, encoded, compress))

		got, err := readSnapshot(path)
		require.NoError(t, err)
		assert.Equal(t, encoded, got)
	}
}

func TestReadSnapshot_Empty(t *testing.T) {
	path := writeFile(t, t.TempDir(), "empty.snap", "")
	got, err := readSnapshot(path)
	require.NoError(t, err)
	assert.Empty(t, got)
}
