package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const harnessTestdata = "../harness/testdata"

// copyScenario copies a harness scenario (and, if withGolden, its golden
// trace) into dir using the <dir>/golden/<name>.golden layout.
func copyScenario(t *testing.T, dir, name string, withGolden bool) string {
	t.Helper()

	data, err := os.ReadFile(filepath.Join(harnessTestdata, "scenarios", name+".yaml"))
	require.NoError(t, err)
	path := writeFile(t, dir, name+".yaml", string(data))

	if withGolden {
		golden, err := os.ReadFile(filepath.Join(harnessTestdata, "golden", name+".golden"))
		require.NoError(t, err)
		require.NoError(t, os.MkdirAll(filepath.Join(dir, "golden"), 0755))
		writeFile(t, filepath.Join(dir, "golden"), name+".golden", string(golden))
	}
	return path
}

const failingScenario = `
name: failing
description: expects the foreign signer to succeed
principals: [alice, bob]
setup:
  - airdrop: alice
    lamports: 10000000000
flow:
  - invoke: initialize
    signer: alice
  - invoke: log_contribution
    signer: bob
    code_hash: abc
    expect:
      outcome: committed
assertions:
  - type: log_count
    count: 1
`

func TestTestCommand_PassesWithGolden(t *testing.T) {
	dir := t.TempDir()
	copyScenario(t, dir, "walkthrough", true)
	copyScenario(t, dir, "growth_limits", true)

	out, _, err := execute(t, "test", dir)
	require.NoError(t, err)
	assert.Contains(t, out, markPass+" walkthrough")
	assert.Contains(t, out, markPass+" growth_limits")
	assert.Contains(t, out, "Test Summary: 2 passed, 0 failed, 2 total")
	assert.Contains(t, out, "All scenarios passed")
}

func TestTestCommand_GoldenMismatch(t *testing.T) {
	dir := t.TempDir()
	copyScenario(t, dir, "walkthrough", false)
	writeFile(t, dir, "walkthrough.yaml.bak", "ignored")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "golden"), 0755))
	writeFile(t, filepath.Join(dir, "golden"), "walkthrough.golden", `{"stale":true}`)

	out, _, err := execute(t, "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, markFail+" walkthrough")
	assert.Contains(t, out, "trace does not match golden file")
	assert.Contains(t, out, "Test Summary: 0 passed, 1 failed, 1 total")
}

func TestTestCommand_UpdateWritesGolden(t *testing.T) {
	dir := t.TempDir()
	path := copyScenario(t, dir, "signatures_and_lengths", false)

	_, _, err := execute(t, "test", path, "--update")
	require.NoError(t, err)

	got, err := os.ReadFile(filepath.Join(dir, "golden", "signatures_and_lengths.golden"))
	require.NoError(t, err)
	want, err := os.ReadFile(filepath.Join(harnessTestdata, "golden", "signatures_and_lengths.golden"))
	require.NoError(t, err)
	assert.Equal(t, string(want), string(got))

	// The fresh golden file now gates the next run.
	_, _, err = execute(t, "test", path)
	require.NoError(t, err)
}

func TestTestCommand_AssertionFailure(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "failing.yaml", failingScenario)

	out, _, err := execute(t, "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, markFail+" failing")
	assert.Contains(t, out, "expected outcome committed, got AUTHORITY_MISMATCH")
}

func TestTestCommand_JSON(t *testing.T) {
	dir := t.TempDir()
	copyScenario(t, dir, "funded_log_address", true)
	writeFile(t, dir, "failing.yaml", failingScenario)

	out, _, err := execute(t, "test", dir, "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var result TestResult
	resp := jsonResponse(t, out, &result)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeTestFailed, resp.Error.Code)
	assert.Equal(t, 2, result.Total)
	assert.Equal(t, 1, result.Passed)
	assert.Equal(t, 1, result.Failed)
}

func TestTestCommand_Filter(t *testing.T) {
	dir := t.TempDir()
	copyScenario(t, dir, "walkthrough", true)
	writeFile(t, dir, "failing.yaml", failingScenario)

	out, _, err := execute(t, "test", dir, "--filter", "walk*")
	require.NoError(t, err)
	assert.Contains(t, out, "Test Summary: 1 passed, 0 failed, 1 total")

	out, _, err = execute(t, "test", dir, "--filter", "nomatch*")
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found.")

	_, _, err = execute(t, "test", dir, "--filter", "[")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTestCommand_LoadError(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "broken.yaml", "name: broken\n")

	out, _, err := execute(t, "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, markFail+" broken.yaml")
	assert.Contains(t, out, "failed to load scenario")
}

func TestTestCommand_MissingPath(t *testing.T) {
	_, _, err := execute(t, "test", filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestGoldenFilePath(t *testing.T) {
	assert.Equal(t, filepath.Join("scenarios", "golden", "walk.golden"), goldenFilePath(filepath.Join("scenarios", "walk.yaml")))
	assert.Equal(t, filepath.Join("golden", "x.golden"), goldenFilePath("x.yml"))
}
