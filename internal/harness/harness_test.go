package harness

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScenarios_Golden(t *testing.T) {
	files, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, file := range files {
		scenario, err := LoadScenario(file)
		require.NoError(t, err, file)

		t.Run(scenario.Name, func(t *testing.T) {
			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
			assert.Empty(t, result.Errors)
		})
	}
}

func TestRun_BackendsProduceSameTrace(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/walkthrough.yaml")
	require.NoError(t, err)

	sqliteResult, err := Run(scenario)
	require.NoError(t, err)

	scenario.Backend = "pebble"
	pebbleResult, err := Run(scenario)
	require.NoError(t, err)

	a, err := Snapshot("walkthrough", sqliteResult)
	require.NoError(t, err)
	b, err := Snapshot("walkthrough", pebbleResult)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(a, b), "sqlite:\n%s\npebble:\n%s", a, b)
}

func TestRun_Deterministic(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/growth_limits.yaml")
	require.NoError(t, err)

	first, err := Run(scenario)
	require.NoError(t, err)
	second, err := Run(scenario)
	require.NoError(t, err)

	a, err := Snapshot(scenario.Name, first)
	require.NoError(t, err)
	b, err := Snapshot(scenario.Name, second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestRun_UnexpectedOutcomeFails(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: wrong_expectation
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
assertions:
  - type: log_count
    count: 1
`))
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], "flow[1]: expected outcome committed, got AUTHORITY_MISMATCH")
	assert.Contains(t, result.Errors[1], "log_count")
}

func TestRun_ExpectFieldMismatch(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: wrong_space
description: expects the wrong capacity after initialize
principals: [alice]
setup:
  - airdrop: alice
    lamports: 10000000000
flow:
  - invoke: initialize
    signer: alice
    expect:
      outcome: committed
      space: 256
      rent_paid: 1
assertions:
  - type: authority
    principal: alice
`))
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	joined := strings.Join(result.Errors, "\n")
	assert.Contains(t, joined, "expected space 256, got 44")
	assert.Contains(t, joined, "expected rent_paid 1, got 1197120")
}

func TestRun_UnknownBackend(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: unknown_backend
description: backend is overwritten after validation
principals: [alice]
flow:
  - invoke: initialize
    signer: alice
assertions:
  - type: log_count
    count: 0
`))
	require.NoError(t, err)

	scenario.Backend = "memory"
	_, err = Run(scenario)
	assert.Error(t, err)
}
