package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/contriblog/internal/ir"
)

// TraceSnapshot captures the trace and final state of a scenario run.
// It is serialized as canonical JSON for deterministic comparison.
type TraceSnapshot struct {
	ScenarioName string       `json:"scenario_name"`
	Trace        []TraceEvent `json:"trace"`
	State        FinalState   `json:"state"`
}

// toCanonicalMap converts a TraceSnapshot to a map[string]any for canonical JSON serialization.
// This is required because ir.MarshalCanonical only handles IR types and primitives.
func (s *TraceSnapshot) toCanonicalMap() map[string]any {
	trace := make([]any, len(s.Trace))
	for i, event := range s.Trace {
		m := map[string]any{
			"type": event.Type,
			"step": event.Step,
		}
		switch event.Type {
		case EventAirdrop:
			m["to"] = event.To
			m["lamports"] = event.Lamports
			m["balance"] = event.Balance
		case EventTransaction:
			m["instruction"] = event.Instruction
			m["signer"] = event.Signer
			m["timestamp"] = event.Timestamp
			m["outcome"] = event.Outcome
			m["count"] = event.Count
			m["space"] = event.Space
			m["rent_paid"] = event.RentPaid
			if event.CodeHash != "" {
				m["code_hash"] = event.CodeHash
			}
			if event.CodeHashHex != "" {
				m["code_hash_hex"] = event.CodeHashHex
			}
		}
		trace[i] = m
	}

	codeHashes := make([]any, len(s.State.CodeHashes))
	for i, h := range s.State.CodeHashes {
		codeHashes[i] = h
	}
	contributors := make([]any, len(s.State.Contributors))
	for i, c := range s.State.Contributors {
		contributors[i] = c
	}
	timestamps := make([]any, len(s.State.Timestamps))
	for i, ts := range s.State.Timestamps {
		timestamps[i] = ts
	}
	balances := make(map[string]any, len(s.State.Balances))
	for name, lamports := range s.State.Balances {
		balances[name] = lamports
	}

	state := map[string]any{
		"initialized":  s.State.Initialized,
		"count":        s.State.Count,
		"space":        s.State.Space,
		"code_hashes":  codeHashes,
		"contributors": contributors,
		"timestamps":   timestamps,
		"balances":     balances,
	}
	if s.State.Authority != "" {
		state["authority"] = s.State.Authority
	}

	return map[string]any{
		"scenario_name": s.ScenarioName,
		"trace":         trace,
		"state":         state,
	}
}

// Snapshot renders a result as canonical JSON.
func Snapshot(scenarioName string, result *Result) ([]byte, error) {
	snapshot := TraceSnapshot{
		ScenarioName: scenarioName,
		Trace:        result.Trace,
		State:        result.State,
	}
	return ir.MarshalCanonical(snapshot.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares the trace against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if trace doesn't match golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	return result, AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares the given result's trace against a golden file.
// This is useful when you've already run a scenario and want to compare
// the result against a golden file without re-running.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	traceJSON, err := Snapshot(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, traceJSON)

	return nil
}
