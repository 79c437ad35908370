// Package harness runs YAML conformance scenarios against a fresh ledger.
//
// A scenario names its principals, funds them, submits a flow of signed
// initialize and log_contribution transactions, and asserts on the final
// log. Every run uses a deterministic clock and keypairs derived from the
// principal names, so the trace of a scenario is stable and can be
// compared against a golden file:
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/walkthrough.yaml")
//	result, err := harness.Run(scenario)
//
// Failed transactions are outcomes, not errors: a flow step that expects
// AUTHORITY_MISMATCH passes when the ledger rejects it with that code. Run
// only returns an error when the scenario could not be executed at all.
package harness
