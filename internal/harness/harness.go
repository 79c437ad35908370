package harness

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/roach88/contriblog/internal/ir"
	"github.com/roach88/contriblog/internal/ledger"
	"github.com/roach88/contriblog/internal/program"
	"github.com/roach88/contriblog/internal/store"
	"github.com/roach88/contriblog/internal/store/pebblestore"
	"github.com/roach88/contriblog/internal/testutil"
)

// Default clock for scenarios that do not set one.
const (
	DefaultClockStart int64 = 1700000000
	DefaultClockStep  int64 = 1
)

// Harness is the test execution engine. It runs one scenario against a
// fresh ledger with a deterministic clock and seed-derived keypairs.
type Harness struct {
	ledger *ledger.Ledger
	keys   map[string]*ledger.Keypair
	names  map[ir.Pubkey]string
	slot   ir.Pubkey
	logger *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Execution flow:
//  1. Open a fresh backend (in-memory SQLite or a temporary Pebble dir)
//  2. Derive principals and the log address
//  3. Execute setup airdrops
//  4. Submit flow transactions and check expect clauses
//  5. Collect final state and evaluate assertions
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext is Run with a caller-supplied context.
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	backend, cleanup, err := openBackend(scenario.Backend)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	start, step := DefaultClockStart, DefaultClockStep
	if scenario.Clock != nil {
		start, step = scenario.Clock.Start, scenario.Clock.Step
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // Suppress logs in tests
	opts := []ledger.Option{
		ledger.WithClock(testutil.NewDeterministicClock(start, step)),
		ledger.WithLogger(logger),
	}
	if scenario.Limits != nil {
		opts = append(opts, ledger.WithLimits(program.Limits{
			MaxAccountSize:   scenario.Limits.MaxAccountSize,
			MaxGrowthPerCall: scenario.Limits.MaxGrowthPerCall,
		}))
	}
	l := ledger.New(backend, opts...)

	h := &Harness{
		ledger: l,
		keys:   make(map[string]*ledger.Keypair, len(scenario.Principals)),
		names:  make(map[ir.Pubkey]string, len(scenario.Principals)+1),
		logger: logger,
	}
	for _, name := range scenario.Principals {
		kp, err := ledger.KeypairFromSeed(testutil.Seed(name))
		if err != nil {
			return nil, fmt.Errorf("principal %s: %w", name, err)
		}
		h.keys[name] = kp
		h.names[kp.Public()] = name
	}
	slot, err := l.Address()
	if err != nil {
		return nil, fmt.Errorf("derive log address: %w", err)
	}
	h.slot = slot.Address
	h.names[h.slot] = LogSlotTarget

	result := NewResult()
	if err := h.executeSetup(ctx, scenario.Setup, result); err != nil {
		return nil, fmt.Errorf("failed to execute setup: %w", err)
	}
	if err := h.executeFlow(ctx, scenario.Flow, result); err != nil {
		return nil, fmt.Errorf("failed to execute flow: %w", err)
	}
	if err := h.collectState(ctx, scenario.Principals, result); err != nil {
		return nil, fmt.Errorf("failed to collect final state: %w", err)
	}

	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(errMsg)
	}
	return result, nil
}

func openBackend(kind string) (store.Backend, func(), error) {
	switch kind {
	case "", "sqlite":
		st, err := store.Open(":memory:")
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create in-memory store: %w", err)
		}
		return st, func() { _ = st.Close() }, nil
	case "pebble":
		dir, err := os.MkdirTemp("", "contriblog-harness-*")
		if err != nil {
			return nil, nil, err
		}
		db, err := pebblestore.Open(pebblestore.Options{DataDir: dir, Fsync: pebblestore.FsyncModeNever})
		if err != nil {
			_ = os.RemoveAll(dir)
			return nil, nil, err
		}
		return db, func() {
			_ = db.Close()
			_ = os.RemoveAll(dir)
		}, nil
	default:
		return nil, nil, fmt.Errorf("unknown backend %q", kind)
	}
}

func (h *Harness) target(name string) ir.Pubkey {
	if name == LogSlotTarget {
		return h.slot
	}
	return h.keys[name].Public()
}

// executeSetup funds accounts. Setup steps are not transactions and do
// not advance the clock.
func (h *Harness) executeSetup(ctx context.Context, setup []AirdropStep, result *Result) error {
	for i, step := range setup {
		balance, err := h.ledger.Airdrop(ctx, h.target(step.Airdrop), step.Lamports)
		if err != nil {
			return fmt.Errorf("setup step %d: %w", i, err)
		}
		result.AddTrace(TraceEvent{
			Type:     EventAirdrop,
			Step:     i,
			To:       step.Airdrop,
			Lamports: step.Lamports,
			Balance:  balance,
		})
		h.logger.Info("setup step completed", "step", i, "to", step.Airdrop, "balance", balance)
	}
	return nil
}

// executeFlow submits every flow step and validates expect clauses.
// Domain failures are outcomes, not errors; only infrastructure errors
// abort the run.
func (h *Harness) executeFlow(ctx context.Context, flow []FlowStep, result *Result) error {
	programID := h.ledger.ProgramID()
	for i, step := range flow {
		var instr ledger.Instruction
		if err := instr.UnmarshalText([]byte(step.Invoke)); err != nil {
			return fmt.Errorf("flow step %d: %w", i, err)
		}
		arg := step.Argument()

		tx, err := ledger.NewTransaction(programID, h.keys[step.Signer], instr, arg)
		if err != nil {
			return fmt.Errorf("flow step %d: %w", i, err)
		}
		if step.Tamper {
			tx.Signature = append([]byte(nil), tx.Signature...)
			tx.Signature[0] ^= 0xff
		}

		rcpt, err := h.ledger.Submit(ctx, tx)
		var perr *program.Error
		if err != nil && !errors.As(err, &perr) {
			return fmt.Errorf("flow step %d: %w", i, err)
		}

		outcome := OutcomeCommitted
		if rcpt.Err != nil {
			outcome = string(rcpt.Err.Code)
		}
		ev := TraceEvent{
			Type:        EventTransaction,
			Step:        i,
			Instruction: instr.String(),
			Signer:      step.Signer,
			Timestamp:   rcpt.Timestamp,
			Outcome:     outcome,
			Count:       rcpt.Count,
			Space:       rcpt.Space,
			RentPaid:    rcpt.RentPaid,
		}
		if instr == ledger.InstructionLogContribution {
			if step.CodeHashHex != "" {
				ev.CodeHashHex = hex.EncodeToString([]byte(arg))
			} else {
				ev.CodeHash = arg
			}
		}
		result.AddTrace(ev)

		for _, msg := range checkExpect(i, step.Expect, ev) {
			result.AddError(msg)
		}
		h.logger.Info("flow step completed", "step", i, "instruction", ev.Instruction, "outcome", outcome)
	}
	return nil
}

func checkExpect(i int, expect *ExpectClause, ev TraceEvent) []string {
	want := ExpectClause{Outcome: OutcomeCommitted}
	if expect != nil {
		want = *expect
	}
	var errs []string
	if ev.Outcome != want.Outcome {
		errs = append(errs, fmt.Sprintf("flow[%d]: expected outcome %s, got %s", i, want.Outcome, ev.Outcome))
	}
	if want.Count != nil && ev.Count != *want.Count {
		errs = append(errs, fmt.Sprintf("flow[%d]: expected count %d, got %d", i, *want.Count, ev.Count))
	}
	if want.Space != nil && ev.Space != *want.Space {
		errs = append(errs, fmt.Sprintf("flow[%d]: expected space %d, got %d", i, *want.Space, ev.Space))
	}
	if want.RentPaid != nil && ev.RentPaid != *want.RentPaid {
		errs = append(errs, fmt.Sprintf("flow[%d]: expected rent_paid %d, got %d", i, *want.RentPaid, ev.RentPaid))
	}
	return errs
}

func (h *Harness) collectState(ctx context.Context, principals []string, result *Result) error {
	for _, name := range principals {
		balance, err := h.ledger.Balance(ctx, h.keys[name].Public())
		if err != nil {
			return err
		}
		result.State.Balances[name] = balance
	}

	_, acct, err := h.ledger.Slot(ctx)
	if program.IsNotInitialized(err) {
		return nil
	}
	if err != nil {
		return err
	}
	state, err := h.ledger.ReadLog(ctx)
	if err != nil {
		return err
	}

	result.State.Initialized = true
	result.State.Authority = h.name(state.Authority)
	result.State.Count = state.Len()
	result.State.Space = len(acct.Data)
	for _, rec := range state.Contributions {
		result.State.CodeHashes = append(result.State.CodeHashes, rec.CodeHash)
		result.State.Contributors = append(result.State.Contributors, h.name(rec.Contributor))
		result.State.Timestamps = append(result.State.Timestamps, rec.Timestamp)
	}
	return nil
}

func (h *Harness) name(key ir.Pubkey) string {
	if n, ok := h.names[key]; ok {
		return n
	}
	return key.String()
}
