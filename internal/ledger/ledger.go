package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/roach88/contriblog/internal/address"
	"github.com/roach88/contriblog/internal/ir"
	"github.com/roach88/contriblog/internal/metrics"
	"github.com/roach88/contriblog/internal/program"
	"github.com/roach88/contriblog/internal/store"
)

// DefaultProgramID is the id the contribution log program is deployed at.
var DefaultProgramID = ir.MustParsePubkey("Fg6PaFpoGXkYsidMpWTK6W2BeZ7FEfcYkg476zPFsLnS")

// ErrNotSystemAccount is returned by Airdrop for accounts a program owns.
var ErrNotSystemAccount = errors.New("ledger: account is not owned by the system program")

// Ledger executes transactions against a store.Backend one at a time.
//
// Each Submit runs inside a single Backend.Update: a failing instruction
// rolls back every byte it touched, including rent transfers and capacity
// growth.
type Ledger struct {
	backend   store.Backend
	programID ir.Pubkey
	rent      Rent
	limits    program.Limits
	clock     Clock
	logger    *slog.Logger
	metrics   *metrics.Metrics

	// mu is the single-writer lock; Submit and Airdrop never interleave.
	mu sync.Mutex
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithProgramID overrides DefaultProgramID.
func WithProgramID(id ir.Pubkey) Option { return func(l *Ledger) { l.programID = id } }

// WithRent overrides DefaultRent.
func WithRent(r Rent) Option { return func(l *Ledger) { l.rent = r } }

// WithLimits overrides program.DefaultLimits.
func WithLimits(lim program.Limits) Option { return func(l *Ledger) { l.limits = lim } }

// WithClock overrides SystemClock.
func WithClock(c Clock) Option { return func(l *Ledger) { l.clock = c } }

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option { return func(l *Ledger) { l.logger = logger } }

// WithMetrics records transaction and log metrics on m.
func WithMetrics(m *metrics.Metrics) Option { return func(l *Ledger) { l.metrics = m } }

// New creates a Ledger over backend.
func New(backend store.Backend, opts ...Option) *Ledger {
	l := &Ledger{
		backend:   backend,
		programID: DefaultProgramID,
		rent:      DefaultRent(),
		limits:    program.DefaultLimits,
		clock:     SystemClock{},
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// ProgramID returns the program id transactions are executed against.
func (l *Ledger) ProgramID() ir.Pubkey { return l.programID }

// Rent returns the rent schedule.
func (l *Ledger) Rent() Rent { return l.rent }

// Address derives the log slot address. It is recomputed on every call.
func (l *Ledger) Address() (address.Derived, error) {
	return address.LogState(l.programID)
}

// Receipt is the result of one submitted transaction.
type Receipt struct {
	TxID        string         `json:"tx_id"`
	Instruction Instruction    `json:"instruction"`
	Signer      ir.Pubkey      `json:"signer"`
	Timestamp   int64          `json:"timestamp"`
	Err         *program.Error `json:"error,omitempty"`
	Logs        []string       `json:"logs"`
	// Space and Count describe the committed log after the transaction.
	Space    int    `json:"space"`
	Count    int    `json:"count"`
	RentPaid uint64 `json:"rent_paid"`
}

// OK reports whether the transaction committed.
func (r Receipt) OK() bool { return r.Err == nil }

// Submit verifies and executes tx.
//
// A domain failure is returned both as Receipt.Err and as the error. Any
// other error means the transaction could not be executed at all.
func (l *Ledger) Submit(ctx context.Context, tx Transaction) (Receipt, error) {
	rcpt := Receipt{
		TxID:        tx.ID.String(),
		Instruction: tx.Instruction,
		Signer:      tx.Signer,
		Logs:        []string{},
	}
	instr := tx.Instruction.String()

	if !tx.Verify(l.programID) {
		perr := program.NewInvalidSignatureError(tx.Signer)
		rcpt.Err = perr
		l.fillCommitted(ctx, &rcpt)
		l.metrics.ObserveTransaction(instr, metrics.OutcomeRejected)
		l.logger.Warn("transaction rejected", "tx", rcpt.TxID, "instruction", instr, "code", perr.Code)
		return rcpt, perr
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	rcpt.Timestamp = now

	var (
		inv   *program.Invocation
		state ir.LogState
	)
	err := l.backend.Update(ctx, func(stx store.Tx) error {
		inv = &program.Invocation{
			ProgramID: l.programID,
			Tx:        stx,
			Now:       now,
			Rent:      l.rent,
			Limits:    l.limits,
		}
		var err error
		switch tx.Instruction {
		case InstructionInitialize:
			state, err = program.Initialize(inv, tx.Signer)
		case InstructionLogContribution:
			state, err = program.LogContribution(inv, tx.Signer, tx.CodeHash)
		default:
			err = fmt.Errorf("unknown instruction %d", uint8(tx.Instruction))
		}
		return err
	})

	if err != nil {
		var perr *program.Error
		if !errors.As(err, &perr) {
			return rcpt, fmt.Errorf("submit %s: %w", instr, err)
		}
		rcpt.Err = perr
		l.fillCommitted(ctx, &rcpt)
		l.metrics.ObserveTransaction(instr, metrics.OutcomeFailed)
		l.logger.Info("transaction failed",
			"tx", rcpt.TxID,
			"instruction", instr,
			"code", perr.Code,
			"error", perr.Message,
		)
		return rcpt, err
	}

	rcpt.Logs = append(rcpt.Logs, inv.Logs()...)
	rcpt.Count = state.Len()
	rcpt.Space = l.slotSpace(ctx)
	rcpt.RentPaid = inv.RentPaid()

	l.metrics.ObserveTransaction(instr, metrics.OutcomeCommitted)
	l.metrics.AddRent(rcpt.RentPaid)
	l.metrics.SetLog(rcpt.Space, rcpt.Count)
	for _, line := range rcpt.Logs {
		l.logger.Debug("program log", "tx", rcpt.TxID, "msg", line)
	}
	l.logger.Info("transaction committed",
		"tx", rcpt.TxID,
		"instruction", instr,
		"count", rcpt.Count,
		"space", rcpt.Space,
		"rent_paid", rcpt.RentPaid,
	)
	return rcpt, nil
}

// CheckHealth reports whether the backend can serve a read.
func (l *Ledger) CheckHealth(ctx context.Context) error {
	return l.backend.View(ctx, func(store.Tx) error { return nil })
}

// ReadLog returns the whole committed log.
func (l *Ledger) ReadLog(ctx context.Context) (ir.LogState, error) {
	return l.readLog(ctx)
}

func (l *Ledger) readLog(ctx context.Context) (ir.LogState, error) {
	_, _, state, err := l.load(ctx)
	return state, err
}

// Slot returns the raw account holding the log.
func (l *Ledger) Slot(ctx context.Context) (ir.Pubkey, ir.Account, error) {
	addr, acct, _, err := l.load(ctx)
	return addr, acct, err
}

// RefreshMetrics sets the log gauges from the committed slot. The slot may
// have been written by another process sharing the backend. A log that is
// not initialized reports zero.
func (l *Ledger) RefreshMetrics(ctx context.Context) error {
	_, _, _, err := l.load(ctx)
	if program.IsNotInitialized(err) {
		l.metrics.SetLog(0, 0)
		return nil
	}
	return err
}

// load reads the slot and decodes it in one view, updating the log gauges
// on success.
func (l *Ledger) load(ctx context.Context) (ir.Pubkey, ir.Account, ir.LogState, error) {
	var (
		addr  ir.Pubkey
		acct  ir.Account
		state ir.LogState
	)
	err := l.backend.View(ctx, func(tx store.Tx) error {
		var err error
		addr, acct, state, err = program.LoadLog(tx, l.programID)
		return err
	})
	if err != nil {
		return ir.Pubkey{}, ir.Account{}, ir.LogState{}, err
	}
	l.metrics.SetLog(len(acct.Data), state.Len())
	return addr, acct, state, nil
}

// fillCommitted reports the committed log on a failure receipt. A log
// that is missing or unreadable leaves Count and Space at zero.
func (l *Ledger) fillCommitted(ctx context.Context, rcpt *Receipt) {
	if committed, err := l.readLog(ctx); err == nil {
		rcpt.Count = committed.Len()
		rcpt.Space = l.slotSpace(ctx)
	}
}

func (l *Ledger) slotSpace(ctx context.Context) int {
	_, acct, err := l.Slot(ctx)
	if err != nil {
		return 0
	}
	return len(acct.Data)
}

// Airdrop credits lamports to a system-owned account, creating it if
// needed, and returns the new balance.
func (l *Ledger) Airdrop(ctx context.Context, to ir.Pubkey, lamports uint64) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var balance uint64
	err := l.backend.Update(ctx, func(tx store.Tx) error {
		acct, ok, err := tx.GetAccount(to)
		if err != nil {
			return err
		}
		if !ok {
			acct = ir.Account{Owner: ir.SystemProgramID, Data: []byte{}}
		}
		if acct.Owner != ir.SystemProgramID {
			return fmt.Errorf("%w: %s", ErrNotSystemAccount, to)
		}
		if lamports > math.MaxInt64 || acct.Lamports > math.MaxInt64-lamports {
			return fmt.Errorf("airdrop: balance of %s would overflow", to)
		}
		acct.Lamports += lamports
		balance = acct.Lamports
		return tx.PutAccount(to, acct)
	})
	if err != nil {
		return 0, fmt.Errorf("airdrop: %w", err)
	}
	l.logger.Info("airdrop", "to", to.String(), "lamports", lamports, "balance", balance)
	return balance, nil
}

// Balance returns the lamports held by key, 0 if the account does not exist.
func (l *Ledger) Balance(ctx context.Context, key ir.Pubkey) (uint64, error) {
	var balance uint64
	err := l.backend.View(ctx, func(tx store.Tx) error {
		acct, ok, err := tx.GetAccount(key)
		if ok {
			balance = acct.Lamports
		}
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("balance: %w", err)
	}
	return balance, nil
}
