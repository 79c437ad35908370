package program

import (
	"fmt"

	"github.com/roach88/contriblog/internal/ir"
	"github.com/roach88/contriblog/internal/store"
)

// RentSchedule prices account storage.
type RentSchedule interface {
	// MinimumBalance is the lamport balance an account of space bytes must
	// hold to stay rent exempt.
	MinimumBalance(space int) uint64
}

// Limits are the platform's resource ceilings on account capacity.
type Limits struct {
	// MaxAccountSize is the largest capacity any account may reach.
	MaxAccountSize int
	// MaxGrowthPerCall is the largest capacity increase in one instruction.
	MaxGrowthPerCall int
}

// DefaultLimits mirrors the runtime's permitted data length and per-call
// realloc ceiling.
var DefaultLimits = Limits{
	MaxAccountSize:   10 * 1024 * 1024,
	MaxGrowthPerCall: 10 * 1024,
}

// Invocation is the execution environment of one instruction. The ledger
// builds a fresh Invocation per transaction; Tx is scoped to that
// transaction and discarded with it on failure.
type Invocation struct {
	ProgramID ir.Pubkey
	Tx        store.Tx
	Now       int64
	Rent      RentSchedule
	Limits    Limits

	logs     []string
	rentPaid uint64
}

// Logs returns the program log lines emitted so far.
func (inv *Invocation) Logs() []string { return inv.logs }

// RentPaid is the total lamports moved from payers into program accounts.
func (inv *Invocation) RentPaid() uint64 { return inv.rentPaid }

func (inv *Invocation) msg(format string, args ...any) {
	inv.logs = append(inv.logs, fmt.Sprintf(format, args...))
}

func (inv *Invocation) limits() Limits {
	if inv.Limits == (Limits{}) {
		return DefaultLimits
	}
	return inv.Limits
}
