package program

import (
	"fmt"
	"math"

	"github.com/roach88/contriblog/internal/address"
	"github.com/roach88/contriblog/internal/codec"
	"github.com/roach88/contriblog/internal/ir"
)

// InitialSpace is the capacity allocated by Create: the header and zero
// records.
const InitialSpace = codec.HeaderSize

// Create allocates the log slot at its derived address and stores a fresh
// LogState whose authority is caller. The caller pays the rent.
//
// An address that already holds lamports but no data and is still owned by
// the system program is claimed: it is topped up to the rent minimum and
// assigned to the program. Any other existing account fails with
// ALREADY_INITIALIZED.
func Create(inv *Invocation, caller ir.Pubkey) (ir.LogState, error) {
	slot, err := address.LogState(inv.ProgramID)
	if err != nil {
		return ir.LogState{}, fmt.Errorf("derive log address: %w", err)
	}

	acct, exists, err := inv.Tx.GetAccount(slot.Address)
	if err != nil {
		return ir.LogState{}, err
	}
	if exists && (len(acct.Data) > 0 || acct.Owner != ir.SystemProgramID) {
		return ir.LogState{}, NewAlreadyInitializedError(slot.Address)
	}
	if !exists {
		acct = ir.Account{Owner: ir.SystemProgramID, Data: []byte{}}
	}

	// Assign before growing so the capacity is charged to the program account.
	acct.Owner = inv.ProgramID
	if err := EnsureCapacity(inv, &acct, InitialSpace, caller); err != nil {
		return ir.LogState{}, err
	}

	state := ir.LogState{Authority: caller, Contributions: []ir.ContributionRecord{}}
	if err := codec.WriteState(acct.Data, state); err != nil {
		return ir.LogState{}, err
	}
	if err := inv.Tx.PutAccount(slot.Address, acct); err != nil {
		return ir.LogState{}, err
	}
	return state, nil
}

// EnsureCapacity grows acct.Data to at least required bytes, moving the
// rent deficit from payer into acct. It never shrinks. The payer account is
// written through inv.Tx; acct is updated in place and the caller persists
// it.
//
// Growth past Limits, or a payer that cannot cover the deficit, fails with
// INSUFFICIENT_FUNDS.
func EnsureCapacity(inv *Invocation, acct *ir.Account, required int, payer ir.Pubkey) error {
	current := len(acct.Data)
	if required <= current {
		return nil
	}

	lim := inv.limits()
	if required > lim.MaxAccountSize {
		return NewInsufficientFundsError("account size %d exceeds maximum %d", required, lim.MaxAccountSize)
	}
	if current > 0 && required-current > lim.MaxGrowthPerCall {
		return NewInsufficientFundsError("growth of %d bytes exceeds per-call limit %d", required-current, lim.MaxGrowthPerCall)
	}

	minimum := inv.Rent.MinimumBalance(required)
	if acct.Lamports < minimum {
		deficit := minimum - acct.Lamports
		if err := transfer(inv, payer, acct, deficit); err != nil {
			return err
		}
	}

	// The region past the old length carries no meaning until written.
	grown := make([]byte, required)
	copy(grown, acct.Data)
	acct.Data = grown
	return nil
}

// transfer debits payer by lamports and credits to.
func transfer(inv *Invocation, payer ir.Pubkey, to *ir.Account, lamports uint64) error {
	from, ok, err := inv.Tx.GetAccount(payer)
	if err != nil {
		return err
	}
	if !ok || from.Lamports < lamports {
		var have uint64
		if ok {
			have = from.Lamports
		}
		return NewInsufficientFundsError("payer %s has %d lamports, needs %d", payer, have, lamports)
	}
	if to.Lamports > math.MaxUint64-lamports {
		return NewInsufficientFundsError("lamport overflow crediting %d", lamports)
	}

	from.Lamports -= lamports
	to.Lamports += lamports
	if err := inv.Tx.PutAccount(payer, from); err != nil {
		return err
	}
	inv.rentPaid += lamports
	return nil
}
