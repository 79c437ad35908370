package program

import (
	"fmt"
	"unicode/utf8"

	"github.com/roach88/contriblog/internal/address"
	"github.com/roach88/contriblog/internal/codec"
	"github.com/roach88/contriblog/internal/ir"
	"github.com/roach88/contriblog/internal/store"
)

const maxCodeHashLen = codec.MaxCodeHashLen

// ValidateCodeHash checks that codeHash is UTF-8 text of 1 to 64 bytes.
// Bytes that are not UTF-8 fail to decode as an instruction argument and
// are rejected ahead of the length checks.
func ValidateCodeHash(codeHash string) error {
	switch {
	case !utf8.ValidString(codeHash):
		return NewInstructionDidNotDeserializeError("code hash is not valid UTF-8")
	case len(codeHash) == 0:
		return NewEmptyCodeHashError()
	case len(codeHash) > maxCodeHashLen:
		return NewCodeHashTooLongError()
	}
	return nil
}

// Append adds one record for signer to the log held in acct.
//
// The steps run in order: validate the code hash, check the authority,
// build the record, grow the slot to the exact required size (charging
// signer), then write the extended state into the slot. acct and state are
// only modified once every check has passed; a failure part way through
// is discarded together with the enclosing transaction.
func Append(inv *Invocation, acct *ir.Account, state ir.LogState, signer ir.Pubkey, codeHash string) (ir.LogState, error) {
	if err := ValidateCodeHash(codeHash); err != nil {
		return state, err
	}
	if err := CheckAuthority(state, signer); err != nil {
		return state, err
	}

	rec := ir.ContributionRecord{
		Contributor: signer,
		Timestamp:   inv.Now,
		CodeHash:    codeHash,
	}

	required := codec.RequiredSize(state, rec)
	if err := EnsureCapacity(inv, acct, required, signer); err != nil {
		return state, err
	}

	next := state.Clone()
	next.Contributions = append(next.Contributions, rec)
	if err := codec.WriteState(acct.Data, next); err != nil {
		return state, err
	}
	return next, nil
}

// Initialize is the initialize entry point: caller becomes the authority
// of a new, empty log.
func Initialize(inv *Invocation, caller ir.Pubkey) (ir.LogState, error) {
	state, err := Create(inv, caller)
	if err != nil {
		return ir.LogState{}, err
	}
	inv.msg("Contribution log initialized. Authority: %s", state.Authority)
	return state, nil
}

// LogContribution is the logContribution entry point.
func LogContribution(inv *Invocation, authority ir.Pubkey, codeHash string) (ir.LogState, error) {
	addr, acct, state, err := LoadLog(inv.Tx, inv.ProgramID)
	if err != nil {
		return ir.LogState{}, err
	}

	next, err := Append(inv, &acct, state, authority, codeHash)
	if err != nil {
		return state, err
	}
	if err := inv.Tx.PutAccount(addr, acct); err != nil {
		return state, err
	}
	inv.msg("Contribution logged by authority: %s", authority)
	return next, nil
}

// ReadLog decodes the whole log. It never writes.
func ReadLog(tx store.Tx, programID ir.Pubkey) (ir.LogState, error) {
	_, _, state, err := LoadLog(tx, programID)
	return state, err
}

// LoadLog returns the log address, its raw account and the decoded log.
func LoadLog(tx store.Tx, programID ir.Pubkey) (ir.Pubkey, ir.Account, ir.LogState, error) {
	slot, err := address.LogState(programID)
	if err != nil {
		return ir.Pubkey{}, ir.Account{}, ir.LogState{}, fmt.Errorf("derive log address: %w", err)
	}
	acct, ok, err := tx.GetAccount(slot.Address)
	if err != nil {
		return ir.Pubkey{}, ir.Account{}, ir.LogState{}, err
	}
	if !ok || acct.Owner != programID {
		return ir.Pubkey{}, ir.Account{}, ir.LogState{}, NewNotInitializedError(slot.Address)
	}
	state, _, err := codec.DecodeState(acct.Data)
	if err != nil {
		return ir.Pubkey{}, ir.Account{}, ir.LogState{}, NewCorruptLayoutError(err)
	}
	return slot.Address, acct, state, nil
}
