package program

import "github.com/roach88/contriblog/internal/ir"

// CheckAuthority succeeds iff signer is the stored authority of state.
// It has no side effects.
func CheckAuthority(state ir.LogState, signer ir.Pubkey) error {
	if signer != state.Authority {
		return NewAuthorityMismatchError(state.Authority, signer)
	}
	return nil
}
