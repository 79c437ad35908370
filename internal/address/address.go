// Package address derives deterministic account addresses from a program
// id and a list of seeds.
//
// A derived address is SHA256(seeds... | bump | programID | marker) where
// the bump is the largest value in [1, 255] that pushes the hash off the
// ed25519 curve. Off-curve addresses have no private key, so only the
// owning program can ever act for them.
package address

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"filippo.io/edwards25519"

	"github.com/roach88/contriblog/internal/ir"
)

// Limits on seed input.
const (
	MaxSeeds      = 16
	MaxSeedLength = 32
)

// LogStateSeed is the fixed label of the singleton contribution log.
const LogStateSeed = "log_state"

const pdaMarker = "ProgramDerivedAddress"

var (
	// ErrOnCurve is returned when a candidate hash is a valid ed25519 point.
	ErrOnCurve = errors.New("address: derived address is on the ed25519 curve")

	// ErrNoViableBump is returned when every bump yields an on-curve point.
	// With 255 candidates this is unreachable in practice.
	ErrNoViableBump = errors.New("address: no viable bump seed")

	// ErrSeeds is returned for too many or too long seeds.
	ErrSeeds = errors.New("address: invalid seeds")
)

// Derived is a derived address together with the bump that produced it.
type Derived struct {
	Address ir.Pubkey
	Bump    uint8
}

// Create computes the address for an explicit seed list (which must already
// include the bump, if any). It fails with ErrOnCurve if the result is a
// valid curve point.
func Create(programID ir.Pubkey, seeds ...[]byte) (ir.Pubkey, error) {
	if len(seeds) > MaxSeeds {
		return ir.Pubkey{}, fmt.Errorf("%w: %d seeds, max %d", ErrSeeds, len(seeds), MaxSeeds)
	}
	h := sha256.New()
	for i, s := range seeds {
		if len(s) > MaxSeedLength {
			return ir.Pubkey{}, fmt.Errorf("%w: seed %d is %d bytes, max %d", ErrSeeds, i, len(s), MaxSeedLength)
		}
		h.Write(s)
	}
	h.Write(programID[:])
	h.Write([]byte(pdaMarker))

	var out ir.Pubkey
	copy(out[:], h.Sum(nil))
	if IsOnCurve(out) {
		return ir.Pubkey{}, ErrOnCurve
	}
	return out, nil
}

// Find searches bumps from 255 down to 1 and returns the first off-curve
// address. The result depends only on programID and seeds.
func Find(programID ir.Pubkey, seeds ...[]byte) (Derived, error) {
	withBump := make([][]byte, len(seeds)+1)
	copy(withBump, seeds)
	for bump := 255; bump > 0; bump-- {
		withBump[len(seeds)] = []byte{byte(bump)}
		addr, err := Create(programID, withBump...)
		if err == nil {
			return Derived{Address: addr, Bump: uint8(bump)}, nil
		}
		if !errors.Is(err, ErrOnCurve) {
			return Derived{}, err
		}
	}
	return Derived{}, ErrNoViableBump
}

// LogState returns the address of the singleton contribution log owned by
// programID. It is recomputed on every call and never cached.
func LogState(programID ir.Pubkey) (Derived, error) {
	return Find(programID, []byte(LogStateSeed))
}

// IsOnCurve reports whether b decodes as an ed25519 point.
func IsOnCurve(b ir.Pubkey) bool {
	_, err := new(edwards25519.Point).SetBytes(b[:])
	return err == nil
}
