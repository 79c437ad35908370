package ledger

// Rent is the storage price schedule. An account must hold
// MinimumBalance(len(data)) lamports to be rent exempt.
type Rent struct {
	LamportsPerByteYear uint64
	ExemptionYears      uint64
	// AccountOverhead is charged on top of the data length for the
	// account's own metadata.
	AccountOverhead int
}

// DefaultRent returns the mainnet schedule.
func DefaultRent() Rent {
	return Rent{
		LamportsPerByteYear: 3480,
		ExemptionYears:      2,
		AccountOverhead:     128,
	}
}

// MinimumBalance implements program.RentSchedule.
func (r Rent) MinimumBalance(space int) uint64 {
	if space < 0 {
		space = 0
	}
	return uint64(r.AccountOverhead+space) * r.LamportsPerByteYear * r.ExemptionYears
}
