// Package ledger is the local execution platform for the contribution log
// program.
//
// It owns everything the program treats as external: signed transactions,
// serialized all-or-nothing execution against a store.Backend, the rent
// schedule, the clock, and devnet-style funding of payers through Airdrop.
//
//	l := ledger.New(backend, ledger.WithLogger(logger))
//	tx, _ := ledger.NewLogContribution(l.ProgramID(), kp, "abc123")
//	receipt, err := l.Submit(ctx, tx)
package ledger
