package store

import (
	"context"
	"errors"
	"time"

	"github.com/roach88/contriblog/internal/ir"
)

// ErrReadOnly is returned by PutAccount inside a View transaction.
var ErrReadOnly = errors.New("store: write in read-only transaction")

// Tx is the account view handed to an Update or View callback.
//
// Accounts returned by GetAccount are copies; mutating them has no effect
// until they are written back with PutAccount.
type Tx interface {
	// GetAccount returns the account at addr. ok is false if none exists.
	GetAccount(addr ir.Pubkey) (acct ir.Account, ok bool, err error)

	// PutAccount creates or replaces the account at addr.
	PutAccount(addr ir.Pubkey, acct ir.Account) error
}

// Backend is an account store with all-or-nothing transactions.
//
// Update commits every PutAccount made by fn if and only if fn returns nil.
// If fn returns an error, or the commit itself fails, no byte written by
// fn is visible afterwards. Implementations serialize Update calls.
type Backend interface {
	Update(ctx context.Context, fn func(Tx) error) error
	View(ctx context.Context, fn func(Tx) error) error
	Close() error
}

// MetricsHook is a minimal hook surface for storage observations.
type MetricsHook interface {
	ObserveRead(elapsed time.Duration, bytes int)
	ObserveBatchCommit(elapsed time.Duration, numOps int, bytes int)
}

// NoopMetrics is used when no metrics hook is provided.
type NoopMetrics struct{}

func (NoopMetrics) ObserveRead(time.Duration, int)             {}
func (NoopMetrics) ObserveBatchCommit(time.Duration, int, int) {}
