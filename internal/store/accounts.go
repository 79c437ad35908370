package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/roach88/contriblog/internal/ir"
)

// sqlTx adapts a *sql.Tx to the Tx interface.
type sqlTx struct {
	ctx      context.Context
	tx       *sql.Tx
	readOnly bool
	metrics  MetricsHook

	ops   int
	bytes int
}

// GetAccount loads one account row.
func (t *sqlTx) GetAccount(addr ir.Pubkey) (ir.Account, bool, error) {
	var (
		owner    []byte
		lamports int64
		data     []byte
	)
	start := time.Now()
	err := t.tx.QueryRowContext(t.ctx, `
		SELECT owner, lamports, data
		FROM accounts
		WHERE address = ?
	`, addr[:]).Scan(&owner, &lamports, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.Account{}, false, nil
	}
	if err != nil {
		return ir.Account{}, false, fmt.Errorf("get account %s: %w", addr, err)
	}

	ownerKey, err := ir.PubkeyFromBytes(owner)
	if err != nil {
		return ir.Account{}, false, fmt.Errorf("get account %s: owner: %w", addr, err)
	}
	if lamports < 0 {
		return ir.Account{}, false, fmt.Errorf("get account %s: negative lamports %d", addr, lamports)
	}
	if data == nil {
		data = []byte{}
	}
	t.metrics.ObserveRead(time.Since(start), len(data))
	return ir.Account{Owner: ownerKey, Lamports: uint64(lamports), Data: data}, true, nil
}

// PutAccount upserts one account row.
func (t *sqlTx) PutAccount(addr ir.Pubkey, acct ir.Account) error {
	if t.readOnly {
		return ErrReadOnly
	}
	// SQLite integers are signed 64-bit.
	if acct.Lamports > math.MaxInt64 {
		return fmt.Errorf("put account %s: lamports %d overflow INTEGER", addr, acct.Lamports)
	}
	data := acct.Data
	if data == nil {
		data = []byte{}
	}
	_, err := t.tx.ExecContext(t.ctx, `
		INSERT INTO accounts (address, owner, lamports, data)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(address) DO UPDATE SET
			owner = excluded.owner,
			lamports = excluded.lamports,
			data = excluded.data
	`, addr[:], acct.Owner[:], int64(acct.Lamports), data)
	if err != nil {
		return fmt.Errorf("put account %s: %w", addr, err)
	}
	t.ops++
	t.bytes += len(data)
	return nil
}
